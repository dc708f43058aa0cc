/*
 * Copyright 2022 Algrad Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hir

import (
    `fmt`
    `math`
    `strings`

    `github.com/BNieuwenhuizen/algrad/internal/types`
)

type ProgramKind uint8

const (
    Fragment ProgramKind = iota
    Vertex
    Compute
)

func (self ProgramKind) String() string {
    switch self {
        case Fragment : return "fragment"
        case Vertex   : return "vertex"
        case Compute  : return "compute"
        default       : panic("hir: invalid program kind")
    }
}

// Program owns every block, parameter, variable and constant of one entry
// point. Def ids are dense and monotonically increasing, usable as array
// subscripts by the passes.
type Program struct {
    kind        ProgramKind
    types       types.Context
    blocks      []*BasicBlock
    variables   []*Inst
    params      []*Inst
    constants   []*ScalarConstant
    nextDefID   int
    nextBlockID int
}

func NewProgram(kind ProgramKind) *Program {
    return &Program { kind: kind }
}

func (self *Program) Kind() ProgramKind {
    return self.kind
}

func (self *Program) Types() *types.Context {
    return &self.types
}

func (self *Program) DefCount() int {
    return self.nextDefID
}

func (self *Program) NewInst(op OpCode, typ types.Type, operandCount int) *Inst {
    return self.NewInstFlags(op, typ, defaultInstFlags[op], operandCount)
}

func (self *Program) NewInstFlags(op OpCode, typ types.Type, flags InstFlags, operandCount int) *Inst {
    p := &Inst {
        Def   : Def { op: op, id: self.nextDefID, typ: typ },
        flags : flags,
    }
    self.nextDefID++
    p.operands = make([]*Use, operandCount)
    for i := range p.operands {
        p.operands[i] = &Use { consumer: p }
    }
    return p
}

func (self *Program) NewBasicBlock() *BasicBlock {
    bb := &BasicBlock { id: self.nextBlockID }
    self.nextBlockID++
    return bb
}

func (self *Program) InsertBack(bb *BasicBlock) *BasicBlock {
    self.blocks = append(self.blocks, bb)
    return bb
}

func (self *Program) Blocks() []*BasicBlock {
    return self.blocks
}

func (self *Program) SetBlocks(blocks []*BasicBlock) {
    self.blocks = blocks
}

func (self *Program) EntryBlock() *BasicBlock {
    return self.blocks[0]
}

func (self *Program) Variables() []*Inst {
    return self.variables
}

func (self *Program) SetVariables(vars []*Inst) {
    self.variables = vars
}

func (self *Program) InsertVariable(v *Inst) *Inst {
    self.variables = append(self.variables, v)
    return v
}

func (self *Program) Params() []*Inst {
    return self.params
}

func (self *Program) SetParams(params []*Inst) {
    self.params = params
}

func (self *Program) AppendParam(p *Inst) *Inst {
    self.params = append(self.params, p)
    return p
}

// ScalarConst interns a scalar constant keyed by (type, bit-pattern).
func (self *Program) ScalarConst(typ types.Type, bits uint64) *ScalarConstant {
    for _, c := range self.constants {
        if c.Type() == typ && c.bits == bits {
            return c
        }
    }
    c := &ScalarConstant {
        Def  : Def { op: OpConstant, id: self.nextDefID, typ: typ },
        bits : bits,
    }
    self.nextDefID++
    self.constants = append(self.constants, c)
    return c
}

func (self *Program) FloatConst(typ types.Type, v float64) *ScalarConstant {
    return self.ScalarConst(typ, math.Float64bits(v))
}

func (self *Program) Constants() []*ScalarConstant {
    return self.constants
}

// Dump renders the program in a fixed textual form for tests and debugging.
func (self *Program) Dump() string {
    var sb strings.Builder
    fmt.Fprintf(&sb, "----- program(%s) -----\n", self.kind)
    sb.WriteString("  params (")
    for i, p := range self.params {
        if i != 0 {
            sb.WriteString(" ")
        }
        fmt.Fprintf(&sb, "%%%d", p.ID())
    }
    sb.WriteString(")\n")
    for _, v := range self.variables {
        fmt.Fprintf(&sb, "    %%%d = %s\n", v.ID(), v.OpCode())
    }
    for _, bb := range self.blocks {
        fmt.Fprintf(&sb, "  block %d:\n", bb.ID())
        for _, p := range bb.Instructions() {
            fmt.Fprintf(&sb, "     %s\n", p)
        }
        sb.WriteString("    successors")
        for _, succ := range bb.Successors() {
            fmt.Fprintf(&sb, " %d", succ.ID())
        }
        sb.WriteString("\n")
    }
    return sb.String()
}
