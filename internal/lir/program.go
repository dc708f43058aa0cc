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

package lir

import (
    `fmt`
    `strings`
)

// Block carries two independent edge sets over the same block list: the
// logical CFG follows the data flow and resolves vector phis, the
// linearized CFG follows the wave-level program order and resolves scalar
// mask values.
type Block struct {
    ID        int
    Insns     []*Inst
    LogicPred []*Block
    LogicSucc []*Block
    LinPred   []*Block
    LinSucc   []*Block
}

func NewBlock(id int) *Block {
    return &Block { ID: id }
}

func FindOrInsertBlock(arr *[]*Block, bb *Block) int {
    for i, v := range *arr {
        if v == bb {
            return i
        }
    }
    *arr = append(*arr, bb)
    return len(*arr) - 1
}

func FindBlock(arr []*Block, bb *Block) int {
    for i, v := range arr {
        if v == bb {
            return i
        }
    }
    panic("lir: block is not in the neighbor list")
}

// Program owns the blocks and the temp table. A temp id is a dense index
// into the table; the allocator renames temps by allocating fresh entries
// with the same class and size.
type Program struct {
    blocks []*Block
    temps  []TempInfo
}

func NewProgram() *Program {
    return new(Program)
}

func (self *Program) Blocks() []*Block {
    return self.blocks
}

func (self *Program) InsertBack(bb *Block) *Block {
    self.blocks = append(self.blocks, bb)
    return bb
}

func (self *Program) NewTemp(class RegClass, size int) TempID {
    id := TempID(len(self.temps))
    self.temps = append(self.temps, TempInfo { Class: class, Size: size })
    return id
}

func (self *Program) TempInfo(id TempID) TempInfo {
    return self.temps[id]
}

func (self *Program) TempCount() int {
    return len(self.temps)
}

func (self *Program) argString(arg Arg) string {
    if arg.IsConstant() {
        return fmt.Sprintf("0x%x", arg.Constant())
    }
    ti := self.temps[arg.Temp()]
    s := fmt.Sprintf("t%d_%s%d", arg.Temp(), ti.Class, ti.Size * 8)
    if arg.IsFixed() {
        r := arg.PhysReg()
        switch {
            case r >= 1024 : s += fmt.Sprintf("(v%d)", r / 4 - 256)
            case r == M0   : s += "(m0)"
            default        : s += fmt.Sprintf("(s%d)", r / 4)
        }
    }
    if arg.Kill() {
        s += "!"
    }
    return s
}

// Dump renders the program in a fixed textual form for tests and debugging.
func (self *Program) Dump() string {
    var sb strings.Builder
    sb.WriteString("----- lprogram -----\n")
    for _, bb := range self.blocks {
        fmt.Fprintf(&sb, "  block %d:\n", bb.ID)
        for _, insn := range bb.Insns {
            fmt.Fprintf(&sb, "    %s", insn.Op)
            for _, d := range insn.Defs {
                sb.WriteString(" " + self.argString(d))
            }
            if len(insn.Defs) != 0 && len(insn.Ops) != 0 {
                sb.WriteString(" <-")
            }
            for _, op := range insn.Ops {
                sb.WriteString(" " + self.argString(op))
            }
            sb.WriteString("\n")
        }
    }
    return sb.String()
}
