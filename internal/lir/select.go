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
    `math`

    `github.com/BNieuwenhuizen/algrad/internal/hir`
    `github.com/BNieuwenhuizen/algrad/internal/types`
)

const _NoTemp = ^TempID(0)

// ComputeRegisterClasses assigns one register class to every non-void HIR
// value: divergent values are per-lane (vgpr, or an sgpr wave mask for
// booleans), uniform values are wave-level (sgpr, or the scc bit for
// booleans). A vgpr operand forces the result per-lane as well.
func ComputeRegisterClasses(p *hir.Program) []RegClass {
    classes := make([]RegClass, p.DefCount())
    classes[p.Params()[0].ID()] = SGPR
    classes[p.Params()[1].ID()] = VGPR
    classes[p.Params()[2].ID()] = VGPR

    for _, bb := range p.Blocks() {
        for _, insn := range bb.Instructions() {
            if insn.Type() == types.Void {
                continue
            }

            isBool := insn.Type().Kind() == types.KindBool
            if hir.IsVarying(insn) {
                classes[insn.ID()] = pickClass(isBool, SGPR, VGPR)
            } else {
                classes[insn.ID()] = pickClass(isBool, SCC, SGPR)
            }

            for i := 0; i < insn.OperandCount(); i++ {
                if classes[insn.Operand(i).ID()] == VGPR {
                    classes[insn.ID()] = pickClass(isBool, SGPR, VGPR)
                }
            }
        }
    }
    return classes
}

func pickClass(isBool bool, b RegClass, v RegClass) RegClass {
    if isBool {
        return b
    } else {
        return v
    }
}

type _Edge struct {
    from *Block
    to   *Block
}

type _Selector struct {
    h       *hir.Program
    l       *Program
    cur     *Block
    cfv     map[_Edge]TempID
    blocks  []*Block
    classes []RegClass
    regmap  []TempID
}

/* getReg maps a HIR value to its LIR temp, allocating it on first sight;
 * wave masks (sgpr-class booleans) take a 64-bit pair, everything else a
 * single 32-bit register */
func (self *_Selector) getReg(def hir.Value) TempID {
    if self.regmap[def.ID()] == _NoTemp {
        rc := self.classes[def.ID()]
        size := 4
        if rc == SGPR && def.Type().Kind() == types.KindBool {
            size = 8
        }
        self.regmap[def.ID()] = self.l.NewTemp(rc, size)
    }
    return self.regmap[def.ID()]
}

func constantBits(c *hir.ScalarConstant) uint32 {
    if c.Type().Kind() == types.KindFloat {
        return math.Float32bits(float32(c.FloatValue()))
    } else {
        return uint32(c.IntegerValue())
    }
}

/* srcArg keeps constants inline, the encoders turn them into literals */
func (self *_Selector) srcArg(def hir.Value) Arg {
    if c, ok := def.(*hir.ScalarConstant); ok {
        return NewConst(constantBits(c))
    } else {
        return NewTemp(self.getReg(def))
    }
}

/* vgprArg materializes constants into a fresh vector register through a
 * one-element parallel copy, emitted before the consumer */
func (self *_Selector) vgprArg(def hir.Value) Arg {
    c, ok := def.(*hir.ScalarConstant)
    if !ok {
        return NewTemp(self.getReg(def))
    }
    tmp := self.l.NewTemp(VGPR, 4)
    copyInsn := NewInst(OpParallelCopy, 1, 1)
    copyInsn.Defs[0] = NewTemp(tmp)
    copyInsn.Ops[0] = NewConst(constantBits(c))
    self.cur.Insns = append(self.cur.Insns, copyInsn)
    return NewTemp(tmp)
}

func (self *_Selector) selectCompare(op OpCode, insn *hir.Inst) {
    p := NewInst(op, 1, 2)
    p.Defs[0] = NewTempFixed(self.getReg(insn), ExecLo)
    self.cur.Insns = append(self.cur.Insns, p)

    /* materializing copies must follow the consumer here, the block is
     * emitted in reverse */
    p.Ops[0] = self.srcArg(insn.Operand(0))
    p.Ops[1] = self.vgprArg(insn.Operand(1))
}

func (self *_Selector) selectInterpolate(insn *hir.Inst) {
    attr := int(insn.Operand(3).(*hir.ScalarConstant).IntegerValue())
    ch := int(insn.Operand(4).(*hir.ScalarConstant).IntegerValue())
    aux := &VIntrpAux { Attribute: attr, Channel: ch }

    tmp := self.l.NewTemp(VGPR, 4)
    p1 := NewInst(OpVInterpP1F32, 1, 2)
    p2 := NewInst(OpVInterpP2F32, 1, 3)

    /* reversed emission order, p1 must precede p2 in the final program */
    self.cur.Insns = append(self.cur.Insns, p2, p1)

    p1.Defs[0] = NewTemp(tmp)
    p1.Ops[0] = self.vgprArg(insn.Operand(1))
    p1.Ops[1] = NewTempFixed(self.getReg(insn.Operand(0)), M0)
    p1.Aux = aux

    p2.Defs[0] = NewTemp(self.getReg(insn))
    p2.Ops[0] = NewTemp(tmp)
    p2.Ops[1] = self.vgprArg(insn.Operand(2))
    p2.Ops[2] = NewTempFixed(self.getReg(insn.Operand(0)), M0)
    p2.Aux = aux
}

func (self *_Selector) selectExport(insn *hir.Inst) {
    p := NewInst(OpExp, 0, 4)
    p.Aux = &ExpAux {
        Enable     : int(insn.Operand(0).(*hir.ScalarConstant).IntegerValue()),
        Target     : int(insn.Operand(1).(*hir.ScalarConstant).IntegerValue()),
        Compressed : insn.Operand(2).(*hir.ScalarConstant).IntegerValue() != 0,
        Done       : insn.Operand(3).(*hir.ScalarConstant).IntegerValue() != 0,
        ValidMask  : true,
    }
    self.cur.Insns = append(self.cur.Insns, p)
    for i := 0; i < 4; i++ {
        p.Ops[i] = self.vgprArg(insn.Operand(4 + i))
    }
}

func (self *_Selector) selectPhi(insn *hir.Inst) {
    if self.classes[insn.ID()] != VGPR {
        panic("select: scalar-class phi reached instruction selection")
    }
    p := NewInst(OpPhi, 1, len(self.cur.LogicPred))
    for i := range self.cur.LogicPred {
        if c, ok := insn.Operand(i).(*hir.ScalarConstant); ok {
            p.Ops[i] = NewConst(constantBits(c))
        } else {
            p.Ops[i] = NewTemp(self.getReg(insn.Operand(i)))
        }
    }
    p.Defs[0] = NewTemp(self.getReg(insn))
    self.cur.Insns = append(self.cur.Insns, p)
}

func (self *_Selector) selectCondBranch(insn *hir.Inst) {
    p := NewInst(OpLogicalCondBranch, 2, 1)
    p.Ops[0] = NewTemp(self.getReg(insn.Operand(0)))
    p.Defs[0] = NewTemp(self.cfv[_Edge { self.cur, self.cur.LogicSucc[0] }])
    p.Defs[1] = NewTemp(self.cfv[_Edge { self.cur, self.cur.LogicSucc[1] }])
    self.cur.Insns = append(self.cur.Insns, p)
}

func (self *_Selector) selectBranch() {
    p := NewInst(OpLogicalBranch, 1, 0)
    p.Defs[0] = NewTemp(self.cfv[_Edge { self.cur, self.cur.LogicSucc[0] }])
    self.cur.Insns = append(self.cur.Insns, p)
}

/* the entry block materializes the ABI-fixed wave inputs, every other block
 * collects the masks of its incoming logical edges */
func (self *_Selector) selectBlockStart() {
    if len(self.cur.LinPred) == 0 {
        params := self.h.Params()
        p := NewInst(OpStart, 3, 0)
        p.Defs[0] = NewTempFixed(self.getReg(params[0]), PhysReg(16 * 4))
        p.Defs[1] = NewTempFixed(self.getReg(params[1]), PhysReg((0 + 256) * 4))
        p.Defs[2] = NewTempFixed(self.getReg(params[2]), PhysReg((1 + 256) * 4))
        self.cur.Insns = append(self.cur.Insns, p)
        return
    }

    p := NewInst(OpStartBlock, 0, len(self.cur.LogicPred))
    for i, pred := range self.cur.LogicPred {
        p.Ops[i] = NewTemp(self.cfv[_Edge { pred, self.cur }])
    }
    self.cur.Insns = append(self.cur.Insns, p)
}

// SelectInstructions lowers a fully-processed HIR program into LIR, block
// by block in reverse, reversing each emitted list afterwards.
func SelectInstructions(p *hir.Program) *Program {
    s := &_Selector {
        h       : p,
        l       : NewProgram(),
        cfv     : make(map[_Edge]TempID),
        classes : ComputeRegisterClasses(p),
        regmap  : make([]TempID, p.DefCount()),
    }
    for i := range s.regmap {
        s.regmap[i] = _NoTemp
    }

    hbbs := p.Blocks()
    for _, bb := range hbbs {
        s.blocks = append(s.blocks, NewBlock(bb.ID()))
        s.l.InsertBack(s.blocks[len(s.blocks) - 1])
    }

    /* neighbor lists: the logical CFG mirrors the HIR edges, the
     * linearized CFG is the block chain in program order; every logical
     * edge gets a dedicated wave mask temp */
    for i := len(hbbs) - 1; i >= 0; i-- {
        bb, lbb := hbbs[i], s.blocks[i]

        if i + 1 < len(hbbs) {
            FindOrInsertBlock(&lbb.LinSucc, s.blocks[i + 1])
            FindOrInsertBlock(&s.blocks[i + 1].LinPred, lbb)
        }
        for _, pred := range bb.Predecessors() {
            lbb.LogicPred = append(lbb.LogicPred, s.blocks[pred.ID()])
        }
        for _, succ := range bb.Successors() {
            to := s.blocks[succ.ID()]
            lbb.LogicSucc = append(lbb.LogicSucc, to)
            s.cfv[_Edge { lbb, to }] = s.l.NewTemp(SGPR, 8)
        }
    }

    for i := len(hbbs) - 1; i >= 0; i-- {
        bb := hbbs[i]
        s.cur = s.blocks[i]
        started := false

        insns := bb.Instructions()
        for j := len(insns) - 1; j >= 0; j-- {
            insn := insns[j]
            switch insn.OpCode() {
                case hir.OpRet:
                    s.cur.Insns = append(s.cur.Insns, NewInst(OpSEndPgm, 0, 0))
                case hir.OpOrderedLessThan:
                    s.selectCompare(OpVCmpLtF32, insn)
                case hir.OpGCNInterpolate:
                    s.selectInterpolate(insn)
                case hir.OpGCNExport:
                    s.selectExport(insn)
                case hir.OpPhi:
                    if !started {
                        s.selectBlockStart()
                        started = true
                    }
                    s.selectPhi(insn)
                case hir.OpCondBranch:
                    s.selectCondBranch(insn)
                case hir.OpBranch:
                    s.selectBranch()
                default:
                    panic("select: unhandled opcode: " + insn.OpCode().String())
            }
        }
        if !started {
            s.selectBlockStart()
        }
    }

    for _, bb := range s.l.Blocks() {
        for i, j := 0, len(bb.Insns) - 1; i < j; i, j = i + 1, j - 1 {
            bb.Insns[i], bb.Insns[j] = bb.Insns[j], bb.Insns[i]
        }
    }
    return s.l
}
