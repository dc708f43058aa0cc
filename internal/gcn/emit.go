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

package gcn

import (
    `fmt`

    `github.com/BNieuwenhuizen/algrad/internal/lir`
)

type _Emitter struct {
    enc *Encoder
    p   *lir.Program
}

func (self *_Emitter) makeSGPR(arg lir.Arg) SGPR {
    if !arg.IsTemp() || !arg.IsFixed() {
        panic("emit: unfixed scalar argument")
    }
    r := arg.PhysReg()
    if r & 3 != 0 || r >= 1024 {
        panic(fmt.Sprintf("emit: invalid scalar register slot %d", r))
    }
    return SGPR { Value: uint32(r) / 4 }
}

func (self *_Emitter) makeVGPR(arg lir.Arg) VGPR {
    if !arg.IsTemp() || !arg.IsFixed() {
        panic("emit: unfixed vector argument")
    }
    r := arg.PhysReg()
    if r & 3 != 0 || r < 1024 {
        panic(fmt.Sprintf("emit: invalid vector register slot %d", r))
    }
    return VGPR { Value: uint32(r) / 4 - 256 }
}

func (self *_Emitter) makeSSRC(arg lir.Arg) SSrc {
    if arg.IsConstant() {
        return SSrc { Value: Literal, Constant: arg.Constant() }
    }
    if !arg.IsFixed() {
        panic("emit: unfixed scalar source")
    }
    r := arg.PhysReg()
    if r & 3 != 0 || r >= 1024 {
        panic(fmt.Sprintf("emit: invalid scalar register slot %d", r))
    }
    return SSrc { Value: uint32(r) / 4 }
}

func (self *_Emitter) makeVSRC(arg lir.Arg) VSrc {
    if arg.IsConstant() {
        return VSrc { Value: Literal, Constant: arg.Constant() }
    }
    if !arg.IsFixed() {
        panic("emit: unfixed vector source")
    }
    r := arg.PhysReg()
    if r & 3 != 0 {
        panic(fmt.Sprintf("emit: invalid register slot %d", r))
    }
    return VSrc { Value: uint32(r) / 4 }
}

/* overlap is a byte-range test on physical register slots; constants never
 * occupy a register */
func (self *_Emitter) overlap(a lir.Arg, b lir.Arg) bool {
    if !a.IsTemp() || !b.IsTemp() {
        return false
    }
    as := uint32(a.PhysReg())
    ae := as + uint32(self.p.TempInfo(a.Temp()).Size)
    bs := uint32(b.PhysReg())
    be := bs + uint32(self.p.TempInfo(b.Temp()).Size)
    return ae > bs && as < be
}

type _CopyPair struct {
    op  lir.Arg
    def lir.Arg
}

/* emitParallelCopy lowers simultaneous assignment to single moves: any pair
 * whose destination overlaps no remaining source can go first. A round with
 * no progress means a copy cycle the allocator was required to break. */
func (self *_Emitter) emitParallelCopy(insn *lir.Inst) {
    copies := make([]_CopyPair, 0, len(insn.Defs))
    for i := range insn.Defs {
        op, def := insn.Ops[i], insn.Defs[i]
        if op.IsTemp() && op.PhysReg() == def.PhysReg() {
            continue
        }
        copies = append(copies, _CopyPair { op: op, def: def })
    }

    for len(copies) != 0 {
        progress := false
        for i := 0; i < len(copies); i++ {
            allowed := true
            for j := range copies {
                if i != j && self.overlap(copies[i].def, copies[j].op) {
                    allowed = false
                }
            }
            if !allowed {
                continue
            }

            progress = true
            op, def := copies[i].op, copies[i].def
            di := self.p.TempInfo(def.Temp())

            switch {
                case di.Class == lir.SGPR && di.Size == 4:
                    self.enc.EncodeSOP1(OP_s_mov_b32, self.makeSGPR(def), self.makeSSRC(op))
                case di.Class == lir.SGPR && di.Size == 8:
                    self.enc.EncodeSOP1(OP_s_mov_b64, self.makeSGPR(def), self.makeSSRC(op))
                case di.Class == lir.VGPR && di.Size == 4:
                    self.enc.EncodeVOP1(OP_v_mov_b32, self.makeVGPR(def), self.makeVSRC(op))
                default:
                    panic(fmt.Sprintf("emit: unsupported copy of %s temp of size %d", di.Class, di.Size))
            }

            copies = append(copies[:i], copies[i + 1:]...)
            i--
        }
        if !progress {
            panic("emit: unresolvable parallel copy cycle")
        }
    }
}

func (self *_Emitter) emitStartBlock(insn *lir.Inst) {
    exec := SGPR { Value: ExecReg }
    switch len(insn.Ops) {
        case 0:
            /* no incoming logical edge, exec is left as it is */
        case 1:
            self.enc.EncodeSOP1(OP_s_mov_b64, exec, self.makeSSRC(insn.Ops[0]))
        default:
            self.enc.EncodeSOP2(OP_s_or_b64, exec, self.makeSSRC(insn.Ops[0]), self.makeSSRC(insn.Ops[1]))
            for i := 2; i < len(insn.Ops); i++ {
                self.enc.EncodeSOP2(OP_s_or_b64, exec, SSrc { Value: ExecReg }, self.makeSSRC(insn.Ops[i]))
            }
    }
}

func (self *_Emitter) emitCondBranch(insn *lir.Inst) {
    exec := SSrc { Value: ExecReg }

    /* the definition aliasing the predicate must be written last */
    if self.overlap(insn.Defs[0], insn.Ops[0]) {
        self.enc.EncodeSOP2(OP_s_andn2_b64, self.makeSGPR(insn.Defs[1]), exec, self.makeSSRC(insn.Ops[0]))
        self.enc.EncodeSOP2(OP_s_and_b64, self.makeSGPR(insn.Defs[0]), exec, self.makeSSRC(insn.Ops[0]))
    } else {
        self.enc.EncodeSOP2(OP_s_and_b64, self.makeSGPR(insn.Defs[0]), exec, self.makeSSRC(insn.Ops[0]))
        self.enc.EncodeSOP2(OP_s_andn2_b64, self.makeSGPR(insn.Defs[1]), exec, self.makeSSRC(insn.Ops[0]))
    }
}

func (self *_Emitter) run() {
    for _, bb := range self.p.Blocks() {
        self.enc.StartBlock(bb)
        for _, insn := range bb.Insns {
            switch insn.Op {
                case lir.OpParallelCopy:
                    self.emitParallelCopy(insn)
                case lir.OpVInterpP1F32:
                    v := insn.Vintrp()
                    self.enc.EncodeVINTRP(OP_v_interp_p1_f32, v.Attribute, v.Channel,
                        self.makeVGPR(insn.Defs[0]), self.makeVGPR(insn.Ops[0]).Value)
                case lir.OpVInterpP2F32:
                    v := insn.Vintrp()
                    self.enc.EncodeVINTRP(OP_v_interp_p2_f32, v.Attribute, v.Channel,
                        self.makeVGPR(insn.Defs[0]), self.makeVGPR(insn.Ops[1]).Value)
                case lir.OpExp:
                    v := insn.Exp()
                    self.enc.EncodeEXP(v.Enable, v.Target, v.Compressed, v.Done, v.ValidMask,
                        self.makeVGPR(insn.Ops[0]), self.makeVGPR(insn.Ops[1]),
                        self.makeVGPR(insn.Ops[2]), self.makeVGPR(insn.Ops[3]))
                case lir.OpSEndPgm:
                    self.enc.EncodeSOPP(OP_s_endpgm, 0)
                case lir.OpStart:
                    /* defines the hardware-provided inputs, no code */
                case lir.OpStartBlock:
                    self.emitStartBlock(insn)
                case lir.OpVCmpLtF32:
                    self.enc.EncodeVOPC(OP_v_cmp_lt_f32, self.makeVSRC(insn.Ops[0]), self.makeVGPR(insn.Ops[1]))
                case lir.OpLogicalBranch:
                    self.enc.EncodeSOP1(OP_s_mov_b64, self.makeSGPR(insn.Defs[0]), SSrc { Value: ExecReg })
                case lir.OpLogicalCondBranch:
                    self.emitCondBranch(insn)
                case lir.OpPhi:
                    /* already destroyed into parallel copies */
                default:
                    panic("emit: unhandled opcode: " + insn.Op.String())
            }
        }
    }
}

// Emit produces the GCN code-word stream for a fully register-allocated
// LIR program.
func Emit(p *lir.Program) []uint32 {
    em := _Emitter { enc: NewEncoder(), p: p }
    em.run()
    return em.enc.Words()
}
