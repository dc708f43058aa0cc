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
    `github.com/BNieuwenhuizen/algrad/internal/lir`
)

type (
    SOP2Op   uint32
    SOP1Op   uint32
    SOPPOp   uint32
    VOP2Op   uint32
    VOP1Op   uint32
    VOPCOp   uint32
    VINTRPOp uint32
)

const (
    OP_s_add_u32   SOP2Op = 0
    OP_s_and_b32   SOP2Op = 12
    OP_s_and_b64   SOP2Op = 13
    OP_s_or_b32    SOP2Op = 14
    OP_s_or_b64    SOP2Op = 15
    OP_s_andn2_b32 SOP2Op = 18
    OP_s_andn2_b64 SOP2Op = 19
)

const (
    OP_s_mov_b32 SOP1Op = 0
    OP_s_mov_b64 SOP1Op = 1
)

const (
    OP_s_nop    SOPPOp = 0
    OP_s_endpgm SOPPOp = 1
)

const (
    OP_v_cndmask_b32 VOP2Op = 0
    OP_v_add_f32     VOP2Op = 1
    OP_v_sub_f32     VOP2Op = 2
)

const (
    OP_v_nop     VOP1Op = 0
    OP_v_mov_b32 VOP1Op = 1
)

const (
    OP_v_cmp_lt_f32 VOPCOp = 0x41
)

const (
    OP_v_interp_p1_f32  VINTRPOp = 0
    OP_v_interp_p2_f32  VINTRPOp = 1
    OP_v_interp_mov_f32 VINTRPOp = 2
)

// Literal is the source operand sentinel meaning "a 32-bit inline literal
// follows in the next code word".
const Literal = 255

// ExecReg is the scalar operand index of the exec mask.
const ExecReg = 126

type SSrc struct {
    Value    uint32
    Constant uint32
}

type VSrc struct {
    Value    uint32
    Constant uint32
}

type SGPR struct {
    Value uint32
}

type VGPR struct {
    Value uint32
}

// Label records the code-word index of a block and the branch words that
// still need their 16-bit displacement patched once the block is reached.
type Label struct {
    index   uint32
    visited bool
    refs    []uint32
}

// Encoder accumulates the 32-bit code-word stream. Each encode call writes
// one word, or two when a literal source or the second export word follows.
type Encoder struct {
    words  []uint32
    labels map[*lir.Block]*Label
}

func NewEncoder() *Encoder {
    return &Encoder {
        labels: make(map[*lir.Block]*Label),
    }
}

func (self *Encoder) Words() []uint32 {
    return self.words
}

func (self *Encoder) label(bb *lir.Block) *Label {
    if p, ok := self.labels[bb]; ok {
        return p
    }
    p := new(Label)
    self.labels[bb] = p
    return p
}

// StartBlock pins the block's label to the current stream position and
// patches every queued forward reference with the signed word displacement
// target - ref - 1.
func (self *Encoder) StartBlock(bb *lir.Block) {
    p := self.label(bb)
    p.visited = true
    p.index = uint32(len(self.words))
    for _, ref := range p.refs {
        v := p.index - ref - 1
        self.words[ref] = (self.words[ref] & 0xFFFF0000) | (v & 0xFFFF)
    }
    p.refs = nil
}

func (self *Encoder) EncodeSOP2(op SOP2Op, dst SGPR, src1 SSrc, src2 SSrc) {
    if src1.Value == Literal && src2.Value == Literal {
        panic("encoder: SOP2 with two literal sources")
    }
    self.words = append(self.words, 0b10 << 30 | uint32(op) << 23 | dst.Value << 16 | src2.Value << 8 | src1.Value)
    if src1.Value == Literal {
        self.words = append(self.words, src1.Constant)
    } else if src2.Value == Literal {
        self.words = append(self.words, src2.Constant)
    }
}

func (self *Encoder) EncodeSOP1(op SOP1Op, dst SGPR, src SSrc) {
    self.words = append(self.words, 0b101111101 << 23 | dst.Value << 16 | uint32(op) << 8 | src.Value)
    if src.Value == Literal {
        self.words = append(self.words, src.Constant)
    }
}

func (self *Encoder) EncodeSOPP(op SOPPOp, imm uint32) {
    self.words = append(self.words, 0b101111111 << 23 | uint32(op) << 16 | imm & 0xFFFF)
}

// EncodeSOPPBranch emits a branch-like SOPP: the displacement is filled in
// immediately when the target block was already visited, or queued on its
// label otherwise.
func (self *Encoder) EncodeSOPPBranch(op SOPPOp, bb *lir.Block) {
    p := self.label(bb)
    if !p.visited {
        p.refs = append(p.refs, uint32(len(self.words)))
    }
    self.EncodeSOPP(op, p.index - uint32(len(self.words)) - 1)
}

func (self *Encoder) EncodeVOP2(op VOP2Op, dst VGPR, src1 VSrc, src2 VGPR) {
    self.words = append(self.words, 0 << 31 | uint32(op) << 25 | dst.Value << 17 | src2.Value << 9 | src1.Value)
    if src1.Value == Literal {
        self.words = append(self.words, src1.Constant)
    }
}

func (self *Encoder) EncodeVOPC(op VOPCOp, src1 VSrc, src2 VGPR) {
    self.words = append(self.words, 0b0111110 << 25 | uint32(op) << 17 | src2.Value << 9 | src1.Value)
    if src1.Value == Literal {
        self.words = append(self.words, src1.Constant)
    }
}

func (self *Encoder) EncodeVOP1(op VOP1Op, dst VGPR, src VSrc) {
    self.words = append(self.words, 0b0111111 << 25 | dst.Value << 17 | uint32(op) << 9 | src.Value)
    if src.Value == Literal {
        self.words = append(self.words, src.Constant)
    }
}

func (self *Encoder) EncodeVINTRP(op VINTRPOp, attr int, channel int, dst VGPR, src uint32) {
    self.words = append(self.words, 0b110101 << 26 | dst.Value << 18 | uint32(op) << 16 |
        uint32(attr) << 10 | uint32(channel) << 8 | src)
}

func (self *Encoder) EncodeEXP(enable int, target int, compressed bool, done bool, validMask bool,
    op1 VGPR, op2 VGPR, op3 VGPR, op4 VGPR) {
    self.words = append(self.words, 0b110001 << 26 | uint32(enable) | uint32(target) << 4 |
        b2u(compressed) << 10 | b2u(done) << 11 | b2u(validMask) << 12)
    self.words = append(self.words, op1.Value | op2.Value << 8 | op3.Value << 16 | op4.Value << 24)
}

func b2u(v bool) uint32 {
    if v {
        return 1
    } else {
        return 0
    }
}
