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
    `testing`

    `github.com/BNieuwenhuizen/algrad/internal/lir`
    `github.com/brianvoe/gofakeit/v6`
    `github.com/stretchr/testify/require`
)

func TestEncoder_SOP2(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeSOP2(OP_s_or_b64, SGPR { Value: 126 }, SSrc { Value: 0 }, SSrc { Value: 2 })
    require.Equal(t, []uint32 { 0x87FE0200 }, enc.Words())
}

func TestEncoder_SOP2Literal(t *testing.T) {
    lit := gofakeit.Uint32()
    enc := NewEncoder()
    enc.EncodeSOP2(OP_s_and_b32, SGPR { Value: 4 }, SSrc { Value: Literal, Constant: lit }, SSrc { Value: 7 })
    require.Len(t, enc.Words(), 2)
    require.Equal(t, uint32(0x86040_7FF), enc.Words()[0])
    require.Equal(t, lit, enc.Words()[1])
}

func TestEncoder_SOP2TwoLiteralsFatal(t *testing.T) {
    enc := NewEncoder()
    require.Panics(t, func() {
        enc.EncodeSOP2(OP_s_add_u32, SGPR { Value: 0 },
            SSrc { Value: Literal, Constant: 1 }, SSrc { Value: Literal, Constant: 2 })
    })
}

func TestEncoder_SOP1(t *testing.T) {
    lit := gofakeit.Uint32()
    enc := NewEncoder()
    enc.EncodeSOP1(OP_s_mov_b32, SGPR { Value: 5 }, SSrc { Value: Literal, Constant: lit })
    require.Equal(t, []uint32 { 0xBE8500FF, lit }, enc.Words())

    enc = NewEncoder()
    enc.EncodeSOP1(OP_s_mov_b64, SGPR { Value: 126 }, SSrc { Value: 0 })
    require.Equal(t, []uint32 { 0xBEFE0100 }, enc.Words())
}

func TestEncoder_SOPP(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeSOPP(OP_s_endpgm, 0)
    require.Equal(t, []uint32 { 0xBF810000 }, enc.Words())
}

func TestEncoder_VOP1(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeVOP1(OP_v_mov_b32, VGPR { Value: 3 }, VSrc { Value: 256 })
    require.Equal(t, []uint32 { 0x7E060300 }, enc.Words())
}

func TestEncoder_VOP2(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeVOP2(OP_v_add_f32, VGPR { Value: 1 }, VSrc { Value: 256 }, VGPR { Value: 2 })
    require.Equal(t, []uint32 { 0x02020500 }, enc.Words())
}

func TestEncoder_VOPC(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeVOPC(OP_v_cmp_lt_f32, VSrc { Value: 256 }, VGPR { Value: 1 })
    require.Equal(t, []uint32 { 0x7C820300 }, enc.Words())
}

func TestEncoder_VINTRP(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeVINTRP(OP_v_interp_p1_f32, 1, 3, VGPR { Value: 2 }, 0)
    require.Equal(t, []uint32 { 0xD4080700 }, enc.Words())
}

func TestEncoder_EXP(t *testing.T) {
    enc := NewEncoder()
    enc.EncodeEXP(0xF, 0, false, true, true, VGPR { Value: 2 }, VGPR { Value: 3 }, VGPR { Value: 4 }, VGPR { Value: 5 })
    require.Equal(t, []uint32 { 0xC400180F, 0x05040302 }, enc.Words())
}

func TestEncoder_LabelForwardPatch(t *testing.T) {
    b := lir.NewBlock(1)
    enc := NewEncoder()

    enc.EncodeSOPP(OP_s_nop, 0)
    enc.EncodeSOPP(OP_s_nop, 0)
    enc.EncodeSOPPBranch(OP_s_nop, b)
    enc.EncodeSOPP(OP_s_nop, 0)
    enc.EncodeSOPP(OP_s_nop, 0)
    enc.StartBlock(b)

    /* displacement = target - ref - 1 */
    require.Equal(t, uint32(5 - 2 - 1), enc.Words()[2] & 0xFFFF)
}

func TestEncoder_LabelBackward(t *testing.T) {
    b := lir.NewBlock(1)
    enc := NewEncoder()

    enc.StartBlock(b)
    enc.EncodeSOPP(OP_s_nop, 0)
    enc.EncodeSOPPBranch(OP_s_nop, b)

    /* backwards, 16-bit two's complement: 0 - 1 - 1 */
    require.Equal(t, uint32(0xFFFE), enc.Words()[1] & 0xFFFF)
}
