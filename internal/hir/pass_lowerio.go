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
    `github.com/BNieuwenhuizen/algrad/internal/types`
)

// LowerIO rewrites the shader interface into the AMD fragment program ABI:
// scalar input parameters become interpolation instructions fed from the
// fixed (primMask, i, j) triple, and the value-carrying return becomes a
// sequence of export instructions.
type LowerIO struct{}

func (LowerIO) Apply(p *Program) {
    if p.Kind() != Fragment {
        panic("lowerio: unsupported program kind: " + p.Kind().String())
    }
    lowerInput(p)
    lowerOutput(p)
}

func lowerInput(p *Program) {
    oldParams := p.Params()

    /* the hardware hands a fragment wave the primitive mask and the two
     * barycentric coordinates; everything else is interpolated */
    primMask := p.NewInst(OpParameter, types.Int32, 0)
    baryI := p.NewInstFlags(OpParameter, types.Float32, FlagAlwaysVarying, 0)
    baryJ := p.NewInstFlags(OpParameter, types.Float32, FlagAlwaysVarying, 0)
    p.SetParams([]*Inst { primMask, baryI, baryJ })

    /* interpolate attribute k/4 channel k%4 in place of parameter k */
    interps := make([]*Inst, 0, len(oldParams))
    for k, old := range oldParams {
        ip := p.NewInst(OpGCNInterpolate, types.Float32, 5)
        ip.SetOperand(0, primMask)
        ip.SetOperand(1, baryI)
        ip.SetOperand(2, baryJ)
        ip.SetOperand(3, p.ScalarConst(types.Int32, uint64(k / 4)))
        ip.SetOperand(4, p.ScalarConst(types.Int32, uint64(k % 4)))
        Replace(old, ip)
        interps = append(interps, ip)
    }
    for i := len(interps) - 1; i >= 0; i-- {
        p.EntryBlock().InsertFront(interps[i])
    }
}

func findRetBlock(p *Program) *BasicBlock {
    for _, bb := range p.Blocks() {
        insns := bb.Instructions()
        if len(insns) == 0 {
            continue
        }
        if insns[len(insns) - 1].OpCode() == OpRet {
            return bb
        }
    }
    panic("lowerio: program has no return block")
}

func lowerOutput(p *Program) {
    bb := findRetBlock(p)
    insns := bb.Instructions()
    ret := insns[len(insns) - 1]
    bb.SetInstructions(insns[:len(insns) - 1])

    n := ret.OperandCount()
    if n == 0 {
        panic("lowerio: return carries no output components")
    }
    if n % 4 != 0 {
        panic("lowerio: output component count is not a multiple of 4")
    }

    /* one export per component group; only the last one signals done */
    for i := 0; i + 4 <= n; i += 4 {
        exp := p.NewInst(OpGCNExport, types.Void, 8)
        exp.SetOperand(0, p.ScalarConst(types.Int32, 0xF))
        exp.SetOperand(1, p.ScalarConst(types.Int32, uint64(i / 4)))
        exp.SetOperand(2, p.ScalarConst(types.Int32, 0))
        if i + 4 == n {
            exp.SetOperand(3, p.ScalarConst(types.Int32, 1))
        } else {
            exp.SetOperand(3, p.ScalarConst(types.Int32, 0))
        }
        for j := 0; j < 4; j++ {
            exp.SetOperand(4 + j, ret.Operand(i + j))
        }
        bb.InsertBack(exp)
    }

    ret.ClearOperands()
    bb.InsertBack(p.NewInst(OpRet, types.Void, 0))
}
