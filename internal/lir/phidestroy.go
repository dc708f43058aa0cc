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

/* destroyPhis folds the vector phis of every join into one parallel copy in
 * each predecessor, placed in front of the predecessor's terminator. Scalar
 * phis must not exist anymore at this point. */
func destroyPhis(p *Program) {
    for _, bb := range p.Blocks() {
        for _, succ := range bb.LogicSucc {
            index := FindBlock(succ.LogicPred, bb)

            var defs []Arg
            var ops []Arg
            for _, insn := range succ.Insns {
                if insn.Op != OpPhi {
                    break
                }
                if p.TempInfo(insn.Defs[0].Temp()).Class != VGPR {
                    panic("regalloc: scalar-class phi survived until phi destruction")
                }
                defs = append(defs, insn.Defs[0])
                ops = append(ops, insn.Ops[index])
            }
            if len(defs) == 0 {
                continue
            }

            copyInsn := NewInst(OpParallelCopy, len(defs), len(ops))
            copy(copyInsn.Defs, defs)
            copy(copyInsn.Ops, ops)

            /* in front of the terminator, the mask handoff comes last */
            pos := len(bb.Insns) - 1
            bb.Insns = append(bb.Insns, nil)
            copy(bb.Insns[pos + 1:], bb.Insns[pos:])
            bb.Insns[pos] = copyInsn
        }
    }

    /* strip the now-dead phi prefix */
    for _, bb := range p.Blocks() {
        i := 0
        for i < len(bb.Insns) && bb.Insns[i].Op == OpPhi {
            i++
        }
        bb.Insns = bb.Insns[i:]
    }
}
