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
    `sort`
)

/* insertCopies walks every block back-to-front and places an identity
 * parallel copy of all locally-live temps in front of each instruction
 * carrying a fixed-register definition or operand. The copies give the
 * colorer slack to satisfy the fixed registers without clobbering other
 * live values; SSA repair renames the duplicated definitions afterwards. */
func insertCopies(p *Program) {
    for _, bb := range p.Blocks() {
        out := make([]*Inst, 0, len(bb.Insns))
        live := make(_LiveSet)

        for j := len(bb.Insns) - 1; j >= 0; j-- {
            insn := bb.Insns[j]
            needMove := false

            for _, def := range insn.Defs {
                if def.IsTemp() {
                    if def.IsFixed() {
                        needMove = true
                    }
                    delete(live, def.Temp())
                }
            }
            for _, op := range insn.Ops {
                if op.IsTemp() {
                    /* the m0 marker denotes an implicit hardware operand,
                     * it never occupies an allocatable slot */
                    if op.IsFixed() && op.PhysReg() != M0 {
                        needMove = true
                    }
                    live[op.Temp()] = struct{}{}
                }
            }

            out = append(out, insn)
            if needMove && len(live) != 0 {
                ids := make([]TempID, 0, len(live))
                for id := range live {
                    ids = append(ids, id)
                }
                sort.Slice(ids, func(i int, j int) bool {
                    return ids[i] < ids[j]
                })

                copyInsn := NewInst(OpParallelCopy, len(ids), len(ids))
                for i, id := range ids {
                    copyInsn.Defs[i] = NewTemp(id)
                    copyInsn.Ops[i] = NewTemp(id)
                }
                out = append(out, copyInsn)
            }
        }

        for i, j := 0, len(out) - 1; i < j; i, j = i + 1, j - 1 {
            out[i], out[j] = out[j], out[i]
        }
        bb.Insns = out
    }
}
