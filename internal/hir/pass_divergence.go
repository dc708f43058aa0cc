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
    `github.com/oleiade/lane`
)

// Divergence propagates the per-lane ("varying") property over the use
// graph until fixpoint. Seeds are the values flagged alwaysVarying and
// every phi: a value merged at a join is divergent unless proven otherwise,
// which is deliberately not attempted. Values flagged alwaysUniform stop
// the propagation.
type Divergence struct{}

func (Divergence) Apply(p *Program) {
    q := lane.NewQueue()

    mark := func(insn *Inst) {
        if !insn.HasFlag(FlagVarying) {
            insn.SetFlags(insn.Flags() | FlagVarying)
            q.Enqueue(insn)
        }
    }

    /* seed parameters and instructions */
    for _, v := range p.Params() {
        if v.HasFlag(FlagAlwaysVarying) {
            mark(v)
        }
    }
    for _, bb := range p.Blocks() {
        for _, insn := range bb.Instructions() {
            if insn.OpCode() == OpPhi || insn.HasFlag(FlagAlwaysVarying) {
                mark(insn)
            }
        }
    }

    /* worklist propagation to every consumer */
    for !q.Empty() {
        insn := q.Dequeue().(*Inst)
        for _, u := range insn.Uses() {
            if c := u.Consumer(); !c.HasFlag(FlagAlwaysUniform) {
                mark(c)
            }
        }
    }
}

// IsVarying reports the divergence result for a value; constants and
// unflagged values are wave-uniform.
func IsVarying(v Value) bool {
    if insn, ok := v.(*Inst); ok {
        return insn.HasFlag(FlagVarying)
    } else {
        return false
    }
}
