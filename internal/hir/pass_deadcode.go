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

// DeadCodeElim is a reverse mark-sweep: roots are the side-effecting and
// control instructions, the mark closure follows operand edges, the sweep
// drops everything unmarked from blocks, variables and parameters.
type DeadCodeElim struct{}

func (DeadCodeElim) Apply(p *Program) {
    s := lane.NewStack()
    used := make([]bool, p.DefCount())

    /* seed the roots */
    for _, bb := range p.Blocks() {
        for _, insn := range bb.Instructions() {
            if insn.HasFlag(FlagSideEffects | FlagControl) {
                s.Push(Value(insn))
            }
        }
    }

    /* mark closure over the operand edges */
    for !s.Empty() {
        v := s.Pop().(Value)
        if used[v.ID()] {
            continue
        }
        used[v.ID()] = true

        if insn, ok := v.(*Inst); ok {
            for i := 0; i < insn.OperandCount(); i++ {
                if op := insn.Operand(i); op != nil && !used[op.ID()] {
                    s.Push(op)
                }
            }
        }
    }

    /* sweep the block bodies */
    for _, bb := range p.Blocks() {
        out := make([]*Inst, 0, len(bb.Instructions()))
        for _, insn := range bb.Instructions() {
            if used[insn.ID()] {
                out = append(out, insn)
            } else {
                insn.ClearOperands()
            }
        }
        bb.SetInstructions(out)
    }

    /* sweep variables and parameters */
    vars := make([]*Inst, 0, len(p.Variables()))
    for _, v := range p.Variables() {
        if used[v.ID()] {
            vars = append(vars, v)
        }
    }
    p.SetVariables(vars)

    params := make([]*Inst, 0, len(p.Params()))
    for _, v := range p.Params() {
        if used[v.ID()] {
            params = append(params, v)
        }
    }
    p.SetParams(params)
}
