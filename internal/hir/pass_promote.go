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

// PromoteVariables first splits aggregate variables into one variable per
// element where every access uses a constant first index, then folds every
// memory-only variable into SSA values, inserting phi nodes at join points.
// Blocks are expected to be in RPO when this pass runs.
type PromoteVariables struct{}

/* splittable: every use is an accessChain(v, c, ...) with a constant first
 * index; anything else pins the aggregate in memory */
func splittable(v *Inst) bool {
    for _, u := range v.Uses() {
        c := u.Consumer()
        if c.OpCode() != OpAccessChain || c.Operand(0) != Value(v) {
            return false
        }
        if c.OperandCount() < 2 {
            return false
        }
        if _, ok := c.Operand(1).(*ScalarConstant); !ok {
            return false
        }
    }
    return true
}

func splitVariables(p *Program) {
    oldVars := p.Variables()
    newVars := make([]*Inst, 0, len(oldVars))
    elemVars := make(map[*Inst][]*Inst)

    for _, v := range oldVars {
        if !splittable(v) {
            newVars = append(newVars, v)
            continue
        }

        /* one fresh scalar variable per composite element */
        typ := v.Type().(*types.PointerType).Pointee()
        n := types.CompositeCount(typ)
        elems := make([]*Inst, n)

        for i := 0; i < n; i++ {
            ptr := p.Types().PointerTo(types.CompositeElem(typ, i), types.StorageInvocation)
            elems[i] = p.NewInst(OpVariable, ptr, 0)
            newVars = append(newVars, elems[i])
        }
        elemVars[v] = elems
    }

    /* rewrite each access chain to address the element variable directly */
    for _, bb := range p.Blocks() {
        out := make([]*Inst, 0, len(bb.Instructions()))
        for _, insn := range bb.Instructions() {
            if insn.OpCode() != OpAccessChain {
                out = append(out, insn)
                continue
            }
            base, ok := insn.Operand(0).(*Inst)
            if !ok {
                out = append(out, insn)
                continue
            }
            elems, ok := elemVars[base]
            if !ok {
                out = append(out, insn)
                continue
            }
            idx := int(insn.Operand(1).(*ScalarConstant).IntegerValue())
            if insn.OperandCount() == 2 {
                Replace(insn, elems[idx])
                insn.ClearOperands()
            } else {
                insn.SetOperand(0, elems[idx])
                insn.EraseOperand(1)
                out = append(out, insn)
            }
        }
        bb.SetInstructions(out)
    }
    p.SetVariables(newVars)
}

/* promotable: after splitting, the only operations on the variable are
 * loads and stores through it as the address */
func promotable(v *Inst) bool {
    for _, u := range v.Uses() {
        c := u.Consumer()
        switch c.OpCode() {
            case OpLoad:
                /* address position only */
            case OpStore:
                if c.Operand(0) != Value(v) {
                    return false
                }
            default:
                return false
        }
    }
    return true
}

func (PromoteVariables) Apply(p *Program) {
    splitVariables(p)

    /* collect the promotable variables in program order */
    vars := make([]*Inst, 0, len(p.Variables()))
    for _, v := range p.Variables() {
        if promotable(v) {
            vars = append(vars, v)
        }
    }
    if len(vars) == 0 {
        return
    }

    /* per-block value-out maps, and the phi nodes created per (block, var) */
    valueOut := make(map[*BasicBlock]map[*Inst]Value)
    phis := make(map[*BasicBlock]map[*Inst]*Inst)

    for _, bb := range p.Blocks() {
        current := make(map[*Inst]Value, len(vars))

        /* seed from the single predecessor, or make one phi per variable
         * at the join */
        if preds := bb.Predecessors(); len(preds) == 1 {
            for v, val := range valueOut[preds[0]] {
                current[v] = val
            }
        } else if len(preds) > 1 {
            phis[bb] = make(map[*Inst]*Inst, len(vars))
            for i := len(vars) - 1; i >= 0; i-- {
                v := vars[i]
                elem := v.Type().(*types.PointerType).Pointee()
                phi := p.NewInst(OpPhi, elem, len(preds))
                bb.InsertFront(phi)
                phis[bb][v] = phi
                current[v] = phi
            }
        }

        out := make([]*Inst, 0, len(bb.Instructions()))
        for _, insn := range bb.Instructions() {
            switch insn.OpCode() {
                case OpStore:
                    if v, ok := insn.Operand(0).(*Inst); ok && v.OpCode() == OpVariable && promotableIn(vars, v) {
                        current[v] = insn.Operand(1)
                        insn.ClearOperands()
                        continue
                    }
                case OpLoad:
                    if v, ok := insn.Operand(0).(*Inst); ok && v.OpCode() == OpVariable && promotableIn(vars, v) {
                        val := current[v]
                        if val == nil {
                            panic("promote: load of an uninitialized variable")
                        }
                        Replace(insn, val)
                        insn.ClearOperands()
                        continue
                    }
            }
            out = append(out, insn)
        }
        bb.SetInstructions(out)
        valueOut[bb] = current
    }

    /* second traversal fills the phi operands, matching operand position to
     * predecessor position exactly */
    for _, bb := range p.Blocks() {
        for _, succ := range bb.Successors() {
            if len(succ.Predecessors()) <= 1 {
                continue
            }
            idx := succ.PredecessorIndex(bb)
            for _, v := range vars {
                phi := phis[succ][v]
                if phi == nil {
                    continue
                }
                val := valueOut[bb][v]
                if val == nil {
                    panic("promote: variable has no value on an incoming edge")
                }
                phi.SetOperand(idx, val)
            }
        }
    }

    /* drop the promoted variables, they have no uses left */
    left := make([]*Inst, 0, len(p.Variables()))
    for _, v := range p.Variables() {
        if v.UseCount() != 0 || !promotableIn(vars, v) {
            left = append(left, v)
        }
    }
    p.SetVariables(left)
}

func promotableIn(vars []*Inst, v *Inst) bool {
    for _, w := range vars {
        if w == v {
            return true
        }
    }
    return false
}
