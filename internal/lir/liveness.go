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

type _LiveSet map[TempID]struct{}

func (self _LiveSet) contains(id TempID) bool {
    _, ok := self[id]
    return ok
}

func (self _LiveSet) equals(other _LiveSet) bool {
    if len(self) != len(other) {
        return false
    }
    for id := range self {
        if !other.contains(id) {
            return false
        }
    }
    return true
}

/* vector values live on the logical CFG, scalar mask values on the
 * linearized one; each liveness variant only tracks its own bank */
func classMatches(ti TempInfo, logical bool) bool {
    if logical {
        return ti.Class == VGPR
    } else {
        return ti.Class != VGPR
    }
}

func liveOut(p *Program, liveIn []_LiveSet, bb *Block, logical bool) _LiveSet {
    ret := make(_LiveSet)
    succs := bb.LinSucc
    if logical {
        succs = bb.LogicSucc
    }

    for _, succ := range succs {
        for id := range liveIn[succ.ID] {
            ret[id] = struct{}{}
        }

        /* a phi operand is live-out only of its matching predecessor */
        preds := succ.LinPred
        if logical {
            preds = succ.LogicPred
        }
        index := FindBlock(preds, bb)

        for _, insn := range succ.Insns {
            if insn.Op != OpPhi {
                break
            }
            def := insn.Defs[0]
            if classMatches(p.TempInfo(def.Temp()), logical) && insn.Ops[index].IsTemp() {
                ret[insn.Ops[index].Temp()] = struct{}{}
            }
        }
    }
    return ret
}

func computeLiveIn(p *Program, logical bool) []_LiveSet {
    blocks := p.Blocks()
    liveIn := make([]_LiveSet, len(blocks))
    for i := range liveIn {
        liveIn[i] = make(_LiveSet)
    }

    for {
        changed := false
        for i := len(blocks) - 1; i >= 0; i-- {
            bb := blocks[i]
            live := liveOut(p, liveIn, bb, logical)

            for j := len(bb.Insns) - 1; j >= 0; j-- {
                insn := bb.Insns[j]
                for _, def := range insn.Defs {
                    if def.IsTemp() {
                        delete(live, def.Temp())
                    }
                }
                if insn.Op == OpPhi {
                    continue
                }
                for _, op := range insn.Ops {
                    if op.IsTemp() && classMatches(p.TempInfo(op.Temp()), logical) {
                        live[op.Temp()] = struct{}{}
                    }
                }
            }

            if !live.equals(liveIn[bb.ID]) {
                liveIn[bb.ID] = live
                changed = true
            }
        }
        if !changed {
            return liveIn
        }
    }
}

// ComputeLiveness runs the two liveness variants, merges them, and sets the
// kill bit on every operand that is not live past its instruction. It
// returns the merged per-block live-in sets.
func ComputeLiveness(p *Program) []_LiveSet {
    logical := computeLiveIn(p, true)
    linear := computeLiveIn(p, false)

    blocks := p.Blocks()
    liveIn := make([]_LiveSet, len(blocks))
    for i := range blocks {
        liveIn[i] = make(_LiveSet, len(logical[i]) + len(linear[i]))
        for id := range logical[i] {
            liveIn[i][id] = struct{}{}
        }
        for id := range linear[i] {
            liveIn[i][id] = struct{}{}
        }
    }

    for _, bb := range blocks {
        live := liveOut(p, logical, bb, true)
        for id := range liveOut(p, linear, bb, false) {
            live[id] = struct{}{}
        }

        for j := len(bb.Insns) - 1; j >= 0; j-- {
            insn := bb.Insns[j]
            for _, def := range insn.Defs {
                if def.IsTemp() {
                    delete(live, def.Temp())
                }
            }
            if insn.Op == OpPhi {
                continue
            }
            for i := range insn.Ops {
                op := &insn.Ops[i]
                if op.IsTemp() {
                    op.SetKill(!live.contains(op.Temp()))
                }
            }
            for _, op := range insn.Ops {
                if op.IsTemp() {
                    live[op.Temp()] = struct{}{}
                }
            }
        }
    }
    return liveIn
}
