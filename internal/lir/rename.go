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

/* SSA repair. Copy insertion leaves several definitions of one temp id;
 * this renames every definition after the first to a fresh temp along the
 * dominator tree, rewriting the uses on each path. Scalar values are
 * repaired over the linearized CFG, vector values over the logical one, so
 * the pass runs once per bank. */

type _Renamer struct {
    p       *Program
    logical bool
    defined map[TempID]bool
    stack   map[TempID][]TempID
}

func newRenamer(p *Program, logical bool) *_Renamer {
    return &_Renamer {
        p       : p,
        logical : logical,
        defined : make(map[TempID]bool),
        stack   : make(map[TempID][]TempID),
    }
}

func (self *_Renamer) inBank(id TempID) bool {
    return classMatches(self.p.TempInfo(id), self.logical)
}

func (self *_Renamer) topr(id TempID) TempID {
    if s := self.stack[id]; len(s) != 0 {
        return s[len(s) - 1]
    } else {
        return id
    }
}

func (self *_Renamer) renameuses(insn *Inst) {
    for i := range insn.Ops {
        op := &insn.Ops[i]
        if op.IsTemp() && self.inBank(op.Temp()) {
            op.SetTemp(self.topr(op.Temp()))
        }
    }
}

func (self *_Renamer) renamedefs(insn *Inst, popped *[]TempID) {
    for i := range insn.Defs {
        def := &insn.Defs[i]
        if !def.IsTemp() || !self.inBank(def.Temp()) {
            continue
        }

        id := def.Temp()
        if !self.defined[id] {
            /* the dominating definition keeps its id */
            self.defined[id] = true
            self.stack[id] = append(self.stack[id], id)
        } else {
            ti := self.p.TempInfo(id)
            fresh := self.p.NewTemp(ti.Class, ti.Size)
            self.stack[id] = append(self.stack[id], fresh)
            def.SetTemp(fresh)
        }
        *popped = append(*popped, id)
    }
}

func (self *_Renamer) renameblock(dt *_DominatorTree, bb *Block) {
    var popped []TempID

    for _, insn := range bb.Insns {
        if insn.Op != OpPhi {
            self.renameuses(insn)
        }
        self.renamedefs(insn, &popped)
    }

    /* phi operands of the successors read the value at the end of this
     * block's path */
    succs, preds := bb.LinSucc, (*Block).linPreds
    if self.logical {
        succs, preds = bb.LogicSucc, (*Block).logicPreds
    }
    for _, succ := range succs {
        index := FindBlock(preds(succ), bb)
        for _, insn := range succ.Insns {
            if insn.Op != OpPhi {
                break
            }
            op := &insn.Ops[index]
            if op.IsTemp() && self.inBank(op.Temp()) {
                op.SetTemp(self.topr(op.Temp()))
            }
        }
    }

    /* descend the dominator tree, then pop this block's definitions */
    for _, q := range dt.DominatorOf[bb.ID] {
        self.renameblock(dt, q)
    }
    for _, id := range popped {
        self.stack[id] = self.stack[id][:len(self.stack[id]) - 1]
    }
}

func (self *Block) linPreds() []*Block {
    return self.LinPred
}

func (self *Block) logicPreds() []*Block {
    return self.LogicPred
}

func fixSSA(p *Program) {
    scalarTree := buildDominatorTree(p.Blocks()[0], func(bb *Block) []*Block { return bb.LinSucc })
    newRenamer(p, false).renameblock(&scalarTree, p.Blocks()[0])

    vectorTree := buildDominatorTree(p.Blocks()[0], func(bb *Block) []*Block { return bb.LogicSucc })
    newRenamer(p, true).renameblock(&vectorTree, p.Blocks()[0])
}
