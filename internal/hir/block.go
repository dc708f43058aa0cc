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

// BasicBlock owns an ordered instruction list. Successor and predecessor
// vectors are non-owning back-references, kept index-parallel with phi
// operands: operand i of a phi corresponds to predecessors[i].
type BasicBlock struct {
    id    int
    insns []*Inst
    succs []*BasicBlock
    preds []*BasicBlock
}

func (self *BasicBlock) ID() int {
    return self.id
}

func (self *BasicBlock) SetID(id int) {
    self.id = id
}

func (self *BasicBlock) Instructions() []*Inst {
    return self.insns
}

func (self *BasicBlock) SetInstructions(insns []*Inst) {
    self.insns = insns
}

func (self *BasicBlock) InsertFront(p *Inst) *Inst {
    self.insns = append([]*Inst { p }, self.insns...)
    return p
}

func (self *BasicBlock) InsertBack(p *Inst) *Inst {
    self.insns = append(self.insns, p)
    return p
}

func (self *BasicBlock) InsertBefore(pos int, p *Inst) *Inst {
    self.insns = append(self.insns, nil)
    copy(self.insns[pos + 1:], self.insns[pos:])
    self.insns[pos] = p
    return p
}

// Erase removes the instruction, detaching its operands first so no use
// edge into a live value is left dangling.
func (self *BasicBlock) Erase(p *Inst) {
    if p.UseCount() != 0 {
        panic("hir: erase of an instruction that still has uses")
    }
    p.ClearOperands()
    for i, v := range self.insns {
        if v == p {
            self.insns = append(self.insns[:i], self.insns[i + 1:]...)
            return
        }
    }
    panic("hir: erase of an instruction not in this block")
}

func (self *BasicBlock) Successors() []*BasicBlock {
    return self.succs
}

func (self *BasicBlock) Predecessors() []*BasicBlock {
    return self.preds
}

func (self *BasicBlock) AddSuccessor(bb *BasicBlock) {
    self.succs = append(self.succs, bb)
}

// InsertPredecessor appends bb if not yet present, and returns its index in
// the predecessor list either way.
func (self *BasicBlock) InsertPredecessor(bb *BasicBlock) int {
    for i, p := range self.preds {
        if p == bb {
            return i
        }
    }
    self.preds = append(self.preds, bb)
    return len(self.preds) - 1
}

// PredecessorIndex locates bb in the predecessor list. Phi operand
// positions are defined by this index.
func (self *BasicBlock) PredecessorIndex(bb *BasicBlock) int {
    for i, p := range self.preds {
        if p == bb {
            return i
        }
    }
    panic("hir: block is not a predecessor")
}
