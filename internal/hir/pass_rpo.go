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
    `sort`
)

// OrderBlocks renumbers blocks in reverse postorder: for every forward edge
// u -> v, id(u) < id(v) unless the edge is a back-edge. Blocks unreachable
// from the entry keep the sentinel id -1 and are moved behind the reachable
// ones; the pass does not mutate the CFG itself.
type OrderBlocks struct{}

func (OrderBlocks) Apply(p *Program) {
    index := 0
    blocks := p.Blocks()

    /* every block starts at the sentinel -1, only reachable ones get an id */
    for _, bb := range blocks {
        bb.SetID(-1)
    }

    /* depth-first walk from the entry, numbering on finish */
    var visit func(bb *BasicBlock)
    marked := make(map[*BasicBlock]bool, len(blocks))
    finish := make([]*BasicBlock, 0, len(blocks))

    visit = func(bb *BasicBlock) {
        if marked[bb] {
            return
        }
        marked[bb] = true
        for _, succ := range bb.Successors() {
            visit(succ)
        }
        finish = append(finish, bb)
    }
    visit(blocks[0])

    /* reverse of the finish order is the RPO numbering */
    for i := len(finish) - 1; i >= 0; i-- {
        finish[i].SetID(index)
        index++
    }

    /* reorder the block list, unreachable blocks last */
    sort.SliceStable(blocks, func(i int, j int) bool {
        a, b := blocks[i].ID(), blocks[j].ID()
        if a < 0 {
            return false
        } else if b < 0 {
            return true
        } else {
            return a < b
        }
    })
}
