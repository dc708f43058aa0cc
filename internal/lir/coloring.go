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
    `fmt`
    `sort`
)

const (
    _VGPRBase = 1024
    _SlotMax  = _VGPRBase + 256 * 4
)

type _Colorer struct {
    p      *Program
    limits RegLimits
    colors []int32
    used   []bool
}

func newColorer(p *Program, limits RegLimits) *_Colorer {
    c := &_Colorer {
        p      : p,
        limits : limits,
        colors : make([]int32, p.TempCount()),
        used   : make([]bool, _SlotMax + 8),
    }
    for i := range c.colors {
        c.colors[i] = -1
    }
    return c
}

func (self *_Colorer) size(id TempID) int {
    return self.p.TempInfo(id).Size
}

func (self *_Colorer) occupy(used []bool, c int32, size int) {
    for i := int32(0); i < int32(size); i++ {
        used[c + i] = true
    }
}

func (self *_Colorer) release(c int32, size int) {
    for i := int32(0); i < int32(size); i++ {
        self.used[c + i] = false
    }
}

func (self *_Colorer) rangeFree(used []bool, c int32, size int) bool {
    for i := int32(0); i < int32(size); i++ {
        if used[c + i] {
            return false
        }
    }
    return true
}

/* lowest free aligned byte range of the bank, aligned to the temp size */
func (self *_Colorer) lowestFree(used []bool, class RegClass, size int) int32 {
    base, limit := int32(0), int32(self.limits.MaxSGPRs * 4)
    if class == VGPR {
        base, limit = _VGPRBase, _VGPRBase + int32(self.limits.MaxVGPRs * 4)
    }
    for c := base; c + int32(size) <= limit; c += int32(size) {
        if self.rangeFree(used, c, size) {
            return c
        }
    }
    panic(fmt.Sprintf("regalloc: out of %s registers", class))
}

func (self *_Colorer) colorDef(bb *Block, j int, i int) {
    insn := bb.Insns[j]
    def := &insn.Defs[i]
    if !def.IsTemp() {
        panic("regalloc: constant in a definition slot")
    }

    id := def.Temp()
    if self.colors[id] < 0 {
        c := int32(-1)
        if def.IsFixed() {
            c = int32(def.PhysReg())
        }

        /* fixed operands of the next instruction either pin this temp or
         * forbid their range */
        forbidden := make([]bool, len(self.used))
        copy(forbidden, self.used)

        if j + 1 < len(bb.Insns) {
            next := bb.Insns[j + 1]
            for _, op := range next.Ops {
                if op.IsTemp() && op.IsFixed() && op.PhysReg() != M0 {
                    if op.Temp() != id {
                        self.occupy(forbidden, int32(op.PhysReg()), self.size(op.Temp()))
                    } else {
                        c = int32(op.PhysReg())
                    }
                }
            }
        }

        /* a parallel copy prefers to keep its source color */
        if c == -1 && insn.Op == OpParallelCopy {
            if prev := insn.Ops[i]; prev.IsTemp() && prev.IsFixed() {
                pc := int32(prev.PhysReg())
                if self.rangeFree(forbidden, pc, self.size(id)) {
                    c = pc
                }
            }
        }

        if c == -1 {
            c = self.lowestFree(forbidden, self.p.TempInfo(id).Class, self.size(id))
        }
        self.occupy(self.used, c, self.size(id))
        self.colors[id] = c
    }
    def.SetFixed(PhysReg(self.colors[id]))
}

func (self *_Colorer) colorBlock(bb *Block, liveIn _LiveSet) {
    for i := range self.used {
        self.used[i] = false
    }

    /* live-in temps keep their colors from the defining blocks */
    ids := make([]TempID, 0, len(liveIn))
    for id := range liveIn {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i int, j int) bool {
        return ids[i] < ids[j]
    })
    for _, id := range ids {
        if self.colors[id] < 0 {
            panic(fmt.Sprintf("regalloc: live-in temp t%d has no color", id))
        }
        self.occupy(self.used, self.colors[id], self.size(id))
    }

    for j, insn := range bb.Insns {
        if insn.Op == OpPhi {
            /* phi operands are colored by propagation afterwards */
            self.colorDef(bb, j, 0)
            continue
        }

        for i := range insn.Ops {
            op := &insn.Ops[i]
            if !op.IsTemp() {
                continue
            }
            if self.colors[op.Temp()] < 0 {
                panic(fmt.Sprintf("regalloc: use of uncolored temp t%d", op.Temp()))
            }
            if op.Kill() {
                self.release(self.colors[op.Temp()], self.size(op.Temp()))
            }

            /* implicit m0 operands keep their marker, they are not encoded */
            if op.IsFixed() && op.PhysReg() == M0 {
                continue
            }
            op.SetFixed(PhysReg(self.colors[op.Temp()]))
        }
        for i := range insn.Defs {
            self.colorDef(bb, j, i)
        }
    }
}

func colorRegisters(p *Program, limits RegLimits, liveIn []_LiveSet) {
    c := newColorer(p, limits)
    for _, bb := range p.Blocks() {
        c.colorBlock(bb, liveIn[bb.ID])
    }

    /* propagate colors onto phi operands; destruction needs both ends of
     * every copy pinned */
    for _, bb := range p.Blocks() {
        for _, insn := range bb.Insns {
            if insn.Op != OpPhi {
                break
            }
            for i := range insn.Ops {
                op := &insn.Ops[i]
                if op.IsTemp() {
                    if c.colors[op.Temp()] < 0 {
                        panic(fmt.Sprintf("regalloc: phi operand t%d has no color", op.Temp()))
                    }
                    op.SetFixed(PhysReg(c.colors[op.Temp()]))
                }
            }
        }
    }
}
