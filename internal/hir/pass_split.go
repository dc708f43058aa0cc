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

// SplitComposites rewrites vector loads, stores and shuffles into
// per-element accesses, so that every later pass only ever sees scalar
// memory operations plus explicit compositeConstruct / compositeExtract.
type SplitComposites struct{}

type _Splitter struct {
    p   *Program
    out []*Inst
}

/* extractComponent pulls element i out of def, collapsing through an
 * existing compositeConstruct instead of chaining an extract */
func (self *_Splitter) extractComponent(def Value, i int) Value {
    if p, ok := def.(*Inst); ok && p.OpCode() == OpCompositeConstruct {
        return p.Operand(i)
    }
    elem := self.p.NewInst(OpCompositeExtract, types.CompositeElem(def.Type(), i), 2)
    elem.SetOperand(0, def)
    elem.SetOperand(1, self.p.ScalarConst(types.Int32, uint64(i)))
    self.out = append(self.out, elem)
    return elem
}

func (self *_Splitter) splitLoad(p *Inst) {
    if !types.IsComposite(p.Type()) {
        self.out = append(self.out, p)
        return
    }

    /* one access chain and scalar load per element */
    n := types.CompositeCount(p.Type())
    ctor := self.p.NewInst(OpCompositeConstruct, p.Type(), n)
    storage := p.Operand(0).Type().(*types.PointerType).Storage()

    for i := 0; i < n; i++ {
        elem := types.CompositeElem(p.Type(), i)
        addr := self.p.NewInst(OpAccessChain, self.p.Types().PointerTo(elem, storage), 2)
        addr.SetOperand(0, p.Operand(0))
        addr.SetOperand(1, self.p.ScalarConst(types.Int32, uint64(i)))
        self.out = append(self.out, addr)

        load := self.p.NewInst(OpLoad, elem, 1)
        load.SetOperand(0, addr)
        self.out = append(self.out, load)
        ctor.SetOperand(i, load)
    }

    Replace(p, ctor)
    p.ClearOperands()
    self.out = append(self.out, ctor)
}

func (self *_Splitter) splitStore(p *Inst) {
    val := p.Operand(1)
    if !types.IsComposite(val.Type()) {
        self.out = append(self.out, p)
        return
    }

    n := types.CompositeCount(val.Type())
    ptr := p.Operand(0)
    storage := ptr.Type().(*types.PointerType).Storage()

    for i := 0; i < n; i++ {
        elem := types.CompositeElem(val.Type(), i)
        addr := self.p.NewInst(OpAccessChain, self.p.Types().PointerTo(elem, storage), 2)
        addr.SetOperand(0, ptr)
        addr.SetOperand(1, self.p.ScalarConst(types.Int32, uint64(i)))
        self.out = append(self.out, addr)

        store := self.p.NewInst(OpStore, types.Void, 2)
        store.SetOperand(0, addr)
        store.SetOperand(1, self.extractComponent(val, i))
        self.out = append(self.out, store)
    }
    p.ClearOperands()
}

func (self *_Splitter) splitShuffle(p *Inst) {
    if !types.IsComposite(p.Type()) {
        panic("split: vectorShuffle of a non-composite type")
    }

    n := types.CompositeCount(p.Type())
    na := types.CompositeCount(p.Operand(0).Type())
    ctor := self.p.NewInst(OpCompositeConstruct, p.Type(), n)

    /* element k comes from a, or from b when the index reaches past a */
    for k := 0; k < n; k++ {
        idx := int(p.Operand(2 + k).(*ScalarConstant).IntegerValue())
        src := p.Operand(0)
        if idx >= na {
            src = p.Operand(1)
            idx -= na
        }
        ctor.SetOperand(k, self.extractComponent(src, idx))
    }

    Replace(p, ctor)
    p.ClearOperands()
    self.out = append(self.out, ctor)
}

func (SplitComposites) Apply(p *Program) {
    s := _Splitter { p: p }
    for _, bb := range p.Blocks() {
        s.out = make([]*Inst, 0, len(bb.Instructions()))
        for _, insn := range bb.Instructions() {
            switch insn.OpCode() {
                case OpLoad          : s.splitLoad(insn)
                case OpStore         : s.splitStore(insn)
                case OpVectorShuffle : s.splitShuffle(insn)
                default              : s.out = append(s.out, insn)
            }
        }
        bb.SetInstructions(s.out)
    }
}
