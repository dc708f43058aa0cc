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
    `testing`

    `github.com/BNieuwenhuizen/algrad/internal/types`
    `github.com/stretchr/testify/require`
)

func newScalarVar(p *Program) *Inst {
    return p.InsertVariable(p.NewInst(OpVariable, p.Types().PointerTo(types.Float32, types.StorageInvocation), 0))
}

func countPhis(p *Program) int {
    n := 0
    for _, bb := range p.Blocks() {
        for _, insn := range bb.Instructions() {
            if insn.OpCode() == OpPhi {
                n++
            }
        }
    }
    return n
}

func TestPromote_SingleBlock(t *testing.T) {
    p := NewProgram(Fragment)
    bb := p.InsertBack(p.NewBasicBlock())
    v := newScalarVar(p)
    c := p.FloatConst(types.Float32, 2.5)

    store := bb.InsertBack(p.NewInst(OpStore, types.Void, 2))
    store.SetOperand(0, v)
    store.SetOperand(1, c)

    load := bb.InsertBack(p.NewInst(OpLoad, types.Float32, 1))
    load.SetOperand(0, v)

    ret := bb.InsertBack(p.NewInst(OpRet, types.Void, 1))
    ret.SetOperand(0, load)

    PromoteVariables{}.Apply(p)

    require.Empty(t, p.Variables())
    require.Equal(t, 0, countPhis(p))
    require.Same(t, Value(c), ret.Operand(0))
    require.Len(t, bb.Instructions(), 1)
}

func TestPromote_DiamondJoinGetsPhi(t *testing.T) {
    p := NewProgram(Fragment)
    a := p.InsertBack(p.NewBasicBlock())
    b := p.InsertBack(p.NewBasicBlock())
    c := p.InsertBack(p.NewBasicBlock())
    d := p.InsertBack(p.NewBasicBlock())
    link(a, b, c)
    link(b, d)
    link(c, d)

    v := newScalarVar(p)
    c1 := p.FloatConst(types.Float32, 1)
    c2 := p.FloatConst(types.Float32, 2)

    storeTo := func(bb *BasicBlock, val Value) {
        s := bb.InsertBack(p.NewInst(OpStore, types.Void, 2))
        s.SetOperand(0, v)
        s.SetOperand(1, val)
    }
    storeTo(a, c1)
    storeTo(b, c2)

    load := d.InsertBack(p.NewInst(OpLoad, types.Float32, 1))
    load.SetOperand(0, v)
    ret := d.InsertBack(p.NewInst(OpRet, types.Void, 1))
    ret.SetOperand(0, load)

    terminate(p, a)
    terminate(p, b)
    terminate(p, c)

    OrderBlocks{}.Apply(p)
    PromoteVariables{}.Apply(p)

    require.Empty(t, p.Variables())
    require.Equal(t, 1, countPhis(p))

    phi, ok := ret.Operand(0).(*Inst)
    require.True(t, ok)
    require.Equal(t, OpPhi, phi.OpCode())
    require.Equal(t, len(d.Predecessors()), phi.OperandCount())

    /* operand positions match predecessor positions exactly */
    for i, pred := range d.Predecessors() {
        if pred == b {
            require.Same(t, Value(c2), phi.Operand(i))
        } else {
            require.Same(t, Value(c1), phi.Operand(i))
        }
    }
}

func TestPromote_SplitsAggregate(t *testing.T) {
    p := NewProgram(Fragment)
    bb := p.InsertBack(p.NewBasicBlock())
    v4 := p.Types().VectorOf(types.Float32, 4)
    v := p.InsertVariable(p.NewInst(OpVariable, p.Types().PointerTo(v4, types.StorageInvocation), 0))

    loads := make([]*Inst, 4)
    for i := 0; i < 4; i++ {
        addr := bb.InsertBack(p.NewInst(OpAccessChain, p.Types().PointerTo(types.Float32, types.StorageInvocation), 2))
        addr.SetOperand(0, v)
        addr.SetOperand(1, p.ScalarConst(types.Int32, uint64(i)))

        store := bb.InsertBack(p.NewInst(OpStore, types.Void, 2))
        store.SetOperand(0, addr)
        store.SetOperand(1, p.FloatConst(types.Float32, float64(i)))
    }
    for i := 0; i < 4; i++ {
        addr := bb.InsertBack(p.NewInst(OpAccessChain, p.Types().PointerTo(types.Float32, types.StorageInvocation), 2))
        addr.SetOperand(0, v)
        addr.SetOperand(1, p.ScalarConst(types.Int32, uint64(i)))

        loads[i] = bb.InsertBack(p.NewInst(OpLoad, types.Float32, 1))
        loads[i].SetOperand(0, addr)
    }
    ret := bb.InsertBack(p.NewInst(OpRet, types.Void, 4))
    for i, l := range loads {
        ret.SetOperand(i, l)
    }

    PromoteVariables{}.Apply(p)

    require.Empty(t, p.Variables())
    for i := 0; i < 4; i++ {
        require.Same(t, Value(p.FloatConst(types.Float32, float64(i))), ret.Operand(i))
    }
}

func TestPromote_DynamicIndexSurvives(t *testing.T) {
    p := NewProgram(Fragment)
    bb := p.InsertBack(p.NewBasicBlock())
    v4 := p.Types().VectorOf(types.Float32, 4)
    v := p.InsertVariable(p.NewInst(OpVariable, p.Types().PointerTo(v4, types.StorageInvocation), 0))

    idxVar := p.InsertVariable(p.NewInst(OpVariable, p.Types().PointerTo(types.Int32, types.StorageInvocation), 0))
    init := bb.InsertBack(p.NewInst(OpStore, types.Void, 2))
    init.SetOperand(0, idxVar)
    init.SetOperand(1, p.ScalarConst(types.Int32, 2))

    idx := bb.InsertBack(p.NewInst(OpLoad, types.Int32, 1))
    idx.SetOperand(0, idxVar)

    addr := bb.InsertBack(p.NewInst(OpAccessChain, p.Types().PointerTo(types.Float32, types.StorageInvocation), 2))
    addr.SetOperand(0, v)
    addr.SetOperand(1, idx)

    load := bb.InsertBack(p.NewInst(OpLoad, types.Float32, 1))
    load.SetOperand(0, addr)
    ret := bb.InsertBack(p.NewInst(OpRet, types.Void, 1))
    ret.SetOperand(0, load)

    PromoteVariables{}.Apply(p)

    /* the aggregate is pinned by the dynamic access chain */
    require.Contains(t, p.Variables(), v)
    require.Same(t, Value(load), ret.Operand(0))
}
