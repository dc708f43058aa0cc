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

func TestDCE_DeadArm(t *testing.T) {
    p := NewProgram(Fragment)
    a := p.InsertBack(p.NewBasicBlock())
    b := p.InsertBack(p.NewBasicBlock())
    c := p.InsertBack(p.NewBasicBlock())
    link(a, b, c)
    link(b, c)

    p0 := p.AppendParam(p.NewInst(OpParameter, types.Float32, 0))
    p1 := p.AppendParam(p.NewInst(OpParameter, types.Float32, 0))
    v := newScalarVar(p)

    /* the condition feeds a control instruction, it stays */
    cond := a.InsertBack(p.NewInst(OpOrderedLessThan, types.Bool, 2))
    cond.SetOperand(0, p0)
    cond.SetOperand(1, p.FloatConst(types.Float32, 0))
    br := a.InsertBack(p.NewInst(OpCondBranch, types.Void, 1))
    br.SetOperand(0, cond)

    /* a side-effect-free chain in the taken arm */
    v2 := p.Types().VectorOf(types.Float32, 2)
    dead1 := b.InsertBack(p.NewInst(OpCompositeConstruct, v2, 2))
    dead1.SetOperand(0, p0)
    dead1.SetOperand(1, p1)
    dead2 := b.InsertBack(p.NewInst(OpCompositeExtract, types.Float32, 2))
    dead2.SetOperand(0, dead1)
    dead2.SetOperand(1, p.ScalarConst(types.Int32, 0))
    b.InsertBack(p.NewInst(OpBranch, types.Void, 0))

    store := c.InsertBack(p.NewInst(OpStore, types.Void, 2))
    store.SetOperand(0, v)
    store.SetOperand(1, p0)
    c.InsertBack(p.NewInst(OpRet, types.Void, 0))

    DeadCodeElim{}.Apply(p)

    /* the arm is empty but for its terminator, the conditional survives */
    require.Len(t, b.Instructions(), 1)
    require.Equal(t, OpBranch, b.Instructions()[0].OpCode())
    require.Len(t, a.Instructions(), 2)
    require.Same(t, Value(cond), br.Operand(0))

    /* the unused parameter is swept, the used one stays */
    require.Equal(t, []*Inst { p0 }, p.Params())
    require.Equal(t, []*Inst { v }, p.Variables())
}

func TestDCE_EverythingReachableFromRoots(t *testing.T) {
    p := NewProgram(Fragment)
    bb := p.InsertBack(p.NewBasicBlock())
    v := newScalarVar(p)

    ctor := bb.InsertBack(p.NewInst(OpCompositeConstruct, p.Types().VectorOf(types.Float32, 1), 1))
    ctor.SetOperand(0, p.FloatConst(types.Float32, 3))
    val := bb.InsertBack(p.NewInst(OpCompositeExtract, types.Float32, 2))
    val.SetOperand(0, ctor)
    val.SetOperand(1, p.ScalarConst(types.Int32, 0))

    store := bb.InsertBack(p.NewInst(OpStore, types.Void, 2))
    store.SetOperand(0, v)
    store.SetOperand(1, val)
    bb.InsertBack(p.NewInst(OpRet, types.Void, 0))

    DeadCodeElim{}.Apply(p)

    /* every remaining instruction is reachable by use-chain from a root */
    require.Len(t, bb.Instructions(), 4)
}
