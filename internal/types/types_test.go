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

package types

import (
    `testing`

    `github.com/stretchr/testify/require`
)

func TestContext_Interning(t *testing.T) {
    var ctx Context
    v4 := ctx.VectorOf(Float32, 4)
    require.Same(t, v4, ctx.VectorOf(Float32, 4))
    require.NotSame(t, v4, ctx.VectorOf(Float32, 3))
    require.NotSame(t, v4, ctx.VectorOf(Float16, 4))

    p := ctx.PointerTo(v4, StorageInvocation)
    require.Same(t, p, ctx.PointerTo(ctx.VectorOf(Float32, 4), StorageInvocation))
    require.NotSame(t, p, ctx.PointerTo(v4, StorageUniform))

    /* a recreated pointer-to-vector-of-float32 is the same handle */
    q := ctx.PointerTo(ctx.VectorOf(Float32, 4), StorageInvocation)
    require.Same(t, p, q)
}

func TestContext_Scalars(t *testing.T) {
    require.Same(t, IntType(32), Int32)
    require.Same(t, FloatType(64), Float64)
    require.Equal(t, 16, Float16.Width())
    require.Panics(t, func() { IntType(8) })
    require.Panics(t, func() { FloatType(80) })
}

func TestContext_CompositeQueries(t *testing.T) {
    var ctx Context
    v3 := ctx.VectorOf(Float32, 3)
    require.True(t, IsComposite(v3))
    require.False(t, IsComposite(Float32))
    require.False(t, IsComposite(ctx.PointerTo(v3, StorageInvocation)))
    require.Equal(t, 3, CompositeCount(v3))
    require.Same(t, Type(Float32), CompositeElem(v3, 2))
    require.Panics(t, func() { CompositeCount(Bool) })
}
