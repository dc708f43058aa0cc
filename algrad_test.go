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

package algrad

import (
    `math`
    `testing`

    `github.com/BNieuwenhuizen/algrad/internal/spirv`
    `github.com/stretchr/testify/require`
)

type _ModuleBuilder struct {
    words []uint32
}

func newModule(bound uint32) *_ModuleBuilder {
    return &_ModuleBuilder {
        words: []uint32 { spirv.MagicNumber, 0x00010000, 0, bound, 0 },
    }
}

func (self *_ModuleBuilder) ins(op spirv.Op, args ...uint32) *_ModuleBuilder {
    self.words = append(self.words, uint32(len(args) + 1) << 16 | uint32(op))
    self.words = append(self.words, args...)
    return self
}

func strWords(s string) []uint32 {
    buf := append([]byte(s), 0)
    for len(buf) % 4 != 0 {
        buf = append(buf, 0)
    }
    words := make([]uint32, len(buf) / 4)
    for i := range words {
        words[i] = uint32(buf[i * 4]) | uint32(buf[i * 4 + 1]) << 8 | uint32(buf[i * 4 + 2]) << 16 | uint32(buf[i * 4 + 3]) << 24
    }
    return words
}

func (self *_ModuleBuilder) entryPoint(model uint32, fn uint32, name string, iface ...uint32) *_ModuleBuilder {
    args := append([]uint32 { model, fn }, strWords(name)...)
    return self.ins(spirv.OpEntryPoint, append(args, iface...)...)
}

const (
    _EndPgm   = 0xBF810000
    _ExpWord0 = 0xC400180F
)

/* two-attribute pass-through: in vec4 a; out vec4 o; o = a */
func passthroughModule() *_ModuleBuilder {
    m := newModule(12)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 9, "main", 7, 8)
    m.ins(spirv.OpExecutionMode, 9, 7)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 4)
    m.ins(spirv.OpTypePointer, 5, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassOutput), 4)
    m.ins(spirv.OpVariable, 5, 7, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 6, 8, uint32(spirv.StorageClassOutput))

    m.ins(spirv.OpFunction, 1, 9, 0, 2)
    m.ins(spirv.OpLabel, 10)
    m.ins(spirv.OpLoad, 4, 11, 7)
    m.ins(spirv.OpStore, 8, 11)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)
    return m
}

func TestCompile_Passthrough(t *testing.T) {
    words, err := CompileWords(passthroughModule().words)
    require.NoError(t, err)

    /* 4 interpolation pairs, 1 exp pair, 1 s_endpgm */
    require.Len(t, words, 11)
    require.Equal(t, uint32(0xD4080000), words[0])
    require.Equal(t, uint32(0xD4090001), words[1])
    require.Equal(t, uint32(_ExpWord0), words[8])
    require.Equal(t, uint32(_EndPgm), words[10])

    /* the export reads four distinct vector registers */
    seen := map[uint32]bool{}
    for i := 0; i < 4; i++ {
        v := (words[9] >> (8 * i)) & 0xFF
        require.False(t, seen[v])
        seen[v] = true
    }
}

func TestCompile_Deterministic(t *testing.T) {
    a, err := CompileWords(passthroughModule().words)
    require.NoError(t, err)
    b, err := CompileWords(passthroughModule().words)
    require.NoError(t, err)
    require.Equal(t, a, b)
}

/* identity-style fragment: in vec2 fc; out vec4 o; o = (fc.x, fc.y, 0, 1) */
func TestCompile_ConstantChannels(t *testing.T) {
    m := newModule(32)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 19, "main", 8, 9)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 2)
    m.ins(spirv.OpTypeVector, 5, 3, 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 7, uint32(spirv.StorageClassOutput), 5)
    m.ins(spirv.OpVariable, 6, 8, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 7, 9, uint32(spirv.StorageClassOutput))
    m.ins(spirv.OpTypeInt, 10, 32, 1)
    m.ins(spirv.OpConstant, 10, 11, 0)
    m.ins(spirv.OpConstant, 10, 12, 1)
    m.ins(spirv.OpConstant, 10, 13, 2)
    m.ins(spirv.OpConstant, 10, 14, 3)
    m.ins(spirv.OpConstant, 3, 15, 0)
    m.ins(spirv.OpConstant, 3, 16, math.Float32bits(1))
    m.ins(spirv.OpTypePointer, 17, uint32(spirv.StorageClassInput), 3)
    m.ins(spirv.OpTypePointer, 18, uint32(spirv.StorageClassOutput), 3)

    m.ins(spirv.OpFunction, 1, 19, 0, 2)
    m.ins(spirv.OpLabel, 20)
    m.ins(spirv.OpAccessChain, 17, 21, 8, 11)
    m.ins(spirv.OpLoad, 3, 22, 21)
    m.ins(spirv.OpAccessChain, 18, 23, 9, 11)
    m.ins(spirv.OpStore, 23, 22)
    m.ins(spirv.OpAccessChain, 17, 24, 8, 12)
    m.ins(spirv.OpLoad, 3, 25, 24)
    m.ins(spirv.OpAccessChain, 18, 26, 9, 12)
    m.ins(spirv.OpStore, 26, 25)
    m.ins(spirv.OpAccessChain, 18, 27, 9, 13)
    m.ins(spirv.OpStore, 27, 15)
    m.ins(spirv.OpAccessChain, 18, 28, 9, 14)
    m.ins(spirv.OpStore, 28, 16)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)

    words, err := CompileWords(m.words)
    require.NoError(t, err)

    /* 2 interpolation pairs, 2 two-word literal moves, 1 exp pair and the
     * final s_endpgm */
    require.Len(t, words, 11)
    require.Contains(t, words, uint32(0))
    require.Contains(t, words, uint32(0x3F800000))
    require.Equal(t, uint32(_ExpWord0), words[len(words) - 3])
    require.Equal(t, uint32(_EndPgm), words[len(words) - 1])
}

/* o = shuffle(a, b, 0, 5, 2, 7): splitting eliminates the shuffle and dead
 * code drops the unused attribute channels */
func TestCompile_Shuffle(t *testing.T) {
    m := newModule(16)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 10, "main", 7, 8, 9)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 4)
    m.ins(spirv.OpTypePointer, 5, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassOutput), 4)
    m.ins(spirv.OpVariable, 5, 7, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 5, 8, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 6, 9, uint32(spirv.StorageClassOutput))

    m.ins(spirv.OpFunction, 1, 10, 0, 2)
    m.ins(spirv.OpLabel, 11)
    m.ins(spirv.OpLoad, 4, 12, 7)
    m.ins(spirv.OpLoad, 4, 13, 8)
    m.ins(spirv.OpVectorShuffle, 4, 14, 12, 13, 0, 5, 2, 7)
    m.ins(spirv.OpStore, 9, 14)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)

    words, err := CompileWords(m.words)
    require.NoError(t, err)

    /* only the four selected channels survive to interpolation */
    require.Len(t, words, 11)
    require.Equal(t, uint32(_ExpWord0), words[8])
    require.Equal(t, uint32(_EndPgm), words[10])
}

/* conditional export: the compare lands in exec, masks thread the arms and
 * the join folds its phi into parallel copies */
func conditionalModule() *_ModuleBuilder {
    m := newModule(40)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 20, "main", 7, 8, 9)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 4)
    m.ins(spirv.OpTypePointer, 5, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassOutput), 4)
    m.ins(spirv.OpVariable, 5, 7, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 5, 8, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 6, 9, uint32(spirv.StorageClassOutput))
    m.ins(spirv.OpTypeInt, 10, 32, 1)
    m.ins(spirv.OpConstant, 10, 11, 0)
    m.ins(spirv.OpTypePointer, 12, uint32(spirv.StorageClassInput), 3)
    m.ins(spirv.OpTypeBool, 13)

    m.ins(spirv.OpFunction, 1, 20, 0, 2)
    m.ins(spirv.OpLabel, 21)
    m.ins(spirv.OpAccessChain, 12, 22, 7, 11)
    m.ins(spirv.OpLoad, 3, 23, 22)
    m.ins(spirv.OpAccessChain, 12, 24, 8, 11)
    m.ins(spirv.OpLoad, 3, 25, 24)
    m.ins(spirv.OpFOrdLessThan, 13, 26, 23, 25)
    m.ins(spirv.OpSelectionMerge, 29, 0)
    m.ins(spirv.OpBranchConditional, 26, 27, 28)
    m.ins(spirv.OpLabel, 27)
    m.ins(spirv.OpLoad, 4, 30, 7)
    m.ins(spirv.OpStore, 9, 30)
    m.ins(spirv.OpBranch, 29)
    m.ins(spirv.OpLabel, 28)
    m.ins(spirv.OpLoad, 4, 31, 8)
    m.ins(spirv.OpStore, 9, 31)
    m.ins(spirv.OpBranch, 29)
    m.ins(spirv.OpLabel, 29)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)
    return m
}

func TestCompile_ConditionalExport(t *testing.T) {
    words, err := CompileWords(conditionalModule().words)
    require.NoError(t, err)

    isVOPC := func(w uint32) bool { return w >> 25 == 0x3E && (w >> 17) & 0xFF == 0x41 }
    isSOP2 := func(w uint32, op uint32) bool { return w >> 30 == 2 && (w >> 23) & 0x7F == op }

    var cmps, ands, andn2s, exps int
    for i := 0; i < len(words); i++ {
        w := words[i]
        switch {
            case isVOPC(w):
                cmps++
            case isSOP2(w, 13):
                ands++
            case isSOP2(w, 19):
                andn2s++
            case w >> 26 == 0b110001:
                exps++
                i++
        }
    }

    require.Equal(t, 1, cmps)
    require.Equal(t, 1, ands)
    require.Equal(t, 1, andn2s)
    require.Equal(t, 1, exps)
    require.Equal(t, uint32(_EndPgm), words[len(words) - 1])
}

/* a dynamically indexed aggregate survives promotion; without spilling the
 * backend rejects the leftover memory accesses */
func TestCompile_UnpromotableIsFatal(t *testing.T) {
    m := newModule(32)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 20, "main", 7, 8, 9)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 4)
    m.ins(spirv.OpTypePointer, 5, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassOutput), 4)
    m.ins(spirv.OpVariable, 5, 7, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 5, 8, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 6, 9, uint32(spirv.StorageClassOutput))
    m.ins(spirv.OpTypeInt, 10, 32, 1)
    m.ins(spirv.OpConstant, 10, 11, 0)
    m.ins(spirv.OpTypePointer, 12, uint32(spirv.StorageClassInput), 3)
    m.ins(spirv.OpTypePointer, 13, uint32(spirv.StorageClassOutput), 3)
    m.ins(spirv.OpConstant, 10, 14, 1)
    m.ins(spirv.OpConstant, 10, 15, 2)
    m.ins(spirv.OpConstant, 10, 16, 3)

    m.ins(spirv.OpFunction, 1, 20, 0, 2)
    m.ins(spirv.OpLabel, 21)
    m.ins(spirv.OpAccessChain, 12, 22, 8, 11)
    m.ins(spirv.OpLoad, 3, 23, 22)

    /* non-constant index pins the variable in memory */
    m.ins(spirv.OpAccessChain, 12, 24, 7, 23)
    m.ins(spirv.OpLoad, 3, 25, 24)

    /* every output channel is written, so promotion itself succeeds */
    m.ins(spirv.OpAccessChain, 13, 26, 9, 11)
    m.ins(spirv.OpStore, 26, 25)
    m.ins(spirv.OpAccessChain, 13, 27, 9, 14)
    m.ins(spirv.OpStore, 27, 25)
    m.ins(spirv.OpAccessChain, 13, 28, 9, 15)
    m.ins(spirv.OpStore, 28, 25)
    m.ins(spirv.OpAccessChain, 13, 29, 9, 16)
    m.ins(spirv.OpStore, 29, 25)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)

    require.Panics(t, func() { CompileWords(m.words) })
}

/* a side-effect-free arm empties out, the conditional itself survives */
func TestCompile_DeadBranch(t *testing.T) {
    m := newModule(40)
    m.ins(spirv.OpCapability, uint32(spirv.CapabilityShader))
    m.ins(spirv.OpMemoryModel, 0, 1)
    m.entryPoint(uint32(spirv.ExecutionModelFragment), 20, "main", 7, 8, 9)

    m.ins(spirv.OpTypeVoid, 1)
    m.ins(spirv.OpTypeFunction, 2, 1)
    m.ins(spirv.OpTypeFloat, 3, 32)
    m.ins(spirv.OpTypeVector, 4, 3, 4)
    m.ins(spirv.OpTypePointer, 5, uint32(spirv.StorageClassInput), 4)
    m.ins(spirv.OpTypePointer, 6, uint32(spirv.StorageClassOutput), 4)
    m.ins(spirv.OpVariable, 5, 7, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 5, 8, uint32(spirv.StorageClassInput))
    m.ins(spirv.OpVariable, 6, 9, uint32(spirv.StorageClassOutput))
    m.ins(spirv.OpTypeInt, 10, 32, 1)
    m.ins(spirv.OpConstant, 10, 11, 0)
    m.ins(spirv.OpTypePointer, 12, uint32(spirv.StorageClassInput), 3)
    m.ins(spirv.OpTypeBool, 13)

    m.ins(spirv.OpFunction, 1, 20, 0, 2)
    m.ins(spirv.OpLabel, 21)
    m.ins(spirv.OpLoad, 4, 22, 7)
    m.ins(spirv.OpStore, 9, 22)
    m.ins(spirv.OpAccessChain, 12, 23, 7, 11)
    m.ins(spirv.OpLoad, 3, 24, 23)
    m.ins(spirv.OpAccessChain, 12, 25, 8, 11)
    m.ins(spirv.OpLoad, 3, 26, 25)
    m.ins(spirv.OpFOrdLessThan, 13, 27, 24, 26)
    m.ins(spirv.OpSelectionMerge, 30, 0)
    m.ins(spirv.OpBranchConditional, 27, 28, 29)
    m.ins(spirv.OpLabel, 28)

    /* pure and unused, dead after the sweep */
    m.ins(spirv.OpLoad, 4, 31, 8)
    m.ins(spirv.OpBranch, 30)
    m.ins(spirv.OpLabel, 29)
    m.ins(spirv.OpBranch, 30)
    m.ins(spirv.OpLabel, 30)
    m.ins(spirv.OpReturn)
    m.ins(spirv.OpFunctionEnd)

    words, err := CompileWords(m.words)
    require.NoError(t, err)
    require.Equal(t, uint32(_EndPgm), words[len(words) - 1])
}

func TestCompile_Errors(t *testing.T) {
    /* truncated module */
    _, err := CompileWords([]uint32 { spirv.MagicNumber, 0, 0 })
    require.Error(t, err)
    require.IsType(t, &SyntaxError{}, err)

    /* bad magic */
    _, err = CompileWords([]uint32 { 0x12345678, 0, 0, 8, 0 })
    require.Error(t, err)

    /* missing entry point */
    m := passthroughModule()
    _, err = CompileWords(m.words, WithEntryPoint("not_main"))
    require.Error(t, err)
    require.IsType(t, &UnsupportedError{}, err)

    /* capability other than Shader */
    m2 := newModule(8)
    m2.ins(spirv.OpCapability, 5)
    _, err = CompileWords(m2.words)
    require.Error(t, err)

    /* odd byte length */
    _, err = Compile([]byte { 1, 2, 3 })
    require.Error(t, err)
}

func TestMarshalWords(t *testing.T) {
    buf := MarshalWords([]uint32 { 0x11223344, 0xAABBCCDD })
    require.Equal(t, []byte { 0x44, 0x33, 0x22, 0x11, 0xDD, 0xCC, 0xBB, 0xAA }, buf)
}
