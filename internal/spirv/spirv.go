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

// Package spirv reads SPIR-V 1.x binary modules and builds the compiler's
// high-level IR for one entry point.
package spirv

// MagicNumber is the first word of every SPIR-V module.
const MagicNumber = 0x07230203

const (
    WordCountShift = 16
    OpCodeMask     = 0xFFFF
)

type Op uint32

const (
    OpSourceContinued     Op = 2
    OpSource              Op = 3
    OpSourceExtension     Op = 4
    OpName                Op = 5
    OpMemberName          Op = 6
    OpString              Op = 7
    OpExtension           Op = 10
    OpExtInstImport       Op = 11
    OpMemoryModel         Op = 14
    OpEntryPoint          Op = 15
    OpExecutionMode       Op = 16
    OpCapability          Op = 17
    OpTypeVoid            Op = 19
    OpTypeBool            Op = 20
    OpTypeInt             Op = 21
    OpTypeFloat           Op = 22
    OpTypeVector          Op = 23
    OpTypePointer         Op = 32
    OpTypeFunction        Op = 33
    OpConstantTrue        Op = 41
    OpConstantFalse       Op = 42
    OpConstant            Op = 43
    OpConstantComposite   Op = 44
    OpConstantSampler     Op = 45
    OpConstantNull        Op = 46
    OpFunction            Op = 54
    OpFunctionEnd         Op = 56
    OpVariable            Op = 59
    OpLoad                Op = 61
    OpStore               Op = 62
    OpAccessChain         Op = 65
    OpDecorate            Op = 71
    OpMemberDecorate      Op = 72
    OpDecorationGroup     Op = 73
    OpGroupDecorate       Op = 74
    OpGroupMemberDecorate Op = 75
    OpVectorShuffle       Op = 79
    OpFOrdLessThan        Op = 184
    OpLoopMerge           Op = 246
    OpSelectionMerge      Op = 247
    OpLabel               Op = 248
    OpBranch              Op = 249
    OpBranchConditional   Op = 250
    OpReturn              Op = 253
    OpReturnValue         Op = 254
)

type Capability uint32

const (
    CapabilityMatrix Capability = 0
    CapabilityShader Capability = 1
)

type ExecutionModel uint32

const (
    ExecutionModelVertex    ExecutionModel = 0
    ExecutionModelFragment  ExecutionModel = 4
    ExecutionModelGLCompute ExecutionModel = 5
)

type StorageClass uint32

const (
    StorageClassUniformConstant StorageClass = 0
    StorageClassInput           StorageClass = 1
    StorageClassUniform         StorageClass = 2
    StorageClassOutput          StorageClass = 3
    StorageClassWorkgroup       StorageClass = 4
    StorageClassPrivate         StorageClass = 6
    StorageClassFunction        StorageClass = 7
    StorageClassPushConstant    StorageClass = 9
)
