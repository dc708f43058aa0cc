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

// Package algrad compiles SPIR-V shader modules into AMD GCN machine code.
package algrad

import (
    `encoding/binary`
    `fmt`

    `github.com/BNieuwenhuizen/algrad/internal/gcn`
    `github.com/BNieuwenhuizen/algrad/internal/hir`
    `github.com/BNieuwenhuizen/algrad/internal/lir`
    `github.com/BNieuwenhuizen/algrad/internal/spirv`
    `github.com/bytedance/gopkg/lang/dirtmake`
)

// Compile translates a SPIR-V binary module into a GCN code-word stream
// for its entry point. The module is little-endian and must be a whole
// number of 32-bit words.
func Compile(module []byte, options ...Option) ([]uint32, error) {
    if len(module) % 4 != 0 {
        return nil, &SyntaxError { Word: 0, Reason: fmt.Sprintf("module size %d is not a multiple of 4", len(module)) }
    }
    words := make([]uint32, len(module) / 4)
    for i := range words {
        words[i] = binary.LittleEndian.Uint32(module[i * 4:])
    }
    return CompileWords(words, options...)
}

// CompileWords is Compile for a module already split into words.
func CompileWords(words []uint32, options ...Option) ([]uint32, error) {
    opts := defaultOptions()
    for _, fn := range options {
        fn(&opts)
    }

    p, err := spirv.Load(words, opts.EntryPoint)
    if err != nil {
        return nil, err
    }

    hir.ExecutePasses(p)
    lp := lir.SelectInstructions(p)
    lir.AllocateRegisters(lp, lir.RegLimits { MaxSGPRs: opts.MaxSGPRs, MaxVGPRs: opts.MaxVGPRs })
    return gcn.Emit(lp), nil
}

// MarshalWords serializes a code-word stream as raw little-endian bytes,
// the on-disk format of the compiled shader.
func MarshalWords(words []uint32) []byte {
    buf := dirtmake.Bytes(len(words) * 4, len(words) * 4)
    for i, w := range words {
        binary.LittleEndian.PutUint32(buf[i * 4:], w)
    }
    return buf
}
