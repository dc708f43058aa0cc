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
    `github.com/BNieuwenhuizen/algrad/internal/spirv`
)

// SyntaxError occures when the input module binary is malformed.
type SyntaxError = spirv.ParseError

// UnsupportedError occures when the module uses a SPIR-V feature outside
// the supported Shader subset.
type UnsupportedError = spirv.UnsupportedError
