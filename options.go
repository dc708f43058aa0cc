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

// Options collects the compilation properties.
type Options struct {
    EntryPoint string
    MaxSGPRs   int
    MaxVGPRs   int
}

// Option is the property setter function for Options.
type Option func(*Options)

func defaultOptions() Options {
    return Options {
        EntryPoint : "main",
        MaxSGPRs   : 102,
        MaxVGPRs   : 256,
    }
}

// WithEntryPoint selects the entry point to compile.
//
// The default entry point is "main".
func WithEntryPoint(name string) Option {
    return func(o *Options) {
        o.EntryPoint = name
    }
}

// WithMaxSGPRs bounds the scalar register bank available to the allocator.
// There is no spilling, a program that does not fit fails to compile.
func WithMaxSGPRs(n int) Option {
    return func(o *Options) {
        o.MaxSGPRs = n
    }
}

// WithMaxVGPRs bounds the vector register bank available to the allocator.
func WithMaxVGPRs(n int) Option {
    return func(o *Options) {
        o.MaxVGPRs = n
    }
}
