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

// RegLimits bounds the two register banks. There is no spilling: a program
// that does not fit is rejected with a fatal diagnostic.
type RegLimits struct {
    MaxSGPRs int
    MaxVGPRs int
}

// DefaultRegLimits matches the allocatable GCN register file: s0-s101 plus
// the full 256-entry vector bank.
var DefaultRegLimits = RegLimits {
    MaxSGPRs: 102,
    MaxVGPRs: 256,
}

// AllocateRegisters runs the allocation pipeline over an LIR program in
// SSA: parallel-copy insertion at fixed-register constraints, SSA repair,
// liveness with kill bits, greedy two-bank coloring, and phi destruction.
// Afterwards every temp argument is pinned to a physical register slot.
func AllocateRegisters(p *Program, limits RegLimits) {
    insertCopies(p)
    fixSSA(p)
    liveIn := ComputeLiveness(p)
    colorRegisters(p, limits, liveIn)
    destroyPhis(p)
}
