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

type Pass interface {
    Apply(*Program)
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "Block Ordering"        , Pass: new(OrderBlocks) },
    { Name: "Composite Splitting"   , Pass: new(SplitComposites) },
    { Name: "Variable Promotion"    , Pass: new(PromoteVariables) },
    { Name: "Dead Code Elimination" , Pass: new(DeadCodeElim) },
    { Name: "I/O Lowering"          , Pass: new(LowerIO) },
    { Name: "Divergence Analysis"   , Pass: new(Divergence) },
}

// ExecutePasses runs the mid-end pipeline in its fixed order. Every pass
// mutates the program in place.
func ExecutePasses(p *Program) {
    for _, d := range Passes {
        d.Pass.Apply(p)
    }
}
