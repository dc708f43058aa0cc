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
    `fmt`
    `math`

    `github.com/BNieuwenhuizen/algrad/internal/types`
)

type OpCode uint16

const (
    OpConstant OpCode = iota
    OpParameter
    OpVariable
    OpPhi
    OpRet
    OpBranch
    OpCondBranch
    OpAccessChain
    OpLoad
    OpStore
    OpCompositeConstruct
    OpCompositeExtract
    OpVectorShuffle
    OpOrderedLessThan
    OpGCNInterpolate
    OpGCNExport
)

var _OpNames = [...]string {
    OpConstant           : "constant",
    OpParameter          : "parameter",
    OpVariable           : "variable",
    OpPhi                : "phi",
    OpRet                : "ret",
    OpBranch             : "branch",
    OpCondBranch         : "condBranch",
    OpAccessChain        : "accessChain",
    OpLoad               : "load",
    OpStore              : "store",
    OpCompositeConstruct : "compositeConstruct",
    OpCompositeExtract   : "compositeExtract",
    OpVectorShuffle      : "vectorShuffle",
    OpOrderedLessThan    : "orderedLessThan",
    OpGCNInterpolate     : "gcnInterpolate",
    OpGCNExport          : "gcnExport",
}

func (self OpCode) String() string {
    if int(self) < len(_OpNames) {
        return _OpNames[self]
    } else {
        panic("hir: invalid opcode")
    }
}

type InstFlags uint16

const (
    FlagNone          InstFlags = 0
    FlagSideEffects   InstFlags = 1 << 0
    FlagControl       InstFlags = 1 << 1
    FlagAlwaysUniform InstFlags = 1 << 2
    FlagAlwaysVarying InstFlags = 1 << 3
    FlagVarying       InstFlags = 1 << 4
)

var defaultInstFlags = [...]InstFlags {
    OpConstant           : FlagNone,
    OpParameter          : FlagNone,
    OpVariable           : FlagNone,
    OpPhi                : FlagNone,
    OpRet                : FlagControl,
    OpBranch             : FlagControl,
    OpCondBranch         : FlagControl,
    OpAccessChain        : FlagNone,
    OpLoad               : FlagNone,
    OpStore              : FlagSideEffects,
    OpCompositeConstruct : FlagNone,
    OpCompositeExtract   : FlagNone,
    OpVectorShuffle      : FlagNone,
    OpOrderedLessThan    : FlagNone,
    OpGCNInterpolate     : FlagNone,
    OpGCNExport          : FlagSideEffects,
}

// Value is any SSA value: an instruction, a parameter, a variable or a
// scalar constant. The concrete type is recovered with a type assertion.
type Value interface {
    OpCode() OpCode
    ID() int
    Type() types.Type
    base() *Def
}

// Def carries the identity of a value and its use set. A Use cell belongs to
// exactly one consumer instruction; the producer side is kept coherent by
// SetOperand and never mutated directly.
type Def struct {
    op   OpCode
    id   int
    typ  types.Type
    uses []*Use
}

func (self *Def) OpCode() OpCode {
    return self.op
}

func (self *Def) ID() int {
    return self.id
}

func (self *Def) Type() types.Type {
    return self.typ
}

func (self *Def) base() *Def {
    return self
}

// Uses returns the current use cells of this value. The returned slice is
// owned by the value, callers must not retain it across mutations.
func (self *Def) Uses() []*Use {
    return self.uses
}

func (self *Def) UseCount() int {
    return len(self.uses)
}

func (self *Def) attachUse(u *Use) {
    self.uses = append(self.uses, u)
}

func (self *Def) detachUse(u *Use) {
    for i, v := range self.uses {
        if v == u {
            self.uses = append(self.uses[:i], self.uses[i + 1:]...)
            return
        }
    }
    panic("hir: detach of unattached use")
}

// Use links one operand slot of a consumer instruction to its producer.
type Use struct {
    consumer *Inst
    producer Value
}

func (self *Use) Consumer() *Inst {
    return self.consumer
}

func (self *Use) Producer() Value {
    return self.producer
}

// ScalarConstant is a value with an inline 64-bit payload, interned by the
// program per (type, bit-pattern).
type ScalarConstant struct {
    Def
    bits uint64
}

func (self *ScalarConstant) IntegerValue() uint64 {
    return self.bits
}

func (self *ScalarConstant) FloatValue() float64 {
    return math.Float64frombits(self.bits)
}

type Inst struct {
    Def
    flags    InstFlags
    operands []*Use
}

func (self *Inst) Flags() InstFlags {
    return self.flags
}

func (self *Inst) SetFlags(flags InstFlags) {
    self.flags = flags
}

func (self *Inst) HasFlag(flag InstFlags) bool {
    return self.flags & flag != 0
}

func (self *Inst) OperandCount() int {
    return len(self.operands)
}

func (self *Inst) Operand(i int) Value {
    return self.operands[i].producer
}

// SetOperand rewires operand slot i to the given producer, keeping both use
// sets coherent. Operand arrays are never exposed for direct mutation.
func (self *Inst) SetOperand(i int, v Value) {
    u := self.operands[i]
    if u.producer != nil {
        u.producer.base().detachUse(u)
    }
    u.producer = v
    if v != nil {
        v.base().attachUse(u)
    }
}

func (self *Inst) EraseOperand(i int) {
    u := self.operands[i]
    if u.producer != nil {
        u.producer.base().detachUse(u)
    }
    self.operands = append(self.operands[:i], self.operands[i + 1:]...)
}

// ClearOperands detaches every operand. A value must be cleared before it is
// dropped from its block, otherwise stale use cells keep its operands alive.
func (self *Inst) ClearOperands() {
    for _, u := range self.operands {
        if u.producer != nil {
            u.producer.base().detachUse(u)
            u.producer = nil
        }
    }
}

// Replace redirects every use of old to the replacement value.
func Replace(old Value, repl Value) {
    d := old.base()
    for len(d.uses) != 0 {
        u := d.uses[len(d.uses) - 1]
        d.uses = d.uses[:len(d.uses) - 1]
        u.producer = repl
        repl.base().attachUse(u)
    }
}

func (self *Inst) String() string {
    s := ""
    if self.typ != types.Void {
        s = fmt.Sprintf("%%%d = ", self.id)
    }
    s += self.op.String()
    for i := 0; i < len(self.operands); i++ {
        op := self.operands[i].producer
        if c, ok := op.(*ScalarConstant); ok && c.Type().Kind() == types.KindInt {
            s += fmt.Sprintf(" %d", c.IntegerValue())
        } else if op != nil {
            s += fmt.Sprintf(" %%%d", op.ID())
        } else {
            s += " <nil>"
        }
    }
    return s
}
