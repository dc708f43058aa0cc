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
    `fmt`
)

type Kind uint8

const (
    KindVoid Kind = iota
    KindBool
    KindInt
    KindFloat
    KindVector
    KindPointer
)

func (self Kind) String() string {
    switch self {
        case KindVoid    : return "void"
        case KindBool    : return "bool"
        case KindInt     : return "int"
        case KindFloat   : return "float"
        case KindVector  : return "vector"
        case KindPointer : return "pointer"
        default          : panic("types: invalid type kind")
    }
}

type StorageKind uint8

const (
    StorageGlobal StorageKind = iota
    StorageWorkgroup
    StorageInvocation
    StorageUniform
    StorageUniformConstant
    StoragePushConstant
)

// Type identifies a structural shape. Scalar types are global singletons,
// compound types are interned per Context, so two types are structurally
// equal iff their handles are identical.
type Type interface {
    fmt.Stringer
    Kind() Kind
}

type SimpleType struct {
    kind Kind
}

func (self *SimpleType) Kind() Kind {
    return self.kind
}

func (self *SimpleType) String() string {
    return self.kind.String()
}

type ScalarType struct {
    kind  Kind
    width int
}

func (self *ScalarType) Kind() Kind {
    return self.kind
}

func (self *ScalarType) Width() int {
    return self.width
}

func (self *ScalarType) String() string {
    if self.kind == KindInt {
        return fmt.Sprintf("i%d", self.width)
    } else {
        return fmt.Sprintf("f%d", self.width)
    }
}

type VectorType struct {
    elem Type
    size int
}

func (self *VectorType) Kind() Kind {
    return KindVector
}

func (self *VectorType) Elem() Type {
    return self.elem
}

func (self *VectorType) Size() int {
    return self.size
}

func (self *VectorType) String() string {
    return fmt.Sprintf("<%d x %s>", self.size, self.elem)
}

type PointerType struct {
    pointee Type
    storage StorageKind
}

func (self *PointerType) Kind() Kind {
    return KindPointer
}

func (self *PointerType) Pointee() Type {
    return self.pointee
}

func (self *PointerType) Storage() StorageKind {
    return self.storage
}

func (self *PointerType) String() string {
    return fmt.Sprintf("*%s", self.pointee)
}

var (
    Void = &SimpleType { kind: KindVoid }
    Bool = &SimpleType { kind: KindBool }
)

var (
    Int16 = &ScalarType { kind: KindInt, width: 16 }
    Int32 = &ScalarType { kind: KindInt, width: 32 }
    Int64 = &ScalarType { kind: KindInt, width: 64 }
)

var (
    Float16 = &ScalarType { kind: KindFloat, width: 16 }
    Float32 = &ScalarType { kind: KindFloat, width: 32 }
    Float64 = &ScalarType { kind: KindFloat, width: 64 }
)

func IntType(width int) Type {
    switch width {
        case 16 : return Int16
        case 32 : return Int32
        case 64 : return Int64
        default : panic(fmt.Sprintf("types: unsupported integer width: %d", width))
    }
}

func FloatType(width int) Type {
    switch width {
        case 16 : return Float16
        case 32 : return Float32
        case 64 : return Float64
        default : panic(fmt.Sprintf("types: unsupported float width: %d", width))
    }
}

// Context interns compound types for one program. Looking up the same
// (element, size) or (pointee, storage) pair always yields the same handle.
type Context struct {
    infos []Type
}

func (self *Context) VectorOf(elem Type, size int) Type {
    for _, t := range self.infos {
        if v, ok := t.(*VectorType); ok && v.elem == elem && v.size == size {
            return v
        }
    }
    v := &VectorType { elem: elem, size: size }
    self.infos = append(self.infos, v)
    return v
}

func (self *Context) PointerTo(pointee Type, storage StorageKind) Type {
    for _, t := range self.infos {
        if p, ok := t.(*PointerType); ok && p.pointee == pointee && p.storage == storage {
            return p
        }
    }
    p := &PointerType { pointee: pointee, storage: storage }
    self.infos = append(self.infos, p)
    return p
}

func IsComposite(t Type) bool {
    return t.Kind() == KindVector
}

func CompositeCount(t Type) int {
    if v, ok := t.(*VectorType); ok {
        return v.size
    } else {
        panic("types: composite count of non-composite type " + t.String())
    }
}

func CompositeElem(t Type, i int) Type {
    if v, ok := t.(*VectorType); ok && i < v.size {
        return v.elem
    } else {
        panic("types: composite element of non-composite type " + t.String())
    }
}
