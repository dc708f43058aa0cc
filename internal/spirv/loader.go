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

package spirv

import (
    `fmt`
    `math`

    `github.com/BNieuwenhuizen/algrad/internal/hir`
    `github.com/BNieuwenhuizen/algrad/internal/types`
)

type _Tag uint8

const (
    _TagNone _Tag = iota
    _TagType
    _TagLazyVar
    _TagDef
)

type _Object struct {
    tag _Tag
    typ types.Type
    def hir.Value
    raw []uint32
}

type _FuncRange struct {
    start int
    end   int
}

type _Loader struct {
    words     []uint32
    entryName string
    entryID   uint32
    ioVars    []uint32
    program   *hir.Program
    objects   []_Object
    inputs    []hir.Value
    outputs   []hir.Value
    funcs     map[uint32]*_FuncRange
    curFunc   uint32
}

type _FuncBuilder struct {
    current *hir.BasicBlock
    start   *hir.BasicBlock
    blocks  map[uint32]*hir.BasicBlock
}

func wordCount(v uint32) int {
    return int(v >> WordCountShift)
}

func opCode(v uint32) Op {
    return Op(v & OpCodeMask)
}

func toProgramKind(model ExecutionModel) (hir.ProgramKind, error) {
    switch model {
        case ExecutionModelFragment  : return hir.Fragment, nil
        case ExecutionModelVertex    : return hir.Vertex, nil
        case ExecutionModelGLCompute : return hir.Compute, nil
        default                      : return 0, &UnsupportedError { Feature: fmt.Sprintf("execution model %d", model) }
    }
}

func toStorageKind(s StorageClass) (types.StorageKind, error) {
    switch s {
        case StorageClassFunction, StorageClassPrivate, StorageClassInput, StorageClassOutput:
            return types.StorageInvocation, nil
        default:
            return 0, &UnsupportedError { Feature: fmt.Sprintf("storage class %d", s) }
    }
}

/* literalString decodes a NUL-terminated string operand and returns the
 * index of the first operand word after it */
func literalString(insn []uint32, from int) (string, int) {
    buf := make([]byte, 0, (len(insn) - from) * 4)
    for _, w := range insn[from:] {
        buf = append(buf, byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24))
    }
    n := 0
    for n < len(buf) && buf[n] != 0 {
        n++
    }
    return string(buf[:n]), from + (n + 4) / 4
}

/* scan walks the instruction stream from pos, calling visit per
 * instruction, and stops early when visit declines one */
func (self *_Loader) scan(pos int, visit func(pos int, insn []uint32) (bool, error)) (int, error) {
    for pos < len(self.words) {
        n := wordCount(self.words[pos])
        if n == 0 {
            return 0, &ParseError { Word: pos, Reason: "instruction with zero word count" }
        }
        if pos + n > len(self.words) {
            return 0, &ParseError { Word: pos, Reason: "truncated instruction" }
        }
        ok, err := visit(pos, self.words[pos:pos + n])
        if err != nil {
            return 0, err
        }
        if !ok {
            return pos, nil
        }
        pos += n
    }
    return pos, nil
}

func (self *_Loader) object(pos int, id uint32) (*_Object, error) {
    if int(id) >= len(self.objects) {
        return nil, &ParseError { Word: pos, Reason: fmt.Sprintf("result id %d out of bounds", id) }
    }
    return &self.objects[id], nil
}

func (self *_Loader) getType(pos int, id uint32) (types.Type, error) {
    obj, err := self.object(pos, id)
    if err != nil {
        return nil, err
    }
    if obj.tag != _TagType {
        return nil, &ParseError { Word: pos, Reason: fmt.Sprintf("id %d is not a type", id) }
    }
    return obj.typ, nil
}

func (self *_Loader) getDef(pos int, id uint32) (hir.Value, error) {
    obj, err := self.object(pos, id)
    if err != nil {
        return nil, err
    }
    if obj.tag != _TagDef {
        return nil, &ParseError { Word: pos, Reason: fmt.Sprintf("id %d is not a value", id) }
    }
    return obj.def, nil
}

func (self *_Loader) visitPreamble(pos int, insn []uint32) (bool, error) {
    switch opCode(insn[0]) {
        case OpCapability:
            if Capability(insn[1]) != CapabilityShader {
                return false, &UnsupportedError { Feature: fmt.Sprintf("capability %d", insn[1]) }
            }
            return true, nil
        case OpExtension:
            return false, &UnsupportedError { Feature: "SPIR-V extensions" }
        case OpExtInstImport:
            name, _ := literalString(insn, 2)
            if name != "GLSL.std.450" {
                return false, &UnsupportedError { Feature: "extended instruction set " + name }
            }
            return true, nil
        case OpMemoryModel:
            return true, nil
        case OpEntryPoint:
            name, next := literalString(insn, 3)
            if name == self.entryName {
                if self.program != nil {
                    return false, &ParseError { Word: pos, Reason: "duplicate entry point " + name }
                }
                kind, err := toProgramKind(ExecutionModel(insn[1]))
                if err != nil {
                    return false, err
                }
                self.program = hir.NewProgram(kind)
                self.entryID = insn[2]
                self.ioVars = append(self.ioVars, insn[next:]...)
            }
            return true, nil
        case OpExecutionMode:
            return true, nil
        case OpString, OpSource, OpSourceExtension, OpSourceContinued, OpName, OpMemberName:
            /* unhandled debug instructions */
            return true, nil
        case OpDecorate, OpDecorationGroup, OpGroupDecorate, OpMemberDecorate, OpGroupMemberDecorate:
            /* decorations are not consumed yet */
            return true, nil
        default:
            return false, nil
    }
}

func (self *_Loader) visitType(pos int, insn []uint32) error {
    var typ types.Type

    id := insn[1]
    switch opCode(insn[0]) {
        case OpTypeVoid:
            typ = types.Void
        case OpTypeBool:
            typ = types.Bool
        case OpTypeInt:
            switch insn[2] {
                case 16, 32, 64 : typ = types.IntType(int(insn[2]))
                default         : return &UnsupportedError { Feature: fmt.Sprintf("%d-bit integers", insn[2]) }
            }
        case OpTypeFloat:
            switch insn[2] {
                case 16, 32, 64 : typ = types.FloatType(int(insn[2]))
                default         : return &UnsupportedError { Feature: fmt.Sprintf("%d-bit floats", insn[2]) }
            }
        case OpTypeVector:
            elem, err := self.getType(pos, insn[2])
            if err != nil {
                return err
            }
            typ = self.program.Types().VectorOf(elem, int(insn[3]))
        case OpTypePointer:
            pointee, err := self.getType(pos, insn[3])
            if err != nil {
                return err
            }
            storage, err := toStorageKind(StorageClass(insn[2]))
            if err != nil {
                return err
            }
            typ = self.program.Types().PointerTo(pointee, storage)
        case OpTypeFunction:
            /* function types carry no information the backend consumes */
            return nil
    }

    obj, err := self.object(pos, id)
    if err != nil {
        return err
    }
    if obj.tag != _TagNone {
        return &ParseError { Word: pos, Reason: fmt.Sprintf("redefinition of id %d", id) }
    }
    obj.tag = _TagType
    obj.typ = typ
    return nil
}

func (self *_Loader) insertConstant(pos int, insn []uint32) error {
    typ, err := self.getType(pos, insn[1])
    if err != nil {
        return err
    }

    k := typ.Kind()
    if k != types.KindInt && k != types.KindFloat {
        return &UnsupportedError { Feature: "non-scalar OpConstant" }
    }

    /* float payloads are widened so that one bit-pattern keying covers
     * every scalar width */
    var bits uint64
    switch typ.(*types.ScalarType).Width() {
        case 16:
            h := insn[3] & 0xFFFF
            if k != types.KindFloat {
                bits = uint64(h)
                break
            }
            e, m := int(h >> 10 & 0x1F), float64(h & 0x3FF)
            f := math.Ldexp(m + 1024, e - 25)
            if e == 0 {
                f = math.Ldexp(m, -24)
            } else if e == 31 {
                f = math.Inf(1)
                if m != 0 { f = math.NaN() }
            }
            if h & 0x8000 != 0 { f = -f }
            bits = math.Float64bits(f)
        case 32:
            if k == types.KindFloat {
                bits = math.Float64bits(float64(math.Float32frombits(insn[3])))
            } else {
                bits = uint64(insn[3])
            }
        case 64:
            if len(insn) < 5 {
                return &ParseError { Word: pos, Reason: "truncated 64-bit constant" }
            }
            bits = uint64(insn[3]) | uint64(insn[4]) << 32
    }

    obj, err := self.object(pos, insn[2])
    if err != nil {
        return err
    }
    obj.tag = _TagDef
    obj.def = self.program.ScalarConst(typ, bits)
    return nil
}

func (self *_Loader) visitGlobals(pos int, insn []uint32) (bool, error) {
    switch opCode(insn[0]) {
        case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypePointer, OpTypeFunction:
            return true, self.visitType(pos, insn)
        case OpConstant:
            return true, self.insertConstant(pos, insn)
        case OpConstantFalse, OpConstantTrue, OpConstantNull, OpConstantComposite, OpConstantSampler:
            return true, nil
        case OpVariable:
            obj, err := self.object(pos, insn[2])
            if err != nil {
                return false, err
            }
            if obj.tag != _TagNone {
                return false, &ParseError { Word: pos, Reason: fmt.Sprintf("redefinition of id %d", insn[2]) }
            }
            obj.tag = _TagLazyVar
            obj.raw = insn
            return true, nil
        default:
            return false, nil
    }
}

func (self *_Loader) previsitFunctions(pos int, insn []uint32) (bool, error) {
    switch opCode(insn[0]) {
        case OpFunction:
            self.curFunc = insn[2]
            self.funcs[self.curFunc] = &_FuncRange { start: pos }
            return true, nil
        case OpFunctionEnd:
            if r, ok := self.funcs[self.curFunc]; ok {
                r.end = pos
            }
            return true, nil
        default:
            return true, nil
    }
}

func (self *_Loader) getBlock(fb *_FuncBuilder, id uint32) *hir.BasicBlock {
    if bb, ok := fb.blocks[id]; ok {
        return bb
    }
    bb := self.program.InsertBack(self.program.NewBasicBlock())
    fb.blocks[id] = bb
    return bb
}

func (self *_Loader) createSimple(pos int, insn []uint32, fb *_FuncBuilder, op hir.OpCode) error {
    typ, err := self.getType(pos, insn[1])
    if err != nil {
        return err
    }

    p := self.program.NewInst(op, typ, len(insn) - 3)
    for i := 0; i + 3 < len(insn); i++ {
        def, err := self.getDef(pos, insn[i + 3])
        if err != nil {
            return err
        }
        p.SetOperand(i, def)
    }

    obj, err := self.object(pos, insn[2])
    if err != nil {
        return err
    }
    obj.tag = _TagDef
    obj.def = p
    fb.current.InsertBack(p)
    return nil
}

func (self *_Loader) createStore(pos int, insn []uint32, fb *_FuncBuilder) error {
    p := self.program.NewInst(hir.OpStore, types.Void, 2)
    for i := 0; i < 2; i++ {
        def, err := self.getDef(pos, insn[i + 1])
        if err != nil {
            return err
        }
        p.SetOperand(i, def)
    }
    fb.current.InsertBack(p)
    return nil
}

func (self *_Loader) createShuffle(pos int, insn []uint32, fb *_FuncBuilder) error {
    typ, err := self.getType(pos, insn[1])
    if err != nil {
        return err
    }

    p := self.program.NewInst(hir.OpVectorShuffle, typ, len(insn) - 3)
    for i := 0; i < 2; i++ {
        def, err := self.getDef(pos, insn[i + 3])
        if err != nil {
            return err
        }
        p.SetOperand(i, def)
    }
    for i := 2; i + 3 < len(insn); i++ {
        p.SetOperand(i, self.program.ScalarConst(types.Int32, uint64(insn[i + 3])))
    }

    obj, err := self.object(pos, insn[2])
    if err != nil {
        return err
    }
    obj.tag = _TagDef
    obj.def = p
    fb.current.InsertBack(p)
    return nil
}

func (self *_Loader) visitLabel(insn []uint32, fb *_FuncBuilder) {
    id := insn[1]
    if fb.current == nil {
        fb.current = fb.start
        fb.blocks[id] = fb.start
        return
    }
    fb.current = self.getBlock(fb, id)
}

func (self *_Loader) visitBranch(insn []uint32, fb *_FuncBuilder) {
    to := self.getBlock(fb, insn[1])
    fb.current.InsertBack(self.program.NewInst(hir.OpBranch, types.Void, 0))
    fb.current.AddSuccessor(to)
    to.InsertPredecessor(fb.current)
}

func (self *_Loader) visitBranchConditional(pos int, insn []uint32, fb *_FuncBuilder) error {
    cond, err := self.getDef(pos, insn[1])
    if err != nil {
        return err
    }

    t := self.getBlock(fb, insn[2])
    f := self.getBlock(fb, insn[3])

    p := self.program.NewInst(hir.OpCondBranch, types.Void, 1)
    p.SetOperand(0, cond)
    fb.current.InsertBack(p)

    fb.current.AddSuccessor(t)
    fb.current.AddSuccessor(f)
    t.InsertPredecessor(fb.current)
    f.InsertPredecessor(fb.current)
    return nil
}

func (self *_Loader) visitBody(pos int, insn []uint32, fb *_FuncBuilder) (bool, error) {
    switch opCode(insn[0]) {
        case OpFunction, OpFunctionEnd:
            return true, nil
        case OpLabel:
            self.visitLabel(insn, fb)
            return true, nil
        case OpBranchConditional:
            return true, self.visitBranchConditional(pos, insn, fb)
        case OpBranch:
            self.visitBranch(insn, fb)
            return true, nil
        case OpReturn, OpReturnValue:
            /* the epilog synthesizes the value-carrying return */
            return true, nil
        case OpAccessChain:
            return true, self.createSimple(pos, insn, fb, hir.OpAccessChain)
        case OpLoad:
            return true, self.createSimple(pos, insn, fb, hir.OpLoad)
        case OpStore:
            return true, self.createStore(pos, insn, fb)
        case OpVectorShuffle:
            return true, self.createShuffle(pos, insn, fb)
        case OpFOrdLessThan:
            return true, self.createSimple(pos, insn, fb, hir.OpOrderedLessThan)
        case OpSelectionMerge, OpLoopMerge:
            /* structured control flow hints, unused */
            return true, nil
        default:
            return false, &UnsupportedError { Feature: fmt.Sprintf("opcode %d", opCode(insn[0])) }
    }
}

func (self *_Loader) createIOVars(pos int) error {
    for _, id := range self.ioVars {
        obj, err := self.object(pos, id)
        if err != nil {
            return err
        }
        if obj.tag != _TagLazyVar {
            return &ParseError { Word: pos, Reason: fmt.Sprintf("entry point interface id %d is not a variable", id) }
        }

        typ, err := self.getType(pos, obj.raw[1])
        if err != nil {
            return err
        }
        if typ.Kind() != types.KindPointer {
            return &ParseError { Word: pos, Reason: "interface variable without a pointer type" }
        }

        v := self.program.NewInst(hir.OpVariable, typ, 0)
        obj.tag = _TagDef
        obj.def = v

        if StorageClass(obj.raw[3]) == StorageClassInput {
            self.inputs = append(self.inputs, v)
        } else {
            self.outputs = append(self.outputs, v)
        }
        self.program.InsertVariable(v)
    }
    return nil
}

/* createProlog expands every input vector into one parameter per element,
 * stored into the variable so the body reads it like any other memory */
func (self *_Loader) createProlog() (*hir.BasicBlock, error) {
    bb := self.program.InsertBack(self.program.NewBasicBlock())

    for _, vi := range self.inputs {
        typ := vi.Type().(*types.PointerType).Pointee()
        if typ.Kind() != types.KindVector {
            return nil, &UnsupportedError { Feature: "non-vector input variable" }
        }

        elem := typ.(*types.VectorType).Elem()
        for i := 0; i < typ.(*types.VectorType).Size(); i++ {
            value := self.program.AppendParam(self.program.NewInst(hir.OpParameter, elem, 0))

            addr := self.program.NewInst(hir.OpAccessChain, self.program.Types().PointerTo(elem, types.StorageInvocation), 2)
            addr.SetOperand(0, vi)
            addr.SetOperand(1, self.program.ScalarConst(types.Int32, uint64(i)))
            bb.InsertBack(addr)

            store := self.program.NewInst(hir.OpStore, types.Void, 2)
            store.SetOperand(0, addr)
            store.SetOperand(1, value)
            bb.InsertBack(store)
        }
    }
    return bb, nil
}

/* createEpilog loads every output element and hands them to the final ret */
func (self *_Loader) createEpilog(bb *hir.BasicBlock) error {
    var defs []hir.Value

    for _, vi := range self.outputs {
        typ := vi.Type().(*types.PointerType).Pointee()
        if typ.Kind() != types.KindVector {
            return &UnsupportedError { Feature: "non-vector output variable" }
        }

        elem := typ.(*types.VectorType).Elem()
        for i := 0; i < typ.(*types.VectorType).Size(); i++ {
            addr := self.program.NewInst(hir.OpAccessChain, self.program.Types().PointerTo(elem, types.StorageInvocation), 2)
            addr.SetOperand(0, vi)
            addr.SetOperand(1, self.program.ScalarConst(types.Int32, uint64(i)))
            bb.InsertBack(addr)

            load := self.program.NewInst(hir.OpLoad, elem, 1)
            load.SetOperand(0, addr)
            bb.InsertBack(load)
            defs = append(defs, load)
        }
    }

    ret := self.program.NewInst(hir.OpRet, types.Void, len(defs))
    for i, def := range defs {
        ret.SetOperand(i, def)
    }
    bb.InsertBack(ret)
    return nil
}

func (self *_Loader) visitEntryFunction() error {
    if err := self.createIOVars(0); err != nil {
        return err
    }

    start, err := self.createProlog()
    if err != nil {
        return err
    }

    loc, ok := self.funcs[self.entryID]
    if !ok || loc.end == 0 {
        return &ParseError { Word: 0, Reason: "entry point function body is missing" }
    }

    fb := &_FuncBuilder {
        start  : start,
        blocks : make(map[uint32]*hir.BasicBlock),
    }

    self.words = self.words[:loc.end]
    if _, err := self.scan(loc.start, func(pos int, insn []uint32) (bool, error) {
        return self.visitBody(pos, insn, fb)
    }); err != nil {
        return err
    }
    if fb.current == nil {
        return &ParseError { Word: loc.start, Reason: "entry point function has no blocks" }
    }
    return self.createEpilog(fb.current)
}

// Load parses a SPIR-V module and builds the HIR program of the entry
// point with the given name.
func Load(words []uint32, entryName string) (*hir.Program, error) {
    if len(words) < 5 {
        return nil, &ParseError { Word: 0, Reason: "module shorter than the header" }
    }
    if words[0] != MagicNumber {
        return nil, &ParseError { Word: 0, Reason: fmt.Sprintf("bad magic word 0x%08x", words[0]) }
    }

    self := &_Loader {
        words     : words,
        entryName : entryName,
        objects   : make([]_Object, words[3]),
        funcs     : make(map[uint32]*_FuncRange),
    }

    pos, err := self.scan(5, self.visitPreamble)
    if err != nil {
        return nil, err
    }
    if self.program == nil {
        return nil, &UnsupportedError { Feature: "module without entry point " + entryName }
    }

    if pos, err = self.scan(pos, self.visitGlobals); err != nil {
        return nil, err
    }
    if _, err = self.scan(pos, self.previsitFunctions); err != nil {
        return nil, err
    }
    if err = self.visitEntryFunction(); err != nil {
        return nil, err
    }
    return self.program, nil
}
