// Package ir implements the IR object model spec.md §6 treats as an
// external collaborator: an append-only symbol table, an append-only
// section list, and per-section append-only instruction streams, reached
// only through the four-method builder contract CodeGen is written
// against. Nothing else in this repository is positioned to implement
// the format, so this package supplies a concrete in-memory Object and a
// deterministic serializer alongside the contract.
package ir

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Opcode is one of the abstract instruction opcodes of spec.md §6.
type Opcode int

const (
	OpProc Opcode = iota
	OpSym
	OpVar
	OpScopeEnter
	OpScopeLeave
	OpMov
	OpCmp
	OpBr
	OpLabel // marks a branch target's position in the instruction stream
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpInc
	OpDec
	OpIndex
	OpCall
	OpRet
	// Bitwise/shift opcodes: spec.md §6 lists its opcode set as "abstract
	// names" and the §4.3 typing table requires these operators to
	// type-check, so lowering needs an opcode for each.
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

func (op Opcode) String() string {
	names := [...]string{
		"PROC", "SYM", "VAR", "SCOPEE", "SCOPEL", "MOV", "CMP", "BR", "LABEL",
		"ADD", "SUB", "MUL", "DIV", "MOD", "NEG", "NOT", "INC", "DEC",
		"INDEX", "CALL", "RET", "AND", "OR", "XOR", "SHL", "SHR",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Type is the IR's operand/value type, the target of the surface-type
// mapping table in spec.md §4.4.
type Type int

const (
	TypeVoid Type = iota
	TypeInt8
	TypeInt32
	TypeFP32
	TypeFP64
	TypePtr
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "VOID"
	case TypeInt8:
		return "INT8"
	case TypeInt32:
		return "INT32"
	case TypeFP32:
		return "FP32"
	case TypeFP64:
		return "FP64"
	case TypePtr:
		return "PTR"
	default:
		return "?"
	}
}

// Symbol attribute bits.
const (
	AttrGlobal   uint32 = 1 << 0
	AttrFunction uint32 = 1 << 1
	AttrData     uint32 = 1 << 2
)

// Section attribute bits.
const (
	SecExecutable uint32 = 1 << 0
	SecReadable   uint32 = 1 << 1
	SecWritable   uint32 = 1 << 2
	SecInitialized uint32 = 1 << 3
)

// CPUTag is the processor tag spec.md §4.4 requires on the opening PROC
// instruction.
const CPUTag byte = 0x01

// NoSymbol is the FindSymbol sentinel for "not found".
const NoSymbol uint16 = 0xFFFF

// Symbol is one append-only symbol-table entry.
type Symbol struct {
	Name         string
	Attributes   uint32
	Value        int64
	SectionIndex uint16
	ProcessorTag byte
}

// Section is one append-only section entry plus its instruction stream.
type Section struct {
	Name            string
	NameSymbolIndex uint16
	Attributes      uint32
	Offset          uint64
	Size            uint64
	Address         uint64
	Alignment       uint32
	ProcessorTag    byte
	Instructions    []Instruction
}

// OperandKind discriminates an Operand's payload.
type OperandKind int

const (
	OperandImmediateInt OperandKind = iota
	OperandImmediateFloat
	OperandVariable
	OperandSymbolRef
	OperandParamABI
	OperandRetABI
	OperandLabelRef
)

// Operand is one instruction argument: an immediate value, a reference to
// a virtual variable, a reference to a symbol, a branch-target label, or
// an ABI-control tag (spec.md §6). ParamABI's IntVal carries the
// parameter slot index when used as a function-entry source operand.
type Operand struct {
	Kind      OperandKind
	Type      Type
	IntVal    int64
	FloatVal  float64
	VarID     uint16
	SymIndex  uint16
	LabelName string
}

func ImmInt(t Type, v int64) Operand     { return Operand{Kind: OperandImmediateInt, Type: t, IntVal: v} }
func ImmFloat(t Type, v float64) Operand { return Operand{Kind: OperandImmediateFloat, Type: t, FloatVal: v} }
func Var(id uint16, t Type) Operand      { return Operand{Kind: OperandVariable, Type: t, VarID: id} }
func SymRef(index uint16) Operand        { return Operand{Kind: OperandSymbolRef, SymIndex: index} }
func ParamABI(slot int) Operand          { return Operand{Kind: OperandParamABI, IntVal: int64(slot)} }
func RetABI() Operand                    { return Operand{Kind: OperandRetABI} }
func LabelRef(name string) Operand       { return Operand{Kind: OperandLabelRef, LabelName: name} }

// Instruction is one typed IR instruction within a section's stream.
type Instruction struct {
	Op           Opcode
	Operands     []Operand
	ProcessorTag byte
}

// Builder is the four-method contract CodeGen is written against
// (spec.md §6). Object is the only implementation in this tree.
type Builder interface {
	AddSymbol(name string, attributes uint32, value int64, sectionIndex uint16, tag byte) uint16
	FindSymbol(name string) uint16
	AddSection(nameSymbolIndex uint16, attributes uint32, offset, size, address uint64, alignment uint32, tag byte) uint16
	AppendInstruction(sectionIndex uint16, op Opcode, tag byte, operands ...Operand)
}

// Object is the concrete in-memory IR builder: an append-only symbol
// array, an append-only section array, and per-section append-only
// instruction streams (spec.md §3's "IR object").
type Object struct {
	Symbols  []Symbol
	Sections []Section

	byName  map[string]uint16
	interns map[uint64][]internedString // xxhash(content) -> bucket, for string-literal dedup
}

type internedString struct {
	content string
	index   uint16
}

// NewObject returns an empty builder.
func NewObject() *Object {
	return &Object{byName: make(map[string]uint16), interns: make(map[uint64][]internedString)}
}

// AddSymbol appends a symbol and returns its index.
func (o *Object) AddSymbol(name string, attributes uint32, value int64, sectionIndex uint16, tag byte) uint16 {
	idx := uint16(len(o.Symbols))
	o.Symbols = append(o.Symbols, Symbol{
		Name: name, Attributes: attributes, Value: value, SectionIndex: sectionIndex, ProcessorTag: tag,
	})
	o.byName[name] = idx
	return idx
}

// FindSymbol returns the index of the symbol named name, or NoSymbol.
func (o *Object) FindSymbol(name string) uint16 {
	if idx, ok := o.byName[name]; ok {
		return idx
	}
	return NoSymbol
}

// AddSection appends a section and returns its index.
func (o *Object) AddSection(nameSymbolIndex uint16, attributes uint32, offset, size, address uint64, alignment uint32, tag byte) uint16 {
	idx := uint16(len(o.Sections))
	o.Sections = append(o.Sections, Section{
		NameSymbolIndex: nameSymbolIndex, Attributes: attributes, Offset: offset, Size: size,
		Address: address, Alignment: alignment, ProcessorTag: tag,
	})
	if int(nameSymbolIndex) < len(o.Symbols) {
		o.Sections[idx].Name = o.Symbols[nameSymbolIndex].Name
	}
	return idx
}

// AppendInstruction appends an instruction to the given section's stream.
func (o *Object) AppendInstruction(sectionIndex uint16, op Opcode, tag byte, operands ...Operand) {
	sec := &o.Sections[sectionIndex]
	sec.Instructions = append(sec.Instructions, Instruction{Op: op, Operands: operands, ProcessorTag: tag})
}

// InternString interns literal content into the given data section,
// reusing an existing symbol when identical content was already
// interned (spec.md §9: "intern strings into .data"). Content is keyed
// by its xxhash digest so repeated large literals are deduplicated
// without a linear byte-for-byte scan of everything interned so far.
func (o *Object) InternString(dataSection uint16, content string) uint16 {
	h := xxhash.Sum64String(content)
	bucket := o.interns[h]
	for _, entry := range bucket {
		if entry.content == content {
			return entry.index
		}
	}
	name := fmt.Sprintf("str_%016x_%d", h, len(bucket))
	idx := o.AddSymbol(name, AttrData, int64(len(content)), dataSection, CPUTag)
	o.interns[h] = append(bucket, internedString{content: content, index: idx})
	return idx
}

// Serialize writes a deterministic binary encoding of the object: symbol
// table, section table, then each section's instruction stream, all in
// insertion order (spec.md §8 property 6 — running the compiler twice on
// the same input must produce byte-identical output, so nothing here may
// read wall-clock time, randomness, or map-iteration order).
func (o *Object) Serialize(w io.Writer) error {
	bw := &binWriter{w: w}
	bw.u32(uint32(len(o.Symbols)))
	for _, s := range o.Symbols {
		bw.str(s.Name)
		bw.u32(s.Attributes)
		bw.i64(s.Value)
		bw.u16(s.SectionIndex)
		bw.u8(s.ProcessorTag)
	}

	bw.u32(uint32(len(o.Sections)))
	for _, s := range o.Sections {
		bw.str(s.Name)
		bw.u16(s.NameSymbolIndex)
		bw.u32(s.Attributes)
		bw.u64(s.Offset)
		bw.u64(s.Size)
		bw.u64(s.Address)
		bw.u32(s.Alignment)
		bw.u8(s.ProcessorTag)
		bw.u32(uint32(len(s.Instructions)))
		for _, inst := range s.Instructions {
			bw.u8(uint8(inst.Op))
			bw.u8(inst.ProcessorTag)
			bw.u8(uint8(len(inst.Operands)))
			for _, op := range inst.Operands {
				bw.u8(uint8(op.Kind))
				bw.u8(uint8(op.Type))
				switch op.Kind {
				case OperandImmediateInt:
					bw.i64(op.IntVal)
				case OperandImmediateFloat:
					bw.f64(op.FloatVal)
				case OperandVariable:
					bw.u16(op.VarID)
				case OperandSymbolRef:
					bw.u16(op.SymIndex)
				case OperandParamABI:
					bw.i64(op.IntVal)
				case OperandLabelRef:
					bw.str(op.LabelName)
				}
			}
		}
	}
	return bw.err
}

// binWriter is a small deterministic little-endian encoder; the first
// write error is latched and every subsequent call becomes a no-op.
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) u8(v uint8)   { b.write([]byte{v}) }
func (b *binWriter) u16(v uint16) { var buf [2]byte; binary.LittleEndian.PutUint16(buf[:], v); b.write(buf[:]) }
func (b *binWriter) u32(v uint32) { var buf [4]byte; binary.LittleEndian.PutUint32(buf[:], v); b.write(buf[:]) }
func (b *binWriter) u64(v uint64) { var buf [8]byte; binary.LittleEndian.PutUint64(buf[:], v); b.write(buf[:]) }
func (b *binWriter) i64(v int64)  { b.u64(uint64(v)) }
func (b *binWriter) f64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	b.write(buf[:])
}
func (b *binWriter) str(s string) {
	b.u32(uint32(len(s)))
	b.write([]byte(s))
}
