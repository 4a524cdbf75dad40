package ir

import (
	"strconv"
	"strings"
)

// TypeKind identifies the shape of a Type.
type TypeKind uint8

const (
	VoidKind TypeKind = iota
	HalfKind
	FloatKind
	DoubleKind
	X86FP80Kind
	FP128Kind
	PPCFP128Kind
	LabelKind
	MetadataKind
	X86MMXKind
	TokenKind
	IntegerKind
	FunctionKind
	StructKind
	ArrayKind
	PointerKind
	VectorKind
)

var typeKindNames = [...]string{
	VoidKind:     "void",
	HalfKind:     "half",
	FloatKind:    "float",
	DoubleKind:   "double",
	X86FP80Kind:  "x86_fp80",
	FP128Kind:    "fp128",
	PPCFP128Kind: "ppc_fp128",
	LabelKind:    "label",
	MetadataKind: "metadata",
	X86MMXKind:   "x86_mmx",
	TokenKind:    "token",
	IntegerKind:  "integer",
	FunctionKind: "function",
	StructKind:   "struct",
	ArrayKind:    "array",
	PointerKind:  "pointer",
	VectorKind:   "vector",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Type is a uniqued type descriptor owned by a Context. Two types are the
// same type exactly when they are the same pointer.
type Type struct {
	ctx  *Context
	id   uint32
	kind TypeKind

	// bits is the width of an integer type.
	bits uint32

	// contained holds the element type of pointers, arrays and vectors, the
	// fields of a struct, or the return type followed by the parameters of
	// a function.
	contained []*Type
	numElems  uint64
	addrSpace uint32

	varArg bool
	packed bool

	// Identified structs only.
	name      string
	hasBody   bool
	isLiteral bool
}

func (t *Type) Context() *Context { return t.ctx }
func (t *Type) Kind() TypeKind    { return t.kind }

func (t *Type) IsVoid() bool     { return t.kind == VoidKind }
func (t *Type) IsLabel() bool    { return t.kind == LabelKind }
func (t *Type) IsMetadata() bool { return t.kind == MetadataKind }
func (t *Type) IsToken() bool    { return t.kind == TokenKind }
func (t *Type) IsInteger() bool  { return t.kind == IntegerKind }
func (t *Type) IsFunction() bool { return t.kind == FunctionKind }
func (t *Type) IsStruct() bool   { return t.kind == StructKind }
func (t *Type) IsArray() bool    { return t.kind == ArrayKind }
func (t *Type) IsPointer() bool  { return t.kind == PointerKind }
func (t *Type) IsVector() bool   { return t.kind == VectorKind }

// IsIntegerN reports whether t is the integer type of width n.
func (t *Type) IsIntegerN(n uint32) bool {
	return t.kind == IntegerKind && t.bits == n
}

// IsFloatingPoint is true for half, float, double and the extended types.
func (t *Type) IsFloatingPoint() bool {
	switch t.kind {
	case HalfKind, FloatKind, DoubleKind, X86FP80Kind, FP128Kind, PPCFP128Kind:
		return true
	}
	return false
}

// IsFPOrFPVector is true for floating point types and vectors of them.
func (t *Type) IsFPOrFPVector() bool {
	return t.ScalarType().IsFloatingPoint()
}

// IsIntOrIntVector is true for integer types and vectors of them.
func (t *Type) IsIntOrIntVector() bool {
	return t.ScalarType().IsInteger()
}

// IsAggregate is true for structs and arrays.
func (t *Type) IsAggregate() bool {
	return t.kind == StructKind || t.kind == ArrayKind
}

// IsFirstClass is true for every type an instruction can produce or
// consume: everything but void and function types.
func (t *Type) IsFirstClass() bool {
	return t.kind != FunctionKind && t.kind != VoidKind
}

// IsSized reports whether values of t have a size in memory.
func (t *Type) IsSized() bool {
	switch t.kind {
	case IntegerKind, PointerKind, X86MMXKind:
		return true
	case ArrayKind, VectorKind:
		return t.contained[0].IsSized()
	case StructKind:
		if !t.hasBody {
			return false
		}
		for _, f := range t.contained {
			if !f.IsSized() {
				return false
			}
		}
		return true
	}
	return t.IsFloatingPoint()
}

// ScalarType returns the element type of a vector, or t itself.
func (t *Type) ScalarType() *Type {
	if t.kind == VectorKind {
		return t.contained[0]
	}
	return t
}

// IntBitWidth returns the width of an integer type, or zero.
func (t *Type) IntBitWidth() uint32 {
	return t.bits
}

// PrimitiveSizeInBits returns the size of scalar and vector types; zero for
// everything else.
func (t *Type) PrimitiveSizeInBits() uint64 {
	switch t.kind {
	case HalfKind:
		return 16
	case FloatKind:
		return 32
	case DoubleKind, X86MMXKind:
		return 64
	case X86FP80Kind:
		return 80
	case FP128Kind, PPCFP128Kind:
		return 128
	case IntegerKind:
		return uint64(t.bits)
	case VectorKind:
		return t.numElems * t.contained[0].PrimitiveSizeInBits()
	}
	return 0
}

// ElementType returns the element type of a pointer, array or vector.
func (t *Type) ElementType() *Type {
	switch t.kind {
	case PointerKind, ArrayKind, VectorKind:
		return t.contained[0]
	}
	return nil
}

// AddressSpace returns the address space of a pointer type.
func (t *Type) AddressSpace() uint32 { return t.addrSpace }

// NumElements returns the length of an array or vector type.
func (t *Type) NumElements() uint64 { return t.numElems }

// ReturnType returns the result type of a function type.
func (t *Type) ReturnType() *Type {
	if t.kind != FunctionKind {
		return nil
	}
	return t.contained[0]
}

// Params returns the parameter types of a function type.
func (t *Type) Params() []*Type {
	if t.kind != FunctionKind {
		return nil
	}
	return t.contained[1:]
}

func (t *Type) NumParams() int        { return len(t.Params()) }
func (t *Type) ParamType(i int) *Type { return t.contained[i+1] }
func (t *Type) IsVarArg() bool        { return t.varArg }

// Fields returns the element types of a struct.
func (t *Type) Fields() []*Type {
	if t.kind != StructKind {
		return nil
	}
	return t.contained
}

func (t *Type) NumFields() int        { return len(t.Fields()) }
func (t *Type) FieldType(i int) *Type { return t.contained[i] }
func (t *Type) IsPacked() bool        { return t.packed }

// StructName returns the name of an identified struct, or "".
func (t *Type) StructName() string { return t.name }

// IsLiteral is true for structs uniqued by structure rather than by name.
func (t *Type) IsLiteral() bool { return t.isLiteral }

// IsOpaque is true for identified structs whose body has not been set.
func (t *Type) IsOpaque() bool { return t.kind == StructKind && !t.hasBody }

// SetBody fills in the fields of an identified struct.
func (t *Type) SetBody(fields []*Type, packed bool) {
	if t.kind != StructKind || t.isLiteral {
		panic("ir: SetBody on a type that is not an identified struct")
	}
	t.contained = append([]*Type(nil), fields...)
	t.packed = packed
	t.hasBody = true
}

// TypeAtIndex returns the type of the element selected by idx in an
// aggregate or vector, as used by extractvalue and GEP.
func (t *Type) TypeAtIndex(idx uint64) *Type {
	switch t.kind {
	case StructKind:
		if idx >= uint64(len(t.contained)) {
			return nil
		}
		return t.contained[idx]
	case ArrayKind, VectorKind, PointerKind:
		return t.contained[0]
	}
	return nil
}

// IndexValid reports whether idx selects an element of an aggregate.
func (t *Type) IndexValid(idx uint64) bool {
	switch t.kind {
	case StructKind:
		return idx < uint64(len(t.contained))
	case ArrayKind:
		return idx < t.numElems
	}
	return false
}

func (t *Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

// StructBody renders the field list of a struct, as used in a named type
// definition.
func (t *Type) StructBody() string {
	if t.kind != StructKind {
		return ""
	}
	var b strings.Builder
	t.writeBody(&b)
	return b.String()
}

func (t *Type) write(b *strings.Builder) {
	switch t.kind {
	case IntegerKind:
		b.WriteString("i")
		b.WriteString(strconv.FormatUint(uint64(t.bits), 10))
	case PointerKind:
		t.contained[0].write(b)
		if t.addrSpace != 0 {
			b.WriteString(" addrspace(")
			b.WriteString(strconv.FormatUint(uint64(t.addrSpace), 10))
			b.WriteString(")")
		}
		b.WriteString("*")
	case ArrayKind, VectorKind:
		lb, rb := "[", "]"
		if t.kind == VectorKind {
			lb, rb = "<", ">"
		}
		b.WriteString(lb)
		b.WriteString(strconv.FormatUint(t.numElems, 10))
		b.WriteString(" x ")
		t.contained[0].write(b)
		b.WriteString(rb)
	case FunctionKind:
		t.contained[0].write(b)
		b.WriteString(" (")
		for i, p := range t.contained[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			p.write(b)
		}
		if t.varArg {
			if len(t.contained) > 1 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString(")")
	case StructKind:
		if !t.isLiteral {
			b.WriteString("%")
			if t.name == "" {
				b.WriteString(strconv.FormatUint(uint64(t.id), 10))
			} else {
				b.WriteString(t.name)
			}
			return
		}
		t.writeBody(b)
	default:
		b.WriteString(t.kind.String())
	}
}

func (t *Type) writeBody(b *strings.Builder) {
	if !t.isLiteral && !t.hasBody {
		b.WriteString("opaque")
		return
	}
	if t.packed {
		b.WriteString("<")
	}
	b.WriteString("{")
	for i, f := range t.contained {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" ")
		f.write(b)
	}
	if len(t.contained) > 0 {
		b.WriteString(" ")
	}
	b.WriteString("}")
	if t.packed {
		b.WriteString(">")
	}
}
