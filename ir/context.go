package ir

import (
	"strconv"
	"strings"
)

// Context owns the uniquing tables for types, interned constants and
// metadata kinds. A Context and everything created from it is meant to be
// used by one goroutine at a time.
type Context struct {
	nextTypeID uint32

	voidTy, labelTy, metadataTy, tokenTy             *Type
	halfTy, floatTy, doubleTy                        *Type
	x86FP80Ty, fp128Ty, ppcFP128Ty, x86MMXTy         *Type
	intTypes                                         map[uint32]*Type
	pointerTypes                                     map[pointerKey]*Type
	arrayTypes, vectorTypes                          map[seqKey]*Type
	functionTypes, literalStructs                    map[string]*Type
	namedStructs                                     map[string]*Type
	structSuffix                                     uint

	ints      map[intKey]*ConstantInt
	wideInts  map[wideIntKey]*ConstantInt
	fps       map[fpKey]*ConstantFP
	undefs    map[*Type]*UndefValue
	nulls     map[*Type]*ConstantPointerNull
	zeros     map[*Type]*ConstantAggregateZero
	mdStrings map[string]*MDString
	valueMD   map[Value]*ValueAsMetadata
	mdValues  map[Metadata]*MetadataAsValue

	mdKinds     map[string]uint32
	mdKindNames []string
}

type pointerKey struct {
	elem      *Type
	addrSpace uint32
}

type seqKey struct {
	elem *Type
	n    uint64
}

// Fixed metadata kind IDs, registered in every Context.
const (
	MDKindDbg uint32 = iota
	MDKindTBAA
	MDKindProf
	MDKindFPMath
	MDKindRange
	MDKindTBAAStruct
	MDKindInvariantLoad
	MDKindAliasScope
	MDKindNoAlias
	MDKindNonTemporal
	MDKindMemParallelLoopAccess
	MDKindNonNull
	MDKindDereferenceable
	MDKindDereferenceableOrNull
)

var fixedMDKinds = []string{
	"dbg",
	"tbaa",
	"prof",
	"fpmath",
	"range",
	"tbaa.struct",
	"invariant.load",
	"alias.scope",
	"noalias",
	"nontemporal",
	"llvm.mem.parallel_loop_access",
	"nonnull",
	"dereferenceable",
	"dereferenceable_or_null",
}

// NewContext creates an empty context with the primitive types and the
// fixed metadata kinds registered.
func NewContext() *Context {
	c := &Context{
		intTypes:       make(map[uint32]*Type),
		pointerTypes:   make(map[pointerKey]*Type),
		arrayTypes:     make(map[seqKey]*Type),
		vectorTypes:    make(map[seqKey]*Type),
		functionTypes:  make(map[string]*Type),
		literalStructs: make(map[string]*Type),
		namedStructs:   make(map[string]*Type),

		ints:      make(map[intKey]*ConstantInt),
		wideInts:  make(map[wideIntKey]*ConstantInt),
		fps:       make(map[fpKey]*ConstantFP),
		undefs:    make(map[*Type]*UndefValue),
		nulls:     make(map[*Type]*ConstantPointerNull),
		zeros:     make(map[*Type]*ConstantAggregateZero),
		mdStrings: make(map[string]*MDString),
		valueMD:   make(map[Value]*ValueAsMetadata),
		mdValues:  make(map[Metadata]*MetadataAsValue),

		mdKinds: make(map[string]uint32),
	}
	c.voidTy = c.newType(VoidKind)
	c.labelTy = c.newType(LabelKind)
	c.metadataTy = c.newType(MetadataKind)
	c.tokenTy = c.newType(TokenKind)
	c.halfTy = c.newType(HalfKind)
	c.floatTy = c.newType(FloatKind)
	c.doubleTy = c.newType(DoubleKind)
	c.x86FP80Ty = c.newType(X86FP80Kind)
	c.fp128Ty = c.newType(FP128Kind)
	c.ppcFP128Ty = c.newType(PPCFP128Kind)
	c.x86MMXTy = c.newType(X86MMXKind)

	for _, name := range fixedMDKinds {
		c.MDKindID(name)
	}
	return c
}

func (c *Context) newType(kind TypeKind) *Type {
	c.nextTypeID++
	return &Type{ctx: c, id: c.nextTypeID, kind: kind}
}

// ---------------------------------------------------------------------------
// Type factories
// ---------------------------------------------------------------------------

func (c *Context) VoidType() *Type     { return c.voidTy }
func (c *Context) LabelType() *Type    { return c.labelTy }
func (c *Context) MetadataType() *Type { return c.metadataTy }
func (c *Context) TokenType() *Type    { return c.tokenTy }
func (c *Context) HalfType() *Type     { return c.halfTy }
func (c *Context) FloatType() *Type    { return c.floatTy }
func (c *Context) DoubleType() *Type   { return c.doubleTy }
func (c *Context) X86FP80Type() *Type  { return c.x86FP80Ty }
func (c *Context) FP128Type() *Type    { return c.fp128Ty }
func (c *Context) PPCFP128Type() *Type { return c.ppcFP128Ty }
func (c *Context) X86MMXType() *Type   { return c.x86MMXTy }

// IntType returns the integer type of the given width.
func (c *Context) IntType(bits uint32) *Type {
	if t, ok := c.intTypes[bits]; ok {
		return t
	}
	t := c.newType(IntegerKind)
	t.bits = bits
	c.intTypes[bits] = t
	return t
}

// Int1Type is shorthand for IntType(1).
func (c *Context) Int1Type() *Type { return c.IntType(1) }

// PointerType returns the pointer to elem in the given address space.
func (c *Context) PointerType(elem *Type, addrSpace uint32) *Type {
	key := pointerKey{elem, addrSpace}
	if t, ok := c.pointerTypes[key]; ok {
		return t
	}
	t := c.newType(PointerKind)
	t.contained = []*Type{elem}
	t.addrSpace = addrSpace
	c.pointerTypes[key] = t
	return t
}

// ArrayType returns [n x elem].
func (c *Context) ArrayType(elem *Type, n uint64) *Type {
	key := seqKey{elem, n}
	if t, ok := c.arrayTypes[key]; ok {
		return t
	}
	t := c.newType(ArrayKind)
	t.contained = []*Type{elem}
	t.numElems = n
	c.arrayTypes[key] = t
	return t
}

// VectorType returns <n x elem>.
func (c *Context) VectorType(elem *Type, n uint64) *Type {
	key := seqKey{elem, n}
	if t, ok := c.vectorTypes[key]; ok {
		return t
	}
	t := c.newType(VectorKind)
	t.contained = []*Type{elem}
	t.numElems = n
	c.vectorTypes[key] = t
	return t
}

func typeListKey(prefix string, types []*Type) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, t := range types {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(t.id), 10))
	}
	return b.String()
}

// FunctionType returns the function type with the given signature.
func (c *Context) FunctionType(ret *Type, params []*Type, varArg bool) *Type {
	prefix := "f"
	if varArg {
		prefix = "v"
	}
	key := typeListKey(prefix, append([]*Type{ret}, params...))
	if t, ok := c.functionTypes[key]; ok {
		return t
	}
	t := c.newType(FunctionKind)
	t.contained = append([]*Type{ret}, params...)
	t.varArg = varArg
	c.functionTypes[key] = t
	return t
}

// StructType returns the literal struct with the given fields.
func (c *Context) StructType(fields []*Type, packed bool) *Type {
	prefix := "s"
	if packed {
		prefix = "p"
	}
	key := typeListKey(prefix, fields)
	if t, ok := c.literalStructs[key]; ok {
		return t
	}
	t := c.newType(StructKind)
	t.contained = append([]*Type(nil), fields...)
	t.packed = packed
	t.isLiteral = true
	t.hasBody = true
	c.literalStructs[key] = t
	return t
}

// NewStructType creates an opaque identified struct. A name that is already
// taken gets a numeric suffix.
func (c *Context) NewStructType(name string) *Type {
	t := c.newType(StructKind)
	c.NameStruct(t, name)
	return t
}

// NameStruct renames the identified struct t, suffixing name if it is taken
// by another struct. An empty name leaves t unnamed.
func (c *Context) NameStruct(t *Type, name string) {
	if t.kind != StructKind || t.isLiteral {
		panic("ir: NameStruct on " + t.String())
	}
	if t.name == name {
		return
	}
	if t.name != "" {
		delete(c.namedStructs, t.name)
	}
	t.name = ""
	if name == "" {
		return
	}
	unique := name
	for {
		if _, taken := c.namedStructs[unique]; !taken {
			break
		}
		c.structSuffix++
		unique = name + "." + strconv.FormatUint(uint64(c.structSuffix), 10)
	}
	t.name = unique
	c.namedStructs[unique] = t
}

// StructTypeByName looks up an identified struct.
func (c *Context) StructTypeByName(name string) *Type {
	return c.namedStructs[name]
}

// ---------------------------------------------------------------------------
// Metadata kinds
// ---------------------------------------------------------------------------

// MDKindID returns the ID registered for a metadata kind name, registering
// it if needed.
func (c *Context) MDKindID(name string) uint32 {
	if id, ok := c.mdKinds[name]; ok {
		return id
	}
	id := uint32(len(c.mdKindNames))
	c.mdKinds[name] = id
	c.mdKindNames = append(c.mdKindNames, name)
	return id
}

// MDKindName returns the name of a registered kind, or "".
func (c *Context) MDKindName(id uint32) string {
	if int(id) < len(c.mdKindNames) {
		return c.mdKindNames[id]
	}
	return ""
}

// MDKindNames returns every registered kind name, indexed by ID.
func (c *Context) MDKindNames() []string {
	return append([]string(nil), c.mdKindNames...)
}
