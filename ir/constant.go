package ir

import (
	"math"
	"math/big"

	"github.com/x448/float16"
)

// Constant is a value that is fixed before the program runs: literals,
// aggregates, constant expressions and global values.
type Constant interface {
	User
	isConstant()
}

type constantBase struct {
	userBase
}

func (*constantBase) isConstant() {}

// ---------------------------------------------------------------------------
// Interned scalars
// ---------------------------------------------------------------------------

type intKey struct {
	typ *Type
	v   uint64
}

type wideIntKey struct {
	typ *Type
	hex string
}

// ConstantInt is an integer constant. Values up to 64 bits are stored
// directly; wider ones as a non-negative big.Int reduced modulo 2^width.
type ConstantInt struct {
	constantBase
	v    uint64
	wide *big.Int
}

func truncate(v uint64, bits uint32) uint64 {
	if bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}

// ConstantInt returns the interned integer of type t holding v truncated to
// the width of t.
func (c *Context) ConstantInt(t *Type, v uint64) *ConstantInt {
	if t.bits > 64 {
		return c.ConstantBigInt(t, new(big.Int).SetUint64(v))
	}
	v = truncate(v, t.bits)
	key := intKey{t, v}
	if ci, ok := c.ints[key]; ok {
		return ci
	}
	ci := &ConstantInt{v: v}
	ci.typ = t
	c.ints[key] = ci
	return ci
}

// ConstantIntSigned is ConstantInt for a signed value.
func (c *Context) ConstantIntSigned(t *Type, v int64) *ConstantInt {
	if t.bits > 64 {
		return c.ConstantBigInt(t, big.NewInt(v))
	}
	return c.ConstantInt(t, uint64(v))
}

// ConstantBigInt returns the interned integer of type t holding v modulo
// 2^width. Negative values wrap.
func (c *Context) ConstantBigInt(t *Type, v *big.Int) *ConstantInt {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(t.bits))
	w := new(big.Int).Mod(v, mod)
	if t.bits <= 64 {
		return c.ConstantInt(t, w.Uint64())
	}
	key := wideIntKey{t, w.Text(16)}
	if ci, ok := c.wideInts[key]; ok {
		return ci
	}
	ci := &ConstantInt{v: w.Uint64(), wide: w}
	ci.typ = t
	c.wideInts[key] = ci
	return ci
}

// True returns i1 1.
func (c *Context) True() *ConstantInt { return c.ConstantInt(c.Int1Type(), 1) }

// False returns i1 0.
func (c *Context) False() *ConstantInt { return c.ConstantInt(c.Int1Type(), 0) }

func (ci *ConstantInt) BitWidth() uint32 { return ci.typ.bits }

// ZExtValue returns the low 64 bits of the value.
func (ci *ConstantInt) ZExtValue() uint64 { return ci.v }

// SExtValue returns the value sign-extended from its width. Widths above 64
// bits return the low 64 bits reinterpreted as signed.
func (ci *ConstantInt) SExtValue() int64 {
	bits := ci.typ.bits
	if bits >= 64 || bits == 0 {
		return int64(ci.v)
	}
	shift := 64 - bits
	return int64(ci.v<<shift) >> shift
}

// BigInt returns the unsigned value.
func (ci *ConstantInt) BigInt() *big.Int {
	if ci.wide != nil {
		return new(big.Int).Set(ci.wide)
	}
	return new(big.Int).SetUint64(ci.v)
}

// SignedBigInt returns the value interpreted as two's complement.
func (ci *ConstantInt) SignedBigInt() *big.Int {
	u := ci.BigInt()
	if u.Bit(int(ci.typ.bits)-1) == 1 {
		u.Sub(u, new(big.Int).Lsh(big.NewInt(1), uint(ci.typ.bits)))
	}
	return u
}

func (ci *ConstantInt) IsZero() bool {
	return ci.v == 0 && (ci.wide == nil || ci.wide.Sign() == 0)
}

func (ci *ConstantInt) IsOne() bool {
	return ci.v == 1 && (ci.wide == nil || ci.wide.BitLen() == 1)
}

type fpKey struct {
	typ    *Type
	lo, hi uint64
}

// ConstantFP is a floating point constant kept as its raw bit pattern.
// Half, float and double use the low word; the 80 and 128-bit formats use
// both, low word first.
type ConstantFP struct {
	constantBase
	lo, hi uint64
}

// ConstantFPBits returns the interned floating point constant of type t with
// the given bits.
func (c *Context) ConstantFPBits(t *Type, lo, hi uint64) *ConstantFP {
	key := fpKey{t, lo, hi}
	if fp, ok := c.fps[key]; ok {
		return fp
	}
	fp := &ConstantFP{lo: lo, hi: hi}
	fp.typ = t
	c.fps[key] = fp
	return fp
}

// ConstantFloat returns a half, float or double constant holding f, rounded
// to the precision of t.
func (c *Context) ConstantFloat(t *Type, f float64) *ConstantFP {
	switch t.kind {
	case HalfKind:
		return c.ConstantFPBits(t, uint64(float16.Fromfloat32(float32(f)).Bits()), 0)
	case FloatKind:
		return c.ConstantFPBits(t, uint64(math.Float32bits(float32(f))), 0)
	}
	return c.ConstantFPBits(t, math.Float64bits(f), 0)
}

// Bits returns the raw words of the constant, low word first.
func (fp *ConstantFP) Bits() (lo, hi uint64) { return fp.lo, fp.hi }

// Float64 converts the constant to a float64, rounding the wider formats.
func (fp *ConstantFP) Float64() float64 {
	switch fp.typ.kind {
	case HalfKind:
		return float64(float16.Frombits(uint16(fp.lo)).Float32())
	case FloatKind:
		return float64(math.Float32frombits(uint32(fp.lo)))
	case DoubleKind:
		return math.Float64frombits(fp.lo)
	case X86FP80Kind:
		sign := fp.hi & 0x8000
		exp := int(fp.hi & 0x7fff)
		v := math.Ldexp(float64(fp.lo), exp-16383-63)
		if exp == 0x7fff {
			v = math.Inf(1)
			if fp.lo<<1 != 0 {
				v = math.NaN()
			}
		}
		if sign != 0 {
			v = -v
		}
		return v
	case FP128Kind:
		sign := fp.hi >> 63
		exp := int(fp.hi >> 48 & 0x7fff)
		mant := float64(fp.hi&(1<<48-1))*math.Exp2(64) + float64(fp.lo)
		var v float64
		switch exp {
		case 0:
			v = math.Ldexp(mant, -16382-112)
		case 0x7fff:
			v = math.Inf(1)
			if mant != 0 {
				v = math.NaN()
			}
		default:
			v = math.Ldexp(1+mant*math.Exp2(-112), exp-16383)
		}
		if sign != 0 {
			v = -v
		}
		return v
	case PPCFP128Kind:
		return math.Float64frombits(fp.lo) + math.Float64frombits(fp.hi)
	}
	return math.NaN()
}

func (fp *ConstantFP) IsZero() bool {
	return fp.Float64() == 0 && !math.Signbit(fp.Float64())
}

// UndefValue is the undefined value of a type.
type UndefValue struct {
	constantBase
}

// Undef returns the interned undef of type t.
func (c *Context) Undef(t *Type) *UndefValue {
	if u, ok := c.undefs[t]; ok {
		return u
	}
	u := &UndefValue{}
	u.typ = t
	c.undefs[t] = u
	return u
}

// ConstantPointerNull is the null pointer of a pointer type.
type ConstantPointerNull struct {
	constantBase
}

// NullPointer returns the interned null of pointer type t.
func (c *Context) NullPointer(t *Type) *ConstantPointerNull {
	if n, ok := c.nulls[t]; ok {
		return n
	}
	n := &ConstantPointerNull{}
	n.typ = t
	c.nulls[t] = n
	return n
}

// ConstantAggregateZero is the all-zeros value of an aggregate or vector.
type ConstantAggregateZero struct {
	constantBase
}

// AggregateZero returns the interned zeroinitializer of type t.
func (c *Context) AggregateZero(t *Type) *ConstantAggregateZero {
	if z, ok := c.zeros[t]; ok {
		return z
	}
	z := &ConstantAggregateZero{}
	z.typ = t
	c.zeros[t] = z
	return z
}

// NullValue returns the zero value of t: integer or FP zero, a null pointer
// or a zeroinitializer. It returns nil for types without one.
func (c *Context) NullValue(t *Type) Constant {
	switch {
	case t.IsInteger():
		return c.ConstantInt(t, 0)
	case t.IsFloatingPoint():
		return c.ConstantFPBits(t, 0, 0)
	case t.IsPointer():
		return c.NullPointer(t)
	case t.IsStruct(), t.IsArray(), t.IsVector():
		return c.AggregateZero(t)
	}
	return nil
}

// IsNullValue reports whether c is the zero value of its type.
func IsNullValue(c Constant) bool {
	switch c := c.(type) {
	case *ConstantInt:
		return c.IsZero()
	case *ConstantFP:
		return c.IsZero()
	case *ConstantPointerNull, *ConstantAggregateZero:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Aggregates and data
// ---------------------------------------------------------------------------

// ConstantAggregate is a constant array, struct or vector whose elements are
// operands.
type ConstantAggregate struct {
	constantBase
}

// NewConstantAggregate builds an aggregate of type t from elems.
func NewConstantAggregate(t *Type, elems []Constant) *ConstantAggregate {
	a := &ConstantAggregate{}
	a.typ = t
	vals := make([]Value, len(elems))
	for i, e := range elems {
		vals[i] = e
	}
	a.initOperands(a, vals...)
	return a
}

// Element returns element i.
func (a *ConstantAggregate) Element(i int) Constant {
	c, _ := a.Operand(i).(Constant)
	return c
}

// ConstantData is a constant array or vector of simple integer or floating
// point elements stored without per-element values. Floating point elements
// are kept as their bit patterns.
type ConstantData struct {
	constantBase
	elems []uint64
}

// NewConstantData builds an array or vector constant of type t.
func NewConstantData(t *Type, elems []uint64) *ConstantData {
	d := &ConstantData{elems: append([]uint64(nil), elems...)}
	d.typ = t
	return d
}

func (d *ConstantData) NumElements() int           { return len(d.elems) }
func (d *ConstantData) ElementType() *Type         { return d.typ.ElementType() }
func (d *ConstantData) ElementAsUint(i int) uint64 { return d.elems[i] }
func (d *ConstantData) Elements() []uint64         { return d.elems }

// IsString is true for arrays of i8.
func (d *ConstantData) IsString() bool {
	return d.typ.IsArray() && d.typ.ElementType().IsIntegerN(8)
}

// IsCString is true for i8 arrays whose only NUL is the last element.
func (d *ConstantData) IsCString() bool {
	if !d.IsString() || len(d.elems) == 0 || d.elems[len(d.elems)-1] != 0 {
		return false
	}
	for _, e := range d.elems[:len(d.elems)-1] {
		if e == 0 {
			return false
		}
	}
	return true
}

// AsString returns the bytes of an i8 array.
func (d *ConstantData) AsString() string {
	b := make([]byte, len(d.elems))
	for i, e := range d.elems {
		b[i] = byte(e)
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Constant expressions
// ---------------------------------------------------------------------------

// ConstantExpr is an instruction evaluated at compile time over constant
// operands.
type ConstantExpr struct {
	constantBase
	opcode Opcode

	// Predicate is set for comparisons.
	Predicate Predicate
	// Flags holds the wrap and exact flags of binary operators.
	Flags BinaryFlags
	// InBounds and SourceElementType are set for getelementptr.
	InBounds          bool
	SourceElementType *Type
}

func (e *ConstantExpr) Opcode() Opcode { return e.opcode }

func newConstantExpr(op Opcode, t *Type, ops ...Constant) *ConstantExpr {
	e := &ConstantExpr{opcode: op}
	e.typ = t
	vals := make([]Value, len(ops))
	for i, o := range ops {
		vals[i] = o
	}
	e.initOperands(e, vals...)
	return e
}

// NewConstantBinOp builds a constant binary operator.
func NewConstantBinOp(op Opcode, lhs, rhs Constant, flags BinaryFlags) *ConstantExpr {
	e := newConstantExpr(op, lhs.Type(), lhs, rhs)
	e.Flags = flags
	return e
}

// NewConstantCast builds a constant cast of c to t.
func NewConstantCast(op Opcode, c Constant, t *Type) *ConstantExpr {
	return newConstantExpr(op, t, c)
}

// NewConstantGEP builds a constant getelementptr. It returns nil if the
// indices do not select a valid element of srcElemTy.
func NewConstantGEP(srcElemTy *Type, ptr Constant, idxs []Constant, inBounds bool) *ConstantExpr {
	vals := make([]Value, len(idxs))
	for i, idx := range idxs {
		vals[i] = idx
	}
	resTy := GEPResultType(srcElemTy, ptr.Type(), vals)
	if resTy == nil {
		return nil
	}
	e := newConstantExpr(GetElementPtr, resTy, append([]Constant{ptr}, idxs...)...)
	e.InBounds = inBounds
	e.SourceElementType = srcElemTy
	return e
}

// NewConstantSelect builds a constant select.
func NewConstantSelect(cond, t, f Constant) *ConstantExpr {
	return newConstantExpr(Select, t.Type(), cond, t, f)
}

// NewConstantExtractElement builds a constant extractelement.
func NewConstantExtractElement(vec, idx Constant) *ConstantExpr {
	return newConstantExpr(ExtractElement, vec.Type().ElementType(), vec, idx)
}

// NewConstantInsertElement builds a constant insertelement.
func NewConstantInsertElement(vec, elt, idx Constant) *ConstantExpr {
	return newConstantExpr(InsertElement, vec.Type(), vec, elt, idx)
}

// NewConstantCmp builds a constant icmp or fcmp.
func NewConstantCmp(op Opcode, pred Predicate, lhs, rhs Constant) *ConstantExpr {
	e := newConstantExpr(op, CmpResultType(lhs.Type()), lhs, rhs)
	e.Predicate = pred
	return e
}

// BlockAddress is the address of a basic block within a function.
type BlockAddress struct {
	constantBase
}

// NewBlockAddress builds blockaddress(f, bb), of type i8*.
func NewBlockAddress(f *Function, bb *BasicBlock) *BlockAddress {
	ctx := f.Type().ctx
	ba := &BlockAddress{}
	ba.typ = ctx.PointerType(ctx.IntType(8), 0)
	ba.initOperands(ba, f, bb)
	return ba
}

func (ba *BlockAddress) Function() *Function {
	f, _ := ba.Operand(0).(*Function)
	return f
}

func (ba *BlockAddress) Block() *BasicBlock {
	bb, _ := ba.Operand(1).(*BasicBlock)
	return bb
}

// ---------------------------------------------------------------------------
// Placeholders
// ---------------------------------------------------------------------------

// ForwardRef stands in for a non-constant value that is referenced before
// it is defined. It is replaced and released once the definition is read.
type ForwardRef struct {
	valueBase
}

// NewForwardRef makes a placeholder of type t.
func NewForwardRef(t *Type) *ForwardRef {
	r := &ForwardRef{}
	r.typ = t
	return r
}

// ConstantPlaceholder stands in for a constant referenced before it is
// defined, so that it can be an operand of other constants.
type ConstantPlaceholder struct {
	constantBase
}

// NewConstantPlaceholder makes a placeholder of type t.
func NewConstantPlaceholder(t *Type) *ConstantPlaceholder {
	p := &ConstantPlaceholder{}
	p.typ = t
	return p
}
