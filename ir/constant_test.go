package ir

import (
	"math"
	"math/big"
	"testing"
)

func TestConstantIntInterning(t *testing.T) {
	ctx := NewContext()
	i8 := ctx.IntType(8)

	if ctx.ConstantInt(i8, 5) != ctx.ConstantInt(i8, 5) {
		t.Error("ConstantInt not interned")
	}
	if ctx.ConstantInt(i8, 0x105) != ctx.ConstantInt(i8, 5) {
		t.Error("ConstantInt did not truncate to the type width")
	}
	if ctx.ConstantInt(ctx.IntType(16), 5) == ctx.ConstantInt(i8, 5) {
		t.Error("constants of different types are identical")
	}

	minus1 := ctx.ConstantIntSigned(i8, -1)
	if minus1.ZExtValue() != 0xff || minus1.SExtValue() != -1 {
		t.Errorf("i8 -1: zext = %#x, sext = %d", minus1.ZExtValue(), minus1.SExtValue())
	}
	if !ctx.False().IsZero() || !ctx.True().IsOne() {
		t.Error("True/False are wrong")
	}
}

func TestWideConstantInt(t *testing.T) {
	ctx := NewContext()
	i128 := ctx.IntType(128)

	v := new(big.Int).Lsh(big.NewInt(1), 100)
	c := ctx.ConstantBigInt(i128, v)
	if c != ctx.ConstantBigInt(i128, new(big.Int).Set(v)) {
		t.Error("wide ConstantInt not interned")
	}
	if c.BigInt().Cmp(v) != 0 {
		t.Errorf("BigInt = %v, want %v", c.BigInt(), v)
	}

	neg := ctx.ConstantIntSigned(i128, -2)
	if neg.SignedBigInt().Int64() != -2 {
		t.Errorf("SignedBigInt = %v, want -2", neg.SignedBigInt())
	}
	if neg.BigInt().BitLen() != 128 {
		t.Errorf("unsigned -2 has %d bits, want 128", neg.BigInt().BitLen())
	}
}

func TestConstantFP(t *testing.T) {
	ctx := NewContext()
	tests := []struct {
		name string
		fp   *ConstantFP
		want float64
	}{
		{"half", ctx.ConstantFloat(ctx.HalfType(), 1.5), 1.5},
		{"float", ctx.ConstantFloat(ctx.FloatType(), -0.25), -0.25},
		{"double", ctx.ConstantFloat(ctx.DoubleType(), math.Pi), math.Pi},
		{"x86_fp80 one", ctx.ConstantFPBits(ctx.X86FP80Type(), 1<<63, 0x3fff), 1},
		{"x86_fp80 -two", ctx.ConstantFPBits(ctx.X86FP80Type(), 1<<63, 0xc000), -2},
		{"fp128 one", ctx.ConstantFPBits(ctx.FP128Type(), 0, 0x3fff<<48), 1},
		{"ppc_fp128", ctx.ConstantFPBits(ctx.PPCFP128Type(), math.Float64bits(3), math.Float64bits(0.5)), 3.5},
	}
	for _, tt := range tests {
		if got := tt.fp.Float64(); got != tt.want {
			t.Errorf("%s: Float64() = %v, want %v", tt.name, got, tt.want)
		}
	}

	if lo, _ := ctx.ConstantFloat(ctx.HalfType(), 1.0).Bits(); lo != 0x3c00 {
		t.Errorf("half 1.0 bits = %#x, want 0x3c00", lo)
	}
	if ctx.ConstantFloat(ctx.FloatType(), 2) != ctx.ConstantFloat(ctx.FloatType(), 2) {
		t.Error("ConstantFP not interned")
	}
}

func TestNullValues(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	tests := []*Type{
		i32,
		ctx.FloatType(),
		ctx.PointerType(i32, 0),
		ctx.ArrayType(i32, 2),
		ctx.StructType([]*Type{i32}, false),
	}
	for _, typ := range tests {
		c := ctx.NullValue(typ)
		if c == nil || c.Type() != typ || !IsNullValue(c) {
			t.Errorf("NullValue(%s) = %v", typ, c)
		}
	}
	if ctx.NullValue(ctx.VoidType()) != nil {
		t.Error("NullValue(void) != nil")
	}
	if ctx.Undef(i32) != ctx.Undef(i32) {
		t.Error("Undef not interned")
	}
}

func TestConstantData(t *testing.T) {
	ctx := NewContext()
	i8 := ctx.IntType(8)
	s := NewConstantData(ctx.ArrayType(i8, 4), []uint64{'d', 'x', 'c', 0})

	if !s.IsString() || !s.IsCString() {
		t.Errorf("IsString = %v, IsCString = %v", s.IsString(), s.IsCString())
	}
	if s.AsString() != "dxc\x00" {
		t.Errorf("AsString = %q", s.AsString())
	}

	v := NewConstantData(ctx.VectorType(ctx.IntType(32), 2), []uint64{1, 2})
	if v.IsString() || v.NumElements() != 2 || v.ElementAsUint(1) != 2 {
		t.Errorf("vector data: string=%v n=%d", v.IsString(), v.NumElements())
	}
}

func TestConstantAggregateOperands(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	arr := ctx.ArrayType(i32, 2)

	ph := NewConstantPlaceholder(i32)
	agg := NewConstantAggregate(arr, []Constant{ctx.ConstantInt(i32, 1), ph})
	if ph.NumUses() != 1 {
		t.Fatalf("placeholder has %d uses, want 1", ph.NumUses())
	}

	resolved := ctx.ConstantInt(i32, 9)
	ReplaceAllUsesWith(ph, resolved)
	ReleaseValue(ph)

	if agg.Element(1) != Constant(resolved) {
		t.Errorf("element 1 = %v, want the resolved constant", agg.Element(1))
	}
}

func TestConstantExprs(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	a, b := ctx.ConstantInt(i32, 1), ctx.ConstantInt(i32, 2)

	add := NewConstantBinOp(Add, a, b, NoSignedWrap)
	if add.Opcode() != Add || add.Type() != i32 || add.Flags != NoSignedWrap {
		t.Errorf("binop = %s %s flags %d", add.Opcode(), add.Type(), add.Flags)
	}

	cmp := NewConstantCmp(ICmp, ICmpSLT, a, b)
	if cmp.Type() != ctx.Int1Type() || cmp.Predicate != ICmpSLT {
		t.Errorf("cmp type %s predicate %s", cmp.Type(), cmp.Predicate)
	}

	g := NewGlobalVariable(ctx.ArrayType(i32, 4), 0, "g")
	gep := NewConstantGEP(g.ValueType(), g, []Constant{ctx.ConstantInt(i32, 0), b}, true)
	if gep == nil || gep.Type() != ctx.PointerType(i32, 0) || !gep.InBounds {
		t.Errorf("gep = %v", gep)
	}
	if g.NumUses() != 1 {
		t.Errorf("global has %d uses, want 1", g.NumUses())
	}
}
