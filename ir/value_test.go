package ir

import (
	"strings"
	"testing"
)

func newTestFunction(ctx *Context) (*Function, *BasicBlock) {
	i32 := ctx.IntType(32)
	m := NewModule("test", ctx)
	f := NewFunction(ctx.FunctionType(i32, []*Type{i32, i32}, false), ExternalLinkage, "f", m)
	bb := NewBasicBlock(ctx, "entry")
	f.AppendBlock(bb)
	return f, bb
}

func TestUseListTracksOperands(t *testing.T) {
	ctx := NewContext()
	f, bb := newTestFunction(ctx)
	a, b := f.Arg(0), f.Arg(1)

	add := NewBinaryOperator(Add, a, b)
	mul := NewBinaryOperator(Mul, a, a)
	bb.Append(add)
	bb.Append(mul)

	if a.NumUses() != 3 {
		t.Errorf("a.NumUses() = %d, want 3", a.NumUses())
	}
	if b.NumUses() != 1 {
		t.Errorf("b.NumUses() = %d, want 1", b.NumUses())
	}

	// The most recent use comes first.
	uses := a.Uses()
	if uses[0].User() != mul || uses[2].User() != add {
		t.Errorf("use order = %v, %v, %v", uses[0].User(), uses[1].User(), uses[2].User())
	}

	mul.SetOperand(1, b)
	if a.NumUses() != 2 || b.NumUses() != 2 {
		t.Errorf("after SetOperand: a has %d uses, b has %d; want 2 and 2", a.NumUses(), b.NumUses())
	}
	if mul.OperandUse(1).OperandNo() != 1 {
		t.Errorf("OperandNo = %d, want 1", mul.OperandUse(1).OperandNo())
	}

	add.DropAllReferences()
	if a.NumUses() != 1 || b.NumUses() != 1 {
		t.Errorf("after DropAllReferences: a has %d uses, b has %d; want 1 and 1", a.NumUses(), b.NumUses())
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	f, bb := newTestFunction(ctx)
	a := f.Arg(0)

	fwd := NewForwardRef(i32)
	add := NewBinaryOperator(Add, a, fwd)
	sub := NewBinaryOperator(Sub, fwd, fwd)
	bb.Append(add)
	bb.Append(sub)

	type slot struct {
		user User
		idx  int
	}
	var before []slot
	for _, u := range fwd.Uses() {
		before = append(before, slot{u.User(), u.OperandNo()})
	}

	def := NewBinaryOperator(Mul, a, a)
	ReplaceAllUsesWith(fwd, def)

	if !fwd.UseEmpty() {
		t.Errorf("old value still has %d uses", fwd.NumUses())
	}
	if def.NumUses() != len(before) {
		t.Errorf("new value has %d uses, want %d", def.NumUses(), len(before))
	}
	for _, s := range before {
		if s.user.Operand(s.idx) != def {
			t.Errorf("operand %d of %v = %v, want the replacement", s.idx, s.user, s.user.Operand(s.idx))
		}
	}

	ReleaseValue(fwd)
	if !IsReleased(fwd) {
		t.Error("IsReleased = false after ReleaseValue")
	}
}

func TestReplaceAllUsesWithTypeMismatchPanics(t *testing.T) {
	ctx := NewContext()
	a := NewForwardRef(ctx.IntType(32))
	b := NewForwardRef(ctx.IntType(64))

	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), "type mismatch") {
			t.Errorf("recover() = %v, want a type mismatch panic", r)
		}
	}()
	ReplaceAllUsesWith(a, b)
}

func TestReleaseWithLiveUsesPanics(t *testing.T) {
	ctx := NewContext()
	f, bb := newTestFunction(ctx)
	fwd := NewForwardRef(ctx.IntType(32))
	bb.Append(NewBinaryOperator(Add, f.Arg(0), fwd))

	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), "live uses") {
			t.Errorf("recover() = %v, want a live uses panic", r)
		}
	}()
	ReleaseValue(fwd)
}

func TestWeakHandle(t *testing.T) {
	ctx := NewContext()
	v := NewForwardRef(ctx.IntType(32))
	h := NewWeakHandle(v)

	if h.Get() != v {
		t.Fatal("handle does not resolve to its value")
	}
	ReleaseValue(v)
	if h.Get() != nil || !h.IsEmpty() {
		t.Error("handle still resolves after ReleaseValue")
	}
	if !NewWeakHandle(nil).IsEmpty() {
		t.Error("handle to nil is not empty")
	}
}

func TestSortUseListIsStable(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	_, bb := newTestFunction(ctx)
	v := NewForwardRef(i32)

	// Keys by user; equal keys must keep their current relative order.
	keys := map[User]int{}
	var insts []*BinaryOperator
	for i, k := range []int{3, 1, 2, 1, 0, 2} {
		inst := NewBinaryOperator(Add, v, ctx.ConstantInt(i32, uint64(i)))
		bb.Append(inst)
		keys[inst] = k
		insts = append(insts, inst)
	}

	before := v.Uses()
	pos := map[*Use]int{}
	for i, u := range before {
		pos[u] = i
	}

	SortUseList(v, func(a, b *Use) bool { return keys[a.User()] < keys[b.User()] })

	after := v.Uses()
	if len(after) != len(before) {
		t.Fatalf("use count changed: %d -> %d", len(before), len(after))
	}
	for i := 1; i < len(after); i++ {
		ka, kb := keys[after[i-1].User()], keys[after[i].User()]
		if ka > kb {
			t.Errorf("uses out of order at %d: %d > %d", i, ka, kb)
		}
		if ka == kb && pos[after[i-1]] > pos[after[i]] {
			t.Errorf("sort is not stable at %d", i)
		}
	}

	// The back links must still let uses unlink cleanly.
	for _, inst := range insts {
		inst.SetOperand(0, nil)
	}
	if !v.UseEmpty() || v.NumUses() != 0 {
		t.Errorf("after clearing operands: %d uses left", v.NumUses())
	}
}

func TestValueAsMetadataFollowsRAUW(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	fwd := NewForwardRef(i32)
	md := ctx.ValueAsMetadata(fwd)

	if ctx.ValueAsMetadata(fwd) != md {
		t.Error("ValueAsMetadata not interned")
	}
	if !md.IsLocal() {
		t.Error("ValueAsMetadata of a non-constant is not local")
	}

	c := ctx.ConstantInt(i32, 7)
	ReplaceAllUsesWith(fwd, c)
	if md.Value() != c {
		t.Errorf("wrapped value = %v, want the replacement", md.Value())
	}
	if ctx.ValueAsMetadata(c) != md {
		t.Error("replacement does not map to the existing wrapper")
	}
}
