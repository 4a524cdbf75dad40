package bitcode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	bc "github.com/chazu/dilithium/bitcode/bitcodetest"
	"github.com/chazu/dilithium/ir"
)

func TestSignatureErrors(t *testing.T) {
	badWrapper := bc.Wrap(bc.VoidMainModule())
	badWrapper[12], badWrapper[13] = 0xFF, 0xFF // size past the end

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"odd length", []byte{'B', 'C', 0xC0}, ErrInvalidBitcodeSignature},
		{"wrong magic", []byte{'L', 'L', 'V', 'M'}, ErrInvalidBitcodeSignature},
		{"bad wrapper", badWrapper, ErrInvalidBitcodeSignature},
		{"magic only", bc.New().Bytes(), ErrCorruptedBitcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModule(ir.NewContext(), tt.buf, "m", Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}

			ctx := ir.NewContext()
			m := ir.NewModule("m", ctx)
			r := NewReader(ctx, tt.buf, Options{})
			if err := r.ParseBitcodeInto(m); !errors.Is(err, tt.want) {
				t.Fatalf("ParseBitcodeInto err = %v, want %v", err, tt.want)
			}
			if m.Size() != 0 || len(m.Globals()) != 0 || r.Module() != nil {
				t.Errorf("module touched: %d functions, %d globals, reader module %v", m.Size(), len(m.Globals()), r.Module())
			}
		})
	}
}

func TestParseVoidMain(t *testing.T) {
	for name, buf := range map[string][]byte{
		"raw":     bc.VoidMainModule(),
		"wrapped": bc.Wrap(bc.VoidMainModule()),
	} {
		t.Run(name, func(t *testing.T) {
			m, err := ParseModule(ir.NewContext(), buf, "m", Options{})
			if err != nil {
				t.Fatal(err)
			}
			f := m.Function("main")
			if f == nil {
				t.Fatal("no @main")
			}
			if f.NumBlocks() != 1 || f.MaterializationState() != ir.Materialized {
				t.Fatalf("@main: %d blocks, state %s", f.NumBlocks(), f.MaterializationState())
			}
			ret, ok := f.EntryBlock().Terminator().(*ir.ReturnInst)
			if !ok || ret.ReturnValue() != nil {
				t.Errorf("terminator = %v, want ret void", f.EntryBlock().Terminator())
			}
			if m.Materializer() != nil {
				t.Error("materializer kept after a full parse")
			}
		})
	}
}

func TestLazyModule(t *testing.T) {
	m, err := GetLazyModule(ir.NewContext(), bc.VoidMainModule(), "m", Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := m.Materializer().(*Reader)
	if r.State() != StateSuspended {
		t.Errorf("state = %s, want suspended", r.State())
	}
	f := m.Function("main")
	if !f.IsMaterializable() || f.NumBlocks() != 0 {
		t.Fatalf("@main read eagerly: %d blocks", f.NumBlocks())
	}

	for i := 0; i < 2; i++ {
		if err := m.Materialize(f); err != nil {
			t.Fatalf("Materialize #%d: %v", i+1, err)
		}
		if f.NumBlocks() != 1 || f.EntryBlock().Len() != 1 {
			t.Fatalf("Materialize #%d: %d blocks", i+1, f.NumBlocks())
		}
	}

	if err := m.MaterializeAll(); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateModuleDone {
		t.Errorf("state = %s, want module-done", r.State())
	}
}

func TestForwardReferences(t *testing.T) {
	m, err := ParseModule(ir.NewContext(), bc.CountModule(), "m", Options{})
	if err != nil {
		t.Fatal(err)
	}
	f := m.Function("count")
	if f == nil {
		t.Fatal("no @count")
	}

	var names []string
	for _, bb := range f.Blocks() {
		names = append(names, bb.Name())
	}
	if diff := cmp.Diff([]string{"entry", "loop", "exit"}, names); diff != "" {
		t.Errorf("block names (-want +got):\n%s", diff)
	}
	if f.Arg(0).Name() != "n" {
		t.Errorf("argument name = %q", f.Arg(0).Name())
	}

	loop := f.Blocks()[1].Instructions()
	if len(loop) != 4 {
		t.Fatalf("loop has %d instructions", len(loop))
	}
	phi, ok := loop[0].(*ir.PHINode)
	if !ok || phi.NumIncoming() != 2 {
		t.Fatalf("first loop instruction = %T", loop[0])
	}
	next, ok := loop[1].(*ir.BinaryOperator)
	if !ok || next.Opcode() != ir.Add || next.Name() != "next" {
		t.Fatalf("second loop instruction = %T %q", loop[1], loop[1].Name())
	}
	if phi.IncomingValue(1) != ir.Value(next) || phi.IncomingBlock(1) != f.Blocks()[1] {
		t.Error("phi does not merge %next from %loop")
	}
	if c, ok := phi.IncomingValue(0).(*ir.ConstantInt); !ok || c.ZExtValue() != 0 {
		t.Errorf("phi entry value = %v", phi.IncomingValue(0))
	}
	if next.Operand(0) != ir.Value(phi) {
		t.Error("add does not use %i")
	}
	if next.NumUses() != 3 {
		t.Errorf("%%next has %d uses, want 3", next.NumUses())
	}

	cmpInst, ok := loop[2].(*ir.CmpInst)
	if !ok || cmpInst.Predicate != ir.ICmpEQ || cmpInst.Operand(1) != ir.Value(f.Arg(0)) {
		t.Errorf("third loop instruction = %T", loop[2])
	}
	br, ok := loop[3].(*ir.BranchInst)
	if !ok || !br.IsConditional() || br.Condition() != ir.Value(cmpInst) {
		t.Fatalf("loop terminator = %T", loop[3])
	}
	if br.Successor(0) != f.Blocks()[2] || br.Successor(1) != f.Blocks()[1] {
		t.Error("branch successors out of order")
	}
	ret := f.Blocks()[2].Terminator().(*ir.ReturnInst)
	if ret.ReturnValue() != ir.Value(next) {
		t.Error("ret does not return %next")
	}
}

func TestUseListOrder(t *testing.T) {
	userOps := func(buf []byte) []ir.Opcode {
		t.Helper()
		m, err := ParseModule(ir.NewContext(), buf, "m", Options{})
		if err != nil {
			t.Fatal(err)
		}
		next := m.Function("count").Blocks()[1].Instructions()[1]
		var ops []ir.Opcode
		for _, u := range next.Uses() {
			ops = append(ops, u.User().(ir.Instruction).Opcode())
		}
		return ops
	}

	plain := userOps(bc.CountModule())
	if len(plain) != 3 {
		t.Fatalf("%%next has %d uses", len(plain))
	}
	reversed := userOps(bc.CountModuleWithUseList(2, 1, 0))
	want := []ir.Opcode{plain[2], plain[1], plain[0]}
	if diff := cmp.Diff(want, reversed); diff != "" {
		t.Errorf("use order (-want +got):\n%s", diff)
	}

	// A record that does not cover every use is ignored.
	if diff := cmp.Diff(plain, userOps(bc.CountModuleWithUseList(1, 0))); diff != "" {
		t.Errorf("partial use list applied (-want +got):\n%s", diff)
	}
}

func TestBlockAddressForwardReference(t *testing.T) {
	m, err := GetLazyModule(ir.NewContext(), bc.BlockAddressModule(), "m", Options{})
	if err != nil {
		t.Fatal(err)
	}
	f, g := m.Function("f"), m.Function("g")
	if err := m.Materialize(f); err != nil {
		t.Fatal(err)
	}
	if g.IsMaterializable() {
		t.Fatal("@g not read after a blockaddress referred to it")
	}

	ret := f.EntryBlock().Terminator().(*ir.ReturnInst)
	ba, ok := ret.ReturnValue().(*ir.BlockAddress)
	if !ok {
		t.Fatalf("@f returns %T", ret.ReturnValue())
	}
	if ba.Function() != g || g.NumBlocks() != 2 || ba.Block() != g.Blocks()[1] {
		t.Error("blockaddress does not name the second block of @g")
	}
	if ba.Block().Name() != "next" || ba.Block().Len() != 1 {
		t.Errorf("adopted block %q has %d instructions", ba.Block().Name(), ba.Block().Len())
	}

	if err := m.MaterializeAll(); err != nil {
		t.Fatal(err)
	}
}

func TestMetadataForwardReference(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		ctx := ir.NewContext()
		m, err := GetLazyModule(ctx, bc.MetadataModule(), "m", Options{LazyMetadata: lazy})
		if err != nil {
			t.Fatal(err)
		}
		if lazy {
			if m.NamedMetadata("named") != nil {
				t.Fatal("lazy metadata read eagerly")
			}
			if err := m.MaterializeMetadata(); err != nil {
				t.Fatal(err)
			}
		}
		named := m.NamedMetadata("named")
		if named == nil || named.NumOperands() != 1 {
			t.Fatalf("lazy=%v: !named = %v", lazy, named)
		}
		node, ok := named.Operand(0).(*ir.MDNode)
		if !ok || node.NumOperands() != 1 {
			t.Fatalf("lazy=%v: !named operand = %T", lazy, named.Operand(0))
		}
		if node.Operand(0) != ir.Metadata(ctx.MDString("x")) {
			t.Errorf("lazy=%v: node operand = %v, want !\"x\"", lazy, node.Operand(0))
		}
	}
}
