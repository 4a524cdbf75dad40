package bitcode

import (
	"errors"
	"testing"

	bc "github.com/chazu/dilithium/bitcode/bitcodetest"
	"github.com/chazu/dilithium/ir"
)

func parseBody(t *testing.T, body func(b *bc.Builder)) (*ir.Function, error) {
	t.Helper()
	m, err := GetLazyModule(ir.NewContext(), bc.FunctionModule(body), "m", Options{})
	if err != nil {
		t.Fatalf("reading module: %v", err)
	}
	f := m.Function("f")
	return f, m.Materialize(f)
}

func TestMemoryInstructions(t *testing.T) {
	f, err := parseBody(t, func(b *bc.Builder) {
		b.Record(bc.FuncDeclareBlocks, 1)
		b.Block(bc.ConstantsBlock, func() {
			b.Record(bc.CstSetType, 0)
			b.Record(bc.CstInteger, bc.Signed(1)) // #1
		})
		b.Record(bc.FuncAlloca, 0, 0, 1, 1<<6|3) // #2
		b.Record(bc.FuncStore, 3-2, 3-1, 3, 0)
		b.Record(bc.FuncLoad, 3-2, 0, 3, 1) // #3
		b.Record(bc.FuncRet)
	})
	if err != nil {
		t.Fatal(err)
	}

	insts := f.EntryBlock().Instructions()
	if len(insts) != 4 {
		t.Fatalf("%d instructions", len(insts))
	}
	ctx := f.Type().Context()
	i32 := ctx.IntType(32)

	alloca := insts[0].(*ir.AllocaInst)
	if alloca.AllocatedType != i32 || alloca.Align != 4 || alloca.Type() != ctx.PointerType(i32, 0) {
		t.Errorf("alloca: %s align %d", alloca.AllocatedType, alloca.Align)
	}
	store := insts[1].(*ir.StoreInst)
	if store.Pointer() != ir.Value(alloca) || store.Align != 4 || store.Volatile {
		t.Error("store does not write to the alloca")
	}
	load := insts[2].(*ir.LoadInst)
	if load.Pointer() != ir.Value(alloca) || load.Type() != i32 || !load.Volatile {
		t.Errorf("load: %s volatile=%v", load.Type(), load.Volatile)
	}
}

func TestCallRecord(t *testing.T) {
	tests := []struct {
		name string
		ops  []uint64
		tail ir.TailCallKind
		cc   ir.CallingConv
	}{
		{"tail call", []uint64{0, 1, 1}, ir.TailCallTail, ir.CallingConvC},
		{"explicit type", []uint64{0, 1 << 15, 2, 1}, ir.TailCallNone, ir.CallingConvC},
		{"explicit type musttail", []uint64{0, 1<<15 | 1<<14 | 1, 2, 1}, ir.TailCallMustTail, ir.CallingConvC},
		{"explicit type fastcc", []uint64{0, 1<<15 | 8<<1, 2, 1}, ir.TailCallNone, ir.CallingConv(8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseBody(t, func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncCall, tt.ops...) // call void @f()
				b.Record(bc.FuncRet)
			})
			if err != nil {
				t.Fatal(err)
			}
			call := f.EntryBlock().Instructions()[0].(*ir.CallInst)
			if call.CalledFunction() != f || call.NumArgs() != 0 {
				t.Errorf("call of %v with %d args", call.Callee(), call.NumArgs())
			}
			if call.TailCall != tt.tail || call.CallingConv != tt.cc {
				t.Errorf("tail=%v cc=%v, want tail=%v cc=%v", call.TailCall, call.CallingConv, tt.tail, tt.cc)
			}
		})
	}
}

func TestFunctionBodyErrors(t *testing.T) {
	tests := []struct {
		name string
		body func(b *bc.Builder)
		want error
	}{
		{
			name: "unresolved forward reference",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				fwd := uint64(^uint32(0) - 3) // relative ID of #5 seen from #1
				b.Record(bc.FuncBinop, fwd, 0, fwd, 0)
				b.Record(bc.FuncRet)
			},
			want: ErrCorruptedBitcode,
		},
		{
			name: "instruction after the last block",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncRet)
				b.Record(bc.FuncRet)
			},
			want: ErrCorruptedBitcode,
		},
		{
			name: "branch with two operands",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 2)
				b.Record(bc.FuncBr, 1, 0)
			},
			want: ErrCorruptedBitcode,
		},
		{
			name: "monotonic fence",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncFence, 2, 1)
			},
			want: ErrCorruptedBitcode,
		},
		{
			name: "shufflevector",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncShuffleVec, 1, 1, 1)
			},
			want: ErrNotImplemented,
		},
		{
			name: "invoke",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncInvoke, 0, 0, 0, 0)
			},
			want: ErrNotImplemented,
		},
		{
			name: "case range switch",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(bc.FuncSwitch, 0x4B5<<16, 0, 0, 0)
			},
			want: ErrNotImplemented,
		},
		{
			name: "unknown record",
			body: func(b *bc.Builder) {
				b.Record(bc.FuncDeclareBlocks, 1)
				b.Record(99)
			},
			want: ErrCorruptedBitcode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseBody(t, tt.body)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var bcErr *Error
			if !errors.As(err, &bcErr) || bcErr.BitPos == 0 {
				t.Errorf("error carries no stream position: %v", err)
			}
			if f.NumBlocks() != 0 {
				t.Errorf("failed body left %d blocks behind", f.NumBlocks())
			}
		})
	}
}

func TestDecodeSignRotated(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)} {
		if got := int64(decodeSignRotated(bc.Signed(v))); got != v {
			t.Errorf("decodeSignRotated(Signed(%d)) = %d", v, got)
		}
	}
	if got := decodeSignRotated(1); got != 1<<63 {
		t.Errorf("decodeSignRotated(1) = %#x, want INT64_MIN", got)
	}
}

func TestDecodeAlignment(t *testing.T) {
	r := &Reader{}
	for enc, want := range map[uint64]uint32{0: 0, 1: 1, 3: 4, 5: 16} {
		got, err := r.decodeAlignment(enc)
		if err != nil || got != want {
			t.Errorf("decodeAlignment(%d) = %d, %v; want %d", enc, got, err, want)
		}
	}
	if _, err := r.decodeAlignment(31); !errors.Is(err, ErrCorruptedBitcode) {
		t.Errorf("decodeAlignment(31) error = %v", err)
	}
}
