package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingMaterializer struct {
	calls []string
	err   error
}

func (r *recordingMaterializer) Materialize(gv GlobalValue) error {
	r.calls = append(r.calls, "fn:"+gv.Name())
	if f, ok := gv.(*Function); ok {
		f.SetMaterializationState(Materialized)
	}
	return r.err
}

func (r *recordingMaterializer) MaterializeModule() error {
	r.calls = append(r.calls, "module")
	return r.err
}

func (r *recordingMaterializer) MaterializeMetadata() error {
	r.calls = append(r.calls, "metadata")
	return r.err
}

func TestFunctionDeclarationState(t *testing.T) {
	ctx := NewContext()
	m := NewModule("m", ctx)
	f := NewFunction(ctx.FunctionType(ctx.VoidType(), nil, false), ExternalLinkage, "main", m)

	if !f.IsDeclaration() {
		t.Error("new function without blocks is not a declaration")
	}
	f.SetMaterializationState(Deferred)
	if f.IsDeclaration() || !f.IsMaterializable() {
		t.Error("deferred function reports as a declaration")
	}

	bb := NewBasicBlock(ctx, "")
	f.AppendBlock(bb)
	bb.Append(NewRet(ctx, nil))
	f.SetMaterializationState(Materialized)
	if f.IsDeclaration() || f.IsMaterializable() {
		t.Error("materialized function with a body is a declaration")
	}

	if m.Size() != 1 || m.Function("main") != f || f.Parent() != m {
		t.Errorf("module lookup failed: size=%d", m.Size())
	}
	if f.Type() != ctx.PointerType(f.FunctionType(), 0) {
		t.Errorf("function type = %s", f.Type())
	}
	if term := bb.Terminator(); term == nil || term.Opcode() != Ret {
		t.Errorf("Terminator = %v", term)
	}
}

func TestModuleMaterializeDelegates(t *testing.T) {
	ctx := NewContext()
	m := NewModule("m", ctx)
	f := NewFunction(ctx.FunctionType(ctx.VoidType(), nil, false), ExternalLinkage, "f", m)

	if err := m.Materialize(f); err != nil {
		t.Fatalf("Materialize without a materializer: %v", err)
	}

	mat := &recordingMaterializer{}
	m.SetMaterializer(mat)
	if err := m.Materialize(f); err != nil {
		t.Fatal(err)
	}
	if err := m.MaterializeMetadata(); err != nil {
		t.Fatal(err)
	}
	if err := m.MaterializeAll(); err != nil {
		t.Fatal(err)
	}
	if m.Materializer() != nil {
		t.Error("materializer kept after MaterializeAll")
	}
	if diff := cmp.Diff([]string{"fn:f", "metadata", "module"}, mat.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	boom := errors.New("boom")
	m.SetMaterializer(&recordingMaterializer{err: boom})
	if err := m.MaterializeAll(); !errors.Is(err, boom) {
		t.Errorf("MaterializeAll error = %v, want boom", err)
	}
	if m.Materializer() == nil {
		t.Error("materializer dropped after a failed MaterializeAll")
	}
}

func TestInstructionsAndBlocks(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(32)
	m := NewModule("m", ctx)
	f := NewFunction(ctx.FunctionType(i32, []*Type{i32}, false), ExternalLinkage, "f", m)
	entry, then, exit := NewBasicBlock(ctx, "entry"), NewBasicBlock(ctx, "then"), NewBasicBlock(ctx, "exit")
	for _, bb := range []*BasicBlock{entry, then, exit} {
		f.AppendBlock(bb)
	}

	cond := NewCmp(ICmp, ICmpEQ, f.Arg(0), ctx.ConstantInt(i32, 0))
	entry.Append(cond)
	br := NewCondBr(cond, then, exit)
	entry.Append(br)
	then.Append(NewBr(exit))

	phi := NewPHI(i32)
	phi.AddIncoming(ctx.ConstantInt(i32, 1), entry)
	phi.AddIncoming(ctx.ConstantInt(i32, 2), then)
	exit.Append(phi)
	exit.Append(NewRet(ctx, phi))

	if !br.IsConditional() || br.Successor(0) != then || br.Successor(1) != exit {
		t.Errorf("branch successors wrong")
	}
	if succ := entry.Successors(); len(succ) != 2 || succ[0] != then || succ[1] != exit {
		t.Errorf("Successors = %v", succ)
	}
	if phi.NumIncoming() != 2 || phi.IncomingBlock(1) != then {
		t.Errorf("phi incoming = %d", phi.NumIncoming())
	}
	if then.NumUses() != 1 || exit.NumUses() != 2 {
		t.Errorf("block uses: then=%d exit=%d", then.NumUses(), exit.NumUses())
	}
	if exit.Index() != 2 || phi.Function() != f {
		t.Errorf("Index = %d", exit.Index())
	}

	call := NewCall(f.FunctionType(), f, []Value{phi})
	if call.CalledFunction() != f || call.NumArgs() != 1 || call.Type() != i32 {
		t.Errorf("call callee=%v args=%d", call.Callee(), call.NumArgs())
	}

	sw := NewSwitch(f.Arg(0), exit)
	sw.AddCase(ctx.ConstantInt(i32, 3), then)
	if sw.NumCases() != 1 || sw.Cases()[0].Dest != then || sw.DefaultDest() != exit {
		t.Errorf("switch cases = %+v", sw.Cases())
	}

	loc := &DILocation{Line: 4, Column: 2}
	cond.SetMetadata(MDKindDbg, loc)
	cond.SetMetadata(MDKindRange, NewMDTuple(nil))
	if cond.DebugLoc() != loc || cond.Metadata(MDKindDbg) != Metadata(loc) {
		t.Error("debug location not attached")
	}
	if len(cond.MetadataAttachments()) != 1 || cond.Metadata(MDKindRange) == nil {
		t.Errorf("attachments = %v", cond.MetadataAttachments())
	}

	if ev := NewExtractValue(ctx.Undef(ctx.StructType([]*Type{i32}, false)), []uint32{1}); ev != nil {
		t.Error("NewExtractValue accepted an out of range index")
	}
}

func TestAttributeList(t *testing.T) {
	l := NewAttributeList(
		AttributeSet{Index: FunctionIndex, Attrs: []Attribute{EnumAttr(AttrNoUnwind)}},
		AttributeSet{Index: ParamIndex(0), Attrs: []Attribute{IntAttr(AttrAlignment, 16)}},
		AttributeSet{Index: FunctionIndex, Attrs: []Attribute{StringAttr("no-frame-pointer-elim", "false")}},
	)

	sets := l.Sets()
	if len(sets) != 2 || sets[len(sets)-1].Index != FunctionIndex {
		t.Fatalf("sets = %+v", sets)
	}
	if !l.HasFnAttr(AttrNoUnwind) {
		t.Error("function attributes lost nounwind")
	}
	if a, ok := l.FnAttrs().GetString("no-frame-pointer-elim"); !ok || a.Value != "false" {
		t.Errorf("string attribute = %+v, %v", a, ok)
	}
	if got := l.ParamAttrs(0).String(); got != "align 16" {
		t.Errorf("param 0 = %q", got)
	}
	if len(l.RetAttrs().Attrs) != 0 {
		t.Error("return attributes are not empty")
	}
	if AttrDereferenceable.String() != "dereferenceable" || !AttrDereferenceable.HasIntValue() {
		t.Error("AttrDereferenceable metadata wrong")
	}
}
