// Package report renders a loaded shader as a text listing or as a YAML or
// CBOR summary.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/dilithium/dxil"
	"github.com/chazu/dilithium/ir"
)

// Listing returns a human-readable listing of s. It resembles LLVM
// assembly but makes no attempt to be parseable.
func Listing(s *dxil.Shader) string {
	var sb strings.Builder
	m := s.Module

	sb.WriteString(fmt.Sprintf("; ModuleID = '%s'\n", m.ID()))
	if s.Container != nil {
		sb.WriteString(fmt.Sprintf("; Shader model: %s\n", s.Program.ProgramVersion.ShaderModel()))
		writeFeatures(&sb, s.Features)
		for _, sig := range s.Signatures {
			writeSignature(&sb, sig)
		}
	}
	if dl := m.DataLayout(); dl != "" {
		sb.WriteString(fmt.Sprintf("target datalayout = %q\n", dl))
	}
	if tt := m.TargetTriple(); tt != "" {
		sb.WriteString(fmt.Sprintf("target triple = %q\n", tt))
	}

	p := newPrinter(m)
	if len(m.Globals()) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range m.Globals() {
		sb.WriteString(p.global(g))
		sb.WriteString("\n")
	}
	for _, f := range m.Functions() {
		sb.WriteString("\n")
		p.function(&sb, f)
	}
	if named := m.NamedMetadataList(); len(named) > 0 {
		sb.WriteString("\n")
		for _, n := range named {
			sb.WriteString(fmt.Sprintf("!%s = !{%d operands}\n", n.Name(), n.NumOperands()))
		}
	}
	return sb.String()
}

// WriteListing writes Listing(s) to w.
func WriteListing(w io.Writer, s *dxil.Shader) error {
	_, err := io.WriteString(w, Listing(s))
	return err
}

func writeFeatures(sb *strings.Builder, f dxil.FeatureFlags) {
	names := f.Names()
	if len(names) == 0 {
		return
	}
	sb.WriteString("; Note: shader requires additional functionality:\n")
	for _, n := range names {
		sb.WriteString(fmt.Sprintf(";       %s\n", n))
	}
}

func writeSignature(sb *strings.Builder, sig *dxil.Signature) {
	sb.WriteString(fmt.Sprintf(";\n; %s:\n", signatureTitle(sig.Kind)))
	sb.WriteString("; Name                 Index   Mask Register SysValue  Format   Used\n")
	sb.WriteString("; -------------------- ----- ------ -------- -------- ------- ------\n")
	for _, e := range sig.Elements {
		sb.WriteString(fmt.Sprintf("; %-20s %5d   %s %8d %8s %7s   %s\n",
			e.SemanticName, e.SemanticIndex, dxil.MaskString(e.Mask), e.Register,
			e.SystemValue, e.CompType, dxil.MaskString(e.RWMask)))
	}
}

func signatureTitle(kind dxil.FourCC) string {
	switch kind {
	case dxil.FourCCInputSignature:
		return "Input signature"
	case dxil.FourCCOutputSignature:
		return "Output signature"
	case dxil.FourCCPatchConstantSig:
		return "Patch constant signature"
	}
	return kind.String()
}

// ---------------------------------------------------------------------------
// Value printing
// ---------------------------------------------------------------------------

// printer numbers unnamed values the way LLVM does: module slots for
// globals, and per function the arguments then blocks and results in order.
type printer struct {
	globals map[ir.Value]int
	locals  map[ir.Value]int
}

func newPrinter(m *ir.Module) *printer {
	p := &printer{globals: make(map[ir.Value]int)}
	n := 0
	for _, g := range m.Globals() {
		if g.Name() == "" {
			p.globals[g] = n
			n++
		}
	}
	for _, f := range m.Functions() {
		if f.Name() == "" {
			p.globals[f] = n
			n++
		}
	}
	return p
}

func (p *printer) number(f *ir.Function) {
	p.locals = make(map[ir.Value]int)
	n := 0
	for _, a := range f.Args() {
		if a.Name() == "" {
			p.locals[a] = n
			n++
		}
	}
	for _, bb := range f.Blocks() {
		if bb.Name() == "" {
			p.locals[bb] = n
			n++
		}
		for _, inst := range bb.Instructions() {
			if inst.Name() == "" && !inst.Type().IsVoid() {
				p.locals[inst] = n
				n++
			}
		}
	}
}

func (p *printer) global(g *ir.GlobalVariable) string {
	var sb strings.Builder
	sb.WriteString(p.ref(g))
	sb.WriteString(" = ")
	if g.Linkage != ir.ExternalLinkage || g.IsDeclaration() {
		sb.WriteString(g.Linkage.String())
		sb.WriteString(" ")
	}
	if g.AddressSpace() != 0 {
		sb.WriteString(fmt.Sprintf("addrspace(%d) ", g.AddressSpace()))
	}
	if g.IsConstant {
		sb.WriteString("constant ")
	} else {
		sb.WriteString("global ")
	}
	sb.WriteString(g.ValueType().String())
	if g.HasInitializer() {
		sb.WriteString(" ")
		sb.WriteString(p.ref(g.Initializer()))
	}
	if g.Align != 0 {
		sb.WriteString(fmt.Sprintf(", align %d", g.Align))
	}
	return sb.String()
}

func (p *printer) function(sb *strings.Builder, f *ir.Function) {
	p.number(f)
	keyword := "define"
	if f.IsDeclaration() {
		keyword = "declare"
	}
	sb.WriteString(keyword)
	sb.WriteString(" ")
	if f.Linkage != ir.ExternalLinkage {
		sb.WriteString(f.Linkage.String())
		sb.WriteString(" ")
	}
	sb.WriteString(f.ReturnType().String())
	sb.WriteString(" ")
	sb.WriteString(p.ref(f))
	sb.WriteString("(")
	for i, a := range f.Args() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Type().String())
		if !f.IsDeclaration() {
			sb.WriteString(" ")
			sb.WriteString(p.ref(a))
		}
	}
	if f.FunctionType().IsVarArg() {
		if f.FunctionType().NumParams() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	if f.IsDeclaration() {
		sb.WriteString("\n")
		return
	}
	if f.IsMaterializable() {
		sb.WriteString(" ; body not materialized\n")
		return
	}

	sb.WriteString(" {\n")
	for i, bb := range f.Blocks() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.label(bb))
		sb.WriteString(":\n")
		for _, inst := range bb.Instructions() {
			sb.WriteString("  ")
			sb.WriteString(p.instruction(inst))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}

func (p *printer) label(bb *ir.BasicBlock) string {
	if bb.Name() != "" {
		return bb.Name()
	}
	return strconv.Itoa(p.locals[bb])
}

func (p *printer) ref(v ir.Value) string {
	switch v := v.(type) {
	case nil:
		return "<null operand>"
	case *ir.Function, *ir.GlobalVariable:
		if v.Name() != "" {
			return "@" + v.Name()
		}
		return "@" + strconv.Itoa(p.globals[v])
	case *ir.ConstantInt:
		if v.BitWidth() == 1 {
			return strconv.FormatBool(!v.IsZero())
		}
		return v.SignedBigInt().String()
	case *ir.ConstantFP:
		return fmt.Sprintf("%e", v.Float64())
	case *ir.UndefValue:
		return "undef"
	case *ir.ConstantPointerNull:
		return "null"
	case *ir.ConstantAggregateZero:
		return "zeroinitializer"
	case *ir.ConstantData:
		if v.IsString() {
			return "c" + strconv.Quote(v.AsString())
		}
		elems := make([]string, v.NumElements())
		for i, e := range v.Elements() {
			elems[i] = v.ElementType().String() + " " + strconv.FormatUint(e, 10)
		}
		return aggregate(v.Type(), elems)
	case *ir.ConstantAggregate:
		return aggregate(v.Type(), p.typedOperands(v))
	case *ir.ConstantExpr:
		return fmt.Sprintf("%s (%s)", v.Opcode(), strings.Join(p.typedOperands(v), ", "))
	case *ir.BlockAddress:
		return fmt.Sprintf("blockaddress(%s, %%%s)", p.ref(v.Function()), p.label(v.Block()))
	case *ir.MetadataAsValue:
		return "metadata"
	case *ir.BasicBlock:
		return "%" + p.label(v)
	}
	if v.Name() != "" {
		return "%" + v.Name()
	}
	if n, ok := p.locals[v]; ok {
		return "%" + strconv.Itoa(n)
	}
	return "%<badref>"
}

func aggregate(t *ir.Type, elems []string) string {
	lb, rb := "[", "]"
	switch {
	case t.IsStruct():
		lb, rb = "{ ", " }"
	case t.IsVector():
		lb, rb = "<", ">"
	}
	return lb + strings.Join(elems, ", ") + rb
}

func (p *printer) typed(v ir.Value) string {
	if v == nil {
		return p.ref(v)
	}
	return v.Type().String() + " " + p.ref(v)
}

func (p *printer) typedOperands(u ir.User) []string {
	out := make([]string, u.NumOperands())
	for i := range out {
		out[i] = p.typed(u.Operand(i))
	}
	return out
}

func (p *printer) instruction(inst ir.Instruction) string {
	var sb strings.Builder
	if !inst.Type().IsVoid() {
		sb.WriteString(p.ref(inst))
		sb.WriteString(" = ")
	}

	switch i := inst.(type) {
	case *ir.ReturnInst:
		if rv := i.ReturnValue(); rv != nil {
			sb.WriteString("ret " + p.typed(rv))
		} else {
			sb.WriteString("ret void")
		}
	case *ir.BranchInst:
		if i.IsConditional() {
			sb.WriteString(fmt.Sprintf("br %s, label %s, label %s",
				p.typed(i.Condition()), p.ref(i.Successor(0)), p.ref(i.Successor(1))))
		} else {
			sb.WriteString("br label " + p.ref(i.Successor(0)))
		}
	case *ir.SwitchInst:
		sb.WriteString(fmt.Sprintf("switch %s, label %s [", p.typed(i.Condition()), p.ref(i.DefaultDest())))
		for _, c := range i.Cases() {
			sb.WriteString(fmt.Sprintf(" %s, label %s", p.typed(c.Value), p.ref(c.Dest)))
		}
		sb.WriteString(" ]")
	case *ir.BinaryOperator:
		sb.WriteString(fmt.Sprintf("%s %s, %s", i.Opcode(), p.typed(i.Operand(0)), p.ref(i.Operand(1))))
	case *ir.CmpInst:
		sb.WriteString(fmt.Sprintf("%s %s %s, %s", i.Opcode(), i.Predicate, p.typed(i.Operand(0)), p.ref(i.Operand(1))))
	case *ir.PHINode:
		sb.WriteString("phi " + i.Type().String())
		for n := 0; n < i.NumIncoming(); n++ {
			if n > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprintf(" [ %s, %s ]", p.ref(i.IncomingValue(n)), p.ref(i.IncomingBlock(n))))
		}
	case *ir.CastInst:
		sb.WriteString(fmt.Sprintf("%s %s to %s", i.Opcode(), p.typed(i.Operand(0)), i.Type()))
	case *ir.AllocaInst:
		sb.WriteString(fmt.Sprintf("alloca %s, %s", i.AllocatedType, p.typed(i.ArraySize())))
		writeAlign(&sb, i.Align)
	case *ir.LoadInst:
		sb.WriteString("load ")
		if i.Volatile {
			sb.WriteString("volatile ")
		}
		sb.WriteString(fmt.Sprintf("%s, %s", i.Type(), p.typed(i.Pointer())))
		writeAlign(&sb, i.Align)
	case *ir.StoreInst:
		sb.WriteString("store ")
		if i.Volatile {
			sb.WriteString("volatile ")
		}
		sb.WriteString(fmt.Sprintf("%s, %s", p.typed(i.Value()), p.typed(i.Pointer())))
		writeAlign(&sb, i.Align)
	case *ir.GetElementPtrInst:
		sb.WriteString("getelementptr ")
		if i.InBounds {
			sb.WriteString("inbounds ")
		}
		sb.WriteString(i.SourceElementType.String() + ", " + strings.Join(p.typedOperands(i), ", "))
	case *ir.ExtractValueInst:
		sb.WriteString("extractvalue " + p.typed(i.Operand(0)) + indexList(i.Indices))
	case *ir.InsertValueInst:
		sb.WriteString("insertvalue " + strings.Join(p.typedOperands(i), ", ") + indexList(i.Indices))
	case *ir.CallInst:
		if i.TailCall != ir.TailCallNone {
			sb.WriteString("tail ")
		}
		args := make([]string, i.NumArgs())
		for n := range args {
			args[n] = p.typed(i.Arg(n))
		}
		sb.WriteString(fmt.Sprintf("call %s %s(%s)", i.FunctionType().ReturnType(), p.ref(i.Callee()), strings.Join(args, ", ")))
	case *ir.FenceInst:
		sb.WriteString("fence " + i.Ordering.String())
	case *ir.AtomicRMWInst:
		sb.WriteString(fmt.Sprintf("atomicrmw %s %s %s", i.Operation, strings.Join(p.typedOperands(i), ", "), i.Ordering))
	case *ir.AtomicCmpXchgInst:
		sb.WriteString(fmt.Sprintf("cmpxchg %s %s %s", strings.Join(p.typedOperands(i), ", "), i.SuccessOrdering, i.FailureOrdering))
	default:
		sb.WriteString(inst.Opcode().String())
		if ops := p.typedOperands(inst); len(ops) > 0 {
			sb.WriteString(" " + strings.Join(ops, ", "))
		}
	}

	if loc := debugLoc(inst); loc != nil {
		sb.WriteString(fmt.Sprintf(" ; line %d col %d", loc.Line, loc.Column))
	}
	return sb.String()
}

func debugLoc(inst ir.Instruction) *ir.DILocation {
	if d, ok := inst.(interface{ DebugLoc() *ir.DILocation }); ok {
		return d.DebugLoc()
	}
	return nil
}

func writeAlign(sb *strings.Builder, align uint32) {
	if align != 0 {
		sb.WriteString(fmt.Sprintf(", align %d", align))
	}
}

func indexList(idxs []uint32) string {
	var sb strings.Builder
	for _, i := range idxs {
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatUint(uint64(i), 10))
	}
	return sb.String()
}
