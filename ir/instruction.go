package ir

// Instruction is a User that lives in a BasicBlock.
type Instruction interface {
	User
	Opcode() Opcode
	Parent() *BasicBlock
	inst() *instBase
}

// MDAttachment is one metadata attachment of an instruction.
type MDAttachment struct {
	Kind uint32
	Node Metadata
}

type instBase struct {
	userBase
	opcode   Opcode
	parent   *BasicBlock
	md       []MDAttachment
	debugLoc *DILocation
}

func (i *instBase) inst() *instBase       { return i }
func (i *instBase) Opcode() Opcode        { return i.opcode }
func (i *instBase) Parent() *BasicBlock   { return i.parent }
func (i *instBase) IsTerminator() bool    { return i.opcode.IsTerminator() }
func (i *instBase) DebugLoc() *DILocation { return i.debugLoc }

// SetDebugLoc attaches a source location.
func (i *instBase) SetDebugLoc(loc *DILocation) { i.debugLoc = loc }

// Function returns the function containing the instruction, or nil.
func (i *instBase) Function() *Function {
	if i.parent == nil {
		return nil
	}
	return i.parent.parent
}

// Metadata returns the attachment of the given kind, or nil.
func (i *instBase) Metadata(kind uint32) Metadata {
	if kind == MDKindDbg && i.debugLoc != nil {
		return i.debugLoc
	}
	for _, a := range i.md {
		if a.Kind == kind {
			return a.Node
		}
	}
	return nil
}

// SetMetadata attaches md under kind, replacing any previous attachment. A
// DILocation attached as dbg becomes the debug location.
func (i *instBase) SetMetadata(kind uint32, md Metadata) {
	if kind == MDKindDbg {
		if loc, ok := md.(*DILocation); ok || md == nil {
			i.debugLoc = loc
			return
		}
	}
	for j := range i.md {
		if i.md[j].Kind == kind {
			if md == nil {
				i.md = append(i.md[:j], i.md[j+1:]...)
			} else {
				i.md[j].Node = md
			}
			return
		}
	}
	if md != nil {
		i.md = append(i.md, MDAttachment{Kind: kind, Node: md})
	}
}

// MetadataAttachments returns the non-debug attachments in insertion order.
func (i *instBase) MetadataAttachments() []MDAttachment { return i.md }

func initInst(i *instBase, self Instruction, op Opcode, t *Type, ops ...Value) {
	i.opcode = op
	i.typ = t
	i.initOperands(self, ops...)
}

// ---------------------------------------------------------------------------
// Terminators
// ---------------------------------------------------------------------------

type ReturnInst struct{ instBase }

// NewRet builds "ret v", or "ret void" when v is nil.
func NewRet(ctx *Context, v Value) *ReturnInst {
	r := &ReturnInst{}
	if v == nil {
		initInst(&r.instBase, r, Ret, ctx.VoidType())
	} else {
		initInst(&r.instBase, r, Ret, ctx.VoidType(), v)
	}
	return r
}

// ReturnValue returns the returned value, or nil for "ret void".
func (r *ReturnInst) ReturnValue() Value {
	if len(r.ops) == 0 {
		return nil
	}
	return r.ops[0].val
}

// BranchInst is an unconditional branch with one operand, or a conditional
// one with operands (cond, true dest, false dest).
type BranchInst struct{ instBase }

func NewBr(dest *BasicBlock) *BranchInst {
	b := &BranchInst{}
	initInst(&b.instBase, b, Br, dest.typ.ctx.VoidType(), dest)
	return b
}

func NewCondBr(cond Value, ifTrue, ifFalse *BasicBlock) *BranchInst {
	b := &BranchInst{}
	initInst(&b.instBase, b, Br, ifTrue.typ.ctx.VoidType(), cond, ifTrue, ifFalse)
	return b
}

func (b *BranchInst) IsConditional() bool { return len(b.ops) == 3 }

func (b *BranchInst) Condition() Value {
	if !b.IsConditional() {
		return nil
	}
	return b.ops[0].val
}

func (b *BranchInst) NumSuccessors() int {
	if b.IsConditional() {
		return 2
	}
	return 1
}

func (b *BranchInst) Successor(i int) *BasicBlock {
	if b.IsConditional() {
		i++
	}
	bb, _ := b.ops[i].val.(*BasicBlock)
	return bb
}

// SwitchInst has operands (cond, default, value0, dest0, value1, dest1...).
type SwitchInst struct{ instBase }

// SwitchCase is one arm of a switch.
type SwitchCase struct {
	Value *ConstantInt
	Dest  *BasicBlock
}

func NewSwitch(cond Value, defaultDest *BasicBlock) *SwitchInst {
	s := &SwitchInst{}
	initInst(&s.instBase, s, Switch, defaultDest.typ.ctx.VoidType(), cond, defaultDest)
	return s
}

func (s *SwitchInst) Condition() Value { return s.ops[0].val }

func (s *SwitchInst) DefaultDest() *BasicBlock {
	bb, _ := s.ops[1].val.(*BasicBlock)
	return bb
}

// AddCase appends an arm.
func (s *SwitchInst) AddCase(v *ConstantInt, dest *BasicBlock) {
	s.appendOperand(s, v)
	s.appendOperand(s, dest)
}

func (s *SwitchInst) NumCases() int { return (len(s.ops) - 2) / 2 }

func (s *SwitchInst) Cases() []SwitchCase {
	out := make([]SwitchCase, 0, s.NumCases())
	for i := 2; i+1 < len(s.ops); i += 2 {
		v, _ := s.ops[i].val.(*ConstantInt)
		bb, _ := s.ops[i+1].val.(*BasicBlock)
		out = append(out, SwitchCase{Value: v, Dest: bb})
	}
	return out
}

type UnreachableInst struct{ instBase }

func NewUnreachable(ctx *Context) *UnreachableInst {
	u := &UnreachableInst{}
	initInst(&u.instBase, u, Unreachable, ctx.VoidType())
	return u
}

// ---------------------------------------------------------------------------
// Arithmetic, casts and comparisons
// ---------------------------------------------------------------------------

type BinaryOperator struct {
	instBase
	Flags    BinaryFlags
	FastMath FastMathFlags
}

// NewBinaryOperator builds lhs op rhs; the result has the type of lhs.
func NewBinaryOperator(op Opcode, lhs, rhs Value) *BinaryOperator {
	b := &BinaryOperator{}
	initInst(&b.instBase, b, op, lhs.Type(), lhs, rhs)
	return b
}

type CastInst struct{ instBase }

func NewCast(op Opcode, v Value, destTy *Type) *CastInst {
	c := &CastInst{}
	initInst(&c.instBase, c, op, destTy, v)
	return c
}

// SrcType returns the type being converted from.
func (c *CastInst) SrcType() *Type { return c.ops[0].val.Type() }

// CastIsValid reports whether op may convert src to dst.
func CastIsValid(op Opcode, src, dst *Type) bool {
	if !src.IsFirstClass() || !dst.IsFirstClass() || src.IsAggregate() || dst.IsAggregate() {
		return false
	}
	srcBits := src.ScalarType().PrimitiveSizeInBits()
	dstBits := dst.ScalarType().PrimitiveSizeInBits()
	srcLen, dstLen := uint64(0), uint64(0)
	if src.IsVector() {
		srcLen = src.NumElements()
	}
	if dst.IsVector() {
		dstLen = dst.NumElements()
	}

	switch op {
	case Trunc:
		return src.IsIntOrIntVector() && dst.IsIntOrIntVector() && srcLen == dstLen && srcBits > dstBits
	case ZExt, SExt:
		return src.IsIntOrIntVector() && dst.IsIntOrIntVector() && srcLen == dstLen && srcBits < dstBits
	case FPTrunc:
		return src.IsFPOrFPVector() && dst.IsFPOrFPVector() && srcLen == dstLen && srcBits > dstBits
	case FPExt:
		return src.IsFPOrFPVector() && dst.IsFPOrFPVector() && srcLen == dstLen && srcBits < dstBits
	case UIToFP, SIToFP:
		return src.IsIntOrIntVector() && dst.IsFPOrFPVector() && srcLen == dstLen
	case FPToUI, FPToSI:
		return src.IsFPOrFPVector() && dst.IsIntOrIntVector() && srcLen == dstLen
	case PtrToInt:
		return src.ScalarType().IsPointer() && dst.IsIntOrIntVector() && srcLen == dstLen
	case IntToPtr:
		return src.IsIntOrIntVector() && dst.ScalarType().IsPointer() && srcLen == dstLen
	case BitCast:
		srcPtr, dstPtr := src.ScalarType().IsPointer(), dst.ScalarType().IsPointer()
		if srcPtr != dstPtr {
			return false
		}
		if srcPtr {
			return src.ScalarType().AddressSpace() == dst.ScalarType().AddressSpace() && srcLen == dstLen
		}
		return src.PrimitiveSizeInBits() == dst.PrimitiveSizeInBits() && src.PrimitiveSizeInBits() != 0
	case AddrSpaceCast:
		return src.ScalarType().IsPointer() && dst.ScalarType().IsPointer() &&
			src.ScalarType().AddressSpace() != dst.ScalarType().AddressSpace() && srcLen == dstLen
	}
	return false
}

// CmpInst is an icmp or fcmp.
type CmpInst struct {
	instBase
	Predicate Predicate
	FastMath  FastMathFlags
}

func NewCmp(op Opcode, pred Predicate, lhs, rhs Value) *CmpInst {
	c := &CmpInst{Predicate: pred}
	initInst(&c.instBase, c, op, CmpResultType(lhs.Type()), lhs, rhs)
	return c
}

// CmpResultType is i1, or a vector of i1 for vector operands.
func CmpResultType(operand *Type) *Type {
	i1 := operand.ctx.Int1Type()
	if operand.IsVector() {
		return operand.ctx.VectorType(i1, operand.NumElements())
	}
	return i1
}

// ---------------------------------------------------------------------------
// Addressing and aggregates
// ---------------------------------------------------------------------------

// GetElementPtrInst has operands (pointer, indices...).
type GetElementPtrInst struct {
	instBase
	SourceElementType *Type
	InBounds          bool
}

// NewGEP builds a getelementptr, or returns nil if the indices do not
// select an element of srcElemTy.
func NewGEP(srcElemTy *Type, ptr Value, idxs []Value, inBounds bool) *GetElementPtrInst {
	resTy := GEPResultType(srcElemTy, ptr.Type(), idxs)
	if resTy == nil {
		return nil
	}
	g := &GetElementPtrInst{SourceElementType: srcElemTy, InBounds: inBounds}
	initInst(&g.instBase, g, GetElementPtr, resTy, append([]Value{ptr}, idxs...)...)
	return g
}

func (g *GetElementPtrInst) Pointer() Value { return g.ops[0].val }

// GEPResultType computes the type of a GEP of ptrTy over srcElemTy. The
// first index steps over the pointer; each later one selects an element.
// Struct indices must be constant integers. It returns nil when an index
// is invalid.
func GEPResultType(srcElemTy, ptrTy *Type, idxs []Value) *Type {
	cur := srcElemTy
	for i, idx := range idxs {
		if i == 0 {
			continue
		}
		switch cur.kind {
		case StructKind:
			ci, ok := idx.(*ConstantInt)
			if !ok || !cur.IndexValid(ci.ZExtValue()) {
				return nil
			}
			cur = cur.contained[ci.ZExtValue()]
		case ArrayKind, VectorKind:
			cur = cur.contained[0]
		default:
			return nil
		}
	}
	ctx := srcElemTy.ctx
	res := ctx.PointerType(cur, ptrTy.ScalarType().AddressSpace())
	if ptrTy.IsVector() {
		return ctx.VectorType(res, ptrTy.NumElements())
	}
	return res
}

// ExtractValueType returns the type selected by idxs within agg, or nil.
func ExtractValueType(agg *Type, idxs []uint32) *Type {
	cur := agg
	for _, idx := range idxs {
		if !cur.IndexValid(uint64(idx)) {
			return nil
		}
		cur = cur.TypeAtIndex(uint64(idx))
	}
	return cur
}

type SelectInst struct{ instBase }

func NewSelect(cond, ifTrue, ifFalse Value) *SelectInst {
	s := &SelectInst{}
	initInst(&s.instBase, s, Select, ifTrue.Type(), cond, ifTrue, ifFalse)
	return s
}

type ExtractElementInst struct{ instBase }

func NewExtractElement(vec, idx Value) *ExtractElementInst {
	e := &ExtractElementInst{}
	initInst(&e.instBase, e, ExtractElement, vec.Type().ElementType(), vec, idx)
	return e
}

type InsertElementInst struct{ instBase }

func NewInsertElement(vec, elt, idx Value) *InsertElementInst {
	e := &InsertElementInst{}
	initInst(&e.instBase, e, InsertElement, vec.Type(), vec, elt, idx)
	return e
}

type ExtractValueInst struct {
	instBase
	Indices []uint32
}

// NewExtractValue returns nil if idxs does not select an element of agg.
func NewExtractValue(agg Value, idxs []uint32) *ExtractValueInst {
	t := ExtractValueType(agg.Type(), idxs)
	if t == nil || len(idxs) == 0 {
		return nil
	}
	e := &ExtractValueInst{Indices: append([]uint32(nil), idxs...)}
	initInst(&e.instBase, e, ExtractValue, t, agg)
	return e
}

type InsertValueInst struct {
	instBase
	Indices []uint32
}

// NewInsertValue returns nil if idxs does not select an element of agg of
// the type of val.
func NewInsertValue(agg, val Value, idxs []uint32) *InsertValueInst {
	t := ExtractValueType(agg.Type(), idxs)
	if t == nil || t != val.Type() || len(idxs) == 0 {
		return nil
	}
	e := &InsertValueInst{Indices: append([]uint32(nil), idxs...)}
	initInst(&e.instBase, e, InsertValue, agg.Type(), agg, val)
	return e
}

// PHINode merges one incoming value per predecessor. Values are operands;
// the blocks are kept alongside.
type PHINode struct {
	instBase
	blocks   []*BasicBlock
	FastMath FastMathFlags
}

func NewPHI(t *Type) *PHINode {
	p := &PHINode{}
	initInst(&p.instBase, p, PHI, t)
	return p
}

func (p *PHINode) AddIncoming(v Value, bb *BasicBlock) {
	p.appendOperand(p, v)
	p.blocks = append(p.blocks, bb)
}

func (p *PHINode) NumIncoming() int                { return len(p.blocks) }
func (p *PHINode) IncomingValue(i int) Value       { return p.ops[i].val }
func (p *PHINode) IncomingBlock(i int) *BasicBlock { return p.blocks[i] }

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

type AllocaInst struct {
	instBase
	AllocatedType *Type
	Align         uint32
	InAlloca      bool
}

// NewAlloca builds an alloca of arraySize elements of allocTy.
func NewAlloca(allocTy *Type, arraySize Value, align uint32) *AllocaInst {
	a := &AllocaInst{AllocatedType: allocTy, Align: align}
	initInst(&a.instBase, a, Alloca, allocTy.ctx.PointerType(allocTy, 0), arraySize)
	return a
}

func (a *AllocaInst) ArraySize() Value { return a.ops[0].val }

type LoadInst struct {
	instBase
	Align      uint32
	Volatile   bool
	Ordering   AtomicOrdering
	SynchScope SynchScope
}

func NewLoad(t *Type, ptr Value, align uint32, volatile bool) *LoadInst {
	l := &LoadInst{Align: align, Volatile: volatile, SynchScope: CrossThread}
	initInst(&l.instBase, l, Load, t, ptr)
	return l
}

func (l *LoadInst) Pointer() Value { return l.ops[0].val }

// StoreInst has operands (value, pointer).
type StoreInst struct {
	instBase
	Align      uint32
	Volatile   bool
	Ordering   AtomicOrdering
	SynchScope SynchScope
}

func NewStore(val, ptr Value, align uint32, volatile bool) *StoreInst {
	s := &StoreInst{Align: align, Volatile: volatile, SynchScope: CrossThread}
	initInst(&s.instBase, s, Store, ptr.Type().ctx.VoidType(), val, ptr)
	return s
}

func (s *StoreInst) Value() Value   { return s.ops[0].val }
func (s *StoreInst) Pointer() Value { return s.ops[1].val }

type AtomicRMWInst struct {
	instBase
	Operation  AtomicRMWOp
	Ordering   AtomicOrdering
	SynchScope SynchScope
	Volatile   bool
}

func NewAtomicRMW(op AtomicRMWOp, ptr, val Value, ordering AtomicOrdering, scope SynchScope) *AtomicRMWInst {
	a := &AtomicRMWInst{Operation: op, Ordering: ordering, SynchScope: scope}
	initInst(&a.instBase, a, AtomicRMW, val.Type(), ptr, val)
	return a
}

// AtomicCmpXchgInst yields { T, i1 }: the loaded value and a success flag.
type AtomicCmpXchgInst struct {
	instBase
	SuccessOrdering AtomicOrdering
	FailureOrdering AtomicOrdering
	SynchScope      SynchScope
	Volatile        bool
	Weak            bool
}

func NewAtomicCmpXchg(ptr, cmp, newVal Value, success, failure AtomicOrdering, scope SynchScope) *AtomicCmpXchgInst {
	ctx := cmp.Type().ctx
	a := &AtomicCmpXchgInst{SuccessOrdering: success, FailureOrdering: failure, SynchScope: scope}
	t := ctx.StructType([]*Type{cmp.Type(), ctx.Int1Type()}, false)
	initInst(&a.instBase, a, AtomicCmpXchg, t, ptr, cmp, newVal)
	return a
}

type FenceInst struct {
	instBase
	Ordering   AtomicOrdering
	SynchScope SynchScope
}

func NewFence(ctx *Context, ordering AtomicOrdering, scope SynchScope) *FenceInst {
	f := &FenceInst{Ordering: ordering, SynchScope: scope}
	initInst(&f.instBase, f, Fence, ctx.VoidType())
	return f
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// CallInst has operands (args..., callee).
type CallInst struct {
	instBase
	fnType *Type

	TailCall    TailCallKind
	CallingConv CallingConv
	Attributes  AttributeList
	FastMath    FastMathFlags
}

// NewCall builds a call of callee with signature fnType.
func NewCall(fnType *Type, callee Value, args []Value) *CallInst {
	c := &CallInst{fnType: fnType}
	initInst(&c.instBase, c, Call, fnType.ReturnType(), append(append([]Value(nil), args...), callee)...)
	return c
}

func (c *CallInst) FunctionType() *Type { return c.fnType }
func (c *CallInst) Callee() Value       { return c.ops[len(c.ops)-1].val }
func (c *CallInst) NumArgs() int        { return len(c.ops) - 1 }
func (c *CallInst) Arg(i int) Value     { return c.ops[i].val }

// CalledFunction returns the callee if it is a function directly.
func (c *CallInst) CalledFunction() *Function {
	f, _ := c.Callee().(*Function)
	return f
}
