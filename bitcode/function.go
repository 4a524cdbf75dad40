package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// functionParser holds the state of one function body being read.
type functionParser struct {
	r           *Reader
	f           *ir.Function
	nextValueNo uint32
	curBB       *ir.BasicBlock
	curBBNo     int
	lastLoc     *ir.DILocation
}

// parseFunctionBody reads the FUNCTION_BLOCK of f. The cursor must be just
// past the block ID, where rememberAndSkipFunctionBody recorded it.
func (r *Reader) parseFunctionBody(f *ir.Function) (err error) {
	if _, err := r.cursor.EnterSubBlock(functionBlockID); err != nil {
		return r.streamError(err, "entering function block")
	}
	if r.mds.hasFwdRefs() {
		return r.error("invalid function metadata: incoming forward references")
	}

	r.instructionList = r.instructionList[:0]
	moduleValues := r.values.size()
	moduleMDs := r.mds.size()
	defer func() {
		if err != nil {
			r.discardForwardRefs(moduleValues)
			f.DropBody()
		}
		r.values.shrinkTo(moduleValues)
		r.mds.shrinkTo(moduleMDs)
		r.functionBlocks = nil
		r.instructionList = r.instructionList[:0]
	}()

	for _, a := range f.Args() {
		r.values.push(a)
	}
	p := &functionParser{r: r, f: f, nextValueNo: r.values.size()}
	if err := p.run(); err != nil {
		return err
	}
	if refs := r.values.unresolved(moduleValues); len(refs) > 0 {
		return r.errorf("never resolved value found in function %q", f.Name())
	}
	return nil
}

// discardForwardRefs replaces the unresolved forward references left by a
// failed body with undef so that they can be released.
func (r *Reader) discardForwardRefs(start uint32) {
	for _, fr := range r.values.unresolved(start) {
		ir.ReplaceAllUsesWith(fr, r.ctx.Undef(fr.Type()))
		ir.ReleaseValue(fr)
	}
}

func (p *functionParser) run() error {
	r := p.r
	for {
		entry, err := r.cursor.Advance(0)
		if err != nil {
			return r.streamError(err, "reading function block")
		}
		switch entry.Kind {
		case bitstream.EntryEndBlock:
			return nil
		case bitstream.EntrySubBlock:
			if err := p.parseSubBlock(entry.ID); err != nil {
				return err
			}
			continue
		}

		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		inst, err := p.parseRecord(rec)
		if err != nil {
			return err
		}
		if inst == nil {
			continue
		}
		if p.curBB == nil {
			ir.ReleaseValue(inst)
			return r.error("instruction outside of any basic block")
		}
		p.curBB.Append(inst)
		r.instructionList = append(r.instructionList, inst)
		if inst.Opcode().IsTerminator() {
			p.curBBNo++
			p.curBB = r.basicBlock(uint64(p.curBBNo))
		}
		if !inst.Type().IsVoid() {
			if err := r.values.assign(inst, p.nextValueNo); err != nil {
				return r.tableError(err)
			}
			p.nextValueNo++
		}
	}
}

func (p *functionParser) parseSubBlock(id uint32) error {
	r := p.r
	switch id {
	case constantsBlockID:
		if err := r.parseConstants(); err != nil {
			return err
		}
		p.nextValueNo = r.values.size()
	case valueSymtabBlockID:
		return r.parseValueSymbolTable()
	case metadataAttachmentID:
		return r.parseMetadataAttachment(p.f)
	case metadataBlockID:
		return r.parseMetadata()
	case uselistBlockID:
		return r.parseUseLists()
	default:
		if err := r.cursor.SkipBlock(); err != nil {
			return r.streamError(err, "skipping unknown block in function")
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

// adjust turns an operand into an absolute value ID.
func (p *functionParser) adjust(v uint64) uint32 {
	id := uint32(v)
	if p.r.useRelativeIDs {
		id = p.nextValueNo - id
	}
	return id
}

// fnValueByID resolves an absolute ID. Metadata-typed operands name
// metadata IDs instead of values.
func (p *functionParser) fnValueByID(id uint32, t *ir.Type) ir.Value {
	if t != nil && t.IsMetadata() {
		return p.r.ctx.MetadataAsValue(p.r.mds.fwdRef(id))
	}
	return p.r.values.valueFwdRef(id, t)
}

// valueTypePair reads a value at *slot. Forward references carry an extra
// type operand.
func (p *functionParser) valueTypePair(ops []uint64, slot *int) ir.Value {
	if *slot >= len(ops) {
		return nil
	}
	id := p.adjust(ops[*slot])
	*slot++
	if id < p.nextValueNo {
		return p.fnValueByID(id, nil)
	}
	if *slot >= len(ops) {
		return nil
	}
	t := p.r.typeByID(ops[*slot])
	*slot++
	if t == nil {
		return nil
	}
	return p.fnValueByID(id, t)
}

// value reads a value of known type t at slot.
func (p *functionParser) value(ops []uint64, slot int, t *ir.Type) ir.Value {
	if slot >= len(ops) {
		return nil
	}
	return p.fnValueByID(p.adjust(ops[slot]), t)
}

// popValue is value followed by advancing *slot.
func (p *functionParser) popValue(ops []uint64, slot *int, t *ir.Type) ir.Value {
	v := p.value(ops, *slot, t)
	if v != nil {
		*slot++
	}
	return v
}

// valueSigned reads a sign-rotated relative operand, used by PHI nodes
// whose incoming values may be defined later.
func (p *functionParser) valueSigned(ops []uint64, slot int, t *ir.Type) ir.Value {
	if slot >= len(ops) {
		return nil
	}
	id := uint32(decodeSignRotated(ops[slot]))
	if p.r.useRelativeIDs {
		id = p.nextValueNo - id
	}
	return p.fnValueByID(id, t)
}

func (p *functionParser) lastInstruction() ir.Instruction {
	if p.curBB != nil && p.curBB.Len() > 0 {
		insts := p.curBB.Instructions()
		return insts[len(insts)-1]
	}
	if p.curBBNo > 0 {
		if prev := p.r.basicBlock(uint64(p.curBBNo - 1)); prev != nil && prev.Len() > 0 {
			insts := prev.Instructions()
			return insts[len(insts)-1]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// parseRecord decodes one function record. It returns the new instruction,
// or nil for records that do not create one.
func (p *functionParser) parseRecord(rec bitstream.Record) (ir.Instruction, error) {
	r := p.r
	ops := rec.Ops
	invalid := func() (ir.Instruction, error) {
		return nil, r.errorf("invalid record (code %d) in function %q", rec.Code, p.f.Name())
	}

	switch rec.Code {
	case funcCodeDeclareBlocks:
		return nil, p.declareBlocks(ops)

	case funcCodeDebugLocAgain:
		inst := p.lastInstruction()
		if inst == nil || p.lastLoc == nil {
			return invalid()
		}
		setDebugLoc(inst, p.lastLoc)
		return nil, nil

	case funcCodeDebugLoc:
		// DEBUG_LOC: [line, col, scope+1, inlined-at+1]
		inst := p.lastInstruction()
		if inst == nil || len(ops) < 4 {
			return invalid()
		}
		loc := &ir.DILocation{Line: uint32(ops[0]), Column: uint32(ops[1])}
		if ops[2] != 0 {
			loc.Scope = r.mds.fwdRef(uint32(ops[2] - 1))
		}
		if ops[3] != 0 {
			loc.InlinedAt = r.mds.fwdRef(uint32(ops[3] - 1))
		}
		if r.mds.hasFwdRefs() {
			r.mds.track(loc)
		}
		p.lastLoc = loc
		setDebugLoc(inst, loc)
		return nil, nil

	case funcCodeInstBinop:
		// BINOP: [opval, ty, opval, opcode, flags?]
		slot := 0
		lhs := p.valueTypePair(ops, &slot)
		if lhs == nil {
			return invalid()
		}
		rhs := p.popValue(ops, &slot, lhs.Type())
		if rhs == nil || slot+1 > len(ops) {
			return invalid()
		}
		op, ok := decodeBinaryOpcode(ops[slot], lhs.Type())
		if !ok {
			return invalid()
		}
		slot++
		bo := ir.NewBinaryOperator(op, lhs, rhs)
		if slot < len(ops) {
			if op.IsFPBinaryOp() {
				bo.FastMath = decodeFastMathFlags(ops[slot])
			} else {
				bo.Flags = decodeBinaryFlags(op, ops[slot])
			}
		}
		return bo, nil

	case funcCodeInstCast:
		// CAST: [opval, opty, destty, castopc]
		slot := 0
		v := p.valueTypePair(ops, &slot)
		if v == nil || slot+2 != len(ops) {
			return invalid()
		}
		destTy := r.typeByID(ops[slot])
		op, ok := decodeCastOpcode(ops[slot+1])
		if !ok || destTy == nil {
			return invalid()
		}
		if !ir.CastIsValid(op, v.Type(), destTy) {
			return nil, r.errorf("invalid cast %s from %s to %s", op, v.Type(), destTy)
		}
		return ir.NewCast(op, v, destTy), nil

	case funcCodeInstGEP, funcCodeInstGEPOld, funcCodeInstInboundsGEPOld:
		return p.parseGEP(rec)

	case funcCodeInstExtractVal:
		// EXTRACTVAL: [opty, opval, n x indices]
		slot := 0
		agg := p.valueTypePair(ops, &slot)
		if agg == nil || slot == len(ops) {
			return invalid()
		}
		idxs, _, err := p.aggregateIndices(agg.Type(), ops[slot:])
		if err != nil {
			return nil, err
		}
		ev := ir.NewExtractValue(agg, idxs)
		if ev == nil {
			return invalid()
		}
		return ev, nil

	case funcCodeInstInsertVal:
		// INSERTVAL: [opty, opval, opty, opval, n x indices]
		slot := 0
		agg := p.valueTypePair(ops, &slot)
		if agg == nil {
			return invalid()
		}
		val := p.valueTypePair(ops, &slot)
		if val == nil || slot == len(ops) {
			return invalid()
		}
		idxs, elemTy, err := p.aggregateIndices(agg.Type(), ops[slot:])
		if err != nil {
			return nil, err
		}
		if elemTy != val.Type() {
			return nil, r.error("inserted value type doesn't match aggregate type")
		}
		iv := ir.NewInsertValue(agg, val, idxs)
		if iv == nil {
			return invalid()
		}
		return iv, nil

	case funcCodeInstSelect:
		// SELECT: [opval, ty, opval, opval] with an i1 condition
		slot := 0
		t := p.valueTypePair(ops, &slot)
		if t == nil {
			return invalid()
		}
		f := p.popValue(ops, &slot, t.Type())
		if f == nil {
			return invalid()
		}
		cond := p.popValue(ops, &slot, r.ctx.Int1Type())
		if cond == nil {
			return invalid()
		}
		return ir.NewSelect(cond, t, f), nil

	case funcCodeInstVSelect:
		// VSELECT: [ty, opval, opval, predty, pred]
		slot := 0
		t := p.valueTypePair(ops, &slot)
		if t == nil {
			return invalid()
		}
		f := p.popValue(ops, &slot, t.Type())
		if f == nil {
			return invalid()
		}
		cond := p.valueTypePair(ops, &slot)
		if cond == nil {
			return invalid()
		}
		if ct := cond.Type(); ct.IsVector() {
			if !ct.ElementType().IsIntegerN(1) {
				return nil, r.error("invalid type for select condition")
			}
		} else if !ct.IsIntegerN(1) {
			return nil, r.error("invalid type for select condition")
		}
		return ir.NewSelect(cond, t, f), nil

	case funcCodeInstExtractElt:
		// EXTRACTELT: [opty, opval, opty, opval]
		slot := 0
		vec := p.valueTypePair(ops, &slot)
		if vec == nil {
			return invalid()
		}
		idx := p.valueTypePair(ops, &slot)
		if idx == nil {
			return invalid()
		}
		if !vec.Type().IsVector() {
			return nil, r.error("extractelement of a non-vector")
		}
		return ir.NewExtractElement(vec, idx), nil

	case funcCodeInstInsertElt:
		// INSERTELT: [ty, opval, opval, opval]
		slot := 0
		vec := p.valueTypePair(ops, &slot)
		if vec == nil {
			return invalid()
		}
		if !vec.Type().IsVector() {
			return nil, r.error("insertelement into a non-vector")
		}
		elt := p.popValue(ops, &slot, vec.Type().ElementType())
		if elt == nil {
			return invalid()
		}
		idx := p.valueTypePair(ops, &slot)
		if idx == nil {
			return invalid()
		}
		return ir.NewInsertElement(vec, elt, idx), nil

	case funcCodeInstCmp, funcCodeInstCmp2:
		// CMP2: [opty, opval, opval, pred, fmf?]
		slot := 0
		lhs := p.valueTypePair(ops, &slot)
		if lhs == nil {
			return invalid()
		}
		rhs := p.popValue(ops, &slot, lhs.Type())
		if rhs == nil || (slot+1 != len(ops) && slot+2 != len(ops)) {
			return invalid()
		}
		op, pred, err := r.comparison(lhs.Type(), ops[slot])
		if err != nil {
			return nil, err
		}
		cmp := ir.NewCmp(op, pred, lhs, rhs)
		if slot+2 == len(ops) && op == ir.FCmp {
			cmp.FastMath = decodeFastMathFlags(ops[slot+1])
		}
		return cmp, nil

	case funcCodeInstRet:
		// RET: [opty, opval?]
		if len(ops) == 0 {
			return ir.NewRet(r.ctx, nil), nil
		}
		slot := 0
		v := p.valueTypePair(ops, &slot)
		if v == nil || slot != len(ops) {
			return invalid()
		}
		return ir.NewRet(r.ctx, v), nil

	case funcCodeInstBr:
		// BR: [bb#, bb#, cond] or [bb#]
		if len(ops) != 1 && len(ops) != 3 {
			return invalid()
		}
		t := r.basicBlock(ops[0])
		if t == nil {
			return invalid()
		}
		if len(ops) == 1 {
			return ir.NewBr(t), nil
		}
		f := r.basicBlock(ops[1])
		cond := p.value(ops, 2, r.ctx.Int1Type())
		if f == nil || cond == nil {
			return invalid()
		}
		return ir.NewCondBr(cond, t, f), nil

	case funcCodeInstSwitch:
		return p.parseSwitch(ops)

	case funcCodeInstUnreachable:
		return ir.NewUnreachable(r.ctx), nil

	case funcCodeInstPHI:
		// PHI: [ty, val0, bb0, ...]
		if len(ops) < 1 || (len(ops)-1)%2 != 0 {
			return invalid()
		}
		t := r.typeByID(ops[0])
		if t == nil {
			return invalid()
		}
		phi := ir.NewPHI(t)
		for i := 1; i+1 < len(ops); i += 2 {
			var v ir.Value
			if r.useRelativeIDs {
				v = p.valueSigned(ops, i, t)
			} else {
				v = p.value(ops, i, t)
			}
			bb := r.basicBlock(ops[i+1])
			if v == nil || bb == nil {
				return invalid()
			}
			phi.AddIncoming(v, bb)
		}
		return phi, nil

	case funcCodeInstAlloca:
		return p.parseAlloca(ops)

	case funcCodeInstLoad, funcCodeInstLoadAtomic:
		return p.parseLoad(rec)

	case funcCodeInstStore, funcCodeInstStoreOld, funcCodeInstStoreAtomic, funcCodeInstStoreAtomicOld:
		return p.parseStore(rec)

	case funcCodeInstCmpXchg:
		return p.parseCmpXchg(ops)

	case funcCodeInstAtomicRMW:
		// ATOMICRMW: [ptrty, ptr, val, op, vol, ordering, synchscope]
		slot := 0
		ptr := p.valueTypePair(ops, &slot)
		if ptr == nil || !ptr.Type().IsPointer() {
			return invalid()
		}
		val := p.popValue(ops, &slot, ptr.Type().ElementType())
		if val == nil || slot+4 != len(ops) {
			return invalid()
		}
		op, ok := decodeRMWOp(ops[slot])
		if !ok {
			return invalid()
		}
		ordering := decodeOrdering(ops[slot+2])
		if ordering == ir.NotAtomic || ordering == ir.Unordered {
			return invalid()
		}
		rmw := ir.NewAtomicRMW(op, ptr, val, ordering, decodeSynchScope(ops[slot+3]))
		rmw.Volatile = ops[slot+1] != 0
		return rmw, nil

	case funcCodeInstFence:
		// FENCE: [ordering, synchscope]
		if len(ops) != 2 {
			return invalid()
		}
		ordering := decodeOrdering(ops[0])
		if ordering == ir.NotAtomic || ordering == ir.Unordered || ordering == ir.Monotonic {
			return invalid()
		}
		return ir.NewFence(r.ctx, ordering, decodeSynchScope(ops[1])), nil

	case funcCodeInstCall:
		return p.parseCall(ops)

	case funcCodeInstShuffleVec:
		return nil, r.notImplemented("shufflevector")
	case funcCodeInstInvoke, funcCodeInstResume, funcCodeInstLandingPad, funcCodeInstLandingPadOld:
		return nil, r.notImplemented("exception handling instructions")
	case funcCodeInstIndirectBr:
		return nil, r.notImplemented("indirectbr")
	case funcCodeInstVAArg:
		return nil, r.notImplemented("va_arg")
	case funcCodeInstCmpXchgOld:
		return nil, r.notImplemented("pre-3.5 cmpxchg")
	}
	return nil, r.errorf("unknown instruction record code %d", rec.Code)
}

func setDebugLoc(inst ir.Instruction, loc *ir.DILocation) {
	if s, ok := inst.(interface{ SetDebugLoc(*ir.DILocation) }); ok {
		s.SetDebugLoc(loc)
	}
}

// declareBlocks creates the blocks of the function, adopting any created
// earlier for blockaddress constants.
func (p *functionParser) declareBlocks(ops []uint64) error {
	r := p.r
	if len(ops) < 1 || ops[0] == 0 {
		return r.error("invalid DECLAREBLOCKS record")
	}
	if len(r.functionBlocks) != 0 {
		return r.error("multiple DECLAREBLOCKS records")
	}
	if ops[0] > uint64(r.cursor.Reader().Len()) {
		return r.error("DECLAREBLOCKS count exceeds stream")
	}
	n := int(ops[0])
	refs := r.blockFwdRefs[p.f]
	if len(refs) > n {
		return r.error("blockaddress refers past the last block")
	}
	r.functionBlocks = make([]*ir.BasicBlock, n)
	for i := range r.functionBlocks {
		bb := (*ir.BasicBlock)(nil)
		if i < len(refs) {
			bb = refs[i]
		}
		if bb == nil {
			bb = ir.NewBasicBlock(r.ctx, "")
		}
		p.f.AppendBlock(bb)
		r.functionBlocks[i] = bb
	}
	delete(r.blockFwdRefs, p.f)
	p.curBB = r.functionBlocks[0]
	p.curBBNo = 0
	return nil
}

// aggregateIndices validates extractvalue and insertvalue indices and
// returns the selected element type.
func (p *functionParser) aggregateIndices(t *ir.Type, ops []uint64) ([]uint32, *ir.Type, error) {
	r := p.r
	idxs := make([]uint32, 0, len(ops))
	cur := t
	for _, idx := range ops {
		switch {
		case cur.IsStruct():
			if idx >= uint64(cur.NumFields()) {
				return nil, nil, r.error("invalid struct index")
			}
			cur = cur.FieldType(int(idx))
		case cur.IsArray():
			if idx >= cur.NumElements() {
				return nil, nil, r.error("invalid array index")
			}
			cur = cur.ElementType()
		default:
			return nil, nil, r.error("aggregate index into a non-aggregate type")
		}
		idxs = append(idxs, uint32(idx))
	}
	return idxs, cur, nil
}

// parseGEP decodes GEP: [inbounds, ty, n x operands], or the older forms
// without the explicit type.
func (p *functionParser) parseGEP(rec bitstream.Record) (ir.Instruction, error) {
	r := p.r
	ops := rec.Ops
	slot := 0
	var srcTy *ir.Type
	inBounds := rec.Code == funcCodeInstInboundsGEPOld
	if rec.Code == funcCodeInstGEP {
		if len(ops) < 2 {
			return nil, r.error("invalid GEP record")
		}
		inBounds = ops[0] != 0
		if srcTy = r.typeByID(ops[1]); srcTy == nil {
			return nil, r.error("invalid GEP source type")
		}
		slot = 2
	}
	base := p.valueTypePair(ops, &slot)
	if base == nil || !base.Type().ScalarType().IsPointer() {
		return nil, r.error("invalid GEP base pointer")
	}
	pointee := base.Type().ScalarType().ElementType()
	if srcTy == nil {
		srcTy = pointee
	} else if srcTy != pointee {
		return nil, r.error("explicit gep type does not match pointee type of pointer operand")
	}
	var idxs []ir.Value
	for slot != len(ops) {
		idx := p.valueTypePair(ops, &slot)
		if idx == nil {
			return nil, r.error("invalid GEP index")
		}
		idxs = append(idxs, idx)
	}
	gep := ir.NewGEP(srcTy, base, idxs, inBounds)
	if gep == nil {
		return nil, r.error("invalid GEP indices")
	}
	return gep, nil
}

// parseSwitch decodes SWITCH: [opty, cond, default, (value, dest)...].
// Case values are absolute constant IDs.
func (p *functionParser) parseSwitch(ops []uint64) (ir.Instruction, error) {
	r := p.r
	if len(ops) > 0 && ops[0]>>16 == switchInstMagic {
		return nil, r.notImplemented("case-range switch encoding")
	}
	if len(ops) < 3 || len(ops)%2 == 0 {
		return nil, r.error("invalid SWITCH record")
	}
	opTy := r.typeByID(ops[0])
	if opTy == nil {
		return nil, r.error("invalid SWITCH condition type")
	}
	cond := p.value(ops, 1, opTy)
	def := r.basicBlock(ops[2])
	if cond == nil || def == nil {
		return nil, r.error("invalid SWITCH record")
	}
	sw := ir.NewSwitch(cond, def)
	for i := 3; i+1 < len(ops); i += 2 {
		ci, ok := p.fnValueByID(uint32(ops[i]), opTy).(*ir.ConstantInt)
		dest := r.basicBlock(ops[i+1])
		if !ok || dest == nil {
			sw.DropAllReferences()
			return nil, r.error("invalid SWITCH case")
		}
		sw.AddCase(ci, dest)
	}
	return sw, nil
}

// parseAlloca decodes ALLOCA: [instty, opty, op, align]. The size operand
// is an absolute ID.
func (p *functionParser) parseAlloca(ops []uint64) (ir.Instruction, error) {
	r := p.r
	if len(ops) != 4 {
		return nil, r.error("invalid ALLOCA record")
	}
	alignRec := ops[3]
	t := r.typeByID(ops[0])
	if alignRec&allocaExplicitTypeMask == 0 {
		if t == nil || !t.IsPointer() {
			return nil, r.error("old-style alloca with a non-pointer type")
		}
		t = t.ElementType()
	}
	opTy := r.typeByID(ops[1])
	var size ir.Value
	if opTy != nil {
		size = p.fnValueByID(uint32(ops[2]), opTy)
	}
	align, err := r.decodeAlignment(alignRec &^ (allocaInAllocaMask | allocaExplicitTypeMask))
	if err != nil {
		return nil, err
	}
	if t == nil || size == nil {
		return nil, r.error("invalid ALLOCA record")
	}
	a := ir.NewAlloca(t, size, align)
	a.InAlloca = alignRec&allocaInAllocaMask != 0
	return a, nil
}

// checkLoadStoreType verifies ptrTy points to a loadable type equal to
// valTy when valTy is given.
func (r *Reader) checkLoadStoreType(valTy, ptrTy *ir.Type) error {
	if !ptrTy.IsPointer() {
		return r.error("load/store operand is not a pointer type")
	}
	elem := ptrTy.ElementType()
	if valTy != nil && valTy != elem {
		return r.error("explicit load/store type does not match pointee type of pointer operand")
	}
	if !elem.IsFirstClass() || elem.IsLabel() || elem.IsMetadata() {
		return r.error("cannot load/store from pointer")
	}
	return nil
}

// parseLoad decodes LOAD: [opty, op, ty?, align, vol] and LOADATOMIC,
// which adds [ordering, synchscope].
func (p *functionParser) parseLoad(rec bitstream.Record) (ir.Instruction, error) {
	r := p.r
	ops := rec.Ops
	atomic := rec.Code == funcCodeInstLoadAtomic
	tail := 2
	if atomic {
		tail = 4
	}
	slot := 0
	ptr := p.valueTypePair(ops, &slot)
	if ptr == nil || (slot+tail != len(ops) && slot+tail+1 != len(ops)) {
		return nil, r.error("invalid LOAD record")
	}
	var t *ir.Type
	if slot+tail+1 == len(ops) {
		if t = r.typeByID(ops[slot]); t == nil {
			return nil, r.error("invalid LOAD type")
		}
		slot++
	}
	if err := r.checkLoadStoreType(t, ptr.Type()); err != nil {
		return nil, err
	}
	if t == nil {
		t = ptr.Type().ElementType()
	}
	align, err := r.decodeAlignment(ops[slot])
	if err != nil {
		return nil, err
	}
	ld := ir.NewLoad(t, ptr, align, ops[slot+1] != 0)
	if atomic {
		ordering := decodeOrdering(ops[slot+2])
		if ordering == ir.NotAtomic || ordering == ir.Release || ordering == ir.AcquireRelease {
			return nil, r.error("invalid ordering for atomic load")
		}
		if ops[slot] == 0 {
			return nil, r.error("atomic load without alignment")
		}
		ld.Ordering = ordering
		ld.SynchScope = decodeSynchScope(ops[slot+3])
	}
	return ld, nil
}

// parseStore decodes STORE: [ptrty, ptr, valty, val, align, vol] and the
// atomic and older forms.
func (p *functionParser) parseStore(rec bitstream.Record) (ir.Instruction, error) {
	r := p.r
	ops := rec.Ops
	atomic := rec.Code == funcCodeInstStoreAtomic || rec.Code == funcCodeInstStoreAtomicOld
	explicitVal := rec.Code == funcCodeInstStore || rec.Code == funcCodeInstStoreAtomic
	slot := 0
	ptr := p.valueTypePair(ops, &slot)
	if ptr == nil {
		return nil, r.error("invalid STORE record")
	}
	var val ir.Value
	if explicitVal {
		val = p.valueTypePair(ops, &slot)
	} else if ptr.Type().IsPointer() {
		val = p.popValue(ops, &slot, ptr.Type().ElementType())
	}
	tail := 2
	if atomic {
		tail = 4
	}
	if val == nil || slot+tail != len(ops) {
		return nil, r.error("invalid STORE record")
	}
	if err := r.checkLoadStoreType(val.Type(), ptr.Type()); err != nil {
		return nil, err
	}
	align, err := r.decodeAlignment(ops[slot])
	if err != nil {
		return nil, err
	}
	st := ir.NewStore(val, ptr, align, ops[slot+1] != 0)
	if atomic {
		ordering := decodeOrdering(ops[slot+2])
		if ordering == ir.NotAtomic || ordering == ir.Acquire || ordering == ir.AcquireRelease {
			st.DropAllReferences()
			return nil, r.error("invalid ordering for atomic store")
		}
		if ops[slot] == 0 {
			st.DropAllReferences()
			return nil, r.error("atomic store without alignment")
		}
		st.Ordering = ordering
		st.SynchScope = decodeSynchScope(ops[slot+3])
	}
	return st, nil
}

// parseCmpXchg decodes CMPXCHG: [ptrty, ptr, cmp, new, vol, success,
// synchscope, failure?, weak?]. Records without the weak flag come from
// files where cmpxchg returned only the loaded value; the instruction is
// then followed by an extractvalue of that value.
func (p *functionParser) parseCmpXchg(ops []uint64) (ir.Instruction, error) {
	r := p.r
	slot := 0
	ptr := p.valueTypePair(ops, &slot)
	if ptr == nil {
		return nil, r.error("invalid CMPXCHG record")
	}
	cmp := p.valueTypePair(ops, &slot)
	if cmp == nil {
		return nil, r.error("invalid CMPXCHG record")
	}
	newVal := p.popValue(ops, &slot, cmp.Type())
	if newVal == nil || len(ops) < slot+3 || len(ops) > slot+5 {
		return nil, r.error("invalid CMPXCHG record")
	}
	success := decodeOrdering(ops[slot+1])
	if success == ir.NotAtomic || success == ir.Unordered {
		return nil, r.error("invalid cmpxchg success ordering")
	}
	scope := decodeSynchScope(ops[slot+2])
	if err := r.checkLoadStoreType(cmp.Type(), ptr.Type()); err != nil {
		return nil, err
	}
	failure := strongestFailureOrdering(success)
	if len(ops) >= 7 && slot+3 < len(ops) {
		failure = decodeOrdering(ops[slot+3])
	}
	cx := ir.NewAtomicCmpXchg(ptr, cmp, newVal, success, failure, scope)
	cx.Volatile = ops[slot] != 0
	if len(ops) < 8 || slot+4 >= len(ops) {
		if p.curBB == nil {
			return nil, r.error("instruction outside of any basic block")
		}
		p.curBB.Append(cx)
		return ir.NewExtractValue(cx, []uint32{0}), nil
	}
	cx.Weak = ops[slot+4] != 0
	return cx, nil
}

// parseCall decodes CALL: [paramattrs, cc, fmf?, fnty?, fnid, args...].
func (p *functionParser) parseCall(ops []uint64) (ir.Instruction, error) {
	r := p.r
	if len(ops) < 3 {
		return nil, r.error("invalid CALL record")
	}
	attrs := r.attributesByID(ops[0])
	ccInfo := ops[1]
	slot := 2

	var fnTy *ir.Type
	if ccInfo>>callExplicitType&1 != 0 {
		fnTy = r.typeByID(ops[slot])
		slot++
		if fnTy == nil || !fnTy.IsFunction() {
			return nil, r.error("explicit call type is not a function type")
		}
	}
	callee := p.valueTypePair(ops, &slot)
	if callee == nil {
		return nil, r.error("invalid CALL callee")
	}
	if !callee.Type().IsPointer() {
		return nil, r.error("callee is not a pointer type")
	}
	pointee := callee.Type().ElementType()
	if fnTy == nil {
		if !pointee.IsFunction() {
			return nil, r.error("callee is not of pointer to function type")
		}
		fnTy = pointee
	} else if pointee != fnTy {
		return nil, r.error("explicit call type does not match pointee type of callee operand")
	}
	if len(ops) < fnTy.NumParams()+slot {
		return nil, r.error("insufficient operands to call")
	}

	args := make([]ir.Value, 0, fnTy.NumParams())
	for i := 0; i < fnTy.NumParams(); i, slot = i+1, slot+1 {
		pt := fnTy.ParamType(i)
		var arg ir.Value
		if pt.IsLabel() {
			if bb := r.basicBlock(ops[slot]); bb != nil {
				arg = bb
			}
		} else {
			arg = p.value(ops, slot, pt)
		}
		if arg == nil {
			return nil, r.errorf("invalid argument %d to call", i)
		}
		args = append(args, arg)
	}
	if !fnTy.IsVarArg() {
		if slot != len(ops) {
			return nil, r.error("too many operands to call")
		}
	} else {
		for slot != len(ops) {
			arg := p.valueTypePair(ops, &slot)
			if arg == nil {
				return nil, r.error("invalid variadic argument to call")
			}
			args = append(args, arg)
		}
	}

	call := ir.NewCall(fnTy, callee, args)
	call.CallingConv = ir.CallingConv((ccInfo &^ (1<<callMustTail | 1<<callExplicitType)) >> callCConv)
	switch {
	case ccInfo&(1<<callMustTail) != 0:
		call.TailCall = ir.TailCallMustTail
	case ccInfo&(1<<callTail) != 0:
		call.TailCall = ir.TailCallTail
	}
	call.Attributes = attrs
	return call, nil
}
