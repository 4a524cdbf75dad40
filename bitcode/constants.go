package bitcode

import (
	"math/big"

	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// parseConstants reads a CONSTANTS_BLOCK. Constants take consecutive value
// IDs; operands refer to absolute IDs and may point forward within the
// block, in which case a placeholder stands in until the block ends.
func (r *Reader) parseConstants() error {
	if _, err := r.cursor.EnterSubBlock(constantsBlockID); err != nil {
		return r.streamError(err, "entering constants block")
	}
	curTy := r.ctx.IntType(32)
	nextCstNo := r.values.size()
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading constants block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			if nextCstNo != r.values.size() {
				return r.error("invalid constant reference")
			}
			if err := r.values.resolveConstantForwardRefs(); err != nil {
				return r.tableError(err)
			}
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if rec.Code == cstCodeSetType {
			if len(rec.Ops) == 0 || rec.Ops[0] >= uint64(len(r.types)) || r.types[rec.Ops[0]] == nil {
				return r.error("invalid SETTYPE record")
			}
			curTy = r.types[rec.Ops[0]]
			continue
		}
		v, err := r.parseConstant(rec, curTy)
		if err != nil {
			return err
		}
		if err := r.values.assign(v, nextCstNo); err != nil {
			return r.tableError(err)
		}
		nextCstNo++
	}
}

func (r *Reader) parseConstant(rec bitstream.Record, curTy *ir.Type) (ir.Constant, error) {
	ops := rec.Ops
	switch rec.Code {
	case cstCodeNull:
		if curTy.IsVoid() || curTy.IsFunction() || curTy.IsLabel() || curTy.IsMetadata() {
			return nil, r.error("invalid type for null constant")
		}
		return r.ctx.NullValue(curTy), nil

	case cstCodeInteger:
		if !curTy.IsInteger() || len(ops) == 0 {
			return nil, r.error("invalid INTEGER record")
		}
		return r.ctx.ConstantInt(curTy, decodeSignRotated(ops[0])), nil

	case cstCodeWideInteger:
		if !curTy.IsInteger() || len(ops) == 0 {
			return nil, r.error("invalid WIDE_INTEGER record")
		}
		return r.ctx.ConstantBigInt(curTy, wideInt(ops)), nil

	case cstCodeFloat:
		if len(ops) == 0 {
			return nil, r.error("invalid FLOAT record")
		}
		return r.floatConstant(curTy, ops)

	case cstCodeAggregate:
		if len(ops) == 0 {
			return nil, r.error("invalid AGGREGATE record")
		}
		return r.aggregateConstant(curTy, ops)

	case cstCodeString, cstCodeCString:
		if len(ops) == 0 {
			return nil, r.error("invalid STRING record")
		}
		elems := make([]uint64, len(ops), len(ops)+1)
		for i, c := range ops {
			elems[i] = c & 0xff
		}
		if rec.Code == cstCodeCString {
			elems = append(elems, 0)
		}
		t := r.ctx.ArrayType(r.ctx.IntType(8), uint64(len(elems)))
		return ir.NewConstantData(t, elems), nil

	case cstCodeData:
		return r.dataConstant(curTy, ops)

	case cstCodeCEBinop:
		// CE_BINOP: [opcode, opval, opval]
		if len(ops) < 3 {
			return nil, r.error("invalid CE_BINOP record")
		}
		op, ok := decodeBinaryOpcode(ops[0], curTy)
		if !ok {
			return r.ctx.Undef(curTy), nil
		}
		lhs, err := r.constRef(ops[1], curTy)
		if err != nil {
			return nil, err
		}
		rhs, err := r.constRef(ops[2], curTy)
		if err != nil {
			return nil, err
		}
		var flags ir.BinaryFlags
		if len(ops) >= 4 {
			flags = decodeBinaryFlags(op, ops[3])
		}
		return ir.NewConstantBinOp(op, lhs, rhs, flags), nil

	case cstCodeCECast:
		// CE_CAST: [opcode, opty, opval]
		if len(ops) < 3 {
			return nil, r.error("invalid CE_CAST record")
		}
		op, ok := decodeCastOpcode(ops[0])
		if !ok {
			return r.ctx.Undef(curTy), nil
		}
		opTy := r.typeByID(ops[1])
		if opTy == nil {
			return nil, r.error("invalid CE_CAST operand type")
		}
		c, err := r.constRef(ops[2], opTy)
		if err != nil {
			return nil, err
		}
		if !ir.CastIsValid(op, opTy, curTy) {
			return nil, r.errorf("invalid constant cast %s from %s to %s", op, opTy, curTy)
		}
		return ir.NewConstantCast(op, c, curTy), nil

	case cstCodeCEGEP, cstCodeCEInboundsGEP:
		return r.gepConstant(ops, rec.Code == cstCodeCEInboundsGEP)

	case cstCodeCESelect:
		// CE_SELECT: [opval, opval, opval]
		if len(ops) < 3 {
			return nil, r.error("invalid CE_SELECT record")
		}
		selTy := r.ctx.Int1Type()
		if curTy.IsVector() && ops[0] < uint64(r.values.size()) {
			if v := r.values.get(uint32(ops[0])); v != nil && v.Type() != selTy {
				selTy = r.ctx.VectorType(selTy, curTy.NumElements())
			}
		}
		cond, err := r.constRef(ops[0], selTy)
		if err != nil {
			return nil, err
		}
		t, err := r.constRef(ops[1], curTy)
		if err != nil {
			return nil, err
		}
		f, err := r.constRef(ops[2], curTy)
		if err != nil {
			return nil, err
		}
		return ir.NewConstantSelect(cond, t, f), nil

	case cstCodeCEExtractElt:
		// CE_EXTRACTELT: [opty, opval, opty, opval]
		if len(ops) < 3 {
			return nil, r.error("invalid CE_EXTRACTELT record")
		}
		vecTy := r.typeByID(ops[0])
		if vecTy == nil || !vecTy.IsVector() {
			return nil, r.error("invalid CE_EXTRACTELT vector type")
		}
		vec, err := r.constRef(ops[1], vecTy)
		if err != nil {
			return nil, err
		}
		idx, err := r.constIndex(ops[2:])
		if err != nil {
			return nil, err
		}
		return ir.NewConstantExtractElement(vec, idx), nil

	case cstCodeCEInsertElt:
		// CE_INSERTELT: [opval, opval, opty, opval]
		if len(ops) < 3 || !curTy.IsVector() {
			return nil, r.error("invalid CE_INSERTELT record")
		}
		vec, err := r.constRef(ops[0], curTy)
		if err != nil {
			return nil, err
		}
		elt, err := r.constRef(ops[1], curTy.ElementType())
		if err != nil {
			return nil, err
		}
		idx, err := r.constIndex(ops[2:])
		if err != nil {
			return nil, err
		}
		return ir.NewConstantInsertElement(vec, elt, idx), nil

	case cstCodeCECmp:
		// CE_CMP: [opty, opval, opval, pred]
		if len(ops) < 4 {
			return nil, r.error("invalid CE_CMP record")
		}
		opTy := r.typeByID(ops[0])
		if opTy == nil {
			return nil, r.error("invalid CE_CMP operand type")
		}
		lhs, err := r.constRef(ops[1], opTy)
		if err != nil {
			return nil, err
		}
		rhs, err := r.constRef(ops[2], opTy)
		if err != nil {
			return nil, err
		}
		op, pred, err := r.comparison(opTy, ops[3])
		if err != nil {
			return nil, err
		}
		return ir.NewConstantCmp(op, pred, lhs, rhs), nil

	case cstCodeBlockAddress:
		return r.blockAddressConstant(ops)

	case cstCodeCEShuffleVec, cstCodeCEShufVecEx:
		return nil, r.notImplemented("constant shufflevector")
	case cstCodeInlineAsm, cstCodeInlineAsmOld:
		return nil, r.notImplemented("inline assembly")
	}
	// UNDEF and unknown codes.
	return r.ctx.Undef(curTy), nil
}

func (r *Reader) constRef(id uint64, t *ir.Type) (ir.Constant, error) {
	if id > uint64(^uint32(0)) {
		return nil, r.error("invalid constant ID")
	}
	c, err := r.values.constantFwdRef(uint32(id), t)
	if err != nil {
		return nil, r.tableError(err)
	}
	return c, nil
}

// constIndex reads a vector index: [opty, opval], or a bare i32 value in
// older files.
func (r *Reader) constIndex(ops []uint64) (ir.Constant, error) {
	if len(ops) >= 2 {
		t := r.typeByID(ops[0])
		if t == nil || !t.IsInteger() {
			return nil, r.error("invalid vector index type")
		}
		return r.constRef(ops[1], t)
	}
	return r.constRef(ops[0], r.ctx.IntType(32))
}

// comparison selects icmp or fcmp from the operand type and validates the
// predicate against it.
func (r *Reader) comparison(t *ir.Type, predCode uint64) (ir.Opcode, ir.Predicate, error) {
	pred := ir.Predicate(predCode)
	if predCode > uint64(ir.ICmpSLE) {
		return 0, 0, r.errorf("invalid comparison predicate %d", predCode)
	}
	if t.IsFPOrFPVector() {
		if !pred.IsFP() {
			return 0, 0, r.errorf("invalid fcmp predicate %d", predCode)
		}
		return ir.FCmp, pred, nil
	}
	if !pred.IsInt() {
		return 0, 0, r.errorf("invalid icmp predicate %d", predCode)
	}
	return ir.ICmp, pred, nil
}

// wideInt assembles sign-rotated 64-bit words, least significant first.
func wideInt(ops []uint64) *big.Int {
	v := new(big.Int)
	for i := len(ops) - 1; i >= 0; i-- {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(decodeSignRotated(ops[i])))
	}
	return v
}

func (r *Reader) floatConstant(t *ir.Type, ops []uint64) (ir.Constant, error) {
	switch {
	case t.Kind() == ir.HalfKind:
		return r.ctx.ConstantFPBits(t, uint64(uint16(ops[0])), 0), nil
	case t.Kind() == ir.FloatKind:
		return r.ctx.ConstantFPBits(t, uint64(uint32(ops[0])), 0), nil
	case t.Kind() == ir.DoubleKind:
		return r.ctx.ConstantFPBits(t, ops[0], 0), nil
	case t.Kind() == ir.X86FP80Kind:
		if len(ops) < 2 {
			return nil, r.error("invalid x86_fp80 FLOAT record")
		}
		// The record holds the 80-bit value split across words with the
		// exponent first; put the significand back in the low word.
		lo := ops[1]&0xffff | ops[0]<<16
		hi := ops[0] >> 48
		return r.ctx.ConstantFPBits(t, lo, hi), nil
	case t.Kind() == ir.FP128Kind, t.Kind() == ir.PPCFP128Kind:
		if len(ops) < 2 {
			return nil, r.error("invalid 128-bit FLOAT record")
		}
		return r.ctx.ConstantFPBits(t, ops[0], ops[1]), nil
	}
	return r.ctx.Undef(t), nil
}

func (r *Reader) aggregateConstant(t *ir.Type, ops []uint64) (ir.Constant, error) {
	var elemTy func(i int) *ir.Type
	switch {
	case t.IsStruct():
		if len(ops) != t.NumFields() {
			return nil, r.error("struct constant has wrong number of elements")
		}
		elemTy = t.FieldType
	case t.IsArray(), t.IsVector():
		if uint64(len(ops)) != t.NumElements() {
			return nil, r.error("array constant has wrong number of elements")
		}
		elemTy = func(int) *ir.Type { return t.ElementType() }
	default:
		return r.ctx.Undef(t), nil
	}
	elems := make([]ir.Constant, len(ops))
	for i, id := range ops {
		c, err := r.constRef(id, elemTy(i))
		if err != nil {
			return nil, err
		}
		elems[i] = c
	}
	return ir.NewConstantAggregate(t, elems), nil
}

func (r *Reader) dataConstant(t *ir.Type, ops []uint64) (ir.Constant, error) {
	if len(ops) == 0 || !(t.IsArray() || t.IsVector()) {
		return nil, r.error("invalid DATA record")
	}
	elem := t.ElementType()
	var width uint32
	switch {
	case elem.IsInteger() && (elem.IntBitWidth() == 8 || elem.IntBitWidth() == 16 ||
		elem.IntBitWidth() == 32 || elem.IntBitWidth() == 64):
		width = elem.IntBitWidth()
	case elem.Kind() == ir.HalfKind:
		width = 16
	case elem.Kind() == ir.FloatKind:
		width = 32
	case elem.Kind() == ir.DoubleKind:
		width = 64
	default:
		return nil, r.error("invalid element type for DATA record")
	}
	elems := make([]uint64, len(ops))
	for i, v := range ops {
		if width < 64 {
			v &= 1<<width - 1
		}
		elems[i] = v
	}
	var dataTy *ir.Type
	if t.IsArray() {
		dataTy = r.ctx.ArrayType(elem, uint64(len(elems)))
	} else {
		dataTy = r.ctx.VectorType(elem, uint64(len(elems)))
	}
	return ir.NewConstantData(dataTy, elems), nil
}

// gepConstant decodes CE_GEP: an optional pointee type followed by
// [opty, opval] pairs, the first being the base pointer.
func (r *Reader) gepConstant(ops []uint64, inBounds bool) (ir.Constant, error) {
	i := 0
	var pointee *ir.Type
	if len(ops)%2 == 1 {
		if pointee = r.typeByID(ops[0]); pointee == nil {
			return nil, r.error("invalid CE_GEP pointee type")
		}
		i++
	}
	var elems []ir.Constant
	for ; i+1 < len(ops); i += 2 {
		t := r.typeByID(ops[i])
		if t == nil {
			return nil, r.error("invalid CE_GEP operand type")
		}
		c, err := r.constRef(ops[i+1], t)
		if err != nil {
			return nil, err
		}
		elems = append(elems, c)
	}
	if len(elems) == 0 || !elems[0].Type().ScalarType().IsPointer() {
		return nil, r.error("invalid CE_GEP base pointer")
	}
	ptrElem := elems[0].Type().ScalarType().ElementType()
	if pointee == nil {
		pointee = ptrElem
	} else if pointee != ptrElem {
		return nil, r.error("explicit gep operator type does not match pointee type of pointer operand")
	}
	gep := ir.NewConstantGEP(pointee, elems[0], elems[1:], inBounds)
	if gep == nil {
		return nil, r.error("invalid CE_GEP indices")
	}
	return gep, nil
}

// blockAddressConstant decodes BLOCKADDRESS: [fnty, fnval, bb#]. If the
// function body has not been read, the block is created detached and
// adopted when the body is read.
func (r *Reader) blockAddressConstant(ops []uint64) (ir.Constant, error) {
	if len(ops) < 3 {
		return nil, r.error("invalid BLOCKADDRESS record")
	}
	fnTy := r.typeByID(ops[0])
	if fnTy == nil {
		return nil, r.error("invalid BLOCKADDRESS function type")
	}
	c, err := r.constRef(ops[1], fnTy)
	if err != nil {
		return nil, err
	}
	f, ok := c.(*ir.Function)
	if !ok {
		return nil, r.error("blockaddress of a non-function")
	}
	bbID := ops[2]
	if bbID == 0 {
		return nil, r.error("blockaddress of the entry block")
	}
	if f.NumBlocks() > 0 {
		if bbID >= uint64(f.NumBlocks()) {
			return nil, r.error("invalid blockaddress block ID")
		}
		return ir.NewBlockAddress(f, f.Blocks()[bbID]), nil
	}
	if bbID > uint64(r.cursor.Reader().Len()) {
		return nil, r.error("invalid blockaddress block ID")
	}
	refs := r.blockFwdRefs[f]
	if len(refs) == 0 {
		r.blockFwdRefQueue = append(r.blockFwdRefQueue, f)
	}
	if uint64(len(refs)) < bbID+1 {
		refs = append(refs, make([]*ir.BasicBlock, bbID+1-uint64(len(refs)))...)
	}
	if refs[bbID] == nil {
		refs[bbID] = ir.NewBasicBlock(r.ctx, "")
	}
	r.blockFwdRefs[f] = refs
	return ir.NewBlockAddress(f, refs[bbID]), nil
}
