package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// parseTypeTable reads TYPE_BLOCK_ID_NEW. Only identified structs may be
// referenced before their record; every other type must refer backwards.
func (r *Reader) parseTypeTable() error {
	if _, err := r.cursor.EnterSubBlock(typeBlockIDNew); err != nil {
		return r.streamError(err, "entering type block")
	}
	if len(r.types) != 0 {
		return r.error("multiple type blocks")
	}

	var numRecords int
	var structName string
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading type block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			if numRecords != len(r.types) {
				return r.errorf("type table declared %d entries, read %d", len(r.types), numRecords)
			}
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		ops := rec.Ops

		var result *ir.Type
		switch rec.Code {
		case typeCodeNumEntry:
			if len(ops) < 1 {
				return r.error("invalid NUMENTRY record")
			}
			if ops[0] > uint64(r.cursor.Reader().Len())*8 {
				return r.error("type table size exceeds stream")
			}
			r.types = make([]*ir.Type, ops[0])
			continue
		case typeCodeVoid:
			result = r.ctx.VoidType()
		case typeCodeHalf:
			result = r.ctx.HalfType()
		case typeCodeFloat:
			result = r.ctx.FloatType()
		case typeCodeDouble:
			result = r.ctx.DoubleType()
		case typeCodeX86FP80:
			result = r.ctx.X86FP80Type()
		case typeCodeFP128:
			result = r.ctx.FP128Type()
		case typeCodePPCFP128:
			result = r.ctx.PPCFP128Type()
		case typeCodeLabel:
			result = r.ctx.LabelType()
		case typeCodeMetadata:
			result = r.ctx.MetadataType()
		case typeCodeX86MMX:
			result = r.ctx.X86MMXType()
		case typeCodeToken:
			result = r.ctx.TokenType()
		case typeCodeInteger:
			if len(ops) < 1 {
				return r.error("invalid INTEGER record")
			}
			if ops[0] < minIntBits || ops[0] > maxIntBits {
				return r.errorf("integer width %d out of range", ops[0])
			}
			result = r.ctx.IntType(uint32(ops[0]))
		case typeCodePointer:
			if len(ops) < 1 {
				return r.error("invalid POINTER record")
			}
			var addrSpace uint32
			if len(ops) == 2 {
				addrSpace = uint32(ops[1])
			}
			elem := r.typeByID(ops[0])
			if elem == nil || !validPointerElement(elem) {
				return r.error("invalid pointer element type")
			}
			result = r.ctx.PointerType(elem, addrSpace)
		case typeCodeFunctionOld:
			// FUNCTION: [vararg, attrid, retty, paramty x N]
			if len(ops) < 3 {
				return r.error("invalid FUNCTION record")
			}
			if result, err = r.functionType(ops[0] != 0, ops[2], ops[3:]); err != nil {
				return err
			}
		case typeCodeFunction:
			// FUNCTION: [vararg, retty, paramty x N]
			if len(ops) < 2 {
				return r.error("invalid FUNCTION record")
			}
			if result, err = r.functionType(ops[0] != 0, ops[1], ops[2:]); err != nil {
				return err
			}
		case typeCodeStructAnon:
			if len(ops) < 1 {
				return r.error("invalid STRUCT_ANON record")
			}
			fields, ok := r.typeList(ops[1:])
			if !ok {
				return r.error("invalid struct element type")
			}
			result = r.ctx.StructType(fields, ops[0] != 0)
		case typeCodeStructName:
			structName, _ = recordString(ops, 0)
			continue
		case typeCodeStructNamed:
			if len(ops) < 1 {
				return r.error("invalid STRUCT_NAMED record")
			}
			if numRecords >= len(r.types) {
				return r.error("invalid type table")
			}
			st := r.takeIdentifiedStruct(numRecords, structName)
			structName = ""
			fields, ok := r.typeList(ops[1:])
			if !ok {
				return r.error("invalid struct element type")
			}
			st.SetBody(fields, ops[0] != 0)
			result = st
		case typeCodeOpaque:
			if len(ops) != 1 {
				return r.error("invalid OPAQUE record")
			}
			if numRecords >= len(r.types) {
				return r.error("invalid type table")
			}
			result = r.takeIdentifiedStruct(numRecords, structName)
			structName = ""
		case typeCodeArray:
			if len(ops) < 2 {
				return r.error("invalid ARRAY record")
			}
			elem := r.typeByID(ops[1])
			if elem == nil || !validArrayElement(elem) {
				return r.error("invalid array element type")
			}
			result = r.ctx.ArrayType(elem, ops[0])
		case typeCodeVector:
			if len(ops) < 2 {
				return r.error("invalid VECTOR record")
			}
			if ops[0] == 0 {
				return r.error("invalid vector length")
			}
			elem := r.typeByID(ops[1])
			if elem == nil || !validVectorElement(elem) {
				return r.error("invalid vector element type")
			}
			result = r.ctx.VectorType(elem, ops[0])
		default:
			return r.errorf("unknown type record code %d", rec.Code)
		}

		if numRecords >= len(r.types) {
			return r.error("invalid type table: more records than NUMENTRY")
		}
		if r.types[numRecords] != nil {
			return r.error("invalid type table: only named structs can be forward referenced")
		}
		r.types[numRecords] = result
		numRecords++
	}
}

// takeIdentifiedStruct returns the struct for slot idx, reusing the one
// created by a forward reference.
func (r *Reader) takeIdentifiedStruct(idx int, name string) *ir.Type {
	if st := r.types[idx]; st != nil {
		r.types[idx] = nil
		if name != "" {
			r.ctx.NameStruct(st, name)
		}
		return st
	}
	return r.ctx.NewStructType(name)
}

func (r *Reader) functionType(varArg bool, retID uint64, paramIDs []uint64) (*ir.Type, error) {
	params := make([]*ir.Type, 0, len(paramIDs))
	for _, id := range paramIDs {
		t := r.typeByID(id)
		if t == nil {
			return nil, r.error("invalid function parameter type")
		}
		if !t.IsFirstClass() {
			return nil, r.error("invalid function argument type")
		}
		params = append(params, t)
	}
	ret := r.typeByID(retID)
	if ret == nil || ret.IsFunction() || ret.IsLabel() || ret.IsMetadata() {
		return nil, r.error("invalid function return type")
	}
	return r.ctx.FunctionType(ret, params, varArg), nil
}

func (r *Reader) typeList(ids []uint64) ([]*ir.Type, bool) {
	out := make([]*ir.Type, 0, len(ids))
	for _, id := range ids {
		t := r.typeByID(id)
		if t == nil {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

func validPointerElement(t *ir.Type) bool {
	return !t.IsVoid() && !t.IsLabel() && !t.IsMetadata() && !t.IsToken()
}

func validArrayElement(t *ir.Type) bool {
	return validPointerElement(t) && !t.IsFunction()
}

func validVectorElement(t *ir.Type) bool {
	return t.IsInteger() || t.IsFloatingPoint() || t.IsPointer()
}
