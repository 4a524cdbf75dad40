package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// parseAttributeGroupBlock reads PARAMATTR_GROUP_BLOCK: groups of
// attributes bound to one index, referenced later by PARAMATTR entries.
func (r *Reader) parseAttributeGroupBlock() error {
	if _, err := r.cursor.EnterSubBlock(paramAttrGroupBlockID); err != nil {
		return r.streamError(err, "entering attribute group block")
	}
	if len(r.attributeGroups) != 0 {
		return r.error("multiple attribute group blocks")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading attribute group block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if rec.Code != paramAttrGrpCodeEntry {
			continue
		}
		// ENTRY: [grpid, idx, a0, a1, ...]
		if len(rec.Ops) < 3 {
			return r.error("invalid attribute group record")
		}
		grpID, idx := rec.Ops[0], rec.Ops[1]
		attrs, err := r.decodeAttributes(rec.Ops[2:])
		if err != nil {
			return err
		}
		r.attributeGroups[grpID] = ir.AttributeSet{Index: uint32(idx), Attrs: attrs}
	}
}

// decodeAttributes decodes the attribute list of one group entry. Each
// attribute starts with a tag: 0 enum, 1 integer, 3 string key, 4 string
// key and value. Strings are null terminated.
func (r *Reader) decodeAttributes(ops []uint64) ([]ir.Attribute, error) {
	var out []ir.Attribute
	for i := 0; i < len(ops); {
		tag := ops[i]
		i++
		switch tag {
		case 0, 1:
			if i >= len(ops) {
				return nil, r.error("truncated attribute")
			}
			kind, err := r.attrKind(ops[i])
			if err != nil {
				return nil, err
			}
			i++
			if tag == 0 {
				out = append(out, ir.EnumAttr(kind))
				continue
			}
			if i >= len(ops) {
				return nil, r.error("truncated integer attribute")
			}
			if kind.HasIntValue() {
				out = append(out, ir.IntAttr(kind, ops[i]))
			}
			i++
		case 3, 4:
			key, n, ok := cString(ops[i:])
			if !ok {
				return nil, r.error("unterminated attribute key")
			}
			i += n
			var val string
			if tag == 4 {
				val, n, ok = cString(ops[i:])
				if !ok {
					return nil, r.error("unterminated attribute value")
				}
				i += n
			}
			out = append(out, ir.StringAttr(key, val))
		default:
			return nil, r.errorf("invalid attribute tag %d", tag)
		}
	}
	return out, nil
}

// cString decodes a null-terminated string from ops and returns the number
// of elements consumed, terminator included.
func cString(ops []uint64) (string, int, bool) {
	for i, v := range ops {
		if v == 0 {
			s, _ := recordString(ops[:i], 0)
			return s, i + 1, true
		}
	}
	return "", 0, false
}

func (r *Reader) attrKind(code uint64) (ir.AttrKind, error) {
	if code == 0 || code > uint64(ir.LastAttrKind) {
		return ir.AttrNone, r.errorf("unknown attribute kind %d", code)
	}
	return ir.AttrKind(code), nil
}

// parseAttributeBlock reads PARAMATTR_BLOCK: each entry is the list of
// groups making up the attributes of one function or call.
func (r *Reader) parseAttributeBlock() error {
	if _, err := r.cursor.EnterSubBlock(paramAttrBlockID); err != nil {
		return r.streamError(err, "entering attribute block")
	}
	if len(r.attributes) != 0 {
		return r.error("multiple attribute blocks")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading attribute block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		switch rec.Code {
		case paramAttrCodeEntryOld:
			return r.notImplemented("pre-3.3 attribute encoding")
		case paramAttrCodeEntry:
			sets := make([]ir.AttributeSet, 0, len(rec.Ops))
			for _, grp := range rec.Ops {
				set, ok := r.attributeGroups[grp]
				if !ok {
					return r.errorf("unknown attribute group %d", grp)
				}
				sets = append(sets, set)
			}
			r.attributes = append(r.attributes, ir.NewAttributeList(sets...))
		}
	}
}
