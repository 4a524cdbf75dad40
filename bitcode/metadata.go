package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// parseMetadata reads a METADATA_BLOCK, at module level or inside a
// function body. Metadata IDs continue from the current list size.
func (r *Reader) parseMetadata() error {
	r.metadataMaterialized = true
	nextMDNo := r.mds.size()
	if _, err := r.cursor.EnterSubBlock(metadataBlockID); err != nil {
		return r.streamError(err, "entering metadata block")
	}

	mdOrNull := func(id uint64) ir.Metadata {
		if id == 0 {
			return nil
		}
		return r.mds.fwdRef(uint32(id - 1))
	}

	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading metadata block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			r.mds.resolve(r.module)
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		ops := rec.Ops

		switch rec.Code {
		case metadataString:
			s, _ := recordString(ops, 0)
			r.mds.assign(r.ctx.MDString(s), nextMDNo)
			nextMDNo++

		case metadataValue:
			// VALUE: [ty, val]
			if len(ops) != 2 {
				return r.error("invalid METADATA_VALUE record")
			}
			t := r.typeByID(ops[0])
			if t == nil || t.IsMetadata() || t.IsVoid() {
				return r.error("invalid METADATA_VALUE type")
			}
			v := r.values.valueFwdRef(uint32(ops[1]), t)
			if v == nil {
				return r.error("invalid METADATA_VALUE value")
			}
			r.mds.assign(r.ctx.ValueAsMetadata(v), nextMDNo)
			nextMDNo++

		case metadataNode, metadataDistinctNode:
			elts := make([]ir.Metadata, len(ops))
			for i, id := range ops {
				elts[i] = mdOrNull(id)
			}
			var n *ir.MDNode
			if rec.Code == metadataDistinctNode {
				n = ir.NewDistinctMDNode(elts)
			} else {
				n = ir.NewMDTuple(elts)
			}
			r.mds.assign(n, nextMDNo)
			nextMDNo++

		case metadataName:
			if err := r.parseNamedMetadata(ops); err != nil {
				return err
			}

		case metadataLocation:
			// LOCATION: [distinct, line, col, scope, inlined-at?]
			if len(ops) != 5 {
				return r.error("invalid METADATA_LOCATION record")
			}
			loc := &ir.DILocation{
				Distinct:  ops[0] != 0,
				Line:      uint32(ops[1]),
				Column:    uint32(ops[2]),
				Scope:     r.mds.fwdRef(uint32(ops[3])),
				InlinedAt: mdOrNull(ops[4]),
			}
			r.mds.assign(loc, nextMDNo)
			nextMDNo++

		case metadataKind:
			if err := r.parseMetadataKindRecord(ops); err != nil {
				return err
			}

		case metadataOldNode, metadataOldFnNode:
			return r.notImplemented("pre-3.6 metadata nodes")

		default:
			if rec.Code < metadataGenericDebug || rec.Code > metadataModule {
				continue
			}
			if len(ops) == 0 {
				return r.errorf("invalid %s record", ir.DIKind(rec.Code))
			}
			n := &ir.DINode{
				Kind:     ir.DIKind(rec.Code),
				Distinct: ops[0]&1 != 0,
				Fields:   append([]uint64(nil), ops[1:]...),
			}
			r.mds.assign(n, nextMDNo)
			nextMDNo++
		}
	}
}

// parseNamedMetadata handles NAME, which must be followed directly by the
// NAMED_NODE record listing the node IDs.
func (r *Reader) parseNamedMetadata(nameOps []uint64) error {
	name, _ := recordString(nameOps, 0)
	abbrev, err := r.cursor.ReadAbbrevID()
	if err != nil {
		return r.streamError(err, "reading named metadata")
	}
	rec, err := r.readRecord(abbrev)
	if err != nil {
		return err
	}
	if rec.Code != metadataNamedNode {
		return r.error("METADATA_NAME not followed by METADATA_NAMED_NODE")
	}
	nmd := r.module.GetOrInsertNamedMetadata(name)
	for _, id := range rec.Ops {
		md := r.mds.fwdRef(uint32(id))
		switch md.(type) {
		case *ir.MDNode, *ir.DILocation, *ir.DINode, *ir.MDPlaceholder:
		default:
			return r.error("named metadata operand is not a node")
		}
		nmd.AddOperand(md)
	}
	return nil
}

// parseMetadataKindRecord maps a file-local metadata kind ID to the ID
// registered in the context for the same name.
func (r *Reader) parseMetadataKindRecord(ops []uint64) error {
	if len(ops) < 2 {
		return r.error("invalid METADATA_KIND record")
	}
	name, _ := recordString(ops, 1)
	if _, dup := r.mdKindMap[ops[0]]; dup {
		return r.error("conflicting METADATA_KIND records")
	}
	r.mdKindMap[ops[0]] = r.ctx.MDKindID(name)
	return nil
}

// parseMetadataKinds reads METADATA_KIND_BLOCK.
func (r *Reader) parseMetadataKinds() error {
	if _, err := r.cursor.EnterSubBlock(metadataKindBlockID); err != nil {
		return r.streamError(err, "entering metadata kind block")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading metadata kind block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if rec.Code == metadataKind {
			if err := r.parseMetadataKindRecord(rec.Ops); err != nil {
				return err
			}
		}
	}
}

type metadataSetter interface {
	SetMetadata(kind uint32, md ir.Metadata)
}

// parseMetadataAttachment reads METADATA_ATTACHMENT inside a function body.
// Records of even length attach to the function; odd ones start with an
// instruction number.
func (r *Reader) parseMetadataAttachment(f *ir.Function) error {
	if _, err := r.cursor.EnterSubBlock(metadataAttachmentID); err != nil {
		return r.streamError(err, "entering metadata attachment block")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading metadata attachment block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if rec.Code != metadataAttachment {
			continue
		}
		ops := rec.Ops
		if len(ops) == 0 {
			return r.error("invalid METADATA_ATTACHMENT record")
		}

		var target metadataSetter = f
		start := 0
		if len(ops)%2 == 1 {
			if ops[0] >= uint64(len(r.instructionList)) {
				return r.error("invalid instruction ID in metadata attachment")
			}
			inst, ok := r.instructionList[ops[0]].(metadataSetter)
			if !ok {
				return r.error("instruction does not take metadata")
			}
			target = inst
			start = 1
		}
		for i := start; i+1 < len(ops); i += 2 {
			kind, ok := r.mdKindMap[ops[i]]
			if !ok {
				return r.errorf("unknown metadata kind %d", ops[i])
			}
			md := r.mds.fwdRef(uint32(ops[i+1]))
			if vam, ok := md.(*ir.ValueAsMetadata); ok && vam.IsLocal() {
				// Function-local attachments have no meaning any more.
				break
			}
			target.SetMetadata(kind, md)
		}
	}
}
