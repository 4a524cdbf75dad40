package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
)

// parseValueSymbolTable names values and, inside a function body, basic
// blocks.
func (r *Reader) parseValueSymbolTable() error {
	if _, err := r.cursor.EnterSubBlock(valueSymtabBlockID); err != nil {
		return r.streamError(err, "entering value symbol table")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading value symbol table")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		ops := rec.Ops
		switch rec.Code {
		case vstCodeEntry, vstCodeFnEntry:
			// VST_ENTRY: [valueid, namechar x N]
			// VST_FNENTRY: [valueid, offset, namechar x N]
			start := 1
			if rec.Code == vstCodeFnEntry {
				start = 2
			}
			name, ok := recordString(ops, start)
			if !ok || len(ops) == 0 {
				return r.error("invalid VST_ENTRY record")
			}
			if ops[0] >= uint64(r.values.size()) {
				return r.error("invalid value ID in symbol table")
			}
			v := r.values.get(uint32(ops[0]))
			if v == nil {
				return r.error("symbol table names an undefined value")
			}
			v.SetName(name)
		case vstCodeBBEntry:
			// VST_BBENTRY: [bbid, namechar x N]
			name, ok := recordString(ops, 1)
			if !ok || len(ops) == 0 {
				return r.error("invalid VST_BBENTRY record")
			}
			bb := r.basicBlock(ops[0])
			if bb == nil {
				return r.error("symbol table names an undefined basic block")
			}
			bb.SetName(name)
		}
	}
}
