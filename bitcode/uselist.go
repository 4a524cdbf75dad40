package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// parseUseLists replays the use-list orders recorded by the writer. Each
// record holds the target position of every use followed by the value ID.
func (r *Reader) parseUseLists() error {
	if _, err := r.cursor.EnterSubBlock(uselistBlockID); err != nil {
		return r.streamError(err, "entering use-list block")
	}
	for {
		entry, err := r.cursor.AdvanceSkippingSubblocks(0)
		if err != nil {
			return r.streamError(err, "reading use-list block")
		}
		if entry.Kind == bitstream.EntryEndBlock {
			return nil
		}
		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if rec.Code != uselistCodeDefault && rec.Code != uselistCodeBB {
			continue
		}
		if len(rec.Ops) < 3 {
			return r.error("invalid USELIST record")
		}
		indices := rec.Ops[:len(rec.Ops)-1]
		id := rec.Ops[len(rec.Ops)-1]

		var v ir.Value
		if rec.Code == uselistCodeBB {
			bb := r.basicBlock(id)
			if bb == nil {
				return r.error("invalid basic block in USELIST record")
			}
			v = bb
		} else {
			if id >= uint64(r.values.size()) {
				return r.error("invalid value in USELIST record")
			}
			v = r.values.get(uint32(id))
		}
		if v == nil {
			continue
		}

		uses := v.Uses()
		if len(uses) != len(indices) {
			// Bodies that have not been read yet leave uses out; the
			// order cannot be applied.
			log.Debugf("skipping use-list order for %q: %d uses, %d indices", v.Name(), len(uses), len(indices))
			continue
		}
		order := make(map[*ir.Use]uint64, len(uses))
		for i, u := range uses {
			order[u] = indices[i]
		}
		ir.SortUseList(v, func(a, b *ir.Use) bool { return order[a] < order[b] })
	}
}
