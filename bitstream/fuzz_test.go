package bitstream

import "testing"

func FuzzCursor(f *testing.F) {
	w := NewWriter()
	w.EnterBlockInfoBlock()
	w.EmitBlockInfoAbbrev(9, NewAbbrev(LiteralOp(4), VBROp(8), ArrayOp(), Char6Op()))
	w.ExitBlock()
	w.EnterSubblock(9, 3)
	w.EmitRecord(4, stringOps("abc"), FirstApplicationAbbrev)
	id := w.EmitAbbrev(NewAbbrev(LiteralOp(5), BlobOp()))
	w.EmitRecordWithBlob(id, []uint64{5}, []byte("blob"))
	w.ExitBlock()
	f.Add(w.Bytes())
	f.Add([]byte{0x42, 0x43, 0xc0, 0xde})

	f.Fuzz(func(t *testing.T, data []byte) {
		c := NewCursor(data)
		walk(c, 0)
	})
}

// walk visits every entry it can reach, stopping at the first error.
func walk(c *Cursor, depth int) {
	if depth > 16 {
		return
	}
	for !c.AtEndOfStream() {
		entry, err := c.Advance(0)
		if err != nil {
			return
		}
		switch entry.Kind {
		case EntryEndBlock:
			if depth > 0 {
				return
			}
		case EntrySubBlock:
			if entry.ID == BlockInfoBlockID {
				if err := c.ReadBlockInfoBlock(); err != nil {
					return
				}
				continue
			}
			if _, err := c.EnterSubBlock(entry.ID); err != nil {
				return
			}
			walk(c, depth+1)
		case EntryRecord:
			if _, err := c.ReadRecord(entry.ID, true); err != nil {
				return
			}
		}
	}
}
