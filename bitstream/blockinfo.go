package bitstream

import (
	"github.com/pkg/errors"
)

// BlockInfo holds what a BLOCKINFO block registered for one block ID: the
// abbreviations every instance of that block starts with, and optional names
// for diagnostics.
type BlockInfo struct {
	BlockID     uint32
	Abbrevs     []*Abbrev
	Name        string
	RecordNames map[uint32]string
}

// HasBlockInfoRecords reports whether a BLOCKINFO block has been read.
func (r *Reader) HasBlockInfoRecords() bool {
	return len(r.blockInfo) != 0
}

// BlockInfo returns the entry for blockID, or nil if none was registered.
func (r *Reader) BlockInfo(blockID uint32) *BlockInfo {
	// The most recently added entry is the most likely to be asked for.
	if n := len(r.blockInfo); n != 0 && r.blockInfo[n-1].BlockID == blockID {
		return r.blockInfo[n-1]
	}
	for _, info := range r.blockInfo {
		if info.BlockID == blockID {
			return info
		}
	}
	return nil
}

// getOrCreateBlockInfo returns the entry for blockID, adding it if needed.
func (r *Reader) getOrCreateBlockInfo(blockID uint32) *BlockInfo {
	if info := r.BlockInfo(blockID); info != nil {
		return info
	}
	info := &BlockInfo{BlockID: blockID}
	r.blockInfo = append(r.blockInfo, info)
	return info
}

// ReadBlockInfoBlock reads a BLOCKINFO block whose ENTER_SUBBLOCK and block ID
// have just been read, and moves the abbreviations it defines into the
// reader's persistent BlockInfo table. Blocks entered afterwards inherit them;
// blocks entered before do not. If the reader already has BLOCKINFO records
// the block is skipped.
func (c *Cursor) ReadBlockInfoBlock() error {
	if c.r.HasBlockInfoRecords() {
		return c.SkipBlock()
	}

	if _, err := c.EnterSubBlock(BlockInfoBlockID); err != nil {
		return err
	}

	var cur *BlockInfo
	for {
		entry, err := c.AdvanceSkippingSubblocks(AdvanceDontAutoprocessAbbrevs)
		if err != nil {
			return err
		}

		switch entry.Kind {
		case EntryEndBlock:
			return nil
		case EntryRecord:
		default:
			return ErrMalformedBlockInfo
		}

		if entry.ID == DefineAbbrev {
			if cur == nil {
				return errors.Wrap(ErrMalformedBlockInfo, "abbreviation before SETBID")
			}
			if err := c.ReadAbbrevRecord(); err != nil {
				return err
			}
			// ReadAbbrevRecord put it in the BLOCKINFO block's own table; move it.
			last := len(c.curAbbrevs) - 1
			cur.Abbrevs = append(cur.Abbrevs, c.curAbbrevs[last])
			c.curAbbrevs = c.curAbbrevs[:last]
			continue
		}

		rec, err := c.ReadRecord(entry.ID, false)
		if err != nil {
			return err
		}
		switch rec.Code {
		case BlockInfoCodeSetBID:
			if len(rec.Ops) < 1 {
				return errors.Wrap(ErrMalformedBlockInfo, "SETBID without a block ID")
			}
			cur = c.r.getOrCreateBlockInfo(uint32(rec.Ops[0]))

		case BlockInfoCodeBlockName:
			if cur == nil {
				return errors.Wrap(ErrMalformedBlockInfo, "BLOCKNAME before SETBID")
			}
			if c.r.IgnoreBlockInfoNames {
				break
			}
			cur.Name = opsToString(rec.Ops)

		case BlockInfoCodeSetRecordName:
			if cur == nil {
				return errors.Wrap(ErrMalformedBlockInfo, "SETRECORDNAME before SETBID")
			}
			if c.r.IgnoreBlockInfoNames || len(rec.Ops) < 1 {
				break
			}
			if cur.RecordNames == nil {
				cur.RecordNames = make(map[uint32]string)
			}
			cur.RecordNames[uint32(rec.Ops[0])] = opsToString(rec.Ops[1:])
		}
	}
}

func opsToString(ops []uint64) string {
	b := make([]byte, len(ops))
	for i, v := range ops {
		b[i] = byte(v)
	}
	return string(b)
}
