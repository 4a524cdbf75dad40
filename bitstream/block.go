package bitstream

import (
	"github.com/pkg/errors"
)

// blockScope saves the state of an enclosing block while a sub-block is read.
type blockScope struct {
	prevCodeSize uint
	prevAbbrevs  []*Abbrev
}

// ---------------------------------------------------------------------------
// Block navigation
// ---------------------------------------------------------------------------

// CodeSize returns the abbreviation ID width of the current block.
func (c *Cursor) CodeSize() uint {
	return c.curCodeSize
}

// Depth returns the number of blocks currently entered.
func (c *Cursor) Depth() int {
	return len(c.blockScope)
}

// ReadAbbrevID reads the next abbreviation ID using the current width.
func (c *Cursor) ReadAbbrevID() (uint32, error) {
	v, err := c.Read(c.curCodeSize)
	return uint32(v), err
}

// ReadSubBlockID reads the block ID that follows an ENTER_SUBBLOCK.
func (c *Cursor) ReadSubBlockID() (uint32, error) {
	return c.ReadVBR(blockIDWidth)
}

// Advance reads the next entry of the current block. DEFINE_ABBREV records are
// absorbed into the abbreviation table unless AdvanceDontAutoprocessAbbrevs is
// set; END_BLOCK pops the block scope unless AdvanceDontPopBlockAtEnd is set.
func (c *Cursor) Advance(flags AdvanceFlags) (Entry, error) {
	for {
		if c.AtEndOfStream() {
			return Entry{}, errors.Wrap(ErrUnexpectedEOF, "advance past end of stream")
		}

		code, err := c.ReadAbbrevID()
		if err != nil {
			return Entry{}, err
		}

		switch code {
		case EndBlock:
			if flags&AdvanceDontPopBlockAtEnd == 0 {
				if err := c.ReadBlockEnd(); err != nil {
					return Entry{}, err
				}
			}
			return endBlockEntry(), nil

		case EnterSubblock:
			id, err := c.ReadSubBlockID()
			if err != nil {
				return Entry{}, err
			}
			return subBlockEntry(id), nil

		case DefineAbbrev:
			if flags&AdvanceDontAutoprocessAbbrevs == 0 {
				if err := c.ReadAbbrevRecord(); err != nil {
					return Entry{}, err
				}
				continue
			}
		}

		return recordEntry(code), nil
	}
}

// AdvanceSkippingSubblocks is Advance, but sub-blocks are skipped silently.
func (c *Cursor) AdvanceSkippingSubblocks(flags AdvanceFlags) (Entry, error) {
	for {
		entry, err := c.Advance(flags)
		if err != nil {
			return Entry{}, err
		}
		if entry.Kind != EntrySubBlock {
			return entry, nil
		}
		if err := c.SkipBlock(); err != nil {
			return Entry{}, err
		}
	}
}

// EnterSubBlock enters the block whose ENTER_SUBBLOCK and block ID have just
// been read. It pushes the current scope, installs the BLOCKINFO abbreviations
// registered for blockID and returns the block length in 32-bit words.
func (c *Cursor) EnterSubBlock(blockID uint32) (uint32, error) {
	c.blockScope = append(c.blockScope, blockScope{
		prevCodeSize: c.curCodeSize,
		prevAbbrevs:  c.curAbbrevs,
	})

	c.curAbbrevs = nil
	if info := c.r.BlockInfo(blockID); info != nil {
		c.curAbbrevs = append(c.curAbbrevs, info.Abbrevs...)
	}

	codeSize, err := c.ReadVBR(codeLenWidth)
	if err != nil {
		return 0, err
	}
	if codeSize > MaxChunkSize {
		return 0, errors.Wrapf(ErrMalformedBlock, "abbrev width %d in block %d", codeSize, blockID)
	}
	c.curCodeSize = uint(codeSize)

	c.SkipToFourByteBoundary()
	numWords, err := c.Read(blockSizeWidth)
	if err != nil {
		return 0, err
	}

	if c.curCodeSize == 0 || c.AtEndOfStream() {
		return 0, errors.Wrapf(ErrMalformedBlock, "block %d is empty or truncated", blockID)
	}
	return uint32(numWords), nil
}

// ReadBlockEnd finishes a block after its END_BLOCK marker: it aligns to 32
// bits and restores the enclosing scope.
func (c *Cursor) ReadBlockEnd() error {
	if len(c.blockScope) == 0 {
		return ErrScopeUnderflow
	}
	c.SkipToFourByteBoundary()
	c.popBlockScope()
	return nil
}

func (c *Cursor) popBlockScope() {
	top := c.blockScope[len(c.blockScope)-1]
	c.curCodeSize = top.prevCodeSize
	c.curAbbrevs = top.prevAbbrevs
	c.blockScope = c.blockScope[:len(c.blockScope)-1]
}

// SkipBlock skips the block whose ENTER_SUBBLOCK and block ID have just been
// read, using its recorded length.
func (c *Cursor) SkipBlock() error {
	if _, err := c.ReadVBR(codeLenWidth); err != nil {
		return err
	}
	c.SkipToFourByteBoundary()
	numFourBytes, err := c.Read(blockSizeWidth)
	if err != nil {
		return err
	}

	skipTo := c.CurrentBitNo() + numFourBytes*4*8
	if c.AtEndOfStream() || !c.CanSkipToPos(skipTo/8) {
		return errors.Wrapf(ErrMalformedBlock, "cannot skip %d words", numFourBytes)
	}
	return c.JumpToBit(skipTo)
}

// ---------------------------------------------------------------------------
// Abbreviations
// ---------------------------------------------------------------------------

// Abbrev resolves an application abbreviation ID against the current table.
func (c *Cursor) Abbrev(abbrevID uint32) (*Abbrev, error) {
	idx := int(abbrevID) - FirstApplicationAbbrev
	if abbrevID < FirstApplicationAbbrev || idx >= len(c.curAbbrevs) {
		return nil, errors.Wrapf(ErrInvalidAbbrev, "abbrev %d with %d defined", abbrevID, len(c.curAbbrevs))
	}
	return c.curAbbrevs[idx], nil
}

// NumAbbrevs returns the size of the current abbreviation table.
func (c *Cursor) NumAbbrevs() int {
	return len(c.curAbbrevs)
}

// ReadAbbrevRecord reads the body of a DEFINE_ABBREV and appends it to the
// current abbreviation table.
func (c *Cursor) ReadAbbrevRecord() error {
	numOps, err := c.ReadVBR(abbrevCountWidth)
	if err != nil {
		return err
	}

	abbv := &Abbrev{Ops: make([]AbbrevOp, 0, numOps)}
	for i := uint32(0); i < numOps; i++ {
		isLiteral, err := c.Read(1)
		if err != nil {
			return err
		}
		if isLiteral == 1 {
			v, err := c.ReadVBR64(abbrevLiteralWidth)
			if err != nil {
				return err
			}
			abbv.Add(LiteralOp(v))
			continue
		}

		e, err := c.Read(abbrevEncWidth)
		if err != nil {
			return err
		}
		enc := Encoding(e)
		if !enc.valid() {
			return errors.Wrapf(ErrInvalidAbbrevEncoding, "encoding %d", e)
		}

		if !enc.hasData() {
			abbv.Add(AbbrevOp{Encoding: enc})
			continue
		}

		width, err := c.ReadVBR64(abbrevDataWidth)
		if err != nil {
			return err
		}
		if width > MaxChunkSize {
			return errors.Wrapf(ErrInvalidWidth, "%s width %d", enc, width)
		}
		// A zero-width field always reads as zero.
		if width == 0 {
			abbv.Add(LiteralOp(0))
			continue
		}
		abbv.Add(AbbrevOp{Encoding: enc, Value: width})
	}

	if err := abbv.Validate(); err != nil {
		return err
	}
	c.curAbbrevs = append(c.curAbbrevs, abbv)
	return nil
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func (c *Cursor) readScalar(op AbbrevOp) (uint64, error) {
	if op.Literal {
		return op.Value, nil
	}
	switch op.Encoding {
	case EncodingFixed:
		return c.Read(uint(op.Value))
	case EncodingVBR:
		return c.ReadVBR64(uint(op.Value))
	case EncodingChar6:
		v, err := c.Read(6)
		if err != nil {
			return 0, err
		}
		return uint64(DecodeChar6(v)), nil
	}
	return 0, errors.Wrapf(ErrInvalidAbbrevEncoding, "%s is not a scalar encoding", op.Encoding)
}

func (c *Cursor) skipScalar(op AbbrevOp) error {
	_, err := c.readScalar(op)
	return err
}

// Record is a decoded record: its code, its operands and, when the
// abbreviation ends in a Blob, the raw blob bytes.
type Record struct {
	Code uint32
	Ops  []uint64
	Blob []byte
}

// ReadRecord decodes the record identified by abbrevID. When wantBlob is false
// a trailing blob is unpacked byte by byte into Ops instead.
func (c *Cursor) ReadRecord(abbrevID uint32, wantBlob bool) (Record, error) {
	if abbrevID == UnabbrevRecord {
		code, err := c.ReadVBR(unabbrevWidth)
		if err != nil {
			return Record{}, err
		}
		numElts, err := c.ReadVBR(unabbrevWidth)
		if err != nil {
			return Record{}, err
		}
		ops := make([]uint64, 0, min(numElts, 1<<16))
		for i := uint32(0); i < numElts; i++ {
			v, err := c.ReadVBR64(unabbrevWidth)
			if err != nil {
				return Record{}, err
			}
			ops = append(ops, v)
		}
		return Record{Code: code, Ops: ops}, nil
	}

	abbv, err := c.Abbrev(abbrevID)
	if err != nil {
		return Record{}, err
	}
	if abbv.NumOps() == 0 {
		return Record{}, errors.Wrap(ErrInvalidAbbrev, "abbreviation without operands")
	}

	// The first operand is the record code; it may not be an aggregate.
	codeOp := abbv.Op(0)
	if !codeOp.Literal && (codeOp.Encoding == EncodingArray || codeOp.Encoding == EncodingBlob) {
		return Record{}, errors.Wrap(ErrInvalidAbbrevEncoding, "abbreviation starts with an array or a blob")
	}
	code, err := c.readScalar(codeOp)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Code: uint32(code)}
	for i, e := 1, abbv.NumOps(); i != e; i++ {
		op := abbv.Op(i)
		if op.Literal || (op.Encoding != EncodingArray && op.Encoding != EncodingBlob) {
			v, err := c.readScalar(op)
			if err != nil {
				return Record{}, err
			}
			rec.Ops = append(rec.Ops, v)
			continue
		}

		if op.Encoding == EncodingArray {
			if i+2 != e {
				return Record{}, errors.Wrap(ErrInvalidAbbrevEncoding, "array op not second to last")
			}
			numElts, err := c.ReadVBR(arrayLenWidth)
			if err != nil {
				return Record{}, err
			}
			if uint64(numElts) > c.bitsLeft() {
				return Record{}, errors.Wrapf(ErrUnexpectedEOF, "array of %d elements", numElts)
			}
			eltOp := abbv.Op(i + 1)
			if !eltOp.Literal && (eltOp.Encoding == EncodingArray || eltOp.Encoding == EncodingBlob) {
				return Record{}, errors.Wrap(ErrInvalidAbbrevEncoding, "array element type can't be an array or blob")
			}
			for j := uint32(0); j < numElts; j++ {
				v, err := c.readScalar(eltOp)
				if err != nil {
					return Record{}, err
				}
				rec.Ops = append(rec.Ops, v)
			}
			// The element operand has been consumed.
			i++
			continue
		}

		if i+1 != e {
			return Record{}, errors.Wrap(ErrInvalidAbbrevEncoding, "blob op not last")
		}
		blob, err := c.readBlob()
		if err != nil {
			return Record{}, err
		}
		if wantBlob {
			rec.Blob = blob
		} else {
			for _, b := range blob {
				rec.Ops = append(rec.Ops, uint64(b))
			}
		}
	}
	return rec, nil
}

// readBlob reads a VBR6 length, aligns to 32 bits, returns that many bytes
// from the buffer and skips to the following 32-bit boundary.
func (c *Cursor) readBlob() ([]byte, error) {
	numElts, err := c.ReadVBR(arrayLenWidth)
	if err != nil {
		return nil, err
	}
	c.SkipToFourByteBoundary()

	curBitPos := c.CurrentBitNo()
	start := curBitPos / 8
	newEnd := curBitPos + ((uint64(numElts)+3)&^3)*8

	if !c.CanSkipToPos(newEnd/8) || start+uint64(numElts) > uint64(len(c.r.data)) {
		return nil, errors.Wrapf(ErrUnexpectedEOF, "blob of %d bytes at bit %d", numElts, curBitPos)
	}
	if err := c.JumpToBit(newEnd); err != nil {
		return nil, err
	}
	return c.r.data[start : start+uint64(numElts)], nil
}

// bitsLeft returns the number of unread bits in the buffer.
func (c *Cursor) bitsLeft() uint64 {
	return uint64(len(c.r.data))*8 - c.CurrentBitNo()
}

// SkipRecord skips the record identified by abbrevID and returns its code.
func (c *Cursor) SkipRecord(abbrevID uint32) (uint32, error) {
	if abbrevID == UnabbrevRecord {
		code, err := c.ReadVBR(unabbrevWidth)
		if err != nil {
			return 0, err
		}
		numElts, err := c.ReadVBR(unabbrevWidth)
		if err != nil {
			return 0, err
		}
		for i := uint32(0); i < numElts; i++ {
			if _, err := c.ReadVBR64(unabbrevWidth); err != nil {
				return 0, err
			}
		}
		return code, nil
	}

	abbv, err := c.Abbrev(abbrevID)
	if err != nil {
		return 0, err
	}
	if abbv.NumOps() == 0 {
		return 0, errors.Wrap(ErrInvalidAbbrev, "abbreviation without operands")
	}
	code, err := c.readScalar(abbv.Op(0))
	if err != nil {
		return 0, err
	}

	for i, e := 1, abbv.NumOps(); i < e; i++ {
		op := abbv.Op(i)
		if op.Literal {
			continue
		}
		switch op.Encoding {
		case EncodingArray:
			if i+2 != e {
				return 0, errors.Wrap(ErrInvalidAbbrevEncoding, "array op not second to last")
			}
			numElts, err := c.ReadVBR(arrayLenWidth)
			if err != nil {
				return 0, err
			}
			if uint64(numElts) > c.bitsLeft() {
				return 0, errors.Wrapf(ErrUnexpectedEOF, "array of %d elements", numElts)
			}
			eltOp := abbv.Op(i + 1)
			for j := uint32(0); j < numElts; j++ {
				if err := c.skipScalar(eltOp); err != nil {
					return 0, err
				}
			}
			i++
		case EncodingBlob:
			if _, err := c.readBlob(); err != nil {
				return 0, err
			}
		default:
			if err := c.skipScalar(op); err != nil {
				return 0, err
			}
		}
	}
	return uint32(code), nil
}
