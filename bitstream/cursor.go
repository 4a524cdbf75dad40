package bitstream

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const wordBits = 64

// ---------------------------------------------------------------------------
// Reader: the shared, immutable part of a bitstream
// ---------------------------------------------------------------------------

// Reader owns the byte buffer of a bitstream and the BLOCKINFO abbreviations
// registered while reading it. Any number of cursors may read from the same
// Reader, one goroutine per cursor.
type Reader struct {
	data      []byte
	blockInfo []*BlockInfo

	// IgnoreBlockInfoNames drops BLOCKNAME and SETRECORDNAME records while
	// reading the BLOCKINFO block.
	IgnoreBlockInfoNames bool
}

// NewReader wraps a byte buffer. The buffer is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, IgnoreBlockInfoNames: true}
}

// Bytes returns the underlying buffer.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Len returns the buffer length in bytes.
func (r *Reader) Len() int {
	return len(r.data)
}

// NewCursor returns a cursor positioned at the start of the stream.
func (r *Reader) NewCursor() *Cursor {
	return &Cursor{r: r, curCodeSize: 2}
}

// ---------------------------------------------------------------------------
// Cursor: bit-level reading
// ---------------------------------------------------------------------------

// Cursor reads a bitstream. The low-level half (this file) reads fixed-width
// and VBR fields; the block half (block.go) interprets them as blocks,
// abbreviations and records.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	r *Reader

	// nextChar is the index of the next byte to load into curWord.
	nextChar int

	// curWord holds bitsInCurWord unread bits, least significant first.
	curWord       uint64
	bitsInCurWord uint

	// curCodeSize is the width of abbreviation IDs in the current block.
	curCodeSize uint

	// curAbbrevs is the abbreviation table of the current block.
	curAbbrevs []*Abbrev

	// blockScope holds the state of enclosing blocks.
	blockScope []blockScope
}

// NewCursor is a convenience for NewReader(data).NewCursor().
func NewCursor(data []byte) *Cursor {
	return NewReader(data).NewCursor()
}

// Reader returns the reader the cursor belongs to.
func (c *Cursor) Reader() *Reader {
	return c.r
}

// CanSkipToPos reports whether pos (in bytes) lies inside the buffer.
func (c *Cursor) CanSkipToPos(pos uint64) bool {
	return pos == 0 || pos-1 < uint64(len(c.r.data))
}

// AtEndOfStream is true when no bits remain in the current word and no bytes
// remain in the buffer.
func (c *Cursor) AtEndOfStream() bool {
	return c.bitsInCurWord == 0 && c.nextChar >= len(c.r.data)
}

// CurrentBitNo returns the absolute bit position of the next read.
func (c *Cursor) CurrentBitNo() uint64 {
	return uint64(c.nextChar)*8 - uint64(c.bitsInCurWord)
}

// JumpToBit moves the cursor to an absolute bit position. It is the only way
// to move backwards.
func (c *Cursor) JumpToBit(bitNo uint64) error {
	byteNo := (bitNo / 8) &^ (wordBits/8 - 1)
	wordBitNo := uint(bitNo & (wordBits - 1))
	if !c.CanSkipToPos(byteNo) || bitNo > uint64(len(c.r.data))*8 {
		return errors.Wrapf(ErrInvalidJump, "bit %d of %d", bitNo, uint64(len(c.r.data))*8)
	}

	c.nextChar = int(byteNo)
	c.bitsInCurWord = 0
	c.curWord = 0

	if wordBitNo != 0 {
		if _, err := c.Read(wordBitNo); err != nil {
			return err
		}
	}
	return nil
}

// fillCurWord loads up to eight bytes from the buffer into curWord.
func (c *Cursor) fillCurWord() error {
	if c.nextChar >= len(c.r.data) {
		return errors.Wrapf(ErrUnexpectedEOF, "at bit %d", c.CurrentBitNo())
	}

	rest := c.r.data[c.nextChar:]
	if len(rest) >= 8 {
		c.curWord = binary.LittleEndian.Uint64(rest)
		c.nextChar += 8
		c.bitsInCurWord = 64
		return nil
	}

	c.curWord = 0
	for i, b := range rest {
		c.curWord |= uint64(b) << (8 * uint(i))
	}
	c.nextChar += len(rest)
	c.bitsInCurWord = uint(len(rest)) * 8
	return nil
}

func lowBits(v uint64, n uint) uint64 {
	if n == 0 {
		return 0
	}
	return v & (^uint64(0) >> (64 - n))
}

// Read returns the next n bits (n <= 64), least significant bit first.
func (c *Cursor) Read(n uint) (uint64, error) {
	if n > wordBits {
		return 0, errors.Wrapf(ErrInvalidWidth, "cannot read %d bits at once", n)
	}
	if n == 0 {
		return 0, nil
	}

	if c.bitsInCurWord >= n {
		r := lowBits(c.curWord, n)
		c.curWord >>= n
		c.bitsInCurWord -= n
		return r, nil
	}

	// Take what is left in the current word, then top up from the next one.
	var r uint64
	if c.bitsInCurWord > 0 {
		r = c.curWord
	}
	have := c.bitsInCurWord
	bitsLeft := n - have

	if err := c.fillCurWord(); err != nil {
		return 0, err
	}
	if bitsLeft > c.bitsInCurWord {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "need %d bits, have %d", bitsLeft, c.bitsInCurWord)
	}

	r2 := lowBits(c.curWord, bitsLeft)
	c.curWord >>= bitsLeft
	c.bitsInCurWord -= bitsLeft

	return r | r2<<have, nil
}

// ReadVBR reads a variable-bit-rate value whose result fits in 32 bits.
func (c *Cursor) ReadVBR(n uint) (uint32, error) {
	v, err := c.ReadVBR64(n)
	if err != nil {
		return 0, err
	}
	if v>>32 != 0 {
		return 0, errors.Wrapf(ErrInvalidWidth, "VBR value %d does not fit in 32 bits", v)
	}
	return uint32(v), nil
}

// ReadVBR64 reads a variable-bit-rate value built from n-bit chunks. The top
// bit of each chunk is a continuation flag; the remaining n-1 bits are
// payload, accumulated low to high.
func (c *Cursor) ReadVBR64(n uint) (uint64, error) {
	if n < 2 || n > 32 {
		return 0, errors.Wrapf(ErrInvalidWidth, "VBR chunk width %d", n)
	}

	piece, err := c.Read(n)
	if err != nil {
		return 0, err
	}
	hiMask := uint64(1) << (n - 1)
	if piece&hiMask == 0 {
		return piece, nil
	}

	var result uint64
	var nextBit uint
	for {
		if nextBit >= 64 {
			return 0, errors.Wrap(ErrInvalidWidth, "VBR value overflows 64 bits")
		}
		result |= (piece & (hiMask - 1)) << nextBit
		if piece&hiMask == 0 {
			return result, nil
		}
		nextBit += n - 1
		if piece, err = c.Read(n); err != nil {
			return 0, err
		}
	}
}

// SkipToFourByteBoundary discards bits up to the next 32-bit boundary.
func (c *Cursor) SkipToFourByteBoundary() {
	// Words are loaded at 8-byte boundaries, so a partially consumed word
	// either still holds its upper half or nothing useful.
	if c.bitsInCurWord >= 32 {
		c.curWord >>= c.bitsInCurWord - 32
		c.bitsInCurWord = 32
		return
	}
	c.bitsInCurWord = 0
	c.curWord = 0
}
