package bitstream

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Writer: produces bitstreams the Cursor can read
// ---------------------------------------------------------------------------

type writerScope struct {
	prevCodeSize uint
	prevAbbrevs  []*Abbrev
	startWord    int
}

type writerBlockInfo struct {
	blockID uint32
	abbrevs []*Abbrev
}

// Writer emits a bitstream into memory. It mirrors the Cursor: fields, VBRs,
// blocks, abbreviations, records and the BLOCKINFO block.
//
// Writer methods panic on misuse (unbalanced blocks, records that do not
// match their abbreviation) since that is always a bug in the caller.
type Writer struct {
	out []byte

	// cur holds curBit pending bits that have not filled a 32-bit word yet.
	cur    uint64
	curBit uint

	curCodeSize uint
	curAbbrevs  []*Abbrev
	blockScope  []writerScope

	blockInfo    []*writerBlockInfo
	blockInfoBID int64
}

// NewWriter returns a writer at top level with a 2-bit abbreviation width.
func NewWriter() *Writer {
	return &Writer{curCodeSize: 2, blockInfoBID: -1}
}

// Bytes returns the stream written so far. Pending bits are flushed to a
// 32-bit boundary first.
func (w *Writer) Bytes() []byte {
	w.FlushToWord()
	return w.out
}

// BitNo returns the number of bits written.
func (w *Writer) BitNo() uint64 {
	return uint64(len(w.out))*8 + uint64(w.curBit)
}

func (w *Writer) writeWord(v uint32) {
	w.out = binary.LittleEndian.AppendUint32(w.out, v)
}

// Emit writes the low n bits of val (n <= 64).
func (w *Writer) Emit(val uint64, n uint) {
	if n > 64 {
		panic(fmt.Sprintf("bitstream: cannot emit %d bits", n))
	}
	val = lowBits(val, n)
	for n > 0 {
		take := 32 - w.curBit
		if take > n {
			take = n
		}
		w.cur |= lowBits(val, take) << w.curBit
		w.curBit += take
		val >>= take
		n -= take
		if w.curBit == 32 {
			w.writeWord(uint32(w.cur))
			w.cur = 0
			w.curBit = 0
		}
	}
}

// EmitVBR writes a 32-bit value as VBR with n-bit chunks.
func (w *Writer) EmitVBR(val uint32, n uint) {
	w.EmitVBR64(uint64(val), n)
}

// EmitVBR64 writes val as VBR with n-bit chunks.
func (w *Writer) EmitVBR64(val uint64, n uint) {
	if n < 2 || n > 32 {
		panic(fmt.Sprintf("bitstream: VBR chunk width %d", n))
	}
	threshold := uint64(1) << (n - 1)
	for val >= threshold {
		w.Emit((val&(threshold-1))|threshold, n)
		val >>= n - 1
	}
	w.Emit(val, n)
}

// FlushToWord pads with zero bits to the next 32-bit boundary.
func (w *Writer) FlushToWord() {
	if w.curBit > 0 {
		w.writeWord(uint32(w.cur))
		w.cur = 0
		w.curBit = 0
	}
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// EnterSubblock starts a block with the given abbreviation ID width.
func (w *Writer) EnterSubblock(blockID uint32, codeLen uint) {
	w.Emit(EnterSubblock, w.curCodeSize)
	w.EmitVBR(blockID, blockIDWidth)
	w.EmitVBR(uint32(codeLen), codeLenWidth)
	w.FlushToWord()

	startWord := len(w.out) / 4
	// Patched by ExitBlock.
	w.Emit(0, blockSizeWidth)

	w.blockScope = append(w.blockScope, writerScope{
		prevCodeSize: w.curCodeSize,
		prevAbbrevs:  w.curAbbrevs,
		startWord:    startWord,
	})
	w.curCodeSize = codeLen
	w.curAbbrevs = nil
	if info := w.blockInfoFor(blockID); info != nil {
		w.curAbbrevs = append(w.curAbbrevs, info.abbrevs...)
	}
}

// ExitBlock ends the innermost block and back-patches its length.
func (w *Writer) ExitBlock() {
	if len(w.blockScope) == 0 {
		panic("bitstream: ExitBlock without EnterSubblock")
	}
	top := w.blockScope[len(w.blockScope)-1]

	w.Emit(EndBlock, w.curCodeSize)
	w.FlushToWord()

	sizeInWords := len(w.out)/4 - top.startWord - 1
	binary.LittleEndian.PutUint32(w.out[top.startWord*4:], uint32(sizeInWords))

	w.curCodeSize = top.prevCodeSize
	w.curAbbrevs = top.prevAbbrevs
	w.blockScope = w.blockScope[:len(w.blockScope)-1]
}

// ---------------------------------------------------------------------------
// Abbreviations and records
// ---------------------------------------------------------------------------

func (w *Writer) encodeAbbrev(abbv *Abbrev) {
	if err := abbv.Validate(); err != nil {
		panic(fmt.Sprintf("bitstream: %v", err))
	}
	w.Emit(DefineAbbrev, w.curCodeSize)
	w.EmitVBR(uint32(abbv.NumOps()), abbrevCountWidth)
	for _, op := range abbv.Ops {
		if op.Literal {
			w.Emit(1, 1)
			w.EmitVBR64(op.Value, abbrevLiteralWidth)
			continue
		}
		w.Emit(0, 1)
		w.Emit(uint64(op.Encoding), abbrevEncWidth)
		if op.Encoding.hasData() {
			w.EmitVBR64(op.Value, abbrevDataWidth)
		}
	}
}

// EmitAbbrev defines an abbreviation in the current block and returns its ID.
func (w *Writer) EmitAbbrev(abbv *Abbrev) uint32 {
	w.encodeAbbrev(abbv)
	w.curAbbrevs = append(w.curAbbrevs, abbv)
	return uint32(len(w.curAbbrevs)-1) + FirstApplicationAbbrev
}

// EmitRecord writes a record. With abbrev == UnabbrevRecord (or 0) the record
// is written unabbreviated; otherwise the abbreviation's first operand
// encodes code and the rest encode vals.
func (w *Writer) EmitRecord(code uint32, vals []uint64, abbrev uint32) {
	if abbrev == 0 || abbrev == UnabbrevRecord {
		w.Emit(UnabbrevRecord, w.curCodeSize)
		w.EmitVBR(code, unabbrevWidth)
		w.EmitVBR(uint32(len(vals)), unabbrevWidth)
		for _, v := range vals {
			w.EmitVBR64(v, unabbrevWidth)
		}
		return
	}
	w.emitRecordWithAbbrev(abbrev, append([]uint64{uint64(code)}, vals...), nil)
}

// EmitRecordWithBlob writes an abbreviated record whose last operand is a
// Blob; vals cover the operands before it, the code included.
func (w *Writer) EmitRecordWithBlob(abbrev uint32, vals []uint64, blob []byte) {
	w.emitRecordWithAbbrev(abbrev, vals, blob)
}

func (w *Writer) abbrev(id uint32) *Abbrev {
	idx := int(id) - FirstApplicationAbbrev
	if id < FirstApplicationAbbrev || idx >= len(w.curAbbrevs) {
		panic(fmt.Sprintf("bitstream: invalid abbrev #%d", id))
	}
	return w.curAbbrevs[idx]
}

func (w *Writer) emitScalar(op AbbrevOp, v uint64) {
	if op.Literal {
		if op.Value != v {
			panic(fmt.Sprintf("bitstream: literal %d does not match value %d", op.Value, v))
		}
		return
	}
	switch op.Encoding {
	case EncodingFixed:
		w.Emit(v, uint(op.Value))
	case EncodingVBR:
		w.EmitVBR64(v, uint(op.Value))
	case EncodingChar6:
		c, ok := EncodeChar6(byte(v))
		if !ok {
			panic(fmt.Sprintf("bitstream: %q is not a char6 character", rune(v)))
		}
		w.Emit(c, 6)
	default:
		panic(fmt.Sprintf("bitstream: %s is not a scalar encoding", op.Encoding))
	}
}

func (w *Writer) emitRecordWithAbbrev(id uint32, vals []uint64, blob []byte) {
	abbv := w.abbrev(id)
	w.Emit(uint64(id), w.curCodeSize)

	rec := 0
	for i, e := 0, abbv.NumOps(); i < e; i++ {
		op := abbv.Op(i)
		if op.Literal || (op.Encoding != EncodingArray && op.Encoding != EncodingBlob) {
			if rec >= len(vals) {
				panic("bitstream: too few values for abbreviation")
			}
			w.emitScalar(op, vals[rec])
			rec++
			continue
		}

		if op.Encoding == EncodingArray {
			eltOp := abbv.Op(i + 1)
			w.EmitVBR(uint32(len(vals)-rec), arrayLenWidth)
			for ; rec < len(vals); rec++ {
				w.emitScalar(eltOp, vals[rec])
			}
			i++
			continue
		}

		// Blob: either the explicit bytes or the remaining values.
		data := blob
		if data == nil {
			data = make([]byte, 0, len(vals)-rec)
			for ; rec < len(vals); rec++ {
				data = append(data, byte(vals[rec]))
			}
		}
		w.EmitVBR(uint32(len(data)), arrayLenWidth)
		w.FlushToWord()
		w.out = append(w.out, data...)
		for len(w.out)%4 != 0 {
			w.out = append(w.out, 0)
		}
	}
	if rec != len(vals) && blob == nil {
		panic("bitstream: too many values for abbreviation")
	}
}

// ---------------------------------------------------------------------------
// BLOCKINFO
// ---------------------------------------------------------------------------

func (w *Writer) blockInfoFor(blockID uint32) *writerBlockInfo {
	for _, info := range w.blockInfo {
		if info.blockID == blockID {
			return info
		}
	}
	return nil
}

// EnterBlockInfoBlock starts a BLOCKINFO block. Close it with ExitBlock.
func (w *Writer) EnterBlockInfoBlock() {
	w.EnterSubblock(BlockInfoBlockID, 2)
	w.blockInfoBID = -1
}

func (w *Writer) switchToBlockID(blockID uint32) {
	if w.blockInfoBID == int64(blockID) {
		return
	}
	w.EmitRecord(BlockInfoCodeSetBID, []uint64{uint64(blockID)}, UnabbrevRecord)
	w.blockInfoBID = int64(blockID)
}

// EmitBlockInfoAbbrev registers an abbreviation for every later block with
// the given ID and returns the abbreviation ID it will have there. Must be
// called inside a BLOCKINFO block.
func (w *Writer) EmitBlockInfoAbbrev(blockID uint32, abbv *Abbrev) uint32 {
	w.switchToBlockID(blockID)
	w.encodeAbbrev(abbv)

	info := w.blockInfoFor(blockID)
	if info == nil {
		info = &writerBlockInfo{blockID: blockID}
		w.blockInfo = append(w.blockInfo, info)
	}
	info.abbrevs = append(info.abbrevs, abbv)
	return uint32(len(info.abbrevs)-1) + FirstApplicationAbbrev
}

// EmitBlockInfoName writes a BLOCKNAME record for blockID.
func (w *Writer) EmitBlockInfoName(blockID uint32, name string) {
	w.switchToBlockID(blockID)
	w.EmitRecord(BlockInfoCodeBlockName, stringOps(name), UnabbrevRecord)
}

// EmitBlockInfoRecordName writes a SETRECORDNAME record for blockID.
func (w *Writer) EmitBlockInfoRecordName(blockID, code uint32, name string) {
	w.switchToBlockID(blockID)
	w.EmitRecord(BlockInfoCodeSetRecordName, append([]uint64{uint64(code)}, stringOps(name)...), UnabbrevRecord)
}

func stringOps(s string) []uint64 {
	ops := make([]uint64, len(s))
	for i := 0; i < len(s); i++ {
		ops[i] = uint64(s[i])
	}
	return ops
}
