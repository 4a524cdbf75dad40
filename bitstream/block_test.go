package bitstream

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// walkBlock reads the current block to its end, entering every sub-block,
// and counts ENTER_SUBBLOCK and END_BLOCK events.
func walkBlock(t *testing.T, c *Cursor, enters, ends *int, records *[]Record) {
	t.Helper()
	for {
		entry, err := c.Advance(0)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		switch entry.Kind {
		case EntryEndBlock:
			*ends++
			return
		case EntrySubBlock:
			*enters++
			if _, err := c.EnterSubBlock(entry.ID); err != nil {
				t.Fatalf("EnterSubBlock(%d) failed: %v", entry.ID, err)
			}
			walkBlock(t, c, enters, ends, records)
		case EntryRecord:
			rec, err := c.ReadRecord(entry.ID, true)
			if err != nil {
				t.Fatalf("ReadRecord failed: %v", err)
			}
			*records = append(*records, rec)
		}
	}
}

func TestBlockBalance(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 3)
	w.EmitRecord(1, []uint64{1, 2, 3}, UnabbrevRecord)
	w.EnterSubblock(9, 4)
	w.EmitRecord(2, nil, UnabbrevRecord)
	w.EnterSubblock(10, 2)
	w.ExitBlock()
	w.ExitBlock()
	w.EnterSubblock(9, 5)
	w.EmitRecord(3, []uint64{1 << 40}, UnabbrevRecord)
	w.ExitBlock()
	w.ExitBlock()

	c := NewCursor(w.Bytes())
	var enters, ends int
	var records []Record
	for !c.AtEndOfStream() {
		entry, err := c.Advance(0)
		if err != nil {
			t.Fatalf("top-level Advance failed: %v", err)
		}
		if entry.Kind != EntrySubBlock {
			t.Fatalf("top-level entry = %v, want SubBlock", entry.Kind)
		}
		enters++
		if _, err := c.EnterSubBlock(entry.ID); err != nil {
			t.Fatalf("EnterSubBlock failed: %v", err)
		}
		walkBlock(t, c, &enters, &ends, &records)
	}

	if enters != 4 || ends != 4 {
		t.Errorf("enters = %d, ends = %d, want 4 and 4", enters, ends)
	}
	if c.Depth() != 0 {
		t.Errorf("Depth at top level = %d, want 0", c.Depth())
	}

	want := []Record{
		{Code: 1, Ops: []uint64{1, 2, 3}},
		{Code: 2, Ops: []uint64{}},
		{Code: 3, Ops: []uint64{1 << 40}},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if c.CodeSize() != 2 {
		t.Errorf("CodeSize at top level = %d, want 2", c.CodeSize())
	}
}

func TestAbbreviatedRecords(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 4)
	arr := w.EmitAbbrev(NewAbbrev(LiteralOp(5), FixedOp(3), VBROp(6), ArrayOp(), Char6Op()))
	blob := w.EmitAbbrev(NewAbbrev(LiteralOp(7), FixedOp(8), BlobOp()))
	w.EmitRecord(5, append([]uint64{6, 1000}, stringOps("dx.op")...), arr)
	w.EmitRecordWithBlob(blob, []uint64{7, 42}, []byte("hello"))
	w.EmitRecord(9, []uint64{4}, UnabbrevRecord)
	w.ExitBlock()

	c := NewCursor(w.Bytes())
	entry, err := c.Advance(0)
	if err != nil || entry.Kind != EntrySubBlock {
		t.Fatalf("Advance = %v, %v", entry, err)
	}
	if _, err := c.EnterSubBlock(entry.ID); err != nil {
		t.Fatal(err)
	}

	var got []Record
	for {
		entry, err := c.Advance(0)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if entry.Kind == EntryEndBlock {
			break
		}
		rec, err := c.ReadRecord(entry.ID, true)
		if err != nil {
			t.Fatalf("ReadRecord(%d) failed: %v", entry.ID, err)
		}
		got = append(got, rec)
	}
	if c.NumAbbrevs() != 0 {
		t.Errorf("NumAbbrevs after leaving the block = %d, want 0", c.NumAbbrevs())
	}

	want := []Record{
		{Code: 5, Ops: append([]uint64{6, 1000}, stringOps("dx.op")...)},
		{Code: 7, Ops: []uint64{42}, Blob: []byte("hello")},
		{Code: 9, Ops: []uint64{4}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestBlobUnpackedIntoOps(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 3)
	id := w.EmitAbbrev(NewAbbrev(LiteralOp(1), BlobOp()))
	w.EmitRecordWithBlob(id, []uint64{1}, []byte{9, 8, 7})
	w.ExitBlock()

	c := enterFirstBlock(t, w.Bytes())
	entry, err := c.Advance(0)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := c.ReadRecord(entry.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{9, 8, 7}, rec.Ops); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if rec.Blob != nil {
		t.Errorf("Blob = %v, want nil", rec.Blob)
	}
}

func TestSkipRecordMatchesReadRecord(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 3)
	arr := w.EmitAbbrev(NewAbbrev(FixedOp(4), ArrayOp(), VBROp(4)))
	blob := w.EmitAbbrev(NewAbbrev(LiteralOp(2), BlobOp()))
	w.EmitRecord(3, []uint64{100, 200, 300}, arr)
	w.EmitRecordWithBlob(blob, []uint64{2}, []byte("abcdefg"))
	w.EmitRecord(11, []uint64{1, 2}, UnabbrevRecord)
	w.Emit(0x5, 3)
	w.ExitBlock()

	c := enterFirstBlock(t, w.Bytes())
	for _, wantCode := range []uint32{3, 2, 11} {
		entry, err := c.Advance(0)
		if err != nil {
			t.Fatal(err)
		}
		code, err := c.SkipRecord(entry.ID)
		if err != nil {
			t.Fatalf("SkipRecord failed: %v", err)
		}
		if code != wantCode {
			t.Errorf("SkipRecord code = %d, want %d", code, wantCode)
		}
	}
	if v, err := c.Read(3); err != nil || v != 0x5 {
		t.Errorf("trailing field = %d, %v; want 5", v, err)
	}
}

func TestBlockInfoInheritance(t *testing.T) {
	const blockID = 9

	w := NewWriter()
	// A block before the BLOCKINFO block does not see its abbreviations.
	w.EnterSubblock(blockID, 3)
	w.EmitRecord(1, []uint64{1}, UnabbrevRecord)
	w.ExitBlock()

	w.EnterBlockInfoBlock()
	abbrevID := w.EmitBlockInfoAbbrev(blockID, NewAbbrev(LiteralOp(4), VBROp(8), FixedOp(1)))
	w.ExitBlock()

	for i := uint64(0); i < 2; i++ {
		w.EnterSubblock(blockID, 3)
		w.EmitRecord(4, []uint64{1000 + i, i}, abbrevID)
		w.ExitBlock()
	}

	c := NewCursor(w.Bytes())

	entry, err := c.Advance(0)
	if err != nil || entry.ID != blockID {
		t.Fatalf("first entry = %v, %v", entry, err)
	}
	if _, err := c.EnterSubBlock(blockID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Abbrev(abbrevID); !errors.Is(err, ErrInvalidAbbrev) {
		t.Errorf("Abbrev before BLOCKINFO error = %v, want ErrInvalidAbbrev", err)
	}
	if err := c.skipToEnd(); err != nil {
		t.Fatal(err)
	}

	entry, err = c.Advance(0)
	if err != nil || entry.ID != BlockInfoBlockID {
		t.Fatalf("second entry = %v, %v", entry, err)
	}
	if err := c.ReadBlockInfoBlock(); err != nil {
		t.Fatalf("ReadBlockInfoBlock failed: %v", err)
	}
	if info := c.Reader().BlockInfo(blockID); info == nil || len(info.Abbrevs) != 1 {
		t.Fatalf("BlockInfo(%d) = %+v, want one abbreviation", blockID, info)
	}

	for i := uint64(0); i < 2; i++ {
		entry, err := c.Advance(0)
		if err != nil || entry.ID != blockID {
			t.Fatalf("block %d entry = %v, %v", i, entry, err)
		}
		if _, err := c.EnterSubBlock(blockID); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Abbrev(abbrevID); err != nil {
			t.Errorf("Abbrev(%d) in block instance %d failed: %v", abbrevID, i, err)
		}
		entry, err = c.Advance(0)
		if err != nil || entry.Kind != EntryRecord || entry.ID != abbrevID {
			t.Fatalf("record entry = %v, %v", entry, err)
		}
		rec, err := c.ReadRecord(entry.ID, false)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(Record{Code: 4, Ops: []uint64{1000 + i, i}}, rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
		if err := c.skipToEnd(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBlockInfoNames(t *testing.T) {
	w := NewWriter()
	w.EnterBlockInfoBlock()
	w.EmitBlockInfoName(12, "FUNCTION_BLOCK")
	w.EmitBlockInfoRecordName(12, 10, "INST_RET")
	w.ExitBlock()

	r := NewReader(w.Bytes())
	r.IgnoreBlockInfoNames = false
	c := r.NewCursor()
	if _, err := c.Advance(0); err != nil {
		t.Fatal(err)
	}
	if err := c.ReadBlockInfoBlock(); err != nil {
		t.Fatal(err)
	}
	info := r.BlockInfo(12)
	if info == nil {
		t.Fatal("BlockInfo(12) = nil")
	}
	if info.Name != "FUNCTION_BLOCK" {
		t.Errorf("Name = %q, want FUNCTION_BLOCK", info.Name)
	}
	if info.RecordNames[10] != "INST_RET" {
		t.Errorf("RecordNames[10] = %q, want INST_RET", info.RecordNames[10])
	}
}

func TestSkipBlock(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(20, 3)
	w.EmitRecord(1, []uint64{1, 2, 3, 4, 5}, UnabbrevRecord)
	w.EnterSubblock(21, 3)
	w.ExitBlock()
	w.ExitBlock()
	w.EnterSubblock(22, 3)
	w.EmitRecord(7, []uint64{77}, UnabbrevRecord)
	w.ExitBlock()

	// At top level every entry is a block, so skipping them all runs off the
	// end of the stream.
	c := NewCursor(w.Bytes())
	if entry, err := c.AdvanceSkippingSubblocks(0); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("AdvanceSkippingSubblocks = %v, %v; want ErrUnexpectedEOF", entry, err)
	}

	c = NewCursor(w.Bytes())
	if _, err := c.Advance(0); err != nil {
		t.Fatal(err)
	}
	if err := c.SkipBlock(); err != nil {
		t.Fatalf("SkipBlock failed: %v", err)
	}
	entry, err := c.Advance(0)
	if err != nil || entry.ID != 22 {
		t.Fatalf("entry after SkipBlock = %v, %v; want block 22", entry, err)
	}
}

func TestInvalidAbbrevID(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 3)
	w.Emit(6, 3) // no abbreviations are defined
	w.ExitBlock()

	c := NewCursor(w.Bytes())
	if _, err := c.Advance(0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EnterSubBlock(8); err != nil {
		t.Fatal(err)
	}
	entry, err := c.Advance(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadRecord(entry.ID, false); !errors.Is(err, ErrInvalidAbbrev) {
		t.Errorf("ReadRecord error = %v, want ErrInvalidAbbrev", err)
	}
}

func TestReadBlockEndUnderflow(t *testing.T) {
	c := NewCursor([]byte{0, 0, 0, 0})
	if err := c.ReadBlockEnd(); !errors.Is(err, ErrScopeUnderflow) {
		t.Errorf("ReadBlockEnd error = %v, want ErrScopeUnderflow", err)
	}
}

func TestMisplacedAggregateOps(t *testing.T) {
	tests := []struct {
		name  string
		abbrv *Abbrev
	}{
		{"array not second to last", NewAbbrev(LiteralOp(1), ArrayOp(), FixedOp(3), FixedOp(2))},
		{"blob not last", NewAbbrev(LiteralOp(1), BlobOp(), FixedOp(2))},
		{"array of blobs", NewAbbrev(LiteralOp(1), ArrayOp(), BlobOp())},
		{"too wide", NewAbbrev(FixedOp(65))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.abbrv.Validate(); err == nil {
				t.Errorf("Validate(%v) succeeded", tt.abbrv)
			}
		})
	}
}

func TestDefineAbbrevRejectsMisplacedArray(t *testing.T) {
	// Hand-encode [Array, Fixed(3), Fixed(2)], which the Writer refuses.
	w := NewWriter()
	w.Emit(DefineAbbrev, 2)
	w.EmitVBR(3, abbrevCountWidth)
	w.Emit(0, 1)
	w.Emit(uint64(EncodingArray), abbrevEncWidth)
	w.Emit(0, 1)
	w.Emit(uint64(EncodingFixed), abbrevEncWidth)
	w.EmitVBR(3, abbrevDataWidth)
	w.Emit(0, 1)
	w.Emit(uint64(EncodingFixed), abbrevEncWidth)
	w.EmitVBR(2, abbrevDataWidth)

	c := NewCursor(w.Bytes())
	if _, err := c.Advance(0); !errors.Is(err, ErrInvalidAbbrevEncoding) {
		t.Errorf("Advance error = %v, want ErrInvalidAbbrevEncoding", err)
	}
}

func TestZeroWidthFieldBecomesLiteral(t *testing.T) {
	w := NewWriter()
	w.Emit(DefineAbbrev, 2)
	w.EmitVBR(2, abbrevCountWidth)
	w.Emit(1, 1)
	w.EmitVBR(3, abbrevLiteralWidth)
	w.Emit(0, 1)
	w.Emit(uint64(EncodingFixed), abbrevEncWidth)
	w.EmitVBR(0, abbrevDataWidth)

	c := NewCursor(w.Bytes())
	if err := c.readDefineAbbrev(); err != nil {
		t.Fatal(err)
	}
	abbv, err := c.Abbrev(FirstApplicationAbbrev)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]AbbrevOp{LiteralOp(3), LiteralOp(0)}, abbv.Ops); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestTruncatedBlob(t *testing.T) {
	w := NewWriter()
	w.EnterSubblock(8, 3)
	id := w.EmitAbbrev(NewAbbrev(LiteralOp(1), BlobOp()))
	w.EmitRecordWithBlob(id, []uint64{1}, make([]byte, 32))
	w.ExitBlock()
	data := w.Bytes()
	data = data[:len(data)-24]

	c := enterFirstBlock(t, data)
	entry, err := c.Advance(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadRecord(entry.ID, true); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadRecord error = %v, want ErrUnexpectedEOF", err)
	}
}

// enterFirstBlock returns a cursor positioned inside the first top-level block.
func enterFirstBlock(t *testing.T, data []byte) *Cursor {
	t.Helper()
	c := NewCursor(data)
	entry, err := c.Advance(0)
	if err != nil || entry.Kind != EntrySubBlock {
		t.Fatalf("Advance = %v, %v; want a sub-block", entry, err)
	}
	if _, err := c.EnterSubBlock(entry.ID); err != nil {
		t.Fatalf("EnterSubBlock failed: %v", err)
	}
	return c
}

// skipToEnd reads records until the current block ends.
func (c *Cursor) skipToEnd() error {
	for {
		entry, err := c.AdvanceSkippingSubblocks(0)
		if err != nil {
			return err
		}
		if entry.Kind == EntryEndBlock {
			return nil
		}
		if _, err := c.SkipRecord(entry.ID); err != nil {
			return err
		}
	}
}

// readDefineAbbrev consumes a DEFINE_ABBREV ID and its body.
func (c *Cursor) readDefineAbbrev() error {
	id, err := c.ReadAbbrevID()
	if err != nil {
		return err
	}
	if id != DefineAbbrev {
		return ErrInvalidAbbrev
	}
	return c.ReadAbbrevRecord()
}
