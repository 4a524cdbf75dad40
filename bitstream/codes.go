package bitstream

// Fixed abbreviation IDs. Every block reserves these; application-defined
// abbreviations are numbered from FirstApplicationAbbrev.
const (
	EndBlock       = 0
	EnterSubblock  = 1
	DefineAbbrev   = 2
	UnabbrevRecord = 3

	FirstApplicationAbbrev = 4
)

// Block IDs below FirstApplicationBlockID are reserved for the stream format
// itself. Only BLOCKINFO is defined.
const (
	BlockInfoBlockID        = 0
	FirstApplicationBlockID = 8
)

// Record codes inside the BLOCKINFO block.
const (
	BlockInfoCodeSetBID        = 1
	BlockInfoCodeBlockName     = 2
	BlockInfoCodeSetRecordName = 3
)

// Widths of the self-describing parts of the stream.
const (
	blockIDWidth       = 8  // VBR width of the block ID after ENTER_SUBBLOCK
	codeLenWidth       = 4  // VBR width of the new abbrev ID width
	blockSizeWidth     = 32 // fixed width of the block length in words
	unabbrevWidth      = 6  // VBR width of code, count and fields of UNABBREV_RECORD
	abbrevCountWidth   = 5  // VBR width of the operand count in DEFINE_ABBREV
	abbrevLiteralWidth = 8  // VBR width of a literal operand
	abbrevDataWidth    = 5  // VBR width of Fixed/VBR operand widths
	abbrevEncWidth     = 3  // fixed width of the encoding tag
	arrayLenWidth      = 6  // VBR width of array and blob lengths

	// MaxChunkSize bounds the width of a single Fixed or VBR field.
	MaxChunkSize = 64
)

// AdvanceFlags tune the behaviour of Cursor.Advance.
type AdvanceFlags uint

const (
	// AdvanceDontPopBlockAtEnd leaves the block scope in place when an
	// END_BLOCK is seen; the caller is responsible for calling ReadBlockEnd.
	AdvanceDontPopBlockAtEnd AdvanceFlags = 1 << iota

	// AdvanceDontAutoprocessAbbrevs surfaces DEFINE_ABBREV as a record
	// instead of appending it to the current abbreviation table.
	AdvanceDontAutoprocessAbbrevs
)

// EntryKind classifies what Advance found next in the stream.
type EntryKind uint8

const (
	EntryEndBlock EntryKind = iota + 1
	EntrySubBlock
	EntryRecord
)

func (k EntryKind) String() string {
	switch k {
	case EntryEndBlock:
		return "EndBlock"
	case EntrySubBlock:
		return "SubBlock"
	case EntryRecord:
		return "Record"
	default:
		return "Invalid"
	}
}

// Entry is the unit returned by Advance. For EntrySubBlock, ID is the block ID
// of the sub-block; for EntryRecord it is the abbreviation ID to hand to
// ReadRecord or SkipRecord.
type Entry struct {
	Kind EntryKind
	ID   uint32
}

func endBlockEntry() Entry            { return Entry{Kind: EntryEndBlock} }
func subBlockEntry(id uint32) Entry   { return Entry{Kind: EntrySubBlock, ID: id} }
func recordEntry(abbrev uint32) Entry { return Entry{Kind: EntryRecord, ID: abbrev} }
