// Package bitstream reads and writes the LLVM bitstream container format: a
// bit-packed sequence of nested blocks and records, where records are either
// self-describing (UNABBREV_RECORD) or laid out by abbreviations defined in
// the stream.
//
// # Layers
//
// The package has two layers sharing one Cursor type:
//
//   - Bit level: Read, ReadVBR, ReadVBR64, JumpToBit, SkipToFourByteBoundary.
//     Fields are read least significant bit first from 64-bit words that are
//     refilled lazily from the buffer.
//
//   - Block level: Advance, EnterSubBlock, ReadBlockEnd, SkipBlock,
//     ReadRecord, SkipRecord. Each entered block pushes a scope holding the
//     enclosing block's abbreviation width and table; ReadBlockEnd pops it.
//
// # BLOCKINFO
//
// Block 0 is the BLOCKINFO meta-block. Abbreviations defined inside it after a
// SETBID record belong to the named block ID and are installed at the front of
// the abbreviation table of every block with that ID entered afterwards. The
// Reader keeps these tables, so they are shared by all cursors of a stream.
//
// # Errors
//
// Malformed input is never skipped: every violation (truncated buffer,
// abbreviation ID outside the table, misplaced Array or Blob operand, block
// end without a matching start) returns an error wrapping one of the package
// sentinels, and the cursor should be discarded.
package bitstream
