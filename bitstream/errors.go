package bitstream

import (
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Stream Error Types
// ---------------------------------------------------------------------------

// A corrupt low-level stream cannot be resynchronised, so every one of these
// aborts the read that produced it.
var (
	ErrUnexpectedEOF         = errors.New("unexpected end of bitstream")
	ErrInvalidAbbrev         = errors.New("invalid abbreviation ID")
	ErrInvalidAbbrevEncoding = errors.New("invalid abbreviation encoding")
	ErrMalformedBlock        = errors.New("malformed block")
	ErrScopeUnderflow        = errors.New("block end without matching block start")
	ErrInvalidJump           = errors.New("jump target outside of bitstream")
	ErrInvalidWidth          = errors.New("invalid field width")
	ErrMalformedBlockInfo    = errors.New("malformed BLOCKINFO block")
)
