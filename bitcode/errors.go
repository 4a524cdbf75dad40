package bitcode

import (
	"fmt"

	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Reader Error Types
// ---------------------------------------------------------------------------

// ErrorCode classifies reader failures.
type ErrorCode uint8

const (
	// CorruptedBitcode covers malformed blocks and records, invalid IDs and
	// type mismatches.
	CorruptedBitcode ErrorCode = iota + 1
	// InvalidBitcodeSignature means the buffer is not bitcode at all.
	InvalidBitcodeSignature
	// NotImplemented marks well-formed input using a construct this reader
	// does not support.
	NotImplemented
)

func (c ErrorCode) String() string {
	switch c {
	case CorruptedBitcode:
		return "corrupted bitcode"
	case InvalidBitcodeSignature:
		return "invalid bitcode signature"
	case NotImplemented:
		return "not implemented"
	}
	return fmt.Sprintf("ErrorCode(%d)", uint8(c))
}

// Error is the error type returned by the reader. Match a class of failure
// with errors.Is against ErrCorruptedBitcode, ErrInvalidBitcodeSignature or
// ErrNotImplemented.
type Error struct {
	Code   ErrorCode
	Msg    string
	BitPos uint64 // position in the stream when the failure was detected
	Err    error  // underlying stream error, if any
}

var (
	ErrCorruptedBitcode        = &Error{Code: CorruptedBitcode}
	ErrInvalidBitcodeSignature = &Error{Code: InvalidBitcodeSignature}
	ErrNotImplemented          = &Error{Code: NotImplemented}
)

func (e *Error) Error() string {
	s := e.Code.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.BitPos != 0 {
		s += fmt.Sprintf(" (bit %d)", e.BitPos)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return "bitcode: " + s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Msg == "" && t.Err == nil
}

// error builds a CorruptedBitcode error at the current stream position.
func (r *Reader) error(msg string) error {
	return &Error{Code: CorruptedBitcode, Msg: msg, BitPos: r.bitPos()}
}

func (r *Reader) errorf(format string, args ...any) error {
	return r.error(fmt.Sprintf(format, args...))
}

// notImplemented reports a construct the reader recognizes but does not
// decode.
func (r *Reader) notImplemented(what string) error {
	return &Error{Code: NotImplemented, Msg: what, BitPos: r.bitPos()}
}

// streamError wraps a failure of the underlying bitstream cursor.
func (r *Reader) streamError(err error, msg string) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Code: CorruptedBitcode, Msg: msg, BitPos: r.bitPos(), Err: errors.WithStack(err)}
}

func (r *Reader) bitPos() uint64 {
	if r.cursor == nil {
		return 0
	}
	return r.cursor.CurrentBitNo()
}

// Value and metadata table failures, turned into *Error by the reader.
var (
	errTypeMismatch   = errors.New("type mismatch in value table")
	errInvalidValueID = errors.New("invalid value ID")
	errRedefinedValue = errors.New("value defined twice")
)

// tableError reports a value or metadata table failure as corruption.
func (r *Reader) tableError(err error) error {
	return r.error(err.Error())
}
