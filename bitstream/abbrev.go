package bitstream

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Encoding is the tag of a non-literal abbreviation operand as written in the
// stream (3 bits).
type Encoding uint8

const (
	EncodingFixed Encoding = 1
	EncodingVBR   Encoding = 2
	EncodingArray Encoding = 3
	EncodingChar6 Encoding = 4
	EncodingBlob  Encoding = 5
)

func (e Encoding) String() string {
	switch e {
	case EncodingFixed:
		return "Fixed"
	case EncodingVBR:
		return "VBR"
	case EncodingArray:
		return "Array"
	case EncodingChar6:
		return "Char6"
	case EncodingBlob:
		return "Blob"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// hasData reports whether the encoding carries a width.
func (e Encoding) hasData() bool {
	return e == EncodingFixed || e == EncodingVBR
}

func (e Encoding) valid() bool {
	return e >= EncodingFixed && e <= EncodingBlob
}

// AbbrevOp is a single operand of an abbreviation: either a literal value that
// is never stored in the stream, or an encoding that describes how to read the
// next field.
type AbbrevOp struct {
	Literal  bool
	Value    uint64 // literal value, or the width for Fixed/VBR
	Encoding Encoding
}

// LiteralOp returns an operand that always yields v.
func LiteralOp(v uint64) AbbrevOp {
	return AbbrevOp{Literal: true, Value: v}
}

// FixedOp returns a fixed-width operand.
func FixedOp(width uint64) AbbrevOp {
	return AbbrevOp{Encoding: EncodingFixed, Value: width}
}

// VBROp returns a variable-bit-rate operand with the given chunk width.
func VBROp(width uint64) AbbrevOp {
	return AbbrevOp{Encoding: EncodingVBR, Value: width}
}

// ArrayOp returns an array operand; the element encoding is the next operand.
func ArrayOp() AbbrevOp {
	return AbbrevOp{Encoding: EncodingArray}
}

// Char6Op returns a 6-bit character operand.
func Char6Op() AbbrevOp {
	return AbbrevOp{Encoding: EncodingChar6}
}

// BlobOp returns a blob operand.
func BlobOp() AbbrevOp {
	return AbbrevOp{Encoding: EncodingBlob}
}

// IsEncoding reports whether the operand reads from the stream.
func (op AbbrevOp) IsEncoding() bool {
	return !op.Literal
}

func (op AbbrevOp) String() string {
	if op.Literal {
		return fmt.Sprintf("Literal(%d)", op.Value)
	}
	if op.Encoding.hasData() {
		return fmt.Sprintf("%s(%d)", op.Encoding, op.Value)
	}
	return op.Encoding.String()
}

// Abbrev is an ordered list of operands describing the layout of a record.
// The first operand conventionally encodes the record code.
type Abbrev struct {
	Ops []AbbrevOp
}

// NewAbbrev builds an abbreviation from its operands.
func NewAbbrev(ops ...AbbrevOp) *Abbrev {
	return &Abbrev{Ops: ops}
}

// Add appends an operand.
func (a *Abbrev) Add(op AbbrevOp) {
	a.Ops = append(a.Ops, op)
}

// NumOps returns the number of operands.
func (a *Abbrev) NumOps() int {
	return len(a.Ops)
}

// Op returns operand i.
func (a *Abbrev) Op(i int) AbbrevOp {
	return a.Ops[i]
}

// Validate checks the positional rules of variable-length operands: an Array
// must be second to last and followed by a scalar element encoding, a Blob
// must be last.
func (a *Abbrev) Validate() error {
	for i, op := range a.Ops {
		if op.Literal {
			continue
		}
		switch op.Encoding {
		case EncodingArray:
			if i != len(a.Ops)-2 {
				return errors.Wrap(ErrInvalidAbbrevEncoding, "array op not second to last")
			}
			elt := a.Ops[i+1]
			if !elt.Literal && (elt.Encoding == EncodingArray || elt.Encoding == EncodingBlob) {
				return errors.Wrap(ErrInvalidAbbrevEncoding, "array element type can't be an array or blob")
			}
		case EncodingBlob:
			if i != len(a.Ops)-1 {
				return errors.Wrap(ErrInvalidAbbrevEncoding, "blob op not last")
			}
		case EncodingFixed, EncodingVBR:
			if op.Value > MaxChunkSize {
				return errors.Wrapf(ErrInvalidWidth, "%s width %d exceeds %d", op.Encoding, op.Value, MaxChunkSize)
			}
		}
	}
	return nil
}

func (a *Abbrev) String() string {
	parts := make([]string, len(a.Ops))
	for i, op := range a.Ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ---------------------------------------------------------------------------
// Char6
// ---------------------------------------------------------------------------

const char6Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._"

// DecodeChar6 maps a 6-bit value to its character.
func DecodeChar6(v uint64) byte {
	return char6Alphabet[v&63]
}

// EncodeChar6 maps a character to its 6-bit value. ok is false for
// characters outside [a-zA-Z0-9._].
func EncodeChar6(c byte) (v uint64, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return uint64(c-'A') + 26, true
	case c >= '0' && c <= '9':
		return uint64(c-'0') + 52, true
	case c == '.':
		return 62, true
	case c == '_':
		return 63, true
	}
	return 0, false
}

// IsChar6 reports whether every byte of s is encodable as Char6.
func IsChar6(s string) bool {
	for i := 0; i < len(s); i++ {
		if _, ok := EncodeChar6(s[i]); !ok {
			return false
		}
	}
	return true
}
