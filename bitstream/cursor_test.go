package bitstream

import (
	"errors"
	"math/rand"
	"testing"
)

func TestReadFixedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	type field struct {
		width uint
		value uint64
	}
	var fields []field
	for i := 0; i < 2000; i++ {
		w := uint(rng.Intn(64)) + 1
		fields = append(fields, field{width: w, value: lowBits(rng.Uint64(), w)})
	}

	w := NewWriter()
	for _, f := range fields {
		w.Emit(f.value, f.width)
	}

	c := NewCursor(w.Bytes())
	for i, f := range fields {
		got, err := c.Read(f.width)
		if err != nil {
			t.Fatalf("field %d: Read(%d) failed: %v", i, f.width, err)
		}
		if got != f.value {
			t.Fatalf("field %d: Read(%d) = %#x, want %#x", i, f.width, got, f.value)
		}
	}
}

func TestReadVBRRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 3, 15, 16, 31, 32, 63, 64, 127, 128, 255, 1000,
		1<<31 - 1, 1 << 31, 1<<32 - 1, 1 << 32,
		1<<63 - 1, 1 << 63, ^uint64(0),
	}

	for n := uint(2); n <= 32; n++ {
		w := NewWriter()
		for _, v := range values {
			w.EmitVBR64(v, n)
		}

		c := NewCursor(w.Bytes())
		for _, v := range values {
			got, err := c.ReadVBR64(n)
			if err != nil {
				t.Fatalf("VBR%d: ReadVBR64 of %d failed: %v", n, v, err)
			}
			if got != v {
				t.Fatalf("VBR%d: ReadVBR64 = %d, want %d", n, got, v)
			}
		}
	}
}

func TestReadVBR32Overflow(t *testing.T) {
	w := NewWriter()
	w.EmitVBR64(1<<40, 6)

	c := NewCursor(w.Bytes())
	if _, err := c.ReadVBR(6); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("ReadVBR error = %v, want ErrInvalidWidth", err)
	}
}

func TestReadPastEnd(t *testing.T) {
	c := NewCursor([]byte{0xff, 0xff, 0xff, 0xff})

	if v, err := c.Read(32); err != nil || v != 0xffffffff {
		t.Fatalf("Read(32) = %#x, %v", v, err)
	}
	if !c.AtEndOfStream() {
		t.Error("AtEndOfStream = false after consuming the buffer")
	}
	if _, err := c.Read(1); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Read past end error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReadSpanningWords(t *testing.T) {
	w := NewWriter()
	w.Emit(0x5, 60)
	w.Emit(0xabcdef, 24)
	w.Emit(0x1, 12)

	c := NewCursor(w.Bytes())
	if _, err := c.Read(60); err != nil {
		t.Fatal(err)
	}
	got, err := c.Read(24)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xabcdef {
		t.Errorf("Read(24) across a word boundary = %#x, want 0xabcdef", got)
	}
	if c.CurrentBitNo() != 84 {
		t.Errorf("CurrentBitNo = %d, want 84", c.CurrentBitNo())
	}
}

func TestJumpToBit(t *testing.T) {
	w := NewWriter()
	for i := uint64(0); i < 16; i++ {
		w.Emit(i, 10)
	}
	data := w.Bytes()

	c := NewCursor(data)
	for _, i := range []uint64{7, 2, 15, 0, 9} {
		if err := c.JumpToBit(i * 10); err != nil {
			t.Fatalf("JumpToBit(%d) failed: %v", i*10, err)
		}
		if c.CurrentBitNo() != i*10 {
			t.Errorf("CurrentBitNo = %d, want %d", c.CurrentBitNo(), i*10)
		}
		got, err := c.Read(10)
		if err != nil {
			t.Fatalf("Read after JumpToBit(%d) failed: %v", i*10, err)
		}
		if got != i {
			t.Errorf("value at bit %d = %d, want %d", i*10, got, i)
		}
	}

	if err := c.JumpToBit(uint64(len(data))*8 + 8); !errors.Is(err, ErrInvalidJump) {
		t.Errorf("JumpToBit past end error = %v, want ErrInvalidJump", err)
	}
	if err := c.JumpToBit(uint64(len(data)) * 8); err != nil {
		t.Errorf("JumpToBit to end failed: %v", err)
	}
	if !c.AtEndOfStream() {
		t.Error("AtEndOfStream = false after jumping to the end")
	}
}

func TestCanSkipToPos(t *testing.T) {
	c := NewCursor(make([]byte, 8))
	tests := []struct {
		pos  uint64
		want bool
	}{
		{0, true},
		{1, true},
		{8, true},
		{9, false},
	}
	for _, tt := range tests {
		if got := c.CanSkipToPos(tt.pos); got != tt.want {
			t.Errorf("CanSkipToPos(%d) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestSkipToFourByteBoundary(t *testing.T) {
	w := NewWriter()
	w.Emit(0x3, 5)
	w.FlushToWord()
	w.Emit(0xdeadbeef, 32)
	w.Emit(0x7, 3)
	w.FlushToWord()
	w.Emit(0x1234, 16)

	c := NewCursor(w.Bytes())
	if _, err := c.Read(5); err != nil {
		t.Fatal(err)
	}
	c.SkipToFourByteBoundary()
	if c.CurrentBitNo() != 32 {
		t.Fatalf("CurrentBitNo after first skip = %d, want 32", c.CurrentBitNo())
	}
	if v, _ := c.Read(32); v != 0xdeadbeef {
		t.Errorf("Read(32) = %#x, want 0xdeadbeef", v)
	}
	if _, err := c.Read(3); err != nil {
		t.Fatal(err)
	}
	c.SkipToFourByteBoundary()
	if c.CurrentBitNo() != 96 {
		t.Fatalf("CurrentBitNo after second skip = %d, want 96", c.CurrentBitNo())
	}
	if v, _ := c.Read(16); v != 0x1234 {
		t.Errorf("Read(16) = %#x, want 0x1234", v)
	}
}

func TestChar6(t *testing.T) {
	for v := uint64(0); v < 64; v++ {
		c := DecodeChar6(v)
		back, ok := EncodeChar6(c)
		if !ok || back != v {
			t.Errorf("EncodeChar6(DecodeChar6(%d)) = %d, %v", v, back, ok)
		}
	}
	if _, ok := EncodeChar6('-'); ok {
		t.Error("EncodeChar6('-') succeeded")
	}
	if !IsChar6("dx.op_1") || IsChar6("a b") {
		t.Error("IsChar6 misclassified input")
	}
}
