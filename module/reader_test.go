package module

import "testing"

func TestReaderFixedWidth(t *testing.T) {
	code := []byte{0x2A, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0x00, 0x00, 0x80, 0x3F}
	r := NewReader(code, 0)

	if got := r.U8(); got != 0x2A {
		t.Errorf("U8: got 0x%02x", got)
	}
	if got := r.U16(); got != 0x1234 {
		t.Errorf("U16: got 0x%04x", got)
	}
	if got := r.U32(); got != 0x12345678 {
		t.Errorf("U32: got 0x%08x", got)
	}
	if got := r.F32(); got != 1.0 {
		t.Errorf("F32: got %v", got)
	}
	if r.Bad() {
		t.Error("unexpected bad flag")
	}
	if r.PC() != len(code) {
		t.Errorf("PC: got %d, want %d", r.PC(), len(code))
	}
}

func TestReaderVarint(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded, 0)
		got := r.Varint()
		if r.Bad() {
			t.Errorf("Varint(%v): unexpected bad flag", tt.encoded)
			continue
		}
		if got != tt.want {
			t.Errorf("Varint(%v): got %d, want %d", tt.encoded, got, tt.want)
		}
	}
}

func TestReaderVarintTruncated(t *testing.T) {
	// Continuation bit set on the last available byte.
	r := NewReader([]byte{0x80}, 0)
	r.Varint()
	if !r.Bad() {
		t.Error("expected bad flag for truncated varint")
	}
}

func TestReaderVarintOverlong(t *testing.T) {
	r := NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, 0)
	r.Varint()
	if !r.Bad() {
		t.Error("expected bad flag for overlong varint")
	}
}

func TestReaderStickyBad(t *testing.T) {
	r := NewReader([]byte{0x01}, 0)
	r.U32() // overruns
	if !r.Bad() {
		t.Fatal("expected bad flag")
	}
	// Every later read keeps returning zero values.
	if got := r.U8(); got != 0 {
		t.Errorf("U8 after bad: got %d", got)
	}
	if got := r.Varint(); got != 0 {
		t.Errorf("Varint after bad: got %d", got)
	}
	if got := r.Bytes(1); got != nil {
		t.Errorf("Bytes after bad: got %v", got)
	}
}

func TestReaderBytesAliases(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	r := NewReader(code, 1)
	got := r.Bytes(2)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("Bytes: got %v", got)
	}
	if r.PC() != 3 {
		t.Errorf("PC: got %d", r.PC())
	}
}
