package module

import (
	"encoding/binary"
	"math"
)

// Reader decodes instruction immediates from a bytecode region. Reads
// past the end of the region set a sticky failure flag and return zero
// values; the caller checks Bad once per instruction instead of
// propagating an error from every read. A truncated or overlong varint
// at the tail of the stream therefore terminates a scan cleanly rather
// than reading out of bounds.
type Reader struct {
	code []byte
	pc   int
	bad  bool
}

// NewReader creates a Reader positioned at pc within code.
func NewReader(code []byte, pc int) Reader {
	return Reader{code: code, pc: pc}
}

// PC returns the current byte position.
func (r *Reader) PC() int { return r.pc }

// Bad reports whether any read has run past the region end.
func (r *Reader) Bad() bool { return r.bad }

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	if r.bad || r.pc >= len(r.code) {
		r.bad = true
		return 0
	}
	b := r.code[r.pc]
	r.pc++
	return b
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	if r.bad || r.pc+2 > len(r.code) {
		r.bad = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.code[r.pc:])
	r.pc += 2
	return v
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	if r.bad || r.pc+4 > len(r.code) {
		r.bad = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.code[r.pc:])
	r.pc += 4
	return v
}

// F32 reads a little-endian float32.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Varint reads an unsigned LEB128 value, at most 5 bytes wide.
func (r *Reader) Varint() uint32 {
	var result uint32
	var shift uint
	for {
		if r.bad || r.pc >= len(r.code) {
			r.bad = true
			return 0
		}
		b := r.code[r.pc]
		r.pc++
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result
		}
		shift += 7
		if shift >= 35 {
			r.bad = true
			return 0
		}
	}
}

// Bytes returns the next n bytes without copying. The slice aliases the
// bytecode region and is only valid while the region is.
func (r *Reader) Bytes(n int) []byte {
	if r.bad || n < 0 || r.pc+n > len(r.code) {
		r.bad = true
		return nil
	}
	b := r.code[r.pc : r.pc+n]
	r.pc += n
	return b
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	if r.bad || n < 0 || r.pc+n > len(r.code) {
		r.bad = true
		return
	}
	r.pc += n
}
