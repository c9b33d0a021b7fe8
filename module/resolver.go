package module

import "encoding/binary"

// Resolver provides O(1) bounds-checked lookup of strings and data blobs
// by numeric id. Out-of-range ids and malformed tables degrade to empty
// results; a lookup never fails loudly and never reads out of bounds.
//
// String table layout: u16 count, then count little-endian u16 offsets,
// then count u16 lengths, then UTF-8 bytes. Offsets are relative to the
// start of the byte area after both arrays.
//
// Data section layout: u16 count, then count {offset u32, len u32}
// entries, then raw bytes. Offsets are relative to the payload start
// after the entry table.
type Resolver struct {
	strings []byte
	data    []byte
}

// NewResolver creates a resolver over a string table region and a data
// section region. The data region may come from the module buffer or
// from a separately supplied buffer; the layouts are identical.
func NewResolver(strings, data []byte) Resolver {
	return Resolver{strings: strings, data: data}
}

// StringRange returns the (offset, length) of a string relative to the
// start of the string table region. ok is false for out-of-range ids and
// malformed tables.
func (r Resolver) StringRange(id uint16) (off, length uint32, ok bool) {
	tbl := r.strings
	if len(tbl) < 2 {
		return 0, 0, false
	}
	count := binary.LittleEndian.Uint16(tbl)
	if id >= count {
		return 0, 0, false
	}
	base := 2 + int(count)*4 // after offset and length arrays
	if base > len(tbl) {
		return 0, 0, false
	}
	relOff := binary.LittleEndian.Uint16(tbl[2+int(id)*2:])
	relLen := binary.LittleEndian.Uint16(tbl[2+int(count)*2+int(id)*2:])
	end := uint64(base) + uint64(relOff) + uint64(relLen)
	if end > uint64(len(tbl)) {
		return 0, 0, false
	}
	return uint32(base) + uint32(relOff), uint32(relLen), true
}

// String returns the UTF-8 bytes of a string. Empty for bad ids.
func (r Resolver) String(id uint16) []byte {
	off, length, ok := r.StringRange(id)
	if !ok {
		return nil
	}
	return r.strings[off : off+length]
}

// DataRange returns the (offset, length) of a blob relative to the start
// of the data section region. ok is false for out-of-range ids and
// malformed tables.
func (r Resolver) DataRange(id uint16) (off, length uint32, ok bool) {
	d := r.data
	if len(d) < 2 {
		return 0, 0, false
	}
	count := binary.LittleEndian.Uint16(d)
	if id >= count {
		return 0, 0, false
	}
	base := 2 + int(count)*8 // after entry table
	if base > len(d) {
		return 0, 0, false
	}
	entry := 2 + int(id)*8
	relOff := binary.LittleEndian.Uint32(d[entry:])
	relLen := binary.LittleEndian.Uint32(d[entry+4:])
	end := uint64(base) + uint64(relOff) + uint64(relLen)
	if end > uint64(len(d)) {
		return 0, 0, false
	}
	return uint32(base) + uint32(relOff), uint32(relLen), true
}

// Data returns the bytes of a blob. Empty for bad ids.
func (r Resolver) Data(id uint16) []byte {
	off, length, ok := r.DataRange(id)
	if !ok {
		return nil
	}
	return r.data[off : off+length]
}
