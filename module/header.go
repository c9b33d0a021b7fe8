package module

import (
	"encoding/binary"
	"errors"
)

// Binary module constants.
const (
	// Magic is "VANM" in little-endian byte order.
	Magic   uint32 = 0x4D4E4156
	Version uint16 = 1

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = 24
)

// Header flag bits.
const (
	// FlagEmbeddedExecutor marks modules that carry a wasm build of the
	// executor between the header and the instruction stream.
	FlagEmbeddedExecutor uint16 = 1 << 0
)

// Parsing errors returned by ParseHeader and Load.
var (
	ErrInvalidLength      = errors.New("module: buffer shorter than header")
	ErrBadMagic           = errors.New("module: bad magic")
	ErrUnsupportedVersion = errors.New("module: unsupported version")
	ErrBadLayout          = errors.New("module: region offsets out of order")
)

// Header holds the fixed fields at the start of a binary module.
type Header struct {
	Version        uint16
	Flags          uint16
	ExecutorOff    uint32
	ExecutorLen    uint32
	StringTableOff uint32
	DataOff        uint32
}

// HasEmbeddedExecutor reports whether the module carries an executor blob.
func (h Header) HasEmbeddedExecutor() bool {
	return h.Flags&FlagEmbeddedExecutor != 0
}

// ParseHeader validates the magic and version and decodes the fixed
// header fields. Region ordering is validated by Load, which knows the
// full buffer length.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrInvalidLength
	}
	if binary.LittleEndian.Uint32(data[0:]) != Magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:        binary.LittleEndian.Uint16(data[4:]),
		Flags:          binary.LittleEndian.Uint16(data[6:]),
		ExecutorOff:    binary.LittleEndian.Uint32(data[8:]),
		ExecutorLen:    binary.LittleEndian.Uint32(data[12:]),
		StringTableOff: binary.LittleEndian.Uint32(data[16:]),
		DataOff:        binary.LittleEndian.Uint32(data[20:]),
	}
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	return h, nil
}
