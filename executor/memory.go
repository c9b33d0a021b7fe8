package executor

import (
	"encoding/binary"
	"math"

	verrors "github.com/vireo-gfx/vireo/errors"
)

// arenaMemory adapts the executor arena to the vireo.Memory interface.
type arenaMemory struct {
	buf []byte
}

func (m arenaMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m arenaMemory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, verrors.OutOfBounds(verrors.PhaseDispatch, []string{"arena"}, int(offset), int(length))
	}
	return m.buf[offset : offset+length], nil
}

func (m arenaMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m arenaMemory) ReadU16(offset uint32) (uint16, error) {
	b, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m arenaMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m arenaMemory) ReadF32(offset uint32) (float32, error) {
	v, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}
