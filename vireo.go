package vireo

import "context"

// Status is the flat integer result returned across the host boundary by
// Init and Frame. Zero means success; anything else leaves the command
// buffer stale and the session otherwise unchanged.
type Status uint32

const (
	StatusOK                 Status = 0
	StatusInvalidLength      Status = 1
	StatusBadMagic           Status = 2
	StatusUnsupportedVersion Status = 3
	StatusNotInitialized     Status = 4
	StatusInvalidArgument    Status = 5
	StatusInternal           Status = 6
)

// String returns a short diagnostic name for the status code.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidLength:
		return "invalid_length"
	case StatusBadMagic:
		return "bad_magic"
	case StatusUnsupportedVersion:
		return "unsupported_version"
	case StatusNotInitialized:
		return "not_initialized"
	case StatusInvalidArgument:
		return "invalid_argument"
	case StatusInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Memory is a bounds-checked view of a session's linear memory. Pointers
// carried inside command buffers are offsets into this space. The same
// interface covers the native executor's arena and a wasm instance's
// linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadF32(offset uint32) (float32, error)
	Size() uint32
}

// Session is the host-facing surface of one loaded animation. Calls are
// strictly serialized: load buffers, Init once, then Frame repeatedly.
// Any pointer or slice obtained from the session is valid only until its
// next call.
type Session interface {
	// BytecodeBuffer exposes the writable bytecode region at full
	// capacity. The host copies a module in and then calls SetBytecodeLen.
	BytecodeBuffer() []byte
	SetBytecodeLen(n uint32) Status

	// DataBuffer exposes the writable external data region, used when the
	// module's data section is supplied out of band.
	DataBuffer() []byte
	SetDataLen(n uint32) Status

	// Init validates the module and replays the resource-creation scan
	// into the command buffer.
	Init(ctx context.Context) Status

	// Frame replays one frame at the given time and viewport size.
	// Requires width and height > 0.
	Frame(ctx context.Context, time float32, width, height uint32) Status

	// CommandPtr and CommandLen locate the most recent command buffer in
	// session memory. The length is read from the buffer's own header.
	CommandPtr() uint32
	CommandLen() uint32

	// FrameCounter reports how many frames have been executed since Init.
	FrameCounter() uint32

	Memory() Memory
}
