package module

// Module is an immutable, validated view over one binary module buffer.
// It owns no memory of its own; every accessor returns a sub-slice of the
// buffer handed to Load. The regions satisfy
//
//	bytecodeStart <= stringTableOff <= dataOff <= len
//
// which Load checks once so no later accessor has to.
type Module struct {
	buf           []byte
	hdr           Header
	bytecodeStart uint32
}

// Load validates a binary module and indexes its regions.
func Load(data []byte) (*Module, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	bytecodeStart := uint32(HeaderSize)
	if hdr.HasEmbeddedExecutor() {
		// The executor blob sits between header and bytecode.
		if uint64(hdr.ExecutorOff) < HeaderSize {
			return nil, ErrBadLayout
		}
		end := uint64(hdr.ExecutorOff) + uint64(hdr.ExecutorLen)
		if end > uint64(len(data)) {
			return nil, ErrBadLayout
		}
		bytecodeStart = uint32(end)
	}

	if uint64(bytecodeStart) > uint64(hdr.StringTableOff) ||
		uint64(hdr.StringTableOff) > uint64(hdr.DataOff) ||
		uint64(hdr.DataOff) > uint64(len(data)) {
		return nil, ErrBadLayout
	}

	return &Module{buf: data, hdr: hdr, bytecodeStart: bytecodeStart}, nil
}

// Header returns the decoded header fields.
func (m *Module) Header() Header { return m.hdr }

// Len returns the module buffer length.
func (m *Module) Len() uint32 { return uint32(len(m.buf)) }

// Bytes returns the whole module buffer.
func (m *Module) Bytes() []byte { return m.buf }

// BytecodeStart returns the byte offset of the instruction stream within
// the module buffer.
func (m *Module) BytecodeStart() uint32 { return m.bytecodeStart }

// Bytecode returns the instruction stream region.
func (m *Module) Bytecode() []byte {
	return m.buf[m.bytecodeStart:m.hdr.StringTableOff]
}

// StringTable returns the string table region.
func (m *Module) StringTable() []byte {
	return m.buf[m.hdr.StringTableOff:m.hdr.DataOff]
}

// Data returns the embedded data section region. Empty when the data
// section is supplied in a separate buffer.
func (m *Module) Data() []byte {
	return m.buf[m.hdr.DataOff:]
}

// ExecutorBlob returns the embedded executor bytes, or nil when the
// module has none.
func (m *Module) ExecutorBlob() []byte {
	if !m.hdr.HasEmbeddedExecutor() {
		return nil
	}
	return m.buf[m.hdr.ExecutorOff : m.hdr.ExecutorOff+m.hdr.ExecutorLen]
}
