// Package asm builds binary animation modules programmatically. It is
// the authoring side of the module format: tests and tools describe a
// program through the Builder's fluent instruction methods and receive
// the exact bytes the loader expects, with the string table, data
// section and header laid out and back-patched automatically.
package asm

import (
	"encoding/binary"
	"math"

	"github.com/vireo-gfx/vireo/module"
)

// Arg is one typed argument of a nested module call.
type Arg struct {
	Bits uint64
	Tag  byte
}

// I32 makes a 32-bit integer call argument.
func I32(v int32) Arg { return Arg{Tag: module.ArgI32, Bits: uint64(uint32(v))} }

// I64 makes a 64-bit integer call argument.
func I64(v int64) Arg { return Arg{Tag: module.ArgI64, Bits: uint64(v)} }

// F32 makes a 32-bit float call argument.
func F32(v float32) Arg { return Arg{Tag: module.ArgF32, Bits: uint64(math.Float32bits(v))} }

// F64 makes a 64-bit float call argument.
func F64(v float64) Arg { return Arg{Tag: module.ArgF64, Bits: math.Float64bits(v)} }

// Builder accumulates instructions, strings and data blobs and
// assembles them into a complete module. Methods chain; Build may be
// called once at the end.
type Builder struct {
	code     []byte
	strings  []string
	data     [][]byte
	executor []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// String interns a string and returns its table id. Repeated values
// share one entry.
func (b *Builder) String(s string) uint16 {
	for i, have := range b.strings {
		if have == s {
			return uint16(i)
		}
	}
	b.strings = append(b.strings, s)
	return uint16(len(b.strings) - 1)
}

// Data adds a blob to the data section and returns its id.
func (b *Builder) Data(blob []byte) uint16 {
	b.data = append(b.data, blob)
	return uint16(len(b.data) - 1)
}

// EmbedExecutor attaches a wasm executor blob, setting the matching
// header flag.
func (b *Builder) EmbedExecutor(blob []byte) *Builder {
	b.executor = blob
	return b
}

// Raw appends arbitrary bytes to the instruction stream. Escape hatch
// for malformed-input tests.
func (b *Builder) Raw(bytes ...byte) *Builder {
	b.code = append(b.code, bytes...)
	return b
}

func (b *Builder) op(op byte) *Builder {
	b.code = append(b.code, op)
	return b
}

func (b *Builder) u8(v uint8) *Builder {
	b.code = append(b.code, v)
	return b
}

func (b *Builder) u16(v uint16) *Builder {
	b.code = binary.LittleEndian.AppendUint16(b.code, v)
	return b
}

func (b *Builder) f32(v float32) *Builder {
	b.code = binary.LittleEndian.AppendUint32(b.code, math.Float32bits(v))
	return b
}

func (b *Builder) varint(v uint32) *Builder {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.code = append(b.code, c)
		if v == 0 {
			return b
		}
	}
}

func (b *Builder) Nop() *Builder { return b.op(module.OpNop) }
func (b *Builder) End() *Builder { return b.op(module.OpEnd) }

func (b *Builder) DefinePass(id uint8) *Builder { return b.op(module.OpDefinePass).u8(id) }
func (b *Builder) EndPassDef() *Builder         { return b.op(module.OpEndPassDef) }
func (b *Builder) DefineFrame() *Builder        { return b.op(module.OpDefineFrame) }
func (b *Builder) EndFrame() *Builder           { return b.op(module.OpEndFrame) }
func (b *Builder) ExecPass(id uint8) *Builder   { return b.op(module.OpExecPass).u8(id) }
func (b *Builder) Submit() *Builder             { return b.op(module.OpSubmit) }

func (b *Builder) WriteTimeUniform(buffer uint16, offset uint32) *Builder {
	return b.op(module.OpWriteTimeUniform).u16(buffer).varint(offset)
}

func (b *Builder) CreateBuffer(id uint16, size uint32, usage uint8) *Builder {
	return b.op(module.OpCreateBuffer).u16(id).varint(size).u8(usage)
}

func (b *Builder) CreateRenderPipeline(id, shader uint16, topology uint8) *Builder {
	return b.op(module.OpCreateRenderPipeline).u16(id).u16(shader).u8(topology)
}

// BindGroupEntry pairs a binding slot with a resource id.
type BindGroupEntry struct {
	Binding  uint8
	Resource uint16
}

func (b *Builder) CreateBindGroup(id, pipeline uint16, entries ...BindGroupEntry) *Builder {
	b.op(module.OpCreateBindGroup).u16(id).u16(pipeline).u8(uint8(len(entries)))
	for _, e := range entries {
		b.u8(e.Binding).u16(e.Resource)
	}
	return b
}

func (b *Builder) BeginRenderPass(target uint16, loadOp uint8, clear [4]float32) *Builder {
	b.op(module.OpBeginRenderPass).u16(target).u8(loadOp)
	for _, c := range clear {
		b.f32(c)
	}
	return b
}

func (b *Builder) EndRenderPass() *Builder { return b.op(module.OpEndRenderPass) }

func (b *Builder) SetPipeline(id uint16) *Builder {
	return b.op(module.OpSetPipeline).u16(id)
}

func (b *Builder) SetBindGroup(slot uint8, id uint16) *Builder {
	return b.op(module.OpSetBindGroup).u8(slot).u16(id)
}

func (b *Builder) SetVertexBuffer(slot uint8, id uint16) *Builder {
	return b.op(module.OpSetVertexBuffer).u8(slot).u16(id)
}

func (b *Builder) SetIndexBuffer(id uint16, format uint8) *Builder {
	return b.op(module.OpSetIndexBuffer).u16(id).u8(format)
}

func (b *Builder) Draw(vertexCount, instanceCount uint32) *Builder {
	return b.op(module.OpDraw).varint(vertexCount).varint(instanceCount)
}

func (b *Builder) DrawIndexed(indexCount, instanceCount uint32) *Builder {
	return b.op(module.OpDrawIndexed).varint(indexCount).varint(instanceCount)
}

func (b *Builder) WriteBuffer(id uint16, offset uint32, data uint16) *Builder {
	return b.op(module.OpWriteBuffer).u16(id).varint(offset).u16(data)
}

func (b *Builder) CreateComputePipeline(id, shader uint16) *Builder {
	return b.op(module.OpCreateComputePipeline).u16(id).u16(shader)
}

func (b *Builder) BeginComputePass() *Builder { return b.op(module.OpBeginComputePass) }
func (b *Builder) EndComputePass() *Builder   { return b.op(module.OpEndComputePass) }

func (b *Builder) SetComputePipeline(id uint16) *Builder {
	return b.op(module.OpSetComputePipeline).u16(id)
}

func (b *Builder) Dispatch(x, y, z uint32) *Builder {
	return b.op(module.OpDispatch).varint(x).varint(y).varint(z)
}

func (b *Builder) CreateTexture(id uint16, width, height uint32, format, usage uint8) *Builder {
	return b.op(module.OpCreateTexture).u16(id).varint(width).varint(height).u8(format).u8(usage)
}

func (b *Builder) CreateSampler(id uint16, filter, wrap uint8) *Builder {
	return b.op(module.OpCreateSampler).u16(id).u8(filter).u8(wrap)
}

func (b *Builder) WriteTexture(id, data uint16) *Builder {
	return b.op(module.OpWriteTexture).u16(id).u16(data)
}

func (b *Builder) CallModule(name uint16, args ...Arg) *Builder {
	b.op(module.OpCallModule).u16(name).u8(uint8(len(args)))
	for _, a := range args {
		b.u8(a.Tag)
		switch module.ArgWidth(a.Tag) {
		case 4:
			b.code = binary.LittleEndian.AppendUint32(b.code, uint32(a.Bits))
		case 8:
			b.code = binary.LittleEndian.AppendUint64(b.code, a.Bits)
		}
	}
	return b
}

func (b *Builder) CreateBufferPool(base uint16, count uint8, size uint32, usage uint8) *Builder {
	return b.op(module.OpCreateBufferPool).u16(base).u8(count).varint(size).u8(usage)
}

func (b *Builder) SetVertexBufferPool(slot uint8, base uint16, count, offset uint8) *Builder {
	return b.op(module.OpSetVertexBufferPool).u8(slot).u16(base).u8(count).u8(offset)
}

func (b *Builder) SetBindGroupPool(slot uint8, base uint16, count, offset uint8) *Builder {
	return b.op(module.OpSetBindGroupPool).u8(slot).u16(base).u8(count).u8(offset)
}

func (b *Builder) WriteBufferPool(base uint16, count, offset uint8, dstOffset uint32, data uint16) *Builder {
	return b.op(module.OpWriteBufferPool).u16(base).u8(count).u8(offset).varint(dstOffset).u16(data)
}

// Build assembles the header, executor blob, instruction stream, string
// table and data section into one module buffer.
func (b *Builder) Build() []byte {
	strtab := encodeStringTable(b.strings)
	datasec := encodeDataSection(b.data)

	execLen := len(b.executor)
	bytecodeStart := module.HeaderSize + execLen
	strOff := bytecodeStart + len(b.code)
	dataOff := strOff + len(strtab)

	out := make([]byte, 0, dataOff+len(datasec))
	out = binary.LittleEndian.AppendUint32(out, module.Magic)
	out = binary.LittleEndian.AppendUint16(out, module.Version)
	var flags uint16
	if execLen > 0 {
		flags |= module.FlagEmbeddedExecutor
	}
	out = binary.LittleEndian.AppendUint16(out, flags)
	out = binary.LittleEndian.AppendUint32(out, uint32(module.HeaderSize))
	out = binary.LittleEndian.AppendUint32(out, uint32(execLen))
	out = binary.LittleEndian.AppendUint32(out, uint32(strOff))
	out = binary.LittleEndian.AppendUint32(out, uint32(dataOff))
	out = append(out, b.executor...)
	out = append(out, b.code...)
	out = append(out, strtab...)
	out = append(out, datasec...)
	return out
}

// Bytecode returns just the instruction stream accumulated so far.
func (b *Builder) Bytecode() []byte {
	return b.code
}

func encodeStringTable(strs []string) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(strs)))
	off := 0
	for _, s := range strs {
		out = binary.LittleEndian.AppendUint16(out, uint16(off))
		off += len(s)
	}
	for _, s := range strs {
		out = binary.LittleEndian.AppendUint16(out, uint16(len(s)))
	}
	for _, s := range strs {
		out = append(out, s...)
	}
	return out
}

func encodeDataSection(blobs [][]byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(blobs)))
	off := 0
	for _, d := range blobs {
		out = binary.LittleEndian.AppendUint32(out, uint32(off))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(d)))
		off += len(d)
	}
	for _, d := range blobs {
		out = append(out, d...)
	}
	return out
}
