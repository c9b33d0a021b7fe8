package cmdbuf

import (
	"encoding/binary"
	"math"
)

// Encoder appends commands to a caller-provided, fixed-size buffer. It
// never allocates: the buffer is typically a region of the executor's
// arena. Commands that would overflow the buffer are dropped and the
// truncated flag is set; the encoder never fails loudly mid-call.
//
// Usage is append-then-finalize: Reset, append commands, Finish. Finish
// back-patches the header with the final length and count.
type Encoder struct {
	buf   []byte
	n     int
	count uint16
	flags uint16
}

// NewEncoder creates an encoder writing into buf. The buffer must be at
// least HeaderSize bytes.
func NewEncoder(buf []byte) *Encoder {
	e := &Encoder{buf: buf}
	e.Reset()
	return e
}

// Reset discards all appended commands and starts a fresh buffer.
func (e *Encoder) Reset() {
	e.n = HeaderSize
	e.count = 0
	e.flags = 0
}

// Len returns the current encoded length including the header.
func (e *Encoder) Len() uint32 { return uint32(e.n) }

// Count returns the number of commands appended so far.
func (e *Encoder) Count() uint16 { return e.count }

// Truncated reports whether any command was dropped for lack of space.
func (e *Encoder) Truncated() bool { return e.flags&FlagTruncated != 0 }

// Finish writes the header and returns the total encoded length.
func (e *Encoder) Finish() uint32 {
	binary.LittleEndian.PutUint32(e.buf[0:], uint32(e.n))
	binary.LittleEndian.PutUint16(e.buf[4:], e.count)
	binary.LittleEndian.PutUint16(e.buf[6:], e.flags)
	return uint32(e.n)
}

// begin reserves space for an opcode plus payload bytes. It reports
// false, and marks the buffer truncated, when the command does not fit.
func (e *Encoder) begin(op byte, payload int) bool {
	if e.n+1+payload > len(e.buf) || e.count == math.MaxUint16 {
		e.flags |= FlagTruncated
		return false
	}
	e.buf[e.n] = op
	e.n++
	e.count++
	return true
}

func (e *Encoder) u8(v uint8) {
	e.buf[e.n] = v
	e.n++
}

func (e *Encoder) u16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[e.n:], v)
	e.n += 2
}

func (e *Encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.n:], v)
	e.n += 4
}

func (e *Encoder) f32(v float32) {
	e.u32(math.Float32bits(v))
}

// Submit appends a queue submit command.
func (e *Encoder) Submit() {
	e.begin(CmdSubmit, 0)
}

// WriteTimeUniform appends a fixed-size uniform write; the host marshals
// the actual time value.
func (e *Encoder) WriteTimeUniform(buffer uint16, offset uint32) {
	if !e.begin(CmdWriteTimeUniform, 6) {
		return
	}
	e.u16(buffer)
	e.u32(offset)
}

// CreateBuffer appends a buffer creation command.
func (e *Encoder) CreateBuffer(id uint16, size uint32, usage uint8) {
	if !e.begin(CmdCreateBuffer, 7) {
		return
	}
	e.u16(id)
	e.u32(size)
	e.u8(usage)
}

// CreateRenderPipeline appends a render pipeline creation command. The
// shader source is referenced by (ptr, len) into session memory.
func (e *Encoder) CreateRenderPipeline(id uint16, shaderPtr, shaderLen uint32, topology uint8) {
	if !e.begin(CmdCreateRenderPipeline, 11) {
		return
	}
	e.u16(id)
	e.u32(shaderPtr)
	e.u32(shaderLen)
	e.u8(topology)
}

// BindGroupEntry pairs a shader binding slot with a resource id.
type BindGroupEntry struct {
	Binding  uint8
	Resource uint16
}

// CreateBindGroup appends a bind group creation command.
func (e *Encoder) CreateBindGroup(id, pipeline uint16, entries []BindGroupEntry) {
	if !e.begin(CmdCreateBindGroup, 5+3*len(entries)) {
		return
	}
	e.u16(id)
	e.u16(pipeline)
	e.u8(uint8(len(entries)))
	for _, ent := range entries {
		e.u8(ent.Binding)
		e.u16(ent.Resource)
	}
}

// BeginRenderPass appends a render pass begin command.
func (e *Encoder) BeginRenderPass(target uint16, loadOp uint8, clear [4]float32) {
	if !e.begin(CmdBeginRenderPass, 19) {
		return
	}
	e.u16(target)
	e.u8(loadOp)
	for _, c := range clear {
		e.f32(c)
	}
}

// EndRenderPass appends a render pass end command.
func (e *Encoder) EndRenderPass() {
	e.begin(CmdEndRenderPass, 0)
}

// SetPipeline appends a render pipeline bind command.
func (e *Encoder) SetPipeline(id uint16) {
	if !e.begin(CmdSetPipeline, 2) {
		return
	}
	e.u16(id)
}

// SetBindGroup appends a bind group bind command.
func (e *Encoder) SetBindGroup(slot uint8, id uint16) {
	if !e.begin(CmdSetBindGroup, 3) {
		return
	}
	e.u8(slot)
	e.u16(id)
}

// SetVertexBuffer appends a vertex buffer bind command.
func (e *Encoder) SetVertexBuffer(slot uint8, id uint16) {
	if !e.begin(CmdSetVertexBuffer, 3) {
		return
	}
	e.u8(slot)
	e.u16(id)
}

// SetIndexBuffer appends an index buffer bind command.
func (e *Encoder) SetIndexBuffer(id uint16, format uint8) {
	if !e.begin(CmdSetIndexBuffer, 3) {
		return
	}
	e.u16(id)
	e.u8(format)
}

// Draw appends a non-indexed draw command.
func (e *Encoder) Draw(vertexCount, instanceCount uint32) {
	if !e.begin(CmdDraw, 8) {
		return
	}
	e.u32(vertexCount)
	e.u32(instanceCount)
}

// DrawIndexed appends an indexed draw command.
func (e *Encoder) DrawIndexed(indexCount, instanceCount uint32) {
	if !e.begin(CmdDrawIndexed, 8) {
		return
	}
	e.u32(indexCount)
	e.u32(instanceCount)
}

// WriteBuffer appends a buffer upload command. Source bytes are
// referenced by (ptr, len) into session memory and must be copied out by
// the host before the next call.
func (e *Encoder) WriteBuffer(id uint16, offset, ptr, length uint32) {
	if !e.begin(CmdWriteBuffer, 14) {
		return
	}
	e.u16(id)
	e.u32(offset)
	e.u32(ptr)
	e.u32(length)
}

// CreateComputePipeline appends a compute pipeline creation command.
func (e *Encoder) CreateComputePipeline(id uint16, shaderPtr, shaderLen uint32) {
	if !e.begin(CmdCreateComputePipeline, 10) {
		return
	}
	e.u16(id)
	e.u32(shaderPtr)
	e.u32(shaderLen)
}

// BeginComputePass appends a compute pass begin command.
func (e *Encoder) BeginComputePass() {
	e.begin(CmdBeginComputePass, 0)
}

// EndComputePass appends a compute pass end command.
func (e *Encoder) EndComputePass() {
	e.begin(CmdEndComputePass, 0)
}

// SetComputePipeline appends a compute pipeline bind command.
func (e *Encoder) SetComputePipeline(id uint16) {
	if !e.begin(CmdSetComputePipeline, 2) {
		return
	}
	e.u16(id)
}

// Dispatch appends a compute dispatch command.
func (e *Encoder) Dispatch(x, y, z uint32) {
	if !e.begin(CmdDispatch, 12) {
		return
	}
	e.u32(x)
	e.u32(y)
	e.u32(z)
}

// CreateTexture appends a texture creation command.
func (e *Encoder) CreateTexture(id uint16, width, height uint32, format, usage uint8) {
	if !e.begin(CmdCreateTexture, 12) {
		return
	}
	e.u16(id)
	e.u32(width)
	e.u32(height)
	e.u8(format)
	e.u8(usage)
}

// CreateSampler appends a sampler creation command.
func (e *Encoder) CreateSampler(id uint16, filter, wrap uint8) {
	if !e.begin(CmdCreateSampler, 4) {
		return
	}
	e.u16(id)
	e.u8(filter)
	e.u8(wrap)
}

// WriteTexture appends a texture upload command.
func (e *Encoder) WriteTexture(id uint16, ptr, length uint32) {
	if !e.begin(CmdWriteTexture, 10) {
		return
	}
	e.u16(id)
	e.u32(ptr)
	e.u32(length)
}

// CallModule appends a nested-module call command. The callee name is
// referenced by (ptr, len) into session memory; argBytes is the raw
// tagged argument list, copied verbatim from the instruction stream.
func (e *Encoder) CallModule(namePtr, nameLen uint32, argc uint8, argBytes []byte) {
	if !e.begin(CmdCallModule, 9+len(argBytes)) {
		return
	}
	e.u32(namePtr)
	e.u32(nameLen)
	e.u8(argc)
	copy(e.buf[e.n:], argBytes)
	e.n += len(argBytes)
}
