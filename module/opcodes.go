package module

import "fmt"

// Instruction opcodes. The opcode space is partitioned into capability
// ranges; an executor built without a capability still parses the range's
// immediates so the program counter advances identically everywhere.
const (
	// Core (0x00-0x1F): always enabled.
	OpNop              byte = 0x00
	OpEnd              byte = 0x01
	OpDefinePass       byte = 0x02
	OpEndPassDef       byte = 0x03
	OpDefineFrame      byte = 0x04
	OpEndFrame         byte = 0x05
	OpExecPass         byte = 0x06
	OpSubmit           byte = 0x07
	OpWriteTimeUniform byte = 0x08

	// Render (0x20-0x3F).
	OpCreateBuffer         byte = 0x20
	OpCreateRenderPipeline byte = 0x21
	OpCreateBindGroup      byte = 0x22
	OpBeginRenderPass      byte = 0x23
	OpEndRenderPass        byte = 0x24
	OpSetPipeline          byte = 0x25
	OpSetBindGroup         byte = 0x26
	OpSetVertexBuffer      byte = 0x27
	OpSetIndexBuffer       byte = 0x28
	OpDraw                 byte = 0x29
	OpDrawIndexed          byte = 0x2A
	OpWriteBuffer          byte = 0x2B

	// Compute (0x40-0x4F).
	OpCreateComputePipeline byte = 0x40
	OpBeginComputePass      byte = 0x41
	OpEndComputePass        byte = 0x42
	OpSetComputePipeline    byte = 0x43
	OpDispatch              byte = 0x44

	// Texture (0x50-0x5F).
	OpCreateTexture byte = 0x50
	OpCreateSampler byte = 0x51
	OpWriteTexture  byte = 0x52

	// Wasm (0x60-0x6F): nested-module calls.
	OpCallModule byte = 0x60

	// Pool (0x70-0x7F): N-buffered resource rotation.
	OpCreateBufferPool    byte = 0x70
	OpSetVertexBufferPool byte = 0x71
	OpSetBindGroupPool    byte = 0x72
	OpWriteBufferPool     byte = 0x73
)

// Capability identifies one selectable opcode group.
type Capability uint8

const (
	CapCore Capability = iota
	CapRender
	CapCompute
	CapTexture
	CapWasm
	CapPool
)

// CapSet is a bit set of enabled capabilities. CapCore is implicitly
// always enabled.
type CapSet uint8

const (
	CapSetRender  CapSet = 1 << CapRender
	CapSetCompute CapSet = 1 << CapCompute
	CapSetTexture CapSet = 1 << CapTexture
	CapSetWasm    CapSet = 1 << CapWasm
	CapSetPool    CapSet = 1 << CapPool

	// CapSetAll enables every opcode group.
	CapSetAll = CapSetRender | CapSetCompute | CapSetTexture | CapSetWasm | CapSetPool

	// CapSetCore names the empty set of optional groups, distinct from
	// the zero value that configuration layers treat as "everything".
	// The bit maps to no capability, so Has reports false for every
	// optional group.
	CapSetCore CapSet = 1 << 7
)

// Has reports whether the capability is enabled. Core is always enabled.
func (s CapSet) Has(c Capability) bool {
	if c == CapCore {
		return true
	}
	return s&(1<<c) != 0
}

// CapabilityOf returns the capability group an opcode belongs to, derived
// from its range in the opcode space.
func CapabilityOf(op byte) Capability {
	switch {
	case op < 0x20:
		return CapCore
	case op < 0x40:
		return CapRender
	case op < 0x50:
		return CapCompute
	case op < 0x60:
		return CapTexture
	case op < 0x70:
		return CapWasm
	default:
		return CapPool
	}
}

// Wasm call argument type tags and their payload widths in bytes. The
// payload of a tagged argument is copied verbatim from the instruction
// stream into the outgoing command.
const (
	ArgI32 byte = 0
	ArgI64 byte = 1
	ArgF32 byte = 2
	ArgF64 byte = 3
)

// ArgWidth returns the payload width for a wasm argument tag, or -1 for
// an unknown tag.
func ArgWidth(tag byte) int {
	switch tag {
	case ArgI32, ArgF32:
		return 4
	case ArgI64, ArgF64:
		return 8
	default:
		return -1
	}
}

var opNames = map[byte]string{
	OpNop:                   "nop",
	OpEnd:                   "end",
	OpDefinePass:            "define_pass",
	OpEndPassDef:            "end_pass_def",
	OpDefineFrame:           "define_frame",
	OpEndFrame:              "end_frame",
	OpExecPass:              "exec_pass",
	OpSubmit:                "submit",
	OpWriteTimeUniform:      "write_time_uniform",
	OpCreateBuffer:          "create_buffer",
	OpCreateRenderPipeline:  "create_render_pipeline",
	OpCreateBindGroup:       "create_bind_group",
	OpBeginRenderPass:       "begin_render_pass",
	OpEndRenderPass:         "end_render_pass",
	OpSetPipeline:           "set_pipeline",
	OpSetBindGroup:          "set_bind_group",
	OpSetVertexBuffer:       "set_vertex_buffer",
	OpSetIndexBuffer:        "set_index_buffer",
	OpDraw:                  "draw",
	OpDrawIndexed:           "draw_indexed",
	OpWriteBuffer:           "write_buffer",
	OpCreateComputePipeline: "create_compute_pipeline",
	OpBeginComputePass:      "begin_compute_pass",
	OpEndComputePass:        "end_compute_pass",
	OpSetComputePipeline:    "set_compute_pipeline",
	OpDispatch:              "dispatch",
	OpCreateTexture:         "create_texture",
	OpCreateSampler:         "create_sampler",
	OpWriteTexture:          "write_texture",
	OpCallModule:            "call_module",
	OpCreateBufferPool:      "create_buffer_pool",
	OpSetVertexBufferPool:   "set_vertex_buffer_pool",
	OpSetBindGroupPool:      "set_bind_group_pool",
	OpWriteBufferPool:       "write_buffer_pool",
}

// OpName returns the mnemonic for an opcode, or a hex form for unknown
// opcodes.
func OpName(op byte) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", op)
}
