package cmdbuf

import "fmt"

// HeaderSize is the fixed command-buffer header length:
// {total_len u32, cmd_count u16, flags u16}, all little-endian.
const HeaderSize = 8

// Header flag bits.
const (
	// FlagTruncated is set when at least one command was dropped because
	// the buffer ran out of space. There is no way to signal a mid-call
	// failure across the guest boundary, so truncation is reported here
	// instead of aborting.
	FlagTruncated uint16 = 1 << 0
)

// Command opcodes. Each opcode has a fixed parameter layout; there is no
// per-command length field, so encoder and decoder agree on this closed
// table exactly. The ranges mirror the interpreter's capability groups.
const (
	CmdSubmit           byte = 0x07
	CmdWriteTimeUniform byte = 0x08

	CmdCreateBuffer         byte = 0x20
	CmdCreateRenderPipeline byte = 0x21
	CmdCreateBindGroup      byte = 0x22
	CmdBeginRenderPass      byte = 0x23
	CmdEndRenderPass        byte = 0x24
	CmdSetPipeline          byte = 0x25
	CmdSetBindGroup         byte = 0x26
	CmdSetVertexBuffer      byte = 0x27
	CmdSetIndexBuffer       byte = 0x28
	CmdDraw                 byte = 0x29
	CmdDrawIndexed          byte = 0x2A
	CmdWriteBuffer          byte = 0x2B

	CmdCreateComputePipeline byte = 0x40
	CmdBeginComputePass      byte = 0x41
	CmdEndComputePass        byte = 0x42
	CmdSetComputePipeline    byte = 0x43
	CmdDispatch              byte = 0x44

	CmdCreateTexture byte = 0x50
	CmdCreateSampler byte = 0x51
	CmdWriteTexture  byte = 0x52

	CmdCallModule byte = 0x60
)

// Wasm call argument tags, matching the instruction-stream encoding.
const (
	ArgI32 byte = 0
	ArgI64 byte = 1
	ArgF32 byte = 2
	ArgF64 byte = 3
)

// TargetSurface is the texture id meaning "render to the surface" in
// begin_render_pass commands.
const TargetSurface uint16 = 0xFFFF

var cmdNames = map[byte]string{
	CmdSubmit:                "submit",
	CmdWriteTimeUniform:      "write_time_uniform",
	CmdCreateBuffer:          "create_buffer",
	CmdCreateRenderPipeline:  "create_render_pipeline",
	CmdCreateBindGroup:       "create_bind_group",
	CmdBeginRenderPass:       "begin_render_pass",
	CmdEndRenderPass:         "end_render_pass",
	CmdSetPipeline:           "set_pipeline",
	CmdSetBindGroup:          "set_bind_group",
	CmdSetVertexBuffer:       "set_vertex_buffer",
	CmdSetIndexBuffer:        "set_index_buffer",
	CmdDraw:                  "draw",
	CmdDrawIndexed:           "draw_indexed",
	CmdWriteBuffer:           "write_buffer",
	CmdCreateComputePipeline: "create_compute_pipeline",
	CmdBeginComputePass:      "begin_compute_pass",
	CmdEndComputePass:        "end_compute_pass",
	CmdSetComputePipeline:    "set_compute_pipeline",
	CmdDispatch:              "dispatch",
	CmdCreateTexture:         "create_texture",
	CmdCreateSampler:         "create_sampler",
	CmdWriteTexture:          "write_texture",
	CmdCallModule:            "call_module",
}

// CmdName returns the mnemonic for a command opcode.
func CmdName(op byte) string {
	if name, ok := cmdNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", op)
}
