package cmdbuf

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/vireo-gfx/vireo/errors"
)

// Command is one decoded command: an opcode and its typed immediates.
// Imm is nil for commands with no parameters.
type Command struct {
	Imm    any
	Opcode byte
}

// Immediate types, one per parameter-carrying opcode.

type TimeUniformImm struct {
	Buffer uint16
	Offset uint32
}

type CreateBufferImm struct {
	ID    uint16
	Size  uint32
	Usage uint8
}

type CreateRenderPipelineImm struct {
	ID        uint16
	ShaderPtr uint32
	ShaderLen uint32
	Topology  uint8
}

type CreateBindGroupImm struct {
	Entries  []BindGroupEntry
	ID       uint16
	Pipeline uint16
}

type BeginRenderPassImm struct {
	Clear  [4]float32
	Target uint16
	LoadOp uint8
}

type SetPipelineImm struct {
	ID uint16
}

type SetBindGroupImm struct {
	ID   uint16
	Slot uint8
}

type SetVertexBufferImm struct {
	ID   uint16
	Slot uint8
}

type SetIndexBufferImm struct {
	ID     uint16
	Format uint8
}

type DrawImm struct {
	VertexCount   uint32
	InstanceCount uint32
}

type DrawIndexedImm struct {
	IndexCount    uint32
	InstanceCount uint32
}

type WriteBufferImm struct {
	ID     uint16
	Offset uint32
	Ptr    uint32
	Len    uint32
}

type CreateComputePipelineImm struct {
	ID        uint16
	ShaderPtr uint32
	ShaderLen uint32
}

type SetComputePipelineImm struct {
	ID uint16
}

type DispatchImm struct {
	X, Y, Z uint32
}

type CreateTextureImm struct {
	ID     uint16
	Width  uint32
	Height uint32
	Format uint8
	Usage  uint8
}

type CreateSamplerImm struct {
	ID     uint16
	Filter uint8
	Wrap   uint8
}

type WriteTextureImm struct {
	ID  uint16
	Ptr uint32
	Len uint32
}

// Arg is one tagged nested-module call argument. Bits holds the raw
// little-endian payload, widened to 64 bits for the narrow tags.
type Arg struct {
	Bits uint64
	Tag  byte
}

// I32 returns the payload as a signed 32-bit integer.
func (a Arg) I32() int32 { return int32(uint32(a.Bits)) }

// I64 returns the payload as a signed 64-bit integer.
func (a Arg) I64() int64 { return int64(a.Bits) }

// F32 returns the payload as a float32.
func (a Arg) F32() float32 { return math.Float32frombits(uint32(a.Bits)) }

// F64 returns the payload as a float64.
func (a Arg) F64() float64 { return math.Float64frombits(a.Bits) }

type CallModuleImm struct {
	Args    []Arg
	NamePtr uint32
	NameLen uint32
}

// Buffer is a fully decoded command buffer.
type Buffer struct {
	Commands []Command
	Flags    uint16
}

// Truncated reports whether the producer dropped commands for lack of
// space.
func (b *Buffer) Truncated() bool { return b.Flags&FlagTruncated != 0 }

// Decode parses a complete command buffer. The per-opcode layouts are
// fixed, so decoding cmd_count commands must consume exactly
// total_len - HeaderSize bytes; anything else is an error.
func Decode(data []byte) (*Buffer, error) {
	if len(data) < HeaderSize {
		return nil, errors.Truncated(errors.PhaseDecode, "header", len(data), HeaderSize)
	}
	total := binary.LittleEndian.Uint32(data[0:])
	count := binary.LittleEndian.Uint16(data[4:])
	flags := binary.LittleEndian.Uint16(data[6:])

	if uint64(total) > uint64(len(data)) || total < HeaderSize {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"header"},
			"total length out of range")
	}

	d := decoder{buf: data[HeaderSize:total]}
	out := &Buffer{Flags: flags, Commands: make([]Command, 0, count)}

	for i := 0; i < int(count); i++ {
		cmd, err := d.command()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err,
				"command "+strconv.Itoa(i))
		}
		out.Commands = append(out.Commands, cmd)
	}

	if d.pos != len(d.buf) {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"trailer"},
			"command stream length mismatch")
	}
	return out, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) u8() (uint8, error) {
	if d.pos >= len(d.buf) {
		return 0, errors.Truncated(errors.PhaseDecode, "command", len(d.buf)-d.pos, 1)
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, errors.Truncated(errors.PhaseDecode, "command", len(d.buf)-d.pos, 2)
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, errors.Truncated(errors.PhaseDecode, "command", len(d.buf)-d.pos, 4)
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, errors.Truncated(errors.PhaseDecode, "command", len(d.buf)-d.pos, 8)
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) f32() (float32, error) {
	v, err := d.u32()
	return math.Float32frombits(v), err
}

func (d *decoder) command() (Command, error) {
	op, err := d.u8()
	if err != nil {
		return Command{}, err
	}

	switch op {
	case CmdSubmit, CmdEndRenderPass, CmdBeginComputePass, CmdEndComputePass:
		return Command{Opcode: op}, nil

	case CmdWriteTimeUniform:
		var imm TimeUniformImm
		if imm.Buffer, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Offset, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateBuffer:
		var imm CreateBufferImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Size, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Usage, err = d.u8(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateRenderPipeline:
		var imm CreateRenderPipelineImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.ShaderPtr, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.ShaderLen, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Topology, err = d.u8(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateBindGroup:
		var imm CreateBindGroupImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Pipeline, err = d.u16(); err != nil {
			return Command{}, err
		}
		count, err := d.u8()
		if err != nil {
			return Command{}, err
		}
		imm.Entries = make([]BindGroupEntry, count)
		for i := range imm.Entries {
			if imm.Entries[i].Binding, err = d.u8(); err != nil {
				return Command{}, err
			}
			if imm.Entries[i].Resource, err = d.u16(); err != nil {
				return Command{}, err
			}
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdBeginRenderPass:
		var imm BeginRenderPassImm
		if imm.Target, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.LoadOp, err = d.u8(); err != nil {
			return Command{}, err
		}
		for i := range imm.Clear {
			if imm.Clear[i], err = d.f32(); err != nil {
				return Command{}, err
			}
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdSetPipeline:
		id, err := d.u16()
		if err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: SetPipelineImm{ID: id}}, nil

	case CmdSetBindGroup:
		slot, err := d.u8()
		if err != nil {
			return Command{}, err
		}
		id, err := d.u16()
		if err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: SetBindGroupImm{Slot: slot, ID: id}}, nil

	case CmdSetVertexBuffer:
		slot, err := d.u8()
		if err != nil {
			return Command{}, err
		}
		id, err := d.u16()
		if err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: SetVertexBufferImm{Slot: slot, ID: id}}, nil

	case CmdSetIndexBuffer:
		id, err := d.u16()
		if err != nil {
			return Command{}, err
		}
		format, err := d.u8()
		if err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: SetIndexBufferImm{ID: id, Format: format}}, nil

	case CmdDraw:
		var imm DrawImm
		if imm.VertexCount, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.InstanceCount, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdDrawIndexed:
		var imm DrawIndexedImm
		if imm.IndexCount, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.InstanceCount, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdWriteBuffer:
		var imm WriteBufferImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Offset, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Ptr, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Len, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateComputePipeline:
		var imm CreateComputePipelineImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.ShaderPtr, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.ShaderLen, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdSetComputePipeline:
		id, err := d.u16()
		if err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: SetComputePipelineImm{ID: id}}, nil

	case CmdDispatch:
		var imm DispatchImm
		if imm.X, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Y, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Z, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateTexture:
		var imm CreateTextureImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Width, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Height, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Format, err = d.u8(); err != nil {
			return Command{}, err
		}
		if imm.Usage, err = d.u8(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCreateSampler:
		var imm CreateSamplerImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Filter, err = d.u8(); err != nil {
			return Command{}, err
		}
		if imm.Wrap, err = d.u8(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdWriteTexture:
		var imm WriteTextureImm
		if imm.ID, err = d.u16(); err != nil {
			return Command{}, err
		}
		if imm.Ptr, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.Len, err = d.u32(); err != nil {
			return Command{}, err
		}
		return Command{Opcode: op, Imm: imm}, nil

	case CmdCallModule:
		var imm CallModuleImm
		if imm.NamePtr, err = d.u32(); err != nil {
			return Command{}, err
		}
		if imm.NameLen, err = d.u32(); err != nil {
			return Command{}, err
		}
		argc, err := d.u8()
		if err != nil {
			return Command{}, err
		}
		imm.Args = make([]Arg, argc)
		for i := range imm.Args {
			tag, err := d.u8()
			if err != nil {
				return Command{}, err
			}
			var bits uint64
			switch tag {
			case ArgI32, ArgF32:
				v, err := d.u32()
				if err != nil {
					return Command{}, err
				}
				bits = uint64(v)
			case ArgI64, ArgF64:
				if bits, err = d.u64(); err != nil {
					return Command{}, err
				}
			default:
				return Command{}, errors.InvalidData(errors.PhaseDecode,
					[]string{"call_module", "args"}, "unknown argument tag")
			}
			imm.Args[i] = Arg{Tag: tag, Bits: bits}
		}
		return Command{Opcode: op, Imm: imm}, nil

	default:
		return Command{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("unknown opcode 0x%02x", op).
			Build()
	}
}
