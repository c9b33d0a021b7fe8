// Package dispatch replays decoded command buffers against a host
// backend. The executor speaks in arena offsets; Replay resolves every
// pointer through the session's Memory before the Handler sees it, so
// backends only ever receive plain byte slices.
package dispatch

import (
	"context"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/errors"
)

// Handler receives one callback per command, in buffer order. Byte
// slices passed to a handler alias session memory and are valid only
// for the duration of the call.
type Handler interface {
	CreateBuffer(id uint16, size uint32, usage uint8) error
	CreateRenderPipeline(id uint16, shader []byte, topology uint8) error
	CreateBindGroup(id, pipeline uint16, entries []cmdbuf.BindGroupEntry) error
	CreateComputePipeline(id uint16, shader []byte) error
	CreateTexture(id uint16, width, height uint32, format, usage uint8) error
	CreateSampler(id uint16, filter, wrap uint8) error

	WriteBuffer(id uint16, offset uint32, data []byte) error
	WriteTexture(id uint16, data []byte) error
	WriteTimeUniform(buffer uint16, offset uint32) error

	BeginRenderPass(target uint16, loadOp uint8, clear [4]float32) error
	EndRenderPass() error
	SetPipeline(id uint16) error
	SetBindGroup(slot uint8, id uint16) error
	SetVertexBuffer(slot uint8, id uint16) error
	SetIndexBuffer(id uint16, format uint8) error
	Draw(vertexCount, instanceCount uint32) error
	DrawIndexed(indexCount, instanceCount uint32) error

	BeginComputePass() error
	EndComputePass() error
	SetComputePipeline(id uint16) error
	Dispatch(x, y, z uint32) error

	CallModule(ctx context.Context, name string, args []cmdbuf.Arg) error
	Submit() error
}

// Run decodes a session's current command buffer and replays it.
func Run(ctx context.Context, s vireo.Session, h Handler) error {
	mem := s.Memory()
	raw, err := mem.Read(s.CommandPtr(), s.CommandLen())
	if err != nil {
		return errors.Wrap(errors.PhaseDispatch, errors.KindOutOfBounds, err,
			"command buffer outside session memory")
	}
	buf, err := cmdbuf.Decode(raw)
	if err != nil {
		return err
	}
	return Replay(ctx, buf, mem, h)
}

// Replay walks an already decoded buffer, resolving pointers through
// mem and invoking h per command. The first handler error aborts the
// replay.
func Replay(ctx context.Context, buf *cmdbuf.Buffer, mem vireo.Memory, h Handler) error {
	for i, cmd := range buf.Commands {
		if err := replayOne(ctx, cmd, mem, h); err != nil {
			return errors.New(errors.PhaseDispatch, errors.KindInvalidData).
				Cause(err).
				Detail("command %d (%s)", i, cmdbuf.CmdName(cmd.Opcode)).
				Build()
		}
	}
	return nil
}

func replayOne(ctx context.Context, cmd cmdbuf.Command, mem vireo.Memory, h Handler) error {
	switch cmd.Opcode {
	case cmdbuf.CmdSubmit:
		return h.Submit()

	case cmdbuf.CmdWriteTimeUniform:
		imm := cmd.Imm.(cmdbuf.TimeUniformImm)
		return h.WriteTimeUniform(imm.Buffer, imm.Offset)

	case cmdbuf.CmdCreateBuffer:
		imm := cmd.Imm.(cmdbuf.CreateBufferImm)
		return h.CreateBuffer(imm.ID, imm.Size, imm.Usage)

	case cmdbuf.CmdCreateRenderPipeline:
		imm := cmd.Imm.(cmdbuf.CreateRenderPipelineImm)
		shader, err := mem.Read(imm.ShaderPtr, imm.ShaderLen)
		if err != nil {
			return err
		}
		return h.CreateRenderPipeline(imm.ID, shader, imm.Topology)

	case cmdbuf.CmdCreateBindGroup:
		imm := cmd.Imm.(cmdbuf.CreateBindGroupImm)
		return h.CreateBindGroup(imm.ID, imm.Pipeline, imm.Entries)

	case cmdbuf.CmdBeginRenderPass:
		imm := cmd.Imm.(cmdbuf.BeginRenderPassImm)
		return h.BeginRenderPass(imm.Target, imm.LoadOp, imm.Clear)

	case cmdbuf.CmdEndRenderPass:
		return h.EndRenderPass()

	case cmdbuf.CmdSetPipeline:
		return h.SetPipeline(cmd.Imm.(cmdbuf.SetPipelineImm).ID)

	case cmdbuf.CmdSetBindGroup:
		imm := cmd.Imm.(cmdbuf.SetBindGroupImm)
		return h.SetBindGroup(imm.Slot, imm.ID)

	case cmdbuf.CmdSetVertexBuffer:
		imm := cmd.Imm.(cmdbuf.SetVertexBufferImm)
		return h.SetVertexBuffer(imm.Slot, imm.ID)

	case cmdbuf.CmdSetIndexBuffer:
		imm := cmd.Imm.(cmdbuf.SetIndexBufferImm)
		return h.SetIndexBuffer(imm.ID, imm.Format)

	case cmdbuf.CmdDraw:
		imm := cmd.Imm.(cmdbuf.DrawImm)
		return h.Draw(imm.VertexCount, imm.InstanceCount)

	case cmdbuf.CmdDrawIndexed:
		imm := cmd.Imm.(cmdbuf.DrawIndexedImm)
		return h.DrawIndexed(imm.IndexCount, imm.InstanceCount)

	case cmdbuf.CmdWriteBuffer:
		imm := cmd.Imm.(cmdbuf.WriteBufferImm)
		data, err := mem.Read(imm.Ptr, imm.Len)
		if err != nil {
			return err
		}
		return h.WriteBuffer(imm.ID, imm.Offset, data)

	case cmdbuf.CmdCreateComputePipeline:
		imm := cmd.Imm.(cmdbuf.CreateComputePipelineImm)
		shader, err := mem.Read(imm.ShaderPtr, imm.ShaderLen)
		if err != nil {
			return err
		}
		return h.CreateComputePipeline(imm.ID, shader)

	case cmdbuf.CmdBeginComputePass:
		return h.BeginComputePass()

	case cmdbuf.CmdEndComputePass:
		return h.EndComputePass()

	case cmdbuf.CmdSetComputePipeline:
		return h.SetComputePipeline(cmd.Imm.(cmdbuf.SetComputePipelineImm).ID)

	case cmdbuf.CmdDispatch:
		imm := cmd.Imm.(cmdbuf.DispatchImm)
		return h.Dispatch(imm.X, imm.Y, imm.Z)

	case cmdbuf.CmdCreateTexture:
		imm := cmd.Imm.(cmdbuf.CreateTextureImm)
		return h.CreateTexture(imm.ID, imm.Width, imm.Height, imm.Format, imm.Usage)

	case cmdbuf.CmdCreateSampler:
		imm := cmd.Imm.(cmdbuf.CreateSamplerImm)
		return h.CreateSampler(imm.ID, imm.Filter, imm.Wrap)

	case cmdbuf.CmdWriteTexture:
		imm := cmd.Imm.(cmdbuf.WriteTextureImm)
		data, err := mem.Read(imm.Ptr, imm.Len)
		if err != nil {
			return err
		}
		return h.WriteTexture(imm.ID, data)

	case cmdbuf.CmdCallModule:
		imm := cmd.Imm.(cmdbuf.CallModuleImm)
		name, err := mem.Read(imm.NamePtr, imm.NameLen)
		if err != nil {
			return err
		}
		return h.CallModule(ctx, string(name), imm.Args)

	default:
		return errors.Unsupported(errors.PhaseDispatch, cmdbuf.CmdName(cmd.Opcode))
	}
}
