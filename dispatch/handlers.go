package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo/cmdbuf"
)

// NopHandler accepts every command and does nothing. Embed it to build
// partial handlers.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) CreateBuffer(uint16, uint32, uint8) error                      { return nil }
func (NopHandler) CreateRenderPipeline(uint16, []byte, uint8) error              { return nil }
func (NopHandler) CreateBindGroup(uint16, uint16, []cmdbuf.BindGroupEntry) error { return nil }
func (NopHandler) CreateComputePipeline(uint16, []byte) error                    { return nil }
func (NopHandler) CreateTexture(uint16, uint32, uint32, uint8, uint8) error      { return nil }
func (NopHandler) CreateSampler(uint16, uint8, uint8) error                      { return nil }
func (NopHandler) WriteBuffer(uint16, uint32, []byte) error                      { return nil }
func (NopHandler) WriteTexture(uint16, []byte) error                             { return nil }
func (NopHandler) WriteTimeUniform(uint16, uint32) error                         { return nil }
func (NopHandler) BeginRenderPass(uint16, uint8, [4]float32) error               { return nil }
func (NopHandler) EndRenderPass() error                                          { return nil }
func (NopHandler) SetPipeline(uint16) error                                      { return nil }
func (NopHandler) SetBindGroup(uint8, uint16) error                              { return nil }
func (NopHandler) SetVertexBuffer(uint8, uint16) error                           { return nil }
func (NopHandler) SetIndexBuffer(uint16, uint8) error                            { return nil }
func (NopHandler) Draw(uint32, uint32) error                                     { return nil }
func (NopHandler) DrawIndexed(uint32, uint32) error                              { return nil }
func (NopHandler) BeginComputePass() error                                       { return nil }
func (NopHandler) EndComputePass() error                                         { return nil }
func (NopHandler) SetComputePipeline(uint16) error                               { return nil }
func (NopHandler) Dispatch(uint32, uint32, uint32) error                         { return nil }
func (NopHandler) CallModule(context.Context, string, []cmdbuf.Arg) error        { return nil }
func (NopHandler) Submit() error                                                 { return nil }

// TraceHandler logs every command at debug level and forwards to the
// wrapped handler. Wrap with a Nop next to get a pure logger.
type TraceHandler struct {
	Next Handler
	Log  *zap.Logger
}

var _ Handler = (*TraceHandler)(nil)

// NewTraceHandler wraps next with per-command debug logging.
func NewTraceHandler(next Handler, log *zap.Logger) *TraceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TraceHandler{Next: next, Log: log}
}

func (t *TraceHandler) CreateBuffer(id uint16, size uint32, usage uint8) error {
	t.Log.Debug("create_buffer", zap.Uint16("id", id), zap.Uint32("size", size), zap.Uint8("usage", usage))
	return t.Next.CreateBuffer(id, size, usage)
}

func (t *TraceHandler) CreateRenderPipeline(id uint16, shader []byte, topology uint8) error {
	t.Log.Debug("create_render_pipeline", zap.Uint16("id", id), zap.Int("shader_len", len(shader)), zap.Uint8("topology", topology))
	return t.Next.CreateRenderPipeline(id, shader, topology)
}

func (t *TraceHandler) CreateBindGroup(id, pipeline uint16, entries []cmdbuf.BindGroupEntry) error {
	t.Log.Debug("create_bind_group", zap.Uint16("id", id), zap.Uint16("pipeline", pipeline), zap.Int("entries", len(entries)))
	return t.Next.CreateBindGroup(id, pipeline, entries)
}

func (t *TraceHandler) CreateComputePipeline(id uint16, shader []byte) error {
	t.Log.Debug("create_compute_pipeline", zap.Uint16("id", id), zap.Int("shader_len", len(shader)))
	return t.Next.CreateComputePipeline(id, shader)
}

func (t *TraceHandler) CreateTexture(id uint16, width, height uint32, format, usage uint8) error {
	t.Log.Debug("create_texture", zap.Uint16("id", id), zap.Uint32("width", width), zap.Uint32("height", height))
	return t.Next.CreateTexture(id, width, height, format, usage)
}

func (t *TraceHandler) CreateSampler(id uint16, filter, wrap uint8) error {
	t.Log.Debug("create_sampler", zap.Uint16("id", id))
	return t.Next.CreateSampler(id, filter, wrap)
}

func (t *TraceHandler) WriteBuffer(id uint16, offset uint32, data []byte) error {
	t.Log.Debug("write_buffer", zap.Uint16("id", id), zap.Uint32("offset", offset), zap.Int("len", len(data)))
	return t.Next.WriteBuffer(id, offset, data)
}

func (t *TraceHandler) WriteTexture(id uint16, data []byte) error {
	t.Log.Debug("write_texture", zap.Uint16("id", id), zap.Int("len", len(data)))
	return t.Next.WriteTexture(id, data)
}

func (t *TraceHandler) WriteTimeUniform(buffer uint16, offset uint32) error {
	t.Log.Debug("write_time_uniform", zap.Uint16("buffer", buffer), zap.Uint32("offset", offset))
	return t.Next.WriteTimeUniform(buffer, offset)
}

func (t *TraceHandler) BeginRenderPass(target uint16, loadOp uint8, clear [4]float32) error {
	t.Log.Debug("begin_render_pass", zap.Uint16("target", target), zap.Uint8("load_op", loadOp))
	return t.Next.BeginRenderPass(target, loadOp, clear)
}

func (t *TraceHandler) EndRenderPass() error {
	t.Log.Debug("end_render_pass")
	return t.Next.EndRenderPass()
}

func (t *TraceHandler) SetPipeline(id uint16) error {
	t.Log.Debug("set_pipeline", zap.Uint16("id", id))
	return t.Next.SetPipeline(id)
}

func (t *TraceHandler) SetBindGroup(slot uint8, id uint16) error {
	t.Log.Debug("set_bind_group", zap.Uint8("slot", slot), zap.Uint16("id", id))
	return t.Next.SetBindGroup(slot, id)
}

func (t *TraceHandler) SetVertexBuffer(slot uint8, id uint16) error {
	t.Log.Debug("set_vertex_buffer", zap.Uint8("slot", slot), zap.Uint16("id", id))
	return t.Next.SetVertexBuffer(slot, id)
}

func (t *TraceHandler) SetIndexBuffer(id uint16, format uint8) error {
	t.Log.Debug("set_index_buffer", zap.Uint16("id", id), zap.Uint8("format", format))
	return t.Next.SetIndexBuffer(id, format)
}

func (t *TraceHandler) Draw(vertexCount, instanceCount uint32) error {
	t.Log.Debug("draw", zap.Uint32("vertices", vertexCount), zap.Uint32("instances", instanceCount))
	return t.Next.Draw(vertexCount, instanceCount)
}

func (t *TraceHandler) DrawIndexed(indexCount, instanceCount uint32) error {
	t.Log.Debug("draw_indexed", zap.Uint32("indices", indexCount), zap.Uint32("instances", instanceCount))
	return t.Next.DrawIndexed(indexCount, instanceCount)
}

func (t *TraceHandler) BeginComputePass() error {
	t.Log.Debug("begin_compute_pass")
	return t.Next.BeginComputePass()
}

func (t *TraceHandler) EndComputePass() error {
	t.Log.Debug("end_compute_pass")
	return t.Next.EndComputePass()
}

func (t *TraceHandler) SetComputePipeline(id uint16) error {
	t.Log.Debug("set_compute_pipeline", zap.Uint16("id", id))
	return t.Next.SetComputePipeline(id)
}

func (t *TraceHandler) Dispatch(x, y, z uint32) error {
	t.Log.Debug("dispatch", zap.Uint32("x", x), zap.Uint32("y", y), zap.Uint32("z", z))
	return t.Next.Dispatch(x, y, z)
}

func (t *TraceHandler) CallModule(ctx context.Context, name string, args []cmdbuf.Arg) error {
	t.Log.Debug("call_module", zap.String("name", name), zap.Int("args", len(args)))
	return t.Next.CallModule(ctx, name, args)
}

func (t *TraceHandler) Submit() error {
	t.Log.Debug("submit")
	return t.Next.Submit()
}
