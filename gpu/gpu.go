// Package gpu is a webgpu backend for replayed command buffers. It
// maps the small integer ids the VM deals in onto live wgpu objects and
// drives a wgpu.Device through the dispatch.Handler interface. The core
// packages never import this one; headless hosts and tests use
// dispatch.NopHandler instead.
package gpu

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/dispatch"
	"github.com/vireo-gfx/vireo/errors"
)

// Buffer usage bits as encoded in create_buffer commands.
const (
	UsageVertex  uint8 = 1 << 0
	UsageIndex   uint8 = 1 << 1
	UsageUniform uint8 = 1 << 2
	UsageStorage uint8 = 1 << 3
)

// Texture usage bits as encoded in create_texture commands.
const (
	TexUsageBinding    uint8 = 1 << 0
	TexUsageAttachment uint8 = 1 << 1
)

// Caller resolves nested-module calls. engine.Registry satisfies it.
type Caller interface {
	CallModule(ctx context.Context, name string, args []cmdbuf.Arg) error
}

// Backend replays commands onto a wgpu device. Create one per surface;
// it is not safe for concurrent use.
type Backend struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	format wgpu.TextureFormat

	// target receives render passes aimed at the surface. The host
	// sets it per frame from the acquired swapchain texture.
	target *wgpu.TextureView

	// Calls handles call_module commands. Nil drops them with a log.
	Calls Caller

	buffers          map[uint16]*wgpu.Buffer
	renderPipelines  map[uint16]*wgpu.RenderPipeline
	computePipelines map[uint16]*wgpu.ComputePipeline
	bindGroups       map[uint16]*wgpu.BindGroup
	textures         map[uint16]*wgpu.Texture
	views            map[uint16]*wgpu.TextureView
	samplers         map[uint16]*wgpu.Sampler
	texWidth         map[uint16]uint32

	encoder *wgpu.CommandEncoder
	rpass   *wgpu.RenderPassEncoder
	cpass   *wgpu.ComputePassEncoder

	time float32
	log  *zap.Logger
}

var _ dispatch.Handler = (*Backend)(nil)

// New wraps an initialized device and queue. format is the surface
// format render pipelines target.
func New(device *wgpu.Device, queue *wgpu.Queue, format wgpu.TextureFormat, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		device:           device,
		queue:            queue,
		format:           format,
		buffers:          make(map[uint16]*wgpu.Buffer),
		renderPipelines:  make(map[uint16]*wgpu.RenderPipeline),
		computePipelines: make(map[uint16]*wgpu.ComputePipeline),
		bindGroups:       make(map[uint16]*wgpu.BindGroup),
		textures:         make(map[uint16]*wgpu.Texture),
		views:            make(map[uint16]*wgpu.TextureView),
		samplers:         make(map[uint16]*wgpu.Sampler),
		texWidth:         make(map[uint16]uint32),
		log:              log,
	}
}

// SetTargetView points surface render passes at the current swapchain
// view. Call before replaying each frame.
func (b *Backend) SetTargetView(v *wgpu.TextureView) { b.target = v }

// SetTime records the frame time that write_time_uniform commands
// upload.
func (b *Backend) SetTime(t float32) { b.time = t }

// Close releases every tracked resource.
func (b *Backend) Close() {
	for _, x := range b.bindGroups {
		x.Release()
	}
	for _, x := range b.renderPipelines {
		x.Release()
	}
	for _, x := range b.computePipelines {
		x.Release()
	}
	for _, x := range b.views {
		x.Release()
	}
	for _, x := range b.textures {
		x.Release()
	}
	for _, x := range b.samplers {
		x.Release()
	}
	for _, x := range b.buffers {
		x.Release()
	}
}

func bufferUsage(u uint8) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst
	if u&UsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&UsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if u&UsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if u&UsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}
	return usage
}

func topology(t uint8) wgpu.PrimitiveTopology {
	switch t {
	case 0:
		return wgpu.PrimitiveTopologyPointList
	case 1:
		return wgpu.PrimitiveTopologyLineList
	case 2:
		return wgpu.PrimitiveTopologyLineStrip
	case 4:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func (b *Backend) CreateBuffer(id uint16, size uint32, usage uint8) error {
	if old, ok := b.buffers[id]; ok {
		old.Release()
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  uint64(size),
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return err
	}
	b.buffers[id] = buf
	return nil
}

func (b *Backend) CreateRenderPipeline(id uint16, shader []byte, topo uint8) error {
	mod, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(shader)},
	})
	if err != nil {
		return err
	}
	defer mod.Release()

	// Vertex data is pulled from storage bindings, so the pipeline
	// declares no vertex buffer layouts and lets the layout be derived
	// from the shader.
	pipe, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    b.format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: topology(topo),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	if old, ok := b.renderPipelines[id]; ok {
		old.Release()
	}
	b.renderPipelines[id] = pipe
	return nil
}

func (b *Backend) CreateComputePipeline(id uint16, shader []byte) error {
	mod, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(shader)},
	})
	if err != nil {
		return err
	}
	defer mod.Release()

	pipe, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return err
	}
	if old, ok := b.computePipelines[id]; ok {
		old.Release()
	}
	b.computePipelines[id] = pipe
	return nil
}

func (b *Backend) CreateBindGroup(id, pipeline uint16, entries []cmdbuf.BindGroupEntry) error {
	var layout *wgpu.BindGroupLayout
	if pipe, ok := b.renderPipelines[pipeline]; ok {
		layout = pipe.GetBindGroupLayout(0)
	} else if pipe, ok := b.computePipelines[pipeline]; ok {
		layout = pipe.GetBindGroupLayout(0)
	} else {
		return errors.NotFound(errors.PhaseDispatch, "pipeline", u16name(pipeline))
	}

	bge := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		bge[i] = wgpu.BindGroupEntry{Binding: uint32(e.Binding)}
		switch {
		case b.buffers[e.Resource] != nil:
			bge[i].Buffer = b.buffers[e.Resource]
			bge[i].Size = wgpu.WholeSize
		case b.views[e.Resource] != nil:
			bge[i].TextureView = b.views[e.Resource]
		case b.samplers[e.Resource] != nil:
			bge[i].Sampler = b.samplers[e.Resource]
		default:
			return errors.NotFound(errors.PhaseDispatch, "resource", u16name(e.Resource))
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: bge,
	})
	if err != nil {
		return err
	}
	if old, ok := b.bindGroups[id]; ok {
		old.Release()
	}
	b.bindGroups[id] = bg
	return nil
}

func (b *Backend) CreateTexture(id uint16, width, height uint32, format, usage uint8) error {
	texFormat := wgpu.TextureFormatRGBA8Unorm
	if format == 1 {
		texFormat = wgpu.TextureFormatRGBA8UnormSrgb
	}
	texUsage := wgpu.TextureUsageCopyDst
	if usage&TexUsageBinding != 0 {
		texUsage |= wgpu.TextureUsageTextureBinding
	}
	if usage&TexUsageAttachment != 0 {
		texUsage |= wgpu.TextureUsageRenderAttachment
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        texFormat,
		Usage:         texUsage,
	})
	if err != nil {
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	if old, ok := b.views[id]; ok {
		old.Release()
	}
	if old, ok := b.textures[id]; ok {
		old.Release()
	}
	b.textures[id] = tex
	b.views[id] = view
	b.texWidth[id] = width
	return nil
}

func (b *Backend) CreateSampler(id uint16, filter, wrap uint8) error {
	mode := wgpu.FilterModeNearest
	if filter == 1 {
		mode = wgpu.FilterModeLinear
	}
	address := wgpu.AddressModeClampToEdge
	if wrap == 1 {
		address = wgpu.AddressModeRepeat
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     mode,
		MinFilter:     mode,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}
	if old, ok := b.samplers[id]; ok {
		old.Release()
	}
	b.samplers[id] = samp
	return nil
}

func (b *Backend) WriteBuffer(id uint16, offset uint32, data []byte) error {
	buf, ok := b.buffers[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "buffer", u16name(id))
	}
	b.queue.WriteBuffer(buf, uint64(offset), data)
	return nil
}

func (b *Backend) WriteTexture(id uint16, data []byte) error {
	tex, ok := b.textures[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "texture", u16name(id))
	}
	width := b.texWidth[id]
	if width == 0 {
		return errors.InvalidInput(errors.PhaseDispatch, "texture has zero width")
	}
	rows := uint32(len(data)) / (width * 4)
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: rows,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             rows,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *Backend) WriteTimeUniform(buffer uint16, offset uint32) error {
	buf, ok := b.buffers[buffer]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "buffer", u16name(buffer))
	}
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], math.Float32bits(b.time))
	b.queue.WriteBuffer(buf, uint64(offset), payload[:])
	return nil
}

func (b *Backend) ensureEncoder() error {
	if b.encoder != nil {
		return nil
	}
	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.encoder = enc
	return nil
}

func (b *Backend) BeginRenderPass(target uint16, loadOp uint8, clear [4]float32) error {
	if err := b.ensureEncoder(); err != nil {
		return err
	}
	view := b.target
	if target != cmdbuf.TargetSurface {
		view = b.views[target]
	}
	if view == nil {
		return errors.NotFound(errors.PhaseDispatch, "render target", u16name(target))
	}
	load := wgpu.LoadOpLoad
	if loadOp == 1 {
		load = wgpu.LoadOpClear
	}
	b.rpass = b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  load,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(clear[0]),
				G: float64(clear[1]),
				B: float64(clear[2]),
				A: float64(clear[3]),
			},
		}},
	})
	return nil
}

func (b *Backend) EndRenderPass() error {
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	b.rpass.End()
	b.rpass.Release()
	b.rpass = nil
	return nil
}

func (b *Backend) SetPipeline(id uint16) error {
	pipe, ok := b.renderPipelines[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "render pipeline", u16name(id))
	}
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	b.rpass.SetPipeline(pipe)
	return nil
}

func (b *Backend) SetBindGroup(slot uint8, id uint16) error {
	bg, ok := b.bindGroups[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "bind group", u16name(id))
	}
	switch {
	case b.rpass != nil:
		b.rpass.SetBindGroup(uint32(slot), bg, nil)
	case b.cpass != nil:
		b.cpass.SetBindGroup(uint32(slot), bg, nil)
	default:
		return errors.NotInitialized(errors.PhaseDispatch, "pass")
	}
	return nil
}

func (b *Backend) SetVertexBuffer(slot uint8, id uint16) error {
	buf, ok := b.buffers[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "buffer", u16name(id))
	}
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	b.rpass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	return nil
}

func (b *Backend) SetIndexBuffer(id uint16, format uint8) error {
	buf, ok := b.buffers[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "buffer", u16name(id))
	}
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	idxFormat := wgpu.IndexFormatUint16
	if format == 1 {
		idxFormat = wgpu.IndexFormatUint32
	}
	b.rpass.SetIndexBuffer(buf, idxFormat, 0, wgpu.WholeSize)
	return nil
}

func (b *Backend) Draw(vertexCount, instanceCount uint32) error {
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	b.rpass.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

func (b *Backend) DrawIndexed(indexCount, instanceCount uint32) error {
	if b.rpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "render pass")
	}
	b.rpass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
	return nil
}

func (b *Backend) BeginComputePass() error {
	if err := b.ensureEncoder(); err != nil {
		return err
	}
	b.cpass = b.encoder.BeginComputePass(nil)
	return nil
}

func (b *Backend) EndComputePass() error {
	if b.cpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "compute pass")
	}
	b.cpass.End()
	b.cpass.Release()
	b.cpass = nil
	return nil
}

func (b *Backend) SetComputePipeline(id uint16) error {
	pipe, ok := b.computePipelines[id]
	if !ok {
		return errors.NotFound(errors.PhaseDispatch, "compute pipeline", u16name(id))
	}
	if b.cpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "compute pass")
	}
	b.cpass.SetPipeline(pipe)
	return nil
}

func (b *Backend) Dispatch(x, y, z uint32) error {
	if b.cpass == nil {
		return errors.NotInitialized(errors.PhaseDispatch, "compute pass")
	}
	b.cpass.DispatchWorkgroups(x, y, z)
	return nil
}

func (b *Backend) CallModule(ctx context.Context, name string, args []cmdbuf.Arg) error {
	if b.Calls == nil {
		b.log.Debug("call_module with no registry", zap.String("name", name))
		return nil
	}
	return b.Calls.CallModule(ctx, name, args)
}

func (b *Backend) Submit() error {
	if b.encoder == nil {
		return nil
	}
	cb, err := b.encoder.Finish(nil)
	if err != nil {
		b.encoder.Release()
		b.encoder = nil
		return err
	}
	b.queue.Submit(cb)
	cb.Release()
	b.encoder.Release()
	b.encoder = nil
	return nil
}

func u16name(id uint16) string {
	return strconv.FormatUint(uint64(id), 10)
}
