package executor

import (
	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/module"
)

// frameEnv carries the per-frame arguments through the scan. It is nil
// during the resource-creation scan, where pool rotation is pinned to
// frame zero.
type frameEnv struct {
	time   float32
	width  uint32
	height uint32
}

func (e *Executor) visit(pc int, op byte) {
	if e.trace != nil {
		e.trace(pc, op)
	}
}

// initScan executes every top-level instruction up to the first
// define_frame or end. Pass bodies are captured, not executed. The loop
// is bounded by the stream length: every instruction occupies at least
// one byte, so a well-formed program can never need more iterations.
func (e *Executor) initScan(code []byte) {
	pc := 0
	for steps := 0; steps <= len(code); steps++ {
		if pc >= len(code) {
			return
		}
		op := code[pc]
		e.visit(pc, op)
		switch op {
		case module.OpEnd, module.OpDefineFrame:
			return
		case module.OpNop:
			pc++
		case module.OpDefinePass:
			r := module.NewReader(code, pc+1)
			id := r.U8()
			if r.Bad() {
				return
			}
			start := r.PC()
			end, ok := scanPassBody(code, start)
			if !ok {
				e.log.Debug("unterminated pass body", zap.Uint8("pass", id))
				return
			}
			if int(id) < len(e.passes) {
				e.passes[id] = passRange{start: uint32(start), end: uint32(end), valid: true}
			} else {
				e.log.Debug("pass id beyond table capacity, dropped", zap.Uint8("pass", id))
			}
			pc = end + 1 // past end_pass_def
		case module.OpEndPassDef, module.OpEndFrame:
			// Stray terminator at top level; skip.
			pc++
		case module.OpExecPass:
			// Pass replay is a frame-phase operation; consume the id.
			r := module.NewReader(code, pc+1)
			r.U8()
			if r.Bad() {
				return
			}
			pc = r.PC()
		default:
			next, ok := e.exec(code, pc, op, nil)
			if !ok {
				return
			}
			pc = next
		}
	}
}

// frameScan locates the frame body by skipping everything before
// define_frame, then executes until end_frame. A module without a frame
// block yields an empty command buffer.
func (e *Executor) frameScan(code []byte, env *frameEnv) {
	pc := 0
	for steps := 0; steps <= len(code); steps++ {
		if pc >= len(code) {
			return
		}
		op := code[pc]
		e.visit(pc, op)
		switch op {
		case module.OpEnd:
			return
		case module.OpDefineFrame:
			e.frameBody(code, pc+1, env)
			return
		case module.OpDefinePass:
			r := module.NewReader(code, pc+1)
			r.U8()
			if r.Bad() {
				return
			}
			end, ok := scanPassBody(code, r.PC())
			if !ok {
				return
			}
			pc = end + 1
		default:
			r := module.NewReader(code, pc+1)
			if !module.SkipParams(&r, op) {
				return
			}
			pc = r.PC()
		}
	}
}

// frameBody executes the instructions of one frame block.
func (e *Executor) frameBody(code []byte, pc int, env *frameEnv) {
	for steps := 0; steps <= len(code); steps++ {
		if pc >= len(code) {
			return
		}
		op := code[pc]
		e.visit(pc, op)
		switch op {
		case module.OpEnd, module.OpEndFrame:
			return
		case module.OpNop:
			pc++
		case module.OpExecPass:
			r := module.NewReader(code, pc+1)
			id := r.U8()
			if r.Bad() {
				return
			}
			e.replayPass(code, id, env)
			pc = r.PC()
		case module.OpDefinePass:
			// Pass definitions belong before the frame block; skip the
			// whole body so a misplaced one cannot execute twice.
			r := module.NewReader(code, pc+1)
			r.U8()
			if r.Bad() {
				return
			}
			end, ok := scanPassBody(code, r.PC())
			if !ok {
				return
			}
			pc = end + 1
		case module.OpEndPassDef, module.OpDefineFrame:
			pc++
		default:
			next, ok := e.exec(code, pc, op, env)
			if !ok {
				return
			}
			pc = next
		}
	}
}

// replayPass executes a captured pass body. Unknown pass ids degrade to
// a no-op. Nested exec_pass inside a pass body is not replayed, which
// keeps replay depth at one and rules out cycles.
func (e *Executor) replayPass(code []byte, id uint8, env *frameEnv) {
	if int(id) >= len(e.passes) || !e.passes[id].valid {
		e.log.Debug("exec_pass with unknown pass id", zap.Uint8("pass", id))
		return
	}
	pr := e.passes[id]
	pc := int(pr.start)
	end := int(pr.end)
	for steps := 0; steps <= len(code); steps++ {
		if pc >= end {
			return
		}
		op := code[pc]
		e.visit(pc, op)
		switch op {
		case module.OpEnd, module.OpEndPassDef, module.OpEndFrame, module.OpDefineFrame:
			return
		case module.OpNop:
			pc++
		case module.OpExecPass:
			r := module.NewReader(code, pc+1)
			r.U8()
			if r.Bad() {
				return
			}
			e.log.Debug("nested exec_pass ignored", zap.Uint8("pass", id))
			pc = r.PC()
		case module.OpDefinePass:
			return
		default:
			next, ok := e.exec(code, pc, op, env)
			if !ok {
				return
			}
			pc = next
		}
	}
}

// scanPassBody advances over a pass body without side effects and
// returns the pc of the terminating end_pass_def. ok is false when the
// body runs off the end of the stream or hits a malformed instruction.
func scanPassBody(code []byte, pc int) (end int, ok bool) {
	for steps := 0; steps <= len(code); steps++ {
		if pc >= len(code) {
			return 0, false
		}
		op := code[pc]
		switch op {
		case module.OpEndPassDef:
			return pc, true
		case module.OpEnd, module.OpDefineFrame, module.OpEndFrame:
			return 0, false
		default:
			r := module.NewReader(code, pc+1)
			if !module.SkipParams(&r, op) {
				return 0, false
			}
			pc = r.PC()
		}
	}
	return 0, false
}

// poolMember rotates a pool id by the frame counter. A zero-sized pool
// degrades to the base id.
func (e *Executor) poolMember(base uint16, size, offset uint8, env *frameEnv) uint16 {
	if size == 0 {
		return base
	}
	frame := uint32(0)
	if env != nil {
		frame = e.frames
	}
	return base + uint16((frame+uint32(offset))%uint32(size))
}

// stringPtr resolves a string id to its arena offset and length.
func (e *Executor) stringPtr(id uint16) (ptr, length uint32, ok bool) {
	off, n, ok := e.res.StringRange(id)
	if !ok {
		e.log.Debug("unknown string id", zap.Uint16("id", id))
		return 0, 0, false
	}
	return e.strBase + off, n, true
}

// dataPtr resolves a data blob id to its arena offset and length.
func (e *Executor) dataPtr(id uint16) (ptr, length uint32, ok bool) {
	off, n, ok := e.res.DataRange(id)
	if !ok {
		e.log.Debug("unknown data id", zap.Uint16("id", id))
		return 0, 0, false
	}
	return e.dataOrig + off, n, true
}

// exec decodes one parameterized instruction and, when its capability
// group is enabled, emits the corresponding command. Decoding must
// consume exactly the same bytes whether or not anything is emitted, so
// that disabling a capability never shifts the pc trajectory; the
// per-opcode reads here mirror module.SkipParams exactly.
func (e *Executor) exec(code []byte, pc int, op byte, env *frameEnv) (next int, ok bool) {
	r := module.NewReader(code, pc+1)
	emit := e.caps.Has(module.CapabilityOf(op))

	switch op {
	case module.OpSubmit:
		if emit {
			e.enc.Submit()
		}

	case module.OpWriteTimeUniform:
		buf := r.U16()
		off := r.Varint()
		if emit && !r.Bad() {
			e.enc.WriteTimeUniform(buf, off)
		}

	case module.OpCreateBuffer:
		id := r.U16()
		size := r.Varint()
		usage := r.U8()
		if emit && !r.Bad() {
			e.enc.CreateBuffer(id, size, usage)
		}

	case module.OpCreateRenderPipeline:
		id := r.U16()
		shader := r.U16()
		topology := r.U8()
		if emit && !r.Bad() {
			if ptr, n, ok := e.stringPtr(shader); ok {
				e.enc.CreateRenderPipeline(id, ptr, n, topology)
			}
		}

	case module.OpCreateBindGroup:
		id := r.U16()
		pipeline := r.U16()
		count := r.U8()
		entries := e.entries[:0]
		for i := 0; i < int(count); i++ {
			binding := r.U8()
			resource := r.U16()
			entries = append(entries, cmdbuf.BindGroupEntry{Binding: binding, Resource: resource})
		}
		if emit && !r.Bad() {
			e.enc.CreateBindGroup(id, pipeline, entries)
		}

	case module.OpBeginRenderPass:
		target := r.U16()
		loadOp := r.U8()
		var clear [4]float32
		for i := range clear {
			clear[i] = r.F32()
		}
		if emit && !r.Bad() {
			e.enc.BeginRenderPass(target, loadOp, clear)
		}

	case module.OpEndRenderPass:
		if emit {
			e.enc.EndRenderPass()
		}

	case module.OpSetPipeline:
		id := r.U16()
		if emit && !r.Bad() {
			e.enc.SetPipeline(id)
		}

	case module.OpSetBindGroup:
		slot := r.U8()
		id := r.U16()
		if emit && !r.Bad() {
			e.enc.SetBindGroup(slot, id)
		}

	case module.OpSetVertexBuffer:
		slot := r.U8()
		id := r.U16()
		if emit && !r.Bad() {
			e.enc.SetVertexBuffer(slot, id)
		}

	case module.OpSetIndexBuffer:
		id := r.U16()
		format := r.U8()
		if emit && !r.Bad() {
			e.enc.SetIndexBuffer(id, format)
		}

	case module.OpDraw:
		vertices := r.Varint()
		instances := r.Varint()
		if emit && !r.Bad() {
			e.enc.Draw(vertices, instances)
		}

	case module.OpDrawIndexed:
		indices := r.Varint()
		instances := r.Varint()
		if emit && !r.Bad() {
			e.enc.DrawIndexed(indices, instances)
		}

	case module.OpWriteBuffer:
		id := r.U16()
		off := r.Varint()
		data := r.U16()
		if emit && !r.Bad() {
			if ptr, n, ok := e.dataPtr(data); ok {
				e.enc.WriteBuffer(id, off, ptr, n)
			}
		}

	case module.OpCreateComputePipeline:
		id := r.U16()
		shader := r.U16()
		if emit && !r.Bad() {
			if ptr, n, ok := e.stringPtr(shader); ok {
				e.enc.CreateComputePipeline(id, ptr, n)
			}
		}

	case module.OpBeginComputePass:
		if emit {
			e.enc.BeginComputePass()
		}

	case module.OpEndComputePass:
		if emit {
			e.enc.EndComputePass()
		}

	case module.OpSetComputePipeline:
		id := r.U16()
		if emit && !r.Bad() {
			e.enc.SetComputePipeline(id)
		}

	case module.OpDispatch:
		x := r.Varint()
		y := r.Varint()
		z := r.Varint()
		if emit && !r.Bad() {
			e.enc.Dispatch(x, y, z)
		}

	case module.OpCreateTexture:
		id := r.U16()
		width := r.Varint()
		height := r.Varint()
		format := r.U8()
		usage := r.U8()
		if emit && !r.Bad() {
			e.enc.CreateTexture(id, width, height, format, usage)
		}

	case module.OpCreateSampler:
		id := r.U16()
		filter := r.U8()
		wrap := r.U8()
		if emit && !r.Bad() {
			e.enc.CreateSampler(id, filter, wrap)
		}

	case module.OpWriteTexture:
		id := r.U16()
		data := r.U16()
		if emit && !r.Bad() {
			if ptr, n, ok := e.dataPtr(data); ok {
				e.enc.WriteTexture(id, ptr, n)
			}
		}

	case module.OpCallModule:
		name := r.U16()
		argc := r.U8()
		argStart := r.PC()
		for i := 0; i < int(argc); i++ {
			w := module.ArgWidth(r.U8())
			if w < 0 {
				e.log.Debug("bad call argument tag", zap.Int("pc", pc))
				return 0, false
			}
			r.Skip(w)
		}
		if emit && !r.Bad() {
			if ptr, n, ok := e.stringPtr(name); ok {
				e.enc.CallModule(ptr, n, argc, code[argStart:r.PC()])
			}
		}

	case module.OpCreateBufferPool:
		base := r.U16()
		count := r.U8()
		size := r.Varint()
		usage := r.U8()
		if emit && !r.Bad() {
			for i := uint16(0); i < uint16(count); i++ {
				e.enc.CreateBuffer(base+i, size, usage)
			}
		}

	case module.OpSetVertexBufferPool:
		slot := r.U8()
		base := r.U16()
		count := r.U8()
		offset := r.U8()
		if emit && !r.Bad() {
			e.enc.SetVertexBuffer(slot, e.poolMember(base, count, offset, env))
		}

	case module.OpSetBindGroupPool:
		slot := r.U8()
		base := r.U16()
		count := r.U8()
		offset := r.U8()
		if emit && !r.Bad() {
			e.enc.SetBindGroup(slot, e.poolMember(base, count, offset, env))
		}

	case module.OpWriteBufferPool:
		base := r.U16()
		count := r.U8()
		offset := r.U8()
		dst := r.Varint()
		data := r.U16()
		if emit && !r.Bad() {
			if ptr, n, ok := e.dataPtr(data); ok {
				e.enc.WriteBuffer(e.poolMember(base, count, offset, env), dst, ptr, n)
			}
		}

	default:
		e.log.Debug("unknown opcode, scan stopped", zap.Uint8("op", op), zap.Int("pc", pc))
		return 0, false
	}

	if r.Bad() {
		return 0, false
	}
	return r.PC(), true
}
