package module

// SkipParams advances past the immediates of op, with r positioned just
// after the opcode byte. It decodes exactly the bytes the interpreter
// would, so skipped and executed instructions leave the program counter
// in the same place regardless of which capability groups are enabled.
//
// It reports false for unknown opcodes and for immediates that run past
// the region end; the caller must stop scanning in both cases.
func SkipParams(r *Reader, op byte) bool {
	switch op {
	case OpNop, OpEnd, OpEndPassDef, OpDefineFrame, OpEndFrame, OpSubmit,
		OpEndRenderPass, OpBeginComputePass, OpEndComputePass:
		// no immediates

	case OpDefinePass, OpExecPass:
		r.Skip(1)

	case OpWriteTimeUniform:
		r.Skip(2)
		r.Varint()

	case OpCreateBuffer:
		r.Skip(2)
		r.Varint()
		r.Skip(1)

	case OpCreateRenderPipeline:
		r.Skip(5)

	case OpCreateBindGroup:
		r.Skip(4)
		count := int(r.U8())
		r.Skip(3 * count)

	case OpBeginRenderPass:
		r.Skip(2 + 1 + 16)

	case OpSetPipeline, OpSetComputePipeline:
		r.Skip(2)

	case OpSetBindGroup, OpSetVertexBuffer:
		r.Skip(3)

	case OpSetIndexBuffer:
		r.Skip(3)

	case OpDraw, OpDrawIndexed:
		r.Varint()
		r.Varint()

	case OpWriteBuffer:
		r.Skip(2)
		r.Varint()
		r.Skip(2)

	case OpCreateComputePipeline:
		r.Skip(4)

	case OpDispatch:
		r.Varint()
		r.Varint()
		r.Varint()

	case OpCreateTexture:
		r.Skip(2)
		r.Varint()
		r.Varint()
		r.Skip(2)

	case OpCreateSampler:
		r.Skip(4)

	case OpWriteTexture:
		r.Skip(4)

	case OpCallModule:
		r.Skip(2)
		argc := int(r.U8())
		for i := 0; i < argc; i++ {
			w := ArgWidth(r.U8())
			if w < 0 {
				return false
			}
			r.Skip(w)
		}

	case OpCreateBufferPool:
		r.Skip(3)
		r.Varint()
		r.Skip(1)

	case OpSetVertexBufferPool, OpSetBindGroupPool:
		r.Skip(5)

	case OpWriteBufferPool:
		r.Skip(4)
		r.Varint()
		r.Skip(2)

	default:
		return false
	}

	return !r.Bad()
}
