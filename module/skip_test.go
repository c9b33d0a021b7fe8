package module

import "testing"

// encoded instruction fixtures: opcode byte followed by immediates.
var skipFixtures = []struct {
	name  string
	instr []byte
}{
	{"nop", []byte{OpNop}},
	{"end", []byte{OpEnd}},
	{"define_pass", []byte{OpDefinePass, 3}},
	{"end_pass_def", []byte{OpEndPassDef}},
	{"define_frame", []byte{OpDefineFrame}},
	{"end_frame", []byte{OpEndFrame}},
	{"exec_pass", []byte{OpExecPass, 3}},
	{"submit", []byte{OpSubmit}},
	{"write_time_uniform", []byte{OpWriteTimeUniform, 1, 0, 0x10}},
	{"create_buffer", []byte{OpCreateBuffer, 0, 0, 0x80, 0x02, 0x21}},
	{"create_render_pipeline", []byte{OpCreateRenderPipeline, 1, 0, 0, 0, 3}},
	{"create_bind_group_empty", []byte{OpCreateBindGroup, 2, 0, 1, 0, 0}},
	{"create_bind_group_two", []byte{OpCreateBindGroup, 2, 0, 1, 0, 2, 0, 5, 0, 1, 6, 0}},
	{"begin_render_pass", append([]byte{OpBeginRenderPass, 0xFF, 0xFF, 0}, make([]byte, 16)...)},
	{"end_render_pass", []byte{OpEndRenderPass}},
	{"set_pipeline", []byte{OpSetPipeline, 1, 0}},
	{"set_bind_group", []byte{OpSetBindGroup, 0, 2, 0}},
	{"set_vertex_buffer", []byte{OpSetVertexBuffer, 0, 5, 0}},
	{"set_index_buffer", []byte{OpSetIndexBuffer, 6, 0, 1}},
	{"draw", []byte{OpDraw, 3, 1}},
	{"draw_multibyte_counts", []byte{OpDraw, 0x80, 0x08, 0x01}},
	{"draw_indexed", []byte{OpDrawIndexed, 0x24, 1}},
	{"write_buffer", []byte{OpWriteBuffer, 0, 0, 0x40, 2, 0}},
	{"create_compute_pipeline", []byte{OpCreateComputePipeline, 9, 0, 1, 0}},
	{"begin_compute_pass", []byte{OpBeginComputePass}},
	{"end_compute_pass", []byte{OpEndComputePass}},
	{"set_compute_pipeline", []byte{OpSetComputePipeline, 9, 0}},
	{"dispatch", []byte{OpDispatch, 8, 8, 1}},
	{"create_texture", []byte{OpCreateTexture, 4, 0, 0x80, 0x04, 0x80, 0x04, 0, 1}},
	{"create_sampler", []byte{OpCreateSampler, 5, 0, 1, 0}},
	{"write_texture", []byte{OpWriteTexture, 4, 0, 1, 0}},
	{"call_module_no_args", []byte{OpCallModule, 0, 0, 0}},
	{"call_module_mixed_args", []byte{
		OpCallModule, 0, 0, 3,
		ArgI32, 1, 0, 0, 0,
		ArgF64, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F,
		ArgF32, 0, 0, 0x80, 0x3F,
	}},
	{"create_buffer_pool", []byte{OpCreateBufferPool, 10, 0, 2, 0x80, 0x02, 0x21}},
	{"set_vertex_buffer_pool", []byte{OpSetVertexBufferPool, 0, 10, 0, 2, 0}},
	{"set_bind_group_pool", []byte{OpSetBindGroupPool, 0, 20, 0, 2, 1}},
	{"write_buffer_pool", []byte{OpWriteBufferPool, 10, 0, 2, 0, 0x10, 3, 0}},
}

func TestSkipParamsWidths(t *testing.T) {
	for _, tt := range skipFixtures {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.instr, 1)
			if !SkipParams(&r, tt.instr[0]) {
				t.Fatalf("SkipParams failed on %s", OpName(tt.instr[0]))
			}
			if r.PC() != len(tt.instr) {
				t.Errorf("PC after skip: got %d, want %d", r.PC(), len(tt.instr))
			}
		})
	}
}

func TestSkipParamsTruncated(t *testing.T) {
	for _, tt := range skipFixtures {
		if len(tt.instr) == 1 {
			continue // no immediates to truncate
		}
		t.Run(tt.name, func(t *testing.T) {
			short := tt.instr[:len(tt.instr)-1]
			r := NewReader(short, 1)
			if SkipParams(&r, short[0]) {
				t.Error("expected failure on truncated immediates")
			}
		})
	}
}

func TestSkipParamsUnknownOpcode(t *testing.T) {
	code := []byte{0x1F, 0x00}
	r := NewReader(code, 1)
	if SkipParams(&r, code[0]) {
		t.Error("expected failure on unknown opcode")
	}
}

func TestSkipParamsBadArgTag(t *testing.T) {
	code := []byte{OpCallModule, 0, 0, 1, 0x7F}
	r := NewReader(code, 1)
	if SkipParams(&r, code[0]) {
		t.Error("expected failure on unknown argument tag")
	}
}

func TestCapabilityOf(t *testing.T) {
	tests := []struct {
		op   byte
		want Capability
	}{
		{OpNop, CapCore},
		{OpWriteTimeUniform, CapCore},
		{OpCreateBuffer, CapRender},
		{OpWriteBuffer, CapRender},
		{OpDispatch, CapCompute},
		{OpCreateTexture, CapTexture},
		{OpCallModule, CapWasm},
		{OpWriteBufferPool, CapPool},
	}
	for _, tt := range tests {
		if got := CapabilityOf(tt.op); got != tt.want {
			t.Errorf("CapabilityOf(%s): got %d, want %d", OpName(tt.op), got, tt.want)
		}
	}
}

func TestCapSet(t *testing.T) {
	var none CapSet
	if !none.Has(CapCore) {
		t.Error("core must always be enabled")
	}
	if none.Has(CapRender) {
		t.Error("render should be disabled in empty set")
	}
	if !CapSetAll.Has(CapPool) || !CapSetAll.Has(CapWasm) {
		t.Error("CapSetAll missing groups")
	}
}
