package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/asm"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/module"
)

// richModule exercises every capability group in both the resource scan
// and the frame body.
func richModule() []byte {
	b := asm.NewBuilder()
	shader := b.String("@vertex fn vs() {}")
	cs := b.String("@compute fn main() {}")
	call := b.String("sim.step")
	blob := b.Data([]byte{1, 2, 3, 4})

	b.CreateBuffer(0, 256, 0x20).
		CreateRenderPipeline(1, shader, 3).
		CreateComputePipeline(2, cs).
		CreateTexture(3, 64, 64, 1, 2).
		CreateSampler(4, 1, 0).
		WriteTexture(3, blob).
		CreateBufferPool(10, 3, 64, 0x40).
		CreateBindGroup(5, 1, asm.BindGroupEntry{Binding: 0, Resource: 0}).
		WriteBuffer(0, 0, blob).
		CallModule(call, asm.I32(1), asm.F32(0.5)).
		DefinePass(0).
		BeginRenderPass(0xFFFF, 1, [4]float32{0, 0, 0, 1}).
		SetPipeline(1).
		SetBindGroup(0, 5).
		SetVertexBuffer(0, 0).
		SetIndexBuffer(0, 1).
		DrawIndexed(6, 1).
		EndRenderPass().
		EndPassDef().
		DefineFrame().
		WriteTimeUniform(0, 0).
		WriteBufferPool(10, 3, 0, 0, blob).
		SetVertexBufferPool(0, 10, 3, 0).
		BeginComputePass().
		SetComputePipeline(2).
		Dispatch(8, 8, 1).
		EndComputePass().
		ExecPass(0).
		SetBindGroupPool(1, 10, 3, 1).
		Draw(3, 1).
		Submit().
		EndFrame().
		End()
	return b.Build()
}

type pcTrace []string

func runTraced(t *testing.T, caps module.CapSet, mod []byte) (initTrace, frameTrace pcTrace) {
	t.Helper()
	e := New(Config{Caps: caps})
	var cur *pcTrace
	e.trace = func(pc int, op byte) {
		*cur = append(*cur, fmt.Sprintf("%04x:%s", pc, module.OpName(op)))
	}
	if st := e.LoadModule(mod); st != vireo.StatusOK {
		t.Fatalf("LoadModule: %v", st)
	}
	cur = &initTrace
	if st := e.Init(context.Background()); st != vireo.StatusOK {
		t.Fatalf("Init: %v", st)
	}
	cur = &frameTrace
	if st := e.Frame(context.Background(), 0.5, 640, 480); st != vireo.StatusOK {
		t.Fatalf("Frame: %v", st)
	}
	return initTrace, frameTrace
}

func diffTrace(t *testing.T, name string, a, b pcTrace) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%s: trace lengths differ: %d vs %d\n%v\n%v", name, len(a), len(b), a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("%s: step %d diverges: %s vs %s", name, i, a[i], b[i])
		}
	}
}

// TestScanTrajectoryIndependentOfCaps checks that disabling capability
// groups changes only what is emitted, never which bytes are decoded.
func TestScanTrajectoryIndependentOfCaps(t *testing.T) {
	mod := richModule()
	fullInit, fullFrame := runTraced(t, module.CapSetAll, mod)
	if len(fullInit) == 0 || len(fullFrame) == 0 {
		t.Fatal("traces empty, instrumentation broken")
	}

	variants := []struct {
		name string
		caps module.CapSet
	}{
		{"core_only", module.CapSetCore},
		{"render_only", module.CapSetRender},
		{"compute_only", module.CapSetCompute},
		{"texture_only", module.CapSetTexture},
		{"wasm_only", module.CapSetWasm},
		{"pool_only", module.CapSetPool},
		{"no_render", module.CapSetAll &^ module.CapSetRender},
		{"no_pool", module.CapSetAll &^ module.CapSetPool},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			initT, frameT := runTraced(t, v.caps, mod)
			diffTrace(t, "init", fullInit, initT)
			diffTrace(t, "frame", fullFrame, frameT)
		})
	}
}

// TestDisabledCapsEmitNothing checks the emission side of the same
// contract: a group that is off contributes zero commands.
func TestDisabledCapsEmitNothing(t *testing.T) {
	b := asm.NewBuilder()
	cs := b.String("cs")
	mod := b.CreateComputePipeline(0, cs).
		CreateBuffer(1, 8, 0).
		End().
		Build()

	e := New(Config{Caps: module.CapSetRender})
	mustInit(t, e, mod)
	buf := decodeCommands(t, e)
	if len(buf.Commands) != 1 {
		t.Fatalf("command count = %d, want only create_buffer", len(buf.Commands))
	}
	if buf.Commands[0].Opcode != cmdbuf.CmdCreateBuffer {
		t.Errorf("surviving opcode = 0x%02x", buf.Commands[0].Opcode)
	}
}
