package engine

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/errors"
)

// Minimal hand-assembled wasm builders. Good enough for a stub
// executor whose exports all return zero.

func uleb(n int) []byte {
	var out []byte
	for {
		c := byte(n & 0x7F)
		n >>= 7
		if n != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if n == 0 {
			return out
		}
	}
}

func wasmSection(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(len(payload))...)
	return append(out, payload...)
}

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// stubExecutorWasm builds a wasm module that satisfies the full session
// export surface with functions that ignore their arguments and return
// zero.
func stubExecutorWasm() []byte {
	// type 0: () -> i32, type 1: (f32,i32,i32) -> i32, type 2: (i32) -> i32
	types := []byte{
		0x03,
		0x60, 0x00, 0x01, 0x7F,
		0x60, 0x03, 0x7D, 0x7F, 0x7F, 0x01, 0x7F,
		0x60, 0x01, 0x7F, 0x01, 0x7F,
	}

	exports := []struct {
		name string
		typ  byte
	}{
		{exportInit, 0},
		{exportFrame, 1},
		{exportCommandPtr, 0},
		{exportCommandLen, 0},
		{exportFrameCounter, 0},
		{exportBytecodePtr, 0},
		{exportBytecodeCap, 0},
		{exportSetBytecode, 2},
		{exportDataPtr, 0},
		{exportDataCap, 0},
		{exportSetData, 2},
	}

	funcs := uleb(len(exports))
	for _, e := range exports {
		funcs = append(funcs, e.typ)
	}

	memory := []byte{0x01, 0x00, 0x01} // one memory, min 1 page

	exp := uleb(len(exports) + 1)
	for i, e := range exports {
		exp = append(exp, uleb(len(e.name))...)
		exp = append(exp, e.name...)
		exp = append(exp, 0x00) // func
		exp = append(exp, uleb(i)...)
	}
	exp = append(exp, uleb(len("memory"))...)
	exp = append(exp, "memory"...)
	exp = append(exp, 0x02, 0x00)

	code := uleb(len(exports))
	for range exports {
		// no locals, i32.const 0, end
		code = append(code, 0x04, 0x00, 0x41, 0x00, 0x0B)
	}

	out := append([]byte(nil), wasmHeader...)
	out = append(out, wasmSection(1, types)...)
	out = append(out, wasmSection(3, funcs)...)
	out = append(out, wasmSection(5, memory)...)
	out = append(out, wasmSection(7, exp)...)
	out = append(out, wasmSection(10, code)...)
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, Config{MemoryLimitPages: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return e
}

func TestNewInstanceRejectsMemoryless(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.NewInstance(context.Background(), wasmHeader)
	if err == nil {
		t.Fatal("expected error for module without memory")
	}
}

func TestNewInstanceMissingExport(t *testing.T) {
	e := newTestEngine(t)
	// Memory but no functions.
	blob := append([]byte(nil), wasmHeader...)
	blob = append(blob, wasmSection(5, []byte{0x01, 0x00, 0x01})...)
	exp := append(uleb(1), uleb(len("memory"))...)
	exp = append(exp, "memory"...)
	exp = append(exp, 0x02, 0x00)
	blob = append(blob, wasmSection(7, exp)...)

	_, err := e.NewInstance(context.Background(), blob)
	if err == nil {
		t.Fatal("expected missing export error")
	}
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Kind != errors.KindMissingExport {
		t.Errorf("error = %v", err)
	}
}

func TestNewInstanceBadBytes(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.NewInstance(context.Background(), []byte("not wasm")); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestStubSession(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst, err := e.NewInstance(ctx, stubExecutorWasm())
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	defer inst.Close(ctx)

	var s vireo.Session = inst
	if st := s.Init(ctx); st != vireo.StatusOK {
		t.Errorf("Init = %v", st)
	}
	if st := s.Frame(ctx, 0.5, 640, 480); st != vireo.StatusOK {
		t.Errorf("Frame = %v", st)
	}
	if s.CommandPtr() != 0 || s.CommandLen() != 0 || s.FrameCounter() != 0 {
		t.Error("stub exports should all report zero")
	}
	if got := s.Memory().Size(); got != 1<<16 {
		t.Errorf("memory size = %d, want one page", got)
	}
	if st := s.SetBytecodeLen(16); st != vireo.StatusOK {
		t.Errorf("SetBytecodeLen = %v", st)
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(nil)
	var got []int32
	r.Register("sim.step", func(_ context.Context, args []cmdbuf.Arg) error {
		for _, a := range args {
			got = append(got, a.I32())
		}
		return nil
	})

	err := r.CallModule(context.Background(), "sim.step", []cmdbuf.Arg{
		{Tag: cmdbuf.ArgI32, Bits: 7},
		{Tag: cmdbuf.ArgI32, Bits: 9},
	})
	if err != nil {
		t.Fatalf("CallModule: %v", err)
	}
	if len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Errorf("args = %v", got)
	}
}

func TestRegistryUnknownNameIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.CallModule(context.Background(), "nope", nil); err != nil {
		t.Errorf("unknown target should be silent, got %v", err)
	}
}

func TestRegistryRegisterWasm(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	r := NewRegistry(nil)

	// Reuse a stub export with an (i32)->(i32) shape as the call target.
	if err := r.RegisterWasm(ctx, e, "stub.tick", exportSetBytecode, stubExecutorWasm()); err != nil {
		t.Fatalf("RegisterWasm: %v", err)
	}
	if err := r.CallModule(ctx, "stub.tick", []cmdbuf.Arg{{Tag: cmdbuf.ArgI32, Bits: 1}}); err != nil {
		t.Errorf("CallModule: %v", err)
	}

	if err := r.RegisterWasm(ctx, e, "bad", "missing_export", stubExecutorWasm()); err == nil {
		t.Error("expected missing export error")
	}
}
