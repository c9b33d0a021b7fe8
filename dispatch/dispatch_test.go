package dispatch

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/asm"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/errors"
	"github.com/vireo-gfx/vireo/executor"
)

// recorder captures the call sequence as short trace lines.
type recorder struct {
	NopHandler
	calls   []string
	shaders []string
	writes  [][]byte
	failOn  string
}

func (r *recorder) note(s string) error {
	r.calls = append(r.calls, s)
	if r.failOn != "" && strings.HasPrefix(s, r.failOn) {
		return errors.InvalidInput(errors.PhaseDispatch, "induced failure")
	}
	return nil
}

func (r *recorder) CreateBuffer(id uint16, size uint32, usage uint8) error {
	return r.note("create_buffer")
}

func (r *recorder) CreateRenderPipeline(id uint16, shader []byte, topology uint8) error {
	r.shaders = append(r.shaders, string(shader))
	return r.note("create_render_pipeline")
}

func (r *recorder) WriteBuffer(id uint16, offset uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.writes = append(r.writes, cp)
	return r.note("write_buffer")
}

func (r *recorder) SetPipeline(id uint16) error { return r.note("set_pipeline") }
func (r *recorder) Draw(v, i uint32) error      { return r.note("draw") }
func (r *recorder) Submit() error               { return r.note("submit") }

func (r *recorder) CallModule(_ context.Context, name string, args []cmdbuf.Arg) error {
	return r.note("call_module:" + name)
}

func initSession(t *testing.T) vireo.Session {
	t.Helper()
	b := asm.NewBuilder()
	shader := b.String("@vertex fn vs() {}")
	blob := b.Data([]byte{1, 2, 3})
	mod := b.CreateBuffer(0, 64, 0x20).
		CreateRenderPipeline(1, shader, 3).
		WriteBuffer(0, 0, blob).
		CallModule(b.String("sim.step"), asm.I32(1)).
		Submit().
		End().
		Build()

	e := executor.New(executor.Config{})
	if st := e.LoadModule(mod); st != vireo.StatusOK {
		t.Fatalf("LoadModule: %v", st)
	}
	if st := e.Init(context.Background()); st != vireo.StatusOK {
		t.Fatalf("Init: %v", st)
	}
	return e
}

func TestRunReplaysInOrder(t *testing.T) {
	s := initSession(t)
	rec := &recorder{}
	if err := Run(context.Background(), s, rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"create_buffer", "create_render_pipeline", "write_buffer", "call_module:sim.step", "submit"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v", rec.calls)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, rec.calls[i], want[i])
		}
	}
	if len(rec.shaders) != 1 || rec.shaders[0] != "@vertex fn vs() {}" {
		t.Errorf("shader payloads = %q", rec.shaders)
	}
	if len(rec.writes) != 1 || string(rec.writes[0]) != "\x01\x02\x03" {
		t.Errorf("write payloads = %v", rec.writes)
	}
}

func TestReplayStopsOnHandlerError(t *testing.T) {
	s := initSession(t)
	rec := &recorder{failOn: "write_buffer"}
	err := Run(context.Background(), s, rec)
	if err == nil {
		t.Fatal("expected error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseDispatch {
		t.Errorf("error = %v", err)
	}
	if rec.calls[len(rec.calls)-1] != "write_buffer" {
		t.Errorf("replay continued past failure: %v", rec.calls)
	}
}

func TestReplayBadPointer(t *testing.T) {
	// A write_buffer whose pointer runs past session memory.
	buf := &cmdbuf.Buffer{Commands: []cmdbuf.Command{{
		Opcode: cmdbuf.CmdWriteBuffer,
		Imm:    cmdbuf.WriteBufferImm{ID: 0, Ptr: 1 << 30, Len: 16},
	}}}
	mem := executor.New(executor.Config{}).Memory()
	err := Replay(context.Background(), buf, mem, NopHandler{})
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestTraceHandlerLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := initSession(t)
	h := NewTraceHandler(NopHandler{}, zap.New(core))
	if err := Run(context.Background(), s, h); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if logs.FilterMessage("create_buffer").Len() != 1 {
		t.Errorf("create_buffer logged %d times", logs.FilterMessage("create_buffer").Len())
	}
	if logs.FilterMessage("submit").Len() != 1 {
		t.Errorf("submit logged %d times", logs.FilterMessage("submit").Len())
	}
}
