package executor

import (
	"context"
	"testing"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/asm"
	"github.com/vireo-gfx/vireo/cmdbuf"
)

// FuzzInitFrame feeds arbitrary bytes through the whole session flow.
// Whatever the input, the executor must terminate, stay inside its
// arena and leave a decodable command buffer behind any OK status.
func FuzzInitFrame(f *testing.F) {
	f.Add([]byte{})
	f.Add(asm.NewBuilder().End().Build())
	f.Add(richModule())
	b := asm.NewBuilder()
	b.DefinePass(1).Submit().EndPassDef().DefineFrame().ExecPass(1).EndFrame().End()
	f.Add(b.Build())

	f.Fuzz(func(t *testing.T, data []byte) {
		e := New(Config{BytecodeCapacity: 4096, DataCapacity: 512, CommandCapacity: 1024})
		if st := e.LoadModule(data); st != vireo.StatusOK {
			return
		}
		if st := e.Init(context.Background()); st != vireo.StatusOK {
			return
		}
		if _, err := cmdbuf.Decode(e.Commands()); err != nil {
			t.Fatalf("Init produced undecodable buffer: %v", err)
		}
		for i := 0; i < 3; i++ {
			if st := e.Frame(context.Background(), float32(i), 320, 240); st != vireo.StatusOK {
				t.Fatalf("Frame %d = %v", i, st)
			}
			if _, err := cmdbuf.Decode(e.Commands()); err != nil {
				t.Fatalf("Frame produced undecodable buffer: %v", err)
			}
		}
	})
}
