package cmdbuf

import (
	"encoding/binary"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	buf := make([]byte, 256)
	e := NewEncoder(buf)
	e.CreateBuffer(0, 256, 0x21)
	e.Submit()
	total := e.Finish()

	if total != HeaderSize+8+1 {
		t.Errorf("total: got %d, want %d", total, HeaderSize+8+1)
	}
	if got := binary.LittleEndian.Uint32(buf[0:]); got != total {
		t.Errorf("header total_len: got %d", got)
	}
	if got := binary.LittleEndian.Uint16(buf[4:]); got != 2 {
		t.Errorf("header cmd_count: got %d", got)
	}
	if got := binary.LittleEndian.Uint16(buf[6:]); got != 0 {
		t.Errorf("header flags: got 0x%04x", got)
	}
}

func TestCreateBufferLayout(t *testing.T) {
	// create_buffer occupies exactly opcode + id(2) + size(4) + usage(1).
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	e.CreateBuffer(7, 1024, 0x21)
	total := e.Finish()

	if total != HeaderSize+1+2+4+1 {
		t.Fatalf("total: got %d, want %d", total, HeaderSize+8)
	}
	cmd := buf[HeaderSize:total]
	if cmd[0] != CmdCreateBuffer {
		t.Errorf("opcode: got 0x%02x", cmd[0])
	}
	if got := binary.LittleEndian.Uint16(cmd[1:]); got != 7 {
		t.Errorf("id: got %d", got)
	}
	if got := binary.LittleEndian.Uint32(cmd[3:]); got != 1024 {
		t.Errorf("size: got %d", got)
	}
	if cmd[7] != 0x21 {
		t.Errorf("usage: got 0x%02x", cmd[7])
	}
}

// encodeAll appends one command of every kind and returns the buffer.
func encodeAll(t *testing.T) ([]byte, int) {
	t.Helper()
	buf := make([]byte, 1024)
	e := NewEncoder(buf)

	e.CreateBuffer(0, 256, 0x21)
	e.CreateRenderPipeline(1, 100, 40, 3)
	e.CreateBindGroup(2, 1, []BindGroupEntry{{Binding: 0, Resource: 0}, {Binding: 1, Resource: 5}})
	e.CreateComputePipeline(3, 200, 30)
	e.CreateTexture(4, 512, 512, 1, 2)
	e.CreateSampler(5, 1, 0)
	e.WriteBuffer(0, 0, 300, 64)
	e.WriteTexture(4, 400, 128)
	e.BeginRenderPass(TargetSurface, 0, [4]float32{0, 0, 0, 1})
	e.SetPipeline(1)
	e.SetBindGroup(0, 2)
	e.SetVertexBuffer(0, 0)
	e.SetIndexBuffer(0, 1)
	e.Draw(3, 1)
	e.DrawIndexed(36, 2)
	e.EndRenderPass()
	e.BeginComputePass()
	e.SetComputePipeline(3)
	e.Dispatch(8, 8, 1)
	e.EndComputePass()
	e.WriteTimeUniform(0, 16)
	e.CallModule(500, 9, 2, []byte{
		ArgI32, 1, 0, 0, 0,
		ArgF64, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F,
	})
	e.Submit()

	total := e.Finish()
	if e.Truncated() {
		t.Fatal("unexpected truncation")
	}
	return buf[:total], int(e.Count())
}

func TestRoundTrip(t *testing.T) {
	data, count := encodeAll(t)

	b, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(b.Commands) != count {
		t.Fatalf("command count: got %d, want %d", len(b.Commands), count)
	}
	if b.Truncated() {
		t.Error("unexpected truncated flag")
	}

	// Spot-check typed immediates survive the trip.
	if imm, ok := b.Commands[0].Imm.(CreateBufferImm); !ok || imm.Size != 256 || imm.Usage != 0x21 {
		t.Errorf("create_buffer imm: %+v", b.Commands[0].Imm)
	}
	if imm, ok := b.Commands[2].Imm.(CreateBindGroupImm); !ok || len(imm.Entries) != 2 || imm.Entries[1].Resource != 5 {
		t.Errorf("create_bind_group imm: %+v", b.Commands[2].Imm)
	}
	if imm, ok := b.Commands[8].Imm.(BeginRenderPassImm); !ok || imm.Target != TargetSurface || imm.Clear[3] != 1 {
		t.Errorf("begin_render_pass imm: %+v", b.Commands[8].Imm)
	}
	last := b.Commands[len(b.Commands)-1]
	if last.Opcode != CmdSubmit || last.Imm != nil {
		t.Errorf("last command: %+v", last)
	}
}

func TestRoundTripConsumesExactly(t *testing.T) {
	data, _ := encodeAll(t)
	total := binary.LittleEndian.Uint32(data[0:])

	// Decoding must consume exactly total_len - HeaderSize payload
	// bytes: one byte more or less has to fail.
	grow := append(append([]byte(nil), data...), 0x00)
	binary.LittleEndian.PutUint32(grow[0:], total+1)
	if _, err := Decode(grow); err == nil {
		t.Error("expected error with one surplus byte")
	}

	shrunk := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(shrunk[0:], total-1)
	if _, err := Decode(shrunk); err == nil {
		t.Error("expected error with one missing byte")
	}
}

func TestCallModuleArgs(t *testing.T) {
	buf := make([]byte, 128)
	e := NewEncoder(buf)
	e.CallModule(64, 4, 2, []byte{
		ArgF32, 0, 0, 0x80, 0x3F, // 1.0f
		ArgI64, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // -1
	})
	total := e.Finish()

	b, err := Decode(buf[:total])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	imm := b.Commands[0].Imm.(CallModuleImm)
	if imm.NamePtr != 64 || imm.NameLen != 4 {
		t.Errorf("name ref: %+v", imm)
	}
	if len(imm.Args) != 2 {
		t.Fatalf("args: got %d", len(imm.Args))
	}
	if got := imm.Args[0].F32(); got != 1.0 {
		t.Errorf("arg0: got %v", got)
	}
	if got := imm.Args[1].I64(); got != -1 {
		t.Errorf("arg1: got %v", got)
	}
}

func TestEncoderTruncation(t *testing.T) {
	// Room for the header and one small command only.
	buf := make([]byte, HeaderSize+3)
	e := NewEncoder(buf)

	e.SetPipeline(1) // 3 bytes, fits
	e.Draw(3, 1)     // 9 bytes, dropped
	e.Submit()       // buffer already full, dropped
	total := e.Finish()

	if !e.Truncated() {
		t.Error("expected truncated flag")
	}
	b, err := Decode(buf[:total])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !b.Truncated() {
		t.Error("truncated flag not in header")
	}
	if len(b.Commands) != 1 {
		t.Errorf("commands: got %d, want 1", len(b.Commands))
	}
}

func TestEncoderReset(t *testing.T) {
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	e.Submit()
	e.Finish()

	e.Reset()
	total := e.Finish()
	if total != HeaderSize || e.Count() != 0 {
		t.Errorf("after reset: total=%d count=%d", total, e.Count())
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("short_header", func(t *testing.T) {
		if _, err := Decode([]byte{1, 2, 3}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("total_past_end", func(t *testing.T) {
		buf := make([]byte, HeaderSize)
		binary.LittleEndian.PutUint32(buf[0:], 100)
		if _, err := Decode(buf); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown_opcode", func(t *testing.T) {
		buf := make([]byte, HeaderSize+1)
		binary.LittleEndian.PutUint32(buf[0:], HeaderSize+1)
		binary.LittleEndian.PutUint16(buf[4:], 1)
		buf[HeaderSize] = 0xEE
		if _, err := Decode(buf); err == nil {
			t.Error("expected error")
		}
	})
}

func FuzzDecode(f *testing.F) {
	data, _ := encodeAllSeed()
	f.Add(data)
	f.Add([]byte{})
	f.Add(make([]byte, HeaderSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Arbitrary bytes must decode or fail cleanly, never panic.
		b, err := Decode(data)
		if err == nil && b == nil {
			t.Error("nil buffer without error")
		}
	})
}

// encodeAllSeed is encodeAll without the testing.T, for fuzz seeds.
func encodeAllSeed() ([]byte, int) {
	buf := make([]byte, 1024)
	e := NewEncoder(buf)
	e.CreateBuffer(0, 256, 0x21)
	e.BeginRenderPass(TargetSurface, 0, [4]float32{0, 0, 0, 1})
	e.Draw(3, 1)
	e.EndRenderPass()
	e.Submit()
	total := e.Finish()
	return buf[:total], int(e.Count())
}
