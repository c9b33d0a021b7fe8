package module

import (
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	code := []byte{
		OpCreateBuffer, 0, 0, 0x80, 0x02, 0x21,
		OpDefinePass, 0,
		OpSubmit,
		OpEndPassDef,
		OpDefineFrame,
		OpExecPass, 0,
		OpEndFrame,
		OpEnd,
	}

	out := Disassemble(code)
	for _, want := range []string{"create_buffer", "define_pass", "exec_pass", "end_frame", "end"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "0000:") {
		t.Errorf("listing should start at offset zero:\n%s", out)
	}
}

func TestDisassembleMalformed(t *testing.T) {
	// create_buffer with its immediates cut off.
	out := Disassemble([]byte{OpCreateBuffer, 0})
	if !strings.Contains(out, "malformed") {
		t.Errorf("expected malformed marker:\n%s", out)
	}
}

func TestDisassembleEmpty(t *testing.T) {
	if out := Disassemble(nil); out != "" {
		t.Errorf("got %q, want empty", out)
	}
}
