package module

import (
	"fmt"
	"strings"
)

// Disassemble renders an instruction stream as one line per instruction,
// for tooling and test output. It stops at OpEnd, at the first unknown
// opcode, or when immediates run past the region end; the trailing
// condition is noted in the output.
func Disassemble(code []byte) string {
	var b strings.Builder
	pc := 0
	indent := 0

	for steps := 0; steps <= len(code); steps++ {
		if pc >= len(code) {
			return b.String()
		}
		op := code[pc]
		r := NewReader(code, pc+1)

		if op == OpEndPassDef || op == OpEndFrame {
			if indent > 0 {
				indent--
			}
		}

		start := pc
		if !SkipParams(&r, op) {
			fmt.Fprintf(&b, "%04x: <malformed %s>\n", start, OpName(op))
			return b.String()
		}

		fmt.Fprintf(&b, "%04x: %s%s", start, strings.Repeat("  ", indent), OpName(op))
		if r.PC() > start+1 {
			fmt.Fprintf(&b, " %x", code[start+1:r.PC()])
		}
		b.WriteByte('\n')

		if op == OpDefinePass || op == OpDefineFrame {
			indent++
		}
		if op == OpEnd {
			return b.String()
		}
		pc = r.PC()
	}
	return b.String()
}
