// Package cmdbuf implements the command buffer wire protocol.
//
// A command buffer is the executor's output for one call: an 8-byte
// header {total_len u32, cmd_count u16, flags u16} followed by commands,
// each a one-byte opcode and a fixed, opcode-specific parameter layout.
// There is no per-command length field; encoder and decoder share one
// closed table of layouts, versioned with the module format.
//
// The encoder writes into a caller-provided fixed buffer and finalizes
// by back-patching the header. Overflow drops commands and sets
// FlagTruncated instead of failing, because nothing can signal a
// mid-call error across the guest boundary.
//
// Commands that carry (ptr, len) pairs reference the producing session's
// memory. Those pointers are valid for a single call only: the host must
// copy referenced bytes out before invoking the session again.
package cmdbuf
