// Package module parses and indexes the binary module format.
//
// A module is an immutable byte buffer holding a fixed header, an
// optional embedded executor blob, an instruction stream, a string table
// and a data section. Load validates the header (magic, exact version
// match, flags) and the region ordering invariant once; everything after
// that is cheap slicing.
//
// The package also owns the instruction opcode space: opcode constants,
// their capability-group partitioning, and SkipParams, which advances
// past an instruction's immediates without executing it. SkipParams is
// the single source of truth for immediate widths, shared by the
// interpreter's skip paths, the pass-capture scan and the disassembler.
//
// Resolver performs O(1) bounds-checked string and blob lookups by id.
// Bad ids yield empty results by contract, never errors: the executor
// degrades silently on malformed references instead of aborting a frame.
package module
