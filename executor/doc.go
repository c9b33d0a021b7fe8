// Package executor implements the in-process animation VM session.
//
// An Executor owns a single contiguous arena split into three fixed
// regions: the module bytes, the external data buffer and the command
// buffer. The host copies a module into the bytecode region, calls
// Init once to run the resource-creation scan, then calls Frame per
// display refresh to produce a fresh command buffer. All pointers that
// appear inside emitted commands are byte offsets into the arena, so a
// host that mirrors the arena (or shares it, as the wasm engine does)
// can resolve string and data payloads without extra copies.
//
// Capacities are fixed at construction. Nothing allocates on the Init
// or Frame paths; when the command region fills up, remaining commands
// for the call are dropped and the buffer header carries a truncation
// flag rather than an error.
package executor
