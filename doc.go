// Package vireo renders animated GPU content from compact binary programs.
//
// A compiler (not part of this repository) translates a declarative
// animation description into a binary module: header, instruction stream,
// string table, data section. This library is the executor for such
// modules: a static-memory bytecode VM that replays instructions on each
// frame and produces a command buffer the host's GPU backend consumes.
//
// # Architecture Overview
//
// The library is organized into flat packages with distinct
// responsibilities:
//
//	vireo/           Root package with Session, Memory and Status types
//	├── module/      Binary module parsing: header, regions, resolver, disassembler
//	├── cmdbuf/      Command buffer wire protocol: encoder and decoder
//	├── executor/    The bytecode VM: two-phase interpreter, pass table, pools
//	├── asm/         Programmatic module builder for tests and tooling
//	├── dispatch/    Host-side command replay: Handler interface, trace handler
//	├── engine/      wazero-backed embedded executor and nested-module calls
//	├── gpu/         webgpu Handler translating commands into real draw calls
//	├── errors/      Structured error types for debugging
//	└── cmd/         vireo-run CLI with interactive frame stepper
//
// # Quick Start
//
// Run a module with the native executor:
//
//	exec := executor.New(executor.Config{})
//	if st := exec.LoadModule(moduleBytes); st != vireo.StatusOK {
//	    log.Fatal(st)
//	}
//	if st := exec.Init(ctx); st != vireo.StatusOK {
//	    log.Fatal(st)
//	}
//	exec.Frame(ctx, 0.016, 1920, 1080)
//	cmds := exec.Commands() // valid until the next call
//
// # Call Protocol
//
// Sessions are single-threaded and call/response: load, Init once, Frame
// repeatedly, never concurrently or re-entrantly. All resource-creation
// commands produced by Init must be applied by the host, in order, before
// any frame commands are submitted; frame commands reference resources by
// id without existence checks.
//
// # Memory Model
//
// All buffers are sized at construction and never grow. Commands that
// carry (ptr, len) pairs reference session memory directly; the host must
// copy referenced bytes out before the next call, because every pointer
// is invalidated when a new call begins.
package vireo
