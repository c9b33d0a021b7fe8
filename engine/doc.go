// Package engine runs embedded executors under wazero. A module built
// with the embedded-executor flag carries a wasm build of the VM
// between its header and instruction stream; Engine.NewInstance
// instantiates that blob and exposes it behind the same vireo.Session
// interface as the native executor, so hosts switch between the two
// without code changes.
//
// The package also provides a Registry for nested-module calls: guest
// programs name a target with call_module, and the dispatcher resolves
// it here.
package engine
