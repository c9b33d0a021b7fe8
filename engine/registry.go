package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/errors"
)

// Func handles one nested-module call.
type Func func(ctx context.Context, args []cmdbuf.Arg) error

// Registry resolves call_module targets by name. Targets are plain Go
// functions; RegisterWasm wraps a wasm export as one. Safe for
// concurrent registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
	log   *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{funcs: make(map[string]Func), log: log}
}

// Register binds a name to a handler, replacing any previous binding.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// RegisterWasm compiles and instantiates a wasm module under the
// engine, then binds the given export so guest programs can call it by
// name. The export receives the arguments as raw 64-bit values in tag
// order and may return nothing or a single discarded value.
func (r *Registry) RegisterWasm(ctx context.Context, e *Engine, name, export string, wasmBytes []byte) error {
	if err := e.initEnv(ctx); err != nil {
		return err
	}
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err, "compile "+name)
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return errors.Instantiation(err)
	}
	fn := mod.ExportedFunction(export)
	if fn == nil {
		_ = mod.Close(ctx)
		return errors.MissingExport(export)
	}

	r.Register(name, func(ctx context.Context, args []cmdbuf.Arg) error {
		stack := make([]uint64, len(args))
		if n := len(fn.Definition().ResultTypes()); n > len(stack) {
			stack = make([]uint64, n)
		}
		for i, a := range args {
			stack[i] = a.Bits
		}
		if err := fn.CallWithStack(ctx, stack); err != nil {
			return errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err, "call "+name)
		}
		return nil
	})
	return nil
}

// CallModule dispatches a nested call. Unknown names are logged and
// ignored so an optional side module never breaks playback. The
// signature matches the dispatch handler's, so a backend can embed a
// registry to gain nested-call support.
func (r *Registry) CallModule(ctx context.Context, name string, args []cmdbuf.Arg) error {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug("call to unregistered module", zap.String("name", name))
		return nil
	}
	return fn(ctx, args)
}

// Names returns the registered target names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}
