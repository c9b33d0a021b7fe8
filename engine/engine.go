package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo/errors"
	"github.com/vireo-gfx/vireo/module"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KB pages. 0 means the
	// wazero default.
	MemoryLimitPages uint32
}

// Engine owns one wazero runtime shared by all instances created from
// it. The host module "env" is instantiated lazily on first use.
type Engine struct {
	runtime wazero.Runtime
	envDone bool
}

// New creates a wazero-backed engine.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	rcfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, rcfg)}, nil
}

// Close releases the runtime and every instance created from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// initEnv registers the host imports an embedded executor may use:
//
//	env.log(ptr, len)  - UTF-8 diagnostic message in guest memory
func (e *Engine) initEnv(ctx context.Context) error {
	if e.envDone {
		return nil
	}
	if e.runtime.Module("env") != nil {
		e.envDone = true
		return nil
	}

	_, err := e.runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostLog),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("log").
		Instantiate(ctx)
	if err != nil {
		return errors.Instantiation(err)
	}
	e.envDone = true
	return nil
}

func hostLog(_ context.Context, mod api.Module, stack []uint64) {
	if len(stack) < 2 {
		return
	}
	ptr, n := uint32(stack[0]), uint32(stack[1])
	msg, ok := mod.Memory().Read(ptr, n)
	if !ok {
		Logger().Warn("guest log outside memory",
			zap.Uint32("ptr", ptr), zap.Uint32("len", n))
		return
	}
	Logger().Debug("guest", zap.ByteString("msg", msg))
}

// NewInstance instantiates a wasm executor build and wraps it as a
// session. The blob usually comes from Module.ExecutorBlob.
func (e *Engine) NewInstance(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	if err := e.initEnv(ctx); err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err,
			"compile executor blob")
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst, err := newInstance(mod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	return inst, nil
}

// NewSessionFromModule loads a module that carries an embedded
// executor, instantiates it and copies the module bytes into the
// guest's bytecode region, leaving the session ready for Init.
func (e *Engine) NewSessionFromModule(ctx context.Context, m *module.Module) (*Instance, error) {
	if !m.Header().HasEmbeddedExecutor() {
		return nil, errors.InvalidInput(errors.PhaseEngine, "module has no embedded executor")
	}
	inst, err := e.NewInstance(ctx, m.ExecutorBlob())
	if err != nil {
		return nil, err
	}
	if err := inst.CopyModule(ctx, m); err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}
	return inst, nil
}
