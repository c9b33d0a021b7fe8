package executor

import (
	"context"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/module"
)

// Default region capacities, matching what the wasm build reserves.
const (
	DefaultBytecodeCapacity uint32 = 64 << 10
	DefaultDataCapacity     uint32 = 64 << 10
	DefaultCommandCapacity  uint32 = 32 << 10

	// DefaultMaxPasses bounds the pass table. Passes defined with an
	// id at or above the limit are dropped.
	DefaultMaxPasses = 32
)

// Config tunes a new Executor. The zero value picks the defaults above
// with every capability enabled and logging disabled.
type Config struct {
	BytecodeCapacity uint32
	DataCapacity     uint32
	CommandCapacity  uint32
	MaxPasses        int

	// Caps selects the opcode groups that emit commands. Disabled
	// groups are still decoded, just never emitted. Zero means all.
	Caps module.CapSet

	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.BytecodeCapacity == 0 {
		c.BytecodeCapacity = DefaultBytecodeCapacity
	}
	if c.DataCapacity == 0 {
		c.DataCapacity = DefaultDataCapacity
	}
	if c.CommandCapacity == 0 {
		c.CommandCapacity = DefaultCommandCapacity
	}
	if c.MaxPasses <= 0 {
		c.MaxPasses = DefaultMaxPasses
	}
	if c.Caps == 0 {
		c.Caps = module.CapSetAll
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// passRange records the instruction-stream span of one defined pass,
// exclusive of the terminating end_pass_def opcode.
type passRange struct {
	start uint32
	end   uint32
	valid bool
}

// Executor is the native implementation of vireo.Session. It is not
// safe for concurrent use; the host serializes all calls.
type Executor struct {
	arena []byte

	bcCap, dataCap, cmdCap uint32
	dataBase, cmdBase      uint32
	bcLen, dataLen         uint32

	caps module.CapSet
	log  *zap.Logger

	mod      *module.Module
	res      module.Resolver
	strBase  uint32 // arena offset of the string table region
	dataOrig uint32 // arena offset of the active data region

	enc     *cmdbuf.Encoder
	passes  []passRange
	frames  uint32
	ready   bool
	entries [256]cmdbuf.BindGroupEntry

	// trace, when set, observes the pc and opcode of every visited
	// instruction. Used by tests to compare scan trajectories.
	trace func(pc int, op byte)
}

var _ vireo.Session = (*Executor)(nil)

// New builds an Executor with a freshly allocated arena.
func New(cfg Config) *Executor {
	cfg.applyDefaults()
	e := &Executor{
		bcCap:   cfg.BytecodeCapacity,
		dataCap: cfg.DataCapacity,
		cmdCap:  cfg.CommandCapacity,
		caps:    cfg.Caps,
		log:     cfg.Logger,
		passes:  make([]passRange, cfg.MaxPasses),
	}
	e.dataBase = e.bcCap
	e.cmdBase = e.bcCap + e.dataCap
	e.arena = make([]byte, e.bcCap+e.dataCap+e.cmdCap)
	e.enc = cmdbuf.NewEncoder(e.arena[e.cmdBase : e.cmdBase+e.cmdCap])
	return e
}

// BytecodeBuffer exposes the bytecode region at full capacity.
func (e *Executor) BytecodeBuffer() []byte {
	return e.arena[:e.bcCap]
}

// SetBytecodeLen records how many bytes of the bytecode region hold the
// module. Replacing the module invalidates the session until the next
// Init.
func (e *Executor) SetBytecodeLen(n uint32) vireo.Status {
	if n > e.bcCap {
		return vireo.StatusInvalidLength
	}
	e.bcLen = n
	e.ready = false
	return vireo.StatusOK
}

// DataBuffer exposes the external data region at full capacity.
func (e *Executor) DataBuffer() []byte {
	return e.arena[e.dataBase : e.dataBase+e.dataCap]
}

// SetDataLen records how many bytes of the data region are populated.
func (e *Executor) SetDataLen(n uint32) vireo.Status {
	if n > e.dataCap {
		return vireo.StatusInvalidLength
	}
	e.dataLen = n
	e.ready = false
	return vireo.StatusOK
}

// LoadModule copies a complete module into the bytecode region.
func (e *Executor) LoadModule(data []byte) vireo.Status {
	if uint32(len(data)) > e.bcCap {
		return vireo.StatusInvalidLength
	}
	copy(e.arena, data)
	return e.SetBytecodeLen(uint32(len(data)))
}

// Init parses the loaded module, resets all per-module state and runs
// the resource-creation scan, leaving the resulting commands in the
// command buffer.
func (e *Executor) Init(ctx context.Context) vireo.Status {
	e.ready = false
	e.frames = 0
	for i := range e.passes {
		e.passes[i] = passRange{}
	}

	mod, err := module.Load(e.arena[:e.bcLen])
	if err != nil {
		st := loadStatus(err)
		e.log.Debug("module rejected", zap.Error(err), zap.Stringer("status", st))
		return st
	}
	e.mod = mod
	e.strBase = mod.Header().StringTableOff

	// Embedded data wins; the external buffer serves modules shipped
	// with their data section stripped or emptied to a bare count.
	if embedded := mod.Data(); len(embedded) >= 2 && binary.LittleEndian.Uint16(embedded) > 0 {
		e.res = module.NewResolver(mod.StringTable(), embedded)
		e.dataOrig = mod.Header().DataOff
	} else {
		external := e.arena[e.dataBase : e.dataBase+e.dataLen]
		e.res = module.NewResolver(mod.StringTable(), external)
		e.dataOrig = e.dataBase
	}

	e.enc.Reset()
	e.initScan(mod.Bytecode())
	e.enc.Finish()
	e.ready = true
	return vireo.StatusOK
}

// Frame replays one frame into the command buffer. The frame counter
// advances exactly once per successful call, after the frame body has
// executed, so pool rotation within a frame sees a stable counter.
func (e *Executor) Frame(ctx context.Context, time float32, width, height uint32) vireo.Status {
	if !e.ready {
		return vireo.StatusNotInitialized
	}
	if width == 0 || height == 0 {
		return vireo.StatusInvalidArgument
	}
	e.enc.Reset()
	e.frameScan(e.mod.Bytecode(), &frameEnv{time: time, width: width, height: height})
	e.enc.Finish()
	e.frames++
	return vireo.StatusOK
}

// CommandPtr returns the arena offset of the command buffer.
func (e *Executor) CommandPtr() uint32 { return e.cmdBase }

// CommandLen returns the total length recorded in the command buffer's
// own header, zero before the first Init.
func (e *Executor) CommandLen() uint32 {
	return binary.LittleEndian.Uint32(e.arena[e.cmdBase:])
}

// Commands returns the finished command buffer bytes, valid until the
// next Init or Frame call.
func (e *Executor) Commands() []byte {
	n := e.CommandLen()
	if n < cmdbuf.HeaderSize || n > e.cmdCap {
		return nil
	}
	return e.arena[e.cmdBase : e.cmdBase+n]
}

// FrameCounter reports how many frames have executed since Init.
func (e *Executor) FrameCounter() uint32 { return e.frames }

// Memory returns a bounds-checked view of the whole arena.
func (e *Executor) Memory() vireo.Memory { return arenaMemory{buf: e.arena} }

func loadStatus(err error) vireo.Status {
	switch err {
	case module.ErrInvalidLength, module.ErrBadLayout:
		return vireo.StatusInvalidLength
	case module.ErrBadMagic:
		return vireo.StatusBadMagic
	case module.ErrUnsupportedVersion:
		return vireo.StatusUnsupportedVersion
	default:
		return vireo.StatusInternal
	}
}
