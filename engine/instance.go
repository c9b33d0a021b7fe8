package engine

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/errors"
	"github.com/vireo-gfx/vireo/module"
)

// Exported function names every embedded executor must provide.
const (
	exportInit         = "init"
	exportFrame        = "frame"
	exportCommandPtr   = "get_command_ptr"
	exportCommandLen   = "get_command_len"
	exportFrameCounter = "get_frame_counter"
	exportBytecodePtr  = "get_bytecode_ptr"
	exportBytecodeCap  = "get_bytecode_cap"
	exportSetBytecode  = "set_bytecode_len"
	exportDataPtr      = "get_data_ptr"
	exportDataCap      = "get_data_cap"
	exportSetData      = "set_data_len"
)

// Instance is a wasm executor running under wazero, exposed as a
// session. Not safe for concurrent use; the host serializes calls, the
// same contract the native executor has.
type Instance struct {
	mod api.Module

	initFn     api.Function
	frameFn    api.Function
	cmdPtrFn   api.Function
	cmdLenFn   api.Function
	frameCtrFn api.Function
	bcPtrFn    api.Function
	bcCapFn    api.Function
	setBcFn    api.Function
	dataPtrFn  api.Function
	dataCapFn  api.Function
	setDataFn  api.Function

	stack []uint64
}

var _ vireo.Session = (*Instance)(nil)

func newInstance(mod api.Module) (*Instance, error) {
	if mod.Memory() == nil {
		return nil, errors.InvalidInput(errors.PhaseEngine, "executor exports no memory")
	}
	inst := &Instance{mod: mod, stack: make([]uint64, 4)}
	for _, e := range []struct {
		name string
		dst  *api.Function
	}{
		{exportInit, &inst.initFn},
		{exportFrame, &inst.frameFn},
		{exportCommandPtr, &inst.cmdPtrFn},
		{exportCommandLen, &inst.cmdLenFn},
		{exportFrameCounter, &inst.frameCtrFn},
		{exportBytecodePtr, &inst.bcPtrFn},
		{exportBytecodeCap, &inst.bcCapFn},
		{exportSetBytecode, &inst.setBcFn},
		{exportDataPtr, &inst.dataPtrFn},
		{exportDataCap, &inst.dataCapFn},
		{exportSetData, &inst.setDataFn},
	} {
		fn := mod.ExportedFunction(e.name)
		if fn == nil {
			return nil, errors.MissingExport(e.name)
		}
		*e.dst = fn
	}
	return inst, nil
}

// Close releases the underlying wasm module.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

// call0 invokes a nullary i32-returning export.
func (i *Instance) call0(ctx context.Context, fn api.Function, name string) uint32 {
	i.stack[0] = 0
	if err := fn.CallWithStack(ctx, i.stack[:1]); err != nil {
		Logger().Warn("guest call trapped", zap.String("export", name), zap.Error(err))
		return 0
	}
	return uint32(i.stack[0])
}

// BytecodeBuffer exposes the guest's bytecode region. The slice aliases
// guest memory and is invalidated by memory growth.
func (i *Instance) BytecodeBuffer() []byte {
	return i.region(exportBytecodePtr, i.bcPtrFn, i.bcCapFn)
}

// DataBuffer exposes the guest's external data region.
func (i *Instance) DataBuffer() []byte {
	return i.region(exportDataPtr, i.dataPtrFn, i.dataCapFn)
}

func (i *Instance) region(name string, ptrFn, capFn api.Function) []byte {
	ctx := context.Background()
	ptr := i.call0(ctx, ptrFn, name)
	size := i.call0(ctx, capFn, name)
	buf, ok := i.mod.Memory().Read(ptr, size)
	if !ok {
		Logger().Warn("guest region outside memory",
			zap.String("export", name), zap.Uint32("ptr", ptr), zap.Uint32("cap", size))
		return nil
	}
	return buf
}

func (i *Instance) setLen(fn api.Function, name string, n uint32) vireo.Status {
	i.stack[0] = uint64(n)
	if err := fn.CallWithStack(context.Background(), i.stack[:1]); err != nil {
		Logger().Warn("guest call trapped", zap.String("export", name), zap.Error(err))
		return vireo.StatusInternal
	}
	return vireo.Status(uint32(i.stack[0]))
}

func (i *Instance) SetBytecodeLen(n uint32) vireo.Status {
	return i.setLen(i.setBcFn, exportSetBytecode, n)
}

func (i *Instance) SetDataLen(n uint32) vireo.Status {
	return i.setLen(i.setDataFn, exportSetData, n)
}

// CopyModule copies a loaded module's bytes into the guest bytecode
// region and records the length.
func (i *Instance) CopyModule(ctx context.Context, m *module.Module) error {
	buf := i.BytecodeBuffer()
	raw := m.Bytes()
	if uint32(len(raw)) > uint32(len(buf)) {
		return errors.Capacity(errors.PhaseEngine, "module", len(buf))
	}
	copy(buf, raw)
	if st := i.SetBytecodeLen(uint32(len(raw))); st != vireo.StatusOK {
		return errors.InvalidInput(errors.PhaseEngine, "guest rejected bytecode length: "+st.String())
	}
	return nil
}

func (i *Instance) Init(ctx context.Context) vireo.Status {
	i.stack[0] = 0
	if err := i.initFn.CallWithStack(ctx, i.stack[:1]); err != nil {
		Logger().Warn("guest init trapped", zap.Error(err))
		return vireo.StatusInternal
	}
	return vireo.Status(uint32(i.stack[0]))
}

func (i *Instance) Frame(ctx context.Context, time float32, width, height uint32) vireo.Status {
	i.stack[0] = api.EncodeF32(time)
	i.stack[1] = uint64(width)
	i.stack[2] = uint64(height)
	if err := i.frameFn.CallWithStack(ctx, i.stack[:3]); err != nil {
		Logger().Warn("guest frame trapped", zap.Error(err))
		return vireo.StatusInternal
	}
	return vireo.Status(uint32(i.stack[0]))
}

func (i *Instance) CommandPtr() uint32 {
	return i.call0(context.Background(), i.cmdPtrFn, exportCommandPtr)
}

func (i *Instance) CommandLen() uint32 {
	return i.call0(context.Background(), i.cmdLenFn, exportCommandLen)
}

func (i *Instance) FrameCounter() uint32 {
	return i.call0(context.Background(), i.frameCtrFn, exportFrameCounter)
}

// Memory returns a bounds-checked view of guest linear memory.
func (i *Instance) Memory() vireo.Memory {
	return guestMemory{mem: i.mod.Memory()}
}

type guestMemory struct {
	mem api.Memory
}

func (m guestMemory) Size() uint32 { return m.mem.Size() }

func (m guestMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseEngine, []string{"memory"}, int(offset), int(length))
	}
	return data, nil
}

func (m guestMemory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m guestMemory) ReadU16(offset uint32) (uint16, error) {
	data, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

func (m guestMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseEngine, []string{"memory"}, int(offset), 4)
	}
	return v, nil
}

func (m guestMemory) ReadF32(offset uint32) (float32, error) {
	v, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}
