package wasmsim

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

// Instance is one instantiated simulation module. It owns its linear
// memory exclusively and is NOT thread-safe.
type Instance struct {
	mod     api.Module
	mem     api.Memory
	eval    api.Function
	sleep   api.Function
	time    api.Function
	rand    api.Function // nil when the model has no sim_randomize
	layout  signal.Layout
	offsets []uint32
	closed  bool
}

// Eval calls sim_eval and reports a non-zero result as a finish request.
func (i *Instance) Eval(ctx context.Context) (bool, error) {
	if i.closed {
		return false, simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	res, err := i.eval.Call(ctx)
	if err != nil {
		return false, simerrors.Native(simerrors.PhaseStep, ExportEval, err)
	}
	return uint32(res[0]) != 0, nil
}

// Sleep calls sim_sleep.
func (i *Instance) Sleep(ctx context.Context, cycles uint64) error {
	if i.closed {
		return simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	if _, err := i.sleep.Call(ctx, cycles); err != nil {
		return simerrors.Native(simerrors.PhaseStep, ExportSleep, err)
	}
	return nil
}

// Time calls sim_time.
func (i *Instance) Time(ctx context.Context) (uint64, error) {
	if i.closed {
		return 0, simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	res, err := i.time.Call(ctx)
	if err != nil {
		return 0, simerrors.Native(simerrors.PhaseStep, ExportTime, err)
	}
	return res[0], nil
}

// Randomize calls sim_randomize. Models without the export report
// unsupported.
func (i *Instance) Randomize(ctx context.Context, seed uint64) error {
	if i.closed {
		return simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	if i.rand == nil {
		return simerrors.Unsupported(simerrors.PhaseStep, "model does not export "+ExportRandomize)
	}
	if _, err := i.rand.Call(ctx, seed); err != nil {
		return simerrors.Native(simerrors.PhaseStep, ExportRandomize, err)
	}
	return nil
}

// Read copies a signal word out of linear memory.
func (i *Instance) Read(_ context.Context, id signal.ID, index uint32, dst []byte) error {
	off, err := i.locate(id, index, len(dst))
	if err != nil {
		return err
	}
	data, ok := i.mem.Read(off, uint32(len(dst)))
	if !ok {
		return simerrors.New(simerrors.PhaseAccess, simerrors.KindOutOfBounds).
			Signal(uint32(id)).
			Detail("read [%#x, +%d) outside linear memory", off, len(dst)).
			Build()
	}
	copy(dst, data)
	return nil
}

// Write stores a signal word into linear memory.
func (i *Instance) Write(_ context.Context, id signal.ID, index uint32, src []byte) error {
	off, err := i.locate(id, index, len(src))
	if err != nil {
		return err
	}
	if !i.mem.Write(off, src) {
		return simerrors.New(simerrors.PhaseAccess, simerrors.KindOutOfBounds).
			Signal(uint32(id)).
			Detail("write [%#x, +%d) outside linear memory", off, len(src)).
			Build()
	}
	return nil
}

// Close releases the module instance and its memory.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.mod.Close(ctx)
}

func (i *Instance) locate(id signal.ID, index uint32, n int) (uint32, error) {
	if i.closed {
		return 0, simerrors.Closed(simerrors.PhaseAccess, "instance")
	}
	info, err := engine.CheckAccess(i.layout, id, index, n)
	if err != nil {
		return 0, err
	}
	off, ok := signal.WordOffset(i.offsets[id], info, index)
	if !ok {
		return 0, simerrors.OutOfBounds(simerrors.PhaseAccess, uint32(id), index, info.Depth)
	}
	return off, nil
}
