package gosim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

var (
	_ engine.Loader     = (*Registry)(nil)
	_ engine.Model      = (*Model)(nil)
	_ engine.Instance   = (*Instance)(nil)
	_ engine.Randomizer = (*Instance)(nil)
)

// Model wraps a registered design.
type Model struct {
	design *Design
}

func (m *Model) Name() string                { return m.design.Name }
func (m *Model) Layout() signal.Layout       { return m.design.Signals }
func (m *Model) Precision() int              { return m.design.Precision }
func (m *Model) Close(context.Context) error { return nil }

// Instantiate mounts the design on fresh storage.
func (m *Model) Instantiate(_ context.Context, seed uint64) (inst engine.Instance, err error) {
	st := newState(m.design.Signals, seed)

	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fault(simerrors.PhaseLifecycle, m.design.Name+" mount", r)
		}
	}()
	comp := m.design.Mount(st)

	engine.Logger().Debug("mounted go design",
		zap.String("model", m.design.Name),
		zap.Uint64("seed", seed))
	return &Instance{name: m.design.Name, state: st, comp: comp}, nil
}

// Instance runs one mounted design.
type Instance struct {
	comp   Component
	state  *State
	name   string
	closed bool
}

// Eval runs the design's component. A panic inside the design is reported
// as a native fault.
func (i *Instance) Eval(context.Context) (finish bool, err error) {
	if i.closed {
		return false, simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	defer func() {
		if r := recover(); r != nil {
			finish, err = false, fault(simerrors.PhaseStep, i.name+" eval", r)
		}
	}()
	return i.comp(i.state), nil
}

// Sleep advances time. It fails without side effects on overflow.
func (i *Instance) Sleep(_ context.Context, cycles uint64) error {
	if i.closed {
		return simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	if !i.state.advance(cycles) {
		return simerrors.Overflow(simerrors.PhaseStep, cycles, "simulated time")
	}
	return nil
}

func (i *Instance) Time(context.Context) (uint64, error) {
	if i.closed {
		return 0, simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	return i.state.time, nil
}

func (i *Instance) Read(_ context.Context, id signal.ID, index uint32, dst []byte) error {
	if err := i.check(id, index, len(dst)); err != nil {
		return err
	}
	copy(dst, i.state.Word(id, index))
	return nil
}

func (i *Instance) Write(_ context.Context, id signal.ID, index uint32, src []byte) error {
	if err := i.check(id, index, len(src)); err != nil {
		return err
	}
	word := i.state.Word(id, index)
	copy(word, src)
	signal.Normalize(word, i.state.layout[id].Width)
	i.state.defined[id][index] = true
	return nil
}

// Randomize fills every signal word that neither the design nor the host
// has written yet. Words already determined keep their value.
func (i *Instance) Randomize(_ context.Context, seed uint64) error {
	if i.closed {
		return simerrors.Closed(simerrors.PhaseStep, "instance")
	}
	n := i.state.randomize(seed)
	engine.Logger().Debug("randomized go design",
		zap.String("model", i.name),
		zap.Uint64("seed", seed),
		zap.Int("words", n))
	return nil
}

func (i *Instance) Close(context.Context) error {
	i.closed = true
	return nil
}

func (i *Instance) check(id signal.ID, index uint32, n int) error {
	if i.closed {
		return simerrors.Closed(simerrors.PhaseAccess, "instance")
	}
	_, err := engine.CheckAccess(i.state.layout, id, index, n)
	return err
}

func fault(phase simerrors.Phase, op string, r any) error {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	return simerrors.Native(phase, op, cause)
}
