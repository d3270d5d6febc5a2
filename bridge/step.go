package bridge

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/handle"
	"github.com/wippyai/sim-bridge/signal"
)

// Eval settles the design behind h at the current time and returns the
// design's termination request. With tracing enabled exactly one wave
// record is appended.
func (b *Bridge) Eval(ctx context.Context, h handle.Handle) (bool, error) {
	s, err := b.acquire(h, simerrors.PhaseStep)
	if err != nil {
		return false, err
	}
	defer b.release(s)

	finish, err := s.inst.Eval(ctx)
	if err != nil {
		return false, annotate(err, h)
	}

	if s.wave != nil && s.wave.Enabled() {
		now, err := s.inst.Time(ctx)
		if err != nil {
			return finish, annotate(err, h)
		}
		sample := func(id signal.ID, dst []byte) error {
			return s.inst.Read(ctx, id, 0, dst)
		}
		if err := s.wave.Record(now, sample); err != nil {
			return finish, annotate(err, h)
		}
	}

	if finish {
		Logger().Debug("design requested finish", zap.Stringer("handle", h))
	}
	return finish, nil
}

// Sleep advances the simulated time of h by cycles without evaluating.
// Sleep(0) does nothing. A sleep that would overflow the time counter is
// rejected and leaves the time unchanged.
func (b *Bridge) Sleep(ctx context.Context, h handle.Handle, cycles uint64) error {
	s, err := b.acquire(h, simerrors.PhaseStep)
	if err != nil {
		return err
	}
	defer b.release(s)

	if cycles == 0 {
		return nil
	}
	now, err := s.inst.Time(ctx)
	if err != nil {
		return annotate(err, h)
	}
	if cycles > math.MaxUint64-now {
		return simerrors.New(simerrors.PhaseStep, simerrors.KindOverflow).
			Handle(h).
			Value(cycles).
			Detail("sleep of %d cycles at time %d overflows the time counter", cycles, now).
			Build()
	}
	return annotate(s.inst.Sleep(ctx, cycles), h)
}

// Randomize fills every part of the state of h that has not been assigned
// yet with values derived from seed. Values already written by the host or
// the design are kept. Engines without randomization report unsupported.
func (b *Bridge) Randomize(ctx context.Context, h handle.Handle, seed uint64) error {
	s, err := b.acquire(h, simerrors.PhaseStep)
	if err != nil {
		return err
	}
	defer b.release(s)

	r, ok := s.inst.(engine.Randomizer)
	if !ok {
		return simerrors.New(simerrors.PhaseStep, simerrors.KindUnsupported).
			Handle(h).
			Detail("model %s cannot randomize", s.model.Name()).
			Build()
	}
	return annotate(r.Randomize(ctx, seed), h)
}
