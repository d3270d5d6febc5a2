package bridge

import (
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/handle"
)

// EnableWave resumes tracing for h. It does nothing when h was created
// without a wave path.
func (b *Bridge) EnableWave(h handle.Handle) error {
	s, err := b.acquire(h, simerrors.PhaseWave)
	if err != nil {
		return err
	}
	defer b.release(s)
	if s.wave != nil {
		s.wave.Enable()
	}
	return nil
}

// DisableWave pauses tracing for h and flushes the records written so
// far. It does nothing when h was created without a wave path.
func (b *Bridge) DisableWave(h handle.Handle) error {
	s, err := b.acquire(h, simerrors.PhaseWave)
	if err != nil {
		return err
	}
	defer b.release(s)
	if s.wave == nil {
		return nil
	}
	return annotate(s.wave.Disable(), h)
}

// WaveEnabled reports whether h is currently tracing.
func (b *Bridge) WaveEnabled(h handle.Handle) (bool, error) {
	s, err := b.acquire(h, simerrors.PhaseWave)
	if err != nil {
		return false, err
	}
	defer b.release(s)
	return s.wave != nil && s.wave.Enabled(), nil
}
