package bridge

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/sim-bridge/engine"
	"github.com/wippyai/sim-bridge/signal"
	"github.com/wippyai/sim-bridge/wave"
)

// session is the state behind one handle. It is owned exclusively by the
// handle; inUse detects overlapping calls on the same handle.
type session struct {
	model  engine.Model
	inst   engine.Instance
	wave   *wave.Writer
	layout signal.Layout
	buf    []byte
	inUse  atomic.Bool
}

// scratch returns a reusable buffer of n bytes.
func (s *session) scratch(n int) []byte {
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	return s.buf[:n]
}

// close releases the wave file first so the trace is complete even when
// the engine fails to shut down.
func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.wave != nil {
		errs = append(errs, s.wave.Close())
	}
	errs = append(errs, s.inst.Close(ctx))
	return errors.Join(errs...)
}

// Drop is called by the handle table for sessions still live when the
// bridge is closed.
func (s *session) Drop() {
	if err := s.close(context.Background()); err != nil {
		Logger().Warn("release session on close", zap.Error(err))
	}
}
