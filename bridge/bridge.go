package bridge

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/handle"
	"github.com/wippyai/sim-bridge/signal"
	"github.com/wippyai/sim-bridge/wave"
)

// Config holds configuration for bridge creation
type Config struct {
	// WaveDir resolves relative wave paths. Empty means the working
	// directory.
	WaveDir string
}

// Bridge owns every live simulation handle and the models they were
// created from.
//
// Distinct handles may be driven from different goroutines. Calls on one
// handle must be serialized by the caller; overlapping calls fail with
// kind concurrent_use.
type Bridge struct {
	loader  engine.Loader
	handles *handle.Table[*session]
	models  map[string]engine.Model
	cfg     Config
	modelMu sync.Mutex
	// calls is held shared by every call in flight and exclusively by
	// Close.
	calls  sync.RWMutex
	closed atomic.Bool
}

// New creates a bridge resolving model names through loader. cfg may be
// nil.
func New(loader engine.Loader, cfg *Config) *Bridge {
	b := &Bridge{
		loader:  loader,
		handles: handle.NewTable[*session](),
		models:  make(map[string]engine.Model),
	}
	if cfg != nil {
		b.cfg = *cfg
	}
	b.handles.Subscribe(handle.ObserverFunc(func(e handle.Event) {
		s := e.Value.(*session)
		Logger().Debug("handle "+e.Type.String(),
			zap.Stringer("handle", e.Handle),
			zap.String("model", s.model.Name()))
	}))
	return b
}

// Subscribe registers an observer for handle creation and deletion.
func (b *Bridge) Subscribe(o handle.Observer) {
	b.handles.Subscribe(o)
}

// model returns the cached model for name, loading it on first use.
func (b *Bridge) model(ctx context.Context, name string) (engine.Model, error) {
	b.modelMu.Lock()
	defer b.modelMu.Unlock()

	if b.closed.Load() {
		return nil, simerrors.Closed(simerrors.PhaseLifecycle, "bridge")
	}
	if m, ok := b.models[name]; ok {
		return m, nil
	}
	m, err := b.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	b.models[name] = m
	Logger().Info("model loaded",
		zap.String("model", name),
		zap.Int("signals", len(m.Layout())),
		zap.Int("precision", m.Precision()))
	return m, nil
}

// NewHandle creates an instance of model seeded with seed. A non-empty
// wavePath opens a VCD trace there with tracing enabled. On failure no
// resource stays allocated.
func (b *Bridge) NewHandle(ctx context.Context, model, wavePath string, seed uint64) (handle.Handle, error) {
	b.calls.RLock()
	defer b.calls.RUnlock()
	if b.closed.Load() {
		return handle.Handle{}, simerrors.Closed(simerrors.PhaseLifecycle, "bridge")
	}

	m, err := b.model(ctx, model)
	if err != nil {
		return handle.Handle{}, err
	}

	inst, err := m.Instantiate(ctx, seed)
	if err != nil {
		return handle.Handle{}, err
	}
	s := &session{model: m, inst: inst, layout: m.Layout()}

	if wavePath != "" {
		if !filepath.IsAbs(wavePath) && b.cfg.WaveDir != "" {
			wavePath = filepath.Join(b.cfg.WaveDir, wavePath)
		}
		s.wave, err = wave.Open(wavePath, m.Name(), m.Precision(), s.layout)
		if err != nil {
			inst.Close(ctx)
			return handle.Handle{}, err
		}
	}

	h, err := b.handles.Insert(s)
	if err != nil {
		s.close(ctx)
		return handle.Handle{}, simerrors.New(simerrors.PhaseLifecycle, simerrors.KindAllocation).
			Detail("register handle").
			Cause(err).
			Build()
	}
	return h, nil
}

// DeleteHandle releases the instance and wave file behind h. h is invalid
// afterwards, including for a second DeleteHandle.
func (b *Bridge) DeleteHandle(ctx context.Context, h handle.Handle) error {
	s, err := b.acquire(h, simerrors.PhaseLifecycle)
	if err != nil {
		return err
	}
	defer b.calls.RUnlock()
	// the session stays marked in use so stale lookups racing with the
	// removal are refused
	if _, ok := b.handles.Remove(h); !ok {
		s.inUse.Store(false)
		return simerrors.InvalidHandle(simerrors.PhaseLifecycle, h)
	}
	if err := s.close(ctx); err != nil {
		return annotate(simerrors.Wrap(simerrors.PhaseLifecycle, simerrors.KindIO, err, "release"), h)
	}
	return nil
}

// TimePrecision returns the time unit of h as a power of ten seconds.
func (b *Bridge) TimePrecision(h handle.Handle) (int, error) {
	s, err := b.acquire(h, simerrors.PhaseLifecycle)
	if err != nil {
		return 0, err
	}
	defer b.release(s)
	return s.model.Precision(), nil
}

// Time returns the simulated time of h in units of its precision.
func (b *Bridge) Time(ctx context.Context, h handle.Handle) (uint64, error) {
	s, err := b.acquire(h, simerrors.PhaseStep)
	if err != nil {
		return 0, err
	}
	defer b.release(s)
	now, err := s.inst.Time(ctx)
	return now, annotate(err, h)
}

// Signals returns a copy of the signal table of h.
func (b *Bridge) Signals(h handle.Handle) (signal.Layout, error) {
	s, err := b.acquire(h, simerrors.PhaseAccess)
	if err != nil {
		return nil, err
	}
	defer b.release(s)
	return append(signal.Layout(nil), s.layout...), nil
}

// Model returns the name of the model behind h.
func (b *Bridge) Model(h handle.Handle) (string, error) {
	s, err := b.acquire(h, simerrors.PhaseLifecycle)
	if err != nil {
		return "", err
	}
	defer b.release(s)
	return s.model.Name(), nil
}

// Handles returns the live handles in slot order.
func (b *Bridge) Handles() []handle.Handle {
	return b.handles.Handles()
}

// Len returns the number of live handles.
func (b *Bridge) Len() int {
	return b.handles.Len()
}

// Close releases every live handle and every cached model. Calls already
// in flight run to completion first; the bridge rejects all calls made
// afterwards.
func (b *Bridge) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.calls.Lock()
	defer b.calls.Unlock()
	if n := b.handles.Len(); n > 0 {
		Logger().Warn("closing bridge with live handles", zap.Int("handles", n))
	}
	errs := []error{b.handles.Close()}

	b.modelMu.Lock()
	defer b.modelMu.Unlock()
	for name, m := range b.models {
		errs = append(errs, m.Close(ctx))
		delete(b.models, name)
	}
	return errors.Join(errs...)
}

// acquire resolves h and marks its session in use. Callers hand the
// session back with release when done.
func (b *Bridge) acquire(h handle.Handle, phase simerrors.Phase) (*session, error) {
	b.calls.RLock()
	s, err := b.lookup(h, phase)
	if err != nil {
		b.calls.RUnlock()
		return nil, err
	}
	return s, nil
}

func (b *Bridge) lookup(h handle.Handle, phase simerrors.Phase) (*session, error) {
	if b.closed.Load() {
		return nil, simerrors.Closed(phase, "bridge")
	}
	s, ok := b.handles.Get(h)
	if !ok {
		return nil, simerrors.InvalidHandle(phase, h)
	}
	if !s.inUse.CompareAndSwap(false, true) {
		if _, live := b.handles.Get(h); !live {
			return nil, simerrors.InvalidHandle(phase, h)
		}
		return nil, simerrors.New(phase, simerrors.KindConcurrentUse).
			Handle(h).
			Detail("handle is already in use by another call").
			Build()
	}
	return s, nil
}

func (b *Bridge) release(s *session) {
	s.inUse.Store(false)
	b.calls.RUnlock()
}

// annotate records h on bridge errors that do not name a handle yet.
func annotate(err error, h handle.Handle) error {
	e, ok := err.(*simerrors.Error)
	if !ok || e.Handle != "" {
		return err
	}
	c := *e
	c.Handle = h.String()
	return &c
}
