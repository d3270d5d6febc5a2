package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/sim-bridge/engine"
	"github.com/wippyai/sim-bridge/engine/gosim"
	"github.com/wippyai/sim-bridge/engine/wasmsim"
	"github.com/wippyai/sim-bridge/engine/wasmsim/wasmtest"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/handle"
	"github.com/wippyai/sim-bridge/signal"
)

func newBridge(t *testing.T, loader engine.Loader) *Bridge {
	t.Helper()
	if loader == nil {
		loader = gosim.Default()
	}
	b := New(loader, nil)
	t.Cleanup(func() { b.Close(context.Background()) })
	return b
}

func newHandle(t *testing.T, b *Bridge, model string, seed uint64) handle.Handle {
	t.Helper()
	h, err := b.NewHandle(context.Background(), model, "", seed)
	if err != nil {
		t.Fatalf("NewHandle(%s): %v", model, err)
	}
	return h
}

// clock drives one rising edge on clk.
func clock(t *testing.T, b *Bridge, h handle.Handle, clk signal.ID) bool {
	t.Helper()
	ctx := context.Background()
	if err := b.SetU64(ctx, h, clk, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Eval(ctx, h); err != nil {
		t.Fatal(err)
	}
	if err := b.SetU64(ctx, h, clk, 1); err != nil {
		t.Fatal(err)
	}
	finish, err := b.Eval(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	return finish
}

type countingLoader struct {
	engine.Loader
	mu    sync.Mutex
	loads int
}

func (l *countingLoader) Load(ctx context.Context, name string) (engine.Model, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
	return l.Loader.Load(ctx, name)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	h := newHandle(t, b, "counter", 0)
	if h.IsZero() {
		t.Fatal("NewHandle returned the zero handle")
	}
	if b.Len() != 1 {
		t.Fatalf("Len() = %d", b.Len())
	}

	p, err := b.TimePrecision(h)
	if err != nil || p != -12 {
		t.Fatalf("TimePrecision() = %d, %v", p, err)
	}
	if name, _ := b.Model(h); name != "counter" {
		t.Fatalf("Model() = %q", name)
	}

	if err := b.DeleteHandle(ctx, h); err != nil {
		t.Fatalf("DeleteHandle: %v", err)
	}
	if err := b.DeleteHandle(ctx, h); !errors.Is(err, simerrors.ErrInvalidHandle) {
		t.Fatalf("second DeleteHandle = %v", err)
	}
	if _, err := b.Eval(ctx, h); !errors.Is(err, simerrors.ErrInvalidHandle) {
		t.Fatalf("Eval after delete = %v", err)
	}
	if _, err := b.TimePrecision(handle.Handle{}); !errors.Is(err, simerrors.ErrInvalidHandle) {
		t.Fatalf("TimePrecision(zero) = %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() after delete = %d", b.Len())
	}
}

func TestDeletedHandleRejected(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	h := newHandle(t, b, "ram", 0)
	if err := b.DeleteHandle(ctx, h); err != nil {
		t.Fatal(err)
	}

	word := make([]byte, 4)
	wide := make([]byte, 16)
	ops := []struct {
		name string
		call func() error
	}{
		{"TimePrecision", func() error { _, err := b.TimePrecision(h); return err }},
		{"Time", func() error { _, err := b.Time(ctx, h); return err }},
		{"Signals", func() error { _, err := b.Signals(h); return err }},
		{"Model", func() error { _, err := b.Model(h); return err }},
		{"Eval", func() error { _, err := b.Eval(ctx, h); return err }},
		{"Sleep", func() error { return b.Sleep(ctx, h, 1) }},
		{"Randomize", func() error { return b.Randomize(ctx, h, 1) }},
		{"GetU64", func() error { _, err := b.GetU64(ctx, h, gosim.RAMAddr); return err }},
		{"SetU64", func() error { return b.SetU64(ctx, h, gosim.RAMAddr, 1) }},
		{"GetAU8", func() error { _, err := b.GetAU8(ctx, h, gosim.RAMWideIn, wide); return err }},
		{"SetAU8", func() error { return b.SetAU8(ctx, h, gosim.RAMWideIn, wide) }},
		{"GetU64Mem", func() error { _, err := b.GetU64Mem(ctx, h, gosim.RAMMem, 0); return err }},
		{"SetU64Mem", func() error { return b.SetU64Mem(ctx, h, gosim.RAMMem, 1, 0) }},
		{"GetAU8Mem", func() error { _, err := b.GetAU8Mem(ctx, h, gosim.RAMMem, word, 0); return err }},
		{"SetAU8Mem", func() error { return b.SetAU8Mem(ctx, h, gosim.RAMMem, word, 0) }},
		{"EnableWave", func() error { return b.EnableWave(h) }},
		{"DisableWave", func() error { return b.DisableWave(h) }},
		{"WaveEnabled", func() error { _, err := b.WaveEnabled(h); return err }},
		{"DeleteHandle", func() error { return b.DeleteHandle(ctx, h) }},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			if err := op.call(); !errors.Is(err, simerrors.ErrInvalidHandle) {
				t.Fatalf("%s after delete = %v, want invalid_handle", op.name, err)
			}
		})
	}
}

func TestNewHandle_StaleAfterReuse(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	h1 := newHandle(t, b, "counter", 0)
	if err := b.DeleteHandle(ctx, h1); err != nil {
		t.Fatal(err)
	}
	h2 := newHandle(t, b, "counter", 0)
	if h1 == h2 {
		t.Fatal("reused slot produced an identical handle")
	}
	if _, err := b.GetU64(ctx, h1, gosim.CounterCount); !errors.Is(err, simerrors.ErrInvalidHandle) {
		t.Fatalf("stale handle accepted: %v", err)
	}
}

func TestNewHandle_Errors(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	h, err := b.NewHandle(ctx, "no-such-model", "", 0)
	if !errors.Is(err, simerrors.ErrNotFound) || !h.IsZero() {
		t.Fatalf("NewHandle(unknown) = %v, %v", h, err)
	}

	bad := filepath.Join(t.TempDir(), "missing", "dir", "trace.vcd")
	if _, err := b.NewHandle(ctx, "counter", bad, 0); err == nil {
		t.Fatal("NewHandle with unwritable wave path should fail")
	}
	if b.Len() != 0 {
		t.Fatalf("failed NewHandle leaked %d handles", b.Len())
	}
}

func TestModelCache(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{Loader: gosim.Default()}
	b := newBridge(t, loader)

	for i := 0; i < 3; i++ {
		newHandle(t, b, "ram", uint64(i))
	}
	if _, err := b.NewHandle(ctx, "missing", "", 0); err == nil {
		t.Fatal("expected error")
	}
	if _, err := b.NewHandle(ctx, "missing", "", 0); err == nil {
		t.Fatal("expected error")
	}
	if loader.loads != 3 {
		t.Fatalf("loader called %d times, want 3 (1 hit + 2 misses)", loader.loads)
	}
}

func TestCounterFlow(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)
	h := newHandle(t, b, "counter", 0)

	b.SetU64(ctx, h, gosim.CounterReset, 1)
	clock(t, b, h, gosim.CounterClk)
	b.SetU64(ctx, h, gosim.CounterReset, 0)
	b.SetU64(ctx, h, gosim.CounterEnable, 1)

	for want := uint64(1); want <= 15; want++ {
		if err := b.Sleep(ctx, h, 5); err != nil {
			t.Fatal(err)
		}
		clock(t, b, h, gosim.CounterClk)
		got, err := b.GetU64(ctx, h, gosim.CounterCount)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}

	now, err := b.Time(ctx, h)
	if err != nil || now != 75 {
		t.Fatalf("Time() = %d, %v", now, err)
	}
}

func TestHandlesAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)
	a := newHandle(t, b, "counter", 0)
	c := newHandle(t, b, "counter", 0)

	if err := b.SetU64(ctx, a, gosim.CounterCount, 9); err != nil {
		t.Fatal(err)
	}
	if err := b.Sleep(ctx, a, 100); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.GetU64(ctx, c, gosim.CounterCount); v != 0 {
		t.Fatalf("handle c sees count %d written through a", v)
	}
	if now, _ := b.Time(ctx, c); now != 0 {
		t.Fatalf("handle c time = %d", now)
	}
}

func TestSeedDeterminism(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	trace := func(seed uint64) []uint64 {
		h := newHandle(t, b, "lfsr", seed)
		defer b.DeleteHandle(ctx, h)
		var out []uint64
		for i := 0; i < 32; i++ {
			clock(t, b, h, gosim.LFSRClk)
			v, err := b.GetU64(ctx, h, gosim.LFSROut)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, v)
		}
		return out
	}

	x, y, z := trace(42), trace(42), trace(43)
	for i := range x {
		if x[i] != y[i] {
			t.Fatalf("same seed diverged at step %d", i)
		}
	}
	same := true
	for i := range x {
		if x[i] != z[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical traces")
	}
}

// plainInstance hides every optional engine capability.
type plainInstance struct{ engine.Instance }

type plainModel struct{ engine.Model }

func (m plainModel) Instantiate(ctx context.Context, seed uint64) (engine.Instance, error) {
	inst, err := m.Model.Instantiate(ctx, seed)
	if err != nil {
		return nil, err
	}
	return plainInstance{inst}, nil
}

func TestRandomize(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	counts := map[uint64]uint64{1: 11, 2: 4}
	for seed, want := range counts {
		h := newHandle(t, b, "counter", 0)
		if err := b.Randomize(ctx, h, seed); err != nil {
			t.Fatalf("Randomize(%d): %v", seed, err)
		}
		if got, _ := b.GetU64(ctx, h, gosim.CounterCount); got != want {
			t.Errorf("count after Randomize(%d) = %d, want %d", seed, got, want)
		}
	}

	loader := engine.LoaderFunc(func(ctx context.Context, name string) (engine.Model, error) {
		m, err := gosim.Default().Load(ctx, name)
		if err != nil {
			return nil, err
		}
		return plainModel{m}, nil
	})
	plain := newBridge(t, loader)
	h := newHandle(t, plain, "counter", 0)
	err := plain.Randomize(ctx, h, 1)
	if !errors.Is(err, simerrors.ErrUnsupported) {
		t.Fatalf("Randomize on a plain engine = %v, want unsupported", err)
	}
	var se *simerrors.Error
	if !errors.As(err, &se) || se.Handle != h.String() {
		t.Fatalf("error does not name the handle: %v", err)
	}
}

func TestEval_Finish(t *testing.T) {
	b := newBridge(t, nil)
	h := newHandle(t, b, "lfsr", 1)

	for i := 1; i < gosim.LFSRPeriod; i++ {
		if clock(t, b, h, gosim.LFSRClk) {
			t.Fatalf("finish after %d edges", i)
		}
	}
	if !clock(t, b, h, gosim.LFSRClk) {
		t.Fatal("finish flag not surfaced")
	}
}

func TestSleep(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)
	h := newHandle(t, b, "counter", 0)

	for _, n := range []uint64{0, 3, 0, 4} {
		if err := b.Sleep(ctx, h, n); err != nil {
			t.Fatalf("Sleep(%d): %v", n, err)
		}
	}
	if now, _ := b.Time(ctx, h); now != 7 {
		t.Fatalf("Time() = %d, want 7", now)
	}

	err := b.Sleep(ctx, h, ^uint64(0))
	if !errors.Is(err, &simerrors.Error{Kind: simerrors.KindOverflow}) {
		t.Fatalf("overflowing Sleep = %v", err)
	}
	if now, _ := b.Time(ctx, h); now != 7 {
		t.Fatalf("Time() after rejected sleep = %d", now)
	}
}

// blockingInstance parks inside Eval until released.
type blockingInstance struct {
	engine.Instance
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
}

func (i *blockingInstance) Eval(context.Context) (bool, error) {
	close(i.entered)
	<-i.release
	return false, nil
}

func (i *blockingInstance) Close(ctx context.Context) error {
	i.closed.Store(true)
	return i.Instance.Close(ctx)
}

type blockingModel struct {
	engine.Model
	inst *blockingInstance
}

func (m *blockingModel) Instantiate(context.Context, uint64) (engine.Instance, error) {
	return m.inst, nil
}

// newBlockingBridge returns a bridge with one handle whose Eval blocks.
func newBlockingBridge(t *testing.T) (*Bridge, handle.Handle, *blockingInstance) {
	t.Helper()
	ctx := context.Background()
	counter, err := gosim.Default().Load(ctx, "counter")
	if err != nil {
		t.Fatal(err)
	}
	base, err := counter.Instantiate(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	inst := &blockingInstance{Instance: base, entered: make(chan struct{}), release: make(chan struct{})}
	loader := engine.LoaderFunc(func(context.Context, string) (engine.Model, error) {
		return &blockingModel{Model: counter, inst: inst}, nil
	})

	b := newBridge(t, loader)
	return b, newHandle(t, b, "blocking", 0), inst
}

func TestConcurrentUseDetected(t *testing.T) {
	ctx := context.Background()
	b, h, inst := newBlockingBridge(t)

	done := make(chan error)
	go func() {
		_, err := b.Eval(ctx, h)
		done <- err
	}()
	<-inst.entered

	if _, err := b.GetU64(ctx, h, gosim.CounterCount); !errors.Is(err, simerrors.ErrConcurrentUse) {
		t.Fatalf("overlapping call = %v, want concurrent_use", err)
	}
	if err := b.DeleteHandle(ctx, h); !errors.Is(err, simerrors.ErrConcurrentUse) {
		t.Fatalf("overlapping delete = %v, want concurrent_use", err)
	}

	close(inst.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetU64(ctx, h, gosim.CounterCount); err != nil {
		t.Fatalf("call after release: %v", err)
	}
}

func TestCloseWaitsForCallInFlight(t *testing.T) {
	ctx := context.Background()
	b, h, inst := newBlockingBridge(t)

	evalDone := make(chan error)
	go func() {
		_, err := b.Eval(ctx, h)
		evalDone <- err
	}()
	<-inst.entered

	closeDone := make(chan error)
	go func() { closeDone <- b.Close(ctx) }()

	select {
	case err := <-closeDone:
		t.Fatalf("Close returned %v while Eval was running", err)
	case <-time.After(50 * time.Millisecond):
	}
	if inst.closed.Load() {
		t.Fatal("instance closed while Eval was running")
	}

	close(inst.release)
	if err := <-evalDone; err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if err := <-closeDone; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !inst.closed.Load() {
		t.Fatal("Close did not release the instance")
	}
	if _, err := b.Eval(ctx, h); !errors.Is(err, simerrors.ErrClosed) {
		t.Fatalf("Eval after Close = %v", err)
	}
}

func TestClose_RejectsModelLoad(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{Loader: gosim.Default()}
	b := newBridge(t, loader)

	if err := b.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.model(ctx, "counter"); !errors.Is(err, simerrors.ErrClosed) {
		t.Fatalf("model() after Close = %v", err)
	}
	if loader.loads != 0 || len(b.models) != 0 {
		t.Fatalf("model loaded after Close: loads=%d cached=%d", loader.loads, len(b.models))
	}
}

func TestDistinctHandlesConcurrently(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := b.NewHandle(ctx, "counter", "", 0)
			if err != nil {
				errs <- err
				return
			}
			b.SetU64(ctx, h, gosim.CounterEnable, 1)
			for i := 0; i < 10; i++ {
				b.SetU64(ctx, h, gosim.CounterClk, 0)
				b.Eval(ctx, h)
				b.SetU64(ctx, h, gosim.CounterClk, 1)
				b.Eval(ctx, h)
			}
			v, err := b.GetU64(ctx, h, gosim.CounterCount)
			if err == nil && v != 10 {
				err = errors.New("unexpected count")
			}
			if err == nil {
				err = b.DeleteHandle(ctx, h)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d", b.Len())
	}
}

func TestNativeFault(t *testing.T) {
	ctx := context.Background()
	reg := gosim.NewRegistry()
	err := reg.Register(&gosim.Design{
		Name:    "faulty",
		Signals: signal.Layout{{ID: 0, Width: 1}},
		Mount: func(*gosim.State) gosim.Component {
			return func(st *gosim.State) bool {
				panic("stuck at X")
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	b := newBridge(t, reg)
	h := newHandle(t, b, "faulty", 0)

	_, err = b.Eval(ctx, h)
	if !errors.Is(err, simerrors.ErrNativeFault) {
		t.Fatalf("Eval = %v, want native_fault", err)
	}
	var se *simerrors.Error
	if !errors.As(err, &se) || se.Handle != h.String() {
		t.Fatalf("fault does not name the handle: %v", err)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	b := New(gosim.Default(), nil)
	path := filepath.Join(t.TempDir(), "trace.vcd")

	h, err := b.NewHandle(ctx, "counter", path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := b.Eval(ctx, h); !errors.Is(err, simerrors.ErrClosed) {
		t.Fatalf("Eval after Close = %v", err)
	}
	if _, err := b.NewHandle(ctx, "counter", "", 0); !errors.Is(err, simerrors.ErrClosed) {
		t.Fatalf("NewHandle after Close = %v", err)
	}

	// the wave file lock was released
	b2 := newBridge(t, nil)
	if _, err := b2.NewHandle(ctx, "counter", path, 0); err != nil {
		t.Fatalf("wave path still locked: %v", err)
	}
}

func TestWasmModel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "acc.wasm"), wasmtest.Accumulator(), 0o644); err != nil {
		t.Fatal(err)
	}
	driver := wasmsim.NewDriver(ctx, nil)
	defer driver.Close(ctx)

	b := newBridge(t, engine.Chain(gosim.Default(), driver.Store(dir)))
	h := newHandle(t, b, "acc", 0x0123456789ABCDEF)

	if p, _ := b.TimePrecision(h); p != wasmtest.Precision {
		t.Fatalf("TimePrecision() = %d", p)
	}
	if seed, _ := b.GetU64(ctx, h, wasmtest.SigSeed); seed != 0x0123456789ABCDEF {
		t.Fatalf("seed signal = %#x", seed)
	}

	b.SetU64(ctx, h, wasmtest.SigIn, 0x1FF) // truncated to 0xFF
	for i := 0; i < 2; i++ {
		if _, err := b.Eval(ctx, h); err != nil {
			t.Fatal(err)
		}
	}
	if acc, _ := b.GetU64(ctx, h, wasmtest.SigAcc); acc != 0x1FE {
		t.Fatalf("acc = %#x, want 0x1fe", acc)
	}

	b.SetU64(ctx, h, wasmtest.SigIn, wasmtest.FinishValue)
	finish, err := b.Eval(ctx, h)
	if err != nil || !finish {
		t.Fatalf("Eval() = %v, %v; want finish", finish, err)
	}

	// gosim designs are still reachable through the chain
	newHandle(t, b, "counter", 0)
}
