// Package bridge controls simulation instances through opaque handles.
//
// A Bridge resolves model names through an engine.Loader, keeps every
// compiled model cached for its lifetime and hands out one handle per
// instance:
//
//	b := bridge.New(engine.Chain(gosim.Default(), driver.Store("models")), nil)
//	defer b.Close(ctx)
//
//	h, err := b.NewHandle(ctx, "counter", "counter.vcd", seed)
//	for {
//	    b.SetU64(ctx, h, clk, 1)
//	    b.Sleep(ctx, h, 5)
//	    done, _ := b.Eval(ctx, h)
//	    count, _ := b.GetU64(ctx, h, countID)
//	    if done {
//	        break
//	    }
//	}
//	b.DeleteHandle(ctx, h)
//
// # Signal Access
//
// Signals are addressed by the integer id of the model layout. Values
// cross the bridge little-endian:
//
//	GetU64 / SetU64         plain signals up to 64 bits
//	GetAU8 / SetAU8         plain signals of any width, ceil(width/8) bytes
//	*Mem variants           one word of a memory array, by index
//
// Scalar accessors reject signals wider than 64 bits, plain accessors
// reject memory arrays and indexed accessors reject plain signals. Writes
// drop bits above the signal width.
//
// # Waveforms
//
// A handle created with a wave path traces one VCD record per Eval while
// tracing is enabled. DisableWave flushes the file; EnableWave resumes
// appending to it.
//
// # Errors
//
// Every failure is a *errors.Error; match kinds with errors.Is against the
// sentinels of package errors:
//
//	if errors.Is(err, simerrors.ErrInvalidHandle) { ... }
//
// # Thread Safety
//
// The handle table is safe for concurrent use, so distinct handles may be
// driven in parallel. Calls on the same handle must not overlap; the
// bridge detects overlap and fails the later call with kind
// concurrent_use. Close waits for calls in flight before releasing
// anything.
//
// # Randomization
//
// Randomize fills every signal word that nobody has written yet with
// values derived from a seed, much like an X-state randomization pass.
// Engines that cannot do this report kind unsupported.
package bridge
