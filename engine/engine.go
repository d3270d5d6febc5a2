package engine

import (
	"context"

	"github.com/wippyai/sim-bridge/signal"
)

// Loader resolves a model name to a compiled model.
// A name the loader does not know yields an error of kind not_found.
type Loader interface {
	Load(ctx context.Context, name string) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, name string) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, name string) (Model, error) {
	return f(ctx, name)
}

// Model is one compiled design. A model may be instantiated any number of
// times; instances share nothing mutable.
type Model interface {
	// Name returns the key the model was loaded under.
	Name() string

	// Layout returns the signal table. The result must not be modified.
	Layout() signal.Layout

	// Precision returns the time unit exponent (-12 means picoseconds).
	Precision() int

	// Instantiate creates a fresh instance whose randomized initial state
	// is derived from seed only.
	Instantiate(ctx context.Context, seed uint64) (Instance, error)

	// Close releases compiled code. Live instances must be closed first.
	Close(ctx context.Context) error
}

// Instance is one running simulation.
//
// Instances are not safe for concurrent use. Read and Write receive
// buffers of exactly Layout()[id].Bytes() bytes, little-endian; callers
// validate id, index and length beforehand, but instances still report
// bounds violations as errors rather than faulting.
type Instance interface {
	// Eval settles the design at the current time and reports whether the
	// design requested termination.
	Eval(ctx context.Context) (bool, error)

	// Sleep advances simulated time without evaluating.
	Sleep(ctx context.Context, cycles uint64) error

	// Time returns the current simulated time.
	Time(ctx context.Context) (uint64, error)

	// Read copies word index of signal id into dst.
	Read(ctx context.Context, id signal.ID, index uint32, dst []byte) error

	// Write stores src into word index of signal id.
	Write(ctx context.Context, id signal.ID, index uint32, src []byte) error

	// Close releases the instance.
	Close(ctx context.Context) error
}

// Randomizer is implemented by instances that can fill state nobody has
// assigned yet with pseudo-random values derived from a seed.
type Randomizer interface {
	Randomize(ctx context.Context, seed uint64) error
}
