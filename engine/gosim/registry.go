package gosim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

// Design is a behavioral model.
type Design struct {
	// Mount creates the per-instance logic. It may initialize signals from
	// st.Seed().
	Mount     func(st *State) Component
	Name      string
	Signals   signal.Layout
	Precision int
}

// Registry maps design names to designs. It implements engine.Loader and
// is safe for concurrent use.
type Registry struct {
	designs map[string]*Design
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{designs: make(map[string]*Design)}
}

var std = NewRegistry()

// Default returns the registry holding the reference designs.
func Default() *Registry { return std }

// Register adds d to the default registry. It panics if d is invalid or
// its name is taken.
func Register(d *Design) {
	if err := std.Register(d); err != nil {
		panic(err)
	}
}

// Register adds a design.
func (r *Registry) Register(d *Design) error {
	if err := engine.ValidateName(d.Name); err != nil {
		return err
	}
	if d.Mount == nil {
		return simerrors.InvalidInput(simerrors.PhaseLoad, fmt.Sprintf("design %s has no Mount", d.Name))
	}
	if err := d.Signals.Validate(); err != nil {
		return simerrors.Wrap(simerrors.PhaseLoad, simerrors.KindInvalidData, err, "design "+d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.designs[d.Name]; dup {
		return simerrors.InvalidInput(simerrors.PhaseLoad, fmt.Sprintf("design %s registered twice", d.Name))
	}
	r.designs[d.Name] = d
	return nil
}

// Names returns the registered design names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.designs))
	for n := range r.designs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load returns the model of a registered design.
func (r *Registry) Load(_ context.Context, name string) (engine.Model, error) {
	r.mu.RLock()
	d, ok := r.designs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, simerrors.NotFound(simerrors.PhaseLoad, "model", name)
	}
	return &Model{design: d}, nil
}
