package handle

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle is an opaque reference to a value in a Table.
// It packs a 1-based slot index with the slot's generation; the zero
// Handle is always invalid.
type Handle struct {
	v uint64
}

func newHandle(slot, gen uint32) Handle {
	return Handle{v: uint64(gen)<<32 | uint64(slot)}
}

func (h Handle) slot() uint32 { return uint32(h.v) }
func (h Handle) gen() uint32  { return uint32(h.v >> 32) }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.v == 0 }

// Uint64 returns the raw token for transport across process boundaries.
func (h Handle) Uint64() uint64 { return h.v }

// FromUint64 rebuilds a Handle from a token returned by Uint64.
func FromUint64(v uint64) Handle { return Handle{v: v} }

// String formats the handle as "<slot>.<generation>".
func (h Handle) String() string {
	if h.IsZero() {
		return "invalid"
	}
	return strconv.FormatUint(uint64(h.slot()), 10) + "." + strconv.FormatUint(uint64(h.gen()), 10)
}

// Parse is the inverse of String.
func Parse(s string) (Handle, error) {
	slotStr, genStr, ok := strings.Cut(s, ".")
	if !ok {
		return Handle{}, fmt.Errorf("handle %q: expected <slot>.<generation>", s)
	}
	slot, err := strconv.ParseUint(slotStr, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("handle %q: slot: %w", s, err)
	}
	gen, err := strconv.ParseUint(genStr, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("handle %q: generation: %w", s, err)
	}
	if slot == 0 || gen == 0 {
		return Handle{}, fmt.Errorf("handle %q: zero slot or generation", s)
	}
	return newHandle(uint32(slot), uint32(gen)), nil
}

// EventType distinguishes lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when the
// table is closed with entries still live.
type Dropper interface {
	Drop()
}
