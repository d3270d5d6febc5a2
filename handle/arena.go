package handle

import (
	"errors"
	"math"
	"sync"
)

var ErrClosed = errors.New("handle arena closed")

// Arena is the slot storage behind a Table. Freed slots are reused, but
// every reuse bumps the slot generation so handles issued earlier no
// longer resolve. A slot whose generation would wrap is retired.
type Arena[T any] struct {
	entries  []entry[T]
	freeList []uint32
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

// NewArena creates an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{
		entries:  make([]entry[T], 0, 16),
		freeList: make([]uint32, 0, 8),
	}
}

// Create stores a value and returns its handle.
func (a *Arena[T]) Create(value T) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Handle{}, ErrClosed
	}

	if n := len(a.freeList); n > 0 {
		slot := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		e := &a.entries[slot-1]
		e.gen++
		e.value = value
		e.valid = true
		a.live++
		return newHandle(slot, e.gen), nil
	}

	if uint64(len(a.entries)) >= math.MaxUint32 {
		return Handle{}, errors.New("handle arena exhausted")
	}
	a.entries = append(a.entries, entry[T]{value: value, gen: 1, valid: true})
	a.live++
	return newHandle(uint32(len(a.entries)), 1), nil
}

// lookup returns the live entry for h. Caller holds a.mu.
func (a *Arena[T]) lookup(h Handle) *entry[T] {
	slot := h.slot()
	if slot == 0 || int(slot) > len(a.entries) {
		return nil
	}
	e := &a.entries[slot-1]
	if !e.valid || e.gen != h.gen() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e := a.lookup(h)
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Drop invalidates h and returns its value.
func (a *Arena[T]) Drop(h Handle) (T, bool) {
	var zero T

	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.lookup(h)
	if e == nil {
		return zero, false
	}

	value := e.value
	e.value = zero
	e.valid = false
	a.live--
	if e.gen < math.MaxUint32 {
		a.freeList = append(a.freeList, h.slot())
	}
	return value, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Each iterates over all live values in slot order.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i, e := range a.entries {
		if e.valid {
			if !fn(newHandle(uint32(i+1), e.gen), e.value) {
				break
			}
		}
	}
}

// Close invalidates every entry and rejects further Create calls.
// Values implementing Dropper are dropped.
func (a *Arena[T]) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var zero T
	for i := range a.entries {
		if a.entries[i].valid {
			if d, ok := any(a.entries[i].value).(Dropper); ok {
				d.Drop()
			}
			a.entries[i].valid = false
			a.entries[i].value = zero
		}
	}

	a.entries = nil
	a.freeList = nil
	a.live = 0
	return nil
}
