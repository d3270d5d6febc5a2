package handle

import (
	"sync"
)

// Table maps handles to values and notifies observers of lifecycle
// events. It is safe for concurrent use.
type Table[T any] struct {
	arena     *Arena[T]
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a table backed by a fresh Arena.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		arena: NewArena[T](),
	}
}

// Insert adds a value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	h, err := t.arena.Create(value)
	if err != nil {
		return Handle{}, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		Value:  value,
	})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	return t.arena.Get(h)
}

// Remove invalidates h and returns its value. Removing a handle twice
// reports false the second time.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	value, ok := t.arena.Drop(h)
	if !ok {
		return value, false
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: h,
		Value:  value,
	})
	return value, true
}

// Handles returns a snapshot of all live handles.
func (t *Table[T]) Handles() []Handle {
	var hs []Handle
	t.arena.Each(func(h Handle, _ T) bool {
		hs = append(hs, h)
		return true
	})
	return hs
}

// Each iterates over all live values.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.arena.Each(fn)
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	return t.arena.Len()
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Close releases all values and stops accepting inserts.
func (t *Table[T]) Close() error {
	return t.arena.Close()
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
