// Package state provides the reactive shared-state substrate for the
// widget: independently subscribable cells with synchronous read/write
// semantics, and derived values recomputed from base cells on every read so
// they can never go stale.
package state

import "sync"

// Cell is a single observable state value. Reads and writes are
// synchronous; subscribers are invoked inline on every Set, in registration
// order, after the new value is visible to Get.
type Cell[T any] struct {
	mu   sync.RWMutex
	v    T
	subs map[int]func(T)
	next int
}

// NewCell creates a Cell holding the initial value.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set stores a new value and notifies subscribers synchronously.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	fns := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn to run on every Set and returns a cancel func.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
