// Package hooks provides a prioritized listener registry. Extension
// modules register callbacks against it and the owning component runs
// them in priority order, aborting on the first failure so the caller
// can roll the surrounding work back.
package hooks

import (
	"context"
	"sort"
	"sync"
)

// Priority orders listeners within a registry. Higher priorities run
// first; listeners sharing a priority run in registration order.
type Priority int8

const (
	Lowest Priority = iota
	Low
	Normal
	High
	Highest
)

// Callback is a single registered listener. The argument carries
// whatever the owning component exposes to its extension points, for
// lifecycle hooks the open transaction and the in-flight builder.
type Callback[A any] func(ctx context.Context, arg A) error

type listener[A any] struct {
	id       uint64
	priority Priority
	fn       Callback[A]
}

// Registry holds the ordered listener list for one extension point.
// Registration and deregistration take the write lock; runs take a
// read-locked snapshot, so a callback may itself register or
// deregister without deadlocking.
type Registry[A any] struct {
	mu        sync.RWMutex
	listeners []listener[A]
	nextID    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry[A any]() *Registry[A] {
	return &Registry[A]{}
}

// Register appends a listener and re-sorts the sequence: priority
// descending, stable among equals. The returned Handle deregisters it.
func (r *Registry[A]) Register(p Priority, fn Callback[A]) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listener[A]{id: id, priority: p, fn: fn})
	sort.SliceStable(r.listeners, func(i, j int) bool {
		return r.listeners[i].priority > r.listeners[j].priority
	})

	return Handle{cancel: func() { r.deregister(id) }}
}

func (r *Registry[A]) deregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, l := range r.listeners {
		if l.id == id {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Run invokes every listener sequentially in priority order. The first
// error aborts the run and is returned to the caller; listeners after
// it do not execute.
func (r *Registry[A]) Run(ctx context.Context, arg A) error {
	r.mu.RLock()
	snapshot := make([]listener[A], len(r.listeners))
	copy(snapshot, r.listeners)
	r.mu.RUnlock()

	for _, l := range snapshot {
		if err := l.fn(ctx, arg); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered listeners.
func (r *Registry[A]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Handle identifies one registration. The zero Handle is inert.
type Handle struct {
	cancel func()
}

// Deregister removes the listener it was returned for. It is
// idempotent: calling it twice, on the zero Handle, or after the
// owning registry was replaced is a no-op.
func (h Handle) Deregister() {
	if h.cancel != nil {
		h.cancel()
	}
}
