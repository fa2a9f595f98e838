// Package syncx provides scoped synchronization wrappers around shared handles
package syncx

import "sync"

// Mutex owns a value that may only be touched while the lock is held.
// It serializes access to single-instance resources such as a database
// connection or a loaded model.
type Mutex[T any] struct {
	mu    sync.Mutex
	value T
}

// NewMutex wraps v. The caller must not retain other references to v.
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

// With runs fn with exclusive access. The lock is released on every exit
// path, including panics raised inside fn.
func (m *Mutex[T]) With(fn func(T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.value)
}

// Locked runs fn with exclusive access and returns its result.
func Locked[T, R any](m *Mutex[T], fn func(T) (R, error)) (R, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.value)
}

// RWGuard wraps RWMutex with scoped lock helpers.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Read executes fn while holding read lock.
func (g *RWGuard[T]) Read(fn func(T)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(g.value)
}

// Write executes fn while holding write lock, fn receives pointer for mutation.
func (g *RWGuard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// Get returns a copy of the value (T should be value type or immutable).
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set atomically replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}
