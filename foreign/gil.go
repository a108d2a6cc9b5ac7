package foreign

import "sync"

// GIL serializes access to a single-threaded interpreter.
// It is not re-entrant: acquiring it twice from the same goroutine deadlocks.
type GIL struct {
	mu sync.Mutex
}

// Acquire blocks until the lock is held.
func (g *GIL) Acquire() {
	g.mu.Lock()
}

// Release gives the lock back.
func (g *GIL) Release() {
	g.mu.Unlock()
}

// With runs fn while holding the lock.
func (g *GIL) With(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
