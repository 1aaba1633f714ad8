// Package oplock enforces the single-operation invariant: at most one scan
// or cleanup may be in flight against a contact store at a time.
package oplock

import (
	"sync"

	"github.com/rotisserie/eris"
)

// ErrBusy is returned when an operation is already in flight.
var ErrBusy = eris.New("another operation is already in progress")

// Guard is a non-blocking mutual-exclusion gate shared by the scan pipeline
// and the cleanup executor.
type Guard struct {
	mu sync.Mutex
}

// Acquire claims the guard, or returns ErrBusy without blocking.
func (g *Guard) Acquire() error {
	if !g.mu.TryLock() {
		return ErrBusy
	}
	return nil
}

// Release frees the guard for the next operation.
func (g *Guard) Release() {
	g.mu.Unlock()
}
