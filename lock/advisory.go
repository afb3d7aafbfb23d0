// Package lock provides per-walker advisory locking so that booking
// creation and recurring-series materialisation serialize against the same
// walker without needing a global mutex.
package lock

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// AdvisoryLocker acquires a per-key lock for the duration of a critical
// section, keyed on the full string form of a walker's UUID rather than a
// hashed integer, removing the collision risk a truncated hash key would
// carry under heavy concurrency.
type AdvisoryLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	waiters int32
}

// NewAdvisoryLocker creates an empty per-key lock manager.
func NewAdvisoryLocker() *AdvisoryLocker {
	return &AdvisoryLocker{locks: make(map[string]*entry)}
}

// Lock acquires the lock for walkerID, blocking until available, and
// returns a function that releases it. The underlying map entry is
// garbage-collected once the last waiter releases.
func (l *AdvisoryLocker) Lock(walkerID uuid.UUID) func() {
	key := walkerID.String()

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	atomic.AddInt32(&e.waiters, 1)
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		if atomic.AddInt32(&e.waiters, -1) == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
