// Package tenant resolves an organisation identifier to its storage handle,
// caching the association so repeated requests for the same org don't pay
// construction cost twice. Grounded on the teacher's RWMutex hot-reload
// idiom (read-lock fast path, upgrade to write-lock only on miss, re-check
// under the write lock before inserting).
package tenant

import (
	"sync"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/store"
)

// Factory builds a storage handle for a newly-seen organisation.
type Factory func(orgID uuid.UUID) (store.Store, error)

// PoolCache is a process-wide, read-mostly cache of per-organisation
// storage handles.
type PoolCache struct {
	mu      sync.RWMutex
	handles map[uuid.UUID]store.Store
	factory Factory
}

// NewPoolCache constructs an empty cache backed by factory.
func NewPoolCache(factory Factory) *PoolCache {
	return &PoolCache{handles: make(map[uuid.UUID]store.Store), factory: factory}
}

// Get returns the storage handle for orgID, constructing and caching one on
// first use.
func (p *PoolCache) Get(orgID uuid.UUID) (store.Store, error) {
	p.mu.RLock()
	if h, ok := p.handles[orgID]; ok {
		p.mu.RUnlock()
		return h, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Re-check: another goroutine may have inserted while we waited for
	// the write lock.
	if h, ok := p.handles[orgID]; ok {
		return h, nil
	}
	h, err := p.factory(orgID)
	if err != nil {
		return nil, err
	}
	p.handles[orgID] = h
	return h, nil
}

// Count reports how many organisations currently have a cached handle.
func (p *PoolCache) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}
