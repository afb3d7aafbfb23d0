package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/lock"
	"github.com/barkbox/walkmarket/observability"
	"github.com/barkbox/walkmarket/tenant"
	"github.com/barkbox/walkmarket/travelcache"
)

// Registry resolves an organisation id to its Service, caching the
// association so the HTTP edge doesn't rebuild a planner and re-wire a
// store on every request. Grounded on tenant.PoolCache's read-mostly
// RWMutex idiom: read-lock fast path, upgrade to write-lock only on miss,
// re-check under the write lock before inserting.
type Registry struct {
	pool        *tenant.PoolCache
	travelCache *travelcache.Engine
	locker      *lock.AdvisoryLocker
	metrics     *observability.Metrics
	logger      zerolog.Logger
	cfg         Config
	now         func() time.Time

	mu       sync.RWMutex
	services map[uuid.UUID]*Service
}

// NewRegistry constructs a Registry. The advisory locker and travel cache
// are shared across every org's Service; only the underlying store.Store
// is tenant-scoped.
func NewRegistry(pool *tenant.PoolCache, travelCache *travelcache.Engine, metrics *observability.Metrics, logger zerolog.Logger, cfg Config) *Registry {
	return &Registry{
		pool:        pool,
		travelCache: travelCache,
		locker:      lock.NewAdvisoryLocker(),
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		services:    make(map[uuid.UUID]*Service),
	}
}

// Get returns the Service for orgID, constructing and caching one on first
// use.
func (r *Registry) Get(orgID uuid.UUID) (*Service, error) {
	r.mu.RLock()
	if s, ok := r.services[orgID]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.services[orgID]; ok {
		return s, nil
	}

	st, err := r.pool.Get(orgID)
	if err != nil {
		return nil, err
	}
	svc := New(st, r.travelCache, r.locker, r.metrics, r.logger, r.cfg, r.now)
	r.services[orgID] = svc
	return svc, nil
}
