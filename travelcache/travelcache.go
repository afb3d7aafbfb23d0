// Package travelcache is the travel-time cache engine: a namespace-segmented,
// mutex-guarded store of travel-time entries with age-based confidence and
// an optional Redis-backed persistence mirror so entries survive restarts.
//
// Structurally grounded on the semantic response cache in the teacher
// codebase (namespace map, RWMutex, atomic stats counters, capacity-bound
// eviction) with the similarity-search lookup replaced by an exact
// (origin, destination) key and the validation pass replaced by
// age-based confidence classification.
package travelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/barkbox/walkmarket/travel"
)

// Entry is one cached travel-time observation between two locations.
type Entry struct {
	Origin        uuid.UUID
	Destination   uuid.UUID
	Minutes       int
	DistanceMeters int
	ComputedAt    time.Time
}

type key struct {
	org         uuid.UUID
	origin      uuid.UUID
	destination uuid.UUID
}

// Config bounds the in-process store.
type Config struct {
	MaxEntriesPerNamespace int
}

// DefaultConfig returns sane bounds for a single-process deployment.
func DefaultConfig() Config {
	return Config{MaxEntriesPerNamespace: 50_000}
}

// Stats reports cumulative cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Engine is the travel-time cache. The zero value is not usable; use New.
type Engine struct {
	cfg   Config
	redis *redis.Client

	mu      sync.RWMutex
	entries map[key]Entry

	hits     atomic.Int64
	misses   atomic.Int64
	evictions atomic.Int64
}

// New constructs an Engine. redisClient may be nil, in which case the
// engine operates purely in-process.
func New(cfg Config, redisClient *redis.Client) *Engine {
	return &Engine{
		cfg:     cfg,
		redis:   redisClient,
		entries: make(map[key]Entry),
	}
}

// Get returns the cached entry for (origin, destination) within org, and
// whether it was found. On a miss (and when Redis is configured) it
// transparently attempts a Redis lookup and repopulates the in-process
// store on success.
func (e *Engine) Get(ctx context.Context, org, origin, destination uuid.UUID) (Entry, bool) {
	k := key{org, origin, destination}

	e.mu.RLock()
	entry, ok := e.entries[k]
	e.mu.RUnlock()
	if ok {
		e.hits.Add(1)
		return entry, true
	}

	if e.redis != nil {
		if entry, ok := e.fetchFromRedis(ctx, k); ok {
			e.mu.Lock()
			e.entries[k] = entry
			e.mu.Unlock()
			e.hits.Add(1)
			return entry, true
		}
	}

	e.misses.Add(1)
	return Entry{}, false
}

// BatchGet returns entries for all requested destinations from origin that
// are no older than maxAge, keyed by destination.
func (e *Engine) BatchGet(ctx context.Context, org, origin uuid.UUID, destinations []uuid.UUID, maxAge time.Duration, now time.Time) map[uuid.UUID]Entry {
	result := make(map[uuid.UUID]Entry, len(destinations))
	for _, dest := range destinations {
		entry, ok := e.Get(ctx, org, origin, dest)
		if !ok {
			continue
		}
		if now.Sub(entry.ComputedAt) > maxAge {
			continue
		}
		result[dest] = entry
	}
	return result
}

// Upsert records entry, overwriting any prior value for the same pair
// (latest write wins). When Redis is configured, the write is mirrored
// there as well.
func (e *Engine) Upsert(ctx context.Context, org uuid.UUID, entry Entry) {
	k := key{org, entry.Origin, entry.Destination}

	e.mu.Lock()
	if _, exists := e.entries[k]; !exists && len(e.entries) >= e.cfg.MaxEntriesPerNamespace {
		e.evictOldestLocked()
	}
	e.entries[k] = entry
	total := int64(len(e.entries))
	e.mu.Unlock()
	_ = total

	if e.redis != nil {
		e.writeToRedis(ctx, k, entry)
	}
}

// FlushExpired removes every entry older than ttl as of now.
func (e *Engine) FlushExpired(now time.Time, ttl time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for k, v := range e.entries {
		if now.Sub(v.ComputedAt) > ttl {
			delete(e.entries, k)
			removed++
		}
	}
	e.evictions.Add(int64(removed))
	return removed
}

// Stats returns a snapshot of cumulative cache activity.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	n := int64(len(e.entries))
	e.mu.RUnlock()
	return Stats{
		Hits:    e.hits.Load(),
		Misses:  e.misses.Load(),
		Entries: n,
	}
}

// evictOldestLocked drops the single oldest entry. Caller must hold mu.
func (e *Engine) evictOldestLocked() {
	var oldestKey key
	var oldestTime time.Time
	first := true
	for k, v := range e.entries {
		if first || v.ComputedAt.Before(oldestTime) {
			oldestKey, oldestTime = k, v.ComputedAt
			first = false
		}
	}
	if !first {
		delete(e.entries, oldestKey)
		e.evictions.Add(1)
	}
}

type redisEntry struct {
	Minutes        int       `json:"minutes"`
	DistanceMeters int       `json:"distance_meters"`
	ComputedAt     time.Time `json:"computed_at"`
}

func redisKey(k key) string {
	return fmt.Sprintf("travelcache:%s:%s:%s", k.org, k.origin, k.destination)
}

func (e *Engine) fetchFromRedis(ctx context.Context, k key) (Entry, bool) {
	raw, err := e.redis.Get(ctx, redisKey(k)).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var re redisEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return Entry{}, false
	}
	return Entry{
		Origin:         k.origin,
		Destination:    k.destination,
		Minutes:        re.Minutes,
		DistanceMeters: re.DistanceMeters,
		ComputedAt:     re.ComputedAt,
	}, true
}

func (e *Engine) writeToRedis(ctx context.Context, k key, entry Entry) {
	raw, err := json.Marshal(redisEntry{
		Minutes:        entry.Minutes,
		DistanceMeters: entry.DistanceMeters,
		ComputedAt:     entry.ComputedAt,
	})
	if err != nil {
		return
	}
	// Mirror writes with a generous TTL; the in-process store is the hot
	// path and Redis only needs to survive a process restart.
	e.redis.Set(ctx, redisKey(k), raw, 48*time.Hour)
}

// ConfidenceFor classifies entry's freshness using cfg relative to now.
func ConfidenceFor(entry Entry, ok bool, cfg travel.Config, now time.Time) travel.Confidence {
	if !ok {
		return travel.ConfidenceUnknown
	}
	return cfg.ConfidenceFromCacheAge(now.Sub(entry.ComputedAt), now)
}
