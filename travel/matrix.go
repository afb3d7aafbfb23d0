// Package travel implements the travel-time matrix and the traffic model
// used to adjust base travel estimates for peak-hour congestion.
package travel

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Matrix is a directional mapping from (origin, destination) location pair
// to a travel duration in minutes. Callers are responsible for populating
// both directions when a route is symmetric.
type Matrix struct {
	entries map[pairKey]int
}

type pairKey struct {
	origin      uuid.UUID
	destination uuid.UUID
}

// NewMatrix returns an empty travel-time matrix.
func NewMatrix() *Matrix {
	return &Matrix{entries: make(map[pairKey]int)}
}

// Set records the travel time in minutes from origin to destination.
func (m *Matrix) Set(origin, destination uuid.UUID, minutes int) {
	m.entries[pairKey{origin, destination}] = minutes
}

// Get returns the stored travel time and whether an entry exists.
func (m *Matrix) Get(origin, destination uuid.UUID) (int, bool) {
	v, ok := m.entries[pairKey{origin, destination}]
	return v, ok
}

// GetOrDefault returns the stored travel time, or def if no entry exists.
func (m *Matrix) GetOrDefault(origin, destination uuid.UUID, def int) int {
	if v, ok := m.Get(origin, destination); ok {
		return v
	}
	return def
}

// PeakWindow is an inclusive-exclusive hour-of-day range, e.g. (7, 9).
type PeakWindow struct {
	StartHour int
	EndHour   int
}

// Config holds the traffic model's tunable parameters.
type Config struct {
	PeakWindows         []PeakWindow
	PeakMultiplier      float64
	CacheTTLPeakMinutes   int
	CacheTTLOffPeakMinutes int
}

// DefaultConfig matches the traffic model observed in the source system:
// morning and evening rush windows, a 1.3x multiplier, and TTLs of 4h peak /
// 24h off-peak.
func DefaultConfig() Config {
	return Config{
		PeakWindows: []PeakWindow{
			{StartHour: 7, EndHour: 9},
			{StartHour: 16, EndHour: 18},
		},
		PeakMultiplier:         1.3,
		CacheTTLPeakMinutes:    240,
		CacheTTLOffPeakMinutes: 1440,
	}
}

// IsPeak reports whether instant's local hour falls within any peak window.
func (c Config) IsPeak(instant time.Time) bool {
	hour := instant.Hour()
	for _, w := range c.PeakWindows {
		if hour >= w.StartHour && hour < w.EndHour {
			return true
		}
	}
	return false
}

// Multiplier returns the peak multiplier when instant is in a peak window,
// else 1.0.
func (c Config) Multiplier(instant time.Time) float64 {
	if c.IsPeak(instant) {
		return c.PeakMultiplier
	}
	return 1.0
}

// Adjust applies the traffic multiplier to a base travel estimate, rounding
// up to the next whole minute.
func (c Config) Adjust(baseMinutes int, instant time.Time) int {
	return int(math.Ceil(float64(baseMinutes) * c.Multiplier(instant)))
}

// CacheTTL returns the cache time-to-live appropriate for instant.
func (c Config) CacheTTL(instant time.Time) time.Duration {
	if c.IsPeak(instant) {
		return time.Duration(c.CacheTTLPeakMinutes) * time.Minute
	}
	return time.Duration(c.CacheTTLOffPeakMinutes) * time.Minute
}

// Confidence classifies a cached travel estimate by its age.
type Confidence int

const (
	ConfidenceUnknown Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "unknown"
	}
}

// ConfidenceFromCacheAge classifies a cache entry's age against the
// appropriate TTL for instant: within half the TTL is High, within the full
// TTL is Medium, beyond it is Low.
func (c Config) ConfidenceFromCacheAge(age time.Duration, instant time.Time) Confidence {
	ttl := c.CacheTTL(instant)
	switch {
	case age <= ttl/2:
		return ConfidenceHigh
	case age <= ttl:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
