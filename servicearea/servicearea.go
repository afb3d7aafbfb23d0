// Package servicearea maps walker-declared polygon boundaries to "which
// walkers can serve this coordinate", grounded on the original service-area
// domain module that the distilled availability spec only gestured at
// through its geometry primitives.
package servicearea

import (
	"sort"

	"github.com/barkbox/walkmarket/geo"
	"github.com/google/uuid"
)

// Boundary is one walker's declared service area.
type Boundary struct {
	WalkerID            uuid.UUID
	AreaID              uuid.UUID
	Name                string
	Polygon             geo.Polygon
	Priority            int
	PriceAdjustmentPct  int
}

// Contains reports whether the boundary covers the given coordinate.
func (b Boundary) Contains(c geo.Coordinates) bool {
	return b.Polygon.Contains(c)
}

// Match pairs a boundary with the coordinate it was matched against.
type Match struct {
	Boundary Boundary
}

// FindWalkersForLocation returns every boundary containing coords, sorted
// ascending by priority (lower priority value wins first).
func FindWalkersForLocation(areas []Boundary, coords geo.Coordinates) []Match {
	var matches []Match
	for _, a := range areas {
		if a.Contains(coords) {
			matches = append(matches, Match{Boundary: a})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Boundary.Priority < matches[j].Boundary.Priority
	})
	return matches
}

// WalkerCanServiceLocation returns the lowest-priority boundary declared by
// walkerID that contains coords, or false if none match.
func WalkerCanServiceLocation(areas []Boundary, walkerID uuid.UUID, coords geo.Coordinates) (Boundary, bool) {
	var best Boundary
	found := false
	for _, a := range areas {
		if a.WalkerID != walkerID || !a.Contains(coords) {
			continue
		}
		if !found || a.Priority < best.Priority {
			best = a
			found = true
		}
	}
	return best, found
}
