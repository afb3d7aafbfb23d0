// Package route implements the Clark-Wright savings heuristic used to
// sequence a walker's daily stops.
package route

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/travel"
)

// Stop is one booking to be routed.
type Stop struct {
	BookingID      uuid.UUID
	LocationID     uuid.UUID
	Coordinates    geo.Coordinates
	ScheduledStart time.Time
	Duration       time.Duration
}

// PlannedStop is a Stop annotated with its computed arrival/departure.
type PlannedStop struct {
	Stop
	TravelFromPrevious int
	ArrivalTime        time.Time
	DepartureTime       time.Time
}

// Result is the optimiser's output for one day.
type Result struct {
	Stops                  []PlannedStop
	TotalTravelMinutes     int
	SavingsVsChronological int
	IsOptimized            bool
}

// Optimize sequences stops using the Clark-Wright savings heuristic,
// falling back to chronological order for 0, 1, or 2 stops, or on any
// internal anomaly in the merge pass.
func Optimize(stops []Stop, matrix *travel.Matrix) Result {
	if len(stops) == 0 {
		return Result{IsOptimized: false}
	}

	chronological := make([]Stop, len(stops))
	copy(chronological, stops)
	sort.Slice(chronological, func(i, j int) bool {
		return chronological[i].ScheduledStart.Before(chronological[j].ScheduledStart)
	})

	if len(chronological) == 1 {
		return buildRoute(chronological, matrix, 0, false)
	}

	distances := buildDistanceMatrix(chronological, matrix)
	chronologicalTravel := totalTravel(distances, identityOrder(len(chronological)))

	order, ok := clarkWrightOptimize(distances)
	if !ok {
		order = identityOrder(len(chronological))
	}

	ordered := reorder(chronological, order)
	optimizedTravel := totalTravel(distances, order)

	savings := chronologicalTravel - optimizedTravel
	if savings < 0 {
		savings = 0
	}

	return buildRoute(ordered, matrix, savings, true)
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func reorder(stops []Stop, order []int) []Stop {
	out := make([]Stop, len(order))
	for i, idx := range order {
		out[i] = stops[idx]
	}
	return out
}

func buildDistanceMatrix(stops []Stop, matrix *travel.Matrix) [][]int {
	n := len(stops)
	d := make([][]int, n)
	for i := range d {
		d[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if minutes, ok := matrix.Get(stops[i].LocationID, stops[j].LocationID); ok {
				d[i][j] = minutes
			} else {
				d[i][j] = stops[i].Coordinates.EstimateTravelMinutes(stops[j].Coordinates)
			}
		}
	}
	return d
}

func totalTravel(d [][]int, order []int) int {
	total := 0
	for i := 1; i < len(order); i++ {
		total += d[order[i-1]][order[i]]
	}
	return total
}

// clarkWrightOptimize returns the merged route order for n >= 2 stops.
// The reference coordinate (index 0) stands in for a virtual depot: pairwise
// savings are computed relative to it, then consumed greedily from largest
// to smallest, merging singleton routes at shared endpoints.
func clarkWrightOptimize(d [][]int) ([]int, bool) {
	n := len(d)
	if n <= 2 {
		return identityOrder(n), true
	}

	type saving struct {
		i, j, value int
	}
	var savings []saving
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := d[0][i] + d[0][j] - d[i][j]
			if s > 0 {
				savings = append(savings, saving{i, j, s})
			}
		}
	}
	sort.Slice(savings, func(a, b int) bool { return savings[a].value > savings[b].value })

	routes := make([][]int, n)
	routeOf := make([]int, n)
	for i := 0; i < n; i++ {
		routes[i] = []int{i}
		routeOf[i] = i
	}

	for _, s := range savings {
		ri, rj := routeOf[s.i], routeOf[s.j]
		if ri == rj {
			continue
		}
		routeI, routeJ := routes[ri], routes[rj]
		if len(routeI) == 0 || len(routeJ) == 0 {
			continue
		}
		if !isEndpoint(routeI, s.i) || !isEndpoint(routeJ, s.j) {
			continue
		}

		merged := mergeAtEndpoints(routeI, s.i, routeJ, s.j)
		routes[ri] = merged
		routes[rj] = nil
		for _, node := range merged {
			routeOf[node] = ri
		}
	}

	var final []int
	nonEmpty := 0
	for _, r := range routes {
		if len(r) > 0 {
			nonEmpty++
			final = r
		}
	}
	if nonEmpty != 1 || len(final) != n {
		return nil, false
	}
	return final, true
}

func isEndpoint(route []int, node int) bool {
	return route[0] == node || route[len(route)-1] == node
}

// mergeAtEndpoints joins routeI and routeJ so that endpoint i and endpoint
// j become adjacent, reversing either route as needed.
func mergeAtEndpoints(routeI []int, i int, routeJ []int, j int) []int {
	if routeI[len(routeI)-1] != i {
		routeI = reversed(routeI)
	}
	if routeJ[0] != j {
		routeJ = reversed(routeJ)
	}
	out := make([]int, 0, len(routeI)+len(routeJ))
	out = append(out, routeI...)
	out = append(out, routeJ...)
	return out
}

func reversed(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func buildRoute(ordered []Stop, matrix *travel.Matrix, savings int, isOptimized bool) Result {
	var stops []PlannedStop
	totalTravelMinutes := 0
	var prevDeparture time.Time
	var prevLocation uuid.UUID
	var prevCoords geo.Coordinates
	hasPrev := false

	for _, s := range ordered {
		travelFromPrev := 0
		arrival := s.ScheduledStart
		if hasPrev {
			minutes, ok := matrix.Get(prevLocation, s.LocationID)
			if !ok {
				minutes = prevCoords.EstimateTravelMinutes(s.Coordinates)
			}
			travelFromPrev = minutes
			candidateArrival := prevDeparture.Add(time.Duration(minutes) * time.Minute)
			if candidateArrival.After(arrival) {
				arrival = candidateArrival
			}
			totalTravelMinutes += minutes
		}
		departure := arrival.Add(s.Duration)

		stops = append(stops, PlannedStop{
			Stop:               s,
			TravelFromPrevious: travelFromPrev,
			ArrivalTime:        arrival,
			DepartureTime:      departure,
		})

		prevDeparture = departure
		prevLocation = s.LocationID
		prevCoords = s.Coordinates
		hasPrev = true
	}

	return Result{
		Stops:                  stops,
		TotalTravelMinutes:     totalTravelMinutes,
		SavingsVsChronological: savings,
		IsOptimized:            isOptimized,
	}
}
