package route

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/travel"
)

func mustCoords(t *testing.T, lat, lng float64) geo.Coordinates {
	t.Helper()
	c, err := geo.NewCoordinates(lat, lng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestOptimizeEmptyBookings(t *testing.T) {
	result := Optimize(nil, travel.NewMatrix())
	if result.IsOptimized {
		t.Fatal("expected IsOptimized=false for an empty stop list")
	}
	if len(result.Stops) != 0 {
		t.Fatal("expected no stops")
	}
}

func TestOptimizeSingleBooking(t *testing.T) {
	loc := uuid.New()
	stop := Stop{
		BookingID:      uuid.New(),
		LocationID:     loc,
		Coordinates:    mustCoords(t, 39.7392, -104.9903),
		ScheduledStart: time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC),
		Duration:       time.Hour,
	}
	result := Optimize([]Stop{stop}, travel.NewMatrix())
	if len(result.Stops) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(result.Stops))
	}
	if result.TotalTravelMinutes != 0 {
		t.Fatalf("expected zero travel for a single stop, got %d", result.TotalTravelMinutes)
	}
	if result.SavingsVsChronological != 0 {
		t.Fatalf("expected zero savings for a single stop")
	}
}

func TestOptimizeThreeBookingsAlreadyOptimalChronological(t *testing.T) {
	loc1, loc2, loc3 := uuid.New(), uuid.New(), uuid.New()
	matrix := travel.NewMatrix()
	matrix.Set(loc1, loc2, 15)
	matrix.Set(loc2, loc1, 15)
	matrix.Set(loc1, loc3, 30)
	matrix.Set(loc3, loc1, 30)
	matrix.Set(loc2, loc3, 10)
	matrix.Set(loc3, loc2, 10)

	base := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	stops := []Stop{
		{BookingID: uuid.New(), LocationID: loc1, Coordinates: mustCoords(t, 39.70, -104.90), ScheduledStart: base, Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc2, Coordinates: mustCoords(t, 39.71, -104.91), ScheduledStart: base.Add(90 * time.Minute), Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc3, Coordinates: mustCoords(t, 39.72, -104.92), ScheduledStart: base.Add(180 * time.Minute), Duration: 30 * time.Minute},
	}

	result := Optimize(stops, matrix)
	if len(result.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(result.Stops))
	}
	if result.Stops[0].LocationID != loc1 || result.Stops[1].LocationID != loc2 || result.Stops[2].LocationID != loc3 {
		t.Fatalf("expected chronological order to already be optimal: %+v", result.Stops)
	}
	if result.TotalTravelMinutes != 25 {
		t.Fatalf("expected total travel 25 (15+10), got %d", result.TotalTravelMinutes)
	}
	if result.SavingsVsChronological != 0 {
		t.Fatalf("expected zero savings, got %d", result.SavingsVsChronological)
	}
}

func TestOptimizeArrivalRespectsScheduledStartAndTravel(t *testing.T) {
	loc1, loc2 := uuid.New(), uuid.New()
	matrix := travel.NewMatrix()
	matrix.Set(loc1, loc2, 45)

	base := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	stops := []Stop{
		{BookingID: uuid.New(), LocationID: loc1, Coordinates: mustCoords(t, 39.70, -104.90), ScheduledStart: base, Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc2, Coordinates: mustCoords(t, 39.71, -104.91), ScheduledStart: base.Add(40 * time.Minute), Duration: 30 * time.Minute},
	}

	result := Optimize(stops, matrix)
	second := result.Stops[1]
	// departure of first stop = 09:30, +45min travel = 10:15, later than
	// the scheduled start of 09:40, so arrival should be pushed to 10:15.
	wantArrival := base.Add(30 * time.Minute).Add(45 * time.Minute)
	if !second.ArrivalTime.Equal(wantArrival) {
		t.Fatalf("expected arrival %v, got %v", wantArrival, second.ArrivalTime)
	}
}

func TestOptimizeSavingsNeverNegative(t *testing.T) {
	loc1, loc2, loc3, loc4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	matrix := travel.NewMatrix()
	base := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	stops := []Stop{
		{BookingID: uuid.New(), LocationID: loc1, Coordinates: mustCoords(t, 39.70, -104.90), ScheduledStart: base, Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc2, Coordinates: mustCoords(t, 40.70, -105.90), ScheduledStart: base.Add(60 * time.Minute), Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc3, Coordinates: mustCoords(t, 39.70, -103.90), ScheduledStart: base.Add(120 * time.Minute), Duration: 30 * time.Minute},
		{BookingID: uuid.New(), LocationID: loc4, Coordinates: mustCoords(t, 38.70, -104.90), ScheduledStart: base.Add(180 * time.Minute), Duration: 30 * time.Minute},
	}
	result := Optimize(stops, matrix)
	if result.SavingsVsChronological < 0 {
		t.Fatalf("savings should never be negative, got %d", result.SavingsVsChronological)
	}
}
