// Package availability implements the availability engine: a pure
// computation from working hours, existing bookings, blocks, and a
// travel-time matrix to an ordered list of bookable slots.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/travel"
)

// DayHours is a walker's working-hours window for one weekday, expressed in
// local wall-clock time.
type DayHours struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// Config tunes the engine's slot generation and travel-buffer behaviour.
type Config struct {
	SlotIntervalMinutes  int
	MinBufferMinutes     int
	DefaultTravelMinutes int
}

// DefaultConfig matches the defaults observed in the source system.
func DefaultConfig() Config {
	return Config{
		SlotIntervalMinutes:  30,
		MinBufferMinutes:     15,
		DefaultTravelMinutes: 20,
	}
}

// Slot is one bookable candidate.
type Slot struct {
	Start             time.Time
	End               time.Time
	TravelFromPrevious int
	Confidence        travel.Confidence
}

// CalculateSlots is the pure availability computation described by the
// engine's design: no working hours on the target date yields an empty,
// error-free result (a miss is not an error — the caller decides what an
// empty day means).
func CalculateSlots(
	hours *DayHours,
	bookings []booking.Slot,
	blocks []booking.Block,
	matrix *travel.Matrix,
	target uuid.UUID,
	serviceMinutes int,
	date time.Time,
	tzName string,
	cfg Config,
) ([]Slot, error) {
	if hours == nil {
		return nil, nil
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("availability: unknown time zone %q: %w", tzName, err)
	}

	workStart, err := localInstant(date, hours.StartHour, hours.StartMinute, loc)
	if err != nil {
		return nil, fmt.Errorf("availability: ambiguous working-hours start: %w", err)
	}
	workEnd, err := localInstant(date, hours.EndHour, hours.EndMinute, loc)
	if err != nil {
		return nil, fmt.Errorf("availability: ambiguous working-hours end: %w", err)
	}
	workStartUTC := workStart.UTC()
	workEndUTC := workEnd.UTC()
	if !workStartUTC.Before(workEndUTC) {
		return nil, fmt.Errorf("availability: working hours start must precede end")
	}

	serviceDur := time.Duration(serviceMinutes) * time.Minute
	interval := time.Duration(cfg.SlotIntervalMinutes) * time.Minute
	buffer := time.Duration(cfg.MinBufferMinutes) * time.Minute

	sortedBookings := make([]booking.Slot, len(bookings))
	copy(sortedBookings, bookings)
	sort.Slice(sortedBookings, func(i, j int) bool {
		return sortedBookings[i].Start.Before(sortedBookings[j].Start)
	})

	var result []Slot
	for start := workStartUTC; !start.Add(serviceDur).After(workEndUTC); start = start.Add(interval) {
		end := start.Add(serviceDur)

		if overlapsAnyBooking(start, end, sortedBookings) {
			continue
		}
		if overlapsAnyBlock(start, end, blocks) {
			continue
		}

		slot, ok := applyTravelConstraints(start, end, sortedBookings, matrix, target, buffer, cfg.DefaultTravelMinutes)
		if !ok {
			continue
		}
		result = append(result, slot)
	}

	return result, nil
}

func localInstant(date time.Time, hour, minute int, loc *time.Location) (time.Time, error) {
	naive := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
	// Re-derive the same wall-clock fields in the target zone and compare; a
	// mismatch signals the instant was shifted by a DST gap (non-existent
	// local time), which Go's time.Date silently resolves rather than
	// rejects. A wall-clock time repeated at a fall-back transition is
	// rejected as ambiguous: when the zone offset a few hours away differs,
	// the instant shifted by that difference is checked for the same reading.
	y, m, d := naive.Date()
	h, mi, _ := naive.Clock()
	if y != date.Year() || m != date.Month() || d != date.Day() || h != hour || mi != minute {
		return time.Time{}, fmt.Errorf("non-existent local time %04d-%02d-%02d %02d:%02d in %s", date.Year(), date.Month(), date.Day(), hour, minute, loc)
	}
	_, offset := naive.Zone()
	for _, probe := range []time.Duration{-3 * time.Hour, 3 * time.Hour} {
		if _, other := naive.Add(probe).Zone(); other != offset {
			alt := naive.Add(time.Duration(offset-other) * time.Second)
			ay, am, ad := alt.Date()
			ah, ami, _ := alt.Clock()
			if ay == y && am == m && ad == d && ah == hour && ami == minute {
				return time.Time{}, fmt.Errorf("ambiguous local time %04d-%02d-%02d %02d:%02d in %s", date.Year(), date.Month(), date.Day(), hour, minute, loc)
			}
		}
	}
	return naive, nil
}

func overlapsAnyBooking(start, end time.Time, bookings []booking.Slot) bool {
	for _, b := range bookings {
		if booking.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

func overlapsAnyBlock(start, end time.Time, blocks []booking.Block) bool {
	for _, b := range blocks {
		if booking.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// applyTravelConstraints checks whether candidate [start,end) leaves enough
// travel buffer from the nearest surrounding bookings, and computes the
// travel-from-previous figure and its confidence.
func applyTravelConstraints(
	start, end time.Time,
	sortedBookings []booking.Slot,
	matrix *travel.Matrix,
	target uuid.UUID,
	buffer time.Duration,
	defaultTravel int,
) (Slot, bool) {
	var prev *booking.Slot
	for i := range sortedBookings {
		b := sortedBookings[i]
		if !b.End.After(start) {
			if prev == nil || b.End.After(prev.End) {
				prev = &sortedBookings[i]
			}
		}
	}
	var next *booking.Slot
	for i := range sortedBookings {
		b := sortedBookings[i]
		if !b.Start.Before(end) {
			if next == nil || b.Start.Before(next.Start) {
				next = &sortedBookings[i]
			}
		}
	}

	travelFromPrev := 0
	confidence := travel.ConfidenceHigh
	if prev != nil {
		minutes, ok := matrix.Get(prev.LocationID, target)
		if !ok {
			minutes = defaultTravel
			confidence = travel.ConfidenceLow
		}
		travelFromPrev = minutes
		required := prev.End.Add(time.Duration(minutes) * time.Minute).Add(buffer)
		if start.Before(required) {
			return Slot{}, false
		}
	}

	if next != nil {
		minutes, ok := matrix.Get(target, next.LocationID)
		if !ok {
			minutes = defaultTravel
		}
		latest := next.Start.Add(-time.Duration(minutes) * time.Minute).Add(-buffer)
		if end.After(latest) {
			return Slot{}, false
		}
	}

	return Slot{Start: start, End: end, TravelFromPrevious: travelFromPrev, Confidence: confidence}, true
}

// Gap is a maximal uncovered sub-interval of the working day.
type Gap struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// FindScheduleGaps merges booking and block intervals and emits the
// maximal uncovered sub-intervals of [workStart, workEnd].
func FindScheduleGaps(workStart, workEnd time.Time, bookings []booking.Slot, blocks []booking.Block) []Gap {
	type interval struct{ start, end time.Time }
	var occupied []interval
	for _, b := range bookings {
		occupied = append(occupied, interval{b.Start, b.End})
	}
	for _, b := range blocks {
		occupied = append(occupied, interval{b.Start, b.End})
	}
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start.Before(occupied[j].start) })

	merged := mergeIntervals(occupied)

	var gaps []Gap
	cursor := workStart
	for _, iv := range merged {
		if iv.start.After(cursor) {
			gaps = append(gaps, newGap(cursor, iv.start))
		}
		if iv.end.After(cursor) {
			cursor = iv.end
		}
	}
	if workEnd.After(cursor) {
		gaps = append(gaps, newGap(cursor, workEnd))
	}
	return gaps
}

func newGap(start, end time.Time) Gap {
	return Gap{Start: start, End: end, DurationMinutes: int(end.Sub(start).Minutes())}
}

func mergeIntervals(in []struct{ start, end time.Time }) []struct{ start, end time.Time } {
	if len(in) == 0 {
		return nil
	}
	merged := []struct{ start, end time.Time }{in[0]}
	for _, iv := range in[1:] {
		last := &merged[len(merged)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
