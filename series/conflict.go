package series

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/store"
)

// Conflict is one occurrence date that cannot be booked.
type Conflict struct {
	Date   time.Time
	Reason string
}

const (
	ReasonBookingConflict = "Walker has conflicting booking"
	ReasonBlockConflict   = "Walker has blocked time"
	ReasonInvalidTZ       = "Invalid timezone conversion"
)

// occurrenceWindow is one occurrence date's resolved UTC time range.
type occurrenceWindow struct {
	date  time.Time
	start time.Time
	end   time.Time
}

// CheckConflictsBatch resolves every occurrence date to a UTC window (using
// timeOfDay "HH:MM" and the IANA zone name), then issues exactly two range
// queries — one for active bookings, one for blocks — bounded by the
// min/max window across all occurrences, and tests each occurrence against
// the fetched rows in memory. Unconvertible local instants produce an
// "Invalid timezone conversion" conflict rather than failing the whole
// batch.
func CheckConflictsBatch(
	ctx context.Context,
	st interface {
		store.BookingReader
		store.BlockReader
	},
	org, walkerID uuid.UUID,
	dates []time.Time,
	timeOfDay string,
	durationMinutes int,
	tzName string,
) ([]Conflict, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, fmt.Errorf("series: invalid time_of_day %q: %w", timeOfDay, err)
	}

	loc, err := time.LoadLocation(tzName)
	var windows []occurrenceWindow
	var conflicts []Conflict
	if err != nil {
		for _, d := range dates {
			conflicts = append(conflicts, Conflict{Date: d, Reason: ReasonInvalidTZ})
		}
		return conflicts, nil
	}

	var minStart, maxEnd time.Time
	first := true
	for _, d := range dates {
		start, werr := resolveLocalInstant(d, hour, minute, loc)
		if werr != nil {
			conflicts = append(conflicts, Conflict{Date: d, Reason: ReasonInvalidTZ})
			continue
		}
		end := start.Add(time.Duration(durationMinutes) * time.Minute)
		windows = append(windows, occurrenceWindow{date: d, start: start, end: end})
		if first || start.Before(minStart) {
			minStart = start
		}
		if first || end.After(maxEnd) {
			maxEnd = end
		}
		first = false
	}

	if len(windows) == 0 {
		return conflicts, nil
	}

	bookings, err := st.FindBookingsForWalkerInRange(ctx, org, walkerID, minStart, maxEnd)
	if err != nil {
		return nil, fmt.Errorf("series: fetching bookings for conflict check: %w", err)
	}
	blocks, err := st.FindBlocksForWalkerInRange(ctx, org, walkerID, minStart, maxEnd)
	if err != nil {
		return nil, fmt.Errorf("series: fetching blocks for conflict check: %w", err)
	}

	for _, w := range windows {
		if conflictsWithBookings(w, bookings) {
			conflicts = append(conflicts, Conflict{Date: w.date, Reason: ReasonBookingConflict})
			continue
		}
		if conflictsWithBlocks(w, blocks) {
			conflicts = append(conflicts, Conflict{Date: w.date, Reason: ReasonBlockConflict})
		}
	}

	return conflicts, nil
}

func conflictsWithBookings(w occurrenceWindow, bookings []booking.Booking) bool {
	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		if booking.Overlaps(w.start, w.end, b.ScheduledStart, b.ScheduledEnd) {
			return true
		}
	}
	return false
}

func conflictsWithBlocks(w occurrenceWindow, blocks []booking.Block) bool {
	for _, b := range blocks {
		if booking.Overlaps(w.start, w.end, b.Start, b.End) {
			return true
		}
	}
	return false
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func resolveLocalInstant(date time.Time, hour, minute int, loc *time.Location) (time.Time, error) {
	naive := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
	y, m, d := naive.Date()
	h, mi, _ := naive.Clock()
	if y != date.Year() || m != date.Month() || d != date.Day() || h != hour || mi != minute {
		return time.Time{}, fmt.Errorf("non-existent local time for %04d-%02d-%02d %02d:%02d", date.Year(), date.Month(), date.Day(), hour, minute)
	}
	// A wall-clock time repeated at a fall-back transition is ambiguous.
	_, offset := naive.Zone()
	for _, probe := range []time.Duration{-3 * time.Hour, 3 * time.Hour} {
		if _, other := naive.Add(probe).Zone(); other != offset {
			alt := naive.Add(time.Duration(offset-other) * time.Second)
			ay, am, ad := alt.Date()
			ah, ami, _ := alt.Clock()
			if ay == y && am == m && ad == d && ah == hour && ami == minute {
				return time.Time{}, fmt.Errorf("ambiguous local time for %04d-%02d-%02d %02d:%02d", date.Year(), date.Month(), date.Day(), hour, minute)
			}
		}
	}
	return naive.UTC(), nil
}

// ResolvedWindow exposes an occurrence's resolved UTC window for callers
// (e.g. materialisation) that need it without re-deriving from scratch.
func ResolvedWindow(date time.Time, timeOfDay string, durationMinutes int, tzName string) (start, end time.Time, err error) {
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err = resolveLocalInstant(date, hour, minute, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(time.Duration(durationMinutes) * time.Minute), nil
}
