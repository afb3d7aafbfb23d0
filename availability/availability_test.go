package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/travel"
)

func nineToFive() *DayHours {
	return &DayHours{StartHour: 9, StartMinute: 0, EndHour: 17, EndMinute: 0}
}

func TestCalculateSlotsEmptyDayYields15Slots(t *testing.T) {
	target := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)

	slots, err := CalculateSlots(nineToFive(), nil, nil, travel.NewMatrix(), target, 60, date, "UTC", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
	if slots[0].Start.Hour() != 9 || slots[len(slots)-1].Start.Hour() != 16 {
		t.Fatalf("expected first slot at 09:00 and last at 16:00, got %v .. %v", slots[0].Start, slots[len(slots)-1].Start)
	}
}

func TestCalculateSlotsNoWorkingHoursIsEmptyNotError(t *testing.T) {
	target := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	slots, err := CalculateSlots(nil, nil, nil, travel.NewMatrix(), target, 60, date, "UTC", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots != nil {
		t.Fatalf("expected nil slots, got %v", slots)
	}
}

func TestCalculateSlotsBookingBlocksTravelBuffer(t *testing.T) {
	target := uuid.New()
	other := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)

	bookingStart := time.Date(2024, 6, 17, 10, 0, 0, 0, time.UTC)
	bookingEnd := time.Date(2024, 6, 17, 11, 0, 0, 0, time.UTC)
	bookings := []booking.Slot{{BookingID: uuid.New(), LocationID: other, Start: bookingStart, End: bookingEnd}}

	slots, err := CalculateSlots(nineToFive(), bookings, nil, travel.NewMatrix(), target, 60, date, "UTC", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range slots {
		if booking.Overlaps(s.Start, s.End, bookingStart, bookingEnd) {
			t.Fatalf("slot %v-%v overlaps existing booking", s.Start, s.End)
		}
	}

	// First slot after the booking must respect default-travel(20) + buffer(15) = 35min,
	// landing on the 12:00 candidate rather than 11:00 or 11:30.
	var firstAfterBooking *Slot
	for i := range slots {
		if slots[i].Start.After(bookingEnd) || slots[i].Start.Equal(bookingEnd) {
			firstAfterBooking = &slots[i]
			break
		}
	}
	if firstAfterBooking == nil {
		t.Fatal("expected at least one slot after the booking")
	}
	if firstAfterBooking.Start.Hour() != 12 {
		t.Fatalf("expected first post-booking slot at 12:00, got %v", firstAfterBooking.Start)
	}
}

func TestCalculateSlotsBlockExcludesOverlap(t *testing.T) {
	target := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	blockStart := time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC)
	blockEnd := time.Date(2024, 6, 17, 13, 0, 0, 0, time.UTC)

	slots, err := CalculateSlots(nineToFive(), nil, []booking.Block{{ID: uuid.New(), Start: blockStart, End: blockEnd}}, travel.NewMatrix(), target, 60, date, "UTC", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if booking.Overlaps(s.Start, s.End, blockStart, blockEnd) {
			t.Fatalf("slot %v-%v overlaps block", s.Start, s.End)
		}
	}
	// 13:00 start should be present (adjacent, not overlapping).
	found := false
	for _, s := range slots {
		if s.Start.Equal(blockEnd) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a slot starting exactly at block end")
	}
}

func TestCalculateSlotsServiceLongerThanDayYieldsNone(t *testing.T) {
	target := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	slots, err := CalculateSlots(nineToFive(), nil, nil, travel.NewMatrix(), target, 600, date, "UTC", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected zero slots for an oversized service, got %d", len(slots))
	}
}

func TestCalculateSlotsInvalidTimeZoneErrors(t *testing.T) {
	target := uuid.New()
	date := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	if _, err := CalculateSlots(nineToFive(), nil, nil, travel.NewMatrix(), target, 60, date, "Not/AZone", DefaultConfig()); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestFindScheduleGapsThreeGaps(t *testing.T) {
	workStart := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	workEnd := time.Date(2024, 6, 17, 17, 0, 0, 0, time.UTC)

	bookings := []booking.Slot{
		{Start: time.Date(2024, 6, 17, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 17, 11, 0, 0, 0, time.UTC)},
	}
	blocks := []booking.Block{
		{Start: time.Date(2024, 6, 17, 14, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 17, 15, 0, 0, 0, time.UTC)},
	}

	gaps := FindScheduleGaps(workStart, workEnd, bookings, blocks)
	if len(gaps) != 3 {
		t.Fatalf("expected 3 gaps, got %d: %+v", len(gaps), gaps)
	}
	wantDurations := []int{60, 180, 120}
	for i, g := range gaps {
		if g.DurationMinutes != wantDurations[i] {
			t.Errorf("gap %d duration = %d, want %d", i, g.DurationMinutes, wantDurations[i])
		}
	}
}

func TestMergeIntervalsOverlapping(t *testing.T) {
	workStart := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	workEnd := time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC)
	bookings := []booking.Slot{
		{Start: time.Date(2024, 6, 17, 9, 30, 0, 0, time.UTC), End: time.Date(2024, 6, 17, 10, 30, 0, 0, time.UTC)},
		{Start: time.Date(2024, 6, 17, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 17, 11, 0, 0, 0, time.UTC)},
	}
	gaps := FindScheduleGaps(workStart, workEnd, bookings, nil)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps around the merged interval, got %d: %+v", len(gaps), gaps)
	}
}
