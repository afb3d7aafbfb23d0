// Package booking defines the booking entity, its state machine, and the
// overlap predicates shared by the availability engine, the recurring-series
// planner, and the route optimiser.
package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a booking's lifecycle state.
type Status string

const (
	Pending    Status = "pending"
	Confirmed  Status = "confirmed"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Cancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// IsActive reports whether a booking in status s should be considered when
// checking for scheduling conflicts.
func (s Status) IsActive() bool {
	return s != Cancelled && s != Completed
}

var transitions = map[Status]map[Status]bool{
	Pending:    {Confirmed: true, Cancelled: true},
	Confirmed:  {InProgress: true, Cancelled: true},
	InProgress: {Completed: true, Cancelled: true},
	Completed:  {},
	Cancelled:  {},
}

// CanTransition reports whether moving from s to next is a legal state
// transition.
func (s Status) CanTransition(next Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	return allowed[next]
}

// Booking is a scheduled service visit.
type Booking struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	CustomerID       uuid.UUID
	WalkerID         uuid.UUID
	ServiceID        uuid.UUID
	LocationID       uuid.UUID
	Status           Status
	ScheduledStart   time.Time
	ScheduledEnd     time.Time
	PriceCents       int
	SeriesID         *uuid.UUID
	OccurrenceNumber int
}

// Transition validates and applies a status change, returning an error
// naming the illegal transition rather than silently applying it. Time,
// price, and location fields are never touched by a transition.
func (b *Booking) Transition(next Status) error {
	if !b.Status.CanTransition(next) {
		return fmt.Errorf("booking: illegal transition from %s to %s", b.Status, next)
	}
	b.Status = next
	return nil
}

// Slot is the engine-facing view of a booking: just enough to test overlap
// and travel adjacency, independent of booking lifecycle fields.
type Slot struct {
	BookingID  uuid.UUID
	LocationID uuid.UUID
	Start      time.Time
	End        time.Time
}

// Overlaps implements the strict half-open overlap predicate used
// throughout the scheduling system: a.Start < b.End && a.End > b.Start.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Block is a walker-declared interval during which no booking may overlap.
type Block struct {
	ID    uuid.UUID
	Start time.Time
	End   time.Time
}
