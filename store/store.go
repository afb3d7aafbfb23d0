// Package store declares the persistence interfaces the domain packages
// depend on. Concrete implementations (a reference SQLite adapter lives in
// storage/sqlite) are external collaborators; the domain only ever talks to
// these interfaces so it can be tested against fakes.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/availability"
	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/servicearea"
)

// Tx is an open transaction. Callers must call exactly one of Commit or
// Rollback.
type Tx interface {
	BookingWriter
	SeriesWriter
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BookingReader reads booking data.
type BookingReader interface {
	FindBooking(ctx context.Context, org, id uuid.UUID) (*booking.Booking, error)
	FindBookingsForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Booking, error)
	FindBookingsBySeriesID(ctx context.Context, org, seriesID uuid.UUID) ([]booking.Booking, error)
}

// BookingWriter mutates booking data inside a transaction.
type BookingWriter interface {
	CreateBookingInTx(ctx context.Context, b booking.Booking) error
	UpdateBookingStatus(ctx context.Context, org, id uuid.UUID, next booking.Status) error
	CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error)
}

// BlockReader reads walker-declared blocked time.
type BlockReader interface {
	FindBlocksForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Block, error)
}

// WorkingHoursReader reads a walker's configured working-hours window for
// a given weekday. Returns (nil, nil) when the walker has no configured
// hours for that day — a miss, not an error.
type WorkingHoursReader interface {
	FindWorkingHours(ctx context.Context, org, walkerID uuid.UUID, weekday time.Weekday) (*availability.DayHours, error)
}

// LocationReader resolves a location id to its coordinates.
type LocationReader interface {
	FindLocationCoordinates(ctx context.Context, org, locationID uuid.UUID) (geo.Coordinates, error)
}

// ServiceAreaReader reads walker-declared service-area boundaries.
type ServiceAreaReader interface {
	FindServiceAreasForOrg(ctx context.Context, org uuid.UUID) ([]servicearea.Boundary, error)
	FindServiceAreasForWalker(ctx context.Context, org, walkerID uuid.UUID) ([]servicearea.Boundary, error)
}

// Series is the persisted recurring-series row.
type Series struct {
	ID                    uuid.UUID
	OrgID                 uuid.UUID
	CustomerID            uuid.UUID
	WalkerID              uuid.UUID
	ServiceID             uuid.UUID
	LocationID            uuid.UUID
	Frequency             string
	DayOfWeek             int
	TimeOfDay             string
	TimeZone              string
	StartDate             time.Time
	EndDate               *time.Time
	OccurrenceCount       *int
	PriceCents            int
	Notes                 string
	IdempotencyKey        *uuid.UUID
	IdempotencyExpiresAt  *time.Time
	IsActive              bool
}

// SeriesReader reads recurring-series data.
type SeriesReader interface {
	FindSeriesByID(ctx context.Context, org, id uuid.UUID) (*Series, error)
	FindSeriesByIdempotencyKey(ctx context.Context, org uuid.UUID, key uuid.UUID, now time.Time) (*Series, error)
}

// SeriesWriter mutates recurring-series data inside a transaction.
type SeriesWriter interface {
	CreateSeriesInTx(ctx context.Context, s Series) error
	DeactivateSeries(ctx context.Context, org, id uuid.UUID) error
}

// Store is the full persistence surface the core depends on, plus the
// ability to open a transaction. It holds no locks; per-walker advisory
// locking is done by lock.AdvisoryLocker.
type Store interface {
	BookingReader
	BlockReader
	SeriesReader
	WorkingHoursReader
	LocationReader
	ServiceAreaReader
	BeginTx(ctx context.Context) (Tx, error)

	// CancelBookingsBySeries and DeactivateSeries are single-statement
	// writes outside the multi-insert transaction that series creation
	// requires; cancellation does not need the same atomicity guarantee
	// since it monotonically moves bookings toward a terminal state.
	CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error)
	DeactivateSeries(ctx context.Context, org, id uuid.UUID) error
}

// ErrDuplicateBooking is returned (or wrapped) by CreateBookingInTx when the
// unique (walker, scheduled_start, scheduled_end) constraint is violated.
var ErrDuplicateBooking = duplicateBookingError{}

type duplicateBookingError struct{}

func (duplicateBookingError) Error() string { return "store: duplicate booking for walker and time range" }
