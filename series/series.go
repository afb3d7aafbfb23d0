package series

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/domainerr"
	"github.com/barkbox/walkmarket/lock"
	"github.com/barkbox/walkmarket/store"
)

// DefaultTimeZone is the literal default carried over from the source
// system: the planner time zone is always America/Denver when a request
// omits one, regardless of the walker's own configured zone. This is
// preserved deliberately, not a bug — see the design notes on open
// questions.
const DefaultTimeZone = "America/Denver"

const idempotencyWindow = 24 * time.Hour

// EndCondition is exactly one of Occurrences or EndDate.
type EndCondition struct {
	Occurrences *int
	EndDate     *time.Time
}

// CreateRequest describes a recurring series to materialise.
type CreateRequest struct {
	OrgID           uuid.UUID
	CustomerID      uuid.UUID
	WalkerID        uuid.UUID
	ServiceID       uuid.UUID
	LocationID      uuid.UUID
	Frequency       Frequency
	StartDate       time.Time
	TimeOfDay       string
	TimeZone        string
	End             EndCondition
	DurationMinutes int
	PriceCents      int
	Notes           string
	PreviewOnly     bool
	IdempotencyKey  *uuid.UUID
}

// Result is the planner's response.
type Result struct {
	Series          *store.Series
	BookingsCreated int
	TotalPlanned    int
	Conflicts       []Conflict
	PreviewDates    []string
}

func (r CreateRequest) validate(now time.Time) error {
	if r.Frequency != Weekly && r.Frequency != BiWeekly && r.Frequency != Monthly {
		return domainerr.Validation("unknown frequency %q", r.Frequency)
	}
	if r.End.Occurrences == nil && r.End.EndDate == nil {
		return domainerr.Validation("end condition must specify occurrences or an end date")
	}
	if r.End.Occurrences != nil && (*r.End.Occurrences < 1 || *r.End.Occurrences > 52) {
		return domainerr.Validation("occurrences must be between 1 and 52, got %d", *r.End.Occurrences)
	}
	if r.End.EndDate != nil && !r.End.EndDate.After(r.StartDate) {
		return domainerr.Validation("end date must be after start date")
	}
	if _, _, err := parseTimeOfDay(r.TimeOfDay); err != nil {
		return domainerr.Validation("invalid time_of_day %q", r.TimeOfDay)
	}
	return nil
}

// Planner materialises recurring series: generation, batched conflict
// detection, and atomic, idempotent writes guarded by a per-walker
// advisory lock.
type Planner struct {
	st     store.Store
	locker *lock.AdvisoryLocker
	log    zerolog.Logger
	now    func() time.Time
}

// NewPlanner constructs a Planner. now defaults to time.Now when nil.
func NewPlanner(st store.Store, locker *lock.AdvisoryLocker, log zerolog.Logger, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{st: st, locker: locker, log: log, now: now}
}

// Create generates occurrence dates, checks conflicts in batch, and
// (unless PreviewOnly) atomically materialises the series and its
// conflict-free bookings.
func (p *Planner) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	now := p.now()
	if err := req.validate(now); err != nil {
		return nil, err
	}

	tz := req.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}

	if req.IdempotencyKey != nil {
		if existing, err := p.st.FindSeriesByIdempotencyKey(ctx, req.OrgID, *req.IdempotencyKey, now); err != nil {
			return nil, fmt.Errorf("series: checking idempotency key: %w", err)
		} else if existing != nil {
			bookings, err := p.st.FindBookingsBySeriesID(ctx, req.OrgID, existing.ID)
			if err != nil {
				return nil, fmt.Errorf("series: loading bookings for idempotent replay: %w", err)
			}
			p.log.Info().Str("series_id", existing.ID.String()).Msg("recurring series idempotency hit")
			return &Result{Series: existing, BookingsCreated: len(bookings), TotalPlanned: len(bookings)}, nil
		}
	}

	dayOfWeek := int(req.StartDate.Weekday())
	dates := GenerateOccurrenceDates(req.StartDate, req.Frequency, dayOfWeek, req.End.EndDate, req.End.Occurrences)

	conflicts, err := CheckConflictsBatch(ctx, p.st, req.OrgID, req.WalkerID, dates, req.TimeOfDay, req.DurationMinutes, tz)
	if err != nil {
		return nil, err
	}

	conflictDates := make(map[time.Time]bool, len(conflicts))
	for _, c := range conflicts {
		conflictDates[c.Date] = true
		p.log.Warn().Str("walker_id", req.WalkerID.String()).Str("date", c.Date.Format("2006-01-02")).Str("reason", c.Reason).Msg("skipping conflicting occurrence")
	}
	var validDates []time.Time
	for _, d := range dates {
		if !conflictDates[d] {
			validDates = append(validDates, d)
		}
	}

	previewDates := make([]string, 0, 5)
	for i, d := range dates {
		if i >= 5 {
			break
		}
		previewDates = append(previewDates, d.Format("2006-01-02"))
	}

	result := &Result{TotalPlanned: len(dates), Conflicts: conflicts, PreviewDates: previewDates}

	if req.PreviewOnly {
		return result, nil
	}

	unlock := p.locker.Lock(req.WalkerID)
	defer unlock()

	created, seriesRow, err := p.materialize(ctx, req, tz, dayOfWeek, validDates)
	if err != nil {
		return nil, err
	}
	result.Series = seriesRow
	result.BookingsCreated = created

	p.log.Info().
		Str("series_id", seriesRow.ID.String()).
		Int("bookings_created", created).
		Int("total_planned", result.TotalPlanned).
		Msg("recurring series materialized")

	return result, nil
}

func (p *Planner) materialize(ctx context.Context, req CreateRequest, tz string, dayOfWeek int, validDates []time.Time) (int, *store.Series, error) {
	tx, err := p.st.BeginTx(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("series: beginning transaction: %w", err)
	}

	seriesRow := store.Series{
		ID:                   uuid.New(),
		OrgID:                req.OrgID,
		CustomerID:           req.CustomerID,
		WalkerID:             req.WalkerID,
		ServiceID:            req.ServiceID,
		LocationID:           req.LocationID,
		Frequency:            string(req.Frequency),
		DayOfWeek:            dayOfWeek,
		TimeOfDay:            req.TimeOfDay,
		TimeZone:             tz,
		StartDate:            req.StartDate,
		EndDate:              req.End.EndDate,
		OccurrenceCount:      req.End.Occurrences,
		PriceCents:           req.PriceCents,
		Notes:                req.Notes,
		IsActive:             true,
	}
	if req.IdempotencyKey != nil {
		expiresAt := p.now().Add(idempotencyWindow)
		seriesRow.IdempotencyKey = req.IdempotencyKey
		seriesRow.IdempotencyExpiresAt = &expiresAt
	}

	if err := tx.CreateSeriesInTx(ctx, seriesRow); err != nil {
		_ = tx.Rollback(ctx)
		return 0, nil, fmt.Errorf("series: inserting series row: %w", err)
	}

	created := 0
	for i, date := range validDates {
		start, end, err := ResolvedWindow(date, req.TimeOfDay, req.DurationMinutes, tz)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, nil, fmt.Errorf("series: resolving occurrence window: %w", err)
		}
		b := booking.Booking{
			ID:               uuid.New(),
			OrgID:            req.OrgID,
			CustomerID:       req.CustomerID,
			WalkerID:         req.WalkerID,
			ServiceID:        req.ServiceID,
			LocationID:       req.LocationID,
			Status:           booking.Pending,
			ScheduledStart:   start,
			ScheduledEnd:     end,
			PriceCents:       req.PriceCents,
			SeriesID:         &seriesRow.ID,
			OccurrenceNumber: i + 1,
		}
		if err := tx.CreateBookingInTx(ctx, b); err != nil {
			if errors.Is(err, store.ErrDuplicateBooking) {
				p.log.Warn().Str("series_id", seriesRow.ID.String()).Time("date", date).Msg("skipping duplicate occurrence booking")
				continue
			}
			_ = tx.Rollback(ctx)
			return 0, nil, fmt.Errorf("series: inserting occurrence booking: %w", err)
		}
		created++
	}

	if created == 0 && len(validDates) > 0 {
		_ = tx.Rollback(ctx)
		return 0, nil, domainerr.Internal(nil, "series: zero bookings created from %d conflict-free occurrences", len(validDates))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("series: committing transaction: %w", err)
	}

	return created, &seriesRow, nil
}

// CancellationScope selects which bookings a series cancellation affects.
type CancellationScope string

const (
	ScopeAllFuture    CancellationScope = "all_future"
	ScopeEntireSeries CancellationScope = "entire_series"
)

// Cancel deactivates a series and cancels its bookings according to scope.
func (p *Planner) Cancel(ctx context.Context, orgID, callerID, seriesID uuid.UUID, scope CancellationScope) (int, error) {
	s, err := p.st.FindSeriesByID(ctx, orgID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("series: looking up series: %w", err)
	}
	if s == nil {
		return 0, domainerr.NotFound("series %s not found", seriesID)
	}
	if s.CustomerID != callerID {
		return 0, domainerr.Authorization("caller does not own series %s", seriesID)
	}
	if !s.IsActive {
		return 0, domainerr.StateTransition("series %s is already inactive", seriesID)
	}

	var cutoff *time.Time
	if scope == ScopeAllFuture {
		now := p.now()
		cutoff = &now
	}

	unlock := p.locker.Lock(s.WalkerID)
	defer unlock()

	cancelled, err := p.st.CancelBookingsBySeries(ctx, orgID, seriesID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("series: cancelling bookings: %w", err)
	}
	if err := p.st.DeactivateSeries(ctx, orgID, seriesID); err != nil {
		return 0, fmt.Errorf("series: deactivating series: %w", err)
	}

	p.log.Info().Str("series_id", seriesID.String()).Int("bookings_cancelled", cancelled).Str("scope", string(scope)).Msg("recurring series cancelled")

	return cancelled, nil
}
