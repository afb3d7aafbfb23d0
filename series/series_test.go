package series

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/availability"
	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/lock"
	"github.com/barkbox/walkmarket/servicearea"
	"github.com/barkbox/walkmarket/store"
)

// fakeStore is an in-memory store.Store + store.Tx used to exercise the
// planner without a real database.
type fakeStore struct {
	bookings      []booking.Booking
	blocks        []booking.Block
	seriesByID    map[uuid.UUID]*store.Series
	seriesByIdemp map[uuid.UUID]*store.Series
	failAllInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seriesByID:    map[uuid.UUID]*store.Series{},
		seriesByIdemp: map[uuid.UUID]*store.Series{},
	}
}

func (f *fakeStore) FindBooking(ctx context.Context, org, id uuid.UUID) (*booking.Booking, error) {
	return nil, nil
}
func (f *fakeStore) FindBookingsForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Booking, error) {
	return f.bookings, nil
}
func (f *fakeStore) FindBookingsBySeriesID(ctx context.Context, org, seriesID uuid.UUID) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range f.bookings {
		if b.SeriesID != nil && *b.SeriesID == seriesID {
			out = append(out, b)
		}
	}
	return out, nil
}
func (f *fakeStore) FindBlocksForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Block, error) {
	return f.blocks, nil
}
func (f *fakeStore) FindSeriesByID(ctx context.Context, org, id uuid.UUID) (*store.Series, error) {
	return f.seriesByID[id], nil
}
func (f *fakeStore) FindSeriesByIdempotencyKey(ctx context.Context, org uuid.UUID, key uuid.UUID, now time.Time) (*store.Series, error) {
	s, ok := f.seriesByIdemp[key]
	if !ok {
		return nil, nil
	}
	if s.IdempotencyExpiresAt != nil && now.After(*s.IdempotencyExpiresAt) {
		return nil, nil
	}
	return s, nil
}
func (f *fakeStore) CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error) {
	count := 0
	for i := range f.bookings {
		if f.bookings[i].SeriesID == nil || *f.bookings[i].SeriesID != seriesID {
			continue
		}
		if onlyFutureAfter != nil && !f.bookings[i].ScheduledStart.After(*onlyFutureAfter) {
			continue
		}
		f.bookings[i].Status = booking.Cancelled
		count++
	}
	return count, nil
}
func (f *fakeStore) DeactivateSeries(ctx context.Context, org, id uuid.UUID) error {
	if s, ok := f.seriesByID[id]; ok {
		s.IsActive = false
	}
	return nil
}
func (f *fakeStore) BeginTx(ctx context.Context) (store.Tx, error) {
	return &fakeTx{f: f}, nil
}
func (f *fakeStore) FindWorkingHours(ctx context.Context, org, walkerID uuid.UUID, weekday time.Weekday) (*availability.DayHours, error) {
	return nil, nil
}
func (f *fakeStore) FindLocationCoordinates(ctx context.Context, org, locationID uuid.UUID) (geo.Coordinates, error) {
	return geo.Coordinates{}, nil
}
func (f *fakeStore) FindServiceAreasForOrg(ctx context.Context, org uuid.UUID) ([]servicearea.Boundary, error) {
	return nil, nil
}
func (f *fakeStore) FindServiceAreasForWalker(ctx context.Context, org, walkerID uuid.UUID) ([]servicearea.Boundary, error) {
	return nil, nil
}

type fakeTx struct {
	f         *fakeStore
	committed bool
	created   []store.Series
}

func (t *fakeTx) CreateBookingInTx(ctx context.Context, b booking.Booking) error {
	if t.f.failAllInsert {
		return store.ErrDuplicateBooking
	}
	t.f.bookings = append(t.f.bookings, b)
	return nil
}
func (t *fakeTx) UpdateBookingStatus(ctx context.Context, org, id uuid.UUID, next booking.Status) error {
	return nil
}
func (t *fakeTx) CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error) {
	return t.f.CancelBookingsBySeries(ctx, org, seriesID, onlyFutureAfter)
}
func (t *fakeTx) CreateSeriesInTx(ctx context.Context, s store.Series) error {
	cp := s
	t.f.seriesByID[s.ID] = &cp
	if s.IdempotencyKey != nil {
		t.f.seriesByIdemp[*s.IdempotencyKey] = &cp
	}
	t.created = append(t.created, s)
	return nil
}
func (t *fakeTx) DeactivateSeries(ctx context.Context, org, id uuid.UUID) error {
	return t.f.DeactivateSeries(ctx, org, id)
}
func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}
	for _, s := range t.created {
		delete(t.f.seriesByID, s.ID)
		if s.IdempotencyKey != nil {
			delete(t.f.seriesByIdemp, *s.IdempotencyKey)
		}
	}
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func baseRequest() CreateRequest {
	occ := 3
	return CreateRequest{
		OrgID:           uuid.New(),
		CustomerID:      uuid.New(),
		WalkerID:        uuid.New(),
		ServiceID:       uuid.New(),
		LocationID:      uuid.New(),
		Frequency:       Weekly,
		StartDate:       date(2024, 6, 17),
		TimeOfDay:       "09:00",
		TimeZone:        "America/Denver",
		End:             EndCondition{Occurrences: &occ},
		DurationMinutes: 60,
		PriceCents:      5000,
	}
}

func TestPlannerCreateMaterializesAllOccurrences(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	result, err := p.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BookingsCreated != 3 || result.TotalPlanned != 3 {
		t.Fatalf("expected 3 bookings created, got %+v", result)
	}
	if result.Series == nil {
		t.Fatal("expected series to be set")
	}
}

func TestPlannerCreatePreviewOnlyDoesNotWrite(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	req := baseRequest()
	req.PreviewOnly = true
	result, err := p.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Series != nil {
		t.Fatal("expected no series in preview mode")
	}
	if len(st.bookings) != 0 {
		t.Fatalf("expected no bookings written in preview mode, got %d", len(st.bookings))
	}
	if len(result.PreviewDates) == 0 {
		t.Fatal("expected preview dates to be populated")
	}
}

func TestPlannerCreateIdempotentReplay(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	key := uuid.New()
	req := baseRequest()
	req.IdempotencyKey = &key

	first, err := p.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on first create: %v", err)
	}

	bookingCountAfterFirst := len(st.bookings)

	second, err := p.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if second.Series.ID != first.Series.ID {
		t.Fatalf("expected replay to return the same series")
	}
	if len(st.bookings) != bookingCountAfterFirst {
		t.Fatalf("expected no new bookings written on replay, had %d now %d", bookingCountAfterFirst, len(st.bookings))
	}
}

func TestPlannerCreateSkipsConflictingOccurrences(t *testing.T) {
	st := newFakeStore()
	// Occurrence 2 (2024-06-24 09:00 MDT = 15:00 UTC) conflicts.
	conflictStart := time.Date(2024, 6, 24, 15, 30, 0, 0, time.UTC)
	st.bookings = []booking.Booking{
		{Status: booking.Confirmed, ScheduledStart: conflictStart, ScheduledEnd: conflictStart.Add(time.Hour)},
	}
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	result, err := p.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", result.Conflicts)
	}
	if result.BookingsCreated != 2 {
		t.Fatalf("expected 2 bookings created (3 planned minus 1 conflict), got %d", result.BookingsCreated)
	}
}

func TestPlannerCreateRollsBackWhenZeroBookingsCreated(t *testing.T) {
	st := newFakeStore()
	st.failAllInsert = true
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	_, err := p.Create(context.Background(), baseRequest())
	if err == nil {
		t.Fatal("expected an internal error when every insert is a duplicate")
	}
	if len(st.seriesByID) != 0 {
		t.Fatalf("expected series row to be rolled back, found %d", len(st.seriesByID))
	}
}

func TestPlannerCreateRejectsInvalidOccurrenceCount(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)
	req := baseRequest()
	tooMany := 99
	req.End = EndCondition{Occurrences: &tooMany}
	if _, err := p.Create(context.Background(), req); err == nil {
		t.Fatal("expected validation error for occurrence count > 52")
	}
}

func TestPlannerCancelEntireSeries(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	result, err := p.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := p.Cancel(context.Background(), result.Series.OrgID, result.Series.CustomerID, result.Series.ID, ScopeEntireSeries)
	if err != nil {
		t.Fatalf("unexpected error cancelling: %v", err)
	}
	if cancelled != 3 {
		t.Fatalf("expected 3 bookings cancelled, got %d", cancelled)
	}
	if st.seriesByID[result.Series.ID].IsActive {
		t.Fatal("expected series to be deactivated")
	}
}

func TestPlannerCancelRejectsWrongOwner(t *testing.T) {
	st := newFakeStore()
	p := NewPlanner(st, lock.NewAdvisoryLocker(), testLogger(), nil)

	result, err := p.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Cancel(context.Background(), result.Series.OrgID, uuid.New(), result.Series.ID, ScopeEntireSeries)
	if err == nil {
		t.Fatal("expected authorization error for non-owning caller")
	}
}
