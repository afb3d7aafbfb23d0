// Package core orchestrates the availability engine, the recurring-series
// planner, and the route optimiser against a tenant's store and travel-time
// cache. It is the seam between the HTTP edge and the pure domain packages:
// handlers never touch store.Store, travelcache.Engine, or travel.Matrix
// directly.
package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/availability"
	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/domainerr"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/lock"
	"github.com/barkbox/walkmarket/observability"
	"github.com/barkbox/walkmarket/route"
	"github.com/barkbox/walkmarket/series"
	"github.com/barkbox/walkmarket/servicearea"
	"github.com/barkbox/walkmarket/store"
	"github.com/barkbox/walkmarket/travel"
	"github.com/barkbox/walkmarket/travelcache"
)

// Config tunes the orchestration layer. Only an empty DefaultTimeZone falls
// back to a default (series.DefaultTimeZone); other fields are used as given,
// so a zero MaxAdvanceDays disables the horizon check. DefaultConfig holds
// the same defaults as config.Config.
type Config struct {
	AvailabilityCfg  availability.Config
	TravelCfg        travel.Config
	MinNoticeHours   int
	MaxAdvanceDays   int
	DefaultTimeZone  string
}

// DefaultConfig matches config.Config's defaults.
func DefaultConfig() Config {
	return Config{
		AvailabilityCfg: availability.DefaultConfig(),
		TravelCfg:       travel.DefaultConfig(),
		MinNoticeHours:  2,
		MaxAdvanceDays:  30,
		DefaultTimeZone: series.DefaultTimeZone,
	}
}

// Service wires one org's store and travel cache to the pure domain
// packages. A Service is scoped to a single tenant's store.Store; the HTTP
// edge resolves the org-specific Service via core.Registry per request.
type Service struct {
	store   store.Store
	travel  *travelcache.Engine
	metrics *observability.Metrics
	logger  zerolog.Logger
	cfg     Config
	now     func() time.Time
	planner *series.Planner
}

// New constructs a Service. travelCache and metrics may be nil.
func New(st store.Store, travelCache *travelcache.Engine, locker *lock.AdvisoryLocker, metrics *observability.Metrics, logger zerolog.Logger, cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultTimeZone == "" {
		cfg.DefaultTimeZone = series.DefaultTimeZone
	}
	return &Service{
		store:   st,
		travel:  travelCache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     now,
		planner: series.NewPlanner(st, locker, logger, now),
	}
}

// GetAvailability computes the bookable slots for a walker on one date at
// one service location, filtered to those at least MinNoticeHours out from
// now and capped by MaxAdvanceDays.
func (s *Service) GetAvailability(ctx context.Context, org, walkerID, locationID uuid.UUID, serviceMinutes int, date time.Time, tzName string) ([]availability.Slot, error) {
	if tzName == "" {
		tzName = s.cfg.DefaultTimeZone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, domainerr.Validation("unknown time zone %q", tzName)
	}

	now := s.now()
	if s.cfg.MaxAdvanceDays > 0 && date.After(now.AddDate(0, 0, s.cfg.MaxAdvanceDays)) {
		return nil, domainerr.Validation("date is beyond the %d-day availability horizon", s.cfg.MaxAdvanceDays)
	}

	weekday := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).Weekday()
	hours, err := s.store.FindWorkingHours(ctx, org, walkerID, weekday)
	if err != nil {
		return nil, domainerr.Internal(err, "loading working hours")
	}
	if hours == nil {
		return nil, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.Add(24 * time.Hour)

	bookings, err := s.store.FindBookingsForWalkerInRange(ctx, org, walkerID, dayStart, dayEnd)
	if err != nil {
		return nil, domainerr.Internal(err, "loading bookings")
	}
	blocks, err := s.store.FindBlocksForWalkerInRange(ctx, org, walkerID, dayStart, dayEnd)
	if err != nil {
		return nil, domainerr.Internal(err, "loading blocks")
	}

	slots := make([]booking.Slot, 0, len(bookings))
	seenLocations := map[uuid.UUID]bool{}
	var otherLocations []uuid.UUID
	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		slots = append(slots, booking.Slot{BookingID: b.ID, LocationID: b.LocationID, Start: b.ScheduledStart, End: b.ScheduledEnd})
		if b.LocationID != locationID && !seenLocations[b.LocationID] {
			seenLocations[b.LocationID] = true
			otherLocations = append(otherLocations, b.LocationID)
		}
	}

	matrix := s.populateTravelMatrix(ctx, org, locationID, otherLocations, dayStart)

	start := s.now()
	result, err := availability.CalculateSlots(hours, slots, blocks, matrix, locationID, serviceMinutes, date, tzName, s.cfg.AvailabilityCfg)
	if err != nil {
		return nil, domainerr.Internal(err, "computing availability")
	}

	earliest := now.Add(time.Duration(s.cfg.MinNoticeHours) * time.Hour)
	filtered := result[:0]
	for _, slot := range result {
		if slot.Start.Before(earliest) {
			continue
		}
		filtered = append(filtered, slot)
	}

	if s.metrics != nil {
		s.metrics.TrackAvailabilityQuery(float64(s.now().Sub(start).Milliseconds()), len(filtered))
	}
	return filtered, nil
}

// GetRoute sequences a walker's active bookings for one date into an
// optimised visit order.
func (s *Service) GetRoute(ctx context.Context, org, walkerID uuid.UUID, date time.Time, tzName string) (*route.Result, error) {
	if tzName == "" {
		tzName = s.cfg.DefaultTimeZone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, domainerr.Validation("unknown time zone %q", tzName)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.Add(24 * time.Hour)

	bookings, err := s.store.FindBookingsForWalkerInRange(ctx, org, walkerID, dayStart, dayEnd)
	if err != nil {
		return nil, domainerr.Internal(err, "loading bookings for route")
	}

	var stops []route.Stop
	var locIDs []uuid.UUID
	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		coords, err := s.store.FindLocationCoordinates(ctx, org, b.LocationID)
		if err != nil {
			return nil, domainerr.Internal(err, "resolving coordinates for booking %s", b.ID)
		}
		stops = append(stops, route.Stop{
			BookingID:      b.ID,
			LocationID:     b.LocationID,
			Coordinates:    coords,
			ScheduledStart: b.ScheduledStart,
			Duration:       b.ScheduledEnd.Sub(b.ScheduledStart),
		})
		locIDs = append(locIDs, b.LocationID)
	}

	if len(stops) == 0 {
		return &route.Result{}, nil
	}

	matrix := travel.NewMatrix()
	for i, origin := range locIDs {
		for j, dest := range locIDs {
			if i == j {
				continue
			}
			if mins, ok := s.travelMinutes(ctx, org, origin, dest, dayStart); ok {
				matrix.Set(origin, dest, mins)
			}
		}
	}

	result := route.Optimize(stops, matrix)
	if s.metrics != nil {
		s.metrics.TrackRouteOptimization(len(result.Stops), float64(result.SavingsVsChronological))
	}
	return &result, nil
}

// CreateRecurringSeries materialises a recurring booking series.
func (s *Service) CreateRecurringSeries(ctx context.Context, req series.CreateRequest) (*series.Result, error) {
	start := s.now()
	result, err := s.planner.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TrackSeriesMaterialization(result.TotalPlanned, len(result.Conflicts), float64(s.now().Sub(start).Milliseconds()))
	}
	return result, nil
}

// CancelRecurringSeries cancels a series, scoped per scope.
func (s *Service) CancelRecurringSeries(ctx context.Context, org, callerID, seriesID uuid.UUID, scope series.CancellationScope) (int, error) {
	return s.planner.Cancel(ctx, org, callerID, seriesID, scope)
}

// FindServingWalkers returns every walker whose declared service area
// contains coords, sorted ascending by priority.
func (s *Service) FindServingWalkers(ctx context.Context, org uuid.UUID, coords geo.Coordinates) ([]servicearea.Match, error) {
	areas, err := s.store.FindServiceAreasForOrg(ctx, org)
	if err != nil {
		return nil, domainerr.Internal(err, "loading service areas")
	}
	return servicearea.FindWalkersForLocation(areas, coords), nil
}

// WalkerServesLocation reports whether walkerID's declared boundaries cover
// coords, returning the lowest-priority matching boundary.
func (s *Service) WalkerServesLocation(ctx context.Context, org, walkerID uuid.UUID, coords geo.Coordinates) (servicearea.Boundary, bool, error) {
	areas, err := s.store.FindServiceAreasForWalker(ctx, org, walkerID)
	if err != nil {
		return servicearea.Boundary{}, false, domainerr.Internal(err, "loading service areas for walker")
	}
	boundary, ok := servicearea.WalkerCanServiceLocation(areas, walkerID, coords)
	return boundary, ok, nil
}

// populateTravelMatrix fills in the travel time between target and every
// other distinct booking location for the day, in both directions. Entries
// that cannot be resolved (missing coordinates) are left absent; the
// availability engine falls back to its configured default travel time and
// downgrades confidence accordingly.
func (s *Service) populateTravelMatrix(ctx context.Context, org, target uuid.UUID, others []uuid.UUID, instant time.Time) *travel.Matrix {
	matrix := travel.NewMatrix()
	for _, loc := range others {
		if mins, ok := s.travelMinutes(ctx, org, loc, target, instant); ok {
			matrix.Set(loc, target, mins)
		}
		if mins, ok := s.travelMinutes(ctx, org, target, loc, instant); ok {
			matrix.Set(target, loc, mins)
		}
	}
	return matrix
}

// travelMinutes resolves the peak-adjusted travel time from origin to dest,
// preferring the travel-time cache and falling back to a Haversine-distance
// estimate computed from stored coordinates. The computed estimate is
// written back into the cache so the next lookup for this pair is a hit.
func (s *Service) travelMinutes(ctx context.Context, org, origin, dest uuid.UUID, instant time.Time) (int, bool) {
	if origin == dest {
		return 0, true
	}
	if s.travel != nil {
		if entry, ok := s.travel.Get(ctx, org, origin, dest); ok {
			if s.metrics != nil {
				s.metrics.TrackTravelCache(true)
			}
			return s.cfg.TravelCfg.Adjust(entry.Minutes, instant), true
		}
	}
	if s.metrics != nil {
		s.metrics.TrackTravelCache(false)
	}

	originCoords, err := s.store.FindLocationCoordinates(ctx, org, origin)
	if err != nil {
		return 0, false
	}
	destCoords, err := s.store.FindLocationCoordinates(ctx, org, dest)
	if err != nil {
		return 0, false
	}
	base := originCoords.EstimateTravelMinutes(destCoords)
	if s.travel != nil {
		s.travel.Upsert(ctx, org, travelcache.Entry{
			Origin:      origin,
			Destination: dest,
			Minutes:     base,
			ComputedAt:  s.now(),
		})
	}
	return s.cfg.TravelCfg.Adjust(base, instant), true
}
