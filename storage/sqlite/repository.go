package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/availability"
	"github.com/barkbox/walkmarket/booking"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/servicearea"
	"github.com/barkbox/walkmarket/store"
)

const timeLayout = time.RFC3339Nano

var _ store.Store = (*DB)(nil)

func (db *DB) FindBooking(ctx context.Context, org, id uuid.UUID) (*booking.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, org_id, customer_id, walker_id, service_id, location_id, status,
		       scheduled_start, scheduled_end, price_cents, series_id, occurrence_number
		FROM bookings WHERE org_id = ? AND id = ?`, org.String(), id.String())
	return scanBooking(row)
}

func (db *DB) FindBookingsForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, org_id, customer_id, walker_id, service_id, location_id, status,
		       scheduled_start, scheduled_end, price_cents, series_id, occurrence_number
		FROM bookings
		WHERE org_id = ? AND walker_id = ? AND scheduled_start < ? AND scheduled_end > ?
		ORDER BY scheduled_start`,
		org.String(), walkerID.String(), end.Format(timeLayout), start.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying bookings in range: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) FindBookingsBySeriesID(ctx context.Context, org, seriesID uuid.UUID) ([]booking.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, org_id, customer_id, walker_id, service_id, location_id, status,
		       scheduled_start, scheduled_end, price_cents, series_id, occurrence_number
		FROM bookings WHERE org_id = ? AND series_id = ? ORDER BY occurrence_number`,
		org.String(), seriesID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying bookings by series: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) FindBlocksForWalkerInRange(ctx context.Context, org, walkerID uuid.UUID, start, end time.Time) ([]booking.Block, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, start_at, end_at FROM blocks
		WHERE org_id = ? AND walker_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at`,
		org.String(), walkerID.String(), end.Format(timeLayout), start.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying blocks in range: %w", err)
	}
	defer rows.Close()

	var out []booking.Block
	for rows.Next() {
		var b booking.Block
		var id, startAt, endAt string
		if err := rows.Scan(&id, &startAt, &endAt); err != nil {
			return nil, err
		}
		b.ID, _ = uuid.Parse(id)
		b.Start, _ = time.Parse(timeLayout, startAt)
		b.End, _ = time.Parse(timeLayout, endAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (db *DB) FindSeriesByID(ctx context.Context, org, id uuid.UUID) (*store.Series, error) {
	row := db.QueryRowContext(ctx, seriesSelect+` WHERE org_id = ? AND id = ?`, org.String(), id.String())
	return scanSeries(row)
}

func (db *DB) FindSeriesByIdempotencyKey(ctx context.Context, org uuid.UUID, key uuid.UUID, now time.Time) (*store.Series, error) {
	row := db.QueryRowContext(ctx, seriesSelect+` WHERE org_id = ? AND idempotency_key = ? AND idempotency_expires_at > ?`,
		org.String(), key.String(), now.Format(timeLayout))
	s, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (db *DB) CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error) {
	query := `UPDATE bookings SET status = ? WHERE org_id = ? AND series_id = ? AND status NOT IN (?, ?)`
	args := []any{string(booking.Cancelled), org.String(), seriesID.String(), string(booking.Cancelled), string(booking.Completed)}
	if onlyFutureAfter != nil {
		query += ` AND scheduled_start > ?`
		args = append(args, onlyFutureAfter.Format(timeLayout))
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: cancelling series bookings: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (db *DB) DeactivateSeries(ctx context.Context, org, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `UPDATE recurring_series SET is_active = 0 WHERE org_id = ? AND id = ?`, org.String(), id.String())
	return err
}

func (db *DB) FindWorkingHours(ctx context.Context, org, walkerID uuid.UUID, weekday time.Weekday) (*availability.DayHours, error) {
	row := db.QueryRowContext(ctx, `
		SELECT start_hour, start_minute, end_hour, end_minute FROM working_hours
		WHERE org_id = ? AND walker_id = ? AND day_of_week = ? AND is_active = 1`,
		org.String(), walkerID.String(), int(weekday))
	var h availability.DayHours
	if err := row.Scan(&h.StartHour, &h.StartMinute, &h.EndHour, &h.EndMinute); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// UpsertWorkingHours sets (or replaces) a walker's hours for one weekday.
// Not part of store.Store — used by seed/admin tooling, not the domain core.
func (db *DB) UpsertWorkingHours(ctx context.Context, org, walkerID uuid.UUID, weekday time.Weekday, h availability.DayHours) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO working_hours (org_id, walker_id, day_of_week, start_hour, start_minute, end_hour, end_minute, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (walker_id, day_of_week) DO UPDATE SET
			start_hour = excluded.start_hour, start_minute = excluded.start_minute,
			end_hour = excluded.end_hour, end_minute = excluded.end_minute, is_active = 1`,
		org.String(), walkerID.String(), int(weekday), h.StartHour, h.StartMinute, h.EndHour, h.EndMinute)
	return err
}

func (db *DB) FindLocationCoordinates(ctx context.Context, org, locationID uuid.UUID) (geo.Coordinates, error) {
	row := db.QueryRowContext(ctx, `SELECT latitude, longitude FROM locations WHERE org_id = ? AND id = ?`, org.String(), locationID.String())
	var lat, lng float64
	if err := row.Scan(&lat, &lng); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return geo.Coordinates{}, fmt.Errorf("sqlite: location %s not found", locationID)
		}
		return geo.Coordinates{}, err
	}
	return geo.NewCoordinates(lat, lng)
}

// UpsertLocation records (or replaces) a location's coordinates. Not part
// of store.Store — used by seed/admin tooling, not the domain core.
func (db *DB) UpsertLocation(ctx context.Context, org, locationID uuid.UUID, c geo.Coordinates) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO locations (id, org_id, latitude, longitude) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`,
		locationID.String(), org.String(), c.Lat, c.Lng)
	return err
}

const serviceAreaSelect = `
	SELECT id, org_id, walker_id, name, kind, points, min_lat, max_lat, min_lng, max_lng,
	       priority, price_adjustment_pct
	FROM service_area_boundaries`

func (db *DB) FindServiceAreasForOrg(ctx context.Context, org uuid.UUID) ([]servicearea.Boundary, error) {
	rows, err := db.QueryContext(ctx, serviceAreaSelect+` WHERE org_id = ?`, org.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying service areas: %w", err)
	}
	defer rows.Close()
	return scanServiceAreas(rows)
}

func (db *DB) FindServiceAreasForWalker(ctx context.Context, org, walkerID uuid.UUID) ([]servicearea.Boundary, error) {
	rows, err := db.QueryContext(ctx, serviceAreaSelect+` WHERE org_id = ? AND walker_id = ?`, org.String(), walkerID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying service areas for walker: %w", err)
	}
	defer rows.Close()
	return scanServiceAreas(rows)
}

// UpsertServiceArea records (or replaces) a walker's declared boundary. Not
// part of store.Store — used by seed/admin tooling, not the domain core.
func (db *DB) UpsertServiceArea(ctx context.Context, org uuid.UUID, b servicearea.Boundary) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO service_area_boundaries (
			id, org_id, walker_id, name, kind, points, min_lat, max_lat, min_lng, max_lng,
			priority, price_adjustment_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			walker_id = excluded.walker_id, name = excluded.name, kind = excluded.kind,
			points = excluded.points, min_lat = excluded.min_lat, max_lat = excluded.max_lat,
			min_lng = excluded.min_lng, max_lng = excluded.max_lng, priority = excluded.priority,
			price_adjustment_pct = excluded.price_adjustment_pct`,
		b.AreaID.String(), org.String(), b.WalkerID.String(), b.Name, int(b.Polygon.Kind),
		encodePolygonPoints(b.Polygon.Points), b.Polygon.MinLat, b.Polygon.MaxLat, b.Polygon.MinLng, b.Polygon.MaxLng,
		b.Priority, b.PriceAdjustmentPct)
	return err
}

func encodePolygonPoints(points []geo.PolygonPoint) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%f,%f", p.Lat, p.Lng)
	}
	return strings.Join(parts, ";")
}

func decodePolygonPoints(s string) []geo.PolygonPoint {
	if s == "" {
		return nil
	}
	segments := strings.Split(s, ";")
	points := make([]geo.PolygonPoint, 0, len(segments))
	for _, seg := range segments {
		coords := strings.SplitN(seg, ",", 2)
		if len(coords) != 2 {
			continue
		}
		lat, err1 := strconv.ParseFloat(coords[0], 64)
		lng, err2 := strconv.ParseFloat(coords[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		points = append(points, geo.PolygonPoint{Lat: lat, Lng: lng})
	}
	return points
}

func scanServiceAreas(rows *sql.Rows) ([]servicearea.Boundary, error) {
	var out []servicearea.Boundary
	for rows.Next() {
		var id, orgID, walkerID, name, points string
		var kind int
		var b servicearea.Boundary
		var minLat, maxLat, minLng, maxLng float64
		if err := rows.Scan(&id, &orgID, &walkerID, &name, &kind, &points, &minLat, &maxLat, &minLng, &maxLng,
			&b.Priority, &b.PriceAdjustmentPct); err != nil {
			return nil, err
		}
		b.AreaID, _ = uuid.Parse(id)
		b.WalkerID, _ = uuid.Parse(walkerID)
		b.Name = name
		b.Polygon = geo.Polygon{
			Kind:   geo.PolygonKind(kind),
			Points: decodePolygonPoints(points),
			MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng,
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (db *DB) BeginTx(ctx context.Context) (store.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) CreateBookingInTx(ctx context.Context, b booking.Booking) error {
	var seriesID any
	if b.SeriesID != nil {
		seriesID = b.SeriesID.String()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bookings (id, org_id, customer_id, walker_id, service_id, location_id, status,
		                       scheduled_start, scheduled_end, price_cents, series_id, occurrence_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.OrgID.String(), b.CustomerID.String(), b.WalkerID.String(), b.ServiceID.String(), b.LocationID.String(),
		string(b.Status), b.ScheduledStart.Format(timeLayout), b.ScheduledEnd.Format(timeLayout), b.PriceCents, seriesID, b.OccurrenceNumber)
	if err != nil && isUniqueConstraintViolation(err) {
		return store.ErrDuplicateBooking
	}
	return err
}

func (t *sqlTx) UpdateBookingStatus(ctx context.Context, org, id uuid.UUID, next booking.Status) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE org_id = ? AND id = ?`, string(next), org.String(), id.String())
	return err
}

func (t *sqlTx) CancelBookingsBySeries(ctx context.Context, org, seriesID uuid.UUID, onlyFutureAfter *time.Time) (int, error) {
	query := `UPDATE bookings SET status = ? WHERE org_id = ? AND series_id = ? AND status NOT IN (?, ?)`
	args := []any{string(booking.Cancelled), org.String(), seriesID.String(), string(booking.Cancelled), string(booking.Completed)}
	if onlyFutureAfter != nil {
		query += ` AND scheduled_start > ?`
		args = append(args, onlyFutureAfter.Format(timeLayout))
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *sqlTx) CreateSeriesInTx(ctx context.Context, s store.Series) error {
	var endDate, idempotencyKey, idempotencyExpiresAt any
	var occurrenceCount any
	if s.EndDate != nil {
		endDate = s.EndDate.Format(timeLayout)
	}
	if s.OccurrenceCount != nil {
		occurrenceCount = *s.OccurrenceCount
	}
	if s.IdempotencyKey != nil {
		idempotencyKey = s.IdempotencyKey.String()
	}
	if s.IdempotencyExpiresAt != nil {
		idempotencyExpiresAt = s.IdempotencyExpiresAt.Format(timeLayout)
	}
	isActive := 0
	if s.IsActive {
		isActive = 1
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO recurring_series (
			id, org_id, customer_id, walker_id, service_id, location_id, frequency, day_of_week,
			time_of_day, time_zone, start_date, end_date, occurrence_count, price_cents, notes,
			idempotency_key, idempotency_expires_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.OrgID.String(), s.CustomerID.String(), s.WalkerID.String(), s.ServiceID.String(), s.LocationID.String(),
		s.Frequency, s.DayOfWeek, s.TimeOfDay, s.TimeZone, s.StartDate.Format(timeLayout), endDate, occurrenceCount,
		s.PriceCents, s.Notes, idempotencyKey, idempotencyExpiresAt, isActive)
	return err
}

func (t *sqlTx) DeactivateSeries(ctx context.Context, org, id uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE recurring_series SET is_active = 0 WHERE org_id = ? AND id = ?`, org.String(), id.String())
	return err
}

func (t *sqlTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

const seriesSelect = `
	SELECT id, org_id, customer_id, walker_id, service_id, location_id, frequency, day_of_week,
	       time_of_day, time_zone, start_date, end_date, occurrence_count, price_cents, notes,
	       idempotency_key, idempotency_expires_at, is_active
	FROM recurring_series`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*booking.Booking, error) {
	var b booking.Booking
	var id, orgID, customerID, walkerID, serviceID, locationID, status, start, end string
	var seriesID sql.NullString
	if err := row.Scan(&id, &orgID, &customerID, &walkerID, &serviceID, &locationID, &status, &start, &end, &b.PriceCents, &seriesID, &b.OccurrenceNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	b.ID, _ = uuid.Parse(id)
	b.OrgID, _ = uuid.Parse(orgID)
	b.CustomerID, _ = uuid.Parse(customerID)
	b.WalkerID, _ = uuid.Parse(walkerID)
	b.ServiceID, _ = uuid.Parse(serviceID)
	b.LocationID, _ = uuid.Parse(locationID)
	b.Status = booking.Status(status)
	b.ScheduledStart, _ = time.Parse(timeLayout, start)
	b.ScheduledEnd, _ = time.Parse(timeLayout, end)
	if seriesID.Valid {
		if parsed, err := uuid.Parse(seriesID.String); err == nil {
			b.SeriesID = &parsed
		}
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]booking.Booking, error) {
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, *b)
		}
	}
	return out, rows.Err()
}

func scanSeries(row rowScanner) (*store.Series, error) {
	var s store.Series
	var id, orgID, customerID, walkerID, serviceID, locationID, startDate string
	var endDate, notes, idempotencyKey, idempotencyExpiresAt sql.NullString
	var occurrenceCount sql.NullInt64
	var isActive int
	if err := row.Scan(&id, &orgID, &customerID, &walkerID, &serviceID, &locationID, &s.Frequency, &s.DayOfWeek,
		&s.TimeOfDay, &s.TimeZone, &startDate, &endDate, &occurrenceCount, &s.PriceCents, &notes,
		&idempotencyKey, &idempotencyExpiresAt, &isActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.ID, _ = uuid.Parse(id)
	s.OrgID, _ = uuid.Parse(orgID)
	s.CustomerID, _ = uuid.Parse(customerID)
	s.WalkerID, _ = uuid.Parse(walkerID)
	s.ServiceID, _ = uuid.Parse(serviceID)
	s.LocationID, _ = uuid.Parse(locationID)
	s.StartDate, _ = time.Parse(timeLayout, startDate)
	s.Notes = notes.String
	s.IsActive = isActive != 0
	if endDate.Valid {
		if t, err := time.Parse(timeLayout, endDate.String); err == nil {
			s.EndDate = &t
		}
	}
	if occurrenceCount.Valid {
		n := int(occurrenceCount.Int64)
		s.OccurrenceCount = &n
	}
	if idempotencyKey.Valid {
		if parsed, err := uuid.Parse(idempotencyKey.String); err == nil {
			s.IdempotencyKey = &parsed
		}
	}
	if idempotencyExpiresAt.Valid {
		if t, err := time.Parse(timeLayout, idempotencyExpiresAt.String); err == nil {
			s.IdempotencyExpiresAt = &t
		}
	}
	return &s, nil
}

func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}
