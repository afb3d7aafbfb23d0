package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/middleware"
	"github.com/barkbox/walkmarket/series"
)

// SeriesHandler serves POST /v1/recurring-series and
// POST /v1/recurring-series/{id}/cancel.
type SeriesHandler struct {
	registry *core.Registry
}

func NewSeriesHandler(registry *core.Registry) *SeriesHandler {
	return &SeriesHandler{registry: registry}
}

// createSeriesRequest is the wire shape for a recurring-series creation
// request; it mirrors series.CreateRequest with JSON-friendly primitives
// for dates, times, and the end condition.
type createSeriesRequest struct {
	CustomerID      uuid.UUID  `json:"customer_id"`
	WalkerID        uuid.UUID  `json:"walker_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	LocationID      uuid.UUID  `json:"location_id"`
	Frequency       string     `json:"frequency"`
	StartDate       string     `json:"start_date"`
	TimeOfDay       string     `json:"time_of_day"`
	TimeZone        string     `json:"time_zone"`
	Occurrences     *int       `json:"occurrences,omitempty"`
	EndDate         *string    `json:"end_date,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	PriceCents      int        `json:"price_cents"`
	Notes           string     `json:"notes,omitempty"`
	PreviewOnly     bool       `json:"preview_only,omitempty"`
	IdempotencyKey  *uuid.UUID `json:"idempotency_key,omitempty"`
}

// Create handles POST /v1/recurring-series.
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing organization identity"})
		return
	}

	var body createSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	// An X-Idempotency-Key header takes precedence over the body field.
	if h := r.Header.Get("X-Idempotency-Key"); h != "" {
		key, err := uuid.Parse(h)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Idempotency-Key must be a UUID"})
			return
		}
		body.IdempotencyKey = &key
	}

	startDate, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}

	end := series.EndCondition{Occurrences: body.Occurrences}
	if body.EndDate != nil {
		endDate, err := time.Parse("2006-01-02", *body.EndDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		end.EndDate = &endDate
	}

	req := series.CreateRequest{
		OrgID:           orgID,
		CustomerID:      body.CustomerID,
		WalkerID:        body.WalkerID,
		ServiceID:       body.ServiceID,
		LocationID:      body.LocationID,
		Frequency:       series.Frequency(body.Frequency),
		StartDate:       startDate,
		TimeOfDay:       body.TimeOfDay,
		TimeZone:        body.TimeZone,
		End:             end,
		DurationMinutes: body.DurationMinutes,
		PriceCents:      body.PriceCents,
		Notes:           body.Notes,
		PreviewOnly:     body.PreviewOnly,
		IdempotencyKey:  body.IdempotencyKey,
	}

	svc, err := h.registry.Get(orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "organization storage is unavailable"})
		return
	}

	result, err := svc.CreateRecurringSeries(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Cancel handles POST /v1/recurring-series/{id}/cancel.
func (h *SeriesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing organization identity"})
		return
	}

	seriesID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "series id must be a UUID"})
		return
	}

	var body struct {
		CustomerID uuid.UUID `json:"customer_id"`
		Scope      string    `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	scope := series.ScopeEntireSeries
	if body.Scope != "" {
		scope = series.CancellationScope(body.Scope)
	}

	svc, err := h.registry.Get(orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "organization storage is unavailable"})
		return
	}

	cancelled, err := svc.CancelRecurringSeries(r.Context(), orgID, body.CustomerID, seriesID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}
