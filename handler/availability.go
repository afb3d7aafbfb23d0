package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/middleware"
)

// AvailabilityHandler serves GET /v1/availability.
type AvailabilityHandler struct {
	registry *core.Registry
}

func NewAvailabilityHandler(registry *core.Registry) *AvailabilityHandler {
	return &AvailabilityHandler{registry: registry}
}

// ServeHTTP computes the bookable slots for a walker, service, location,
// and date. Query parameters: walker_id, location_id, date (YYYY-MM-DD),
// service_minutes, and an optional time_zone (IANA name).
func (h *AvailabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing organization identity"})
		return
	}

	q := r.URL.Query()
	walkerID, err := uuid.Parse(q.Get("walker_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "walker_id is required and must be a UUID"})
		return
	}
	locationID, err := uuid.Parse(q.Get("location_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location_id is required and must be a UUID"})
		return
	}
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required and must be YYYY-MM-DD"})
		return
	}
	serviceMinutes, err := strconv.Atoi(q.Get("service_minutes"))
	if err != nil || serviceMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service_minutes is required and must be a positive integer"})
		return
	}
	tzName := q.Get("time_zone")

	svc, err := h.registry.Get(orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "organization storage is unavailable"})
		return
	}

	slots, err := svc.GetAvailability(r.Context(), orgID, walkerID, locationID, serviceMinutes, date, tzName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}
