package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/middleware"
)

// RouteHandler serves POST /v1/route.
type RouteHandler struct {
	registry *core.Registry
}

func NewRouteHandler(registry *core.Registry) *RouteHandler {
	return &RouteHandler{registry: registry}
}

type routeRequest struct {
	WalkerID uuid.UUID `json:"walker_id"`
	Date     string    `json:"date"`
	TimeZone string    `json:"time_zone,omitempty"`
}

func (h *RouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing organization identity"})
		return
	}

	var body routeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	svc, err := h.registry.Get(orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "organization storage is unavailable"})
		return
	}

	result, err := svc.GetRoute(r.Context(), orgID, body.WalkerID, date, body.TimeZone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
