package handler

import (
	"net/http"
	"strconv"

	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/middleware"
)

// ServiceAreaHandler serves GET /v1/service-area.
type ServiceAreaHandler struct {
	registry *core.Registry
}

func NewServiceAreaHandler(registry *core.Registry) *ServiceAreaHandler {
	return &ServiceAreaHandler{registry: registry}
}

// ServeHTTP returns every walker whose declared service area covers the
// given coordinate, sorted by priority. Query parameters: lat, lng.
func (h *ServiceAreaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing organization identity"})
		return
	}

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat is required and must be a number"})
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lng is required and must be a number"})
		return
	}
	coords, err := geo.NewCoordinates(lat, lng)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	svc, err := h.registry.Get(orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "organization storage is unavailable"})
		return
	}

	matches, err := svc.FindServingWalkers(r.Context(), orgID, coords)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}
