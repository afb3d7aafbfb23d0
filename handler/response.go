package handler

import (
	"encoding/json"
	"net/http"

	"github.com/barkbox/walkmarket/domainerr"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps a domainerr.Error's Kind to an HTTP status and
// writes it as a {"error": "..."} body. Unclassified errors are treated as
// internal.
func writeDomainError(w http.ResponseWriter, err error) {
	derr, ok := err.(*domainerr.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch derr.Kind {
	case domainerr.KindValidation:
		status = http.StatusBadRequest
	case domainerr.KindAuthorization:
		status = http.StatusForbidden
	case domainerr.KindNotFound:
		status = http.StatusNotFound
	case domainerr.KindStateTransition, domainerr.KindConflict:
		status = http.StatusConflict
	case domainerr.KindInternal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": derr.Message})
}
