package handlers

import (
	"encoding/json"
	"net/http"

	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/models"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// handleDataError maps data-layer errors onto API errors. Precondition
// violations surface their message verbatim; anything else is internal.
func handleDataError(w http.ResponseWriter, r *http.Request, err error) {
	if datastore.IsPrecondition(err) {
		writeJSON(w, http.StatusConflict, errorResp("PRECONDITION_FAILED", err.Error(), r))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
}

// listResponse wraps a degradable read. Source tells the client where the
// data came from; a non-empty cause means the remote store was not usable
// and the data is the local fallback.
func listResponse[T any](res datastore.Result[T]) map[string]interface{} {
	out := map[string]interface{}{
		"data":   res.Data,
		"source": res.Source.String(),
	}
	if res.Cause != nil {
		out["degraded"] = true
		out["cause"] = res.Cause.Error()
	}
	return out
}
