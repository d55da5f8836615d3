package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"koboldswitch/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeValidationErrors writes a 400 listing every request problem.
func writeValidationErrors(w http.ResponseWriter, msgs []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(types.ValidationErrorResponse{Errors: msgs, Code: http.StatusBadRequest})
}

// writeServiceError maps a service error to its HTTP status. Errors without
// a status are internal faults.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var he HTTPError
	if errors.As(err, &he) {
		status = he.StatusCode()
	}
	switch status {
	case http.StatusConflict:
		IncrementRejection("conflict")
	case http.StatusBadRequest:
		IncrementRejection("invalid_argument")
	}
	if status >= http.StatusInternalServerError {
		logger().Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Int("status", status).Msg("request failed")
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
