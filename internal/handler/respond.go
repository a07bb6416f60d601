package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shopfloor/internal/odata"
	"shopfloor/internal/service"
)

// now is swapped in tests that depend on the current month.
var now = time.Now

const (
	msgServiceConnection = "Service connection error. Please try again."
	msgFetchFailed       = "Failed to fetch data."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeServiceError maps service failures to statuses. Anything unknown is
// logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var fetchErr *odata.FetchError
	switch {
	case errors.Is(err, service.ErrMissingBackend):
		http.Error(w, msgServiceConnection, http.StatusServiceUnavailable)
	case errors.As(err, &fetchErr):
		http.Error(w, msgFetchFailed, http.StatusBadGateway)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
