package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	logpkg "github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength bounds messages echoed to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields and trailing data.
// An empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid request body: trailing data")
	}
	return nil
}

// pathTripID parses the {id} route variable
func pathTripID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// respondPlannerError maps planner sentinels to HTTP statuses
func respondPlannerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrTripNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Trip not found")
	case errors.Is(err, planner.ErrPlaceNotStaged):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Place is not staged")
	case errors.Is(err, planner.ErrPlaceNotInTrip):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Place is not in the trip")
	case errors.Is(err, planner.ErrAlreadyCommitted):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, planner.ErrSessionDetached):
		respondJSONError(w, http.StatusConflict, "Conflict", "Session is not attached to a trip")
	default:
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

// writesFailed logs and reports failed write-throughs. The in-memory change stands; only persistence failed.
func writesFailed(w http.ResponseWriter, logger *zap.Logger, event string, results ...storage.WriteResult) bool {
	err := planner.Writes(results).Err()
	if err == nil {
		return false
	}
	logger.Error(event, zap.String("error", logpkg.SanitizeError(err)))
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Change applied but could not be saved")
	return true
}
