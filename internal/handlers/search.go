package handlers

import (
	"context"
	"errors"
	"net/http"

	logpkg "github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SearchHandler exposes the search coordinator. A nil coordinator answers 503.
type SearchHandler struct {
	coordinator *search.Coordinator
	logger      *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(coordinator *search.Coordinator, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchHandler{coordinator: coordinator, logger: logger}
}

// RegisterRoutes registers search routes on a router with the /search prefix
func (h *SearchHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Search).Methods("GET")
	r.HandleFunc("/anchor", h.GetAnchor).Methods("GET")
	r.HandleFunc("/anchor", h.SetAnchor).Methods("PUT")
	r.HandleFunc("/anchor", h.ClearAnchor).Methods("DELETE")
}

// AnchorResponse reports the coordinate searches are currently biased towards
type AnchorResponse struct {
	Anchor models.Coordinate `json:"anchor"`
}

// Search runs ?q= against the configured provider after the debounce interval, biased on the
// explicit anchor, device location or fallback. A newer search arriving first answers 409.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.coordinator.SetAnchorSource(nil)
	outcome := h.coordinator.Await(r.Context(), r.URL.Query().Get("q"))
	respondOutcome(w, h.logger, outcome)
}

// GetAnchor returns the resolved search anchor
func (h *SearchHandler) GetAnchor(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	respondJSON(w, http.StatusOK, AnchorResponse{Anchor: h.coordinator.ResolveAnchor(r.Context())})
}

// SetAnchor pins the search anchor to a coordinate
func (h *SearchHandler) SetAnchor(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var coord models.Coordinate
	if err := decodeJSON(r, &coord, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if !coord.Valid() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "coordinate out of range")
		return
	}
	h.coordinator.UpdateAnchor(&coord)
	respondJSON(w, http.StatusOK, AnchorResponse{Anchor: coord})
}

// ClearAnchor removes the pinned anchor so searches fall back to device location
func (h *SearchHandler) ClearAnchor(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.coordinator.UpdateAnchor(nil)
	respondJSON(w, http.StatusOK, AnchorResponse{Anchor: h.coordinator.ResolveAnchor(r.Context())})
}

func (h *SearchHandler) available(w http.ResponseWriter) bool {
	if h.coordinator == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Search is not configured")
		return false
	}
	return true
}

// respondOutcome maps a search outcome to a response. No results is a successful empty list.
func respondOutcome(w http.ResponseWriter, logger *zap.Logger, outcome search.Outcome) {
	err := outcome.Err
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, outcome)
	case errors.Is(err, search.ErrNoResults):
		outcome.Results = []search.Result{}
		respondJSON(w, http.StatusOK, outcome)
	case errors.Is(err, search.ErrQueryTooShort):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Query is too short")
	case errors.Is(err, search.ErrRateLimited):
		respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Search rate limit exceeded")
	case errors.Is(err, search.ErrStaleResponse):
		respondJSONError(w, http.StatusConflict, "Conflict", "Superseded by a newer search")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondJSONError(w, http.StatusGatewayTimeout, "Gateway Timeout", "Search was cancelled")
	case search.IsProviderError(err, search.KindUnreachable):
		logger.Warn("search_provider_unreachable", zap.String("query", logpkg.SanitizeQuery(outcome.Query)), zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Search provider is unreachable")
	default:
		logger.Error("search_failed", zap.String("query", logpkg.SanitizeQuery(outcome.Query)), zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Search provider returned an error")
	}
}
