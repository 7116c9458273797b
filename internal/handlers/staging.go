package handlers

import (
	"net/http"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StagingHandler handles the staged-place collection
type StagingHandler struct {
	planner *planner.Planner
	logger  *zap.Logger
}

// NewStagingHandler creates a new staging handler
func NewStagingHandler(p *planner.Planner, logger *zap.Logger) *StagingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StagingHandler{planner: p, logger: logger}
}

// RegisterRoutes registers staging routes on a router with the /staged prefix
func (h *StagingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListStaged).Methods("GET")
	r.HandleFunc("", h.StagePlace).Methods("POST")
	r.HandleFunc("/{placeId}", h.Unstage).Methods("DELETE")
	r.HandleFunc("/{placeId}/promote", h.Promote).Methods("POST")
}

// PromoteRequest names the trip a staged place is committed to
type PromoteRequest struct {
	TripID uuid.UUID `json:"trip_id"`
}

// ListStaged lists staged places in insertion order
func (h *StagingHandler) ListStaged(w http.ResponseWriter, r *http.Request) {
	places := h.planner.Staging().All()
	if places == nil {
		places = []models.ItineraryPlace{}
	}
	for i := range places {
		places[i].Category = places[i].ResolvedCategory()
	}
	respondJSON(w, http.StatusOK, places)
}

// StagePlace stages a place or search result. 201 when added, 200 when it was already staged,
// 409 when it already belongs to a trip.
func (h *StagingHandler) StagePlace(w http.ResponseWriter, r *http.Request) {
	var req AppendPlaceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	place, err := placeFromRequest(req.Place, req.Result)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	res, added, err := h.planner.StagePlace(r.Context(), place)
	if err != nil {
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "stage_place_write_failed", res) {
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	respondJSON(w, status, place)
}

// Unstage removes a staged place
func (h *StagingHandler) Unstage(w http.ResponseWriter, r *http.Request) {
	res, removed := h.planner.Unstage(r.Context(), mux.Vars(r)["placeId"])
	if !removed {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Place is not staged")
		return
	}
	if writesFailed(w, h.logger, "unstage_write_failed", res) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Promote moves a staged place to the end of a trip's itinerary
func (h *StagingHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.TripID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "trip_id is required")
		return
	}

	writes, err := h.planner.PromoteToTrip(r.Context(), mux.Vars(r)["placeId"], req.TripID)
	if err != nil {
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "promote_write_failed", writes...) {
		return
	}
	trip := h.planner.Trips().Get(req.TripID)
	if trip == nil {
		respondPlannerError(w, planner.ErrTripNotFound)
		return
	}
	respondJSON(w, http.StatusOK, newItineraryView(trip.ID.String(), trip.DestinationCoordinate, trip.Itinerary))
}
