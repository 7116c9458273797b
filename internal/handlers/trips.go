package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TripHandler handles trip and itinerary requests
type TripHandler struct {
	planner *planner.Planner
	logger  *zap.Logger
	now     func() time.Time
}

// NewTripHandler creates a new trip handler
func NewTripHandler(p *planner.Planner, logger *zap.Logger) *TripHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripHandler{planner: p, logger: logger, now: time.Now}
}

// RegisterRoutes registers trip routes on the given router
// The router should already have the /trips prefix (e.g., from apiRouter.PathPrefix("/trips"))
func (h *TripHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTrips).Methods("GET")
	r.HandleFunc("", h.CreateTrip).Methods("POST")
	r.HandleFunc("/{id}", h.GetTrip).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTrip).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTrip).Methods("DELETE")
	r.HandleFunc("/{id}/itinerary", h.GetItinerary).Methods("GET")
	r.HandleFunc("/{id}/itinerary/{placeId}", h.RemovePlace).Methods("DELETE")
	r.HandleFunc("/{id}/itinerary/{placeId}/move", h.MovePlace).Methods("POST")
}

// CreateTripRequest represents a create trip request. StagedIDs are moved out of staging into the new itinerary.
type CreateTripRequest struct {
	Name                  string             `json:"name" validate:"max=200"`
	Destination           string             `json:"destination" validate:"required,max=200"`
	DestinationCoordinate *models.Coordinate `json:"destination_coordinate,omitempty"`
	StartDate             time.Time          `json:"start_date"`
	EndDate               time.Time          `json:"end_date"`
	Description           string             `json:"description" validate:"max=10000"`
	Budget                *float64           `json:"budget,omitempty"`
	ImageURL              *string            `json:"image_url,omitempty"`
	StagedIDs             []string           `json:"staged_ids,omitempty" validate:"max=500"`
}

// UpdateTripRequest represents a partial trip update. The itinerary is edited through sessions.
type UpdateTripRequest struct {
	Name                  *string            `json:"name,omitempty" validate:"omitempty,max=200"`
	Destination           *string            `json:"destination,omitempty" validate:"omitempty,max=200"`
	DestinationCoordinate *models.Coordinate `json:"destination_coordinate,omitempty"`
	StartDate             *time.Time         `json:"start_date,omitempty"`
	EndDate               *time.Time         `json:"end_date,omitempty"`
	Description           *string            `json:"description,omitempty" validate:"omitempty,max=10000"`
	Budget                *float64           `json:"budget,omitempty"`
	ImageURL              *string            `json:"image_url,omitempty"`
}

// MovePlaceRequest names the trip a place moves to
type MovePlaceRequest struct {
	ToTripID uuid.UUID `json:"to_trip_id"`
}

// ListTrips lists trips matching the optional q (destination or description) and filter parameters
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := query.Get("filter")
	if err := validation.ValidateTripFilter(filter); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if filter == "" {
		filter = string(models.TripFilterAll)
	}

	trips := h.planner.Trips().Filtered(validation.SanitizeText(query.Get("q")), models.TripFilter(filter))
	now := h.now()
	views := make([]TripView, 0, len(trips))
	for _, t := range trips {
		views = append(views, newTripView(t, now))
	}
	respondJSON(w, http.StatusOK, views)
}

// CreateTrip creates a trip, optionally seeded with staged places
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	trip := models.NewTrip(req.Name, req.Destination, req.StartDate, req.EndDate)
	trip.DestinationCoordinate = req.DestinationCoordinate
	trip.Description = req.Description
	trip.Budget = req.Budget
	trip.ImageURL = req.ImageURL
	if err := validation.ValidateTrip(trip); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	writes, err := h.planner.CreateTrip(r.Context(), trip, req.StagedIDs)
	if err != nil {
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "trip_create_write_failed", writes...) {
		return
	}
	respondJSON(w, http.StatusCreated, newTripView(trip, h.now()))
}

// GetTrip returns one trip
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newTripView(trip, h.now()))
}

// UpdateTrip applies a partial update to a trip's details
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if req.Name != nil {
		trip.Name = *req.Name
	}
	if req.Destination != nil {
		trip.Destination = *req.Destination
	}
	if req.DestinationCoordinate != nil {
		trip.DestinationCoordinate = req.DestinationCoordinate
	}
	if req.StartDate != nil {
		trip.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		trip.EndDate = *req.EndDate
	}
	if req.Description != nil {
		trip.Description = *req.Description
	}
	if req.Budget != nil {
		trip.Budget = req.Budget
	}
	if req.ImageURL != nil {
		trip.ImageURL = req.ImageURL
	}
	if err := validation.ValidateTrip(trip); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	res, found := h.planner.Trips().Update(r.Context(), trip)
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Trip not found")
		return
	}
	if writesFailed(w, h.logger, "trip_update_write_failed", res) {
		return
	}
	respondJSON(w, http.StatusOK, newTripView(trip, h.now()))
}

// DeleteTrip deletes a trip. Places it held are dropped from the catalog unless still referenced.
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return
	}
	res, deleted := h.planner.DeleteTrip(r.Context(), id)
	if !deleted {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Trip not found")
		return
	}
	if writesFailed(w, h.logger, "trip_delete_write_failed", res) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetItinerary returns the committed itinerary with route distances
func (h *TripHandler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newItineraryView(trip.ID.String(), trip.DestinationCoordinate, trip.Itinerary))
}

// RemovePlace drops a place from the committed itinerary. Removing a place the trip does not hold is a no-op.
func (h *TripHandler) RemovePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return
	}
	res, err := h.planner.RemoveFromTrip(r.Context(), id, mux.Vars(r)["placeId"])
	if err != nil {
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "itinerary_remove_write_failed", res) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MovePlace moves a committed place to the end of another trip's itinerary
func (h *TripHandler) MovePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return
	}
	var req MovePlaceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.ToTripID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "to_trip_id is required")
		return
	}

	writes, err := h.planner.MovePlace(r.Context(), mux.Vars(r)["placeId"], id, req.ToTripID)
	if err != nil {
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "itinerary_move_write_failed", writes...) {
		return
	}
	respondJSON(w, http.StatusOK, newTripView(h.planner.Trips().Get(req.ToTripID), h.now()))
}

// lookup resolves the {id} trip or writes the error response
func (h *TripHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Trip, bool) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return nil, false
	}
	trip := h.planner.Trips().Get(id)
	if trip == nil {
		respondPlannerError(w, planner.ErrTripNotFound)
		return nil, false
	}
	return trip, true
}
