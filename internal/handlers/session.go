package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/benvon/trip-planner/internal/itinerary"
	logpkg "github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/benvon/trip-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionHandler serves itinerary editing sessions, one per trip. Sessions live in memory
// until committed or discarded; a server restart drops uncommitted edits.
type SessionHandler struct {
	planner     *planner.Planner
	coordinator *search.Coordinator
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*itinerary.Session
}

// NewSessionHandler creates a session handler. coordinator may be nil when search is disabled.
func NewSessionHandler(p *planner.Planner, coordinator *search.Coordinator, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		planner:     p,
		coordinator: coordinator,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*itinerary.Session),
	}
}

// RegisterRoutes registers session routes on the /trips subrouter
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/session", h.OpenSession).Methods("POST")
	r.HandleFunc("/{id}/session", h.GetSession).Methods("GET")
	r.HandleFunc("/{id}/session", h.DiscardSession).Methods("DELETE")
	r.HandleFunc("/{id}/session/places", h.AppendPlace).Methods("POST")
	r.HandleFunc("/{id}/session/places/{placeId}", h.RemovePlace).Methods("DELETE")
	r.HandleFunc("/{id}/session/move", h.Move).Methods("POST")
	r.HandleFunc("/{id}/session/commit", h.Commit).Methods("POST")
	r.HandleFunc("/{id}/session/search", h.Search).Methods("GET")
	r.HandleFunc("/{id}/session/distance", h.Distance).Methods("GET")
}

// AppendPlaceRequest carries either a full place or a search result to convert
type AppendPlaceRequest struct {
	Place  *models.ItineraryPlace `json:"place,omitempty"`
	Result *models.SearchResult   `json:"result,omitempty"`
}

// MoveRequest moves the entries at From (indices into the current order) to land before To
type MoveRequest struct {
	From []int `json:"from"`
	To   int   `json:"to"`
}

// SessionView is the working sequence of an open session
type SessionView struct {
	ItineraryView
	LastAppended *models.Coordinate `json:"last_appended,omitempty"`
}

// OpenSession starts (or restarts) the trip's session from its committed itinerary
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return
	}
	session, err := h.planner.OpenSession(id)
	if err != nil {
		respondPlannerError(w, err)
		return
	}

	h.mu.Lock()
	if old, ok := h.sessions[id]; ok {
		old.Clear()
	}
	h.sessions[id] = session
	h.mu.Unlock()

	h.logger.Debug("session_opened", zap.String("trip_id", id.String()), zap.Int("places", session.Len()))
	respondJSON(w, http.StatusCreated, h.view(id, session))
}

// GetSession returns the session's working sequence
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.view(id, session))
}

// DiscardSession drops uncommitted edits
func (h *SessionHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// AppendPlace adds a place to the end of the session. An id already present is a no-op (200 instead of 201).
func (h *SessionHandler) AppendPlace(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
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

	status := http.StatusOK
	if session.Append(place) {
		status = http.StatusCreated
		h.logger.Debug("session_place_appended",
			zap.String("trip_id", id.String()),
			zap.String("place_id", logpkg.SanitizeID(place.ID)))
	}
	respondJSON(w, status, h.view(id, session))
}

// RemovePlace drops a place from the session. Unknown ids are a no-op.
func (h *SessionHandler) RemovePlace(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	placeID := mux.Vars(r)["placeId"]
	if session.Remove(placeID) {
		h.logger.Debug("session_place_removed",
			zap.String("trip_id", id.String()),
			zap.String("place_id", logpkg.SanitizeID(placeID)))
	}
	respondJSON(w, http.StatusOK, h.view(id, session))
}

// Move reorders the session
func (h *SessionHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := session.Move(req.From, req.To); err != nil {
		if errors.Is(err, itinerary.ErrIndexOutOfRange) {
			respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.view(id, session))
}

// Commit writes the session order into the trip and evicts committed places from staging.
// The session stays open on the committed order.
func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	writes, err := h.planner.CommitSession(r.Context(), session)
	if err != nil {
		if errors.Is(err, planner.ErrTripNotFound) {
			h.mu.Lock()
			delete(h.sessions, id)
			h.mu.Unlock()
		}
		respondPlannerError(w, err)
		return
	}
	if writesFailed(w, h.logger, "session_commit_write_failed", writes...) {
		return
	}
	trip := h.planner.Trips().Get(id)
	if trip == nil {
		respondPlannerError(w, planner.ErrTripNotFound)
		return
	}
	respondJSON(w, http.StatusOK, newItineraryView(id.String(), trip.DestinationCoordinate, trip.Itinerary))
}

// Search runs a debounced place search anchored on the place most recently appended to this
// session, or on the trip destination while the session is empty
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.coordinator == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Search is not configured")
		return
	}
	_, session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.coordinator.SetAnchorSource(session)
	outcome := h.coordinator.Await(r.Context(), r.URL.Query().Get("q"))
	respondOutcome(w, h.logger, outcome)
}

// DistanceResponse reports either a single hop or the full route
type DistanceResponse struct {
	Index         *int            `json:"index,omitempty"`
	Meters        *float64        `json:"meters,omitempty"`
	TotalMeters   float64         `json:"total_meters"`
	TotalDistance string          `json:"total_distance"`
	Legs          []itinerary.Leg `json:"legs"`
}

// Distance returns the route distance, or the hop after ?index=i. The last entry has no next hop.
func (h *SessionHandler) Distance(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.session(w, r)
	if !ok {
		return
	}
	resp := DistanceResponse{
		TotalMeters: session.TotalDistance(),
		Legs:        session.Legs(),
	}
	resp.TotalDistance = models.FormatDistance(resp.TotalMeters)
	if resp.Legs == nil {
		resp.Legs = []itinerary.Leg{}
	}

	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "index must be an integer")
			return
		}
		resp.Index = &index
		if meters, ok := session.DistanceToNext(index); ok {
			resp.Meters = &meters
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// session resolves the {id} trip's open session or writes the error response
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (uuid.UUID, *itinerary.Session, bool) {
	id, err := pathTripID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid trip ID")
		return uuid.Nil, nil, false
	}
	h.mu.Lock()
	session, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No open session for this trip")
		return id, nil, false
	}
	return id, session, true
}

func (h *SessionHandler) view(id uuid.UUID, session *itinerary.Session) SessionView {
	return SessionView{
		ItineraryView: newItineraryView(id.String(), session.Destination(), session.Places()),
		LastAppended:  session.LastAppended(),
	}
}

// placeFromRequest accepts a full place or converts a search result, then validates it
func placeFromRequest(place *models.ItineraryPlace, result *models.SearchResult) (models.ItineraryPlace, error) {
	var p models.ItineraryPlace
	switch {
	case place != nil && result != nil:
		return p, errors.New("send either place or result, not both")
	case place != nil:
		p = *place
	case result != nil:
		p = models.NewItineraryPlace(*result)
	default:
		return p, errors.New("place or result is required")
	}
	if err := validation.ValidatePlace(&p); err != nil {
		return p, err
	}
	return p, nil
}
