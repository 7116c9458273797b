package itinerary

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
)

var (
	// ErrTripNotFound is returned by Commit when the target trip does not exist.
	// Callers that prefer idempotency may treat it as a no-op.
	ErrTripNotFound = errors.New("trip not found")
	// ErrIndexOutOfRange is returned by Move for indices outside the sequence
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Committer receives a committed sequence. Implemented by database.TripRepository.
type Committer interface {
	SetItinerary(ctx context.Context, tripID uuid.UUID, places []models.ItineraryPlace) (storage.WriteResult, bool)
}

// Session is the working, orderable sequence of places for one trip before commit
type Session struct {
	mu             sync.Mutex
	tripID         uuid.UUID
	attached       bool
	destination    *models.Coordinate
	places         []models.ItineraryPlace
	lastAppendedID string
}

// NewSession creates an empty session not attached to any trip
func NewSession() *Session {
	return &Session{places: []models.ItineraryPlace{}}
}

// NewSessionForTrip starts a session seeded from the trip's current itinerary
func NewSessionForTrip(trip *models.Trip) *Session {
	s := NewSession()
	s.Attach(trip)
	return s
}

// Attach binds the session to trip, replacing the sequence with the trip's itinerary
func (s *Session) Attach(trip *models.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tripID = trip.ID
	s.attached = true
	s.destination = nil
	if trip.DestinationCoordinate != nil {
		c := *trip.DestinationCoordinate
		s.destination = &c
	}
	s.places = models.ClonePlaces(trip.Itinerary)
	if s.places == nil {
		s.places = []models.ItineraryPlace{}
	}
	s.lastAppendedID = ""
}

// TripID returns the attached trip, if any
func (s *Session) TripID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripID, s.attached
}

// Destination returns the attached trip's destination coordinate, if known
func (s *Session) Destination() *models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destination == nil {
		return nil
	}
	c := *s.destination
	return &c
}

// Places returns a copy of the sequence in visiting order
func (s *Session) Places() []models.ItineraryPlace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ClonePlaces(s.places)
}

// Len returns the number of entries
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.places)
}

// Contains reports whether a place with id is in the sequence
func (s *Session) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.IndexOfPlace(s.places, id) >= 0
}

// Append adds place to the end unless its id is already present
func (s *Session) Append(place models.ItineraryPlace) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if models.IndexOfPlace(s.places, place.ID) >= 0 {
		return false
	}
	s.places = append(s.places, models.ClonePlaces([]models.ItineraryPlace{place})...)
	s.lastAppendedID = place.ID
	return true
}

// Remove drops the place with id
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := models.IndexOfPlace(s.places, id)
	if i < 0 {
		return false
	}
	s.places = append(s.places[:i], s.places[i+1:]...)
	if s.lastAppendedID == id {
		s.lastAppendedID = ""
	}
	return true
}

// Move relocates the entries at fromIndices so they form a contiguous block starting at
// toIndex, keeping their relative order. toIndex refers to the sequence before the move
// and is shifted down by the number of moved entries that sat before it.
func (s *Session) Move(fromIndices []int, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved, err := MoveElements(s.places, fromIndices, toIndex)
	if err != nil {
		return err
	}
	s.places = moved
	return nil
}

// Clear empties the session and detaches it from its trip
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.places = []models.ItineraryPlace{}
	s.tripID = uuid.Nil
	s.attached = false
	s.destination = nil
	s.lastAppendedID = ""
}

// Commit writes the current sequence into the trip named by into
func (s *Session) Commit(ctx context.Context, into uuid.UUID, committer Committer) (storage.WriteResult, error) {
	places := s.Places()

	result, found := committer.SetItinerary(ctx, into, places)
	if !found {
		return result, fmt.Errorf("failed to commit itinerary into %s: %w", into, ErrTripNotFound)
	}
	return result, nil
}

// LastAppended returns the coordinate of the most recently appended entry still present,
// falling back to the last entry in the sequence. Nil when the session is empty.
func (s *Session) LastAppended() *models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.places) == 0 {
		return nil
	}
	i := len(s.places) - 1
	if s.lastAppendedID != "" {
		if j := models.IndexOfPlace(s.places, s.lastAppendedID); j >= 0 {
			i = j
		}
	}
	c := s.places[i].Coordinate
	return &c
}

// SearchAnchor is where searches from this session are biased: the last appended entry,
// or the trip destination while the sequence is empty. Nil when neither is known.
func (s *Session) SearchAnchor() *models.Coordinate {
	if last := s.LastAppended(); last != nil {
		return last
	}
	return s.Destination()
}

// MoveElements returns a copy of items with the entries at fromIndices moved as a block to
// toIndex. Duplicate indices are ignored.
func MoveElements[T any](items []T, fromIndices []int, toIndex int) ([]T, error) {
	n := len(items)
	if toIndex < 0 || toIndex > n {
		return nil, fmt.Errorf("target %d: %w", toIndex, ErrIndexOutOfRange)
	}

	selected := make(map[int]struct{}, len(fromIndices))
	for _, i := range fromIndices {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("source %d: %w", i, ErrIndexOutOfRange)
		}
		selected[i] = struct{}{}
	}
	block := make([]T, 0, len(selected))
	rest := make([]T, 0, n-len(selected))
	before := 0
	for i, item := range items {
		if _, ok := selected[i]; ok {
			block = append(block, item)
			if i < toIndex {
				before++
			}
			continue
		}
		rest = append(rest, item)
	}

	target := toIndex - before
	out := make([]T, 0, n)
	out = append(out, rest[:target]...)
	out = append(out, block...)
	out = append(out, rest[target:]...)
	return out, nil
}
