package itinerary

import "github.com/benvon/trip-planner/internal/models"

// Leg is one hop of the planned route
type Leg struct {
	FromID string  `json:"from_id,omitempty"`
	ToID   string  `json:"to_id"`
	Meters float64 `json:"meters"`
}

// TotalDistance returns the route length in meters: destination to the first entry
// (when the trip has a destination coordinate), then every consecutive pair.
func (s *Session) TotalDistance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RouteDistance(s.destination, s.places)
}

// DistanceToNext returns the hop from entry index to index+1.
// The bool is false for the last entry or an index outside the sequence.
func (s *Session) DistanceToNext(index int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index+1 >= len(s.places) {
		return 0, false
	}
	return s.places[index].Coordinate.DistanceTo(s.places[index+1].Coordinate), true
}

// Legs lists every hop of the route, starting with the destination leg when present
func (s *Session) Legs() []Leg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RouteLegs(s.destination, s.places)
}

// RouteDistance sums RouteLegs
func RouteDistance(destination *models.Coordinate, places []models.ItineraryPlace) float64 {
	total := 0.0
	for _, leg := range RouteLegs(destination, places) {
		total += leg.Meters
	}
	return total
}

// RouteLegs computes the hops of an ordered sequence of places
func RouteLegs(destination *models.Coordinate, places []models.ItineraryPlace) []Leg {
	if len(places) == 0 {
		return []Leg{}
	}

	legs := make([]Leg, 0, len(places))
	if destination != nil {
		legs = append(legs, Leg{
			ToID:   places[0].ID,
			Meters: destination.DistanceTo(places[0].Coordinate),
		})
	}
	for i := 0; i+1 < len(places); i++ {
		legs = append(legs, Leg{
			FromID: places[i].ID,
			ToID:   places[i+1].ID,
			Meters: places[i].Coordinate.DistanceTo(places[i+1].Coordinate),
		})
	}
	return legs
}
