package handlers

import (
	"time"

	"github.com/benvon/trip-planner/internal/itinerary"
	"github.com/benvon/trip-planner/internal/models"
)

// TripView is a trip plus its derived display fields
type TripView struct {
	*models.Trip
	DisplayName  string `json:"display_name"`
	DurationDays int    `json:"duration_days"`
	DateRange    string `json:"date_range"`
	Upcoming     bool   `json:"upcoming"`
	PlaceCount   int    `json:"place_count"`
}

func newTripView(trip *models.Trip, now time.Time) TripView {
	return TripView{
		Trip:         trip,
		DisplayName:  trip.DisplayName(),
		DurationDays: trip.DurationInDays(),
		DateRange:    trip.FormattedDateRange(),
		Upcoming:     trip.IsUpcoming(now),
		PlaceCount:   len(trip.Itinerary),
	}
}

// PlaceView is an itinerary entry with its resolved category and the hop to the next entry
type PlaceView struct {
	models.ItineraryPlace
	Position             int      `json:"position"`
	DistanceToNextMeters *float64 `json:"distance_to_next_meters,omitempty"`
}

// ItineraryView is an ordered itinerary with route distances
type ItineraryView struct {
	TripID        string                  `json:"trip_id"`
	Places        []PlaceView             `json:"places"`
	Legs          []itinerary.Leg         `json:"legs"`
	TotalMeters   float64                 `json:"total_meters"`
	TotalDistance string                  `json:"total_distance"`
	ByCategory    map[models.Category]int `json:"by_category"`
}

func newItineraryView(tripID string, destination *models.Coordinate, places []models.ItineraryPlace) ItineraryView {
	view := ItineraryView{
		TripID:     tripID,
		Places:     make([]PlaceView, 0, len(places)),
		Legs:       itinerary.RouteLegs(destination, places),
		ByCategory: make(map[models.Category]int),
	}
	if view.Legs == nil {
		view.Legs = []itinerary.Leg{}
	}
	view.TotalMeters = itinerary.RouteDistance(destination, places)
	view.TotalDistance = models.FormatDistance(view.TotalMeters)

	for i, p := range places {
		p.Category = p.ResolvedCategory()
		pv := PlaceView{ItineraryPlace: p, Position: i}
		if i+1 < len(places) {
			d := p.Coordinate.DistanceTo(places[i+1].Coordinate)
			pv.DistanceToNextMeters = &d
		}
		view.ByCategory[p.Category]++
		view.Places = append(view.Places, pv)
	}
	return view
}
