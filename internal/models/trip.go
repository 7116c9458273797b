package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripFilter selects trips by whether they start in the future
type TripFilter string

const (
	TripFilterAll      TripFilter = "all"
	TripFilterUpcoming TripFilter = "upcoming"
	TripFilterPast     TripFilter = "past"
)

// Trip is a named travel plan with a date range and an ordered itinerary.
// Itinerary order is the planned visiting order.
type Trip struct {
	ID                    uuid.UUID        `json:"id" yaml:"id"`
	Name                  string           `json:"name" yaml:"name"`
	Destination           string           `json:"destination" yaml:"destination" validate:"required"`
	DestinationCoordinate *Coordinate      `json:"destination_coordinate,omitempty" yaml:"destination_coordinate,omitempty" validate:"omitempty"`
	StartDate             time.Time        `json:"start_date" yaml:"start_date"`
	EndDate               time.Time        `json:"end_date" yaml:"end_date"`
	Description           string           `json:"description" yaml:"description"`
	Budget                *float64         `json:"budget,omitempty" yaml:"budget,omitempty" validate:"omitempty,gte=0"`
	ImageURL              *string          `json:"image_url,omitempty" yaml:"image_url,omitempty" validate:"omitempty,url"`
	Itinerary             []ItineraryPlace `json:"itinerary" yaml:"itinerary" validate:"dive"`
}

// NewTrip creates a trip with a fresh id and an empty itinerary
func NewTrip(name, destination string, start, end time.Time) *Trip {
	return &Trip{
		ID:          uuid.New(),
		Name:        name,
		Destination: destination,
		StartDate:   start,
		EndDate:     end,
		Itinerary:   []ItineraryPlace{},
	}
}

// DisplayName falls back to the destination when the trip has no name
func (t *Trip) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Destination
}

// IsUpcoming reports whether the trip starts strictly after now
func (t *Trip) IsUpcoming(now time.Time) bool {
	return t.StartDate.After(now)
}

// MatchesFilter applies the upcoming/past/all selection
func (t *Trip) MatchesFilter(filter TripFilter, now time.Time) bool {
	switch filter {
	case TripFilterUpcoming:
		return t.IsUpcoming(now)
	case TripFilterPast:
		return !t.IsUpcoming(now)
	default:
		return true
	}
}

// DurationInDays counts whole days from start to end. Negative when end precedes start.
func (t *Trip) DurationInDays() int {
	return int(t.EndDate.Sub(t.StartDate).Hours() / 24)
}

// FormattedDateRange renders the date range for display, e.g. "Jan 2, 2026 - Jan 9, 2026"
func (t *Trip) FormattedDateRange() string {
	const layout = "Jan 2, 2006"
	return fmt.Sprintf("%s - %s", t.StartDate.Format(layout), t.EndDate.Format(layout))
}

// ContainsPlace reports whether the itinerary holds a place with the given id
func (t *Trip) ContainsPlace(placeID string) bool {
	return IndexOfPlace(t.Itinerary, placeID) >= 0
}

// PlacesByCategory returns itinerary entries of one category, in itinerary order
func (t *Trip) PlacesByCategory(category Category) []ItineraryPlace {
	var out []ItineraryPlace
	for _, p := range t.Itinerary {
		if p.ResolvedCategory() == category {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate repository state
func (t *Trip) Clone() *Trip {
	if t == nil {
		return nil
	}
	c := *t
	if t.DestinationCoordinate != nil {
		coord := *t.DestinationCoordinate
		c.DestinationCoordinate = &coord
	}
	c.Budget = cloneFloat(t.Budget)
	c.ImageURL = cloneString(t.ImageURL)
	c.Itinerary = ClonePlaces(t.Itinerary)
	if c.Itinerary == nil {
		c.Itinerary = []ItineraryPlace{}
	}
	return &c
}
