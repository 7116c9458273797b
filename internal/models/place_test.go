package models

import (
	"reflect"
	"testing"
)

func TestNewItineraryPlace_RoundTrip(t *testing.T) {
	t.Parallel()

	phone := "+1 508-555-0100"
	rating := 4.5
	count := 210

	tests := []struct {
		name   string
		result SearchResult
	}{
		{
			name: "all fields",
			result: SearchResult{
				ID:          "places/abc",
				Name:        "Armsby Abbey",
				Address:     "144 Main St, Worcester, MA",
				Coordinate:  Coordinate{Latitude: 42.2656, Longitude: -71.8018},
				Types:       []string{"restaurant", "bar"},
				Phone:       &phone,
				Rating:      &rating,
				RatingCount: &count,
			},
		},
		{
			name: "optional fields missing",
			result: SearchResult{
				ID:         "places/def",
				Name:       "Elm Park",
				Coordinate: Coordinate{Latitude: 42.2727, Longitude: -71.8190},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			place := NewItineraryPlace(tt.result)
			back := place.SearchResult()
			if !reflect.DeepEqual(back, tt.result) {
				t.Errorf("Round trip mismatch:\n got  %+v\n want %+v", back, tt.result)
			}
		})
	}
}

func TestNewItineraryPlace_Category(t *testing.T) {
	t.Parallel()

	place := NewItineraryPlace(SearchResult{ID: "1", Name: "Elm Park"})
	if place.Category != CategoryPark {
		t.Errorf("Expected category park from name, got %s", place.Category)
	}
}

func TestNewItineraryPlace_DoesNotAlias(t *testing.T) {
	t.Parallel()

	rating := 3.0
	result := SearchResult{ID: "1", Name: "x", Types: []string{"museum"}, Rating: &rating}
	place := NewItineraryPlace(result)

	result.Types[0] = "park"
	*result.Rating = 1
	if place.Types[0] != "museum" || *place.Rating != 3.0 {
		t.Errorf("ItineraryPlace shares memory with its SearchResult: %+v", place)
	}
}

func TestResolvedCategory_LegacyRecord(t *testing.T) {
	t.Parallel()

	legacy := ItineraryPlace{ID: "1", Name: "Higgins Museum"}
	if got := legacy.ResolvedCategory(); got != CategoryMuseum {
		t.Errorf("ResolvedCategory() = %s, want museum", got)
	}
}
