package models

// SearchResult is a candidate point of interest returned by a search provider.
// It is ephemeral and never persisted as-is.
type SearchResult struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Coordinate  Coordinate `json:"coordinate"`
	Types       []string   `json:"types,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	RatingCount *int       `json:"rating_count,omitempty"`
}

// ItineraryPlace is the persisted form of a place, used both in staging and in trip itineraries
type ItineraryPlace struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Name        string     `json:"name" yaml:"name" validate:"required"`
	Address     string     `json:"address" yaml:"address"`
	Coordinate  Coordinate `json:"coordinate" yaml:"coordinate"`
	Types       []string   `json:"types,omitempty" yaml:"types,omitempty"`
	Category    Category   `json:"category" yaml:"category" validate:"omitempty,place_category"`
	Phone       *string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Rating      *float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	RatingCount *int       `json:"rating_count,omitempty" yaml:"rating_count,omitempty"`
}

// NewItineraryPlace converts a search result into its persisted form
func NewItineraryPlace(r SearchResult) ItineraryPlace {
	return ItineraryPlace{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Coordinate:  r.Coordinate,
		Types:       cloneStrings(r.Types),
		Category:    Classify(r.Name, r.Types),
		Phone:       cloneString(r.Phone),
		Rating:      cloneFloat(r.Rating),
		RatingCount: cloneInt(r.RatingCount),
	}
}

// SearchResult reconstructs the search-style value the place was created from
func (p ItineraryPlace) SearchResult() SearchResult {
	return SearchResult{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.Address,
		Coordinate:  p.Coordinate,
		Types:       cloneStrings(p.Types),
		Phone:       cloneString(p.Phone),
		Rating:      cloneFloat(p.Rating),
		RatingCount: cloneInt(p.RatingCount),
	}
}

// ResolvedCategory returns the stored category, classifying on the fly for records
// written before categories were persisted
func (p ItineraryPlace) ResolvedCategory() Category {
	if p.Category.Valid() {
		return p.Category
	}
	return Classify(p.Name, p.Types)
}

// IndexOfPlace returns the position of id in places, or -1
func IndexOfPlace(places []ItineraryPlace, id string) int {
	for i := range places {
		if places[i].ID == id {
			return i
		}
	}
	return -1
}

// ClonePlaces returns a copy of places that shares no slices or pointers with the input
func ClonePlaces(places []ItineraryPlace) []ItineraryPlace {
	if places == nil {
		return nil
	}
	out := make([]ItineraryPlace, len(places))
	for i, p := range places {
		out[i] = p.clone()
	}
	return out
}

func (p ItineraryPlace) clone() ItineraryPlace {
	p.Types = cloneStrings(p.Types)
	p.Phone = cloneString(p.Phone)
	p.Rating = cloneFloat(p.Rating)
	p.RatingCount = cloneInt(p.RatingCount)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
