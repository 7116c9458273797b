package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("place_category", validatePlaceCategory); err != nil {
		panic(fmt.Sprintf("failed to register place_category validator: %v", err))
	}
	if err := Validate.RegisterValidation("trip_filter", validateTripFilter); err != nil {
		panic(fmt.Sprintf("failed to register trip_filter validator: %v", err))
	}
}

// validatePlaceCategory validates that a string is a known Category
func validatePlaceCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).Valid()
}

func validateTripFilter(fl validator.FieldLevel) bool {
	return ValidateTripFilter(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTripFilter validates a trip list filter. Empty means all.
func ValidateTripFilter(value string) error {
	switch models.TripFilter(value) {
	case "", models.TripFilterAll, models.TripFilterUpcoming, models.TripFilterPast:
		return nil
	default:
		return fmt.Errorf("invalid filter: %s (must be 'all', 'upcoming', or 'past')", value)
	}
}

// ValidateCategory validates a Category string value
func ValidateCategory(value string) error {
	if models.Category(value).Valid() {
		return nil
	}
	names := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		names = append(names, string(c))
	}
	return fmt.Errorf("invalid category: %s (must be one of %s)", value, strings.Join(names, ", "))
}

// ValidateTrip sanitizes the free-text fields of a trip in place and runs struct validation
func ValidateTrip(trip *models.Trip) error {
	if trip == nil {
		return fmt.Errorf("trip is required")
	}
	trip.Name = SanitizeText(trip.Name)
	trip.Destination = SanitizeText(trip.Destination)
	trip.Description = SanitizeText(trip.Description)
	if err := Validate.Struct(trip); err != nil {
		return fmt.Errorf("invalid trip: %w", err)
	}
	return nil
}

// ValidatePlace sanitizes and validates a place before it is staged or added to a trip
func ValidatePlace(place *models.ItineraryPlace) error {
	if place == nil {
		return fmt.Errorf("place is required")
	}
	place.ID = strings.TrimSpace(place.ID)
	place.Name = SanitizeText(place.Name)
	place.Address = SanitizeText(place.Address)
	if err := Validate.Struct(place); err != nil {
		return fmt.Errorf("invalid place: %w", err)
	}
	if !place.Coordinate.Valid() {
		return fmt.Errorf("invalid place: coordinate %s out of range", place.Coordinate)
	}
	return nil
}
