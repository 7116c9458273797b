package models

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean radius of the WGS-84 ellipsoid
const EarthRadiusMeters = 6371008.8

const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.344
)

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// NewCoordinate returns a coordinate pointer, handy for optional fields
func NewCoordinate(lat, lon float64) *Coordinate {
	return &Coordinate{Latitude: lat, Longitude: lon}
}

// Valid reports whether both components are finite and within range
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// DistanceTo returns the great-circle distance in meters using the haversine formula
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	lat1 := degreesToRadians(c.Latitude)
	lat2 := degreesToRadians(other.Latitude)
	dLat := lat2 - lat1
	dLon := degreesToRadians(other.Longitude - c.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Clamp rounding noise for antipodal points
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}

// MetersToKilometers converts a distance for display
func MetersToKilometers(meters float64) float64 {
	return meters / metersPerKilometer
}

// MetersToMiles converts a distance for display
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}

// FormatDistance renders meters as kilometers with one decimal, e.g. "2.4 km"
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f km", MetersToKilometers(meters))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
