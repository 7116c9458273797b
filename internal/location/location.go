// Package location supplies the device position used to bias place searches.
package location

import (
	"context"

	"github.com/benvon/trip-planner/internal/models"
)

// Provider reports the current device location. A nil coordinate with a nil error means
// no fix is available.
type Provider interface {
	CurrentLocation(ctx context.Context) (*models.Coordinate, error)
}

// StaticProvider always reports the same coordinate
type StaticProvider struct {
	coordinate models.Coordinate
}

// NewStaticProvider creates a provider fixed at lat/lon
func NewStaticProvider(lat, lon float64) *StaticProvider {
	return &StaticProvider{coordinate: models.Coordinate{Latitude: lat, Longitude: lon}}
}

// CurrentLocation returns the configured coordinate
func (p *StaticProvider) CurrentLocation(ctx context.Context) (*models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := p.coordinate
	return &c, nil
}

// NoLocation never has a fix
type NoLocation struct{}

// CurrentLocation always returns nil
func (NoLocation) CurrentLocation(context.Context) (*models.Coordinate, error) {
	return nil, nil
}

// FromConfig returns a StaticProvider when both values are set, otherwise NoLocation
func FromConfig(lat, lon *float64) Provider {
	if lat == nil || lon == nil {
		return NoLocation{}
	}
	c := models.Coordinate{Latitude: *lat, Longitude: *lon}
	if !c.Valid() {
		return NoLocation{}
	}
	return NewStaticProvider(c.Latitude, c.Longitude)
}
