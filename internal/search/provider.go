// Package search resolves place queries against a remote provider, biased toward an anchor
// coordinate, and discards responses that a newer query has superseded.
package search

import (
	"context"

	"github.com/benvon/trip-planner/internal/models"
)

// Query is one provider request
type Query struct {
	Text         string
	Bias         models.Coordinate
	RadiusMeters float64
}

// Provider performs text search for points of interest near a bias coordinate.
// It returns ErrNoResults when nothing matched and a *ProviderError for transport,
// status or decoding failures.
type Provider interface {
	Search(ctx context.Context, q Query) ([]models.SearchResult, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, q Query) ([]models.SearchResult, error)

// Search calls f
func (f ProviderFunc) Search(ctx context.Context, q Query) ([]models.SearchResult, error) {
	return f(ctx, q)
}
