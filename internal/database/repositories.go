package database

import (
	"context"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
)

// TripRepositoryInterface defines the trip operations used by the planner and handlers.
// This interface enables better testability by allowing mock implementations.
type TripRepositoryInterface interface {
	All() []*models.Trip
	Get(id uuid.UUID) *models.Trip
	Add(ctx context.Context, trip *models.Trip) storage.WriteResult
	Update(ctx context.Context, trip *models.Trip) (storage.WriteResult, bool)
	Delete(ctx context.Context, id uuid.UUID) (storage.WriteResult, bool)
	SetItinerary(ctx context.Context, tripID uuid.UUID, places []models.ItineraryPlace) (storage.WriteResult, bool)
	AddPlaceToItinerary(ctx context.Context, tripID uuid.UUID, place models.ItineraryPlace) (storage.WriteResult, bool)
	RemovePlaceFromItinerary(ctx context.Context, tripID uuid.UUID, placeID string) (storage.WriteResult, bool)
	TripsContainingPlace(placeID string) []uuid.UUID
	Filtered(searchText string, filter models.TripFilter) []*models.Trip
}

// StagingRepositoryInterface defines the staging operations used by the planner and handlers
type StagingRepositoryInterface interface {
	All() []models.ItineraryPlace
	Get(id string) (models.ItineraryPlace, bool)
	Contains(id string) bool
	Add(ctx context.Context, place models.ItineraryPlace) (storage.WriteResult, bool)
	Remove(ctx context.Context, id string) (storage.WriteResult, bool)
	RemoveMany(ctx context.Context, ids []string) (storage.WriteResult, bool)
	Update(ctx context.Context, place models.ItineraryPlace) (storage.WriteResult, bool)
}

// Ensure concrete types implement the interfaces
var (
	_ TripRepositoryInterface    = (*TripRepository)(nil)
	_ StagingRepositoryInterface = (*StagingRepository)(nil)
)
