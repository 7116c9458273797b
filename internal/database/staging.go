package database

import (
	"context"
	"sync"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/storage"
	"go.uber.org/zap"
)

// StagingRepository owns the places saved but not yet attached to a trip.
// Entries are unique by id and kept in insertion order.
type StagingRepository struct {
	mu     sync.Mutex
	store  storage.BlobStore
	places []models.ItineraryPlace
	logger *zap.Logger
}

// NewStagingRepository creates a staging repository over store. Call Load to read persisted places.
func NewStagingRepository(store storage.BlobStore) *StagingRepository {
	return &StagingRepository{
		store:  store,
		places: []models.ItineraryPlace{},
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for the repository
func (r *StagingRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Load replaces the in-memory set with the persisted one and returns a copy
func (r *StagingRepository) Load(ctx context.Context) []models.ItineraryPlace {
	loaded := loadList[models.ItineraryPlace](ctx, r.store, storage.KeyStagedPlaces, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	// a hand-edited blob may contain duplicates
	r.places = dedupPlaces(loaded)
	r.logger.Debug("staged_places_loaded", zap.Int("count", len(r.places)))
	return models.ClonePlaces(r.places)
}

// All returns the staged places in insertion order
func (r *StagingRepository) All() []models.ItineraryPlace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.ClonePlaces(r.places)
}

// Get returns the staged place with id
func (r *StagingRepository) Get(id string) (models.ItineraryPlace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := models.IndexOfPlace(r.places, id); i >= 0 {
		return models.ClonePlaces(r.places[i : i+1])[0], true
	}
	return models.ItineraryPlace{}, false
}

// Contains reports whether a place with id is staged
func (r *StagingRepository) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.IndexOfPlace(r.places, id) >= 0
}

// Add stages place unless its id is already present. The bool reports whether it was added.
func (r *StagingRepository) Add(ctx context.Context, place models.ItineraryPlace) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if models.IndexOfPlace(r.places, place.ID) >= 0 {
		r.logger.Debug("staged_place_already_exists", zap.String("place_id", place.ID))
		return skipped(storage.KeyStagedPlaces), false
	}
	r.places = append(r.places, models.ClonePlaces([]models.ItineraryPlace{place})...)
	r.logger.Info("place_staged", zap.String("place_id", place.ID))
	return r.persistLocked(ctx), true
}

// Remove drops the place with id. The bool reports whether it was present.
func (r *StagingRepository) Remove(ctx context.Context, id string) (storage.WriteResult, bool) {
	return r.RemoveMany(ctx, []string{id})
}

// RemoveMany drops every listed id with a single write. The bool reports whether anything was removed.
func (r *StagingRepository) RemoveMany(ctx context.Context, ids []string) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := r.places[:0]
	removed := 0
	for _, p := range r.places {
		if _, ok := drop[p.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	r.places = kept

	if removed == 0 {
		return skipped(storage.KeyStagedPlaces), false
	}
	r.logger.Info("places_unstaged", zap.Int("count", removed))
	return r.persistLocked(ctx), true
}

// Update replaces the staged place with a matching id
func (r *StagingRepository) Update(ctx context.Context, place models.ItineraryPlace) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := models.IndexOfPlace(r.places, place.ID)
	if i < 0 {
		return skipped(storage.KeyStagedPlaces), false
	}
	r.places[i] = models.ClonePlaces([]models.ItineraryPlace{place})[0]
	return r.persistLocked(ctx), true
}

func (r *StagingRepository) persistLocked(ctx context.Context) storage.WriteResult {
	return saveList(ctx, r.store, storage.KeyStagedPlaces, r.places, r.logger)
}
