package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TripRepository owns the master list of trips. The in-memory list is the source of truth
// for the session; every mutation writes the whole list through to the blob store.
type TripRepository struct {
	mu     sync.Mutex
	store  storage.BlobStore
	trips  []*models.Trip
	logger *zap.Logger
	now    func() time.Time
}

// NewTripRepository creates a trip repository over store. Call LoadAll to read persisted trips.
func NewTripRepository(store storage.BlobStore) *TripRepository {
	return &TripRepository{
		store:  store,
		trips:  []*models.Trip{},
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// SetLogger sets the logger for the repository
func (r *TripRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetClock overrides the time source used by Filtered
func (r *TripRepository) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// LoadAll replaces the in-memory list with the persisted one and returns a copy.
// A missing or corrupt blob yields an empty list.
func (r *TripRepository) LoadAll(ctx context.Context) []*models.Trip {
	loaded := loadList[models.Trip](ctx, r.store, storage.KeyTrips, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.trips = make([]*models.Trip, 0, len(loaded))
	for i := range loaded {
		t := loaded[i]
		if t.Itinerary == nil {
			t.Itinerary = []models.ItineraryPlace{}
		}
		r.trips = append(r.trips, &t)
	}
	r.logger.Debug("trips_loaded", zap.Int("count", len(r.trips)))
	return r.snapshotLocked()
}

// All returns a copy of every trip in list order
func (r *TripRepository) All() []*models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Get returns a copy of the trip with id, or nil
func (r *TripRepository) Get(id uuid.UUID) *models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(id); i >= 0 {
		return r.trips[i].Clone()
	}
	return nil
}

// Add appends a trip and persists the list
func (r *TripRepository) Add(ctx context.Context, trip *models.Trip) storage.WriteResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trips = append(r.trips, trip.Clone())
	r.logger.Info("trip_added", zap.String("trip_id", trip.ID.String()))
	return r.persistLocked(ctx)
}

// Update replaces the trip with a matching id. Unknown ids are a silent no-op.
func (r *TripRepository) Update(ctx context.Context, trip *models.Trip) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(trip.ID)
	if i < 0 {
		r.logger.Debug("trip_update_unknown_id", zap.String("trip_id", trip.ID.String()))
		return skipped(storage.KeyTrips), false
	}
	r.trips[i] = trip.Clone()
	return r.persistLocked(ctx), true
}

// Delete removes the trip with id. Deleting an unknown id leaves the list unchanged.
func (r *TripRepository) Delete(ctx context.Context, id uuid.UUID) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return skipped(storage.KeyTrips), false
	}
	r.trips = append(r.trips[:i], r.trips[i+1:]...)
	r.logger.Info("trip_deleted", zap.String("trip_id", id.String()))
	return r.persistLocked(ctx), true
}

// SetItinerary replaces a trip's entire itinerary. Duplicate place ids keep their first occurrence.
func (r *TripRepository) SetItinerary(ctx context.Context, tripID uuid.UUID, places []models.ItineraryPlace) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(tripID)
	if i < 0 {
		return skipped(storage.KeyTrips), false
	}
	r.trips[i].Itinerary = dedupPlaces(places)
	return r.persistLocked(ctx), true
}

// AddPlaceToItinerary appends place to the trip's itinerary unless its id is already present.
// The bool reports whether the trip exists.
func (r *TripRepository) AddPlaceToItinerary(ctx context.Context, tripID uuid.UUID, place models.ItineraryPlace) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(tripID)
	if i < 0 {
		return skipped(storage.KeyTrips), false
	}
	trip := r.trips[i]
	if trip.ContainsPlace(place.ID) {
		return skipped(storage.KeyTrips), true
	}
	trip.Itinerary = append(trip.Itinerary, models.ClonePlaces([]models.ItineraryPlace{place})...)
	return r.persistLocked(ctx), true
}

// RemovePlaceFromItinerary drops placeID from the trip's itinerary
func (r *TripRepository) RemovePlaceFromItinerary(ctx context.Context, tripID uuid.UUID, placeID string) (storage.WriteResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(tripID)
	if i < 0 {
		return skipped(storage.KeyTrips), false
	}
	trip := r.trips[i]
	j := models.IndexOfPlace(trip.Itinerary, placeID)
	if j < 0 {
		return skipped(storage.KeyTrips), true
	}
	trip.Itinerary = append(trip.Itinerary[:j], trip.Itinerary[j+1:]...)
	return r.persistLocked(ctx), true
}

// TripsContainingPlace returns the ids of trips whose itinerary holds placeID
func (r *TripRepository) TripsContainingPlace(placeID string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uuid.UUID
	for _, t := range r.trips {
		if t.ContainsPlace(placeID) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Filtered returns trips whose destination or description contains searchText
// (case-insensitive) and that match filter, sorted by start date, latest first.
// Ties keep list order.
func (r *TripRepository) Filtered(searchText string, filter models.TripFilter) []*models.Trip {
	r.mu.Lock()
	trips := r.snapshotLocked()
	now := r.now()
	r.mu.Unlock()

	return FilterTrips(trips, searchText, filter, now)
}

// FilterTrips applies the search/filter/sort contract to an arbitrary list
func FilterTrips(trips []*models.Trip, searchText string, filter models.TripFilter, now time.Time) []*models.Trip {
	needle := strings.ToLower(strings.TrimSpace(searchText))

	result := make([]*models.Trip, 0, len(trips))
	for _, t := range trips {
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Destination), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		if !t.MatchesFilter(filter, now) {
			continue
		}
		result = append(result, t)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartDate.After(result[j].StartDate)
	})
	return result
}

func (r *TripRepository) indexLocked(id uuid.UUID) int {
	for i, t := range r.trips {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *TripRepository) snapshotLocked() []*models.Trip {
	out := make([]*models.Trip, len(r.trips))
	for i, t := range r.trips {
		out[i] = t.Clone()
	}
	return out
}

func (r *TripRepository) persistLocked(ctx context.Context) storage.WriteResult {
	list := make([]models.Trip, len(r.trips))
	for i, t := range r.trips {
		list[i] = *t
	}
	return saveList(ctx, r.store, storage.KeyTrips, list, r.logger)
}

func dedupPlaces(places []models.ItineraryPlace) []models.ItineraryPlace {
	seen := make(map[string]struct{}, len(places))
	out := make([]models.ItineraryPlace, 0, len(places))
	for _, p := range places {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return models.ClonePlaces(out)
}
