// Package planner holds the operations that span the trip list and the staging area.
// A place id lives either in staging or in trip itineraries, never both; every
// operation here keeps that true.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/itinerary"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTripNotFound is returned when an operation names an unknown trip
	ErrTripNotFound = itinerary.ErrTripNotFound
	// ErrPlaceNotStaged is returned when promoting a place that is not in staging
	ErrPlaceNotStaged = errors.New("place not staged")
	// ErrPlaceNotInTrip is returned when moving a place out of a trip that does not hold it
	ErrPlaceNotInTrip = errors.New("place not in trip")
	// ErrAlreadyCommitted is returned when staging a place that already belongs to a trip
	ErrAlreadyCommitted = errors.New("place already committed to a trip")
	// ErrSessionDetached is returned when committing a session with no trip
	ErrSessionDetached = errors.New("session is not attached to a trip")
)

// Writes collects the write-throughs of one operation in the order they happened
type Writes []storage.WriteResult

// Err joins the errors of every failed write, nil when all succeeded
func (w Writes) Err() error {
	var errs []error
	for _, r := range w {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Key, r.Err))
		}
	}
	return errors.Join(errs...)
}

// OK reports whether every write reached the store
func (w Writes) OK() bool {
	return w.Err() == nil
}

// Planner composes the trip and staging repositories
type Planner struct {
	trips   database.TripRepositoryInterface
	staging database.StagingRepositoryInterface
	jobs    queue.JobQueue
	logger  *zap.Logger
}

// New creates a planner over the given repositories
func New(trips database.TripRepositoryInterface, staging database.StagingRepositoryInterface) *Planner {
	return &Planner{
		trips:   trips,
		staging: staging,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for the planner
func (p *Planner) SetLogger(logger *zap.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// SetJobQueue enables catalog indexing jobs. nil disables them.
func (p *Planner) SetJobQueue(jobs queue.JobQueue) {
	p.jobs = jobs
}

// Trips returns the trip repository
func (p *Planner) Trips() database.TripRepositoryInterface {
	return p.trips
}

// Staging returns the staging repository
func (p *Planner) Staging() database.StagingRepositoryInterface {
	return p.staging
}

// CreateTrip adds trip, moving the staged places named by stagedIDs to the end of its
// itinerary in the given order. Unknown staged ids are skipped. trip is updated to the
// stored version.
func (p *Planner) CreateTrip(ctx context.Context, trip *models.Trip, stagedIDs []string) (Writes, error) {
	if trip == nil {
		return nil, errors.New("trip is required")
	}
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if p.trips.Get(trip.ID) != nil {
		return nil, fmt.Errorf("trip %s already exists", trip.ID)
	}

	created := trip.Clone()
	var moved []string
	for _, id := range stagedIDs {
		place, ok := p.staging.Get(id)
		if !ok {
			p.logger.Debug("create_trip_staged_place_missing", zap.String("place_id", id))
			continue
		}
		if created.ContainsPlace(id) {
			continue
		}
		created.Itinerary = append(created.Itinerary, place)
		moved = append(moved, id)
	}

	writes := Writes{p.trips.Add(ctx, created)}
	ids := make([]string, 0, len(created.Itinerary))
	for _, place := range created.Itinerary {
		ids = append(ids, place.ID)
		p.enqueue(ctx, queue.NewIndexPlaceJob(place, &created.ID))
	}
	if res, removed := p.staging.RemoveMany(ctx, ids); removed {
		writes = append(writes, res)
	}

	*trip = *created
	p.logger.Info("trip_created",
		zap.String("trip_id", created.ID.String()),
		zap.Int("places_from_staging", len(moved)))
	return writes, nil
}

// StagePlace admits place into staging. Places already in a trip are refused with
// ErrAlreadyCommitted; places already staged are a no-op and the bool is false.
func (p *Planner) StagePlace(ctx context.Context, place models.ItineraryPlace) (storage.WriteResult, bool, error) {
	if place.ID == "" {
		return storage.WriteResult{}, false, errors.New("place id is required")
	}
	if trips := p.trips.TripsContainingPlace(place.ID); len(trips) > 0 {
		return storage.WriteResult{}, false, fmt.Errorf("failed to stage %s (in trip %s): %w", place.ID, trips[0], ErrAlreadyCommitted)
	}
	res, added := p.staging.Add(ctx, place)
	if added {
		p.enqueue(ctx, queue.NewIndexPlaceJob(place, nil))
	}
	return res, added, nil
}

// PromoteToTrip moves a staged place to the end of a trip's itinerary
func (p *Planner) PromoteToTrip(ctx context.Context, placeID string, tripID uuid.UUID) (Writes, error) {
	place, ok := p.staging.Get(placeID)
	if !ok {
		return nil, fmt.Errorf("failed to promote %s: %w", placeID, ErrPlaceNotStaged)
	}
	res, found := p.trips.AddPlaceToItinerary(ctx, tripID, place)
	if !found {
		return nil, fmt.Errorf("failed to promote %s into %s: %w", placeID, tripID, ErrTripNotFound)
	}
	writes := Writes{res}
	evicted, _ := p.staging.Remove(ctx, placeID)
	writes = append(writes, evicted)

	p.enqueue(ctx, queue.NewIndexPlaceJob(place, &tripID))
	p.logger.Info("place_promoted", zap.String("place_id", placeID), zap.String("trip_id", tripID.String()))
	return writes, nil
}

// OpenSession starts an itinerary session seeded from the trip
func (p *Planner) OpenSession(tripID uuid.UUID) (*itinerary.Session, error) {
	trip := p.trips.Get(tripID)
	if trip == nil {
		return nil, fmt.Errorf("failed to open session for %s: %w", tripID, ErrTripNotFound)
	}
	return itinerary.NewSessionForTrip(trip), nil
}

// CommitSession writes the session's order into its trip, then evicts every committed
// place from staging
func (p *Planner) CommitSession(ctx context.Context, session *itinerary.Session) (Writes, error) {
	tripID, attached := session.TripID()
	if !attached {
		return nil, ErrSessionDetached
	}
	before := p.trips.Get(tripID)
	if before == nil {
		return nil, fmt.Errorf("failed to commit session: %w", ErrTripNotFound)
	}

	res, err := session.Commit(ctx, tripID, p.trips)
	if err != nil {
		return nil, err
	}
	writes := Writes{res}

	places := session.Places()
	committed := make([]string, 0, len(places))
	for _, place := range places {
		committed = append(committed, place.ID)
		if !before.ContainsPlace(place.ID) {
			p.enqueue(ctx, queue.NewIndexPlaceJob(place, &tripID))
		}
	}
	if evicted, removed := p.staging.RemoveMany(ctx, committed); removed {
		writes = append(writes, evicted)
	}

	for _, old := range before.Itinerary {
		if models.IndexOfPlace(places, old.ID) < 0 {
			p.forgetIfOrphaned(ctx, old.ID)
		}
	}

	p.logger.Info("session_committed",
		zap.String("trip_id", tripID.String()),
		zap.Int("places", len(places)))
	return writes, nil
}

// RemoveFromTrip drops a place from a trip's itinerary. A place the trip does not hold
// is a no-op.
func (p *Planner) RemoveFromTrip(ctx context.Context, tripID uuid.UUID, placeID string) (storage.WriteResult, error) {
	res, found := p.trips.RemovePlaceFromItinerary(ctx, tripID, placeID)
	if !found {
		return res, fmt.Errorf("failed to remove %s: %w", placeID, ErrTripNotFound)
	}
	if !res.Skipped {
		p.forgetIfOrphaned(ctx, placeID)
	}
	return res, nil
}

// Unstage removes a place from staging. The bool reports whether it was staged.
func (p *Planner) Unstage(ctx context.Context, placeID string) (storage.WriteResult, bool) {
	res, removed := p.staging.Remove(ctx, placeID)
	if removed {
		p.forgetIfOrphaned(ctx, placeID)
	}
	return res, removed
}

// DeleteTrip removes a trip. Deleting an unknown trip is a no-op and the bool is false.
func (p *Planner) DeleteTrip(ctx context.Context, id uuid.UUID) (storage.WriteResult, bool) {
	trip := p.trips.Get(id)
	res, deleted := p.trips.Delete(ctx, id)
	if deleted && trip != nil {
		for _, place := range trip.Itinerary {
			p.forgetIfOrphaned(ctx, place.ID)
		}
	}
	return res, deleted
}

// MovePlace appends a place to toTripID's itinerary and removes it from fromTripID's
func (p *Planner) MovePlace(ctx context.Context, placeID string, fromTripID, toTripID uuid.UUID) (Writes, error) {
	from := p.trips.Get(fromTripID)
	if from == nil {
		return nil, fmt.Errorf("failed to move %s from %s: %w", placeID, fromTripID, ErrTripNotFound)
	}
	if p.trips.Get(toTripID) == nil {
		return nil, fmt.Errorf("failed to move %s to %s: %w", placeID, toTripID, ErrTripNotFound)
	}
	i := models.IndexOfPlace(from.Itinerary, placeID)
	if i < 0 {
		return nil, fmt.Errorf("failed to move %s from %s: %w", placeID, fromTripID, ErrPlaceNotInTrip)
	}
	if fromTripID == toTripID {
		return Writes{{Key: storage.KeyTrips, Skipped: true}}, nil
	}

	place := from.Itinerary[i]
	added, _ := p.trips.AddPlaceToItinerary(ctx, toTripID, place)
	removed, _ := p.trips.RemovePlaceFromItinerary(ctx, fromTripID, placeID)
	p.enqueue(ctx, queue.NewIndexPlaceJob(place, &toTripID))

	p.logger.Info("place_moved",
		zap.String("place_id", placeID),
		zap.String("from_trip_id", fromTripID.String()),
		zap.String("to_trip_id", toTripID.String()))
	return Writes{added, removed}, nil
}

// Reconcile evicts from staging any place that is also in a trip, restoring the
// staging XOR trip rule for data written by older builds
func (p *Planner) Reconcile(ctx context.Context) (storage.WriteResult, int) {
	var stale []string
	for _, place := range p.staging.All() {
		if len(p.trips.TripsContainingPlace(place.ID)) > 0 {
			stale = append(stale, place.ID)
		}
	}
	if len(stale) == 0 {
		return storage.WriteResult{Key: storage.KeyStagedPlaces, Skipped: true}, 0
	}
	res, _ := p.staging.RemoveMany(ctx, stale)
	p.logger.Warn("staging_reconciled", zap.Strings("place_ids", stale))
	return res, len(stale)
}

// forgetIfOrphaned drops a place from the catalog once nothing references it
func (p *Planner) forgetIfOrphaned(ctx context.Context, placeID string) {
	if p.staging.Contains(placeID) || len(p.trips.TripsContainingPlace(placeID)) > 0 {
		return
	}
	p.enqueue(ctx, queue.NewDeletePlaceJob(placeID))
}

func (p *Planner) enqueue(ctx context.Context, job *queue.Job) {
	if p.jobs == nil {
		return
	}
	if err := p.jobs.Enqueue(ctx, job); err != nil {
		p.logger.Warn("place_job_enqueue_failed",
			zap.String("job_type", string(job.Type)),
			zap.String("place_id", job.PlaceID),
			zap.Error(err))
	}
}
