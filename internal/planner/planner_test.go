package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *storage.MemoryStore
	trips   *database.TripRepository
	staging *database.StagingRepository
	jobs    *recordingQueue
	planner *Planner
}

// recordingQueue captures enqueued jobs in order
type recordingQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not supported")
}

func (q *recordingQueue) Close() error                      { return nil }
func (q *recordingQueue) HealthCheck(context.Context) error { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	f := &fixture{
		store:   store,
		trips:   database.NewTripRepository(store),
		staging: database.NewStagingRepository(store),
		jobs:    &recordingQueue{},
	}
	f.planner = New(f.trips, f.staging)
	f.planner.SetJobQueue(f.jobs)
	return f
}

func (f *fixture) addTrip(t *testing.T, name string, places ...models.ItineraryPlace) *models.Trip {
	t.Helper()
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	trip := models.NewTrip(name, name, start, start.AddDate(0, 0, 3))
	trip.Itinerary = places
	require.True(t, f.trips.Add(context.Background(), trip).OK())
	return trip
}

func (f *fixture) stage(t *testing.T, places ...models.ItineraryPlace) {
	t.Helper()
	for _, p := range places {
		_, added, err := f.planner.StagePlace(context.Background(), p)
		require.NoError(t, err)
		require.True(t, added)
	}
}

// drain returns and forgets the queued jobs as "type:place" strings
func (f *fixture) drain(t *testing.T) []string {
	t.Helper()
	f.jobs.mu.Lock()
	defer f.jobs.mu.Unlock()

	out := make([]string, 0, len(f.jobs.jobs))
	for _, job := range f.jobs.jobs {
		out = append(out, string(job.Type)+":"+job.PlaceID)
	}
	f.jobs.jobs = nil
	return out
}

func place(id string) models.ItineraryPlace {
	return models.ItineraryPlace{ID: id, Name: "Place " + id, Coordinate: models.Coordinate{Latitude: 1, Longitude: 1}}
}

func placeIDs(places []models.ItineraryPlace) []string {
	ids := make([]string, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCreateTrip_MovesStagedPlaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stage(t, place("a"), place("b"), place("c"))
	f.drain(t)

	start := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	trip := models.NewTrip("Lisbon", "Lisbon", start, start.AddDate(0, 0, 5))
	writes, err := f.planner.CreateTrip(ctx, trip, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.True(t, writes.OK())

	stored := f.trips.Get(trip.ID)
	require.NotNil(t, stored)
	require.Equal(t, []string{"c", "a"}, placeIDs(stored.Itinerary))
	require.Equal(t, []string{"b"}, placeIDs(f.staging.All()))
	require.Equal(t, []string{"index_place:c", "index_place:a"}, f.drain(t))

	// both collections survive a reload
	reloadedTrips := database.NewTripRepository(f.store)
	reloadedTrips.LoadAll(ctx)
	require.Equal(t, []string{"c", "a"}, placeIDs(reloadedTrips.Get(trip.ID).Itinerary))
	reloadedStaging := database.NewStagingRepository(f.store)
	require.Equal(t, []string{"b"}, placeIDs(reloadedStaging.Load(ctx)))
}

func TestCreateTrip_DuplicateID(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, "Oslo")

	_, err := f.planner.CreateTrip(context.Background(), trip.Clone(), nil)
	require.Error(t, err)
	require.Len(t, f.trips.All(), 1)
}

func TestStagePlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTrip(t, "Rome", place("committed"))

	_, added, err := f.planner.StagePlace(ctx, place("new"))
	require.NoError(t, err)
	require.True(t, added)

	res, added, err := f.planner.StagePlace(ctx, place("new"))
	require.NoError(t, err)
	require.False(t, added)
	require.True(t, res.Skipped)

	_, added, err = f.planner.StagePlace(ctx, place("committed"))
	require.ErrorIs(t, err, ErrAlreadyCommitted)
	require.False(t, added)
	require.False(t, f.staging.Contains("committed"))

	require.Equal(t, []string{"index_place:new"}, f.drain(t))
}

func TestPromoteToTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.addTrip(t, "Kyoto", place("a"))
	f.stage(t, place("b"))
	f.drain(t)

	writes, err := f.planner.PromoteToTrip(ctx, "b", trip.ID)
	require.NoError(t, err)
	require.True(t, writes.OK())
	require.Equal(t, []string{"a", "b"}, placeIDs(f.trips.Get(trip.ID).Itinerary))
	require.False(t, f.staging.Contains("b"))
	require.Equal(t, []string{"index_place:b"}, f.drain(t))

	_, err = f.planner.PromoteToTrip(ctx, "b", trip.ID)
	require.ErrorIs(t, err, ErrPlaceNotStaged)

	f.stage(t, place("c"))
	_, err = f.planner.PromoteToTrip(ctx, "c", uuid.New())
	require.ErrorIs(t, err, ErrTripNotFound)
	require.True(t, f.staging.Contains("c"), "failed promotion keeps the place staged")
}

func TestCommitSession_EvictsFromStaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.addTrip(t, "Paris", place("old"))
	f.stage(t, place("a"), place("b"), place("keep"))
	f.drain(t)

	session, err := f.planner.OpenSession(trip.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"old"}, placeIDs(session.Places()))

	require.True(t, session.Remove("old"))
	a, _ := f.staging.Get("a")
	b, _ := f.staging.Get("b")
	session.Append(a)
	session.Append(b)

	writes, err := f.planner.CommitSession(ctx, session)
	require.NoError(t, err)
	require.True(t, writes.OK())

	require.Equal(t, []string{"a", "b"}, placeIDs(f.trips.Get(trip.ID).Itinerary))
	require.Equal(t, []string{"keep"}, placeIDs(f.staging.All()))
	require.ElementsMatch(t, []string{"index_place:a", "index_place:b", "delete_place:old"}, f.drain(t))

	// no place is both staged and committed
	for _, staged := range f.staging.All() {
		require.Empty(t, f.trips.TripsContainingPlace(staged.ID))
	}
}

func TestCommitSession_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.planner.OpenSession(uuid.New())
	require.ErrorIs(t, err, ErrTripNotFound)

	trip := f.addTrip(t, "Berlin")
	session, err := f.planner.OpenSession(trip.ID)
	require.NoError(t, err)
	_, deleted := f.planner.DeleteTrip(ctx, trip.ID)
	require.True(t, deleted)

	_, err = f.planner.CommitSession(ctx, session)
	require.ErrorIs(t, err, ErrTripNotFound)

	session.Clear()
	_, err = f.planner.CommitSession(ctx, session)
	require.ErrorIs(t, err, ErrSessionDetached)
}

func TestRemoveFromTripAndUnstage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.addTrip(t, "Madrid", place("a"), place("b"))
	f.stage(t, place("s"))
	f.drain(t)

	res, err := f.planner.RemoveFromTrip(ctx, trip.ID, "a")
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, []string{"b"}, placeIDs(f.trips.Get(trip.ID).Itinerary))

	res, err = f.planner.RemoveFromTrip(ctx, trip.ID, "a")
	require.NoError(t, err)
	require.True(t, res.Skipped)

	_, err = f.planner.RemoveFromTrip(ctx, uuid.New(), "b")
	require.ErrorIs(t, err, ErrTripNotFound)

	_, removed := f.planner.Unstage(ctx, "s")
	require.True(t, removed)
	_, removed = f.planner.Unstage(ctx, "s")
	require.False(t, removed)

	require.Equal(t, []string{"delete_place:a", "delete_place:s"}, f.drain(t))
}

func TestDeleteTrip_KeepsSharedPlacesIndexed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addTrip(t, "Vienna", place("shared"), place("only"))
	f.addTrip(t, "Prague", place("shared"))

	_, deleted := f.planner.DeleteTrip(ctx, first.ID)
	require.True(t, deleted)
	require.Equal(t, []string{"delete_place:only"}, f.drain(t))

	res, deleted := f.planner.DeleteTrip(ctx, first.ID)
	require.False(t, deleted)
	require.True(t, res.Skipped)
}

func TestMovePlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.addTrip(t, "Athens", place("a"), place("b"))
	to := f.addTrip(t, "Crete", place("c"))

	writes, err := f.planner.MovePlace(ctx, "a", from.ID, to.ID)
	require.NoError(t, err)
	require.True(t, writes.OK())
	require.Equal(t, []string{"b"}, placeIDs(f.trips.Get(from.ID).Itinerary))
	require.Equal(t, []string{"c", "a"}, placeIDs(f.trips.Get(to.ID).Itinerary))

	_, err = f.planner.MovePlace(ctx, "a", from.ID, to.ID)
	require.ErrorIs(t, err, ErrPlaceNotInTrip)

	_, err = f.planner.MovePlace(ctx, "b", from.ID, uuid.New())
	require.ErrorIs(t, err, ErrTripNotFound)

	writes, err = f.planner.MovePlace(ctx, "b", from.ID, from.ID)
	require.NoError(t, err)
	require.True(t, writes[0].Skipped)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// write a staged copy of a committed place behind the planner's back
	f.addTrip(t, "Dublin", place("dup"))
	_, added := f.staging.Add(ctx, place("dup"))
	require.True(t, added)
	_, added = f.staging.Add(ctx, place("free"))
	require.True(t, added)

	_, n := f.planner.Reconcile(ctx)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"free"}, placeIDs(f.staging.All()))

	res, n := f.planner.Reconcile(ctx)
	require.Zero(t, n)
	require.True(t, res.Skipped)
}

type failingStore struct {
	storage.BlobStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Put(context.Context, string, []byte) error {
	return errDiskFull
}

func TestWrites_ReportFailures(t *testing.T) {
	store := failingStore{BlobStore: storage.NewMemoryStore()}
	trips := database.NewTripRepository(store)
	staging := database.NewStagingRepository(store)
	p := New(trips, staging)
	ctx := context.Background()

	_, added, err := p.StagePlace(ctx, place("a"))
	require.NoError(t, err)
	require.True(t, added, "in-memory state stays authoritative when the write fails")

	start := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	writes, err := p.CreateTrip(ctx, models.NewTrip("Nice", "Nice", start, start), []string{"a"})
	require.NoError(t, err)
	require.False(t, writes.OK())
	require.ErrorIs(t, writes.Err(), errDiskFull)
	require.Len(t, trips.All(), 1)
	require.False(t, staging.Contains("a"))
}
