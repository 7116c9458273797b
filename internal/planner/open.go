package planner

import (
	"context"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/storage"
	"go.uber.org/zap"
)

// Open builds a planner over store: both collections are loaded, then staging is reconciled
// against the trips. A failed reconcile write is logged; the in-memory state is already correct.
func Open(ctx context.Context, store storage.BlobStore, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}

	trips := database.NewTripRepository(store)
	trips.SetLogger(logger)
	staging := database.NewStagingRepository(store)
	staging.SetLogger(logger)

	loadedTrips := trips.LoadAll(ctx)
	loadedStaged := staging.Load(ctx)

	p := New(trips, staging)
	p.SetLogger(logger)
	if res, evicted := p.Reconcile(ctx); evicted > 0 && !res.OK() {
		logger.Error("staging_reconcile_write_failed", zap.Error(res.Err))
	}

	logger.Info("planner_opened",
		zap.Int("trips", len(loadedTrips)),
		zap.Int("staged_places", len(loadedStaged)))
	return p
}
