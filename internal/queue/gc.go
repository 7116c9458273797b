package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often dead-lettered index jobs are swept
	DefaultSweepInterval = time.Hour
	// DefaultDeadLetterRetention keeps failed index jobs around for a day of inspection
	DefaultDeadLetterRetention = 24 * time.Hour

	sweepTimeout = 2 * time.Minute
)

// GarbageCollector sweeps dead-lettered jobs older than the retention window
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a sweeper over purger. Non-positive durations fall back to the defaults.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultDeadLetterRetention
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweepAndLog(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweepAndLog(ctx)
		}
	}
}

func (gc *GarbageCollector) sweepAndLog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := gc.Sweep(ctx); err != nil {
		gc.logger.Warn("dlq_gc_failed", zap.Error(err))
	}
}

// Sweep purges dead-lettered jobs older than the retention window and returns how many went
func (gc *GarbageCollector) Sweep(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("failed to purge dead letters: %w", err)
	}
	if n > 0 {
		gc.logger.Info("dlq_gc_purged", zap.Int("count", n), zap.Duration("retention", gc.retention))
	}
	return n, nil
}
