package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/search"
	"go.uber.org/zap"
)

const (
	baseRetryDelay = 5 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// PlaceCatalog is the search index saved places are pushed into.
// Implemented by search.ElasticProvider.
type PlaceCatalog interface {
	IndexPlace(ctx context.Context, place models.ItineraryPlace) error
	DeletePlace(ctx context.Context, placeID string) error
}

// PlaceIndexer processes index_place and delete_place jobs
type PlaceIndexer struct {
	catalog  PlaceCatalog
	jobQueue queue.JobQueue // for re-enqueueing jobs with delays
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlaceIndexer creates a new place indexer. jobQueue may be nil, in which case failed
// jobs are requeued immediately.
func NewPlaceIndexer(catalog PlaceCatalog, jobQueue queue.JobQueue, logger *zap.Logger) *PlaceIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceIndexer{
		catalog:  catalog,
		jobQueue: jobQueue,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessJob processes a job based on its type and settles the message
func (w *PlaceIndexer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		w.logger.Info("job_expired", zap.String("job_id", job.ID.String()))
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeIndexPlace:
		err = w.indexPlace(ctx, job)
	case queue.JobTypeDeletePlace:
		err = w.catalog.DeletePlace(ctx, job.PlaceID)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return w.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	w.logger.Debug("job_processed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("place_id", job.PlaceID))
	return nil
}

func (w *PlaceIndexer) indexPlace(ctx context.Context, job *queue.Job) error {
	if job.Place == nil {
		return errPermanent{fmt.Errorf("index_place job %s has no place", job.ID)}
	}
	return w.catalog.IndexPlace(ctx, *job.Place)
}

// handleJobError retries transient failures with a growing delay and dead-letters the rest
func (w *PlaceIndexer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("place_id", job.PlaceID),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if errors.Is(err, context.Canceled) {
		// shutting down; hand the job back untouched
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return err
	}

	if IsPermanent(err) || !job.CanRetry() {
		w.logger.Error("job_dead_lettered", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed permanently: %w", err)
	}

	if w.jobQueue != nil {
		notBefore := w.now().Add(RetryDelay(job.RetryCount))
		enqueueErr := w.jobQueue.Enqueue(ctx, job.Retry(notBefore))
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				w.logger.Warn("job_ack_failed", zap.Error(ackErr))
			}
			w.logger.Warn("job_rescheduled", append(fields, zap.Time("not_before", notBefore))...)
			return fmt.Errorf("job failed (rescheduled): %w", err)
		}
		w.logger.Warn("job_reenqueue_failed", zap.Error(enqueueErr))
	}

	// Fallback: nack with requeue (immediate retry)
	job.IncrementRetry()
	w.logger.Warn("job_requeued", fields...)
	if nackErr := msg.Nack(true); nackErr != nil {
		w.logger.Warn("job_nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (will retry): %w", err)
}

// Run processes messages until ctx is cancelled or msgChan closes
func (w *PlaceIndexer) Run(ctx context.Context, msgChan <-chan *queue.Message, errChan <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			w.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgChan:
			if !ok {
				w.logger.Info("message_channel_closed")
				return
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("job_processing_failed",
					zap.Error(err),
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)),
				)
			}
		}
	}
}

// RetryDelay doubles from 5s per retry, capped at five minutes
func RetryDelay(retryCount int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

type errPermanent struct{ error }

func (e errPermanent) Unwrap() error { return e.error }

// IsPermanent reports whether retrying err cannot help: malformed jobs and client-side
// rejections from the catalog (other than 429)
func IsPermanent(err error) bool {
	var p errPermanent
	if errors.As(err, &p) {
		return true
	}
	var pe *search.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case search.KindMalformed:
			return true
		case search.KindBadStatus:
			return pe.StatusCode >= 400 && pe.StatusCode < 500 && pe.StatusCode != http.StatusTooManyRequests
		}
	}
	return false
}
