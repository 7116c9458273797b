package queue

import (
	"errors"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeIndexPlace pushes a saved place into the search catalog
	JobTypeIndexPlace JobType = "index_place"
	// JobTypeDeletePlace removes a place that is no longer saved anywhere
	JobTypeDeletePlace JobType = "delete_place"
)

// DefaultMaxRetries is the retry budget of a new job
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID              `json:"id"`
	Type       JobType                `json:"type"`
	PlaceID    string                 `json:"place_id"`
	Place      *models.ItineraryPlace `json:"place,omitempty"`   // set for index jobs
	TripID     *uuid.UUID             `json:"trip_id,omitempty"` // trip the place was committed to, if any
	NotBefore  *time.Time             `json:"not_before,omitempty"`
	NotAfter   *time.Time             `json:"not_after,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
}

// NewIndexPlaceJob creates a job that indexes place. tripID may be nil for staged places.
func NewIndexPlaceJob(place models.ItineraryPlace, tripID *uuid.UUID) *Job {
	p := models.ClonePlaces([]models.ItineraryPlace{place})[0]
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeIndexPlace,
		PlaceID:    place.ID,
		Place:      &p,
		TripID:     tripID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewDeletePlaceJob creates a job that removes placeID from the catalog
func NewDeletePlaceJob(placeID string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeDeletePlace,
		PlaceID:    placeID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// Validate checks that the job carries what its type needs
func (j *Job) Validate() error {
	if j.PlaceID == "" {
		return errors.New("place_id is required")
	}
	switch j.Type {
	case JobTypeIndexPlace:
		if j.Place == nil {
			return errors.New("place is required for index_place job")
		}
		if j.Place.ID != j.PlaceID {
			return errors.New("place id does not match place_id")
		}
	case JobTypeDeletePlace:
	default:
		return errors.New("unknown job type: " + string(j.Type))
	}
	return nil
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// Retry returns a copy of the job scheduled no earlier than notBefore with one more retry counted
func (j *Job) Retry(notBefore time.Time) *Job {
	next := *j
	next.NotBefore = &notBefore
	next.RetryCount = j.RetryCount + 1
	return &next
}
