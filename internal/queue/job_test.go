package queue

import (
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/google/uuid"
)

func testPlace(id string) models.ItineraryPlace {
	return models.ItineraryPlace{
		ID:         id,
		Name:       "Place " + id,
		Types:      []string{"museum"},
		Coordinate: models.Coordinate{Latitude: 42.27, Longitude: -71.8},
	}
}

func TestNewIndexPlaceJob(t *testing.T) {
	t.Parallel()

	tripID := uuid.New()
	place := testPlace("p1")
	job := NewIndexPlaceJob(place, &tripID)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeIndexPlace {
		t.Errorf("Expected job type to be %s, got %s", JobTypeIndexPlace, job.Type)
	}
	if job.PlaceID != "p1" || job.Place == nil || job.Place.ID != "p1" {
		t.Errorf("Expected place p1, got %q / %+v", job.PlaceID, job.Place)
	}
	if job.TripID == nil || *job.TripID != tripID {
		t.Errorf("Expected trip ID %s, got %v", tripID, job.TripID)
	}
	if job.MaxRetries != DefaultMaxRetries || job.RetryCount != 0 {
		t.Errorf("Expected fresh retry budget, got %d/%d", job.RetryCount, job.MaxRetries)
	}

	place.Types[0] = "changed"
	if job.Place.Types[0] != "museum" {
		t.Error("Expected job to hold its own copy of the place")
	}
	if err := job.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	place := testPlace("p1")
	other := testPlace("p2")

	tests := []struct {
		name    string
		job     *Job
		wantErr bool
	}{
		{name: "index job", job: NewIndexPlaceJob(place, nil), wantErr: false},
		{name: "delete job", job: NewDeletePlaceJob("p1"), wantErr: false},
		{name: "missing place id", job: &Job{Type: JobTypeDeletePlace}, wantErr: true},
		{name: "index job without place", job: &Job{Type: JobTypeIndexPlace, PlaceID: "p1"}, wantErr: true},
		{name: "mismatched place", job: &Job{Type: JobTypeIndexPlace, PlaceID: "p1", Place: &other}, wantErr: true},
		{name: "unknown type", job: &Job{Type: "reprocess_user", PlaceID: "p1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.job.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{name: "no time constraints", want: true},
		{name: "not before in past", notBefore: timePtr(now.Add(-time.Hour)), want: true},
		{name: "not before in future", notBefore: timePtr(now.Add(time.Hour)), want: false},
		{name: "not after in past", notAfter: timePtr(now.Add(-time.Hour)), want: false},
		{name: "not after in future", notAfter: timePtr(now.Add(time.Hour)), want: true},
		{name: "within time window", notBefore: timePtr(now.Add(-time.Hour)), notAfter: timePtr(now.Add(time.Hour)), want: true},
		{name: "outside time window - before", notBefore: timePtr(now.Add(time.Hour)), notAfter: timePtr(now.Add(2 * time.Hour)), want: false},
		{name: "outside time window - after", notBefore: timePtr(now.Add(-2 * time.Hour)), notAfter: timePtr(now.Add(-time.Hour)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewDeletePlaceJob("p1")
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{name: "no expiration", want: false},
		{name: "expired", notAfter: timePtr(now.Add(-time.Hour)), want: true},
		{name: "not expired", notAfter: timePtr(now.Add(time.Hour)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewDeletePlaceJob("p1")
			job.NotAfter = tt.notAfter
			if got := job.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_CanRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{name: "can retry - no retries yet", retryCount: 0, maxRetries: 3, want: true},
		{name: "can retry - max retries minus one", retryCount: 2, maxRetries: 3, want: true},
		{name: "cannot retry - at max retries", retryCount: 3, maxRetries: 3, want: false},
		{name: "cannot retry - exceeded max retries", retryCount: 4, maxRetries: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			if got := job.CanRetry(); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewIndexPlaceJob(testPlace("p1"), nil)
	at := time.Now().Add(time.Minute)
	next := job.Retry(at)

	if next.ID != job.ID {
		t.Error("Expected retry to keep the job ID")
	}
	if next.RetryCount != 1 || job.RetryCount != 0 {
		t.Errorf("Expected retry count 1 on copy and 0 on original, got %d and %d", next.RetryCount, job.RetryCount)
	}
	if next.NotBefore == nil || !next.NotBefore.Equal(at) {
		t.Errorf("Expected NotBefore %v, got %v", at, next.NotBefore)
	}
	if job.NotBefore != nil {
		t.Error("Expected original job to stay unscheduled")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
