package storage

import (
	"context"
	"errors"
	"fmt"
)

// Blob keys used by the repositories
const (
	KeyTrips        = "trips"
	KeyStagedPlaces = "staged_places"
)

// ErrNotFound is returned by Get when no blob is stored under the key
var ErrNotFound = errors.New("blob not found")

// BlobStore is a named byte-blob store. Every call is atomic at blob granularity.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Pinger is implemented by stores backed by a network service
type Pinger interface {
	Ping(ctx context.Context) error
}

// WriteResult reports the outcome of a write-through. Callers may ignore it.
type WriteResult struct {
	Key   string
	Bytes int
	Err   error
	// Skipped is set when the mutation was a no-op and nothing was written
	Skipped bool
}

// OK reports whether the write reached the store
func (r WriteResult) OK() bool {
	return r.Err == nil
}

func (r WriteResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("write %s failed: %v", r.Key, r.Err)
	}
	if r.Skipped {
		return fmt.Sprintf("no changes to %s", r.Key)
	}
	return fmt.Sprintf("wrote %d bytes to %s", r.Bytes, r.Key)
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key must not be empty")
	}
	return nil
}
