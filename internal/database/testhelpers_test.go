package database

import (
	"context"
	"errors"

	"github.com/benvon/trip-planner/internal/storage"
)

var errStoreDown = errors.New("store unavailable")

// failingStore wraps a store and fails every Put
type failingStore struct {
	storage.BlobStore
}

func (f failingStore) Put(ctx context.Context, key string, data []byte) error {
	return errStoreDown
}
