package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/trip-planner/internal/storage"
	"go.uber.org/zap"
)

// loadList reads a JSON array blob. Missing, unreadable or undecodable data yields an
// empty list so that a corrupt or outdated blob never prevents the app from starting.
func loadList[T any](ctx context.Context, store storage.BlobStore, key string, logger *zap.Logger) []T {
	data, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Debug("blob_not_found_starting_empty", zap.String("key", key))
		return []T{}
	}
	if err != nil {
		logger.Warn("blob_read_failed_starting_empty",
			zap.String("key", key),
			zap.Error(err),
		)
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("blob_decode_failed_starting_empty",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// saveList writes the whole list through to the store
func saveList[T any](ctx context.Context, store storage.BlobStore, key string, items []T, logger *zap.Logger) storage.WriteResult {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		result := storage.WriteResult{Key: key, Err: fmt.Errorf("failed to encode %s: %w", key, err)}
		logger.Error("blob_encode_failed", zap.String("key", key), zap.Error(err))
		return result
	}

	if err := store.Put(ctx, key, data); err != nil {
		logger.Warn("blob_write_failed",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return storage.WriteResult{Key: key, Bytes: len(data), Err: err}
	}
	return storage.WriteResult{Key: key, Bytes: len(data)}
}

func skipped(key string) storage.WriteResult {
	return storage.WriteResult{Key: key, Skipped: true}
}
