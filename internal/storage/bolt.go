package storage

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "blobs"

// BoltStore keeps blobs in a single bbolt bucket
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bolt file at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns a copy of the value stored under key
func (b *BoltStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, "bolt", "Get", key)

	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		res := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if res == nil {
			return ErrNotFound
		}
		// bolt values are only valid for the life of the transaction
		data = append([]byte(nil), res...)
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put replaces the value stored under key
func (b *BoltStore) Put(ctx context.Context, key string, data []byte) error {
	_, span := startSpan(ctx, "bolt", "Put", key)
	if err := validateKey(key); err != nil {
		endSpan(span, err)
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), data)
	})
	if err != nil {
		err = fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	endSpan(span, err)
	return err
}

// Close closes the bolt file
func (b *BoltStore) Close() error {
	return b.db.Close()
}
