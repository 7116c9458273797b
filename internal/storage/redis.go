package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces blob keys inside a shared Redis database
const DefaultRedisPrefix = "tripplanner:"

// RedisStore keeps each blob as a plain Redis string
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses redisURL and verifies the connection
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, DefaultRedisPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Client exposes the underlying client so the rate limiter can share the connection
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// Get returns the blob stored under key
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, "redis", "Get", key)

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		endSpan(span, ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed to get blob %s: %w", key, err)
		endSpan(span, err)
		return nil, err
	}
	endSpan(span, nil)
	return data, nil
}

// Put replaces the blob stored under key. Blobs never expire.
func (r *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := startSpan(ctx, "redis", "Put", key)
	if err := validateKey(key); err != nil {
		endSpan(span, err)
		return err
	}

	err := r.client.Set(ctx, r.prefix+key, data, 0).Err()
	if err != nil {
		err = fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	endSpan(span, err)
	return err
}

// Ping checks if Redis is reachable
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
