package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqlStore implements BlobStore over a single blobs table.
// The dialect-specific pieces are the queries and the timestamp encoding.
type sqlStore struct {
	db        *sql.DB
	backend   string
	getQuery  string
	putQuery  string
	timestamp func(time.Time) any
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, s.backend, "Get", key)

	var data []byte
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *sqlStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := startSpan(ctx, s.backend, "Put", key)
	if err := validateKey(key); err != nil {
		endSpan(span, err)
		return err
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx, s.putQuery, key, data, s.timestamp(time.Now().UTC()))
	if err != nil {
		err = fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	endSpan(span, err)
	return err
}

// Ping checks the database connection
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
