package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)
`

// PostgresStore is a BlobStore backed by a Postgres table
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore connects to databaseURL, verifies the connection and ensures the schema
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &PostgresStore{sqlStore{
		db:       db,
		backend:  "postgres",
		getQuery: `SELECT data FROM blobs WHERE key = $1`,
		putQuery: `
			INSERT INTO blobs (key, data, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		`,
		timestamp: func(t time.Time) any {
			return t
		},
	}}, nil
}
