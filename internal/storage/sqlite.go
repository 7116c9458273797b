package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore is a BlobStore backed by a SQLite database file
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the schema.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run schema migrations: %w", err)
	}

	return &SQLiteStore{sqlStore{
		db:       db,
		backend:  "sqlite",
		getQuery: `SELECT data FROM blobs WHERE key = ?`,
		putQuery: `INSERT OR REPLACE INTO blobs (key, data, updated_at) VALUES (?, ?, ?)`,
		timestamp: func(t time.Time) any {
			return t.Format(time.RFC3339Nano)
		},
	}}, nil
}
