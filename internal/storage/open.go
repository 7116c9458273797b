package storage

import (
	"fmt"
	"strings"
)

// Supported store drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Drivers lists every driver accepted by Open
var Drivers = []string{DriverMemory, DriverFile, DriverBolt, DriverSQLite, DriverPostgres, DriverRedis}

// Open constructs the store selected by driver. dsn is a directory for "file",
// a file path for "bolt" and "sqlite", and a connection URL for "postgres" and "redis".
func Open(driver, dsn string) (BlobStore, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverMemory && dsn == "" {
		return nil, fmt.Errorf("store driver %q requires a DSN", driver)
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(dsn)
	case DriverBolt:
		return NewBoltStore(dsn)
	case DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(dsn)
	case DriverRedis:
		return NewRedisStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q (expected one of %s)", driver, strings.Join(Drivers, ", "))
	}
}
