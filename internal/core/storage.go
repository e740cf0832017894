package core

import (
	"fmt"
	"os"
	"strings"

	"fiacore/internal/infra/persistence/memory"
	"fiacore/internal/infra/persistence/postgres"
	"fiacore/internal/infra/persistence/sqlite"
	"fiacore/pkg/domain"
)

// Environment variables selecting the persistence backend.
const (
	EnvStorageDriver = "FIACORE_STORAGE_DRIVER"
	EnvSQLitePath    = "FIACORE_SQLITE_PATH"
	EnvPostgresDSN   = "FIACORE_POSTGRES_DSN"
)

// OpenPersistentStoreFromEnv builds the persistence backend selected by
// FIACORE_STORAGE_DRIVER (memory, sqlite, postgres). Missing driver selects
// the in-memory store; an unknown driver is an error rather than a fallback.
func OpenPersistentStoreFromEnv() (domain.PersistentStore, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv(EnvStorageDriver)))
	switch driver {
	case "", "memory":
		return memory.NewStore(), nil
	case "sqlite":
		path := os.Getenv(EnvSQLitePath)
		if path == "" {
			return nil, fmt.Errorf("%s required for sqlite driver", EnvSQLitePath)
		}
		return sqlite.Open(path)
	case "postgres":
		dsn := os.Getenv(EnvPostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("%s required for postgres driver", EnvPostgresDSN)
		}
		return postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
