// Package backend builds the store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"
	"log"

	"fintrack-server/src/config"
	"fintrack-server/src/db"
	"fintrack-server/src/db/memory"
	"fintrack-server/src/db/postgres"
	"fintrack-server/src/db/sqlite"
)

// Open returns a connected store. The caller owns it and must Close it.
func Open(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Println("INFO: Using postgres backend")
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Printf("INFO: Using sqlite backend at %s", cfg.SQLiteDBPath)
		return store, nil
	case config.BackendMemory:
		log.Println("INFO: Using in-memory backend, data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}
}

// Migrate applies schema migrations for the configured backend.
func Migrate(cfg *config.Config) error {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		return db.MigratePostgres(cfg.DatabaseURL)
	case config.BackendSQLite:
		return db.MigrateSQLite(cfg.SQLiteDBPath)
	case config.BackendMemory:
		return nil
	default:
		return fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}
}
