package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/memory"
	"github.com/phrazzld/todo-api/internal/platform/postgres"
	"github.com/phrazzld/todo-api/internal/redact"
	"github.com/phrazzld/todo-api/internal/store"
)

const pingTimeout = 5 * time.Second

// errMemoryMigrations is returned when a migration is requested for the
// in-memory driver.
var errMemoryMigrations = errors.New("migrations require the postgres database driver")

// setupAppDatabase opens and pings the Postgres pool. With the memory driver
// there is no database and it returns a nil *sql.DB.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory item store; data is lost on restart")
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %s", redact.Error(err))
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %s", redact.Error(err))
	}

	logger.Info("Database connection established",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns)
	return db, nil
}

// newItemStore returns the store selected by the database driver.
func newItemStore(cfg *config.Config, db *sql.DB, logger *slog.Logger) (store.ItemStore, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return memory.NewItemStore(logger), nil
	case config.DriverPostgres:
		if db == nil {
			return nil, errors.New("postgres driver selected but no database connection")
		}
		return postgres.NewPostgresItemStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
