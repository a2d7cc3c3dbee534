package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/phrazzld/todo-api/internal/clock"
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/events"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/phrazzld/todo-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	clock  clock.Clock

	// db is nil for the memory driver.
	db *sql.DB

	itemStore   store.ItemStore
	emitter     *events.InMemoryEventEmitter
	itemService service.ItemService

	// sweeper is nil when the sweep is disabled.
	sweeper *task.OverdueSweeper
}

// newApplication creates an application with all dependencies initialized.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		clock:  clock.System(),
		db:     db,
	}

	var err error
	app.itemStore, err = newItemStore(cfg, db, logger)
	if err != nil {
		return nil, err
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLogHandler(logger))

	app.itemService, err = service.NewItemService(app.itemStore, app.clock, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create item service: %w", err)
	}

	if cfg.Sweeper.Enabled {
		app.sweeper, err = task.NewOverdueSweeper(app.itemStore, app.clock, app.emitter,
			task.OverdueSweeperConfig{
				Interval: time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second,
			}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create overdue sweeper: %w", err)
		}
	}

	logger.Info("Application initialized successfully",
		"database_driver", cfg.Database.Driver,
		"sweeper_enabled", app.sweeper != nil)
	return app, nil
}

// Run starts the sweeper and the HTTP server and blocks until ctx is
// cancelled or the server fails. Resources are released before it returns.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serve(ctx, ln)
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
