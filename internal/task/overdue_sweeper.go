package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/todo-api/internal/clock"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/events"
	"github.com/phrazzld/todo-api/internal/store"
)

// ErrSweeperRunning is returned by Start when the sweeper is already running.
var ErrSweeperRunning = errors.New("overdue sweeper already running")

// DefaultSweepInterval is how often the sweeper runs when no interval is configured.
const DefaultSweepInterval = 60 * time.Second

// OverdueSweeperConfig holds configuration for the overdue sweeper
type OverdueSweeperConfig struct {
	// Interval defines how often open items are checked against the clock.
	// If zero, defaults to DefaultSweepInterval.
	Interval time.Duration
}

// DefaultOverdueSweeperConfig returns an OverdueSweeperConfig with reasonable defaults
func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{Interval: DefaultSweepInterval}
}

// OverdueSweeper periodically moves NOT_DONE items whose due time has passed
// into OVERDUE.
type OverdueSweeper struct {
	store   store.ItemStore
	clock   clock.Clock
	emitter events.EventEmitter
	config  OverdueSweeperConfig
	logger  *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewOverdueSweeper creates a new OverdueSweeper.
// It returns an error if the store is nil. A nil clock uses the system clock,
// a nil emitter discards events and a nil logger uses the default logger.
func NewOverdueSweeper(
	itemStore store.ItemStore,
	clk clock.Clock,
	emitter events.EventEmitter,
	config OverdueSweeperConfig,
	logger *slog.Logger,
) (*OverdueSweeper, error) {
	if itemStore == nil {
		return nil, domain.NewValidationError("itemStore", "cannot be nil", nil)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	if clk == nil {
		clk = clock.System()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OverdueSweeper{
		store:   itemStore,
		clock:   clk,
		emitter: emitter,
		config:  config,
		logger:  logger.With("component", "overdue_sweeper"),
	}, nil
}

// RunOnce performs a single sweep and returns the number of items moved to
// OVERDUE. The query and the batch write share one transaction. When no item
// is due, nothing is written.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()

	var swept []*domain.Item
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		due, err := tx.FindByStatusAndDueBefore(ctx, domain.StatusNotDone, now)
		if err != nil {
			return fmt.Errorf("failed to find overdue items: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		for _, item := range due {
			item.MarkOverdue()
		}
		swept, err = tx.SaveAll(ctx, due)
		if err != nil {
			return fmt.Errorf("failed to save overdue items: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(swept) == 0 {
		s.logger.Debug("no overdue items", "checked_at", now)
		return 0, nil
	}

	s.logger.Info("marked items overdue", "count", len(swept), "checked_at", now)
	for _, item := range swept {
		s.emit(ctx, item, now)
	}
	return len(swept), nil
}

// Start begins sweeping on a ticker in a background goroutine.
func (s *OverdueSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFunc != nil {
		return ErrSweeperRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("overdue sweeper started", "interval", s.config.Interval.String())
	return nil
}

// Stop cancels the sweeper and waits for an in-flight run to finish.
// Stopping a sweeper that is not running is a no-op.
func (s *OverdueSweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("overdue sweeper stopped")
}

// loop sweeps once immediately, then on every tick until ctx is cancelled.
func (s *OverdueSweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runSafely(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.runSafely(ctx)
		}
	}
}

// runSafely runs one sweep, logging errors and panics so the next tick still fires.
func (s *OverdueSweeper) runSafely(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("overdue sweep panicked", "panic", fmt.Sprint(p))
		}
	}()

	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("overdue sweep failed", "error", err)
	}
}

func (s *OverdueSweeper) emit(ctx context.Context, item *domain.Item, at time.Time) {
	event, err := events.NewItemEvent(events.TypeItemOverdue, item, at)
	if err != nil {
		s.logger.Error("failed to build overdue event", "item_id", item.ID, "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to emit overdue event", "item_id", item.ID, "error", err)
	}
}
