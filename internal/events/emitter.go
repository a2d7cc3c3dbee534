package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/todo-api/internal/platform/logger"
)

// ErrNilEvent is returned by EmitEvent when called without an event.
var ErrNilEvent = errors.New("nil item event")

// InMemoryEventEmitter fans item lifecycle events out to handlers registered
// in process. Dispatch is synchronous and follows registration order, so a
// handler sees the events for one item in the order they were committed.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(log *slog.Logger) *InMemoryEventEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &InMemoryEventEmitter{logger: log.With("component", "item_event_emitter")}
}

// RegisterHandler subscribes handler to every subsequent event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("registered item event handler", "handler_count", count)
}

// EmitEvent delivers event to every handler. A failing handler does not stop
// delivery to the rest; all handler errors are joined into the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *ItemEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		"event_id", event.ID,
		"event_type", event.Type,
		"item_id", event.ItemID,
		"item_status", event.Status)

	if len(handlers) == 0 {
		log.Warn("item event dropped, no handlers registered")
		return nil
	}
	log.Debug("dispatching item event", "handler_count", len(handlers))

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("item event handler failed", "handler_index", i, "error", err)
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
