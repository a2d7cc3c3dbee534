package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/todo-api/internal/platform/logger"
)

// LogHandler writes one audit log line per event.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler. If log is nil, the default logger is used.
func NewLogHandler(log *slog.Logger) *LogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LogHandler{logger: log.With("component", "item_audit")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *ItemEvent) error {
	logger.FromContextOrDefault(ctx, h.logger).Info("item lifecycle event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("item_id", event.ItemID.String()),
		slog.String("status", string(event.Status)),
		slog.Time("occurred_at", event.OccurredAt))
	return nil
}

// Recorder keeps every event it receives. It can stand in for an emitter or
// be registered as a handler, and is mainly useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []*ItemEvent
}

// EmitEvent implements EventEmitter.
func (r *Recorder) EmitEvent(_ context.Context, event *ItemEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// HandleEvent implements EventHandler.
func (r *Recorder) HandleEvent(ctx context.Context, event *ItemEvent) error {
	return r.EmitEvent(ctx, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []*ItemEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ItemEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in arrival order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
