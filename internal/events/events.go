package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// Lifecycle event types.
const (
	TypeItemCreated = "item.created"
	TypeItemUpdated = "item.updated"
	TypeItemDone    = "item.done"
	TypeItemNotDone = "item.not_done"
	TypeItemDeleted = "item.deleted"
	TypeItemOverdue = "item.overdue"
)

// ItemEvent records a change to a single item.
type ItemEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// ItemID identifies the item that changed
	ItemID uuid.UUID `json:"item_id"`

	// Status is the item's status after the change
	Status domain.Status `json:"status"`

	// Payload is the JSON snapshot of the item after the change
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is when the change was made
	OccurredAt time.Time `json:"occurred_at"`
}

// NewItemEvent creates an event of the given type carrying a snapshot of item.
func NewItemEvent(eventType string, item *domain.Item, at time.Time) (*ItemEvent, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	return &ItemEvent{
		ID:         uuid.New(),
		Type:       eventType,
		ItemID:     item.ID,
		Status:     item.Status,
		Payload:    payload,
		OccurredAt: at.UTC(),
	}, nil
}

// UnmarshalPayload decodes the item snapshot into v.
func (e *ItemEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *ItemEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ItemEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *ItemEvent) error { return nil }
