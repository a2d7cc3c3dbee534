package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// ItemRequest is the body accepted by create and update. Status and
// timestamps other than due_time are owned by the server and ignored.
// Both fields must be present; blank descriptions and past due times are
// rejected by the engine.
type ItemRequest struct {
	Description *string    `json:"description" validate:"required"`
	DueTime     *time.Time `json:"due_time" validate:"required"`
}

// Draft converts a validated request into an ItemDraft.
func (r ItemRequest) Draft() domain.ItemDraft {
	var draft domain.ItemDraft
	if r.Description != nil {
		draft.Description = *r.Description
	}
	if r.DueTime != nil {
		draft.DueTime = *r.DueTime
	}
	return draft
}

// ItemResponse is the wire representation of an item.
type ItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	CreationTime time.Time  `json:"creation_time"`
	DueTime      time.Time  `json:"due_time"`
	DoneTime     *time.Time `json:"done_time"`
}

func itemToResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Description:  item.Description,
		Status:       string(item.Status),
		CreationTime: item.CreationTime,
		DueTime:      item.DueTime,
		DoneTime:     item.DoneTime,
	}
}

func itemsToResponse(items []*domain.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemToResponse(item))
	}
	return out
}
