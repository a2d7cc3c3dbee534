package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service"
)

const (
	msgInvalidRequest = "Invalid request format"
	msgInvalidID      = "Invalid item id"
)

// ItemHandler handles /todos requests.
type ItemHandler struct {
	itemService service.ItemService
	logger      *slog.Logger
}

// NewItemHandler creates a new ItemHandler.
// If logger is nil, the default logger is used.
func NewItemHandler(itemService service.ItemService, logger *slog.Logger) *ItemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{
		itemService: itemService,
		logger:      logger.With(slog.String("component", "item_handler")),
	}
}

// RegisterRoutes mounts the item endpoints under /todos.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/todos", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetItem)
			r.Put("/", h.UpdateItem)
			r.Delete("/", h.DeleteItem)
			r.Patch("/done", h.MarkDone)
			r.Patch("/not-done", h.MarkNotDone)
		})
	})
}

// ListItems handles GET /todos with an optional status query parameter.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	values, present := r.URL.Query()["status"]
	raw := ""
	if present && len(values) > 0 {
		raw = values[0]
	}

	filter, err := domain.ParseStatusFilter(raw, present)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			fmt.Sprintf("Invalid status filter: %q", raw), err)
		return
	}

	items, err := h.itemService.GetAll(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemsToResponse(items))
}

// GetItem handles GET /todos/{id}.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	item, err := h.itemService.GetByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// CreateItem handles POST /todos.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}

	item, err := h.itemService.Create(r.Context(), req.Draft())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/todos/"+item.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, itemToResponse(item))
}

// UpdateItem handles PUT /todos/{id}.
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}

	item, err := h.itemService.Update(r.Context(), id, req.Draft())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// MarkDone handles PATCH /todos/{id}/done.
func (h *ItemHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	item, err := h.itemService.MarkDone(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// MarkNotDone handles PATCH /todos/{id}/not-done.
func (h *ItemHandler) MarkNotDone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	item, err := h.itemService.MarkNotDone(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// DeleteItem handles DELETE /todos/{id}.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.itemService.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeItemRequest decodes and validates an ItemRequest body. On failure it
// writes a 400 response and returns false.
func (h *ItemHandler) decodeItemRequest(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msgInvalidRequest, err)
		return req, false
	}
	if err := shared.ValidateRequest(&req); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("validation error",
			slog.String("error", err.Error()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return req, false
	}
	return req, true
}

// pathID parses the {id} URL parameter. On failure it writes a 400 response
// and returns false.
func (h *ItemHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("invalid item id",
			slog.String("id", raw))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msgInvalidID,
			domain.NewValidationError("id", "has invalid format", err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *ItemHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
