package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/clock"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/events"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// Client-facing messages for engine failures.
const (
	MsgDuplicateItem     = "Todo item with the same description and due date already exists."
	MsgAlreadyDone       = "Item marked already as done."
	MsgAlreadyNotDone    = "Item marked already as not done."
	MsgOverdueNotDone    = "Cannot mark an overdue item as not done."
	MsgOverdueDone       = "Cannot mark an overdue item as done."
	MsgFrozenItem        = "Cannot update or delete a past due item."
	MsgUnexpectedFailure = "An unexpected error occurred"
)

// ItemService is the lifecycle engine for to-do items.
//
// Every method checks, in order: input validation, item existence, the
// frozen (OVERDUE) state, duplicates, and only then writes. Failures are
// *ItemServiceError values wrapping domain.ErrInvalidInput, domain.ErrNotFound,
// domain.ErrForbidden or domain.ErrConflict; anything else is a store failure.
type ItemService interface {
	// GetAll returns every item matching the filter.
	GetAll(ctx context.Context, filter domain.StatusFilter) ([]*domain.Item, error)

	// GetByID returns the item with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// Create stores a new NOT_DONE item built from draft.
	Create(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error)

	// Update replaces the description and due time of an item.
	Update(ctx context.Context, id uuid.UUID, draft domain.ItemDraft) (*domain.Item, error)

	// MarkDone moves a NOT_DONE item into DONE.
	MarkDone(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// MarkNotDone moves a DONE item back into NOT_DONE.
	MarkNotDone(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// Delete removes an item that is not OVERDUE.
	Delete(ctx context.Context, id uuid.UUID) error
}

// itemServiceImpl implements the ItemService interface
type itemServiceImpl struct {
	store   store.ItemStore
	clock   clock.Clock
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewItemService creates a new ItemService.
// It returns an error if the store is nil. A nil clock uses the system clock,
// a nil emitter discards events and a nil logger uses the default logger.
func NewItemService(
	itemStore store.ItemStore,
	clk clock.Clock,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (ItemService, error) {
	if itemStore == nil {
		return nil, domain.NewValidationError("itemStore", "cannot be nil", nil)
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

	return &itemServiceImpl{
		store:   itemStore,
		clock:   clk,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "item_service")),
	}, nil
}

// GetAll implements ItemService.GetAll
func (s *itemServiceImpl) GetAll(ctx context.Context, filter domain.StatusFilter) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("listing items", slog.String("filter", filter.String()))

	var (
		items []*domain.Item
		err   error
	)
	if status, ok := filter.Status(); ok {
		if !status.IsValid() {
			return nil, NewItemServiceError("get_all", fmt.Sprintf("Invalid status: %s", status), domain.ErrInvalidStatus)
		}
		items, err = s.store.FindByStatus(ctx, status)
	} else {
		items, err = s.store.FindAll(ctx)
	}
	if err != nil {
		log.Error("failed to list items", slog.String("error", err.Error()))
		return nil, NewItemServiceError("get_all", "failed to list items", err)
	}
	return items, nil
}

// GetByID implements ItemService.GetByID
func (s *itemServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.load(ctx, s.store, "get_by_id", id)
}

// Create implements ItemService.Create
func (s *itemServiceImpl) Create(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error) {
	const op = "create"
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := s.clock.Now()
	draft = draft.Normalized()
	if err := draft.Validate(now); err != nil {
		return nil, validationFailure(op, err)
	}

	var created *domain.Item
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		exists, err := tx.ExistsByDescriptionAndDueAndStatus(ctx, draft.Description, draft.DueTime, domain.StatusNotDone)
		if err != nil {
			return NewItemServiceError(op, "failed to check for duplicates", err)
		}
		if exists {
			return NewItemServiceError(op, MsgDuplicateItem, domain.ErrConflict)
		}

		created, err = tx.Save(ctx, domain.NewItem(draft, now))
		return s.saveFailure(op, err)
	})
	if err != nil {
		s.logFailure(log, op, uuid.Nil, err)
		return nil, err
	}

	log.Info("item created",
		slog.String("item_id", created.ID.String()),
		slog.Time("due_time", created.DueTime))
	s.emit(ctx, events.TypeItemCreated, created, now)
	return created, nil
}

// Update implements ItemService.Update
func (s *itemServiceImpl) Update(ctx context.Context, id uuid.UUID, draft domain.ItemDraft) (*domain.Item, error) {
	const op = "update"
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := s.clock.Now()
	draft = draft.Normalized()
	if err := draft.Validate(now); err != nil {
		return nil, validationFailure(op, err)
	}

	var updated *domain.Item
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		item, err := s.load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if item.Status.IsFrozen() {
			return NewItemServiceError(op, MsgFrozenItem, domain.ErrForbidden)
		}

		exists, err := tx.ExistsByDescriptionAndDueAndStatusExcludingID(
			ctx, draft.Description, draft.DueTime, domain.StatusNotDone, id)
		if err != nil {
			return NewItemServiceError(op, "failed to check for duplicates", err)
		}
		if exists {
			return NewItemServiceError(op, MsgDuplicateItem, domain.ErrConflict)
		}

		item.ApplyDraft(draft)
		updated, err = tx.Save(ctx, item)
		return s.saveFailure(op, err)
	})
	if err != nil {
		s.logFailure(log, op, id, err)
		return nil, err
	}

	log.Info("item updated", slog.String("item_id", id.String()))
	s.emit(ctx, events.TypeItemUpdated, updated, now)
	return updated, nil
}

// MarkDone implements ItemService.MarkDone
func (s *itemServiceImpl) MarkDone(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.transition(ctx, "mark_done", id, events.TypeItemDone, func(item *domain.Item, now time.Time) error {
		switch item.Status {
		case domain.StatusDone:
			return NewItemServiceError("mark_done", MsgAlreadyDone, domain.ErrConflict)
		case domain.StatusOverdue:
			return NewItemServiceError("mark_done", MsgOverdueDone, domain.ErrConflict)
		}
		item.MarkDone(now)
		return nil
	})
}

// MarkNotDone implements ItemService.MarkNotDone
func (s *itemServiceImpl) MarkNotDone(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.transition(ctx, "mark_not_done", id, events.TypeItemNotDone, func(item *domain.Item, _ time.Time) error {
		switch item.Status {
		case domain.StatusNotDone:
			return NewItemServiceError("mark_not_done", MsgAlreadyNotDone, domain.ErrConflict)
		case domain.StatusOverdue:
			return NewItemServiceError("mark_not_done", MsgOverdueNotDone, domain.ErrConflict)
		}
		item.MarkNotDone()
		return nil
	})
}

// Delete implements ItemService.Delete
func (s *itemServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "delete"
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted *domain.Item
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		item, err := s.load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if item.Status.IsFrozen() {
			return NewItemServiceError(op, MsgFrozenItem, domain.ErrForbidden)
		}

		if err := tx.Delete(ctx, item); err != nil {
			if store.IsNotFoundError(err) {
				return notFound(op, id)
			}
			return NewItemServiceError(op, "failed to delete item", err)
		}
		deleted = item
		return nil
	})
	if err != nil {
		s.logFailure(log, op, id, err)
		return err
	}

	log.Info("item deleted", slog.String("item_id", id.String()))
	s.emit(ctx, events.TypeItemDeleted, deleted, s.clock.Now())
	return nil
}

// transition runs a status change on one item: load, apply, save.
func (s *itemServiceImpl) transition(
	ctx context.Context,
	op string,
	id uuid.UUID,
	eventType string,
	apply func(item *domain.Item, now time.Time) error,
) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock.Now()

	var saved *domain.Item
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		item, err := s.load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if err := apply(item, now); err != nil {
			return err
		}
		saved, err = tx.Save(ctx, item)
		return s.saveFailure(op, err)
	})
	if err != nil {
		s.logFailure(log, op, id, err)
		return nil, err
	}

	log.Info("item status changed",
		slog.String("item_id", id.String()),
		slog.String("status", string(saved.Status)))
	s.emit(ctx, eventType, saved, now)
	return saved, nil
}

// load fetches one item through st, translating a missing row into NotFound.
func (s *itemServiceImpl) load(ctx context.Context, st store.ItemStore, op string, id uuid.UUID) (*domain.Item, error) {
	item, err := st.FindByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, notFound(op, id)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load item",
			slog.String("operation", op),
			slog.String("item_id", id.String()),
			slog.String("error", err.Error()))
		return nil, NewItemServiceError(op, "failed to load item", err)
	}
	return item, nil
}

// saveFailure classifies an error returned by ItemStore.Save. The store's
// uniqueness rule catches duplicates that slipped past the existence check.
func (s *itemServiceImpl) saveFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if store.IsDuplicateError(err) {
		return NewItemServiceError(op, MsgDuplicateItem, fmt.Errorf("%w: %v", domain.ErrConflict, err))
	}
	return NewItemServiceError(op, "failed to save item", err)
}

func (s *itemServiceImpl) logFailure(log *slog.Logger, op string, id uuid.UUID, err error) {
	attrs := []any{
		slog.String("operation", op),
		slog.String("error", err.Error()),
	}
	if id != uuid.Nil {
		attrs = append(attrs, slog.String("item_id", id.String()))
	}
	if IsClassified(err) {
		log.Debug("item operation rejected", attrs...)
		return
	}
	log.Error("item operation failed", attrs...)
}

// emit publishes a lifecycle event. Failures are logged and never returned.
func (s *itemServiceImpl) emit(ctx context.Context, eventType string, item *domain.Item, at time.Time) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewItemEvent(eventType, item, at)
	if err != nil {
		log.Error("failed to build item event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit item event",
			slog.String("event_type", eventType),
			slog.String("item_id", item.ID.String()),
			slog.String("error", err.Error()))
	}
}

func notFound(op string, id uuid.UUID) error {
	return NewItemServiceError(op, fmt.Sprintf("Item not found with id %s", id), domain.ErrNotFound)
}

func validationFailure(op string, err error) error {
	message := err.Error()
	switch {
	case errors.Is(err, domain.ErrEmptyDescription):
		message = "Description must not be null or empty."
	case errors.Is(err, domain.ErrDueTimeNotFuture):
		message = "Due date must be provided and must be in the future."
	}
	return NewItemServiceError(op, message, err)
}
