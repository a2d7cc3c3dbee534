package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// ItemStore defines the interface for to-do item persistence.
//
// Implementations return results ordered by creation time, then ID. Returned
// items are copies; mutating them has no effect until they are saved.
type ItemStore interface {
	// FindByID retrieves an item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// FindAll returns every stored item.
	FindAll(ctx context.Context) ([]*domain.Item, error)

	// FindByStatus returns the items currently in the given status.
	FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Item, error)

	// FindByStatusAndDueBefore returns the items in the given status whose due
	// time is strictly before instant.
	FindByStatusAndDueBefore(ctx context.Context, status domain.Status, instant time.Time) ([]*domain.Item, error)

	// ExistsByDescriptionAndDueAndStatus reports whether an item with exactly
	// this description, due time and status exists.
	ExistsByDescriptionAndDueAndStatus(
		ctx context.Context,
		description string,
		due time.Time,
		status domain.Status,
	) (bool, error)

	// ExistsByDescriptionAndDueAndStatusExcludingID is
	// ExistsByDescriptionAndDueAndStatus ignoring the item with excludedID.
	ExistsByDescriptionAndDueAndStatusExcludingID(
		ctx context.Context,
		description string,
		due time.Time,
		status domain.Status,
		excludedID uuid.UUID,
	) (bool, error)

	// Save inserts or replaces the item. An item with a nil ID is assigned a
	// new one. Returns ErrItemExists if the write would create a second
	// NOT_DONE item with the same description and due time.
	Save(ctx context.Context, item *domain.Item) (*domain.Item, error)

	// SaveAll saves every item. It should be called inside InTx when the
	// batch must be applied atomically.
	SaveAll(ctx context.Context, items []*domain.Item) ([]*domain.Item, error)

	// Delete removes the item. Returns ErrItemNotFound if it does not exist.
	Delete(ctx context.Context, item *domain.Item) error

	// InTx runs fn against a store bound to a single transaction. Reads made
	// through the bound store hold the rows they return until fn finishes, so
	// a read-modify-write of one item is not interleaved with other writers of
	// that item. The transaction is committed if fn returns nil and rolled
	// back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx ItemStore) error) error
}
