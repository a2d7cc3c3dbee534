package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockItemStore is a mock of store.ItemStore interface for use with testify/mock.
//
// InTx does not go through the mock: it returns InTxErr when set and otherwise
// runs fn against the mock itself.
type TestifyMockItemStore struct {
	mock.Mock

	InTxErr   error
	InTxCalls int
}

var _ store.ItemStore = (*TestifyMockItemStore)(nil)

// FindByID is a mock implementation of store.ItemStore.FindByID
func (m *TestifyMockItemStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if item, ok := args.Get(0).(*domain.Item); ok {
		return item, args.Error(1)
	}
	return nil, args.Error(1)
}

// FindAll is a mock implementation of store.ItemStore.FindAll
func (m *TestifyMockItemStore) FindAll(ctx context.Context) ([]*domain.Item, error) {
	args := m.Called(ctx)
	return items(args.Get(0)), args.Error(1)
}

// FindByStatus is a mock implementation of store.ItemStore.FindByStatus
func (m *TestifyMockItemStore) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Item, error) {
	args := m.Called(ctx, status)
	return items(args.Get(0)), args.Error(1)
}

// FindByStatusAndDueBefore is a mock implementation of store.ItemStore.FindByStatusAndDueBefore
func (m *TestifyMockItemStore) FindByStatusAndDueBefore(
	ctx context.Context,
	status domain.Status,
	instant time.Time,
) ([]*domain.Item, error) {
	args := m.Called(ctx, status, instant)
	return items(args.Get(0)), args.Error(1)
}

// ExistsByDescriptionAndDueAndStatus is a mock implementation of
// store.ItemStore.ExistsByDescriptionAndDueAndStatus
func (m *TestifyMockItemStore) ExistsByDescriptionAndDueAndStatus(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
) (bool, error) {
	args := m.Called(ctx, description, due, status)
	return args.Bool(0), args.Error(1)
}

// ExistsByDescriptionAndDueAndStatusExcludingID is a mock implementation of
// store.ItemStore.ExistsByDescriptionAndDueAndStatusExcludingID
func (m *TestifyMockItemStore) ExistsByDescriptionAndDueAndStatusExcludingID(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
	excludedID uuid.UUID,
) (bool, error) {
	args := m.Called(ctx, description, due, status, excludedID)
	return args.Bool(0), args.Error(1)
}

// Save is a mock implementation of store.ItemStore.Save
func (m *TestifyMockItemStore) Save(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	args := m.Called(ctx, item)
	if saved, ok := args.Get(0).(*domain.Item); ok {
		return saved, args.Error(1)
	}
	return nil, args.Error(1)
}

// SaveAll is a mock implementation of store.ItemStore.SaveAll
func (m *TestifyMockItemStore) SaveAll(ctx context.Context, batch []*domain.Item) ([]*domain.Item, error) {
	args := m.Called(ctx, batch)
	return items(args.Get(0)), args.Error(1)
}

// Delete is a mock implementation of store.ItemStore.Delete
func (m *TestifyMockItemStore) Delete(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// InTx implements store.ItemStore.InTx without recording a mock call.
func (m *TestifyMockItemStore) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx store.ItemStore) error,
) error {
	m.InTxCalls++
	if m.InTxErr != nil {
		return m.InTxErr
	}
	return fn(ctx, m)
}

func items(v interface{}) []*domain.Item {
	if list, ok := v.([]*domain.Item); ok {
		return list
	}
	return nil
}
