package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/service"
)

// MockItemService implements service.ItemService for testing.
// Methods whose Fn field is nil return Item (or Items) and Err.
type MockItemService struct {
	GetAllFn      func(ctx context.Context, filter domain.StatusFilter) ([]*domain.Item, error)
	GetByIDFn     func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	CreateFn      func(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error)
	UpdateFn      func(ctx context.Context, id uuid.UUID, draft domain.ItemDraft) (*domain.Item, error)
	MarkDoneFn    func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	MarkNotDoneFn func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	DeleteFn      func(ctx context.Context, id uuid.UUID) error

	// Default response values
	Item  *domain.Item
	Items []*domain.Item
	Err   error

	mu    sync.Mutex
	calls []string
}

var _ service.ItemService = (*MockItemService)(nil)

// Calls returns the names of the methods invoked so far, in order.
func (m *MockItemService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockItemService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// GetAll implements service.ItemService
func (m *MockItemService) GetAll(ctx context.Context, filter domain.StatusFilter) ([]*domain.Item, error) {
	m.record("GetAll")
	if m.GetAllFn != nil {
		return m.GetAllFn(ctx, filter)
	}
	return m.Items, m.Err
}

// GetByID implements service.ItemService
func (m *MockItemService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	m.record("GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return m.Item, m.Err
}

// Create implements service.ItemService
func (m *MockItemService) Create(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error) {
	m.record("Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, draft)
	}
	return m.Item, m.Err
}

// Update implements service.ItemService
func (m *MockItemService) Update(ctx context.Context, id uuid.UUID, draft domain.ItemDraft) (*domain.Item, error) {
	m.record("Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, draft)
	}
	return m.Item, m.Err
}

// MarkDone implements service.ItemService
func (m *MockItemService) MarkDone(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	m.record("MarkDone")
	if m.MarkDoneFn != nil {
		return m.MarkDoneFn(ctx, id)
	}
	return m.Item, m.Err
}

// MarkNotDone implements service.ItemService
func (m *MockItemService) MarkNotDone(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	m.record("MarkNotDone")
	if m.MarkNotDoneFn != nil {
		return m.MarkNotDoneFn(ctx, id)
	}
	return m.Item, m.Err
}

// Delete implements service.ItemService
func (m *MockItemService) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return m.Err
}
