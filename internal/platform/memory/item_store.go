// Package memory provides an in-process implementation of store.ItemStore.
// It is used when the service runs without a database and as a real store
// in service and sweeper tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// ItemStore keeps items in a map guarded by a RWMutex.
//
// InTx blocks run one at a time under txMu, so a read-modify-write inside a
// transaction cannot interleave with another transaction. Writes made inside
// a block are applied immediately and are not rolled back if fn fails.
type ItemStore struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	items  map[uuid.UUID]*domain.Item
	logger *slog.Logger
}

// Ensure ItemStore implements store.ItemStore interface
var _ store.ItemStore = (*ItemStore)(nil)

// NewItemStore creates an empty in-memory store.
// If logger is nil, the default logger is used.
func NewItemStore(logger *slog.Logger) *ItemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemStore{
		items:  make(map[uuid.UUID]*domain.Item),
		logger: logger.With(slog.String("component", "memory_item_store")),
	}
}

// FindByID implements store.ItemStore.FindByID
func (s *ItemStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return item.Clone(), nil
}

// FindAll implements store.ItemStore.FindAll
func (s *ItemStore) FindAll(ctx context.Context) ([]*domain.Item, error) {
	return s.filter(ctx, func(*domain.Item) bool { return true })
}

// FindByStatus implements store.ItemStore.FindByStatus
func (s *ItemStore) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Item, error) {
	return s.filter(ctx, func(item *domain.Item) bool { return item.Status == status })
}

// FindByStatusAndDueBefore implements store.ItemStore.FindByStatusAndDueBefore
func (s *ItemStore) FindByStatusAndDueBefore(
	ctx context.Context,
	status domain.Status,
	instant time.Time,
) ([]*domain.Item, error) {
	return s.filter(ctx, func(item *domain.Item) bool {
		return item.Status == status && item.DueTime.Before(instant)
	})
}

// ExistsByDescriptionAndDueAndStatus implements store.ItemStore.ExistsByDescriptionAndDueAndStatus
func (s *ItemStore) ExistsByDescriptionAndDueAndStatus(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
) (bool, error) {
	return s.ExistsByDescriptionAndDueAndStatusExcludingID(ctx, description, due, status, uuid.Nil)
}

// ExistsByDescriptionAndDueAndStatusExcludingID implements
// store.ItemStore.ExistsByDescriptionAndDueAndStatusExcludingID
func (s *ItemStore) ExistsByDescriptionAndDueAndStatusExcludingID(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
	excludedID uuid.UUID,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchExists(description, domain.NormalizeTime(due), status, excludedID), nil
}

// Save implements store.ItemStore.Save
func (s *ItemStore) Save(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item cannot be nil", store.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.saveLocked(item)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("duplicate open item rejected",
			slog.String("item_id", item.ID.String()))
		return nil, err
	}
	return saved, nil
}

// SaveAll implements store.ItemStore.SaveAll
// A rejected batch leaves the store unchanged.
func (s *ItemStore) SaveAll(ctx context.Context, items []*domain.Item) ([]*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]*domain.Item, len(s.items))
	for id, item := range s.items {
		snapshot[id] = item
	}

	saved := make([]*domain.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			s.items = snapshot
			return nil, fmt.Errorf("%w: item cannot be nil", store.ErrInvalidEntity)
		}
		out, err := s.saveLocked(item)
		if err != nil {
			s.items = snapshot
			return nil, err
		}
		saved = append(saved, out)
	}
	return saved, nil
}

// Delete implements store.ItemStore.Delete
func (s *ItemStore) Delete(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: item cannot be nil", store.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return store.ErrItemNotFound
	}
	delete(s.items, item.ID)
	return nil
}

// InTx implements store.ItemStore.InTx
func (s *ItemStore) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx store.ItemStore) error,
) error {
	if owner, _ := ctx.Value(txKey{}).(*ItemStore); owner == s {
		return fn(ctx, s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	return fn(context.WithValue(ctx, txKey{}, s), s)
}

// txKey marks a context as running inside an InTx block; the value is the
// store that owns the block.
type txKey struct{}

// Len returns the number of stored items.
func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *ItemStore) saveLocked(item *domain.Item) (*domain.Item, error) {
	saved := item.Clone()
	if saved.ID == uuid.Nil {
		saved.ID = uuid.New()
	}
	saved.DueTime = domain.NormalizeTime(saved.DueTime)
	saved.CreationTime = domain.NormalizeTime(saved.CreationTime)
	if existing, ok := s.items[saved.ID]; ok {
		saved.CreationTime = existing.CreationTime
	}
	if saved.DoneTime != nil {
		done := domain.NormalizeTime(*saved.DoneTime)
		saved.DoneTime = &done
	}

	if saved.Status == domain.StatusNotDone &&
		s.matchExists(saved.Description, saved.DueTime, domain.StatusNotDone, saved.ID) {
		return nil, store.ErrItemExists
	}

	s.items[saved.ID] = saved
	return saved.Clone(), nil
}

func (s *ItemStore) matchExists(description string, due time.Time, status domain.Status, excludedID uuid.UUID) bool {
	for id, item := range s.items {
		if id == excludedID {
			continue
		}
		if item.Status == status && item.Description == description && item.DueTime.Equal(due) {
			return true
		}
	}
	return false
}

func (s *ItemStore) filter(ctx context.Context, keep func(*domain.Item) bool) ([]*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreationTime.Equal(out[j].CreationTime) {
			return out[i].CreationTime.Before(out[j].CreationTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
