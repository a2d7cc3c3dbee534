package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/clock"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/events"
	"github.com/phrazzld/todo-api/internal/mocks"
	"github.com/phrazzld/todo-api/internal/platform/memory"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      service.ItemService
	store    *memory.ItemStore
	clock    *clock.Mock
	recorder *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewItemStore(nil)
	clk := clock.NewMock(testNow)
	rec := &events.Recorder{}
	svc, err := service.NewItemService(st, clk, rec, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, store: st, clock: clk, recorder: rec}
}

func (f *fixture) create(t *testing.T, description string, due time.Time) *domain.Item {
	t.Helper()
	item, err := f.svc.Create(context.Background(), domain.ItemDraft{Description: description, DueTime: due})
	require.NoError(t, err)
	return item
}

// overdue stores an item and lets the clock pass its due time, then forces
// it into OVERDUE the way the sweeper would.
func (f *fixture) overdue(t *testing.T, description string) *domain.Item {
	t.Helper()
	ctx := context.Background()
	item := f.create(t, description, f.clock.Now().Add(time.Hour))
	item.MarkOverdue()
	saved, err := f.store.Save(ctx, item)
	require.NoError(t, err)
	return saved
}

func TestNewItemService(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		svc, err := service.NewItemService(nil, nil, nil, nil)
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("optional dependencies default", func(t *testing.T) {
		svc, err := service.NewItemService(memory.NewItemStore(nil), nil, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestItemService_Create(t *testing.T) {
	t.Run("new items start NOT_DONE", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "write report", testNow.Add(24*time.Hour))

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, domain.StatusNotDone, item.Status)
		assert.True(t, testNow.Equal(item.CreationTime))
		assert.Nil(t, item.DoneTime)
		assert.Equal(t, []string{events.TypeItemCreated}, f.recorder.Types())
	})

	t.Run("description is stored as supplied", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "  padded  ", testNow.Add(time.Hour))
		assert.Equal(t, "  padded  ", item.Description)
	})

	t.Run("due time is normalized to UTC microseconds", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour + 1500*time.Nanosecond).In(time.FixedZone("EST", -5*3600))
		item := f.create(t, "precise", due)
		assert.Equal(t, time.UTC, item.DueTime.Location())
		assert.Equal(t, 1000, item.DueTime.Nanosecond()%1_000_000)
	})

	invalid := []struct {
		name  string
		draft domain.ItemDraft
		cause error
	}{
		{"empty description", domain.ItemDraft{Description: "", DueTime: testNow.Add(time.Hour)}, domain.ErrEmptyDescription},
		{"whitespace description", domain.ItemDraft{Description: " \t\n", DueTime: testNow.Add(time.Hour)}, domain.ErrEmptyDescription},
		{"missing due time", domain.ItemDraft{Description: "x"}, domain.ErrDueTimeNotFuture},
		{"due time now", domain.ItemDraft{Description: "x", DueTime: testNow}, domain.ErrDueTimeNotFuture},
		{"due time in the past", domain.ItemDraft{Description: "x", DueTime: testNow.Add(-time.Minute)}, domain.ErrDueTimeNotFuture},
	}
	for _, tc := range invalid {
		t.Run("invalid: "+tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tc.draft)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.ErrorIs(t, err, tc.cause)
			assert.Equal(t, 0, f.store.Len())
			assert.Empty(t, f.recorder.Types())
		})
	}

	t.Run("duplicate open item conflicts", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		f.create(t, "pay rent", due)

		_, err := f.svc.Create(context.Background(), domain.ItemDraft{Description: "pay rent", DueTime: due})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgDuplicateItem, service.UserMessage(err))
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("same description and due time is allowed once the first is done", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		first := f.create(t, "pay rent", due)
		_, err := f.svc.MarkDone(context.Background(), first.ID)
		require.NoError(t, err)

		second := f.create(t, "pay rent", due)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("concurrent duplicates produce exactly one item", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)

		const workers = 10
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Create(context.Background(), domain.ItemDraft{Description: "race", DueTime: due})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, domain.ErrConflict):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)
		assert.Equal(t, 1, f.store.Len())
	})
}

func TestItemService_GetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.create(t, "open", testNow.Add(time.Hour))
	done := f.create(t, "done", testNow.Add(time.Hour))
	_, err := f.svc.MarkDone(ctx, done.ID)
	require.NoError(t, err)
	late := f.overdue(t, "late")

	all, err := f.svc.GetAll(ctx, domain.NoFilter())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tests := []struct {
		raw      string
		expected uuid.UUID
	}{
		{"not_done", open.ID},
		{"DONE", done.ID},
		{"Overdue", late.ID},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			filter, err := domain.ParseStatusFilter(tc.raw, true)
			require.NoError(t, err)

			items, err := f.svc.GetAll(ctx, filter)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tc.expected, items[0].ID)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.GetAll(ctx, domain.FilterBy(domain.Status("ARCHIVED")))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestItemService_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()
	draft := domain.ItemDraft{Description: "x", DueTime: testNow.Add(time.Hour)}

	_, err := f.svc.GetByID(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, service.UserMessage(err), missing.String())

	_, err = f.svc.Update(ctx, missing, draft)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.MarkDone(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.MarkNotDone(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.Delete(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("changes only description and due time", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "draft", testNow.Add(time.Hour))
		_, err := f.svc.MarkDone(ctx, item.ID)
		require.NoError(t, err)

		f.clock.Advance(time.Minute)
		newDue := testNow.Add(48 * time.Hour)
		updated, err := f.svc.Update(ctx, item.ID, domain.ItemDraft{Description: "final", DueTime: newDue})
		require.NoError(t, err)

		assert.Equal(t, "final", updated.Description)
		assert.True(t, newDue.Equal(updated.DueTime))
		assert.Equal(t, domain.StatusDone, updated.Status)
		assert.True(t, item.CreationTime.Equal(updated.CreationTime))
		require.NotNil(t, updated.DoneTime)
	})

	t.Run("an item may keep its own description and due time", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		item := f.create(t, "same", due)

		_, err := f.svc.Update(ctx, item.ID, domain.ItemDraft{Description: "same", DueTime: due})
		assert.NoError(t, err)
	})

	t.Run("duplicate of another open item conflicts", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		f.create(t, "taken", due)
		other := f.create(t, "other", due)

		_, err := f.svc.Update(ctx, other.ID, domain.ItemDraft{Description: "taken", DueTime: due})
		assert.ErrorIs(t, err, domain.ErrConflict)

		unchanged, err := f.svc.GetByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "other", unchanged.Description)
	})

	t.Run("overdue items are frozen", func(t *testing.T) {
		f := newFixture(t)
		item := f.overdue(t, "late")

		_, err := f.svc.Update(ctx, item.ID, domain.ItemDraft{Description: "rescued", DueTime: testNow.Add(time.Hour)})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, service.MsgFrozenItem, service.UserMessage(err))
	})

	t.Run("invalid drafts are rejected", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "valid", testNow.Add(time.Hour))

		_, err := f.svc.Update(ctx, item.ID, domain.ItemDraft{Description: "   ", DueTime: testNow.Add(time.Hour)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.Update(ctx, item.ID, domain.ItemDraft{Description: "valid", DueTime: testNow.Add(-time.Hour)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestItemService_CheckPrecedence(t *testing.T) {
	ctx := context.Background()

	t.Run("validation before existence", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, uuid.New(), domain.ItemDraft{Description: ""})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("existence before frozen state", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, uuid.New(), domain.ItemDraft{Description: "x", DueTime: testNow.Add(time.Hour)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("validation before frozen state", func(t *testing.T) {
		f := newFixture(t)
		late := f.overdue(t, "late")
		_, err := f.svc.Update(ctx, late.ID, domain.ItemDraft{Description: " "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("frozen state before duplicate", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(2 * time.Hour)
		f.create(t, "taken", due)
		late := f.overdue(t, "late")

		_, err := f.svc.Update(ctx, late.ID, domain.ItemDraft{Description: "taken", DueTime: due})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.NotErrorIs(t, err, domain.ErrConflict)
	})
}

func TestItemService_MarkDoneAndNotDone(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip restores the item", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		item := f.create(t, "cycle", due)

		f.clock.Advance(10 * time.Minute)
		done, err := f.svc.MarkDone(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDone, done.Status)
		require.NotNil(t, done.DoneTime)
		assert.True(t, testNow.Add(10*time.Minute).Equal(*done.DoneTime))

		back, err := f.svc.MarkNotDone(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNotDone, back.Status)
		assert.Nil(t, back.DoneTime)
		assert.Equal(t, "cycle", back.Description)
		assert.True(t, due.Equal(back.DueTime))

		assert.Equal(t,
			[]string{events.TypeItemCreated, events.TypeItemDone, events.TypeItemNotDone},
			f.recorder.Types())
	})

	t.Run("redundant marks conflict", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "once", testNow.Add(time.Hour))

		_, err := f.svc.MarkNotDone(ctx, item.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgAlreadyNotDone, service.UserMessage(err))

		_, err = f.svc.MarkDone(ctx, item.ID)
		require.NoError(t, err)
		_, err = f.svc.MarkDone(ctx, item.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgAlreadyDone, service.UserMessage(err))
	})

	t.Run("overdue items cannot change status", func(t *testing.T) {
		f := newFixture(t)
		late := f.overdue(t, "late")

		_, err := f.svc.MarkDone(ctx, late.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgOverdueDone, service.UserMessage(err))

		_, err = f.svc.MarkNotDone(ctx, late.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgOverdueNotDone, service.UserMessage(err))

		unchanged, err := f.svc.GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOverdue, unchanged.Status)
	})

	t.Run("reopening onto an open duplicate conflicts", func(t *testing.T) {
		f := newFixture(t)
		due := testNow.Add(time.Hour)
		first := f.create(t, "twin", due)
		_, err := f.svc.MarkDone(ctx, first.ID)
		require.NoError(t, err)
		f.create(t, "twin", due)

		_, err = f.svc.MarkNotDone(ctx, first.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestItemService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the item", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "bye", testNow.Add(time.Hour))

		require.NoError(t, f.svc.Delete(ctx, item.ID))
		_, err := f.svc.GetByID(ctx, item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, []string{events.TypeItemCreated, events.TypeItemDeleted}, f.recorder.Types())
	})

	t.Run("done items can be deleted", func(t *testing.T) {
		f := newFixture(t)
		item := f.create(t, "finished", testNow.Add(time.Hour))
		_, err := f.svc.MarkDone(ctx, item.ID)
		require.NoError(t, err)
		assert.NoError(t, f.svc.Delete(ctx, item.ID))
	})

	t.Run("overdue items are frozen", func(t *testing.T) {
		f := newFixture(t)
		late := f.overdue(t, "late")

		err := f.svc.Delete(ctx, late.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, 1, f.store.Len())
	})
}

func TestItemService_StoreFailures(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("connection reset by peer")

	newService := func(t *testing.T, st store.ItemStore, emitter events.EventEmitter) service.ItemService {
		svc, err := service.NewItemService(st, clock.NewMock(testNow), emitter, nil)
		require.NoError(t, err)
		return svc
	}

	t.Run("read failures are unclassified", func(t *testing.T) {
		st := &mocks.TestifyMockItemStore{}
		st.On("FindByID", mock.Anything, mock.Anything).Return(nil, storeErr)
		svc := newService(t, st, nil)

		_, err := svc.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, service.IsClassified(err))
		assert.Equal(t, service.MsgUnexpectedFailure, service.UserMessage(err))
	})

	t.Run("listing failures are unclassified", func(t *testing.T) {
		st := &mocks.TestifyMockItemStore{}
		st.On("FindAll", mock.Anything).Return(nil, storeErr)
		svc := newService(t, st, nil)

		_, err := svc.GetAll(ctx, domain.NoFilter())
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, service.IsClassified(err))
	})

	t.Run("store uniqueness violation surfaces as conflict", func(t *testing.T) {
		st := &mocks.TestifyMockItemStore{}
		st.On("ExistsByDescriptionAndDueAndStatus", mock.Anything, "race", mock.Anything, domain.StatusNotDone).
			Return(false, nil)
		st.On("Save", mock.Anything, mock.Anything).Return(nil, store.ErrItemExists)
		svc := newService(t, st, nil)

		_, err := svc.Create(ctx, domain.ItemDraft{Description: "race", DueTime: testNow.Add(time.Hour)})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, service.MsgDuplicateItem, service.UserMessage(err))
		st.AssertExpectations(t)
	})

	t.Run("transaction failures are unclassified", func(t *testing.T) {
		st := &mocks.TestifyMockItemStore{InTxErr: store.ErrTransactionFailed}
		svc := newService(t, st, nil)

		_, err := svc.Create(ctx, domain.ItemDraft{Description: "x", DueTime: testNow.Add(time.Hour)})
		assert.ErrorIs(t, err, store.ErrTransactionFailed)
		assert.False(t, service.IsClassified(err))
		assert.Equal(t, 1, st.InTxCalls)
	})

	t.Run("validation runs before any store access", func(t *testing.T) {
		st := &mocks.TestifyMockItemStore{}
		svc := newService(t, st, nil)

		_, err := svc.Create(ctx, domain.ItemDraft{Description: ""})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = svc.Update(ctx, uuid.New(), domain.ItemDraft{Description: ""})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		assert.Equal(t, 0, st.InTxCalls)
		st.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("emitter failures do not fail the operation", func(t *testing.T) {
		emitter := events.NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(failingHandler{})
		svc := newService(t, memory.NewItemStore(nil), emitter)

		item, err := svc.Create(ctx, domain.ItemDraft{Description: "still saved", DueTime: testNow.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNotDone, item.Status)
	})
}

type failingHandler struct{}

func (failingHandler) HandleEvent(context.Context, *events.ItemEvent) error {
	return errors.New("audit sink unavailable")
}

func TestItemServiceError(t *testing.T) {
	cause := domain.ErrNotFound
	err := service.NewItemServiceError("get_by_id", "Item not found", cause)

	assert.Equal(t, "item service get_by_id failed: Item not found: item not found", err.Error())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bare := service.NewItemServiceError("create", "boom", nil)
	assert.Equal(t, "item service create failed: boom", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
