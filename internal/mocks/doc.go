// Package mocks provides shared test doubles for the item store and the item
// service.
//
// TestifyMockItemStore is a testify mock for store.ItemStore. MockItemService
// uses function fields, so a handler test sets only the behaviour it needs:
//
//	svc := &mocks.MockItemService{
//	    GetByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
//	        return nil, service.NewItemServiceError("get_by_id", "missing", domain.ErrNotFound)
//	    },
//	}
package mocks
