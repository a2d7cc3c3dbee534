package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

const itemColumns = `id, description, status, creation_time, due_time, done_time`

// PostgresItemStore implements store.ItemStore on a PostgreSQL database.
//
// A store created with NewPostgresItemStore owns a connection pool and can
// start transactions. A store bound to a transaction (see WithTx) locks the
// rows it reads and joins that transaction in InTx.
type PostgresItemStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	inTx   bool
	logger *slog.Logger
}

// NewPostgresItemStore creates a PostgresItemStore on the given pool.
// If logger is nil, the default logger is used.
func NewPostgresItemStore(db *sql.DB, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

// WithTx returns a store bound to tx. Reads through it use SELECT ... FOR UPDATE.
func (s *PostgresItemStore) WithTx(tx *sql.Tx) *PostgresItemStore {
	return &PostgresItemStore{
		db:     tx,
		sqlDB:  s.sqlDB,
		inTx:   true,
		logger: s.logger,
	}
}

// InTx implements store.ItemStore.InTx.
// A store already bound to a transaction runs fn in that transaction.
func (s *PostgresItemStore) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx store.ItemStore) error,
) error {
	if s.inTx {
		return fn(ctx, s)
	}
	if s.sqlDB == nil {
		return fmt.Errorf("%w: store has no connection pool", store.ErrTransactionFailed)
	}
	return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

func (s *PostgresItemStore) lockClause() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// FindByID implements store.ItemStore.FindByID
func (s *PostgresItemStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving item by ID", slog.String("item_id", id.String()))

	query := `SELECT ` + itemColumns + ` FROM todo_items WHERE id = $1` + s.lockClause()

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item not found", slog.String("item_id", id.String()))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item by ID",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, fmt.Errorf("failed to get item: %w", MapError(err))
	}
	return item, nil
}

// FindAll implements store.ItemStore.FindAll
func (s *PostgresItemStore) FindAll(ctx context.Context) ([]*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM todo_items ORDER BY creation_time, id` + s.lockClause()
	return s.queryItems(ctx, "find all", query)
}

// FindByStatus implements store.ItemStore.FindByStatus
func (s *PostgresItemStore) FindByStatus(
	ctx context.Context,
	status domain.Status,
) ([]*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM todo_items WHERE status = $1 ORDER BY creation_time, id` +
		s.lockClause()
	return s.queryItems(ctx, "find by status", query, string(status))
}

// FindByStatusAndDueBefore implements store.ItemStore.FindByStatusAndDueBefore
func (s *PostgresItemStore) FindByStatusAndDueBefore(
	ctx context.Context,
	status domain.Status,
	instant time.Time,
) ([]*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM todo_items WHERE status = $1 AND due_time < $2 ORDER BY creation_time, id` +
		s.lockClause()
	return s.queryItems(ctx, "find by status and due before", query, string(status), instant.UTC())
}

// ExistsByDescriptionAndDueAndStatus implements store.ItemStore.ExistsByDescriptionAndDueAndStatus
func (s *PostgresItemStore) ExistsByDescriptionAndDueAndStatus(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM todo_items WHERE description = $1 AND due_time = $2 AND status = $3)`
	return s.exists(ctx, query, description, domain.NormalizeTime(due), string(status))
}

// ExistsByDescriptionAndDueAndStatusExcludingID implements
// store.ItemStore.ExistsByDescriptionAndDueAndStatusExcludingID
func (s *PostgresItemStore) ExistsByDescriptionAndDueAndStatusExcludingID(
	ctx context.Context,
	description string,
	due time.Time,
	status domain.Status,
	excludedID uuid.UUID,
) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM todo_items WHERE description = $1 AND due_time = $2 AND status = $3 AND id <> $4)`
	return s.exists(ctx, query, description, domain.NormalizeTime(due), string(status), excludedID)
}

// Save implements store.ItemStore.Save
// The creation time of an existing row is never overwritten.
func (s *PostgresItemStore) Save(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if item == nil {
		return nil, fmt.Errorf("%w: item cannot be nil", store.ErrInvalidEntity)
	}

	saved := item.Clone()
	if saved.ID == uuid.Nil {
		saved.ID = uuid.New()
	}
	saved.CreationTime = domain.NormalizeTime(saved.CreationTime)
	saved.DueTime = domain.NormalizeTime(saved.DueTime)
	var doneTime sql.NullTime
	if saved.DoneTime != nil {
		normalized := domain.NormalizeTime(*saved.DoneTime)
		saved.DoneTime = &normalized
		doneTime = sql.NullTime{Time: normalized, Valid: true}
	}

	query := `
		INSERT INTO todo_items (id, description, status, creation_time, due_time, done_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			due_time = EXCLUDED.due_time,
			done_time = EXCLUDED.done_time
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		saved.ID,
		saved.Description,
		string(saved.Status),
		saved.CreationTime,
		saved.DueTime,
		doneTime,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate open item rejected",
				slog.String("item_id", saved.ID.String()),
				slog.Time("due_time", saved.DueTime))
			return nil, MapUniqueViolation(err, store.ErrItemExists)
		}
		log.Error("failed to save item",
			slog.String("error", err.Error()),
			slog.String("item_id", saved.ID.String()))
		return nil, store.NewStoreError("item", "save", "failed to save item", MapError(err))
	}

	log.Debug("item saved",
		slog.String("item_id", saved.ID.String()),
		slog.String("status", string(saved.Status)))
	return saved, nil
}

// SaveAll implements store.ItemStore.SaveAll
// Outside a transaction the batch is wrapped in one.
func (s *PostgresItemStore) SaveAll(ctx context.Context, items []*domain.Item) ([]*domain.Item, error) {
	if len(items) == 0 {
		return []*domain.Item{}, nil
	}

	var saved []*domain.Item
	err := s.InTx(ctx, func(ctx context.Context, tx store.ItemStore) error {
		saved = make([]*domain.Item, 0, len(items))
		for _, item := range items {
			out, err := tx.Save(ctx, item)
			if err != nil {
				return err
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete implements store.ItemStore.Delete
func (s *PostgresItemStore) Delete(ctx context.Context, item *domain.Item) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if item == nil {
		return fmt.Errorf("%w: item cannot be nil", store.ErrInvalidEntity)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = $1`, item.ID)
	if err != nil {
		log.Error("failed to delete item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return store.NewStoreError("item", "delete", "failed to delete item", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrItemNotFound); err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("item not found for deletion", slog.String("item_id", item.ID.String()))
		}
		return err
	}

	log.Debug("item deleted", slog.String("item_id", item.ID.String()))
	return nil
}

func (s *PostgresItemStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check item existence",
			slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to check item existence: %w", MapError(err))
	}
	return found, nil
}

func (s *PostgresItemStore) queryItems(
	ctx context.Context,
	operation string,
	query string,
	args ...any,
) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query items",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to %s items: %w", operation, MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	items := make([]*domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan item row",
				slog.String("operation", operation),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating item rows",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to %s items: %w", operation, MapError(err))
	}

	log.Debug("items retrieved",
		slog.String("operation", operation),
		slog.Int("count", len(items)))
	return items, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item     domain.Item
		status   string
		doneTime sql.NullTime
	)
	if err := row.Scan(
		&item.ID,
		&item.Description,
		&status,
		&item.CreationTime,
		&item.DueTime,
		&doneTime,
	); err != nil {
		return nil, err
	}

	item.Status = domain.Status(status)
	if !item.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", store.ErrInvalidEntity, status)
	}
	item.CreationTime = item.CreationTime.UTC()
	item.DueTime = item.DueTime.UTC()
	if doneTime.Valid {
		done := doneTime.Time.UTC()
		item.DoneTime = &done
	}
	return &item, nil
}
