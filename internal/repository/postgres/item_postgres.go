package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stashd/internal/model"
	"stashd/internal/repository"
)

// ItemPostgres is a PostgreSQL implementation of repository.ItemRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ItemPostgres struct {
	db *sql.DB
}

// NewItemPostgres creates a new ItemPostgres repository.
func NewItemPostgres(db *sql.DB) *ItemPostgres {
	return &ItemPostgres{db: db}
}

var _ repository.ItemRepository = (*ItemPostgres)(nil)

// IsNoRowsError reports whether err means the row does not exist.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Upsert inserts or replaces the row for the item's key.
func (r *ItemPostgres) Upsert(ctx context.Context, item *model.Item) (*model.Item, error) {
	const q = `
		INSERT INTO cache_items (key, value, content_type, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			value        = EXCLUDED.value,
			content_type = EXCLUDED.content_type,
			expires_at   = EXCLUDED.expires_at,
			updated_at   = EXCLUDED.updated_at
		RETURNING key, value, content_type, expires_at, updated_at
	`
	expires := sql.NullTime{Time: item.ExpiresAt, Valid: !item.ExpiresAt.IsZero()}
	row := r.db.QueryRowContext(ctx, q,
		item.Key,
		item.Value,
		item.ContentType,
		expires,
		item.UpdatedAt,
	)
	return scanItem(row)
}

// UpsertBatch writes all items inside one transaction so a partial
// flush never commits.
func (r *ItemPostgres) UpsertBatch(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch upsert: %w", err)
	}

	const q = `
		INSERT INTO cache_items (key, value, content_type, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			value        = EXCLUDED.value,
			content_type = EXCLUDED.content_type,
			expires_at   = EXCLUDED.expires_at,
			updated_at   = EXCLUDED.updated_at
	`
	for i := range items {
		it := &items[i]
		expires := sql.NullTime{Time: it.ExpiresAt, Valid: !it.ExpiresAt.IsZero()}
		if _, err := tx.ExecContext(ctx, q, it.Key, it.Value, it.ContentType, expires, it.UpdatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("batch upsert key %q: %w", it.Key, err)
		}
	}
	return tx.Commit()
}

// FindByKey fetches a single item by its key.
func (r *ItemPostgres) FindByKey(ctx context.Context, key string) (*model.Item, error) {
	const q = `
		SELECT key, value, content_type, expires_at, updated_at
		FROM cache_items
		WHERE key = $1
	`
	return scanItem(r.db.QueryRowContext(ctx, q, key))
}

// List returns items using LIMIT/OFFSET pagination and a total count.
func (r *ItemPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Item], error) {
	const qCount = `SELECT COUNT(*) FROM cache_items`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT key, value, content_type, expires_at, updated_at
		FROM cache_items
		ORDER BY updated_at DESC, key ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		var it model.Item
		var expires sql.NullTime
		if err := rows.Scan(&it.Key, &it.Value, &it.ContentType, &expires, &it.UpdatedAt); err != nil {
			return nil, err
		}
		if expires.Valid {
			it.ExpiresAt = expires.Time
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Item]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes an item by key. It does not return an error if the row does not exist.
func (r *ItemPostgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM cache_items WHERE key = $1`
	res, err := r.db.ExecContext(ctx, q, key)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// scanItem reads one row into a model.Item, mapping NULL expires_at to
// the zero time.
func scanItem(row *sql.Row) (*model.Item, error) {
	var it model.Item
	var expires sql.NullTime
	if err := row.Scan(&it.Key, &it.Value, &it.ContentType, &expires, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		it.ExpiresAt = expires.Time
	}
	return &it, nil
}
