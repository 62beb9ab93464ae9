package repository

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

import (
	"context"

	"stashd/internal/model"
)

// ItemRepository defines persistence for cached items using SQL queries only.
// No business logic here — the service layer decides when the database is
// written (write-through, write-behind) or merely read (cache-aside).
type ItemRepository interface {
	// Upsert inserts or replaces the row for the item's key.
	// Returns the stored item (may include values set by the DB).
	Upsert(ctx context.Context, item *model.Item) (*model.Item, error)

	// UpsertBatch upserts many items in a single transaction.
	// Used by the write-behind flusher.
	UpsertBatch(ctx context.Context, items []model.Item) error

	// FindByKey returns the item stored under key.
	FindByKey(ctx context.Context, key string) (*model.Item, error)

	// List returns a paginated list of items and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Item], error)

	// Delete removes an item by key. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, key string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
