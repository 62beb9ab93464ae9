package mocks

import (
	"context"

	"stashd/internal/model"
	"stashd/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Upsert(ctx context.Context, item *model.Item) (*model.Item, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemRepository) UpsertBatch(ctx context.Context, items []model.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockItemRepository) FindByKey(ctx context.Context, key string) (*model.Item, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Item], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Item]), args.Error(1)
}

func (m *MockItemRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
