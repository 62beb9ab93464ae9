package mocks

import (
	"context"
	"time"

	"stashd/internal/cache"
	"stashd/internal/model"
	"stashd/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string) (*model.Item, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockCacheService) Put(ctx context.Context, key string, value []byte, contentType string, ttl time.Duration) (*model.Item, error) {
	args := m.Called(ctx, key, value, contentType, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) List(ctx context.Context, limit, offset int) (*service.ItemListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ItemListResult), args.Error(1)
}

func (m *MockCacheService) Stats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

func (m *MockCacheService) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
