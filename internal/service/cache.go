package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stashd/internal/balance"
	"stashd/internal/cache"
	"stashd/internal/metrics"
	"stashd/internal/model"
	"stashd/internal/repository"
)

var (
	ErrKeyRequired   = errors.New("key is required")
	ErrNotFound      = errors.New("item not found")
	ErrQueueFull     = errors.New("write-behind queue is full")
	ErrNoPersistence = errors.New("no database configured")
)

// WriteStrategy selects how writes reach the database.
type WriteStrategy string

const (
	// CacheAside keeps writes in memory only; the database is a
	// read-through source on miss.
	CacheAside WriteStrategy = "cache_aside"
	// WriteThrough persists synchronously before the cache is updated.
	WriteThrough WriteStrategy = "write_through"
	// WriteBehind updates the cache immediately and persists
	// asynchronously through the flusher.
	WriteBehind WriteStrategy = "write_behind"
)

// ParseWriteStrategy validates a strategy name from configuration.
func ParseWriteStrategy(s string) (WriteStrategy, error) {
	switch ws := WriteStrategy(s); ws {
	case CacheAside, WriteThrough, WriteBehind:
		return ws, nil
	default:
		return "", fmt.Errorf("unknown write strategy: %q", s)
	}
}

// ItemListResult is the service-level DTO for paginated items.
type ItemListResult struct {
	Items []model.Item `json:"data"`
	Total int          `json:"total"`
}

// CacheService defines the use cases for the cache API.
type CacheService interface {
	// Get returns the item for key, falling back to the database and
	// then to a healthy origin on cache miss.
	Get(ctx context.Context, key string) (*model.Item, error)

	// Put stores a value under key. How the database is written depends
	// on the configured strategy. ttl <= 0 uses the service default.
	Put(ctx context.Context, key string, value []byte, contentType string, ttl time.Duration) (*model.Item, error)

	// Delete removes key from the cache and, outside cache-aside mode,
	// from the database.
	Delete(ctx context.Context, key string) error

	// List returns persisted items using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*ItemListResult, error)

	// Stats reports cache counters, per-shard figures, and hot keys.
	Stats() cache.Stats

	// Close drains the write-behind queue and stops background work.
	Close(ctx context.Context) error
}

// Options wires a cacheService together. Repo, Picker, Flusher, and
// Metrics may each be nil; the corresponding behavior is skipped.
type Options struct {
	Cache      *cache.Cache
	Repo       repository.ItemRepository
	Picker     *balance.Picker
	Flusher    *Flusher
	Metrics    *metrics.Cache
	Strategy   WriteStrategy
	DefaultTTL time.Duration
	HTTPClient *http.Client
}

type cacheService struct {
	cache      *cache.Cache
	repo       repository.ItemRepository
	picker     *balance.Picker
	flusher    *Flusher
	metrics    *metrics.Cache
	strategy   WriteStrategy
	defaultTTL time.Duration
	client     *http.Client

	now func() time.Time
}

// NewCacheService constructs a CacheService.
func NewCacheService(opts Options) (CacheService, error) {
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if opts.Strategy == "" {
		opts.Strategy = WriteThrough
	}
	if _, err := ParseWriteStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}
	if opts.Strategy == WriteBehind && opts.Flusher == nil {
		return nil, errors.New("write_behind strategy requires a flusher")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 3 * time.Second}
	}
	return &cacheService{
		cache:      opts.Cache,
		repo:       opts.Repo,
		picker:     opts.Picker,
		flusher:    opts.Flusher,
		metrics:    opts.Metrics,
		strategy:   opts.Strategy,
		defaultTTL: opts.DefaultTTL,
		client:     opts.HTTPClient,
		now:        time.Now,
	}, nil
}

func (s *cacheService) Get(ctx context.Context, key string) (*model.Item, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	if item, ok := s.cache.Get(key); ok {
		s.metrics.IncHits()
		return &item, nil
	}
	s.metrics.IncMisses()

	if s.repo != nil {
		item, err := s.repo.FindByKey(ctx, key)
		switch {
		case err == nil:
			if !item.Expired(s.now()) {
				s.cache.Put(*item)
				s.metrics.IncDBLoads()
				return item, nil
			}
		case isNoRows(err):
			// fall through to origins
		default:
			return nil, fmt.Errorf("db lookup: %w", err)
		}
	}

	if s.picker != nil {
		item, err := s.fetchFromOrigin(ctx, key)
		if err == nil {
			s.cache.Put(*item)
			s.metrics.IncOriginLoads()
			if s.strategy != CacheAside && s.repo != nil {
				if _, err := s.repo.Upsert(ctx, item); err != nil {
					return nil, fmt.Errorf("persist origin item: %w", err)
				}
			}
			return item, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return nil, ErrNotFound
}

func (s *cacheService) Put(ctx context.Context, key string, value []byte, contentType string, ttl time.Duration) (*model.Item, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now().UTC()
	item := model.Item{
		Key:         key,
		Value:       value,
		ContentType: contentType,
		UpdatedAt:   now,
	}
	if ttl > 0 {
		item.ExpiresAt = now.Add(ttl)
	}

	switch s.strategy {
	case WriteThrough:
		if s.repo != nil {
			if _, err := s.repo.Upsert(ctx, &item); err != nil {
				return nil, fmt.Errorf("write through: %w", err)
			}
		}
	case WriteBehind:
		if err := s.flusher.Enqueue(item); err != nil {
			return nil, err
		}
	case CacheAside:
		// memory only
	}

	s.cache.Put(item)
	return &item, nil
}

func (s *cacheService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	found := s.cache.Delete(key)
	if s.strategy != CacheAside && s.repo != nil {
		if err := s.repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete from db: %w", err)
		}
		return nil
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// List returns persisted items without exposing repository types.
func (s *cacheService) List(ctx context.Context, limit, offset int) (*ItemListResult, error) {
	if s.repo == nil {
		return nil, ErrNoPersistence
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *cacheService) Stats() cache.Stats {
	return s.cache.Stats()
}

func (s *cacheService) Close(ctx context.Context) error {
	if s.flusher != nil {
		return s.flusher.Stop(ctx)
	}
	return nil
}

// fetchFromOrigin asks a round-robin-chosen healthy origin for the key.
// Origins answer GET /keys/{key} with the raw value; 404 means the key
// does not exist anywhere.
func (s *cacheService) fetchFromOrigin(ctx context.Context, key string) (*model.Item, error) {
	origin, err := s.picker.Next()
	if err != nil {
		return nil, err
	}

	u := origin.URL + "/keys/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin %s: %w", origin.Name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("origin %s: unexpected status %d", origin.Name, resp.StatusCode)
	}

	value, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("origin %s: read body: %w", origin.Name, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := s.now().UTC()
	item := &model.Item{
		Key:         key,
		Value:       value,
		ContentType: contentType,
		UpdatedAt:   now,
	}
	if s.defaultTTL > 0 {
		item.ExpiresAt = now.Add(s.defaultTTL)
	}
	return item, nil
}

// isNoRows matches the repository's not-found error.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
