// Package cache implements the in-memory store: fixed-capacity shards
// with pluggable eviction, fronted by a hash router that detects and
// replicates hot keys.
package cache

import (
	"sync"
	"time"

	"stashd/internal/cache/eviction"
	"stashd/internal/model"
)

// ShardStats is a point-in-time counter snapshot for one shard.
type ShardStats struct {
	Size        int    `json:"size"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// Shard is a single fixed-capacity cache partition. A shard never holds
// more than its capacity: inserting a new key at capacity evicts one
// entry chosen by the policy first. Expired entries are removed on
// access and never influence eviction order. Safe for concurrent use.
type Shard struct {
	mu       sync.Mutex
	capacity int
	items    map[string]model.Item
	policy   eviction.Policy
	stats    ShardStats

	now func() time.Time
}

// NewShard creates a shard with the given capacity and eviction policy.
func NewShard(capacity int, policy eviction.Policy) *Shard {
	return &Shard{
		capacity: capacity,
		items:    make(map[string]model.Item, capacity),
		policy:   policy,
		now:      time.Now,
	}
}

// Get returns the item stored under key. An expired item is dropped and
// reported as a miss.
func (s *Shard) Get(key string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		s.stats.Misses++
		return model.Item{}, false
	}
	if item.Expired(s.now()) {
		delete(s.items, key)
		s.policy.Remove(key)
		s.stats.Expirations++
		s.stats.Misses++
		return model.Item{}, false
	}
	s.policy.OnGet(key)
	s.stats.Hits++
	return item, true
}

// Put stores an item, evicting per policy when a new key would push the
// shard past capacity. Returns the evicted key, if any.
func (s *Shard) Put(item model.Item) (evicted string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.Key]; !exists && len(s.items) >= s.capacity {
		evicted = s.policy.Evict()
		if evicted != "" {
			delete(s.items, evicted)
			s.stats.Evictions++
		}
	}
	s.items[item.Key] = item
	s.policy.OnPut(item.Key)
	return evicted
}

// Delete removes a key. Reports whether the key was present.
func (s *Shard) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	s.policy.Remove(key)
	return true
}

// Len returns the number of entries, including any not yet noticed as
// expired.
func (s *Shard) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a copy of all live entries, skipping expired ones.
func (s *Shard) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		if !item.Expired(now) {
			out = append(out, item)
		}
	}
	return out
}

// Stats returns a snapshot of the shard counters.
func (s *Shard) Stats() ShardStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Size = len(s.items)
	return st
}
