package cache

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"stashd/internal/cache/eviction"
	"stashd/internal/model"
)

// Options configures a sharded cache.
type Options struct {
	// Shards is the number of partitions. Each has its own lock and
	// eviction state.
	Shards int
	// ShardCapacity is the maximum entry count per shard.
	ShardCapacity int
	// Policy selects the eviction strategy.
	Policy eviction.PolicyType
	// HotKeyThreshold is the access count at which a key is treated as
	// hot. Zero disables hot-key handling.
	HotKeyThreshold uint64
	// HotKeyDecay is how often hot-key counters are halved.
	HotKeyDecay time.Duration
}

// Stats aggregates counters across all shards.
type Stats struct {
	Size        int          `json:"size"`
	Hits        uint64       `json:"hits"`
	Misses      uint64       `json:"misses"`
	Evictions   uint64       `json:"evictions"`
	Expirations uint64       `json:"expirations"`
	Shards      []ShardStats `json:"shards"`
	HotKeys     []string     `json:"hot_keys"`
}

// Cache routes keys across shards by FNV-1a hash. Keys the tracker
// flags as hot are replicated to every shard on write and read
// round-robin, spreading lock contention for skewed workloads; once a
// key cools it falls back to plain owner-shard routing.
type Cache struct {
	shards []*Shard
	hot    *hotTracker
	cursor atomic.Uint64

	// replicated records keys currently copied to every shard, so a
	// write to a key that has cooled can purge the hot-phase replicas
	// before they go stale.
	repMu      sync.Mutex
	replicated map[string]struct{}
}

// New builds a sharded cache from options.
func New(opts Options) (*Cache, error) {
	if opts.Shards <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", opts.Shards)
	}
	if opts.ShardCapacity <= 0 {
		return nil, fmt.Errorf("shard capacity must be positive, got %d", opts.ShardCapacity)
	}

	shards := make([]*Shard, opts.Shards)
	for i := range shards {
		policy, err := eviction.New(opts.Policy)
		if err != nil {
			return nil, err
		}
		shards[i] = NewShard(opts.ShardCapacity, policy)
	}
	return &Cache{
		shards:     shards,
		hot:        newHotTracker(opts.HotKeyThreshold, opts.HotKeyDecay),
		replicated: make(map[string]struct{}),
	}, nil
}

// shardIndex maps a key to its owning shard.
func (c *Cache) shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(c.shards)))
}

// Get returns the item for key. Hot keys are read from a round-robin
// shard first, falling back to the owner shard when the chosen replica
// does not have the key yet.
func (c *Cache) Get(key string) (model.Item, bool) {
	owner := c.shardIndex(key)
	if c.hot.Touch(key) && len(c.shards) > 1 {
		idx := int(c.cursor.Add(1) % uint64(len(c.shards)))
		if idx != owner {
			if item, ok := c.shards[idx].Get(key); ok {
				return item, true
			}
		}
	}
	return c.shards[owner].Get(key)
}

// Put stores an item. A hot key is written to every shard so replica
// reads observe the new value. A key that cooled since its hot phase
// still has replicas on the other shards; those are purged here, or a
// later re-heat would round-robin onto values older than this write.
func (c *Cache) Put(item model.Item) {
	owner := c.shardIndex(item.Key)

	if c.hot.Touch(item.Key) && len(c.shards) > 1 {
		c.repMu.Lock()
		c.replicated[item.Key] = struct{}{}
		c.repMu.Unlock()
		for _, s := range c.shards {
			s.Put(item)
		}
		return
	}

	c.repMu.Lock()
	_, hadReplicas := c.replicated[item.Key]
	delete(c.replicated, item.Key)
	c.repMu.Unlock()
	if hadReplicas {
		for i, s := range c.shards {
			if i != owner {
				s.Delete(item.Key)
			}
		}
	}
	c.shards[owner].Put(item)
}

// Delete removes a key from every shard so neither the owner copy nor
// any hot-key replica survives. Reports whether any shard held it.
func (c *Cache) Delete(key string) bool {
	deleted := false
	for _, s := range c.shards {
		if s.Delete(key) {
			deleted = true
		}
	}
	c.repMu.Lock()
	delete(c.replicated, key)
	c.repMu.Unlock()
	c.hot.Forget(key)
	return deleted
}

// Len returns the total entry count across shards. Hot-key replicas are
// counted once per shard that holds them.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}

// Items returns all live entries, deduplicating hot-key replicas.
func (c *Cache) Items() []model.Item {
	seen := make(map[string]struct{})
	var out []model.Item
	for _, s := range c.shards {
		for _, item := range s.Items() {
			if _, dup := seen[item.Key]; dup {
				continue
			}
			seen[item.Key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Stats aggregates shard counters and includes the current hot-key set.
func (c *Cache) Stats() Stats {
	st := Stats{Shards: make([]ShardStats, 0, len(c.shards))}
	for _, s := range c.shards {
		ss := s.Stats()
		st.Size += ss.Size
		st.Hits += ss.Hits
		st.Misses += ss.Misses
		st.Evictions += ss.Evictions
		st.Expirations += ss.Expirations
		st.Shards = append(st.Shards, ss)
	}
	st.HotKeys = c.hot.HotKeys()
	sort.Strings(st.HotKeys)
	return st
}
