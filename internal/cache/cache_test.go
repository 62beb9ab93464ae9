package cache

import (
	"fmt"
	"testing"
	"time"

	"stashd/internal/cache/eviction"
	"stashd/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShard(t *testing.T, capacity int, pt eviction.PolicyType) *Shard {
	t.Helper()
	policy, err := eviction.New(pt)
	require.NoError(t, err)
	return NewShard(capacity, policy)
}

func item(key, value string) model.Item {
	return model.Item{Key: key, Value: []byte(value), UpdatedAt: time.Now().UTC()}
}

func TestShard_GetPut(t *testing.T) {
	s := newTestShard(t, 4, eviction.LRU)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Put(item("a", "1"))
	got, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got.Value)

	// Overwrite replaces the value without growing the shard.
	s.Put(item("a", "2"))
	got, _ = s.Get("a")
	assert.Equal(t, []byte("2"), got.Value)
	assert.Equal(t, 1, s.Len())
}

func TestShard_CapacityNeverExceeded(t *testing.T) {
	const capacity = 8
	s := newTestShard(t, capacity, eviction.LRU)

	for i := 0; i < 100; i++ {
		s.Put(item(fmt.Sprintf("k%d", i), "v"))
		if i%3 == 0 {
			s.Get(fmt.Sprintf("k%d", i/2))
		}
		require.LessOrEqual(t, s.Len(), capacity)
	}
	assert.Equal(t, capacity, s.Len())
}

func TestShard_LRUEvictsLeastRecentlyUsed(t *testing.T) {
	s := newTestShard(t, 2, eviction.LRU)

	s.Put(item("a", "1"))
	s.Put(item("b", "2"))
	s.Get("a") // b is now least recently used

	evicted := s.Put(item("c", "3"))
	assert.Equal(t, "b", evicted)

	_, ok := s.Get("b")
	assert.False(t, ok)
	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestShard_LFUEvictsLeastFrequent(t *testing.T) {
	s := newTestShard(t, 2, eviction.LFU)

	s.Put(item("a", "1"))
	s.Put(item("b", "2"))
	s.Get("a")
	s.Get("a")
	s.Get("b")

	// a has more accesses; b goes.
	evicted := s.Put(item("c", "3"))
	assert.Equal(t, "b", evicted)
}

func TestShard_TTL(t *testing.T) {
	s := newTestShard(t, 4, eviction.LRU)
	base := time.Now().UTC()
	now := base
	s.now = func() time.Time { return now }

	it := item("a", "1")
	it.ExpiresAt = base.Add(time.Minute)
	s.Put(it)

	_, ok := s.Get("a")
	assert.True(t, ok)

	now = base.Add(2 * time.Minute)
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired entry is removed on access")

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Expirations)
}

func TestShard_ItemsSkipsExpired(t *testing.T) {
	s := newTestShard(t, 4, eviction.LRU)
	base := time.Now().UTC()
	s.now = func() time.Time { return base.Add(time.Hour) }

	fresh := item("fresh", "1")
	stale := item("stale", "2")
	stale.ExpiresAt = base.Add(time.Minute)
	s.Put(fresh)
	s.Put(stale)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Key)
}

func TestShard_Delete(t *testing.T) {
	s := newTestShard(t, 4, eviction.LRU)

	s.Put(item("a", "1"))
	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, 0, s.Len())

	// Deleting must clear eviction bookkeeping: filling to capacity
	// afterwards must not evict prematurely.
	s.Put(item("b", "1"))
	s.Put(item("c", "1"))
	s.Put(item("d", "1"))
	evicted := s.Put(item("e", "1"))
	assert.Equal(t, "", evicted)
	assert.Equal(t, 4, s.Len())
}

func TestShard_Stats(t *testing.T) {
	s := newTestShard(t, 2, eviction.LRU)

	s.Put(item("a", "1"))
	s.Get("a")
	s.Get("missing")
	s.Put(item("b", "2"))
	s.Put(item("c", "3")) // evicts

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Equal(t, 2, st.Size)
}
