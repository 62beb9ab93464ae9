package eviction

import "fmt"

// Policy decides which key to remove when a cache shard is full.
// The cache owns the data; a Policy only tracks access metadata and
// answers "who goes next". All methods are called with the shard lock
// held, so implementations do not need their own synchronization.
type Policy interface {
	// OnGet records a read of an existing key.
	OnGet(key string)

	// OnPut records an insert or overwrite of a key.
	OnPut(key string)

	// Remove drops all bookkeeping for an explicitly deleted key.
	Remove(key string)

	// Evict returns the key that should be removed, and forgets it.
	// Returns "" when the policy tracks no keys.
	Evict() string
}

// PolicyType identifies a supported eviction strategy.
type PolicyType string

const (
	// LRU evicts the key that has gone unaccessed the longest.
	LRU PolicyType = "lru"

	// LFU evicts the key with the fewest recorded accesses; ties are
	// broken by insertion order within the same frequency.
	LFU PolicyType = "lfu"

	// FIFO evicts the oldest inserted key regardless of access.
	FIFO PolicyType = "fifo"
)

// New returns the eviction policy for the given type.
func New(t PolicyType) (Policy, error) {
	switch t {
	case LRU:
		return newLRU(), nil
	case LFU:
		return newLFU(), nil
	case FIFO:
		return newFIFO(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy: %q", t)
	}
}
