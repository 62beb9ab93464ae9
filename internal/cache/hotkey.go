package cache

import (
	"sync"
	"time"
)

// hotTracker counts key accesses and flags keys whose count crosses a
// threshold. Counts are halved every decay interval so a key that cools
// off stops being hot instead of staying pinned forever. A zero
// threshold disables tracking entirely.
type hotTracker struct {
	mu        sync.Mutex
	counts    map[string]uint64
	threshold uint64
	decay     time.Duration
	lastDecay time.Time

	now func() time.Time
}

func newHotTracker(threshold uint64, decay time.Duration) *hotTracker {
	t := &hotTracker{
		counts:    make(map[string]uint64),
		threshold: threshold,
		decay:     decay,
		now:       time.Now,
	}
	t.lastDecay = t.now()
	return t
}

// Touch records one access and reports whether the key is currently hot.
func (t *hotTracker) Touch(key string) bool {
	if t.threshold == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeDecay()
	t.counts[key]++
	return t.counts[key] >= t.threshold
}

// IsHot reports hotness without recording an access.
func (t *hotTracker) IsHot(key string) bool {
	if t.threshold == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeDecay()
	return t.counts[key] >= t.threshold
}

// Forget drops the counter for a deleted key.
func (t *hotTracker) Forget(key string) {
	if t.threshold == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, key)
}

// HotKeys returns all currently hot keys.
func (t *hotTracker) HotKeys() []string {
	if t.threshold == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeDecay()
	var keys []string
	for k, c := range t.counts {
		if c >= t.threshold {
			keys = append(keys, k)
		}
	}
	return keys
}

// maybeDecay halves every counter once per decay interval, dropping
// counters that reach zero. Called with the lock held.
func (t *hotTracker) maybeDecay() {
	if t.decay <= 0 {
		return
	}
	now := t.now()
	if now.Sub(t.lastDecay) < t.decay {
		return
	}
	for k, c := range t.counts {
		c /= 2
		if c == 0 {
			delete(t.counts, k)
		} else {
			t.counts[k] = c
		}
	}
	t.lastDecay = now
}
