package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		policyType PolicyType
		wantErr    bool
	}{
		{name: "lru", policyType: LRU},
		{name: "lfu", policyType: LFU},
		{name: "fifo", policyType: FIFO},
		{name: "unknown", policyType: PolicyType("arc"), wantErr: true},
		{name: "empty", policyType: PolicyType(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.policyType)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, p)
			}
		})
	}
}

func TestLRU_EvictionOrder(t *testing.T) {
	p := newLRU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	// Touching "a" makes "b" the least recently used.
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLRU_OverwritePromotes(t *testing.T) {
	p := newLRU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("a") // overwrite counts as use

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "a", p.Evict())
}

func TestLRU_Remove(t *testing.T) {
	p := newLRU()

	p.OnPut("a")
	p.OnPut("b")
	p.Remove("a")
	p.Remove("missing") // no-op

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLFU_EvictsLowestFrequency(t *testing.T) {
	p := newLFU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	p.OnGet("a")
	p.OnGet("a")
	p.OnGet("c")

	// Frequencies: a=3, b=1, c=2.
	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLFU_TieBreaksByInsertionOrder(t *testing.T) {
	p := newLFU()

	p.OnPut("first")
	p.OnPut("second")
	p.OnPut("third")

	// All at frequency 1: eviction follows insertion order.
	assert.Equal(t, "first", p.Evict())
	assert.Equal(t, "second", p.Evict())
	assert.Equal(t, "third", p.Evict())
}

func TestLFU_TieBreakSurvivesPromotion(t *testing.T) {
	p := newLFU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	// Promote in reverse order; at frequency 2 the bucket order is the
	// promotion order, and the earliest promoted goes first.
	p.OnGet("c")
	p.OnGet("a")
	p.OnGet("b")

	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
}

func TestLFU_PromoteOnlyEntry(t *testing.T) {
	p := newLFU()

	p.OnPut("solo")
	p.OnGet("solo")
	p.OnGet("solo")

	assert.Equal(t, "solo", p.Evict())
	assert.Equal(t, "", p.Evict())

	// The policy must remain usable after draining.
	p.OnPut("next")
	assert.Equal(t, "next", p.Evict())
}

func TestLFU_RemoveFromMinBucket(t *testing.T) {
	p := newLFU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("b") // a=1, b=2

	p.Remove("a")

	// Min bucket emptied by the remove; eviction must find b.
	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLFU_OverwriteCountsAsAccess(t *testing.T) {
	p := newLFU()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("a") // a=2, b=1

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "a", p.Evict())
}

func TestFIFO_IgnoresAccess(t *testing.T) {
	p := newFIFO()

	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a") // overwrite does not reposition

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestFIFO_Remove(t *testing.T) {
	p := newFIFO()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.Remove("b")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "c", p.Evict())
}

// Long mixed sequences across all policies: a policy must never return
// a key it is not currently tracking, and must drain completely.
func TestPolicies_DrainConsistency(t *testing.T) {
	for _, pt := range []PolicyType{LRU, LFU, FIFO} {
		t.Run(string(pt), func(t *testing.T) {
			p, err := New(pt)
			require.NoError(t, err)

			live := map[string]bool{}
			keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
			for i, k := range keys {
				p.OnPut(k)
				live[k] = true
				p.OnGet(keys[i/2])
			}
			p.Remove("k3")
			delete(live, "k3")

			for len(live) > 0 {
				k := p.Evict()
				require.True(t, live[k], "evicted untracked key %q", k)
				delete(live, k)
			}
			assert.Equal(t, "", p.Evict())
		})
	}
}
