package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  int64
		wantErr bool
	}{
		{name: "min node", nodeID: 0},
		{name: "max node", nodeID: 1023},
		{name: "negative node", nodeID: -1, wantErr: true},
		{name: "overflow node", nodeID: 1024, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.nodeID, 0)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.nodeID, g.NodeID())
			}
		})
	}
}

func TestGenerator_MonotonicWithinNode(t *testing.T) {
	g, err := New(7, 0)
	require.NoError(t, err)

	var prev ID
	for i := 0; i < 10000; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		require.Greater(t, id, prev, "id %d not strictly increasing", i)
		prev = id
	}
}

func TestGenerator_Decompose(t *testing.T) {
	g, err := New(42, 0)
	require.NoError(t, err)

	before := time.Now().Add(-time.Second)
	id, err := g.Next()
	require.NoError(t, err)
	after := time.Now().Add(time.Second)

	f := g.Decompose(id)
	assert.Equal(t, int64(42), f.NodeID)
	assert.True(t, f.Timestamp.After(before) && f.Timestamp.Before(after),
		"timestamp %s outside [%s, %s]", f.Timestamp, before, after)
	assert.GreaterOrEqual(t, f.Sequence, int64(0))
	assert.LessOrEqual(t, f.Sequence, int64(4095))
}

func TestGenerator_SequenceOverflowWaits(t *testing.T) {
	g, err := New(1, 0)
	require.NoError(t, err)

	// Freeze the clock until the sequence wraps, then advance.
	ms := int64(DefaultEpoch + 1000)
	calls := 0
	g.nowMs = func() int64 {
		calls++
		if calls > 5000 {
			return ms + 1
		}
		return ms
	}

	seen := make(map[ID]struct{})
	for i := 0; i < 4097; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id at %d", i)
		seen[id] = struct{}{}
	}
}

func TestGenerator_ClockRegression(t *testing.T) {
	g, err := New(1, 0)
	require.NoError(t, err)

	ms := DefaultEpoch + 10000
	g.nowMs = func() int64 { return ms }
	g.sleep = func(time.Duration) { ms++ }

	_, err = g.Next()
	require.NoError(t, err)

	t.Run("small drift is waited out", func(t *testing.T) {
		ms -= 3
		id, err := g.Next()
		assert.NoError(t, err)
		assert.NotZero(t, id)
	})

	t.Run("large drift errors", func(t *testing.T) {
		ms -= 500
		_, err := g.Next()
		assert.ErrorIs(t, err, ErrClockMovedBackwards)
	})
}

func TestGenerator_NextBatch(t *testing.T) {
	g, err := New(3, 0)
	require.NoError(t, err)

	ids, err := g.NextBatch(100)
	require.NoError(t, err)
	require.Len(t, ids, 100)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	_, err = g.NextBatch(0)
	assert.Error(t, err)
}

func TestGenerator_ConcurrentUniqueness(t *testing.T) {
	g, err := New(5, 0)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[ID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := g.Next()
				assert.NoError(t, err)
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, "duplicate id %d", id)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}
