package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrigins(names ...string) []*Origin {
	out := make([]*Origin, len(names))
	for i, n := range names {
		out[i] = &Origin{Name: n, URL: "http://" + n}
	}
	return out
}

func TestPicker_RoundRobinCyclesEvenly(t *testing.T) {
	p := NewPicker(testOrigins("a", "b", "c"))

	counts := map[string]int{}
	for i := 0; i < 300; i++ {
		o, err := p.Next()
		require.NoError(t, err)
		counts[o.Name]++
	}
	assert.Equal(t, 100, counts["a"])
	assert.Equal(t, 100, counts["b"])
	assert.Equal(t, 100, counts["c"])
}

func TestPicker_SkipsUnhealthy(t *testing.T) {
	origins := testOrigins("a", "b", "c")
	p := NewPicker(origins)
	origins[1].setHealthy(false)

	for i := 0; i < 50; i++ {
		o, err := p.Next()
		require.NoError(t, err)
		assert.NotEqual(t, "b", o.Name)
	}
}

func TestPicker_AllUnhealthy(t *testing.T) {
	origins := testOrigins("a", "b")
	p := NewPicker(origins)
	origins[0].setHealthy(false)
	origins[1].setHealthy(false)

	_, err := p.Next()
	assert.ErrorIs(t, err, ErrNoHealthyOrigins)
}

func TestPicker_Empty(t *testing.T) {
	p := NewPicker(nil)
	_, err := p.Next()
	assert.ErrorIs(t, err, ErrNoHealthyOrigins)
}

func TestPicker_WeightedDistribution(t *testing.T) {
	origins := []*Origin{
		{Name: "big", URL: "http://big", Weight: 3},
		{Name: "mid", URL: "http://mid", Weight: 2},
		{Name: "small", URL: "http://small", Weight: 1},
	}
	p := NewPicker(origins)

	counts := map[string]int{}
	for i := 0; i < 600; i++ {
		o, err := p.Next()
		require.NoError(t, err)
		counts[o.Name]++
	}
	assert.Equal(t, 300, counts["big"])
	assert.Equal(t, 200, counts["mid"])
	assert.Equal(t, 100, counts["small"])
}

func TestPicker_WeightedInterleaves(t *testing.T) {
	origins := []*Origin{
		{Name: "big", URL: "http://big", Weight: 5},
		{Name: "small", URL: "http://small", Weight: 1},
	}
	p := NewPicker(origins)

	// Smooth WRR must not return the heavy origin six times in a row
	// within one cycle: the light one appears mid-cycle.
	var seq []string
	for i := 0; i < 6; i++ {
		o, err := p.Next()
		require.NoError(t, err)
		seq = append(seq, o.Name)
	}
	assert.Contains(t, seq, "small")
}

func TestPicker_WeightedSkipsUnhealthy(t *testing.T) {
	origins := []*Origin{
		{Name: "a", URL: "http://a", Weight: 2},
		{Name: "b", URL: "http://b", Weight: 2},
	}
	p := NewPicker(origins)
	origins[0].setHealthy(false)

	for i := 0; i < 20; i++ {
		o, err := p.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", o.Name)
	}
}

func TestPicker_DefaultWeight(t *testing.T) {
	origins := []*Origin{{Name: "a", URL: "http://a", Weight: 0}}
	NewPicker(origins)
	assert.Equal(t, 1, origins[0].Weight)
}
