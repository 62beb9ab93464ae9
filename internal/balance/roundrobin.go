// Package balance distributes cache-miss origin fetches across backend
// servers: plain and weighted round-robin selection over the origins a
// health monitor currently considers healthy.
package balance

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoHealthyOrigins is returned when every configured origin is
// currently failing health checks.
var ErrNoHealthyOrigins = errors.New("no healthy origins available")

// Origin is one backend server that can answer key lookups.
type Origin struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Weight int    `json:"weight"`

	healthy atomic.Bool
}

// Healthy reports whether the origin passed its last health checks.
func (o *Origin) Healthy() bool { return o.healthy.Load() }

// setHealthy is flipped by the health monitor.
func (o *Origin) setHealthy(v bool) { o.healthy.Store(v) }

// Picker selects origins round-robin, skipping unhealthy ones. With
// weights set, an origin with weight W is returned W times per cycle
// (smooth weighted round-robin, so consecutive picks interleave rather
// than cluster).
type Picker struct {
	mu      sync.Mutex
	origins []*Origin
	current []int // running weight per origin, for smooth WRR
	cursor  uint64
	useWRR  bool
}

// NewPicker builds a picker over the given origins. Origins start
// healthy; the health monitor demotes them. Weighted selection is used
// when any origin declares a weight above one.
func NewPicker(origins []*Origin) *Picker {
	useWRR := false
	for _, o := range origins {
		if o.Weight <= 0 {
			o.Weight = 1
		}
		if o.Weight > 1 {
			useWRR = true
		}
		o.setHealthy(true)
	}
	return &Picker{
		origins: origins,
		current: make([]int, len(origins)),
		useWRR:  useWRR,
	}
}

// Next returns the next healthy origin.
func (p *Picker) Next() (*Origin, error) {
	if len(p.origins) == 0 {
		return nil, ErrNoHealthyOrigins
	}
	if p.useWRR {
		return p.nextWeighted()
	}
	return p.nextRoundRobin()
}

// nextRoundRobin walks the ring from an atomic cursor, at most one full
// lap, returning the first healthy origin.
func (p *Picker) nextRoundRobin() (*Origin, error) {
	n := uint64(len(p.origins))
	start := atomic.AddUint64(&p.cursor, 1)
	for i := uint64(0); i < n; i++ {
		o := p.origins[(start+i)%n]
		if o.Healthy() {
			return o, nil
		}
	}
	return nil, ErrNoHealthyOrigins
}

// nextWeighted implements smooth weighted round-robin: every healthy
// origin's running weight grows by its configured weight each pick, the
// largest running weight wins and is decremented by the total.
func (p *Picker) nextWeighted() (*Origin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	best := -1
	for i, o := range p.origins {
		if !o.Healthy() {
			continue
		}
		p.current[i] += o.Weight
		total += o.Weight
		if best == -1 || p.current[i] > p.current[best] {
			best = i
		}
	}
	if best == -1 {
		return nil, ErrNoHealthyOrigins
	}
	p.current[best] -= total
	return p.origins[best], nil
}

// Origins returns all configured origins, healthy or not.
func (p *Picker) Origins() []*Origin { return p.origins }
