// Package metrics registers the cache-specific Prometheus collectors.
// HTTP request counting lives in the middleware package; this covers
// the data path: hit/miss ratios, where misses were filled from, and
// write-behind flush behavior.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache bundles the data-path collectors. A nil *Cache is a valid
// no-op receiver so tests can run without a registry.
type Cache struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	dbLoads     prometheus.Counter
	originLoads prometheus.Counter
	flushSecs   prometheus.Histogram
	flushErrors prometheus.Counter
}

// NewCache registers the cache collectors. sizeFn and queueFn feed the
// size and queue-depth gauges; either may be nil to skip that gauge.
func NewCache(reg prometheus.Registerer, sizeFn, queueFn func() float64) (*Cache, error) {
	c := &Cache{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Reads served from memory.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Reads that missed every shard.",
		}),
		dbLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_db_loads_total",
			Help: "Misses filled from the database.",
		}),
		originLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_origin_loads_total",
			Help: "Misses filled from an origin backend.",
		}),
		flushSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_behind_flush_seconds",
			Help:    "Duration of write-behind batch flushes.",
			Buckets: prometheus.DefBuckets,
		}),
		flushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_write_behind_flush_errors_total",
			Help: "Write-behind flushes that failed and were retried.",
		}),
	}

	collectors := []prometheus.Collector{
		c.hits, c.misses, c.dbLoads, c.originLoads, c.flushSecs, c.flushErrors,
	}
	if sizeFn != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Entries held across all shards, replicas included.",
		}, sizeFn))
	}
	if queueFn != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cache_write_behind_queue_depth",
			Help: "Items waiting in the write-behind queue.",
		}, queueFn))
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cache) IncHits() {
	if c != nil {
		c.hits.Inc()
	}
}

func (c *Cache) IncMisses() {
	if c != nil {
		c.misses.Inc()
	}
}

func (c *Cache) IncDBLoads() {
	if c != nil {
		c.dbLoads.Inc()
	}
}

func (c *Cache) IncOriginLoads() {
	if c != nil {
		c.originLoads.Inc()
	}
}

func (c *Cache) ObserveFlush(d time.Duration) {
	if c != nil {
		c.flushSecs.Observe(d.Seconds())
	}
}

func (c *Cache) IncFlushErrors() {
	if c != nil {
		c.flushErrors.Inc()
	}
}
