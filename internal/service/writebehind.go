package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"stashd/internal/metrics"
	"stashd/internal/model"
	"stashd/internal/repository"
)

// FlusherOptions tunes the write-behind flusher.
type FlusherOptions struct {
	QueueSize int
	BatchSize int
	Interval  time.Duration
	Metrics   *metrics.Cache
}

// Flusher drains queued writes to the database in batches. Enqueue
// never blocks: a full queue is surfaced to the caller, which is the
// backpressure signal write-behind mode gives up. A failed batch is
// retained and retried on the next tick rather than dropped.
type Flusher struct {
	repo     repository.ItemRepository
	queue    chan model.Item
	batch    int
	interval time.Duration
	metrics  *metrics.Cache

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewFlusher builds a flusher over repo.
func NewFlusher(repo repository.ItemRepository, opts FlusherOptions) *Flusher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 4096
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Interval <= 0 {
		opts.Interval = 200 * time.Millisecond
	}
	return &Flusher{
		repo:     repo,
		queue:    make(chan model.Item, opts.QueueSize),
		batch:    opts.BatchSize,
		interval: opts.Interval,
		metrics:  opts.Metrics,
	}
}

// Enqueue hands an item to the background flusher.
func (f *Flusher) Enqueue(item model.Item) error {
	select {
	case f.queue <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the current queue depth.
func (f *Flusher) Len() int { return len(f.queue) }

// Start launches the flush loop.
func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	f.started = true

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx)
	}()
}

// Stop halts the loop and flushes everything still queued. The given
// context bounds the final flush.
func (f *Flusher) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil
	}
	f.cancel()
	f.mu.Unlock()
	f.wg.Wait()

	// Anything enqueued after the loop observed cancellation.
	pending := f.drain(nil)
	if len(pending) > 0 {
		if err := f.flushOnce(ctx, pending); err != nil {
			return fmt.Errorf("final write-behind flush: %w", err)
		}
	}
	return nil
}

func (f *Flusher) run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var pending []model.Item
	for {
		// While retained writes exceed the queue capacity the loop stops
		// draining, so the channel fills and Enqueue reports ErrQueueFull
		// instead of pending growing without bound during a DB outage.
		queue := f.queue
		if len(pending) >= cap(f.queue) {
			queue = nil
		}
		select {
		case <-ctx.Done():
			pending = f.drain(pending)
			if len(pending) > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := f.flushOnce(flushCtx, pending); err != nil {
					logFlushError(err, len(pending))
				}
				cancel()
			}
			return
		case item := <-queue:
			pending = append(pending, item)
			if len(pending) >= f.batch {
				pending = f.flush(pending)
			}
		case <-ticker.C:
			if len(pending) > 0 {
				pending = f.flush(pending)
			}
		}
	}
}

// flush attempts one batch write. On failure the batch is kept for the
// next attempt so writes are not lost on transient database errors.
func (f *Flusher) flush(pending []model.Item) []model.Item {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.flushOnce(ctx, pending); err != nil {
		f.metrics.IncFlushErrors()
		logFlushError(err, len(pending))
		return pending
	}
	return nil
}

func (f *Flusher) flushOnce(ctx context.Context, pending []model.Item) error {
	start := time.Now()
	if err := f.repo.UpsertBatch(ctx, dedupe(pending)); err != nil {
		return err
	}
	f.metrics.ObserveFlush(time.Since(start))
	return nil
}

// drain empties the queue without blocking.
func (f *Flusher) drain(pending []model.Item) []model.Item {
	for {
		select {
		case item := <-f.queue:
			pending = append(pending, item)
		default:
			return pending
		}
	}
}

// dedupe keeps only the newest write per key, preserving relative
// order of the survivors. Repeated writes to one key within a batch
// would otherwise race in the upsert.
func dedupe(items []model.Item) []model.Item {
	if len(items) < 2 {
		return items
	}
	last := make(map[string]int, len(items))
	for i := range items {
		last[items[i].Key] = i
	}
	out := items[:0]
	for i := range items {
		if last[items[i].Key] == i {
			out = append(out, items[i])
		}
	}
	return out
}

func logFlushError(err error, batch int) {
	_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "error",
		"msg":   "write_behind_flush_failed",
		"batch": batch,
		"error": err.Error(),
	})
}
