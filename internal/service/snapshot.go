package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"stashd/internal/cache"
	"stashd/internal/model"
	"stashd/internal/storage"
)

const snapshotPrefix = "snapshots/"

// snapshotFile is the JSON document written to object storage.
type snapshotFile struct {
	TakenAt time.Time    `json:"taken_at"`
	Items   []model.Item `json:"items"`
}

// Snapshotter periodically dumps all live cache entries to object
// storage and can repopulate the cache from the newest dump on
// startup. Snapshot keys are time-prefixed so lexical order is
// chronological order.
type Snapshotter struct {
	cache    *cache.Cache
	store    storage.Storage
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	now func() time.Time
}

// NewSnapshotter builds a snapshotter. interval <= 0 disables the
// periodic loop; Snapshot can still be called manually.
func NewSnapshotter(c *cache.Cache, store storage.Storage, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		cache:    c,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Snapshot uploads one dump and returns its object info.
func (s *Snapshotter) Snapshot(ctx context.Context) (storage.ObjectInfo, error) {
	taken := s.now().UTC()
	doc := snapshotFile{TakenAt: taken, Items: s.cache.Items()}

	body, err := json.Marshal(doc)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("%s%s-%s.json", snapshotPrefix, taken.Format("20060102T150405Z"), uuid.NewString()[:8])
	info, err := s.store.Put(ctx, key, bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"item-count": fmt.Sprint(len(doc.Items))},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload snapshot: %w", err)
	}

	logSnapshotEvent("snapshot_written", key, len(doc.Items), nil)
	return info, nil
}

// RestoreLatest loads the newest snapshot into the cache, skipping
// entries that expired while the snapshot sat in storage. Returns the
// number of entries restored; no snapshots is not an error.
func (s *Snapshotter) RestoreLatest(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, snapshotPrefix)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	latest := objects[len(objects)-1].Key
	rc, _, err := s.store.Get(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("fetch snapshot %s: %w", latest, err)
	}
	defer rc.Close()

	var doc snapshotFile
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return 0, fmt.Errorf("decode snapshot %s: %w", latest, err)
	}

	now := s.now()
	restored := 0
	for _, item := range doc.Items {
		if item.Expired(now) {
			continue
		}
		s.cache.Put(item)
		restored++
	}

	logSnapshotEvent("snapshot_restored", latest, restored, nil)
	return restored, nil
}

// Start launches the periodic snapshot loop. No-op when the interval
// is zero.
func (s *Snapshotter) Start() {
	if s.interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := s.Snapshot(snapCtx); err != nil {
					logSnapshotEvent("snapshot_failed", "", 0, err)
				}
				cancel()
			}
		}
	}()
}

// Stop halts the periodic loop.
func (s *Snapshotter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		s.cancel = nil
	}
}

func logSnapshotEvent(event, key string, count int, err error) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "info",
		"msg":   event,
	}
	if key != "" {
		entry["object_key"] = key
		entry["items"] = count
	}
	if err != nil {
		entry["level"] = "error"
		entry["error"] = err.Error()
	}
	_ = json.NewEncoder(os.Stdout).Encode(entry)
}
