package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"stashd/internal/model"
	"stashd/internal/storage"
	storeMocks "stashd/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSnapshotter_Snapshot(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	c.Put(model.Item{Key: "a", Value: []byte("1"), UpdatedAt: time.Now().UTC()})
	c.Put(model.Item{Key: "b", Value: []byte("2"), UpdatedAt: time.Now().UTC()})

	mStore := new(storeMocks.MockStorage)
	var captured []byte
	mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "snapshots/") && strings.HasSuffix(key, ".json")
	}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.ContentType == "application/json" && opt.Size > 0
	})).Run(func(args mock.Arguments) {
		captured, _ = io.ReadAll(args.Get(2).(io.Reader))
	}).Return(storage.ObjectInfo{Key: "snapshots/x.json"}, nil).Once()

	s := NewSnapshotter(c, mStore, 0)
	info, err := s.Snapshot(ctx)

	require.NoError(t, err)
	assert.Equal(t, "snapshots/x.json", info.Key)

	var doc snapshotFile
	require.NoError(t, json.Unmarshal(captured, &doc))
	assert.Len(t, doc.Items, 2)
	mStore.AssertExpectations(t)
}

func TestSnapshotter_RestoreLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("restores newest snapshot, skipping expired entries", func(t *testing.T) {
		c := newTestCache(t)
		doc := snapshotFile{
			TakenAt: time.Now().UTC(),
			Items: []model.Item{
				{Key: "live", Value: []byte("1")},
				{Key: "stale", Value: []byte("2"), ExpiresAt: time.Now().Add(-time.Hour)},
			},
		}
		body, err := json.Marshal(doc)
		require.NoError(t, err)

		mStore := new(storeMocks.MockStorage)
		mStore.On("List", ctx, "snapshots/").Return([]storage.ObjectInfo{
			{Key: "snapshots/20240101T000000Z-old.json"},
			{Key: "snapshots/20240102T000000Z-new.json"},
		}, nil)
		mStore.On("Get", ctx, "snapshots/20240102T000000Z-new.json").
			Return(io.NopCloser(bytes.NewReader(body)), storage.ObjectInfo{}, nil)

		s := NewSnapshotter(c, mStore, 0)
		restored, err := s.RestoreLatest(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, restored)
		_, ok := c.Get("live")
		assert.True(t, ok)
		_, ok = c.Get("stale")
		assert.False(t, ok)
		mStore.AssertExpectations(t)
	})

	t.Run("no snapshots is not an error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("List", ctx, "snapshots/").Return([]storage.ObjectInfo{}, nil)

		s := NewSnapshotter(newTestCache(t), mStore, 0)
		restored, err := s.RestoreLatest(ctx)

		assert.NoError(t, err)
		assert.Zero(t, restored)
	})

	t.Run("corrupt snapshot surfaces an error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("List", ctx, "snapshots/").Return([]storage.ObjectInfo{{Key: "snapshots/bad.json"}}, nil)
		mStore.On("Get", ctx, "snapshots/bad.json").
			Return(io.NopCloser(strings.NewReader("{not json")), storage.ObjectInfo{}, nil)

		s := NewSnapshotter(newTestCache(t), mStore, 0)
		_, err := s.RestoreLatest(ctx)
		assert.Error(t, err)
	})
}

func TestSnapshotter_PeriodicLoop(t *testing.T) {
	c := newTestCache(t)
	c.Put(model.Item{Key: "a", Value: []byte("1")})

	mStore := new(storeMocks.MockStorage)
	done := make(chan struct{})
	var once bool
	mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			if !once {
				once = true
				close(done)
			}
		}).Return(storage.ObjectInfo{}, nil)

	s := NewSnapshotter(c, mStore, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic snapshot never ran")
	}
}

func TestSnapshotter_StartDisabledInterval(t *testing.T) {
	s := NewSnapshotter(newTestCache(t), new(storeMocks.MockStorage), 0)
	s.Start() // no-op
	s.Stop()
}
