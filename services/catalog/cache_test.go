package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingSource scripts fetch outcomes and counts calls
type countingSource struct {
	mu     sync.Mutex
	calls  int32
	models []ModelDescriptor
	err    error
	delay  time.Duration
}

func (s *countingSource) Fetch(ctx context.Context) ([]ModelDescriptor, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.models, nil
}

func (s *countingSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func TestCache_SingleFetchWithinTTL(t *testing.T) {
	src := &countingSource{models: []ModelDescriptor{
		{ID: "live-model", Backend: "remote", Modality: ModalityChat},
	}}
	cache := NewCache(src, time.Minute, zap.NewNop())

	first := cache.Get(context.Background(), false)
	second := cache.Get(context.Background(), false)
	third := cache.Get(context.Background(), false)

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls), "repeated reads inside the window must not refetch")
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestCache_ForceRefetches(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src, time.Minute, zap.NewNop())

	cache.Get(context.Background(), false)
	cache.Get(context.Background(), true)

	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}

func TestCache_FailureServesPreviousSnapshot(t *testing.T) {
	src := &countingSource{models: []ModelDescriptor{
		{ID: "live-model", Backend: "remote", Modality: ModalityChat},
	}}
	cache := NewCache(src, time.Minute, zap.NewNop())

	good := cache.Get(context.Background(), false)
	require.NotEmpty(t, good)

	src.setErr(errors.New("upstream down"))
	degraded := cache.Get(context.Background(), true)

	assert.Equal(t, good, degraded, "stale snapshot beats an error")
}

func TestCache_FailureWithNoSnapshotServesCurated(t *testing.T) {
	src := &countingSource{}
	src.setErr(errors.New("upstream down"))
	cache := NewCache(src, time.Minute, zap.NewNop())

	got := cache.Get(context.Background(), false)

	require.NotEmpty(t, got, "curated table must route even with no live catalog")
	for _, m := range got {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Backend)
	}
}

func TestCache_ConcurrentReadersShareOneFetch(t *testing.T) {
	src := &countingSource{
		delay:  50 * time.Millisecond,
		models: []ModelDescriptor{{ID: "m", Backend: "remote", Modality: ModalityChat}},
	}
	cache := NewCache(src, time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := cache.Get(context.Background(), false)
			assert.NotEmpty(t, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls), "concurrent reads must collapse to one fetch")
}

func TestCache_PriceFor(t *testing.T) {
	src := &countingSource{models: []ModelDescriptor{
		{ID: "priced", Backend: "remote", Modality: ModalityChat, PriceIn: 1e-6, PriceOut: 2e-6},
	}}
	cache := NewCache(src, time.Minute, zap.NewNop())

	in, out := cache.PriceFor(context.Background(), "priced")
	assert.Equal(t, 1e-6, in)
	assert.Equal(t, 2e-6, out)

	in, out = cache.PriceFor(context.Background(), "unknown")
	assert.Zero(t, in)
	assert.Zero(t, out)
}

func TestOverlayCurated(t *testing.T) {
	t.Run("curated entries fill an empty live list", func(t *testing.T) {
		got := overlayCurated(nil)
		assert.NotEmpty(t, got)
	})

	t.Run("live zero price marks model free", func(t *testing.T) {
		live := []ModelDescriptor{{
			ID:       "some-provider/Zero-Cost-Chat",
			Backend:  "remote",
			Modality: ModalityChat,
			Free:     true,
		}}
		got := overlayCurated(live)

		var found bool
		for _, m := range got {
			if m.ID == "some-provider/Zero-Cost-Chat" {
				found = true
				assert.True(t, m.Free)
			}
		}
		assert.True(t, found)
	})
}
