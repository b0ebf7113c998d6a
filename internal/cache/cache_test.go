package cache

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingRecorder struct {
	hits, misses, evictions atomic.Int64
}

func (r *countingRecorder) RecordCacheHit(string)      { r.hits.Add(1) }
func (r *countingRecorder) RecordCacheMiss(string)     { r.misses.Add(1) }
func (r *countingRecorder) RecordCacheEviction(string) { r.evictions.Add(1) }

func TestCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock.Now))

	c.SetWithTTL("k", "v", 100*time.Millisecond)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected fresh value, got %q ok=%v", v, ok)
	}

	clock.Advance(150 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to be expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, len=%d", c.Len())
	}
}

func TestCache_TTLBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithClock(clock.Now))

	c.SetWithTTL("k", 1, time.Second)
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry must stay alive while now-writtenAt == ttl")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	recorder := &countingRecorder{}
	c := New[string](WithMaxEntries(2), WithRecorder(recorder))

	c.Set("a", "A")
	c.Set("b", "B")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
	if recorder.evictions.Load() != 1 {
		t.Fatalf("expected 1 eviction, got %d", recorder.evictions.Load())
	}
}

func TestCache_UpdateExistingKeyNeverEvicts(t *testing.T) {
	c := New[int](WithMaxEntries(2))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected updated value 10, got %d", v)
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected b to survive update of a")
	}
}

func TestCache_SetRefreshesRecency(t *testing.T) {
	c := New[int](WithMaxEntries(2))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)
	c.Set("c", 4)

	if c.Has("b") {
		t.Fatal("expected b to be evicted after a was re-set")
	}
	if !c.Has("a") {
		t.Fatal("expected a to stay")
	}
}

func TestCache_HasDropsExpired(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithClock(clock.Now), WithDefaultTTL(time.Minute))

	c.Set("k", 1)
	if !c.Has("k") {
		t.Fatal("expected key to be present")
	}
	clock.Advance(2 * time.Minute)
	if c.Has("k") {
		t.Fatal("expected expired key to be absent")
	}
}

func TestCache_InvalidateAndPattern(t *testing.T) {
	c := New[int]()
	c.Set("product:1", 1)
	c.Set("product:2", 2)
	c.Set("products:list:all", 3)
	c.Set("other", 4)

	c.Invalidate("other")
	if c.Has("other") {
		t.Fatal("expected other to be invalidated")
	}

	removed := c.InvalidatePattern(regexp.MustCompile(`^product:`))
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if !c.Has("products:list:all") {
		t.Fatal("list key must not match product: pattern")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestWithCache_UsesProducerOnMissOnly(t *testing.T) {
	c := New[string]()
	var calls int
	producer := func(context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	for i := 0; i < 3; i++ {
		v, err := WithCache(context.Background(), c, "k", producer, time.Minute)
		require.NoError(t, err)
		require.Equal(t, "fresh", v)
	}
	require.Equal(t, 1, calls)
}

func TestWithCache_ErrorIsNotCached(t *testing.T) {
	c := New[string]()
	boom := errors.New("boom")

	_, err := WithCache(context.Background(), c, "k", func(context.Context) (string, error) {
		return "", boom
	}, time.Minute)
	require.ErrorIs(t, err, boom)
	require.False(t, c.Has("k"))
}

func TestPreload_WarmsInBackground(t *testing.T) {
	c := New[string]()

	Preload(context.Background(), c, "k", func(context.Context) (string, error) {
		return "warm", nil
	}, time.Minute)

	require.Eventually(t, func() bool { return c.Has("k") }, time.Second, 5*time.Millisecond)
}

func TestPreload_NoopWhenWarm(t *testing.T) {
	c := New[string]()
	c.Set("k", "existing")

	var calls atomic.Int32
	Preload(context.Background(), c, "k", func(context.Context) (string, error) {
		calls.Add(1)
		return "other", nil
	}, time.Minute)

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, calls.Load())
	v, _ := c.Get("k")
	require.Equal(t, "existing", v)
}

func TestPreload_SurvivesCanceledContextAndSwallowsErrors(t *testing.T) {
	c := New[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	Preload(ctx, c, "bad", func(ctx context.Context) (string, error) {
		defer close(done)
		require.NoError(t, ctx.Err())
		return "", errors.New("catalog down")
	}, time.Minute)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("preload producer was not invoked")
	}
	require.False(t, c.Has("bad"))
}
