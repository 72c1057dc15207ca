package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *Store {
	return New(Config{DefaultTTL: 5 * time.Minute, StalePeriod: 30 * time.Minute}, WithClock(clock.Now))
}

var errFetch = errors.New("connection refused")

func failingFetch(ctx context.Context) (string, error) {
	return "", errFetch
}

func TestStore_Freshness(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("p:1", "A", 0)

	clock.Advance(5*time.Minute - time.Nanosecond)
	v, ok := s.Get("p:1")
	require.True(t, ok)
	assert.Equal(t, "A", v)

	// now == expiresAt is no longer fresh
	clock.Advance(time.Nanosecond)
	_, ok = s.Get("p:1")
	assert.False(t, ok)

	// stale entries are not removed by Get
	assert.Equal(t, 1, s.Len())
}

func TestStore_SetOverrideTTL(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("k", 1, time.Minute)
	e, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(time.Minute), e.ExpiresAt)
	assert.Equal(t, clock.Now().Add(31*time.Minute), e.StaleUntil)

	s.Set("k", 2, 0)
	e, _ = s.Peek("k")
	assert.Equal(t, 2, e.Value)
	assert.Equal(t, clock.Now().Add(5*time.Minute), e.ExpiresAt)
}

func TestStore_DeadEviction(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("a", "x", 0)
	s.Set("b", "y", 0)

	clock.Advance(35 * time.Minute)

	_, ok := s.Fallback("a")
	assert.False(t, ok)

	// lookup removes the dead entry it finds
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	// sweep removes the rest
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestStore_SweepKeepsStale(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("old", "x", time.Minute)
	s.Set("rewritten", "y", time.Minute)
	clock.Advance(10 * time.Minute)
	s.Set("rewritten", "y", time.Minute)
	s.Set("recent", "z", 0)
	clock.Advance(25 * time.Minute)

	// old is past StaleUntil; rewritten and recent are expired but still stale.
	assert.Equal(t, 1, s.Sweep())
	_, ok := s.Peek("old")
	assert.False(t, ok)
	_, ok = s.Fallback("rewritten")
	assert.True(t, ok)
	_, ok = s.Fallback("recent")
	assert.True(t, ok)
}

func TestStore_DeleteWithPrefix(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("submissions:two-sum:", 1, 0)
	s.Set("submissions::abc", 2, 0)
	s.Set("submission:5", 3, 0)
	s.Set("problems::", 4, 0)

	var fired []string
	s.OnPrefixInvalidated(func(prefix string, removed int) {
		fired = append(fired, prefix)
	})

	removed := s.DeleteWithPrefix("submissions:")
	assert.Equal(t, 2, removed)

	_, ok := s.Get("submission:5")
	assert.True(t, ok, "singular key must survive plural prefix delete")
	_, ok = s.Get("problems::")
	assert.True(t, ok)
	_, ok = s.Get("submissions:two-sum:")
	assert.False(t, ok)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, []string{"submissions:", ""}, fired)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(newFakeClock())
	s.Set("k", "v", 0)
	assert.True(t, s.Delete("k"))
	assert.False(t, s.Delete("k"))
}

func TestGetOrFetch_CachesResult(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	v, src, err := GetOrFetch(ctx, s, "k", 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, SourceNetwork, src)

	v, src, err = GetOrFetch(ctx, s, "k", 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_StaleFallback(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()

	s.Set("p:1", "A", 0)
	clock.Advance(6 * time.Minute)

	v, src, err := GetOrFetch(ctx, s, "p:1", 0, failingFetch)
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	assert.Equal(t, SourceStale, src)
	assert.True(t, src.Degraded())
}

func TestGetOrFetch_NoFallback(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()

	_, _, err := GetOrFetch(ctx, s, "missing", 0, failingFetch)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "missing", fe.Key)
	assert.ErrorIs(t, err, errFetch)

	// dead entries do not count as fallback
	s.Set("old", "A", 0)
	clock.Advance(40 * time.Minute)
	_, _, err = GetOrFetch(ctx, s, "old", 0, failingFetch)
	assert.ErrorIs(t, err, errFetch)
}

func TestGetOrFetch_RefreshReplacesStale(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()

	s.Set("k", "old", 0)
	clock.Advance(6 * time.Minute)

	v, src, err := GetOrFetch(ctx, s, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, SourceNetwork, src)

	e, _ := s.Peek("k")
	assert.Equal(t, clock.Now().Add(time.Minute), e.ExpiresAt)
}

func TestGetOrFetch_Scenario(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()

	s.Set("p:1", "A", 0)

	clock.Advance(4 * time.Minute)
	v, ok := s.Get("p:1")
	require.True(t, ok)
	assert.Equal(t, "A", v)

	clock.Advance(2 * time.Minute)
	got, src, err := GetOrFetch(ctx, s, "p:1", 0, failingFetch)
	require.NoError(t, err)
	assert.Equal(t, "A", got)
	assert.Equal(t, SourceStale, src)

	clock.Advance(34 * time.Minute)
	_, ok = s.Get("p:1")
	assert.False(t, ok)
	s.Sweep()
	assert.Equal(t, 0, s.Len())
}

func TestGetOrFetch_CollapsesConcurrentMisses(t *testing.T) {
	s := newTestStore(newFakeClock())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := GetOrFetch(ctx, s, "shared", 0, fetch)
			if err == nil {
				results[i] = v
			}
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGetOrFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	s := newTestStore(newFakeClock())

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := GetOrFetch(ctxA, s, "k", 0, fetch)
		errA <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		v   int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, _, err := GetOrFetch(context.Background(), s, "k", 0, fetch)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, 42, r.v)
	case <-time.After(time.Second):
		t.Fatal("second caller never returned")
	}
	assert.Equal(t, int32(1), calls.Load())

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetOrFetch_NoStaleWindow(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{DefaultTTL: time.Minute, StalePeriod: NoStale}, WithClock(clock.Now))

	s.Set("p:1", "A", 0)
	clock.Advance(time.Minute)

	_, ok := s.Fallback("p:1")
	assert.False(t, ok)

	_, _, err := GetOrFetch(context.Background(), s, "p:1", 0, failingFetch)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, errFetch)
}
