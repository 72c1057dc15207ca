package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

// Source tells a caller where a GetOrFetch value came from.
type Source int

const (
	// SourceCache is a fresh cached value.
	SourceCache Source = iota
	// SourceNetwork is a value fetched by this call (or a concurrent one for the same key).
	SourceNetwork
	// SourceStale is an expired value served because the refresh failed.
	SourceStale
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	case SourceStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Degraded reports whether the value is a stale fallback.
func (s Source) Degraded() bool {
	return s == SourceStale
}

// FetchError is returned by GetOrFetch when the fetch failed and no fallback existed.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchFunc loads the value for a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the fresh cached value for key, or calls fetch and caches the
// result for ttl. If fetch fails and the previous entry is still inside its stale
// window, that entry is returned with SourceStale. Concurrent misses on the same key
// share a single fetch, which runs detached from the cancellation of whichever
// caller started it. A caller whose ctx ends stops waiting and gets ctx.Err().
func GetOrFetch[T any](
	ctx context.Context,
	s *Store,
	key string,
	ttl time.Duration,
	fetch FetchFunc[T],
) (T, Source, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return typed, SourceCache, nil
		}
	}

	// the shared fetch outlives any single caller; each caller still leaves on
	// its own ctx
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		val, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		s.Set(key, val, ttl)
		return val, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, SourceNetwork, ctx.Err()
	}

	v, err := res.Val, res.Err
	if err == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		typed, _ := v.(T)
		return typed, SourceNetwork, nil
	}

	if old, ok := s.Fallback(key); ok {
		if typed, ok := old.(T); ok {
			metrics.CacheLookups.WithLabelValues("stale").Inc()
			return typed, SourceStale, nil
		}
	}

	metrics.CacheLookups.WithLabelValues("error").Inc()
	var zero T
	return zero, SourceNetwork, &FetchError{Key: key, Err: err}
}
