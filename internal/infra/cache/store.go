// Package cache implements a process-local TTL cache with a stale grace window.
//
// An entry is fresh while now < ExpiresAt, stale but usable as a fallback while
// ExpiresAt <= now < StaleUntil, and dead afterwards. Get only ever returns fresh
// values; stale values are served by GetOrFetch when a refresh fails.
package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultStalePeriod = 30 * time.Minute

	// NoStale disables the grace window: entries die when they expire.
	NoStale time.Duration = -1
)

// Entry is a cached value with its freshness bounds. StaleUntil >= ExpiresAt.
type Entry struct {
	Value      any
	ExpiresAt  time.Time
	StaleUntil time.Time
}

func (e *Entry) fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

func (e *Entry) usable(now time.Time) bool {
	return now.Before(e.StaleUntil)
}

// Config holds store-wide defaults.
type Config struct {
	DefaultTTL time.Duration
	// StalePeriod of 0 means DefaultStalePeriod; NoStale (any negative value)
	// turns stale fallback off.
	StalePeriod time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// InvalidationFunc is called after a prefix delete or clear. prefix is "" for Clear.
type InvalidationFunc func(prefix string, removed int)

// Store is a string-keyed cache shared by all resource clients.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry

	defaultTTL  time.Duration
	stalePeriod time.Duration
	now         func() time.Time

	flight singleflight.Group

	listenersMu sync.RWMutex
	listeners   []InvalidationFunc
}

// New creates a store. Zero config values fall back to the package defaults.
func New(cfg Config, opts ...Option) *Store {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.StalePeriod < 0 {
		cfg.StalePeriod = 0
	} else if cfg.StalePeriod == 0 {
		cfg.StalePeriod = DefaultStalePeriod
	}

	s := &Store{
		entries:     make(map[string]*Entry),
		defaultTTL:  cfg.DefaultTTL,
		stalePeriod: cfg.StalePeriod,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key only while it is fresh.
// A dead entry found on lookup is removed.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	now := s.now()
	if !e.usable(now) {
		delete(s.entries, key)
		metrics.CacheEntries.Set(float64(len(s.entries)))
		return nil, false
	}
	if !e.fresh(now) {
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key, replacing any previous entry.
// ttl <= 0 uses the store default.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expires := now.Add(ttl)
	s.entries[key] = &Entry{
		Value:      value,
		ExpiresAt:  expires,
		StaleUntil: expires.Add(s.stalePeriod),
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}

// Fallback returns the value for key while it has not passed StaleUntil,
// whether or not it is still fresh.
func (s *Store) Fallback(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.usable(s.now()) {
		return nil, false
	}
	return e.Value, true
}

// Peek returns a copy of the raw entry regardless of freshness.
func (s *Store) Peek(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Delete removes key. It reports whether an entry was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	metrics.CacheEntries.Set(float64(len(s.entries)))
	return ok
}

// DeleteWithPrefix removes every key that starts with prefix (a literal string match)
// and notifies invalidation listeners.
func (s *Store) DeleteWithPrefix(prefix string) int {
	s.mu.Lock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
	s.mu.Unlock()

	s.notify(prefix, removed)
	return removed
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	removed := len(s.entries)
	s.entries = make(map[string]*Entry)
	metrics.CacheEntries.Set(0)
	s.mu.Unlock()

	s.notify("", removed)
}

// Sweep removes dead entries and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !e.usable(now) {
			delete(s.entries, key)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
	return removed
}

// Len returns the number of entries, including stale ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OnPrefixInvalidated registers fn to run after every DeleteWithPrefix and Clear.
// Listeners run synchronously outside the store lock and must not block.
func (s *Store) OnPrefixInvalidated(fn InvalidationFunc) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(prefix string, removed int) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(prefix, removed)
	}
}
