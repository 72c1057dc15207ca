// Package monitor polls submissions under judgement until each reaches a final
// status or runs out of attempts.
package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/infra/cache"
	"github.com/vietddude/judgewatch/internal/tracking/emitter"
	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultTimeout      = 2 * time.Minute
	DefaultConcurrency  = 4
)

// Fetcher re-reads submissions. *judge.Client satisfies it.
type Fetcher interface {
	Submission(ctx context.Context, id string) (*domain.Submission, cache.Source, error)
	InvalidateSubmission(id string)
	InvalidateSubmissionLists() int
}

// Config controls polling cadence.
type Config struct {
	PollInterval time.Duration
	// Timeout bounds how long one submission is watched.
	Timeout     time.Duration
	Concurrency int
}

// MaxAttempts is the number of ticks a submission is polled before giving up.
func (c Config) MaxAttempts() int {
	if c.PollInterval <= 0 {
		return 1
	}
	n := int((c.Timeout + c.PollInterval - 1) / c.PollInterval)
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// TrackedSubmission is the monitor's record for one submission.
type TrackedSubmission struct {
	ID         string
	LastStatus domain.Status
	Attempts   int
}

// Monitor owns the tracked set. The polling loop runs only while the set is not
// empty; ticks never overlap.
type Monitor struct {
	fetcher     Fetcher
	sink        emitter.Sink
	cfg         Config
	maxAttempts int
	log         *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	tracked map[string]*TrackedSubmission
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	drained chan struct{}

	// loops counts polling goroutines, including one still delivering its
	// final notifications after a newer loop has started.
	loops sync.WaitGroup
}

func New(fetcher Fetcher, sink emitter.Sink, cfg Config, log *slog.Logger) *Monitor {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = emitter.NewLogSink(log)
	}

	m := &Monitor{
		fetcher:     fetcher,
		sink:        sink,
		cfg:         cfg,
		maxAttempts: cfg.MaxAttempts(),
		log:         log,
		now:         time.Now,
		tracked:     make(map[string]*TrackedSubmission),
		drained:     make(chan struct{}),
	}
	close(m.drained)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// MaxAttempts returns the attempt ceiling derived from the config.
func (m *Monitor) MaxAttempts() int {
	return m.maxAttempts
}

// Track starts watching id, replacing any existing record and resetting its
// attempts. A final initial status is not tracked.
func (m *Monitor) Track(id string, initial domain.Status) {
	if initial.IsTerminal() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tracked) == 0 {
		m.drained = make(chan struct{})
	}
	m.tracked[id] = &TrackedSubmission{ID: id, LastStatus: initial}
	metrics.MonitorTracked.Set(float64(len(m.tracked)))

	if !m.running && m.ctx.Err() == nil {
		m.running = true
		m.loops.Add(1)
		go m.run(m.ctx)
		m.log.Debug("Submission monitor started")
	}
}

// Untrack stops watching id.
func (m *Monitor) Untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tracked, id)
	m.afterRemoveLocked()
}

// Tracked returns a snapshot of the tracked set ordered by id.
func (m *Monitor) Tracked() []TrackedSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TrackedSubmission, 0, len(m.tracked))
	for _, rec := range m.tracked {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Wait blocks until the tracked set is empty or ctx ends.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	drained := m.drained
	m.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels polling, waits for every loop goroutine to finish its tick and
// forgets every submission. The monitor can be used again afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	// Track starts no loop once ctx is cancelled
	m.loops.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = make(map[string]*TrackedSubmission)
	m.running = false
	m.afterRemoveLocked()
	m.ctx, m.cancel = context.WithCancel(context.Background())
}

func (m *Monitor) run(ctx context.Context) {
	defer m.loops.Done()

	timer := time.NewTimer(m.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !m.tick(ctx) {
			m.log.Debug("Submission monitor idle")
			return
		}
		timer.Reset(m.cfg.PollInterval)
	}
}

type observation struct {
	id  string
	sub *domain.Submission
	err error
}

// tick polls every tracked id once. It reports whether the loop should continue.
func (m *Monitor) tick(ctx context.Context) bool {
	m.mu.Lock()
	ids := make([]string, 0, len(m.tracked))
	for id := range m.tracked {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		m.running = false
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	results := make([]observation, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			m.fetcher.InvalidateSubmission(id)
			sub, _, err := m.fetcher.Submission(gctx, id)
			results[i] = observation{id: id, sub: sub, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return false
	}

	events, changed, drained := m.apply(results)

	if changed {
		m.fetcher.InvalidateSubmissionLists()
	}
	for _, ev := range events {
		if err := m.sink.Notify(ctx, ev); err != nil {
			m.log.Debug("Status notification not delivered", "id", ev.SubmissionID, "error", err)
		}
	}

	if drained == nil {
		return true
	}
	// waiters are released only after the last notifications went out
	m.mu.Lock()
	closeDrained(drained)
	m.mu.Unlock()
	return false
}

// apply folds one tick's observations into the tracked set. When the set ends
// up empty it returns the drained channel for the caller to close.
func (m *Monitor) apply(results []observation) (events []domain.StatusEvent, changed bool, drained chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, r := range results {
		rec, ok := m.tracked[r.id]
		if !ok {
			continue
		}
		rec.Attempts++

		switch {
		case r.err != nil:
			metrics.MonitorFetchErrors.Inc()
			m.log.Warn("Failed to poll submission",
				"id", r.id,
				"attempt", rec.Attempts,
				"error", r.err,
			)
		case r.sub != nil && r.sub.Status != "" && r.sub.Status != rec.LastStatus:
			from := rec.LastStatus
			rec.LastStatus = r.sub.Status
			changed = true
			metrics.MonitorTransitions.WithLabelValues(string(rec.LastStatus)).Inc()
			events = append(events, domain.StatusEvent{
				Kind:         domain.EventStatusChanged,
				SubmissionID: r.id,
				From:         from,
				To:           rec.LastStatus,
				ViewDetails:  rec.LastStatus.IsTerminal(),
				ObservedAt:   now,
			})
		}

		if rec.LastStatus.IsTerminal() {
			delete(m.tracked, r.id)
			continue
		}
		if rec.Attempts >= m.maxAttempts {
			delete(m.tracked, r.id)
			metrics.MonitorTimeouts.Inc()
			// not a transition: To stays empty
			events = append(events, domain.StatusEvent{
				Kind:         domain.EventTimedOut,
				SubmissionID: r.id,
				From:         rec.LastStatus,
				ObservedAt:   now,
			})
		}
	}

	metrics.MonitorTracked.Set(float64(len(m.tracked)))
	if len(m.tracked) > 0 {
		return events, changed, nil
	}
	m.running = false
	return events, changed, m.drained
}

func (m *Monitor) afterRemoveLocked() {
	metrics.MonitorTracked.Set(float64(len(m.tracked)))
	if len(m.tracked) == 0 {
		closeDrained(m.drained)
	}
}

// closeDrained must be called with m.mu held.
func closeDrained(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
