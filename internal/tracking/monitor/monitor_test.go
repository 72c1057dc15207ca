package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/infra/cache"
	"github.com/vietddude/judgewatch/internal/tracking/emitter"
)

// scriptedFetcher replays a status sequence per id; the last status repeats.
type scriptedFetcher struct {
	mu          sync.Mutex
	scripts     map[string][]domain.Status
	failing     map[string]bool
	fetches     map[string]int
	invalidated map[string]int
	listDrops   int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		scripts:     make(map[string][]domain.Status),
		failing:     make(map[string]bool),
		fetches:     make(map[string]int),
		invalidated: make(map[string]int),
	}
}

func (f *scriptedFetcher) Submission(ctx context.Context, id string) (*domain.Submission, cache.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.fetches[id]
	f.fetches[id]++
	if f.failing[id] {
		return nil, cache.SourceNetwork, errors.New("connection reset")
	}
	script := f.scripts[id]
	if n >= len(script) {
		n = len(script) - 1
	}
	return &domain.Submission{ID: id, Status: script[n]}, cache.SourceNetwork, nil
}

func (f *scriptedFetcher) InvalidateSubmission(id string) {
	f.mu.Lock()
	f.invalidated[id]++
	f.mu.Unlock()
}

func (f *scriptedFetcher) InvalidateSubmissionLists() int {
	f.mu.Lock()
	f.listDrops++
	f.mu.Unlock()
	return 0
}

func (f *scriptedFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetches {
		n += c
	}
	return n
}

func drain(sink *emitter.ChannelSink) []domain.StatusEvent {
	var out []domain.StatusEvent
	for {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func waitDrained(t *testing.T, m *Monitor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
}

func TestConfig_MaxAttempts(t *testing.T) {
	assert.Equal(t, 40, Config{PollInterval: 3 * time.Second, Timeout: 2 * time.Minute}.MaxAttempts())
	assert.Equal(t, 4, Config{PollInterval: 3 * time.Second, Timeout: 10 * time.Second}.MaxAttempts())
	assert.Equal(t, 1, Config{PollInterval: time.Minute, Timeout: time.Second}.MaxAttempts())

	m := New(newScriptedFetcher(), nil, Config{}, nil)
	assert.Equal(t, 40, m.MaxAttempts())
}

func TestMonitor_StopsAtFinalStatus(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusQueued, domain.StatusQueued, domain.StatusRunning, domain.StatusAccepted}
	sink := emitter.NewChannelSink("test", 16)

	m := New(f, sink, Config{PollInterval: 2 * time.Millisecond, Timeout: time.Second}, nil)
	m.Track("1", domain.StatusPending)
	waitDrained(t, m)

	events := drain(sink)
	require.Len(t, events, 3)
	assert.Equal(t, domain.StatusPending, events[0].From)
	assert.Equal(t, domain.StatusQueued, events[0].To)
	assert.Equal(t, domain.StatusRunning, events[1].To)
	assert.Equal(t, domain.StatusAccepted, events[2].To)
	assert.True(t, events[2].ViewDetails)
	assert.False(t, events[1].ViewDetails)
	for _, ev := range events {
		assert.Equal(t, domain.EventStatusChanged, ev.Kind)
	}

	f.mu.Lock()
	assert.Equal(t, 4, f.fetches["1"])
	assert.Equal(t, 4, f.invalidated["1"])
	assert.Equal(t, 3, f.listDrops)
	f.mu.Unlock()

	assert.Equal(t, 0, m.Len())
}

func TestMonitor_TimesOut(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusRunning}
	sink := emitter.NewChannelSink("test", 16)

	m := New(f, sink, Config{PollInterval: 2 * time.Millisecond, Timeout: 6 * time.Millisecond}, nil)
	require.Equal(t, 3, m.MaxAttempts())
	m.Track("1", domain.StatusRunning)
	waitDrained(t, m)

	assert.Equal(t, 3, f.total())
	events := drain(sink)
	// no status change is reported, only the end of tracking
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTimedOut, events[0].Kind)
	assert.Equal(t, domain.StatusRunning, events[0].From)
	assert.Empty(t, events[0].To)
	assert.False(t, events[0].ViewDetails)
}

func TestMonitor_IdleAfterDrain(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusAccepted}
	f.scripts["2"] = []domain.Status{domain.StatusWrong}

	m := New(f, emitter.NewChannelSink("test", 16), Config{PollInterval: 2 * time.Millisecond, Timeout: time.Second}, nil)
	m.Track("1", domain.StatusQueued)
	waitDrained(t, m)
	require.Eventually(t, func() bool { return !m.Running() }, time.Second, time.Millisecond)

	before := f.total()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, f.total())

	// track restarts the loop
	m.Track("2", domain.StatusQueued)
	waitDrained(t, m)
	assert.Greater(t, f.total(), before)
}

func TestMonitor_FetchErrorIsolated(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["good"] = []domain.Status{domain.StatusRunning, domain.StatusAccepted}
	f.failing["bad"] = true
	sink := emitter.NewChannelSink("test", 16)

	m := New(f, sink, Config{PollInterval: 2 * time.Millisecond, Timeout: 10 * time.Millisecond}, nil)
	m.Track("good", domain.StatusQueued)
	m.Track("bad", domain.StatusQueued)
	waitDrained(t, m)

	var changes, timeouts []domain.StatusEvent
	for _, ev := range drain(sink) {
		if ev.Kind == domain.EventTimedOut {
			timeouts = append(timeouts, ev)
		} else {
			changes = append(changes, ev)
		}
	}
	require.Len(t, changes, 2)
	assert.Equal(t, "good", changes[1].SubmissionID)
	assert.Equal(t, domain.StatusAccepted, changes[1].To)

	require.Len(t, timeouts, 1)
	assert.Equal(t, "bad", timeouts[0].SubmissionID)
	assert.Equal(t, domain.StatusQueued, timeouts[0].From)

	f.mu.Lock()
	assert.Equal(t, m.MaxAttempts(), f.fetches["bad"])
	f.mu.Unlock()
}

func TestMonitor_TrackResetsAttempts(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusRunning}

	m := New(f, emitter.NewChannelSink("test", 16), Config{PollInterval: time.Hour, Timeout: 2 * time.Hour}, nil)
	defer m.Stop()

	m.Track("1", domain.StatusQueued)
	m.Track("1", domain.StatusRunning)
	m.Track("final", domain.StatusAccepted)

	got := m.Tracked()
	require.Len(t, got, 1)
	assert.Equal(t, TrackedSubmission{ID: "1", LastStatus: domain.StatusRunning}, got[0])
}

func TestMonitor_StopClears(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusRunning}
	f.scripts["2"] = []domain.Status{domain.StatusRunning}

	m := New(f, emitter.NewChannelSink("test", 16), Config{PollInterval: time.Millisecond, Timeout: time.Hour}, nil)
	m.Track("1", domain.StatusQueued)
	m.Track("2", domain.StatusQueued)
	time.Sleep(5 * time.Millisecond)

	m.Stop()
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Running())
	require.NoError(t, m.Wait(context.Background()))

	before := f.total()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, f.total())
}

func TestMonitor_Untrack(t *testing.T) {
	m := New(newScriptedFetcher(), nil, Config{PollInterval: time.Hour}, nil)
	defer m.Stop()

	m.Track("1", domain.StatusQueued)
	assert.Equal(t, 1, m.Len())
	m.Untrack("1")
	assert.Equal(t, 0, m.Len())
	require.NoError(t, m.Wait(context.Background()))
}

func TestMonitor_StopWaitsForEarlierLoop(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["1"] = []domain.Status{domain.StatusAccepted}
	f.scripts["2"] = []domain.Status{domain.StatusRunning}

	entered := make(chan struct{})
	release := make(chan struct{})
	sink := emitter.SinkFunc(func(ctx context.Context, ev domain.StatusEvent) error {
		if ev.SubmissionID == "1" {
			close(entered)
			<-release
		}
		return nil
	})

	m := New(f, sink, Config{PollInterval: 2 * time.Millisecond, Timeout: time.Second}, nil)
	m.Track("1", domain.StatusQueued)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("final notification never sent")
	}

	// the first loop is still notifying; tracking again starts a second loop
	m.Track("2", domain.StatusQueued)
	require.True(t, m.Running())

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a loop was still notifying")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Running())
}
