package rpc

import (
	"sync"
	"time"
)

// HealthStatus summarizes how the judge API has been answering.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Requests      int           `json:"requests"`
	Failures      int           `json:"failures"`
	ErrorRate     float64       `json:"error_rate"`
	Latency       time.Duration `json:"latency"`
	LastSuccessAt time.Time     `json:"last_success_at,omitempty"`
	LastFailureAt time.Time     `json:"last_failure_at,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
}

// healthTracker records per-attempt outcomes. Client errors count as successes
// since the server answered.
type healthTracker struct {
	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
}

func newHealthTracker() *healthTracker {
	return &healthTracker{health: HealthStatus{Available: true}}
}

func (h *healthTracker) recordSuccess(latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.successCount++
	h.health.Requests++
	h.totalLatency += latency
	h.health.LastSuccessAt = time.Now()
	h.health.Available = true

	h.health.ErrorRate = float64(h.health.Failures) / float64(h.health.Requests)
	h.health.Latency = h.totalLatency / time.Duration(h.successCount)
}

func (h *healthTracker) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.health.Failures++
	h.health.Requests++
	h.health.LastFailureAt = time.Now()
	if err != nil {
		h.health.LastError = err.Error()
	}

	h.health.ErrorRate = float64(h.health.Failures) / float64(h.health.Requests)
	if h.health.ErrorRate > 0.5 {
		h.health.Available = false
	}
}

func (h *healthTracker) snapshot() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}
