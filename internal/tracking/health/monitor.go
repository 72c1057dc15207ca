package health

import (
	"sync"
	"time"

	"github.com/vietddude/judgewatch/internal/infra/rpc"
)

// APIHealth reports executor health. *rpc.Executor satisfies it.
type APIHealth interface {
	Health() rpc.HealthStatus
}

// Sizer reports a collection size, such as the cache or the tracked set.
type Sizer interface {
	Len() int
}

// Sources wires the components the monitor inspects. Nil fields are skipped.
type Sources struct {
	API     APIHealth
	Cache   Sizer
	Tracker interface {
		Sizer
		Running() bool
	}
	Authenticated func() bool
}

// degradedErrorRate marks the API degraded before it is declared unavailable.
const degradedErrorRate = 0.2

// Monitor aggregates health status from the running components.
type Monitor struct {
	src        Sources
	minPeriod  time.Duration
	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(src Sources) *Monitor {
	return &Monitor{src: src, minPeriod: time.Second}
}

// CheckHealth builds a report, reusing the previous one if it is under a second old.
func (m *Monitor) CheckHealth() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.minPeriod {
		return m.lastReport
	}

	report := Report{SystemStatus: StatusHealthy}
	if m.src.API != nil {
		report.API = m.src.API.Health()
		switch {
		case !report.API.Available:
			report.SystemStatus = StatusCritical
		case report.API.ErrorRate > degradedErrorRate:
			report.SystemStatus = StatusDegraded
		}
	}
	if m.src.Cache != nil {
		report.CacheEntries = m.src.Cache.Len()
	}
	if m.src.Tracker != nil {
		report.TrackedSubmissions = m.src.Tracker.Len()
		report.MonitorRunning = m.src.Tracker.Running()
	}
	if m.src.Authenticated != nil {
		report.Authenticated = m.src.Authenticated()
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
