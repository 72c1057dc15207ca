package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/judgewatch/internal/infra/rpc"
)

// =============================================================================
// Stubs
// =============================================================================

type stubAPI struct{ status rpc.HealthStatus }

func (s *stubAPI) Health() rpc.HealthStatus { return s.status }

type stubSize int

func (s stubSize) Len() int { return int(s) }

type stubTracker struct {
	n       int
	running bool
}

func (s *stubTracker) Len() int      { return s.n }
func (s *stubTracker) Running() bool { return s.running }

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_CheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		api    rpc.HealthStatus
		expect SystemStatus
	}{
		{"healthy", rpc.HealthStatus{Available: true, ErrorRate: 0.05}, StatusHealthy},
		{"degraded", rpc.HealthStatus{Available: true, ErrorRate: 0.3}, StatusDegraded},
		{"critical", rpc.HealthStatus{Available: false, ErrorRate: 0.8}, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Sources{
				API:     &stubAPI{status: tt.api},
				Cache:   stubSize(7),
				Tracker: &stubTracker{n: 2, running: true},
			})

			report := m.CheckHealth()
			if report.SystemStatus != tt.expect {
				t.Errorf("Expected %s, got %s", tt.expect, report.SystemStatus)
			}
			if report.CacheEntries != 7 || report.TrackedSubmissions != 2 || !report.MonitorRunning {
				t.Errorf("Unexpected component counts: %+v", report)
			}
		})
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(Sources{API: &stubAPI{status: rpc.HealthStatus{Available: false}}})
	srv := NewServer(m, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when critical, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if report.SystemStatus != StatusCritical {
		t.Errorf("Expected critical, got %s", report.SystemStatus)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected metrics endpoint, got %d", rec.Code)
	}
}
