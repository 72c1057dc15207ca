// Package health provides system health monitoring and status reporting.
package health

import "github.com/vietddude/judgewatch/internal/infra/rpc"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full health report.
type Report struct {
	SystemStatus       SystemStatus     `json:"system_status"`
	API                rpc.HealthStatus `json:"api"`
	CacheEntries       int              `json:"cache_entries"`
	TrackedSubmissions int              `json:"tracked_submissions"`
	MonitorRunning     bool             `json:"monitor_running"`
	Authenticated      bool             `json:"authenticated"`
}
