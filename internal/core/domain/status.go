package domain

import "strings"

// Status is the judge verdict of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusJudging   Status = "judging"
	StatusAccepted  Status = "accepted"
	StatusWrong     Status = "wrong_answer"
	StatusCompile   Status = "compile_error"
	StatusRuntime   Status = "runtime_error"
	StatusTimeLimit Status = "time_limit_exceeded"
	StatusMemLimit  Status = "memory_limit_exceeded"
	StatusOutLimit  Status = "output_limit_exceeded"
	StatusDiskLimit Status = "disk_limit_exceeded"
	StatusSystem    Status = "system_error"
	StatusCanceled  Status = "canceled"
	StatusJudged    Status = "judged"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// IsTerminal reports whether no further transition is possible from s.
// Adding a status means adding it here.
func IsTerminal(s Status) bool {
	switch s {
	case StatusAccepted, StatusWrong, StatusCompile, StatusRuntime,
		StatusTimeLimit, StatusMemLimit, StatusOutLimit, StatusDiskLimit,
		StatusSystem, StatusCanceled, StatusJudged, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal is shorthand for IsTerminal(s).
func (s Status) IsTerminal() bool {
	return IsTerminal(s)
}

var statusAliases = map[string]Status{
	"ac":                    StatusAccepted,
	"ok":                    StatusAccepted,
	"wa":                    StatusWrong,
	"ce":                    StatusCompile,
	"re":                    StatusRuntime,
	"rte":                   StatusRuntime,
	"tle":                   StatusTimeLimit,
	"time_limit":            StatusTimeLimit,
	"mle":                   StatusMemLimit,
	"memory_limit":          StatusMemLimit,
	"ole":                   StatusOutLimit,
	"output_limit":          StatusOutLimit,
	"disk_limit":            StatusDiskLimit,
	"se":                    StatusSystem,
	"cancelled":             StatusCanceled,
	"aborted":               StatusCanceled,
	"in_queue":              StatusQueued,
	"waiting":               StatusQueued,
	"testing":               StatusRunning,
	"compiling":             StatusRunning,
	"in_progress":           StatusRunning,
	"wrong":                 StatusWrong,
	"compilation_error":     StatusCompile,
	"time_limit_exceed":     StatusTimeLimit,
	"memory_limit_exceed":   StatusMemLimit,
	"output_limit_exceed":   StatusOutLimit,
	"disk_limit_exceed":     StatusDiskLimit,
	"internal_error":        StatusSystem,
	"judgement_failed":      StatusFailed,
	"security_violation":    StatusRuntime,
	"idleness_limit":        StatusTimeLimit,
	"idleness_limit_exceed": StatusTimeLimit,
}

var knownStatuses = map[Status]struct{}{
	StatusPending: {}, StatusQueued: {}, StatusRunning: {}, StatusJudging: {},
	StatusAccepted: {}, StatusWrong: {}, StatusCompile: {}, StatusRuntime: {},
	StatusTimeLimit: {}, StatusMemLimit: {}, StatusOutLimit: {}, StatusDiskLimit: {},
	StatusSystem: {}, StatusCanceled: {}, StatusJudged: {}, StatusFailed: {},
}

// ParseStatus maps a server status string onto the closed Status set.
// Anything unrecognised becomes StatusUnknown, which is non-terminal.
func ParseStatus(raw string) Status {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "" {
		return StatusUnknown
	}
	if _, ok := knownStatuses[Status(norm)]; ok {
		return Status(norm)
	}
	if s, ok := statusAliases[norm]; ok {
		return s
	}
	return StatusUnknown
}

// UnmarshalText lets JSON payloads decode straight into Status.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// Label returns a human-readable name for display.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusQueued:
		return "Queued"
	case StatusRunning:
		return "Running"
	case StatusJudging:
		return "Judging"
	case StatusAccepted:
		return "Accepted"
	case StatusWrong:
		return "Wrong Answer"
	case StatusCompile:
		return "Compile Error"
	case StatusRuntime:
		return "Runtime Error"
	case StatusTimeLimit:
		return "Time Limit Exceeded"
	case StatusMemLimit:
		return "Memory Limit Exceeded"
	case StatusOutLimit:
		return "Output Limit Exceeded"
	case StatusDiskLimit:
		return "Disk Limit Exceeded"
	case StatusSystem:
		return "System Error"
	case StatusCanceled:
		return "Canceled"
	case StatusJudged:
		return "Judged"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
