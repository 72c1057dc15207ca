package domain

import "time"

// StatusEvent is emitted by the submission monitor.
type StatusEvent struct {
	Kind         EventKind `json:"kind"`
	SubmissionID string    `json:"submission_id"`
	From         Status    `json:"from"`
	// To is empty for EventTimedOut.
	To Status `json:"to,omitempty"`
	// ViewDetails is set on terminal transitions so callers can offer a details view.
	ViewDetails bool      `json:"view_details"`
	ObservedAt  time.Time `json:"observed_at"`
}

type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventTimedOut      EventKind = "timed_out"
)
