package domain

import "time"

// Submission is a piece of code sent to the judge.
type Submission struct {
	ID          string    `json:"id"`
	ProblemSlug string    `json:"problem"`
	Language    string    `json:"language"`
	Status      Status    `json:"status"`
	Score       float64   `json:"score,omitempty"`
	RuntimeMS   int64     `json:"runtime_ms,omitempty"`
	MemoryKB    int64     `json:"memory_kb,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmissionPage is one page of a submission listing.
type SubmissionPage struct {
	Items      []*Submission `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// SubmitRequest is the payload for creating a submission.
type SubmitRequest struct {
	ProblemSlug string `json:"problem"`
	Language    string `json:"language"`
	Code        string `json:"code"`
}
