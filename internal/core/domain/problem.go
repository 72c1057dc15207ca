package domain

// Problem is a judge task.
type Problem struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Content     string   `json:"content,omitempty"`
	TimeLimitMS int64    `json:"time_limit_ms,omitempty"`
	MemoryMB    int64    `json:"memory_limit_mb,omitempty"`
	Solved      bool     `json:"solved,omitempty"`
}

// ProblemPage is one page of a problem listing.
type ProblemPage struct {
	Items      []*Problem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Profile is the authenticated user's summary.
type Profile struct {
	Username    string  `json:"username"`
	Rating      float64 `json:"rating,omitempty"`
	Solved      int     `json:"solved"`
	Submissions int     `json:"submissions"`
}
