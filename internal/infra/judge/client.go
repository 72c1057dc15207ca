// Package judge exposes judge resources through the shared cache. Reads go
// through cache.GetOrFetch and may come back stale when the API is unreachable;
// mutations always hit the network and invalidate what they affect.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/infra/cache"
	"github.com/vietddude/judgewatch/internal/infra/rpc"
)

// Doer performs a judge API request. *rpc.Executor satisfies it.
type Doer interface {
	Do(ctx context.Context, req rpc.Request, out any) error
}

// TTLPolicy sets how long each resource stays fresh.
type TTLPolicy struct {
	Problems    time.Duration
	Problem     time.Duration
	Submissions time.Duration
	Submission  time.Duration
	Profile     time.Duration
}

// DefaultTTLPolicy keeps submission data short-lived and problem data longer.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Problems:    15 * time.Minute,
		Problem:     30 * time.Minute,
		Submissions: 2 * time.Minute,
		Submission:  2 * time.Minute,
		Profile:     15 * time.Minute,
	}
}

func (p TTLPolicy) withDefaults() TTLPolicy {
	def := DefaultTTLPolicy()
	if p.Problems <= 0 {
		p.Problems = def.Problems
	}
	if p.Problem <= 0 {
		p.Problem = def.Problem
	}
	if p.Submissions <= 0 {
		p.Submissions = def.Submissions
	}
	if p.Submission <= 0 {
		p.Submission = def.Submission
	}
	if p.Profile <= 0 {
		p.Profile = def.Profile
	}
	return p
}

// ProblemQuery selects a page of problems.
type ProblemQuery struct {
	Cursor string
	Filter string
}

// SubmissionQuery selects a page of submissions, optionally for one problem.
type SubmissionQuery struct {
	ProblemSlug string
	Cursor      string
}

// Client is the cache-aware judge API client.
type Client struct {
	api   Doer
	store *cache.Store
	ttl   TTLPolicy
	log   *slog.Logger
}

// NewClient creates a client that reads through store.
func NewClient(api Doer, store *cache.Store, ttl TTLPolicy, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{api: api, store: store, ttl: ttl.withDefaults(), log: log}
}

// Store returns the backing cache.
func (c *Client) Store() *cache.Store {
	return c.store
}

// ListProblems returns one page of the problem list.
func (c *Client) ListProblems(ctx context.Context, q ProblemQuery) (*domain.ProblemPage, cache.Source, error) {
	return read(ctx, c, ProblemsKey(q), c.ttl.Problems, func(ctx context.Context) (*domain.ProblemPage, error) {
		query := url.Values{}
		if q.Cursor != "" {
			query.Set("cursor", q.Cursor)
		}
		if q.Filter != "" {
			query.Set("filter", q.Filter)
		}
		var page domain.ProblemPage
		if err := c.api.Do(ctx, rpc.Get("list_problems", "problems", query), &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// Problem returns a problem with its statement.
func (c *Client) Problem(ctx context.Context, slug string) (*domain.Problem, cache.Source, error) {
	return read(ctx, c, ProblemKey(slug), c.ttl.Problem, func(ctx context.Context) (*domain.Problem, error) {
		var p domain.Problem
		if err := c.api.Do(ctx, rpc.Get("get_problem", "problems/"+url.PathEscape(slug), nil), &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// ListSubmissions returns one page of the caller's submissions.
func (c *Client) ListSubmissions(ctx context.Context, q SubmissionQuery) (*domain.SubmissionPage, cache.Source, error) {
	return read(ctx, c, SubmissionsKey(q), c.ttl.Submissions, func(ctx context.Context) (*domain.SubmissionPage, error) {
		query := url.Values{}
		if q.ProblemSlug != "" {
			query.Set("problem", q.ProblemSlug)
		}
		if q.Cursor != "" {
			query.Set("cursor", q.Cursor)
		}
		var page domain.SubmissionPage
		if err := c.api.Do(ctx, rpc.Get("list_submissions", "submissions", query), &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// Submission returns a single submission with its current status.
func (c *Client) Submission(ctx context.Context, id string) (*domain.Submission, cache.Source, error) {
	return read(ctx, c, SubmissionKey(id), c.ttl.Submission, func(ctx context.Context) (*domain.Submission, error) {
		var s domain.Submission
		if err := c.api.Do(ctx, rpc.Get("get_submission", "submissions/"+url.PathEscape(id), nil), &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*domain.Profile, cache.Source, error) {
	return read(ctx, c, ProfileKey, c.ttl.Profile, func(ctx context.Context) (*domain.Profile, error) {
		var p domain.Profile
		if err := c.api.Do(ctx, rpc.Get("get_profile", "me", nil), &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// Submit creates a submission and invalidates every view it changes.
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Submission, error) {
	var s domain.Submission
	if err := c.api.Do(ctx, rpc.Post("submit", "submissions", req), &s); err != nil {
		return nil, err
	}
	if s.Status == "" {
		s.Status = domain.StatusPending
	}
	if s.ProblemSlug == "" {
		s.ProblemSlug = req.ProblemSlug
	}

	c.InvalidateSubmissionLists()
	c.store.Delete(ProblemKey(req.ProblemSlug))
	c.store.Delete(ProfileKey)

	c.log.Info("Submission created", "id", s.ID, "problem", s.ProblemSlug, "status", s.Status)
	return &s, nil
}

// Abort cancels a running submission.
func (c *Client) Abort(ctx context.Context, id string) error {
	path := "submissions/" + url.PathEscape(id) + "/abort"
	if err := c.api.Do(ctx, rpc.Post("abort_submission", path, struct{}{}), nil); err != nil {
		return err
	}

	c.InvalidateSubmission(id)
	c.InvalidateSubmissionLists()

	c.log.Info("Submission aborted", "id", id)
	return nil
}

// InvalidateSubmission drops the cached detail for id.
func (c *Client) InvalidateSubmission(id string) {
	c.store.Delete(SubmissionKey(id))
}

// InvalidateSubmissionLists drops every cached submission page.
func (c *Client) InvalidateSubmissionLists() int {
	return c.store.DeleteWithPrefix(SubmissionsPrefix)
}

// Refresh drops everything so the next reads go to the network.
func (c *Client) Refresh() {
	c.store.Clear()
	c.log.Debug("Cache cleared")
}

func read[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch cache.FetchFunc[T]) (T, cache.Source, error) {
	v, src, err := cache.GetOrFetch(ctx, c.store, key, ttl, fetch)
	if err != nil {
		var zero T
		return zero, src, fmt.Errorf("judge: %w", err)
	}
	if src.Degraded() {
		c.log.Warn("Serving cached data, judge unreachable", "key", key)
	}
	return v, src, nil
}
