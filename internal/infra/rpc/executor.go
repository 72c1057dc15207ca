// Package rpc executes judge API calls: bearer auth injection, classification of
// failures into a small error taxonomy, and bounded linear retry of transient ones.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "judgewatch/1.0"

	maxResponseBody = 10 << 20
)

// TokenProvider supplies bearer tokens and is told when the server rejects one.
type TokenProvider interface {
	// Token returns the current token, or "" when there is none.
	Token(ctx context.Context) (string, error)
	OnUnauthorized(ctx context.Context)
}

// Config configures an Executor.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Retry     RetryPolicy
	// HTTPClient overrides the default pooled client.
	HTTPClient *http.Client
}

// Executor performs judge API requests. It is safe for concurrent use.
type Executor struct {
	baseURL   *url.URL
	userAgent string
	policy    RetryPolicy
	client    *http.Client
	tokens    TokenProvider
	health    *healthTracker
	log       *slog.Logger
}

// NewExecutor creates an executor. A nil tokens provider sends no credentials.
func NewExecutor(cfg Config, tokens TokenProvider, log *slog.Logger) (*Executor, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rpc: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("rpc: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rpc: base url %q must be absolute", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if log == nil {
		log = slog.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Executor{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		policy:    cfg.Retry.normalized(),
		client:    client,
		tokens:    tokens,
		health:    newHealthTracker(),
		log:       log,
	}, nil
}

// Health returns the executor's running health summary.
func (e *Executor) Health() HealthStatus {
	return e.health.snapshot()
}

// Do performs req and decodes a successful JSON response into out (which may be
// nil). Network and server failures are retried per the policy; any other failure
// returns at once. The returned error is always an *Error.
func (e *Executor) Do(ctx context.Context, req Request, out any) error {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return &Error{Kind: KindClient, Operation: req.Operation, Message: "encode request body", Err: err}
		}
		body = b
	}

	attempts := 0
	err := retry.Do(ctx, e.policy.backoff(), func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			metrics.HTTPRetriesTotal.WithLabelValues(req.Operation).Inc()
		}

		err := e.attempt(ctx, req, body, out)
		if err == nil {
			return nil
		}

		var rerr *Error
		if errors.As(err, &rerr) && rerr.Kind.Retryable() && ctx.Err() == nil {
			e.log.Debug("Judge API attempt failed",
				"operation", req.Operation,
				"attempt", attempts,
				"max_attempts", e.policy.MaxAttempts,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		metrics.HTTPRequestsTotal.WithLabelValues(req.Operation, "success").Inc()
		return nil
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		// context ended while waiting between attempts
		rerr = &Error{Kind: KindNetwork, Operation: req.Operation, Err: err}
	}
	rerr.Attempts = attempts

	if rerr.Kind == KindAuth && rerr.StatusCode == http.StatusUnauthorized && e.tokens != nil {
		e.tokens.OnUnauthorized(ctx)
	}

	metrics.HTTPRequestsTotal.WithLabelValues(req.Operation, rerr.Kind.String()).Inc()
	e.log.Debug("Judge API call failed",
		"operation", req.Operation,
		"kind", rerr.Kind.String(),
		"status", rerr.StatusCode,
		"attempts", attempts,
		"error", rerr.Err,
	)
	return rerr
}

func (e *Executor) attempt(ctx context.Context, req Request, body []byte, out any) error {
	requestID := uuid.NewString()
	fail := func(kind Kind, status int, msg string, err error) *Error {
		metrics.HTTPErrorsTotal.WithLabelValues(req.Operation, kind.String()).Inc()
		return &Error{
			Kind:       kind,
			Operation:  req.Operation,
			StatusCode: status,
			Message:    msg,
			RequestID:  requestID,
			Err:        err,
		}
	}

	httpReq, err := e.newRequest(ctx, req, body)
	if err != nil {
		return fail(KindClient, 0, "build request", err)
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	if e.tokens != nil {
		token, err := e.tokens.Token(ctx)
		if err != nil {
			return fail(KindAuth, 0, "token unavailable", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	latency := time.Since(start)
	metrics.HTTPLatency.WithLabelValues(req.Operation).Observe(latency.Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		e.health.recordFailure(err)
		return fail(KindNetwork, 0, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		e.health.recordFailure(err)
		return fail(KindNetwork, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := ClassifyStatus(resp.StatusCode)
		statusErr := fmt.Errorf("http %d", resp.StatusCode)
		if kind.Retryable() {
			e.health.recordFailure(statusErr)
		} else {
			e.health.recordSuccess(latency)
		}
		return fail(kind, resp.StatusCode, serverMessage(payload), statusErr)
	}

	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			e.health.recordFailure(err)
			return fail(KindServer, resp.StatusCode, "undecodable response", err)
		}
	}

	e.health.recordSuccess(latency)
	return nil
}

func (e *Executor) newRequest(ctx context.Context, req Request, body []byte) (*http.Request, error) {
	u := e.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), u.String(), reader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", e.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// serverMessage lifts {"error": "..."} or {"message": "..."} out of an error body.
func serverMessage(payload []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		case body.Detail != "":
			return body.Detail
		}
	}

	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
