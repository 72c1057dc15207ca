package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork covers connection, TLS and timeout failures. Retried.
	KindNetwork Kind = iota
	// KindServer covers 5xx responses and undecodable success bodies. Retried.
	KindServer
	// KindClient covers 4xx responses other than 401. Not retried.
	KindClient
	// KindAuth is a 401. Not retried; the token provider is told once.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindServer
}

var (
	ErrNetwork      = errors.New("network error")
	ErrServer       = errors.New("server error")
	ErrClient       = errors.New("client error")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is the normalized failure surfaced by the executor.
type Error struct {
	Kind       Kind
	Operation  string
	StatusCode int
	// Message is the server-supplied error text, if any.
	Message string
	// Attempts is the number of attempts made before giving up.
	Attempts  int
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	var s string
	if e.StatusCode != 0 {
		s = fmt.Sprintf("%s: %s error (http %d): %s", e.Operation, e.Kind, e.StatusCode, msg)
	} else {
		s = fmt.Sprintf("%s: %s error: %s", e.Operation, e.Kind, msg)
	}
	if e.Attempts > 1 {
		s += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrUnauthorized) works on any
// wrapped *Error.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrClient:
		return e.Kind == KindClient
	case ErrUnauthorized:
		return e.Kind == KindAuth
	}
	return false
}

// ClassifyStatus maps a non-2xx HTTP status onto a Kind.
func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return KindAuth
	case code >= 400 && code < 500:
		return KindClient
	default:
		return KindServer
	}
}

// IsRetryable reports whether err is a retryable executor error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Retryable()
	}
	return false
}

// UserMessage renders err for humans, separating connectivity problems from bad
// input from an expired session.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Request canceled."
	}

	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Kind {
	case KindAuth:
		return "Authentication expired. Please sign in again."
	case KindClient:
		if e.Message != "" {
			return "Invalid input: " + e.Message
		}
		return fmt.Sprintf("Invalid input (http %d).", e.StatusCode)
	case KindServer:
		return "The judge is having trouble right now. Try again in a moment."
	default:
		return "Network issue, try again."
	}
}
