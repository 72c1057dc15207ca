// Package auth holds token providers for the judge executor.
package auth

import (
	"context"
	"sync"
)

// StaticProvider serves a token taken from configuration. Once the server rejects
// it, the token is dropped and later calls go out unauthenticated.
type StaticProvider struct {
	mu      sync.RWMutex
	token   string
	onClear func(ctx context.Context)
}

// NewStatic creates a provider for token. onClear, if set, runs after a 401 clears it.
func NewStatic(token string, onClear func(ctx context.Context)) *StaticProvider {
	return &StaticProvider{token: token, onClear: onClear}
}

func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token, nil
}

// OnUnauthorized forgets the token.
func (p *StaticProvider) OnUnauthorized(ctx context.Context) {
	p.mu.Lock()
	hadToken := p.token != ""
	p.token = ""
	p.mu.Unlock()

	if hadToken && p.onClear != nil {
		p.onClear(ctx)
	}
}

// SetToken replaces the token, e.g. after the user signs in again.
func (p *StaticProvider) SetToken(token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

// HasToken reports whether a token is currently held.
func (p *StaticProvider) HasToken() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token != ""
}

// Anonymous never sends credentials.
type Anonymous struct{}

func (Anonymous) Token(ctx context.Context) (string, error) { return "", nil }

func (Anonymous) OnUnauthorized(ctx context.Context) {}
