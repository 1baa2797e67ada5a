// Package ratelimit enforces the rate-limit hints attached to policy
// decisions. The decision core only picks the limit; this package
// counts requests against it, in memory or in Redis for multi-instance
// deployments.
package ratelimit

import (
	"context"
	"time"
)

// Limit is one rate limit to enforce: at most Requests per Window.
// Limits arrive per request from the matched policy, so the enforcer
// takes them per call rather than at construction.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result reports the outcome of one rate limit check.
type Result struct {
	// Allowed indicates whether the request fits the limit.
	Allowed bool

	// Limit is the maximum number of requests in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAfter is the time until the current window ends.
	ResetAfter time.Duration

	// RetryAfter is the wait before retrying; zero when allowed.
	RetryAfter time.Duration
}

// Enforcer checks requests against per-decision limits.
type Enforcer interface {
	// Allow consumes one request from the key's budget under the given
	// limit and reports whether it fit.
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)

	// Reset clears the counter for the key.
	Reset(ctx context.Context, key string) error
}

// NoopEnforcer allows everything. Used when enforcement is disabled.
type NoopEnforcer struct{}

// NewNoopEnforcer creates a new noop enforcer.
func NewNoopEnforcer() *NoopEnforcer {
	return &NoopEnforcer{}
}

// Allow implements Enforcer.
func (e *NoopEnforcer) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	return &Result{Allowed: true, Limit: limit.Requests, Remaining: limit.Requests}, nil
}

// Reset implements Enforcer.
func (e *NoopEnforcer) Reset(ctx context.Context, key string) error {
	return nil
}
