package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/observability"
	"github.com/vyrodovalexey/trustgw/internal/ratelimit/store"
)

// FixedWindowEnforcer counts requests in fixed windows backed by a
// store. Windows are aligned to the epoch so every instance sharing a
// store agrees on window boundaries.
type FixedWindowEnforcer struct {
	store  store.Store
	logger observability.Logger
	now    func() time.Time
}

// EnforcerOption is a functional option for the enforcer.
type EnforcerOption func(*FixedWindowEnforcer)

// WithLogger sets the logger for the enforcer.
func WithLogger(logger observability.Logger) EnforcerOption {
	return func(e *FixedWindowEnforcer) {
		e.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EnforcerOption {
	return func(e *FixedWindowEnforcer) {
		e.now = now
	}
}

// NewFixedWindowEnforcer creates an enforcer over the given store. A
// nil store falls back to an in-memory one.
func NewFixedWindowEnforcer(s store.Store, opts ...EnforcerOption) *FixedWindowEnforcer {
	if s == nil {
		s = store.NewMemoryStore()
	}
	e := &FixedWindowEnforcer{
		store:  s,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// windowStart returns the start of the window containing t.
func windowStart(t time.Time, window time.Duration) time.Time {
	nanos := window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/nanos)*nanos)
}

// Allow implements Enforcer. A limit with no requests or no window is
// treated as unlimited.
func (e *FixedWindowEnforcer) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return &Result{Allowed: true, Limit: limit.Requests}, nil
	}

	now := e.now()
	start := windowStart(now, limit.Window)
	windowKey := fmt.Sprintf("%s:fw:%d", key, start.UnixNano())

	current, err := e.store.Get(ctx, windowKey)
	if err != nil && !store.IsKeyNotFound(err) {
		return nil, err
	}

	allowed := int(current)+1 <= limit.Requests
	if allowed {
		// Expiry gets a one second buffer for clock skew.
		count, err := e.store.IncrementWithExpiry(ctx, windowKey, 1, limit.Window+time.Second)
		if err != nil {
			e.logger.Warn("failed to increment rate limit counter",
				observability.String("key", key),
				observability.Error(err),
			)
		} else {
			current = count
		}
	}

	remaining := limit.Requests - int(current)
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := start.Add(limit.Window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      limit.Requests,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// Reset implements Enforcer. Only the current window is cleared; past
// windows expire on their own.
func (e *FixedWindowEnforcer) Reset(ctx context.Context, key string) error {
	// Without the window we cannot reconstruct the exact window key,
	// so reset is best effort across common windows.
	for _, window := range []time.Duration{time.Second, 10 * time.Second, time.Minute, time.Hour} {
		start := windowStart(e.now(), window)
		windowKey := fmt.Sprintf("%s:fw:%d", key, start.UnixNano())
		if err := e.store.Delete(ctx, windowKey); err != nil {
			return err
		}
	}
	return nil
}

var _ Enforcer = (*FixedWindowEnforcer)(nil)
var _ Enforcer = (*NoopEnforcer)(nil)
