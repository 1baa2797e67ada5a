package botverify

import (
	"context"
	"net"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// DefaultDNSTimeout bounds a single reverse+forward DNS round trip.
const DefaultDNSTimeout = 2 * time.Second

// Resolver is the DNS capability the verifier depends on. net.Resolver
// satisfies it; tests substitute a fake.
type Resolver interface {
	// LookupAddr performs a reverse lookup, returning hostnames for the IP.
	LookupAddr(ctx context.Context, addr string) ([]string, error)

	// LookupHost performs a forward lookup, returning addresses for the host.
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// breakerResolver wraps a Resolver with a timeout and a circuit
// breaker. When the resolver is down the breaker fails fast instead of
// spending the full timeout on every request; an open breaker is a
// resolution failure, which the verifier treats as unverified.
type breakerResolver struct {
	inner   Resolver
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  observability.Logger
}

// BreakerResolverOption is a functional option for the breaker resolver.
type BreakerResolverOption func(*breakerResolver)

// WithDNSTimeout sets the per-lookup timeout.
func WithDNSTimeout(timeout time.Duration) BreakerResolverOption {
	return func(r *breakerResolver) {
		r.timeout = timeout
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger observability.Logger) BreakerResolverOption {
	return func(r *breakerResolver) {
		r.logger = logger
	}
}

// NewBreakerResolver wraps inner with timeout and circuit-breaker
// protection. A nil inner defaults to net.DefaultResolver.
func NewBreakerResolver(inner Resolver, opts ...BreakerResolverOption) Resolver {
	if inner == nil {
		inner = net.DefaultResolver
	}

	r := &breakerResolver{
		inner:   inner,
		timeout: DefaultDNSTimeout,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dns-resolver",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("dns resolver breaker state change",
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})

	return r
}

// LookupAddr implements Resolver.
func (r *breakerResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.inner.LookupAddr(lookupCtx, addr)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// LookupHost implements Resolver.
func (r *breakerResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.inner.LookupHost(lookupCtx, host)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
