package policy

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// DefaultDenyReason is the reason attached to the fail-closed default.
const DefaultDenyReason = "No matching policy - default deny"

// compiledPolicy pairs a policy with its precompiled path matchers.
type compiledPolicy struct {
	policy   *AccessPolicy
	matchers []*PathMatcher
}

// Engine evaluates the active policy set against resolved request
// contexts. The set is replaced atomically: readers see the old list
// or the new list in full, never a partial splice.
type Engine struct {
	mu       sync.RWMutex
	policies []*compiledPolicy
	logger   observability.Logger
	metrics  *Metrics
}

// EngineOption is a functional option for the engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the engine.
func WithEngineLogger(logger observability.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineMetrics sets the metrics for the engine.
func WithEngineMetrics(metrics *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine creates a policy engine with an empty policy set. An empty
// set denies everything.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics("trustgw")
	}
	return e
}

// LoadPolicies replaces the active policy set. Policies are
// stable-sorted by descending priority, so equal priorities keep their
// registration order. Returns an error if any path glob fails to
// compile; on error the previous set stays active.
func (e *Engine) LoadPolicies(policies []*AccessPolicy) error {
	compiled := make([]*compiledPolicy, 0, len(policies))
	for _, p := range policies {
		matchers := make([]*PathMatcher, 0, len(p.Paths))
		for _, pattern := range p.Paths {
			m, err := NewPathMatcher(pattern)
			if err != nil {
				return fmt.Errorf("policy %s: invalid path pattern %q: %w", p.ID, pattern, err)
			}
			matchers = append(matchers, m)
		}
		compiled = append(compiled, &compiledPolicy{policy: p, matchers: matchers})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].policy.Priority > compiled[j].policy.Priority
	})

	e.mu.Lock()
	e.policies = compiled
	e.mu.Unlock()

	e.logger.Info("loaded policies", observability.Int("count", len(compiled)))
	e.metrics.SetActivePolicies(len(compiled))
	return nil
}

// Evaluate evaluates the request context against the active policy
// set. First match in priority order wins; no match is the fail-closed
// default deny.
func (e *Engine) Evaluate(ec *EvaluationContext) *Decision {
	start := time.Now()

	e.mu.RLock()
	policies := e.policies
	e.mu.RUnlock()

	for _, cp := range policies {
		if cp.matches(ec) {
			decision := &Decision{
				Action:        cp.policy.Action,
				MatchedPolicy: cp.policy,
				RateLimit:     cp.policy.RateLimit,
				Reason:        "Matched policy: " + cp.policy.Name,
			}
			e.record(start, decision)
			return decision
		}
	}

	decision := &Decision{
		Action: ActionDeny,
		Reason: DefaultDenyReason,
	}
	e.record(start, decision)
	return decision
}

// matches applies the full match predicate: lane, path, method, and
// every condition (AND, never OR).
func (cp *compiledPolicy) matches(ec *EvaluationContext) bool {
	if !laneListed(ec.Lane, cp.policy.Lanes) {
		return false
	}
	if !matchesAnyPath(ec.Path, cp.matchers) {
		return false
	}
	if !matchesMethod(ec.Method, cp.policy.Methods) {
		return false
	}
	for _, cond := range cp.policy.Conditions {
		if !cond.Evaluate(ec) {
			return false
		}
	}
	return true
}

func laneListed(lane classifier.TrustLane, lanes []classifier.TrustLane) bool {
	for _, l := range lanes {
		if l == lane {
			return true
		}
	}
	return false
}

func (e *Engine) record(start time.Time, decision *Decision) {
	matched := "default"
	if decision.MatchedPolicy != nil {
		matched = decision.MatchedPolicy.ID
	}
	e.metrics.RecordEvaluation(string(decision.Action), matched, time.Since(start))
	e.logger.Debug("policy decision",
		observability.String("action", string(decision.Action)),
		observability.String("policy", matched),
		observability.String("reason", decision.Reason),
	)
}
