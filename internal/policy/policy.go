// Package policy implements the declarative access-policy engine:
// priority-ordered rules mapping (lane, path, method, conditions) to a
// terminal action, with a fail-closed default deny.
package policy

import (
	"time"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
)

// Action is the terminal outcome of a policy match.
type Action string

// Policy actions.
const (
	ActionAllow     Action = "allow"
	ActionDeny      Action = "deny"
	ActionChallenge Action = "challenge"
	ActionRateLimit Action = "rate-limit"
)

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionChallenge, ActionRateLimit:
		return true
	}
	return false
}

// RateLimit is the limit hint attached to a rate-limit action. The
// engine only decides the limit; enforcement belongs to the caller.
type RateLimit struct {
	Requests      int
	WindowSeconds int
}

// AccessPolicy is one declarative access rule. Policies are evaluated
// read-only in descending priority order; ties keep registration order.
type AccessPolicy struct {
	ID          string
	Name        string
	Description string

	// Lanes this policy applies to.
	Lanes []classifier.TrustLane

	// Paths are anchored glob patterns ('*' any run, '?' one char).
	Paths []string

	// Methods are uppercase HTTP verbs; "*" matches any.
	Methods []string

	// Conditions must all hold (AND, never OR).
	Conditions []Condition

	// Action taken when the policy matches.
	Action Action

	// RateLimit applies when Action is rate-limit.
	RateLimit *RateLimit

	Priority int
}

// EvaluationContext is the fully-resolved request context a policy is
// evaluated against.
type EvaluationContext struct {
	Lane      classifier.TrustLane
	Identity  classifier.Identity
	MTLSClaim *ca.ClientIdentityClaim
	Path      string
	Method    string
	IP        string
	Headers   map[string]string
	Timestamp time.Time
}

// Decision is the engine's verdict for one request.
type Decision struct {
	Action        Action
	MatchedPolicy *AccessPolicy
	RateLimit     *RateLimit
	Reason        string
}

// Allowed reports whether the decision lets the request through
// (possibly rate-limited).
func (d *Decision) Allowed() bool {
	return d.Action == ActionAllow || d.Action == ActionRateLimit
}
