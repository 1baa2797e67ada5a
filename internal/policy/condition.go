package policy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/util"
)

// Condition is one predicate in a policy's AND-combined condition
// list. The set of implementations is closed: the unexported marker
// method keeps outside packages from adding kinds, so the engine can
// treat the union as exhaustive.
type Condition interface {
	// Evaluate reports whether the condition holds for the context.
	Evaluate(ec *EvaluationContext) bool

	isCondition()
}

// MatchMode selects how a set-membership condition combines values.
type MatchMode string

// Match modes for permission conditions.
const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// Polarity selects include/exclude semantics for list conditions.
type Polarity string

// Polarities.
const (
	PolarityInclude Polarity = "include"
	PolarityExclude Polarity = "exclude"
)

// TrustLevelCondition holds when the mTLS claim's trust level is one
// of the listed levels. Without an mTLS claim it never holds.
type TrustLevelCondition struct {
	Levels []ca.TrustLevel
}

func (c *TrustLevelCondition) isCondition() {}

// Evaluate implements Condition.
func (c *TrustLevelCondition) Evaluate(ec *EvaluationContext) bool {
	if ec.MTLSClaim == nil {
		return false
	}
	for _, level := range c.Levels {
		if ec.MTLSClaim.TrustLevel == level {
			return true
		}
	}
	return false
}

// PermissionCondition holds when the mTLS claim carries the listed
// permissions (any or all). Without an mTLS claim it never holds.
type PermissionCondition struct {
	Permissions []string
	Mode        MatchMode
}

func (c *PermissionCondition) isCondition() {}

// Evaluate implements Condition.
func (c *PermissionCondition) Evaluate(ec *EvaluationContext) bool {
	if ec.MTLSClaim == nil {
		return false
	}
	if c.Mode == MatchAll {
		for _, p := range c.Permissions {
			if !ec.MTLSClaim.HasPermission(p) {
				return false
			}
		}
		return true
	}
	for _, p := range c.Permissions {
		if ec.MTLSClaim.HasPermission(p) {
			return true
		}
	}
	return false
}

// ClientIDCondition holds when the mTLS claim's client id is (include)
// or is not (exclude) in the list. Without an mTLS claim it never holds.
type ClientIDCondition struct {
	Clients []string
	Mode    Polarity
}

func (c *ClientIDCondition) isCondition() {}

// Evaluate implements Condition.
func (c *ClientIDCondition) Evaluate(ec *EvaluationContext) bool {
	if ec.MTLSClaim == nil {
		return false
	}
	included := false
	for _, id := range c.Clients {
		if id == ec.MTLSClaim.ClientID {
			included = true
			break
		}
	}
	if c.Mode == PolarityExclude {
		return !included
	}
	return included
}

// TimeWindowCondition holds when the request timestamp falls inside
// [Start, End], both "HH:MM", compared as hour*100+minute inclusive.
type TimeWindowCondition struct {
	Start string
	End   string
}

func (c *TimeWindowCondition) isCondition() {}

// Evaluate implements Condition.
func (c *TimeWindowCondition) Evaluate(ec *EvaluationContext) bool {
	t := ec.Timestamp.Hour()*100 + ec.Timestamp.Minute()
	start, ok := parseClock(c.Start)
	if !ok {
		return false
	}
	end, ok := parseClock(c.End)
	if !ok {
		return false
	}
	return t >= start && t <= end
}

func parseClock(s string) (int, bool) {
	v, err := strconv.Atoi(strings.ReplaceAll(s, ":", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}

// IPRangeCondition holds when the source IP is (include) or is not
// (exclude) inside the listed literals or IPv4 CIDR ranges. Non-IPv4
// addresses never match a CIDR range.
type IPRangeCondition struct {
	Ranges []string
	Mode   Polarity
}

func (c *IPRangeCondition) isCondition() {}

// Evaluate implements Condition.
func (c *IPRangeCondition) Evaluate(ec *EvaluationContext) bool {
	inRange := false
	for _, r := range c.Ranges {
		if strings.Contains(r, "/") {
			if util.IPInCIDR(ec.IP, r) {
				inRange = true
				break
			}
		} else if ec.IP == r {
			inRange = true
			break
		}
	}
	if c.Mode == PolarityExclude {
		return !inRange
	}
	return inRange
}

// HeaderCondition holds when the named header is present and its value
// matches the pattern. The pattern is compiled at policy load time.
type HeaderCondition struct {
	Name    string
	Pattern *regexp.Regexp
}

func (c *HeaderCondition) isCondition() {}

// Evaluate implements Condition.
func (c *HeaderCondition) Evaluate(ec *EvaluationContext) bool {
	value, ok := ec.Headers[strings.ToLower(c.Name)]
	if !ok {
		for k, v := range ec.Headers {
			if strings.EqualFold(k, c.Name) {
				value, ok = v, true
				break
			}
		}
	}
	if !ok || value == "" {
		return false
	}
	return c.Pattern.MatchString(value)
}

// BotVerifiedCondition gates on crawler verification. For non-bot
// identities it holds exactly when verification is not required.
type BotVerifiedCondition struct {
	Required bool
}

func (c *BotVerifiedCondition) isCondition() {}

// Evaluate implements Condition.
func (c *BotVerifiedCondition) Evaluate(ec *EvaluationContext) bool {
	if ec.Identity.Type != classifier.IdentityBot {
		return !c.Required
	}
	return ec.Identity.Verified == c.Required
}

// The closed set of condition kinds.
var (
	_ Condition = (*TrustLevelCondition)(nil)
	_ Condition = (*PermissionCondition)(nil)
	_ Condition = (*ClientIDCondition)(nil)
	_ Condition = (*TimeWindowCondition)(nil)
	_ Condition = (*IPRangeCondition)(nil)
	_ Condition = (*HeaderCondition)(nil)
	_ Condition = (*BotVerifiedCondition)(nil)
)
