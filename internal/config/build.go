package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/mtls"
	"github.com/vyrodovalexey/trustgw/internal/policy"
	"github.com/vyrodovalexey/trustgw/internal/ratelimit"
)

// BuildPolicies converts the configured policies into engine policies.
// An empty configuration yields the built-in default set.
func BuildPolicies(c *Config) ([]*policy.AccessPolicy, error) {
	if len(c.Policies) == 0 {
		return policy.DefaultPolicies(), nil
	}

	policies := make([]*policy.AccessPolicy, 0, len(c.Policies))
	for i, pc := range c.Policies {
		p, err := buildPolicy(&pc)
		if err != nil {
			return nil, fmt.Errorf("policies[%d]: %w", i, err)
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func buildPolicy(pc *PolicyConfig) (*policy.AccessPolicy, error) {
	lanes := make([]classifier.TrustLane, len(pc.Lanes))
	for i, lane := range pc.Lanes {
		lanes[i] = classifier.TrustLane(lane)
	}

	conditions := make([]policy.Condition, 0, len(pc.Conditions))
	for i, cc := range pc.Conditions {
		cond, err := buildCondition(&cc)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		conditions = append(conditions, cond)
	}

	var limit *policy.RateLimit
	if pc.RateLimit != nil {
		limit = &policy.RateLimit{
			Requests:      pc.RateLimit.Requests,
			WindowSeconds: pc.RateLimit.WindowSeconds,
		}
	}

	return &policy.AccessPolicy{
		ID:          pc.ID,
		Name:        pc.Name,
		Description: pc.Description,
		Lanes:       lanes,
		Paths:       pc.Paths,
		Methods:     pc.Methods,
		Conditions:  conditions,
		Action:      policy.Action(pc.Action),
		RateLimit:   limit,
		Priority:    pc.Priority,
	}, nil
}

func buildCondition(cc *ConditionConfig) (policy.Condition, error) {
	switch cc.Type {
	case "trust-level":
		levels := make([]ca.TrustLevel, len(cc.Levels))
		for i, l := range cc.Levels {
			levels[i] = ca.TrustLevel(l)
		}
		return &policy.TrustLevelCondition{Levels: levels}, nil

	case "permission":
		mode := policy.MatchAny
		if cc.Match == "all" {
			mode = policy.MatchAll
		}
		return &policy.PermissionCondition{Permissions: cc.Permissions, Mode: mode}, nil

	case "client-id":
		return &policy.ClientIDCondition{Clients: cc.Values, Mode: buildPolarity(cc.Mode)}, nil

	case "time-window":
		return &policy.TimeWindowCondition{Start: cc.Start, End: cc.End}, nil

	case "ip-range":
		return &policy.IPRangeCondition{Ranges: cc.Values, Mode: buildPolarity(cc.Mode)}, nil

	case "header":
		pattern, err := regexp.Compile(cc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid header pattern %q: %w", cc.Pattern, err)
		}
		return &policy.HeaderCondition{Name: cc.Header, Pattern: pattern}, nil

	case "bot-verified":
		return &policy.BotVerifiedCondition{Required: cc.Required}, nil
	}

	return nil, fmt.Errorf("unknown condition type %q", cc.Type)
}

func buildPolarity(mode string) policy.Polarity {
	if mode == "exclude" {
		return policy.PolarityExclude
	}
	return policy.PolarityInclude
}

// BuildTrustedCAs converts the configured CA entries into registry
// records.
func BuildTrustedCAs(c *Config) []*ca.TrustedCA {
	cas := make([]*ca.TrustedCA, 0, len(c.TrustedCAs))
	for _, cfg := range c.TrustedCAs {
		revoked := make(map[string]struct{}, len(cfg.RevokedSerials))
		for _, serial := range cfg.RevokedSerials {
			revoked[serial] = struct{}{}
		}
		cas = append(cas, &ca.TrustedCA{
			Fingerprint:        cfg.Fingerprint,
			Name:               cfg.Name,
			TrustLevel:         ca.TrustLevel(cfg.TrustLevel),
			AllowedPermissions: cfg.AllowedPermissions,
			RevokedSerials:     revoked,
		})
	}
	return cas
}

// BuildMTLSPolicy converts the mTLS section into a validation policy.
func BuildMTLSPolicy(c *Config) *mtls.Policy {
	return &mtls.Policy{
		RequiredTrustLevel:  ca.TrustLevel(c.MTLS.RequiredTrustLevel),
		RequiredPermissions: c.MTLS.RequiredPermissions,
		MaxCertAgeDays:      c.MTLS.MaxCertAgeDays,
		AllowedIssuers:      c.MTLS.AllowedIssuers,
		BlockedClients:      c.MTLS.BlockedClients,
	}
}

// BuildRateLimit converts a policy rate limit into an enforcer limit.
func BuildRateLimit(rl *policy.RateLimit) ratelimit.Limit {
	if rl == nil {
		return ratelimit.Limit{}
	}
	return ratelimit.Limit{
		Requests: rl.Requests,
		Window:   time.Duration(rl.WindowSeconds) * time.Second,
	}
}
