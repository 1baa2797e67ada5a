package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/policy"
	"github.com/vyrodovalexey/trustgw/internal/util"
)

var validLanes = map[string]bool{
	"trusted": true,
	"public":  true,
	"blocked": true,
}

var validConditionTypes = map[string]bool{
	"trust-level":  true,
	"permission":   true,
	"client-id":    true,
	"time-window":  true,
	"ip-range":     true,
	"header":       true,
	"bot-verified": true,
}

// ValidateConfig checks the configuration for errors that would make
// the gateway misbehave at runtime. Called before applying any config,
// including hot reloads, so a bad file never replaces a good one.
func ValidateConfig(c *Config) error {
	if c == nil {
		return util.NewConfigError("config", "configuration is nil")
	}

	if c.Server.ListenAddress == "" {
		return util.NewConfigError("server.listenAddress", "listen address is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return util.NewConfigError("log.level", fmt.Sprintf("invalid log level %q", c.Log.Level))
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return util.NewConfigError("tracing.endpoint", "endpoint is required when tracing is enabled")
	}

	if c.MTLS.RequiredTrustLevel != "" && !ca.TrustLevel(c.MTLS.RequiredTrustLevel).Valid() {
		return util.NewConfigError("mtls.requiredTrustLevel",
			fmt.Sprintf("unknown trust level %q", c.MTLS.RequiredTrustLevel))
	}

	for i, caCfg := range c.TrustedCAs {
		field := fmt.Sprintf("trustedCAs[%d]", i)
		if caCfg.Fingerprint == "" {
			return util.NewConfigError(field+".fingerprint", "fingerprint is required")
		}
		if caCfg.Name == "" {
			return util.NewConfigError(field+".name", "name is required")
		}
		if !ca.TrustLevel(caCfg.TrustLevel).Valid() {
			return util.NewConfigError(field+".trustLevel",
				fmt.Sprintf("unknown trust level %q", caCfg.TrustLevel))
		}
	}

	if c.Vault.Enabled {
		if c.Vault.Address == "" {
			return util.NewConfigError("vault.address", "address is required when vault is enabled")
		}
		if c.Vault.Path == "" {
			return util.NewConfigError("vault.path", "path is required when vault is enabled")
		}
	}

	switch c.RateLimit.Backend {
	case "", "memory":
	case "redis":
		if c.RateLimit.Redis.Address == "" {
			return util.NewConfigError("rateLimit.redis.address", "address is required for the redis backend")
		}
	default:
		return util.NewConfigError("rateLimit.backend",
			fmt.Sprintf("unknown backend %q", c.RateLimit.Backend))
	}

	seen := make(map[string]bool, len(c.Policies))
	for i, p := range c.Policies {
		if err := validatePolicy(i, &p, seen); err != nil {
			return err
		}
	}

	return nil
}

func validatePolicy(index int, p *PolicyConfig, seen map[string]bool) error {
	field := fmt.Sprintf("policies[%d]", index)

	if p.ID == "" {
		return util.NewConfigError(field+".id", "id is required")
	}
	if seen[p.ID] {
		return util.NewConfigError(field+".id", fmt.Sprintf("duplicate policy id %q", p.ID))
	}
	seen[p.ID] = true

	if !policy.Action(p.Action).Valid() {
		return util.NewConfigError(field+".action", fmt.Sprintf("unknown action %q", p.Action))
	}
	if policy.Action(p.Action) == policy.ActionRateLimit {
		if p.RateLimit == nil || p.RateLimit.Requests <= 0 || p.RateLimit.WindowSeconds <= 0 {
			return util.NewConfigError(field+".rateLimit", "rate-limit action requires requests and windowSeconds")
		}
	}

	if len(p.Lanes) == 0 {
		return util.NewConfigError(field+".lanes", "at least one lane is required")
	}
	for _, lane := range p.Lanes {
		if !validLanes[lane] {
			return util.NewConfigError(field+".lanes", fmt.Sprintf("unknown lane %q", lane))
		}
	}

	if len(p.Paths) == 0 {
		return util.NewConfigError(field+".paths", "at least one path pattern is required")
	}
	if len(p.Methods) == 0 {
		return util.NewConfigError(field+".methods", "at least one method is required")
	}
	for _, m := range p.Methods {
		if m != "*" && m != strings.ToUpper(m) {
			return util.NewConfigError(field+".methods", fmt.Sprintf("method %q must be uppercase", m))
		}
	}

	for j, cond := range p.Conditions {
		if !validConditionTypes[cond.Type] {
			return util.NewConfigError(
				fmt.Sprintf("%s.conditions[%d].type", field, j),
				fmt.Sprintf("unknown condition type %q", cond.Type),
			)
		}
	}

	return nil
}
