package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPolicy(id string) PolicyConfig {
	return PolicyConfig{
		ID:      id,
		Name:    id,
		Lanes:   []string{"public"},
		Paths:   []string{"/*"},
		Methods: []string{"GET"},
		Action:  "allow",
	}
}

func TestValidateConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfigNil(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))
}

func TestValidateConfigFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty listen address", func(c *Config) { c.Server.ListenAddress = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"tracing enabled without endpoint", func(c *Config) { c.Tracing.Enabled = true }},
		{"bad mtls trust level", func(c *Config) { c.MTLS.RequiredTrustLevel = "superuser" }},
		{"bad rate limit backend", func(c *Config) { c.RateLimit.Backend = "memcached" }},
		{"redis backend without address", func(c *Config) {
			c.RateLimit.Backend = "redis"
		}},
		{"vault enabled without address", func(c *Config) {
			c.Vault.Enabled = true
			c.Vault.Path = "trustgw/cas"
		}},
		{"vault enabled without path", func(c *Config) {
			c.Vault.Enabled = true
			c.Vault.Address = "http://127.0.0.1:8200"
		}},
		{"ca without fingerprint", func(c *Config) {
			c.TrustedCAs = []TrustedCAConfig{{Name: "x", TrustLevel: "partner"}}
		}},
		{"ca without name", func(c *Config) {
			c.TrustedCAs = []TrustedCAConfig{{Fingerprint: "abc", TrustLevel: "partner"}}
		}},
		{"ca with bad trust level", func(c *Config) {
			c.TrustedCAs = []TrustedCAConfig{{Fingerprint: "abc", Name: "x", TrustLevel: "root"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestValidatePolicies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *PolicyConfig)
		ok     bool
	}{
		{"valid", func(p *PolicyConfig) {}, true},
		{"missing id", func(p *PolicyConfig) { p.ID = "" }, false},
		{"bad action", func(p *PolicyConfig) { p.Action = "redirect" }, false},
		{"rate-limit without limit", func(p *PolicyConfig) { p.Action = "rate-limit" }, false},
		{"rate-limit with zero window", func(p *PolicyConfig) {
			p.Action = "rate-limit"
			p.RateLimit = &RateLimitSpec{Requests: 10}
		}, false},
		{"rate-limit complete", func(p *PolicyConfig) {
			p.Action = "rate-limit"
			p.RateLimit = &RateLimitSpec{Requests: 10, WindowSeconds: 60}
		}, true},
		{"no lanes", func(p *PolicyConfig) { p.Lanes = nil }, false},
		{"unknown lane", func(p *PolicyConfig) { p.Lanes = []string{"vip"} }, false},
		{"no paths", func(p *PolicyConfig) { p.Paths = nil }, false},
		{"no methods", func(p *PolicyConfig) { p.Methods = nil }, false},
		{"lowercase method", func(p *PolicyConfig) { p.Methods = []string{"get"} }, false},
		{"wildcard method", func(p *PolicyConfig) { p.Methods = []string{"*"} }, true},
		{"unknown condition type", func(p *PolicyConfig) {
			p.Conditions = []ConditionConfig{{Type: "geo-fence"}}
		}, false},
		{"known condition type", func(p *PolicyConfig) {
			p.Conditions = []ConditionConfig{{Type: "bot-verified", Required: true}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			p := validPolicy("p1")
			tt.mutate(&p)
			cfg.Policies = []PolicyConfig{p}

			err := ValidateConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePoliciesDuplicateID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policies = []PolicyConfig{validPolicy("dup"), validPolicy("dup")}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
