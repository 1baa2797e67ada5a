package config

import "time"

// Config is the root gateway configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Log        LogConfig         `yaml:"log"`
	Tracing    TracingConfig     `yaml:"tracing"`
	Pipeline   PipelineConfig    `yaml:"pipeline"`
	MTLS       MTLSConfig        `yaml:"mtls"`
	TrustedCAs []TrustedCAConfig `yaml:"trustedCAs"`
	Vault      VaultConfig       `yaml:"vault"`
	RateLimit  RateLimitConfig   `yaml:"rateLimit"`
	Policies   []PolicyConfig    `yaml:"policies"`
}

// ServerConfig configures the HTTP callout server.
type ServerConfig struct {
	ListenAddress   string   `yaml:"listenAddress"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`

	// GuardRPS caps the callout endpoint itself, independent of any
	// policy rate limits. Zero disables the guard.
	GuardRPS   float64 `yaml:"guardRPS"`
	GuardBurst int     `yaml:"guardBurst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"serviceName"`
	SampleRate  float64 `yaml:"sampleRate"`
}

// PipelineConfig configures the decision pipeline.
type PipelineConfig struct {
	// HeaderPrefix is the prefix for upstream and response headers.
	HeaderPrefix string `yaml:"headerPrefix"`

	// Debug adds the stage trace and duration response headers.
	Debug bool `yaml:"debug"`
}

// MTLSConfig is the validation policy applied to authenticated clients.
type MTLSConfig struct {
	RequiredTrustLevel  string   `yaml:"requiredTrustLevel"`
	RequiredPermissions []string `yaml:"requiredPermissions"`
	MaxCertAgeDays      int      `yaml:"maxCertAgeDays"`
	AllowedIssuers      []string `yaml:"allowedIssuers"`
	BlockedClients      []string `yaml:"blockedClients"`
}

// TrustedCAConfig registers one certificate authority.
type TrustedCAConfig struct {
	Fingerprint        string   `yaml:"fingerprint"`
	Name               string   `yaml:"name"`
	TrustLevel         string   `yaml:"trustLevel"`
	AllowedPermissions []string `yaml:"allowedPermissions"`
	RevokedSerials     []string `yaml:"revokedSerials"`
}

// VaultConfig configures loading trusted CAs from Vault.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Token   string `yaml:"token"`

	// Mount is the KV v2 mount; Path is the secret path under it.
	Mount string `yaml:"mount"`
	Path  string `yaml:"path"`
}

// RateLimitConfig configures enforcement of policy rate limits.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis counter backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PolicyConfig is the YAML form of one access policy.
type PolicyConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Lanes       []string          `yaml:"lanes"`
	Paths       []string          `yaml:"paths"`
	Methods     []string          `yaml:"methods"`
	Conditions  []ConditionConfig `yaml:"conditions"`
	Action      string            `yaml:"action"`
	RateLimit   *RateLimitSpec    `yaml:"rateLimit"`
	Priority    int               `yaml:"priority"`
}

// RateLimitSpec is the YAML form of a policy rate limit.
type RateLimitSpec struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"windowSeconds"`
}

// ConditionConfig is the YAML form of one policy condition. Type
// selects the kind; the other fields apply per kind.
type ConditionConfig struct {
	Type string `yaml:"type"`

	// trust-level
	Levels []string `yaml:"levels"`

	// permission
	Permissions []string `yaml:"permissions"`
	Match       string   `yaml:"match"`

	// client-id and ip-range
	Values []string `yaml:"values"`
	Mode   string   `yaml:"mode"`

	// time-window
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	// header
	Header  string `yaml:"header"`
	Pattern string `yaml:"pattern"`

	// bot-verified
	Required bool `yaml:"required"`
}

// DefaultConfig returns the configuration used when fields are unset.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   ":8080",
			ReadTimeout:     Duration(5 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "trustgw",
			SampleRate:  0.1,
		},
		Pipeline: PipelineConfig{
			HeaderPrefix: "X-Trust",
		},
		RateLimit: RateLimitConfig{
			Backend: "memory",
		},
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = defaults.Server.ListenAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = defaults.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = defaults.Tracing.SampleRate
	}
	if c.Pipeline.HeaderPrefix == "" {
		c.Pipeline.HeaderPrefix = defaults.Pipeline.HeaderPrefix
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = defaults.RateLimit.Backend
	}
}
