package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  listenAddress: ":9090"
  readTimeout: 3s
log:
  level: debug
  format: console
pipeline:
  headerPrefix: X-Edge
  debug: true
trustedCAs:
  - fingerprint: abc123
    name: Test CA
    trustLevel: partner
    revokedSerials: ["111", "222"]
rateLimit:
  enabled: true
  backend: redis
  redis:
    address: localhost:6379
policies:
  - id: allow-all
    name: Allow All
    lanes: [public]
    paths: ["/*"]
    methods: ["*"]
    action: allow
    priority: 10
`

func TestLoadConfigFromReader(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "X-Edge", cfg.Pipeline.HeaderPrefix)
	assert.True(t, cfg.Pipeline.Debug)

	require.Len(t, cfg.TrustedCAs, 1)
	assert.Equal(t, "abc123", cfg.TrustedCAs[0].Fingerprint)
	assert.Equal(t, []string{"111", "222"}, cfg.TrustedCAs[0].RevokedSerials)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)

	require.Len(t, cfg.Policies, 1)
	assert.Equal(t, "allow-all", cfg.Policies[0].ID)

	// Unset fields take defaults.
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "trustgw", cfg.Tracing.ServiceName)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("server: [not a map"))
	assert.Error(t, err)
}

func TestLoadConfigEmptyUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "X-Trust", cfg.Pipeline.HeaderPrefix)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRate)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_LISTEN_ADDR", ":7070")

	yaml := `
server:
  listenAddress: "${TEST_LISTEN_ADDR}"
log:
  level: "${TEST_UNSET_LEVEL:-warn}"
  format: "${TEST_UNSET_FORMAT:-}"
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.ListenAddress)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Empty default falls back to the built-in default.
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestSubstituteEnvVarsEscapedDollar(t *testing.T) {
	yaml := `
vault:
  token: "$$literal"
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "$literal", cfg.Vault.Token)
}
