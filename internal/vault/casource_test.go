package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/trustgw/internal/ca"
)

func TestNewDisabledSource(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled config", &Config{Enabled: false, Address: "http://127.0.0.1:8200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			require.NoError(t, err)
			assert.False(t, s.Enabled())

			_, err = s.LoadTrustedCAs(context.Background())
			assert.ErrorIs(t, err, ErrVaultDisabled)
		})
	}
}

func TestNewEnabledSource(t *testing.T) {
	s, err := New(&Config{
		Enabled: true,
		Address: "http://127.0.0.1:8200",
		Token:   "test-token",
		Mount:   "secret",
		Path:    "trustgw/cas",
	})
	require.NoError(t, err)
	assert.True(t, s.Enabled())
}

func TestParseCA(t *testing.T) {
	entry := map[string]interface{}{
		"fingerprint":        "abc123",
		"name":               "Partner CA",
		"trustLevel":         "partner",
		"allowedPermissions": []interface{}{"read", "write"},
		"revokedSerials":     []interface{}{"111", "222"},
	}

	trustedCA, err := parseCA(entry)
	require.NoError(t, err)

	assert.Equal(t, "abc123", trustedCA.Fingerprint)
	assert.Equal(t, "Partner CA", trustedCA.Name)
	assert.Equal(t, ca.TrustLevelPartner, trustedCA.TrustLevel)
	assert.Equal(t, []string{"read", "write"}, trustedCA.AllowedPermissions)
	assert.Contains(t, trustedCA.RevokedSerials, "111")
	assert.Contains(t, trustedCA.RevokedSerials, "222")
}

func TestParseCAMissingFields(t *testing.T) {
	_, err := parseCA(map[string]interface{}{"name": "No Fingerprint"})
	assert.Error(t, err)

	_, err = parseCA(map[string]interface{}{"fingerprint": "abc"})
	assert.Error(t, err)
}

func TestParseCAUnknownTrustLevelDegrades(t *testing.T) {
	trustedCA, err := parseCA(map[string]interface{}{
		"fingerprint": "abc123",
		"name":        "Mystery CA",
		"trustLevel":  "galactic",
	})
	require.NoError(t, err)

	assert.Equal(t, ca.TrustLevelVendor, trustedCA.TrustLevel)
}

func TestParseCAIgnoresNonStringListEntries(t *testing.T) {
	trustedCA, err := parseCA(map[string]interface{}{
		"fingerprint":    "abc123",
		"name":           "Odd CA",
		"revokedSerials": []interface{}{"111", 42, nil},
	})
	require.NoError(t, err)

	assert.Len(t, trustedCA.RevokedSerials, 1)
	assert.Contains(t, trustedCA.RevokedSerials, "111")
}
