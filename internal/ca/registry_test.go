package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCA(fingerprint string, level TrustLevel) *TrustedCA {
	return &TrustedCA{
		Fingerprint:        fingerprint,
		Name:               "Test CA " + fingerprint,
		TrustLevel:         level,
		AllowedPermissions: []string{"read", "write"},
		RevokedSerials:     map[string]struct{}{},
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.RegisterCA(newTestCA("fp-1", TrustLevelPartner))

	got, ok := r.GetCA("fp-1")
	require.True(t, ok)
	assert.Equal(t, "fp-1", got.Fingerprint)
	assert.Equal(t, TrustLevelPartner, got.TrustLevel)

	_, ok = r.GetCA("unknown")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.RegisterCA(newTestCA("fp-1", TrustLevelVendor))
	r.RegisterCA(newTestCA("fp-1", TrustLevelInternal))

	got, ok := r.GetCA("fp-1")
	require.True(t, ok)
	assert.Equal(t, TrustLevelInternal, got.TrustLevel)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRegisterCopiesInput(t *testing.T) {
	r := NewRegistry()
	input := newTestCA("fp-1", TrustLevelPartner)
	r.RegisterCA(input)

	// Mutating the caller's struct must not reach the registry.
	input.RevokedSerials["123"] = struct{}{}
	input.AllowedPermissions[0] = "admin"

	got, _ := r.GetCA("fp-1")
	assert.False(t, r.IsRevoked("fp-1", "123"))
	assert.Equal(t, "read", got.AllowedPermissions[0])
}

func TestRegistryIsRevoked(t *testing.T) {
	r := NewRegistry()
	ca := newTestCA("fp-1", TrustLevelPartner)
	ca.RevokedSerials["666"] = struct{}{}
	r.RegisterCA(ca)

	assert.True(t, r.IsRevoked("fp-1", "666"))
	assert.False(t, r.IsRevoked("fp-1", "777"))
}

func TestRegistryIsRevokedUnknownCAFailsClosed(t *testing.T) {
	r := NewRegistry()

	// A serial under an unknown CA cannot be vouched for.
	assert.True(t, r.IsRevoked("no-such-fp", "123"))
}

func TestRegistryRevokeSerial(t *testing.T) {
	r := NewRegistry()
	r.RegisterCA(newTestCA("fp-1", TrustLevelPartner))

	require.True(t, r.RevokeSerial("fp-1", "42"))
	assert.True(t, r.IsRevoked("fp-1", "42"))

	assert.False(t, r.RevokeSerial("unknown", "42"))
}

func TestRegistryValidateTrustLevel(t *testing.T) {
	r := NewRegistry()
	r.RegisterCA(newTestCA("partner-ca", TrustLevelPartner))

	tests := []struct {
		name      string
		requested TrustLevel
		want      bool
	}{
		{"below own level", TrustLevelVendor, true},
		{"at own level", TrustLevelPartner, true},
		{"above own level", TrustLevelInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ValidateTrustLevel("partner-ca", tt.requested))
		})
	}

	assert.False(t, r.ValidateTrustLevel("unknown", TrustLevelVendor))
}
