package ca

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentity(t *testing.T) {
	tests := []struct {
		name      string
		cn        string
		ou        string
		wantID    string
		wantLevel TrustLevel
		wantPerms []string
	}{
		{
			name:      "full encoding",
			cn:        "api-client-123.partner.example.com",
			ou:        "perm:read,write",
			wantID:    "api-client-123",
			wantLevel: TrustLevelPartner,
			wantPerms: []string{"read", "write"},
		},
		{
			name:      "internal level with admin",
			cn:        "svc-billing.internal.corp",
			ou:        "perm:read,write,admin",
			wantID:    "svc-billing",
			wantLevel: TrustLevelInternal,
			wantPerms: []string{"read", "write", "admin"},
		},
		{
			name:      "bare CN degrades to vendor read-only",
			cn:        "legacy-client",
			ou:        "",
			wantID:    "legacy-client",
			wantLevel: TrustLevelVendor,
			wantPerms: []string{"read"},
		},
		{
			name:      "unknown level token degrades to vendor",
			cn:        "client.superuser.example.com",
			ou:        "perm:read",
			wantID:    "client",
			wantLevel: TrustLevelVendor,
			wantPerms: []string{"read"},
		},
		{
			name:      "OU without perm prefix degrades to read-only",
			cn:        "client.partner.example.com",
			ou:        "Engineering",
			wantID:    "client",
			wantLevel: TrustLevelPartner,
			wantPerms: []string{"read"},
		},
		{
			name:      "uppercase level token",
			cn:        "client.PARTNER.example.com",
			ou:        "PERM:Read,WRITE",
			wantID:    "client",
			wantLevel: TrustLevelPartner,
			wantPerms: []string{"read", "write"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := &CertificateInfo{
				Subject: SubjectInfo{
					CommonName:         tt.cn,
					OrganizationalUnit: tt.ou,
				},
				Issuer:       SubjectInfo{CommonName: "Test Issuer"},
				SerialNumber: "12345",
				Fingerprint:  "abcdef",
				ValidTo:      time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			}

			claim := ExtractIdentity(cert)
			require.NotNil(t, claim)
			assert.Equal(t, tt.wantID, claim.ClientID)
			assert.Equal(t, tt.wantLevel, claim.TrustLevel)
			assert.Equal(t, tt.wantPerms, claim.Permissions)
			assert.Equal(t, "Test Issuer", claim.Metadata["issuer"])
			assert.Equal(t, "12345", claim.Metadata["serialNumber"])
			assert.Equal(t, "abcdef", claim.Metadata["fingerprint"])
		})
	}
}

func TestClaimHasPermission(t *testing.T) {
	claim := &ClientIdentityClaim{Permissions: []string{"read", "write"}}

	assert.True(t, claim.HasPermission("read"))
	assert.True(t, claim.HasPermission("write"))
	assert.False(t, claim.HasPermission("admin"))
}

func TestParseSubjectDN(t *testing.T) {
	tests := []struct {
		name string
		dn   string
		want SubjectInfo
	}{
		{
			name: "full DN",
			dn:   "CN=svc.internal.corp,OU=perm:read,O=Acme",
			want: SubjectInfo{
				CommonName:         "svc.internal.corp",
				Organization:       "Acme",
				OrganizationalUnit: "perm:read",
			},
		},
		{
			name: "OU permission list spans commas",
			dn:   "CN=svc.internal.corp,OU=perm:read,write,admin,O=Acme",
			want: SubjectInfo{
				CommonName:         "svc.internal.corp",
				Organization:       "Acme",
				OrganizationalUnit: "perm:read,write,admin",
			},
		},
		{
			name: "bare string is taken as CN",
			dn:   "just-a-client-id",
			want: SubjectInfo{CommonName: "just-a-client-id"},
		},
		{
			name: "whitespace and case",
			dn:   " cn = svc , o = Acme ",
			want: SubjectInfo{CommonName: "svc", Organization: "Acme"},
		},
		{
			name: "unknown attributes ignored",
			dn:   "CN=svc,L=Berlin,ST=BE",
			want: SubjectInfo{CommonName: "svc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubjectDN(tt.dn))
		})
	}
}
