package ca

import (
	"regexp"
	"strings"
	"time"
)

// ClientIdentityClaim is the identity a certificate bearer claims:
// who they are, what they may do, and at which trust level.
type ClientIdentityClaim struct {
	// ClientID identifies the calling client.
	ClientID string

	// Permissions lists the permissions granted to the client.
	Permissions []string

	// TrustLevel is the claimed trust level.
	TrustLevel TrustLevel

	// Metadata carries diagnostic details (issuer, serial, fingerprint).
	Metadata map[string]string
}

// HasPermission reports whether the claim includes the permission.
func (c *ClientIdentityClaim) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// permPattern matches the OU permission encoding, e.g. "perm:read,write".
var permPattern = regexp.MustCompile(`(?i)perm:([a-z,]+)`)

// ExtractIdentity maps a parsed certificate to a client identity claim.
//
// The subject CN encodes "clientId.trustLevel.domain", for example
// "api-client-123.partner.example.com". The OU encodes permissions as
// "perm:read,write,admin". Anything missing degrades to the weakest
// form: CN as client id, vendor trust, read-only.
func ExtractIdentity(cert *CertificateInfo) *ClientIdentityClaim {
	cnParts := strings.Split(cert.Subject.CommonName, ".")

	clientID := cnParts[0]
	if clientID == "" {
		clientID = cert.Subject.CommonName
	}

	trustLevel := TrustLevelVendor
	if len(cnParts) > 1 {
		trustLevel = ParseTrustLevel(strings.ToLower(cnParts[1]))
	}

	return &ClientIdentityClaim{
		ClientID:    clientID,
		Permissions: parsePermissions(cert.Subject.OrganizationalUnit),
		TrustLevel:  trustLevel,
		Metadata: map[string]string{
			"issuer":       cert.Issuer.CommonName,
			"serialNumber": cert.SerialNumber,
			"fingerprint":  cert.Fingerprint,
			"validUntil":   cert.ValidTo.Format(time.RFC3339),
		},
	}
}

// parsePermissions extracts permissions from an OU value. Absent or
// unrecognized values degrade to read-only.
func parsePermissions(ou string) []string {
	if ou == "" {
		return []string{"read"}
	}

	match := permPattern.FindStringSubmatch(ou)
	if match == nil {
		return []string{"read"}
	}

	raw := strings.Split(match[1], ",")
	perms := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			perms = append(perms, p)
		}
	}
	if len(perms) == 0 {
		return []string{"read"}
	}
	return perms
}

// ParseSubjectDN parses a DN-like string ("CN=svc.internal.corp,OU=perm:read,O=Acme")
// into subject fields. Used by the header fast-path where the proxy
// forwards the subject as a single string. Unknown attributes are
// ignored; a bare string with no attributes is taken as the CN.
func ParseSubjectDN(dn string) SubjectInfo {
	info := SubjectInfo{}
	sawAttr := false

	for _, part := range strings.Split(dn, ",") {
		part = strings.TrimSpace(part)
		key, value, found := strings.Cut(part, "=")
		if !found {
			// OU permission lists contain commas; glue continuation
			// segments back onto the OU.
			if sawAttr && info.OrganizationalUnit != "" {
				info.OrganizationalUnit += "," + part
			}
			continue
		}
		sawAttr = true
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "CN":
			info.CommonName = strings.TrimSpace(value)
		case "O":
			info.Organization = strings.TrimSpace(value)
		case "OU":
			info.OrganizationalUnit = strings.TrimSpace(value)
		}
	}

	if !sawAttr {
		info.CommonName = strings.TrimSpace(dn)
	}
	return info
}
