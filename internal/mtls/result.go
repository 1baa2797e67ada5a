package mtls

import "github.com/vyrodovalexey/trustgw/internal/ca"

// Validation error codes. Stable strings surfaced to audit logs and
// upstream diagnostics; never shown to the origin client.
const (
	CodeInvalidCert         = "INVALID_CERT"
	CodeInvalidIssuer       = "INVALID_ISSUER"
	CodeUntrustedCA         = "UNTRUSTED_CA"
	CodeRevoked             = "REVOKED"
	CodeNotYetValid         = "NOT_YET_VALID"
	CodeExpired             = "EXPIRED"
	CodeInsufficientTrust   = "INSUFFICIENT_TRUST"
	CodeMissingPermissions  = "MISSING_PERMISSIONS"
	CodeBlockedClient       = "BLOCKED_CLIENT"
	CodeIssuerNotAllowed    = "ISSUER_NOT_ALLOWED"
	CodeProxyVerifyFailed   = "PROXY_VERIFY_FAILED"
	CodeNoClientID          = "NO_CLIENT_ID"
)

// ValidationError is one structured validation failure.
type ValidationError struct {
	Code    string
	Message string
	Field   string
}

// Assurance marks how strong the validation guarantee is.
type Assurance string

const (
	// AssuranceFull means both certificates were parsed and the
	// complete check sequence ran.
	AssuranceFull Assurance = "full"

	// AssuranceProxyHeaders means the proxy's handshake verdict was
	// trusted and header-supplied identity material was taken
	// verbatim (revocation still re-checked). A weaker guarantee.
	AssuranceProxyHeaders Assurance = "proxy-headers"
)

// Result is the outcome of a validation. Identity is non-nil only when
// Valid; Errors accumulates every failed check so callers see the full
// set of reasons, not just the first.
type Result struct {
	Valid     bool
	Identity  *ca.ClientIdentityClaim
	Errors    []ValidationError
	Warnings  []string
	Assurance Assurance
}

// addError appends a validation error.
func (r *Result) addError(code, message, field string) {
	r.Errors = append(r.Errors, ValidationError{Code: code, Message: message, Field: field})
}

// ErrorCodes returns the codes of all accumulated errors.
func (r *Result) ErrorCodes() []string {
	codes := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		codes[i] = e.Code
	}
	return codes
}

// Policy is the caller-supplied validation policy for an endpoint.
// The zero value imposes no extra requirements.
type Policy struct {
	// RequiredTrustLevel, when set, is the minimum trust level.
	RequiredTrustLevel ca.TrustLevel

	// RequiredPermissions must all be present on the claim.
	RequiredPermissions []string

	// MaxCertAgeDays caps certificate age; exceeding it is a warning,
	// not a failure.
	MaxCertAgeDays int

	// AllowedIssuers restricts which CA names may vouch here.
	AllowedIssuers []string

	// BlockedClients lists client ids that are always rejected.
	BlockedClients []string
}
