package mtls

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// Header names the edge proxy uses to forward certificate material.
const (
	HeaderVerify      = "x-client-verify"
	HeaderClientID    = "x-client-id"
	HeaderFingerprint = "x-client-fingerprint"
	HeaderIssuer      = "x-client-issuer"
	HeaderSerial      = "x-client-serial"
	HeaderSubject     = "x-client-subject"
	HeaderPermissions = "x-client-permissions"
	HeaderTrustLevel  = "x-client-trust-level"

	// VerifySuccess is the proxy's handshake-success marker.
	VerifySuccess = "SUCCESS"
)

// Validator validates client certificates and resolves identity claims.
type Validator interface {
	// Validate runs the full validation of a client certificate
	// against its issuer and the given policy. A nil policy falls back
	// to the configured policy.
	Validate(ctx context.Context, clientPEM, issuerPEM []byte, policy *Policy) *Result

	// ValidateFromHeaders runs the header fast-path for requests whose
	// certificate was already verified by the edge proxy. Lower
	// assurance tier; see the package documentation. The configured
	// policy's client and trust requirements still apply.
	ValidateFromHeaders(headers map[string]string) *Result

	// SetPolicy replaces the configured policy, for hot reload.
	SetPolicy(policy *Policy)
}

// validator implements the Validator interface.
type validator struct {
	registry *ca.Registry
	parser   ca.Parser
	logger   observability.Logger
	metrics  *Metrics
	now      func() time.Time

	mu     sync.RWMutex
	policy *Policy
}

// Option is a functional option for the validator.
type Option func(*validator)

// WithLogger sets the logger for the validator.
func WithLogger(logger observability.Logger) Option {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithMetrics sets the metrics for the validator.
func WithMetrics(metrics *Metrics) Option {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithParser sets the certificate parser.
func WithParser(parser ca.Parser) Option {
	return func(v *validator) {
		v.parser = parser
	}
}

// WithClock sets the time source. Tests use this to pin validity windows.
func WithClock(now func() time.Time) Option {
	return func(v *validator) {
		v.now = now
	}
}

// WithPolicy sets the configured validation policy, applied when a
// caller passes no per-call policy and on the header fast-path.
func WithPolicy(policy *Policy) Option {
	return func(v *validator) {
		v.policy = policy
	}
}

// NewValidator creates an mTLS validator backed by the CA registry.
func NewValidator(registry *ca.Registry, opts ...Option) Validator {
	v := &validator{
		registry: registry,
		logger:   observability.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.parser == nil {
		v.parser = ca.NewParser()
	}
	if v.metrics == nil {
		v.metrics = NewMetrics("trustgw")
	}
	if v.policy == nil {
		v.policy = &Policy{}
	}
	return v
}

// SetPolicy implements Validator. In-flight validations finish on the
// old policy.
func (v *validator) SetPolicy(policy *Policy) {
	if policy == nil {
		policy = &Policy{}
	}
	v.mu.Lock()
	v.policy = policy
	v.mu.Unlock()
}

func (v *validator) currentPolicy() *Policy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.policy
}

// Validate implements Validator. Steps 1-3 (parse, trust anchor,
// revocation) are fatal and short-circuit; later steps accumulate so
// the caller sees every reason at once.
func (v *validator) Validate(ctx context.Context, clientPEM, issuerPEM []byte, policy *Policy) *Result {
	start := v.now()
	result := &Result{Assurance: AssuranceFull}
	if policy == nil {
		policy = v.currentPolicy()
	}

	clientCert, err := v.parser.ParsePEM(clientPEM)
	if err != nil {
		result.addError(CodeInvalidCert, "failed to parse client certificate", "")
		return v.finish(start, result)
	}

	issuerCert, err := v.parser.ParsePEM(issuerPEM)
	if err != nil {
		result.addError(CodeInvalidIssuer, "failed to parse issuer certificate", "")
		return v.finish(start, result)
	}

	trustedCA, ok := v.registry.GetCA(issuerCert.Fingerprint)
	if !ok {
		result.addError(CodeUntrustedCA,
			fmt.Sprintf("issuer %s is not a trusted CA", issuerCert.Subject.CommonName),
			"issuer")
		return v.finish(start, result)
	}

	if v.registry.IsRevoked(issuerCert.Fingerprint, clientCert.SerialNumber) {
		result.addError(CodeRevoked, "certificate has been revoked", "serialNumber")
		return v.finish(start, result)
	}

	now := v.now()
	if now.Before(clientCert.ValidFrom) {
		result.addError(CodeNotYetValid,
			fmt.Sprintf("certificate not valid until %s", clientCert.ValidFrom.Format(time.RFC3339)),
			"validFrom")
	}
	if now.After(clientCert.ValidTo) {
		result.addError(CodeExpired,
			fmt.Sprintf("certificate expired on %s", clientCert.ValidTo.Format(time.RFC3339)),
			"validTo")
	}

	if policy.MaxCertAgeDays > 0 {
		ageDays := int(now.Sub(clientCert.ValidFrom).Hours() / 24)
		if ageDays > policy.MaxCertAgeDays {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("certificate is %d days old (max: %d)", ageDays, policy.MaxCertAgeDays))
		}
	}

	identity := ca.ExtractIdentity(clientCert)

	if policy.RequiredTrustLevel != "" && !identity.TrustLevel.AtLeast(policy.RequiredTrustLevel) {
		result.addError(CodeInsufficientTrust,
			fmt.Sprintf("required trust level: %s, actual: %s", policy.RequiredTrustLevel, identity.TrustLevel),
			"trustLevel")
	}

	if len(policy.RequiredPermissions) > 0 {
		var missing []string
		for _, p := range policy.RequiredPermissions {
			if !identity.HasPermission(p) {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			result.addError(CodeMissingPermissions,
				"missing permissions: "+strings.Join(missing, ", "),
				"permissions")
		}
	}

	for _, blocked := range policy.BlockedClients {
		if identity.ClientID == blocked {
			result.addError(CodeBlockedClient,
				fmt.Sprintf("client %s is blocked", identity.ClientID),
				"clientId")
			break
		}
	}

	if len(policy.AllowedIssuers) > 0 && !contains(policy.AllowedIssuers, trustedCA.Name) {
		result.addError(CodeIssuerNotAllowed,
			fmt.Sprintf("issuer %s not allowed for this endpoint", trustedCA.Name),
			"issuer")
	}

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Identity = identity
	}
	return v.finish(start, result)
}

// ValidateFromHeaders implements Validator. The proxy already did the
// handshake; we require its success marker and a client id, re-check
// revocation when issuer and serial are forwarded, and otherwise take
// the header-supplied identity verbatim.
func (v *validator) ValidateFromHeaders(headers map[string]string) *Result {
	start := v.now()
	result := &Result{Assurance: AssuranceProxyHeaders}

	get := func(name string) string {
		if val, ok := headers[name]; ok {
			return val
		}
		return headers[strings.ToLower(name)]
	}

	verify := get(HeaderVerify)
	if verify != VerifySuccess {
		if verify == "" {
			verify = "NONE"
		}
		result.addError(CodeProxyVerifyFailed, "proxy verification: "+verify, "")
		return v.finish(start, result)
	}

	clientID := get(HeaderClientID)
	if clientID == "" {
		result.addError(CodeNoClientID, "client id not in certificate", "")
		return v.finish(start, result)
	}

	issuer := get(HeaderIssuer)
	serial := get(HeaderSerial)
	if issuer != "" && serial != "" && v.registry.IsRevoked(issuer, serial) {
		result.addError(CodeRevoked, "certificate revoked", "serialNumber")
		return v.finish(start, result)
	}

	subject := ca.ParseSubjectDN(get(HeaderSubject))

	identity := &ca.ClientIdentityClaim{
		ClientID:    clientID,
		Permissions: headerPermissions(get(HeaderPermissions), subject),
		TrustLevel:  headerTrustLevel(get(HeaderTrustLevel), subject, issuer),
		Metadata: map[string]string{
			"fingerprint":  get(HeaderFingerprint),
			"issuer":       issuer,
			"serialNumber": serial,
		},
	}

	v.applyClaimPolicy(result, identity)

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Identity = identity
	}
	return v.finish(start, result)
}

// applyClaimPolicy checks the configured policy's client and trust
// requirements against a header-resolved claim. Checks accumulate.
func (v *validator) applyClaimPolicy(result *Result, identity *ca.ClientIdentityClaim) {
	policy := v.currentPolicy()

	if policy.RequiredTrustLevel != "" && !identity.TrustLevel.AtLeast(policy.RequiredTrustLevel) {
		result.addError(CodeInsufficientTrust,
			fmt.Sprintf("required trust level: %s, actual: %s", policy.RequiredTrustLevel, identity.TrustLevel),
			"trustLevel")
	}

	if len(policy.RequiredPermissions) > 0 {
		var missing []string
		for _, p := range policy.RequiredPermissions {
			if !identity.HasPermission(p) {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			result.addError(CodeMissingPermissions,
				"missing permissions: "+strings.Join(missing, ", "),
				"permissions")
		}
	}

	for _, blocked := range policy.BlockedClients {
		if identity.ClientID == blocked {
			result.addError(CodeBlockedClient,
				fmt.Sprintf("client %s is blocked", identity.ClientID),
				"clientId")
			break
		}
	}
}

// headerPermissions resolves permissions from the dedicated header,
// falling back to the subject OU encoding, then to read-only.
func headerPermissions(raw string, subject ca.SubjectInfo) []string {
	if raw != "" {
		parts := strings.Split(raw, ",")
		perms := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
		if len(perms) > 0 {
			return perms
		}
	}
	if subject.OrganizationalUnit != "" || subject.CommonName != "" {
		return ca.ExtractIdentity(&ca.CertificateInfo{Subject: subject}).Permissions
	}
	return []string{"read"}
}

// headerTrustLevel resolves the trust level from the dedicated header,
// falling back to the subject CN encoding, then to an issuer substring
// match, then to vendor. A bare CN encodes no level and does not shadow
// the issuer.
func headerTrustLevel(raw string, subject ca.SubjectInfo, issuer string) ca.TrustLevel {
	if raw != "" {
		return ca.ParseTrustLevel(strings.ToLower(raw))
	}

	if parts := strings.Split(subject.CommonName, "."); len(parts) > 1 {
		if level := ca.TrustLevel(strings.ToLower(parts[1])); level.Valid() {
			return level
		}
	}

	lower := strings.ToLower(issuer)
	switch {
	case strings.Contains(lower, "internal"):
		return ca.TrustLevelInternal
	case strings.Contains(lower, "partner"):
		return ca.TrustLevelPartner
	}
	return ca.TrustLevelVendor
}

func (v *validator) finish(start time.Time, result *Result) *Result {
	status := "invalid"
	reason := "valid"
	if result.Valid {
		status = "valid"
	} else if len(result.Errors) > 0 {
		reason = result.Errors[0].Code
	}
	v.metrics.RecordValidation(status, reason, string(result.Assurance), v.now().Sub(start))

	if !result.Valid {
		v.logger.Debug("certificate validation failed",
			observability.Strings("codes", result.ErrorCodes()),
			observability.String("assurance", string(result.Assurance)),
		)
	}
	return result
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Ensure validator implements Validator.
var _ Validator = (*validator)(nil)
