package ca

import (
	"sync"

	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// TrustedCA describes a registered certificate authority: its
// fingerprint (the lookup key), a display name, the highest trust
// level it may vouch for, the permissions it may grant, and the
// serials it has revoked.
type TrustedCA struct {
	// Fingerprint is the SHA-256 fingerprint of the CA certificate.
	Fingerprint string

	// Name is the CA display name, matched by issuer allow-lists.
	Name string

	// TrustLevel is the ceiling for claims minted under this CA.
	TrustLevel TrustLevel

	// AllowedPermissions lists the permissions this CA may grant.
	AllowedPermissions []string

	// RevokedSerials holds revoked certificate serial numbers.
	RevokedSerials map[string]struct{}
}

// Registry is an in-memory store of trusted CAs keyed by fingerprint.
// Reads dominate; administrative writes (register, revoke) take the
// write lock over the whole table so readers always see a complete
// snapshot.
type Registry struct {
	mu     sync.RWMutex
	cas    map[string]*TrustedCA
	logger observability.Logger
}

// RegistryOption is a functional option for the registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for the registry.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty CA registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cas:    make(map[string]*TrustedCA),
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterCA registers or replaces a CA by fingerprint.
func (r *Registry) RegisterCA(ca *TrustedCA) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := &TrustedCA{
		Fingerprint:        ca.Fingerprint,
		Name:               ca.Name,
		TrustLevel:         ca.TrustLevel,
		AllowedPermissions: append([]string(nil), ca.AllowedPermissions...),
		RevokedSerials:     make(map[string]struct{}, len(ca.RevokedSerials)),
	}
	for serial := range ca.RevokedSerials {
		stored.RevokedSerials[serial] = struct{}{}
	}

	r.cas[ca.Fingerprint] = stored
	r.logger.Info("registered trusted CA",
		observability.String("name", ca.Name),
		observability.String("fingerprint", ca.Fingerprint),
		observability.String("trust_level", string(ca.TrustLevel)),
	)
}

// GetCA returns the CA registered under the fingerprint, if any.
func (r *Registry) GetCA(fingerprint string) (*TrustedCA, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ca, ok := r.cas[fingerprint]
	return ca, ok
}

// IsRevoked reports whether the serial is revoked under the CA. An
// unknown fingerprint is treated as revoked: a serial we cannot vouch
// for is never honored.
func (r *Registry) IsRevoked(caFingerprint, serialNumber string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ca, ok := r.cas[caFingerprint]
	if !ok {
		return true
	}
	_, revoked := ca.RevokedSerials[serialNumber]
	return revoked
}

// RevokeSerial appends a serial to the CA's revocation list. Revocation
// lists grow only; there is no un-revoke.
func (r *Registry) RevokeSerial(caFingerprint, serialNumber string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ca, ok := r.cas[caFingerprint]
	if !ok {
		return false
	}
	ca.RevokedSerials[serialNumber] = struct{}{}
	r.logger.Info("revoked certificate serial",
		observability.String("ca", ca.Name),
		observability.String("serial", serialNumber),
	)
	return true
}

// ValidateTrustLevel reports whether the CA may vouch for the requested
// trust level. A CA can only mint claims at or below its own level;
// an unknown fingerprint can vouch for nothing.
func (r *Registry) ValidateTrustLevel(caFingerprint string, requested TrustLevel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ca, ok := r.cas[caFingerprint]
	if !ok {
		return false
	}
	return requested.Ordinal() <= ca.TrustLevel.Ordinal()
}

// Len returns the number of registered CAs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cas)
}
