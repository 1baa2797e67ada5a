package ca

// TrustLevel is the ordinal rank bounding what a certificate bearer
// may claim. Ordering: vendor < partner < internal.
type TrustLevel string

// Known trust levels.
const (
	TrustLevelVendor   TrustLevel = "vendor"
	TrustLevelPartner  TrustLevel = "partner"
	TrustLevelInternal TrustLevel = "internal"
)

// Ordinal returns the rank of the trust level. Unknown levels rank
// below vendor so they can never satisfy a requirement.
func (t TrustLevel) Ordinal() int {
	switch t {
	case TrustLevelVendor:
		return 0
	case TrustLevelPartner:
		return 1
	case TrustLevelInternal:
		return 2
	default:
		return -1
	}
}

// Valid reports whether the trust level is one of the known values.
func (t TrustLevel) Valid() bool {
	return t.Ordinal() >= 0
}

// AtLeast reports whether t ranks at or above the required level.
func (t TrustLevel) AtLeast(required TrustLevel) bool {
	return t.Ordinal() >= required.Ordinal()
}

// ParseTrustLevel maps a string to a TrustLevel, defaulting to the
// lowest level for anything unrecognized.
func ParseTrustLevel(s string) TrustLevel {
	switch TrustLevel(s) {
	case TrustLevelInternal:
		return TrustLevelInternal
	case TrustLevelPartner:
		return TrustLevelPartner
	default:
		return TrustLevelVendor
	}
}
