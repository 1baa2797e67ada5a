package classifier

import "time"

// TrustLane is the coarse routing decision for a request.
type TrustLane string

// The three traffic lanes. Exactly one is assigned per evaluation.
const (
	LaneTrusted TrustLane = "trusted"
	LanePublic  TrustLane = "public"
	LaneBlocked TrustLane = "blocked"
)

// IdentityType discriminates the resolved identity variant.
type IdentityType string

// Identity variants.
const (
	IdentityMTLS      IdentityType = "mtls"
	IdentityBot       IdentityType = "bot"
	IdentityAnonymous IdentityType = "anonymous"
)

// Identity is the caller identity resolved during classification.
// Which fields are meaningful depends on Type: ClientID and
// Fingerprint for mTLS, BotName and Verified for bots, none for
// anonymous.
type Identity struct {
	Type        IdentityType
	ClientID    string
	Fingerprint string
	BotName     string
	Verified    bool
}

// MTLSInfo carries the proxy's handshake outcome and the
// certificate-derived values it forwarded.
type MTLSInfo struct {
	// Verified is true only if the proxy's own handshake check succeeded.
	Verified bool

	ClientID    string
	Fingerprint string
	Serial      string
	Subject     string
	Issuer      string
}

// RequestContext is the immutable per-request input built from
// proxy-injected headers. It is created once per request and never
// persisted.
type RequestContext struct {
	IP        string
	UserAgent string
	URI       string
	Method    string
	Headers   map[string]string
	MTLS      MTLSInfo
}

// Header returns the named header, matching case-insensitively.
func (c *RequestContext) Header(name string) string {
	if v, ok := c.Headers[name]; ok {
		return v
	}
	lower := toLower(name)
	for k, v := range c.Headers {
		if toLower(k) == lower {
			return v
		}
	}
	return ""
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// Metadata records the audit trail of a classification. Checks is
// order-significant: tags appear in the order the checks ran.
type Metadata struct {
	Checks    []string
	RiskScore int
	Timestamp time.Time
}

// Result is the outcome of classifying one request.
type Result struct {
	Lane     TrustLane
	Identity Identity
	Metadata Metadata
}
