package botverify

import (
	"context"
	"strings"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/observability"
	"github.com/vyrodovalexey/trustgw/internal/util"
)

// googleIPRanges are Google's published IPv4 ranges for Googlebot.
// Source: https://developers.google.com/search/docs/crawling-indexing/verifying-googlebot
var googleIPRanges = []string{
	"66.249.64.0/19",
	"64.233.160.0/19",
	"72.14.192.0/18",
	"209.85.128.0/17",
	"216.239.32.0/19",
	"74.125.0.0/16",
	"216.58.192.0/19",
	"172.217.0.0/16",
	"108.177.8.0/21",
	"108.177.96.0/19",
}

// googlebotUserAgents are the crawler tokens Google documents.
var googlebotUserAgents = []string{
	"Googlebot",
	"Googlebot-Image",
	"Googlebot-News",
	"Googlebot-Video",
	"Mediapartners-Google",
	"AdsBot-Google",
}

// approvedHostSuffixes are the reverse-DNS suffixes that identify
// genuine Google crawl hosts.
var approvedHostSuffixes = []string{".google.com", ".googlebot.com"}

// Checks records the outcome of each verification step, in order.
type Checks struct {
	UserAgent  bool
	IPRange    bool
	ReverseDNS bool
}

// Result is the outcome of a crawler verification. A verification
// never errors; every failure mode is folded into Verified=false with
// a reason.
type Result struct {
	Verified bool
	Checks   Checks
	Hostname string
	Reason   string
}

// Verifier verifies claimed crawler identities.
type Verifier interface {
	// Verify runs the full verification for the claimed identity.
	// The only suspension point is the reverse/forward DNS round trip,
	// bounded by the resolver's timeout and cancellable via ctx.
	Verify(ctx context.Context, userAgent, ip string) Result
}

// googlebotVerifier implements Verifier for the Googlebot family.
type googlebotVerifier struct {
	resolver Resolver
	logger   observability.Logger
	metrics  *Metrics
}

// VerifierOption is a functional option for the verifier.
type VerifierOption func(*googlebotVerifier)

// WithVerifierLogger sets the logger for the verifier.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *googlebotVerifier) {
		v.logger = logger
	}
}

// WithVerifierMetrics sets the metrics for the verifier.
func WithVerifierMetrics(metrics *Metrics) VerifierOption {
	return func(v *googlebotVerifier) {
		v.metrics = metrics
	}
}

// WithResolver sets the DNS resolver.
func WithResolver(resolver Resolver) VerifierOption {
	return func(v *googlebotVerifier) {
		v.resolver = resolver
	}
}

// NewGooglebotVerifier creates a verifier for Googlebot claims.
func NewGooglebotVerifier(opts ...VerifierOption) Verifier {
	v := &googlebotVerifier{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.resolver == nil {
		v.resolver = NewBreakerResolver(nil, WithResolverLogger(v.logger))
	}
	if v.metrics == nil {
		v.metrics = NewMetrics("trustgw")
	}
	return v
}

// CheckUserAgent reports whether the user agent claims a Googlebot token.
func CheckUserAgent(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, bot := range googlebotUserAgents {
		if strings.Contains(lower, strings.ToLower(bot)) {
			return true
		}
	}
	return false
}

// CheckIPRange reports whether the IP is inside Google's published ranges.
func CheckIPRange(ip string) bool {
	return util.IPInAnyCIDR(ip, googleIPRanges)
}

// Verify implements Verifier.
func (v *googlebotVerifier) Verify(ctx context.Context, userAgent, ip string) Result {
	start := time.Now()

	result := Result{
		Checks: Checks{
			UserAgent: CheckUserAgent(userAgent),
			IPRange:   CheckIPRange(ip),
		},
	}

	// DNS is the expensive step; only spend it when the cheap checks pass.
	if result.Checks.UserAgent && result.Checks.IPRange {
		hostname, ok := v.verifyReverseDNS(ctx, ip)
		result.Checks.ReverseDNS = ok
		result.Hostname = hostname
	}

	result.Verified = result.Checks.UserAgent && result.Checks.IPRange && result.Checks.ReverseDNS
	result.Reason = reasonFor(result)

	status := "unverified"
	if result.Verified {
		status = "verified"
	}
	v.metrics.RecordVerification(status, time.Since(start))

	v.logger.Debug("googlebot verification",
		observability.String("ip", ip),
		observability.Bool("verified", result.Verified),
		observability.String("reason", result.Reason),
	)

	return result
}

// verifyReverseDNS performs forward-confirmed reverse DNS: the IP must
// resolve to an approved Google hostname, and that hostname must
// resolve back to the same IP. Any lookup failure is a failed check.
func (v *googlebotVerifier) verifyReverseDNS(ctx context.Context, ip string) (string, bool) {
	hostnames, err := v.resolver.LookupAddr(ctx, ip)
	if err != nil || len(hostnames) == 0 {
		v.metrics.RecordDNSLookup("reverse", "error")
		return "", false
	}
	v.metrics.RecordDNSLookup("reverse", "ok")

	hostname := strings.TrimSuffix(hostnames[0], ".")
	if !hasApprovedSuffix(hostname) {
		return hostname, false
	}

	addrs, err := v.resolver.LookupHost(ctx, hostname)
	if err != nil {
		v.metrics.RecordDNSLookup("forward", "error")
		return hostname, false
	}
	v.metrics.RecordDNSLookup("forward", "ok")

	for _, addr := range addrs {
		if addr == ip {
			return hostname, true
		}
	}
	return hostname, false
}

func hasApprovedSuffix(hostname string) bool {
	for _, suffix := range approvedHostSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}
	return false
}

func reasonFor(r Result) string {
	switch {
	case !r.Checks.UserAgent:
		return "User-Agent does not match Googlebot"
	case !r.Checks.IPRange:
		return "IP not in Google ranges"
	case !r.Checks.ReverseDNS:
		return "Reverse DNS verification failed"
	default:
		return "Verified Googlebot"
	}
}

// Ensure googlebotVerifier implements Verifier.
var _ Verifier = (*googlebotVerifier)(nil)
