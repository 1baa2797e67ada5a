// Package classifier assigns incoming requests to trust lanes. It is
// the first decision gate: mTLS-verified callers go straight to the
// trusted lane, claimed crawlers are verified, and everything else is
// risk-scored anonymous traffic.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/vyrodovalexey/trustgw/internal/botverify"
	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// botSignature describes a known crawler family. Verifiable families
// are ones whose operator publishes a verification procedure; only
// Googlebot has a concrete verifier wired today, so the other
// verifiable families get benefit-of-doubt treatment.
type botSignature struct {
	pattern    *regexp.Regexp
	name       string
	verifiable bool
}

var botSignatures = []botSignature{
	{regexp.MustCompile(`(?i)googlebot`), "googlebot", true},
	{regexp.MustCompile(`(?i)bingbot`), "bingbot", true},
	{regexp.MustCompile(`(?i)slurp`), "yahoo", true},
	{regexp.MustCompile(`(?i)duckduckbot`), "duckduckbot", true},
	{regexp.MustCompile(`(?i)baiduspider`), "baidu", true},
	{regexp.MustCompile(`(?i)yandexbot`), "yandex", true},
	{regexp.MustCompile(`(?i)facebot|facebookexternalhit`), "facebook", true},
	{regexp.MustCompile(`(?i)twitterbot`), "twitter", false},
	{regexp.MustCompile(`(?i)linkedinbot`), "linkedin", false},
}

// detectBotClaim returns the first matching crawler signature, if any.
func detectBotClaim(userAgent string) *botSignature {
	for i := range botSignatures {
		if botSignatures[i].pattern.MatchString(userAgent) {
			return &botSignatures[i]
		}
	}
	return nil
}

// Classifier assigns a trust lane to each request.
type Classifier struct {
	verifier botverify.Verifier
	logger   observability.Logger
	metrics  *Metrics
}

// Option is a functional option for the classifier.
type Option func(*Classifier)

// WithLogger sets the logger for the classifier.
func WithLogger(logger observability.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics for the classifier.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Classifier) {
		c.metrics = metrics
	}
}

// New creates a classifier. The verifier handles the one suspension
// point (crawler reverse DNS); everything else is pure computation.
func New(verifier botverify.Verifier, opts ...Option) *Classifier {
	c := &Classifier{
		verifier: verifier,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics("trustgw")
	}
	return c
}

// Classify assigns a lane to the request. First match wins:
//
//  1. Proxy-verified mTLS with a client id → trusted, risk 0.
//  2. Claimed crawler identity → verified (public, risk 0), failed
//     verification (blocked, risk 100: a false privileged claim is
//     hostile, not merely anonymous), or benefit-of-doubt
//     (public, risk 50).
//  3. Anonymous traffic → risk-scored; 70 and above is blocked.
//
// Deterministic given identical context and registry state; the
// timestamp is the only varying output.
func (c *Classifier) Classify(ctx context.Context, req *RequestContext) *Result {
	start := time.Now()
	checks := []string{}

	if req.MTLS.Verified && req.MTLS.ClientID != "" {
		checks = append(checks, "mtls_verified")
		return c.finish(start, &Result{
			Lane: LaneTrusted,
			Identity: Identity{
				Type:        IdentityMTLS,
				ClientID:    req.MTLS.ClientID,
				Fingerprint: req.MTLS.Fingerprint,
				Verified:    true,
			},
			Metadata: Metadata{Checks: checks, RiskScore: 0, Timestamp: start},
		})
	}

	if claim := detectBotClaim(req.UserAgent); claim != nil {
		checks = append(checks, "bot_claim:"+claim.name)

		if claim.name == "googlebot" {
			verification := c.verifier.Verify(ctx, req.UserAgent, req.IP)
			checks = append(checks,
				checkTag("user_agent", verification.Checks.UserAgent),
				checkTag("ip_range", verification.Checks.IPRange),
				checkTag("reverse_dns", verification.Checks.ReverseDNS),
			)

			if verification.Verified {
				return c.finish(start, &Result{
					Lane:     LanePublic,
					Identity: Identity{Type: IdentityBot, BotName: "googlebot", Verified: true},
					Metadata: Metadata{Checks: checks, RiskScore: 0, Timestamp: start},
				})
			}

			checks = append(checks, "verification_failed")
			return c.finish(start, &Result{
				Lane:     LaneBlocked,
				Identity: Identity{Type: IdentityBot, BotName: "googlebot", Verified: false},
				Metadata: Metadata{Checks: checks, RiskScore: 100, Timestamp: start},
			})
		}

		// No concrete verifier for this family: public lane,
		// unverified, flagged with elevated risk.
		if claim.verifiable {
			return c.finish(start, &Result{
				Lane:     LanePublic,
				Identity: Identity{Type: IdentityBot, BotName: claim.name, Verified: false},
				Metadata: Metadata{Checks: checks, RiskScore: 50, Timestamp: start},
			})
		}
	}

	score := riskScore(req)
	checks = append(checks, fmt.Sprintf("risk_score:%d", score))

	lane := LanePublic
	if score >= blockThreshold {
		lane = LaneBlocked
	}

	return c.finish(start, &Result{
		Lane:     lane,
		Identity: Identity{Type: IdentityAnonymous},
		Metadata: Metadata{Checks: checks, RiskScore: score, Timestamp: start},
	})
}

func (c *Classifier) finish(start time.Time, result *Result) *Result {
	c.metrics.RecordClassification(string(result.Lane), string(result.Identity.Type), time.Since(start))
	c.logger.Debug("request classified",
		observability.String("lane", string(result.Lane)),
		observability.String("identity_type", string(result.Identity.Type)),
		observability.Int("risk_score", result.Metadata.RiskScore),
		observability.Strings("checks", result.Metadata.Checks),
	)
	return result
}

func checkTag(name string, passed bool) string {
	if passed {
		return name + ":pass"
	}
	return name + ":fail"
}
