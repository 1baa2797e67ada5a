package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/trustgw/internal/botverify"
)

// fakeVerifier returns a canned verification result.
type fakeVerifier struct {
	result botverify.Result
	calls  int
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string) botverify.Result {
	f.calls++
	return f.result
}

func browserContext() *RequestContext {
	return &RequestContext{
		IP:        "203.0.113.10",
		UserAgent: browserUA,
		URI:       "/products",
		Method:    "GET",
		Headers:   browserHeaders(),
	}
}

func TestClassifyMTLSVerified(t *testing.T) {
	c := New(&fakeVerifier{})
	req := browserContext()
	req.MTLS = MTLSInfo{
		Verified:    true,
		ClientID:    "api-client-123",
		Fingerprint: "aa:bb:cc",
	}

	result := c.Classify(context.Background(), req)

	assert.Equal(t, LaneTrusted, result.Lane)
	assert.Equal(t, IdentityMTLS, result.Identity.Type)
	assert.Equal(t, "api-client-123", result.Identity.ClientID)
	assert.Equal(t, "aa:bb:cc", result.Identity.Fingerprint)
	assert.True(t, result.Identity.Verified)
	assert.Equal(t, 0, result.Metadata.RiskScore)
	assert.Contains(t, result.Metadata.Checks, "mtls_verified")
}

func TestClassifyMTLSUnverifiedFallsThrough(t *testing.T) {
	c := New(&fakeVerifier{})
	req := browserContext()
	req.MTLS = MTLSInfo{Verified: false, ClientID: "api-client-123"}

	result := c.Classify(context.Background(), req)

	assert.Equal(t, LanePublic, result.Lane)
	assert.Equal(t, IdentityAnonymous, result.Identity.Type)
}

func TestClassifyMTLSVerifiedWithoutClientIDFallsThrough(t *testing.T) {
	c := New(&fakeVerifier{})
	req := browserContext()
	req.MTLS = MTLSInfo{Verified: true}

	result := c.Classify(context.Background(), req)

	assert.Equal(t, IdentityAnonymous, result.Identity.Type)
}

func TestClassifyVerifiedGooglebot(t *testing.T) {
	verifier := &fakeVerifier{result: botverify.Result{
		Verified: true,
		Checks:   botverify.Checks{UserAgent: true, IPRange: true, ReverseDNS: true},
	}}
	c := New(verifier)

	req := browserContext()
	req.UserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1)"
	req.IP = "66.249.66.1"

	result := c.Classify(context.Background(), req)

	assert.Equal(t, LanePublic, result.Lane)
	assert.Equal(t, IdentityBot, result.Identity.Type)
	assert.Equal(t, "googlebot", result.Identity.BotName)
	assert.True(t, result.Identity.Verified)
	assert.Equal(t, 0, result.Metadata.RiskScore)
	assert.Equal(t, 1, verifier.calls)
	assert.Contains(t, result.Metadata.Checks, "bot_claim:googlebot")
	assert.Contains(t, result.Metadata.Checks, "reverse_dns:pass")
}

func TestClassifyFailedGooglebotClaimIsBlocked(t *testing.T) {
	verifier := &fakeVerifier{result: botverify.Result{
		Verified: false,
		Checks:   botverify.Checks{UserAgent: true, IPRange: false},
	}}
	c := New(verifier)

	req := browserContext()
	req.UserAgent = "Googlebot/2.1 (+http://www.google.com/bot.html)"

	result := c.Classify(context.Background(), req)

	assert.Equal(t, LaneBlocked, result.Lane)
	assert.Equal(t, IdentityBot, result.Identity.Type)
	assert.False(t, result.Identity.Verified)
	assert.Equal(t, 100, result.Metadata.RiskScore)
	assert.Contains(t, result.Metadata.Checks, "verification_failed")
	assert.Contains(t, result.Metadata.Checks, "ip_range:fail")
}

func TestClassifyOtherVerifiableBotsGetBenefitOfDoubt(t *testing.T) {
	tests := []struct {
		userAgent string
		botName   string
	}{
		{"Mozilla/5.0 (compatible; bingbot/2.0)", "bingbot"},
		{"Mozilla/5.0 (compatible; Yahoo! Slurp)", "yahoo"},
		{"DuckDuckBot/1.1; (+http://duckduckgo.com/duckduckbot.html)", "duckduckbot"},
		{"Mozilla/5.0 (compatible; Baiduspider/2.0)", "baidu"},
		{"Mozilla/5.0 (compatible; YandexBot/3.0)", "yandex"},
		{"facebookexternalhit/1.1", "facebook"},
	}

	for _, tt := range tests {
		t.Run(tt.botName, func(t *testing.T) {
			verifier := &fakeVerifier{}
			c := New(verifier)

			req := browserContext()
			req.UserAgent = tt.userAgent

			result := c.Classify(context.Background(), req)

			assert.Equal(t, LanePublic, result.Lane)
			assert.Equal(t, IdentityBot, result.Identity.Type)
			assert.Equal(t, tt.botName, result.Identity.BotName)
			assert.False(t, result.Identity.Verified)
			assert.Equal(t, 50, result.Metadata.RiskScore)
			assert.Zero(t, verifier.calls)
		})
	}
}

func TestClassifyNonVerifiableBotFallsToRiskScoring(t *testing.T) {
	c := New(&fakeVerifier{})

	req := browserContext()
	req.UserAgent = "Twitterbot/1.0"

	result := c.Classify(context.Background(), req)

	// Twitterbot has no verification procedure, so it is treated as
	// anonymous traffic and risk-scored like any other client.
	assert.Equal(t, IdentityAnonymous, result.Identity.Type)
	assert.Equal(t, LanePublic, result.Lane)
	assert.Contains(t, result.Metadata.Checks, "bot_claim:twitter")
}

func TestClassifyAnonymousHighRiskBlocked(t *testing.T) {
	c := New(&fakeVerifier{})

	req := &RequestContext{
		IP:        "203.0.113.10",
		UserAgent: "",
		Headers:   map[string]string{},
	}
	req.Headers["connection"] = "close"

	// Missing language, encoding, accept, short agent, no keep-alive:
	// 10+10+5+20+5 = 50, public.
	result := c.Classify(context.Background(), req)
	require.Equal(t, LanePublic, result.Lane)
	assert.Equal(t, 50, result.Metadata.RiskScore)

	// Add a headless marker to cross the threshold: 50-20+30+15 = 75.
	req.UserAgent = "python-headless-agent"
	result = c.Classify(context.Background(), req)
	assert.Equal(t, LaneBlocked, result.Lane)
	assert.Equal(t, 75, result.Metadata.RiskScore)
	assert.Equal(t, IdentityAnonymous, result.Identity.Type)
}

func TestClassifyThresholdBoundary(t *testing.T) {
	c := New(&fakeVerifier{})

	req := &RequestContext{
		IP:        "203.0.113.10",
		UserAgent: "phpselen", // short and cli, no headless token
		Headers: map[string]string{
			"accept":          "*/*",
			"accept-language": "en",
			"accept-encoding": "gzip",
			"connection":      "close",
		},
	}
	// short(20) + cli(15) + no keep-alive(5) = 40, public.
	result := c.Classify(context.Background(), req)
	assert.Equal(t, LanePublic, result.Lane)

	req.UserAgent = "phantom" // short(20) + headless(30)
	delete(req.Headers, "accept-language")
	delete(req.Headers, "accept-encoding")
	// 20+30+5+10+10 = 75 >= 70, blocked.
	result = c.Classify(context.Background(), req)
	assert.Equal(t, LaneBlocked, result.Lane)
}

func TestClassifyBlockBoundaryInclusive(t *testing.T) {
	c := New(&fakeVerifier{})

	// headless(30) + short(20) + no accept-language(10) + no
	// accept-encoding(10) = exactly 70; the threshold is inclusive.
	req := &RequestContext{
		IP:        "203.0.113.10",
		UserAgent: "phantom",
		Headers: map[string]string{
			"accept":     "text/html",
			"connection": "keep-alive",
		},
	}

	result := c.Classify(context.Background(), req)

	assert.Equal(t, 70, result.Metadata.RiskScore)
	assert.Equal(t, LaneBlocked, result.Lane)
}
