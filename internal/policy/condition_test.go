package policy

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
)

func mtlsContext(claim *ca.ClientIdentityClaim) *EvaluationContext {
	return &EvaluationContext{
		Lane:      classifier.LaneTrusted,
		Identity:  classifier.Identity{Type: classifier.IdentityMTLS, Verified: true},
		MTLSClaim: claim,
		Path:      "/api/data",
		Method:    "GET",
		IP:        "10.0.0.5",
		Headers:   map[string]string{},
		Timestamp: time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
	}
}

func TestTrustLevelCondition(t *testing.T) {
	cond := &TrustLevelCondition{Levels: []ca.TrustLevel{ca.TrustLevelInternal, ca.TrustLevelPartner}}

	assert.True(t, cond.Evaluate(mtlsContext(&ca.ClientIdentityClaim{TrustLevel: ca.TrustLevelPartner})))
	assert.False(t, cond.Evaluate(mtlsContext(&ca.ClientIdentityClaim{TrustLevel: ca.TrustLevelVendor})))
	assert.False(t, cond.Evaluate(mtlsContext(nil)))
}

func TestPermissionCondition(t *testing.T) {
	claim := &ca.ClientIdentityClaim{Permissions: []string{"read", "write"}}

	any := &PermissionCondition{Permissions: []string{"admin", "write"}, Mode: MatchAny}
	assert.True(t, any.Evaluate(mtlsContext(claim)))

	all := &PermissionCondition{Permissions: []string{"read", "write"}, Mode: MatchAll}
	assert.True(t, all.Evaluate(mtlsContext(claim)))

	allMissing := &PermissionCondition{Permissions: []string{"read", "admin"}, Mode: MatchAll}
	assert.False(t, allMissing.Evaluate(mtlsContext(claim)))

	anyMissing := &PermissionCondition{Permissions: []string{"admin"}, Mode: MatchAny}
	assert.False(t, anyMissing.Evaluate(mtlsContext(claim)))

	assert.False(t, any.Evaluate(mtlsContext(nil)))
}

func TestClientIDCondition(t *testing.T) {
	claim := &ca.ClientIdentityClaim{ClientID: "client-a"}

	include := &ClientIDCondition{Clients: []string{"client-a", "client-b"}, Mode: PolarityInclude}
	assert.True(t, include.Evaluate(mtlsContext(claim)))
	assert.False(t, include.Evaluate(mtlsContext(&ca.ClientIdentityClaim{ClientID: "client-z"})))

	exclude := &ClientIDCondition{Clients: []string{"client-a"}, Mode: PolarityExclude}
	assert.False(t, exclude.Evaluate(mtlsContext(claim)))
	assert.True(t, exclude.Evaluate(mtlsContext(&ca.ClientIdentityClaim{ClientID: "client-z"})))

	assert.False(t, include.Evaluate(mtlsContext(nil)))
	assert.False(t, exclude.Evaluate(mtlsContext(nil)))
}

func TestTimeWindowCondition(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		at    time.Time
		want  bool
	}{
		{"inside window", "09:00", "17:00", time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC), true},
		{"at start boundary", "09:00", "17:00", time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), true},
		{"at end boundary", "09:00", "17:00", time.Date(2026, 8, 31, 17, 0, 0, 0, time.UTC), true},
		{"before window", "09:00", "17:00", time.Date(2026, 8, 31, 8, 59, 0, 0, time.UTC), false},
		{"after window", "09:00", "17:00", time.Date(2026, 8, 31, 17, 1, 0, 0, time.UTC), false},
		{"malformed start never holds", "late", "17:00", time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &TimeWindowCondition{Start: tt.start, End: tt.end}
			ec := mtlsContext(nil)
			ec.Timestamp = tt.at
			assert.Equal(t, tt.want, cond.Evaluate(ec))
		})
	}
}

func TestIPRangeCondition(t *testing.T) {
	ec := mtlsContext(nil)
	ec.IP = "10.0.0.5"

	include := &IPRangeCondition{Ranges: []string{"10.0.0.0/8"}, Mode: PolarityInclude}
	assert.True(t, include.Evaluate(ec))

	literal := &IPRangeCondition{Ranges: []string{"10.0.0.5"}, Mode: PolarityInclude}
	assert.True(t, literal.Evaluate(ec))

	miss := &IPRangeCondition{Ranges: []string{"192.168.0.0/16", "172.16.0.1"}, Mode: PolarityInclude}
	assert.False(t, miss.Evaluate(ec))

	exclude := &IPRangeCondition{Ranges: []string{"10.0.0.0/8"}, Mode: PolarityExclude}
	assert.False(t, exclude.Evaluate(ec))

	excludeMiss := &IPRangeCondition{Ranges: []string{"192.168.0.0/16"}, Mode: PolarityExclude}
	assert.True(t, excludeMiss.Evaluate(ec))
}

func TestHeaderCondition(t *testing.T) {
	cond := &HeaderCondition{Name: "X-Api-Version", Pattern: regexp.MustCompile(`^v2`)}

	ec := mtlsContext(nil)
	ec.Headers = map[string]string{"x-api-version": "v2.1"}
	assert.True(t, cond.Evaluate(ec))

	ec.Headers = map[string]string{"x-api-version": "v1.0"}
	assert.False(t, cond.Evaluate(ec))

	ec.Headers = map[string]string{"x-api-version": ""}
	assert.False(t, cond.Evaluate(ec))

	ec.Headers = map[string]string{}
	assert.False(t, cond.Evaluate(ec))

	// Mixed-case header keys still match.
	ec.Headers = map[string]string{"X-API-Version": "v2.0"}
	assert.True(t, cond.Evaluate(ec))
}

func TestBotVerifiedCondition(t *testing.T) {
	required := &BotVerifiedCondition{Required: true}
	notRequired := &BotVerifiedCondition{Required: false}

	verifiedBot := mtlsContext(nil)
	verifiedBot.Identity = classifier.Identity{Type: classifier.IdentityBot, BotName: "googlebot", Verified: true}
	assert.True(t, required.Evaluate(verifiedBot))
	assert.False(t, notRequired.Evaluate(verifiedBot))

	unverifiedBot := mtlsContext(nil)
	unverifiedBot.Identity = classifier.Identity{Type: classifier.IdentityBot, BotName: "bingbot", Verified: false}
	assert.False(t, required.Evaluate(unverifiedBot))
	assert.True(t, notRequired.Evaluate(unverifiedBot))

	// Non-bot identities satisfy the condition only when verification
	// is not required.
	anonymous := mtlsContext(nil)
	anonymous.Identity = classifier.Identity{Type: classifier.IdentityAnonymous}
	assert.False(t, required.Evaluate(anonymous))
	assert.True(t, notRequired.Evaluate(anonymous))
}
