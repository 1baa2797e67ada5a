package policy

import (
	"regexp"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
)

// botClaimPattern recognizes user agents that claim to be a crawler.
// It scopes the unverified-bot-block policy to bot claims only, so
// plain anonymous traffic falls through to the public rate limit.
var botClaimPattern = regexp.MustCompile(`(?i)bot|crawl|spider|slurp`)

// DefaultPolicies returns the built-in policy set used when no policies
// are configured. Internal clients get full access, partner clients get
// read access, verified crawlers are rate-limited, unverified crawlers
// are blocked, and everything else on the public lane is rate-limited.
func DefaultPolicies() []*AccessPolicy {
	return []*AccessPolicy{
		{
			ID:          "internal-full-access",
			Name:        "Internal Full Access",
			Description: "Internal mTLS clients may access everything",
			Lanes:       []classifier.TrustLane{classifier.LaneTrusted},
			Paths:       []string{"/*"},
			Methods:     []string{"*"},
			Conditions: []Condition{
				&TrustLevelCondition{Levels: []ca.TrustLevel{ca.TrustLevelInternal}},
			},
			Action:   ActionAllow,
			Priority: 100,
		},
		{
			ID:          "partner-read-access",
			Name:        "Partner Read Access",
			Description: "Partner mTLS clients may read",
			Lanes:       []classifier.TrustLane{classifier.LaneTrusted},
			Paths:       []string{"/*"},
			Methods:     []string{"GET"},
			Conditions: []Condition{
				&TrustLevelCondition{Levels: []ca.TrustLevel{ca.TrustLevelPartner, ca.TrustLevelInternal}},
			},
			Action:   ActionAllow,
			Priority: 90,
		},
		{
			ID:          "verified-bot-crawl",
			Name:        "Verified Bot Crawl",
			Description: "Verified crawlers may read at a limited rate",
			Lanes:       []classifier.TrustLane{classifier.LanePublic},
			Paths:       []string{"/*"},
			Methods:     []string{"GET", "HEAD"},
			Conditions: []Condition{
				&BotVerifiedCondition{Required: true},
			},
			Action:    ActionRateLimit,
			RateLimit: &RateLimit{Requests: 100, WindowSeconds: 60},
			Priority:  80,
		},
		{
			ID:          "unverified-bot-block",
			Name:        "Unverified Bot Block",
			Description: "Crawler claims that failed verification are denied",
			Lanes:       []classifier.TrustLane{classifier.LanePublic, classifier.LaneBlocked},
			Paths:       []string{"/*"},
			Methods:     []string{"*"},
			Conditions: []Condition{
				&BotVerifiedCondition{Required: false},
				&HeaderCondition{Name: "user-agent", Pattern: botClaimPattern},
			},
			Action:   ActionDeny,
			Priority: 70,
		},
		{
			ID:          "public-rate-limit",
			Name:        "Public Rate Limit",
			Description: "Anonymous public traffic is rate-limited",
			Lanes:       []classifier.TrustLane{classifier.LanePublic},
			Paths:       []string{"/*"},
			Methods:     []string{"*"},
			Action:      ActionRateLimit,
			RateLimit:   &RateLimit{Requests: 60, WindowSeconds: 60},
			Priority:    10,
		},
	}
}
