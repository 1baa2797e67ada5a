package classifier

import "regexp"

// Risk score penalties for anonymous traffic. Scores are additive and
// clamped to [0,100]; at or above blockThreshold the request is blocked.
const (
	penaltyNoAcceptLanguage = 10
	penaltyNoAcceptEncoding = 10
	penaltyNoAccept         = 5
	penaltyShortUserAgent   = 20
	penaltyCLIUserAgent     = 15
	penaltyHeadlessBrowser  = 30
	penaltyNoKeepAlive      = 5

	minUserAgentLength = 10
	blockThreshold     = 70
)

var (
	cliPattern      = regexp.MustCompile(`(?i)curl|wget|python|java|php`)
	headlessPattern = regexp.MustCompile(`(?i)headless|phantom|selenium|puppeteer`)
	keepAlive       = regexp.MustCompile(`(?i)keep-alive`)
)

// riskScore scores anonymous traffic on request characteristics.
// Deterministic given the context; clamped to [0,100].
func riskScore(ctx *RequestContext) int {
	score := 0

	if ctx.Header("Accept-Language") == "" {
		score += penaltyNoAcceptLanguage
	}
	if ctx.Header("Accept-Encoding") == "" {
		score += penaltyNoAcceptEncoding
	}
	if ctx.Header("Accept") == "" {
		score += penaltyNoAccept
	}

	if len(ctx.UserAgent) < minUserAgentLength {
		score += penaltyShortUserAgent
	}
	if cliPattern.MatchString(ctx.UserAgent) {
		score += penaltyCLIUserAgent
	}
	if headlessPattern.MatchString(ctx.UserAgent) {
		score += penaltyHeadlessBrowser
	}

	if !keepAlive.MatchString(ctx.Header("Connection")) {
		score += penaltyNoKeepAlive
	}

	if score > 100 {
		score = 100
	}
	return score
}
