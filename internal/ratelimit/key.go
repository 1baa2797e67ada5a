package ratelimit

import "github.com/vyrodovalexey/trustgw/internal/classifier"

// Key builds the rate-limit key for a resolved identity. Authenticated
// clients are limited per client id, crawlers per bot family, and
// anonymous traffic per source IP, so one noisy anonymous caller never
// consumes a verified client's budget.
func Key(identity classifier.Identity, ip string) string {
	switch identity.Type {
	case classifier.IdentityMTLS:
		if identity.ClientID != "" {
			return "mtls:" + identity.ClientID
		}
	case classifier.IdentityBot:
		if identity.BotName != "" {
			return "bot:" + identity.BotName + ":" + ip
		}
	}
	return "ip:" + ip
}
