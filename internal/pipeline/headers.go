package pipeline

import (
	"strconv"
	"strings"

	"github.com/vyrodovalexey/trustgw/internal/classifier"
)

// upstreamHeaders builds the header set the proxy injects into the
// upstream request. Always fresh maps; callers may mutate freely.
func (p *Pipeline) upstreamHeaders(cls *classifier.Result, identity IdentitySummary) map[string]string {
	prefix := p.headerPrefix
	headers := map[string]string{
		prefix + "-Lane":          string(cls.Lane),
		prefix + "-Identity-Type": string(identity.Type),
		prefix + "-Risk-Score":    strconv.Itoa(cls.Metadata.RiskScore),
		prefix + "-Verified":      strconv.FormatBool(identity.Verified),
	}

	if identity.ID != "" {
		headers[prefix+"-Identity-Id"] = identity.ID
	}
	if identity.TrustLevel != "none" && identity.TrustLevel != "" {
		headers[prefix+"-Trust-Level"] = identity.TrustLevel
	}
	if len(identity.Permissions) > 0 {
		headers[prefix+"-Permissions"] = strings.Join(identity.Permissions, ",")
	}

	return headers
}

// responseHeaders builds the header set returned to the client. Kept
// disjoint from the upstream set: no identity material beyond the lane.
func (p *Pipeline) responseHeaders(cls *classifier.Result, stages []Stage) map[string]string {
	prefix := p.headerPrefix
	headers := map[string]string{
		prefix + "-Lane":      string(cls.Lane),
		prefix + "-Processed": "true",
	}

	if p.debug {
		parts := make([]string, len(stages))
		var total int64
		for i, s := range stages {
			parts[i] = s.Name + ":" + s.Result
			total += s.Duration.Milliseconds()
		}
		headers[prefix+"-Stages"] = strings.Join(parts, ",")
		headers[prefix+"-Duration"] = strconv.FormatInt(total, 10)
	}

	return headers
}
