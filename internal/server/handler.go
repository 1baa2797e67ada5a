package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/config"
	"github.com/vyrodovalexey/trustgw/internal/mtls"
	"github.com/vyrodovalexey/trustgw/internal/observability"
	"github.com/vyrodovalexey/trustgw/internal/pipeline"
	"github.com/vyrodovalexey/trustgw/internal/ratelimit"
)

// Headers the edge proxy sets on the callout subrequest.
const (
	HeaderOriginalURI    = "x-original-uri"
	HeaderOriginalMethod = "x-original-method"
	HeaderRealIP         = "x-real-ip"
	HeaderForwardedFor   = "x-forwarded-for"
)

// DecisionResponse is the JSON body of a decision callout.
type DecisionResponse struct {
	Allowed         bool              `json:"allowed"`
	Lane            string            `json:"lane"`
	Identity        IdentityResponse  `json:"identity"`
	RateLimit       *RateLimitStatus  `json:"rateLimit,omitempty"`
	Stages          []StageResponse   `json:"stages,omitempty"`
	UpstreamHeaders map[string]string `json:"upstreamHeaders"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
}

// IdentityResponse is the identity view in a decision response.
type IdentityResponse struct {
	Type        string   `json:"type"`
	ID          string   `json:"id,omitempty"`
	Verified    bool     `json:"verified"`
	TrustLevel  string   `json:"trustLevel"`
	Permissions []string `json:"permissions,omitempty"`
}

// RateLimitStatus reports enforcement of the decision's rate limit.
type RateLimitStatus struct {
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
	ResetAfter int64 `json:"resetAfterSeconds"`
}

// StageResponse is one pipeline stage in a debug response.
type StageResponse struct {
	Name       string `json:"name"`
	Result     string `json:"result"`
	DurationMS int64  `json:"durationMs"`
}

// DecisionHandler answers decision callouts.
type DecisionHandler struct {
	pipeline *pipeline.Pipeline
	enforcer ratelimit.Enforcer
	logger   observability.Logger
}

// NewDecisionHandler creates a decision handler. A nil enforcer
// disables rate limit enforcement; decisions still carry the limit.
func NewDecisionHandler(pl *pipeline.Pipeline, enforcer ratelimit.Enforcer, logger observability.Logger) *DecisionHandler {
	if enforcer == nil {
		enforcer = ratelimit.NewNoopEnforcer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &DecisionHandler{
		pipeline: pl,
		enforcer: enforcer,
		logger:   logger,
	}
}

// Handle processes one decision callout. The verdict maps to the
// status code: 200 allowed, 403 denied, 429 over the rate limit, so a
// plain auth subrequest needs no body parsing.
func (h *DecisionHandler) Handle(c *gin.Context) {
	req := buildRequestContext(c)

	result := h.pipeline.Process(c.Request.Context(), req)

	resp := &DecisionResponse{
		Allowed:         result.Allowed,
		Lane:            string(result.Lane),
		Identity:        buildIdentityResponse(result.Identity),
		UpstreamHeaders: result.UpstreamHeaders,
		ResponseHeaders: result.ResponseHeaders,
	}
	for _, stage := range result.Stages {
		resp.Stages = append(resp.Stages, StageResponse{
			Name:       stage.Name,
			Result:     stage.Result,
			DurationMS: stage.Duration.Milliseconds(),
		})
	}

	// The proxy reads both maps off the subrequest response: upstream
	// headers get copied onto the proxied request, response headers
	// onto the client response.
	for name, value := range result.UpstreamHeaders {
		c.Header(name, value)
	}
	for name, value := range result.ResponseHeaders {
		c.Header(name, value)
	}

	if !result.Allowed {
		c.JSON(http.StatusForbidden, resp)
		return
	}

	if result.RateLimit != nil {
		status, ok := h.enforce(c, req, result)
		resp.RateLimit = status
		if !ok {
			resp.Allowed = false
			c.JSON(http.StatusTooManyRequests, resp)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// enforce counts the request against the decision's rate limit. Store
// failures fail open: an unreachable counter store must not take the
// edge down.
func (h *DecisionHandler) enforce(c *gin.Context, req *classifier.RequestContext, result *pipeline.Result) (*RateLimitStatus, bool) {
	limit := config.BuildRateLimit(result.RateLimit)
	key := ratelimit.Key(classifier.Identity{
		Type:     result.Identity.Type,
		ClientID: result.Identity.ID,
		BotName:  result.Identity.ID,
		Verified: result.Identity.Verified,
	}, req.IP)

	rlResult, err := h.enforcer.Allow(c.Request.Context(), key, limit)
	if err != nil {
		h.logger.Warn("rate limit check failed",
			observability.String("key", key),
			observability.Error(err),
		)
		return nil, true
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rlResult.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(rlResult.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(rlResult.ResetAfter.Seconds()), 10))
	if !rlResult.Allowed {
		c.Header("Retry-After", strconv.FormatInt(int64(rlResult.RetryAfter.Seconds())+1, 10))
	}

	return &RateLimitStatus{
		Limit:      rlResult.Limit,
		Remaining:  rlResult.Remaining,
		ResetAfter: int64(rlResult.ResetAfter.Seconds()),
	}, rlResult.Allowed
}

// buildRequestContext assembles the pipeline input from the callout
// subrequest. The proxy forwards the original request's headers, so
// the subrequest's own headers describe the inbound request.
func buildRequestContext(c *gin.Context) *classifier.RequestContext {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	return &classifier.RequestContext{
		IP:        clientIP(c),
		UserAgent: c.Request.UserAgent(),
		URI:       c.GetHeader(HeaderOriginalURI),
		Method:    strings.ToUpper(c.GetHeader(HeaderOriginalMethod)),
		Headers:   headers,
		MTLS: classifier.MTLSInfo{
			Verified:    c.GetHeader(mtls.HeaderVerify) == mtls.VerifySuccess,
			ClientID:    c.GetHeader(mtls.HeaderClientID),
			Fingerprint: c.GetHeader(mtls.HeaderFingerprint),
			Serial:      c.GetHeader(mtls.HeaderSerial),
			Subject:     c.GetHeader(mtls.HeaderSubject),
			Issuer:      c.GetHeader(mtls.HeaderIssuer),
		},
	}
}

// clientIP resolves the original client IP from proxy headers, falling
// back to the connection address.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader(HeaderRealIP); ip != "" {
		return ip
	}
	if xff := c.GetHeader(HeaderForwardedFor); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return c.ClientIP()
}

func buildIdentityResponse(identity pipeline.IdentitySummary) IdentityResponse {
	return IdentityResponse{
		Type:        string(identity.Type),
		ID:          identity.ID,
		Verified:    identity.Verified,
		TrustLevel:  identity.TrustLevel,
		Permissions: identity.Permissions,
	}
}
