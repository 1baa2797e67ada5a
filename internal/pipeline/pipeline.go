package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/mtls"
	"github.com/vyrodovalexey/trustgw/internal/observability"
	"github.com/vyrodovalexey/trustgw/internal/policy"
)

// DefaultHeaderPrefix is the prefix for upstream and response headers.
const DefaultHeaderPrefix = "X-Trust"

// Stage names.
const (
	StageClassification  = "classification"
	StageMTLSValidation  = "mtls-validation"
	StagePolicyEvaluation = "policy-evaluation"
)

// Stage results.
const (
	StagePass = "pass"
	StageFail = "fail"
	StageSkip = "skip"
)

// Stage records one pipeline step for the audit trail.
type Stage struct {
	Name     string
	Duration time.Duration
	Result   string
	Details  map[string]any
}

// IdentitySummary is the identity view exposed upstream: type, id,
// verification state, and the trust material derived from it.
type IdentitySummary struct {
	Type        classifier.IdentityType
	ID          string
	Verified    bool
	TrustLevel  string
	Permissions []string
}

// Result is the final verdict for one request.
type Result struct {
	Allowed   bool
	Lane      classifier.TrustLane
	Identity  IdentitySummary
	RateLimit *policy.RateLimit
	Stages    []Stage

	// UpstreamHeaders are added to the proxied request. They carry
	// identity material and must never reach the client.
	UpstreamHeaders map[string]string

	// ResponseHeaders go back to the client. Disjoint from
	// UpstreamHeaders so permission scopes never leak.
	ResponseHeaders map[string]string
}

// Pipeline runs the three-stage decision flow.
type Pipeline struct {
	classifier *classifier.Classifier
	validator  mtls.Validator
	engine     *policy.Engine

	headerPrefix string
	debug        bool
	logger       observability.Logger
	tracer       *observability.Tracer
	metrics      *Metrics
	now          func() time.Time
}

// Option is a functional option for the pipeline.
type Option func(*Pipeline)

// WithHeaderPrefix overrides the upstream/response header prefix.
func WithHeaderPrefix(prefix string) Option {
	return func(p *Pipeline) {
		if prefix != "" {
			p.headerPrefix = prefix
		}
	}
}

// WithDebug enables the stage trace and duration response headers.
func WithDebug(debug bool) Option {
	return func(p *Pipeline) {
		p.debug = debug
	}
}

// WithLogger sets the logger for the pipeline.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracer sets the tracer for per-stage spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithMetrics sets the metrics for the pipeline.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline over the given components.
func New(cls *classifier.Classifier, validator mtls.Validator, engine *policy.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier:   cls,
		validator:    validator,
		engine:       engine,
		headerPrefix: DefaultHeaderPrefix,
		logger:       observability.NopLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics("trustgw")
	}
	return p
}

// Process runs the request through classification, mTLS validation,
// and policy evaluation. Classification always runs; a blocked lane
// returns immediately with no further stages. Validation runs only
// when the proxy reported a verified handshake. Policy always runs
// otherwise, even after a validation failure, so deny rules can fire
// on whatever identity was resolved.
func (p *Pipeline) Process(ctx context.Context, req *classifier.RequestContext) *Result {
	start := p.now()
	var stages []Stage

	// Stage 1: classification.
	clsStart := p.now()
	spanCtx, span := p.startSpan(ctx, "pipeline.classification")
	classification := p.classifier.Classify(spanCtx, req)
	p.endSpan(span)

	clsResult := StagePass
	if classification.Lane == classifier.LaneBlocked {
		clsResult = StageFail
	}
	stages = append(stages, Stage{
		Name:     StageClassification,
		Duration: p.now().Sub(clsStart),
		Result:   clsResult,
		Details: map[string]any{
			"lane":       string(classification.Lane),
			"identity":   string(classification.Identity.Type),
			"risk_score": classification.Metadata.RiskScore,
		},
	})

	if classification.Lane == classifier.LaneBlocked {
		return p.finish(start, false, classification, nil, nil, stages)
	}

	// Stage 2: mTLS validation, only on a verified handshake.
	var mtlsClaim *ca.ClientIdentityClaim
	if req.MTLS.Verified {
		mtlsStart := p.now()
		_, span := p.startSpan(ctx, "pipeline.mtls_validation")
		validation := p.validator.ValidateFromHeaders(req.Headers)
		p.endSpan(span)

		result := StageFail
		if validation.Valid {
			result = StagePass
			mtlsClaim = validation.Identity
		}
		stages = append(stages, Stage{
			Name:     StageMTLSValidation,
			Duration: p.now().Sub(mtlsStart),
			Result:   result,
			Details: map[string]any{
				"valid":    validation.Valid,
				"errors":   validation.ErrorCodes(),
				"warnings": validation.Warnings,
			},
		})
	} else {
		stages = append(stages, Stage{
			Name:    StageMTLSValidation,
			Result:  StageSkip,
			Details: map[string]any{"reason": "No mTLS certificate presented"},
		})
	}

	// Stage 3: policy evaluation.
	polStart := p.now()
	_, span = p.startSpan(ctx, "pipeline.policy_evaluation")
	decision := p.engine.Evaluate(&policy.EvaluationContext{
		Lane:      classification.Lane,
		Identity:  classification.Identity,
		MTLSClaim: mtlsClaim,
		Path:      pathOrDefault(req.URI),
		Method:    methodOrDefault(req.Method),
		IP:        req.IP,
		Headers:   req.Headers,
		Timestamp: p.now(),
	})
	p.endSpan(span)

	result := StageFail
	if decision.Allowed() {
		result = StagePass
	}
	details := map[string]any{
		"action": string(decision.Action),
		"reason": decision.Reason,
	}
	if decision.MatchedPolicy != nil {
		details["matched_policy"] = decision.MatchedPolicy.Name
	}
	stages = append(stages, Stage{
		Name:     StagePolicyEvaluation,
		Duration: p.now().Sub(polStart),
		Result:   result,
		Details:  details,
	})

	return p.finish(start, decision.Allowed(), classification, mtlsClaim, decision, stages)
}

func pathOrDefault(uri string) string {
	if uri == "" {
		return "/"
	}
	return uri
}

func methodOrDefault(method string) string {
	if method == "" {
		return "GET"
	}
	return method
}

// startSpan opens a stage span, or a no-op span when tracing is off.
func (p *Pipeline) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p.tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return p.tracer.StartSpan(ctx, name, attrs...)
}

func (p *Pipeline) endSpan(span trace.Span) {
	span.End()
}

func (p *Pipeline) finish(start time.Time, allowed bool, cls *classifier.Result, claim *ca.ClientIdentityClaim, decision *policy.Decision, stages []Stage) *Result {
	identity := summarizeIdentity(cls, claim)

	res := &Result{
		Allowed:         allowed,
		Lane:            cls.Lane,
		Identity:        identity,
		Stages:          stages,
		UpstreamHeaders: p.upstreamHeaders(cls, identity),
		ResponseHeaders: p.responseHeaders(cls, stages),
	}
	if decision != nil {
		res.RateLimit = decision.RateLimit
	}

	p.metrics.RecordDecision(string(cls.Lane), allowed, p.now().Sub(start))
	p.logger.Info("trust decision",
		observability.Bool("allowed", allowed),
		observability.String("lane", string(cls.Lane)),
		observability.String("identity_type", string(identity.Type)),
		observability.Int("risk_score", cls.Metadata.RiskScore),
	)
	return res
}

// summarizeIdentity derives the upstream identity view. A validated
// mTLS claim wins; a bot identity carries vendor trust only when
// verified; anonymous carries nothing.
func summarizeIdentity(cls *classifier.Result, claim *ca.ClientIdentityClaim) IdentitySummary {
	if claim != nil {
		return IdentitySummary{
			Type:        classifier.IdentityMTLS,
			ID:          claim.ClientID,
			Verified:    true,
			TrustLevel:  string(claim.TrustLevel),
			Permissions: append([]string(nil), claim.Permissions...),
		}
	}
	if cls.Identity.Type == classifier.IdentityBot {
		trustLevel := "none"
		if cls.Identity.Verified {
			trustLevel = string(ca.TrustLevelVendor)
		}
		return IdentitySummary{
			Type:        classifier.IdentityBot,
			ID:          cls.Identity.BotName,
			Verified:    cls.Identity.Verified,
			TrustLevel:  trustLevel,
			Permissions: []string{"read"},
		}
	}
	return IdentitySummary{
		Type:       classifier.IdentityAnonymous,
		Verified:   false,
		TrustLevel: "none",
	}
}
