package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/trustgw/internal/botverify"
	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/classifier"
	"github.com/vyrodovalexey/trustgw/internal/config"
	"github.com/vyrodovalexey/trustgw/internal/mtls"
	"github.com/vyrodovalexey/trustgw/internal/observability"
	"github.com/vyrodovalexey/trustgw/internal/pipeline"
	"github.com/vyrodovalexey/trustgw/internal/policy"
	"github.com/vyrodovalexey/trustgw/internal/ratelimit"
	"github.com/vyrodovalexey/trustgw/internal/ratelimit/store"
	"github.com/vyrodovalexey/trustgw/internal/server"
	"github.com/vyrodovalexey/trustgw/internal/vault"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "trustgw"

// application holds all wired components.
type application struct {
	registry        *ca.Registry
	engine          *policy.Engine
	validator       mtls.Validator
	server          *server.Server
	tracer          *observability.Tracer
	limitStore      store.Store
	shutdownTimeout time.Duration
	logger          observability.Logger
}

// newApplication wires every component from the configuration.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	promRegistry := prometheus.NewRegistry()

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	registry, err := initCARegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init CA registry: %w", err)
	}

	engine := policy.NewEngine(policy.WithEngineLogger(logger), policy.WithEngineMetrics(engineMetrics(promRegistry)))
	policies, err := config.BuildPolicies(cfg)
	if err != nil {
		return nil, fmt.Errorf("build policies: %w", err)
	}
	if err := engine.LoadPolicies(policies); err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	verifierMetrics := botverify.NewMetrics(metricsNamespace)
	verifierMetrics.MustRegister(promRegistry)
	verifier := botverify.NewGooglebotVerifier(
		botverify.WithResolver(botverify.NewBreakerResolver(nil)),
		botverify.WithVerifierLogger(logger),
		botverify.WithVerifierMetrics(verifierMetrics),
	)

	classifierMetrics := classifier.NewMetrics(metricsNamespace)
	classifierMetrics.MustRegister(promRegistry)
	cls := classifier.New(verifier,
		classifier.WithLogger(logger),
		classifier.WithMetrics(classifierMetrics),
	)

	mtlsMetrics := mtls.NewMetrics(metricsNamespace)
	mtlsMetrics.MustRegister(promRegistry)
	validator := mtls.NewValidator(registry,
		mtls.WithLogger(logger),
		mtls.WithMetrics(mtlsMetrics),
		mtls.WithPolicy(config.BuildMTLSPolicy(cfg)),
	)

	pipelineMetrics := pipeline.NewMetrics(metricsNamespace)
	pipelineMetrics.MustRegister(promRegistry)
	pl := pipeline.New(cls, validator, engine,
		pipeline.WithHeaderPrefix(cfg.Pipeline.HeaderPrefix),
		pipeline.WithDebug(cfg.Pipeline.Debug),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(tracer),
		pipeline.WithMetrics(pipelineMetrics),
	)

	enforcer, limitStore, err := initEnforcer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	srv := server.New(&server.Config{
		ListenAddress: cfg.Server.ListenAddress,
		ReadTimeout:   cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:  cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:   cfg.Server.IdleTimeout.Duration(),
		GuardRPS:      cfg.Server.GuardRPS,
		GuardBurst:    cfg.Server.GuardBurst,
	}, pl, enforcer,
		server.WithLogger(logger),
		server.WithMetricsRegistry(promRegistry),
	)

	return &application{
		registry:        registry,
		engine:          engine,
		validator:       validator,
		server:          srv,
		tracer:          tracer,
		limitStore:      limitStore,
		shutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
		logger:          logger,
	}, nil
}

// engineMetrics builds policy metrics registered on the shared
// registry.
func engineMetrics(promRegistry *prometheus.Registry) *policy.Metrics {
	m := policy.NewMetrics(metricsNamespace)
	m.MustRegister(promRegistry)
	return m
}

// initTracer builds the tracer from config; disabled tracing yields a
// nil tracer and the pipeline skips spans.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}
	return observability.NewTracer(observability.TracerConfig{
		Enabled:      true,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SampleRate,
	})
}

// initCARegistry loads trusted CAs from config and, when enabled, from
// Vault. Vault entries override config entries with the same
// fingerprint.
func initCARegistry(cfg *config.Config, logger observability.Logger) (*ca.Registry, error) {
	registry := ca.NewRegistry(ca.WithRegistryLogger(logger))

	for _, trustedCA := range config.BuildTrustedCAs(cfg) {
		registry.RegisterCA(trustedCA)
	}

	if cfg.Vault.Enabled {
		source, err := vault.New(&vault.Config{
			Enabled: true,
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Path:    cfg.Vault.Path,
		}, vault.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cas, err := source.LoadTrustedCAs(ctx)
		if err != nil {
			return nil, err
		}
		for _, trustedCA := range cas {
			registry.RegisterCA(trustedCA)
		}
	}

	return registry, nil
}

// initEnforcer builds the rate limit enforcer and its store.
func initEnforcer(cfg *config.Config, logger observability.Logger) (ratelimit.Enforcer, store.Store, error) {
	if !cfg.RateLimit.Enabled {
		return ratelimit.NewNoopEnforcer(), nil, nil
	}

	var s store.Store
	switch cfg.RateLimit.Backend {
	case "redis":
		redisCfg := store.DefaultRedisConfig()
		redisCfg.Address = cfg.RateLimit.Redis.Address
		redisCfg.Password = cfg.RateLimit.Redis.Password
		redisCfg.DB = cfg.RateLimit.Redis.DB
		if cfg.RateLimit.Redis.Prefix != "" {
			redisCfg.Prefix = cfg.RateLimit.Redis.Prefix
		}
		redisCfg.Logger = logger

		redisStore, err := store.NewRedisStore(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		s = redisStore
	default:
		s = store.NewMemoryStore()
	}

	return ratelimit.NewFixedWindowEnforcer(s, ratelimit.WithLogger(logger)), s, nil
}

// reload applies a changed configuration. Only the policy set, the
// mTLS validation policy, and the CA registry reload at runtime;
// server and store changes need a restart.
func (a *application) reload(cfg *config.Config) error {
	policies, err := config.BuildPolicies(cfg)
	if err != nil {
		return err
	}
	if err := a.engine.LoadPolicies(policies); err != nil {
		return err
	}

	a.validator.SetPolicy(config.BuildMTLSPolicy(cfg))

	for _, trustedCA := range config.BuildTrustedCAs(cfg) {
		a.registry.RegisterCA(trustedCA)
	}

	a.logger.Info("configuration applied",
		observability.Int("policies", len(policies)),
		observability.Int("trusted_cas", len(cfg.TrustedCAs)),
	)
	return nil
}

// shutdown stops every component, logging failures instead of
// aborting so each gets its chance to stop.
func (a *application) shutdown(ctx context.Context, logger observability.Logger) {
	if err := a.server.Stop(ctx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if a.limitStore != nil {
		if err := a.limitStore.Close(); err != nil {
			logger.Error("failed to close rate limit store", observability.Error(err))
		}
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
