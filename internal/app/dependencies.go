package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-stayrate/internal/cache"
	"github.com/noah-isme/backend-stayrate/internal/config"
	"github.com/noah-isme/backend-stayrate/internal/health"
	"github.com/noah-isme/backend-stayrate/internal/lock"
	"github.com/noah-isme/backend-stayrate/internal/obs"
	"github.com/noah-isme/backend-stayrate/internal/quote"
	"github.com/noah-isme/backend-stayrate/internal/ratelimit"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/remoterate"
	"github.com/noah-isme/backend-stayrate/internal/reservation"
	"github.com/noah-isme/backend-stayrate/internal/resilience"
)

// Dependencies holds the services shared by the HTTP layer. DB and Redis are
// nil when the corresponding URL is not configured.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	DB              *pgxpool.Pool
	Redis           *redis.Client
	Validator       *validator.Validate
	MetricsRegistry *prometheus.Registry
	Plans           *rateplan.Store
	Breaker         *resilience.Breaker
	Remote          remoterate.Client
	Engine          *reservation.Engine
	Quotes          *quote.Service
}

// Build connects to the configured backends, loads the rate-plan table and
// assembles the pricing engine.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	d := &Dependencies{
		Config:          cfg,
		Logger:          logger,
		Validator:       reservation.NewValidator(),
		MetricsRegistry: prometheus.NewRegistry(),
	}
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, d.MetricsRegistry, resilience.Collectors()...)

	if err := d.connect(ctx); err != nil {
		d.Close()
		return nil, err
	}

	plans, err := rateplan.Load(ctx, d.planLoader())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load rate plans: %w", err)
	}
	d.Plans = plans
	logger.Info().Int("plans", plans.Len()).Msg("rate_plans_loaded")

	d.Remote = d.remoteClient()
	d.Engine = &reservation.Engine{
		Plans:       plans,
		Remote:      d.Remote,
		Logger:      obs.Component(logger, "pricing"),
		Concurrency: cfg.PricingConcurrency,
		MaxReruns:   cfg.PricingMaxReruns,
	}
	d.Quotes, err = quote.NewService(quote.ServiceConfig{
		Plans:     plans,
		Engine:    d.Engine,
		Validator: d.Validator,
		Logger:    obs.Component(logger, "quote"),
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) connect(ctx context.Context) error {
	cfg := d.Config
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("parse database config: %w", err)
		}
		poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
		if poolConfig.ConnConfig.RuntimeParams == nil {
			poolConfig.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "stayrate-api"
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		d.DB = pool
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		d.Redis = client
		if err := redisotel.InstrumentTracing(client); err != nil {
			d.Logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if cfg.MetricsEnabled {
			if err := redisotel.InstrumentMetrics(client); err != nil {
				d.Logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	return nil
}

// planLoader picks Postgres when configured, otherwise the JSON file, and
// puts the Redis cache in front when Redis is available.
func (d *Dependencies) planLoader() rateplan.Loader {
	var source rateplan.Loader = rateplan.FileLoader{Path: d.Config.RatePlansFile}
	if d.DB != nil {
		source = rateplan.PGLoader{DB: d.DB}
	}
	if d.Redis == nil {
		return source
	}
	return rateplan.CachedLoader{
		Source:  source,
		Cache:   cache.NewJSON(d.Redis, d.Config.RatePlanCacheTTL),
		Locker:  lock.Locker{R: d.Redis, Prefix: "stayrate"},
		LockTTL: 10 * time.Second,
		Logger:  obs.Component(d.Logger, "rateplan"),
	}
}

// remoteClient returns the HTTP client behind a circuit breaker and the
// response cache, or plan-only pricing when no remote service is configured.
func (d *Dependencies) remoteClient() remoterate.Client {
	cfg := d.Config
	if cfg.RemoteRateBaseURL == "" {
		d.Logger.Info().Msg("remote_rate_disabled")
		return remoterate.PlanClient{Plans: d.Plans}
	}
	d.Breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "remote_rate",
		MinRequests:  cfg.CircuitRemoteMinRequests,
		FailureRatio: cfg.CircuitRemoteFailureRatio,
		OpenFor:      cfg.CircuitRemoteOpenFor,
	}).WithLogger(*obs.Component(d.Logger, "remote_rate"))

	var client remoterate.Client = remoterate.HTTPClient{
		BaseURL: cfg.RemoteRateBaseURL,
		APIKey:  cfg.RemoteRateAPIKey,
		Transport: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     d.Breaker,
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitter(),
			Timeout:     cfg.RemoteRateTimeout,
			Logger:      obs.Component(d.Logger, "remote_rate"),
		},
	}
	if d.Redis != nil && cfg.RemoteRateCacheTTL > 0 {
		client = remoterate.Cached{
			Next:   client,
			Cache:  cache.NewJSON(d.Redis, cfg.RemoteRateCacheTTL),
			Prefix: "stayrate",
			Logger: obs.Component(d.Logger, "remote_rate"),
		}
	}
	return client
}

// QuoteLimiter returns the rate limit middleware for the quote endpoints.
func (d *Dependencies) QuoteLimiter() func(http.Handler) http.Handler {
	var limiter ratelimit.Allower = ratelimit.NewMemoryLimiter("stayrate:quotes")
	if d.Redis != nil {
		limiter = ratelimit.Limiter{Client: d.Redis, Prefix: "stayrate:ratelimit:"}
	}
	return ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("quotes"),
			Window: d.Config.QuoteRateLimitWindow,
			Max:    d.Config.QuoteRateLimitMax,
		},
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate_limit_unavailable")
		},
	}.Middleware
}

// Probes lists the readiness checks for the configured backends.
func (d *Dependencies) Probes() []health.Probe {
	probes := []health.Probe{{
		Name: "rate_plans",
		Check: func(context.Context) error {
			if d.Plans == nil || d.Plans.Len() == 0 {
				return errors.New("no rate plans loaded")
			}
			return nil
		},
	}}
	if d.DB != nil {
		probes = append(probes, health.DBProbe(d.DB, 500*time.Millisecond))
	}
	if d.Redis != nil {
		probes = append(probes, health.RedisProbe(d.Redis, 300*time.Millisecond))
	}
	return probes
}

// Close releases backend connections.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
