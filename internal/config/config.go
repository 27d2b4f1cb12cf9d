package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	RatePlansFile      string
	CORSAllowedOrigins []string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBucketsMS string
	TracingEnabled   bool
	TracingExporter  string
	TracingEndpoint  string
	TracingSampling  float64

	RemoteRateBaseURL  string
	RemoteRateAPIKey   string
	RemoteRateTimeout  time.Duration
	RemoteRateCacheTTL time.Duration
	RatePlanCacheTTL   time.Duration

	PricingConcurrency int
	PricingMaxReruns   int

	CircuitRemoteMinRequests  int
	CircuitRemoteFailureRatio float64
	CircuitRemoteOpenFor      time.Duration
	RetryBase                 time.Duration
	RetryMaxAttempts          int
	RetryJitterPercent        int

	QuoteRateLimitMax    int
	QuoteRateLimitWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		RatePlansFile:      strings.TrimSpace(k.String("RATE_PLANS_FILE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "stayrate"),
		MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBucketsMS: strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingEndpoint:  strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),

		RemoteRateBaseURL:  strings.TrimRight(strings.TrimSpace(k.String("REMOTE_RATE_BASE_URL")), "/"),
		RemoteRateAPIKey:   strings.TrimSpace(k.String("REMOTE_RATE_API_KEY")),
		RemoteRateTimeout:  parseDuration(k.String("REMOTE_RATE_TIMEOUT"), "3s"),
		RemoteRateCacheTTL: parseDuration(k.String("REMOTE_RATE_CACHE_TTL"), "60s"),
		RatePlanCacheTTL:   parseDuration(k.String("RATE_PLAN_CACHE_TTL"), "5m"),

		PricingConcurrency: parseInt(k.String("PRICING_CONCURRENCY"), 4),
		PricingMaxReruns:   parseInt(k.String("PRICING_MAX_RERUNS"), 3),

		CircuitRemoteMinRequests:  parseInt(k.String("CIRCUIT_REMOTE_MIN_REQ"), 10),
		CircuitRemoteFailureRatio: parseFloat(k.String("CIRCUIT_REMOTE_FAILURE_RATE"), 0.5),
		CircuitRemoteOpenFor:      parseDuration(k.String("CIRCUIT_REMOTE_OPEN_FOR"), "30s"),
		RetryBase:                 parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:          parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent:        parseInt(k.String("RETRY_JITTER_PERCENT"), 20),

		QuoteRateLimitMax:    parseInt(k.String("QUOTE_RATE_LIMIT_MAX"), 60),
		QuoteRateLimitWindow: parseDuration(k.String("QUOTE_RATE_LIMIT_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" && cfg.RatePlansFile == "" {
		return nil, fmt.Errorf("one of DATABASE_URL or RATE_PLANS_FILE is required")
	}
	if cfg.PricingConcurrency < 1 {
		return nil, fmt.Errorf("PRICING_CONCURRENCY must be at least 1, got %d", cfg.PricingConcurrency)
	}
	if cfg.CircuitRemoteFailureRatio <= 0 || cfg.CircuitRemoteFailureRatio > 1 {
		return nil, fmt.Errorf("CIRCUIT_REMOTE_FAILURE_RATE must be in (0,1], got %v", cfg.CircuitRemoteFailureRatio)
	}
	if cfg.RetryJitterPercent < 0 || cfg.RetryJitterPercent > 100 {
		return nil, fmt.Errorf("RETRY_JITTER_PERCENT must be in [0,100], got %d", cfg.RetryJitterPercent)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RetryJitter returns the jitter fraction for the remote rate client.
func (c *Config) RetryJitter() float64 {
	return float64(c.RetryJitterPercent) / 100
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
