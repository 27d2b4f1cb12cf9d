package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-stayrate/internal/health"
	"github.com/noah-isme/backend-stayrate/internal/obs"
	"github.com/noah-isme/backend-stayrate/internal/quote"
	"github.com/noah-isme/backend-stayrate/internal/security"
)

const maxRequestBytes = 1 << 20

// RouterOptions toggles the optional observability middleware.
type RouterOptions struct {
	Tracing     bool
	HTTPMetrics *obs.HTTPMetrics
}

// NewRouter mounts health, metrics and the /api/v1 quote routes.
func NewRouter(d *Dependencies, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.Config.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{NoStore: true, EnableHSTS: d.Config.AppEnv == "production"}.Middleware)

	if d.Config.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(d.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	healthHandler := health.Handler{Probes: d.Probes()}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	quotes := quote.NewHandler(quote.HandlerConfig{Service: d.Quotes})
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: maxRequestBytes}.Middleware)
		quotes.Routes(v, d.QuoteLimiter())
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
