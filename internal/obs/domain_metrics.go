package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingPassTotal counts row pricing passes by outcome.
	PricingPassTotal *prometheus.CounterVec
	// RemoteRateFetchTotal counts remote rate lookups by result.
	RemoteRateFetchTotal *prometheus.CounterVec
	// RemoteRateFetchLatency records remote lookup latency in milliseconds.
	RemoteRateFetchLatency *prometheus.HistogramVec
	// FallbackFillTotal counts dates priced from the local plan table.
	FallbackFillTotal *prometheus.CounterVec
	// FallbackGapTotal counts dates neither source could price.
	FallbackGapTotal prometheus.Counter
	// StaleRateDiscardedTotal counts pass results dropped because the row changed mid-fetch.
	StaleRateDiscardedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus
// collectors. Extra collectors (breaker gauges and the like) are registered
// alongside and tolerated when already present.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer, extra ...prometheus.Collector) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	domainOnce.Do(func() {
		PricingPassTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_pass_total",
			Help:      "Count of row pricing passes by outcome.",
		}, []string{"result"})
		RemoteRateFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_rate_fetch_total",
			Help:      "Count of remote rate lookups by result.",
		}, []string{"result"})
		RemoteRateFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_rate_fetch_duration_ms",
			Help:      "Latency of remote rate lookups in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		FallbackFillTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_fill_total",
			Help:      "Count of dates filled from the rate-plan table.",
		}, []string{"source"})
		FallbackGapTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_gap_total",
			Help:      "Count of stay dates left unpriced.",
		})
		StaleRateDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_rate_discarded_total",
			Help:      "Count of pricing results discarded because the row changed in flight.",
		})
	})
	registerOrReuse(reg, &PricingPassTotal)
	registerOrReuse(reg, &RemoteRateFetchTotal)
	registerOrReuse(reg, &RemoteRateFetchLatency)
	registerOrReuse(reg, &FallbackFillTotal)
	registerOrReuse(reg, &FallbackGapTotal)
	registerOrReuse(reg, &StaleRateDiscardedTotal)
	for _, c := range extra {
		registerOrReuse(reg, &c)
	}
}
