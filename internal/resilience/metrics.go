package resilience

import "github.com/prometheus/client_golang/prometheus"

// Collectors for breakers and retrying clients, labelled by downstream target.
// They are registered by the caller through Collectors.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breaker_state",
		Help: "Breaker state per target (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_transition_total",
		Help: "Breaker state transitions per target.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_open_total",
		Help: "Times a breaker opened, per target.",
	}, []string{"target"})

	RetryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_retry_total",
		Help: "Retried outbound HTTP attempts per target and cause.",
	}, []string{"target", "cause"})
)

// Collectors returns every collector declared by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{BreakerState, BreakerTransitions, BreakerOpenedTotal, RetryTotal}
}
