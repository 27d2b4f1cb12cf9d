package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// BreakerConfig tunes a Breaker. Zero values fall back to defaults.
type BreakerConfig struct {
	Target       string
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

func (c BreakerConfig) normalized() BreakerConfig {
	c.Target = strings.TrimSpace(c.Target)
	if c.Target == "" {
		c.Target = "default"
	}
	if c.MinRequests <= 0 {
		c.MinRequests = 1
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.FailureRatio > 1 {
		c.FailureRatio = 1
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	return c
}

// counts is the outcome tally of the closed state.
type counts struct {
	ok, failed int
}

func (c counts) total() int { return c.ok + c.failed }

func (c counts) ratio() float64 {
	if c.total() == 0 {
		return 0
	}
	return float64(c.failed) / float64(c.total())
}

// halve keeps the tally bounded so old outcomes fade.
func (c counts) halve() counts {
	return counts{ok: (c.ok + 1) / 2, failed: (c.failed + 1) / 2}
}

// Breaker is a failure-ratio circuit breaker guarding one downstream target.
type Breaker struct {
	cfg    BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	tally    counts
	openedAt time.Time
	probing  bool
}

// NewBreaker builds a closed breaker. It opens once MinRequests outcomes are
// seen and the failure ratio reaches FailureRatio.
func NewBreaker(cfg BreakerConfig) *Breaker {
	b := &Breaker{cfg: cfg.normalized(), logger: zerolog.Nop(), now: time.Now}
	BreakerState.WithLabelValues(b.cfg.Target).Set(gaugeValue(Closed))
	return b
}

// WithLogger sets the fallback logger for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
	return b
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Target is the metrics label of the breaker.
func (b *Breaker) Target() string { return b.cfg.Target }

// Allow reports whether a call may proceed. Once the cool-off elapses an open
// breaker lets exactly one probe through and turns half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
	}
	if b.probing {
		return false
	}
	b.probing = true
	return true
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	if success {
		b.tally.ok++
	} else {
		b.tally.failed++
	}
	if b.tally.total() < b.cfg.MinRequests {
		return
	}
	if b.tally.ratio() >= b.cfg.FailureRatio {
		b.moveLocked(ctx, Open)
		return
	}
	if b.tally.total() > 2*b.cfg.MinRequests {
		b.tally = b.tally.halve()
	}
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.tally = counts{}
	if next == Open {
		b.openedAt = b.now()
	}

	target := b.cfg.Target
	BreakerState.WithLabelValues(target).Set(gaugeValue(next))
	BreakerTransitions.WithLabelValues(target, prev.String(), next.String()).Inc()
	if next == Open {
		BreakerOpenedTotal.WithLabelValues(target).Inc()
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &b.logger
	}
	evt := logger.Info().Str("target", target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func gaugeValue(s State) float64 {
	switch s {
	case Closed, Open, HalfOpen:
		return float64(s)
	default:
		return -1
	}
}
