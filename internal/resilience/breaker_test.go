package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg resilience.BreakerConfig) (*resilience.Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := resilience.NewBreaker(cfg)
	b.SetClock(clock.now)
	return b, clock
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker(resilience.BreakerConfig{MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Minute})

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.advance(59 * time.Second)
	require.False(t, b.Allow(ctx), "still cooling off")

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx), "probe admitted after cool-off")
	require.Equal(t, resilience.HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "single probe while half-open")

	b.Report(ctx, true)
	require.Equal(t, resilience.Closed, b.State())
	require.True(t, b.Allow(ctx))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker(resilience.BreakerConfig{OpenFor: time.Second})

	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx), "cool-off restarts from the failed probe")
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(resilience.BreakerConfig{MinRequests: 4, FailureRatio: 0.5})

	outcomes := []bool{true, false, true, true, false, true, true, true, false, true}
	for _, ok := range outcomes {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, ok)
	}
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerMetrics(t *testing.T) {
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	ctx := context.Background()
	b, clock := newTestBreaker(resilience.BreakerConfig{Target: " remote_rate ", OpenFor: time.Second})
	require.Equal(t, "remote_rate", b.Target())

	gauge := func() float64 { return testutil.ToFloat64(resilience.BreakerState.WithLabelValues("remote_rate")) }
	require.Equal(t, 0.0, gauge())

	b.Report(ctx, false)
	require.Equal(t, 1.0, gauge())

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, 2.0, gauge())

	b.Report(ctx, true)
	require.Equal(t, 0.0, gauge())

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("remote_rate")))
	for _, step := range [][2]string{{"closed", "open"}, {"open", "half_open"}, {"half_open", "closed"}} {
		got := testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("remote_rate", step[0], step[1]))
		require.Equalf(t, 1.0, got, "%s -> %s", step[0], step[1])
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "half_open", resilience.HalfOpen.String())
	require.Equal(t, "unknown", resilience.State(7).String())
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 0, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))
	require.Equal(t, 100*time.Millisecond, resilience.Backoff(0, 1, 0))

	for i := 0; i < 20; i++ {
		d := resilience.Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, 160*time.Millisecond)
		require.LessOrEqual(t, d, 240*time.Millisecond)
	}
}
