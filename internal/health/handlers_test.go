package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/health"
)

func staticProbe(name string, err error) health.Probe {
	return health.Probe{Name: name, Check: func(context.Context) error { return err }}
}

func readiness(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	status := map[string]string{}
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	}
	return rr.Code, status
}

func TestLiveAlwaysOK(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyProbes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cases := []struct {
		name   string
		probes []health.Probe
		code   int
		want   map[string]string
	}{
		{
			name:   "all healthy",
			probes: []health.Probe{staticProbe("rate_plans", nil), health.RedisProbe(client, 50*time.Millisecond)},
			code:   http.StatusOK,
			want:   map[string]string{"rate_plans": "ok", "redis": "ok"},
		},
		{
			name:   "one failing",
			probes: []health.Probe{staticProbe("db", errors.New("db down")), staticProbe("rate_plans", nil)},
			code:   http.StatusServiceUnavailable,
			want:   map[string]string{"db": "db down", "rate_plans": "ok"},
		},
		{
			name:   "unconfigured clients",
			probes: []health.Probe{health.DBProbe(nil, 0), health.RedisProbe(nil, 0)},
			code:   http.StatusServiceUnavailable,
			want:   map[string]string{"db": "database not configured", "redis": "redis not configured"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, status := readiness(t, health.Handler{Probes: tc.probes})
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestReadyProbeTimeout(t *testing.T) {
	slow := health.Probe{Name: "remote", Timeout: 5 * time.Millisecond, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	code, status := readiness(t, health.Handler{Probes: []health.Probe{slow}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, context.DeadlineExceeded.Error(), status["remote"])
}

func TestReadyFalseDuringShutdown(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })
	h := health.Handler{Probes: []health.Probe{staticProbe("rate_plans", nil)}}

	code, _ := readiness(t, h)
	require.Equal(t, http.StatusOK, code)

	health.SetReady(false)
	code, _ = readiness(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
}
