package remoterate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/cache"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/remoterate"
	"github.com/noah-isme/backend-stayrate/internal/resilience"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

func sampleRequest(t *testing.T) remoterate.Request {
	t.Helper()
	r, err := stay.Parse("2024-03-01", "2024-03-03")
	require.NoError(t, err)
	return remoterate.NewRequest(r, 11, 7, 2, "IDR", 2, 1)
}

func TestNewRequestDayUse(t *testing.T) {
	r, err := stay.Parse("2024-03-01", "2024-03-01")
	require.NoError(t, err)
	req := remoterate.NewRequest(r, 1, 2, 0, "", 1, 0)
	require.Equal(t, "2024-03-01", req.StartDate)
	require.Equal(t, "2024-03-01", req.EndDate)
}

func TestHTTPClientDecodesRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/rates", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-API-Key"))
		q := r.URL.Query()
		require.Equal(t, "11", q.Get("ratePlanId"))
		require.Equal(t, "2024-03-01", q.Get("startDate"))
		require.Equal(t, "2024-03-03", q.Get("endDate"))
		require.Equal(t, "1", q.Get("children"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"date":"2024-03-01T00:00:00Z","adultRate":"100.50","childRate":20},
			{"date":"2024-03-02","adultRate":110,"childTotal":"35","childRate":null},
			{"date":"garbage","adultRate":1}
		]}`))
	}))
	t.Cleanup(srv.Close)

	client := remoterate.HTTPClient{
		BaseURL:   srv.URL + "/v2/",
		APIKey:    "secret",
		Transport: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
	}
	rates, err := client.Rates(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.Equal(t, "2024-03-01", rates[0].Date)
	require.True(t, rates[0].AdultRate.Equal(decimal.RequireFromString("100.5")))
	require.True(t, rates[0].Child(2).Equal(decimal.NewFromInt(40)))
	require.Nil(t, rates[1].ChildRate)
	require.True(t, rates[1].Child(3).Equal(decimal.NewFromInt(35)), "child total wins over per-child rate")
}

func TestHTTPClientBareArrayAndErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`[{"date":"2024-03-01","adultRate":"90"}]`))
	}))
	t.Cleanup(srv.Close)

	client := remoterate.HTTPClient{BaseURL: srv.URL, Transport: resilience.HTTPClient{Client: srv.Client()}}
	rates, err := client.Rates(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	require.Len(t, rates, 1)

	status.Store(http.StatusBadRequest)
	_, err = client.Rates(context.Background(), sampleRequest(t))
	var statusErr *resilience.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)

	_, err = remoterate.HTTPClient{}.Rates(context.Background(), sampleRequest(t))
	require.ErrorIs(t, err, remoterate.ErrNotConfigured)
}

func TestCachedStoresSuccessesOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls int32
	fail := true
	next := remoterate.ClientFunc(func(_ context.Context, req remoterate.Request) ([]remoterate.DailyRate, error) {
		atomic.AddInt32(&calls, 1)
		if fail {
			return nil, errors.New("upstream down")
		}
		return []remoterate.DailyRate{{Date: req.StartDate, AdultRate: decimal.NewFromInt(100)}}, nil
	})
	cached := remoterate.Cached{Next: next, Cache: cache.NewJSON(client, time.Minute), Prefix: "test"}
	req := sampleRequest(t)

	_, err = cached.Rates(context.Background(), req)
	require.Error(t, err)
	fail = false
	first, err := cached.Rates(context.Background(), req)
	require.NoError(t, err)
	second, err := cached.Rates(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.True(t, second[0].AdultRate.Equal(first[0].AdultRate))

	other := req
	other.Adults = 3
	_, err = cached.Rates(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls), "different occupancy is a different key")
}

func TestPlanClientReturnsAdultOnly(t *testing.T) {
	store := rateplan.NewStore([]rateplan.RatePlan{{
		ID: 11, RateCodeID: 1, RoomTypeID: 7, SellMode: rateplan.PerPerson,
		Days: map[string]rateplan.DailyRate{
			"2024-03-01": {DefaultRate: decimal.NewFromInt(100), Pax: map[int]decimal.Decimal{2: decimal.NewFromInt(120)}, ChildRate: decimal.NewFromInt(20)},
		},
	}})
	rates, err := remoterate.PlanClient{Plans: store}.Rates(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	require.Len(t, rates, 1, "dates missing from the plan are left out")
	require.True(t, rates[0].AdultRate.Equal(decimal.NewFromInt(120)))
	require.Nil(t, rates[0].ChildRate)
	require.Nil(t, rates[0].ChildTotal)

	_, err = remoterate.PlanClient{}.Rates(context.Background(), sampleRequest(t))
	require.ErrorIs(t, err, remoterate.ErrNotConfigured)
}

func TestStaticClientCopies(t *testing.T) {
	static := remoterate.StaticClient{11: {{Date: "2024-03-01", AdultRate: decimal.NewFromInt(80)}}}
	rates, err := static.Rates(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	rates[0].AdultRate = decimal.Zero
	again, _ := static.Rates(context.Background(), sampleRequest(t))
	require.True(t, again[0].AdultRate.Equal(decimal.NewFromInt(80)))
}
