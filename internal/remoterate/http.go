package remoterate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-stayrate/internal/resilience"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

const maxResponseBytes = 1 << 20

// HTTPClient calls the remote rate service over HTTP. Transport concerns
// (retries, timeouts, circuit breaking) live in Transport.
type HTTPClient struct {
	BaseURL   string
	APIKey    string
	Transport resilience.HTTPClient
}

type ratesEnvelope struct {
	Data []DailyRate `json:"data"`
}

// Rates implements Client.
func (c HTTPClient) Rates(ctx context.Context, req Request) ([]DailyRate, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	endpoint, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/rates")
	if err != nil {
		return nil, fmt.Errorf("remoterate: base url: %w", err)
	}
	endpoint.RawQuery = query(req).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.Transport.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("remoterate: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("remoterate: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	rates, err := decodeRates(body)
	if err != nil {
		return nil, fmt.Errorf("remoterate: decode: %w", err)
	}
	return normalize(rates), nil
}

func query(req Request) url.Values {
	q := url.Values{}
	q.Set("ratePlanId", req.RatePlanID.String())
	q.Set("roomTypeId", req.RoomTypeID.String())
	if !req.MealPlanID.IsZero() {
		q.Set("mealPlanId", req.MealPlanID.String())
	}
	if req.CurrencyCode != "" {
		q.Set("currencyCode", req.CurrencyCode)
	}
	q.Set("startDate", req.StartDate)
	q.Set("endDate", req.EndDate)
	q.Set("adults", strconv.Itoa(req.Adults))
	q.Set("children", strconv.Itoa(req.Children))
	return q
}

// decodeRates accepts either {"data": [...]} or a bare array.
func decodeRates(body []byte) ([]DailyRate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var rates []DailyRate
		err := json.Unmarshal(trimmed, &rates)
		return rates, err
	}
	var env ratesEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// normalize rewrites dates to the canonical layout and drops entries whose
// date cannot be parsed.
func normalize(rates []DailyRate) []DailyRate {
	out := rates[:0]
	for _, r := range rates {
		date, ok := stay.NormalizeDate(r.Date)
		if !ok {
			continue
		}
		r.Date = date
		out = append(out, r)
	}
	return out
}
