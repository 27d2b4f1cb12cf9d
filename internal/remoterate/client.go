package remoterate

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// ErrNotConfigured is returned by clients missing their upstream.
var ErrNotConfigured = errors.New("remoterate: client not configured")

// Request identifies the stay a rate lookup is for. EndDate is the exclusive
// check-out date; for day use it equals StartDate.
type Request struct {
	RatePlanID   rateplan.ID `json:"ratePlanId"`
	CurrencyCode string      `json:"currencyCode"`
	MealPlanID   rateplan.ID `json:"mealPlanId"`
	RoomTypeID   rateplan.ID `json:"roomTypeId"`
	StartDate    string      `json:"startDate"`
	EndDate      string      `json:"endDate"`
	Adults       int         `json:"adults"`
	Children     int         `json:"children"`
}

// NewRequest fills the date window from a stay range.
func NewRequest(r stay.Range, planID, roomTypeID, mealPlanID rateplan.ID, currency string, adults, children int) Request {
	req := Request{
		RatePlanID:   planID,
		CurrencyCode: currency,
		MealPlanID:   mealPlanID,
		RoomTypeID:   roomTypeID,
		Adults:       adults,
		Children:     children,
	}
	if r.IsSet() {
		req.StartDate = r.CheckIn().Format(stay.DateLayout)
		req.EndDate = r.CheckOut().Format(stay.DateLayout)
	}
	return req
}

// DailyRate is one date of a remote response. ChildRate is per child;
// ChildTotal, when present, already covers every child and wins over it.
type DailyRate struct {
	Date       string           `json:"date"`
	AdultRate  decimal.Decimal  `json:"adultRate"`
	ChildRate  *decimal.Decimal `json:"childRate,omitempty"`
	ChildTotal *decimal.Decimal `json:"childTotal,omitempty"`
}

// Child returns the child contribution of the date for the given child count.
func (d DailyRate) Child(children int) decimal.Decimal {
	if d.ChildTotal != nil {
		return *d.ChildTotal
	}
	if d.ChildRate == nil || children <= 0 {
		return decimal.Zero
	}
	return d.ChildRate.Mul(decimal.NewFromInt(int64(children)))
}

// Client fetches nightly rates from the remote pricing service. A response
// may cover only part of the requested window.
type Client interface {
	Rates(ctx context.Context, req Request) ([]DailyRate, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) ([]DailyRate, error)

// Rates implements Client.
func (f ClientFunc) Rates(ctx context.Context, req Request) ([]DailyRate, error) {
	return f(ctx, req)
}

// StaticClient returns canned responses keyed by rate plan. Plans without an
// entry yield an empty response.
type StaticClient map[rateplan.ID][]DailyRate

// Rates implements Client.
func (s StaticClient) Rates(_ context.Context, req Request) ([]DailyRate, error) {
	rates := s[req.RatePlanID]
	out := make([]DailyRate, len(rates))
	copy(out, rates)
	return out, nil
}

// PlanClient answers from the local plan table with adult rates only, the
// way the remote service behaves for most promotional feeds. It stands in for
// the remote service in local runs.
type PlanClient struct {
	Plans *rateplan.Store
}

// Rates implements Client.
func (c PlanClient) Rates(_ context.Context, req Request) ([]DailyRate, error) {
	if c.Plans == nil {
		return nil, ErrNotConfigured
	}
	plan, err := c.Plans.Get(req.RatePlanID)
	if err != nil {
		return nil, err
	}
	r, err := stay.Parse(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	var out []DailyRate
	for _, date := range r.Dates() {
		day, ok := plan.Day(date)
		if !ok {
			continue
		}
		out = append(out, DailyRate{Date: date, AdultRate: day.AdultRate(plan.SellMode, req.Adults)})
	}
	return out, nil
}
