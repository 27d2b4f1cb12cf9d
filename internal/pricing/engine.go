package pricing

import (
	"github.com/shopspring/decimal"
)

// Summary aggregates a row's nightly maps.
type Summary struct {
	Total        decimal.Decimal
	Average      decimal.Decimal
	ChildTotal   decimal.Decimal
	ChildAverage decimal.Decimal
}

// Aggregate totals the maps and averages them over divisor, which callers
// take from stay.Range.AveragingNights. A divisor below one counts as one.
func Aggregate(combined, child DayMap, divisor int) Summary {
	n := decimal.NewFromInt(int64(max(divisor, 1)))
	total := combined.Sum()
	childTotal := child.Sum()
	return Summary{
		Total:        total,
		Average:      total.Div(n),
		ChildTotal:   childTotal,
		ChildAverage: childTotal.Div(n),
	}
}

// Quote is the outcome of one pricing pass before it is folded into a row.
type Quote struct {
	Combined DayMap
	Child    DayMap
	Summary
}

// NewQuote aggregates the maps into a quote.
func NewQuote(combined, child DayMap, divisor int) Quote {
	return Quote{Combined: combined, Child: child, Summary: Aggregate(combined, child, divisor)}
}

// AdultOnly returns the per-date adult share, combined minus child floored
// at zero, formatted with two decimals.
func AdultOnly(combined, child DayMap) map[string]string {
	out := make(map[string]string, len(combined))
	for d, v := range combined {
		adult := v.Sub(child.Get(d))
		if adult.IsNegative() {
			adult = decimal.Zero
		}
		out[d] = adult.StringFixed(2)
	}
	return out
}

// InvoiceLine is the billing view of one room. Days is informational; Amount
// is the combined total that is billed.
type InvoiceLine struct {
	Days   map[string]string `json:"days"`
	Amount string            `json:"amount"`
}

// NewInvoiceLine builds the invoice line of a room.
func NewInvoiceLine(combined, child DayMap) InvoiceLine {
	return InvoiceLine{
		Days:   AdultOnly(combined, child),
		Amount: combined.Sum().StringFixed(2),
	}
}

// RoomTotal is one room's contribution to a booking.
type RoomTotal struct {
	Identity string
	Total    decimal.Decimal
}

// BookingTotal sums room totals, counting each room identity once.
func BookingTotal(rooms []RoomTotal) decimal.Decimal {
	seen := make(map[string]struct{}, len(rooms))
	total := decimal.Zero
	for _, r := range rooms {
		if r.Identity != "" {
			if _, dup := seen[r.Identity]; dup {
				continue
			}
			seen[r.Identity] = struct{}{}
		}
		total = total.Add(r.Total)
	}
	return total
}
