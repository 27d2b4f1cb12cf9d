package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DayMap maps an ISO date to a nightly amount. Absent dates count as zero.
type DayMap map[string]decimal.Decimal

// Flat returns a map holding v for every date.
func Flat(dates []string, v decimal.Decimal) DayMap {
	out := make(DayMap, len(dates))
	for _, d := range dates {
		out[d] = v
	}
	return out
}

// Get returns the amount for date, zero when absent.
func (m DayMap) Get(date string) decimal.Decimal {
	if v, ok := m[date]; ok {
		return v
	}
	return decimal.Zero
}

// Sum adds every amount in the map.
func (m DayMap) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// Clone returns an independent copy. A nil map clones to nil.
func (m DayMap) Clone() DayMap {
	if m == nil {
		return nil
	}
	out := make(DayMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Dates returns the keys in calendar order.
func (m DayMap) Dates() []string {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Fixed formats every amount with two decimals.
func (m DayMap) Fixed() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.StringFixed(2)
	}
	return out
}

// Keep returns the entries whose date satisfies in. A nil map stays nil.
func (m DayMap) Keep(in func(date string) bool) DayMap {
	if m == nil {
		return nil
	}
	out := make(DayMap, len(m))
	for d, v := range m {
		if in(d) {
			out[d] = v
		}
	}
	return out
}
