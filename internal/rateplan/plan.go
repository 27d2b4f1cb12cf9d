package rateplan

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPax is the largest occupancy bucket a per-person plan can price.
const MaxPax = 18

// SellMode is the pricing basis of a rate plan.
type SellMode string

const (
	// PerPerson plans price by occupancy bucket.
	PerPerson SellMode = "PerPerson"
	// PerRoom plans charge a flat nightly rate.
	PerRoom SellMode = "PerRoom"
)

// ParseSellMode normalises the spellings used by upstream rate-plan feeds.
// Unknown values map to PerRoom.
func ParseSellMode(value string) SellMode {
	normalised := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(value))
	switch normalised {
	case "perperson", "person", "pax":
		return PerPerson
	default:
		return PerRoom
	}
}

// DailyRate is one row of a plan's rate table.
type DailyRate struct {
	DefaultRate decimal.Decimal         `json:"defaultRate"`
	Pax         map[int]decimal.Decimal `json:"pax,omitempty"`
	ChildRate   decimal.Decimal         `json:"childRate"`
}

// AdultRate returns the nightly adult charge for the occupancy. Per-person
// plans read the clamped pax column and fall back to the default rate when
// the column is missing.
func (d DailyRate) AdultRate(mode SellMode, adults int) decimal.Decimal {
	if mode != PerPerson {
		return d.DefaultRate
	}
	if rate, ok := d.Pax[ClampPax(adults)]; ok {
		return rate
	}
	return d.DefaultRate
}

// ChildCharge returns the nightly child contribution for the given child count.
func (d DailyRate) ChildCharge(children int) decimal.Decimal {
	if children <= 0 {
		return decimal.Zero
	}
	return d.ChildRate.Mul(decimal.NewFromInt(int64(children)))
}

// ClampPax bounds an adult count to the available pax columns.
func ClampPax(adults int) int {
	if adults < 1 {
		return 1
	}
	if adults > MaxPax {
		return MaxPax
	}
	return adults
}

// RatePlan is a pricing policy tied to a rate code and room type.
type RatePlan struct {
	ID         ID                   `json:"id"`
	Name       string               `json:"name,omitempty"`
	RateCodeID ID                   `json:"rateCodeId"`
	RoomTypeID ID                   `json:"roomTypeId"`
	SellMode   SellMode             `json:"sellMode"`
	Days       map[string]DailyRate `json:"days"`
}

// Day returns the rate table row for a date.
func (p *RatePlan) Day(date string) (DailyRate, bool) {
	if p == nil || p.Days == nil {
		return DailyRate{}, false
	}
	d, ok := p.Days[date]
	return d, ok
}
