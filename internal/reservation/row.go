package reservation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stayrate/internal/pricing"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// PricingState decides whether driver changes reprice a row.
type PricingState int

const (
	// Auto rows are repriced on every driver change.
	Auto PricingState = iota
	// Manual rows keep the nightly rate typed by the user.
	Manual
	// FOC rows are billed at zero.
	FOC
)

func (s PricingState) String() string {
	switch s {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	case FOC:
		return "foc"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state by name.
func (s PricingState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (s *PricingState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		*s = Auto
	case "manual":
		*s = Manual
	case "foc":
		*s = FOC
	default:
		return fmt.Errorf("reservation: unknown pricing state %q", name)
	}
	return nil
}

// Line is the input describing one room line of a reservation.
type Line struct {
	RoomTypeID rateplan.ID
	RoomNumber string
	Adults     int
	Children   int
	FOC        bool
	RateCodeID rateplan.ID
	RatePlanID rateplan.ID
	ManualRate *decimal.Decimal
}

// Row is one priced room line. Rows are owned by a Form and only mutated
// under its lock. RatePlanID pins a plan when set; otherwise a pass resolves
// one from the rate code and room type and records it in PricedPlanID.
type Row struct {
	ID         uuid.UUID
	RoomTypeID rateplan.ID
	RoomNumber string
	Adults     int
	Children   int
	IsFOC      bool
	RateCodeID rateplan.ID
	RatePlanID rateplan.ID

	PricedPlanID rateplan.ID
	State        PricingState
	ManualRate   decimal.Decimal

	Combined     pricing.DayMap
	Child        pricing.DayMap
	TotalRate    decimal.Decimal
	AverageRate  decimal.Decimal
	ChildTotal   decimal.Decimal
	ChildAverage decimal.Decimal
	Gaps         []string

	busy    bool
	pending bool
}

func newRow(id uuid.UUID, line Line) *Row {
	children := line.Children
	if children < 0 {
		children = 0
	}
	return &Row{
		ID:         id,
		RoomTypeID: line.RoomTypeID,
		RoomNumber: strings.TrimSpace(line.RoomNumber),
		Adults:     line.Adults,
		Children:   children,
		RateCodeID: line.RateCodeID,
		RatePlanID: line.RatePlanID,
	}
}

// SetRate enters Manual with a flat nightly rate over the stay. The child map
// is left as is. Ignored while the row is FOC.
func (r *Row) SetRate(stayRange stay.Range, v decimal.Decimal) bool {
	if r.IsFOC {
		return false
	}
	r.State = Manual
	r.ManualRate = v
	r.Combined = pricing.Flat(stayRange.Dates(), v)
	r.Gaps = nil
	r.summarize(stayRange)
	return true
}

// SetFOC toggles free-of-charge. Turning it on zeroes every map and total;
// turning it off returns to Auto and keeps the maps until the next pass.
func (r *Row) SetFOC(stayRange stay.Range, on bool) {
	if !on {
		if r.IsFOC {
			r.IsFOC = false
			r.State = Auto
		}
		return
	}
	r.IsFOC = true
	r.State = FOC
	r.ManualRate = decimal.Zero
	r.zero(stayRange)
}

// SetRoomType changes the room type. Room numbers are type scoped, so the
// assigned number is cleared.
func (r *Row) SetRoomType(id rateplan.ID) {
	if r.RoomTypeID == id {
		return
	}
	r.RoomTypeID = id
	r.RoomNumber = ""
	r.driverChanged()
}

// SetAdults changes the adult count.
func (r *Row) SetAdults(n int) {
	if r.Adults == n {
		return
	}
	r.Adults = n
	r.driverChanged()
}

// SetChildren changes the child count. Negative counts are treated as zero.
func (r *Row) SetChildren(n int) {
	if n < 0 {
		n = 0
	}
	if r.Children == n {
		return
	}
	r.Children = n
	r.driverChanged()
}

// SetRateCode updates the rate code used by the next pass.
func (r *Row) SetRateCode(id rateplan.ID) { r.RateCodeID = id }

// SetRatePlan pins the plan used by the next pass.
func (r *Row) SetRatePlan(id rateplan.ID) { r.RatePlanID = id }

// SetRoomNumber assigns a physical room.
func (r *Row) SetRoomNumber(number string) { r.RoomNumber = strings.TrimSpace(number) }

// Eligible reports whether a pass may reprice the row.
func (r *Row) Eligible(stayRange stay.Range) bool {
	return r.State == Auto &&
		!r.IsFOC &&
		!r.RoomTypeID.IsZero() &&
		!r.RateCodeID.IsZero() &&
		stayRange.IsSet()
}

// Identity names the physical room for booking totals: the room number when
// assigned, the row ID otherwise.
func (r *Row) Identity() string {
	if r.RoomNumber != "" {
		return "room:" + r.RoomNumber
	}
	return "row:" + r.ID.String()
}

// Clone returns a copy that shares nothing mutable with r.
func (r *Row) Clone() Row {
	out := *r
	out.Combined = r.Combined.Clone()
	out.Child = r.Child.Clone()
	out.Gaps = append([]string(nil), r.Gaps...)
	out.busy, out.pending = false, false
	return out
}

// driverChanged drops a manual price so the next pass can run. FOC rows stay
// FOC.
func (r *Row) driverChanged() {
	if r.State == Manual {
		r.State = Auto
		r.ManualRate = decimal.Zero
	}
}

// rerange keeps a row consistent with a new stay. Manual rows re-flatten and
// FOC rows re-zero. Auto rows drop dates outside the stay; new dates stay
// absent until the next pass fills them.
func (r *Row) rerange(stayRange stay.Range) {
	switch r.State {
	case Manual:
		r.Combined = pricing.Flat(stayRange.Dates(), r.ManualRate)
		r.summarize(stayRange)
	case FOC:
		r.zero(stayRange)
	default:
		r.Combined = r.Combined.Keep(stayRange.Contains)
		r.Child = r.Child.Keep(stayRange.Contains)
		r.Gaps = slices.DeleteFunc(r.Gaps, func(d string) bool { return !stayRange.Contains(d) })
		r.summarize(stayRange)
	}
}

// unprice clears every price after a plan miss. Each date of the stay is a gap.
func (r *Row) unprice(stayRange stay.Range) {
	r.Combined = nil
	r.Child = nil
	r.TotalRate = decimal.Zero
	r.AverageRate = decimal.Zero
	r.ChildTotal = decimal.Zero
	r.ChildAverage = decimal.Zero
	r.PricedPlanID = 0
	r.Gaps = stayRange.Dates()
}

func (r *Row) zero(stayRange stay.Range) {
	dates := stayRange.Dates()
	r.Combined = pricing.Flat(dates, decimal.Zero)
	r.Child = pricing.Flat(dates, decimal.Zero)
	r.Gaps = nil
	r.summarize(stayRange)
}

func (r *Row) apply(q pricing.Quote, planID rateplan.ID, gaps []string) {
	r.Combined = q.Combined
	r.Child = q.Child
	r.TotalRate = q.Total
	r.AverageRate = q.Average
	r.ChildTotal = q.ChildTotal
	r.ChildAverage = q.ChildAverage
	r.PricedPlanID = planID
	r.Gaps = gaps
}

func (r *Row) summarize(stayRange stay.Range) {
	s := pricing.Aggregate(r.Combined, r.Child, stayRange.AveragingNights())
	r.TotalRate = s.Total
	r.AverageRate = s.Average
	r.ChildTotal = s.ChildTotal
	r.ChildAverage = s.ChildAverage
}

// stamp hashes the dependency tuple a pass is issued for.
func (r *Row) stamp(shared Shared) uint64 {
	d := xxhash.New()
	_, _ = fmt.Fprintf(d, "%d|%d|%s|%d|%s|%d|%d|%t|%d",
		r.RoomTypeID, r.RateCodeID, shared.CurrencyCode, shared.MealPlanID,
		shared.Range.Key(), r.Adults, r.Children, r.IsFOC, r.State)
	return d.Sum64()
}
