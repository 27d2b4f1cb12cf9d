package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/remoterate"
)

// ReconcileInput carries everything needed to price one row for one stay.
type ReconcileInput struct {
	Dates    []string
	Remote   []remoterate.DailyRate
	Plan     *rateplan.RatePlan
	Adults   int
	Children int
	FOC      bool
}

// Reconciled is the merged nightly breakdown of a row.
type Reconciled struct {
	Combined DayMap
	Child    DayMap
	// PlanFilled lists dates the remote response did not cover that were
	// priced entirely from the plan.
	PlanFilled []string
	// ChildFilled lists dates whose child share was rebuilt from the plan
	// because the remote response omitted it.
	ChildFilled []string
	// Gaps lists dates neither source could price. They are absent from
	// both maps.
	Gaps []string
}

// Reconcile merges the remote response with the plan table. The remote
// service wins for every date it prices; the plan fills missing dates and
// child shares the remote left out. A plan entry that totals zero never
// overwrites anything, so the date stays unresolved instead of reading as a
// false zero.
func Reconcile(in ReconcileInput) Reconciled {
	out := Reconciled{
		Combined: make(DayMap, len(in.Dates)),
		Child:    make(DayMap, len(in.Dates)),
	}
	if in.FOC {
		for _, d := range in.Dates {
			out.Combined[d] = decimal.Zero
			out.Child[d] = decimal.Zero
		}
		return out
	}

	required := make(map[string]struct{}, len(in.Dates))
	for _, d := range in.Dates {
		required[d] = struct{}{}
	}
	adult := make(DayMap, len(in.Dates))
	for _, r := range in.Remote {
		if _, ok := required[r.Date]; !ok {
			continue
		}
		child := r.Child(in.Children)
		adult[r.Date] = r.AdultRate
		out.Child[r.Date] = child
		out.Combined[r.Date] = r.AdultRate.Add(child)
	}

	for _, d := range in.Dates {
		seededChild, seeded := out.Child[d]
		childMissing := seeded && in.Children > 0 && seededChild.IsZero()
		if seeded && !childMissing {
			continue
		}
		day, ok := in.Plan.Day(d)
		if !ok {
			if !seeded {
				out.Gaps = append(out.Gaps, d)
			}
			continue
		}
		child := day.ChildCharge(in.Children)
		if seeded && child.IsZero() {
			continue
		}
		base := day.AdultRate(in.Plan.SellMode, in.Adults)
		if seeded {
			base = adult[d]
		}
		total := base.Add(child)
		if !total.IsPositive() {
			if !seeded {
				out.Gaps = append(out.Gaps, d)
			}
			continue
		}
		out.Combined[d] = total
		out.Child[d] = child
		if seeded {
			out.ChildFilled = append(out.ChildFilled, d)
		} else {
			out.PlanFilled = append(out.PlanFilled, d)
		}
	}
	return out
}
