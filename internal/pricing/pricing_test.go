package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/remoterate"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

var twoNights = []string{"2024-05-01", "2024-05-02"}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func planWith(mode rateplan.SellMode, day rateplan.DailyRate, dates ...string) *rateplan.RatePlan {
	days := map[string]rateplan.DailyRate{}
	for _, d := range dates {
		days[d] = day
	}
	return &rateplan.RatePlan{ID: 1, RateCodeID: 1, RoomTypeID: 1, SellMode: mode, Days: days}
}

func requireAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %d, got %s", want, got)
	}
}

func TestPerRoomFromPlan(t *testing.T) {
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{DefaultRate: dec(100)}, twoNights...)
	r := Reconcile(ReconcileInput{Dates: twoNights, Plan: plan, Adults: 2})

	for _, d := range twoNights {
		requireAmount(t, 100, r.Combined[d])
		requireAmount(t, 0, r.Child.Get(d))
	}
	s := Aggregate(r.Combined, r.Child, 2)
	requireAmount(t, 200, s.Total)
	requireAmount(t, 100, s.Average)
	require.Equal(t, map[string]string{"2024-05-01": "100.00", "2024-05-02": "100.00"}, AdultOnly(r.Combined, r.Child))
	require.Equal(t, twoNights, r.PlanFilled)
	require.Empty(t, r.Gaps)
}

func TestPerPersonWithChildren(t *testing.T) {
	plan := planWith(rateplan.PerPerson, rateplan.DailyRate{
		DefaultRate: dec(100),
		Pax:         map[int]decimal.Decimal{2: dec(120)},
		ChildRate:   dec(20),
	}, twoNights...)
	r := Reconcile(ReconcileInput{Dates: twoNights, Plan: plan, Adults: 2, Children: 1})

	for _, d := range twoNights {
		requireAmount(t, 140, r.Combined[d])
		requireAmount(t, 20, r.Child[d])
	}
	require.Equal(t, "120.00", AdultOnly(r.Combined, r.Child)["2024-05-02"])
	requireAmount(t, 280, Aggregate(r.Combined, r.Child, 2).Total)
}

func TestRemoteWithoutChildPricingEveryDate(t *testing.T) {
	dates := []string{"2024-05-01", "2024-05-02", "2024-05-03"}
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{DefaultRate: dec(500), ChildRate: dec(15)}, dates...)
	remote := []remoterate.DailyRate{
		{Date: "2024-05-01", AdultRate: dec(210)},
		{Date: "2024-05-02", AdultRate: dec(220)},
		{Date: "2024-05-03", AdultRate: dec(230)},
	}
	r := Reconcile(ReconcileInput{Dates: dates, Remote: remote, Plan: plan, Adults: 2, Children: 2})

	for i, d := range dates {
		requireAmount(t, 30, r.Child[d])
		requireAmount(t, remote[i].AdultRate.IntPart()+30, r.Combined[d])
	}
	require.Equal(t, dates, r.ChildFilled)
	require.Empty(t, r.PlanFilled)
}

func TestRemoteWinsAndPlanFillsMissingDates(t *testing.T) {
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{DefaultRate: dec(100)}, twoNights...)
	childTotal := dec(0)
	remote := []remoterate.DailyRate{
		{Date: "2024-05-01", AdultRate: dec(80), ChildTotal: &childTotal},
		{Date: "2024-04-30", AdultRate: dec(999)},
	}
	r := Reconcile(ReconcileInput{Dates: twoNights, Remote: remote, Plan: plan, Adults: 1})

	requireAmount(t, 80, r.Combined["2024-05-01"])
	requireAmount(t, 100, r.Combined["2024-05-02"])
	_, outside := r.Combined["2024-04-30"]
	require.False(t, outside, "dates outside the stay are ignored")
	require.Equal(t, []string{"2024-05-02"}, r.PlanFilled)
}

func TestGapsStayAbsent(t *testing.T) {
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{DefaultRate: dec(0)}, "2024-05-01")
	r := Reconcile(ReconcileInput{Dates: twoNights, Plan: plan, Adults: 2})

	require.Equal(t, twoNights, r.Gaps)
	require.Empty(t, r.Combined)
	requireAmount(t, 0, Aggregate(r.Combined, r.Child, 2).Total)

	none := Reconcile(ReconcileInput{Dates: twoNights, Adults: 2})
	require.Equal(t, twoNights, none.Gaps)
}

func TestZeroPlanDoesNotOverwriteRemote(t *testing.T) {
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{}, twoNights...)
	remote := []remoterate.DailyRate{{Date: "2024-05-01", AdultRate: decimal.Zero}}
	r := Reconcile(ReconcileInput{Dates: twoNights, Remote: remote, Plan: plan, Adults: 2, Children: 1})

	v, ok := r.Combined["2024-05-01"]
	require.True(t, ok, "remote zero is kept")
	require.True(t, v.IsZero())
	require.Equal(t, []string{"2024-05-02"}, r.Gaps)
}

func TestFOCZeroesEveryDate(t *testing.T) {
	plan := planWith(rateplan.PerRoom, rateplan.DailyRate{DefaultRate: dec(100), ChildRate: dec(10)}, twoNights...)
	remote := []remoterate.DailyRate{{Date: "2024-05-01", AdultRate: dec(90)}}
	r := Reconcile(ReconcileInput{Dates: twoNights, Remote: remote, Plan: plan, Adults: 2, Children: 1, FOC: true})

	require.Len(t, r.Combined, 2)
	s := Aggregate(r.Combined, r.Child, 2)
	require.True(t, s.Total.IsZero())
	require.True(t, s.ChildTotal.IsZero())
}

func TestPerPersonClampAndFallback(t *testing.T) {
	plan := planWith(rateplan.PerPerson, rateplan.DailyRate{
		DefaultRate: dec(100),
		Pax:         map[int]decimal.Decimal{18: dec(1800)},
	}, "2024-05-01")
	r := Reconcile(ReconcileInput{Dates: []string{"2024-05-01"}, Plan: plan, Adults: 25})
	requireAmount(t, 1800, r.Combined["2024-05-01"])

	r = Reconcile(ReconcileInput{Dates: []string{"2024-05-01"}, Plan: plan, Adults: 3})
	requireAmount(t, 100, r.Combined["2024-05-01"])
}

func TestAggregateDayUse(t *testing.T) {
	combined := DayMap{"2024-05-01": dec(75)}
	r, err := stay.Parse("2024-05-01", "2024-05-01")
	require.NoError(t, err)
	s := Aggregate(combined, nil, r.AveragingNights())
	requireAmount(t, 75, s.Total)
	requireAmount(t, 75, s.Average)

	requireAmount(t, 75, Aggregate(combined, nil, 0).Average)
}

func TestDayMapKeep(t *testing.T) {
	m := DayMap{"2024-05-01": dec(1), "2024-05-02": dec(2), "2024-05-03": dec(3)}
	kept := m.Keep(func(d string) bool { return d != "2024-05-02" })
	require.Equal(t, []string{"2024-05-01", "2024-05-03"}, kept.Dates())
	require.Len(t, m, 3)
	require.Nil(t, DayMap(nil).Keep(func(string) bool { return true }))
}

func TestAdultOnlyNeverNegative(t *testing.T) {
	combined := DayMap{"2024-05-01": dec(50), "2024-05-02": decimal.RequireFromString("99.999")}
	child := DayMap{"2024-05-01": dec(70)}
	adult := AdultOnly(combined, child)
	require.Equal(t, "0.00", adult["2024-05-01"])
	require.Equal(t, "100.00", adult["2024-05-02"])
}

func TestInvoiceLineBillsCombined(t *testing.T) {
	combined := DayMap{"2024-05-01": dec(140), "2024-05-02": dec(140)}
	child := DayMap{"2024-05-01": dec(20), "2024-05-02": dec(20)}
	line := NewInvoiceLine(combined, child)
	require.Equal(t, "280.00", line.Amount)
	require.Equal(t, "120.00", line.Days["2024-05-01"])
}

func TestBookingTotalDedupes(t *testing.T) {
	total := BookingTotal([]RoomTotal{
		{Identity: "101", Total: dec(200)},
		{Identity: "102", Total: dec(300)},
		{Identity: "101", Total: dec(200)},
		{Total: dec(50)},
		{Total: dec(50)},
	})
	requireAmount(t, 600, total)
}

func TestDayMapHelpers(t *testing.T) {
	m := Flat(twoNights, dec(90))
	clone := m.Clone()
	clone["2024-05-01"] = dec(1)
	requireAmount(t, 180, m.Sum())
	require.Equal(t, twoNights, m.Dates())
	require.Equal(t, "90.00", m.Fixed()["2024-05-02"])
	require.Nil(t, DayMap(nil).Clone())
}
