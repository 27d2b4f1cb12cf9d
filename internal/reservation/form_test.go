package reservation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/pricing"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

func mustRange(t *testing.T, in, out string) stay.Range {
	t.Helper()
	r, err := stay.Parse(in, out)
	require.NoError(t, err)
	return r
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr[T any](v T) *T { return &v }

func newTwoNightForm(t *testing.T) *Form {
	return NewForm(Shared{Range: mustRange(t, "2024-05-01", "2024-05-03"), CurrencyCode: "IDR", TravelAgentID: 9})
}

func TestSetRateEntersManualWithFlatMap(t *testing.T) {
	f := newTwoNightForm(t)
	id := f.AddRow(Line{RoomTypeID: 1, RateCodeID: 1, Adults: 2})

	applied, err := f.SetRate(id, dec(90))
	require.NoError(t, err)
	require.True(t, applied)

	row, err := f.Row(id)
	require.NoError(t, err)
	require.Equal(t, Manual, row.State)
	require.Equal(t, pricing.DayMap{"2024-05-01": dec(90), "2024-05-02": dec(90)}, row.Combined)
	require.True(t, row.TotalRate.Equal(dec(180)))
	require.True(t, row.AverageRate.Equal(dec(90)))
	require.Nil(t, row.Child, "manual edits leave the child map alone")
}

func TestFOCOverridesEverything(t *testing.T) {
	f := newTwoNightForm(t)
	id := f.AddRow(Line{RoomTypeID: 1, RateCodeID: 1, Adults: 2, ManualRate: ptr(dec(150))})

	require.NoError(t, f.SetFOC(id, true))
	row, _ := f.Row(id)
	require.Equal(t, FOC, row.State)
	require.True(t, row.TotalRate.IsZero())
	require.True(t, row.ChildTotal.IsZero())
	require.True(t, row.ManualRate.IsZero())
	require.Len(t, row.Combined, 2)

	applied, err := f.SetRate(id, dec(80))
	require.NoError(t, err)
	require.False(t, applied, "rate edits are ignored while FOC")

	require.NoError(t, f.SetAdults(id, 3))
	row, _ = f.Row(id)
	require.Equal(t, FOC, row.State, "driver changes do not leave FOC")

	require.NoError(t, f.SetFOC(id, false))
	row, _ = f.Row(id)
	require.Equal(t, Auto, row.State)
	require.False(t, row.IsFOC)
	require.True(t, row.Combined.Sum().IsZero(), "maps stay until the next pass")
}

func TestDriverChangesLeaveManual(t *testing.T) {
	f := newTwoNightForm(t)
	id := f.AddRow(Line{RoomTypeID: 1, RoomNumber: "101", RateCodeID: 1, Adults: 2})

	_, _ = f.SetRate(id, dec(90))
	require.NoError(t, f.SetRateCode(id, 2))
	require.NoError(t, f.SetRatePlan(id, 5))
	row, _ := f.Row(id)
	require.Equal(t, Manual, row.State, "rate code and plan changes keep Manual")

	require.NoError(t, f.SetAdults(id, 2))
	row, _ = f.Row(id)
	require.Equal(t, Manual, row.State, "unchanged value is not a driver change")

	require.NoError(t, f.SetRoomType(id, 3))
	row, _ = f.Row(id)
	require.Equal(t, Auto, row.State)
	require.Empty(t, row.RoomNumber, "room numbers are scoped to a room type")

	_, _ = f.SetRate(id, dec(90))
	require.NoError(t, f.SetChildren(id, 1))
	row, _ = f.Row(id)
	require.Equal(t, Auto, row.State)
}

func TestRangeChangeRefreshesManualAndFOC(t *testing.T) {
	f := newTwoNightForm(t)
	manual := f.AddRow(Line{RoomTypeID: 1, RateCodeID: 1, Adults: 2, ManualRate: ptr(dec(90))})
	foc := f.AddRow(Line{RoomTypeID: 1, RateCodeID: 1, Adults: 2, FOC: true})

	changed, err := f.Apply(Change{Nights: ptr(3)})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{manual, foc}, changed)

	row, _ := f.Row(manual)
	require.Len(t, row.Combined, 3)
	require.True(t, row.TotalRate.Equal(dec(270)))
	require.True(t, row.AverageRate.Equal(dec(90)))

	row, _ = f.Row(foc)
	require.Len(t, row.Combined, 3)
	require.True(t, row.TotalRate.IsZero())
	require.Equal(t, "2024-05-04", f.Shared().Range.CheckOut().Format(stay.DateLayout))
}

func TestApplyReportsAffectedRows(t *testing.T) {
	f := newTwoNightForm(t)
	a := f.AddRow(Line{RoomTypeID: 1, RateCodeID: 1, Adults: 2})
	b := f.AddRow(Line{RoomTypeID: 2, RateCodeID: 1, Adults: 1})

	changed, err := f.Apply(Change{Row: b, Adults: ptr(2)})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{b}, changed)

	changed, err = f.Apply(Change{Row: a, RatePlanID: ptr(rateplan.ID(7)), RoomNumber: ptr("12")})
	require.NoError(t, err)
	require.Empty(t, changed, "identifiers alone do not trigger a pass")

	changed, err = f.Apply(Change{CurrencyCode: ptr("USD")})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{a, b}, changed)

	_, err = f.Apply(Change{Row: uuid.New(), Adults: ptr(1)})
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestApplyStayEditsInCallOrder(t *testing.T) {
	f := newTwoNightForm(t)
	out := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	_, err := f.Apply(Change{Nights: ptr(1), CheckOut: &out})
	require.NoError(t, err)
	require.Equal(t, 5, f.Shared().Range.Nights(), "check-out applied after nights wins")

	bad := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.Apply(Change{CheckOut: &bad})
	require.True(t, errors.Is(err, stay.ErrCheckOutBeforeCheckIn))
	require.Equal(t, 5, f.Shared().Range.Nights(), "failed edits leave the form untouched")
}

func TestRemoveRowKeepsOthersAddressable(t *testing.T) {
	f := newTwoNightForm(t)
	a := f.AddRow(Line{RoomTypeID: 1})
	b := f.AddRow(Line{RoomTypeID: 2})
	c := f.AddRow(Line{RoomTypeID: 3})

	require.NoError(t, f.RemoveRow(a))
	require.ErrorIs(t, f.RemoveRow(a), ErrRowNotFound)
	require.Equal(t, []uuid.UUID{b, c}, f.IDs())
	row, err := f.Row(c)
	require.NoError(t, err)
	require.Equal(t, rateplan.ID(3), row.RoomTypeID)
}

func TestEligibility(t *testing.T) {
	r := mustRange(t, "2024-05-01", "2024-05-02")
	row := newRow(uuid.New(), Line{RoomTypeID: 1, RateCodeID: 1, Adults: 1})
	require.True(t, row.Eligible(r))
	require.False(t, row.Eligible(stay.Range{}))

	row.RateCodeID = 0
	require.False(t, row.Eligible(r))
	row.RateCodeID = 1
	row.SetRate(r, dec(10))
	require.False(t, row.Eligible(r))
}

func TestPricingStateJSON(t *testing.T) {
	data, err := FOC.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"foc"`, string(data))

	var s PricingState
	require.NoError(t, s.UnmarshalJSON([]byte(`"Manual"`)))
	require.Equal(t, Manual, s)
	require.Error(t, s.UnmarshalJSON([]byte(`"other"`)))
}
