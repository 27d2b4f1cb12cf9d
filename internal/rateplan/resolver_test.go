package rateplan_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
)

func samplePlans() []rateplan.RatePlan {
	return []rateplan.RatePlan{
		{ID: 10, RateCodeID: 1, RoomTypeID: 7, SellMode: rateplan.PerRoom},
		{ID: 11, RateCodeID: 2, RoomTypeID: 7, SellMode: rateplan.PerPerson},
		{ID: 12, RateCodeID: 2, RoomTypeID: 7, SellMode: rateplan.PerRoom},
	}
}

func TestResolveFirstMatch(t *testing.T) {
	plan, ok := rateplan.Resolve(samplePlans(), 2, 7)
	require.True(t, ok)
	require.Equal(t, rateplan.ID(11), plan.ID)
}

func TestResolveSoftMiss(t *testing.T) {
	plans := samplePlans()
	cases := map[string][2]rateplan.ID{
		"zero rate code": {0, 7},
		"zero room type": {1, 0},
		"no match":       {3, 7},
	}
	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			plan, ok := rateplan.Resolve(plans, ids[0], ids[1])
			require.False(t, ok)
			require.Nil(t, plan)
		})
	}
}

func TestIDCoercion(t *testing.T) {
	var payload struct {
		A rateplan.ID `json:"a"`
		B rateplan.ID `json:"b"`
		C rateplan.ID `json:"c"`
		D rateplan.ID `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"7","b":7,"c":"","d":null}`), &payload))
	require.Equal(t, rateplan.ID(7), payload.A)
	require.Equal(t, payload.A, payload.B)
	require.True(t, payload.C.IsZero())
	require.True(t, payload.D.IsZero())

	var bad rateplan.ID
	require.Error(t, json.Unmarshal([]byte(`"seven"`), &bad))

	// A string id resolves the same plan as its numeric form.
	plan, ok := rateplan.Resolve(samplePlans(), payload.A-5, payload.B)
	require.True(t, ok)
	require.Equal(t, rateplan.ID(11), plan.ID)
}

func TestAdultRate(t *testing.T) {
	day := rateplan.DailyRate{
		DefaultRate: decimal.NewFromInt(100),
		Pax: map[int]decimal.Decimal{
			1:  decimal.NewFromInt(90),
			2:  decimal.NewFromInt(120),
			18: decimal.NewFromInt(900),
		},
		ChildRate: decimal.NewFromInt(20),
	}
	require.True(t, day.AdultRate(rateplan.PerPerson, 2).Equal(decimal.NewFromInt(120)))
	require.True(t, day.AdultRate(rateplan.PerPerson, 0).Equal(decimal.NewFromInt(90)), "clamped to pax1")
	require.True(t, day.AdultRate(rateplan.PerPerson, 40).Equal(decimal.NewFromInt(900)), "clamped to pax18")
	require.True(t, day.AdultRate(rateplan.PerPerson, 3).Equal(decimal.NewFromInt(100)), "missing column falls back")
	require.True(t, day.AdultRate(rateplan.PerRoom, 2).Equal(decimal.NewFromInt(100)))
	require.True(t, day.AdultRate(rateplan.SellMode("Weird"), 2).Equal(decimal.NewFromInt(100)))
	require.True(t, day.ChildCharge(2).Equal(decimal.NewFromInt(40)))
	require.True(t, day.ChildCharge(0).IsZero())
}

func TestParseSellMode(t *testing.T) {
	require.Equal(t, rateplan.PerPerson, rateplan.ParseSellMode("per_person"))
	require.Equal(t, rateplan.PerPerson, rateplan.ParseSellMode("PerPerson"))
	require.Equal(t, rateplan.PerRoom, rateplan.ParseSellMode("PER ROOM"))
	require.Equal(t, rateplan.PerRoom, rateplan.ParseSellMode("unknown"))
}

func TestStore(t *testing.T) {
	plans := samplePlans()
	store := rateplan.NewStore(plans)
	plans[0].RateCodeID = 99

	require.Equal(t, 3, store.Len())
	got, err := store.Get(10)
	require.NoError(t, err)
	require.Equal(t, rateplan.ID(1), got.RateCodeID, "store keeps its own copy")

	_, err = store.Get(404)
	require.ErrorIs(t, err, rateplan.ErrPlanNotFound)

	plan, ok := store.Resolve(1, 7)
	require.True(t, ok)
	require.Equal(t, rateplan.ID(10), plan.ID)

	var nilStore *rateplan.Store
	_, ok = nilStore.Resolve(1, 7)
	require.False(t, ok)
}
