package reservation

import (
	"github.com/google/uuid"

	"github.com/noah-isme/backend-stayrate/internal/pricing"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// RoomPayload is one room of a booking submission. Days is the adult-only
// series; Amount is the billed combined total.
type RoomPayload struct {
	RowID      uuid.UUID         `json:"rowId"`
	RoomTypeID rateplan.ID       `json:"roomTypeId"`
	RoomNumber string            `json:"roomNumber,omitempty"`
	RateCodeID rateplan.ID       `json:"rateCodeId"`
	RatePlanID rateplan.ID       `json:"ratePlanId,omitempty"`
	State      PricingState      `json:"pricingState"`
	FOC        bool              `json:"isFoc"`
	NetRate    string            `json:"netRate"`
	Adult      int               `json:"adult"`
	Child      int               `json:"child"`
	Days       map[string]string `json:"days"`
	Amount     string            `json:"amount"`
}

// Submission is the payload handed to the booking service.
type Submission struct {
	CheckIn       string        `json:"checkIn,omitempty"`
	CheckOut      string        `json:"checkOut,omitempty"`
	Nights        int           `json:"nights"`
	CurrencyCode  string        `json:"currencyCode,omitempty"`
	MealPlanID    rateplan.ID   `json:"mealPlanId,omitempty"`
	TravelAgentID rateplan.ID   `json:"travelAgentId,omitempty"`
	Rooms         []RoomPayload `json:"rooms"`
	Amount        string        `json:"amount"`
}

// BuildSubmission renders the current form. The booking amount counts each
// physical room once.
func BuildSubmission(f *Form) Submission {
	shared := f.Shared()
	rows := f.Rows()
	sub := Submission{
		Nights:        shared.Range.Nights(),
		CurrencyCode:  shared.CurrencyCode,
		MealPlanID:    shared.MealPlanID,
		TravelAgentID: shared.TravelAgentID,
		Rooms:         make([]RoomPayload, 0, len(rows)),
	}
	if shared.Range.IsSet() {
		sub.CheckIn = shared.Range.CheckIn().Format(stay.DateLayout)
		sub.CheckOut = shared.Range.CheckOut().Format(stay.DateLayout)
	}

	totals := make([]pricing.RoomTotal, 0, len(rows))
	for _, row := range rows {
		line := pricing.NewInvoiceLine(row.Combined, row.Child)
		planID := row.RatePlanID
		if planID.IsZero() {
			planID = row.PricedPlanID
		}
		sub.Rooms = append(sub.Rooms, RoomPayload{
			RowID:      row.ID,
			RoomTypeID: row.RoomTypeID,
			RoomNumber: row.RoomNumber,
			RateCodeID: row.RateCodeID,
			RatePlanID: planID,
			State:      row.State,
			FOC:        row.IsFOC,
			NetRate:    row.AverageRate.StringFixed(2),
			Adult:      row.Adults,
			Child:      row.Children,
			Days:       line.Days,
			Amount:     line.Amount,
		})
		totals = append(totals, pricing.RoomTotal{Identity: row.Identity(), Total: row.Combined.Sum()})
	}
	sub.Amount = pricing.BookingTotal(totals).StringFixed(2)
	return sub
}
