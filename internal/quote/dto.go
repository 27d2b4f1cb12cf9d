package quote

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/reservation"
)

// Request is the body of the quote and payload endpoints. Either CheckOut or
// Nights fixes the end of the stay; Nights wins when both are sent.
type Request struct {
	CheckIn       string        `json:"checkIn"`
	CheckOut      string        `json:"checkOut"`
	Nights        *int          `json:"nights" validate:"omitempty,gte=0,lte=366"`
	CurrencyCode  string        `json:"currencyCode" validate:"omitempty,len=3,alpha"`
	MealPlanID    rateplan.ID   `json:"mealPlanId"`
	TravelAgentID rateplan.ID   `json:"travelAgentId"`
	Rooms         []RoomRequest `json:"rooms" validate:"max=50,dive"`
}

// RoomRequest describes one room line.
type RoomRequest struct {
	RoomTypeID rateplan.ID      `json:"roomTypeId"`
	RoomNumber string           `json:"roomNumber" validate:"max=16"`
	Adults     int              `json:"adults" validate:"gte=0,lte=99"`
	Children   int              `json:"children" validate:"gte=0,lte=99"`
	IsFOC      bool             `json:"isFoc"`
	RateCodeID rateplan.ID      `json:"rateCodeId"`
	RatePlanID rateplan.ID      `json:"ratePlanId"`
	ManualRate *decimal.Decimal `json:"manualRate"`
}

// RoomQuote is the priced view of one room line.
type RoomQuote struct {
	RowID        string                   `json:"rowId"`
	Outcome      reservation.Outcome      `json:"outcome"`
	State        reservation.PricingState `json:"pricingState"`
	RatePlanID   rateplan.ID              `json:"ratePlanId,omitempty"`
	Combined     map[string]string        `json:"combined"`
	Child        map[string]string        `json:"child"`
	AdultOnly    map[string]string        `json:"adultOnly"`
	TotalRate    string                   `json:"totalRate"`
	AverageRate  string                   `json:"averageRate"`
	ChildTotal   string                   `json:"childTotal"`
	ChildAverage string                   `json:"childAverage"`
	Gaps         []string                 `json:"gaps,omitempty"`
}

// Result is the response of the quote endpoint.
type Result struct {
	Rooms      []RoomQuote            `json:"rooms"`
	Submission reservation.Submission `json:"submission"`
}
