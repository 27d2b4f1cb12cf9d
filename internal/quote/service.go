package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-stayrate/internal/common"
	"github.com/noah-isme/backend-stayrate/internal/pricing"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/reservation"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// Service prices ad-hoc reservations against the loaded rate plans.
type Service struct {
	plans    *rateplan.Store
	engine   *reservation.Engine
	validate *validator.Validate
	logger   *zerolog.Logger
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Plans     *rateplan.Store
	Engine    *reservation.Engine
	Validator *validator.Validate
	Logger    *zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Plans == nil {
		return nil, errors.New("quote: rate plans not configured")
	}
	if cfg.Engine == nil {
		return nil, errors.New("quote: pricing engine not configured")
	}
	v := cfg.Validator
	if v == nil {
		v = reservation.NewValidator()
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{plans: cfg.Plans, engine: cfg.Engine, validate: v, logger: logger}, nil
}

// Quote prices every room of the request.
func (s *Service) Quote(ctx context.Context, req Request) (Result, error) {
	form, outcomes, err := s.price(ctx, req)
	if err != nil {
		return Result{}, err
	}
	rows := form.Rows()
	result := Result{Rooms: make([]RoomQuote, 0, len(rows)), Submission: reservation.BuildSubmission(form)}
	for _, row := range rows {
		result.Rooms = append(result.Rooms, roomQuote(row, outcomes[row.ID]))
	}
	return result, nil
}

// Payload prices the request and renders the booking submission. Incomplete
// reservations fail with a 422 AppError carrying the missing fields.
func (s *Service) Payload(ctx context.Context, req Request) (reservation.Submission, error) {
	form, _, err := s.price(ctx, req)
	if err != nil {
		return reservation.Submission{}, err
	}
	if err := reservation.Validate(form, s.validate); err != nil {
		var verr *reservation.ValidationError
		if errors.As(err, &verr) {
			return reservation.Submission{}, common.NewAppError("VALIDATION_FAILED", "reservation is incomplete", http.StatusUnprocessableEntity, err).
				WithDetails(map[string]any{"fields": verr.Fields})
		}
		return reservation.Submission{}, err
	}
	return reservation.BuildSubmission(form), nil
}

// ListPlans returns a page of the loaded plans.
func (s *Service) ListPlans(page, perPage int) ([]rateplan.RatePlan, common.Pagination) {
	return common.Paginate(s.plans.All(), page, perPage)
}

// GetPlan returns one plan.
func (s *Service) GetPlan(id rateplan.ID) (*rateplan.RatePlan, error) {
	plan, err := s.plans.Get(id)
	if errors.Is(err, rateplan.ErrPlanNotFound) {
		return nil, common.NewAppError("NOT_FOUND", "rate plan not found", http.StatusNotFound, err)
	}
	return plan, err
}

func (s *Service) price(ctx context.Context, req Request) (*reservation.Form, map[uuid.UUID]reservation.Outcome, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, invalidRequest(err)
	}
	stayRange, err := parseRange(req)
	if err != nil {
		return nil, nil, common.NewAppError("INVALID_STAY", err.Error(), http.StatusBadRequest, err)
	}
	form := reservation.NewForm(reservation.Shared{
		Range:         stayRange,
		CurrencyCode:  strings.ToUpper(req.CurrencyCode),
		MealPlanID:    req.MealPlanID,
		TravelAgentID: req.TravelAgentID,
	})
	for _, room := range req.Rooms {
		form.AddRow(reservation.Line{
			RoomTypeID: room.RoomTypeID,
			RoomNumber: room.RoomNumber,
			Adults:     room.Adults,
			Children:   room.Children,
			FOC:        room.IsFOC,
			RateCodeID: room.RateCodeID,
			RatePlanID: room.RatePlanID,
			ManualRate: room.ManualRate,
		})
	}
	outcomes, err := s.engine.RecomputeAll(ctx, form)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug().Int("rooms", len(req.Rooms)).Str("stay", stayRange.Key()).Msg("quote_priced")
	return form, outcomes, nil
}

func parseRange(req Request) (stay.Range, error) {
	if strings.TrimSpace(req.CheckIn) == "" {
		return stay.Range{}, nil
	}
	if req.Nights != nil {
		in, err := stay.ParseDate(req.CheckIn)
		if err != nil {
			return stay.Range{}, err
		}
		return stay.FromNights(in, *req.Nights)
	}
	if strings.TrimSpace(req.CheckOut) == "" {
		return stay.Range{}, fmt.Errorf("checkOut or nights is required with checkIn")
	}
	return stay.Parse(req.CheckIn, req.CheckOut)
}

func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewAppError("INVALID_REQUEST", "invalid request", http.StatusBadRequest, err)
	}
	fields := make([]reservation.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		fields = append(fields, reservation.FieldError{Field: path, Reason: fe.Tag()})
	}
	return common.NewAppError("INVALID_REQUEST", "invalid request", http.StatusBadRequest, err).
		WithDetails(map[string]any{"fields": fields})
}

func roomQuote(row reservation.Row, outcome reservation.Outcome) RoomQuote {
	planID := row.RatePlanID
	if planID.IsZero() {
		planID = row.PricedPlanID
	}
	return RoomQuote{
		RowID:        row.ID.String(),
		Outcome:      outcome,
		State:        row.State,
		RatePlanID:   planID,
		Combined:     row.Combined.Fixed(),
		Child:        row.Child.Fixed(),
		AdultOnly:    pricing.AdultOnly(row.Combined, row.Child),
		TotalRate:    row.TotalRate.StringFixed(2),
		AverageRate:  row.AverageRate.StringFixed(2),
		ChildTotal:   row.ChildTotal.StringFixed(2),
		ChildAverage: row.ChildAverage.StringFixed(2),
		Gaps:         row.Gaps,
	}
}
