package reservation

import (
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// FieldError names one missing or invalid submission field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError blocks a booking submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "reservation: invalid submission: " + strings.Join(names, ", ")
}

type submissionCheck struct {
	TravelAgentID rateplan.ID `json:"travelAgentId" validate:"required"`
	CheckIn       string      `json:"checkIn" validate:"required"`
	CheckOut      string      `json:"checkOut" validate:"required"`
	Rooms         []roomCheck `json:"rooms" validate:"required,min=1,dive"`
}

type roomCheck struct {
	RoomTypeID rateplan.ID `json:"roomTypeId" validate:"required"`
	Adults     int         `json:"adults" validate:"gte=1"`
}

var (
	defaultOnce      sync.Once
	defaultValidator *validator.Validate
)

// NewValidator returns a validator that reports fields by their JSON names.
// The app container builds one and shares it with every caller.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fallbackValidator() *validator.Validate {
	defaultOnce.Do(func() { defaultValidator = NewValidator() })
	return defaultValidator
}

// Validate checks the form is complete enough to submit: a travel agent, a
// stay, and for every room line a room type and at least one adult. Pricing
// gaps do not block submission. A nil v uses a package-level validator.
func Validate(f *Form, v *validator.Validate) error {
	if v == nil {
		v = fallbackValidator()
	}
	shared := f.Shared()
	check := submissionCheck{TravelAgentID: shared.TravelAgentID}
	if shared.Range.IsSet() {
		check.CheckIn = shared.Range.CheckIn().Format(stay.DateLayout)
		check.CheckOut = shared.Range.CheckOut().Format(stay.DateLayout)
	}
	for _, row := range f.Rows() {
		check.Rooms = append(check.Rooms, roomCheck{RoomTypeID: row.RoomTypeID, Adults: row.Adults})
	}

	err := v.Struct(check)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe.Namespace()), Reason: reason(fe)})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return "at least " + fe.Param() + " required"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "invalid"
	}
}
