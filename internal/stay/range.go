package stay

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar format used for every day-map key.
const DateLayout = "2006-01-02"

// MaxNights caps a single stay.
const MaxNights = 366

var (
	// ErrCheckOutBeforeCheckIn is returned when a check-out date precedes check-in.
	ErrCheckOutBeforeCheckIn = errors.New("stay: check-out before check-in")
	// ErrNegativeNights is returned when a negative night count is supplied.
	ErrNegativeNights = errors.New("stay: nights must not be negative")
	// ErrCheckInRequired is returned when nights or check-out are edited before check-in is known.
	ErrCheckInRequired = errors.New("stay: check-in is required")
	// ErrTooLong is returned when a stay exceeds MaxNights.
	ErrTooLong = fmt.Errorf("stay: more than %d nights", MaxNights)
)

// Range is a stay window. The night count is the source of truth and the
// check-out date is always derived from it.
type Range struct {
	checkIn time.Time
	nights  int
}

// New builds a range from explicit check-in and check-out dates.
func New(checkIn, checkOut time.Time) (Range, error) {
	in := Day(checkIn)
	out := Day(checkOut)
	if out.Before(in) {
		return Range{}, ErrCheckOutBeforeCheckIn
	}
	nights := daysBetween(in, out)
	if nights > MaxNights {
		return Range{}, ErrTooLong
	}
	return Range{checkIn: in, nights: nights}, nil
}

// FromNights builds a range from a check-in date and a night count.
func FromNights(checkIn time.Time, nights int) (Range, error) {
	if nights < 0 {
		return Range{}, ErrNegativeNights
	}
	if nights > MaxNights {
		return Range{}, ErrTooLong
	}
	return Range{checkIn: Day(checkIn), nights: nights}, nil
}

// Parse builds a range from two ISO dates.
func Parse(checkIn, checkOut string) (Range, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return Range{}, fmt.Errorf("check-in: %w", err)
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return Range{}, fmt.Errorf("check-out: %w", err)
	}
	return New(in, out)
}

// IsSet reports whether both dates are known.
func (r Range) IsSet() bool { return !r.checkIn.IsZero() }

// CheckIn returns the arrival date.
func (r Range) CheckIn() time.Time { return r.checkIn }

// CheckOut returns the exclusive departure date.
func (r Range) CheckOut() time.Time {
	if !r.IsSet() {
		return time.Time{}
	}
	return r.checkIn.AddDate(0, 0, r.nights)
}

// Nights returns the number of nights; zero means a day-use stay.
func (r Range) Nights() int { return r.nights }

// DayUse reports whether check-in and check-out fall on the same date.
func (r Range) DayUse() bool { return r.IsSet() && r.nights == 0 }

// AveragingNights is the divisor used for nightly averages. Day use counts as one night.
func (r Range) AveragingNights() int {
	if r.nights < 1 {
		return 1
	}
	return r.nights
}

// WithCheckIn moves the arrival date and keeps the night count.
func (r Range) WithCheckIn(t time.Time) Range {
	r.checkIn = Day(t)
	return r
}

// WithNights sets the night count and derives check-out from it.
func (r Range) WithNights(nights int) (Range, error) {
	if nights < 0 {
		return r, ErrNegativeNights
	}
	if nights > MaxNights {
		return r, ErrTooLong
	}
	if !r.IsSet() {
		return r, ErrCheckInRequired
	}
	r.nights = nights
	return r, nil
}

// WithCheckOut recomputes the night count from an explicit check-out date.
// When the resulting night count is unchanged the range is returned as is, so
// a check-out echo derived from nights never writes back.
func (r Range) WithCheckOut(t time.Time) (Range, error) {
	if !r.IsSet() {
		return r, ErrCheckInRequired
	}
	out := Day(t)
	if out.Before(r.checkIn) {
		return r, ErrCheckOutBeforeCheckIn
	}
	nights := daysBetween(r.checkIn, out)
	if nights > MaxNights {
		return r, ErrTooLong
	}
	if nights == r.nights {
		return r, nil
	}
	r.nights = nights
	return r, nil
}

// Dates lists the priced dates of the stay: every date in [check-in, check-out).
// A day-use stay is priced on its check-in date.
func (r Range) Dates() []string {
	if !r.IsSet() {
		return nil
	}
	if r.DayUse() {
		return []string{r.checkIn.Format(DateLayout)}
	}
	dates := make([]string, 0, r.nights)
	for i := 0; i < r.nights; i++ {
		dates = append(dates, r.checkIn.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}

// Contains reports whether the date is one of the priced dates.
func (r Range) Contains(date string) bool {
	d, err := ParseDate(date)
	if err != nil || !r.IsSet() {
		return false
	}
	if r.DayUse() {
		return d.Equal(r.checkIn)
	}
	return !d.Before(r.checkIn) && d.Before(r.CheckOut())
}

// Key renders the range for hashing and cache keys.
func (r Range) Key() string {
	if !r.IsSet() {
		return "-"
	}
	return r.checkIn.Format(DateLayout) + "/" + r.CheckOut().Format(DateLayout)
}

// String implements fmt.Stringer.
func (r Range) String() string { return r.Key() }

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts an ISO date or an RFC3339 timestamp and returns its calendar date.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("stay: empty date")
	}
	if t, err := time.Parse(DateLayout, trimmed); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("stay: invalid date %q", value)
	}
	return Day(t), nil
}

// NormalizeDate rewrites a date string into DateLayout.
func NormalizeDate(value string) (string, bool) {
	t, err := ParseDate(value)
	if err != nil {
		return "", false
	}
	return t.Format(DateLayout), true
}

// daysBetween counts calendar days between two UTC midnights. Unix seconds
// are used so the result does not saturate like time.Duration does.
func daysBetween(from, to time.Time) int {
	return int((Day(to).Unix() - Day(from).Unix()) / 86400)
}
