package reservation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/stay"
)

// ErrRowNotFound is returned for operations on unknown row identifiers.
var ErrRowNotFound = errors.New("reservation: row not found")

// Shared holds the reservation-level drivers every row depends on.
type Shared struct {
	Range         stay.Range
	CurrencyCode  string
	MealPlanID    rateplan.ID
	TravelAgentID rateplan.ID
}

// Form is the in-memory state of one reservation being priced. Rows are
// keyed by a stable identifier; order is kept separately for presentation.
// All methods are safe for concurrent use.
type Form struct {
	mu     sync.Mutex
	shared Shared
	rows   map[uuid.UUID]*Row
	order  []uuid.UUID
}

// NewForm creates an empty form.
func NewForm(shared Shared) *Form {
	return &Form{shared: shared, rows: map[uuid.UUID]*Row{}}
}

// AddRow appends a room line and returns its identifier. A manual rate or FOC
// flag on the line is applied through the row transitions.
func (f *Form) AddRow(line Line) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	row := newRow(id, line)
	if line.FOC {
		row.SetFOC(f.shared.Range, true)
	} else if line.ManualRate != nil {
		row.SetRate(f.shared.Range, *line.ManualRate)
	}
	f.rows[id] = row
	f.order = append(f.order, id)
	return id
}

// RemoveRow deletes a row. An in-flight pass for it is discarded on completion.
func (f *Form) RemoveRow(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return ErrRowNotFound
	}
	delete(f.rows, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Row returns a snapshot of the row.
func (f *Form) Row(id uuid.UUID) (Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	return row.Clone(), nil
}

// Rows returns snapshots of every row in insertion order.
func (f *Form) Rows() []Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Row, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.rows[id].Clone())
	}
	return out
}

// IDs returns the row identifiers in insertion order.
func (f *Form) IDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.order...)
}

// Shared returns the reservation-level drivers.
func (f *Form) Shared() Shared {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shared
}

// Change describes one edit to the form. Nil fields are left alone. Stay
// fields are applied in the order CheckIn, Nights, CheckOut, so a change
// carrying both Nights and CheckOut ends with the check-out the caller typed.
type Change struct {
	CheckIn       *time.Time
	Nights        *int
	CheckOut      *time.Time
	CurrencyCode  *string
	MealPlanID    *rateplan.ID
	TravelAgentID *rateplan.ID

	// Row selects the row the fields below apply to.
	Row        uuid.UUID
	RoomTypeID *rateplan.ID
	RoomNumber *string
	Adults     *int
	Children   *int
	RateCodeID *rateplan.ID
	RatePlanID *rateplan.ID
	FOC        *bool
	Rate       *decimal.Decimal
}

func (c Change) touchesRow() bool {
	return c.RoomTypeID != nil || c.RoomNumber != nil || c.Adults != nil || c.Children != nil ||
		c.RateCodeID != nil || c.RatePlanID != nil || c.FOC != nil || c.Rate != nil
}

// Apply performs the change and returns the rows whose dependency tuple
// changed, in form order. Those are the rows a caller should recompute.
func (f *Form) Apply(c Change) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var row *Row
	if c.touchesRow() {
		var ok bool
		if row, ok = f.rows[c.Row]; !ok {
			return nil, ErrRowNotFound
		}
	}
	before := make(map[uuid.UUID]uint64, len(f.rows))
	for id, r := range f.rows {
		before[id] = r.stamp(f.shared)
	}

	if err := f.applyShared(c); err != nil {
		return nil, err
	}
	if row != nil {
		applyRow(row, f.shared.Range, c)
	}

	var changed []uuid.UUID
	for _, id := range f.order {
		if f.rows[id].stamp(f.shared) != before[id] {
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (f *Form) applyShared(c Change) error {
	next := f.shared
	if c.CheckIn != nil {
		next.Range = next.Range.WithCheckIn(*c.CheckIn)
	}
	if c.Nights != nil {
		r, err := next.Range.WithNights(*c.Nights)
		if err != nil {
			return err
		}
		next.Range = r
	}
	if c.CheckOut != nil {
		r, err := next.Range.WithCheckOut(*c.CheckOut)
		if err != nil {
			return err
		}
		next.Range = r
	}
	if c.CurrencyCode != nil {
		next.CurrencyCode = *c.CurrencyCode
	}
	if c.MealPlanID != nil {
		next.MealPlanID = *c.MealPlanID
	}
	if c.TravelAgentID != nil {
		next.TravelAgentID = *c.TravelAgentID
	}
	rangeChanged := next.Range.Key() != f.shared.Range.Key()
	f.shared = next
	if rangeChanged {
		for _, r := range f.rows {
			r.rerange(next.Range)
		}
	}
	return nil
}

// applyRow runs row edits through the transitions. Driver fields go first so
// a rate or FOC flag in the same change is the final word.
func applyRow(row *Row, stayRange stay.Range, c Change) {
	if c.RoomTypeID != nil {
		row.SetRoomType(*c.RoomTypeID)
	}
	if c.RoomNumber != nil {
		row.SetRoomNumber(*c.RoomNumber)
	}
	if c.Adults != nil {
		row.SetAdults(*c.Adults)
	}
	if c.Children != nil {
		row.SetChildren(*c.Children)
	}
	if c.RateCodeID != nil {
		row.SetRateCode(*c.RateCodeID)
	}
	if c.RatePlanID != nil {
		row.SetRatePlan(*c.RatePlanID)
	}
	if c.FOC != nil {
		row.SetFOC(stayRange, *c.FOC)
	}
	if c.Rate != nil {
		row.SetRate(stayRange, *c.Rate)
	}
}

// SetRange replaces the stay.
func (f *Form) SetRange(r stay.Range) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shared.Range.Key() == r.Key() {
		return
	}
	f.shared.Range = r
	for _, row := range f.rows {
		row.rerange(r)
	}
}

// SetRate enters Manual with a flat nightly rate. It reports false when the
// row is FOC and the edit was ignored.
func (f *Form) SetRate(id uuid.UUID, v decimal.Decimal) (bool, error) {
	var applied bool
	err := f.update(id, func(r *Row, s stay.Range) { applied = r.SetRate(s, v) })
	return applied, err
}

// SetFOC toggles free-of-charge on a row.
func (f *Form) SetFOC(id uuid.UUID, on bool) error {
	return f.update(id, func(r *Row, s stay.Range) { r.SetFOC(s, on) })
}

// SetRoomType changes a row's room type.
func (f *Form) SetRoomType(id uuid.UUID, roomType rateplan.ID) error {
	return f.update(id, func(r *Row, _ stay.Range) { r.SetRoomType(roomType) })
}

// SetAdults changes a row's adult count.
func (f *Form) SetAdults(id uuid.UUID, n int) error {
	return f.update(id, func(r *Row, _ stay.Range) { r.SetAdults(n) })
}

// SetChildren changes a row's child count.
func (f *Form) SetChildren(id uuid.UUID, n int) error {
	return f.update(id, func(r *Row, _ stay.Range) { r.SetChildren(n) })
}

// SetRateCode changes a row's rate code.
func (f *Form) SetRateCode(id uuid.UUID, code rateplan.ID) error {
	return f.update(id, func(r *Row, _ stay.Range) { r.SetRateCode(code) })
}

// SetRatePlan pins a row's rate plan.
func (f *Form) SetRatePlan(id uuid.UUID, plan rateplan.ID) error {
	return f.update(id, func(r *Row, _ stay.Range) { r.SetRatePlan(plan) })
}

func (f *Form) update(id uuid.UUID, fn func(*Row, stay.Range)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrRowNotFound
	}
	fn(row, f.shared.Range)
	return nil
}
