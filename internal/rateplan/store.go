package rateplan

import (
	"context"
	"errors"
	"fmt"
)

// ErrPlanNotFound is returned by lookups for unknown plan identifiers.
var ErrPlanNotFound = errors.New("rateplan: plan not found")

// Store holds the rate plans of a pricing session. It is never mutated after
// construction and is safe to share across goroutines.
type Store struct {
	plans []RatePlan
	byID  map[ID]int
}

// NewStore copies the provided plans into a read-only store.
func NewStore(plans []RatePlan) *Store {
	copied := make([]RatePlan, len(plans))
	copy(copied, plans)
	byID := make(map[ID]int, len(copied))
	for i, p := range copied {
		if p.SellMode == "" {
			copied[i].SellMode = PerRoom
		}
		if _, exists := byID[p.ID]; !exists {
			byID[p.ID] = i
		}
	}
	return &Store{plans: copied, byID: byID}
}

// Len returns the number of plans.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.plans)
}

// All returns the plans in load order. The returned slice is a copy; the
// daily tables are shared and must be treated as read-only.
func (s *Store) All() []RatePlan {
	if s == nil {
		return nil
	}
	out := make([]RatePlan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Get returns the plan with the given identifier.
func (s *Store) Get(id ID) (*RatePlan, error) {
	if s == nil {
		return nil, ErrPlanNotFound
	}
	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return &s.plans[idx], nil
}

// Resolve finds the plan for a rate code and room type.
func (s *Store) Resolve(rateCodeID, roomTypeID ID) (*RatePlan, bool) {
	if s == nil {
		return nil, false
	}
	return Resolve(s.plans, rateCodeID, roomTypeID)
}

// Loader fetches the rate-plan table from its source of record.
type Loader interface {
	LoadRatePlans(ctx context.Context) ([]RatePlan, error)
}

// Load builds a store from the loader.
func Load(ctx context.Context, loader Loader) (*Store, error) {
	if loader == nil {
		return nil, errors.New("rateplan: loader not configured")
	}
	plans, err := loader.LoadRatePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("rateplan: load: %w", err)
	}
	return NewStore(plans), nil
}
