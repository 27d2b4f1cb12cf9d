package rateplan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileLoader reads a JSON array of plans from disk. It backs local runs
// without a database.
type FileLoader struct {
	Path string
}

// LoadRatePlans implements Loader.
func (f FileLoader) LoadRatePlans(_ context.Context) ([]RatePlan, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var plans []RatePlan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	for i := range plans {
		plans[i].SellMode = ParseSellMode(string(plans[i].SellMode))
	}
	return plans, nil
}

// StaticLoader returns a fixed set of plans.
type StaticLoader []RatePlan

// LoadRatePlans implements Loader.
func (s StaticLoader) LoadRatePlans(_ context.Context) ([]RatePlan, error) {
	out := make([]RatePlan, len(s))
	copy(out, s)
	return out, nil
}
