package rateplan

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const selectPlansSQL = `SELECT id, COALESCE(name, ''), rate_code_id, room_type_id, sell_mode
FROM rate_plans
WHERE active
ORDER BY id`

var selectDaysSQL = buildSelectDaysSQL()

func buildSelectDaysSQL() string {
	cols := make([]string, 0, MaxPax)
	for i := 1; i <= MaxPax; i++ {
		cols = append(cols, fmt.Sprintf("pax%d::text", i))
	}
	return `SELECT d.rate_plan_id, to_char(d.stay_date, 'YYYY-MM-DD'), d.default_rate::text, d.child_rate::text, ` +
		strings.Join(cols, ", ") + `
FROM rate_plan_days d
JOIN rate_plans p ON p.id = d.rate_plan_id AND p.active
ORDER BY d.rate_plan_id, d.stay_date`
}

// Querier is the subset of pgxpool.Pool used by PGLoader.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGLoader reads rate plans and their daily tables from Postgres.
type PGLoader struct {
	DB Querier
}

// LoadRatePlans implements Loader.
func (l PGLoader) LoadRatePlans(ctx context.Context) ([]RatePlan, error) {
	if l.DB == nil {
		return nil, fmt.Errorf("rateplan: database not configured")
	}
	plans, index, err := l.loadPlans(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.loadDays(ctx, plans, index); err != nil {
		return nil, err
	}
	return plans, nil
}

func (l PGLoader) loadPlans(ctx context.Context) ([]RatePlan, map[ID]int, error) {
	rows, err := l.DB.Query(ctx, selectPlansSQL)
	if err != nil {
		return nil, nil, fmt.Errorf("query rate_plans: %w", err)
	}
	defer rows.Close()

	var plans []RatePlan
	index := map[ID]int{}
	for rows.Next() {
		var (
			id, rateCode, roomType int64
			name, mode             string
		)
		if err := rows.Scan(&id, &name, &rateCode, &roomType, &mode); err != nil {
			return nil, nil, fmt.Errorf("scan rate_plans: %w", err)
		}
		index[ID(id)] = len(plans)
		plans = append(plans, RatePlan{
			ID:         ID(id),
			Name:       name,
			RateCodeID: ID(rateCode),
			RoomTypeID: ID(roomType),
			SellMode:   ParseSellMode(mode),
			Days:       map[string]DailyRate{},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rate_plans: %w", err)
	}
	return plans, index, nil
}

func (l PGLoader) loadDays(ctx context.Context, plans []RatePlan, index map[ID]int) error {
	rows, err := l.DB.Query(ctx, selectDaysSQL)
	if err != nil {
		return fmt.Errorf("query rate_plan_days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			planID             int64
			date               string
			defaultRate, child *string
			pax                [MaxPax]*string
		)
		dest := make([]any, 0, 4+MaxPax)
		dest = append(dest, &planID, &date, &defaultRate, &child)
		for i := range pax {
			dest = append(dest, &pax[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan rate_plan_days: %w", err)
		}
		idx, ok := index[ID(planID)]
		if !ok {
			continue
		}
		day := DailyRate{
			DefaultRate: parseAmount(defaultRate),
			ChildRate:   parseAmount(child),
		}
		for i, v := range pax {
			if v == nil {
				continue
			}
			if day.Pax == nil {
				day.Pax = make(map[int]decimal.Decimal, MaxPax)
			}
			day.Pax[i+1] = parseAmount(v)
		}
		plans[idx].Days[date] = day
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rate_plan_days: %w", err)
	}
	return nil
}

func parseAmount(v *string) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return decimal.Zero
	}
	return d
}
