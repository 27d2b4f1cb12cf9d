package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-stayrate/internal/obs"
	"github.com/noah-isme/backend-stayrate/internal/pricing"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
	"github.com/noah-isme/backend-stayrate/internal/remoterate"
)

// Outcome reports what a pricing pass did to its row.
type Outcome string

const (
	// OutcomeUpdated means the row now carries freshly computed prices.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkipped means the row was not eligible (Manual, FOC or missing drivers).
	OutcomeSkipped Outcome = "skipped"
	// OutcomePlanMiss means no rate plan matched; the row is left unpriced with
	// every date reported as a gap.
	OutcomePlanMiss Outcome = "plan_miss"
	// OutcomeFetchFailed means the remote lookup failed; prior prices are kept.
	OutcomeFetchFailed Outcome = "fetch_failed"
	// OutcomeStale means the row changed while the pass was in flight and the
	// result was discarded.
	OutcomeStale Outcome = "stale"
	// OutcomeBusy means a pass was already running; it re-runs if its result
	// goes stale.
	OutcomeBusy Outcome = "busy"
	// OutcomeRemoved means the row was deleted mid-pass.
	OutcomeRemoved Outcome = "removed"
)

const defaultMaxReruns = 3

// Engine runs pricing passes over the rows of a Form. Pricing failures never
// surface as errors: they are logged, counted and reported as an Outcome. A
// nil Remote prices rows from Plans alone.
type Engine struct {
	Plans  *rateplan.Store
	Remote remoterate.Client
	Logger *zerolog.Logger

	// Concurrency bounds RecomputeRows; zero means 4.
	Concurrency int

	// MaxReruns bounds how often a pass restarts after its result went stale.
	MaxReruns int
}

// snapshot is what a pass needs from the form, taken under its lock.
type snapshot struct {
	row    Row
	shared Shared
	stamp  uint64
}

// Recompute runs one pass for a row. The only error is ErrRowNotFound.
func (e *Engine) Recompute(ctx context.Context, f *Form, id uuid.UUID) (Outcome, error) {
	ctx, span := otel.Tracer("reservation.Engine").Start(ctx, "Engine.Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("row_id", id.String()))

	outcome, err := e.recompute(ctx, f, id)
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome, err
	}
	if obs.PricingPassTotal != nil {
		obs.PricingPassTotal.WithLabelValues(string(outcome)).Inc()
	}
	return outcome, nil
}

// RecomputeAll runs a pass for every row concurrently, bounded by Concurrency.
func (e *Engine) RecomputeAll(ctx context.Context, f *Form) (map[uuid.UUID]Outcome, error) {
	return e.RecomputeRows(ctx, f, f.IDs())
}

// RecomputeRows runs passes for the given rows concurrently. Rows removed
// before their pass starts are reported as OutcomeRemoved.
func (e *Engine) RecomputeRows(ctx context.Context, f *Form, ids []uuid.UUID) (map[uuid.UUID]Outcome, error) {
	outcomes := make([]Outcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, id := range ids {
		g.Go(func() error {
			outcome, err := e.Recompute(gctx, f, id)
			if errors.Is(err, ErrRowNotFound) {
				outcome = OutcomeRemoved
			} else if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Outcome, len(ids))
	for i, id := range ids {
		out[id] = outcomes[i]
	}
	return out, nil
}

func (e *Engine) recompute(ctx context.Context, f *Form, id uuid.UUID) (Outcome, error) {
	snap, outcome, err := e.begin(f, id)
	if err != nil || outcome != "" {
		return outcome, err
	}
	log := e.logger().With().Str("row_id", id.String()).Logger()

	for attempt := 0; ; attempt++ {
		result := e.price(ctx, &log, snap)

		f.mu.Lock()
		row, ok := f.rows[id]
		if !ok {
			f.mu.Unlock()
			return OutcomeRemoved, nil
		}
		if row.stamp(f.shared) != snap.stamp {
			if obs.StaleRateDiscardedTotal != nil {
				obs.StaleRateDiscardedTotal.Inc()
			}
			log.Debug().Int("attempt", attempt).Msg("stale_rate_discarded")
			if attempt >= e.maxReruns() {
				row.busy, row.pending = false, false
				f.mu.Unlock()
				return OutcomeStale, nil
			}
			row.pending = false
			snap = snapshot{row: row.Clone(), shared: f.shared, stamp: row.stamp(f.shared)}
			eligible := row.Eligible(f.shared.Range)
			if !eligible {
				row.busy = false
			}
			f.mu.Unlock()
			if !eligible {
				return OutcomeSkipped, nil
			}
			continue
		}
		switch {
		case result.quote != nil:
			row.apply(*result.quote, result.planID, result.gaps)
		case result.outcome == OutcomePlanMiss:
			row.unprice(snap.shared.Range)
		}
		row.busy, row.pending = false, false
		f.mu.Unlock()
		return result.outcome, nil
	}
}

// begin marks the row busy and snapshots it. A non-empty outcome ends the
// pass before any lookup.
func (e *Engine) begin(f *Form, id uuid.UUID) (snapshot, Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return snapshot{}, "", ErrRowNotFound
	}
	if row.busy {
		row.pending = true
		return snapshot{}, OutcomeBusy, nil
	}
	if !row.Eligible(f.shared.Range) {
		return snapshot{}, OutcomeSkipped, nil
	}
	row.busy = true
	return snapshot{row: row.Clone(), shared: f.shared, stamp: row.stamp(f.shared)}, "", nil
}

type passResult struct {
	outcome Outcome
	quote   *pricing.Quote
	planID  rateplan.ID
	gaps    []string
}

// price does the lock-free part of a pass: plan resolution, remote lookup
// and reconciliation.
func (e *Engine) price(ctx context.Context, log *zerolog.Logger, snap snapshot) passResult {
	row := snap.row
	plan := e.resolvePlan(row)
	if plan == nil {
		log.Debug().
			Str("rate_code_id", row.RateCodeID.String()).
			Str("room_type_id", row.RoomTypeID.String()).
			Msg("plan_resolution_miss")
		return passResult{outcome: OutcomePlanMiss}
	}

	stayRange := snap.shared.Range
	req := remoterate.NewRequest(stayRange, plan.ID, row.RoomTypeID, snap.shared.MealPlanID,
		snap.shared.CurrencyCode, row.Adults, row.Children)
	remote, err := e.fetch(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("rate_plan_id", plan.ID.String()).Str("stay", stayRange.Key()).Msg("rate_fetch_failed")
		return passResult{outcome: OutcomeFetchFailed}
	}

	rec := pricing.Reconcile(pricing.ReconcileInput{
		Dates:    stayRange.Dates(),
		Remote:   remote,
		Plan:     plan,
		Adults:   row.Adults,
		Children: row.Children,
		FOC:      row.IsFOC,
	})
	e.recordFallback(log, rec)
	quote := pricing.NewQuote(rec.Combined, rec.Child, stayRange.AveragingNights())
	return passResult{outcome: OutcomeUpdated, quote: &quote, planID: plan.ID, gaps: rec.Gaps}
}

func (e *Engine) resolvePlan(row Row) *rateplan.RatePlan {
	if !row.RatePlanID.IsZero() {
		if plan, err := e.Plans.Get(row.RatePlanID); err == nil {
			return plan
		}
	}
	plan, _ := e.Plans.Resolve(row.RateCodeID, row.RoomTypeID)
	return plan
}

func (e *Engine) fetch(ctx context.Context, req remoterate.Request) ([]remoterate.DailyRate, error) {
	if e.Remote == nil {
		return nil, nil
	}
	start := time.Now()
	rates, err := e.Remote.Rates(ctx, req)
	result := "success"
	if err != nil {
		result = "error"
	} else if len(rates) == 0 {
		result = "empty"
	}
	if obs.RemoteRateFetchTotal != nil {
		obs.RemoteRateFetchTotal.WithLabelValues(result).Inc()
	}
	if obs.RemoteRateFetchLatency != nil {
		obs.RemoteRateFetchLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return rates, err
}

func (e *Engine) recordFallback(log *zerolog.Logger, rec pricing.Reconciled) {
	if obs.FallbackFillTotal != nil {
		if n := len(rec.PlanFilled); n > 0 {
			obs.FallbackFillTotal.WithLabelValues("plan").Add(float64(n))
		}
		if n := len(rec.ChildFilled); n > 0 {
			obs.FallbackFillTotal.WithLabelValues("plan_child").Add(float64(n))
		}
	}
	if len(rec.Gaps) == 0 {
		return
	}
	if obs.FallbackGapTotal != nil {
		obs.FallbackGapTotal.Add(float64(len(rec.Gaps)))
	}
	log.Info().Strs("dates", rec.Gaps).Msg("fallback_gap")
}

func (e *Engine) concurrency() int {
	if e.Concurrency <= 0 {
		return 4
	}
	return e.Concurrency
}

func (e *Engine) maxReruns() int {
	if e.MaxReruns <= 0 {
		return defaultMaxReruns
	}
	return e.MaxReruns
}

func (e *Engine) logger() *zerolog.Logger {
	if e.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return e.Logger
}
