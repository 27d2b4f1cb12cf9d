package rateplan

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-stayrate/internal/cache"
	"github.com/noah-isme/backend-stayrate/internal/lock"
)

// Locker serialises cache warm-ups across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// CachedLoader serves the plan table from Redis and falls back to Source on a
// miss. The fill runs under Locker so only one instance hits the database
// when the cache is cold.
type CachedLoader struct {
	Source  Loader
	Cache   *cache.JSON
	Locker  Locker
	Key     string
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

// LoadRatePlans implements Loader.
func (c CachedLoader) LoadRatePlans(ctx context.Context) ([]RatePlan, error) {
	if c.Source == nil {
		return nil, errors.New("rateplan: source loader not configured")
	}
	if plans, ok := c.fromCache(ctx); ok {
		return plans, nil
	}
	if c.Locker == nil {
		return c.fill(ctx)
	}

	var plans []RatePlan
	err := c.Locker.WithLock(ctx, c.key(), c.LockTTL, func(lockCtx context.Context) error {
		if cached, ok := c.fromCache(lockCtx); ok {
			plans = cached
			return nil
		}
		loaded, err := c.fill(lockCtx)
		plans = loaded
		return err
	})
	if errors.Is(err, lock.ErrNotConfigured) {
		return c.fill(ctx)
	}
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (c CachedLoader) fromCache(ctx context.Context) ([]RatePlan, bool) {
	var plans []RatePlan
	ok, err := c.Cache.Get(ctx, c.key(), &plans)
	if err != nil {
		c.logger().Warn().Err(err).Msg("rate_plan_cache_read_failed")
		return nil, false
	}
	return plans, ok
}

func (c CachedLoader) fill(ctx context.Context) ([]RatePlan, error) {
	plans, err := c.Source.LoadRatePlans(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, c.key(), plans); err != nil {
		c.logger().Warn().Err(err).Msg("rate_plan_cache_write_failed")
	}
	c.logger().Info().Int("plans", len(plans)).Msg("rate_plans_loaded")
	return plans, nil
}

func (c CachedLoader) key() string {
	if c.Key != "" {
		return c.Key
	}
	return cache.RatePlans("")
}

func (c CachedLoader) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}
