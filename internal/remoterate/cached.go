package remoterate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-stayrate/internal/cache"
)

// Cached serves repeated identical requests from Redis. Only successful
// responses are stored; failures always reach Next.
type Cached struct {
	Next   Client
	Cache  *cache.JSON
	Prefix string
	Logger *zerolog.Logger
}

// Rates implements Client.
func (c Cached) Rates(ctx context.Context, req Request) ([]DailyRate, error) {
	if c.Next == nil {
		return nil, ErrNotConfigured
	}
	key := c.key(req)
	var rates []DailyRate
	hit, err := c.Cache.Get(ctx, key, &rates)
	if err != nil {
		c.log().Warn().Err(err).Str("key", key).Msg("remote_rate_cache_read_failed")
	} else if hit {
		return rates, nil
	}

	rates, err = c.Next.Rates(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, rates); err != nil {
		c.log().Warn().Err(err).Str("key", key).Msg("remote_rate_cache_write_failed")
	}
	return rates, nil
}

func (c Cached) key(req Request) string {
	prefix := "remoterate"
	if c.Prefix != "" {
		prefix = c.Prefix + ":" + prefix
	}
	return cache.HashedKey(prefix, req.RatePlanID, req.RoomTypeID, req.MealPlanID, req.CurrencyCode,
		req.StartDate, req.EndDate, req.Adults, req.Children)
}

func (c Cached) log() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}
