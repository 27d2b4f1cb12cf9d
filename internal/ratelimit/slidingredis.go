package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims events older than the window, records the new one and
// returns the count and the oldest surviving score. KEYS[1] is the window
// set; ARGV is now (ms), window (ms), member.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
redis.call('ZADD', KEYS[1], now, ARGV[3])
redis.call('PEXPIRE', KEYS[1], window)
local count = redis.call('ZCARD', KEYS[1])
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {count, oldest[2]}
`)

// Limiter is a sliding-window limiter on Redis sorted sets, shared by every
// API instance.
type Limiter struct {
	Client *redis.Client
	Prefix string
	now    func() time.Time
}

// Allow records one event for key. The reset time is when the oldest event in
// the window expires.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	if l.now != nil {
		now = l.now()
	}
	if l.Client == nil || max <= 0 || window < time.Millisecond {
		return true, max, now.Add(window), nil
	}

	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())
	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		now.UnixMilli(), window.Milliseconds(), member).Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}

	count, _ := res[0].(int64)
	reset := now.Add(window)
	if len(res) > 1 {
		if s, ok := res[1].(string); ok {
			if oldest, err := strconv.ParseFloat(s, 64); err == nil {
				reset = time.UnixMilli(int64(oldest)).Add(window)
			}
		}
	}
	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= max, remaining, reset, nil
}
