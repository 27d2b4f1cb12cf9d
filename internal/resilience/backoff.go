package resilience

import (
	"math/rand/v2"
	"time"
)

// Backoff doubles base for every attempt after the first. jitterPct is a
// fraction, so 0.2 spreads the result by up to 20% either way.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
