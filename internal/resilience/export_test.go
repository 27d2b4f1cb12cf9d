package resilience

import "time"

// SetClock swaps the breaker clock in tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}
