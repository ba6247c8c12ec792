package quotagate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Stagger returns n submission delays spaced interval apart:
// 0, interval, 2*interval, ... Callers submitting several bursts
// concurrently sleep their delay before the first Reserve so the attempts
// don't all race the same tier's headroom in the same instant.
func Stagger(n int, interval time.Duration) []time.Duration {
	if n <= 0 {
		return nil
	}
	delays := make([]time.Duration, n)
	for i := range delays {
		delays[i] = time.Duration(i) * interval
	}
	return delays
}

// Pacer is the blocking alternative to Stagger for callers whose submission
// count isn't known upfront: each Wait admits one submission per interval.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer creates a Pacer that releases one submission per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next submission slot or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
