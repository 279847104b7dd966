package digest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Spacer enforces a minimum interval between provider round-trips.
// The first Wait returns immediately.
type Spacer struct {
	limiter *rate.Limiter
}

// NewSpacer creates a spacer with one slot per interval. A zero interval disables spacing.
func NewSpacer(interval time.Duration) *Spacer {
	if interval <= 0 {
		return &Spacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Spacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next slot or ctx is done
func (s *Spacer) Wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
