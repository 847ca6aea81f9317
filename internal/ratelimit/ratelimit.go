// Package ratelimit throttles how many documents are evaluated per second
// when reading streams.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

type Limiter struct {
	limiter *rate.Limiter
}

// New uses 0 or negative limit for no rate limiting.
func New(docsPerSecond float64) *Limiter {
	if docsPerSecond <= 0 {
		return &Limiter{
			limiter: rate.NewLimiter(rate.Inf, 1),
		}
	}

	// burst of 1: the first document goes through immediately
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(docsPerSecond), 1),
	}
}

// Wait blocks until the next document may be evaluated or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow is non-blocking and useful for checking throttling.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns documents per second, 0 when unlimited.
func (l *Limiter) Limit() float64 {
	limit := l.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}
