// Package ratelimit paces outbound requests to the content source.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates requests to the content source.
type Limiter interface {
	// Wait blocks until a request may proceed or the context is cancelled.
	Wait(ctx context.Context) error
	// Allow reports whether a request may proceed right now.
	Allow() bool
}

type tokenLimiter struct {
	limiter *rate.Limiter
}

// PerMinute returns a limiter allowing n requests per minute with the given
// burst. Non-positive arguments fall back to 60/min with a burst of 1.
func PerMinute(n, burst int) Limiter {
	if n <= 0 {
		n = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), burst),
	}
}

func (t *tokenLimiter) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

func (t *tokenLimiter) Allow() bool {
	return t.limiter.Allow()
}

// Unlimited returns a limiter that never blocks. Tests and offline sources
// use it.
func Unlimited() Limiter {
	return &tokenLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}
