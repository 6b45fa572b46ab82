package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket limiter controlling request rates
// to external APIs. Safe for concurrent use.
//
// Typical configurations:
//   - arXiv: NewRateLimiter(3, 3)
//   - SerpAPI: NewRateLimiter(1, 2)
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained
// requests with the given burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow consumes a token when one is available without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetRate adjusts the sustained rate, keeping the burst size. Used
// when an API's rate limit headers ask for a slowdown.
func (r *RateLimiter) SetRate(ratePerSecond float64) {
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
}

// Tokens returns the tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
