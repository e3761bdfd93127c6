package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/ngicks/varpoll"
	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("round skipped by rate limit")

// RateLimitMiddleware skips rounds that exceed the limiter's rate.
// A skipped round fails with ErrRateLimited, so the poller waits its fallback delay.
// It guards the polled device against storms of Reschedule(0, ...) calls.
type RateLimitMiddleware struct {
	limiter *rate.Limiter
}

func New(every time.Duration, burst int) *RateLimitMiddleware {
	return NewWithLimiter(rate.NewLimiter(rate.Every(every), burst))
}

// NewWithLimiter shares limiter, for example among pollers hitting the same host.
func NewWithLimiter(limiter *rate.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

func (mw *RateLimitMiddleware) Middleware(work varpoll.WorkFn) varpoll.WorkFn {
	return func(ctx context.Context) (time.Duration, error) {
		if !mw.limiter.Allow() {
			return 0, ErrRateLimited
		}
		return work(ctx)
	}
}
