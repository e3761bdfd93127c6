package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ngicks/varpoll"
)

var ErrRoundTimeout = errors.New("round timed out")

// TimeoutMiddleware bounds a single round.
// The work must honor its context; the middleware does not abandon a round that ignores it.
type TimeoutMiddleware struct {
	timeout time.Duration
}

func New(timeout time.Duration) *TimeoutMiddleware {
	return &TimeoutMiddleware{
		timeout: timeout,
	}
}

func (mw *TimeoutMiddleware) Middleware(work varpoll.WorkFn) varpoll.WorkFn {
	return func(ctx context.Context) (time.Duration, error) {
		if mw.timeout <= 0 {
			return work(ctx)
		}
		roundCtx, cancel := context.WithTimeout(ctx, mw.timeout)
		defer cancel()

		next, err := work(roundCtx)
		if err != nil && errors.Is(roundCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return next, fmt.Errorf("%w: exceeded %s: %w", ErrRoundTimeout, mw.timeout, err)
		}
		return next, err
	}
}
