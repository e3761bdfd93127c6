package logger

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ngicks/varpoll"
	"golang.org/x/time/rate"
)

var _ varpoll.Logger = (*Throttled)(nil)

// Throttled limits the rate of Error calls forwarded to an inner Logger.
// A poller whose work keeps failing would otherwise log once per fallback delay forever.
// Info is never throttled.
//
// The first Error allowed after a suppressed period carries a "suppressed" value
// with the number of errors dropped in between.
type Throttled struct {
	inner   varpoll.Logger
	limiter *rate.Limiter
	dropped atomic.Uint64
}

// Throttle allows burst errors at once and one more every interval after that.
func Throttle(inner varpoll.Logger, every time.Duration, burst int) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

func (t *Throttled) Info(v any, logValues ...string) {
	t.inner.Info(v, logValues...)
}

func (t *Throttled) Error(e error, logValues ...string) {
	if !t.limiter.Allow() {
		t.dropped.Add(1)
		return
	}
	if n := t.dropped.Swap(0); n > 0 {
		logValues = append(logValues[:len(logValues):len(logValues)], "suppressed", strconv.FormatUint(n, 10))
	}
	t.inner.Error(e, logValues...)
}

// Dropped returns the number of errors dropped since the last forwarded one.
func (t *Throttled) Dropped() uint64 {
	return t.dropped.Load()
}
