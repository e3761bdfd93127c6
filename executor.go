package varpoll

import (
	"context"
	"time"
)

// WorkFn is a single round of work.
// It returns the delay before the next round, or an error.
// ctx is cancelled when the round is interrupted by Reschedule or Stop with cancelIfRunning set,
// or when the executor tears down.
type WorkFn = func(ctx context.Context) (next time.Duration, err error)

// Executor is a delayed-execution facility.
//
// AfterFunc schedules fn to be called once after d elapses and returns a Handle to cancel it.
// Implementations must not call fn synchronously from inside AfterFunc,
// and Handle.Cancel must not block on a running fn.
type Executor interface {
	AfterFunc(d time.Duration, fn func(ctx context.Context)) Handle
}

// Handle is a cancellable reference to a scheduled fn.
type Handle interface {
	// Cancel prevents fn from being called if it has not started yet.
	// If interruptIfRunning is true and fn is running, the context passed to fn is cancelled.
	// Interruption is best-effort; fn may still run to completion.
	// cancelled reports whether this call prevented fn from running.
	Cancel(interruptIfRunning bool) (cancelled bool)
}
