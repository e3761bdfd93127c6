// Package timer implements varpoll.Executor on top of time.AfterFunc.
// Every firing runs in its own goroutine.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/ngicks/varpoll"
)

var _ varpoll.Executor = (*Executor)(nil)

type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates an Executor.
// Callbacks receive contexts derived from parent.
// Cancelling parent or calling Close interrupts every running callback and drops unfired ones.
func New(parent context.Context) *Executor {
	ctx, cancel := context.WithCancel(parent)
	return &Executor{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (e *Executor) AfterFunc(d time.Duration, fn func(ctx context.Context)) varpoll.Handle {
	h := &handle{}
	h.ctx, h.cancel = context.WithCancel(e.ctx)
	h.timer = time.AfterFunc(d, func() {
		defer h.cancel()
		if !e.enter() {
			return
		}
		defer e.wg.Done()
		select {
		case <-h.ctx.Done():
			// Fast path: cancelled after the timer fired but before this goroutine ran.
			return
		default:
		}
		fn(h.ctx)
	})
	return h
}

// enter registers a firing callback. It reports false once Close has been called.
func (e *Executor) enter() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}

// Close interrupts running callbacks, drops unfired ones
// and waits until every running callback returns.
// Calling Close from inside a callback deadlocks.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

type handle struct {
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

func (h *handle) Cancel(interruptIfRunning bool) (cancelled bool) {
	cancelled = h.timer.Stop()
	if cancelled || interruptIfRunning {
		h.cancel()
	}
	return
}
