// Package acceptance is a test set every varpoll.Executor implementation must pass.
package acceptance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ngicks/varpoll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ExecutorTestOption struct {
	// Advance lets time pass by d. Real-time executors sleep; fake ones move their clock.
	Advance func(d time.Duration)
	// Wait is how long a test waits for a callback after Advance. Defaults to a second.
	Wait time.Duration
}

func (o ExecutorTestOption) wait() time.Duration {
	if o.Wait <= 0 {
		return time.Second
	}
	return o.Wait
}

// TestExecutor checks the varpoll.Executor contract:
//
//   - fn runs once after d, never synchronously inside AfterFunc.
//   - Cancel before firing returns true and fn never runs.
//   - Cancel of a running or finished callback returns false.
//   - Cancel(true) on a running callback cancels its context; Cancel(false) does not.
func TestExecutor(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	t.Run("fires after delay", func(t *testing.T) {
		testExecutor_fires_after_delay(t, ex, opt)
	})
	t.Run("never calls fn synchronously", func(t *testing.T) {
		testExecutor_never_calls_fn_synchronously(t, ex, opt)
	})
	t.Run("cancel before firing", func(t *testing.T) {
		testExecutor_cancel_before_firing(t, ex, opt)
	})
	t.Run("cancel while running", func(t *testing.T) {
		testExecutor_cancel_while_running(t, ex, opt)
	})
	t.Run("cancel after finished", func(t *testing.T) {
		testExecutor_cancel_after_finished(t, ex, opt)
	})
}

func waitFor(t *testing.T, ch <-chan struct{}, wait time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(wait):
		t.Fatal(msg)
	}
}

func testExecutor_fires_after_delay(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	var mu sync.Mutex
	count := 0
	done := make(chan struct{}, 1)
	ex.AfterFunc(10*time.Millisecond, func(ctx context.Context) {
		mu.Lock()
		count++
		mu.Unlock()
		done <- struct{}{}
	})

	opt.Advance(15 * time.Millisecond)
	waitFor(t, done, opt.wait(), "callback did not fire")

	opt.Advance(15 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func testExecutor_never_calls_fn_synchronously(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	var mu sync.Mutex
	done := make(chan struct{})
	returned := make(chan struct{})

	// fn blocks on mu, which is held across AfterFunc. A synchronous call would deadlock.
	mu.Lock()
	go func() {
		ex.AfterFunc(0, func(ctx context.Context) {
			mu.Lock()
			mu.Unlock()
			close(done)
		})
		close(returned)
	}()
	waitFor(t, returned, opt.wait(), "AfterFunc called fn synchronously")
	mu.Unlock()

	opt.Advance(0)
	waitFor(t, done, opt.wait(), "callback did not fire")
}

func testExecutor_cancel_before_firing(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	var mu sync.Mutex
	called := false
	h := ex.AfterFunc(20*time.Millisecond, func(ctx context.Context) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	assert.True(t, h.Cancel(false))
	assert.False(t, h.Cancel(true), "second Cancel must report false")

	opt.Advance(40 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called)
}

func testExecutor_cancel_while_running(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	handleCh := make(chan varpoll.Handle, 1)
	done := make(chan struct{})

	var (
		cancelledNoInterrupt bool
		errAfterNoInterrupt  error
		cancelledInterrupt   bool
		errAfterInterrupt    error
	)
	handleCh <- ex.AfterFunc(0, func(ctx context.Context) {
		defer close(done)
		h := <-handleCh
		cancelledNoInterrupt = h.Cancel(false)
		errAfterNoInterrupt = ctx.Err()
		cancelledInterrupt = h.Cancel(true)
		errAfterInterrupt = ctx.Err()
	})

	opt.Advance(0)
	waitFor(t, done, opt.wait(), "callback did not fire")

	require.False(t, cancelledNoInterrupt)
	require.NoError(t, errAfterNoInterrupt)
	require.False(t, cancelledInterrupt)
	require.ErrorIs(t, errAfterInterrupt, context.Canceled)
}

func testExecutor_cancel_after_finished(t *testing.T, ex varpoll.Executor, opt ExecutorTestOption) {
	done := make(chan struct{})
	h := ex.AfterFunc(0, func(ctx context.Context) { close(done) })

	opt.Advance(0)
	waitFor(t, done, opt.wait(), "callback did not fire")

	// The executor may still be unwinding the callback.
	opt.Advance(5 * time.Millisecond)
	assert.False(t, h.Cancel(false))
	assert.False(t, h.Cancel(true))
}
