package pool

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	jobWaiting int32 = iota
	jobRunning
	jobDone
	jobCancelled
)

// job is a single delayed callback.
// It waits on its timer, then in the pool queue, then runs on a worker.
type job struct {
	state  atomic.Int32
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	fn     func(ctx context.Context)
}

func (j *job) run() {
	if !j.state.CompareAndSwap(jobWaiting, jobRunning) {
		return
	}
	defer j.cancel()
	defer j.state.Store(jobDone)
	select {
	case <-j.ctx.Done():
		// Fast path: the pool is stopping.
		return
	default:
	}
	j.fn(j.ctx)
}

// Cancel implements varpoll.Handle.
func (j *job) Cancel(interruptIfRunning bool) (cancelled bool) {
	j.timer.Stop()
	if j.state.CompareAndSwap(jobWaiting, jobCancelled) {
		j.cancel()
		return true
	}
	if interruptIfRunning && j.state.Load() == jobRunning {
		j.cancel()
	}
	return false
}
