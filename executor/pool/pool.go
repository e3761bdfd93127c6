// Package pool implements varpoll.Executor with a fixed number of worker goroutines.
//
// Timers hand due callbacks to a queue consumed by the workers,
// so the number of concurrently running callbacks is bounded by the worker count.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ngicks/varpoll"
)

var _ varpoll.Executor = (*Pool)(nil)

type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	jobCh  chan *job
	active atomic.Int64

	mu      sync.Mutex
	workers []*worker
}

// New starts a pool of workers goroutines.
// queueSize is capacity of the queue between timers and workers. Zero makes it unbuffered.
// Stop must be called to release workers.
func New(parent context.Context, workers int, queueSize int) (*Pool, error) {
	if workers <= 0 || queueSize < 0 {
		return nil, fmt.Errorf(
			"%w: workers must be positive and queueSize must not be negative. workers=[%d], queueSize=[%d]",
			ErrInvalidArg,
			workers,
			queueSize,
		)
	}

	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobCh:  make(chan *job, queueSize),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < workers; i++ {
		w := newWorker(
			i,
			p.jobCh,
			func() { p.active.Add(1) },
			func() { p.active.Add(-1) },
		)
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = w.start()
		}()
	}
	return p, nil
}

func (p *Pool) AfterFunc(d time.Duration, fn func(ctx context.Context)) varpoll.Handle {
	j := &job{fn: fn}
	j.ctx, j.cancel = context.WithCancel(p.ctx)
	j.timer = time.AfterFunc(d, func() {
		select {
		case p.jobCh <- j:
		case <-j.ctx.Done():
		}
	})
	return j
}

// Active returns the number of workers running a callback right now.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Len returns the number of workers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Stop interrupts running callbacks, drops queued and unfired ones
// and waits until all workers return.
func (p *Pool) Stop() {
	p.cancel()
	p.mu.Lock()
	for _, w := range p.workers {
		w.stop()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
