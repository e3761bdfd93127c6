// Package manual implements a deterministic varpoll.Executor driven by a fake clock.
//
// Nothing fires until Advance or RunNext is called.
// Callbacks run synchronously on the caller's goroutine, one at a time, in scheduled order.
package manual

import (
	"context"
	"sync"
	"time"

	"github.com/ngicks/varpoll"
	"github.com/ngicks/varpoll/common"
	"github.com/ngicks/varpoll/internal/heap"
)

var (
	_ varpoll.Executor = (*Executor)(nil)
	_ common.GetNower  = (*Executor)(nil)
)

type entryState int

const (
	entryPending entryState = iota
	entryRunning
	entryFinished
	entryCancelled
)

type entry struct {
	ex     *Executor
	at     time.Time
	seq    uint64
	fn     func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	state  entryState
}

func less(i, j *entry) bool {
	if !i.at.Equal(j.at) {
		return i.at.Before(j.at)
	}
	return i.seq < j.seq
}

// Cancel implements varpoll.Handle.
func (en *entry) Cancel(interruptIfRunning bool) (cancelled bool) {
	en.ex.mu.Lock()
	defer en.ex.mu.Unlock()

	switch en.state {
	case entryPending:
		en.ex.q.RemoveFunc(func(ele *entry) bool { return ele == en })
		en.state = entryCancelled
		en.cancel()
		return true
	case entryRunning:
		if interruptIfRunning {
			en.cancel()
		}
	}
	return false
}

type Executor struct {
	mu  sync.Mutex
	now time.Time
	seq uint64
	q   *heap.Heap[*entry]
}

// New returns an Executor whose clock starts at now.
func New(now time.Time) *Executor {
	return &Executor{
		now: now,
		q:   heap.New(less),
	}
}

func (e *Executor) GetNow() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *Executor) AfterFunc(d time.Duration, fn func(ctx context.Context)) varpoll.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	en := &entry{
		ex:     e,
		at:     e.now.Add(d),
		seq:    e.seq,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
	}
	e.seq++
	e.q.Push(en)
	return en
}

// Advance moves the clock forward by d, firing every callback due on the way.
// Callbacks scheduled while advancing also fire if they fall within the window,
// so a callback that always re-arms itself with zero delay makes Advance loop forever.
func (e *Executor) Advance(d time.Duration) (fired int) {
	e.mu.Lock()
	target := e.now.Add(d)
	e.mu.Unlock()

	for e.fireNext(func(en *entry) bool { return !en.at.After(target) }) {
		fired++
	}

	e.mu.Lock()
	if target.After(e.now) {
		e.now = target
	}
	e.mu.Unlock()
	return fired
}

// RunNext jumps the clock to the earliest pending callback and fires it.
// It returns false if nothing is pending.
func (e *Executor) RunNext() (ok bool) {
	return e.fireNext(func(*entry) bool { return true })
}

// Len returns the number of pending callbacks.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.Len()
}

// NextAt returns the time the earliest pending callback is due.
func (e *Executor) NextAt() (at time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.q.Peek()
	if !ok {
		return time.Time{}, false
	}
	return en.at, true
}

func (e *Executor) fireNext(due func(en *entry) bool) bool {
	e.mu.Lock()
	en, ok := e.q.Peek()
	if !ok || !due(en) {
		e.mu.Unlock()
		return false
	}
	e.q.Pop()
	if en.at.After(e.now) {
		e.now = en.at
	}
	en.state = entryRunning
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		en.state = entryFinished
		e.mu.Unlock()
		en.cancel()
	}()
	en.fn(en.ctx)
	return true
}
