package varpoll

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ngicks/varpoll/common"
)

// Poller repeatedly invokes a WorkFn.
// Each round decides the delay before the next one.
// Callers may override the schedule with Reschedule or end it with Stop at any time.
//
// The generation counter identifies the only chain of rounds allowed to arm a successor.
// Arming compares the caller's generation with the current one and increments it on match,
// so a round superseded by Reschedule or Stop is dropped after it returns, with an Info line.
type Poller struct {
	id           string
	work         WorkFn
	fallback     time.Duration
	startupDelay time.Duration
	executor     Executor
	logger       Logger
	getNow       common.GetNower
	observers    []func(Result)

	// runMu serializes rounds so that a superseded round and the live one never overlap.
	runMu   sync.Mutex
	running atomic.Bool

	mu         sync.Mutex
	generation uint64
	pending    Handle
	stopped    bool
}

// New creates a Poller and arms its first round after the startup delay.
//
// fallback is the delay used after a failed round.
// ErrInvalidArg is returned if fallback or the startup delay is negative.
//
// panic: If executor or work is nil.
func New(executor Executor, work WorkFn, fallback time.Duration, options ...Option) (*Poller, error) {
	if executor == nil || work == nil {
		panic(
			fmt.Errorf(
				"%w: one or more of arguments is nil. executor is nil=[%t], work is nil=[%t]",
				ErrInvalidArg,
				executor == nil,
				work == nil,
			),
		)
	}
	if fallback < 0 {
		return nil, fmt.Errorf("%w: negative fallback delay %s", ErrInvalidArg, fallback)
	}

	p := &Poller{
		id:           uuid.NewString(),
		work:         work,
		fallback:     fallback,
		startupDelay: DefaultStartupDelay,
		executor:     executor,
		logger:       nopLogger{},
		getNow:       common.GetNowImpl{},
	}
	for _, opt := range options {
		p = opt(p)
	}
	if p.startupDelay < 0 {
		return nil, fmt.Errorf("%w: negative startup delay %s", ErrInvalidArg, p.startupDelay)
	}

	p.mu.Lock()
	p.arm(p.generation, p.startupDelay)
	p.mu.Unlock()
	return p, nil
}

// Reschedule cancels the pending round and arms a new one after delay.
// If cancelIfRunning is true, a round that is running right now is interrupted.
// Reschedule never waits for a running round to return.
//
// ErrInvalidArg is returned if delay is negative.
// ErrStopped is returned after Stop.
func (p *Poller) Reschedule(delay time.Duration, cancelIfRunning bool) error {
	if delay < 0 {
		return fmt.Errorf("%w: negative delay %s", ErrInvalidArg, delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	if p.pending != nil {
		p.pending.Cancel(cancelIfRunning)
	}
	p.arm(p.generation, delay)
	return nil
}

// Stop stops the Poller permanently.
// A round running at the moment of Stop may finish, unless interrupted by cancelIfRunning,
// but it never arms a successor. Calling Stop twice is a no-op.
func (p *Poller) Stop(cancelIfRunning bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.generation++
	if p.pending != nil {
		p.pending.Cancel(cancelIfRunning)
		p.pending = nil
	}
	p.logger.Info("stopped", "poller_id", p.id, "generation", strconv.FormatUint(p.generation, 10))
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return Stopped
	}
	if p.running.Load() {
		return Running
	}
	return Armed
}

// Generation returns the current generation. It only ever increases.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *Poller) ID() string {
	return p.id
}

// arm must be called with mu held.
func (p *Poller) arm(expected uint64, delay time.Duration) (armed bool) {
	if p.generation != expected {
		return false
	}
	p.generation++
	gen := p.generation
	p.pending = p.executor.AfterFunc(delay, func(ctx context.Context) {
		p.invoke(ctx, gen)
	})
	return true
}

func (p *Poller) invoke(ctx context.Context, gen uint64) {
	result, ok := p.round(ctx, gen)
	if !ok {
		return
	}
	for _, observer := range p.observers {
		observer(result)
	}
}

func (p *Poller) round(ctx context.Context, gen uint64) (result Result, ok bool) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return Result{}, false
	}

	p.running.Store(true)
	startedAt := p.getNow.GetNow()
	next, err := p.runWork(ctx)
	elapsed := p.getNow.GetNow().Sub(startedAt)
	p.running.Store(false)

	if err != nil {
		p.logger.Error(
			err,
			"poller_id", p.id,
			"generation", strconv.FormatUint(gen, 10),
			"fallback", p.fallback.String(),
		)
		next = p.fallback
	}

	p.mu.Lock()
	rearmed := p.arm(gen, next)
	p.mu.Unlock()

	if !rearmed {
		p.logger.Info(
			"superseded",
			"poller_id", p.id,
			"generation", strconv.FormatUint(gen, 10),
			"rearmed", "false",
		)
	}

	return Result{
		PollerID:   p.id,
		Generation: gen,
		StartedAt:  startedAt,
		Elapsed:    elapsed,
		Next:       next,
		Err:        err,
		Rearmed:    rearmed,
	}, true
}

func (p *Poller) runWork(ctx context.Context) (next time.Duration, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next = 0
			err = &PanicError{Value: rec}
		}
	}()
	next, err = p.work(ctx)
	if err == nil && next < 0 {
		err = fmt.Errorf("%w: %s", ErrNegativeDelay, next)
	}
	return
}
