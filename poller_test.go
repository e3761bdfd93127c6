package varpoll_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ngicks/varpoll"
	"github.com/ngicks/varpoll/executor/manual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

type step struct {
	next time.Duration
	err  error
}

// scriptedWork returns steps in order, then repeats the last one.
// It records the fake clock time of every call.
type scriptedWork struct {
	mu     sync.Mutex
	ex     *manual.Executor
	steps  []step
	idx    int
	called []time.Duration
	hook   func(ctx context.Context)
}

func (w *scriptedWork) Work(ctx context.Context) (time.Duration, error) {
	w.mu.Lock()
	w.called = append(w.called, w.ex.GetNow().Sub(base))
	s := w.steps[w.idx]
	if w.idx < len(w.steps)-1 {
		w.idx++
	}
	hook := w.hook
	w.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return s.next, s.err
}

func (w *scriptedWork) Called() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration{}, w.called...)
}

type resultRecorder struct {
	mu      sync.Mutex
	results []varpoll.Result
}

func (r *resultRecorder) Observe(res varpoll.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultRecorder) Results() []varpoll.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]varpoll.Result{}, r.results...)
}

func prepare(
	t *testing.T,
	fallback time.Duration,
	steps []step,
	options ...varpoll.Option,
) (*manual.Executor, *scriptedWork, *resultRecorder, *varpoll.Poller) {
	t.Helper()
	ex := manual.New(base)
	work := &scriptedWork{ex: ex, steps: steps}
	recorder := &resultRecorder{}
	options = append(
		[]varpoll.Option{varpoll.WithGetNow(ex), varpoll.WithObserver(recorder.Observe)},
		options...,
	)
	p, err := varpoll.New(ex, work.Work, fallback, options...)
	require.NoError(t, err)
	return ex, work, recorder, p
}

func assertCalledAt(t *testing.T, work *scriptedWork, expected ...time.Duration) {
	t.Helper()
	// No expected times means no calls, whether Called reports nil or empty.
	if diff := cmp.Diff(expected, work.Called(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("call times not as intended. diff = %s", diff)
	}
}

func TestPoller(t *testing.T) {
	t.Run("first round is armed after the startup delay", func(t *testing.T) {
		ex, work, _, p := prepare(t, time.Minute, []step{{next: 10 * time.Second}})

		require.Equal(t, varpoll.Armed, p.State())
		require.Equal(t, 1, ex.Len())
		at, _ := ex.NextAt()
		require.True(t, base.Add(varpoll.DefaultStartupDelay).Equal(at))

		ex.Advance(999 * time.Millisecond)
		assertCalledAt(t, work)

		ex.Advance(time.Millisecond)
		assertCalledAt(t, work, time.Second)

		ex.Advance(30 * time.Second)
		assertCalledAt(t, work, time.Second, 11*time.Second, 21*time.Second, 31*time.Second)
	})

	t.Run("startup delay is configurable", func(t *testing.T) {
		ex, work, _, _ := prepare(
			t,
			time.Minute,
			[]step{{next: time.Hour}},
			varpoll.WithStartupDelay(0),
		)
		ex.Advance(0)
		assertCalledAt(t, work, 0)
	})

	t.Run("work decides the next delay", func(t *testing.T) {
		ex, work, _, _ := prepare(t, time.Minute, []step{
			{next: 2 * time.Second},
			{next: 5 * time.Second},
			{next: time.Second},
			{next: time.Hour},
		})
		ex.Advance(time.Minute)
		assertCalledAt(t, work, time.Second, 3*time.Second, 8*time.Second, 9*time.Second)
	})

	t.Run("failed round falls back to fallback delay", func(t *testing.T) {
		sampleErr := errors.New("sample")
		ex, work, recorder, _ := prepare(t, 30*time.Second, []step{
			{next: 2 * time.Second},
			{next: 2 * time.Second, err: sampleErr},
			{next: time.Hour},
		})
		ex.Advance(time.Minute)
		assertCalledAt(t, work, time.Second, 3*time.Second, 33*time.Second)

		results := recorder.Results()
		require.Len(t, results, 3)
		assert.ErrorIs(t, results[1].Err, sampleErr)
		assert.Equal(t, 30*time.Second, results[1].Next)
		assert.True(t, results[1].Rearmed)
		assert.NoError(t, results[2].Err)
		assert.Equal(t, time.Hour, results[2].Next)
	})

	t.Run("panicking round falls back and the chain continues", func(t *testing.T) {
		ex := manual.New(base)
		recorder := &resultRecorder{}
		calls := 0
		_, err := varpoll.New(
			ex,
			func(ctx context.Context) (time.Duration, error) {
				calls++
				if calls == 1 {
					panic("boom")
				}
				return time.Hour, nil
			},
			10*time.Second,
			varpoll.WithObserver(recorder.Observe),
		)
		require.NoError(t, err)

		ex.Advance(11 * time.Second)
		require.Equal(t, 2, calls)
		results := recorder.Results()
		var panicErr *varpoll.PanicError
		require.ErrorAs(t, results[0].Err, &panicErr)
		assert.Equal(t, "boom", panicErr.Value)
	})

	t.Run("negative delay returned from work is treated as failure", func(t *testing.T) {
		ex, work, recorder, _ := prepare(t, 5*time.Second, []step{
			{next: -time.Second},
			{next: time.Hour},
		})
		ex.Advance(10 * time.Second)
		assertCalledAt(t, work, time.Second, 6*time.Second)
		assert.ErrorIs(t, recorder.Results()[0].Err, varpoll.ErrNegativeDelay)
	})

	t.Run("Reschedule overrides the pending wait", func(t *testing.T) {
		ex, work, _, p := prepare(t, time.Hour, []step{{next: time.Hour}})
		ex.Advance(time.Second)
		assertCalledAt(t, work, time.Second)

		require.NoError(t, p.Reschedule(time.Second, false))
		require.Equal(t, 1, ex.Len())
		ex.Advance(time.Second)
		assertCalledAt(t, work, time.Second, 2*time.Second)

		require.NoError(t, p.Reschedule(30*time.Minute, false))
		ex.Advance(time.Hour)
		assertCalledAt(t, work, time.Second, 2*time.Second, 2*time.Second+30*time.Minute)
	})

	t.Run("Reschedule can push the next round back", func(t *testing.T) {
		ex, work, _, p := prepare(t, time.Hour, []step{{next: 10 * time.Second}})
		require.NoError(t, p.Reschedule(time.Minute, false))
		ex.Advance(59 * time.Second)
		assertCalledAt(t, work)
		ex.Advance(time.Second)
		assertCalledAt(t, work, time.Minute)
	})

	t.Run("Reschedule rejects negative delay", func(t *testing.T) {
		ex, _, _, p := prepare(t, time.Hour, []step{{next: time.Hour}})
		gen := p.Generation()
		err := p.Reschedule(-time.Nanosecond, false)
		require.ErrorIs(t, err, varpoll.ErrInvalidArg)
		require.Equal(t, gen, p.Generation())
		require.Equal(t, 1, ex.Len())
	})

	t.Run("reschedule during a running round supersedes it", func(t *testing.T) {
		ex, work, recorder, p := prepare(t, time.Hour, []step{{next: time.Second}})
		work.hook = func(ctx context.Context) {
			work.hook = nil
			require.Equal(t, varpoll.Running, p.State())
			require.NoError(t, p.Reschedule(5*time.Second, false))
			assert.NoError(t, ctx.Err())
		}

		ex.Advance(time.Second)
		require.Equal(t, 1, ex.Len())
		at, _ := ex.NextAt()
		require.True(t, base.Add(6*time.Second).Equal(at))
		require.False(t, recorder.Results()[0].Rearmed)
		require.Equal(t, varpoll.Armed, p.State())

		ex.Advance(10 * time.Second)
		assertCalledAt(t, work, time.Second, 6*time.Second, 7*time.Second, 8*time.Second, 9*time.Second, 10*time.Second, 11*time.Second)
	})

	t.Run("cancelIfRunning interrupts the running round", func(t *testing.T) {
		ex := manual.New(base)
		recorder := &resultRecorder{}
		var p *varpoll.Poller
		first := true
		p, err := varpoll.New(
			ex,
			func(ctx context.Context) (time.Duration, error) {
				if first {
					first = false
					require.NoError(t, p.Reschedule(2*time.Second, true))
					return 0, ctx.Err()
				}
				return time.Hour, nil
			},
			time.Minute,
			varpoll.WithObserver(recorder.Observe),
		)
		require.NoError(t, err)

		ex.Advance(time.Second)
		results := recorder.Results()
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, context.Canceled)
		assert.False(t, results[0].Rearmed)

		at, _ := ex.NextAt()
		require.True(t, base.Add(3*time.Second).Equal(at))
	})

	t.Run("Stop is terminal and idempotent", func(t *testing.T) {
		ex, work, _, p := prepare(t, time.Second, []step{{next: time.Second}})
		ex.Advance(3 * time.Second)
		assertCalledAt(t, work, time.Second, 2*time.Second, 3*time.Second)

		p.Stop(false)
		gen := p.Generation()
		require.Equal(t, varpoll.Stopped, p.State())
		require.Equal(t, 0, ex.Len())

		p.Stop(true)
		require.Equal(t, gen, p.Generation())
		require.Equal(t, varpoll.Stopped, p.State())

		require.ErrorIs(t, p.Reschedule(0, false), varpoll.ErrStopped)
		require.Equal(t, gen, p.Generation())
		require.Equal(t, 0, ex.Len())

		ex.Advance(time.Hour)
		assertCalledAt(t, work, time.Second, 2*time.Second, 3*time.Second)
	})

	t.Run("Stop during a running round prevents its successor", func(t *testing.T) {
		ex, work, recorder, p := prepare(t, time.Second, []step{{next: time.Second}})
		work.hook = func(ctx context.Context) {
			p.Stop(false)
			assert.NoError(t, ctx.Err())
		}
		ex.Advance(time.Hour)
		assertCalledAt(t, work, time.Second)
		require.False(t, recorder.Results()[0].Rearmed)
		require.Equal(t, 0, ex.Len())
	})

	t.Run("stale callback does not run work after Stop", func(t *testing.T) {
		ex, work, _, p := prepare(t, time.Second, []step{{next: time.Second}})
		// Simulates a callback that fired concurrently with Stop, too late to be cancelled.
		var stale func(ctx context.Context)
		staleEx := &capturingExecutor{inner: ex, capture: func(fn func(ctx context.Context)) { stale = fn }}
		p2, err := varpoll.New(staleEx, work.Work, time.Second)
		require.NoError(t, err)
		require.NotNil(t, stale)

		p2.Stop(false)
		stale(context.Background())
		assertCalledAt(t, work)
		require.Equal(t, 1, ex.Len())
		p.Stop(false)
		require.Equal(t, 0, ex.Len())
	})

	t.Run("generation strictly increases", func(t *testing.T) {
		ex, _, recorder, p := prepare(t, time.Second, []step{{next: time.Second}})
		gens := []uint64{p.Generation()}
		for i := 0; i < 10; i++ {
			ex.Advance(time.Second)
			gens = append(gens, p.Generation())
			require.NoError(t, p.Reschedule(time.Second, i%2 == 0))
			gens = append(gens, p.Generation())
		}
		p.Stop(false)
		gens = append(gens, p.Generation())

		for i := 1; i < len(gens); i++ {
			require.Greater(t, gens[i], gens[i-1], "generations = %v", gens)
		}
		results := recorder.Results()
		for i := 1; i < len(results); i++ {
			require.Greater(t, results[i].Generation, results[i-1].Generation)
		}
	})

	t.Run("results are stamped with the injected clock", func(t *testing.T) {
		ex, _, recorder, p := prepare(t, time.Second, []step{{next: time.Second}}, varpoll.WithID("garage"))
		ex.Advance(2 * time.Second)
		results := recorder.Results()
		require.Len(t, results, 2)
		assert.Equal(t, "garage", p.ID())
		assert.Equal(t, "garage", results[0].PollerID)
		assert.True(t, base.Add(time.Second).Equal(results[0].StartedAt))
		assert.True(t, base.Add(2*time.Second).Equal(results[1].StartedAt))
		assert.Equal(t, time.Duration(0), results[1].Elapsed)
	})
}

func TestNew(t *testing.T) {
	ex := manual.New(base)
	work := func(ctx context.Context) (time.Duration, error) { return time.Second, nil }

	require.Panics(t, func() { varpoll.New(nil, work, time.Second) })
	require.Panics(t, func() { varpoll.New(ex, nil, time.Second) })

	_, err := varpoll.New(ex, work, -time.Second)
	require.ErrorIs(t, err, varpoll.ErrInvalidArg)

	_, err = varpoll.New(ex, work, time.Second, varpoll.WithStartupDelay(-time.Second))
	require.ErrorIs(t, err, varpoll.ErrInvalidArg)

	p, err := varpoll.New(ex, work, time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID())
	p.Stop(false)
}

func TestLogger(t *testing.T) {
	ex := manual.New(base)
	logger := &recordingLogger{}
	sampleErr := errors.New("sample")
	p, err := varpoll.New(
		ex,
		func(ctx context.Context) (time.Duration, error) { return 0, sampleErr },
		time.Second,
		varpoll.WithLogger(logger),
		varpoll.WithID("id"),
	)
	require.NoError(t, err)

	ex.Advance(2 * time.Second)
	p.Stop(false)

	require.Len(t, logger.errors, 2)
	assert.ErrorIs(t, logger.errors[0], sampleErr)
	assert.Equal(t, []string{"poller_id", "id", "generation", "1", "fallback", "1s"}, logger.errorValues[0])
	require.Len(t, logger.infos, 1)
	assert.Equal(t, "stopped", logger.infos[0])
}

func TestLoggerSupersededRound(t *testing.T) {
	ex := manual.New(base)
	logger := &recordingLogger{}
	var p *varpoll.Poller
	p, err := varpoll.New(
		ex,
		func(ctx context.Context) (time.Duration, error) {
			require.NoError(t, p.Reschedule(time.Minute, false))
			return time.Second, nil
		},
		time.Second,
		varpoll.WithLogger(logger),
		varpoll.WithID("id"),
	)
	require.NoError(t, err)

	ex.Advance(time.Second)
	require.Len(t, logger.infos, 1)
	assert.Equal(t, "superseded", logger.infos[0])
	assert.Equal(t, []string{"poller_id", "id", "generation", "1", "rearmed", "false"}, logger.infoValues[0])
	assert.Empty(t, logger.errors)

	p.Stop(false)
}

type recordingLogger struct {
	mu          sync.Mutex
	infos       []any
	infoValues  [][]string
	errors      []error
	errorValues [][]string
}

func (l *recordingLogger) Info(v any, logValues ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, v)
	l.infoValues = append(l.infoValues, logValues)
}

func (l *recordingLogger) Error(e error, logValues ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, e)
	l.errorValues = append(l.errorValues, logValues)
}

// capturingExecutor forwards to inner but also hands every callback to capture.
type capturingExecutor struct {
	inner   varpoll.Executor
	capture func(fn func(ctx context.Context))
}

func (e *capturingExecutor) AfterFunc(d time.Duration, fn func(ctx context.Context)) varpoll.Handle {
	e.capture(fn)
	return e.inner.AfterFunc(d, fn)
}
