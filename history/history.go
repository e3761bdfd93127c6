// Package history keeps an audit log of finished rounds.
//
// It records what happened; it does not restore schedules.
// A restarted process starts a fresh Poller regardless of what is stored here.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ngicks/varpoll"
)

type Record struct {
	Id         string
	PollerId   string
	Generation uint64
	StartedAt  time.Time
	Elapsed    time.Duration
	Next       time.Duration
	// Err is the error message of a failed round. Empty on success.
	Err     string
	Rearmed bool
}

// FromResult converts r into a Record with a newly generated Id.
func FromResult(r varpoll.Result) Record {
	rec := Record{
		Id:         uuid.NewString(),
		PollerId:   r.PollerID,
		Generation: r.Generation,
		StartedAt:  r.StartedAt,
		Elapsed:    r.Elapsed,
		Next:       r.Next,
		Rearmed:    r.Rearmed,
	}
	if r.Err != nil {
		rec.Err = r.Err.Error()
	}
	return rec
}

type Recorder interface {
	Record(ctx context.Context, rec Record) error
	// List returns up to limit records of pollerId, newest first.
	// Non positive limit means no limit.
	List(ctx context.Context, pollerId string, limit int) ([]Record, error)
}

// Observer adapts recorder to varpoll.WithObserver.
// Recording errors are reported to logger, which may be nil.
func Observer(recorder Recorder, logger varpoll.Logger) func(varpoll.Result) {
	return func(r varpoll.Result) {
		rec := FromResult(r)
		if err := recorder.Record(context.Background(), rec); err != nil && logger != nil {
			logger.Error(err, "poller_id", rec.PollerId, "record_id", rec.Id)
		}
	}
}
