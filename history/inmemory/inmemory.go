package inmemory

import (
	"context"
	"sync"

	"github.com/ngicks/varpoll/history"
)

var _ history.Recorder = (*Recorder)(nil)

// Recorder keeps the latest records in a fixed size ring buffer.
type Recorder struct {
	mu   sync.Mutex
	buf  []history.Record
	next int
	full bool
}

// New creates a Recorder holding at most size records.
//
// panic: If size is not positive.
func New(size int) *Recorder {
	if size <= 0 {
		panic("inmemory: size must be positive")
	}
	return &Recorder{buf: make([]history.Record, size)}
}

func (r *Recorder) Record(ctx context.Context, rec history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = rec
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	return nil
}

func (r *Recorder) List(ctx context.Context, pollerId string, limit int) ([]history.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]history.Record, 0)
	for i := 0; i < n; i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		if rec := r.buf[idx]; rec.PollerId == pollerId {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
