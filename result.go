package varpoll

import (
	"fmt"
	"time"
)

// Result describes one finished round.
type Result struct {
	PollerID   string
	Generation uint64
	StartedAt  time.Time
	Elapsed    time.Duration
	// Next is the delay used to arm the following round.
	// It is the fallback delay when Err is non nil.
	Next time.Duration
	Err  error
	// Rearmed is false when the round was superseded by Reschedule or Stop.
	Rearmed bool
}

// PanicError is the error recorded for a round whose work panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("work panicked: %v", e.Value)
}
