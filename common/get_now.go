package common

import "time"

// GetNower reports the current time.
// Pollers stamp round results with it; fake executors implement it to keep tests deterministic.
type GetNower interface {
	GetNow() time.Time
}

type GetNowImpl struct {
}

func (g GetNowImpl) GetNow() time.Time {
	return time.Now()
}

// GetNowFunc adapts a plain function to GetNower.
type GetNowFunc func() time.Time

func (f GetNowFunc) GetNow() time.Time {
	return f()
}
