package varpoll

import "errors"

var (
	ErrInvalidArg = errors.New("invalid argument")
	// ErrStopped is returned from Reschedule after Stop. The poller stays stopped.
	ErrStopped = errors.New("poller is stopped")
	// ErrNegativeDelay is reported when a work unit returns a negative next delay.
	ErrNegativeDelay = errors.New("negative next delay")
)
