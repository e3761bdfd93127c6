package varpoll

import (
	"time"

	"github.com/ngicks/varpoll/common"
)

// DefaultStartupDelay is the delay before the first round when WithStartupDelay is not given.
const DefaultStartupDelay = time.Second

type Option = func(p *Poller) *Poller

// WithStartupDelay overrides DefaultStartupDelay.
// Zero arms the first round immediately. Negative values make New fail.
func WithStartupDelay(d time.Duration) Option {
	return func(p *Poller) *Poller {
		p.startupDelay = d
		return p
	}
}

func WithLogger(logger Logger) Option {
	return func(p *Poller) *Poller {
		if logger != nil {
			p.logger = logger
		}
		return p
	}
}

// WithObserver registers fn to be called after every round, in registration order.
// fn is called on the executor's goroutine, outside of any lock held by the Poller.
func WithObserver(fn func(Result)) Option {
	return func(p *Poller) *Poller {
		if fn != nil {
			p.observers = append(p.observers, fn)
		}
		return p
	}
}

func WithGetNow(getNow common.GetNower) Option {
	return func(p *Poller) *Poller {
		if getNow != nil {
			p.getNow = getNow
		}
		return p
	}
}

// WithID sets the identifier used in logs and results. A random uuid is used by default.
func WithID(id string) Option {
	return func(p *Poller) *Poller {
		p.id = id
		return p
	}
}
