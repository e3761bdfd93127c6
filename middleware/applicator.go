// Package middleware composes wrappers around varpoll.WorkFn.
package middleware

import (
	"sync"

	"github.com/ngicks/varpoll"
)

type Func = func(work varpoll.WorkFn) varpoll.WorkFn

// Applicator holds an ordered set of middlewares.
type Applicator struct {
	mu sync.Mutex
	mw []Func
}

func New(mw ...Func) *Applicator {
	a := &Applicator{
		mw: make([]Func, 0, len(mw)),
	}
	a.Use(mw...)
	return a
}

// Use registers middlewares.
// First registered one will be the outermost, thus invoked first.
func (a *Applicator) Use(mw ...Func) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mw = append(a.mw, mw...)
}

// Apply wraps work with every registered middleware.
// Middlewares registered after Apply returns do not affect the returned WorkFn.
func (a *Applicator) Apply(work varpoll.WorkFn) varpoll.WorkFn {
	a.mu.Lock()
	defer a.mu.Unlock()

	wrapped := work
	for i := len(a.mw) - 1; i >= 0; i-- {
		if mw := a.mw[i]; mw != nil {
			wrapped = mw(wrapped)
		}
	}
	return wrapped
}

// Chain is shorthand for New(mw...).Apply(work).
func Chain(work varpoll.WorkFn, mw ...Func) varpoll.WorkFn {
	return New(mw...).Apply(work)
}
