package observe

import (
	"context"
	"time"

	"github.com/ngicks/varpoll"
)

type ObserveMiddleware struct {
	beforeWork func()
	afterWork  func(next time.Duration, err error)
}

func New(beforeWork func(), afterWork func(next time.Duration, err error)) *ObserveMiddleware {
	if beforeWork == nil {
		beforeWork = func() {}
	}
	if afterWork == nil {
		afterWork = func(next time.Duration, err error) {}
	}

	return &ObserveMiddleware{
		beforeWork: beforeWork,
		afterWork:  afterWork,
	}
}

func (mw *ObserveMiddleware) Middleware(work varpoll.WorkFn) varpoll.WorkFn {
	return func(ctx context.Context) (next time.Duration, err error) {
		mw.beforeWork()
		next, err = work(ctx)
		mw.afterWork(next, err)
		return
	}
}
