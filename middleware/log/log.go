package log

import (
	"context"
	"time"

	"github.com/ngicks/varpoll"
	"github.com/ngicks/varpoll/common"
)

type LogMiddleware struct {
	logger           varpoll.Logger
	getNow           common.GetNower
	timeFormat       string
	additionalValues []string
}

type Option = func(mw *LogMiddleware) *LogMiddleware

// SetTimeFormat sets the layout of the "started_at" value. RFC3339Nano is the default.
// An error is returned if timeFormat can not parse its own output.
func SetTimeFormat(timeFormat string) (Option, error) {
	_, err := time.Parse(timeFormat, time.Now().Format(timeFormat))
	if err != nil {
		return nil, err
	}

	return func(mw *LogMiddleware) *LogMiddleware {
		mw.timeFormat = timeFormat
		return mw
	}, nil
}

// LogAdditionalValues appends key-value pairs to every log line.
func LogAdditionalValues(keyValues ...string) Option {
	return func(mw *LogMiddleware) *LogMiddleware {
		mw.additionalValues = append(mw.additionalValues, keyValues...)
		return mw
	}
}

func SetGetNow(getNow common.GetNower) Option {
	return func(mw *LogMiddleware) *LogMiddleware {
		mw.getNow = getNow
		return mw
	}
}

func New(logger varpoll.Logger, options ...Option) *LogMiddleware {
	mw := &LogMiddleware{
		logger:     logger,
		getNow:     common.GetNowImpl{},
		timeFormat: time.RFC3339Nano,
	}
	for _, opt := range options {
		mw = opt(mw)
	}
	if mw.additionalValues == nil {
		mw.additionalValues = make([]string, 0)
	}
	return mw
}

// Middleware logs before and after each round.
// The after_work line carries the returned delay, or the error.
func (mw *LogMiddleware) Middleware(work varpoll.WorkFn) varpoll.WorkFn {
	return func(ctx context.Context) (time.Duration, error) {
		values := mw.buildLogValueSet()
		// values is shared with the after_work line; cap it so append copies.
		mw.logger.Info(nil, append(values[:len(values):len(values)], "timing", "before_work")...)
		next, err := work(ctx)
		values = append(values, "timing", "after_work")
		if err != nil {
			mw.logger.Error(err, values...)
		} else {
			mw.logger.Info(next, values...)
		}
		return next, err
	}
}

func (mw *LogMiddleware) buildLogValueSet() (logValues []string) {
	logValues = make([]string, 0, 2+len(mw.additionalValues))
	logValues = append(logValues, "started_at", mw.getNow.GetNow().Format(mw.timeFormat))
	logValues = append(logValues, mw.additionalValues...)
	return
}
