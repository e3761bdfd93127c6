package recover

import (
	"context"
	"fmt"
	"time"

	"github.com/ngicks/varpoll"
)

type RecoveredError struct {
	OriginalErr any
}

func (re *RecoveredError) Error() string {
	return fmt.Sprintf(
		"recovered error: work panicked and recovered in Recover middleware. original err = %v",
		re.OriginalErr,
	)
}

// Unwrap returns the panic value if it was an error.
func (re *RecoveredError) Unwrap() error {
	err, _ := re.OriginalErr.(error)
	return err
}

// RecoverMiddleware converts a panic into *RecoveredError,
// so that middlewares outside of it see a plain failure.
type RecoverMiddleware struct{}

func New() *RecoverMiddleware {
	return &RecoverMiddleware{}
}

func (*RecoverMiddleware) Middleware(work varpoll.WorkFn) varpoll.WorkFn {
	return func(ctx context.Context) (next time.Duration, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				next = 0
				err = &RecoveredError{
					OriginalErr: recovered,
				}
			}
		}()
		next, err = work(ctx)
		return
	}
}
