package varpoll

// Logger receives round failures and life cycle events.
// logValues are key-value pairs.
type Logger interface {
	Info(v any, logValues ...string)
	Error(e error, logValues ...string)
}

type nopLogger struct{}

func (nopLogger) Info(v any, logValues ...string)    {}
func (nopLogger) Error(e error, logValues ...string) {}
