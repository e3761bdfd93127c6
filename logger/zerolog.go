package logger

import (
	"time"

	"github.com/ngicks/varpoll"
	"github.com/rs/zerolog"
)

var _ varpoll.Logger = (*Zerolog)(nil)

// Zerolog adapts zerolog.Logger to varpoll.Logger.
// logValues are written as string fields. A dangling key is written under "extra".
type Zerolog struct {
	l zerolog.Logger
}

func NewZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{l: l}
}

func (z *Zerolog) Info(v any, logValues ...string) {
	ev := addValues(z.l.Info(), logValues)
	switch x := v.(type) {
	case nil:
		ev.Send()
	case string:
		ev.Msg(x)
	case time.Duration:
		ev.Dur("value", x).Send()
	case error:
		ev.AnErr("value", x).Send()
	default:
		ev.Interface("value", x).Send()
	}
}

func (z *Zerolog) Error(e error, logValues ...string) {
	addValues(z.l.Error().Err(e), logValues).Send()
}

func addValues(ev *zerolog.Event, logValues []string) *zerolog.Event {
	i := 0
	for ; i+1 < len(logValues); i += 2 {
		ev = ev.Str(logValues[i], logValues[i+1])
	}
	if i < len(logValues) {
		ev = ev.Str("extra", logValues[i])
	}
	return ev
}
