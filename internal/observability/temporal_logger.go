package observability

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TemporalLogger bridges the Temporal SDK's log.Logger to zerolog so
// workflow and activity logs land in the same stream as the rest of
// the service.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger wraps logger for the Temporal SDK, tagging every
// entry with the temporal-sdk component.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	emit(l.logger.Debug(), msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	emit(l.logger.Info(), msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	emit(l.logger.Warn(), msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	emit(l.logger.Error(), msg, keyvals)
}

// emit attaches the SDK's alternating key-value list as fields on the
// event. Non-string keys are stringified; a trailing key without a
// value is dropped.
func emit(ev *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
