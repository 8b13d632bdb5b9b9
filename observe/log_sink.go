package observe

import "github.com/hupe1980/meshstate/logging"

// LogSink writes every event through a logging.Logger. Degraded outcomes are
// logged at warn level, everything else at debug.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink; a nil logger discards events.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logging.OrNoOp(logger)}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	args := make([]any, 0, 10+2*len(e.Attributes))
	args = append(args,
		"event_id", e.ID,
		"operation", string(e.Operation),
		"actor", e.Actor,
		"outcome", string(e.Outcome),
		"timestamp", e.Timestamp,
	)
	for k, v := range e.Attributes {
		args = append(args, k, v)
	}
	if e.Outcome == OutcomeDegraded {
		s.logger.Warn("state event degraded", args...)
		return
	}
	s.logger.Debug("state event", args...)
}
