package tokentree

import "time"

// EvaluatorLogEvent describes one predicate evaluation.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	NodeID   string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// EvaluatorLoggerFromLogger writes successful evaluations at debug level and
// failures at warn level.
func EvaluatorLoggerFromLogger(logger Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		args := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"node_id", event.NodeID,
			"duration", event.Duration,
		}
		if event.Err != nil {
			logger.Warn("tokentree: predicate failed", append(args, "error", event.Err)...)
			return
		}
		logger.Debug("tokentree: predicate evaluated", args...)
	})
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}
