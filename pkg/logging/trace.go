package logging

import "log/slog"

// EnableTrace is set by Init when the server level is TRACE. Rendered prompts
// and raw generator output are only logged while it is on.
var EnableTrace bool

// Trace logs msg at DEBUG through logger if tracing is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if !EnableTrace {
		return
	}
	logger.Debug(msg, args...)
}

// TraceDefault traces through slog.Default().
func TraceDefault(msg string, args ...any) {
	Trace(slog.Default(), msg, args...)
}
