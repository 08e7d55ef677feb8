package logger

import "context"

// LoggerContext wraps a Logger and accumulates attributes over the lifetime of
// a single operation. Attributes added through Add are attached to every
// subsequent record.
//
// A LoggerContext is not safe for concurrent use; create one per goroutine.
type LoggerContext struct {
	*Logger
	attrs []any
}

// NewLoggerContext returns a LoggerContext backed by l.
func NewLoggerContext(l *Logger) *LoggerContext {
	return &LoggerContext{Logger: l}
}

// Add appends key/value pairs to the accumulated attributes.
func (lc *LoggerContext) Add(args ...any) { lc.attrs = append(lc.attrs, args...) }

// Debug logs at LevelDebug including the accumulated attributes.
func (lc *LoggerContext) Debug(ctx context.Context, msg string, args ...any) {
	lc.Logger.write(ctx, LevelDebug, 3, msg, lc.merge(args)...)
}

// Info logs at LevelInfo including the accumulated attributes.
func (lc *LoggerContext) Info(ctx context.Context, msg string, args ...any) {
	lc.Logger.write(ctx, LevelInfo, 3, msg, lc.merge(args)...)
}

// Warn logs at LevelWarn including the accumulated attributes.
func (lc *LoggerContext) Warn(ctx context.Context, msg string, args ...any) {
	lc.Logger.write(ctx, LevelWarn, 3, msg, lc.merge(args)...)
}

// Error logs at LevelError including the accumulated attributes.
func (lc *LoggerContext) Error(ctx context.Context, msg string, args ...any) {
	lc.Logger.write(ctx, LevelError, 3, msg, lc.merge(args)...)
}

func (lc *LoggerContext) merge(args []any) []any {
	if len(lc.attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(lc.attrs)+len(args))
	out = append(out, lc.attrs...)
	return append(out, args...)
}
