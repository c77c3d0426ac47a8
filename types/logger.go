package types

// Logger is the structured logger used by every component of the renderer.
//
// Each method takes a message followed by alternating key-value pairs, the same
// shape as slog and zap's SugaredLogger.
type Logger interface {
	// Debug logs per-task chatter such as dispatched and received blocks.
	Debug(msg string, keysAndValues ...any)

	// Info logs job lifecycle events.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable problems, for example configuration values that
	// were replaced by their defaults.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures that abort a job or a worker.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message and terminates the process.
	//
	// Test loggers fail the running test instead of exiting.
	Fatal(msg string, keysAndValues ...any)
}
