// Package logging provides the minimal logging interface used across meshstate
// and adapters for common backends.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) with slog-style key/value arguments. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter and StructuredLogger built on log/slog
//   - ZapAdapter for hosts that already run go.uber.org/zap
//   - NoOpLogger for silent operation (tests, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	log := conversation.New(func(o *conversation.Options) { o.Logger = logger })
package logging
