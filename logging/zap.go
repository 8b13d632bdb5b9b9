package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements Logger on top of a *zap.Logger. Key/value arguments
// are converted with zap.Any; a dangling key is logged under "!BADKEY" the
// same way log/slog does.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter wraps logger. A nil logger yields a no-op zap logger.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAdapter{logger: logger}
}

// NewZapLogger builds a production zap logger at the given level. Format
// "text" selects the console encoder, anything else JSON.
func NewZapLogger(level LogLevel, format string) (*ZapAdapter, error) {
	cfg := zap.NewProductionConfig()
	if format == "text" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return NewZapAdapter(logger), nil
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.logger.Debug(msg, zapFields(args)...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.logger.Info(msg, zapFields(args)...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.logger.Warn(msg, zapFields(args)...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.logger.Error(msg, zapFields(args)...) }

// With returns an adapter that adds the key/value pairs to every entry.
func (z *ZapAdapter) With(args ...any) *ZapAdapter {
	return &ZapAdapter{logger: z.logger.With(zapFields(args)...)}
}

// Sync flushes buffered log entries.
func (z *ZapAdapter) Sync() error { return z.logger.Sync() }

func zapFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields = append(fields, zap.Any("!BADKEY", args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}
