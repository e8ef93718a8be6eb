package contextkeys

import (
	"context"
	"idealista-parser-service/internal/core/port"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// ContextWithLogger кладет логгер в контекст
func ContextWithLogger(ctx context.Context, logger port.LoggerPort) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext достает логгер из контекста, если его нет - возвращает noop
func LoggerFromContext(ctx context.Context) port.LoggerPort {
	if logger, ok := ctx.Value(loggerKey).(port.LoggerPort); ok {
		return logger
	}
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, port.Fields) {}
func (noopLogger) Info(string, port.Fields) {}
func (noopLogger) Warn(string, port.Fields) {}
func (noopLogger) Error(string, error, port.Fields) {}
func (n noopLogger) WithFields(port.Fields) port.LoggerPort { return n }
