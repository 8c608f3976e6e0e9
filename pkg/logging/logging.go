// Package logging defines the structured logging interface used by the
// workflow engine. The engine itself only depends on the Logger interface;
// services wire in the zap-backed implementation.
package logging

import "go.uber.org/zap"

// Logger defines the logging interface for the engine.
type Logger interface {
	// Debug logs a debug message with optional fields.
	Debug(msg string, fields ...Field)
	// Info logs an info message with optional fields.
	Info(msg string, fields ...Field)
	// Warn logs a warning message with optional fields.
	Warn(msg string, fields ...Field)
	// Error logs an error message with optional fields.
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// NoOpLogger is a logger that does nothing.
// Useful for testing or when logging is not needed.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards everything.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

// Ensure NoOpLogger implements Logger
var _ Logger = (*NoOpLogger)(nil)

// ZapLogger adapts a *zap.Logger to the engine's Logger interface.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger wraps a zap logger. A nil logger yields a no-op adapter.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, zapFields(fields)...)
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ Logger = (*ZapLogger)(nil)
