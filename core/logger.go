package core

import (
	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging
// The runtime only talks to this interface; DefaultLogger routes to logrus.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger is a Logger backed by a logrus logger
type DefaultLogger struct {
	log *logrus.Logger
}

// NewDefaultLogger creates a DefaultLogger writing to the logrus standard logger
func NewDefaultLogger() *DefaultLogger {
	return NewLogrusLogger(logrus.StandardLogger())
}

// NewLogrusLogger wraps an existing logrus logger. A nil logger means the standard one.
func NewLogrusLogger(l *logrus.Logger) *DefaultLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &DefaultLogger{log: l}
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.entry(fields).Debug(msg)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.entry(fields).Info(msg)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.entry(fields).Warn(msg)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.entry(fields).Error(msg)
}

func (l *DefaultLogger) entry(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(l.log)
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return l.log.WithFields(lf)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
