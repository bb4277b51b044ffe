package core

import (
	"go.uber.org/zap"
)

// Logger interface for raytracer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// ZapLogger adapts a zap sugared logger to the Logger interface
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a sugared logger. Messages are logged at info level.
func NewZapLogger(sugar *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{sugar: sugar}
}

// Printf logs a formatted message, dropping a single trailing newline
func (z *ZapLogger) Printf(format string, args ...interface{}) {
	if n := len(format); n > 0 && format[n-1] == '\n' {
		format = format[:n-1]
	}
	z.sugar.Infof(format, args...)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Printf(string, ...interface{}) {}
