// Package logger provides the zap-backed implementation of mapper.Logger.
// Gateway mappers default to a no-op logger; wiring this one in surfaces
// unrecognized bank codes and skipped history entries on the service log.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MapperLogger adapts a zap logger to the mapping diagnostics interface.
type MapperLogger struct {
	log *zap.Logger
}

// New creates a MapperLogger around an existing zap logger. The gateway
// name is attached to every entry.
func New(log *zap.Logger, gateway string) *MapperLogger {
	return &MapperLogger{log: log.With(zap.String("gateway", gateway))}
}

// Debug logs a mapping diagnostic at debug level
func (l *MapperLogger) Debug(msg string, fields map[string]any) {
	l.log.Debug(msg, zapFields(fields)...)
}

// Warn logs a mapping diagnostic at warn level
func (l *MapperLogger) Warn(msg string, fields map[string]any) {
	l.log.Warn(msg, zapFields(fields)...)
}

func zapFields(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init initializes the global zap logger. Development mode switches to the
// console encoder and enables debug level.
func Init(development bool) {
	once.Do(func() {
		var err error
		if development {
			globalLogger, err = zap.NewDevelopment()
		} else {
			globalLogger, err = zap.NewProduction()
		}
		if err != nil {
			globalLogger = zap.NewNop()
		}
	})
}

// Global returns the global zap logger, initializing a production one on
// first use
func Global() *zap.Logger {
	Init(false)
	return globalLogger
}

// ForGateway returns a MapperLogger for the named gateway on the global
// logger
func ForGateway(gateway string) *MapperLogger {
	return New(Global(), gateway)
}

// NewAt creates a MapperLogger writing to the given core, used by tests to
// observe emitted entries
func NewAt(core zapcore.Core, gateway string) *MapperLogger {
	return New(zap.New(core), gateway)
}
