package logger

import (
	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
)

type Logger = sdklogging.Logger

// nop discards everything. Components that take an optional logger fall back to it.
type nop struct{}

func (nop) Debug(string, ...any)          {}
func (nop) Info(string, ...any)           {}
func (nop) Warn(string, ...any)           {}
func (nop) Error(string, ...any)          {}
func (nop) Fatal(string, ...any)          {}
func (nop) Debugf(string, ...interface{}) {}
func (nop) Infof(string, ...interface{})  {}
func (nop) Warnf(string, ...interface{})  {}
func (nop) Errorf(string, ...interface{}) {}
func (nop) Fatalf(string, ...interface{}) {}
func (l nop) With(...any) Logger          { return l }

func NewNoOpLogger() Logger {
	return nop{}
}

// EnsureLogger returns l, or a logger that discards everything when l is nil.
func EnsureLogger(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}

// New builds the zap-backed logger for an environment ("development" or "production").
func New(environment string) (Logger, error) {
	if environment == "" {
		environment = string(sdklogging.Production)
	}
	return sdklogging.NewZapLogger(sdklogging.LogLevel(environment))
}
