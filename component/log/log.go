/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log implements a module scoped, leveled logger for fmt-style messages.
//
// Every package of the verifier declares its own logger:
//
//	var logger = log.New("vcverifier/status")
//
// Levels are configured per module with SetLevel. A custom backend can be plugged
// in once with Initialize, before the first line is logged.
package log

import (
	"sync"

	"github.com/openvc/vcverifier/component/log/internal/metadata"
	"github.com/openvc/vcverifier/spi/log"
)

const (
	loggerNotInitializedMsg = "Default logger initialized (call log.Initialize() to use a custom logger)"
	loggerModule            = "vcverifier/common"
)

// Log is a module logger. The backend is resolved lazily on first use.
type Log struct {
	instance log.Logger
	module   string
	once     sync.Once
}

// New returns a logger for module.
func New(module string) *Log {
	return &Log{module: module}
}

// Fatalf logs at CRITICAL level and exits the process.
func (l *Log) Fatalf(msg string, args ...interface{}) {
	l.logger().Fatalf(msg, args...)
}

// Panicf logs at CRITICAL level and panics.
func (l *Log) Panicf(msg string, args ...interface{}) {
	l.logger().Panicf(msg, args...)
}

// Debugf logs at DEBUG level.
func (l *Log) Debugf(msg string, args ...interface{}) {
	l.logger().Debugf(msg, args...)
}

// Infof logs at INFO level.
func (l *Log) Infof(msg string, args ...interface{}) {
	l.logger().Infof(msg, args...)
}

// Warnf logs at WARNING level.
func (l *Log) Warnf(msg string, args ...interface{}) {
	l.logger().Warnf(msg, args...)
}

// Errorf logs at ERROR level.
func (l *Log) Errorf(msg string, args ...interface{}) {
	l.logger().Errorf(msg, args...)
}

func (l *Log) logger() log.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})

	return l.instance
}

// SetLevel sets the logging level of module. Modules default to INFO.
func SetLevel(module string, level log.Level) {
	metadata.SetLevel(module, level)
}

// GetLevel returns the logging level of module.
func GetLevel(module string) log.Level {
	return metadata.GetLevel(module)
}

// IsEnabledFor reports whether level is enabled for module.
func IsEnabledFor(module string, level log.Level) bool {
	return metadata.IsEnabledFor(module, level)
}

// ParseLevel parses a level name such as "debug" or "WARNING".
func ParseLevel(level string) (log.Level, error) {
	return metadata.ParseLevel(level)
}

// ShowCallerInfo prints the calling function in lines of module at level.
// Custom providers may ignore it.
func ShowCallerInfo(module string, level log.Level) {
	metadata.ShowCallerInfo(module, level)
}

// HideCallerInfo stops printing the calling function in lines of module at level.
func HideCallerInfo(module string, level log.Level) {
	metadata.HideCallerInfo(module, level)
}

// IsCallerInfoEnabled reports whether caller info is printed for module at level.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	return metadata.IsCallerInfoEnabled(module, level)
}
