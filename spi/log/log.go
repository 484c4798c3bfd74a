/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log defines the logging SPI used by every vcverifier package.
package log

// Level is a log level for a logging message.
type Level int

// Log levels, most severe first. INFO is the default.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

var levelNames = [...]string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG"}

// String returns the upper case name of the level.
func (l Level) String() string {
	if l < CRITICAL || l > DEBUG {
		return "UNKNOWN"
	}

	return levelNames[l]
}

// Logger represents a general-purpose fmt-style logger.
type Logger interface {
	Panicf(msg string, args ...interface{})
	Fatalf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Debugf(msg string, args ...interface{})
}

// LoggerProvider is a factory for module loggers.
type LoggerProvider interface {
	GetLogger(module string) Logger
}
