/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package modlog provides the default stdlib backed logger and the level gate wrapped around every logger.
package modlog

import (
	"fmt"
	"io"
	builtinlog "log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/openvc/vcverifier/component/log/internal/metadata"
	"github.com/openvc/vcverifier/spi/log"
)

const (
	linePrefix       = " [%s] "
	levelPrefix      = "UTC %s-> %s "
	callerPrefix     = "- %s "
	logPackagePrefix = "github.com/openvc/vcverifier/component/log"
	maxCallers       = 10
)

// DefLog is the default logger. It writes to stdout through the standard library logger.
type DefLog struct {
	logger *builtinlog.Logger
	module string
}

// NewDefLog returns a default logger for module.
func NewDefLog(module string) *DefLog {
	return &DefLog{
		logger: builtinlog.New(os.Stdout, fmt.Sprintf(linePrefix, module),
			builtinlog.Ldate|builtinlog.Ltime|builtinlog.LUTC),
		module: module,
	}
}

// SetOutput redirects the output, tests use it to capture lines.
func (l *DefLog) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Fatalf logs at CRITICAL and exits.
func (l *DefLog) Fatalf(format string, args ...interface{}) {
	l.logf(log.CRITICAL, format, args...)
	os.Exit(1)
}

// Panicf logs at CRITICAL and panics with the formatted message.
func (l *DefLog) Panicf(format string, args ...interface{}) {
	l.logf(log.CRITICAL, format, args...)
	panic(fmt.Sprintf(format, args...))
}

// Debugf logs at DEBUG.
func (l *DefLog) Debugf(format string, args ...interface{}) { l.logf(log.DEBUG, format, args...) }

// Infof logs at INFO.
func (l *DefLog) Infof(format string, args ...interface{}) { l.logf(log.INFO, format, args...) }

// Warnf logs at WARNING.
func (l *DefLog) Warnf(format string, args ...interface{}) { l.logf(log.WARNING, format, args...) }

// Errorf logs at ERROR.
func (l *DefLog) Errorf(format string, args ...interface{}) { l.logf(log.ERROR, format, args...) }

func (l *DefLog) logf(level log.Level, format string, args ...interface{}) {
	const callDepth = 2

	prefix := fmt.Sprintf(levelPrefix, l.callerInfo(level), level)

	if err := l.logger.Output(callDepth, prefix+fmt.Sprintf(format, args...)); err != nil {
		fmt.Printf("error from logger.Output %v\n", err) //nolint:forbidigo
	}
}

// callerInfo names the first function outside the logging packages.
func (l *DefLog) callerInfo(level log.Level) string {
	if !metadata.IsCallerInfoEnabled(l.module, level) {
		return ""
	}

	pcs := make([]uintptr, maxCallers)

	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, logPackagePrefix) {
			_, name := filepath.Split(f.Function)

			return fmt.Sprintf(callerPrefix, name)
		}

		if !more {
			break
		}
	}

	return fmt.Sprintf(callerPrefix, "n/a")
}

// ModLog gates an underlying logger by the module's configured level.
type ModLog struct {
	logger log.Logger
	module string
}

// NewModLog wraps logger for module.
func NewModLog(logger log.Logger, module string) *ModLog {
	return &ModLog{logger: logger, module: module}
}

// Unwrap returns the wrapped logger.
func (m *ModLog) Unwrap() log.Logger {
	return m.logger
}

// Fatalf is never gated.
func (m *ModLog) Fatalf(format string, args ...interface{}) { m.logger.Fatalf(format, args...) }

// Panicf is never gated.
func (m *ModLog) Panicf(format string, args ...interface{}) { m.logger.Panicf(format, args...) }

// Debugf logs if DEBUG is enabled for the module.
func (m *ModLog) Debugf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, log.DEBUG) {
		m.logger.Debugf(format, args...)
	}
}

// Infof logs if INFO is enabled for the module.
func (m *ModLog) Infof(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, log.INFO) {
		m.logger.Infof(format, args...)
	}
}

// Warnf logs if WARNING is enabled for the module.
func (m *ModLog) Warnf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, log.WARNING) {
		m.logger.Warnf(format, args...)
	}
}

// Errorf logs if ERROR is enabled for the module.
func (m *ModLog) Errorf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, log.ERROR) {
		m.logger.Errorf(format, args...)
	}
}
