/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metadata keeps the per-module level and caller info settings shared by all loggers.
package metadata

import (
	"errors"
	"strings"
	"sync"

	"github.com/openvc/vcverifier/spi/log"
)

// defaultModule holds settings applied to modules that were never configured.
const defaultModule = ""

type callerKey struct {
	module string
	level  log.Level
}

//nolint:gochecknoglobals
var (
	mu         sync.RWMutex
	levels     = map[string]log.Level{}
	callerInfo = map[callerKey]bool{}
)

// SetLevel sets the level for a module. An empty module name sets the default.
func SetLevel(module string, level log.Level) {
	mu.Lock()
	defer mu.Unlock()

	levels[module] = level
}

// GetLevel returns the level for a module, falling back to the default and then to INFO.
func GetLevel(module string) log.Level {
	mu.RLock()
	defer mu.RUnlock()

	return levelOf(module)
}

func levelOf(module string) log.Level {
	if l, ok := levels[module]; ok {
		return l
	}

	if l, ok := levels[defaultModule]; ok {
		return l
	}

	return log.INFO
}

// IsEnabledFor reports whether messages at level are emitted for module.
func IsEnabledFor(module string, level log.Level) bool {
	mu.RLock()
	defer mu.RUnlock()

	return level <= levelOf(module)
}

// ShowCallerInfo enables caller info for a module and level.
func ShowCallerInfo(module string, level log.Level) {
	setCallerInfo(module, level, true)
}

// HideCallerInfo disables caller info for a module and level.
func HideCallerInfo(module string, level log.Level) {
	setCallerInfo(module, level, false)
}

func setCallerInfo(module string, level log.Level, show bool) {
	mu.Lock()
	defer mu.Unlock()

	callerInfo[callerKey{module, level}] = show
}

// IsCallerInfoEnabled reports whether caller info is printed. Caller info is on unless hidden.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	mu.RLock()
	defer mu.RUnlock()

	if show, ok := callerInfo[callerKey{module, level}]; ok {
		return show
	}

	if show, ok := callerInfo[callerKey{defaultModule, level}]; ok {
		return show
	}

	return true
}

// ParseLevel returns the level named by s, case insensitive.
func ParseLevel(s string) (log.Level, error) {
	for l := log.CRITICAL; l <= log.DEBUG; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}

	return log.ERROR, errors.New("logger: invalid log level")
}
