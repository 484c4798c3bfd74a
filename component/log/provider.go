/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"sync"

	"github.com/openvc/vcverifier/component/log/internal/modlog"
	"github.com/openvc/vcverifier/spi/log"
)

//nolint:gochecknoglobals
var (
	loggerProviderInstance log.LoggerProvider
	loggerProviderOnce     sync.Once
)

// Initialize installs a custom logger provider. Only the first call has an effect,
// and it must happen before any logger is used.
func Initialize(l log.LoggerProvider) {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = &modlogProvider{custom: l}
		loggerProviderInstance.GetLogger(loggerModule).Debugf("Logger provider initialized")
	})
}

func loggerProvider() log.LoggerProvider {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = &modlogProvider{}
		loggerProviderInstance.GetLogger(loggerModule).Debugf(loggerNotInitializedMsg)
	})

	return loggerProviderInstance
}

// modlogProvider puts the module level gate in front of the default or custom backend.
type modlogProvider struct {
	custom log.LoggerProvider
}

func (p *modlogProvider) GetLogger(module string) log.Logger {
	var backend log.Logger = modlog.NewDefLog(module)
	if p.custom != nil {
		backend = p.custom.GetLogger(module)
	}

	return modlog.NewModLog(backend, module)
}
