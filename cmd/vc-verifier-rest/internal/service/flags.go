/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package service holds the flags and the wiring shared by the vc-verifier-rest commands.
package service

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
)

const (
	// log level flag.
	LogLevelFlagName  = "log-level"
	LogLevelEnvKey    = "VC_VERIFIER_LOGLEVEL"
	LogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + LogLevelEnvKey

	// status cache size flag.
	CacheSizeFlagName  = "status-cache-size"
	CacheSizeEnvKey    = "VC_VERIFIER_STATUS_CACHE_SIZE"
	CacheSizeFlagUsage = "Maximum number of cached status lists and trust lists. Default: 256." +
		" Alternatively, this can be set with the following environment variable: " + CacheSizeEnvKey

	// status cache ttl flag.
	CacheTTLFlagName  = "status-cache-ttl"
	CacheTTLEnvKey    = "VC_VERIFIER_STATUS_CACHE_TTL"
	CacheTTLFlagUsage = "Expiration of cached status lists, as a duration (e.g. 5m). Default: 5m." +
		" Alternatively, this can be set with the following environment variable: " + CacheTTLEnvKey

	// fetch timeout flag.
	FetchTimeoutFlagName  = "fetch-timeout"
	FetchTimeoutEnvKey    = "VC_VERIFIER_FETCH_TIMEOUT"
	FetchTimeoutFlagUsage = "Timeout of one status list download, as a duration (e.g. 10s). Default: 10s." +
		" Alternatively, this can be set with the following environment variable: " + FetchTimeoutEnvKey

	// fetch retries flag.
	FetchRetriesFlagName  = "fetch-retries"
	FetchRetriesEnvKey    = "VC_VERIFIER_FETCH_RETRIES"
	FetchRetriesFlagUsage = "Number of retries of a failed status list download. Default: 3." +
		" Alternatively, this can be set with the following environment variable: " + FetchRetriesEnvKey

	// concurrency flag.
	ConcurrencyFlagName  = "concurrency"
	ConcurrencyEnvKey    = "VC_VERIFIER_CONCURRENCY"
	ConcurrencyFlagUsage = "Maximum number of policies evaluated at the same time for one request. Default: 8." +
		" Alternatively, this can be set with the following environment variable: " + ConcurrencyEnvKey

	// trusted keys flag.
	TrustedKeysFlagName  = "trusted-keys-file"
	TrustedKeysEnvKey    = "VC_VERIFIER_TRUSTED_KEYS_FILE"
	TrustedKeysFlagUsage = "Path of a JWKS file with the issuer keys trusted for signature verification." +
		" A key verifies only the issuer named by its kid DID URL (e.g. did:example:issuer#key-1)." +
		" Alternatively, this can be set with the following environment variable: " + TrustedKeysEnvKey

	// x5c roots flag.
	X5CRootsFlagName  = "x5c-roots-file"
	X5CRootsEnvKey    = "VC_VERIFIER_X5C_ROOTS_FILE"
	X5CRootsFlagUsage = "Path of a PEM file with the root certificates anchoring x5c certificate chains." +
		" Alternatively, this can be set with the following environment variable: " + X5CRootsEnvKey

	// trust list roots flag.
	TrustListRootsFlagName  = "trust-list-roots-file"
	TrustListRootsEnvKey    = "VC_VERIFIER_TRUST_LIST_ROOTS_FILE"
	TrustListRootsFlagUsage = "Path of a PEM file with the root certificates of trust list operators." +
		" Trust lists downloaded by URL must carry an x5c chain to one of them." +
		" Alternatively, this can be set with the following environment variable: " + TrustListRootsEnvKey
)

const defaultFetchTimeout = 10 * time.Second

var logger = log.New("vcverifier/service")

// Parameters configure the verification services.
type Parameters struct {
	CacheSize       int
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	FetchRetries    uint64
	Concurrency     int
	TrustedKeysFile    string
	X5CRootsFile       string
	TrustListRootsFile string
}

// CreateFlags adds the service flags to cmd.
func CreateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(LogLevelFlagName, "", "", LogLevelFlagUsage)
	cmd.Flags().StringP(CacheSizeFlagName, "", "", CacheSizeFlagUsage)
	cmd.Flags().StringP(CacheTTLFlagName, "", "", CacheTTLFlagUsage)
	cmd.Flags().StringP(FetchTimeoutFlagName, "", "", FetchTimeoutFlagUsage)
	cmd.Flags().StringP(FetchRetriesFlagName, "", "", FetchRetriesFlagUsage)
	cmd.Flags().StringP(ConcurrencyFlagName, "", "", ConcurrencyFlagUsage)
	cmd.Flags().StringP(TrustedKeysFlagName, "", "", TrustedKeysFlagUsage)
	cmd.Flags().StringP(X5CRootsFlagName, "", "", X5CRootsFlagUsage)
	cmd.Flags().StringP(TrustListRootsFlagName, "", "", TrustListRootsFlagUsage)
}

// GetParameters reads the service flags of cmd, falling back to their environment variables.
func GetParameters(cmd *cobra.Command) (*Parameters, error) {
	logLevel, err := GetUserSetVar(cmd, LogLevelFlagName, LogLevelEnvKey, true)
	if err != nil {
		return nil, err
	}

	if err = SetLogLevel(logLevel); err != nil {
		return nil, err
	}

	params := &Parameters{}

	if params.CacheSize, err = getInt(cmd, CacheSizeFlagName, CacheSizeEnvKey, fetcher.DefaultCacheSize); err != nil {
		return nil, err
	}

	if params.Concurrency, err = getInt(cmd, ConcurrencyFlagName, ConcurrencyEnvKey, 0); err != nil {
		return nil, err
	}

	retries, err := getInt(cmd, FetchRetriesFlagName, FetchRetriesEnvKey, fetcher.DefaultMaxRetries)
	if err != nil {
		return nil, err
	}

	params.FetchRetries = uint64(retries)

	if params.CacheTTL, err = getDuration(cmd, CacheTTLFlagName, CacheTTLEnvKey, fetcher.DefaultCacheTTL); err != nil {
		return nil, err
	}

	if params.FetchTimeout, err = getDuration(cmd, FetchTimeoutFlagName, FetchTimeoutEnvKey,
		defaultFetchTimeout); err != nil {
		return nil, err
	}

	if params.TrustedKeysFile, err = GetUserSetVar(cmd, TrustedKeysFlagName, TrustedKeysEnvKey, true); err != nil {
		return nil, err
	}

	if params.X5CRootsFile, err = GetUserSetVar(cmd, X5CRootsFlagName, X5CRootsEnvKey, true); err != nil {
		return nil, err
	}

	if params.TrustListRootsFile, err = GetUserSetVar(cmd, TrustListRootsFlagName, TrustListRootsEnvKey,
		true); err != nil {
		return nil, err
	}

	return params, nil
}

func getInt(cmd *cobra.Command, flagName, envKey string, def int) (int, error) {
	value, err := GetUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if value == "" {
		return def, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid value [%s]", flagName, value)
	}

	return n, nil
}

func getDuration(cmd *cobra.Command, flagName, envKey string, def time.Duration) (time.Duration, error) {
	value, err := GetUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration [%s]", flagName, value)
	}

	return d, nil
}

// GetUserSetVar returns the value of flagName, or of envKey when the flag is not set.
func GetUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return strings.TrimSpace(value), nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

// SetLogLevel sets the level of every logger. An empty level is ignored.
func SetLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}
