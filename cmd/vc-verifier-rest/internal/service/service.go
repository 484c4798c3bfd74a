/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	cryptoverifier "github.com/openvc/vcverifier/pkg/crypto/verifier"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
	"github.com/openvc/vcverifier/pkg/doc/status/validator"
	"github.com/openvc/vcverifier/pkg/doc/trustlist"
	"github.com/openvc/vcverifier/pkg/metrics"
	"github.com/openvc/vcverifier/pkg/policy"
	"github.com/openvc/vcverifier/pkg/verifier"
)

// Services are the verification components built from Parameters.
type Services struct {
	Registry *policy.Registry
	Verifier *verifier.Verifier
	Metrics  *metrics.Metrics
}

// Build creates the fetchers, the signature verifier, the policy registry and the verifier.
// The collectors are registered with reg.
func Build(params *Parameters, reg prometheus.Registerer) (*Services, error) {
	resolver, err := keyResolver(params)
	if err != nil {
		return nil, err
	}

	trustListSignature, err := trustListVerifier(params)
	if err != nil {
		return nil, err
	}

	m := metrics.New(reg)

	w3c := statusFetcher(params, m, fetcher.AcceptW3C)

	registry := policy.NewRegistry(policy.Deps{
		Signature:  cryptoverifier.New(resolver),
		W3CStatus:  validator.NewW3C(w3c),
		IETFStatus: validator.NewIETF(statusFetcher(params, m, fetcher.AcceptIETF)),
		TrustLists: w3c,

		TrustListSignature: trustListSignature,
	})

	v := verifier.New(registry, verifier.WithConcurrency(params.Concurrency), verifier.WithObserver(m.ObservePolicy))

	logger.Debugf("services built: cache size %d, cache ttl %s, fetch timeout %s, fetch retries %d",
		params.CacheSize, params.CacheTTL, params.FetchTimeout, params.FetchRetries)

	return &Services{Registry: registry, Verifier: v, Metrics: m}, nil
}

// statusFetcher stacks the cache over the retries over the HTTP fetcher.
func statusFetcher(params *Parameters, m *metrics.Metrics, accept string) fetcher.Fetcher {
	httpFetcher := fetcher.NewHTTPFetcher(
		fetcher.WithTimeout(params.FetchTimeout),
		fetcher.WithAccept(accept),
		fetcher.WithObserver(m.ObserveFetch),
	)

	return fetcher.NewCachingFetcher(
		fetcher.NewRetryingFetcher(httpFetcher, fetcher.WithMaxRetries(params.FetchRetries)),
		fetcher.WithCacheSize(params.CacheSize),
		fetcher.WithCacheTTL(params.CacheTTL),
		fetcher.WithCacheObserver(m.ObserveCache),
	)
}

// keyResolver chains the trusted JWKS and the x5c roots. Without either, every signature fails.
func keyResolver(params *Parameters) (cryptoverifier.KeyResolver, error) {
	var resolvers []cryptoverifier.KeyResolver

	if params.TrustedKeysFile != "" {
		data, err := os.ReadFile(params.TrustedKeysFile)
		if err != nil {
			return nil, fmt.Errorf("read trusted keys: %w", err)
		}

		static, err := cryptoverifier.ParseJWKS(data)
		if err != nil {
			return nil, fmt.Errorf("parse trusted keys %s: %w", params.TrustedKeysFile, err)
		}

		resolvers = append(resolvers, static)
	}

	if params.X5CRootsFile != "" {
		roots, err := readRoots(params.X5CRootsFile, "x5c roots")
		if err != nil {
			return nil, err
		}

		resolvers = append(resolvers, cryptoverifier.NewX5CResolver(roots))
	}

	if len(resolvers) == 0 {
		logger.Warnf("no trusted keys nor x5c roots configured, signatures cannot be verified")
	}

	return cryptoverifier.NewChainResolver(resolvers...), nil
}

// trustListVerifier checks downloaded trust lists against the operator roots. Without roots
// no downloaded list is trusted.
func trustListVerifier(params *Parameters) (trustlist.SignatureVerifier, error) {
	if params.TrustListRootsFile == "" {
		return nil, nil
	}

	roots, err := readRoots(params.TrustListRootsFile, "trust list roots")
	if err != nil {
		return nil, err
	}

	return cryptoverifier.New(cryptoverifier.NewX5CResolver(roots)), nil
}

func readRoots(file, what string) (*x509.CertPool, error) {
	data, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}

	roots, err := cryptoverifier.ParseRoots(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", what, file, err)
	}

	return roots, nil
}
