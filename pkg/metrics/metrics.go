/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides the Prometheus collectors of the verifier.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
	"github.com/openvc/vcverifier/pkg/policy"
)

const namespace = "vcverifier"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Verification kind label values.
const (
	KindCredential   = "credential"
	KindPresentation = "presentation"
)

// Metrics holds the verifier collectors.
type Metrics struct {
	// Verifications counts verification calls by kind and overall outcome.
	Verifications *prometheus.CounterVec
	// PolicyEvaluations counts policy results by policy id, outcome and error kind.
	PolicyEvaluations *prometheus.CounterVec
	PolicyDuration    *prometheus.HistogramVec

	// StatusFetches counts status list and trust list downloads by HTTP status.
	StatusFetches       *prometheus.CounterVec
	StatusFetchDuration prometheus.Histogram
	StatusCacheLookups  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of verification requests by kind and overall outcome",
		}, []string{"kind", "outcome"}),

		PolicyEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_evaluations_total",
			Help:      "Total number of policy evaluations by policy, outcome and error kind",
		}, []string{"policy", "outcome", "error_kind"}),

		PolicyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "policy_duration_seconds",
			Help:      "Duration of policy evaluations by policy",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"policy"}),

		StatusFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_fetches_total",
			Help:      "Total number of status list downloads by HTTP status, 0 for transport failures",
		}, []string{"code"}),

		StatusFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_fetch_duration_seconds",
			Help:      "Duration of status list downloads",
			Buckets:   prometheus.DefBuckets,
		}),

		StatusCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_cache_lookups_total",
			Help:      "Total number of status list cache lookups by result",
		}, []string{"result"}),
	}
}

// ObservePolicy records one policy result. It has the signature of verifier.Observer.
func (m *Metrics) ObservePolicy(res policy.Result, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if !res.Success {
		outcome = OutcomeFailure
	}

	m.PolicyEvaluations.WithLabelValues(res.Policy, outcome, string(res.ErrorKind)).Inc()
	m.PolicyDuration.WithLabelValues(res.Policy).Observe(elapsed.Seconds())
}

// ObserveFetch records one download. It has the signature of fetcher.Observer.
func (m *Metrics) ObserveFetch(_ string, elapsed time.Duration, err error) {
	code := http.StatusOK

	if err != nil {
		code = 0

		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			code = fetchErr.StatusCode
		}
	}

	m.StatusFetches.WithLabelValues(strconv.Itoa(code)).Inc()
	m.StatusFetchDuration.Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup. It is meant for fetcher.WithCacheObserver.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.StatusCacheLookups.WithLabelValues(result).Inc()
}

// RecordVerification records the overall outcome of a verification call.
func (m *Metrics) RecordVerification(kind string, results *policy.Results) {
	outcome := OutcomeSuccess
	if !results.OverallSuccess() {
		outcome = OutcomeFailure
	}

	m.Verifications.WithLabelValues(kind, outcome).Inc()
}
