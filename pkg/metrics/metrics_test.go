/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
	"github.com/openvc/vcverifier/pkg/policy"
)

func TestMetrics(t *testing.T) {
	t.Run("policy results", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.ObservePolicy(policy.Result{Policy: policy.ExpiredID, Success: true}, time.Millisecond)
		m.ObservePolicy(policy.Result{Policy: policy.ExpiredID, Error: "expired", ErrorKind: policy.KindVerification},
			time.Millisecond)
		m.ObservePolicy(policy.Result{Policy: policy.ExpiredID, Success: true}, time.Millisecond)

		require.Equal(t, float64(2), testutil.ToFloat64(
			m.PolicyEvaluations.WithLabelValues(policy.ExpiredID, OutcomeSuccess, "")))
		require.Equal(t, float64(1), testutil.ToFloat64(
			m.PolicyEvaluations.WithLabelValues(policy.ExpiredID, OutcomeFailure, string(policy.KindVerification))))
		require.Equal(t, 1, testutil.CollectAndCount(m.PolicyDuration))
	})

	t.Run("fetches", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.ObserveFetch("https://a", time.Millisecond, nil)
		m.ObserveFetch("https://a", time.Millisecond, &fetcher.FetchError{URI: "https://a", StatusCode: 404})
		m.ObserveFetch("https://a", time.Millisecond, &fetcher.FetchError{URI: "https://a", Err: errors.New("refused")})

		require.Equal(t, float64(1), testutil.ToFloat64(m.StatusFetches.WithLabelValues("200")))
		require.Equal(t, float64(1), testutil.ToFloat64(m.StatusFetches.WithLabelValues("404")))
		require.Equal(t, float64(1), testutil.ToFloat64(m.StatusFetches.WithLabelValues("0")))
	})

	t.Run("cache lookups", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.ObserveCache(true)
		m.ObserveCache(false)
		m.ObserveCache(true)

		require.Equal(t, float64(2), testutil.ToFloat64(m.StatusCacheLookups.WithLabelValues("hit")))
		require.Equal(t, float64(1), testutil.ToFloat64(m.StatusCacheLookups.WithLabelValues("miss")))
	})

	t.Run("verifications", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.RecordVerification(KindCredential, policy.NewResults(nil, []policy.Result{{Policy: "a", Success: true}}, nil))
		m.RecordVerification(KindPresentation, policy.NewResults(nil, []policy.Result{{Policy: "a"}}, nil))

		require.Equal(t, float64(1), testutil.ToFloat64(m.Verifications.WithLabelValues(KindCredential, OutcomeSuccess)))
		require.Equal(t, float64(1),
			testutil.ToFloat64(m.Verifications.WithLabelValues(KindPresentation, OutcomeFailure)))
	})

	t.Run("collectors are registered", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		New(reg)

		require.Panics(t, func() { New(reg) })
	})
}
