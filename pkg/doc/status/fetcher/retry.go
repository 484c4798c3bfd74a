/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is the number of retries after the first failed attempt.
	DefaultMaxRetries = 3
	defaultInitialWait = 200 * time.Millisecond
	defaultMaxWait     = 2 * time.Second
)

// RetryingFetcher retries transient failures of the wrapped fetcher with exponential backoff.
// Client errors (see FetchError.Permanent) and context cancellation stop the retries.
type RetryingFetcher struct {
	next        Fetcher
	maxRetries  uint64
	initialWait time.Duration
	maxWait     time.Duration
}

// RetryOption configures a RetryingFetcher.
type RetryOption func(r *RetryingFetcher)

// WithMaxRetries sets the number of retries.
func WithMaxRetries(n uint64) RetryOption {
	return func(r *RetryingFetcher) {
		r.maxRetries = n
	}
}

// WithBackoff sets the first and the largest wait between attempts.
func WithBackoff(initial, maxWait time.Duration) RetryOption {
	return func(r *RetryingFetcher) {
		r.initialWait = initial
		r.maxWait = maxWait
	}
}

// NewRetryingFetcher wraps next with retries.
func NewRetryingFetcher(next Fetcher, opts ...RetryOption) *RetryingFetcher {
	r := &RetryingFetcher{
		next:        next,
		maxRetries:  DefaultMaxRetries,
		initialWait: defaultInitialWait,
		maxWait:     defaultMaxWait,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Fetch calls the wrapped fetcher until it succeeds, fails permanently or runs out of retries.
func (r *RetryingFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	var body string

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialWait
	b.MaxInterval = r.maxWait
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(
		func() error {
			var fetchErr error

			body, fetchErr = r.next.Fetch(ctx, uri)
			if fetchErr == nil {
				return nil
			}

			var fe *FetchError
			if (errors.As(fetchErr, &fe) && fe.Permanent()) || ctx.Err() != nil {
				return backoff.Permanent(fetchErr)
			}

			return fetchErr
		},
		backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx),
		func(retryErr error, t time.Duration) {
			logger.Warnf("status list fetch of %s failed, will sleep for %s before trying again : %s", uri, t, retryErr)
		},
	)
	if err != nil {
		return "", err
	}

	return body, nil
}
