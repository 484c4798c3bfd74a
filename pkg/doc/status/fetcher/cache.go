/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheSize is the number of status list credentials kept by CachingFetcher.
	DefaultCacheSize = 256
	// DefaultCacheTTL is how long a fetched status list credential is served from the cache.
	DefaultCacheTTL = 5 * time.Minute
)

// CachingFetcher serves status list credentials from an LRU cache with expiration, and
// collapses concurrent fetches of the same URI into one call to the wrapped fetcher.
// Failures are not cached.
type CachingFetcher struct {
	next   Fetcher
	cache  gcache.Cache
	flight singleflight.Group

	onHit func(hit bool)
}

// CacheOption configures a CachingFetcher.
type CacheOption func(c *cacheOpts)

type cacheOpts struct {
	size  int
	ttl   time.Duration
	onHit func(hit bool)
}

// WithCacheSize sets the maximum number of cached entries.
func WithCacheSize(size int) CacheOption {
	return func(c *cacheOpts) {
		c.size = size
	}
}

// WithCacheTTL sets the expiration of cached entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *cacheOpts) {
		c.ttl = ttl
	}
}

// WithCacheObserver registers a callback told about every cache lookup.
func WithCacheObserver(f func(hit bool)) CacheOption {
	return func(c *cacheOpts) {
		c.onHit = f
	}
}

// NewCachingFetcher wraps next with a cache.
func NewCachingFetcher(next Fetcher, opts ...CacheOption) *CachingFetcher {
	o := &cacheOpts{size: DefaultCacheSize, ttl: DefaultCacheTTL}

	for _, opt := range opts {
		opt(o)
	}

	if o.size <= 0 {
		o.size = DefaultCacheSize
	}

	return &CachingFetcher{
		next:  next,
		cache: gcache.New(o.size).LRU().Expiration(o.ttl).Build(),
		onHit: o.onHit,
	}
}

// Fetch returns the cached body of uri or fetches it.
func (c *CachingFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	if v, err := c.cache.Get(uri); err == nil {
		c.observe(true)

		return v.(string), nil //nolint:forcetypeassert
	}

	c.observe(false)

	ch := c.flight.DoChan(uri, func() (interface{}, error) {
		body, err := c.next.Fetch(ctx, uri)
		if err != nil {
			return "", err
		}

		if setErr := c.cache.Set(uri, body); setErr != nil {
			logger.Warnf("failed to cache status list credential %s: %v", uri, setErr)
		}

		return body, nil
	})

	select {
	case <-ctx.Done():
		return "", &FetchError{URI: uri, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			// the shared call ran under another caller's context
			if res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
				return c.next.Fetch(ctx, uri)
			}

			return "", res.Err
		}

		return res.Val.(string), nil //nolint:forcetypeassert
	}
}

// Purge drops every cached entry.
func (c *CachingFetcher) Purge() {
	c.cache.Purge()
}

func (c *CachingFetcher) observe(hit bool) {
	if c.onHit != nil {
		c.onHit(hit)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
