/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	mockfetcher "github.com/openvc/vcverifier/pkg/internal/gomocks/doc/status/fetcher"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, AcceptIETF, r.Header.Get("Accept"))
			require.Equal(t, "Bearer tk", r.Header.Get("Authorization"))

			fmt.Fprint(w, "  eyJhbGciOiJFUzI1NiJ9.e30.c2ln\n")
		}))
		defer srv.Close()

		var observed int32

		f := NewHTTPFetcher(WithAccept(AcceptIETF), WithAuthToken("tk"), WithHTTPClient(srv.Client()),
			WithObserver(func(uri string, _ time.Duration, err error) {
				require.Equal(t, srv.URL, uri)
				require.NoError(t, err)
				atomic.AddInt32(&observed, 1)
			}))

		body, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, "eyJhbGciOiJFUzI1NiJ9.e30.c2ln", body)
		require.Equal(t, int32(1), atomic.LoadInt32(&observed))
	})

	t.Run("default accept header", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, AcceptW3C, r.Header.Get("Accept"))
			require.Empty(t, r.Header.Get("Authorization"))

			fmt.Fprint(w, "{}")
		}))
		defer srv.Close()

		body, err := NewHTTPFetcher(WithTimeout(time.Second)).Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, "{}", body)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		require.Equal(t, http.StatusNotFound, fe.StatusCode)
		require.True(t, fe.Permanent())
		require.Contains(t, err.Error(), "HTTP status 404")
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		require.Contains(t, err.Error(), "empty response body")
	})

	t.Run("transport error", func(t *testing.T) {
		_, err := NewHTTPFetcher().Fetch(context.Background(), "http://127.0.0.1:0/status")
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		require.Zero(t, fe.StatusCode)
		require.False(t, fe.Permanent())
	})

	t.Run("invalid URI", func(t *testing.T) {
		_, err := NewHTTPFetcher().Fetch(context.Background(), "://bad")
		require.Error(t, err)
		require.Contains(t, err.Error(), "HTTP create get request failed")
	})

	t.Run("cancelled context", func(t *testing.T) {
		release := make(chan struct{})

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewHTTPFetcher().Fetch(ctx, srv.URL)
		require.Error(t, err)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestFetchError_Permanent(t *testing.T) {
	tests := map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusForbidden:           true,
		http.StatusRequestTimeout:      false,
		http.StatusTooManyRequests:     false,
		http.StatusInternalServerError: false,
		http.StatusBadGateway:          false,
		0:                              false,
	}

	for code, permanent := range tests {
		require.Equal(t, permanent, (&FetchError{StatusCode: code}).Permanent(), code)
	}
}

func TestRetryingFetcher(t *testing.T) {
	t.Run("recovers from transient failures", func(t *testing.T) {
		var calls int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			fmt.Fprint(w, "list")
		}))
		defer srv.Close()

		f := NewRetryingFetcher(NewHTTPFetcher(), WithBackoff(time.Millisecond, 5*time.Millisecond))

		body, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, "list", body)
		require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		f := NewRetryingFetcher(NewHTTPFetcher(), WithBackoff(time.Millisecond, 5*time.Millisecond))

		_, err := f.Fetch(context.Background(), srv.URL)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		require.Equal(t, http.StatusNotFound, fe.StatusCode)
		require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mockfetcher.NewMockFetcher(ctrl)
		next.EXPECT().Fetch(gomock.Any(), "https://example.com/s").
			Return("", &FetchError{URI: "https://example.com/s", StatusCode: http.StatusBadGateway}).Times(3)

		f := NewRetryingFetcher(next, WithMaxRetries(2), WithBackoff(time.Millisecond, time.Millisecond))

		_, err := f.Fetch(context.Background(), "https://example.com/s")
		require.Error(t, err)
		require.Contains(t, err.Error(), "HTTP status 502")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mockfetcher.NewMockFetcher(ctrl)

		ctx, cancel := context.WithCancel(context.Background())

		next.EXPECT().Fetch(gomock.Any(), "https://example.com/s").DoAndReturn(
			func(context.Context, string) (string, error) {
				cancel()

				return "", errors.New("connection reset")
			}).Times(1)

		f := NewRetryingFetcher(next, WithBackoff(time.Second, time.Second))

		_, err := f.Fetch(ctx, "https://example.com/s")
		require.Error(t, err)
	})
}

type countingFetcher struct {
	calls int32
	delay time.Duration
	err   error
}

func (c *countingFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	atomic.AddInt32(&c.calls, 1)

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if c.err != nil {
		return "", c.err
	}

	return "body of " + uri, nil
}

func TestCachingFetcher(t *testing.T) {
	t.Run("serves repeated fetches from the cache", func(t *testing.T) {
		next := &countingFetcher{}

		var hits, misses int32

		f := NewCachingFetcher(next, WithCacheObserver(func(hit bool) {
			if hit {
				atomic.AddInt32(&hits, 1)
			} else {
				atomic.AddInt32(&misses, 1)
			}
		}))

		for i := 0; i < 3; i++ {
			body, err := f.Fetch(context.Background(), "https://example.com/a")
			require.NoError(t, err)
			require.Equal(t, "body of https://example.com/a", body)
		}

		require.Equal(t, int32(1), atomic.LoadInt32(&next.calls))
		require.Equal(t, int32(2), hits)
		require.Equal(t, int32(1), misses)

		f.Purge()

		_, err := f.Fetch(context.Background(), "https://example.com/a")
		require.NoError(t, err)
		require.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
	})

	t.Run("entries expire", func(t *testing.T) {
		next := &countingFetcher{}
		f := NewCachingFetcher(next, WithCacheTTL(10*time.Millisecond), WithCacheSize(2))

		_, err := f.Fetch(context.Background(), "https://example.com/a")
		require.NoError(t, err)

		time.Sleep(30 * time.Millisecond)

		_, err = f.Fetch(context.Background(), "https://example.com/a")
		require.NoError(t, err)
		require.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
	})

	t.Run("concurrent fetches share one request", func(t *testing.T) {
		next := &countingFetcher{delay: 50 * time.Millisecond}
		f := NewCachingFetcher(next)

		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				body, err := f.Fetch(context.Background(), "https://example.com/b")
				require.NoError(t, err)
				require.Equal(t, "body of https://example.com/b", body)
			}()
		}

		wg.Wait()
		require.Equal(t, int32(1), atomic.LoadInt32(&next.calls))
	})

	t.Run("failures are not cached", func(t *testing.T) {
		next := &countingFetcher{err: &FetchError{URI: "u", StatusCode: http.StatusBadGateway}}
		f := NewCachingFetcher(next)

		_, err := f.Fetch(context.Background(), "u")
		require.Error(t, err)

		_, err = f.Fetch(context.Background(), "u")
		require.Error(t, err)
		require.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
	})

	t.Run("caller cancellation does not wait for the shared fetch", func(t *testing.T) {
		next := &countingFetcher{delay: time.Second}
		f := NewCachingFetcher(next)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()

		_, err := f.Fetch(ctx, "https://example.com/slow")
		require.Error(t, err)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
		require.Less(t, time.Since(start), 500*time.Millisecond)
	})
}
