/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fetcher downloads status list credentials.
//
// HTTPFetcher does the GET. RetryingFetcher and CachingFetcher wrap any Fetcher; the usual
// stack is CachingFetcher(RetryingFetcher(HTTPFetcher)).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openvc/vcverifier/component/log"
)

var logger = log.New("vcverifier/status/fetcher")

const (
	defaultTimeout = 10 * time.Second
	// maxBodySize bounds the status list credential body.
	maxBodySize = 32 << 20

	// AcceptW3C is sent for W3C status list credentials.
	AcceptW3C = "application/vc+jwt, application/jwt, application/vc+ld+json, application/json"
	// AcceptIETF is sent for IETF status list tokens.
	AcceptIETF = "application/statuslist+jwt"
)

// Fetcher retrieves the body of a status list credential. Implementations must be safe for
// concurrent use with identical arguments.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// FetchError reports a failed download. StatusCode is zero for transport failures.
type FetchError struct {
	URI        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URI, e.StatusCode)
	}

	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying cannot help. Client errors other than 408 and 429 are permanent.
func (e *FetchError) Permanent() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError &&
		e.StatusCode != http.StatusRequestTimeout && e.StatusCode != http.StatusTooManyRequests
}

// Observer is told about every completed HTTP fetch.
type Observer func(uri string, elapsed time.Duration, err error)

// HTTPFetcher fetches status list credentials over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	accept    string
	authToken string
	observer  Observer
}

// Option configures an HTTPFetcher.
type Option func(opts *HTTPFetcher)

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: defaultTimeout},
		accept: AcceptW3C,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// WithTimeout sets the HTTP(S) timeout. It replaces the client set by WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *HTTPFetcher) {
		opts.client = &http.Client{Timeout: timeout}
	}
}

// WithHTTPClient sets a custom http client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *HTTPFetcher) {
		opts.client = client
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) Option {
	return func(opts *HTTPFetcher) {
		opts.accept = accept
	}
}

// WithAuthToken sets a bearer token sent with every request.
func WithAuthToken(token string) Option {
	return func(opts *HTTPFetcher) {
		opts.authToken = token
	}
}

// WithObserver registers a fetch observer.
func WithObserver(o Observer) Option {
	return func(opts *HTTPFetcher) {
		opts.observer = o
	}
}

// Fetch performs GET uri and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	start := time.Now()

	body, err := f.get(ctx, uri)

	if f.observer != nil {
		f.observer(uri, time.Since(start), err)
	}

	return body, err
}

func (f *HTTPFetcher) get(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", &FetchError{URI: uri, Err: errors.Wrap(err, "HTTP create get request failed")}
	}

	req.Header.Add("Accept", f.accept)

	if f.authToken != "" {
		req.Header.Add("Authorization", "Bearer "+f.authToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URI: uri, Err: errors.Wrap(err, "HTTP Get request failed")}
	}

	defer closeResponseBody(resp.Body)

	gotBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &FetchError{URI: uri, Err: errors.Wrap(err, "reading response body failed")}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Debugf("status list fetch %s returned %d body [%s]", uri, resp.StatusCode, gotBody)

		return "", &FetchError{
			URI:        uri,
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("unexpected response status %d", resp.StatusCode),
		}
	}

	body := strings.TrimSpace(string(gotBody))
	if body == "" {
		return "", &FetchError{URI: uri, Err: errors.New("empty response body")}
	}

	return body, nil
}

func closeResponseBody(respBody io.Closer) {
	e := respBody.Close()
	if e != nil {
		logger.Errorf("Failed to close response body: %v", e)
	}
}
