/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

const (
	webhookRetries    = 2
	webhookRetryWait  = 100 * time.Millisecond
	webhookMaxPayload = 1 << 20
)

type webhookPolicy struct {
	base
	url    string
	client *http.Client
}

func newWebhookPolicy(id string, args []byte, client *http.Client) (*webhookPolicy, error) {
	var target string
	if err := json.Unmarshal(args, &target); err != nil {
		return nil, fmt.Errorf("expected a URL string: %w", err)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported webhook URL scheme %q", u.Scheme)
	}

	return &webhookPolicy{
		base:   base{id: id, description: "Sends the credential to a URL that decides on it.", args: target},
		url:    target,
		client: client,
	}, nil
}

func (p *webhookPolicy) Verify(ctx context.Context, cred *credential.Credential) Result {
	body, err := json.Marshal(cred.Payload())
	if err != nil {
		return Failed(p, &ParsingError{Message: "encode credential", Err: err}, nil)
	}

	var (
		status   int
		response []byte
	)

	err = backoff.RetryNotify(
		func() error {
			var postErr error

			status, response, postErr = p.post(ctx, body)
			if postErr != nil && ctx.Err() != nil {
				return backoff.Permanent(postErr)
			}

			return postErr
		},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(webhookRetryWait), webhookRetries), ctx),
		func(retryErr error, t time.Duration) {
			logger.Warnf("webhook %s failed, will sleep for %s before trying again : %s", p.url, t, retryErr)
		},
	)
	if err != nil {
		return Failed(p, &RetrievalError{Message: "webhook " + p.url, Err: err}, nil)
	}

	var payload interface{}
	if len(bytes.TrimSpace(response)) > 0 {
		if jsonErr := json.Unmarshal(response, &payload); jsonErr != nil {
			payload = string(response)
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Failed(p, verificationErrorf("webhook %s rejected the credential with status %d", p.url, status),
			payload)
	}

	return Succeeded(p, payload)
}

func (p *webhookPolicy) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, backoff.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Errorf("failed to close response body: %s", closeErr)
		}
	}()

	response, err := io.ReadAll(io.LimitReader(resp.Body, webhookMaxPayload))
	if err != nil {
		return 0, nil, fmt.Errorf("read webhook response: %w", err)
	}

	return resp.StatusCode, response, nil
}

