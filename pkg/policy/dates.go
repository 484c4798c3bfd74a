/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

// iatGrace is subtracted from iat when it is the only validity start.
const iatGrace = time.Minute

type dateClaim struct {
	key string
	// unix marks a NumericDate claim, others are RFC 3339 strings.
	unix bool
}

var (
	expiryClaims = []dateClaim{{key: "exp", unix: true}, {key: "expirationDate"}, {key: "validUntil"}}
	startClaims  = []dateClaim{{key: "nbf", unix: true}, {key: "validFrom"}, {key: "issuanceDate"}}
)

// findDate returns the first claim of claims found in the payload, then in the credential data.
func findDate(cred *credential.Credential, claims []dateClaim) (string, time.Time, bool, error) {
	for _, obj := range []map[string]interface{}{cred.Payload(), cred.CredentialData()} {
		for _, c := range claims {
			v, ok := obj[c.key]
			if !ok || v == nil {
				continue
			}

			t, err := dateOf(v, c.unix)
			if err != nil {
				return c.key, time.Time{}, false, &ParsingError{Message: "claim " + c.key, Err: err}
			}

			return c.key, t, true, nil
		}
	}

	return "", time.Time{}, false, nil
}

func dateOf(v interface{}, unix bool) (time.Time, error) {
	if unix {
		var secs float64

		switch n := v.(type) {
		case float64:
			secs = n
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return time.Time{}, err
			}

			secs = f
		default:
			return time.Time{}, fmt.Errorf("expected a number, got %T", v)
		}

		whole, frac := math.Modf(secs)

		return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), nil
	}

	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected a date string, got %T", v)
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}

	return t.UTC(), nil
}

func unavailable() map[string]interface{} {
	return map[string]interface{}{"policy_available": false}
}

type expirationPolicy struct {
	base
	now func() time.Time
}

func newExpirationPolicy(id string, now func() time.Time) *expirationPolicy {
	return &expirationPolicy{
		base: base{id: id, description: "Checks that the credential has not expired."},
		now:  now,
	}
}

func (p *expirationPolicy) Verify(_ context.Context, cred *credential.Credential) Result {
	key, expiry, found, err := findDate(cred, expiryClaims)
	if err != nil {
		return Failed(p, err, nil)
	}

	if !found {
		return Succeeded(p, unavailable())
	}

	now := p.now().UTC()
	payload := map[string]interface{}{
		"policy_available": true,
		"date_key":         key,
		"date":             expiry.Format(time.RFC3339),
	}

	if now.After(expiry) {
		since := now.Sub(expiry).Round(time.Second)
		payload["expired_since"] = since.String()

		return Failed(p, verificationErrorf("credential expired %s ago (%s %s)", since, key,
			expiry.Format(time.RFC3339)), payload)
	}

	payload["expires_in"] = expiry.Sub(now).Round(time.Second).String()

	return Succeeded(p, payload)
}

type notBeforePolicy struct {
	base
	now func() time.Time
}

func newNotBeforePolicy(id string, now func() time.Time) *notBeforePolicy {
	return &notBeforePolicy{
		base: base{id: id, description: "Checks that the credential is already valid."},
		now:  now,
	}
}

func (p *notBeforePolicy) Verify(_ context.Context, cred *credential.Credential) Result {
	key, start, found, err := findDate(cred, startClaims)
	if err != nil {
		return Failed(p, err, nil)
	}

	if !found {
		key, start, found, err = findDate(cred, []dateClaim{{key: "iat", unix: true}})
		if err != nil {
			return Failed(p, err, nil)
		}

		start = start.Add(-iatGrace)
	}

	if !found {
		return Succeeded(p, unavailable())
	}

	now := p.now().UTC()
	payload := map[string]interface{}{
		"policy_available": true,
		"date_key":         key,
		"date":             start.Format(time.RFC3339),
	}

	if now.Before(start) {
		in := start.Sub(now).Round(time.Second)
		payload["available_in"] = in.String()

		return Failed(p, verificationErrorf("credential is not valid before %s (%s), available in %s",
			start.Format(time.RFC3339), key, in), payload)
	}

	payload["available_since"] = now.Sub(start).Round(time.Second).String()

	return Succeeded(p, payload)
}
