/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/internal/jwttest"
	"github.com/openvc/vcverifier/pkg/internal/mdoctest"
)

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func mdocCredential(t *testing.T, signer *jwttest.Signer, doc mdoctest.Document) *credential.Credential {
	t.Helper()

	cred, err := credential.Parse([]byte(hex.EncodeToString(mdoctest.IssuerSigned(t, signer, doc))))
	require.NoError(t, err)

	return cred
}

func TestExpirationPolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newExpirationPolicy(ExpiredID, fixedClock(now))

	t.Run("exp one hour in the past", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{"iss": "did:example:issuer", "exp": now.Add(-time.Hour).Unix()})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, KindVerification, res.ErrorKind)
		require.Contains(t, res.Error, "credential expired 1h0m0s ago")

		payload := res.Payload.(map[string]interface{})
		require.Equal(t, true, payload["policy_available"])
		require.Equal(t, "exp", payload["date_key"])

		since, err := time.ParseDuration(payload["expired_since"].(string))
		require.NoError(t, err)
		require.Greater(t, since, time.Duration(0))
	})

	t.Run("no expiry claim", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{
			"iss": "did:example:issuer",
			"vc":  map[string]interface{}{"type": []string{"VerifiableCredential"}},
		})

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success)
		require.Empty(t, res.Error)
		require.Equal(t, map[string]interface{}{"policy_available": false}, res.Payload)
	})

	t.Run("validUntil in the future", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{
			"vc": map[string]interface{}{"validUntil": now.Add(48 * time.Hour).Format(time.RFC3339)},
		})

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success)

		payload := res.Payload.(map[string]interface{})
		require.Equal(t, "validUntil", payload["date_key"])
		require.Equal(t, "48h0m0s", payload["expires_in"])
	})

	t.Run("exp wins over expirationDate", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{
			"exp": now.Add(time.Hour).Unix(),
			"vc":  map[string]interface{}{"expirationDate": now.Add(-time.Hour).Format(time.RFC3339)},
		})

		require.True(t, p.Verify(context.Background(), cred).Success)
	})

	t.Run("expirationDate of a JSON credential", func(t *testing.T) {
		cred, err := credential.Parse([]byte(`{"type": ["VerifiableCredential"], "issuer": "did:example:a",
			"expirationDate": "2020-01-01T00:00:00Z"}`))
		require.NoError(t, err)

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "expirationDate", res.Payload.(map[string]interface{})["date_key"])
	})

	t.Run("malformed date", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{"vc": map[string]interface{}{"validUntil": "tomorrow"}})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, KindParsing, res.ErrorKind)
		require.Contains(t, res.Error, "claim validUntil")
	})

	t.Run("mdoc validity", func(t *testing.T) {
		cred := mdocCredential(t, jwttest.NewSigner(t, "ds"), mdoctest.Document{
			Claims:     map[string]interface{}{"family_name": "Doe"},
			ValidFrom:  now.Add(-48 * time.Hour),
			ValidUntil: now.Add(-24 * time.Hour),
		})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "validUntil", res.Payload.(map[string]interface{})["date_key"])
	})
}

func TestNotBeforePolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newNotBeforePolicy(NotBeforeID, fixedClock(now))

	t.Run("nbf in the future", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{"nbf": now.Add(2 * time.Hour).Unix()})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "2h0m0s", res.Payload.(map[string]interface{})["available_in"])
	})

	t.Run("validFrom in the past", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{
			"vc": map[string]interface{}{"validFrom": now.Add(-time.Hour).Format(time.RFC3339)},
		})

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success)
		require.Equal(t, "1h0m0s", res.Payload.(map[string]interface{})["available_since"])
	})

	t.Run("issuanceDate in the future", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{
			"vc": map[string]interface{}{"issuanceDate": now.Add(time.Hour).Format(time.RFC3339)},
		})

		require.False(t, p.Verify(context.Background(), cred).Success)
	})

	t.Run("iat tolerates clock skew", func(t *testing.T) {
		cred := jwtCredential(t, map[string]interface{}{"iat": now.Add(30 * time.Second).Unix()})

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success)
		require.Equal(t, "iat", res.Payload.(map[string]interface{})["date_key"])

		cred = jwtCredential(t, map[string]interface{}{"iat": now.Add(2 * time.Minute).Unix()})
		require.False(t, p.Verify(context.Background(), cred).Success)
	})

	t.Run("no start claim", func(t *testing.T) {
		res := p.Verify(context.Background(), jwtCredential(t, map[string]interface{}{"iss": "did:example:a"}))
		require.True(t, res.Success)
		require.Equal(t, map[string]interface{}{"policy_available": false}, res.Payload)
	})

	t.Run("malformed nbf", func(t *testing.T) {
		res := p.Verify(context.Background(), jwtCredential(t, map[string]interface{}{"nbf": "soon"}))
		require.False(t, res.Success)
		require.Equal(t, KindParsing, res.ErrorKind)
	})
}
