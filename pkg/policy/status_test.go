/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/doc/status"
	"github.com/openvc/vcverifier/pkg/doc/status/bitstring"
	"github.com/openvc/vcverifier/pkg/doc/status/entry"
	"github.com/openvc/vcverifier/pkg/doc/status/expansion"
	"github.com/openvc/vcverifier/pkg/doc/status/validator"
	mockfetcher "github.com/openvc/vcverifier/pkg/internal/gomocks/doc/status/fetcher"
	mockpolicy "github.com/openvc/vcverifier/pkg/internal/gomocks/policy"
)

const statusListURI = "https://issuer.example/status/3"

func statusEntry(purpose string, index int) map[string]interface{} {
	return map[string]interface{}{
		"id":                   statusListURI + "#" + strconv.Itoa(index),
		"type":                 entry.BitstringStatusListEntry,
		"statusPurpose":        purpose,
		"statusListIndex":      strconv.Itoa(index),
		"statusListCredential": statusListURI,
	}
}

func credentialWithStatus(t *testing.T, entries ...map[string]interface{}) *credential.Credential {
	t.Helper()

	var cs interface{} = entries
	if len(entries) == 1 {
		cs = entries[0]
	}

	return jwtCredential(t, map[string]interface{}{
		"iss": "did:example:issuer",
		"vc": map[string]interface{}{
			"type":             []string{"VerifiableCredential"},
			"credentialStatus": cs,
		},
	})
}

func statusPolicyOf(t *testing.T, args string, deps Deps) Policy {
	t.Helper()

	return newPolicy(t, NewRegistry(deps), CredentialStatusID, args)
}

func TestStatusPolicy_W3C(t *testing.T) {
	cred := credentialWithStatus(t, statusEntry(status.PurposeSuspension, 7), statusEntry(status.PurposeRevocation, 42))

	t.Run("entry with the requested purpose is checked", func(t *testing.T) {
		w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))
		w3c.EXPECT().Validate(gomock.Any(),
			entry.W3CEntry{URI: statusListURI, Index: 42, Purpose: status.PurposeRevocation, Type: status.BitstringStatusList},
			validator.W3CAttribute{Value: 0, Purpose: status.PurposeRevocation, Type: status.BitstringStatusList},
		).Return(nil)

		p := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0, "type": "BitstringStatusList"}`, Deps{W3CStatus: w3c})

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success, res.Error)

		payload := res.Payload.(map[string]interface{})
		require.Equal(t, uint64(42), payload["index"])
		require.Equal(t, statusListURI, payload["uri"])
	})

	t.Run("purpose without entry fails closed", func(t *testing.T) {
		w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))

		p := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0, "purpose": "message"}`, Deps{W3CStatus: w3c})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "credential has no status entry with purpose message", res.Error)
	})

	t.Run("type without entry fails closed", func(t *testing.T) {
		w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))

		p := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0, "type": "StatusList2021"}`, Deps{W3CStatus: w3c})
		require.False(t, p.Verify(context.Background(), cred).Success)
	})

	t.Run("credential without status fails closed", func(t *testing.T) {
		w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))

		p := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0}`, Deps{W3CStatus: w3c})

		res := p.Verify(context.Background(), degreeCredential(t))
		require.False(t, res.Success)
		require.Equal(t, entry.ErrNoStatus.Error(), res.Error)
		require.Equal(t, KindVerification, res.ErrorKind)
	})

	t.Run("validator messages are kept", func(t *testing.T) {
		tests := []struct {
			err  error
			kind ErrorKind
		}{
			{err: &validator.RetrievalError{Message: "Status credential download error"}, kind: KindRetrieval},
			{err: &validator.VerificationError{Message: "Status validation failed: expected 0, but got 1"},
				kind: KindVerification},
		}

		for _, tc := range tests {
			w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))
			w3c.EXPECT().Validate(gomock.Any(), gomock.Any(), gomock.Any()).Return(tc.err)

			res := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0}`, Deps{W3CStatus: w3c}).
				Verify(context.Background(), cred)
			require.False(t, res.Success)
			require.Equal(t, tc.err.Error(), res.Error)
			require.Equal(t, tc.kind, res.ErrorKind)
		}
	})

	t.Run("w3c-list checks every purpose", func(t *testing.T) {
		w3c := mockpolicy.NewMockW3CStatusValidator(gomock.NewController(t))
		w3c.EXPECT().Validate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e entry.W3CEntry, attr validator.W3CAttribute) error {
				require.Equal(t, e.Purpose, attr.Purpose)

				if attr.Purpose == status.PurposeSuspension {
					return &validator.VerificationError{Message: "Status validation failed: expected 0, but got 1"}
				}

				return nil
			}).Times(2)

		p := statusPolicyOf(t, `{"discriminator": "w3c-list", "list": [
			{"value": 0, "purpose": "revocation"},
			{"discriminator": "w3c", "value": 0, "purpose": "suspension"}
		]}`, Deps{W3CStatus: w3c})

		res := p.Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "Status validation failed: expected 0, but got 1", res.Error)
		require.Len(t, res.Payload, 1)
	})

	t.Run("no validator configured", func(t *testing.T) {
		res := statusPolicyOf(t, `{"discriminator": "w3c", "value": 0}`, Deps{}).Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, KindConfiguration, res.ErrorKind)
	})
}

func TestStatusPolicy_IETF(t *testing.T) {
	cred := jwtCredential(t, map[string]interface{}{
		"iss":    "https://issuer.example",
		"status": map[string]interface{}{"status_list": map[string]interface{}{"idx": 3, "uri": statusListURI}},
	})

	t.Run("valid", func(t *testing.T) {
		ietf := mockpolicy.NewMockIETFStatusValidator(gomock.NewController(t))
		ietf.EXPECT().Validate(gomock.Any(), entry.IETFEntry{URI: statusListURI, Index: 3},
			validator.IETFAttribute{Value: 0}).Return(nil)

		res := statusPolicyOf(t, `{"discriminator": "ietf", "value": 0}`, Deps{IETFStatus: ietf}).
			Verify(context.Background(), cred)
		require.True(t, res.Success, res.Error)
	})

	t.Run("revoked", func(t *testing.T) {
		ietf := mockpolicy.NewMockIETFStatusValidator(gomock.NewController(t))
		ietf.EXPECT().Validate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&validator.VerificationError{Message: "Status validation failed: expected 0, but got 1"})

		res := statusPolicyOf(t, `{"discriminator": "ietf", "value": 0}`, Deps{IETFStatus: ietf}).
			Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "Status validation failed: expected 0, but got 1", res.Error)
	})

	t.Run("no status claim", func(t *testing.T) {
		ietf := mockpolicy.NewMockIETFStatusValidator(gomock.NewController(t))

		res := statusPolicyOf(t, `{"discriminator": "ietf", "value": 0}`, Deps{IETFStatus: ietf}).
			Verify(context.Background(), degreeCredential(t))
		require.False(t, res.Success)
		require.Equal(t, entry.ErrNoStatus.Error(), res.Error)
	})
}

func TestStatusPolicy_Arguments(t *testing.T) {
	r := NewRegistry(Deps{})

	for _, args := range []string{
		`{"discriminator": "w3c"}`,
		`{"discriminator": "w3c", "value": -1}`,
		`{"discriminator": "w3c", "value": 0, "type": "TokenStatusList"}`,
		`{"discriminator": "w3c", "value": 0, "type": "Nope"}`,
		`{"discriminator": "w3c", "value": 0, "colour": "red"}`,
		`{"discriminator": "w3c-list"}`,
		`{"discriminator": "w3c-list", "list": [{"discriminator": "ietf", "value": 0}]}`,
		`{"discriminator": "ietf"}`,
		`[1, 2]`,
	} {
		_, err := r.New(CredentialStatusID, []byte(args))
		require.Error(t, err, args)
		require.Equal(t, KindConfiguration, KindOf(err), args)
	}

	p, err := r.New(CredentialStatusID, []byte(`{"discriminator": "w3c", "value": 1, "type": "StatusList2021Credential"}`))
	require.NoError(t, err)

	attr := p.Args().(StatusAttribute)
	require.Equal(t, status.PurposeRevocation, attr.Purpose)
	require.Equal(t, string(status.StatusList2021), attr.Type)
}

// TestStatusPolicy_LargeList runs the whole status pipeline over a list of 100,000 entries.
func TestStatusPolicy_LargeList(t *testing.T) {
	const (
		entries = 100000
		revoked = 94567
	)

	w, err := bitstring.NewWriter(bitstring.BigEndian, entries, 1)
	require.NoError(t, err)
	require.NoError(t, w.Set(revoked, 1))

	alg, err := expansion.ForType(status.BitstringStatusList)
	require.NoError(t, err)

	encoded, err := alg.Compress(w.Bytes())
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"type":   []string{"VerifiableCredential", "BitstringStatusListCredential"},
		"issuer": "did:example:issuer",
		"credentialSubject": map[string]interface{}{
			"id":            statusListURI + "#list",
			"type":          "BitstringStatusList",
			"statusPurpose": "revocation",
			"encodedList":   encoded,
		},
	})
	require.NoError(t, err)

	cred := credentialWithStatus(t, statusEntry(status.PurposeRevocation, revoked))

	verify := func(t *testing.T, value int) Result {
		t.Helper()

		f := mockfetcher.NewMockFetcher(gomock.NewController(t))
		f.EXPECT().Fetch(gomock.Any(), statusListURI).Return(string(body), nil)

		p := statusPolicyOf(t, `{"discriminator": "w3c", "purpose": "revocation", "type": "BitstringStatusList", `+
			`"value": `+strconv.Itoa(value)+`}`, Deps{W3CStatus: validator.NewW3C(f)})

		return p.Verify(context.Background(), cred)
	}

	t.Run("value 1 succeeds", func(t *testing.T) {
		res := verify(t, 1)
		require.True(t, res.Success, res.Error)
	})

	t.Run("value 0 fails", func(t *testing.T) {
		res := verify(t, 0)
		require.False(t, res.Success)
		require.Equal(t, KindVerification, res.ErrorKind)
		require.Equal(t, "Status validation failed: expected 0, but got 1", res.Error)
	})
}
