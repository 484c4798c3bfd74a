/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/internal/jwttest"
	"github.com/openvc/vcverifier/pkg/internal/mdoctest"
)

const jsonCredential = `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "id": "http://example.edu/credentials/1872",
  "type": ["VerifiableCredential", "UniversityDegreeCredential"],
  "issuer": {"id": "did:example:issuer", "name": "Example University"},
  "issuanceDate": "2010-01-01T19:23:24Z",
  "credentialSubject": [{"id": "did:example:subject", "degree": {"type": "BachelorDegree"}}]
}`

func TestParse(t *testing.T) {
	signer := jwttest.NewSigner(t, "key-1")

	t.Run("JWT VC", func(t *testing.T) {
		token := signer.Sign(t, map[string]interface{}{
			"iss": "did:example:issuer",
			"sub": "did:example:subject",
			"vc": map[string]interface{}{
				"type":              []string{"VerifiableCredential", "PermanentResidentCard"},
				"credentialSubject": map[string]interface{}{"givenName": "Alice"},
			},
		})

		cred, err := Parse([]byte(token))
		require.NoError(t, err)
		require.Equal(t, FormatJWTVC, cred.Format())
		require.Equal(t, token, cred.Raw())
		require.Equal(t, token, cred.JWS())
		require.Equal(t, "key-1", cred.Header()["kid"])
		require.Equal(t, "did:example:issuer", cred.Issuer())
		require.Equal(t, "did:example:subject", cred.Subject())
		require.Equal(t, []string{"VerifiableCredential", "PermanentResidentCard"}, cred.Types())
		require.Equal(t, "PermanentResidentCard", cred.TypeKey())
		require.Nil(t, cred.SDJWT())
		require.Nil(t, cred.MDoc())

		v, ok := cred.Claim("vc.credentialSubject.givenName")
		require.True(t, ok)
		require.Equal(t, "Alice", v)

		_, ok = cred.Claim("vc.credentialSubject.familyName")
		require.False(t, ok)

		require.Contains(t, cred.CredentialData(), "credentialSubject")
	})

	t.Run("JSON VC", func(t *testing.T) {
		cred, err := Parse([]byte(jsonCredential))
		require.NoError(t, err)
		require.Equal(t, FormatLDPVC, cred.Format())
		require.Empty(t, cred.Header())
		require.Empty(t, cred.JWS())
		require.Equal(t, "did:example:issuer", cred.Issuer())
		require.Equal(t, "did:example:subject", cred.Subject())
		require.Equal(t, "UniversityDegreeCredential", cred.TypeKey())

		v, ok := cred.Claim("credentialSubject.0.degree.type")
		require.True(t, ok)
		require.Equal(t, "BachelorDegree", v)
	})

	t.Run("JSON value holding a string or an object", func(t *testing.T) {
		token := signer.Sign(t, map[string]interface{}{"iss": "did:example:issuer"})

		quoted, err := json.Marshal(token)
		require.NoError(t, err)

		cred, err := ParseJSON(quoted)
		require.NoError(t, err)
		require.Equal(t, FormatJWTVC, cred.Format())

		cred, err = ParseJSON(json.RawMessage(jsonCredential))
		require.NoError(t, err)
		require.Equal(t, FormatLDPVC, cred.Format())

		_, err = ParseJSON(json.RawMessage(`"unterminated`))
		require.Error(t, err)
	})

	t.Run("single type string and no subject", func(t *testing.T) {
		cred, err := Parse([]byte(`{"type": "VerifiableCredential", "credentialSubject": []}`))
		require.NoError(t, err)
		require.Equal(t, []string{"VerifiableCredential"}, cred.Types())
		require.Empty(t, cred.Subject())
		require.Empty(t, cred.Issuer())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
		}{
			{name: "empty", raw: "  "},
			{name: "invalid JSON", raw: "{not json"},
			{name: "invalid JWT", raw: "a.b.c"},
			{name: "not binary", raw: "!!!"},
			{name: "binary that is not an mdoc", raw: "deadbeef"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Parse([]byte(tc.raw))
				require.Error(t, err)
			})
		}

		_, err := Parse([]byte("!!!"))
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestParsePresentation(t *testing.T) {
	issuer := jwttest.NewSigner(t, "issuer-key")
	holder := jwttest.NewSigner(t, "holder-key")

	vc := issuer.Sign(t, map[string]interface{}{
		"iss": "did:example:issuer",
		"sub": "did:example:holder",
		"vc":  map[string]interface{}{"type": []string{"VerifiableCredential", "EmailCredential"}},
	})

	t.Run("JWT VP", func(t *testing.T) {
		vp := holder.Sign(t, map[string]interface{}{
			"iss": "did:example:holder",
			"vp": map[string]interface{}{
				"type":                 []string{"VerifiablePresentation"},
				"verifiableCredential": []interface{}{vc, json.RawMessage(jsonCredential)},
			},
		})

		p, err := ParsePresentation([]byte(vp))
		require.NoError(t, err)
		require.Equal(t, FormatJWTVP, p.Format())
		require.Equal(t, vp, p.Raw())
		require.Equal(t, vp, p.JWS())
		require.Equal(t, "holder-key", p.Header()["kid"])
		require.Equal(t, "did:example:holder", p.Holder())
		require.Len(t, p.Credentials(), 2)
		require.Equal(t, FormatJWTVC, p.Credentials()[0].Format())
		require.Equal(t, FormatLDPVC, p.Credentials()[1].Format())
		require.Equal(t, vp, p.Envelope().JWS())
		require.Equal(t, FormatJWTVP, p.Envelope().Format())
	})

	t.Run("JWT VP holder claim", func(t *testing.T) {
		vp := holder.Sign(t, map[string]interface{}{
			"vp": map[string]interface{}{"holder": "did:example:other", "verifiableCredential": vc},
		})

		p, err := ParsePresentation([]byte(vp))
		require.NoError(t, err)
		require.Equal(t, "did:example:other", p.Holder())
		require.Len(t, p.Credentials(), 1)
	})

	t.Run("JWT without vp claim", func(t *testing.T) {
		_, err := ParsePresentation([]byte(vc))
		require.Error(t, err)
		require.Contains(t, err.Error(), "missing vp claim")
	})

	t.Run("JSON VP", func(t *testing.T) {
		raw := `{"type": "VerifiablePresentation", "holder": {"id": "did:example:holder"},
			"verifiableCredential": "` + vc + `"}`

		p, err := ParsePresentation([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, FormatLDPVP, p.Format())
		require.Equal(t, "did:example:holder", p.Holder())
		require.Len(t, p.Credentials(), 1)
		require.NotNil(t, p.Payload())

		quoted, err := json.Marshal(raw)
		require.NoError(t, err)

		p, err = ParsePresentationJSON(quoted)
		require.NoError(t, err)
		require.Equal(t, FormatLDPVP, p.Format())
	})

	t.Run("JSON VP without credentials", func(t *testing.T) {
		p, err := ParsePresentation([]byte(`{"holder": "did:example:holder"}`))
		require.NoError(t, err)
		require.Empty(t, p.Credentials())
	})

	t.Run("invalid embedded credential", func(t *testing.T) {
		_, err := ParsePresentation([]byte(`{"verifiableCredential": ["a.b.c"]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "verifiableCredential[0]")
	})

	t.Run("SD-JWT", func(t *testing.T) {
		b := newSDJWTBuilder(t)
		b.claims["cnf"] = map[string]interface{}{"kid": "did:example:holder#key-1"}

		p, err := ParsePresentation([]byte(b.combined(issuer, b.disclose("given_name", "Alice"))))
		require.NoError(t, err)
		require.Equal(t, FormatSDJWTVC, p.Format())
		require.Equal(t, "did:example:holder#key-1", p.Holder())
		require.Len(t, p.Credentials(), 1)
		require.Same(t, p.Credentials()[0], p.Envelope())
	})

	t.Run("mdoc device response", func(t *testing.T) {
		resp := mdoctest.DeviceResponse(t, issuer,
			mdoctest.Document{Claims: map[string]interface{}{"family_name": "Doe"}},
			mdoctest.Document{DocType: "org.example.pid", Claims: map[string]interface{}{"age_over_18": true}})

		p, err := ParsePresentation([]byte(hex.EncodeToString(resp)))
		require.NoError(t, err)
		require.Equal(t, FormatMsoMdoc, p.Format())
		require.Empty(t, p.Holder())
		require.Nil(t, p.Envelope())
		require.Len(t, p.Credentials(), 2)
		require.Equal(t, mdoctest.DocType, p.Credentials()[0].TypeKey())
		require.Equal(t, "org.example.pid", p.Credentials()[1].TypeKey())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := ParsePresentation(nil)
		require.ErrorIs(t, err, ErrUnknownFormat)

		_, err = ParsePresentation([]byte("!!!"))
		require.ErrorIs(t, err, ErrUnknownFormat)

		_, err = ParsePresentation([]byte("deadbeef"))
		require.Error(t, err)
	})
}
