/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

func degreeCredential(t *testing.T) *credential.Credential {
	t.Helper()

	return jwtCredential(t, map[string]interface{}{
		"iss": "did:example:university",
		"sub": "did:example:alice",
		"vc": map[string]interface{}{
			"type":   []string{"VerifiableCredential", "UniversityDegreeCredential"},
			"issuer": "did:example:university",
			"credentialSubject": map[string]interface{}{
				"id":   "did:example:alice",
				"name": "Alice Example",
				"age":  31,
				"degrees": []interface{}{
					map[string]interface{}{"type": "BachelorDegree", "name": "Physics"},
					map[string]interface{}{"type": "MasterDegree", "name": "Astronomy"},
				},
			},
		},
	})
}

func newPolicy(t *testing.T, r *Registry, id, args string) Policy {
	t.Helper()

	var raw []byte
	if args != "" {
		raw = []byte(args)
	}

	p, err := r.New(id, raw)
	require.NoError(t, err)

	return p
}

func TestAllowedIssuerPolicy(t *testing.T) {
	r := NewRegistry(Deps{})
	cred := degreeCredential(t)

	t.Run("single issuer", func(t *testing.T) {
		res := newPolicy(t, r, AllowedIssuerID, `"did:example:university"`).Verify(context.Background(), cred)
		require.True(t, res.Success)
	})

	t.Run("issuer list", func(t *testing.T) {
		p := newPolicy(t, r, AllowedIssuerID, `["did:example:other", "did:example:university"]`)
		require.True(t, p.Verify(context.Background(), cred).Success)
	})

	t.Run("issuer not allowed", func(t *testing.T) {
		res := newPolicy(t, r, AllowedIssuerID, `["did:example:other"]`).Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, "issuer did:example:university is not allowed", res.Error)
		require.Equal(t, KindVerification, res.ErrorKind)
	})

	t.Run("credential without issuer", func(t *testing.T) {
		res := newPolicy(t, r, AllowedIssuerID, `"did:example:university"`).
			Verify(context.Background(), jwtCredential(t, map[string]interface{}{"sub": "x"}))
		require.False(t, res.Success)
		require.Equal(t, "credential has no issuer", res.Error)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		for _, args := range []string{`[]`, `[1]`, `{"a": 1}`, `12`} {
			_, err := r.New(AllowedIssuerID, []byte(args))
			require.Error(t, err, args)
			require.Equal(t, KindConfiguration, KindOf(err))
		}
	})
}

func TestDataMatcherPolicy(t *testing.T) {
	r := NewRegistry(Deps{})
	cred := degreeCredential(t)

	tests := []struct {
		name    string
		args    string
		success bool
		err     string
	}{
		{
			name:    "string value matches",
			args:    `{"path": "$.credentialSubject.name", "regex": "^Alice"}`,
			success: true,
		},
		{
			name:    "number value matches",
			args:    `{"path": "$.credentialSubject.age", "regex": "^3[0-9]$"}`,
			success: true,
		},
		{
			name:    "one array element matches",
			args:    `{"path": "$.credentialSubject.degrees[*].type", "regex": "^Master"}`,
			success: true,
		},
		{
			name: "no element matches",
			args: `{"path": "$.credentialSubject.degrees[*].type", "regex": "^Doctor"}`,
			err:  "value at $.credentialSubject.degrees[*].type does not match ^Doctor",
		},
		{
			name: "value does not match",
			args: `{"path": "$.credentialSubject.name", "regex": "^Bob"}`,
			err:  "value at $.credentialSubject.name does not match ^Bob",
		},
		{
			name: "missing value",
			args: `{"path": "$.credentialSubject.email", "regex": ".*"}`,
			err:  "no value at $.credentialSubject.email",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res := newPolicy(t, r, RegexID, tc.args).Verify(context.Background(), cred)
			require.Equal(t, tc.success, res.Success, res.Error)

			if tc.err != "" {
				require.Contains(t, res.Error, tc.err)
				require.Equal(t, KindVerification, res.ErrorKind)
			}
		})
	}

	t.Run("matched value in payload", func(t *testing.T) {
		res := newPolicy(t, r, DataMatcherID, `{"path": "$.credentialSubject.name", "regex": "Example$"}`).
			Verify(context.Background(), cred)
		require.True(t, res.Success)
		require.Equal(t, "Alice Example", res.Payload.(map[string]interface{})["value"])
	})

	t.Run("path and regex are required", func(t *testing.T) {
		_, err := r.New(RegexID, []byte(`{"path": "$.a"}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "path and regex are required")
	})
}

func TestSchemaPolicy(t *testing.T) {
	r := NewRegistry(Deps{})
	cred := degreeCredential(t)

	schema := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["credentialSubject"],
		"properties": {
			"credentialSubject": {
				"type": "object",
				"required": ["name", "email"],
				"properties": {
					"name": {"type": "string"},
					"age": {"type": "integer", "minimum": 40}
				}
			}
		}
	}`

	t.Run("violations are listed", func(t *testing.T) {
		res := newPolicy(t, r, SchemaID, schema).Verify(context.Background(), cred)
		require.False(t, res.Success)
		require.Equal(t, KindVerification, res.ErrorKind)

		violations := res.Payload.(map[string]interface{})["errors"].([]SchemaViolation)
		require.Len(t, violations, 2)

		types := map[string]SchemaViolation{}
		for _, v := range violations {
			types[v.Type] = v
		}

		require.Contains(t, types["required"].Description, "email")
		require.Equal(t, "credentialSubject.age", types["number_gte"].Field)
	})

	t.Run("valid data", func(t *testing.T) {
		p := newPolicy(t, r, SchemaID, `{"type": "object", "required": ["type", "credentialSubject"]}`)

		res := p.Verify(context.Background(), cred)
		require.True(t, res.Success, res.Error)
	})

	t.Run("args round trip as the schema document", func(t *testing.T) {
		p := newPolicy(t, r, SchemaID, `{"type": "object"}`)
		require.JSONEq(t, `{"type": "object"}`, string(p.Args().(json.RawMessage)))
	})
}

func jsonPresentation(t *testing.T, holder string, subjects ...string) *credential.Presentation {
	t.Helper()

	creds := make([]string, 0, len(subjects))
	for _, s := range subjects {
		creds = append(creds, `{"type": ["VerifiableCredential", "MembershipCredential"], "issuer": "did:example:club",
			"credentialSubject": {"id": "`+s+`"}}`)
	}

	doc := `{"type": ["VerifiablePresentation"], "holder": "` + holder + `", "verifiableCredential": [` +
		strings.Join(creds, ",") + `]}`

	vp, err := credential.ParsePresentation([]byte(doc))
	require.NoError(t, err)

	return vp
}

func TestHolderBindingPolicy(t *testing.T) {
	r := NewRegistry(Deps{})
	p := newPolicy(t, r, HolderBindingID, "").(PresentationPolicy)

	t.Run("holder is every subject", func(t *testing.T) {
		vp := jsonPresentation(t, "did:example:alice", "did:example:alice", "did:example:alice")
		require.True(t, p.VerifyPresentation(context.Background(), vp).Success)
	})

	t.Run("every mismatch is listed", func(t *testing.T) {
		vp := jsonPresentation(t, "did:example:alice", "did:example:bob", "did:example:alice", "did:example:carol")

		res := p.VerifyPresentation(context.Background(), vp)
		require.False(t, res.Success)
		require.Len(t, res.Payload.(map[string]interface{})["mismatches"], 2)
		require.Contains(t, res.Error, "did:example:bob")
		require.Contains(t, res.Error, "did:example:carol")
	})

	t.Run("presentation without holder", func(t *testing.T) {
		vp := jsonPresentation(t, "", "did:example:alice")

		res := p.VerifyPresentation(context.Background(), vp)
		require.False(t, res.Success)
		require.Equal(t, "presentation has no holder", res.Error)
	})

	t.Run("not applicable to a credential", func(t *testing.T) {
		res := p.Verify(context.Background(), degreeCredential(t))
		require.False(t, res.Success)
		require.Equal(t, KindConfiguration, res.ErrorKind)
		require.Contains(t, res.Error, "policy applies to presentations only")
	})
}

func TestCountPolicies(t *testing.T) {
	r := NewRegistry(Deps{})
	vp := jsonPresentation(t, "did:example:alice", "did:example:alice", "did:example:alice")

	tests := []struct {
		id      string
		args    string
		success bool
	}{
		{id: MinimumCredentialsID, args: "1", success: true},
		{id: MinimumCredentialsID, args: "2", success: true},
		{id: MinimumCredentialsID, args: "3", success: false},
		{id: MaximumCredentialsID, args: "2", success: true},
		{id: MaximumCredentialsID, args: "1", success: false},
		{id: MaximumCredentialsID, args: "0", success: false},
	}

	for _, tc := range tests {
		p := newPolicy(t, r, tc.id, tc.args).(PresentationPolicy)

		res := p.VerifyPresentation(context.Background(), vp)
		require.Equal(t, tc.success, res.Success, "%s %s", tc.id, tc.args)
		require.Equal(t, 2, res.Payload.(map[string]interface{})["total"])

		if !tc.success {
			require.NotEmpty(t, res.Error)
		}
	}

	_, err := r.New(MinimumCredentialsID, []byte("-1"))
	require.Error(t, err)

	res := newPolicy(t, r, MaximumCredentialsID, "1").Verify(context.Background(), degreeCredential(t))
	require.Equal(t, KindConfiguration, res.ErrorKind)
}
