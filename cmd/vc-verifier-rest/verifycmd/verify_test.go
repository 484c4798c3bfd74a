/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifycmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

const sampleCredential = `{
	"type": ["VerifiableCredential", "MembershipCredential"],
	"issuer": "did:example:club",
	"credentialSubject": {"id": "did:example:alice"}
}`

func writeCredential(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	color.NoColor = true

	var out bytes.Buffer

	cmd := Cmd(&out)
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()

	return out.String(), err
}

func TestVerifyCmd(t *testing.T) {
	file := writeCredential(t, sampleCredential)

	t.Run("valid credential", func(t *testing.T) {
		out, err := run(t, "--"+credentialFileFlagName, file,
			"--"+policiesFlagName, `[{"policy": "allowed-issuer", "args": "did:example:club"}, "expired"]`)
		require.NoError(t, err)
		require.Contains(t, out, "✓ allowed-issuer")
		require.Contains(t, out, "✓ expired")
		require.Contains(t, out, "VALID: 2/2 policies passed")
	})

	t.Run("invalid credential", func(t *testing.T) {
		out, err := run(t, "--"+credentialFileFlagName, file,
			"--"+policiesFlagName, `[{"policy": "allowed-issuer", "args": "did:example:other"}]`)
		require.ErrorIs(t, err, errVerificationFailed)
		require.Contains(t, out, "✗ allowed-issuer: issuer did:example:club is not allowed")
		require.Contains(t, out, "INVALID: 0/1 policies passed")
	})

	t.Run("default policies need a key", func(t *testing.T) {
		out, err := run(t, "--"+credentialFileFlagName, file)
		require.ErrorIs(t, err, errVerificationFailed)
		require.Contains(t, out, "✗ signature")
		require.Contains(t, out, "INVALID: 2/3 policies passed")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, "--"+credentialFileFlagName, file, "--"+jsonFlagName,
			"--"+policiesFlagName, `["expired"]`)
		require.NoError(t, err)

		res := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Equal(t, true, res["overall_success"])
		require.Equal(t, float64(1), res["policies_run"])
	})

	t.Run("credential file from the environment", func(t *testing.T) {
		t.Setenv(credentialFileEnvKey, file)
		t.Setenv(policiesEnvKey, `["not-before"]`)

		out, err := run(t)
		require.NoError(t, err)
		require.Contains(t, out, "✓ not-before")
	})
}

func TestVerifyCmdErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  string
	}{
		{
			name: "missing credential file",
			args: []string{},
			err:  "Neither credential-file (command line flag) nor VC_VERIFIER_CREDENTIAL_FILE",
		},
		{
			name: "unreadable credential file",
			args: []string{"--" + credentialFileFlagName, "/no/such/credential.json"},
			err:  "read credential",
		},
		{
			name: "unknown format",
			args: []string{"--" + credentialFileFlagName, writeCredential(t, "not a credential!")},
			err:  "unknown credential format",
		},
		{
			name: "invalid policies",
			args: []string{
				"--" + credentialFileFlagName, writeCredential(t, sampleCredential), "--" + policiesFlagName, `["nope"]`,
			},
			err: "parse policies",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}
