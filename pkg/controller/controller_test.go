/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	verifiercmd "github.com/openvc/vcverifier/pkg/controller/command/verifier"
	"github.com/openvc/vcverifier/pkg/policy"
	"github.com/openvc/vcverifier/pkg/verifier"
)

type countingRecorder struct {
	count int
}

func (r *countingRecorder) RecordVerification(string, *policy.Results) {
	r.count++
}

func TestGetRESTHandlers(t *testing.T) {
	r := policy.NewRegistry(policy.Deps{})

	handlers := GetRESTHandlers(r, verifier.New(r), WithVerificationTimeout(time.Second))
	require.Len(t, handlers, 3)
}

func TestGetCommandHandlers(t *testing.T) {
	r := policy.NewRegistry(policy.Deps{})
	rec := &countingRecorder{}

	handlers := GetCommandHandlers(r, verifier.New(r), WithRecorder(rec))
	require.Len(t, handlers, 3)

	for _, h := range handlers {
		if h.Method() != verifiercmd.VerifyCredentialCommandMethod {
			continue
		}

		var rw bytes.Buffer

		cmdErr := h.Handle()(&rw, bytes.NewBufferString(
			`{"credential": {"type": "VerifiableCredential", "issuer": "did:example:a"}, "policies": ["expired"]}`))
		require.Nil(t, cmdErr)
		require.Contains(t, rw.String(), `"overall_success":true`)
	}

	require.Equal(t, 1, rec.count)
}
