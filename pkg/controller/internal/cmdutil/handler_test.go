/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/controller/command"
)

func TestHTTPHandler(t *testing.T) {
	var read int

	var readErr error

	h := NewHTTPHandler("/verify/credential", http.MethodPost, func(rw http.ResponseWriter, req *http.Request) {
		var b []byte
		b, readErr = io.ReadAll(req.Body)
		read = len(b)
	})

	require.Equal(t, "/verify/credential", h.Path())
	require.Equal(t, http.MethodPost, h.Method())

	t.Run("body within the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, h.Path(), strings.NewReader(`{"credential": {}}`))
		h.Handle()(httptest.NewRecorder(), req)

		require.NoError(t, readErr)
		require.Equal(t, len(`{"credential": {}}`), read)
	})

	t.Run("body over the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, h.Path(), bytes.NewReader(make([]byte, MaxRequestBody+1)))
		h.Handle()(httptest.NewRecorder(), req)

		require.Error(t, readErr)
		require.Contains(t, readErr.Error(), "request body too large")
	})
}

func TestCommandHandler(t *testing.T) {
	called := false
	h := NewCommandHandler("verifier", "VerifyCredential", func(rw io.Writer, req io.Reader) command.Error {
		called = true

		return nil
	})

	require.Equal(t, "verifier", h.Name())
	require.Equal(t, "VerifyCredential", h.Method())
	require.Nil(t, h.Handle()(&bytes.Buffer{}, &bytes.Buffer{}))
	require.True(t, called)
}
