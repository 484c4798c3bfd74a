/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package entry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openvc/vcverifier/pkg/doc/status"
)

func parse(t *testing.T, s string) map[string]interface{} {
	t.Helper()

	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))

	return m
}

func TestW3CEntries(t *testing.T) {
	t.Run("single bitstring entry", func(t *testing.T) {
		entries, err := W3CEntries(parse(t, `{"credentialStatus":{
			"id":"https://example.com/credentials/status/3#94567",
			"type":"BitstringStatusListEntry",
			"statusPurpose":"revocation",
			"statusListIndex":"94567",
			"statusListCredential":"https://example.com/credentials/status/3"}}`))
		require.NoError(t, err)
		require.Equal(t, []W3CEntry{{
			URI:     "https://example.com/credentials/status/3",
			Index:   94567,
			Purpose: status.PurposeRevocation,
			Type:    status.BitstringStatusList,
		}}, entries)
	})

	t.Run("array with several purposes", func(t *testing.T) {
		entries, err := W3CEntries(parse(t, `{"credentialStatus":[
			{"type":"StatusList2021Entry","statusPurpose":"suspension","statusListIndex":7,
			 "statusListCredential":"https://example.com/s"},
			{"type":"BitstringStatusListEntry","statusPurpose":"message","statusListIndex":"3","statusSize":2,
			 "statusListCredential":"https://example.com/m"},
			{"type":"SomethingElse"}]}`))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, status.StatusList2021, entries[0].Type)
		require.Equal(t, uint64(7), entries[0].Index)
		require.Equal(t, status.PurposeSuspension, entries[0].Purpose)
		require.Equal(t, 2, entries[1].Size)
		require.Equal(t, status.PurposeMessage, entries[1].Purpose)
	})

	t.Run("revocation list 2020", func(t *testing.T) {
		entries, err := W3CEntries(parse(t, `{"credentialStatus":{"type":"RevocationList2020Status",
			"revocationListIndex":"12","revocationListCredential":"https://example.com/r"}}`))
		require.NoError(t, err)
		require.Equal(t, status.RevocationList2020, entries[0].Type)
		require.Equal(t, status.PurposeRevocation, entries[0].Purpose)
		require.Equal(t, uint64(12), entries[0].Index)
	})

	t.Run("purpose defaults to revocation", func(t *testing.T) {
		entries, err := W3CEntries(parse(t, `{"credentialStatus":{"type":"BitstringStatusListEntry",
			"statusListIndex":"1","statusListCredential":"https://example.com/s"}}`))
		require.NoError(t, err)
		require.Equal(t, status.PurposeRevocation, entries[0].Purpose)
	})

	t.Run("no status", func(t *testing.T) {
		_, err := W3CEntries(parse(t, `{"id":"x"}`))
		require.True(t, errors.Is(err, ErrNoStatus))

		_, err = W3CEntries(parse(t, `{"credentialStatus":{"type":"Other"}}`))
		require.True(t, errors.Is(err, ErrNoStatus))
	})

	t.Run("malformed", func(t *testing.T) {
		tests := map[string]string{
			"status is a string":  `{"credentialStatus":"x"}`,
			"item is a string":    `{"credentialStatus":["x"]}`,
			"missing credential":  `{"credentialStatus":{"type":"BitstringStatusListEntry","statusListIndex":"1"}}`,
			"negative index":      `{"credentialStatus":{"type":"BitstringStatusListEntry","statusListIndex":-1,"statusListCredential":"u"}}`,
			"fractional index":    `{"credentialStatus":{"type":"BitstringStatusListEntry","statusListIndex":1.5,"statusListCredential":"u"}}`,
			"non-numeric index":   `{"credentialStatus":{"type":"BitstringStatusListEntry","statusListIndex":"one","statusListCredential":"u"}}`,
			"missing index":       `{"credentialStatus":{"type":"RevocationList2020Status","revocationListCredential":"u"}}`,
			"size of wrong shape": `{"credentialStatus":{"type":"BitstringStatusListEntry","statusListIndex":"1","statusSize":true,"statusListCredential":"u"}}`,
		}

		for name, body := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := W3CEntries(parse(t, body))
				require.Error(t, err)
				require.False(t, errors.Is(err, ErrNoStatus))
			})
		}
	})
}

func TestIETFStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e, err := IETFStatus(parse(t, `{"status":{"status_list":{"idx":0,"uri":"https://example.com/statuslists/1"}}}`))
		require.NoError(t, err)
		require.Equal(t, &IETFEntry{URI: "https://example.com/statuslists/1", Index: 0}, e)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := IETFStatus(parse(t, `{"iss":"x"}`))
		require.True(t, errors.Is(err, ErrNoStatus))

		_, err = IETFStatus(parse(t, `{"status":{"other":{}}}`))
		require.True(t, errors.Is(err, ErrNoStatus))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := IETFStatus(parse(t, `{"status":{"status_list":{"idx":0}}}`))
		require.Error(t, err)

		_, err = IETFStatus(parse(t, `{"status":{"status_list":{"uri":"u","idx":"x"}}}`))
		require.Error(t, err)
	})
}
