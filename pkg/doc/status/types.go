/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status names the status list specifications understood by the verifier.
//
// The subpackages implement the status pipeline:
// fetcher (download) -> content (parse) -> expansion (decompress) -> bitstring (read).
// validator wires them together.
package status

import (
	"fmt"

	"github.com/openvc/vcverifier/pkg/doc/status/bitstring"
)

// ListType is the declared type of a status list.
type ListType string

// Supported status list types.
const (
	BitstringStatusList ListType = "BitstringStatusList"
	StatusList2021      ListType = "StatusList2021"
	RevocationList2020  ListType = "RevocationList2020"
	TokenStatusList     ListType = "TokenStatusList"
)

// Status purposes. Purposes are open ended, these are the ones with defined meaning.
const (
	PurposeRevocation = "revocation"
	PurposeSuspension = "suspension"
	PurposeMessage    = "message"
)

// ParseListType returns the list type named by s.
//
// Status list credentials often carry the credential type ("StatusList2021Credential")
// or the legacy RevocationList2020 subject type ("RevocationList2020Status"). Both are
// mapped to the list type.
func ParseListType(s string) (ListType, error) {
	switch s {
	case string(BitstringStatusList), "BitstringStatusListCredential":
		return BitstringStatusList, nil
	case string(StatusList2021), "StatusList2021Credential":
		return StatusList2021, nil
	case string(RevocationList2020), "RevocationList2020Credential", "RevocationList2020Status":
		return RevocationList2020, nil
	case string(TokenStatusList):
		return TokenStatusList, nil
	default:
		return "", fmt.Errorf("unsupported status list type %q", s)
	}
}

// IsW3C reports whether the type belongs to the W3C family.
func (t ListType) IsW3C() bool {
	return t == BitstringStatusList || t == StatusList2021 || t == RevocationList2020
}

// BitOrder returns the bit order the specification mandates.
func (t ListType) BitOrder() (bitstring.Strategy, error) {
	switch {
	case t.IsW3C():
		return bitstring.BigEndian, nil
	case t == TokenStatusList:
		return bitstring.LittleEndian, nil
	default:
		return 0, fmt.Errorf("no bit order for status list type %q", t)
	}
}
