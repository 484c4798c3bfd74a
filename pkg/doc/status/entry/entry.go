/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package entry reads the status references a credential carries.
package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/openvc/vcverifier/pkg/doc/status"
)

// Entry types of the W3C family.
const (
	BitstringStatusListEntry = "BitstringStatusListEntry"
	StatusList2021Entry      = "StatusList2021Entry"
	RevocationList2020Status = "RevocationList2020Status"
)

// ErrNoStatus is returned when a credential carries no status reference of the requested family.
var ErrNoStatus = errors.New("credential has no status entry")

// W3CEntry references one entry of a W3C status list.
type W3CEntry struct {
	URI     string
	Index   uint64
	Purpose string
	Type    status.ListType
	// Size is the statusSize declared by the entry. Zero when absent.
	Size int
}

// IETFEntry references one entry of an IETF status list token.
type IETFEntry struct {
	URI   string
	Index uint64
}

// W3CEntries returns the W3C status entries found in credential data (the "vc" object of a
// VC-JWT, or the credential itself). credentialStatus may be an object or an array of objects.
// Entries of types other than the W3C family are skipped.
func W3CEntries(data map[string]interface{}) ([]W3CEntry, error) {
	raw, ok := data["credentialStatus"]
	if !ok || raw == nil {
		return nil, ErrNoStatus
	}

	var items []interface{}

	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return nil, fmt.Errorf("credentialStatus: unexpected %T", raw)
	}

	var entries []W3CEntry

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("credentialStatus[%d]: unexpected %T", i, item)
		}

		e, ok, err := w3cEntry(obj)
		if err != nil {
			return nil, fmt.Errorf("credentialStatus[%d]: %w", i, err)
		}

		if ok {
			entries = append(entries, *e)
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoStatus
	}

	return entries, nil
}

func w3cEntry(obj map[string]interface{}) (*W3CEntry, bool, error) {
	entryType, _ := obj["type"].(string)

	switch entryType {
	case BitstringStatusListEntry, StatusList2021Entry:
		uri, err := requireString(obj, "statusListCredential")
		if err != nil {
			return nil, false, err
		}

		index, err := unsignedOf(obj, "statusListIndex")
		if err != nil {
			return nil, false, err
		}

		e := &W3CEntry{URI: uri, Index: index, Type: status.BitstringStatusList}
		if entryType == StatusList2021Entry {
			e.Type = status.StatusList2021
		}

		e.Purpose, _ = obj["statusPurpose"].(string)
		if e.Purpose == "" {
			e.Purpose = status.PurposeRevocation
		}

		if _, present := obj["statusSize"]; present {
			size, err := unsignedOf(obj, "statusSize")
			if err != nil {
				return nil, false, err
			}

			e.Size = int(size)
		}

		return e, true, nil
	case RevocationList2020Status:
		uri, err := requireString(obj, "revocationListCredential")
		if err != nil {
			return nil, false, err
		}

		index, err := unsignedOf(obj, "revocationListIndex")
		if err != nil {
			return nil, false, err
		}

		return &W3CEntry{URI: uri, Index: index, Type: status.RevocationList2020, Purpose: status.PurposeRevocation}, true, nil
	default:
		return nil, false, nil
	}
}

// IETFStatus returns the status list reference of an SD-JWT VC or JWT payload:
// {"status": {"status_list": {"idx": 0, "uri": "..."}}}.
func IETFStatus(payload map[string]interface{}) (*IETFEntry, error) {
	st, ok := payload["status"].(map[string]interface{})
	if !ok {
		return nil, ErrNoStatus
	}

	sl, ok := st["status_list"].(map[string]interface{})
	if !ok {
		return nil, ErrNoStatus
	}

	uri, err := requireString(sl, "uri")
	if err != nil {
		return nil, fmt.Errorf("status.status_list: %w", err)
	}

	idx, err := unsignedOf(sl, "idx")
	if err != nil {
		return nil, fmt.Errorf("status.status_list: %w", err)
	}

	return &IETFEntry{URI: uri, Index: idx}, nil
}

func requireString(obj map[string]interface{}, key string) (string, error) {
	s, ok := obj[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s: missing or not a string", key)
	}

	return s, nil
}

// unsignedOf accepts a JSON number or a decimal string. statusListIndex is a string in the
// W3C data model but many issuers emit a number.
func unsignedOf(obj map[string]interface{}, key string) (uint64, error) {
	switch v := obj[key].(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}

		return n, nil
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("%s: %v is not an unsigned integer", key, v)
		}

		return uint64(v), nil
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}

		return n, nil
	case nil:
		return 0, fmt.Errorf("%s: missing", key)
	default:
		return 0, fmt.Errorf("%s: unexpected %T", key, v)
	}
}
