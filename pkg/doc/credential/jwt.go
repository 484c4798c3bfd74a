/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// parseCompact parses a compact JWS without verifying it and returns its header and its
// JSON object payload.
func parseCompact(compact string) (map[string]interface{}, map[string]interface{}, error) {
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, nil, fmt.Errorf("parse JWS: %w", err)
	}

	payload := map[string]interface{}{}

	if err = json.Unmarshal(jws.UnsafePayloadWithoutVerification(), &payload); err != nil {
		return nil, nil, fmt.Errorf("decode JWT payload: %w", err)
	}

	return headerMap(jws.Signatures[0].Protected), payload, nil
}

// headerMap flattens a protected header. The x5c chain is left to the signature verifier.
func headerMap(h jose.Header) map[string]interface{} {
	header := make(map[string]interface{}, len(h.ExtraHeaders)+3) //nolint:gomnd

	for k, v := range h.ExtraHeaders {
		header[string(k)] = v
	}

	if h.Algorithm != "" {
		header["alg"] = h.Algorithm
	}

	if h.KeyID != "" {
		header["kid"] = h.KeyID
	}

	if h.Nonce != "" {
		header["nonce"] = h.Nonce
	}

	if h.JSONWebKey != nil {
		header["jwk"] = h.JSONWebKey
	}

	return header
}

func parseJWTCredential(compact string) (*Credential, error) {
	header, payload, err := parseCompact(compact)
	if err != nil {
		return nil, fmt.Errorf("parse JWT credential: %w", err)
	}

	cred, err := newCredential(FormatJWTVC, compact, header, payload)
	if err != nil {
		return nil, err
	}

	cred.jws = compact

	return cred, nil
}
