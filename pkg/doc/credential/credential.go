/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential parses verifiable credentials into a format-agnostic, read-only view.
//
// Supported formats are W3C credentials secured as JWT (jwt_vc_json), W3C credentials in
// plain JSON (ldp_vc), SD-JWT VC and ISO mdoc. Claims of every format are read through the
// same accessor, Claim, using gjson path syntax.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/openvc/vcverifier/component/log"
)

var logger = log.New("vcverifier/credential")

// Format is the wire format of a credential.
type Format string

// Credential formats, named as in OpenID4VP.
const (
	FormatJWTVC   Format = "jwt_vc_json"
	FormatLDPVC   Format = "ldp_vc"
	FormatSDJWTVC Format = "vc+sd-jwt"
	FormatMsoMdoc Format = "mso_mdoc"
)

// ErrUnknownFormat is returned when raw input matches no supported format.
var ErrUnknownFormat = errors.New("unknown credential format")

const jwtParts = 3

// Credential is a parsed credential. It is immutable: maps returned by the accessors must not
// be modified.
type Credential struct {
	format  Format
	raw     string
	header  map[string]interface{}
	payload map[string]interface{}
	// payloadJSON backs Claim.
	payloadJSON []byte

	// jws is the signed compact JWS of JWT and SD-JWT credentials.
	jws   string
	sdjwt *SDJWT
	mdoc  *MDoc
}

// Parse detects the format of raw and parses it. Signatures are not checked here.
func Parse(raw []byte) (*Credential, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, fmt.Errorf("parse credential: %w", ErrUnknownFormat)
	}

	switch {
	case strings.HasPrefix(s, "{"):
		return parseJSONCredential(s)
	case strings.Contains(s, CombinedFormatSeparator):
		return parseSDJWT(s)
	case strings.Count(s, ".") == jwtParts-1:
		return parseJWTCredential(s)
	default:
		cred, err := parseMDoc(s)
		if err != nil {
			logger.Debugf("input is not an mdoc: %v", err)

			return nil, fmt.Errorf("parse credential: %w", ErrUnknownFormat)
		}

		return cred, nil
	}
}

// ParseJSON parses a credential embedded as a JSON value in a request: a string holding a
// compact serialization, or an object holding a JSON credential.
func ParseJSON(v json.RawMessage) (*Credential, error) {
	v = bytes.TrimSpace(v)

	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("parse credential: %w", err)
		}

		return Parse([]byte(s))
	}

	return Parse(v)
}

func newCredential(format Format, raw string, header, payload map[string]interface{}) (*Credential, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal credential payload: %w", err)
	}

	if header == nil {
		header = map[string]interface{}{}
	}

	return &Credential{
		format:      format,
		raw:         raw,
		header:      header,
		payload:     payload,
		payloadJSON: payloadJSON,
	}, nil
}

func parseJSONCredential(s string) (*Credential, error) {
	payload := map[string]interface{}{}

	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, fmt.Errorf("parse JSON credential: %w", err)
	}

	return newCredential(FormatLDPVC, s, nil, payload)
}

// Format returns the wire format.
func (c *Credential) Format() Format {
	return c.format
}

// Raw returns the credential as it was parsed.
func (c *Credential) Raw() string {
	return c.raw
}

// Header returns the JOSE header of JWT based credentials, or the decoded protected COSE
// header of mdoc credentials.
func (c *Credential) Header() map[string]interface{} {
	return c.header
}

// Payload returns the claims: the JWT payload, the disclosed view of an SD-JWT, the JSON
// credential, or the mdoc view {docType, validFrom, validUntil, signed, status, <namespace>: {...}}.
func (c *Credential) Payload() map[string]interface{} {
	return c.payload
}

// Claim returns the value at path in Payload. The path uses gjson syntax.
func (c *Credential) Claim(path string) (interface{}, bool) {
	r := gjson.GetBytes(c.payloadJSON, path)
	if !r.Exists() {
		return nil, false
	}

	return r.Value(), true
}

// CredentialData returns the W3C credential object: the "vc" claim of a VC-JWT, otherwise
// the payload.
func (c *Credential) CredentialData() map[string]interface{} {
	if vc, ok := c.payload["vc"].(map[string]interface{}); ok {
		return vc
	}

	return c.payload
}

// JWS returns the signed compact JWS of JWT based credentials.
func (c *Credential) JWS() string {
	return c.jws
}

// SDJWT returns the SD-JWT parts, or nil for other formats.
func (c *Credential) SDJWT() *SDJWT {
	return c.sdjwt
}

// MDoc returns the mdoc parts, or nil for other formats.
func (c *Credential) MDoc() *MDoc {
	return c.mdoc
}

// Issuer returns the issuer identifier. For mdoc it is the subject of the issuer certificate.
func (c *Credential) Issuer() string {
	if c.mdoc != nil {
		return c.mdoc.issuer()
	}

	if iss, ok := c.payload["iss"].(string); ok && iss != "" {
		return iss
	}

	return idOf(c.CredentialData()["issuer"])
}

// Subject returns the subject identifier: "sub", or the id of the (first) credentialSubject.
func (c *Credential) Subject() string {
	if sub, ok := c.payload["sub"].(string); ok && sub != "" {
		return sub
	}

	cs := c.CredentialData()["credentialSubject"]
	if list, ok := cs.([]interface{}); ok {
		if len(list) == 0 {
			return ""
		}

		cs = list[0]
	}

	return idOf(cs)
}

// Types returns the credential types: the W3C type list, the SD-JWT vct or the mdoc docType.
func (c *Credential) Types() []string {
	switch c.format {
	case FormatSDJWTVC:
		if vct, ok := c.payload["vct"].(string); ok {
			return []string{vct}
		}

		return nil
	case FormatMsoMdoc:
		return []string{c.mdoc.DocType}
	}

	switch t := c.CredentialData()["type"].(type) {
	case string:
		return []string{t}
	case []interface{}:
		var types []string

		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}

		return types
	default:
		return nil
	}
}

// TypeKey returns the type used to select type specific policies: vct, docType or the last
// W3C type.
func (c *Credential) TypeKey() string {
	types := c.Types()
	if len(types) == 0 {
		return ""
	}

	return types[len(types)-1]
}

func idOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		id, _ := t["id"].(string)

		return id
	default:
		return ""
	}
}
