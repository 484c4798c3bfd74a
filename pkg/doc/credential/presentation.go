/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Presentation formats.
const (
	FormatJWTVP Format = "jwt_vp_json"
	FormatLDPVP Format = "ldp_vp"
)

// Presentation is a parsed verifiable presentation and the credentials it embeds.
type Presentation struct {
	format      Format
	raw         string
	header      map[string]interface{}
	payload     map[string]interface{}
	holder      string
	jws         string
	credentials []*Credential
	envelope    *Credential
}

// ParsePresentation detects the format of raw and parses it. An SD-JWT or an mdoc
// DeviceResponse is a presentation of the credentials it carries.
func ParsePresentation(raw []byte) (*Presentation, error) {
	s := strings.TrimSpace(string(raw))

	switch {
	case strings.HasPrefix(s, "{"):
		return parseJSONPresentation(s)
	case strings.Contains(s, CombinedFormatSeparator):
		cred, err := parseSDJWT(s)
		if err != nil {
			return nil, err
		}

		return &Presentation{
			format:      FormatSDJWTVC,
			raw:         s,
			header:      cred.header,
			payload:     cred.payload,
			holder:      cnfKeyID(cred.payload),
			credentials: []*Credential{cred},
			envelope:    cred,
		}, nil
	case strings.Count(s, ".") == jwtParts-1:
		return parseJWTPresentation(s)
	case s == "":
		return nil, fmt.Errorf("parse presentation: %w", ErrUnknownFormat)
	default:
		data, err := DecodeBinary(s)
		if err != nil {
			return nil, fmt.Errorf("parse presentation: %w", ErrUnknownFormat)
		}

		creds, err := ParseMDocs(data)
		if err != nil {
			return nil, fmt.Errorf("parse presentation: %w", err)
		}

		return &Presentation{format: FormatMsoMdoc, raw: s, credentials: creds}, nil
	}
}

// ParsePresentationJSON parses a presentation embedded as a JSON value: a string or an object.
func ParsePresentationJSON(v json.RawMessage) (*Presentation, error) {
	s := strings.TrimSpace(string(v))

	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("parse presentation: %w", err)
		}
	}

	return ParsePresentation([]byte(s))
}

func parseJSONPresentation(s string) (*Presentation, error) {
	payload := map[string]interface{}{}

	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, fmt.Errorf("parse JSON presentation: %w", err)
	}

	creds, err := embeddedCredentials(payload["verifiableCredential"])
	if err != nil {
		return nil, err
	}

	envelope, err := newCredential(FormatLDPVP, s, nil, payload)
	if err != nil {
		return nil, err
	}

	return &Presentation{
		format:      FormatLDPVP,
		raw:         s,
		header:      envelope.header,
		payload:     payload,
		holder:      idOf(payload["holder"]),
		credentials: creds,
		envelope:    envelope,
	}, nil
}

func parseJWTPresentation(compact string) (*Presentation, error) {
	header, payload, err := parseCompact(compact)
	if err != nil {
		return nil, fmt.Errorf("parse JWT presentation: %w", err)
	}

	vp, ok := payload["vp"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("parse JWT presentation: missing vp claim")
	}

	creds, err := embeddedCredentials(vp["verifiableCredential"])
	if err != nil {
		return nil, err
	}

	holder, _ := payload["iss"].(string)
	if holder == "" {
		holder = idOf(vp["holder"])
	}

	envelope, err := newCredential(FormatJWTVP, compact, header, payload)
	if err != nil {
		return nil, err
	}

	envelope.jws = compact

	return &Presentation{
		format:      FormatJWTVP,
		raw:         compact,
		header:      header,
		payload:     payload,
		holder:      holder,
		jws:         compact,
		credentials: creds,
		envelope:    envelope,
	}, nil
}

func embeddedCredentials(v interface{}) ([]*Credential, error) {
	var items []interface{}

	switch t := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		items = t
	default:
		items = []interface{}{t}
	}

	creds := make([]*Credential, 0, len(items))

	for i, item := range items {
		var raw []byte

		switch t := item.(type) {
		case string:
			raw = []byte(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("verifiableCredential[%d]: %w", i, err)
			}

			raw = b
		}

		cred, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("verifiableCredential[%d]: %w", i, err)
		}

		creds = append(creds, cred)
	}

	return creds, nil
}

func cnfKeyID(payload map[string]interface{}) string {
	cnf, ok := payload[CNFKey].(map[string]interface{})
	if !ok {
		return ""
	}

	if kid, ok := cnf["kid"].(string); ok {
		return kid
	}

	if jwk, ok := cnf["jwk"].(map[string]interface{}); ok {
		kid, _ := jwk["kid"].(string)

		return kid
	}

	return ""
}

// Format returns the wire format.
func (p *Presentation) Format() Format {
	return p.format
}

// Raw returns the presentation as it was parsed.
func (p *Presentation) Raw() string {
	return p.raw
}

// Header returns the JOSE header of a JWT presentation.
func (p *Presentation) Header() map[string]interface{} {
	return p.header
}

// Payload returns the presentation claims.
func (p *Presentation) Payload() map[string]interface{} {
	return p.payload
}

// Holder returns the identifier of the presenter.
func (p *Presentation) Holder() string {
	return p.holder
}

// JWS returns the compact JWS of a JWT presentation.
func (p *Presentation) JWS() string {
	return p.jws
}

// Envelope returns the presentation itself as a credential, so credential policies can check
// its signature and validity claims. It is nil for an mdoc DeviceResponse, and the single
// credential for an SD-JWT.
func (p *Presentation) Envelope() *Credential {
	return p.envelope
}

// Credentials returns the embedded credentials.
func (p *Presentation) Credentials() []*Credential {
	return p.credentials
}
