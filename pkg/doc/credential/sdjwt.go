/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	// registers SHA-256, SHA-384 and SHA-512 for crypto.Hash.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// SD-JWT serialization keys.
const (
	CombinedFormatSeparator = "~"

	SDAlgorithmKey = "_sd_alg"
	SDKey          = "_sd"
	CNFKey         = "cnf"
	arrayDigestKey = "..."

	keyBindingType = "kb+jwt"
	defaultSDAlg   = "sha-256"

	objectDisclosureLen = 3
	arrayDisclosureLen  = 2
)

// Disclosure is one decoded SD-JWT disclosure.
type Disclosure struct {
	Raw    string
	Salt   string
	Name   string
	Value  interface{}
	Digest string
	// ArrayElement is set for [salt, value] disclosures.
	ArrayElement bool
}

// SDJWT holds the parts of an SD-JWT: the issuer signed JWT, the disclosures and the
// optional key binding JWT.
type SDJWT struct {
	IssuerJWT   string
	Disclosures []Disclosure
	// KeyBindingJWT is the compact KB-JWT, empty when absent.
	KeyBindingJWT string
	// SignedPayload is the issuer JWT payload before disclosures are resolved.
	SignedPayload map[string]interface{}
	// Hash is the digest algorithm named by _sd_alg.
	Hash crypto.Hash

	unreferenced []string
}

// UnreferencedDisclosures returns the disclosures whose digest appears nowhere in the signed
// payload. A verifier must reject such a presentation.
func (s *SDJWT) UnreferencedDisclosures() []string {
	return s.unreferenced
}

// PresentedWithoutKeyBinding returns the serialization the KB-JWT sd_hash is computed over:
// the issuer JWT and the disclosures, each followed by the separator.
func (s *SDJWT) PresentedWithoutKeyBinding() string {
	var sb strings.Builder

	sb.WriteString(s.IssuerJWT)
	sb.WriteString(CombinedFormatSeparator)

	for _, d := range s.Disclosures {
		sb.WriteString(d.Raw)
		sb.WriteString(CombinedFormatSeparator)
	}

	return sb.String()
}

// Digest hashes s with the _sd_alg of the SD-JWT and returns it base64url encoded.
func (s *SDJWT) Digest(v string) string {
	h := s.Hash.New()
	h.Write([]byte(v)) //nolint:errcheck

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func parseSDJWT(combined string) (*Credential, error) {
	parts := strings.Split(combined, CombinedFormatSeparator)

	header, signed, err := parseCompact(parts[0])
	if err != nil {
		return nil, fmt.Errorf("parse SD-JWT: %w", err)
	}

	sd := &SDJWT{IssuerJWT: parts[0], SignedPayload: signed}

	sd.Hash, err = sdHash(signed)
	if err != nil {
		return nil, fmt.Errorf("parse SD-JWT: %w", err)
	}

	last := len(parts) - 1

	for i, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if i+1 == last && strings.Count(part, ".") == jwtParts-1 {
			kbHeader, _, kbErr := parseCompact(part)
			if kbErr != nil {
				return nil, fmt.Errorf("parse key binding JWT: %w", kbErr)
			}

			if typ, _ := kbHeader["typ"].(string); typ != keyBindingType {
				return nil, fmt.Errorf("parse key binding JWT: unexpected typ %q", typ)
			}

			sd.KeyBindingJWT = part

			continue
		}

		d, dErr := parseDisclosure(part, sd)
		if dErr != nil {
			return nil, fmt.Errorf("parse disclosure %d: %w", i+1, dErr)
		}

		sd.Disclosures = append(sd.Disclosures, *d)
	}

	byDigest := make(map[string]*Disclosure, len(sd.Disclosures))

	for i := range sd.Disclosures {
		d := &sd.Disclosures[i]
		if _, dup := byDigest[d.Digest]; dup {
			return nil, fmt.Errorf("parse SD-JWT: disclosure %s is presented twice", d.Digest)
		}

		byDigest[d.Digest] = d
	}

	referenced := map[string]bool{}

	disclosed, err := resolveObject(signed, byDigest, referenced)
	if err != nil {
		return nil, fmt.Errorf("parse SD-JWT: %w", err)
	}

	for _, d := range sd.Disclosures {
		if !referenced[d.Digest] {
			sd.unreferenced = append(sd.unreferenced, d.Digest)
		}
	}

	cred, err := newCredential(FormatSDJWTVC, combined, header, disclosed)
	if err != nil {
		return nil, err
	}

	cred.jws = parts[0]
	cred.sdjwt = sd

	return cred, nil
}

func sdHash(payload map[string]interface{}) (crypto.Hash, error) {
	alg := defaultSDAlg
	if v, ok := payload[SDAlgorithmKey].(string); ok {
		alg = strings.ToLower(v)
	}

	switch alg {
	case "sha-256":
		return crypto.SHA256, nil
	case "sha-384":
		return crypto.SHA384, nil
	case "sha-512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("unsupported %s %q", SDAlgorithmKey, alg)
	}
}

func parseDisclosure(raw string, sd *SDJWT) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, fmt.Errorf("base64url decode: %w", err)
	}

	var arr []interface{}
	if err = json.Unmarshal(decoded, &arr); err != nil {
		return nil, fmt.Errorf("JSON decode: %w", err)
	}

	d := &Disclosure{Raw: raw, Digest: sd.Digest(raw)}

	switch len(arr) {
	case objectDisclosureLen:
		d.Salt, _ = arr[0].(string)
		d.Value = arr[2]

		name, ok := arr[1].(string)
		if !ok || name == SDKey || name == arrayDigestKey {
			return nil, fmt.Errorf("invalid claim name %v", arr[1])
		}

		d.Name = name
	case arrayDisclosureLen:
		d.Salt, _ = arr[0].(string)
		d.Value = arr[1]
		d.ArrayElement = true
	default:
		return nil, fmt.Errorf("unexpected disclosure array length: %d", len(arr))
	}

	return d, nil
}

// resolveObject returns obj with _sd digests replaced by the disclosed claims. Every digest
// found in the payload, disclosed or not, is recorded in referenced. A disclosed claim that
// already exists in obj is an error.
func resolveObject(obj map[string]interface{}, byDigest map[string]*Disclosure,
	referenced map[string]bool) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		if k == SDKey || k == SDAlgorithmKey {
			continue
		}

		resolved, err := resolveValue(v, byDigest, referenced)
		if err != nil {
			return nil, err
		}

		result[k] = resolved
	}

	digests, _ := obj[SDKey].([]interface{})

	for _, v := range digests {
		digest, ok := v.(string)
		if !ok {
			continue
		}

		referenced[digest] = true

		d, found := byDigest[digest]
		if !found || d.ArrayElement {
			continue
		}

		if _, clash := result[d.Name]; clash {
			return nil, fmt.Errorf("disclosed claim %s already exists in the payload", d.Name)
		}

		resolved, err := resolveValue(d.Value, byDigest, referenced)
		if err != nil {
			return nil, err
		}

		result[d.Name] = resolved
	}

	return result, nil
}

func resolveArray(arr []interface{}, byDigest map[string]*Disclosure,
	referenced map[string]bool) ([]interface{}, error) {
	result := make([]interface{}, 0, len(arr))

	for _, item := range arr {
		if obj, ok := item.(map[string]interface{}); ok && len(obj) == 1 {
			if digest, ok := obj[arrayDigestKey].(string); ok {
				referenced[digest] = true

				if d, found := byDigest[digest]; found && d.ArrayElement {
					resolved, err := resolveValue(d.Value, byDigest, referenced)
					if err != nil {
						return nil, err
					}

					result = append(result, resolved)
				}

				continue
			}
		}

		resolved, err := resolveValue(item, byDigest, referenced)
		if err != nil {
			return nil, err
		}

		result = append(result, resolved)
	}

	return result, nil
}

func resolveValue(v interface{}, byDigest map[string]*Disclosure,
	referenced map[string]bool) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return resolveObject(val, byDigest, referenced)
	case []interface{}:
		return resolveArray(val, byDigest, referenced)
	default:
		return v, nil
	}
}
