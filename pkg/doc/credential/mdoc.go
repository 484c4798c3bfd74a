/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	tagEncodedCBOR = 24
	// tagCOSESign1 is the CBOR tag of a COSE_Sign1 message; 0xd2 is its one byte encoding.
	tagCOSESign1     = 18
	tagCOSESign1Byte = 0xd2

	// COSE header labels.
	headerAlgorithm = int64(1)
	headerKeyID     = int64(4)
	headerX5Chain   = int64(33)
)

var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		panic(err)
	}

	return dm
}()

// IssuerSignedItem is one mdoc data element with the exact bytes its digest is computed over.
type IssuerSignedItem struct {
	DigestID          uint64
	ElementIdentifier string
	ElementValue      interface{}
	// TaggedBytes is the #6.24(bstr) encoding of the item.
	TaggedBytes []byte
}

// ValidityInfo is the validity period signed into the MSO.
type ValidityInfo struct {
	Signed     time.Time `cbor:"signed"`
	ValidFrom  time.Time `cbor:"validFrom"`
	ValidUntil time.Time `cbor:"validUntil"`
}

// MobileSecurityObject is the issuer signed payload of an mdoc.
type MobileSecurityObject struct {
	Version         string                       `cbor:"version"`
	DigestAlgorithm string                       `cbor:"digestAlgorithm"`
	DocType         string                       `cbor:"docType"`
	ValueDigests    map[string]map[uint64][]byte `cbor:"valueDigests"`
	ValidityInfo    ValidityInfo                 `cbor:"validityInfo"`
	Status          cbor.RawMessage              `cbor:"status,omitempty"`
}

// MDoc holds the parts of an ISO mdoc needed for verification.
type MDoc struct {
	DocType    string
	NameSpaces map[string][]IssuerSignedItem
	// IssuerAuth is the tagged COSE_Sign1 issuerAuth message.
	IssuerAuth []byte
	MSO        *MobileSecurityObject
	// Certificates is the x5chain of issuerAuth, leaf first.
	Certificates []*x509.Certificate
	// KeyID is the kid header of issuerAuth, when present.
	KeyID string
}

type deviceResponse struct {
	Documents []struct {
		DocType      string          `cbor:"docType"`
		IssuerSigned cbor.RawMessage `cbor:"issuerSigned"`
	} `cbor:"documents"`
}

type issuerSigned struct {
	NameSpaces map[string][]cbor.RawMessage `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage              `cbor:"issuerAuth"`
}

type issuerSignedItem struct {
	DigestID          uint64      `cbor:"digestID"`
	Random            []byte      `cbor:"random"`
	ElementIdentifier string      `cbor:"elementIdentifier"`
	ElementValue      interface{} `cbor:"elementValue"`
}

// coseSign1 is the untagged COSE_Sign1 array.
type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[interface{}]interface{}
	Payload     []byte
	Signature   []byte
}

// DecodeBinary decodes hex, base64url or base64 text.
func DecodeBinary(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}

	if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return b, nil
	}

	return base64.StdEncoding.DecodeString(s)
}

func parseMDoc(s string) (*Credential, error) {
	data, err := DecodeBinary(s)
	if err != nil {
		return nil, fmt.Errorf("decode mdoc: %w", err)
	}

	docs, err := ParseMDocs(data)
	if err != nil {
		return nil, err
	}

	return docs[0], nil
}

// ParseMDocs parses a DeviceResponse, returning one credential per document, or a single
// IssuerSigned structure.
func ParseMDocs(data []byte) ([]*Credential, error) {
	var resp deviceResponse
	if err := cborDecMode.Unmarshal(data, &resp); err == nil && len(resp.Documents) > 0 {
		creds := make([]*Credential, 0, len(resp.Documents))

		for i, d := range resp.Documents {
			cred, err := parseIssuerSigned(d.IssuerSigned, d.DocType)
			if err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}

			creds = append(creds, cred)
		}

		return creds, nil
	}

	cred, err := parseIssuerSigned(data, "")
	if err != nil {
		return nil, err
	}

	return []*Credential{cred}, nil
}

func parseIssuerSigned(data []byte, docType string) (*Credential, error) {
	var is issuerSigned
	if err := cborDecMode.Unmarshal(data, &is); err != nil {
		return nil, fmt.Errorf("decode IssuerSigned: %w", err)
	}

	if len(is.IssuerAuth) == 0 {
		return nil, errors.New("decode IssuerSigned: missing issuerAuth")
	}

	doc := &MDoc{DocType: docType, NameSpaces: map[string][]IssuerSignedItem{}}

	for ns, items := range is.NameSpaces {
		for i, raw := range items {
			item, err := parseIssuerSignedItem(raw)
			if err != nil {
				return nil, fmt.Errorf("namespace %s item %d: %w", ns, i, err)
			}

			doc.NameSpaces[ns] = append(doc.NameSpaces[ns], *item)
		}
	}

	if err := doc.parseIssuerAuth(is.IssuerAuth); err != nil {
		return nil, err
	}

	if doc.DocType == "" {
		doc.DocType = doc.MSO.DocType
	}

	payload, err := doc.view()
	if err != nil {
		return nil, err
	}

	header := map[string]interface{}{}
	if doc.KeyID != "" {
		header["kid"] = doc.KeyID
	}

	cred, err := newCredential(FormatMsoMdoc, base64.RawURLEncoding.EncodeToString(data), header, payload)
	if err != nil {
		return nil, err
	}

	cred.mdoc = doc

	return cred, nil
}

func parseIssuerSignedItem(raw cbor.RawMessage) (*IssuerSignedItem, error) {
	var tag cbor.RawTag
	if err := cborDecMode.Unmarshal(raw, &tag); err != nil || tag.Number != tagEncodedCBOR {
		return nil, errors.New("IssuerSignedItemBytes is not tag 24")
	}

	var inner []byte
	if err := cborDecMode.Unmarshal(tag.Content, &inner); err != nil {
		return nil, fmt.Errorf("unwrap tag 24: %w", err)
	}

	var item issuerSignedItem
	if err := cborDecMode.Unmarshal(inner, &item); err != nil {
		return nil, fmt.Errorf("decode IssuerSignedItem: %w", err)
	}

	return &IssuerSignedItem{
		DigestID:          item.DigestID,
		ElementIdentifier: item.ElementIdentifier,
		ElementValue:      jsonValue(item.ElementValue),
		TaggedBytes:       raw,
	}, nil
}

func (d *MDoc) parseIssuerAuth(raw cbor.RawMessage) error {
	tagged := []byte(raw)
	if len(tagged) > 0 && tagged[0] != tagCOSESign1Byte {
		tagged = append([]byte{tagCOSESign1Byte}, raw...)
	}

	var tag cbor.RawTag
	if err := cborDecMode.Unmarshal(tagged, &tag); err != nil || tag.Number != tagCOSESign1 {
		return errors.New("decode issuerAuth: not a COSE_Sign1")
	}

	var msg coseSign1
	if err := cborDecMode.Unmarshal(tag.Content, &msg); err != nil {
		return fmt.Errorf("decode issuerAuth: %w", err)
	}

	d.IssuerAuth = tagged

	protected := map[interface{}]interface{}{}
	if len(msg.Protected) > 0 {
		if err := cborDecMode.Unmarshal(msg.Protected, &protected); err != nil {
			return fmt.Errorf("decode issuerAuth protected header: %w", err)
		}
	}

	certs, err := x5chain(protected, msg.Unprotected)
	if err != nil {
		return err
	}

	d.Certificates = certs

	if kid, ok := headerValue(protected, msg.Unprotected, headerKeyID).([]byte); ok {
		d.KeyID = string(kid)
	}

	msoBytes := msg.Payload

	var payloadTag cbor.RawTag
	if err = cborDecMode.Unmarshal(msg.Payload, &payloadTag); err == nil && payloadTag.Number == tagEncodedCBOR {
		if err = cborDecMode.Unmarshal(payloadTag.Content, &msoBytes); err != nil {
			return fmt.Errorf("decode MSO bytes: %w", err)
		}
	}

	var mso MobileSecurityObject
	if err = cborDecMode.Unmarshal(msoBytes, &mso); err != nil {
		return fmt.Errorf("decode MSO: %w", err)
	}

	d.MSO = &mso

	return nil
}

func headerValue(protected, unprotected map[interface{}]interface{}, label int64) interface{} {
	if v, ok := protected[label]; ok {
		return v
	}

	return unprotected[label]
}

func x5chain(protected, unprotected map[interface{}]interface{}) ([]*x509.Certificate, error) {
	var ders [][]byte

	switch v := headerValue(protected, unprotected, headerX5Chain).(type) {
	case nil:
		return nil, nil
	case []byte:
		ders = [][]byte{v}
	case []interface{}:
		for _, item := range v {
			der, ok := item.([]byte)
			if !ok {
				return nil, errors.New("decode x5chain: element is not a byte string")
			}

			ders = append(ders, der)
		}
	default:
		return nil, fmt.Errorf("decode x5chain: unexpected %T", v)
	}

	certs := make([]*x509.Certificate, 0, len(ders))

	for _, der := range ders {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("decode x5chain: %w", err)
		}

		certs = append(certs, cert)
	}

	return certs, nil
}

// view builds the claims map exposed through Credential.Payload. Values are normalized to what
// encoding/json decodes, so numbers are float64.
func (d *MDoc) view() (map[string]interface{}, error) {
	payload := map[string]interface{}{"docType": d.DocType}

	vi := d.MSO.ValidityInfo
	for k, t := range map[string]time.Time{"signed": vi.Signed, "validFrom": vi.ValidFrom, "validUntil": vi.ValidUntil} {
		if !t.IsZero() {
			payload[k] = t.UTC().Format(time.RFC3339)
		}
	}

	if len(d.MSO.Status) > 0 {
		var st interface{}
		if err := cborDecMode.Unmarshal(d.MSO.Status, &st); err != nil {
			return nil, fmt.Errorf("decode MSO status: %w", err)
		}

		payload["status"] = jsonValue(st)
	}

	for ns, items := range d.NameSpaces {
		claims := make(map[string]interface{}, len(items))

		for _, item := range items {
			claims[item.ElementIdentifier] = item.ElementValue
		}

		payload[ns] = claims
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode mdoc claims: %w", err)
	}

	normalized := map[string]interface{}{}
	if err = json.Unmarshal(b, &normalized); err != nil {
		return nil, fmt.Errorf("encode mdoc claims: %w", err)
	}

	return normalized, nil
}

// DigestMismatches returns the data elements whose digest is missing from the MSO or differs
// from it, as "namespace/element".
func (d *MDoc) DigestMismatches() ([]string, error) {
	var newHash func() hash.Hash

	switch d.MSO.DigestAlgorithm {
	case "SHA-256":
		newHash = sha256.New
	case "SHA-384":
		newHash = sha512.New384
	case "SHA-512":
		newHash = sha512.New
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", d.MSO.DigestAlgorithm)
	}

	var mismatches []string

	for ns, items := range d.NameSpaces {
		for _, item := range items {
			h := newHash()
			h.Write(item.TaggedBytes) //nolint:errcheck

			expected, ok := d.MSO.ValueDigests[ns][item.DigestID]
			if !ok || string(expected) != string(h.Sum(nil)) {
				mismatches = append(mismatches, ns+"/"+item.ElementIdentifier)
			}
		}
	}

	return mismatches, nil
}

func (d *MDoc) issuer() string {
	if len(d.Certificates) == 0 {
		return ""
	}

	return d.Certificates[0].Subject.String()
}

// jsonValue converts decoded CBOR into values encoding/json can marshal.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))

		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = jsonValue(item)
		}

		return m
	case []interface{}:
		out := make([]interface{}, len(val))

		for i, item := range val {
			out[i] = jsonValue(item)
		}

		return out
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case cbor.Tag:
		return jsonValue(val.Content)
	case []byte:
		return base64.RawURLEncoding.EncodeToString(val)
	default:
		return v
	}
}
