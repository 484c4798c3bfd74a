/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mdoctest builds signed ISO mdoc structures for tests.
package mdoctest

import (
	"crypto/rand"
	"crypto/sha256"
	"sort"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"

	"github.com/openvc/vcverifier/pkg/internal/jwttest"
)

// Defaults used when a Document leaves them empty.
const (
	DocType   = "org.iso.18013.5.1.mDL"
	Namespace = "org.iso.18013.5.1"
)

const (
	tagEncodedCBOR = 24
	labelKeyID     = int64(4)
	labelX5Chain   = int64(33)
)

// Document describes the mdoc to build.
type Document struct {
	DocType    string
	Namespace  string
	Claims     map[string]interface{}
	ValidFrom  time.Time
	ValidUntil time.Time
	// Status is signed into the MSO when set.
	Status interface{}
	// KeyID is put in the unprotected kid header when set.
	KeyID string
	// OmitX5Chain leaves the signer certificate out of issuerAuth.
	OmitX5Chain bool
	// Tamper names an element whose value is changed after its digest is computed.
	Tamper string
}

// IssuerSigned returns the CBOR encoding of an IssuerSigned structure signed by s.
func IssuerSigned(t *testing.T, s *jwttest.Signer, doc Document) []byte {
	t.Helper()

	b, err := cbor.Marshal(issuerSigned(t, s, &doc))
	require.NoError(t, err)

	return b
}

// DeviceResponse returns the CBOR encoding of a DeviceResponse holding docs.
func DeviceResponse(t *testing.T, s *jwttest.Signer, docs ...Document) []byte {
	t.Helper()

	documents := make([]interface{}, 0, len(docs))

	for i := range docs {
		is := issuerSigned(t, s, &docs[i])

		documents = append(documents, map[string]interface{}{
			"docType":      docs[i].DocType,
			"issuerSigned": is,
		})
	}

	b, err := cbor.Marshal(map[string]interface{}{
		"version":   "1.0",
		"documents": documents,
		"status":    0,
	})
	require.NoError(t, err)

	return b
}

func issuerSigned(t *testing.T, s *jwttest.Signer, doc *Document) map[string]interface{} {
	t.Helper()

	if doc.DocType == "" {
		doc.DocType = DocType
	}

	if doc.Namespace == "" {
		doc.Namespace = Namespace
	}

	if doc.ValidFrom.IsZero() {
		doc.ValidFrom = time.Now().Add(-time.Hour)
	}

	if doc.ValidUntil.IsZero() {
		doc.ValidUntil = time.Now().Add(24 * time.Hour)
	}

	names := make([]string, 0, len(doc.Claims))
	for name := range doc.Claims {
		names = append(names, name)
	}

	sort.Strings(names)

	items := make([]cbor.RawMessage, 0, len(names))
	digests := map[uint64][]byte{}

	for i, name := range names {
		digestID := uint64(i)
		tagged := encodeItem(t, digestID, name, doc.Claims[name])

		sum := sha256.Sum256(tagged)
		digests[digestID] = sum[:]

		if name == doc.Tamper {
			tagged = encodeItem(t, digestID, name, "tampered")
		}

		items = append(items, tagged)
	}

	mso := map[string]interface{}{
		"version":         "1.0",
		"digestAlgorithm": "SHA-256",
		"docType":         doc.DocType,
		"valueDigests":    map[string]interface{}{doc.Namespace: digests},
		"validityInfo": map[string]interface{}{
			"signed":     timeTag(doc.ValidFrom),
			"validFrom":  timeTag(doc.ValidFrom),
			"validUntil": timeTag(doc.ValidUntil),
		},
	}

	if doc.Status != nil {
		mso["status"] = doc.Status
	}

	msoBytes, err := cbor.Marshal(mso)
	require.NoError(t, err)

	payload, err := cbor.Marshal(cbor.Tag{Number: tagEncodedCBOR, Content: msoBytes})
	require.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES256, s.Key)
	require.NoError(t, err)

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload

	if !doc.OmitX5Chain {
		msg.Headers.Unprotected[labelX5Chain] = s.Cert.Raw
	}

	if doc.KeyID != "" {
		msg.Headers.Unprotected[labelKeyID] = []byte(doc.KeyID)
	}

	require.NoError(t, msg.Sign(rand.Reader, nil, signer))

	issuerAuth, err := msg.MarshalCBOR()
	require.NoError(t, err)

	return map[string]interface{}{
		"nameSpaces": map[string]interface{}{doc.Namespace: items},
		"issuerAuth": cbor.RawMessage(issuerAuth),
	}
}

func encodeItem(t *testing.T, digestID uint64, name string, value interface{}) []byte {
	t.Helper()

	item, err := cbor.Marshal(map[string]interface{}{
		"digestID":          digestID,
		"random":            []byte("0123456789abcdef"),
		"elementIdentifier": name,
		"elementValue":      value,
	})
	require.NoError(t, err)

	tagged, err := cbor.Marshal(cbor.Tag{Number: tagEncodedCBOR, Content: item})
	require.NoError(t, err)

	return tagged
}

func timeTag(ts time.Time) cbor.Tag {
	return cbor.Tag{Number: 0, Content: ts.UTC().Truncate(time.Second).Format(time.RFC3339)}
}
