/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier checks JWS and COSE_Sign1 signatures of credentials against issuer keys
// obtained from a KeyResolver.
package verifier

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/veraison/go-cose"

	"github.com/openvc/vcverifier/component/log"
)

var logger = log.New("vcverifier/crypto/verifier")

// COSE header labels.
const (
	coseLabelKeyID   = int64(4)
	coseLabelX5Chain = int64(33)
)

// SignatureError reports a signature that could not be verified.
type SignatureError struct {
	Message string
	Err     error
}

func (e *SignatureError) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *SignatureError) Unwrap() error {
	return e.Err
}

// Header holds the signature headers used to find the verification key.
type Header struct {
	Algorithm string
	KeyID     string
	// Certificates is the x5chain header of a COSE message, leaf first.
	Certificates []*x509.Certificate
	// JWK is the embedded jwk header of a JWS, when present.
	JWK *jose.JSONWebKey

	// jws is the protected header of a JWS. Its x5c chain is only released once verified.
	jws *jose.Header
}

// Leaf returns the first x5chain certificate of a COSE header or nil.
func (h Header) Leaf() *x509.Certificate {
	if len(h.Certificates) == 0 {
		return nil
	}

	return h.Certificates[0]
}

// Chains verifies the x5c (JWS) or x5chain (COSE) certificates with opts and returns the
// verified chains. Unless opts names intermediates, the certificates after the leaf are used.
func (h Header) Chains(opts x509.VerifyOptions) ([][]*x509.Certificate, error) {
	if h.jws != nil {
		return h.jws.Certificates(opts)
	}

	leaf := h.Leaf()
	if leaf == nil {
		return nil, errNoChain
	}

	if opts.Intermediates == nil {
		opts.Intermediates = x509.NewCertPool()

		for _, c := range h.Certificates[1:] {
			opts.Intermediates.AddCert(c)
		}
	}

	return leaf.Verify(opts)
}

var errNoChain = errors.New("no certificate chain")

// Verifier verifies signatures with keys from a KeyResolver.
type Verifier struct {
	resolver KeyResolver
}

// New returns a Verifier using resolver.
func New(resolver KeyResolver) *Verifier {
	return &Verifier{resolver: resolver}
}

// JWSHeader decodes the protected header of a compact JWS.
func JWSHeader(compact string) (Header, error) {
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return Header{}, fmt.Errorf("decode JWS header: %w", err)
	}

	return jwsHeader(jws), nil
}

func jwsHeader(jws *jose.JSONWebSignature) Header {
	protected := jws.Signatures[0].Protected

	return Header{
		Algorithm: protected.Algorithm,
		KeyID:     protected.KeyID,
		JWK:       protected.JSONWebKey,
		jws:       &protected,
	}
}

// VerifyJWS verifies a compact JWS signed by its issuer and returns the payload. The issuer
// is the iss claim, or the vc.issuer of a JWT credential without one.
func (v *Verifier) VerifyJWS(ctx context.Context, compact string) ([]byte, error) {
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, &SignatureError{Message: "parse JWS", Err: err}
	}

	header := jwsHeader(jws)

	key, err := v.resolver.ResolveKey(ctx, payloadIssuer(jws.UnsafePayloadWithoutVerification()), header.KeyID, header)
	if err != nil {
		return nil, &SignatureError{Message: "resolve issuer key", Err: err}
	}

	payload, err := jws.Verify(key)
	if err != nil {
		return nil, &SignatureError{Message: "JWS signature verification failed", Err: err}
	}

	return payload, nil
}

func payloadIssuer(payload []byte) string {
	var claims struct {
		Iss string `json:"iss"`
		VC  struct {
			Issuer interface{} `json:"issuer"`
		} `json:"vc"`
	}

	if err := json.Unmarshal(payload, &claims); err != nil {
		logger.Debugf("JWS payload is not a JSON object: %s", err)

		return ""
	}

	if claims.Iss != "" {
		return claims.Iss
	}

	switch issuer := claims.VC.Issuer.(type) {
	case string:
		return issuer
	case map[string]interface{}:
		id, _ := issuer["id"].(string)

		return id
	default:
		return ""
	}
}

// VerifyJWSWithKey verifies a compact JWS with key and returns the payload.
func VerifyJWSWithKey(compact string, key interface{}) ([]byte, error) {
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, &SignatureError{Message: "parse JWS", Err: err}
	}

	payload, err := jws.Verify(key)
	if err != nil {
		return nil, &SignatureError{Message: "JWS signature verification failed", Err: err}
	}

	return payload, nil
}

// COSEHeader decodes the headers of a tagged COSE_Sign1 message.
func COSEHeader(sign1 []byte) (Header, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sign1); err != nil {
		return Header{}, fmt.Errorf("decode COSE_Sign1: %w", err)
	}

	return coseHeader(&msg)
}

func coseHeader(msg *cose.Sign1Message) (Header, error) {
	var header Header

	if alg, err := msg.Headers.Protected.Algorithm(); err == nil {
		header.Algorithm = alg.String()
	}

	if kid, ok := coseValue(msg.Headers, coseLabelKeyID).([]byte); ok {
		header.KeyID = string(kid)
	}

	var ders [][]byte

	switch x5 := coseValue(msg.Headers, coseLabelX5Chain).(type) {
	case nil:
	case []byte:
		ders = append(ders, x5)
	case []interface{}:
		for _, item := range x5 {
			der, ok := item.([]byte)
			if !ok {
				return Header{}, errors.New("decode x5chain: element is not a byte string")
			}

			ders = append(ders, der)
		}
	default:
		return Header{}, fmt.Errorf("decode x5chain: unexpected %T", x5)
	}

	for _, der := range ders {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return Header{}, fmt.Errorf("decode x5chain: %w", err)
		}

		header.Certificates = append(header.Certificates, cert)
	}

	return header, nil
}

// coseValue looks a label up in the protected then the unprotected header.
func coseValue(h cose.Headers, label int64) interface{} {
	for _, m := range []map[interface{}]interface{}{h.Protected, h.Unprotected} {
		for _, k := range []interface{}{label, uint64(label), int(label)} {
			if v, ok := m[k]; ok {
				return v
			}
		}
	}

	return nil
}

// VerifyCOSE verifies a tagged COSE_Sign1 message. The issuer passed to the resolver is the
// subject of the x5chain leaf certificate.
func (v *Verifier) VerifyCOSE(ctx context.Context, sign1 []byte) error {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sign1); err != nil {
		return &SignatureError{Message: "parse COSE_Sign1", Err: err}
	}

	header, err := coseHeader(&msg)
	if err != nil {
		return &SignatureError{Message: "parse COSE_Sign1", Err: err}
	}

	var issuer string
	if leaf := header.Leaf(); leaf != nil {
		issuer = leaf.Subject.String()
	}

	key, err := v.resolver.ResolveKey(ctx, issuer, header.KeyID, header)
	if err != nil {
		return &SignatureError{Message: "resolve issuer key", Err: err}
	}

	return verifyCOSEWithKey(&msg, key)
}

func verifyCOSEWithKey(msg *cose.Sign1Message, key crypto.PublicKey) error {
	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return &SignatureError{Message: "COSE_Sign1 algorithm", Err: err}
	}

	cv, err := cose.NewVerifier(alg, key)
	if err != nil {
		return &SignatureError{Message: "COSE_Sign1 verifier", Err: err}
	}

	if err = msg.Verify(nil, cv); err != nil {
		return &SignatureError{Message: "COSE_Sign1 signature verification failed", Err: err}
	}

	return nil
}
