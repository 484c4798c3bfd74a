/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwttest signs JWTs and builds keys for tests.
package jwttest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"
)

// Signer signs test tokens with an ES256 key.
type Signer struct {
	Key   *ecdsa.PrivateKey
	KeyID string
	Cert  *x509.Certificate
}

// NewSigner generates a P-256 key and a self-signed certificate for it.
func NewSigner(t *testing.T, keyID string) *Signer {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "test issuer " + keyID},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,

		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Signer{Key: key, KeyID: keyID, Cert: cert}
}

// JWK returns the public JWK of the signer.
func (s *Signer) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{Key: &s.Key.PublicKey, KeyID: s.KeyID, Algorithm: string(jose.ES256), Use: "sig"}
}

// Option adds protected headers to a token.
type Option func(*jose.SignerOptions)

// WithType sets the typ header.
func WithType(typ string) Option {
	return func(o *jose.SignerOptions) {
		o.WithType(jose.ContentType(typ))
	}
}

// WithX5C embeds the signer certificate in the x5c header.
func WithX5C(cert *x509.Certificate) Option {
	return func(o *jose.SignerOptions) {
		o.WithHeader("x5c", []string{base64.StdEncoding.EncodeToString(cert.Raw)})
	}
}

// WithHeader sets an arbitrary protected header.
func WithHeader(k string, v interface{}) Option {
	return func(o *jose.SignerOptions) {
		o.WithHeader(jose.HeaderKey(k), v)
	}
}

// Sign returns the compact serialization of claims.
func (s *Signer) Sign(t *testing.T, claims interface{}, opts ...Option) string {
	t.Helper()

	so := &jose.SignerOptions{}
	if s.KeyID != "" {
		so.WithHeader("kid", s.KeyID)
	}

	for _, opt := range opts {
		opt(so)
	}

	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: s.Key}, so)
	require.NoError(t, err)

	token, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	require.NoError(t, err)

	return token
}
