/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
)

// ErrKeyNotFound is returned by a KeyResolver that has no key for the request.
var ErrKeyNotFound = errors.New("issuer key not found")

// KeyResolver resolves the public key an issuer signed with.
type KeyResolver interface {
	// ResolveKey returns the key for issuer and keyID. header carries the signature headers
	// that may embed key material.
	ResolveKey(ctx context.Context, issuer, keyID string, header Header) (crypto.PublicKey, error)
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(ctx context.Context, issuer, keyID string, header Header) (crypto.PublicKey, error)

// ResolveKey calls f.
func (f KeyResolverFunc) ResolveKey(ctx context.Context, issuer, keyID string, header Header) (crypto.PublicKey, error) {
	return f(ctx, issuer, keyID, header)
}

// StaticResolver resolves keys from a fixed JWK set.
type StaticResolver struct {
	keys jose.JSONWebKeySet
}

// NewStaticResolver returns a resolver over set.
func NewStaticResolver(set jose.JSONWebKeySet) *StaticResolver {
	return &StaticResolver{keys: set}
}

// ParseJWKS parses a JWK set document into a StaticResolver.
func ParseJWKS(data []byte) (*StaticResolver, error) {
	var set jose.JSONWebKeySet

	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}

	for i, k := range set.Keys {
		if !k.Valid() || !k.IsPublic() {
			return nil, fmt.Errorf("parse JWKS: key %d is not a valid public key", i)
		}
	}

	return NewStaticResolver(set), nil
}

// ResolveKey returns the key of issuer with keyID. A key whose kid is a DID URL belongs to
// that DID only. A key with a bare kid belongs to no issuer and only verifies tokens that name
// none. Without a keyID the issuer must own exactly one key.
func (r *StaticResolver) ResolveKey(_ context.Context, issuer, keyID string, _ Header) (crypto.PublicKey, error) {
	did, frag := splitKeyID(keyID)
	if did != "" && did != issuer {
		return nil, fmt.Errorf("%w: kid %s does not belong to issuer %s", ErrKeyNotFound, keyID, issuer)
	}

	var found []jose.JSONWebKey

	for _, k := range r.keys.Keys {
		owner, id := splitKeyID(k.KeyID)
		if owner != issuer || (keyID != "" && id != frag) {
			continue
		}

		found = append(found, k)
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: no key %q for issuer %q", ErrKeyNotFound, keyID, issuer)
	case len(found) > 1 && keyID == "":
		return nil, fmt.Errorf("%w: no kid and %d keys configured for issuer %q", ErrKeyNotFound, len(found), issuer)
	default:
		return found[0].Key, nil
	}
}

// X5CResolver resolves the leaf key of a certificate chain that verifies against trusted roots.
type X5CResolver struct {
	roots *x509.CertPool
	now   func() time.Time
}

// X5COption configures an X5CResolver.
type X5COption func(*X5CResolver)

// WithClock sets the time certificates are validated at.
func WithClock(now func() time.Time) X5COption {
	return func(r *X5CResolver) {
		r.now = now
	}
}

// NewX5CResolver returns a resolver trusting chains that end in roots.
func NewX5CResolver(roots *x509.CertPool, opts ...X5COption) *X5CResolver {
	r := &X5CResolver{roots: roots, now: time.Now}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ParseRoots reads PEM encoded certificates into a pool.
func ParseRoots(data []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()

	var n int

	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse root certificate: %w", err)
		}

		pool.AddCert(cert)
		n++
	}

	if n == 0 {
		return nil, errors.New("parse root certificates: no certificate found")
	}

	return pool, nil
}

// ResolveKey verifies the chain in header and returns the leaf public key.
func (r *X5CResolver) ResolveKey(_ context.Context, _, _ string, header Header) (crypto.PublicKey, error) {
	if header.jws == nil && header.Leaf() == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, errNoChain)
	}

	chains, err := header.Chains(x509.VerifyOptions{
		Roots:       r.roots,
		CurrentTime: r.now(),
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("verify certificate chain: %w", err)
	}

	return chains[0][0].PublicKey, nil
}

// ChainResolver asks each resolver in turn and returns the first key found.
type ChainResolver struct {
	resolvers []KeyResolver
}

// NewChainResolver returns a resolver over resolvers.
func NewChainResolver(resolvers ...KeyResolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

// ResolveKey returns the first key found. When every resolver fails the errors are joined.
func (r *ChainResolver) ResolveKey(ctx context.Context, issuer, keyID string,
	header Header) (crypto.PublicKey, error) {
	var errs []error

	for _, res := range r.resolvers {
		key, err := res.ResolveKey(ctx, issuer, keyID, header)
		if err == nil {
			return key, nil
		}

		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrKeyNotFound
	}

	return nil, errors.Join(errs...)
}

// splitKeyID splits a DID URL into the DID and the fragment. A bare or '#' prefixed kid has
// no DID.
func splitKeyID(keyID string) (string, string) {
	i := strings.LastIndexByte(keyID, '#')
	if i < 0 {
		return "", keyID
	}

	return keyID[:i], keyID[i+1:]
}
