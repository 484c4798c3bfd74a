/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package trustlist parses ETSI TS 119 602 lists of trusted entities (LoTE) serialized as JWT.
package trustlist

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
)

var logger = log.New("vcverifier/trustlist")

// ErrNoVerifier is returned when a trust list is downloaded and no signature verifier is set.
var ErrNoVerifier = errors.New("no trust list signature verifier configured")

// SignatureVerifier verifies the JWS of a downloaded trust list and returns its payload.
type SignatureVerifier interface {
	VerifyJWS(ctx context.Context, compact string) ([]byte, error)
}

// TrustList is a parsed list of trusted entities.
type TrustList struct {
	Raw string
	// Header is the protected header of the list JWS.
	Header     jose.Header
	SchemeInfo SchemeInfo
	Entities   []TrustedEntity
}

// SchemeInfo is the list metadata.
type SchemeInfo struct {
	LoTEType           string
	SchemeOperatorName string
	ListIssueDatetime  string
}

// TrustedEntity is one entity with the services it is trusted for.
type TrustedEntity struct {
	Name     string
	Services []TrustedService
}

// TrustedService is a service of an entity and the certificates that identify it.
type TrustedService struct {
	ServiceType  string
	Certificates []*x509.Certificate
}

type localizedValue struct {
	Lang  string `mapstructure:"lang"`
	Value string `mapstructure:"value"`
}

type lotePayload struct {
	ListAndSchemeInformation struct {
		LoTEType           string           `mapstructure:"LoTEType"`
		SchemeOperatorName []localizedValue `mapstructure:"SchemeOperatorName"`
		ListIssueDatetime  string           `mapstructure:"ListIssueDatetime"`
	} `mapstructure:"ListAndSchemeInformation"`
	TrustedEntitiesList []struct {
		TrustedEntityInformation struct {
			TEName []localizedValue `mapstructure:"TEName"`
		} `mapstructure:"TrustedEntityInformation"`
		TrustedEntityServices []struct {
			ServiceInformation struct {
				ServiceTypeIdentifier  string `mapstructure:"ServiceTypeIdentifier"`
				ServiceDigitalIdentity struct {
					X509Certificates []struct {
						Val string `mapstructure:"val"`
					} `mapstructure:"X509Certificates"`
				} `mapstructure:"ServiceDigitalIdentity"`
			} `mapstructure:"ServiceInformation"`
		} `mapstructure:"TrustedEntityServices"`
	} `mapstructure:"TrustedEntitiesList"`
}

// Parse parses a trust list JWT without checking its signature. Certificates that cannot
// be decoded are skipped.
func Parse(raw string) (*TrustList, error) {
	raw = strings.TrimSpace(raw)

	jws, err := jose.ParseSigned(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse trust list")
	}

	claims := map[string]interface{}{}
	if err = json.Unmarshal(jws.UnsafePayloadWithoutVerification(), &claims); err != nil {
		return nil, errors.Wrap(err, "parse trust list payload")
	}

	var payload lotePayload
	if err := mapstructure.Decode(claims, &payload); err != nil {
		return nil, errors.Wrap(err, "parse trust list payload")
	}

	lsi := payload.ListAndSchemeInformation

	tl := &TrustList{
		Raw:    raw,
		Header: jws.Signatures[0].Protected,
		SchemeInfo: SchemeInfo{
			LoTEType:           lsi.LoTEType,
			SchemeOperatorName: first(lsi.SchemeOperatorName),
			ListIssueDatetime:  lsi.ListIssueDatetime,
		},
	}

	for _, e := range payload.TrustedEntitiesList {
		entity := TrustedEntity{Name: first(e.TrustedEntityInformation.TEName)}

		for _, s := range e.TrustedEntityServices {
			si := s.ServiceInformation
			svc := TrustedService{ServiceType: si.ServiceTypeIdentifier}

			for _, c := range si.ServiceDigitalIdentity.X509Certificates {
				cert, err := parseCertificate(c.Val)
				if err != nil {
					logger.Warnf("skipping certificate of %s: %s", entity.Name, err)

					continue
				}

				svc.Certificates = append(svc.Certificates, cert)
			}

			entity.Services = append(entity.Services, svc)
		}

		tl.Entities = append(tl.Entities, entity)
	}

	return tl, nil
}

// Load parses ref when it holds a trust list JWT, otherwise it fetches the list from the URL ref.
// A downloaded list is only used once v has verified its signature.
func Load(ctx context.Context, f fetcher.Fetcher, v SignatureVerifier, ref string) (*TrustList, error) {
	ref = strings.TrimSpace(ref)

	if !IsURL(ref) {
		return Parse(ref)
	}

	if v == nil {
		return nil, ErrNoVerifier
	}

	body, err := f.Fetch(ctx, ref)
	if err != nil {
		return nil, errors.Wrap(err, "fetch trust list")
	}

	tl, err := Parse(body)
	if err != nil {
		return nil, err
	}

	if _, err = v.VerifyJWS(ctx, tl.Raw); err != nil {
		return nil, errors.Wrap(err, "verify trust list signature")
	}

	return tl, nil
}

// IsURL reports whether ref is a URL to download a trust list from.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Certificates returns the certificates of every service of every entity.
func (tl *TrustList) Certificates() []*x509.Certificate {
	var certs []*x509.Certificate

	for _, e := range tl.Entities {
		for _, s := range e.Services {
			certs = append(certs, s.Certificates...)
		}
	}

	return certs
}

// CertPool returns a pool of every listed certificate.
func (tl *TrustList) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()

	for _, c := range tl.Certificates() {
		pool.AddCert(c)
	}

	return pool
}

// Contains reports whether cert is listed, comparing the DER encoding.
func (tl *TrustList) Contains(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}

	for _, c := range tl.Certificates() {
		if bytes.Equal(c.Raw, cert.Raw) {
			return true
		}
	}

	return false
}

func parseCertificate(b64 string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		der, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(b64, "="))
		if err != nil {
			return nil, fmt.Errorf("decode certificate: %w", err)
		}
	}

	return x509.ParseCertificate(der)
}

func first(values []localizedValue) string {
	if len(values) == 0 {
		return ""
	}

	return values[0].Value
}
