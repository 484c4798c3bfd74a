/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/openvc/vcverifier/pkg/crypto/verifier"
	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
	"github.com/openvc/vcverifier/pkg/doc/trustlist"
)

type trustListArgs struct {
	// TrustList is a trust list JWT or the URL to download it from.
	TrustList string `json:"trust_list"`
}

type trustListPolicy struct {
	base
	ref       string
	fetcher   fetcher.Fetcher
	signature trustlist.SignatureVerifier
	now       func() time.Time
	// list is set when the trust list was given inline.
	list *trustlist.TrustList
}

func newTrustListPolicy(id string, args []byte, deps Deps) (*trustListPolicy, error) {
	var a trustListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	a.TrustList = strings.TrimSpace(a.TrustList)
	if a.TrustList == "" {
		return nil, errors.New("trust_list is required")
	}

	p := &trustListPolicy{
		base:    base{id: id, description: "Checks that the issuer certificate chains to a trust list certificate.", args: a},
		ref:       a.TrustList,
		fetcher:   deps.TrustLists,
		signature: deps.TrustListSignature,
		now:       deps.Now,
	}

	if p.now == nil {
		p.now = time.Now
	}

	if !trustlist.IsURL(a.TrustList) {
		tl, err := trustlist.Parse(a.TrustList)
		if err != nil {
			return nil, err
		}

		p.list = tl
	}

	return p, nil
}

func (p *trustListPolicy) Verify(ctx context.Context, cred *credential.Credential) Result {
	header, err := issuerHeader(cred)
	if err != nil {
		return Failed(p, err, nil)
	}

	tl := p.list
	if tl == nil {
		if p.fetcher == nil || p.signature == nil {
			return Failed(p, &ConfigurationError{
				Policy:  p.id,
				Message: "no trust list fetcher or signature verifier configured",
			}, nil)
		}

		tl, err = trustlist.Load(ctx, p.fetcher, p.signature, p.ref)
		if err != nil {
			return Failed(p, trustListFailure(err), nil)
		}
	}

	payload := map[string]interface{}{"scheme_operator": tl.SchemeInfo.SchemeOperatorName}

	chains, err := header.Chains(x509.VerifyOptions{
		Roots:       tl.CertPool(),
		CurrentTime: p.now(),
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return Failed(p, &VerificationError{Message: "issuer certificate is not anchored in the trust list", Err: err},
			payload)
	}

	payload["certificate_subject"] = chains[0][0].Subject.String()
	payload["anchor_subject"] = chains[0][len(chains[0])-1].Subject.String()

	return Succeeded(p, payload)
}

func trustListFailure(err error) error {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return &RetrievalError{Message: "trust list", Err: err}
	}

	var sigErr *verifier.SignatureError
	if errors.As(err, &sigErr) {
		return &VerificationError{Message: "trust list signature", Err: err}
	}

	return &ParsingError{Message: "trust list", Err: err}
}

// issuerHeader returns the signature header that carries the issuer certificate chain.
func issuerHeader(cred *credential.Credential) (verifier.Header, error) {
	if doc := cred.MDoc(); doc != nil {
		if len(doc.Certificates) == 0 {
			return verifier.Header{}, verificationErrorf("mdoc issuerAuth has no x5chain")
		}

		return verifier.Header{Certificates: doc.Certificates}, nil
	}

	if cred.JWS() == "" {
		return verifier.Header{}, verificationErrorf("%s credentials carry no issuer certificate", cred.Format())
	}

	header, err := verifier.JWSHeader(cred.JWS())
	if err != nil {
		return verifier.Header{}, &ParsingError{Message: "JWS header", Err: err}
	}

	return header, nil
}
