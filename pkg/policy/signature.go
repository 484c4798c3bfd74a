/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/openvc/vcverifier/pkg/crypto/verifier"
	"github.com/openvc/vcverifier/pkg/doc/credential"
)

type signaturePolicy struct {
	base
	verifier SignatureVerifier
}

func newSignaturePolicy(id string, deps Deps) *signaturePolicy {
	return &signaturePolicy{
		base:     base{id: id, description: "Checks the issuer signature of the credential."},
		verifier: deps.Signature,
	}
}

func (p *signaturePolicy) Verify(ctx context.Context, cred *credential.Credential) Result {
	if p.verifier == nil {
		return Failed(p, &ConfigurationError{Policy: p.id, Message: "no signature verifier configured"}, nil)
	}

	switch cred.Format() {
	case credential.FormatJWTVC, credential.FormatJWTVP:
		payload, err := p.verifier.VerifyJWS(ctx, cred.JWS())
		if err != nil {
			return Failed(p, signatureFailure(err), nil)
		}

		return Succeeded(p, decodePayload(payload))
	case credential.FormatSDJWTVC:
		return p.verifySDJWT(ctx, cred)
	case credential.FormatMsoMdoc:
		return p.verifyMDoc(ctx, cred)
	default:
		return Failed(p, verificationErrorf("signature verification is not supported for %s credentials",
			cred.Format()), nil)
	}
}

func (p *signaturePolicy) verifySDJWT(ctx context.Context, cred *credential.Credential) Result {
	sd := cred.SDJWT()

	payload, err := p.verifier.VerifyJWS(ctx, sd.IssuerJWT)
	if err != nil {
		return Failed(p, signatureFailure(err), nil)
	}

	if unreferenced := sd.UnreferencedDisclosures(); len(unreferenced) > 0 {
		return Failed(p, verificationErrorf("disclosures not referenced by the issuer: %s",
			strings.Join(unreferenced, ", ")), nil)
	}

	if sd.KeyBindingJWT != "" {
		if err = verifyKeyBinding(sd); err != nil {
			return Failed(p, err, nil)
		}
	}

	return Succeeded(p, decodePayload(payload))
}

// verifyKeyBinding checks the KB-JWT against the cnf.jwk key of the issuer JWT.
func verifyKeyBinding(sd *credential.SDJWT) error {
	cnf, ok := sd.SignedPayload["cnf"].(map[string]interface{})
	if !ok {
		return verificationErrorf("key binding JWT present but issuer JWT has no cnf claim")
	}

	rawJWK, err := json.Marshal(cnf["jwk"])
	if err != nil {
		return &ParsingError{Message: "cnf.jwk", Err: err}
	}

	var holderKey jose.JSONWebKey
	if err = holderKey.UnmarshalJSON(rawJWK); err != nil {
		return &ParsingError{Message: "cnf.jwk", Err: err}
	}

	kbPayload, err := verifier.VerifyJWSWithKey(sd.KeyBindingJWT, holderKey.Key)
	if err != nil {
		return &VerificationError{Message: "key binding JWT", Err: err}
	}

	var claims struct {
		SDHash string `json:"sd_hash"`
	}

	if err = json.Unmarshal(kbPayload, &claims); err != nil {
		return &ParsingError{Message: "key binding JWT payload", Err: err}
	}

	if claims.SDHash != sd.Digest(sd.PresentedWithoutKeyBinding()) {
		return verificationErrorf("key binding JWT sd_hash does not match the presentation")
	}

	return nil
}

func (p *signaturePolicy) verifyMDoc(ctx context.Context, cred *credential.Credential) Result {
	doc := cred.MDoc()

	if err := p.verifier.VerifyCOSE(ctx, doc.IssuerAuth); err != nil {
		return Failed(p, signatureFailure(err), nil)
	}

	mismatches, err := doc.DigestMismatches()
	if err != nil {
		return Failed(p, &VerificationError{Message: "value digests", Err: err}, nil)
	}

	if len(mismatches) > 0 {
		return Failed(p, verificationErrorf("value digest mismatch for %s", strings.Join(mismatches, ", ")),
			map[string]interface{}{"mismatches": mismatches})
	}

	return Succeeded(p, map[string]interface{}{"docType": doc.DocType})
}

// signatureFailure keeps retrieval failures of the key resolver apart from bad signatures.
func signatureFailure(err error) error {
	var retrErr *RetrievalError
	if errors.As(err, &retrErr) {
		return err
	}

	var sigErr *verifier.SignatureError
	if errors.As(err, &sigErr) {
		return &VerificationError{Message: sigErr.Message, Err: sigErr.Err}
	}

	return &VerificationError{Message: "signature", Err: err}
}

func decodePayload(payload []byte) interface{} {
	var v map[string]interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Sprintf("%d bytes", len(payload))
	}

	return v
}
