/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

type allowedIssuerPolicy struct {
	base
	issuers []string
}

// newAllowedIssuerPolicy accepts a single issuer or a list of issuers.
func newAllowedIssuerPolicy(id string, args []byte) (*allowedIssuerPolicy, error) {
	var v interface{}
	if err := json.Unmarshal(args, &v); err != nil {
		return nil, err
	}

	var issuers []string

	switch a := v.(type) {
	case string:
		issuers = []string{a}
	case []interface{}:
		for i, e := range a {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("issuer %d is not a string", i)
			}

			issuers = append(issuers, s)
		}
	default:
		return nil, fmt.Errorf("expected an issuer or a list of issuers, got %T", v)
	}

	if len(issuers) == 0 {
		return nil, fmt.Errorf("empty issuer list")
	}

	return &allowedIssuerPolicy{
		base:    base{id: id, description: "Checks that the issuer is in the allow list.", args: v},
		issuers: issuers,
	}, nil
}

func (p *allowedIssuerPolicy) Verify(_ context.Context, cred *credential.Credential) Result {
	issuer := cred.Issuer()
	payload := map[string]interface{}{"issuer": issuer, "allowed_issuers": p.issuers}

	if issuer == "" {
		return Failed(p, verificationErrorf("credential has no issuer"), payload)
	}

	if !slices.Contains(p.issuers, issuer) {
		return Failed(p, verificationErrorf("issuer %s is not allowed", issuer), payload)
	}

	return Succeeded(p, payload)
}
