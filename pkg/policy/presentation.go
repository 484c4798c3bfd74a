/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

type holderBindingPolicy struct {
	base
	presentationOnly
}

func newHolderBindingPolicy(id string) *holderBindingPolicy {
	return &holderBindingPolicy{
		base: base{id: id, description: "Checks that the presenter is the subject of every credential."},
	}
}

func (p *holderBindingPolicy) Verify(_ context.Context, _ *credential.Credential) Result {
	return p.verifyCredential(p)
}

func (p *holderBindingPolicy) VerifyPresentation(_ context.Context, vp *credential.Presentation) Result {
	holder := vp.Holder()
	if holder == "" {
		return Failed(p, verificationErrorf("presentation has no holder"), nil)
	}

	var mismatches []string

	for i, cred := range vp.Credentials() {
		if subject := cred.Subject(); subject != holder {
			mismatches = append(mismatches, fmt.Sprintf("credential %d (%s) has subject %q", i, cred.TypeKey(), subject))
		}
	}

	payload := map[string]interface{}{"holder": holder}

	if len(mismatches) > 0 {
		payload["mismatches"] = mismatches

		return Failed(p, verificationErrorf("holder %s is not the subject of: %s", holder,
			strings.Join(mismatches, "; ")), payload)
	}

	return Succeeded(p, payload)
}

type countPolicy struct {
	base
	presentationOnly
	limit   int
	minimum bool
}

func newCountPolicy(id string, args []byte, minimum bool) (*countPolicy, error) {
	var n int
	if err := json.Unmarshal(args, &n); err != nil {
		return nil, fmt.Errorf("expected an integer: %w", err)
	}

	if n < 0 {
		return nil, fmt.Errorf("negative credential count %d", n)
	}

	desc := "Checks that the presentation holds at most n credentials."
	if minimum {
		desc = "Checks that the presentation holds at least n credentials."
	}

	return &countPolicy{
		base:    base{id: id, description: desc, args: n},
		limit:   n,
		minimum: minimum,
	}, nil
}

func (p *countPolicy) Verify(_ context.Context, _ *credential.Credential) Result {
	return p.verifyCredential(p)
}

func (p *countPolicy) VerifyPresentation(_ context.Context, vp *credential.Presentation) Result {
	count := len(vp.Credentials())

	var err error

	switch {
	case p.minimum && count < p.limit:
		err = verificationErrorf("presentation holds %d credentials, at least %d required", count, p.limit)
	case !p.minimum && count > p.limit:
		err = verificationErrorf("presentation holds %d credentials, at most %d allowed", count, p.limit)
	}

	payload := map[string]interface{}{"total": count}
	if p.minimum {
		payload["minimum"] = p.limit
	} else {
		payload["maximum"] = p.limit
	}

	return fromError(p, err, payload)
}
