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

	"github.com/mitchellh/mapstructure"

	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/doc/status"
	"github.com/openvc/vcverifier/pkg/doc/status/entry"
	"github.com/openvc/vcverifier/pkg/doc/status/validator"
)

// Status attribute discriminators.
const (
	DiscriminatorW3C     = "w3c"
	DiscriminatorW3CList = "w3c-list"
	DiscriminatorIETF    = "ietf"
)

// StatusAttribute is the argument of the credential-status policy.
type StatusAttribute struct {
	Discriminator string `json:"discriminator"`
	// Value is the status the entry must hold.
	Value *uint64 `json:"value,omitempty"`
	// Purpose defaults to revocation.
	Purpose string `json:"purpose,omitempty"`
	// Type restricts the W3C list type. Any W3C type matches when empty.
	Type string             `json:"type,omitempty"`
	List []StatusAttribute `json:"list,omitempty"`
}

type statusPolicy struct {
	base
	attr StatusAttribute
	w3c  W3CStatusValidator
	ietf IETFStatusValidator
}

func newStatusPolicy(id string, args []byte, deps Deps) (*statusPolicy, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(args, &raw); err != nil {
		return nil, err
	}

	var attr StatusAttribute

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &attr,
	})
	if err != nil {
		return nil, err
	}

	if err = dec.Decode(raw); err != nil {
		return nil, err
	}

	if err = checkAttribute(&attr, true); err != nil {
		return nil, err
	}

	return &statusPolicy{
		base: base{id: id, description: "Checks the credential status in its status list.", args: attr},
		attr: attr,
		w3c:  deps.W3CStatus,
		ietf: deps.IETFStatus,
	}, nil
}

// checkAttribute validates attr and fills in defaults.
func checkAttribute(attr *StatusAttribute, top bool) error {
	switch attr.Discriminator {
	case DiscriminatorW3C:
		if attr.Value == nil {
			return errors.New("w3c: value is required")
		}

		if attr.Purpose == "" {
			attr.Purpose = status.PurposeRevocation
		}

		if attr.Type != "" {
			t, err := status.ParseListType(attr.Type)
			if err != nil {
				return fmt.Errorf("w3c: %w", err)
			}

			if !t.IsW3C() {
				return fmt.Errorf("w3c: %s is not a W3C status list type", t)
			}

			attr.Type = string(t)
		}
	case DiscriminatorW3CList:
		if !top {
			return errors.New("w3c-list cannot be nested")
		}

		if len(attr.List) == 0 {
			return errors.New("w3c-list: list is required")
		}

		for i := range attr.List {
			if attr.List[i].Discriminator == "" {
				attr.List[i].Discriminator = DiscriminatorW3C
			}

			if attr.List[i].Discriminator != DiscriminatorW3C {
				return fmt.Errorf("w3c-list: list[%d] must be a w3c attribute", i)
			}

			if err := checkAttribute(&attr.List[i], false); err != nil {
				return fmt.Errorf("w3c-list: list[%d]: %w", i, err)
			}
		}
	case DiscriminatorIETF:
		if attr.Value == nil {
			return errors.New("ietf: value is required")
		}
	default:
		return fmt.Errorf("unknown discriminator %q", attr.Discriminator)
	}

	return nil
}

func (p *statusPolicy) Verify(ctx context.Context, cred *credential.Credential) Result {
	switch p.attr.Discriminator {
	case DiscriminatorW3C:
		if p.w3c == nil {
			return Failed(p, &ConfigurationError{Policy: p.id, Message: "no W3C status validator configured"}, nil)
		}

		payload, err := p.checkW3C(ctx, cred, p.attr)

		return fromError(p, err, payload)
	case DiscriminatorW3CList:
		if p.w3c == nil {
			return Failed(p, &ConfigurationError{Policy: p.id, Message: "no W3C status validator configured"}, nil)
		}

		checked := make([]interface{}, 0, len(p.attr.List))

		for _, attr := range p.attr.List {
			payload, err := p.checkW3C(ctx, cred, attr)
			if err != nil {
				return Failed(p, err, checked)
			}

			checked = append(checked, payload)
		}

		return Succeeded(p, checked)
	default:
		if p.ietf == nil {
			return Failed(p, &ConfigurationError{Policy: p.id, Message: "no IETF status validator configured"}, nil)
		}

		return p.checkIETF(ctx, cred)
	}
}

// checkW3C validates the credential entry matching the purpose and type of attr. A credential
// without such an entry fails.
func (p *statusPolicy) checkW3C(ctx context.Context, cred *credential.Credential,
	attr StatusAttribute) (map[string]interface{}, error) {
	payload := map[string]interface{}{"purpose": attr.Purpose, "expected": *attr.Value}

	entries, err := entry.W3CEntries(cred.CredentialData())
	if err != nil {
		if errors.Is(err, entry.ErrNoStatus) {
			return payload, &VerificationError{Err: err}
		}

		return payload, &ParsingError{Message: "credentialStatus", Err: err}
	}

	var selected *entry.W3CEntry

	for i := range entries {
		e := entries[i]
		if e.Purpose == attr.Purpose && (attr.Type == "" || string(e.Type) == attr.Type) {
			selected = &e

			break
		}
	}

	if selected == nil {
		return payload, verificationErrorf("credential has no status entry with purpose %s", attr.Purpose)
	}

	payload["uri"] = selected.URI
	payload["index"] = selected.Index
	payload["type"] = selected.Type

	listType := selected.Type
	if attr.Type != "" {
		listType = status.ListType(attr.Type)
	}

	err = p.w3c.Validate(ctx, *selected, validator.W3CAttribute{
		Value:   *attr.Value,
		Purpose: attr.Purpose,
		Type:    listType,
	})

	return payload, statusFailure(err)
}

func (p *statusPolicy) checkIETF(ctx context.Context, cred *credential.Credential) Result {
	payload := map[string]interface{}{"expected": *p.attr.Value}

	e, err := entry.IETFStatus(cred.Payload())
	if err != nil {
		if errors.Is(err, entry.ErrNoStatus) {
			return Failed(p, &VerificationError{Err: err}, payload)
		}

		return Failed(p, &ParsingError{Message: "status", Err: err}, payload)
	}

	payload["uri"] = e.URI
	payload["index"] = e.Index

	err = p.ietf.Validate(ctx, *e, validator.IETFAttribute{Value: *p.attr.Value})

	return fromError(p, statusFailure(err), payload)
}

// statusFailure maps status validator errors to policy error kinds, keeping their messages.
func statusFailure(err error) error {
	if err == nil {
		return nil
	}

	var retrErr *validator.RetrievalError
	if errors.As(err, &retrErr) {
		return &RetrievalError{Err: err}
	}

	return &VerificationError{Err: err}
}
