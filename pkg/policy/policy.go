/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package policy defines the verification policies, the registry they are built from and the
// results they produce.
//
// A policy list is parsed from JSON: an array whose elements are either a bare policy id or an
// object {"policy": id, "args": ...}. Policies are stateless once built and may be evaluated
// concurrently.
package policy

import (
	"context"
	"errors"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/credential"
)

var logger = log.New("vcverifier/policy")

// Kind enumerates the built-in policies.
type Kind int

// Built-in policy kinds.
const (
	Custom Kind = iota
	Signature
	Expiration
	NotBefore
	AllowedIssuer
	DataMatcher
	JSONSchema
	HolderBinding
	MinimumCredentials
	MaximumCredentials
	CredentialStatus
	TrustList
	Webhook
)

// Policy ids.
const (
	SignatureID          = "signature"
	ExpiredID            = "expired"
	NotBeforeID          = "not-before"
	AllowedIssuerID      = "allowed-issuer"
	RegexID              = "regex"
	DataMatcherID        = "data-matcher"
	SchemaID             = "schema"
	HolderBindingID      = "holder-binding"
	MinimumCredentialsID = "minimum-credentials"
	MaximumCredentialsID = "maximum-credentials"
	CredentialStatusID   = "credential-status"
	TrustListID          = "trust-list"
	WebhookID            = "webhook"
)

func (k Kind) String() string {
	switch k {
	case Signature:
		return SignatureID
	case Expiration:
		return ExpiredID
	case NotBefore:
		return NotBeforeID
	case AllowedIssuer:
		return AllowedIssuerID
	case DataMatcher:
		return RegexID
	case JSONSchema:
		return SchemaID
	case HolderBinding:
		return HolderBindingID
	case MinimumCredentials:
		return MinimumCredentialsID
	case MaximumCredentials:
		return MaximumCredentialsID
	case CredentialStatus:
		return CredentialStatusID
	case TrustList:
		return TrustListID
	case Webhook:
		return WebhookID
	default:
		return "custom"
	}
}

// Policy checks one property of a credential.
type Policy interface {
	ID() string
	Description() string
	// Args returns the arguments the policy was built with, nil for argument free policies.
	Args() interface{}
	// Verify never returns an error: failures are reported in the Result.
	Verify(ctx context.Context, cred *credential.Credential) Result
}

// PresentationPolicy is a policy that checks a presentation as a whole.
type PresentationPolicy interface {
	Policy
	VerifyPresentation(ctx context.Context, vp *credential.Presentation) Result
}

// Result is the outcome of one policy.
type Result struct {
	Policy      string      `json:"policy"`
	Description string      `json:"description,omitempty"`
	Success     bool        `json:"is_success"`
	Payload     interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	// Credential is the type key of the credential the result is about, set for presentations.
	Credential string `json:"credential,omitempty"`
}

// Succeeded returns a successful result of p.
func Succeeded(p Policy, payload interface{}) Result {
	return Result{Policy: p.ID(), Description: p.Description(), Success: true, Payload: payload}
}

// Failed returns a failed result of p. A nil err is reported as a generic failure.
func Failed(p Policy, err error, payload interface{}) Result {
	if err == nil {
		err = errors.New("policy failed")
	}

	logger.Debugf("policy %s failed: %s", p.ID(), err)

	return Result{
		Policy:      p.ID(),
		Description: p.Description(),
		Payload:     payload,
		Error:       err.Error(),
		ErrorKind:   KindOf(err),
	}
}

// fromError returns Failed(p, err, payload) for a non-nil err and Succeeded otherwise.
func fromError(p Policy, err error, payload interface{}) Result {
	if err != nil {
		return Failed(p, err, payload)
	}

	return Succeeded(p, payload)
}

// base holds the identity of a policy.
type base struct {
	id          string
	description string
	args        interface{}
}

func (b *base) ID() string {
	return b.id
}

func (b *base) Description() string {
	return b.description
}

func (b *base) Args() interface{} {
	return b.args
}

// presentationOnly is embedded by policies that only apply to presentations.
type presentationOnly struct{}

func (presentationOnly) verifyCredential(p Policy) Result {
	return Failed(p, &ConfigurationError{Policy: p.ID(), Message: "policy applies to presentations only"}, nil)
}
