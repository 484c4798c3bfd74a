/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/openvc/vcverifier/pkg/doc/status/entry"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
	"github.com/openvc/vcverifier/pkg/doc/status/validator"
	"github.com/openvc/vcverifier/pkg/doc/trustlist"
)

// SignatureVerifier verifies issuer signatures.
type SignatureVerifier interface {
	VerifyJWS(ctx context.Context, compact string) ([]byte, error)
	VerifyCOSE(ctx context.Context, sign1 []byte) error
}

// W3CStatusValidator checks W3C status list entries.
type W3CStatusValidator interface {
	Validate(ctx context.Context, e entry.W3CEntry, attr validator.W3CAttribute) error
}

// IETFStatusValidator checks IETF token status list entries.
type IETFStatusValidator interface {
	Validate(ctx context.Context, e entry.IETFEntry, attr validator.IETFAttribute) error
}

// Deps are the collaborators of the built-in policies. A policy whose collaborator is nil
// fails closed.
type Deps struct {
	Signature  SignatureVerifier
	W3CStatus  W3CStatusValidator
	IETFStatus IETFStatusValidator
	// TrustLists downloads trust lists given by URL.
	TrustLists fetcher.Fetcher
	// TrustListSignature verifies downloaded trust lists. Lists given by URL are rejected when nil.
	TrustListSignature trustlist.SignatureVerifier
	// HTTPClient is used by webhook policies. http.DefaultClient when nil.
	HTTPClient *http.Client
	// Now is the clock of date policies. time.Now when nil.
	Now func() time.Time
}

// Factory builds a policy from its JSON arguments. args is nil for a bare id.
type Factory func(args []byte) (Policy, error)

// Descriptor describes a registered policy.
type Descriptor struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	ArgsRequired bool   `json:"args_required"`
	Kind         Kind   `json:"-"`
}

type registration struct {
	desc    Descriptor
	factory Factory
}

// Registry maps policy ids to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
	deps    Deps
}

// NewRegistry returns a registry holding every built-in policy.
func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	r := &Registry{entries: map[string]registration{}, deps: deps}

	for _, k := range []Kind{
		Signature, Expiration, NotBefore, AllowedIssuer, DataMatcher, JSONSchema, HolderBinding,
		MinimumCredentials, MaximumCredentials, CredentialStatus, TrustList, Webhook,
	} {
		for _, id := range builtinIDs(k) {
			desc, factory := r.builtin(k, id)
			r.Register(desc, factory)
		}
	}

	return r
}

func builtinIDs(k Kind) []string {
	if k == DataMatcher {
		return []string{RegexID, DataMatcherID}
	}

	return []string{k.String()}
}

// builtin returns the descriptor and factory of a built-in kind.
func (r *Registry) builtin(k Kind, id string) (Descriptor, Factory) {
	deps := r.deps

	switch k {
	case Signature:
		return Descriptor{ID: id, Kind: k, Description: "Checks the issuer signature of the credential."},
			simple(func() Policy { return newSignaturePolicy(id, deps) })
	case Expiration:
		return Descriptor{ID: id, Kind: k, Description: "Checks that the credential has not expired."},
			simple(func() Policy { return newExpirationPolicy(id, deps.Now) })
	case NotBefore:
		return Descriptor{ID: id, Kind: k, Description: "Checks that the credential is already valid."},
			simple(func() Policy { return newNotBeforePolicy(id, deps.Now) })
	case AllowedIssuer:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks that the issuer is in the allow list."},
			func(args []byte) (Policy, error) { return newAllowedIssuerPolicy(id, args) }
	case DataMatcher:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks that the value at a JSONPath matches a regular expression."},
			func(args []byte) (Policy, error) { return newDataMatcherPolicy(id, args) }
	case JSONSchema:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Validates the credential data against a JSON Schema."},
			func(args []byte) (Policy, error) { return newSchemaPolicy(id, args) }
	case HolderBinding:
		return Descriptor{ID: id, Kind: k,
				Description: "Checks that the presenter is the subject of every credential."},
			simple(func() Policy { return newHolderBindingPolicy(id) })
	case MinimumCredentials:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks that the presentation holds at least n credentials."},
			func(args []byte) (Policy, error) { return newCountPolicy(id, args, true) }
	case MaximumCredentials:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks that the presentation holds at most n credentials."},
			func(args []byte) (Policy, error) { return newCountPolicy(id, args, false) }
	case CredentialStatus:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks the credential status in its status list."},
			func(args []byte) (Policy, error) { return newStatusPolicy(id, args, deps) }
	case TrustList:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Checks that the issuer certificate chains to a trust list certificate."},
			func(args []byte) (Policy, error) { return newTrustListPolicy(id, args, deps) }
	case Webhook:
		return Descriptor{ID: id, Kind: k, ArgsRequired: true,
				Description: "Sends the credential to a URL that decides on it."},
			func(args []byte) (Policy, error) { return newWebhookPolicy(id, args, deps.HTTPClient) }
	default:
		panic("unhandled policy kind " + k.String())
	}
}

// simple wraps the constructor of an argument free policy. Arguments, when given, must be null.
func simple(build func() Policy) Factory {
	return func(args []byte) (Policy, error) {
		if len(args) > 0 && string(args) != "null" {
			p := build()

			return nil, &ConfigurationError{Policy: p.ID(), Message: "policy takes no arguments"}
		}

		return build(), nil
	}
}

// Register adds or replaces a policy.
func (r *Registry) Register(desc Descriptor, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[desc.ID] = registration{desc: desc, factory: factory}
}

// New builds the policy id with args. args is nil for a bare id.
func (r *Registry) New(id string, args []byte) (Policy, error) {
	r.mu.RLock()
	reg, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, UnknownPolicyError(id)
	}

	if reg.desc.ArgsRequired && (len(args) == 0 || string(args) == "null") {
		return nil, &ConfigurationError{Policy: id, Message: "missing required arguments"}
	}

	p, err := reg.factory(args)
	if err != nil {
		if KindOf(err) == KindConfiguration {
			return nil, err
		}

		return nil, &ConfigurationError{Policy: id, Message: "invalid arguments", Err: err}
	}

	return p, nil
}

// Descriptors lists the registered policies sorted by id.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.entries))

	for _, id := range sortedKeys(r.entries) {
		descs = append(descs, r.entries[id].desc)
	}

	return descs
}

// Defaults returns the policies applied when a request names none: signature, expired and
// not-before.
func (r *Registry) Defaults() List {
	list := make(List, 0, 3)

	for _, id := range []string{SignatureID, ExpiredID, NotBeforeID} {
		p, err := r.New(id, nil)
		if err != nil {
			logger.Warnf("default policy %s is not available: %s", id, err)

			continue
		}

		list = append(list, p)
	}

	return list
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}
