/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcverifier verifies digital credentials and presentations against configurable policies.
//
// Packages for end developer usage
//
// pkg/verifier: Runs a policy list against a credential, or the VP, VC and credential specific
// policy lists against a presentation. Policies are evaluated concurrently.
// Reference: https://pkg.go.dev/github.com/openvc/vcverifier/pkg/verifier
//
// pkg/policy: The built-in policies (signature, expired, not-before, schema, allowed-issuer,
// credential-status, webhook, trust list, presentation rules), the policy registry and the
// PolicyList JSON grammar.
// Reference: https://pkg.go.dev/github.com/openvc/vcverifier/pkg/policy
//
// pkg/doc/credential: Parses JSON, JWT, SD-JWT and mdoc credentials and presentations.
// Reference: https://pkg.go.dev/github.com/openvc/vcverifier/pkg/doc/credential
//
// pkg/doc/status: Reads W3C and IETF status lists: fetching, expansion, bit reading and the
// status validators.
// Reference: https://pkg.go.dev/github.com/openvc/vcverifier/pkg/doc/status/validator
//
// pkg/controller/rest/verifier: Provides the verification operations through a REST API.
// Reference: https://pkg.go.dev/github.com/openvc/vcverifier/pkg/controller/rest/verifier
//
// Binaries
//
// cmd/vc-verifier-rest: Starts the REST API, or verifies a single credential from the command line.
package vcverifier
