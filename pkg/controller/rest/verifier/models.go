/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"github.com/openvc/vcverifier/pkg/controller/command/verifier"
	"github.com/openvc/vcverifier/pkg/policy"
)

// verifyCredentialRequest model
//
// This is used for verifying a credential.
//
// swagger:parameters verifyCredentialReq
type verifyCredentialRequest struct { // nolint: unused,deadcode
	// in: body
	Params verifier.VerifyCredentialRequest
}

// verifyPresentationRequest model
//
// This is used for verifying a presentation.
//
// swagger:parameters verifyPresentationReq
type verifyPresentationRequest struct { // nolint: unused,deadcode
	// in: body
	Params verifier.VerifyPresentationRequest
}

// verificationResponse model
//
// The policy results of a verification, with overall_success and policies_run.
//
// swagger:response verificationRes
type verificationResponse struct { // nolint: unused,deadcode
	// in: body
	policy.Results
}

// listPoliciesResponse model
//
// The policies that can be requested.
//
// swagger:response listPoliciesRes
type listPoliciesResponse struct { // nolint: unused,deadcode
	// in: body
	verifier.ListPoliciesResponse
}
