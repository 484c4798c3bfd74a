/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"encoding/json"

	"github.com/openvc/vcverifier/pkg/policy"
)

// VerifyCredentialRequest is model for credential verification.
type VerifyCredentialRequest struct {
	// Credential is a JSON credential, or a JSON string holding a JWT, SD-JWT or hex/base64 mdoc.
	Credential json.RawMessage `json:"credential"`
	// Policies is a policy list. The default policies run when it is empty.
	Policies json.RawMessage `json:"policies,omitempty"`
}

// VerifyPresentationRequest is model for presentation verification.
type VerifyPresentationRequest struct {
	// Presentation is a JSON presentation, or a JSON string holding a JWT VP, SD-JWT or mdoc
	// DeviceResponse.
	Presentation json.RawMessage `json:"presentation"`
	// VPPolicies is the policy list checked against the presentation.
	VPPolicies json.RawMessage `json:"vp_policies,omitempty"`
	// VCPolicies is the policy list checked against every credential.
	VCPolicies json.RawMessage `json:"vc_policies,omitempty"`
	// SpecificPolicies maps a credential type to the policy list checked against credentials
	// of that type.
	SpecificPolicies json.RawMessage `json:"specific_policies,omitempty"`
}

// ListPoliciesResponse is model for the registered policies.
type ListPoliciesResponse struct {
	Policies []policy.Descriptor `json:"policies"`
}
