/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"net/http"

	"github.com/openvc/vcverifier/pkg/controller/command/verifier"
	"github.com/openvc/vcverifier/pkg/controller/internal/cmdutil"
	"github.com/openvc/vcverifier/pkg/controller/rest"
)

const (
	verifyOperationID      = "/verify"
	verifyCredentialPath   = verifyOperationID + "/credential"
	verifyPresentationPath = verifyOperationID + "/presentation"
	listPoliciesPath       = "/policies"
)

// Operation contains the verification operations provided by controller REST API.
type Operation struct {
	handlers []rest.Handler
	command  *verifier.Command
}

// New returns new verification rest client instance.
func New(cmd *verifier.Command) *Operation {
	o := &Operation{command: cmd}
	o.registerHandler()

	return o
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(verifyCredentialPath, http.MethodPost, o.VerifyCredential),
		cmdutil.NewHTTPHandler(verifyPresentationPath, http.MethodPost, o.VerifyPresentation),
		cmdutil.NewHTTPHandler(listPoliciesPath, http.MethodGet, o.ListPolicies),
	}
}

// VerifyCredential swagger:route POST /verify/credential verifier verifyCredentialReq
//
// Verifies a credential against a policy list.
//
// Responses:
//    default: genericError
//        200: verificationRes
func (o *Operation) VerifyCredential(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.VerifyCredential, rw, req.Body)
}

// VerifyPresentation swagger:route POST /verify/presentation verifier verifyPresentationReq
//
// Verifies a presentation and the credentials it holds.
//
// Responses:
//    default: genericError
//        200: verificationRes
func (o *Operation) VerifyPresentation(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.VerifyPresentation, rw, req.Body)
}

// ListPolicies swagger:route GET /policies verifier listPolicies
//
// Lists the policies that can be requested.
//
// Responses:
//    default: genericError
//        200: listPoliciesRes
func (o *Operation) ListPolicies(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.ListPolicies, rw, req.Body)
}
