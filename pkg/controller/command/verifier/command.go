/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/controller/command"
	"github.com/openvc/vcverifier/pkg/controller/internal/cmdutil"
	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/internal/logutil"
	"github.com/openvc/vcverifier/pkg/policy"
	"github.com/openvc/vcverifier/pkg/verifier"
)

var logger = log.New("vcverifier/command/verifier")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Verifier)

	// InvalidCredentialErrorCode for a credential or presentation that cannot be parsed.
	InvalidCredentialErrorCode

	// InvalidPolicyErrorCode for a policy list that cannot be built.
	InvalidPolicyErrorCode

	// VerifyCredentialErrorCode for credential verification failures.
	VerifyCredentialErrorCode

	// VerifyPresentationErrorCode for presentation verification failures.
	VerifyPresentationErrorCode
)

const (
	// command name.
	CommandName = "verifier"

	// command methods.
	VerifyCredentialCommandMethod   = "VerifyCredential"
	VerifyPresentationCommandMethod = "VerifyPresentation"
	ListPoliciesCommandMethod       = "ListPolicies"

	// error messages.
	errEmptyCredential   = "credential is mandatory"
	errEmptyPresentation = "presentation is mandatory"

	// log constants.
	verificationID = "verificationID"
)

// Recorder is told about the outcome of every verification.
type Recorder interface {
	RecordVerification(kind string, results *policy.Results)
}

// Option configures a Command.
type Option func(c *Command)

// WithRecorder sets the recorder of verification outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Command) {
		c.recorder = r
	}
}

// WithTimeout bounds the duration of one verification. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Command) {
		c.timeout = d
	}
}

// Command contains the verification operations.
type Command struct {
	registry *policy.Registry
	verifier *verifier.Verifier
	recorder Recorder
	timeout  time.Duration
}

// New returns new verifier controller command instance.
func New(registry *policy.Registry, v *verifier.Verifier, opts ...Option) *Command {
	c := &Command{registry: registry, verifier: v}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, VerifyCredentialCommandMethod, c.VerifyCredential),
		cmdutil.NewCommandHandler(CommandName, VerifyPresentationCommandMethod, c.VerifyPresentation),
		cmdutil.NewCommandHandler(CommandName, ListPoliciesCommandMethod, c.ListPolicies),
	}
}

// VerifyCredential verifies a credential against a policy list. The response is the policy
// results, whatever the verification outcome.
func (c *Command) VerifyCredential(rw io.Writer, req io.Reader) command.Error {
	request := &VerifyCredentialRequest{}

	if err := json.NewDecoder(req).Decode(request); err != nil {
		logutil.LogInfo(logger, CommandName, VerifyCredentialCommandMethod, "request decode : "+err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode : %w", err))
	}

	if isEmpty(request.Credential) {
		logutil.LogDebug(logger, CommandName, VerifyCredentialCommandMethod, errEmptyCredential)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyCredential))
	}

	cred, err := credential.ParseJSON(request.Credential)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyCredentialCommandMethod, "parse credential : "+err.Error())

		return command.NewValidationError(InvalidCredentialErrorCode, fmt.Errorf("parse credential : %w", err))
	}

	list, cmdErr := c.parseList(VerifyCredentialCommandMethod, "policies", request.Policies)
	if cmdErr != nil {
		return cmdErr
	}

	ctx, cancel := c.context()
	defer cancel()

	results := c.verifier.Verify(ctx, cred, list)

	c.record(VerifyCredentialCommandMethod, metricsKindCredential, results)

	command.WriteNillableResponse(rw, results, logger)

	return nil
}

// VerifyPresentation verifies a presentation and its credentials.
func (c *Command) VerifyPresentation(rw io.Writer, req io.Reader) command.Error {
	request := &VerifyPresentationRequest{}

	if err := json.NewDecoder(req).Decode(request); err != nil {
		logutil.LogInfo(logger, CommandName, VerifyPresentationCommandMethod, "request decode : "+err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode : %w", err))
	}

	if isEmpty(request.Presentation) {
		logutil.LogDebug(logger, CommandName, VerifyPresentationCommandMethod, errEmptyPresentation)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPresentation))
	}

	vp, err := credential.ParsePresentationJSON(request.Presentation)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyPresentationCommandMethod, "parse presentation : "+err.Error())

		return command.NewValidationError(InvalidCredentialErrorCode, fmt.Errorf("parse presentation : %w", err))
	}

	vpList, cmdErr := c.parseList(VerifyPresentationCommandMethod, "vp_policies", request.VPPolicies)
	if cmdErr != nil {
		return cmdErr
	}

	vcList, cmdErr := c.parseList(VerifyPresentationCommandMethod, "vc_policies", request.VCPolicies)
	if cmdErr != nil {
		return cmdErr
	}

	specific, err := policy.ParseSpecific(c.registry, request.SpecificPolicies)
	if err != nil {
		return c.policyError(VerifyPresentationCommandMethod, "specific_policies", err)
	}

	ctx, cancel := c.context()
	defer cancel()

	results := c.verifier.VerifyPresentation(ctx, vp, verifier.PresentationRequest{
		VPPolicies:       vpList,
		VCPolicies:       vcList,
		SpecificPolicies: specific,
	})

	c.record(VerifyPresentationCommandMethod, metricsKindPresentation, results)

	command.WriteNillableResponse(rw, results, logger)

	return nil
}

// ListPolicies lists the registered policies.
func (c *Command) ListPolicies(rw io.Writer, _ io.Reader) command.Error {
	command.WriteNillableResponse(rw, &ListPoliciesResponse{Policies: c.registry.Descriptors()}, logger)

	logutil.LogDebug(logger, CommandName, ListPoliciesCommandMethod, "success")

	return nil
}

const (
	metricsKindCredential   = "credential"
	metricsKindPresentation = "presentation"
)

func (c *Command) parseList(method, field string, raw json.RawMessage) (policy.List, command.Error) {
	list, err := policy.ParseList(c.registry, raw)
	if err != nil {
		return nil, c.policyError(method, field, err)
	}

	return list, nil
}

// policyError maps policy construction errors: configuration errors are the caller's fault,
// anything else is an execution failure.
func (c *Command) policyError(method, field string, err error) command.Error {
	logutil.LogInfo(logger, CommandName, method, field+" : "+err.Error())

	if policy.KindOf(err) == policy.KindConfiguration {
		return command.NewValidationError(InvalidPolicyErrorCode, fmt.Errorf("%s : %w", field, err))
	}

	code := VerifyCredentialErrorCode
	if method == VerifyPresentationCommandMethod {
		code = VerifyPresentationErrorCode
	}

	return command.NewExecuteError(code, fmt.Errorf("%s : %w", field, err))
}

func (c *Command) context() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}

	return context.WithCancel(context.Background())
}

func (c *Command) record(method, kind string, results *policy.Results) {
	if c.recorder != nil {
		c.recorder.RecordVerification(kind, results)
	}

	logutil.LogDebug(logger, CommandName, method, fmt.Sprintf("overall_success=%t policies_run=%d",
		results.OverallSuccess(), results.Count()), logutil.CreateKeyValueString(verificationID, results.ID))
}

func isEmpty(raw json.RawMessage) bool {
	s := string(raw)

	return s == "" || s == "null" || s == `""`
}
