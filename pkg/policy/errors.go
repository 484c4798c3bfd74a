/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a policy failure.
type ErrorKind string

// Error kinds.
const (
	// KindConfiguration is an unknown policy or a missing or invalid argument.
	KindConfiguration ErrorKind = "configuration"
	// KindRetrieval is a transport failure fetching a status list, a trust list or a key.
	KindRetrieval ErrorKind = "retrieval"
	// KindVerification is a check that ran and failed.
	KindVerification ErrorKind = "verification"
	// KindParsing is malformed input data.
	KindParsing ErrorKind = "parsing"
)

// ConfigurationError is returned when a policy list cannot be built.
type ConfigurationError struct {
	Policy  string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Policy != "" {
		msg = fmt.Sprintf("policy %s: %s", e.Policy, e.Message)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnknownPolicyError is the ConfigurationError for an id that is not registered.
func UnknownPolicyError(id string) *ConfigurationError {
	return &ConfigurationError{Policy: id, Message: "unknown policy"}
}

// RetrievalError reports data that could not be retrieved.
type RetrievalError struct {
	Message string
	Err     error
}

func (e *RetrievalError) Error() string {
	return joinMessage(e.Message, e.Err)
}

// Unwrap returns the cause.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// VerificationError reports a failed check.
type VerificationError struct {
	Message string
	Err     error
}

func (e *VerificationError) Error() string {
	return joinMessage(e.Message, e.Err)
}

// Unwrap returns the cause.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// ParsingError reports malformed input.
type ParsingError struct {
	Message string
	Err     error
}

func (e *ParsingError) Error() string {
	return joinMessage(e.Message, e.Err)
}

// Unwrap returns the cause.
func (e *ParsingError) Unwrap() error {
	return e.Err
}

// joinMessage returns "message: cause", or whichever of the two is set.
func joinMessage(msg string, err error) string {
	switch {
	case err == nil:
		return msg
	case msg == "":
		return err.Error()
	default:
		return msg + ": " + err.Error()
	}
}

func verificationErrorf(format string, args ...interface{}) error {
	return &VerificationError{Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Errors of no known kind are verification failures.
func KindOf(err error) ErrorKind {
	var (
		configErr *ConfigurationError
		retrErr   *RetrievalError
		parseErr  *ParsingError
	)

	switch {
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &retrErr):
		return KindRetrieval
	case errors.As(err, &parseErr):
		return KindParsing
	default:
		return KindVerification
	}
}
