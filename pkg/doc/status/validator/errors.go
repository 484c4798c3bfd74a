/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

const (
	downloadErrorMessage = "Status credential download error"
	parsingErrorMessage  = "Status credential parsing error"
	emptyBitsMessage     = "Null or empty bit value"
)

// RetrievalError reports that the status list could not be obtained or read. Callers may
// retry later; the credential was not judged.
type RetrievalError struct {
	Message string
	Err     error
}

func (e *RetrievalError) Error() string {
	return e.Message
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// VerificationError reports that the status check ran and failed: the list does not
// apply, the entry is outside the list, or the status value differs from the expected one.
type VerificationError struct {
	Message string
	Err     error
}

func (e *VerificationError) Error() string {
	return e.Message
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func retrievalError(err error, fallback string) *RetrievalError {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}

	return &RetrievalError{Message: msg, Err: err}
}
