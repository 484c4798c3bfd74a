/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/controller/command"
)

var logger = log.New("vcverifier/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// genericErrorBody is the body of every error response.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}

// Execute executes given command with args provided and writes command error to the response
// writer. A successful command writes its own response.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rw.Header().Set("Content-Type", "application/json")

	if err := exec(rw, req); err != nil {
		SendError(rw, err)
	}
}

// SendError sends a command error as a JSON body: 400 for validation errors, 500 otherwise.
func SendError(rw http.ResponseWriter, err command.Error) {
	status := http.StatusInternalServerError
	if err.Type() == command.ValidationError {
		status = http.StatusBadRequest
	}

	SendHTTPStatusError(rw, status, err.Code(), err)
}

// SendHTTPStatusError sends err with the given HTTP status and error code.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(httpStatus)

	if e := json.NewEncoder(rw).Encode(genericErrorBody{Code: code, Message: err.Error()}); e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}
