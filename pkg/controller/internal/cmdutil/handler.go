/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"net/http"

	"github.com/openvc/vcverifier/pkg/controller/command"
)

// MaxRequestBody caps the body a verification request may carry.
const MaxRequestBody = 4 << 20

// HTTPHandler is a REST route of the verifier API.
type HTTPHandler struct {
	path   string
	method string
	handle http.HandlerFunc
}

// NewHTTPHandler returns a route serving method requests on path. Request bodies larger
// than MaxRequestBody fail to decode.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: limitBody(handle, MaxRequestBody)}
}

func limitBody(next http.HandlerFunc, limit int64) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		if req.Body != nil {
			req.Body = http.MaxBytesReader(rw, req.Body, limit)
		}

		next(rw, req)
	}
}

// Path of the route.
func (h *HTTPHandler) Path() string {
	return h.path
}

// Method of the route.
func (h *HTTPHandler) Method() string {
	return h.method
}

// Handle returns the route's handler.
func (h *HTTPHandler) Handle() http.HandlerFunc {
	return h.handle
}

// CommandHandler is a verifier command bound to its controller name and method.
type CommandHandler struct {
	name   string
	method string
	exec   command.Exec
}

// NewCommandHandler returns a command handler running exec.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{name: name, method: method, exec: exec}
}

// Name of the controller.
func (c *CommandHandler) Name() string {
	return c.name
}

// Method of the command.
func (c *CommandHandler) Method() string {
	return c.method
}

// Handle returns the command's Exec.
func (c *CommandHandler) Handle() command.Exec {
	return c.exec
}
