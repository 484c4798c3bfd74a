/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"io"
)

// Exec executes a command: it reads the JSON request from req and writes the JSON response to rw.
type Exec func(rw io.Writer, req io.Reader) Error

// Handler for each controller command.
type Handler interface {
	// Name of the command group.
	Name() string
	// Method name of the command.
	Method() string
	// Handle returns the function executing the command.
	Handle() Exec
}
