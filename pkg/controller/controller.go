/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"time"

	"github.com/openvc/vcverifier/pkg/controller/command"
	verifiercmd "github.com/openvc/vcverifier/pkg/controller/command/verifier"
	"github.com/openvc/vcverifier/pkg/controller/rest"
	verifierrest "github.com/openvc/vcverifier/pkg/controller/rest/verifier"
	"github.com/openvc/vcverifier/pkg/policy"
	"github.com/openvc/vcverifier/pkg/verifier"
)

type allOpts struct {
	recorder verifiercmd.Recorder
	timeout  time.Duration
}

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithRecorder is an option for recording the outcome of every verification.
func WithRecorder(r verifiercmd.Recorder) Opt {
	return func(opts *allOpts) {
		opts.recorder = r
	}
}

// WithVerificationTimeout is an option bounding the duration of one verification.
func WithVerificationTimeout(d time.Duration) Opt {
	return func(opts *allOpts) {
		opts.timeout = d
	}
}

func newCommand(registry *policy.Registry, v *verifier.Verifier, opts []Opt) *verifiercmd.Command {
	o := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(o)
	}

	var cmdOpts []verifiercmd.Option

	if o.recorder != nil {
		cmdOpts = append(cmdOpts, verifiercmd.WithRecorder(o.recorder))
	}

	if o.timeout > 0 {
		cmdOpts = append(cmdOpts, verifiercmd.WithTimeout(o.timeout))
	}

	return verifiercmd.New(registry, v, cmdOpts...)
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(registry *policy.Registry, v *verifier.Verifier, opts ...Opt) []rest.Handler {
	return verifierrest.New(newCommand(registry, v, opts)).GetRESTHandlers()
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(registry *policy.Registry, v *verifier.Verifier, opts ...Opt) []command.Handler {
	return newCommand(registry, v, opts).GetHandlers()
}
