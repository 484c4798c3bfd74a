/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier evaluates policy lists against credentials and presentations.
package verifier

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/credential"
	"github.com/openvc/vcverifier/pkg/policy"
)

var logger = log.New("vcverifier/verifier")

const defaultConcurrency = 8

// Observer is told about every evaluated policy. It is called from concurrent goroutines.
type Observer func(res policy.Result, elapsed time.Duration)

// Option configures a Verifier.
type Option func(v *Verifier)

// WithConcurrency bounds the number of policies evaluated at the same time. One evaluates
// policies sequentially in list order.
func WithConcurrency(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithObserver sets a hook called after each policy evaluation.
func WithObserver(o Observer) Option {
	return func(v *Verifier) {
		v.observer = o
	}
}

// Verifier runs policy lists. It is safe for concurrent use.
type Verifier struct {
	registry    *policy.Registry
	concurrency int
	observer    Observer
}

// New returns a Verifier. Requests without policies are checked against registry.Defaults().
func New(registry *policy.Registry, opts ...Option) *Verifier {
	v := &Verifier{
		registry:    registry,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// PresentationRequest holds the policy lists of a presentation verification.
type PresentationRequest struct {
	// VPPolicies check the presentation itself.
	VPPolicies policy.List
	// VCPolicies check every credential of the presentation.
	VCPolicies policy.List
	// SpecificPolicies check the credentials whose type key matches the map key.
	SpecificPolicies map[string]policy.List
}

func (r PresentationRequest) empty() bool {
	return len(r.VPPolicies) == 0 && len(r.VCPolicies) == 0 && len(r.SpecificPolicies) == 0
}

// task is one policy evaluation.
type task func(ctx context.Context) policy.Result

// Verify evaluates list against cred. Results are in list order.
func (v *Verifier) Verify(ctx context.Context, cred *credential.Credential, list policy.List) *policy.Results {
	if len(list) == 0 {
		list = v.registry.Defaults()
	}

	tasks := make([]task, 0, len(list))
	for _, p := range list {
		tasks = append(tasks, credentialTask(p, cred, ""))
	}

	results := v.run(ctx, tasks)

	logger.Debugf("verified %s credential: %d policies", cred.Format(), len(results))

	return policy.NewResults(nil, results, nil)
}

// VerifyPresentation evaluates the request against vp and its credentials.
func (v *Verifier) VerifyPresentation(ctx context.Context, vp *credential.Presentation,
	req PresentationRequest) *policy.Results {
	if req.empty() {
		req.VCPolicies = v.registry.Defaults()
	}

	creds := vp.Credentials()

	vpTasks := make([]task, 0, len(req.VPPolicies))
	for _, p := range req.VPPolicies {
		vpTasks = append(vpTasks, presentationTask(p, vp))
	}

	vcTasks := make([]task, 0, len(req.VCPolicies)*len(creds))

	for _, cred := range creds {
		for _, p := range req.VCPolicies {
			vcTasks = append(vcTasks, credentialTask(p, cred, cred.TypeKey()))
		}
	}

	specificTasks := map[string][]task{}

	for _, cred := range creds {
		key := cred.TypeKey()

		for _, p := range req.SpecificPolicies[key] {
			specificTasks[key] = append(specificTasks[key], credentialTask(p, cred, key))
		}
	}

	// All groups share one pool.
	all := append(append([]task{}, vpTasks...), vcTasks...)

	keys := make([]string, 0, len(specificTasks))
	for key, ts := range specificTasks {
		keys = append(keys, key)
		all = append(all, ts...)
	}

	results := v.run(ctx, all)

	vpResults := results[:len(vpTasks)]
	vcResults := results[len(vpTasks) : len(vpTasks)+len(vcTasks)]

	var specific map[string][]policy.Result

	if len(keys) > 0 {
		specific = make(map[string][]policy.Result, len(keys))
		offset := len(vpTasks) + len(vcTasks)

		for _, key := range keys {
			n := len(specificTasks[key])
			specific[key] = results[offset : offset+n]
			offset += n
		}
	}

	logger.Debugf("verified %s presentation: %d credentials, %d policies", vp.Format(), len(creds), len(results))

	return policy.NewResults(vpResults, vcResults, specific)
}

func credentialTask(p policy.Policy, cred *credential.Credential, key string) task {
	return func(ctx context.Context) policy.Result {
		res := p.Verify(ctx, cred)
		res.Credential = key

		return res
	}
}

func presentationTask(p policy.Policy, vp *credential.Presentation) task {
	return func(ctx context.Context) policy.Result {
		if pp, ok := p.(policy.PresentationPolicy); ok {
			return pp.VerifyPresentation(ctx, vp)
		}

		if env := vp.Envelope(); env != nil {
			return p.Verify(ctx, env)
		}

		return policy.Failed(p, &policy.ConfigurationError{
			Policy:  p.ID(),
			Message: "policy needs a presentation envelope, " + string(vp.Format()) + " presentations have none",
		}, nil)
	}
}

// run evaluates tasks with at most v.concurrency at a time. Each result is stored at the index
// of its task.
func (v *Verifier) run(ctx context.Context, tasks []task) []policy.Result {
	results := make([]policy.Result, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, t := range tasks {
		i, t := i, t

		g.Go(func() error {
			start := time.Now()
			results[i] = t(gctx)

			if v.observer != nil {
				v.observer(results[i], time.Since(start))
			}

			return nil
		})
	}

	// Tasks report failures in their results, Wait never returns an error.
	_ = g.Wait() //nolint:errcheck

	return results
}
