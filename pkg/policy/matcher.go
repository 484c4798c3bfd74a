/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

type dataMatcherArgs struct {
	Path  string `json:"path"`
	Regex string `json:"regex"`
}

type dataMatcherPolicy struct {
	base
	path  gval.Evaluable
	regex *regexp.Regexp
}

func newDataMatcherPolicy(id string, args []byte) (*dataMatcherPolicy, error) {
	var a dataMatcherArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	if a.Path == "" || a.Regex == "" {
		return nil, fmt.Errorf("path and regex are required")
	}

	builder := gval.Full(jsonpath.PlaceholderExtension())

	path, err := builder.NewEvaluable(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to build new json path evaluator: %w", err)
	}

	re, err := regexp.Compile(a.Regex)
	if err != nil {
		return nil, fmt.Errorf("compile regex: %w", err)
	}

	return &dataMatcherPolicy{
		base:  base{id: id, description: "Checks that the value at a JSONPath matches a regular expression.", args: a},
		path:  path,
		regex: re,
	}, nil
}

func (p *dataMatcherPolicy) Verify(ctx context.Context, cred *credential.Credential) Result {
	args := p.args.(dataMatcherArgs)
	payload := map[string]interface{}{"path": args.Path, "regex": args.Regex}

	v, err := p.path(ctx, cred.CredentialData())
	if err != nil {
		return Failed(p, &VerificationError{Message: "no value at " + args.Path, Err: err}, payload)
	}

	values, ok := v.([]interface{})
	if !ok {
		values = []interface{}{v}
	}

	for _, value := range values {
		if value == nil {
			continue
		}

		if s := textOf(value); p.regex.MatchString(s) {
			payload["value"] = s

			return Succeeded(p, payload)
		}
	}

	if len(values) == 0 || (len(values) == 1 && values[0] == nil) {
		return Failed(p, verificationErrorf("no value at %s", args.Path), payload)
	}

	return Failed(p, verificationErrorf("value at %s does not match %s", args.Path, args.Regex), payload)
}

func textOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}

		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
