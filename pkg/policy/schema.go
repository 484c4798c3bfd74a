/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/openvc/vcverifier/pkg/doc/credential"
)

type schemaPolicy struct {
	base
	schema *gojsonschema.Schema
}

// SchemaViolation is one JSON Schema error reported by the schema policy.
type SchemaViolation struct {
	Field       string `json:"field"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func newSchemaPolicy(id string, args []byte) (*schemaPolicy, error) {
	sl := gojsonschema.NewSchemaLoader()
	sl.Draft = gojsonschema.Draft7
	sl.Validate = true

	schema, err := sl.Compile(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return nil, fmt.Errorf("compile JSON schema: %w", err)
	}

	return &schemaPolicy{
		base:   base{id: id, description: "Validates the credential data against a JSON Schema.", args: json.RawMessage(args)},
		schema: schema,
	}, nil
}

func (p *schemaPolicy) Verify(_ context.Context, cred *credential.Credential) Result {
	result, err := p.schema.Validate(gojsonschema.NewGoLoader(cred.CredentialData()))
	if err != nil {
		return Failed(p, &ParsingError{Message: "validation of credential data", Err: err}, nil)
	}

	if result.Valid() {
		return Succeeded(p, nil)
	}

	violations := make([]SchemaViolation, 0, len(result.Errors()))
	lines := make([]string, 0, len(result.Errors()))

	for _, desc := range result.Errors() {
		violations = append(violations, SchemaViolation{
			Field:       desc.Field(),
			Type:        desc.Type(),
			Description: desc.Description(),
		})
		lines = append(lines, desc.String())
	}

	return Failed(p, verificationErrorf("credential data is not valid: %s", strings.Join(lines, "; ")),
		map[string]interface{}{"errors": violations})
}
