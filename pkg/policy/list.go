/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// List is an ordered list of policies.
type List []Policy

// IDs returns the policy ids in order.
func (l List) IDs() []string {
	ids := make([]string, len(l))

	for i, p := range l {
		ids[i] = p.ID()
	}

	return ids
}

// MarshalJSON writes the list in the grammar ParseList reads.
func (l List) MarshalJSON() ([]byte, error) {
	elems := make([]interface{}, len(l))

	for i, p := range l {
		if p.Args() == nil {
			elems[i] = p.ID()

			continue
		}

		elems[i] = listElement{Policy: p.ID(), Args: p.Args()}
	}

	return json.Marshal(elems)
}

type listElement struct {
	Policy string      `json:"policy"`
	Args   interface{} `json:"args,omitempty"`
}

type rawListElement struct {
	Policy string          `json:"policy"`
	Args   json.RawMessage `json:"args"`
}

// ParseList builds the policies of a JSON policy list. Each element is either a policy id or
// an object {"policy": id, "args": ...}. An empty or null document is an empty list.
func ParseList(r *Registry, data []byte) (List, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return List{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, &ConfigurationError{Message: "policy list must be a JSON array", Err: err}
	}

	list := make(List, 0, len(elems))

	for i, elem := range elems {
		p, err := parseElement(r, elem)
		if err != nil {
			return nil, fmt.Errorf("policies[%d]: %w", i, err)
		}

		list = append(list, p)
	}

	return list, nil
}

func parseElement(r *Registry, elem json.RawMessage) (Policy, error) {
	elem = bytes.TrimSpace(elem)
	if len(elem) == 0 {
		return nil, &ConfigurationError{Message: "empty policy element"}
	}

	switch elem[0] {
	case '"':
		var id string
		if err := json.Unmarshal(elem, &id); err != nil {
			return nil, &ConfigurationError{Message: "invalid policy id", Err: err}
		}

		return r.New(id, nil)
	case '{':
		var e rawListElement
		if err := json.Unmarshal(elem, &e); err != nil {
			return nil, &ConfigurationError{Message: "invalid policy object", Err: err}
		}

		if e.Policy == "" {
			return nil, &ConfigurationError{Message: "policy object without policy id"}
		}

		return r.New(e.Policy, e.Args)
	default:
		return nil, &ConfigurationError{Message: "policy element must be a string or an object"}
	}
}

// ParseSpecific builds per credential type policy lists from {"<type>": [policies...]}.
func ParseSpecific(r *Registry, data []byte) (map[string]List, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigurationError{Message: "specific policies must be a JSON object", Err: err}
	}

	specific := make(map[string]List, len(raw))

	for _, typ := range sortedKeys(raw) {
		list, err := ParseList(r, raw[typ])
		if err != nil {
			return nil, fmt.Errorf("specific policies %s: %w", typ, err)
		}

		specific[typ] = list
	}

	return specific, nil
}
