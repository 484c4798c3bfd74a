/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// Results is the outcome of one verification call. It is never modified after NewResults.
type Results struct {
	// ID identifies the verification call in logs and responses.
	ID               string              `json:"id"`
	VPPolicies       []Result            `json:"vp_policies,omitempty"`
	VCPolicies       []Result            `json:"vc_policies"`
	SpecificPolicies map[string][]Result `json:"specific_policies,omitempty"`
}

// NewResults copies the given results. A successful result loses its error and a failed result
// without one gets a generic message.
func NewResults(vp, vc []Result, specific map[string][]Result) *Results {
	r := &Results{
		ID:         uuid.New().String(),
		VPPolicies: normalize(vp),
		VCPolicies: normalize(vc),
	}

	if r.VCPolicies == nil {
		r.VCPolicies = []Result{}
	}

	if len(specific) > 0 {
		r.SpecificPolicies = make(map[string][]Result, len(specific))

		for _, k := range maps.Keys(specific) {
			r.SpecificPolicies[k] = normalize(specific[k])
		}
	}

	return r
}

func normalize(results []Result) []Result {
	if len(results) == 0 {
		return nil
	}

	out := make([]Result, len(results))

	for i, res := range results {
		switch {
		case res.Success:
			res.Error = ""
			res.ErrorKind = ""
		case res.Error == "":
			res.Error = "policy failed"
			res.ErrorKind = KindVerification
		}

		out[i] = res
	}

	return out
}

// OverallSuccess reports whether every result succeeded.
func (r *Results) OverallSuccess() bool {
	for _, group := range r.groups() {
		for _, res := range group {
			if !res.Success {
				return false
			}
		}
	}

	return true
}

// Failures returns the failed results.
func (r *Results) Failures() []Result {
	var failed []Result

	for _, group := range r.groups() {
		for _, res := range group {
			if !res.Success {
				failed = append(failed, res)
			}
		}
	}

	return failed
}

// Count returns the number of results.
func (r *Results) Count() int {
	var n int

	for _, group := range r.groups() {
		n += len(group)
	}

	return n
}

func (r *Results) groups() [][]Result {
	groups := [][]Result{r.VPPolicies, r.VCPolicies}

	for _, k := range sortedKeys(r.SpecificPolicies) {
		groups = append(groups, r.SpecificPolicies[k])
	}

	return groups
}

// MarshalJSON adds overall_success to the serialized results.
func (r *Results) MarshalJSON() ([]byte, error) {
	type plain Results

	return json.Marshal(struct {
		*plain
		OverallSuccess bool `json:"overall_success"`
		PoliciesRun    int  `json:"policies_run"`
	}{
		plain:          (*plain)(r),
		OverallSuccess: r.OverallSuccess(),
		PoliciesRun:    r.Count(),
	})
}
