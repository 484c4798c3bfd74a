/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"encoding/json"
	"io"

	"github.com/openvc/vcverifier/spi/log"
)

// WriteNillableResponse writes v to w as JSON. A nil v is written as an empty object.
// Encoding failures are logged with l, the response is already partly written by then.
func WriteNillableResponse(w io.Writer, v interface{}, l log.Logger) {
	obj := v
	if v == nil {
		obj = map[string]interface{}{}
	}

	if err := json.NewEncoder(w).Encode(obj); err != nil {
		l.Errorf("Unable to send response, %s", err)
	}
}
