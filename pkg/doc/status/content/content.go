/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package content parses fetched status list credentials into a StatusContent.
package content

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/status"
)

var logger = log.New("vcverifier/status/content")

const (
	defaultStatusSize = 1
	jsonObjectPrefix  = "{"
)

// StatusContent is the payload of a status list credential. It is built fresh for every fetch.
type StatusContent struct {
	// Type is the declared list type. Unknown declarations are kept verbatim so that the
	// metadata check reports them as a mismatch.
	Type status.ListType
	// Purpose is the W3C status purpose. IETF lists carry none.
	Purpose string
	// Size is the width of one entry in bits.
	Size int
	// List is the encoded, usually compressed, list.
	List string
	// Subject is the list URI the issuer signed into the credential (W3C id, IETF sub).
	Subject string
	// Issuer is the status list issuer, when present.
	Issuer string
}

// ParseError reports a status list credential that is malformed or lacks a required field.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid status list credential: %v", e.Err)
	}

	return fmt.Sprintf("invalid status list credential: field %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader parses the raw body returned by a fetcher.
type Reader interface {
	Read(body string) (*StatusContent, error)
}

// W3CReader reads W3C status list credentials, either as a compact JWT (VC-JWT with the
// credential under "vc", or a JOSE secured VCDM 2.0 credential) or as plain JSON.
type W3CReader struct{}

// NewW3CReader returns a W3C status list credential reader.
func NewW3CReader() *W3CReader {
	return &W3CReader{}
}

type w3cSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose"`
	StatusSize    int    `json:"statusSize"`
	EncodedList   string `json:"encodedList"`
}

// Read parses body.
func (r *W3CReader) Read(body string) (*StatusContent, error) {
	claims, err := readClaims(body)
	if err != nil {
		return nil, err
	}

	cred := claims
	if vc, ok := claims["vc"].(map[string]interface{}); ok {
		cred = vc
	}

	rawSubject, ok := cred["credentialSubject"]
	if !ok {
		return nil, &ParseError{Field: "credentialSubject", Err: errors.New("missing")}
	}

	if list, isList := rawSubject.([]interface{}); isList {
		if len(list) == 0 {
			return nil, &ParseError{Field: "credentialSubject", Err: errors.New("empty")}
		}

		rawSubject = list[0]
	}

	subjectMap, ok := rawSubject.(map[string]interface{})
	if !ok {
		return nil, &ParseError{Field: "credentialSubject", Err: errors.Errorf("unexpected %T", rawSubject)}
	}

	var subject w3cSubject
	if err = decode(subjectMap, &subject); err != nil {
		return nil, &ParseError{Field: "credentialSubject", Err: err}
	}

	if subject.EncodedList == "" {
		return nil, &ParseError{Field: "credentialSubject.encodedList", Err: errors.New("missing")}
	}

	if subject.Type == "" {
		return nil, &ParseError{Field: "credentialSubject.type", Err: errors.New("missing")}
	}

	c := &StatusContent{
		Type:    normalizeType(subject.Type),
		Purpose: subject.StatusPurpose,
		Size:    subject.StatusSize,
		List:    subject.EncodedList,
		Subject: subject.ID,
		Issuer:  issuerOf(claims, cred),
	}

	if c.Purpose == "" {
		c.Purpose = status.PurposeRevocation
	}

	if c.Size == 0 {
		c.Size = defaultStatusSize
	}

	if c.Size < 0 {
		return nil, &ParseError{Field: "credentialSubject.statusSize", Err: errors.Errorf("negative size %d", c.Size)}
	}

	logger.Debugf("read W3C status list type=%s purpose=%s size=%d", c.Type, c.Purpose, c.Size)

	return c, nil
}

// IETFReader reads IETF status list tokens in JWT form.
type IETFReader struct{}

// NewIETFReader returns an IETF status list token reader.
func NewIETFReader() *IETFReader {
	return &IETFReader{}
}

type ietfStatusList struct {
	Bits           int    `json:"bits"`
	List           string `json:"lst"`
	AggregationURI string `json:"aggregation_uri"`
}

// Read parses body.
func (r *IETFReader) Read(body string) (*StatusContent, error) {
	claims, err := readClaims(body)
	if err != nil {
		return nil, err
	}

	raw, ok := claims["status_list"].(map[string]interface{})
	if !ok {
		return nil, &ParseError{Field: "status_list", Err: errors.New("missing or not an object")}
	}

	var sl ietfStatusList
	if err = decode(raw, &sl); err != nil {
		return nil, &ParseError{Field: "status_list", Err: err}
	}

	if sl.List == "" {
		return nil, &ParseError{Field: "status_list.lst", Err: errors.New("missing")}
	}

	if sl.Bits == 0 {
		sl.Bits = defaultStatusSize
	}

	switch sl.Bits {
	case 1, 2, 4, 8:
	default:
		return nil, &ParseError{Field: "status_list.bits", Err: errors.Errorf("unsupported value %d", sl.Bits)}
	}

	sub, _ := claims["sub"].(string)
	iss, _ := claims["iss"].(string)

	logger.Debugf("read IETF status list sub=%s bits=%d", sub, sl.Bits)

	return &StatusContent{
		Type:    status.TokenStatusList,
		Size:    sl.Bits,
		List:    sl.List,
		Subject: sub,
		Issuer:  iss,
	}, nil
}

// readClaims returns the JSON object in body, or the payload of the JWT in body.
// Signatures of status list tokens are not checked here.
func readClaims(body string) (map[string]interface{}, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ParseError{Err: errors.New("empty body")}
	}

	claims := map[string]interface{}{}

	if strings.HasPrefix(body, jsonObjectPrefix) {
		if err := json.Unmarshal([]byte(body), &claims); err != nil {
			return nil, &ParseError{Err: errors.Wrap(err, "decode JSON")}
		}

		return claims, nil
	}

	tok, err := jwt.ParseSigned(body)
	if err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "parse JWT")}
	}

	if err = tok.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "decode JWT claims")}
	}

	return claims, nil
}

func decode(input map[string]interface{}, out interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: mapstructure.DecodeHookFuncKind(integral),
	})
	if err != nil {
		return err
	}

	return d.Decode(input)
}

// integral rejects JSON numbers with a fraction for integer fields.
func integral(_, to reflect.Kind, data interface{}) (interface{}, error) {
	if to != reflect.Int {
		return data, nil
	}

	if f, ok := data.(float64); ok && f != math.Trunc(f) {
		return nil, errors.Errorf("%v is not an integer", f)
	}

	return data, nil
}

func normalizeType(s string) status.ListType {
	t, err := status.ParseListType(s)
	if err != nil {
		return status.ListType(s)
	}

	return t
}

func issuerOf(claims, cred map[string]interface{}) string {
	if iss, ok := claims["iss"].(string); ok {
		return iss
	}

	switch v := cred["issuer"].(type) {
	case string:
		return v
	case map[string]interface{}:
		id, _ := v["id"].(string)

		return id
	default:
		return ""
	}
}
