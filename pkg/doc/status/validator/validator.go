/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package validator checks the status of a credential against its status list.
//
// Every call runs the same pipeline: fetch the status list credential, read it, check that
// the list applies, expand the list, read the entry and compare it with the expected value.
// Nothing is kept between calls.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/status"
	"github.com/openvc/vcverifier/pkg/doc/status/bitstring"
	"github.com/openvc/vcverifier/pkg/doc/status/content"
	"github.com/openvc/vcverifier/pkg/doc/status/entry"
	"github.com/openvc/vcverifier/pkg/doc/status/expansion"
	"github.com/openvc/vcverifier/pkg/doc/status/fetcher"
)

var logger = log.New("vcverifier/status/validator")

// W3CAttribute is what a W3C status check expects: the list type and purpose the entry must
// belong to, and the status value it must hold.
type W3CAttribute struct {
	Value   uint64
	Purpose string
	Type    status.ListType
}

// IETFAttribute is the status value an IETF status check expects.
type IETFAttribute struct {
	Value uint64
}

// BitReader extracts an entry from an expanded list.
type BitReader interface {
	Get(buf []byte, index uint64, bitSize int) ([]rune, error)
}

// BitReaderProvider returns the bit reader for a bit order.
type BitReaderProvider func(strategy bitstring.Strategy) BitReader

// ExpansionProvider returns the expansion algorithm for a list type.
type ExpansionProvider func(t status.ListType) (expansion.Algorithm, error)

// Option configures a validator.
type Option func(p *pipeline)

// WithReader overrides the status list credential reader.
func WithReader(r content.Reader) Option {
	return func(p *pipeline) {
		p.reader = r
	}
}

// WithBitReaderProvider overrides the bit reader.
func WithBitReaderProvider(f BitReaderProvider) Option {
	return func(p *pipeline) {
		p.bitReader = f
	}
}

// WithExpansionProvider overrides the expansion algorithms.
func WithExpansionProvider(f ExpansionProvider) Option {
	return func(p *pipeline) {
		p.expansion = f
	}
}

type pipeline struct {
	fetcher   fetcher.Fetcher
	reader    content.Reader
	bitReader BitReaderProvider
	expansion ExpansionProvider
}

func newPipeline(f fetcher.Fetcher, reader content.Reader, opts []Option) pipeline {
	p := pipeline{
		fetcher: f,
		reader:  reader,
		bitReader: func(s bitstring.Strategy) BitReader {
			return bitstring.NewReader(s)
		},
		expansion: func(t status.ListType) (expansion.Algorithm, error) {
			return expansion.ForType(t)
		},
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

func (p *pipeline) retrieve(ctx context.Context, uri string) (*content.StatusContent, error) {
	body, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		logger.Debugf("status list download from %s failed: %v", uri, err)

		return nil, retrievalError(err, downloadErrorMessage)
	}

	c, err := p.reader.Read(body)
	if err != nil {
		logger.Debugf("status list from %s could not be read: %v", uri, err)

		return nil, retrievalError(err, parsingErrorMessage)
	}

	return c, nil
}

func (p *pipeline) value(c *content.StatusContent, index uint64, bitSize int, expected uint64) error {
	strategy, err := c.Type.BitOrder()
	if err != nil {
		return &VerificationError{Message: err.Error(), Err: err}
	}

	alg, err := p.expansion(c.Type)
	if err != nil {
		return &VerificationError{Message: err.Error(), Err: err}
	}

	buf, err := alg.Expand(c.List)
	if err != nil {
		return &VerificationError{Message: err.Error(), Err: err}
	}

	bits, err := p.bitReader(strategy).Get(buf, index, bitSize)
	if err != nil {
		return &VerificationError{Message: err.Error(), Err: err}
	}

	return compare(bits, expected)
}

func compare(bits []rune, expected uint64) error {
	if len(bits) == 0 {
		return &VerificationError{Message: emptyBitsMessage}
	}

	got, err := bitstring.ToUint(bits)
	if err != nil {
		return &VerificationError{Message: "Invalid bit value: " + formatBits(bits), Err: err}
	}

	if got != expected {
		return &VerificationError{
			Message: fmt.Sprintf("Status validation failed: expected %d, but got %d", expected, got),
		}
	}

	return nil
}

func formatBits(bits []rune) string {
	parts := make([]string, len(bits))

	for i, b := range bits {
		parts[i] = string(b)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

// W3CValidator checks BitstringStatusList, StatusList2021 and RevocationList2020 entries.
type W3CValidator struct {
	pipeline
}

// NewW3C returns a W3C status validator downloading lists with f.
func NewW3C(f fetcher.Fetcher, opts ...Option) *W3CValidator {
	return &W3CValidator{pipeline: newPipeline(f, content.NewW3CReader(), opts)}
}

// Validate checks that entry e holds the value expected by attr.
func (v *W3CValidator) Validate(ctx context.Context, e entry.W3CEntry, attr W3CAttribute) error {
	c, err := v.retrieve(ctx, e.URI)
	if err != nil {
		return err
	}

	if c.Type != attr.Type {
		return &VerificationError{
			Message: fmt.Sprintf("Status list type mismatch: expected %s, but got %s", attr.Type, c.Type),
		}
	}

	if c.Purpose != attr.Purpose {
		return &VerificationError{
			Message: fmt.Sprintf("Status purpose mismatch: expected %s, but got %s", attr.Purpose, c.Purpose),
		}
	}

	if e.Size != 0 && e.Size != c.Size {
		return &VerificationError{
			Message: fmt.Sprintf("Status size mismatch: entry declares %d, but list has %d", e.Size, c.Size),
		}
	}

	if err = v.value(c, e.Index, c.Size, attr.Value); err != nil {
		return err
	}

	logger.Debugf("status %s/%s of %s[%d] is %d", c.Type, c.Purpose, e.URI, e.Index, attr.Value)

	return nil
}

// IETFValidator checks IETF token status list entries.
type IETFValidator struct {
	pipeline
}

// NewIETF returns an IETF status validator downloading lists with f.
func NewIETF(f fetcher.Fetcher, opts ...Option) *IETFValidator {
	return &IETFValidator{pipeline: newPipeline(f, content.NewIETFReader(), opts)}
}

// Validate checks that entry e holds the value expected by attr.
func (v *IETFValidator) Validate(ctx context.Context, e entry.IETFEntry, attr IETFAttribute) error {
	c, err := v.retrieve(ctx, e.URI)
	if err != nil {
		return err
	}

	if c.Type != status.TokenStatusList {
		return &VerificationError{
			Message: fmt.Sprintf("Status list type mismatch: expected %s, but got %s", status.TokenStatusList, c.Type),
		}
	}

	if c.Subject != "" && c.Subject != e.URI {
		return &VerificationError{
			Message: fmt.Sprintf("Status list subject mismatch: expected %s, but got %s", e.URI, c.Subject),
		}
	}

	if err = v.value(c, e.Index, c.Size, attr.Value); err != nil {
		return err
	}

	logger.Debugf("status of %s[%d] is %d", e.URI, e.Index, attr.Value)

	return nil
}
