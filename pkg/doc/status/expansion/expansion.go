/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package expansion turns the encoded list carried by a status list credential into
// the raw bytes read by package bitstring.
//
// Every list type has its own encoding:
//
//   - BitstringStatusList: optional multibase "u" prefix, base64url, GZIP when the
//     decoded bytes inflate as GZIP, raw bytes otherwise.
//   - StatusList2021, RevocationList2020: base64 (either alphabet), always GZIP.
//   - TokenStatusList: base64url, ZLIB when the decoded bytes inflate as ZLIB,
//     raw bytes otherwise.
//
// A raw list may start with bytes that look like a compression header, so a failed
// inflation falls back to the decoded bytes. Exceeding the size limit never does.
package expansion

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/multiformats/go-multibase"

	"github.com/openvc/vcverifier/component/log"
	"github.com/openvc/vcverifier/pkg/doc/status"
)

// DefaultMaxSize caps the expanded size of a list.
const DefaultMaxSize = 16 << 20

var logger = log.New("vcverifier/status/expansion")

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	errTooLarge = errors.New("expanded list too large")
)

// DecompressionError reports an encoded list that could not be expanded.
type DecompressionError struct {
	Type status.ListType
	Err  error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("expand %s list: %v", e.Type, e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}

// Algorithm expands and compresses the list of one status list type.
type Algorithm interface {
	// Expand decodes and decompresses an encoded list.
	Expand(encoded string) ([]byte, error)
	// Compress produces the canonical encoding of a raw list.
	Compress(raw []byte) (string, error)
	// Type returns the list type handled by the algorithm.
	Type() status.ListType
}

// Option configures an algorithm.
type Option func(*opts)

type opts struct {
	maxSize int64
}

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(o *opts) {
		o.maxSize = n
	}
}

func newOpts(options []Option) opts {
	o := opts{maxSize: DefaultMaxSize}

	for _, opt := range options {
		opt(&o)
	}

	return o
}

// ForType returns the algorithm of a list type.
func ForType(t status.ListType, options ...Option) (Algorithm, error) {
	o := newOpts(options)

	switch t {
	case status.BitstringStatusList:
		return &Bitstring{opts: o}, nil
	case status.StatusList2021, status.RevocationList2020:
		return &GZIPBase64{listType: t, opts: o}, nil
	case status.TokenStatusList:
		return &Token{opts: o}, nil
	default:
		return nil, fmt.Errorf("no expansion algorithm for status list type %q", t)
	}
}

// Bitstring handles W3C BitstringStatusList lists.
type Bitstring struct {
	opts opts
}

// Type returns status.BitstringStatusList.
func (b *Bitstring) Type() status.ListType { return status.BitstringStatusList }

// Expand decodes a BitstringStatusList encodedList.
func (b *Bitstring) Expand(encoded string) ([]byte, error) {
	data, err := decodeBitstring(encoded)
	if err != nil {
		return nil, b.fail(err)
	}

	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}

	out, err := rawOnFailure(status.BitstringStatusList, data)(gunzip(data, b.opts.maxSize))
	if err != nil {
		return nil, b.fail(err)
	}

	return out, nil
}

// Compress encodes raw as multibase base64url of its GZIP stream.
func (b *Bitstring) Compress(raw []byte) (string, error) {
	z, err := gzipBytes(raw)
	if err != nil {
		return "", err
	}

	return multibase.Encode(multibase.Base64url, z)
}

func (b *Bitstring) fail(err error) error {
	return &DecompressionError{Type: status.BitstringStatusList, Err: err}
}

// decodeBitstring accepts a multibase base64url string or a bare base64url string.
// A bare string may also begin with 'u', so the multibase reading is kept only when it
// yields a GZIP stream.
func decodeBitstring(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "u") {
		if enc, data, err := multibase.Decode(encoded); err == nil && enc == multibase.Base64url &&
			bytes.HasPrefix(data, gzipMagic) {
			return data, nil
		}
	}

	return decodeBase64(encoded)
}

// GZIPBase64 handles StatusList2021 and RevocationList2020 lists.
type GZIPBase64 struct {
	listType status.ListType
	opts     opts
}

// Type returns the list type given to ForType.
func (g *GZIPBase64) Type() status.ListType { return g.listType }

// Expand decodes base64 and inflates the mandatory GZIP stream.
func (g *GZIPBase64) Expand(encoded string) ([]byte, error) {
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, g.fail(err)
	}

	out, err := gunzip(data, g.opts.maxSize)
	if err != nil {
		return nil, g.fail(err)
	}

	return out, nil
}

// Compress encodes raw as unpadded base64url of its GZIP stream.
func (g *GZIPBase64) Compress(raw []byte) (string, error) {
	z, err := gzipBytes(raw)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(z), nil
}

func (g *GZIPBase64) fail(err error) error {
	return &DecompressionError{Type: g.listType, Err: err}
}

// Token handles IETF token status lists.
type Token struct {
	opts opts
}

// Type returns status.TokenStatusList.
func (t *Token) Type() status.ListType { return status.TokenStatusList }

// Expand decodes base64url and inflates ZLIB when a ZLIB header is present.
func (t *Token) Expand(encoded string) ([]byte, error) {
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, t.fail(err)
	}

	if !hasZlibHeader(data) {
		return data, nil
	}

	out, err := rawOnFailure(status.TokenStatusList, data)(inflate(data, t.opts.maxSize))
	if err != nil {
		return nil, t.fail(err)
	}

	return out, nil
}

func inflate(data []byte, maxSize int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	defer r.Close() //nolint:errcheck

	return readLimited(r, maxSize)
}

// rawOnFailure keeps data as the raw list when it does not inflate. Size limit errors are kept.
func rawOnFailure(t status.ListType, data []byte) func([]byte, error) ([]byte, error) {
	return func(out []byte, err error) ([]byte, error) {
		if err == nil || errors.Is(err, errTooLarge) {
			return out, err
		}

		logger.Debugf("%s list does not inflate (%s), reading %d raw bytes", t, err, len(data))

		return data, nil
	}
}

// Compress encodes raw as unpadded base64url of its ZLIB stream.
func (t *Token) Compress(raw []byte) (string, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", err
	}

	if _, err = w.Write(raw); err != nil {
		return "", err
	}

	if err = w.Close(); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func (t *Token) fail(err error) error {
	return &DecompressionError{Type: status.TokenStatusList, Err: err}
}

// hasZlibHeader checks the RFC 1950 header: deflate method, window <= 32K, FCHECK valid.
func hasZlibHeader(b []byte) bool {
	const (
		deflate    = 8
		maxCINFO   = 7
		checkBase  = 31
		headerSize = 2
	)

	if len(b) < headerSize {
		return false
	}

	cmf, flg := b[0], b[1]

	return cmf&0x0f == deflate && cmf>>4 <= maxCINFO && (uint16(cmf)<<8|uint16(flg))%checkBase == 0
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty encoded list")
	}

	trimmed := strings.TrimRight(s, "=")

	if strings.ContainsAny(trimmed, "+/") {
		return base64.RawStdEncoding.DecodeString(trimmed)
	}

	return base64.RawURLEncoding.DecodeString(trimmed)
}

func gunzip(data []byte, maxSize int64) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	defer r.Close() //nolint:errcheck

	return readLimited(r, maxSize)
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	if _, err := w.Write(raw); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}

	if int64(len(out)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errTooLarge, maxSize)
	}

	return out, nil
}
