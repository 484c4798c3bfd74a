/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstring reads and writes fixed width status values inside an expanded status list.
//
// A status list is a packed sequence of entries, each bitSize bits wide. Entry i starts at
// bit i*bitSize. How bit k of the list maps onto a byte depends on the specification that
// produced the list:
//
//   - BigEndian: bit 0 of byte 0 is its most significant bit. W3C BitstringStatusList,
//     StatusList2021 and RevocationList2020 use it.
//   - LittleEndian: bit 0 of byte 0 is its least significant bit. The IETF token status
//     list uses it.
//
// Under LittleEndian the entry's lowest positioned bit is also the least significant bit of
// its value, as in the IETF draft's two bit example (0xC9 holds 1, 2, 0, 3). Reading a list
// with the wrong strategy silently returns a different value, so the strategy is always
// chosen from the list type and never defaulted.
package bitstring

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// Strategy is the order of bits inside a byte.
type Strategy int

const (
	// BigEndian reads bits most significant first.
	BigEndian Strategy = iota + 1
	// LittleEndian reads bits least significant first.
	LittleEndian
)

func (s Strategy) String() string {
	switch s {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// valueBit returns which bit of the entry value (0 = least significant) is stored at
// position k of an entry of width bitSize.
func (s Strategy) valueBit(k, bitSize int) int {
	if s == LittleEndian {
		return k
	}

	return bitSize - 1 - k
}

// mask returns the mask selecting bit bitOffset (0..7) of a byte.
func (s Strategy) mask(bitOffset uint64) (byte, error) {
	switch s {
	case BigEndian:
		return 0x80 >> bitOffset, nil
	case LittleEndian:
		return 1 << bitOffset, nil
	default:
		return 0, fmt.Errorf("bitstring: unsupported strategy %s", s)
	}
}

var (
	// ErrIndexOutOfRange is returned when an entry does not fit inside the buffer.
	ErrIndexOutOfRange = errors.New("bitstring: index out of range")

	// ErrInvalidBitSize is returned for entry widths outside 1..64 bits.
	ErrInvalidBitSize = errors.New("bitstring: invalid bit size")

	// ErrInvalidBit is returned when a bit sequence contains a character other than '0' or '1'.
	ErrInvalidBit = errors.New("bitstring: invalid bit value")
)

// maxBitSize is the widest entry that still converts to a uint64.
const maxBitSize = 64

// ValidBitSize reports whether n is a supported entry width.
func ValidBitSize(n int) bool {
	return n >= 1 && n <= maxBitSize
}

// Reader extracts entries from an expanded list.
type Reader struct {
	strategy Strategy
}

// NewReader returns a reader using strategy.
func NewReader(strategy Strategy) *Reader {
	return &Reader{strategy: strategy}
}

// Strategy returns the bit order of the reader.
func (r *Reader) Strategy() Strategy {
	return r.strategy
}

// Get returns the bitSize bits of entry index as '0' and '1' runes, most significant first.
//
// The sequence is returned unparsed so callers can reject malformed output before
// turning it into a number with ToUint.
func (r *Reader) Get(buf []byte, index uint64, bitSize int) ([]rune, error) {
	start, err := startBit(index, bitSize)
	if err != nil {
		return nil, err
	}

	out := make([]rune, bitSize)

	for k := 0; k < bitSize; k++ {
		pos := start + uint64(k)
		byteOffset, bitOffset := pos/8, pos%8

		if byteOffset >= uint64(len(buf)) {
			return nil, fmt.Errorf("%w: entry %d of %d bits needs byte %d, list has %d bytes",
				ErrIndexOutOfRange, index, bitSize, byteOffset, len(buf))
		}

		m, err := r.strategy.mask(bitOffset)
		if err != nil {
			return nil, err
		}

		c := '0'
		if buf[byteOffset]&m != 0 {
			c = '1'
		}

		out[bitSize-1-r.strategy.valueBit(k, bitSize)] = c
	}

	return out, nil
}

// Value returns entry index as an unsigned integer.
func (r *Reader) Value(buf []byte, index uint64, bitSize int) (uint64, error) {
	b, err := r.Get(buf, index, bitSize)
	if err != nil {
		return 0, err
	}

	return ToUint(b)
}

// Writer sets entries inside a list. Encoders and tests use it to build lists.
type Writer struct {
	strategy Strategy
	bitSize  int
	buf      []byte
}

// NewWriter allocates a zeroed list of entries entries, each bitSize bits wide.
func NewWriter(strategy Strategy, entries uint64, bitSize int) (*Writer, error) {
	if !ValidBitSize(bitSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitSize, bitSize)
	}

	total := entries * uint64(bitSize)

	return &Writer{
		strategy: strategy,
		bitSize:  bitSize,
		buf:      make([]byte, (total+7)/8),
	}, nil
}

// Set stores value at entry index using the strategy's bit order.
func (w *Writer) Set(index, value uint64) error {
	if bits.Len64(value) > w.bitSize {
		return fmt.Errorf("bitstring: value %d does not fit in %d bits", value, w.bitSize)
	}

	start, err := startBit(index, w.bitSize)
	if err != nil {
		return err
	}

	for k := 0; k < w.bitSize; k++ {
		pos := start + uint64(k)
		byteOffset, bitOffset := pos/8, pos%8

		if byteOffset >= uint64(len(w.buf)) {
			return fmt.Errorf("%w: entry %d", ErrIndexOutOfRange, index)
		}

		m, err := w.strategy.mask(bitOffset)
		if err != nil {
			return err
		}

		if value>>w.strategy.valueBit(k, w.bitSize)&1 == 1 {
			w.buf[byteOffset] |= m
		} else {
			w.buf[byteOffset] &^= m
		}
	}

	return nil
}

// Bytes returns the list. The slice is shared with the writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// ToUint parses a bit sequence, first bit most significant.
func ToUint(b []rune) (uint64, error) {
	if len(b) == 0 || len(b) > maxBitSize {
		return 0, fmt.Errorf("%w: length %d", ErrInvalidBit, len(b))
	}

	var v uint64

	for _, c := range b {
		switch c {
		case '0':
			v <<= 1
		case '1':
			v = v<<1 | 1
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidBit, c)
		}
	}

	return v, nil
}

func startBit(index uint64, bitSize int) (uint64, error) {
	if !ValidBitSize(bitSize) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBitSize, bitSize)
	}

	hi, lo := bits.Mul64(index, uint64(bitSize))
	if hi != 0 {
		return 0, fmt.Errorf("%w: entry %d overflows", ErrIndexOutOfRange, index)
	}

	return lo, nil
}
