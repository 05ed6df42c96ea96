// Copyright 2021 github.com/gagliardetto
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package solana

import (
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
)

// Compact-u16 ("short_vec") is the length prefix used by every sequence in
// the wire format: 7 data bits per byte, high bit set when another byte
// follows, at most 3 bytes, at most math.MaxUint16.
const maxCompactU16Bytes = 3

// EncodeCompactU16Length appends the compact-u16 encoding of ln to buf.
func EncodeCompactU16Length(buf *[]byte, ln int) error {
	if ln < 0 || ln > math.MaxUint16 {
		return fmt.Errorf("%w: %d is outside [0, %d]", ErrMalformedLength, ln, math.MaxUint16)
	}
	bin.EncodeCompactU16Length(buf, ln)
	return nil
}

// CompactU16Size returns the number of bytes EncodeCompactU16Length
// writes for ln.
func CompactU16Size(ln int) int {
	switch {
	case ln < 0x80:
		return 1
	case ln < 0x4000:
		return 2
	default:
		return 3
	}
}

// DecodeCompactU16 decodes a compact-u16 from the start of b and returns the
// value and the number of bytes consumed.
//
// Truncated input, continuation past the third byte, values above
// math.MaxUint16 and non-canonical encodings (a trailing zero byte) all
// fail with ErrMalformedLength.
func DecodeCompactU16(b []byte) (int, int, error) {
	value := 0
	for i := 0; i < maxCompactU16Bytes; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("%w: truncated after %d byte(s)", ErrMalformedLength, i)
		}
		elem := b[i]
		value |= int(elem&0x7f) << (7 * i)
		if elem&0x80 != 0 {
			continue
		}
		if i > 0 && elem == 0 {
			return 0, 0, fmt.Errorf("%w: non-canonical encoding", ErrMalformedLength)
		}
		if value > math.MaxUint16 {
			return 0, 0, fmt.Errorf("%w: value %d overflows u16", ErrMalformedLength, value)
		}
		return value, i + 1, nil
	}
	return 0, 0, fmt.Errorf("%w: continuation past %d bytes", ErrMalformedLength, maxCompactU16Bytes)
}

// readCompactU16 reads a compact-u16 from the decoder, with the same rules
// as DecodeCompactU16.
func readCompactU16(decoder *bin.Decoder) (int, error) {
	n := decoder.Remaining()
	if n == 0 {
		return 0, fmt.Errorf("%w: truncated after 0 byte(s)", ErrMalformedLength)
	}
	if n > maxCompactU16Bytes {
		n = maxCompactU16Bytes
	}
	head, err := decoder.Peek(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedLength, err)
	}
	value, size, err := DecodeCompactU16(head)
	if err != nil {
		return 0, err
	}
	if _, err := decoder.ReadNBytes(size); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedLength, err)
	}
	return value, nil
}

// EncodeCompactArray appends the compact-u16 item count followed by every
// item, as produced by encodeItem.
func EncodeCompactArray[T any](buf *[]byte, items []T, encodeItem func(buf *[]byte, item T) error) error {
	if err := EncodeCompactU16Length(buf, len(items)); err != nil {
		return err
	}
	for i, item := range items {
		if err := encodeItem(buf, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// DecodeCompactArray reads a compact-u16 item count and then that many
// items. minItemSize is the smallest encoded size of a single item; a count
// that cannot fit in the remaining input fails with ErrMalformedMessage
// before anything is allocated.
func DecodeCompactArray[T any](decoder *bin.Decoder, minItemSize int, decodeItem func(decoder *bin.Decoder) (T, error)) ([]T, error) {
	count, err := readCompactU16(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: item count: %w", ErrMalformedMessage, err)
	}
	if minItemSize < 1 {
		minItemSize = 1
	}
	if count > decoder.Remaining()/minItemSize {
		return nil, fmt.Errorf("%w: %d item(s) of at least %d byte(s) do not fit in remaining %d byte(s)",
			ErrMalformedMessage, count, minItemSize, decoder.Remaining())
	}
	out := make([]T, count)
	for i := 0; i < count; i++ {
		out[i], err = decodeItem(decoder)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return out, nil
}

// readBytes reads exactly n bytes into a fresh slice.
func readBytes(decoder *bin.Decoder, n int, what string) ([]byte, error) {
	if n > decoder.Remaining() {
		return nil, fmt.Errorf("%w: %s needs %d byte(s), %d remaining", ErrMalformedMessage, what, n, decoder.Remaining())
	}
	if n == 0 {
		return []byte{}, nil
	}
	raw, err := decoder.ReadNBytes(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, what, err)
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// readCompactBytes reads a compact-u16 length prefixed byte string.
func readCompactBytes(decoder *bin.Decoder, what string) ([]byte, error) {
	ln, err := readCompactU16(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s length: %w", ErrMalformedMessage, what, err)
	}
	return readBytes(decoder, ln, what)
}
