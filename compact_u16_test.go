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
	"errors"
	"math"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactU16_knownEncodings(t *testing.T) {
	tests := []struct {
		value   int
		encoded []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{65535, []byte{0xff, 0xff, 0x03}},
	}
	for _, test := range tests {
		var buf []byte
		require.NoError(t, EncodeCompactU16Length(&buf, test.value))
		assert.Equal(t, test.encoded, buf, "encode %d", test.value)
		assert.Equal(t, len(test.encoded), CompactU16Size(test.value))

		value, consumed, err := DecodeCompactU16(test.encoded)
		require.NoError(t, err)
		assert.Equal(t, test.value, value)
		assert.Equal(t, len(test.encoded), consumed)
	}
}

func TestCompactU16_roundTripAll(t *testing.T) {
	for n := 0; n <= math.MaxUint16; n++ {
		var buf []byte
		require.NoError(t, EncodeCompactU16Length(&buf, n))
		require.Equal(t, CompactU16Size(n), len(buf))

		value, consumed, err := DecodeCompactU16(buf)
		require.NoError(t, err)
		require.Equal(t, n, value)
		require.Equal(t, len(buf), consumed)
	}
}

func TestCompactU16_encodeOutOfRange(t *testing.T) {
	var buf []byte
	assert.ErrorIs(t, EncodeCompactU16Length(&buf, -1), ErrMalformedLength)
	assert.ErrorIs(t, EncodeCompactU16Length(&buf, math.MaxUint16+1), ErrMalformedLength)
	assert.Empty(t, buf)
}

func TestCompactU16_decodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", []byte{}},
		{"truncated after one byte", []byte{0x80}},
		{"truncated after two bytes", []byte{0xff, 0xff}},
		{"continuation past three bytes", []byte{0x80, 0x80, 0x80, 0x01}},
		{"overflow", []byte{0xff, 0xff, 0x04}},
		{"non-canonical two bytes", []byte{0x80, 0x00}},
		{"non-canonical three bytes", []byte{0xff, 0x80, 0x00}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := DecodeCompactU16(test.in)
			assert.ErrorIs(t, err, ErrMalformedLength)
		})
	}
}

func TestCompactU16_readFromDecoder(t *testing.T) {
	decoder := bin.NewBinDecoder([]byte{0xac, 0x02, 0x07})
	value, err := readCompactU16(decoder)
	require.NoError(t, err)
	assert.Equal(t, 300, value)
	assert.Equal(t, 1, decoder.Remaining())

	_, err = readCompactU16(bin.NewBinDecoder([]byte{0x80}))
	assert.ErrorIs(t, err, ErrMalformedLength)
}

func TestCompactArray_roundTrip(t *testing.T) {
	items := []uint8{9, 8, 7}
	var buf []byte
	require.NoError(t, EncodeCompactArray(&buf, items, appendByte))
	assert.Equal(t, []byte{3, 9, 8, 7}, buf)

	out, err := DecodeCompactArray(bin.NewBinDecoder(buf), 1, func(decoder *bin.Decoder) (uint8, error) {
		b, err := readBytes(decoder, 1, "item")
		if err != nil {
			return 0, err
		}
		return b[0], nil
	})
	require.NoError(t, err)
	assert.Equal(t, items, out)
}

func TestCompactArray_itemError(t *testing.T) {
	boom := errors.New("boom")
	var buf []byte
	err := EncodeCompactArray(&buf, []int{1, 2}, func(buf *[]byte, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestCompactArray_truncated(t *testing.T) {
	decodeByte := func(decoder *bin.Decoder) (uint8, error) {
		b, err := readBytes(decoder, 1, "item")
		if err != nil {
			return 0, err
		}
		return b[0], nil
	}

	// the count itself is cut short
	_, err := DecodeCompactArray(bin.NewBinDecoder([]byte{0x80}), 1, decodeByte)
	assert.ErrorIs(t, err, ErrMalformedLength)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	// the count promises more items than remain
	_, err = DecodeCompactArray(bin.NewBinDecoder([]byte{5, 1, 2}), 1, decodeByte)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func FuzzDecodeCompactU16(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x80, 0x01})
	f.Add([]byte{0xff, 0xff, 0x03})
	f.Add([]byte{0x80, 0x00})
	f.Fuzz(func(t *testing.T, in []byte) {
		value, consumed, err := DecodeCompactU16(in)
		if err != nil {
			return
		}
		var buf []byte
		require.NoError(t, EncodeCompactU16Length(&buf, value))
		require.Equal(t, in[:consumed], buf)
	})
}
