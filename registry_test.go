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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestMemo(accounts []*AccountMeta, data []byte) (any, error) {
	return string(data), nil
}

func TestRegisterInstructionDecoder(t *testing.T) {
	program := testKey(99)
	RegisterInstructionDecoder(program, decodeTestMemo)
	// same function again is tolerated
	RegisterInstructionDecoder(program, decodeTestMemo)

	assert.Panics(t, func() {
		RegisterInstructionDecoder(program, func(accounts []*AccountMeta, data []byte) (any, error) {
			return nil, nil
		})
	})

	decoded, err := DecodeInstruction(program, nil, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", decoded)
	assert.Contains(t, RegisteredInstructionDecoders(), program)
	assert.Contains(t, RegisteredInstructionDecoders(), SystemProgramID)

	_, err = DecodeInstruction(testKey(98), nil, nil)
	assert.ErrorIs(t, err, ErrInstructionDecoderNotFound)
}

func TestDecodeSystemInstruction(t *testing.T) {
	ix := NewAdvanceNonceAccountInstruction(testKey(1), testKey(2))
	data, err := ix.Data()
	require.NoError(t, err)

	decoded, err := DecodeInstruction(SystemProgramID, ix.Accounts(), data)
	require.NoError(t, err)
	advance, ok := decoded.(*AdvanceNonceAccount)
	require.True(t, ok)
	assert.Equal(t, testKey(1), advance.NonceAccount.PublicKey)
	assert.Equal(t, testKey(2), advance.NonceAuthority.PublicKey)

	// transfer is not decoded
	_, err = DecodeInstruction(SystemProgramID, ix.Accounts(), []byte{2, 0, 0, 0})
	assert.Error(t, err)
	_, err = DecodeInstruction(SystemProgramID, ix.Accounts(), []byte{4})
	assert.Error(t, err)
}

func TestUint8SliceAsNum_JSON(t *testing.T) {
	out, err := json.Marshal(Uint8SliceAsNum{0, 7, 255})
	require.NoError(t, err)
	assert.JSONEq(t, `[0,7,255]`, string(out))

	var back Uint8SliceAsNum
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, Uint8SliceAsNum{0, 7, 255}, back)

	assert.Error(t, json.Unmarshal([]byte(`[256]`), &back))
}
