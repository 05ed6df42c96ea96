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

func threeSignerTransaction(t *testing.T) (*Transaction, []PrivateKey) {
	t.Helper()
	payer := testSigner(1)
	second := testSigner(2)
	third := testSigner(3)

	message, err := CompileLegacyMessage(payer.PublicKey(), []Instruction{
		NewInstruction(testKey(2), AccountMetaSlice{
			Meta(second.PublicKey()).SIGNER().WRITE(),
			Meta(third.PublicKey()).SIGNER(),
			Meta(testKey(4)).WRITE(),
		}, []byte{1, 2, 3}),
	}, testHash(9))
	require.NoError(t, err)
	return NewTransactionFromMessage(message), []PrivateKey{payer, second, third}
}

func TestTransaction_partialSigning(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	require.Len(t, tx.Signatures, 3)
	assert.False(t, tx.IsFullySigned())

	require.NoError(t, tx.SignWith(signers[0], signers[1]))

	assert.False(t, tx.IsFullySigned())
	assert.Equal(t, PublicKeySlice{signers[2].PublicKey()}, tx.MissingSigners())
	assert.NoError(t, tx.VerifySignatures(false))
	assert.ErrorIs(t, tx.VerifySignatures(true), ErrMissingSignature)

	out, err := tx.MarshalBinary()
	require.NoError(t, err)
	decoded, err := TransactionFromBytes(out)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.False(t, decoded.Signatures[0].IsZero())
	assert.False(t, decoded.Signatures[1].IsZero())
	assert.True(t, decoded.Signatures[2].IsZero())
	assert.Equal(t, tx.Message, decoded.Message)

	require.NoError(t, decoded.SignWith(signers[2]))
	assert.True(t, decoded.IsFullySigned())
	assert.Empty(t, decoded.MissingSigners())
	assert.NoError(t, decoded.VerifySignatures(true))
}

func TestTransaction_unknownSignerDoesNotMutate(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	stranger := testSigner(42)

	err := tx.SignWith(signers[0], stranger)
	assert.ErrorIs(t, err, ErrUnknownSigner)
	for _, sig := range tx.Signatures {
		assert.True(t, sig.IsZero())
	}

	assert.ErrorIs(t, tx.AddSignature(stranger.PublicKey(), Signature{1}), ErrUnknownSigner)
	assert.True(t, tx.Signatures[0].IsZero())
}

func TestTransaction_resignOverwrites(t *testing.T) {
	tx, signers := threeSignerTransaction(t)

	require.NoError(t, tx.AddSignature(signers[1].PublicKey(), Signature{7}))
	assert.ErrorIs(t, tx.VerifySignatures(false), ErrInvalidSignature)

	require.NoError(t, tx.SignWith(signers[1]))
	assert.NoError(t, tx.VerifySignatures(false))
	first := tx.Signatures[1]

	require.NoError(t, tx.SignWith(signers[1]))
	assert.Equal(t, first, tx.Signatures[1])
}

func TestTransaction_setMessageClearsSignatures(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	require.NoError(t, tx.SignWith(signers...))
	require.True(t, tx.IsFullySigned())

	message, err := CompileLegacyMessage(signers[0].PublicKey(), []Instruction{
		NewInstruction(testKey(2), AccountMetaSlice{Meta(testKey(5))}, nil),
	}, testHash(10))
	require.NoError(t, err)

	tx.SetMessage(message)
	require.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero())
	assert.False(t, tx.IsFullySigned())
}

func TestTransaction_signWithGetter(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	keys := map[PublicKey]PrivateKey{}
	for _, signer := range signers[:2] {
		keys[signer.PublicKey()] = signer
	}
	getter := func(key PublicKey) *PrivateKey {
		if k, ok := keys[key]; ok {
			return &k
		}
		return nil
	}

	_, err := tx.Sign(getter)
	assert.ErrorIs(t, err, ErrMissingSignature)

	sigs, err := tx.PartialSign(getter)
	require.NoError(t, err)
	assert.Len(t, sigs, 3)
	assert.Equal(t, PublicKeySlice{signers[2].PublicKey()}, tx.MissingSigners())

	keys[signers[2].PublicKey()] = signers[2]
	_, err = tx.Sign(getter)
	require.NoError(t, err)
	assert.True(t, tx.IsFullySigned())
}

func TestTransaction_tooLarge(t *testing.T) {
	payer := testSigner(1)
	message, err := CompileLegacyMessage(payer.PublicKey(), []Instruction{
		NewInstruction(testKey(2), nil, make([]byte, PacketDataSize)),
	}, testHash(9))
	require.NoError(t, err)

	tx := NewTransactionFromMessage(message)
	_, err = tx.MarshalBinary()
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestTransaction_signatureCountMustMatchHeader(t *testing.T) {
	tx, _ := threeSignerTransaction(t)
	messageContent, err := tx.Message.MarshalBinary()
	require.NoError(t, err)

	raw := append([]byte{1}, make([]byte, SignatureLength)...)
	raw = append(raw, messageContent...)
	_, err = TransactionFromBytes(raw)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestTransaction_decodeRejectsTrailingBytes(t *testing.T) {
	tx, _ := threeSignerTransaction(t)
	out, err := tx.MarshalBinary()
	require.NoError(t, err)

	_, err = TransactionFromBytes(append(out, 0))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestTransaction_textForms(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	require.NoError(t, tx.SignWith(signers...))

	b64, err := tx.ToBase64()
	require.NoError(t, err)
	fromB64, err := TransactionFromBase64(b64)
	require.NoError(t, err)
	assert.Equal(t, tx, fromB64)

	b58, err := tx.ToBase58()
	require.NoError(t, err)
	fromB58, err := TransactionFromBase58(b58)
	require.NoError(t, err)
	assert.Equal(t, tx, fromB58)

	var viaMethod Transaction
	require.NoError(t, viaMethod.UnmarshalBase64(b64))
	assert.Equal(t, tx, &viaMethod)
}

func TestNewTransaction_legacyAndV0(t *testing.T) {
	payer := testSigner(1)
	a := testKey(3)
	instruction := NewInstruction(testKey(2), AccountMetaSlice{
		Meta(payer.PublicKey()).SIGNER().WRITE(),
		Meta(a).WRITE(),
	}, []byte{1})

	legacy, err := NewTransaction([]Instruction{instruction}, testHash(9))
	require.NoError(t, err)
	assert.Equal(t, MessageVersionLegacy, legacy.Message.GetVersion())
	assert.Equal(t, payer.PublicKey(), legacy.Message.AccountKeys[0])

	v0, err := NewTransactionBuilder().
		AddInstruction(instruction).
		SetRecentBlockHash(testHash(9)).
		SetFeePayer(payer.PublicKey()).
		WithOpt(TransactionAddressTables(map[PublicKey]PublicKeySlice{
			testKey(21): {testKey(50)},
			testKey(20): {a},
		})).
		Build()
	require.NoError(t, err)
	assert.Equal(t, MessageVersionV0, v0.Message.GetVersion())
	assert.Equal(t, PublicKeySlice{payer.PublicKey(), testKey(2)}, v0.Message.AccountKeys)
	assert.Equal(t, PublicKeySlice{testKey(20)}, v0.Message.GetAddressTableLookups().GetTableIDs())

	require.NoError(t, v0.SignWith(payer))
	assert.NoError(t, v0.VerifySignatures(true))

	_, err = NewTransaction(nil, testHash(9))
	assert.Error(t, err)

	_, err = NewTransaction([]Instruction{NewInstruction(testKey(2), AccountMetaSlice{Meta(a)}, nil)}, testHash(9))
	assert.Error(t, err)
}

func TestNewTransaction_durableNonce(t *testing.T) {
	authority := testSigner(1)
	nonceAccount := testKey(30)
	nonceValue := testHash(31)

	tx, err := NewTransaction(
		[]Instruction{NewInstruction(MemoProgramID, nil, []byte("memo"))},
		testHash(9),
		TransactionNonce(nonceAccount, authority.PublicKey(), nonceValue),
	)
	require.NoError(t, err)

	assert.Equal(t, nonceValue, tx.Message.RecentBlockhash)
	assert.Equal(t, authority.PublicKey(), tx.Message.AccountKeys[0])

	decompiled, err := tx.Message.Decompile(nil)
	require.NoError(t, err)
	require.Len(t, decompiled.Instructions, 2)
	advance := decompiled.Instructions[0]
	assert.Equal(t, SystemProgramID, advance.ProgramID())
	assert.Equal(t, []byte{4, 0, 0, 0}, advance.DataBytes)
	assert.Equal(t, AccountMetaSlice{
		NewAccountMeta(nonceAccount, true, false),
		NewAccountMeta(SysVarRecentBlockHashesPubkey, false, false),
		NewAccountMeta(authority.PublicKey(), true, true),
	}, advance.AccountValues)

	assert.Contains(t, tx.String(), "AdvanceNonceAccount")
}

func TestTransaction_MarshalBinary_signatureCount(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	require.NoError(t, tx.SignWith(signers[0]))
	tx.Signatures = tx.Signatures[:1]

	_, err := tx.MarshalBinary()
	assert.ErrorIs(t, err, ErrMalformedMessage)

	tx.Signatures = nil
	out, err := tx.MarshalBinary()
	require.NoError(t, err)
	decoded, err := TransactionFromBytes(out)
	require.NoError(t, err)
	assert.Len(t, decoded.Signatures, 3)
}

func TestTransaction_String(t *testing.T) {
	tx, signers := threeSignerTransaction(t)
	require.NoError(t, tx.SignWith(signers[0]))

	out := tx.String()
	assert.Contains(t, out, "Signatures[len=3]")
	assert.Contains(t, out, "<absent>")
	assert.Contains(t, out, "Instructions[len=1]")
	assert.Contains(t, out, "data[len=3 bytes]")
}

func FuzzTransactionFromBytes(f *testing.F) {
	payer := testSigner(1)
	message, err := CompileLegacyMessage(payer.PublicKey(), []Instruction{
		NewInstruction(testKey(2), AccountMetaSlice{Meta(testKey(3)).WRITE()}, []byte{1}),
	}, testHash(9))
	if err != nil {
		f.Fatal(err)
	}
	tx := NewTransactionFromMessage(message)
	if err := tx.SignWith(payer); err != nil {
		f.Fatal(err)
	}
	seed, err := tx.MarshalBinary()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Fuzz(func(t *testing.T, in []byte) {
		if len(in) > PacketDataSize {
			return
		}
		decoded, err := TransactionFromBytes(in)
		if err != nil {
			return
		}
		out, err := decoded.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, in, out)
	})
}
