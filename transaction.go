// Copyright 2021 github.com/gagliardetto
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 dfuse Platform Inc.
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
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/treeout"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/yydsqu/solana-txkit/text"
)

const (
	// PacketDataSize is the largest serialized transaction that fits in a
	// single network packet.
	PacketDataSize = 1280 - 40 - 8

	// MaxLoaderChunkSize bounds the payload of one program-upload write,
	// leaving 300 bytes for the signatures, blockhash and instruction
	// framing of the transaction that carries it.
	MaxLoaderChunkSize = PacketDataSize - 300
)

var _ bin.EncoderDecoder = &Transaction{}

// Transaction is a message with one signature slot per required signer.
//
// Signing mutates the slots in place. A Transaction is not safe for
// concurrent use: callers signing the same transaction from several
// goroutines must serialise access themselves.
type Transaction struct {
	// One slot per required signer, aligned with the first
	// `message.header.numRequiredSignatures` static keys. A zero signature
	// marks an absent slot. The first one is used as the transaction id.
	Signatures []Signature `json:"signatures"`

	// Defines the content of the transaction.
	Message Message `json:"message"`
}

// NewTransactionFromMessage wraps message with empty signature slots.
func NewTransactionFromMessage(message *Message) *Transaction {
	tx := &Transaction{}
	tx.SetMessage(message)
	return tx
}

// SetMessage replaces the message and clears every signature slot, since
// signatures over the previous message cannot be valid for the new one.
func (tx *Transaction) SetMessage(message *Message) {
	tx.Message = *message
	tx.Signatures = make([]Signature, len(tx.Message.signerKeys()))
}

// ensureSlots sizes the signature slots to the header when they were never
// allocated. Any other mismatch is an error.
func (tx *Transaction) ensureSlots() error {
	signerKeys := tx.Message.signerKeys()
	if len(tx.Signatures) == 0 {
		tx.Signatures = make([]Signature, len(signerKeys))
		return nil
	}
	if len(tx.Signatures) != len(signerKeys) {
		return fmt.Errorf("invalid signatures length, expected %d, actual %d", len(signerKeys), len(tx.Signatures))
	}
	return nil
}

// signerIndex returns the slot of key among the required signers.
func (tx *Transaction) signerIndex(key PublicKey) int {
	return tx.Message.signerKeys().Index(key)
}

// SignWith signs the message with every key. Each key must belong to a
// required signer; otherwise ErrUnknownSigner is returned and no slot is
// touched. Signing again with the same key overwrites its slot.
func (tx *Transaction) SignWith(keys ...PrivateKey) error {
	if err := tx.ensureSlots(); err != nil {
		return err
	}
	slots := make([]int, len(keys))
	for i, key := range keys {
		if len(key) != 64 {
			return fmt.Errorf("%w: private key %d has invalid length %d", ErrUnknownSigner, i, len(key))
		}
		slot := tx.signerIndex(key.PublicKey())
		if slot < 0 {
			return fmt.Errorf("%w: %s is not a required signer", ErrUnknownSigner, key.PublicKey())
		}
		slots[i] = slot
	}

	messageContent, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("unable to encode message for signing: %w", err)
	}
	signatures := make([]Signature, len(keys))
	for i, key := range keys {
		if signatures[i], err = key.Sign(messageContent); err != nil {
			return fmt.Errorf("failed to sign with key %q: %w", key.PublicKey(), err)
		}
	}
	for i, slot := range slots {
		tx.Signatures[slot] = signatures[i]
	}
	zlog.Debug("signed transaction", zap.Int("signatures", len(keys)), zap.Int("required", len(tx.Signatures)))
	return nil
}

type privateKeyGetter func(key PublicKey) *PrivateKey

// PartialSign signs with every required signer the getter knows a key for,
// leaving other slots as they are.
func (tx *Transaction) PartialSign(getter privateKeyGetter) (out []Signature, err error) {
	var keys []PrivateKey
	for _, key := range tx.Message.signerKeys() {
		privateKey := getter(key)
		if privateKey == nil {
			continue
		}
		if privateKey.PublicKey() != key {
			return nil, fmt.Errorf("invalid public key for signing, expected %s, actual %s", key, privateKey.PublicKey())
		}
		keys = append(keys, *privateKey)
	}
	if err := tx.SignWith(keys...); err != nil {
		return nil, err
	}
	return tx.Signatures, nil
}

// Sign is PartialSign that requires the getter to know every signer.
func (tx *Transaction) Sign(getter privateKeyGetter) (out []Signature, err error) {
	for _, key := range tx.Message.signerKeys() {
		if getter(key) == nil {
			return nil, fmt.Errorf("%w: signer key %q not found", ErrMissingSignature, key.String())
		}
	}
	return tx.PartialSign(getter)
}

// AddSignature stores a signature produced elsewhere for pubkey.
func (tx *Transaction) AddSignature(pubkey PublicKey, signature Signature) error {
	slot := tx.signerIndex(pubkey)
	if slot < 0 {
		return fmt.Errorf("%w: %s is not a required signer", ErrUnknownSigner, pubkey)
	}
	if err := tx.ensureSlots(); err != nil {
		return err
	}
	tx.Signatures[slot] = signature
	return nil
}

// MissingSigners returns the required signers whose slot is still empty.
func (tx *Transaction) MissingSigners() PublicKeySlice {
	var out PublicKeySlice
	for i, key := range tx.Message.signerKeys() {
		if i >= len(tx.Signatures) || tx.Signatures[i].IsZero() {
			out = append(out, key)
		}
	}
	return out
}

// IsFullySigned reports whether every required signature is present.
func (tx *Transaction) IsFullySigned() bool {
	return len(tx.Signatures) == len(tx.Message.signerKeys()) && len(tx.MissingSigners()) == 0
}

// VerifySignatures checks every present signature against the serialized
// message. Absent slots fail only when requireAllSignatures is set.
func (tx *Transaction) VerifySignatures(requireAllSignatures bool) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}

	signers := tx.Message.signerKeys()
	if len(signers) != len(tx.Signatures) {
		return fmt.Errorf(
			"got %v signers, but %v signatures",
			len(signers),
			len(tx.Signatures),
		)
	}

	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			if requireAllSignatures {
				return fmt.Errorf("%w: %s", ErrMissingSignature, signers[i])
			}
			continue
		}
		if !sig.Verify(signers[i], msg) {
			return fmt.Errorf("%w: by %s", ErrInvalidSignature, signers[i])
		}
	}
	return nil
}

// MarshalBinary serializes the signatures followed by the message and fails
// with ErrMessageTooLarge above PacketDataSize.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	messageContent, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode tx.Message to binary: %w", err)
	}
	signerCount := len(tx.Message.signerKeys())
	signatures := tx.Signatures
	switch len(signatures) {
	case 0:
		signatures = make([]Signature, signerCount)
	case signerCount:
	default:
		return nil, fmt.Errorf("%w: %d signature(s) for %d required signer(s)", ErrMalformedMessage, len(signatures), signerCount)
	}

	output := make([]byte, 0, CompactU16Size(len(signatures))+len(signatures)*SignatureLength+len(messageContent))
	err = EncodeCompactArray(&output, signatures, func(buf *[]byte, sig Signature) error {
		*buf = append(*buf, sig[:]...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signatures: %w", err)
	}
	output = append(output, messageContent...)

	if len(output) > PacketDataSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrMessageTooLarge, len(output), PacketDataSize)
	}
	return output, nil
}

func (tx *Transaction) MarshalWithEncoder(encoder *bin.Encoder) error {
	out, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	return encoder.WriteBytes(out, false)
}

// UnmarshalWithDecoder decodes a transaction from the decoder. The number of
// signatures must match the message header. On failure tx is left untouched.
func (tx *Transaction) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	signatures, err := DecodeCompactArray(decoder, SignatureLength, func(decoder *bin.Decoder) (Signature, error) {
		raw, err := readBytes(decoder, SignatureLength, "signature")
		if err != nil {
			return Signature{}, err
		}
		return SignatureFromBytes(raw), nil
	})
	if err != nil {
		return fmt.Errorf("unable to read signatures: %w", err)
	}

	var message Message
	if err := message.UnmarshalWithDecoder(decoder); err != nil {
		return fmt.Errorf("unable to decode tx.Message: %w", err)
	}
	if len(signatures) != int(message.Header.NumRequiredSignatures) {
		return fmt.Errorf("%w: %d signature(s) for %d required signer(s)",
			ErrMalformedMessage, len(signatures), message.Header.NumRequiredSignatures)
	}
	tx.Signatures = signatures
	tx.Message = message
	return nil
}

func (tx *Transaction) UnmarshalBase64(b64 string) error {
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	out, err := TransactionFromBytes(b)
	if err != nil {
		return err
	}
	*tx = *out
	return nil
}

// TransactionFromDecoder decodes a transaction from a decoder.
func TransactionFromDecoder(decoder *bin.Decoder) (*Transaction, error) {
	out := new(Transaction)
	if err := out.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return out, nil
}

// TransactionFromBytes decodes a transaction that spans all of data.
func TransactionFromBytes(data []byte) (*Transaction, error) {
	decoder := bin.NewBinDecoder(data)
	out, err := TransactionFromDecoder(decoder)
	if err != nil {
		return nil, err
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing byte(s)", ErrMalformedMessage, decoder.Remaining())
	}
	return out, nil
}

func TransactionFromBase64(b64 string) (*Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return TransactionFromBytes(data)
}

func TransactionFromBase58(b58 string) (*Transaction, error) {
	data, err := base58.Decode(b58)
	if err != nil {
		return nil, err
	}
	return TransactionFromBytes(data)
}

func MustTransactionFromDecoder(decoder *bin.Decoder) *Transaction {
	out, err := TransactionFromDecoder(decoder)
	if err != nil {
		panic(err)
	}
	return out
}

func (tx *Transaction) ToBase64() (string, error) {
	out, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (tx *Transaction) MustToBase64() string {
	out, err := tx.ToBase64()
	if err != nil {
		panic(err)
	}
	return out
}

func (tx *Transaction) ToBase58() (string, error) {
	out, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base58.Encode(out), nil
}

func (tx *Transaction) IsSigner(account PublicKey) bool {
	return tx.Message.IsSigner(account)
}

func (tx *Transaction) ResolveProgramIDIndex(programIDIndex uint16) (PublicKey, error) {
	return tx.Message.ResolveProgramIDIndex(programIDIndex)
}

func (tx *Transaction) GetProgramIDs() (PublicKeySlice, error) {
	programIDs := make(PublicKeySlice, 0)
	for ixi, inst := range tx.Message.Instructions {
		progKey, err := tx.ResolveProgramIDIndex(inst.ProgramIDIndex)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve program ID for instruction %d: %w", ixi, err)
		}
		programIDs = append(programIDs, progKey)
	}
	return programIDs, nil
}

func (tx *Transaction) EncodeTree(encoder *text.TreeEncoder) (int, error) {
	tx.EncodeToTree(encoder)
	return encoder.WriteString(encoder.Tree.String())
}

func (tx *Transaction) String() string {
	buf := new(bytes.Buffer)
	_, err := tx.EncodeTree(text.NewTreeEncoder(buf, ""))
	if err != nil {
		panic(err)
	}
	return buf.String()
}

func (tx *Transaction) EncodeToTree(parent treeout.Branches) {
	parent.ParentFunc(func(txTree treeout.Branches) {
		txTree.Child(fmt.Sprintf("Signatures[len=%v]", len(tx.Signatures))).ParentFunc(func(signaturesBranch treeout.Branches) {
			for _, sig := range tx.Signatures {
				if sig.IsZero() {
					signaturesBranch.Child(text.RedBG("<absent>"))
					continue
				}
				signaturesBranch.Child(sig.String())
			}
		})

		txTree.Child("Message").ParentFunc(func(messageBranch treeout.Branches) {
			tx.Message.EncodeToTree(messageBranch)
		})
	})

	// Lookup-table accounts are not known here; they render as placeholders.
	metas := tx.Message.staticAccountMetas()

	parent.Child(fmt.Sprintf("Instructions[len=%v]", len(tx.Message.Instructions))).ParentFunc(func(message treeout.Branches) {
		for _, inst := range tx.Message.Instructions {
			progKey, err := tx.ResolveProgramIDIndex(inst.ProgramIDIndex)
			if err != nil {
				message.Child(fmt.Sprintf(text.RedBG("cannot ResolveProgramIDIndex: %s"), err))
				continue
			}
			accounts := make([]*AccountMeta, len(inst.Accounts))
			for i, idx := range inst.Accounts {
				accounts[i] = metas.Get(int(idx))
			}
			decodedInstruction, err := DecodeInstruction(progKey, accounts, inst.Data)
			if err == nil {
				if enToTree, ok := decodedInstruction.(text.EncodableToTree); ok {
					enToTree.EncodeToTree(message)
				} else {
					message.Child(spew.Sdump(decodedInstruction))
				}
				continue
			}
			inst := inst
			message.Child(text.IndigoBG("Program") + ": " + text.Bold(ProgramName(progKey)) + " " + text.ColorizeBG(progKey.String())).
				//
				ParentFunc(func(programBranch treeout.Branches) {
					programBranch.Child(text.Purple(text.Bold("Instruction")) + ": " + text.Bold("<unknown>")).
						//
						ParentFunc(func(instructionBranch treeout.Branches) {
							// Data of the instruction call:
							instructionBranch.Child(text.Sf("data[len=%v bytes]", len(inst.Data))).ParentFunc(func(paramsBranch treeout.Branches) {
								paramsBranch.Child(bin.FormatByteSlice(inst.Data))
							})

							// Accounts of the instruction call:
							instructionBranch.Child(text.Sf("accounts[len=%v]", len(accounts))).ParentFunc(func(accountsBranch treeout.Branches) {
								for i := range accounts {
									accountsBranch.Child(formatMeta(text.Sf("accounts[%v]", i), accounts[i]))
								}
							})
						})
				})
		}
	})
}

// staticAccountMetas returns metas for the static keys only.
func (m *Message) staticAccountMetas() AccountMetaSlice {
	out := make(AccountMetaSlice, len(m.AccountKeys))
	for i, key := range m.AccountKeys {
		out[i] = &AccountMeta{
			PublicKey:  key,
			IsSigner:   m.IsSignerIndex(i),
			IsWritable: m.IsWritableIndex(i),
		}
	}
	return out
}

func formatMeta(name string, meta *AccountMeta) string {
	if meta == nil {
		return text.Shakespeare(name) + ": " + "<address table lookup>"
	}
	out := text.Shakespeare(name) + ": " + text.ColorizeBG(meta.PublicKey.String())
	out += " ["
	if meta.IsWritable {
		out += "WRITE"
	}
	if meta.IsSigner {
		if meta.IsWritable {
			out += ", "
		}
		out += "SIGN"
	}
	out += "] "
	return out
}
