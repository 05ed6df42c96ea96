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
	"encoding/base64"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/treeout"

	"github.com/yydsqu/solana-txkit/text"
)

var _ bin.EncoderDecoder = &Message{}

// MessageVersionPrefix is set on the first byte of a versioned message; the
// low 7 bits carry the version number.
const MessageVersionPrefix = 0x80

type MessageAddressTableLookupSlice []MessageAddressTableLookup

// NumLookups returns the number of accounts from all the lookups.
func (lookups MessageAddressTableLookupSlice) NumLookups() int {
	count := 0
	for _, lookup := range lookups {
		count += len(lookup.ReadonlyIndexes)
		count += len(lookup.WritableIndexes)
	}
	return count
}

func (lookups MessageAddressTableLookupSlice) NumWritableLookups() int {
	count := 0
	for _, lookup := range lookups {
		count += len(lookup.WritableIndexes)
	}
	return count
}

func (lookups MessageAddressTableLookupSlice) GetTableIDs() PublicKeySlice {
	if lookups == nil {
		return nil
	}
	ids := make(PublicKeySlice, 0)
	for _, lookup := range lookups {
		ids.UniqueAppend(lookup.AccountKey)
	}
	return ids
}

type MessageAddressTableLookup struct {
	AccountKey      PublicKey       `json:"accountKey"` // The account key of the address table.
	WritableIndexes Uint8SliceAsNum `json:"writableIndexes"`
	ReadonlyIndexes Uint8SliceAsNum `json:"readonlyIndexes"`
}

type MessageVersion int

const (
	MessageVersionLegacy MessageVersion = 0 // default
	MessageVersionV0     MessageVersion = 1 // v0
)

func (v MessageVersion) String() string {
	switch v {
	case MessageVersionLegacy:
		return "legacy"
	case MessageVersionV0:
		return "v0"
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// Message is a compiled transaction message. It is produced once by
// CompileLegacyMessage, CompileV0Message or decoding, and is not mutated by
// this package afterwards.
type Message struct {
	version MessageVersion

	// Static account keys, in tier order. The first
	// `message.header.numRequiredSignatures` public keys must sign the transaction.
	AccountKeys PublicKeySlice `json:"accountKeys"`

	// Details the account types and signatures required by the transaction.
	Header MessageHeader `json:"header"`

	// A base-58 encoded hash of a recent block in the ledger used to
	// prevent transaction duplication and to give transactions lifetimes.
	RecentBlockhash Hash `json:"recentBlockhash"`

	// List of program instructions that will be executed in sequence
	// and committed in one atomic transaction if all succeed.
	Instructions []CompiledInstruction `json:"instructions"`

	// List of address table lookups used to load additional accounts for this transaction.
	AddressTableLookups MessageAddressTableLookupSlice `json:"addressTableLookups"`
}

func (m *Message) SetVersion(version MessageVersion) *Message {
	switch version {
	case MessageVersionV0, MessageVersionLegacy:
	default:
		panic(fmt.Errorf("invalid message version: %d", version))
	}
	m.version = version
	return m
}

// GetVersion returns the message version.
func (m *Message) GetVersion() MessageVersion {
	return m.version
}

func (m *Message) IsVersioned() bool {
	return m.version != MessageVersionLegacy
}

// GetAddressTableLookups returns the lookups used by this message.
func (m *Message) GetAddressTableLookups() MessageAddressTableLookupSlice {
	return m.AddressTableLookups
}

func (m *Message) NumLookups() int {
	return m.AddressTableLookups.NumLookups()
}

func (m *Message) NumWritableLookups() int {
	return m.AddressTableLookups.NumWritableLookups()
}

func (m *Message) numStaticAccounts() int {
	return len(m.AccountKeys)
}

func (m Message) MarshalJSON() ([]byte, error) {
	if m.version == MessageVersionLegacy {
		out := struct {
			AccountKeys     []string              `json:"accountKeys"`
			Header          MessageHeader         `json:"header"`
			RecentBlockhash string                `json:"recentBlockhash"`
			Instructions    []CompiledInstruction `json:"instructions"`
		}{
			AccountKeys:     m.AccountKeys.ToBase58(),
			Header:          m.Header,
			RecentBlockhash: m.RecentBlockhash.String(),
			Instructions:    m.Instructions,
		}
		return json.Marshal(out)
	}
	out := struct {
		AccountKeys         []string                    `json:"accountKeys"`
		Header              MessageHeader               `json:"header"`
		RecentBlockhash     string                      `json:"recentBlockhash"`
		Instructions        []CompiledInstruction       `json:"instructions"`
		AddressTableLookups []MessageAddressTableLookup `json:"addressTableLookups"`
	}{
		AccountKeys:         m.AccountKeys.ToBase58(),
		Header:              m.Header,
		RecentBlockhash:     m.RecentBlockhash.String(),
		Instructions:        m.Instructions,
		AddressTableLookups: m.AddressTableLookups,
	}
	if out.AddressTableLookups == nil {
		out.AddressTableLookups = make([]MessageAddressTableLookup, 0)
	}
	return json.Marshal(out)
}

func (m *Message) EncodeToTree(txTree treeout.Branches) {
	txTree.Child(text.Sf("Version: %s", m.version))
	txTree.Child(text.Sf("RecentBlockhash: %s", m.RecentBlockhash))

	txTree.Child(fmt.Sprintf("AccountKeys[len=%v]", m.numStaticAccounts()+m.NumLookups())).ParentFunc(func(accountKeysBranch treeout.Branches) {
		for _, key := range m.AccountKeys {
			accountKeysBranch.Child(text.ColorizeBG(key.String()))
		}
		for _, lookup := range m.AddressTableLookups {
			for _, idx := range lookup.WritableIndexes {
				accountKeysBranch.Child(text.Sf("%s[%d] (from Address Table Lookup, writable)", text.ColorizeBG(lookup.AccountKey.String()), idx))
			}
		}
		for _, lookup := range m.AddressTableLookups {
			for _, idx := range lookup.ReadonlyIndexes {
				accountKeysBranch.Child(text.Sf("%s[%d] (from Address Table Lookup)", text.ColorizeBG(lookup.AccountKey.String()), idx))
			}
		}
	})

	if m.IsVersioned() {
		txTree.Child(fmt.Sprintf("AddressTableLookups[len=%v]", len(m.AddressTableLookups))).ParentFunc(func(lookupsBranch treeout.Branches) {
			for _, lookup := range m.AddressTableLookups {
				lookup := lookup
				lookupsBranch.Child(text.Sf("%s", text.ColorizeBG(lookup.AccountKey.String()))).ParentFunc(func(lookupBranch treeout.Branches) {
					lookupBranch.Child(text.Sf("WritableIndexes: %v", []uint8(lookup.WritableIndexes)))
					lookupBranch.Child(text.Sf("ReadonlyIndexes: %v", []uint8(lookup.ReadonlyIndexes)))
				})
			}
		})
	}

	txTree.Child("Header").ParentFunc(func(message treeout.Branches) {
		m.Header.EncodeToTree(message)
	})
}

func (m *Message) MarshalBinary() ([]byte, error) {
	switch m.version {
	case MessageVersionV0:
		return m.MarshalV0()
	case MessageVersionLegacy:
		return m.MarshalLegacy()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMessageVersion, m.version)
	}
}

// MarshalLegacy encodes the message without a version prefix. A message
// carrying address table lookups cannot be encoded this way.
func (m *Message) MarshalLegacy() ([]byte, error) {
	if len(m.AddressTableLookups) > 0 {
		return nil, fmt.Errorf("%w: legacy message cannot carry %d address table lookup(s)", ErrMalformedMessage, len(m.AddressTableLookups))
	}
	buf := make([]byte, 0, m.encodedBodySize())
	if err := m.appendBody(&buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MarshalV0 encodes the message with the version prefix byte and trailing
// address table lookups.
func (m *Message) MarshalV0() ([]byte, error) {
	buf := make([]byte, 0, 1+m.encodedBodySize()+CompactU16Size(len(m.AddressTableLookups)))
	// v0 is wire version number 0
	buf = append(buf, MessageVersionPrefix|0)
	if err := m.appendBody(&buf); err != nil {
		return nil, err
	}
	err := EncodeCompactArray(&buf, m.AddressTableLookups, func(buf *[]byte, lookup MessageAddressTableLookup) error {
		*buf = append(*buf, lookup.AccountKey[:]...)
		if err := EncodeCompactArray(buf, []uint8(lookup.WritableIndexes), appendByte); err != nil {
			return fmt.Errorf("writable indexes: %w", err)
		}
		if err := EncodeCompactArray(buf, []uint8(lookup.ReadonlyIndexes), appendByte); err != nil {
			return fmt.Errorf("readonly indexes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("address table lookups: %w", err)
	}
	return buf, nil
}

func appendByte(buf *[]byte, b uint8) error {
	*buf = append(*buf, b)
	return nil
}

// appendBody writes the part shared by both layouts: header, static keys,
// blockhash and instructions.
func (m *Message) appendBody(buf *[]byte) error {
	*buf = append(*buf,
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	)

	err := EncodeCompactArray(buf, m.AccountKeys, func(buf *[]byte, key PublicKey) error {
		*buf = append(*buf, key[:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("account keys: %w", err)
	}

	*buf = append(*buf, m.RecentBlockhash[:]...)

	err = EncodeCompactArray(buf, m.Instructions, func(buf *[]byte, instruction CompiledInstruction) error {
		if instruction.ProgramIDIndex > math.MaxUint8 {
			return fmt.Errorf("%w: program id index %d does not fit in a byte", ErrMalformedMessage, instruction.ProgramIDIndex)
		}
		*buf = append(*buf, byte(instruction.ProgramIDIndex))
		if err := EncodeCompactArray(buf, []uint8(instruction.Accounts), appendByte); err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		if err := EncodeCompactU16Length(buf, len(instruction.Data)); err != nil {
			return fmt.Errorf("data: %w", err)
		}
		*buf = append(*buf, instruction.Data...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("instructions: %w", err)
	}
	return nil
}

func (m *Message) encodedBodySize() int {
	size := 3 + CompactU16Size(len(m.AccountKeys)) + len(m.AccountKeys)*PublicKeyLength + HashLength
	size += CompactU16Size(len(m.Instructions))
	for _, instruction := range m.Instructions {
		size += 1 + CompactU16Size(len(instruction.Accounts)) + len(instruction.Accounts)
		size += CompactU16Size(len(instruction.Data)) + len(instruction.Data)
	}
	for _, lookup := range m.AddressTableLookups {
		size += PublicKeyLength
		size += CompactU16Size(len(lookup.WritableIndexes)) + len(lookup.WritableIndexes)
		size += CompactU16Size(len(lookup.ReadonlyIndexes)) + len(lookup.ReadonlyIndexes)
	}
	return size
}

func (m *Message) MarshalWithEncoder(encoder *bin.Encoder) error {
	out, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return encoder.WriteBytes(out, false)
}

func (m *Message) ToBase64() string {
	out, _ := m.MarshalBinary()
	return base64.StdEncoding.EncodeToString(out)
}

// UnmarshalWithDecoder decodes a message of either layout from the decoder,
// leaving any bytes that follow it unread. On failure m is left untouched.
func (m *Message) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var out Message
	if err := out.decode(decoder); err != nil {
		return err
	}
	if err := out.sanitize(); err != nil {
		return err
	}
	*m = out
	return nil
}

// UnmarshalBinary decodes a message that spans all of data.
func (m *Message) UnmarshalBinary(data []byte) error {
	decoder := bin.NewBinDecoder(data)
	var out Message
	if err := out.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	if decoder.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing byte(s)", ErrMalformedMessage, decoder.Remaining())
	}
	*m = out
	return nil
}

func (m *Message) UnmarshalBase64(b64 string) error {
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	return m.UnmarshalBinary(b)
}

// MessageFromBytes decodes a message that spans all of data.
func MessageFromBytes(data []byte) (*Message, error) {
	out := new(Message)
	if err := out.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Message) decode(decoder *bin.Decoder) error {
	if decoder.Remaining() == 0 {
		return fmt.Errorf("%w: empty input", ErrMalformedMessage)
	}
	first, err := decoder.Peek(1)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if first[0]&MessageVersionPrefix != 0 {
		version := first[0] &^ MessageVersionPrefix
		if version != 0 {
			return fmt.Errorf("%w: %d", ErrUnsupportedMessageVersion, version)
		}
		if _, err := decoder.ReadByte(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		m.version = MessageVersionV0
	} else {
		m.version = MessageVersionLegacy
	}

	if err := m.decodeBody(decoder); err != nil {
		return err
	}
	if m.version == MessageVersionLegacy {
		return nil
	}

	m.AddressTableLookups, err = DecodeCompactArray(decoder, PublicKeyLength+2, func(decoder *bin.Decoder) (MessageAddressTableLookup, error) {
		var lookup MessageAddressTableLookup
		key, err := readBytes(decoder, PublicKeyLength, "table key")
		if err != nil {
			return lookup, err
		}
		lookup.AccountKey = PublicKeyFromBytes(key)
		if lookup.WritableIndexes, err = readCompactBytes(decoder, "writable indexes"); err != nil {
			return lookup, err
		}
		if lookup.ReadonlyIndexes, err = readCompactBytes(decoder, "readonly indexes"); err != nil {
			return lookup, err
		}
		return lookup, nil
	})
	if err != nil {
		return fmt.Errorf("address table lookups: %w", err)
	}
	return nil
}

func (m *Message) decodeBody(decoder *bin.Decoder) (err error) {
	header, err := readBytes(decoder, 3, "header")
	if err != nil {
		return err
	}
	m.Header = MessageHeader{
		NumRequiredSignatures:       header[0],
		NumReadonlySignedAccounts:   header[1],
		NumReadonlyUnsignedAccounts: header[2],
	}

	m.AccountKeys, err = DecodeCompactArray(decoder, PublicKeyLength, func(decoder *bin.Decoder) (PublicKey, error) {
		key, err := readBytes(decoder, PublicKeyLength, "account key")
		if err != nil {
			return PublicKey{}, err
		}
		return PublicKeyFromBytes(key), nil
	})
	if err != nil {
		return fmt.Errorf("account keys: %w", err)
	}

	blockhash, err := readBytes(decoder, HashLength, "recent blockhash")
	if err != nil {
		return err
	}
	m.RecentBlockhash = HashFromBytes(blockhash)

	// program id index plus two empty compact arrays
	m.Instructions, err = DecodeCompactArray(decoder, 3, func(decoder *bin.Decoder) (CompiledInstruction, error) {
		var instruction CompiledInstruction
		programIDIndex, err := readBytes(decoder, 1, "program id index")
		if err != nil {
			return instruction, err
		}
		instruction.ProgramIDIndex = uint16(programIDIndex[0])
		if instruction.Accounts, err = readCompactBytes(decoder, "account indexes"); err != nil {
			return instruction, err
		}
		if instruction.Data, err = readCompactBytes(decoder, "instruction data"); err != nil {
			return instruction, err
		}
		return instruction, nil
	})
	if err != nil {
		return fmt.Errorf("instructions: %w", err)
	}
	return nil
}

// sanitize checks the structural rules a decoded message must satisfy:
// header counts consistent with the static keys, and every index inside the
// full key space.
func (m *Message) sanitize() error {
	h := m.Header
	numStatic := len(m.AccountKeys)
	if h.NumReadonlySignedAccounts > h.NumRequiredSignatures {
		return fmt.Errorf("%w: %d readonly signers out of %d signers", ErrMalformedMessage, h.NumReadonlySignedAccounts, h.NumRequiredSignatures)
	}
	if int(h.NumRequiredSignatures)+int(h.NumReadonlyUnsignedAccounts) > numStatic {
		return fmt.Errorf("%w: header declares %d signers and %d readonly non-signers over %d static keys",
			ErrMalformedMessage, h.NumRequiredSignatures, h.NumReadonlyUnsignedAccounts, numStatic)
	}
	total := numStatic + m.NumLookups()
	if total > MaxAccountKeys {
		return fmt.Errorf("%w: %d account keys, at most %d", ErrMalformedMessage, total, MaxAccountKeys)
	}
	for ixIndex, instruction := range m.Instructions {
		if int(instruction.ProgramIDIndex) >= total {
			return fmt.Errorf("%w: instruction %d: program id index %d, key space is %d",
				ErrMalformedMessage, ixIndex, instruction.ProgramIDIndex, total)
		}
		for _, accountIndex := range instruction.Accounts {
			if int(accountIndex) >= total {
				return fmt.Errorf("%w: instruction %d: account index %d, key space is %d",
					ErrMalformedMessage, ixIndex, accountIndex, total)
			}
		}
	}
	return nil
}

func (m *Message) Signers() PublicKeySlice {
	return append(PublicKeySlice{}, m.signerKeys()...)
}

func (m *Message) signerKeys() PublicKeySlice {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	return m.AccountKeys[0:n]
}

// Program returns the static key at programIDIndex. Program ids compiled by
// this package are always static.
func (m *Message) Program(programIDIndex uint16) (PublicKey, error) {
	if int(programIDIndex) < len(m.AccountKeys) {
		return m.AccountKeys[programIDIndex], nil
	}
	return PublicKey{}, fmt.Errorf("%w: program id index %d is not a static key", ErrUnknownAccountReference, programIDIndex)
}

func (m *Message) ResolveProgramIDIndex(programIDIndex uint16) (PublicKey, error) {
	return m.Program(programIDIndex)
}

func (m *Message) IsSigner(account PublicKey) bool {
	// signers always in AccountKeys
	idx := m.AccountKeys.Index(account)
	return idx >= 0 && m.IsSignerIndex(idx)
}

// IsWritableStatic reports whether account is a writable static key.
func (m *Message) IsWritableStatic(account PublicKey) bool {
	idx := m.AccountKeys.Index(account)
	return idx >= 0 && m.IsWritableIndex(idx)
}

type MessageHeader struct {
	// The total number of signatures required to make the transaction valid.
	// The signatures must match the first `numRequiredSignatures` of `message.account_keys`.
	NumRequiredSignatures uint8 `json:"numRequiredSignatures"`

	// The last numReadonlySignedAccounts of the signed keys are read-only accounts.
	NumReadonlySignedAccounts uint8 `json:"numReadonlySignedAccounts"`

	// The last `numReadonlyUnsignedAccounts` of the unsigned keys are read-only accounts.
	NumReadonlyUnsignedAccounts uint8 `json:"numReadonlyUnsignedAccounts"`
}

func (header *MessageHeader) EncodeToTree(mxBranch treeout.Branches) {
	mxBranch.Child(text.Sf("NumRequiredSignatures: %v", header.NumRequiredSignatures))
	mxBranch.Child(text.Sf("NumReadonlySignedAccounts: %v", header.NumReadonlySignedAccounts))
	mxBranch.Child(text.Sf("NumReadonlyUnsignedAccounts: %v", header.NumReadonlyUnsignedAccounts))
}
