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
)

// MaxAccountKeys is the size of the account index space of a message:
// indexes are single bytes.
const MaxAccountKeys = 256

// AddressLookupTableAccount is the resolved content of an on-chain address
// lookup table.
type AddressLookupTableAccount struct {
	Key       PublicKey
	Addresses PublicKeySlice
}

type compiledKeyMeta struct {
	isSigner   bool
	isWritable bool
	isInvoked  bool
}

// CompiledKeys accumulates the accounts referenced by a payer and a list of
// instructions, with the union of the privileges requested for each one.
type CompiledKeys struct {
	payer PublicKey
	order PublicKeySlice // first-seen order
	metas map[PublicKey]*compiledKeyMeta
}

// KeyTiers is the four-way privilege partition of a key set. Each tier keeps
// first-seen order.
type KeyTiers struct {
	WritableSigners    PublicKeySlice
	ReadonlySigners    PublicKeySlice
	WritableNonSigners PublicKeySlice
	ReadonlyNonSigners PublicKeySlice
}

// Len returns the total number of keys over all tiers.
func (t KeyTiers) Len() int {
	return len(t.WritableSigners) + len(t.ReadonlySigners) + len(t.WritableNonSigners) + len(t.ReadonlyNonSigners)
}

// Flatten concatenates the tiers in message order.
func (t KeyTiers) Flatten() PublicKeySlice {
	out := make(PublicKeySlice, 0, t.Len())
	out = append(out, t.WritableSigners...)
	out = append(out, t.ReadonlySigners...)
	out = append(out, t.WritableNonSigners...)
	out = append(out, t.ReadonlyNonSigners...)
	return out
}

// CompileKeys seeds the payer as a writable signer, then walks every
// instruction's program id followed by its accounts.
func CompileKeys(payer PublicKey, instructions []Instruction) (*CompiledKeys, error) {
	keys := &CompiledKeys{
		payer: payer,
		metas: make(map[PublicKey]*compiledKeyMeta),
	}
	payerMeta := keys.getOrCreate(payer)
	payerMeta.isSigner = true
	payerMeta.isWritable = true

	for ixIndex, instruction := range instructions {
		if instruction == nil {
			return nil, fmt.Errorf("instruction %d is nil", ixIndex)
		}
		keys.getOrCreate(instruction.ProgramID()).isInvoked = true
		for accIndex, account := range instruction.Accounts() {
			if account == nil {
				return nil, fmt.Errorf("instruction %d: account %d is nil", ixIndex, accIndex)
			}
			meta := keys.getOrCreate(account.PublicKey)
			meta.isSigner = meta.isSigner || account.IsSigner
			meta.isWritable = meta.isWritable || account.IsWritable
		}
	}
	return keys, nil
}

func (keys *CompiledKeys) getOrCreate(key PublicKey) *compiledKeyMeta {
	meta, ok := keys.metas[key]
	if !ok {
		meta = &compiledKeyMeta{}
		keys.metas[key] = meta
		keys.order = append(keys.order, key)
	}
	return meta
}

// Payer returns the fee payer the keys were seeded with.
func (keys *CompiledKeys) Payer() PublicKey {
	return keys.payer
}

// Len returns the number of keys not yet moved to a lookup table.
func (keys *CompiledKeys) Len() int {
	return len(keys.order)
}

// Tiers partitions the remaining keys by privilege.
func (keys *CompiledKeys) Tiers() KeyTiers {
	var tiers KeyTiers
	for _, key := range keys.order {
		meta := keys.metas[key]
		switch {
		case meta.isSigner && meta.isWritable:
			tiers.WritableSigners = append(tiers.WritableSigners, key)
		case meta.isSigner:
			tiers.ReadonlySigners = append(tiers.ReadonlySigners, key)
		case meta.isWritable:
			tiers.WritableNonSigners = append(tiers.WritableNonSigners, key)
		default:
			tiers.ReadonlyNonSigners = append(tiers.ReadonlyNonSigners, key)
		}
	}
	return tiers
}

// lookupEligible reports whether key may be loaded from a lookup table.
// Signers, invoked program ids and the payer always stay static.
func (keys *CompiledKeys) lookupEligible(key PublicKey, meta *compiledKeyMeta) bool {
	return !meta.isSigner && !meta.isInvoked && key != keys.payer
}

// ExtractTableLookup moves the eligible keys found in table out of the
// static set and returns the lookup that references them, the addresses it
// loads, and whether anything matched. Writable keys are drained before
// readonly ones; each group keeps first-seen order.
func (keys *CompiledKeys) ExtractTableLookup(table AddressLookupTableAccount) (MessageAddressTableLookup, LoadedAddresses, bool) {
	lookup := MessageAddressTableLookup{
		AccountKey:      table.Key,
		WritableIndexes: Uint8SliceAsNum{},
		ReadonlyIndexes: Uint8SliceAsNum{},
	}
	var loaded LoadedAddresses

	positions := make(map[PublicKey]uint8, len(table.Addresses))
	for i, address := range table.Addresses {
		if i > math.MaxUint8 {
			break
		}
		if _, ok := positions[address]; !ok {
			positions[address] = uint8(i)
		}
	}
	if len(positions) == 0 {
		return lookup, loaded, false
	}

	drain := func(writable bool) (PublicKeySlice, Uint8SliceAsNum) {
		var drained PublicKeySlice
		var indexes Uint8SliceAsNum
		remaining := keys.order[:0]
		for _, key := range keys.order {
			meta := keys.metas[key]
			position, found := positions[key]
			if found && meta.isWritable == writable && keys.lookupEligible(key, meta) {
				drained = append(drained, key)
				indexes = append(indexes, position)
				delete(keys.metas, key)
				continue
			}
			remaining = append(remaining, key)
		}
		keys.order = remaining
		return drained, indexes
	}

	writable, writableIndexes := drain(true)
	readonly, readonlyIndexes := drain(false)
	if len(writable) == 0 && len(readonly) == 0 {
		return lookup, loaded, false
	}
	lookup.WritableIndexes = append(lookup.WritableIndexes, writableIndexes...)
	lookup.ReadonlyIndexes = append(lookup.ReadonlyIndexes, readonlyIndexes...)
	loaded.Writable = writable
	loaded.Readonly = readonly
	return lookup, loaded, true
}

// MessageComponents returns the header and the static key list for the
// keys that remain static.
func (keys *CompiledKeys) MessageComponents() (MessageHeader, PublicKeySlice, error) {
	tiers := keys.Tiers()
	if tiers.Len() > MaxAccountKeys {
		return MessageHeader{}, nil, fmt.Errorf("%w: %d static keys, at most %d", ErrTooManyAccounts, tiers.Len(), MaxAccountKeys)
	}
	numSigners := len(tiers.WritableSigners) + len(tiers.ReadonlySigners)
	if numSigners > math.MaxUint8 {
		return MessageHeader{}, nil, fmt.Errorf("%w: %d signers, at most %d", ErrTooManyAccounts, numSigners, math.MaxUint8)
	}
	if len(tiers.ReadonlyNonSigners) > math.MaxUint8 {
		return MessageHeader{}, nil, fmt.Errorf("%w: %d readonly non-signers, at most %d", ErrTooManyAccounts, len(tiers.ReadonlyNonSigners), math.MaxUint8)
	}
	header := MessageHeader{
		NumRequiredSignatures:       uint8(numSigners),
		NumReadonlySignedAccounts:   uint8(len(tiers.ReadonlySigners)),
		NumReadonlyUnsignedAccounts: uint8(len(tiers.ReadonlyNonSigners)),
	}
	return header, tiers.Flatten(), nil
}
