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
	"fmt"
)

// LoadedAddresses are the accounts a v0 message loads from lookup tables,
// grouped by privilege, each group in lookup order.
type LoadedAddresses struct {
	Writable PublicKeySlice `json:"writable"`
	Readonly PublicKeySlice `json:"readonly"`
}

func (loaded LoadedAddresses) Len() int {
	return len(loaded.Writable) + len(loaded.Readonly)
}

// MessageAccountKeys is the full account key space of a message: static
// keys, then loaded writable, then loaded readonly.
type MessageAccountKeys struct {
	Static PublicKeySlice
	Loaded LoadedAddresses
}

// KeySegments returns the three index segments in order.
func (keys MessageAccountKeys) KeySegments() []PublicKeySlice {
	return []PublicKeySlice{keys.Static, keys.Loaded.Writable, keys.Loaded.Readonly}
}

func (keys MessageAccountKeys) Len() int {
	return len(keys.Static) + keys.Loaded.Len()
}

// Get returns the key at index in the full key space.
func (keys MessageAccountKeys) Get(index int) (PublicKey, bool) {
	if index < 0 {
		return PublicKey{}, false
	}
	for _, segment := range keys.KeySegments() {
		if index < len(segment) {
			return segment[index], true
		}
		index -= len(segment)
	}
	return PublicKey{}, false
}

// Flatten returns all keys in index order.
func (keys MessageAccountKeys) Flatten() PublicKeySlice {
	out := make(PublicKeySlice, 0, keys.Len())
	for _, segment := range keys.KeySegments() {
		out = append(out, segment...)
	}
	return out
}

// ResolveLookups reads the message's lookup indexes out of the supplied
// table contents. Legacy messages and messages without lookups resolve to
// empty LoadedAddresses.
func (m *Message) ResolveLookups(tables map[PublicKey]PublicKeySlice) (LoadedAddresses, error) {
	var loaded LoadedAddresses
	for _, lookup := range m.AddressTableLookups {
		table, ok := tables[lookup.AccountKey]
		if !ok {
			return LoadedAddresses{}, fmt.Errorf("%w: %s", ErrLookupTableNotProvided, lookup.AccountKey)
		}
		for _, idx := range lookup.WritableIndexes {
			if int(idx) >= len(table) {
				return LoadedAddresses{}, fmt.Errorf("%w: index %d in table %s of %d address(es)", ErrLookupIndexOutOfRange, idx, lookup.AccountKey, len(table))
			}
			loaded.Writable = append(loaded.Writable, table[idx])
		}
	}
	for _, lookup := range m.AddressTableLookups {
		table := tables[lookup.AccountKey]
		for _, idx := range lookup.ReadonlyIndexes {
			if int(idx) >= len(table) {
				return LoadedAddresses{}, fmt.Errorf("%w: index %d in table %s of %d address(es)", ErrLookupIndexOutOfRange, idx, lookup.AccountKey, len(table))
			}
			loaded.Readonly = append(loaded.Readonly, table[idx])
		}
	}
	return loaded, nil
}

// KeySpace pairs the static keys with addresses loaded for this message.
func (m *Message) KeySpace(loaded LoadedAddresses) (MessageAccountKeys, error) {
	if len(loaded.Writable) != m.NumWritableLookups() || loaded.Len() != m.NumLookups() {
		return MessageAccountKeys{}, fmt.Errorf("%w: message looks up %d writable and %d readonly address(es), got %d and %d",
			ErrLookupTableNotProvided,
			m.NumWritableLookups(), m.NumLookups()-m.NumWritableLookups(),
			len(loaded.Writable), len(loaded.Readonly),
		)
	}
	return MessageAccountKeys{Static: m.AccountKeys, Loaded: loaded}, nil
}

// IsSignerIndex reports whether the key at index must sign.
func (m *Message) IsSignerIndex(index int) bool {
	return index >= 0 && index < int(m.Header.NumRequiredSignatures)
}

// IsWritableIndex reports whether the key at index in the full key space is
// writable. Static writability follows from the header; loaded keys are
// writable when they come from a lookup's writable indexes.
func (m *Message) IsWritableIndex(index int) bool {
	h := m.Header
	numStatic := m.numStaticAccounts()
	switch {
	case index < 0:
		return false
	case index >= numStatic:
		return index-numStatic < m.NumWritableLookups()
	case index >= int(h.NumRequiredSignatures):
		// unsignedAccountIndex < numWritableUnsignedAccounts
		return index-int(h.NumRequiredSignatures) < (numStatic-int(h.NumRequiredSignatures))-int(h.NumReadonlyUnsignedAccounts)
	default:
		return index < int(h.NumRequiredSignatures)-int(h.NumReadonlySignedAccounts)
	}
}

// AccountMetaList returns a meta for every key in the full key space, in
// index order.
func (m *Message) AccountMetaList(loaded LoadedAddresses) (AccountMetaSlice, error) {
	keySpace, err := m.KeySpace(loaded)
	if err != nil {
		return nil, err
	}
	out := make(AccountMetaSlice, 0, keySpace.Len())
	for i, key := range keySpace.Flatten() {
		out = append(out, &AccountMeta{
			PublicKey:  key,
			IsSigner:   m.IsSignerIndex(i),
			IsWritable: m.IsWritableIndex(i),
		})
	}
	return out, nil
}

// Writable returns the writable keys of the full key space.
func (m *Message) Writable(loaded LoadedAddresses) (PublicKeySlice, error) {
	metas, err := m.AccountMetaList(loaded)
	if err != nil {
		return nil, err
	}
	var out PublicKeySlice
	for _, meta := range metas {
		if meta.IsWritable {
			out = append(out, meta.PublicKey)
		}
	}
	return out, nil
}

// AccountIndex returns the position of account in the full key space.
func (m *Message) AccountIndex(account PublicKey, loaded LoadedAddresses) (uint16, error) {
	keySpace, err := m.KeySpace(loaded)
	if err != nil {
		return 0, err
	}
	idx := keySpace.Flatten().Index(account)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccountReference, account)
	}
	return uint16(idx), nil
}

func (m *Message) HasAccount(account PublicKey, loaded LoadedAddresses) (bool, error) {
	_, err := m.AccountIndex(account, loaded)
	if errors.Is(err, ErrUnknownAccountReference) {
		return false, nil
	}
	return err == nil, err
}

// IsWritable reports whether account is writable, including accounts
// loaded from lookup tables.
func (m *Message) IsWritable(account PublicKey, loaded LoadedAddresses) (bool, error) {
	idx, err := m.AccountIndex(account, loaded)
	if err != nil {
		return false, err
	}
	return m.IsWritableIndex(int(idx)), nil
}
