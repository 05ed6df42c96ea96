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

	"go.uber.org/zap"
)

// CompileLegacyMessage compiles the instructions into a legacy message where
// every referenced account is a static key.
func CompileLegacyMessage(payer PublicKey, instructions []Instruction, recentBlockhash Hash) (*Message, error) {
	keys, err := CompileKeys(payer, instructions)
	if err != nil {
		return nil, err
	}
	header, staticKeys, err := keys.MessageComponents()
	if err != nil {
		return nil, err
	}
	compiled, err := compileInstructions(instructions, MessageAccountKeys{Static: staticKeys})
	if err != nil {
		return nil, err
	}
	return &Message{
		version:         MessageVersionLegacy,
		Header:          header,
		AccountKeys:     staticKeys,
		RecentBlockhash: recentBlockhash,
		Instructions:    compiled,
	}, nil
}

// CompileV0Message compiles the instructions into a v0 message. Accounts
// that are neither signers, invoked programs nor the payer are loaded from
// the first table, in the order given, that contains them.
func CompileV0Message(payer PublicKey, instructions []Instruction, recentBlockhash Hash, tables []AddressLookupTableAccount) (*Message, error) {
	keys, err := CompileKeys(payer, instructions)
	if err != nil {
		return nil, err
	}

	lookups := make(MessageAddressTableLookupSlice, 0, len(tables))
	var loaded LoadedAddresses
	for _, table := range tables {
		lookup, tableLoaded, ok := keys.ExtractTableLookup(table)
		if !ok {
			continue
		}
		zlog.Debug("loading accounts from address lookup table",
			zap.Stringer("table", table.Key),
			zap.Int("writable", len(tableLoaded.Writable)),
			zap.Int("readonly", len(tableLoaded.Readonly)),
		)
		lookups = append(lookups, lookup)
		loaded.Writable = append(loaded.Writable, tableLoaded.Writable...)
		loaded.Readonly = append(loaded.Readonly, tableLoaded.Readonly...)
	}

	header, staticKeys, err := keys.MessageComponents()
	if err != nil {
		return nil, err
	}
	keySpace := MessageAccountKeys{Static: staticKeys, Loaded: loaded}
	if keySpace.Len() > MaxAccountKeys {
		return nil, fmt.Errorf("%w: %d static and %d loaded keys, at most %d", ErrTooManyAccounts, len(staticKeys), loaded.Len(), MaxAccountKeys)
	}
	compiled, err := compileInstructions(instructions, keySpace)
	if err != nil {
		return nil, err
	}
	return &Message{
		version:             MessageVersionV0,
		Header:              header,
		AccountKeys:         staticKeys,
		RecentBlockhash:     recentBlockhash,
		Instructions:        compiled,
		AddressTableLookups: lookups,
	}, nil
}

func compileInstructions(instructions []Instruction, keySpace MessageAccountKeys) ([]CompiledInstruction, error) {
	if keySpace.Len() > MaxAccountKeys {
		return nil, fmt.Errorf("%w: key space of %d, at most %d", ErrTooManyAccounts, keySpace.Len(), MaxAccountKeys)
	}
	index := make(map[PublicKey]uint8, keySpace.Len())
	for i, key := range keySpace.Flatten() {
		if _, ok := index[key]; !ok {
			index[key] = uint8(i)
		}
	}

	out := make([]CompiledInstruction, 0, len(instructions))
	for ixIndex, instruction := range instructions {
		programIDIndex, ok := index[instruction.ProgramID()]
		if !ok {
			return nil, fmt.Errorf("%w: instruction %d: program %s", ErrUnknownAccountReference, ixIndex, instruction.ProgramID())
		}
		accounts := instruction.Accounts()
		accountIndexes := make(Uint8SliceAsNum, len(accounts))
		for i, account := range accounts {
			accountIndex, ok := index[account.PublicKey]
			if !ok {
				return nil, fmt.Errorf("%w: instruction %d: account %s", ErrUnknownAccountReference, ixIndex, account.PublicKey)
			}
			accountIndexes[i] = accountIndex
		}
		data, err := instruction.Data()
		if err != nil {
			return nil, fmt.Errorf("unable to encode instructions [%d]: %w", ixIndex, err)
		}
		if data == nil {
			data = []byte{}
		}
		out = append(out, CompiledInstruction{
			ProgramIDIndex: uint16(programIDIndex),
			Accounts:       accountIndexes,
			Data:           data,
		})
	}
	return out, nil
}
