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

import "fmt"

// DecompiledMessage is a message turned back into instructions over
// resolved accounts.
type DecompiledMessage struct {
	Payer               PublicKey
	RecentBlockhash     Hash
	Instructions        []*GenericInstruction
	AddressTableLookups MessageAddressTableLookupSlice
}

// InstructionList returns the instructions as the Instruction interface,
// ready to be compiled again.
func (d *DecompiledMessage) InstructionList() []Instruction {
	out := make([]Instruction, len(d.Instructions))
	for i, instruction := range d.Instructions {
		out[i] = instruction
	}
	return out
}

// Decompile resolves every instruction's program and account indexes to
// addresses. Indexes past the static keys are looked up in tables, keyed by
// table address. Account privileges are those of the compiled message, so an
// account carries the union of what every instruction requested for it.
func (m *Message) Decompile(tables map[PublicKey]PublicKeySlice) (*DecompiledMessage, error) {
	if len(m.AccountKeys) == 0 {
		return nil, fmt.Errorf("%w: no fee payer", ErrMalformedMessage)
	}
	loaded, err := m.ResolveLookups(tables)
	if err != nil {
		return nil, err
	}
	metas, err := m.AccountMetaList(loaded)
	if err != nil {
		return nil, err
	}

	out := &DecompiledMessage{
		Payer:               m.AccountKeys[0],
		RecentBlockhash:     m.RecentBlockhash,
		Instructions:        make([]*GenericInstruction, 0, len(m.Instructions)),
		AddressTableLookups: m.AddressTableLookups,
	}
	for ixIndex, compiled := range m.Instructions {
		program := metas.Get(int(compiled.ProgramIDIndex))
		if program == nil {
			return nil, fmt.Errorf("%w: instruction %d: program id index %d, key space is %d",
				ErrUnknownAccountReference, ixIndex, compiled.ProgramIDIndex, len(metas))
		}
		accounts := make(AccountMetaSlice, len(compiled.Accounts))
		for i, accountIndex := range compiled.Accounts {
			meta := metas.Get(int(accountIndex))
			if meta == nil {
				return nil, fmt.Errorf("%w: instruction %d: account index %d, key space is %d",
					ErrUnknownAccountReference, ixIndex, accountIndex, len(metas))
			}
			accounts[i] = NewAccountMeta(meta.PublicKey, meta.IsWritable, meta.IsSigner)
		}
		data := make([]byte, len(compiled.Data))
		copy(data, compiled.Data)
		out.Instructions = append(out.Instructions, NewInstruction(program.PublicKey, accounts, data))
	}
	return out, nil
}
