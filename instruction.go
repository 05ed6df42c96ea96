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
	"fmt"
	"math"
)

type Instruction interface {
	ProgramID() PublicKey     // the programID the instruction acts on
	Accounts() []*AccountMeta // returns the list of accounts the instructions requires
	Data() ([]byte, error)    // the binary encoded instructions
}

var _ Instruction = &GenericInstruction{}

// GenericInstruction is an Instruction built from raw parts.
type GenericInstruction struct {
	AccountValues AccountMetaSlice
	ProgID        PublicKey
	DataBytes     []byte
}

// NewInstruction creates a generic instruction with the provided
// programID, accounts, and data bytes.
func NewInstruction(
	programID PublicKey,
	accounts AccountMetaSlice,
	data []byte,
) *GenericInstruction {
	return &GenericInstruction{
		AccountValues: accounts,
		ProgID:        programID,
		DataBytes:     data,
	}
}

func (in *GenericInstruction) ProgramID() PublicKey {
	return in.ProgID
}

func (in *GenericInstruction) Accounts() []*AccountMeta {
	return in.AccountValues
}

func (in *GenericInstruction) Data() ([]byte, error) {
	return in.DataBytes, nil
}

// Uint8SliceAsNum is a byte slice that is marshalled to JSON as a list of
// numbers instead of a base64 string.
type Uint8SliceAsNum []uint8

func (slice Uint8SliceAsNum) MarshalJSON() ([]byte, error) {
	out := make([]uint16, len(slice))
	for i, idx := range slice {
		out[i] = uint16(idx)
	}
	return json.Marshal(out)
}

func (slice *Uint8SliceAsNum) UnmarshalJSON(data []byte) error {
	var in []uint16
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Uint8SliceAsNum, len(in))
	for i, v := range in {
		if v > math.MaxUint8 {
			return fmt.Errorf("value %d at position %d does not fit in a byte", v, i)
		}
		out[i] = uint8(v)
	}
	*slice = out
	return nil
}

type CompiledInstruction struct {
	// Index into the full account key space indicating the program account
	// that executes this instruction.
	// NOTE: it is actually a uint8, but using a uint16 because uint8 is treated as a byte everywhere,
	// and that can be an issue.
	ProgramIDIndex uint16 `json:"programIdIndex"`

	// List of ordered indices into the full account key space indicating
	// which accounts to pass to the program.
	Accounts Uint8SliceAsNum `json:"accounts"`

	// The program input data encoded in a base-58 string.
	Data Base58 `json:"data"`
}

func (ci *CompiledInstruction) GetProgramIdIndex() uint32 {
	return uint32(ci.ProgramIDIndex)
}

func (ci *CompiledInstruction) GetAccounts() []byte {
	return ci.Accounts
}

func (ci *CompiledInstruction) GetData() []byte {
	return ci.Data
}

// ResolveInstructionAccounts maps the instruction's account indexes to
// metas over the message's full key space, with loaded holding the
// lookup-table addresses (empty for legacy messages).
func (ci *CompiledInstruction) ResolveInstructionAccounts(message *Message, loaded LoadedAddresses) ([]*AccountMeta, error) {
	metas, err := message.AccountMetaList(loaded)
	if err != nil {
		return nil, err
	}
	out := make([]*AccountMeta, len(ci.Accounts))
	for i, acct := range ci.Accounts {
		if int(acct) >= len(metas) {
			return nil, fmt.Errorf("%w: account index %d, key space is %d", ErrUnknownAccountReference, acct, len(metas))
		}
		out[i] = metas[acct]
	}
	return out, nil
}
