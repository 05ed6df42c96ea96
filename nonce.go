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
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/treeout"

	"github.com/yydsqu/solana-txkit/text"
)

func init() {
	RegisterInstructionDecoder(SystemProgramID, decodeSystemInstruction)
}

// Index of AdvanceNonceAccount in the system program's instruction enum.
const systemInstructionAdvanceNonceAccount uint32 = 4

// NewAdvanceNonceAccountInstruction builds the system program instruction
// that consumes the stored value of a durable nonce account. A transaction
// using a nonce in place of a recent blockhash must carry it first.
//
// Accounts:
//
//	[0] = [WRITE] nonce account
//	[1] = [] SysVarRecentBlockHashes
//	[2] = [SIGNER] nonce authority
func NewAdvanceNonceAccountInstruction(nonceAccount PublicKey, nonceAuthority PublicKey) *GenericInstruction {
	buf := new(bytes.Buffer)
	// writing to a bytes.Buffer does not fail.
	_ = bin.NewBinEncoder(buf).WriteUint32(systemInstructionAdvanceNonceAccount, binary.LittleEndian)

	return NewInstruction(
		SystemProgramID,
		AccountMetaSlice{
			Meta(nonceAccount).WRITE(),
			Meta(SysVarRecentBlockHashesPubkey),
			Meta(nonceAuthority).SIGNER(),
		},
		buf.Bytes(),
	)
}

// AdvanceNonceAccount is the decoded form of the system program's
// AdvanceNonceAccount instruction.
type AdvanceNonceAccount struct {
	NonceAccount   *AccountMeta
	RecentHashes   *AccountMeta
	NonceAuthority *AccountMeta
}

func (inst *AdvanceNonceAccount) EncodeToTree(parent treeout.Branches) {
	parent.Child(text.IndigoBG("Program") + ": " + text.Bold(ProgramName(SystemProgramID)) + " " + text.ColorizeBG(SystemProgramID.String())).
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(text.Purple(text.Bold("Instruction")) + ": " + text.Bold("AdvanceNonceAccount")).
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("accounts[len=3]").ParentFunc(func(accountsBranch treeout.Branches) {
						accountsBranch.Child(formatMeta("NonceAccount", inst.NonceAccount))
						accountsBranch.Child(formatMeta("SysVarRecentBlockHashes", inst.RecentHashes))
						accountsBranch.Child(formatMeta("NonceAuthority", inst.NonceAuthority))
					})
				})
		})
}

// decodeSystemInstruction only knows AdvanceNonceAccount; the rest of the
// system program renders as an unknown instruction.
func decodeSystemInstruction(accounts []*AccountMeta, data []byte) (any, error) {
	typeID, err := bin.NewBinDecoder(data).ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("system instruction type: %w", err)
	}
	if typeID != systemInstructionAdvanceNonceAccount {
		return nil, fmt.Errorf("system instruction %d is not supported", typeID)
	}
	if len(accounts) < 3 {
		return nil, fmt.Errorf("AdvanceNonceAccount needs 3 accounts, got %d", len(accounts))
	}
	return &AdvanceNonceAccount{
		NonceAccount:   accounts[0],
		RecentHashes:   accounts[1],
		NonceAuthority: accounts[2],
	}, nil
}
