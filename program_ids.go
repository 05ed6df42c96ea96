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

var (
	SystemProgramID               = MustPublicKeyFromBase58("11111111111111111111111111111111")
	ComputeBudget                 = MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	AddressLookupTableProgramID   = MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")
	BPFLoaderUpgradeableProgramID = MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	TokenProgramID                = MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	MemoProgramID                 = MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

// SysVarRecentBlockHashesPubkey is passed to AdvanceNonceAccount.
var SysVarRecentBlockHashesPubkey = MustPublicKeyFromBase58("SysvarRecentB1ockHashes11111111111111111111")

var programNames = map[PublicKey]string{
	SystemProgramID:               "System",
	ComputeBudget:                 "ComputeBudget",
	AddressLookupTableProgramID:   "AddressLookupTable",
	BPFLoaderUpgradeableProgramID: "BPFLoaderUpgradeable",
	TokenProgramID:                "Token",
	MemoProgramID:                 "Memo",
}

// ProgramName returns a display name for well-known programs, or
// "<unknown>".
func ProgramName(programID PublicKey) string {
	if name, ok := programNames[programID]; ok {
		return name
	}
	return "<unknown>"
}
