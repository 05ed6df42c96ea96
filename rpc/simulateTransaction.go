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

package rpc

import (
	"context"
	"encoding/base64"
	"fmt"

	solana "github.com/yydsqu/solana-txkit"
)

type SimulateTransactionResponse struct {
	RPCContext
	Value *SimulateTransactionResult `json:"value"`
}

type SimulateTransactionResult struct {
	Err           interface{} `json:"err,omitempty"`
	Logs          []string    `json:"logs,omitempty"`
	Accounts      []*Account  `json:"accounts"`
	UnitsConsumed *uint64     `json:"unitsConsumed,omitempty"`
}

type SimulateTransactionOpts struct {
	// Verify the transaction signatures. Conflicts with ReplaceRecentBlockhash.
	SigVerify bool

	Commitment CommitmentType

	// Replace the transaction's blockhash with the most recent one.
	ReplaceRecentBlockhash bool

	// Accounts to return after execution, with the encoding of their data.
	Accounts *SimulateTransactionAccountsOpts
}

type SimulateTransactionAccountsOpts struct {
	Encoding  solana.EncodingType
	Addresses []solana.PublicKey
}

// SimulateTransaction simulates sending a transaction. Unsigned slots are
// allowed as long as signatures are not verified.
func (cl *Client) SimulateTransaction(ctx context.Context, transaction *solana.Transaction) (out *SimulateTransactionResponse, err error) {
	return cl.SimulateTransactionWithOpts(ctx, transaction, nil)
}

func (cl *Client) SimulateTransactionWithOpts(
	ctx context.Context,
	transaction *solana.Transaction,
	opts *SimulateTransactionOpts,
) (out *SimulateTransactionResponse, err error) {
	txData, err := transaction.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: encode transaction: %w", err)
	}

	obj := M{
		"encoding": solana.EncodingBase64,
	}
	if opts != nil {
		if opts.SigVerify && opts.ReplaceRecentBlockhash {
			return nil, fmt.Errorf("simulate transaction: sigVerify conflicts with replaceRecentBlockhash")
		}
		if opts.SigVerify {
			obj["sigVerify"] = true
		}
		if opts.ReplaceRecentBlockhash {
			obj["replaceRecentBlockhash"] = true
		}
		if opts.Commitment != "" {
			obj["commitment"] = opts.Commitment
		}
		if opts.Accounts != nil {
			encoding := opts.Accounts.Encoding
			if encoding == "" {
				encoding = solana.EncodingBase64
			}
			obj["accounts"] = M{
				"encoding":  encoding,
				"addresses": opts.Accounts.Addresses,
			}
		}
	}

	params := []interface{}{
		base64.StdEncoding.EncodeToString(txData),
		obj,
	}
	err = cl.CallForInto(ctx, &out, "simulateTransaction", params)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, ErrNotFound
	}
	return out, nil
}
