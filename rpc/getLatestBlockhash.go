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

	solana "github.com/yydsqu/solana-txkit"
)

type GetLatestBlockhashResult struct {
	RPCContext
	Value *LatestBlockhashResult `json:"value"`
}

type LatestBlockhashResult struct {
	Blockhash            solana.Hash `json:"blockhash"`
	LastValidBlockHeight uint64      `json:"lastValidBlockHeight"`
}

// GetLatestBlockhash returns the latest blockhash and the last block height
// at which a transaction using it is still valid.
func (cl *Client) GetLatestBlockhash(
	ctx context.Context,
	commitment CommitmentType, // optional
) (out *GetLatestBlockhashResult, err error) {
	var params []interface{}
	if commitment != "" {
		params = append(params, M{"commitment": commitment})
	}
	err = cl.CallForInto(ctx, &out, "getLatestBlockhash", params)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, ErrNotFound
	}
	return out, nil
}
