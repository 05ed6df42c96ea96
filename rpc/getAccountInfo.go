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

// M is a JSON object used for configuration params.
type M map[string]interface{}

type GetAccountInfoResult struct {
	RPCContext
	Value *Account `json:"value"`
}

// GetBinary returns the account data as bytes, or nil.
func (a *GetAccountInfoResult) GetBinary() []byte {
	if a == nil || a.Value == nil || a.Value.Data == nil {
		return nil
	}
	return a.Value.Data.GetBinary()
}

type GetAccountInfoOpts struct {
	// Encoding for Account data. Defaults to base64.
	Encoding solana.EncodingType

	Commitment CommitmentType

	// Limit the returned account data; only available for binary encodings.
	DataSlice *DataSlice

	// The minimum slot that the request can be evaluated at.
	MinContextSlot *uint64
}

// GetAccountInfo returns all information associated with the account,
// with data encoded as base64. ErrNotFound is returned when the account
// does not exist.
func (cl *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (out *GetAccountInfoResult, err error) {
	return cl.GetAccountInfoWithOpts(ctx, account, &GetAccountInfoOpts{
		Encoding: solana.EncodingBase64,
	})
}

func (cl *Client) GetAccountInfoWithOpts(
	ctx context.Context,
	account solana.PublicKey,
	opts *GetAccountInfoOpts,
) (out *GetAccountInfoResult, err error) {
	obj := M{
		"encoding": solana.EncodingBase64,
	}
	if opts != nil {
		if opts.Encoding != "" {
			obj["encoding"] = opts.Encoding
		}
		if opts.Commitment != "" {
			obj["commitment"] = opts.Commitment
		}
		if opts.DataSlice != nil {
			obj["dataSlice"] = M{
				"offset": opts.DataSlice.Offset,
				"length": opts.DataSlice.Length,
			}
		}
		if opts.MinContextSlot != nil {
			obj["minContextSlot"] = *opts.MinContextSlot
		}
	}

	params := []interface{}{account, obj}
	err = cl.CallForInto(ctx, &out, "getAccountInfo", params)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, ErrNotFound
	}
	return out, nil
}
