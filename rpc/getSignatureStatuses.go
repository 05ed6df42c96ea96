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
	"fmt"

	solana "github.com/yydsqu/solana-txkit"
)

type GetSignatureStatusesResult struct {
	RPCContext
	Value []*SignatureStatusesResult `json:"value"`
}

type SignatureStatusesResult struct {
	// The slot the transaction was processed.
	Slot uint64 `json:"slot"`

	// Number of blocks since signature confirmation,
	// null if rooted or finalized by a supermajority of the cluster.
	Confirmations *uint64 `json:"confirmations"`

	// Error if transaction failed, null if transaction succeeded.
	Err interface{} `json:"err"`

	// The transaction's cluster confirmation status.
	ConfirmationStatus ConfirmationStatusType `json:"confirmationStatus"`
}

// GetSignatureStatuses returns the statuses of a list of signatures, in the
// same order. Unknown signatures have a nil entry. Unless
// searchTransactionHistory is set, only the recent status cache is
// searched.
func (cl *Client) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	transactionSignatures ...solana.Signature,
) (out *GetSignatureStatusesResult, err error) {
	if len(transactionSignatures) == 0 {
		return nil, fmt.Errorf("getSignatureStatuses: no signatures")
	}
	params := []interface{}{transactionSignatures}
	if searchTransactionHistory {
		params = append(params, M{"searchTransactionHistory": true})
	}
	err = cl.CallForInto(ctx, &out, "getSignatureStatuses", params)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}
