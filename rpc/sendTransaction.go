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

type TransactionOpts struct {
	SkipPreflight       bool
	PreflightCommitment CommitmentType
	MaxRetries          *uint
	MinContextSlot      *uint64
}

func (opts *TransactionOpts) toObj() M {
	obj := M{
		"encoding": solana.EncodingBase64,
	}
	if opts == nil {
		return obj
	}
	if opts.SkipPreflight {
		obj["skipPreflight"] = true
	}
	if opts.PreflightCommitment != "" {
		obj["preflightCommitment"] = opts.PreflightCommitment
	}
	if opts.MaxRetries != nil {
		obj["maxRetries"] = *opts.MaxRetries
	}
	if opts.MinContextSlot != nil {
		obj["minContextSlot"] = *opts.MinContextSlot
	}
	return obj
}

// SendTransaction submits a signed transaction to the cluster for
// processing, with preflight checks.
func (cl *Client) SendTransaction(ctx context.Context, transaction *solana.Transaction) (signature solana.Signature, err error) {
	return cl.SendTransactionWithOpts(ctx, transaction, TransactionOpts{})
}

func (cl *Client) SendTransactionWithOpts(
	ctx context.Context,
	transaction *solana.Transaction,
	opts TransactionOpts,
) (signature solana.Signature, err error) {
	if !transaction.IsFullySigned() {
		return solana.Signature{}, fmt.Errorf("send transaction: signers %s: %w",
			transaction.MissingSigners().ToBase58(), solana.ErrMissingSignature)
	}
	txData, err := transaction.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: encode transaction: %w", err)
	}
	return cl.sendEncoded(ctx, txData, &opts)
}

// SendRawTransaction submits an already serialized transaction.
func (cl *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (signature solana.Signature, err error) {
	return cl.sendEncoded(ctx, rawTx, nil)
}

func (cl *Client) sendEncoded(ctx context.Context, txData []byte, opts *TransactionOpts) (signature solana.Signature, err error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(txData),
		opts.toObj(),
	}
	err = cl.CallForInto(ctx, &signature, "sendTransaction", params)
	return
}
