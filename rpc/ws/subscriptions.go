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

package ws

import (
	"context"

	solana "github.com/yydsqu/solana-txkit"
	"github.com/yydsqu/solana-txkit/rpc"
)

type SignatureResult struct {
	Context rpc.Context `json:"context"`
	Value   struct {
		Err interface{} `json:"err"`
	} `json:"value"`
}

// SignatureSubscribe subscribes to a transaction signature. The node sends
// a single notification once the transaction reaches commitment and then
// ends the subscription.
func (c *Client) SignatureSubscribe(
	ctx context.Context,
	signature solana.Signature,
	commitment rpc.CommitmentType, // optional
) (*Subscription[SignatureResult], error) {
	params := []interface{}{signature.String()}
	if commitment != "" {
		params = append(params, rpc.M{"commitment": commitment})
	}
	sub, err := c.subscribe(ctx, "signatureSubscribe", "signatureUnsubscribe", true, params)
	if err != nil {
		return nil, err
	}
	return &Subscription[SignatureResult]{sub: sub}, nil
}

type AccountResult struct {
	Context rpc.Context `json:"context"`
	Value   rpc.Account `json:"value"`
}

// AccountSubscribe subscribes to changes of the lamports or data of an
// account. Data is delivered base64 encoded.
func (c *Client) AccountSubscribe(
	ctx context.Context,
	account solana.PublicKey,
	commitment rpc.CommitmentType, // optional
) (*Subscription[AccountResult], error) {
	conf := rpc.M{
		"encoding": solana.EncodingBase64,
	}
	if commitment != "" {
		conf["commitment"] = commitment
	}
	sub, err := c.subscribe(ctx, "accountSubscribe", "accountUnsubscribe", false, []interface{}{account.String(), conf})
	if err != nil {
		return nil, err
	}
	return &Subscription[AccountResult]{sub: sub}, nil
}
