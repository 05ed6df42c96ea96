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

package addresslookuptable

import (
	"context"
	"fmt"

	solana "github.com/yydsqu/solana-txkit"
	"github.com/yydsqu/solana-txkit/rpc"
)

// AccountInfoGetter is implemented by *rpc.Client.
type AccountInfoGetter interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// GetAddressLookupTable fetches and decodes the lookup table at address.
// rpc.ErrNotFound is returned when the account does not exist.
func GetAddressLookupTable(ctx context.Context, client AccountInfoGetter, address solana.PublicKey) (*AddressLookupTableState, error) {
	account, err := client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get lookup table %s: %w", address, err)
	}
	if account.Value.Owner != solana.AddressLookupTableProgramID {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidLookupTable, address, account.Value.Owner)
	}
	state, err := DecodeAddressLookupTableState(account.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode lookup table %s: %w", address, err)
	}
	return state, nil
}
