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

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	solana "github.com/yydsqu/solana-txkit"
)

const defaultFetchConcurrency = 8

// Cache keeps recently used lookup tables. Entries are snapshots: call
// Invalidate after a table is extended or deactivated. It is safe for
// concurrent use.
type Cache struct {
	client      AccountInfoGetter
	tables      *lru.Cache
	concurrency int
}

// NewCache creates a cache holding up to size tables.
func NewCache(client AccountInfoGetter, size int) (*Cache, error) {
	tables, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		client:      client,
		tables:      tables,
		concurrency: defaultFetchConcurrency,
	}, nil
}

// Get returns a copy of the table at key, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, key solana.PublicKey) (*AddressLookupTableState, error) {
	if cached, ok := c.tables.Get(key); ok {
		return cached.(*AddressLookupTableState).clone(), nil
	}
	state, err := GetAddressLookupTable(ctx, c.client, key)
	if err != nil {
		return nil, err
	}
	c.tables.Add(key, state)
	zlog.Debug("cached lookup table",
		zap.Stringer("table", key),
		zap.Int("addresses", len(state.Addresses)),
		zap.Bool("active", state.IsActive()),
	)
	return state.clone(), nil
}

// Invalidate drops the given tables.
func (c *Cache) Invalidate(keys ...solana.PublicKey) {
	for _, key := range keys {
		c.tables.Remove(key)
	}
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	return c.tables.Len()
}

// fetch gets every distinct key in parallel; the result is aligned with
// the distinct keys in first-seen order.
func (c *Cache) fetch(ctx context.Context, keys []solana.PublicKey) (solana.PublicKeySlice, []*AddressLookupTableState, error) {
	distinct := make(solana.PublicKeySlice, 0, len(keys))
	for _, key := range keys {
		distinct.UniqueAppend(key)
	}
	states := make([]*AddressLookupTableState, len(distinct))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, key := range distinct {
		i, key := i, key
		g.Go(func() error {
			state, err := c.Get(ctx, key)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return distinct, states, nil
}

// Resolve returns the addresses of the given tables, in the form
// solana.Message.Decompile and solana.TransactionAddressTables take.
// Deactivated tables are included: messages compiled against them can
// still be decoded.
func (c *Cache) Resolve(ctx context.Context, keys ...solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	distinct, states, err := c.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(distinct))
	for i, key := range distinct {
		out[key] = states[i].Addresses
	}
	return out, nil
}

// ResolveMessage resolves every table referenced by message.
func (c *Cache) ResolveMessage(ctx context.Context, message *solana.Message) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	ids := message.GetAddressTableLookups().GetTableIDs()
	if len(ids) == 0 {
		return map[solana.PublicKey]solana.PublicKeySlice{}, nil
	}
	return c.Resolve(ctx, ids...)
}

// Tables returns the active tables among keys, in order, ready for
// solana.CompileV0Message. Deactivated tables are skipped.
func (c *Cache) Tables(ctx context.Context, keys ...solana.PublicKey) ([]solana.AddressLookupTableAccount, error) {
	distinct, states, err := c.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]solana.AddressLookupTableAccount, 0, len(distinct))
	for i, key := range distinct {
		if !states[i].IsActive() {
			zlog.Debug("skipping deactivated lookup table",
				zap.Stringer("table", key),
				zap.Uint64("deactivation_slot", states[i].DeactivationSlot),
			)
			continue
		}
		out = append(out, states[i].Account(key))
	}
	return out, nil
}
