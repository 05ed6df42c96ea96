// Copyright 2021 github.com/gagliardetto
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 dfuse Platform Inc.
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
	"fmt"
	"sort"
)

type TransactionOption interface {
	apply(opts *transactionOptions)
}

type transactionOptions struct {
	payer  PublicKey
	tables []AddressLookupTableAccount
	nonce  *nonceInfo
}

type nonceInfo struct {
	account   PublicKey
	authority PublicKey
	value     Hash
}

type transactionOptionFunc func(opts *transactionOptions)

func (f transactionOptionFunc) apply(opts *transactionOptions) {
	f(opts)
}

// TransactionPayer sets the fee payer. Without it the first signer of the
// first instruction pays.
func TransactionPayer(payer PublicKey) TransactionOption {
	return transactionOptionFunc(func(opts *transactionOptions) { opts.payer = payer })
}

// TransactionAddressTables compiles a v0 message against the given table
// contents. Map iteration order is random, so tables are tried in
// ascending order of their address bytes.
func TransactionAddressTables(tables map[PublicKey]PublicKeySlice) TransactionOption {
	return transactionOptionFunc(func(opts *transactionOptions) {
		keys := make(PublicKeySlice, 0, len(tables))
		for key := range tables {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(keys[i][:], keys[j][:]) < 0
		})
		for _, key := range keys {
			opts.tables = append(opts.tables, AddressLookupTableAccount{
				Key:       key,
				Addresses: tables[key],
			})
		}
	})
}

// TransactionAddressTableAccounts compiles a v0 message against the given
// tables, tried in the order given.
func TransactionAddressTableAccounts(tables ...AddressLookupTableAccount) TransactionOption {
	return transactionOptionFunc(func(opts *transactionOptions) {
		opts.tables = append(opts.tables, tables...)
	})
}

// TransactionNonce makes the transaction use a durable nonce: the
// AdvanceNonceAccount instruction is prepended and the nonce value replaces
// the recent blockhash.
func TransactionNonce(nonceAccount PublicKey, nonceAuthority PublicKey, nonce Hash) TransactionOption {
	return transactionOptionFunc(func(opts *transactionOptions) {
		opts.nonce = &nonceInfo{
			account:   nonceAccount,
			authority: nonceAuthority,
			value:     nonce,
		}
	})
}

// NewTransaction compiles the instructions into an unsigned transaction. A
// v0 message is produced when address tables are supplied, a legacy one
// otherwise.
func NewTransaction(instructions []Instruction, recentBlockHash Hash, opts ...TransactionOption) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("requires at-least one instruction to create a transaction")
	}
	options := transactionOptions{}
	for _, opt := range opts {
		opt.apply(&options)
	}

	feePayer := options.payer
	if feePayer.IsZero() {
		found := false
		for _, instruction := range instructions {
			if instruction == nil {
				continue
			}
			for _, act := range instruction.Accounts() {
				if act != nil && act.IsSigner {
					feePayer = act.PublicKey
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found && options.nonce != nil {
			feePayer = options.nonce.authority
			found = true
		}
		if !found {
			return nil, fmt.Errorf("cannot determine fee payer. You can either pass the fee payer via the 'TransactionPayer' option parameter or it falls back to the first signer of the instructions")
		}
	}

	if options.nonce != nil {
		advance := NewAdvanceNonceAccountInstruction(options.nonce.account, options.nonce.authority)
		instructions = append([]Instruction{advance}, instructions...)
		recentBlockHash = options.nonce.value
	}

	var message *Message
	var err error
	if len(options.tables) > 0 {
		message, err = CompileV0Message(feePayer, instructions, recentBlockHash, options.tables)
	} else {
		message, err = CompileLegacyMessage(feePayer, instructions, recentBlockHash)
	}
	if err != nil {
		return nil, err
	}
	return NewTransactionFromMessage(message), nil
}

type TransactionBuilder struct {
	instructions    []Instruction
	recentBlockHash Hash
	opts            []TransactionOption
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

func (builder *TransactionBuilder) AddInstruction(instruction Instruction) *TransactionBuilder {
	builder.instructions = append(builder.instructions, instruction)
	return builder
}

func (builder *TransactionBuilder) SetRecentBlockHash(recentBlockHash Hash) *TransactionBuilder {
	builder.recentBlockHash = recentBlockHash
	return builder
}

// WithOpt adds a TransactionOption.
func (builder *TransactionBuilder) WithOpt(opt TransactionOption) *TransactionBuilder {
	builder.opts = append(builder.opts, opt)
	return builder
}

func (builder *TransactionBuilder) SetFeePayer(feePayer PublicKey) *TransactionBuilder {
	builder.opts = append(builder.opts, TransactionPayer(feePayer))
	return builder
}

func (builder *TransactionBuilder) Build() (*Transaction, error) {
	return NewTransaction(
		builder.instructions,
		builder.recentBlockHash,
		builder.opts...,
	)
}
