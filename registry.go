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
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var ErrInstructionDecoderNotFound = errors.New("instruction decoder not found")

// InstructionDecoder turns the accounts and data of a compiled instruction
// into a typed value, used when rendering transactions. Accounts loaded from
// lookup tables are nil.
type InstructionDecoder func(instructionAccounts []*AccountMeta, data []byte) (any, error)

var instructionDecoders = &decoderRegistry{
	decoders: make(map[PublicKey]InstructionDecoder),
}

type decoderRegistry struct {
	mu       sync.RWMutex
	decoders map[PublicKey]InstructionDecoder
}

func (reg *decoderRegistry) get(programID PublicKey) (InstructionDecoder, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	decoder, ok := reg.decoders[programID]
	return decoder, ok
}

// register stores decoder unless another one is already registered for
// programID. Registering the same function twice is a no-op.
func (reg *decoderRegistry) register(programID PublicKey, decoder InstructionDecoder) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if prev, ok := reg.decoders[programID]; ok {
		if isSameFunction(prev, decoder) {
			return nil
		}
		return fmt.Errorf("unable to re-register instruction decoder for program %s", programID)
	}
	reg.decoders[programID] = decoder
	return nil
}

func (reg *decoderRegistry) programs() PublicKeySlice {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(PublicKeySlice, 0, len(reg.decoders))
	for programID := range reg.decoders {
		out = append(out, programID)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// RegisterInstructionDecoder registers a decoder for a program. It panics
// if a different decoder is already registered for it.
func RegisterInstructionDecoder(programID PublicKey, decoder InstructionDecoder) {
	if err := instructionDecoders.register(programID, decoder); err != nil {
		panic(err)
	}
}

// RegisteredInstructionDecoders returns the programs with a decoder,
// ordered by address bytes.
func RegisteredInstructionDecoders() PublicKeySlice {
	return instructionDecoders.programs()
}

func isSameFunction(f1 any, f2 any) bool {
	return reflect.ValueOf(f1).Pointer() == reflect.ValueOf(f2).Pointer()
}

func DecodeInstruction(programID PublicKey, accounts []*AccountMeta, data []byte) (any, error) {
	decoder, found := instructionDecoders.get(programID)
	if !found {
		return nil, ErrInstructionDecoderNotFound
	}
	return decoder(accounts, data)
}
