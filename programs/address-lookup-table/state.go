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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"

	solana "github.com/yydsqu/solana-txkit"
)

const (
	// LookupTableMetaSize is the size of the metadata that precedes the
	// addresses in a lookup table account.
	LookupTableMetaSize = 56

	// LookupTableMaxAddresses is the maximum number of addresses a table
	// can hold.
	LookupTableMaxAddresses = 256

	lookupTableTypeTag uint32 = 1
)

var ErrInvalidLookupTable = errors.New("invalid address lookup table")

// AddressLookupTableState is the content of a lookup table account.
//
// Layout (little endian):
//
//	u32       type tag (1 for an initialized table)
//	u64       deactivation slot (u64::MAX while active)
//	u64       last extended slot
//	u8        last extended slot start index
//	u8        authority flag
//	[32]      authority (present even when the flag is 0)
//	[2]       padding
//	[32]*     addresses
type AddressLookupTableState struct {
	DeactivationSlot           uint64
	LastExtendedSlot           uint64
	LastExtendedSlotStartIndex uint8
	Authority                  *solana.PublicKey
	Addresses                  solana.PublicKeySlice
}

// IsActive reports whether the table has not been deactivated.
func (state *AddressLookupTableState) IsActive() bool {
	return state.DeactivationSlot == math.MaxUint64
}

// Account pairs the state with the table address, as consumed by
// solana.CompileV0Message.
func (state *AddressLookupTableState) Account(key solana.PublicKey) solana.AddressLookupTableAccount {
	return solana.AddressLookupTableAccount{
		Key:       key,
		Addresses: state.Addresses,
	}
}

func (state AddressLookupTableState) MarshalWithEncoder(encoder *bin.Encoder) (err error) {
	if len(state.Addresses) > LookupTableMaxAddresses {
		return fmt.Errorf("%w: %d addresses, max %d", ErrInvalidLookupTable, len(state.Addresses), LookupTableMaxAddresses)
	}
	if err = encoder.WriteUint32(lookupTableTypeTag, binary.LittleEndian); err != nil {
		return err
	}
	if err = encoder.WriteUint64(state.DeactivationSlot, binary.LittleEndian); err != nil {
		return err
	}
	if err = encoder.WriteUint64(state.LastExtendedSlot, binary.LittleEndian); err != nil {
		return err
	}
	if err = encoder.WriteUint8(state.LastExtendedSlotStartIndex); err != nil {
		return err
	}
	var authority solana.PublicKey
	if state.Authority != nil {
		authority = *state.Authority
		err = encoder.WriteUint8(1)
	} else {
		err = encoder.WriteUint8(0)
	}
	if err != nil {
		return err
	}
	if err = encoder.WriteBytes(authority[:], false); err != nil {
		return err
	}
	if err = encoder.WriteUint16(0, binary.LittleEndian); err != nil {
		return err
	}
	for _, address := range state.Addresses {
		if err = encoder.WriteBytes(address[:], false); err != nil {
			return err
		}
	}
	return nil
}

func (state *AddressLookupTableState) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < LookupTableMetaSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidLookupTable, decoder.Remaining(), LookupTableMetaSize)
	}
	typeTag, err := decoder.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	if typeTag != lookupTableTypeTag {
		return fmt.Errorf("%w: type tag %d", ErrInvalidLookupTable, typeTag)
	}

	var out AddressLookupTableState
	if out.DeactivationSlot, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if out.LastExtendedSlot, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if out.LastExtendedSlotStartIndex, err = decoder.ReadUint8(); err != nil {
		return err
	}
	hasAuthority, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	authority, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	switch hasAuthority {
	case 0:
	case 1:
		out.Authority = solana.PublicKeyFromBytes(authority).ToPointer()
	default:
		return fmt.Errorf("%w: authority option tag %d", ErrInvalidLookupTable, hasAuthority)
	}
	if _, err = decoder.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}

	remaining := decoder.Remaining()
	if remaining%solana.PublicKeyLength != 0 {
		return fmt.Errorf("%w: %d trailing bytes are not a whole number of addresses", ErrInvalidLookupTable, remaining)
	}
	out.Addresses = make(solana.PublicKeySlice, remaining/solana.PublicKeyLength)
	for i := range out.Addresses {
		raw, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		out.Addresses[i] = solana.PublicKeyFromBytes(raw)
	}
	*state = out
	return nil
}

func (state *AddressLookupTableState) clone() *AddressLookupTableState {
	out := *state
	if state.Authority != nil {
		out.Authority = state.Authority.ToPointer()
	}
	out.Addresses = append(solana.PublicKeySlice(nil), state.Addresses...)
	return &out
}

// DecodeAddressLookupTableState decodes the data of a lookup table account.
func DecodeAddressLookupTableState(data []byte) (*AddressLookupTableState, error) {
	state := new(AddressLookupTableState)
	if err := state.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return state, nil
}

// MarshalBinary encodes the state as stored on chain.
func (state AddressLookupTableState) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := state.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeriveLookupTableAddress returns the address of the table created by
// authority at recentSlot, and its bump seed.
func DeriveLookupTableAddress(authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8, error) {
	slot := binary.LittleEndian.AppendUint64(nil, recentSlot)
	return solana.FindProgramAddress([][]byte{authority[:], slot}, solana.AddressLookupTableProgramID)
}
