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
	"bytes"
	stdjson "encoding/json"
	"fmt"

	solana "github.com/yydsqu/solana-txkit"
)

type CommitmentType string

const (
	// The node queries the most recent block confirmed by supermajority of the
	// cluster as having reached maximum lockout.
	CommitmentFinalized CommitmentType = "finalized"
	// The node queries the most recent block that has been voted on by
	// supermajority of the cluster.
	CommitmentConfirmed CommitmentType = "confirmed"
	// The node queries its most recent block. The block may not be complete.
	CommitmentProcessed CommitmentType = "processed"
)

type Context struct {
	Slot uint64 `json:"slot"`
}

type RPCContext struct {
	Context Context `json:"context,omitempty"`
}

type DataSlice struct {
	Offset *uint64 `json:"offset,omitempty"`
	Length *uint64 `json:"length,omitempty"`
}

type Account struct {
	// Number of lamports assigned to this account
	Lamports uint64 `json:"lamports"`

	// Pubkey of the program this account has been assigned to
	Owner solana.PublicKey `json:"owner"`

	// Data associated with the account, either as encoded binary data or JSON format {<program>: <state>}, depending on encoding parameter
	Data *DataBytesOrJSON `json:"data"`

	// Boolean indicating if the account contains a program (and is strictly read-only)
	Executable bool `json:"executable"`

	// The epoch at which this account will next owe rent
	RentEpoch uint64 `json:"rentEpoch"`

	// Size of the account data in bytes
	Space uint64 `json:"space"`
}

// DataBytesOrJSON holds account data as returned by the node: either binary
// in one of the text encodings or raw JSON for "jsonParsed".
type DataBytesOrJSON struct {
	rawDataEncoding solana.EncodingType
	asDecodedBinary solana.Data
	asJSON          stdjson.RawMessage
}

func DataBytesOrJSONFromBytes(data []byte) *DataBytesOrJSON {
	return &DataBytesOrJSON{
		rawDataEncoding: solana.EncodingBase64,
		asDecodedBinary: solana.Data{
			Content:  data,
			Encoding: solana.EncodingBase64,
		},
	}
}

func (dt DataBytesOrJSON) MarshalJSON() ([]byte, error) {
	if dt.rawDataEncoding == solana.EncodingJSONParsed || dt.rawDataEncoding == solana.EncodingJSON {
		return json.Marshal(dt.asJSON)
	}
	return json.Marshal(dt.asDecodedBinary)
}

func (wrap *DataBytesOrJSON) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var binary solana.Data
		if err := json.Unmarshal(data, &binary); err != nil {
			return err
		}
		wrap.asDecodedBinary = binary
		wrap.rawDataEncoding = binary.Encoding
		wrap.asJSON = nil
	case '{':
		wrap.rawDataEncoding = solana.EncodingJSONParsed
		wrap.asJSON = append(stdjson.RawMessage(nil), data...)
		wrap.asDecodedBinary = solana.Data{}
	default:
		return fmt.Errorf("unsupported account data: %s", data)
	}
	return nil
}

// GetBinary returns the decoded binary data, or nil for JSON data.
func (dt *DataBytesOrJSON) GetBinary() []byte {
	return dt.asDecodedBinary.Content
}

// GetRawJSON returns the raw JSON data, or nil for binary data.
func (dt *DataBytesOrJSON) GetRawJSON() stdjson.RawMessage {
	return dt.asJSON
}

type ConfirmationStatusType string

const (
	ConfirmationStatusProcessed ConfirmationStatusType = "processed"
	ConfirmationStatusConfirmed ConfirmationStatusType = "confirmed"
	ConfirmationStatusFinalized ConfirmationStatusType = "finalized"
)
