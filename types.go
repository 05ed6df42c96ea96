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

package solana

import (
	"encoding/base64"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type EncodingType string

const (
	EncodingBase58     EncodingType = "base58"      // limited to Account data of less than 129 bytes
	EncodingBase64     EncodingType = "base64"      // will return base64 encoded data for Account data of any size
	EncodingBase64Zstd EncodingType = "base64+zstd" // compresses the Account data using Zstandard and base64-encodes the result

	// attempts to use program-specific state parsers to
	// return more human-readable and explicit account state data.
	// If "jsonParsed" is requested but a parser cannot be found,
	// the field falls back to "base64" encoding, detectable when the data field is type <string>.
	EncodingJSONParsed EncodingType = "jsonParsed"

	EncodingJSON EncodingType = "json"
)

// Base58 is a byte slice that is marshalled to JSON as a base58 string.
type Base58 []byte

func (t Base58) MarshalJSON() ([]byte, error) {
	return json.Marshal(base58.Encode(t))
}

func (t *Base58) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = []byte{}
		return nil
	}
	*t, err = base58.Decode(s)
	return
}

func (t Base58) String() string {
	return base58.Encode(t)
}

// Data is binary content tagged with the text encoding it travels in over
// JSON-RPC: `["<encoded>", "<encoding>"]`.
type Data struct {
	Content  []byte
	Encoding EncodingType

	// encoded text as received, re-emitted verbatim when Content is untouched
	received    string
	receivedLen int
}

var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdEncoder *zstd.Encoder
	zstdInitErr error
)

func zstdCodecs() (*zstd.Decoder, *zstd.Encoder, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdInitErr = zstd.NewReader(nil)
		if zstdInitErr != nil {
			return
		}
		zstdEncoder, zstdInitErr = zstd.NewWriter(nil)
	})
	return zstdDecoder, zstdEncoder, zstdInitErr
}

func (dt Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		[]interface{}{
			dt.encodedContent(),
			dt.Encoding,
		})
}

func (dt Data) encodedContent() string {
	if dt.received != "" && dt.receivedLen == len(dt.Content) {
		return dt.received
	}
	switch dt.Encoding {
	case EncodingBase58:
		return base58.Encode(dt.Content)
	case EncodingBase64Zstd:
		if len(dt.Content) == 0 {
			return ""
		}
		_, enc, err := zstdCodecs()
		if err != nil {
			return base64.StdEncoding.EncodeToString(dt.Content)
		}
		return base64.StdEncoding.EncodeToString(enc.EncodeAll(dt.Content, nil))
	default:
		return base64.StdEncoding.EncodeToString(dt.Content)
	}
}

func (dt *Data) UnmarshalJSON(data []byte) (err error) {
	var in []string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if len(in) != 2 {
		return fmt.Errorf("invalid length for solana.Data, expected 2, found %d", len(in))
	}

	contentString := in[0]
	encodingString := in[1]
	dt.Encoding = EncodingType(encodingString)

	if contentString == "" {
		dt.Content = []byte{}
		dt.received = ""
		dt.receivedLen = 0
		return nil
	}

	switch dt.Encoding {
	case EncodingBase58:
		dt.Content, err = base58.Decode(contentString)
		if err != nil {
			return err
		}
	case EncodingBase64:
		dt.Content, err = base64.StdEncoding.DecodeString(contentString)
		if err != nil {
			return err
		}
	case EncodingBase64Zstd:
		compressed, err := base64.StdEncoding.DecodeString(contentString)
		if err != nil {
			return err
		}
		dec, _, err := zstdCodecs()
		if err != nil {
			return fmt.Errorf("zstd init: %w", err)
		}
		dt.Content, err = dec.DecodeAll(compressed, nil)
		if err != nil {
			return fmt.Errorf("zstd decode: %w", err)
		}
	default:
		return fmt.Errorf("unsupported encoding %s", encodingString)
	}
	dt.received = contentString
	dt.receivedLen = len(dt.Content)
	return
}

func (dt Data) String() string {
	return dt.encodedContent()
}
