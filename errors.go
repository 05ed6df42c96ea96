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

import "errors"

// Errors returned by the message compiler, the wire codecs and the signer.
// They are always wrapped with context; test with errors.Is.
var (
	ErrMalformedLength           = errors.New("malformed compact-u16 length")
	ErrTooManyAccounts           = errors.New("too many accounts")
	ErrUnknownAccountReference   = errors.New("unknown account reference")
	ErrUnsupportedMessageVersion = errors.New("unsupported message version")
	ErrMalformedMessage          = errors.New("malformed message")
	ErrLookupTableNotProvided    = errors.New("address lookup table not provided")
	ErrLookupIndexOutOfRange     = errors.New("address lookup table index out of range")
	ErrUnknownSigner             = errors.New("unknown signer")
	ErrMessageTooLarge           = errors.New("transaction too large")

	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
)
