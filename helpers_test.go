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
	"bytes"
	"crypto/ed25519"
)

// testKey returns a fixed, distinct address for n.
func testKey(n byte) PublicKey {
	var out PublicKey
	for i := range out {
		out[i] = n
	}
	out[0] = 0xA0
	return out
}

// testSigner returns a deterministic key pair for seed.
func testSigner(seed byte) PrivateKey {
	return PrivateKey(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
}

func testHash(n byte) Hash {
	return Hash(testKey(n))
}
