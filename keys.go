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
	crypto_rand "crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"os"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// Number of bytes in a public key.
	PublicKeyLength = 32
	// Number of bytes in a signature.
	SignatureLength = 64
	// Number of bytes in a blockhash.
	HashLength = 32

	// Maximum length of derived pubkey seed.
	MaxSeedLength = 32
	// Maximum number of seeds.
	MaxSeeds = 16
)

type PrivateKey []byte

func MustPrivateKeyFromBase58(in string) PrivateKey {
	out, err := PrivateKeyFromBase58(in)
	if err != nil {
		panic(err)
	}
	return out
}

func PrivateKeyFromBase58(privkey string) (PrivateKey, error) {
	res, err := base58.Decode(privkey)
	if err != nil {
		return nil, err
	}
	if len(res) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", ed25519.PrivateKeySize, len(res))
	}
	return res, nil
}

// PrivateKeyFromSolanaKeygenFile reads a keypair file as written by
// `solana-keygen` (a JSON array of 64 byte values).
func PrivateKeyFromSolanaKeygenFile(file string) (PrivateKey, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read keygen file: %w", err)
	}

	var values []int
	if err := json.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("decode keygen file: %w", err)
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid keygen file: expected %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}
	out := make(PrivateKey, len(values))
	for i, v := range values {
		if v < 0 || v > math.MaxUint8 {
			return nil, fmt.Errorf("invalid keygen file: value %d at position %d is not a byte", v, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func NewRandomPrivateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(crypto_rand.Reader)
	if err != nil {
		return nil, err
	}
	return PrivateKey(priv), nil
}

func (k PrivateKey) String() string {
	return base58.Encode(k)
}

func (k PrivateKey) PublicKey() PublicKey {
	if len(k) != ed25519.PrivateKeySize {
		panic(fmt.Errorf("invalid private key length: %d", len(k)))
	}
	return PublicKeyFromBytes(k[32:])
}

// Sign signs the payload with the private key.
func (k PrivateKey) Sign(payload []byte) (Signature, error) {
	if len(k) != ed25519.PrivateKeySize {
		return Signature{}, fmt.Errorf("invalid private key length: %d", len(k))
	}
	var signature Signature
	copy(signature[:], ed25519.Sign(ed25519.PrivateKey(k), payload))
	return signature, nil
}

type PublicKey [PublicKeyLength]byte

func PublicKeyFromBytes(in []byte) (out PublicKey) {
	byteCount := len(in)
	if byteCount == 0 {
		return
	}

	max := PublicKeyLength
	if byteCount < max {
		max = byteCount
	}

	copy(out[:], in[0:max])
	return
}

func MustPublicKeyFromBase58(in string) PublicKey {
	out, err := PublicKeyFromBase58(in)
	if err != nil {
		panic(err)
	}
	return out
}

func PublicKeyFromBase58(in string) (out PublicKey, err error) {
	val, err := base58.Decode(in)
	if err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}

	if len(val) != PublicKeyLength {
		return out, fmt.Errorf("invalid length, expected %v, got %d", PublicKeyLength, len(val))
	}

	copy(out[:], val)
	return
}

func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(p[:])), nil
}

func (p *PublicKey) UnmarshalText(data []byte) (err error) {
	*p, err = PublicKeyFromBase58(string(data))
	if err != nil {
		return fmt.Errorf("invalid public key %q: %w", data, err)
	}
	return
}

func (p PublicKey) Equals(pb PublicKey) bool {
	return p == pb
}

func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

func (p PublicKey) Bytes() []byte {
	return p[:]
}

func (p PublicKey) ToPointer() *PublicKey {
	return &p
}

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Short returns a shortened version of the key, e.g. "Vote11...1111".
func (p PublicKey) Short(n int) string {
	s := p.String()
	if n <= 0 || 2*n >= len(s) {
		return s
	}
	return s[:n] + "..." + s[len(s)-n:]
}

// IsOnCurve reports whether the key is a valid ed25519 point.
func (p PublicKey) IsOnCurve() bool {
	return IsOnCurve(p[:])
}

func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

type PublicKeySlice []PublicKey

// UniqueAppend appends the provided pubkey only if it is not
// already present in the slice.
// Returns true when the provided pubkey wasn't already present.
func (slice *PublicKeySlice) UniqueAppend(pubkey PublicKey) bool {
	if !slice.Has(pubkey) {
		slice.Append(pubkey)
		return true
	}
	return false
}

func (slice *PublicKeySlice) Append(pubkeys ...PublicKey) {
	*slice = append(*slice, pubkeys...)
}

func (slice PublicKeySlice) Has(pubkey PublicKey) bool {
	return slice.Index(pubkey) >= 0
}

// Index returns the position of the first occurrence of pubkey, or -1.
func (slice PublicKeySlice) Index(pubkey PublicKey) int {
	for i, key := range slice {
		if key == pubkey {
			return i
		}
	}
	return -1
}

func (slice PublicKeySlice) Len() int {
	return len(slice)
}

func (slice PublicKeySlice) Equals(other PublicKeySlice) bool {
	if len(slice) != len(other) {
		return false
	}
	for i := range slice {
		if slice[i] != other[i] {
			return false
		}
	}
	return true
}

func (slice PublicKeySlice) ToBase58() []string {
	out := make([]string, len(slice))
	for i, key := range slice {
		out[i] = key.String()
	}
	return out
}

type Hash [HashLength]byte

func HashFromBytes(in []byte) Hash {
	return Hash(PublicKeyFromBytes(in))
}

func MustHashFromBase58(in string) Hash {
	return Hash(MustPublicKeyFromBase58(in))
}

func HashFromBase58(in string) (Hash, error) {
	tmp, err := PublicKeyFromBase58(in)
	if err != nil {
		return Hash{}, err
	}
	return Hash(tmp), nil
}

func (ha Hash) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(ha[:])), nil
}

func (ha *Hash) UnmarshalText(data []byte) (err error) {
	tmp, err := HashFromBase58(string(data))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", data, err)
	}
	*ha = tmp
	return
}

func (ha Hash) Equals(pb Hash) bool {
	return ha == pb
}

func (ha Hash) IsZero() bool {
	return ha == Hash{}
}

func (ha Hash) String() string {
	return base58.Encode(ha[:])
}

type Signature [SignatureLength]byte

func SignatureFromBytes(in []byte) (out Signature) {
	byteCount := len(in)
	if byteCount == 0 {
		return
	}

	max := SignatureLength
	if byteCount < max {
		max = byteCount
	}

	copy(out[:], in[0:max])
	return
}

func MustSignatureFromBase58(in string) Signature {
	out, err := SignatureFromBase58(in)
	if err != nil {
		panic(err)
	}
	return out
}

func SignatureFromBase58(in string) (out Signature, err error) {
	val, err := base58.Decode(in)
	if err != nil {
		return
	}

	if len(val) != SignatureLength {
		err = fmt.Errorf("invalid length, expected 64, got %d", len(val))
		return
	}
	copy(out[:], val)
	return
}

func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(sig[:])), nil
}

func (sig *Signature) UnmarshalText(data []byte) (err error) {
	*sig, err = SignatureFromBase58(string(data))
	if err != nil {
		return fmt.Errorf("invalid signature %q: %w", data, err)
	}
	return
}

// IsZero reports whether the signature slot is empty (all zeros).
func (sig Signature) IsZero() bool {
	return sig == Signature{}
}

func (sig Signature) Equals(pb Signature) bool {
	return sig == pb
}

func (sig Signature) String() string {
	return base58.Encode(sig[:])
}

// Verify checks that the signature is a valid ed25519 signature of msg by pubkey.
func (sig Signature) Verify(pubkey PublicKey, msg []byte) bool {
	return ed25519.Verify(pubkey[:], msg, sig[:])
}

var ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

const PDA_MARKER = "ProgramDerivedAddress"

// CreateProgramAddress derives a program address from seeds and a program ID.
// The result must fall off the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLengthExceeded
	}

	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, ErrMaxSeedLengthExceeded
		}
	}

	buf := new(bytes.Buffer)
	for _, seed := range seeds {
		buf.Write(seed)
	}

	buf.Write(programID[:])
	buf.WriteString(PDA_MARKER)
	hash := sha256.Sum256(buf.Bytes())

	if IsOnCurve(hash[:]) {
		return PublicKey{}, errors.New("invalid seeds; address must fall off the curve")
	}

	return PublicKeyFromBytes(hash[:]), nil
}

// FindProgramAddress searches for the first bump seed (from 255 down)
// that yields a valid program address.
func FindProgramAddress(seed [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	var address PublicKey
	var err error
	bumpSeed := uint8(math.MaxUint8)
	seeds := make([][]byte, len(seed), len(seed)+1)
	copy(seeds, seed)
	for bumpSeed != 0 {
		address, err = CreateProgramAddress(append(seeds, []byte{bumpSeed}), programID)
		if err == nil {
			return address, bumpSeed, nil
		}
		bumpSeed--
	}
	return PublicKey{}, bumpSeed, errors.New("unable to find a valid program address")
}
