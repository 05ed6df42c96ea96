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
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solana "github.com/yydsqu/solana-txkit"
)

func testPayer() solana.PrivateKey {
	return solana.PrivateKey(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize)))
}

func testTransaction(t *testing.T, sign bool) *solana.Transaction {
	t.Helper()
	payer := testPayer()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			solana.NewInstruction(
				solana.MemoProgramID,
				solana.AccountMetaSlice{solana.Meta(payer.PublicKey()).WRITE().SIGNER()},
				[]byte("hello"),
			),
		},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	if sign {
		require.NoError(t, tx.SignWith(payer))
	}
	return tx
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	blockhash := solana.Hash{4, 5, 6}
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "getLatestBlockhash", req.Method)
		assert.Equal(t, "finalized", paramObject(t, req, 0)["commitment"])
		return M{
			"context": M{"slot": 10},
			"value": M{
				"blockhash":            blockhash.String(),
				"lastValidBlockHeight": 200,
			},
		}
	})

	out, err := client.GetLatestBlockhash(context.Background(), CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), out.Context.Slot)
	assert.Equal(t, blockhash, out.Value.Blockhash)
	assert.Equal(t, uint64(200), out.Value.LastValidBlockHeight)
}

func TestClient_GetAccountInfo(t *testing.T) {
	account := solana.PublicKeyFromBytes([]byte{1, 1, 1})
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "getAccountInfo", req.Method)
		assert.Len(t, req.Params, 2)
		assert.Equal(t, account.String(), req.Params[0])
		assert.Equal(t, "base64", paramObject(t, req, 1)["encoding"])
		return M{
			"context": M{"slot": 3},
			"value": M{
				"lamports":   42,
				"owner":      solana.SystemProgramID.String(),
				"data":       []string{base64.StdEncoding.EncodeToString([]byte("state")), "base64"},
				"executable": false,
				"rentEpoch":  0,
				"space":      5,
			},
		}
	})

	out, err := client.GetAccountInfo(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), out.Value.Lamports)
	assert.Equal(t, solana.SystemProgramID, out.Value.Owner)
	assert.Equal(t, []byte("state"), out.GetBinary())
}

func TestClient_GetAccountInfoWithOpts(t *testing.T) {
	offset, length, minSlot := uint64(4), uint64(8), uint64(99)
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		obj := paramObject(t, req, 1)
		assert.Equal(t, "base64+zstd", obj["encoding"])
		assert.Equal(t, "confirmed", obj["commitment"])
		assert.Equal(t, map[string]interface{}{"offset": float64(4), "length": float64(8)}, obj["dataSlice"])
		assert.Equal(t, float64(99), obj["minContextSlot"])
		return M{"context": M{"slot": 3}, "value": nil}
	})

	_, err := client.GetAccountInfoWithOpts(context.Background(), solana.SystemProgramID, &GetAccountInfoOpts{
		Encoding:       solana.EncodingBase64Zstd,
		Commitment:     CommitmentConfirmed,
		DataSlice:      &DataSlice{Offset: &offset, Length: &length},
		MinContextSlot: &minSlot,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_SendTransaction(t *testing.T) {
	tx := testTransaction(t, true)
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "sendTransaction", req.Method)
		encoded, _ := req.Params[0].(string)
		received, err := solana.TransactionFromBase64(encoded)
		if !assert.NoError(t, err) {
			return &RPCError{Code: -32602, Message: err.Error()}
		}
		assert.NoError(t, received.VerifySignatures(true))

		obj := paramObject(t, req, 1)
		assert.Equal(t, "base64", obj["encoding"])
		assert.Equal(t, true, obj["skipPreflight"])
		assert.Equal(t, "processed", obj["preflightCommitment"])
		return received.Signatures[0].String()
	})

	sig, err := client.SendTransactionWithOpts(context.Background(), tx, TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: CommitmentProcessed,
	})
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
}

func TestClient_SendTransaction_unsigned(t *testing.T) {
	client := New("http://127.0.0.1:0")
	_, err := client.SendTransaction(context.Background(), testTransaction(t, false))
	assert.ErrorIs(t, err, solana.ErrMissingSignature)
}

func TestClient_SendRawTransaction(t *testing.T) {
	tx := testTransaction(t, true)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, base64.StdEncoding.EncodeToString(raw), req.Params[0])
		assert.Equal(t, map[string]interface{}{"encoding": "base64"}, paramObject(t, req, 1))
		return tx.Signatures[0].String()
	})

	sig, err := client.SendRawTransaction(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	known := solana.Signature{1}
	unknown := solana.Signature{2}
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "getSignatureStatuses", req.Method)
		assert.Equal(t, []interface{}{known.String(), unknown.String()}, req.Params[0])
		assert.Equal(t, true, paramObject(t, req, 1)["searchTransactionHistory"])
		return M{
			"context": M{"slot": 82},
			"value": []interface{}{
				M{"slot": 72, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"},
				nil,
			},
		}
	})

	out, err := client.GetSignatureStatuses(context.Background(), true, known, unknown)
	require.NoError(t, err)
	require.Len(t, out.Value, 2)
	assert.Equal(t, uint64(72), out.Value[0].Slot)
	assert.Nil(t, out.Value[0].Confirmations)
	assert.Equal(t, ConfirmationStatusFinalized, out.Value[0].ConfirmationStatus)
	assert.Nil(t, out.Value[1])

	_, err = client.GetSignatureStatuses(context.Background(), false)
	assert.Error(t, err)
}

func TestClient_SimulateTransaction(t *testing.T) {
	tx := testTransaction(t, false)
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "simulateTransaction", req.Method)
		obj := paramObject(t, req, 1)
		assert.Equal(t, true, obj["replaceRecentBlockhash"])
		assert.Nil(t, obj["sigVerify"])
		return M{
			"context": M{"slot": 1},
			"value": M{
				"err":           nil,
				"logs":          []string{"Program log: hello"},
				"accounts":      nil,
				"unitsConsumed": 1500,
			},
		}
	})

	out, err := client.SimulateTransactionWithOpts(context.Background(), tx, &SimulateTransactionOpts{
		ReplaceRecentBlockhash: true,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Value.Err)
	assert.Equal(t, []string{"Program log: hello"}, out.Value.Logs)
	require.NotNil(t, out.Value.UnitsConsumed)
	assert.Equal(t, uint64(1500), *out.Value.UnitsConsumed)

	_, err = client.SimulateTransactionWithOpts(context.Background(), tx, &SimulateTransactionOpts{
		SigVerify:              true,
		ReplaceRecentBlockhash: true,
	})
	assert.Error(t, err)
}

func TestClient_rpcError(t *testing.T) {
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		return &RPCError{Code: -32602, Message: "Invalid params"}
	})

	_, err := client.GetLatestBlockhash(context.Background(), "")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "rpc error -32602: Invalid params", rpcErr.Error())
}

func TestClient_httpError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).GetLatestBlockhash(context.Background(), "")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
	assert.Contains(t, string(httpErr.Body), "overloaded")
}

func TestClient_headers(t *testing.T) {
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		return M{"context": M{"slot": 1}, "value": M{"blockhash": solana.Hash{}.String(), "lastValidBlockHeight": 1}}
	}, WithHeaders(map[string]string{"Authorization": "Bearer token"}))

	_, err := client.GetLatestBlockhash(context.Background(), "")
	require.NoError(t, err)
}

func TestClient_rateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(t *testing.T, r *http.Request, req *request) interface{} {
		calls.Add(1)
		return M{"context": M{"slot": 1}, "value": M{"blockhash": solana.Hash{}.String(), "lastValidBlockHeight": 1}}
	}, WithRateLimit(10, 1))

	_, err := client.GetLatestBlockhash(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetLatestBlockhash(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}
