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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustAnyToJSON(raw interface{}) []byte {
	out, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	return out
}

func mustJSONToInterface(rawJSON []byte) interface{} {
	var out interface{}
	err := json.Unmarshal(rawJSON, &out)
	if err != nil {
		panic(err)
	}
	return out
}

type testHandler func(t *testing.T, r *http.Request, req *request) interface{}

// newTestClient starts a JSON-RPC server answering every call with the
// result of handle, or with an error object when handle returns *RPCError.
func newTestClient(t *testing.T, handle testHandler, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "2.0", req.Version)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		result := handle(t, r, &req)
		if rpcErr, ok := result.(*RPCError); ok {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return New(server.URL, opts...)
}

// paramObject returns params[i] as a JSON object. It runs on the server
// goroutine, so failures are reported without stopping the test.
func paramObject(t *testing.T, req *request, i int) map[string]interface{} {
	t.Helper()
	if !assert.Greater(t, len(req.Params), i) {
		return nil
	}
	obj, ok := req.Params[i].(map[string]interface{})
	assert.True(t, ok, "param %d is %T", i, req.Params[i])
	return obj
}
