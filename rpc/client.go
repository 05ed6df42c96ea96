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
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when the node answers with a null value, e.g. for
// an account that does not exist.
var ErrNotFound = errors.New("not found")

// Responses larger than this are rejected.
const maxResponseBytes = 64 << 20

// Client is a JSON-RPC 2.0 client for a Solana node. It is safe for
// concurrent use. Calls are not retried.
type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    http.Header
	limiter    *rate.Limiter
	log        *zap.Logger

	nextID atomic.Uint64
}

type ClientOption func(cl *Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = httpClient
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(cl *Client) {
		for k, v := range headers {
			cl.headers.Set(k, v)
		}
	}
}

// WithRateLimit limits the client to rps requests per second, with bursts
// of up to burst requests.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(cl *Client) {
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(cl *Client) {
		if logger != nil {
			cl.log = logger
		}
	}
}

// New creates a client for the given endpoint, e.g. rpc.DevNet_RPC.
func New(endpoint string, opts ...ClientOption) *Client {
	cl := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    make(http.Header),
		log:        zlog,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

type request struct {
	Version string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type response struct {
	Version string             `json:"jsonrpc"`
	ID      uint64             `json:"id"`
	Result  stdjson.RawMessage `json:"result"`
	Error   *RPCError          `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is returned when the node answers with a non-2xx status and no
// JSON-RPC error object.
type HTTPError struct {
	Code   int
	Status string
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rpc http error: %s", e.Status)
}

// CallForInto calls method with params and decodes the result into out.
// A null result leaves out untouched.
func (cl *Client) CallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error {
	if cl.limiter != nil {
		if err := cl.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	id := cl.nextID.Add(1)
	body, err := json.Marshal(request{
		Version: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	for k, v := range cl.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	cl.log.Debug("rpc call",
		zap.String("method", method),
		zap.Uint64("id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &HTTPError{Code: resp.StatusCode, Status: resp.Status, Body: raw}
		}
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Code: resp.StatusCode, Status: resp.Status, Body: raw}
	}
	if decoded.ID != id {
		return fmt.Errorf("%s: response id %d does not match request id %d", method, decoded.ID, id)
	}
	if out == nil || len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
