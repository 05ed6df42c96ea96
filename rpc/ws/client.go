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

package ws

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/yydsqu/solana-txkit/rpc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrClosed          = errors.New("websocket client closed")
	ErrUnsubscribed    = errors.New("subscription closed")
	ErrSlowSubscriber  = errors.New("subscription buffer full")
	errUnexpectedReply = errors.New("unexpected subscription reply")
)

const (
	writeTimeout       = 10 * time.Second
	defaultBufferSize  = 128
	defaultHandshakeTO = 10 * time.Second
)

type options struct {
	headers    http.Header
	logger     *zap.Logger
	bufferSize int
}

type Option func(opts *options)

// WithHeaders adds headers to the websocket handshake.
func WithHeaders(headers map[string]string) Option {
	return func(opts *options) {
		for k, v := range headers {
			opts.headers.Set(k, v)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithBufferSize sets how many notifications a subscription holds before it
// is dropped with ErrSlowSubscriber.
func WithBufferSize(size int) Option {
	return func(opts *options) {
		if size > 0 {
			opts.bufferSize = size
		}
	}
}

type request struct {
	Version string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// message is either a reply to a request or a subscription notification.
type message struct {
	Version string             `json:"jsonrpc"`
	ID      uint64             `json:"id"`
	Result  stdjson.RawMessage `json:"result"`
	Error   *rpc.RPCError      `json:"error"`
	Method  string             `json:"method"`
	Params  *struct {
		Result       stdjson.RawMessage `json:"result"`
		Subscription uint64             `json:"subscription"`
	} `json:"params"`
}

// Client is a Solana pubsub client. One goroutine reads the connection and
// dispatches replies and notifications; writes are serialised.
type Client struct {
	conn       *websocket.Conn
	log        *zap.Logger
	bufferSize int

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]func(msg *message)
	subs    map[uint64]*subscription
	err     error

	closed    chan struct{}
	closeOnce sync.Once
	connOnce  sync.Once
}

// Connect dials endpoint (e.g. rpc.DevNet_WS) and starts the read loop.
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := &options{
		headers:    make(http.Header),
		logger:     zlog,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  defaultHandshakeTO,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, o.headers)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		conn:       conn,
		log:        o.logger,
		bufferSize: o.bufferSize,
		pending:    make(map[uint64]func(msg *message)),
		subs:       make(map[uint64]*subscription),
		closed:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				c.shutdown(ErrClosed)
			default:
				c.log.Debug("websocket read loop stopped", zap.Error(err))
				c.shutdown(fmt.Errorf("%w: %w", ErrClosed, err))
			}
			return
		}

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("dropping undecodable websocket message", zap.Error(err))
			continue
		}
		if msg.Params != nil && msg.Method != "" {
			c.dispatchNotification(&msg)
			continue
		}

		c.mu.Lock()
		handle := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if handle != nil {
			handle(&msg)
		}
	}
}

func (c *Client) dispatchNotification(msg *message) {
	id := msg.Params.Subscription
	c.mu.Lock()
	sub := c.subs[id]
	if sub != nil && sub.single {
		delete(c.subs, id)
	}
	c.mu.Unlock()
	if sub == nil {
		c.log.Debug("notification for unknown subscription", zap.String("method", msg.Method), zap.Uint64("subscription", id))
		return
	}

	select {
	case sub.stream <- msg.Params.Result:
		if sub.single {
			sub.close(ErrUnsubscribed)
		}
	default:
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		sub.close(ErrSlowSubscriber)
		c.log.Debug("dropping slow subscription", zap.Uint64("subscription", id))
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	subs := c.subs
	c.subs = make(map[uint64]*subscription)
	c.pending = make(map[uint64]func(msg *message))
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	for _, sub := range subs {
		sub.close(err)
	}
}

// Close closes the connection and every subscription.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	var err error
	c.connOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func (c *Client) write(req *request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

// call sends a request and waits for its reply. handle runs on the read
// loop before call returns.
func (c *Client) call(ctx context.Context, method string, params []interface{}, handle func(msg *message) error) error {
	select {
	case <-c.closed:
		return c.closeErr()
	default:
	}

	done := make(chan error, 1)
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = func(msg *message) {
		if msg.Error != nil {
			done <- msg.Error
			return
		}
		done <- handle(msg)
	}
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.log.Debug("websocket call", zap.String("method", method), zap.Uint64("id", id))
	if err := c.write(&request{Version: "2.0", ID: id, Method: method, Params: params}); err != nil {
		forget()
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		forget()
		return ctx.Err()
	case <-c.closed:
		return c.closeErr()
	}
}

// subscribe sends a subscription request. The subscription is registered
// by the read loop before any later notification is dispatched.
func (c *Client) subscribe(ctx context.Context, method, unsubscribeMethod string, single bool, params []interface{}) (*subscription, error) {
	sub := &subscription{
		client:            c,
		unsubscribeMethod: unsubscribeMethod,
		single:            single,
		stream:            make(chan stdjson.RawMessage, c.bufferSize),
		done:              make(chan struct{}),
	}
	err := c.call(ctx, method, params, func(msg *message) error {
		var id uint64
		if err := json.Unmarshal(msg.Result, &id); err != nil {
			return fmt.Errorf("%w: %s", errUnexpectedReply, msg.Result)
		}
		sub.id = id
		c.mu.Lock()
		c.subs[id] = sub
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

type subscription struct {
	client            *Client
	id                uint64
	unsubscribeMethod string
	// single subscriptions are removed by the node after one notification.
	single bool

	stream    chan stdjson.RawMessage
	done      chan struct{}
	err       error
	closeOnce sync.Once
}

func (s *subscription) close(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *subscription) recv(ctx context.Context) (stdjson.RawMessage, error) {
	select {
	case raw := <-s.stream:
		return raw, nil
	default:
	}
	select {
	case raw := <-s.stream:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		select {
		case raw := <-s.stream:
			return raw, nil
		default:
			return nil, s.err
		}
	}
}

func (s *subscription) unsubscribe() error {
	c := s.client
	c.mu.Lock()
	_, active := c.subs[s.id]
	delete(c.subs, s.id)
	c.mu.Unlock()
	s.close(ErrUnsubscribed)
	if !active {
		return nil
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	// the reply is not awaited; the read loop drops it.
	return c.write(&request{
		Version: "2.0",
		ID:      id,
		Method:  s.unsubscribeMethod,
		Params:  []interface{}{s.id},
	})
}

// Subscription delivers decoded notifications of type T.
type Subscription[T any] struct {
	sub *subscription
}

// Recv blocks until the next notification, ctx is done, or the
// subscription is closed.
func (s *Subscription[T]) Recv(ctx context.Context) (*T, error) {
	raw, err := s.sub.recv(ctx)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return out, nil
}

// Unsubscribe stops the subscription. Pending Recv calls return
// ErrUnsubscribed.
func (s *Subscription[T]) Unsubscribe() error {
	return s.sub.unsubscribe()
}

// ID returns the subscription id assigned by the node.
func (s *Subscription[T]) ID() uint64 {
	return s.sub.id
}
