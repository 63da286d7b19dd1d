// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vapor-ware/synse-client-go/pkg/models"
)

// Request events for the WebSocket API.
const (
	requestConfig       = "request/config"
	requestInfo         = "request/info"
	requestPlugin       = "request/plugin"
	requestPluginHealth = "request/plugin_health"
	requestPlugins      = "request/plugins"
	requestRead         = "request/read"
	requestReadCache    = "request/read_cache"
	requestReadDevice   = "request/read_device"
	requestReadStream   = "request/read_stream"
	requestScan         = "request/scan"
	requestStatus       = "request/status"
	requestTags         = "request/tags"
	requestTransaction  = "request/transaction"
	requestTransactions = "request/transactions"
	requestVersion      = "request/version"
	requestWriteAsync   = "request/write_async"
	requestWriteSync    = "request/write_sync"

	// responseError is the event of an error reply frame.
	responseError = "response/error"
)

// streamBuffer is the capacity of the reply slot registered for a streaming
// exchange. The reader never blocks on a slot: a consumer which stops
// pulling simply stops seeing frames once its slot fills.
const streamBuffer = 128

// request is the envelope for an outbound WebSocket API request. The data
// key is omitted entirely when the operation takes no parameters.
type request struct {
	ID    int64       `json:"id"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// response is a decoded reply frame.
type response struct {
	// ID is the correlation ID echoed from the request. The server
	// reports -1 when it could not associate an error with a request.
	ID    int64           `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// err converts an error reply frame into its typed failure. It returns nil
// for normal reply frames.
func (r *response) err() error {
	if r.Event != responseError {
		return nil
	}
	var data errorEventData
	if e := json.Unmarshal(r.Data, &data); e != nil {
		// The frame could not be parsed as a structured error; fall
		// back to the raw payload as the message.
		return NewSynseError(string(r.Data), e)
	}
	return checkErrorEvent(data)
}

// WebSocketClient is the persistent-connection binding of the Synse Server
// v3 API. One physical connection multiplexes many logically independent
// request/response exchanges and zero or more open-ended streaming
// exchanges. Each outbound request is tagged with a correlation ID; a single
// reader goroutine owns the receive side of the connection and dispatches
// each inbound frame to the exchange registered under the frame's id.
//
// The client must be connected with Connect before use; a client whose
// connection has closed cannot be reconnected.
type WebSocketClient struct {
	options *Options
	log     zerolog.Logger
	dialer  *websocket.Dialer

	// connectURL is the WebSocket endpoint to dial.
	connectURL string

	// conn is the underlying connection. It is nil until Connect
	// succeeds. connMu guards the connect/close transitions; writeMu
	// serializes frame writes (the connection permits one concurrent
	// writer).
	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex
	closed  bool

	// counter is the correlation ID source: a strictly increasing
	// sequence starting at 0, guarded by counterMu. The critical section
	// covers only the read-increment-return.
	counter   int64
	counterMu sync.Mutex

	// pending maps in-flight correlation IDs to their reply slots.
	pending   map[int64]chan *response
	pendingMu sync.Mutex

	// done is closed when the reader loop exits, failing any exchange
	// still waiting. readErr holds the classified failure which ended
	// the loop and orderly records whether the connection ended with a
	// normal close handshake; both are written before done is closed.
	done    chan struct{}
	readErr error
	orderly bool
}

// NewWebSocketClient creates a new WebSocket client for the Synse Server
// instance configured in the given options. The returned client is not yet
// connected; call Connect before issuing requests.
func NewWebSocketClient(opts *Options) *WebSocketClient {
	opts.setDefaults()

	return &WebSocketClient{
		options: opts,
		log:     opts.Logger.With().Str("component", "synse-websocket").Logger(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.WebSocket.HandshakeTimeout,
			ReadBufferSize:   opts.WebSocket.ReadBufferSize,
			WriteBufferSize:  opts.WebSocket.WriteBufferSize,
		},
		connectURL: fmt.Sprintf("ws://%s/%s/connect", withDefaultPort(opts.Address), apiVersion),
		pending:    make(map[int64]chan *response),
		done:       make(chan struct{}),
	}
}

// NextRequestID returns the next unused correlation ID. IDs start at 0 and
// are strictly increasing for the life of the client; no two calls observe
// the same value. This is normally only used internally when building
// request envelopes.
func (c *WebSocketClient) NextRequestID() int64 {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()

	id := c.counter
	c.counter++
	return id
}

// Connect establishes the WebSocket connection with Synse Server. Connect is
// idempotent: connecting an already-connected client returns the existing
// connection without dialing again. A failed connect leaves the client
// unconnected; a closed client cannot be reconnected.
func (c *WebSocketClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.connectURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.log.Error().Err(err).Str("url", c.connectURL).Msg("failed to connect")
		return wrapTransportError(fmt.Sprintf("connect to %s", c.connectURL), err)
	}

	c.conn = conn
	go c.readLoop(conn)
	return nil
}

// Close closes the client connection. Closing an already-closed client is a
// no-op. Any exchange still in flight fails with a connection-closed error.
func (c *WebSocketClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return wrapTransportError("close connection", err)
	}
	return nil
}

// connection returns the live connection, or the not-connected /
// connection-closed failure applicable to the client's current state.
func (c *WebSocketClient) connection() (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// readLoop is the sole reader of the connection. It decodes each inbound
// frame and resolves the pending exchange whose correlation ID matches the
// frame's id. Error frames which cannot be correlated (the server reports
// id -1 when the request itself was unintelligible) are fanned out to every
// pending exchange; any other unroutable frame is dropped.
func (c *WebSocketClient) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.fail(ErrClosed, true)
			} else {
				c.fail(wrapTransportError("receive frame", err), false)
			}
			return
		}

		var resp response
		if err := json.Unmarshal(message, &resp); err != nil {
			c.fail(NewSynseError("received an unparseable frame", err), false)
			return
		}

		c.pendingMu.Lock()
		slot, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()

		if ok {
			select {
			case slot <- &resp:
			default:
				// The exchange's slot is full; the consumer has
				// stopped pulling. Dropping the frame is the
				// client-side backpressure.
				c.log.Debug().Int64("id", resp.ID).Str("event", resp.Event).
					Msg("dropping frame for a stalled exchange")
			}
			continue
		}

		if resp.Event == responseError {
			c.pendingMu.Lock()
			for _, s := range c.pending {
				select {
				case s <- &resp:
				default:
				}
			}
			c.pendingMu.Unlock()
			continue
		}

		c.log.Debug().Int64("id", resp.ID).Str("event", resp.Event).
			Msg("dropping frame with no matching exchange")
	}
}

// fail records the failure which ended the reader loop and releases every
// waiting exchange. The client degrades to closed: it cannot be reconnected.
func (c *WebSocketClient) fail(err error, orderly bool) {
	c.readErr = err
	c.orderly = orderly
	close(c.done)

	c.connMu.Lock()
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connMu.Unlock()
}

// register creates the reply slot for a correlation ID. The slot must be
// registered before the request is sent so that a fast reply cannot race
// the waiter.
func (c *WebSocketClient) register(id int64, buffer int) chan *response {
	slot := make(chan *response, buffer)
	c.pendingMu.Lock()
	c.pending[id] = slot
	c.pendingMu.Unlock()
	return slot
}

// unregister removes the reply slot for a correlation ID.
func (c *WebSocketClient) unregister(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// send serializes and writes a request envelope over the connection.
func (c *WebSocketClient) send(conn *websocket.Conn, req *request) error {
	encoded, err := json.Marshal(req)
	if err != nil {
		return NewSynseError("failed to encode request", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
		c.log.Error().Err(err).Str("event", req.Event).Msg("failed to send request")
		return wrapTransportError(fmt.Sprintf("send %s request", req.Event), err)
	}
	return nil
}

// closeErr reports how a stream should end when the connection goes away:
// an orderly close handshake is a normal end of stream, anything else is the
// classified failure which ended the reader loop.
func (c *WebSocketClient) closeErr() error {
	if c.orderly {
		return nil
	}
	return c.readErr
}

// deadline bounds an exchange: the caller's context deadline when it has
// one, the configured request timeout otherwise.
func (c *WebSocketClient) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if t := c.options.WebSocket.RequestTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return ctx, func() {}
}

// makeRequest performs one request/single-reply exchange: allocate a
// correlation ID, register its reply slot, send the tagged envelope, and
// await exactly one matching reply frame.
func (c *WebSocketClient) makeRequest(ctx context.Context, event string, data interface{}) (json.RawMessage, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.deadline(ctx)
	defer cancel()

	id := c.NextRequestID()
	slot := c.register(id, 1)
	defer c.unregister(id)

	if err := c.send(conn, &request{ID: id, Event: event, Data: data}); err != nil {
		return nil, err
	}

	select {
	case resp := <-slot:
		if err := resp.err(); err != nil {
			return nil, err
		}
		return resp.Data, nil
	case <-c.done:
		return nil, c.readErr
	case <-ctx.Done():
		return nil, NewSynseError(
			fmt.Sprintf("timed out waiting for the %s response", strings.TrimPrefix(event, "request/")),
			ctx.Err(),
		)
	}
}

// streamRequest performs an open-ended exchange: one tagged envelope is
// sent, then every subsequent frame carrying the same correlation ID is
// decoded and surfaced on the returned stream until the consumer stops, the
// context is cancelled, an error frame arrives, or the connection closes.
// No stop control message is sent to the server when the consumer abandons
// the stream.
func (c *WebSocketClient) streamRequest(ctx context.Context, event string, data interface{}) (*ReadingStream, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	id := c.NextRequestID()
	slot := c.register(id, streamBuffer)

	if err := c.send(conn, &request{ID: id, Event: event, Data: data}); err != nil {
		c.unregister(id)
		return nil, err
	}

	stream := newReadingStream(streamBuffer)
	go func() {
		defer c.unregister(id)

		for {
			// Frames already dispatched to the slot are drained before
			// the end-of-stream conditions are considered, so a close
			// racing the last frames cannot drop them.
			var resp *response
			select {
			case resp = <-slot:
			default:
				select {
				case resp = <-slot:
				case <-stream.stop:
					stream.finish(nil)
					return
				case <-ctx.Done():
					stream.finish(nil)
					return
				case <-c.done:
					stream.finish(c.closeErr())
					return
				}
			}

			if err := resp.err(); err != nil {
				stream.finish(err)
				return
			}

			reading, err := models.Make[models.Reading](resp.Data)
			if err != nil {
				stream.finish(NewSynseError("failed to decode streamed reading", err))
				return
			}

			select {
			case stream.readings <- reading:
			case <-stream.stop:
				stream.finish(nil)
				return
			case <-ctx.Done():
				stream.finish(nil)
				return
			case <-c.done:
				stream.finish(c.closeErr())
				return
			}
		}
	}()

	return stream, nil
}

// Status checks the availability and connectivity status of the Synse
// Server instance.
func (c *WebSocketClient) Status(ctx context.Context) (*models.Status, error) {
	data, err := c.makeRequest(ctx, requestStatus, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Status](data)
}

// Version gets the version information for the Synse Server instance.
func (c *WebSocketClient) Version(ctx context.Context) (*models.Version, error) {
	data, err := c.makeRequest(ctx, requestVersion, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Version](data)
}

// Config gets the unified configuration for the Synse Server instance.
func (c *WebSocketClient) Config(ctx context.Context) (*models.Config, error) {
	data, err := c.makeRequest(ctx, requestConfig, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Config](data)
}

// Scan gets a summary of all devices currently exposed by the Synse Server
// instance.
func (c *WebSocketClient) Scan(ctx context.Context, opts ScanOptions) ([]*models.DeviceSummary, error) {
	data := map[string]interface{}{}
	if opts.Force {
		data["force"] = opts.Force
	}
	if opts.NS != "" {
		data["ns"] = opts.NS
	}
	if opts.Sort != "" {
		data["sort"] = opts.Sort
	}
	if len(opts.Tags) != 0 {
		data["tags"] = opts.Tags
	}

	resp, err := c.makeRequest(ctx, requestScan, emptyAsNil(data))
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.DeviceSummary](resp)
}

// Tags gets a list of the tags currently associated with registered devices.
func (c *WebSocketClient) Tags(ctx context.Context, opts TagsOptions) ([]string, error) {
	data := map[string]interface{}{}
	if opts.NS != "" {
		data["ns"] = opts.NS
	}
	if opts.IDs {
		data["ids"] = opts.IDs
	}

	resp, err := c.makeRequest(ctx, requestTags, emptyAsNil(data))
	if err != nil {
		return nil, err
	}

	var tags []string
	if err := json.Unmarshal(resp, &tags); err != nil {
		return nil, NewSynseError("failed to decode tags response", err)
	}
	return tags, nil
}

// Info gets all information associated with the specified device.
func (c *WebSocketClient) Info(ctx context.Context, device string) (*models.DeviceInfo, error) {
	data, err := c.makeRequest(ctx, requestInfo, map[string]interface{}{"device": device})
	if err != nil {
		return nil, err
	}
	return models.Make[models.DeviceInfo](data)
}

// Read gets the latest reading(s) for all devices which match the specified
// selector(s).
func (c *WebSocketClient) Read(ctx context.Context, opts ReadOptions) ([]*models.Reading, error) {
	data := map[string]interface{}{}
	if opts.NS != "" {
		data["ns"] = opts.NS
	}
	if len(opts.Tags) != 0 {
		data["tags"] = opts.Tags
	}

	resp, err := c.makeRequest(ctx, requestRead, emptyAsNil(data))
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.Reading](resp)
}

// ReadDevice gets the latest reading(s) for the specified device.
func (c *WebSocketClient) ReadDevice(ctx context.Context, device string) ([]*models.Reading, error) {
	data, err := c.makeRequest(ctx, requestReadDevice, map[string]interface{}{"device": device})
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.Reading](data)
}

// ReadCache gets a window of cached device readings. On the WebSocket
// binding the cache dump is returned in a single reply whose payload is an
// array; it is surfaced through the same stream type as the other
// open-ended reads for API symmetry.
func (c *WebSocketClient) ReadCache(ctx context.Context, opts ReadCacheOptions) (*ReadingStream, error) {
	data := map[string]interface{}{}
	if opts.Start != "" {
		data["start"] = opts.Start
	}
	if opts.End != "" {
		data["end"] = opts.End
	}

	resp, err := c.makeRequest(ctx, requestReadCache, emptyAsNil(data))
	if err != nil {
		return nil, err
	}

	readings, err := models.MakeList[models.Reading](resp)
	if err != nil {
		return nil, err
	}

	stream := newReadingStream(0)
	go func() {
		for _, reading := range readings {
			select {
			case stream.readings <- reading:
			case <-stream.stop:
				stream.finish(nil)
				return
			case <-ctx.Done():
				stream.finish(nil)
				return
			}
		}
		stream.finish(nil)
	}()
	return stream, nil
}

// ReadStream streams current reading data from Synse Server. All new
// readings for the matching devices are surfaced as they are read, until
// the stream is stopped, the context is cancelled, or the connection
// closes.
func (c *WebSocketClient) ReadStream(ctx context.Context, opts ReadStreamOptions) (*ReadingStream, error) {
	data := map[string]interface{}{}
	if len(opts.IDs) != 0 {
		data["ids"] = opts.IDs
	}
	if len(opts.Tags) != 0 {
		data["tag_groups"] = opts.Tags
	}

	return c.streamRequest(ctx, requestReadStream, emptyAsNil(data))
}

// WriteAsync writes to the specified device asynchronously, returning the
// transaction(s) associated with the write.
func (c *WebSocketClient) WriteAsync(
	ctx context.Context, device string, payload []WriteData,
) ([]*models.TransactionInfo, error) {

	data, err := c.makeRequest(ctx, requestWriteAsync, map[string]interface{}{
		"device":  device,
		"payload": payload,
	})
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.TransactionInfo](data)
}

// WriteSync writes to the specified device, waiting until the write action
// has completed.
func (c *WebSocketClient) WriteSync(
	ctx context.Context, device string, payload []WriteData,
) ([]*models.TransactionStatus, error) {

	data, err := c.makeRequest(ctx, requestWriteSync, map[string]interface{}{
		"device":  device,
		"payload": payload,
	})
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.TransactionStatus](data)
}

// Transaction gets the status of an asynchronous write transaction.
func (c *WebSocketClient) Transaction(ctx context.Context, id string) (*models.TransactionStatus, error) {
	data, err := c.makeRequest(ctx, requestTransaction, map[string]interface{}{"transaction": id})
	if err != nil {
		return nil, err
	}
	return models.Make[models.TransactionStatus](data)
}

// Transactions gets a list of the transactions currently tracked by Synse
// Server.
func (c *WebSocketClient) Transactions(ctx context.Context) ([]string, error) {
	data, err := c.makeRequest(ctx, requestTransactions, nil)
	if err != nil {
		return nil, err
	}

	var transactions []string
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, NewSynseError("failed to decode transactions response", err)
	}
	return transactions, nil
}

// Plugin gets all information associated with the specified plugin.
func (c *WebSocketClient) Plugin(ctx context.Context, id string) (*models.PluginInfo, error) {
	data, err := c.makeRequest(ctx, requestPlugin, map[string]interface{}{"plugin": id})
	if err != nil {
		return nil, err
	}
	return models.Make[models.PluginInfo](data)
}

// Plugins gets a summary of all plugins currently registered with the Synse
// Server instance.
func (c *WebSocketClient) Plugins(ctx context.Context) ([]*models.PluginSummary, error) {
	data, err := c.makeRequest(ctx, requestPlugins, nil)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.PluginSummary](data)
}

// PluginHealth gets a summary of the health of all currently registered
// plugins.
func (c *WebSocketClient) PluginHealth(ctx context.Context) (*models.PluginHealth, error) {
	data, err := c.makeRequest(ctx, requestPluginHealth, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.PluginHealth](data)
}

// emptyAsNil drops an empty parameter map so that the request envelope
// omits the data key entirely.
func emptyAsNil(data map[string]interface{}) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
