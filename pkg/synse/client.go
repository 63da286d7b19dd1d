// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

// Package synse provides clients for the Synse Server v3 API. The same
// logical operation set is offered over two transport bindings: a one-shot
// request/response binding over HTTP (HTTPClient), and a message-correlated
// binding multiplexed over a persistent WebSocket connection
// (WebSocketClient). Response payloads are deserialized into the typed
// models of the pkg/models package.
package synse

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/vapor-ware/synse-client-go/pkg/models"
)

// Client is the transport-agnostic surface for the Synse Server v3 API.
// It is implemented once per transport binding.
type Client interface {
	// Status checks the availability and connectivity status of the
	// Synse Server instance.
	Status(ctx context.Context) (*models.Status, error)

	// Version gets the version information for the Synse Server instance.
	Version(ctx context.Context) (*models.Version, error)

	// Config gets the unified configuration for the Synse Server instance.
	Config(ctx context.Context) (*models.Config, error)

	// Scan gets a summary of all devices currently exposed by the Synse
	// Server instance.
	Scan(ctx context.Context, opts ScanOptions) ([]*models.DeviceSummary, error)

	// Tags gets a list of the tags currently associated with registered
	// devices.
	Tags(ctx context.Context, opts TagsOptions) ([]string, error)

	// Info gets all information associated with the specified device.
	Info(ctx context.Context, device string) (*models.DeviceInfo, error)

	// Read gets the latest reading(s) for all devices which match the
	// specified selector(s).
	Read(ctx context.Context, opts ReadOptions) ([]*models.Reading, error)

	// ReadDevice gets the latest reading(s) for the specified device.
	ReadDevice(ctx context.Context, device string) ([]*models.Reading, error)

	// ReadCache streams a window of cached device readings.
	ReadCache(ctx context.Context, opts ReadCacheOptions) (*ReadingStream, error)

	// ReadStream streams current reading data as it is read. This is only
	// supported by the WebSocket binding; the HTTP binding returns a
	// typed failure.
	ReadStream(ctx context.Context, opts ReadStreamOptions) (*ReadingStream, error)

	// WriteAsync writes to the specified device asynchronously, returning
	// the transaction(s) which may be polled for completion.
	WriteAsync(ctx context.Context, device string, payload []WriteData) ([]*models.TransactionInfo, error)

	// WriteSync writes to the specified device and waits for the write to
	// complete.
	WriteSync(ctx context.Context, device string, payload []WriteData) ([]*models.TransactionStatus, error)

	// Transaction gets the status of an asynchronous write transaction.
	Transaction(ctx context.Context, id string) (*models.TransactionStatus, error)

	// Transactions gets a list of the transactions currently tracked by
	// Synse Server.
	Transactions(ctx context.Context) ([]string, error)

	// Plugin gets all information associated with the specified plugin.
	Plugin(ctx context.Context, id string) (*models.PluginInfo, error)

	// Plugins gets a summary of all plugins currently registered with the
	// Synse Server instance.
	Plugins(ctx context.Context) ([]*models.PluginSummary, error)

	// PluginHealth gets a summary of the health of all currently
	// registered plugins.
	PluginHealth(ctx context.Context) (*models.PluginHealth, error)

	// Close releases the resources held by the client.
	Close() error
}

// ScanOptions holds the selectors for a Scan request.
type ScanOptions struct {
	// Force a re-scan, rebuilding the server's device cache.
	Force bool

	// NS is the default namespace for tags which do not include one.
	NS string

	// Sort names the fields to sort by, comma-separated (e.g. "plugin,id").
	Sort string

	// Tags holds the tag groups to filter devices on. The tags within a
	// group are subtractive (a device must match all of them); the groups
	// are additive.
	Tags [][]string
}

// TagsOptions holds the selectors for a Tags request.
type TagsOptions struct {
	// NS is the tag namespace to search in.
	NS string

	// IDs includes ID tags in the response when set.
	IDs bool
}

// ReadOptions holds the selectors for a Read request.
type ReadOptions struct {
	// NS is the default namespace for tags which do not include one.
	NS string

	// Tags holds the tag groups to filter devices on.
	Tags [][]string
}

// ReadCacheOptions bounds the window of cached readings to return. Either
// bound may be left empty for an unbounded window on that side.
type ReadCacheOptions struct {
	// Start is an RFC3339 timestamp giving the starting bound.
	Start string

	// End is an RFC3339 timestamp giving the ending bound.
	End string
}

// ReadStreamOptions holds the selectors for a ReadStream request. With no
// selectors set, readings for all devices are streamed.
type ReadStreamOptions struct {
	// IDs constrains the devices to stream readings for.
	IDs []string

	// Tags holds the tag groups constraining the devices to stream
	// readings for.
	Tags [][]string
}

// WriteData is a single element of a write payload.
type WriteData struct {
	// Action is the action the device should take.
	Action string `json:"action"`

	// Data is the data for the action, if the action requires any.
	Data interface{} `json:"data,omitempty"`

	// Transaction is an optional caller-specified ID for the write
	// transaction.
	Transaction string `json:"transaction,omitempty"`
}

// ReadingStream is a lazy, forward-only sequence of readings produced by an
// open-ended read (ReadCache, ReadStream). Readings are received from the
// channel returned by Readings; the channel is closed when the stream ends.
// After the channel closes, Err reports why: nil for an orderly end of
// stream, a typed failure otherwise. Readings already received remain valid
// regardless of how the stream ends.
type ReadingStream struct {
	readings chan *models.Reading

	stop     chan struct{}
	stopOnce sync.Once

	mu  sync.Mutex
	err error
}

func newReadingStream(buffer int) *ReadingStream {
	return &ReadingStream{
		readings: make(chan *models.Reading, buffer),
		stop:     make(chan struct{}),
	}
}

// Readings returns the channel on which the stream's readings are delivered.
func (s *ReadingStream) Readings() <-chan *models.Reading {
	return s.readings
}

// Err returns the failure which ended the stream, or nil if the stream ended
// normally. It should only be consulted after the Readings channel closes.
func (s *ReadingStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop abandons the stream. The producer stops as soon as it observes the
// stop signal; no control message is sent to the server. Stop is safe to
// call multiple times and safe to call concurrently with consumption.
func (s *ReadingStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// finish records the stream outcome and closes the readings channel. It is
// called exactly once, by the producing goroutine.
func (s *ReadingStream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.readings)
}

// withDefaultPort appends the default Synse Server port to an address which
// does not already specify one.
func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return fmt.Sprintf("%s:%d", address, DefaultPort)
}
