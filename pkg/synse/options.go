// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPort is the port Synse Server listens on by default.
	DefaultPort = 5000

	// DefaultTimeout is the default overall timeout for a request made by
	// the HTTP client.
	DefaultTimeout = 10 * time.Second

	// DefaultHandshakeTimeout is the default timeout for the WebSocket
	// connection handshake.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Options holds the configuration for a Synse client, covering both the HTTP
// and the WebSocket transport bindings.
type Options struct {
	// Address is the hostname/IP of the Synse Server instance, with an
	// optional port (e.g. "localhost:5000"). When no port is given,
	// DefaultPort is used.
	Address string `toml:"address" yaml:"address"`

	// HTTP holds settings specific to the HTTP client.
	HTTP HTTPOptions `toml:"http" yaml:"http"`

	// WebSocket holds settings specific to the WebSocket client.
	WebSocket WebSocketOptions `toml:"websocket" yaml:"websocket"`

	// Logger is the logger for the client to use. When unset, logging is
	// disabled.
	Logger *zerolog.Logger `toml:"-" yaml:"-"`
}

// HTTPOptions holds the settings specific to the HTTP client.
type HTTPOptions struct {
	// Timeout is the overall timeout applied to each request.
	// (default: 10s)
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
}

// WebSocketOptions holds the settings specific to the WebSocket client.
type WebSocketOptions struct {
	// HandshakeTimeout is the timeout for the connection handshake.
	// (default: 10s)
	HandshakeTimeout time.Duration `toml:"handshake_timeout" yaml:"handshake_timeout"`

	// RequestTimeout bounds the wait for the reply to a single request
	// when the caller's context carries no deadline of its own. Zero
	// means no bound: a call awaiting a reply which never arrives will
	// wait until the context is cancelled or the connection closes.
	RequestTimeout time.Duration `toml:"request_timeout" yaml:"request_timeout"`

	// ReadBufferSize and WriteBufferSize set the I/O buffer sizes for
	// the connection. Zero selects the transport's defaults.
	ReadBufferSize  int `toml:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int `toml:"write_buffer_size" yaml:"write_buffer_size"`
}

// setDefaults fills in default values for any option left unset.
func (o *Options) setDefaults() {
	if o.HTTP.Timeout == 0 {
		o.HTTP.Timeout = DefaultTimeout
	}
	if o.WebSocket.HandshakeTimeout == 0 {
		o.WebSocket.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}
