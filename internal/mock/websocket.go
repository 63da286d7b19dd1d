// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Request is a decoded request envelope received by the mock server.
type Request struct {
	ID    int64           `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is one reply frame for the mock server to send.
type Frame struct {
	ID    int64       `json:"id"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ErrorFrame builds a response/error frame with the given code and
// description. The id is -1, as the server reports when an error cannot be
// associated with a request.
func ErrorFrame(code int, description string) Frame {
	return Frame{
		ID:    -1,
		Event: "response/error",
		Data: map[string]interface{}{
			"http_code":   code,
			"description": description,
		},
	}
}

// Reply is the mock server's scripted reaction to one request.
type Reply struct {
	// Frames are sent in order, each as its own text frame.
	Frames []Frame

	// Delay, when set, is slept before any frame is sent.
	Delay time.Duration

	// CloseNormal closes the connection with a normal close handshake
	// after the frames are sent.
	CloseNormal bool
}

// Handler scripts the reply for one request event.
type Handler func(req Request) Reply

// WebSocketServer is a test double for the Synse Server WebSocket API. Each
// inbound request envelope is dispatched to the handler registered for its
// event; unhandled events get a 500 error frame.
type WebSocketServer struct {
	*httptest.Server

	upgrader websocket.Upgrader
	handlers map[string]Handler
	dials    int32
}

// NewWebSocketServer creates and starts a mock Synse Server WebSocket
// endpoint at the v3 connect path.
func NewWebSocketServer() *WebSocketServer {
	s := &WebSocketServer{
		handlers: make(map[string]Handler),
	}

	router := http.NewServeMux()
	router.HandleFunc("/v3/connect", s.serve)
	s.Server = httptest.NewServer(router)
	return s
}

// Address returns the host:port the server listens on, suitable for the
// client's Options.Address.
func (s *WebSocketServer) Address() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// Dials reports how many WebSocket connections have been established.
func (s *WebSocketServer) Dials() int {
	return int(atomic.LoadInt32(&s.dials))
}

// Handle registers the handler for a request event.
func (s *WebSocketServer) Handle(event string, h Handler) {
	s.handlers[event] = h
}

// HandleData registers a handler which answers every request for the event
// with a single response frame carrying the given payload, echoing the
// request id. The response event mirrors the request event
// (request/foo -> response/foo).
func (s *WebSocketServer) HandleData(event string, data interface{}) {
	response := "response/" + strings.TrimPrefix(event, "request/")
	s.Handle(event, func(req Request) Reply {
		return Reply{
			Frames: []Frame{{ID: req.ID, Event: response, Data: data}},
		}
	})
}

func (s *WebSocketServer) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	atomic.AddInt32(&s.dials, 1)
	defer conn.Close() // nolint

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		handler, ok := s.handlers[req.Event]
		if !ok {
			_ = conn.WriteJSON(ErrorFrame(500, "unhandled event: "+req.Event))
			continue
		}

		reply := handler(req)
		if reply.Delay > 0 {
			time.Sleep(reply.Delay)
		}
		for _, frame := range reply.Frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		if reply.CloseNormal {
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		}
	}
}
