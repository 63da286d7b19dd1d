// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

// Package mock provides a canned Synse Server for package tests: an HTTP
// endpoint routed with gorilla/mux and a scriptable WebSocket endpoint.
// It is a test fixture, not a server implementation.
package mock

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HTTPServer is a test double for the Synse Server HTTP API. Routes are
// registered per test with canned status codes and bodies.
type HTTPServer struct {
	*httptest.Server

	Router *mux.Router
}

// NewHTTPServer creates and starts a mock Synse Server HTTP endpoint.
func NewHTTPServer() *HTTPServer {
	router := mux.NewRouter()
	return &HTTPServer{
		Server: httptest.NewServer(router),
		Router: router,
	}
}

// Address returns the host:port the server listens on, suitable for the
// client's Options.Address.
func (s *HTTPServer) Address() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// ServeJSON registers a route which answers with the given status code and
// JSON body.
func (s *HTTPServer) ServeJSON(path string, code int, body string) {
	s.Router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	})
}

// ServeRaw registers a route which answers with the given status code and a
// non-JSON body.
func (s *HTTPServer) ServeRaw(path string, code int, body string) {
	s.Router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	})
}

// ServeStream registers a route which answers with one JSON document per
// line, the way the readcache endpoint streams readings.
func (s *HTTPServer) ServeStream(path string, lines ...string) {
	s.Router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for _, line := range lines {
			_, _ = fmt.Fprintln(w, line)
		}
	})
}

// ServeWrite registers a write route which mints a transaction per payload
// element and echoes it back, the way an asynchronous write responds.
func (s *HTTPServer) ServeWrite(path string, device string) {
	s.Router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(
			w,
			`[{"id":"%s","device":"%s","context":{},"timeout":"30s"}]`,
			uuid.New().String(), device,
		)
	}).Methods(http.MethodPost)
}
