// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SynseError is the base type for all errors returned by the Synse client.
// Narrow failure types embed it, so a caller can match broadly with
//
//	var serr *synse.SynseError
//	if errors.As(err, &serr) { ... }
//
// or narrowly against one of InvalidInput, NotFound or ServerError.
type SynseError struct {
	msg   string
	cause error
}

// NewSynseError creates a generic client error wrapping an underlying cause.
// The cause may be nil.
func NewSynseError(msg string, cause error) *SynseError {
	return &SynseError{msg: msg, cause: cause}
}

func (e *SynseError) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.msg
}

// Unwrap returns the underlying cause of the error, if any.
func (e *SynseError) Unwrap() error {
	return e.cause
}

// As lets every narrow failure type, which embeds SynseError, also satisfy an
// errors.As match against the base *SynseError.
func (e *SynseError) As(target interface{}) bool {
	if p, ok := target.(**SynseError); ok {
		*p = e
		return true
	}
	return false
}

// InvalidInput is returned when Synse Server rejects client-supplied data.
//
// Error code: 400
type InvalidInput struct {
	SynseError
}

// NotFound is returned when a referenced resource (device, plugin,
// transaction, ...) does not exist.
//
// Error code: 404
type NotFound struct {
	SynseError
}

// ServerError is returned when Synse Server fails while processing an
// otherwise well-formed request.
//
// Error code: 500
type ServerError struct {
	SynseError
}

// ErrNotConnected is returned when a WebSocket client method which requires a
// live connection is called before Connect. This signals a programming error,
// not a network condition.
var ErrNotConnected = NewSynseError(
	"the WebSocket client has not connected; call Connect prior to use", nil,
)

// ErrClosed is returned when an exchange is attempted on a client whose
// connection has been closed. A closed client cannot be reconnected; a new
// client must be constructed.
var ErrClosed = NewSynseError("the client connection has been closed", nil)

// errorContext is the shape of the structured error body which Synse Server
// returns alongside non-2xx statuses.
type errorContext struct {
	Context string `json:"context"`
}

// errorForCode builds the typed failure for an HTTP error code. Codes in the
// 5xx band are all treated as server errors on the HTTP binding; the
// WebSocket binding matches 500 exactly and never produces other 5xx codes.
func errorForCode(code int, msg string, cause error) error {
	base := SynseError{msg: msg, cause: cause}
	switch {
	case code == http.StatusBadRequest:
		return &InvalidInput{base}
	case code == http.StatusNotFound:
		return &NotFound{base}
	case code >= http.StatusInternalServerError:
		return &ServerError{base}
	default:
		return &base
	}
}

// checkHTTPResponse inspects a completed HTTP response for an error status
// and returns the corresponding typed failure, or nil for a 2xx status. The
// body is passed in already read: a streamed response may have consumed it,
// and the classifier must not re-read it. The best available human-readable
// message is used: the `context` field of the body on a successful structured
// parse, the raw body text otherwise, or the response status line when there
// is no body at all.
func checkHTTPResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var msg string
	var ec errorContext
	if err := json.Unmarshal(body, &ec); err == nil && ec.Context != "" {
		msg = ec.Context
	} else if len(body) != 0 {
		msg = string(body)
	} else {
		msg = resp.Status
	}

	return errorForCode(resp.StatusCode, msg, nil)
}

// checkErrorEvent converts a decoded `response/error` frame payload into the
// corresponding typed failure. Unlike the HTTP binding, only the exact codes
// 400 and 404 map to narrow failures; everything else, 500 included, is the
// generic SynseError.
func checkErrorEvent(data errorEventData) error {
	msg := data.Context
	if msg == "" {
		msg = data.Description
	}

	base := SynseError{msg: msg}
	switch data.HTTPCode {
	case http.StatusBadRequest:
		return &InvalidInput{base}
	case http.StatusNotFound:
		return &NotFound{base}
	default:
		return &base
	}
}

// errorEventData is the payload of a `response/error` frame.
type errorEventData struct {
	HTTPCode    int    `json:"http_code"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

// wrapTransportError rewraps a connection-level failure (refused connection,
// timeout, DNS failure, closed socket) as a generic SynseError so that the
// transport's native error types never escape the client.
func wrapTransportError(op string, cause error) *SynseError {
	return NewSynseError(fmt.Sprintf("failed to %s", op), cause)
}
