// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vapor-ware/synse-client-go/pkg/models"
)

// CorrelationHeader is the header carrying the request correlation ID which
// the HTTP client attaches to every outbound request.
const CorrelationHeader = "X-Correlation-ID"

// apiVersion is the version of the Synse Server API the clients speak.
const apiVersion = "v3"

// HTTPClient is the one-shot HTTP binding of the Synse Server v3 API. Each
// call issues a single request/response exchange; connection reuse is left
// to the underlying http.Client transport.
type HTTPClient struct {
	options *Options
	client  *http.Client
	log     zerolog.Logger

	// base is the unversioned server URL; url is base with the API
	// version prefix. A small number of endpoints (/test, /version)
	// live at the unversioned base.
	base string
	url  string
}

// NewHTTPClient creates a new HTTP client for the Synse Server instance
// configured in the given options.
func NewHTTPClient(opts *Options) *HTTPClient {
	opts.setDefaults()

	base := fmt.Sprintf("http://%s", withDefaultPort(opts.Address))
	return &HTTPClient{
		options: opts,
		log:     opts.Logger.With().Str("component", "synse-http").Logger(),
		client: &http.Client{
			Timeout: opts.HTTP.Timeout,
		},
		base: base,
		url:  fmt.Sprintf("%s/%s", base, apiVersion),
	}
}

// makeRequest issues a request to Synse Server and returns the decoded
// response payload. A non-2xx status or a connection-level failure results
// in a typed error; the transport's native error types never escape.
func (c *HTTPClient) makeRequest(
	ctx context.Context, method, url string, params url.Values, body interface{},
) (json.RawMessage, error) {

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, NewSynseError("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewSynseError("failed to build request", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set(CorrelationHeader, uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("url", url).Msg("failed to issue request")
		return nil, wrapTransportError(fmt.Sprintf("issue request %s %s", strings.ToUpper(method), url), err)
	}
	defer resp.Body.Close() // nolint

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError("read response body", err)
	}

	if err := checkHTTPResponse(resp, data); err != nil {
		return nil, err
	}
	return data, nil
}

// streamRequest issues a request whose response body is an unbounded stream
// of newline-delimited JSON documents, decoded lazily into readings.
func (c *HTTPClient) streamRequest(
	ctx context.Context, url string, params url.Values,
) (*ReadingStream, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewSynseError("failed to build request", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set(CorrelationHeader, uuid.New().String())

	// The overall client timeout would cut a long-lived stream short, so
	// the streaming path relies on the caller's context instead.
	client := &http.Client{Transport: c.client.Transport}

	resp, err := client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("url", url).Msg("failed to issue stream request")
		return nil, wrapTransportError(fmt.Sprintf("issue request GET %s", url), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The classifier gets the already-read body: the stream decode
		// below would otherwise be the only consumer.
		data, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, checkHTTPResponse(resp, data)
	}

	stream := newReadingStream(0)
	go func() {
		defer resp.Body.Close() // nolint

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			reading, err := models.Make[models.Reading](line)
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
				stream.finish(wrapTransportError("await stream consumer", ctx.Err()))
				return
			}
		}

		if err := scanner.Err(); err != nil {
			stream.finish(wrapTransportError("read streamed response", err))
			return
		}
		stream.finish(nil)
	}()

	return stream, nil
}

// Status checks the availability and connectivity status of the Synse Server
// instance. If the instance is reachable, this resolves; otherwise it
// returns an error.
func (c *HTTPClient) Status(ctx context.Context) (*models.Status, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/test", c.base), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Status](data)
}

// Version gets the version information for the Synse Server instance.
func (c *HTTPClient) Version(ctx context.Context) (*models.Version, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/version", c.base), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Version](data)
}

// Config gets the unified configuration for the Synse Server instance.
func (c *HTTPClient) Config(ctx context.Context) (*models.Config, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/config", c.url), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.Config](data)
}

// Scan gets a summary of all devices currently exposed by the Synse Server
// instance.
func (c *HTTPClient) Scan(ctx context.Context, opts ScanOptions) ([]*models.DeviceSummary, error) {
	params := url.Values{}
	tagParams(opts.Tags, params)
	if opts.NS != "" {
		params.Add("ns", opts.NS)
	}
	if opts.Force {
		params.Add("force", "true")
	}
	if opts.Sort != "" {
		params.Add("sort", opts.Sort)
	}

	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/scan", c.url), params, nil)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.DeviceSummary](data)
}

// Tags gets a list of the tags currently associated with registered devices.
func (c *HTTPClient) Tags(ctx context.Context, opts TagsOptions) ([]string, error) {
	params := url.Values{}
	if opts.NS != "" {
		params.Add("ns", opts.NS)
	}
	if opts.IDs {
		// The flag is serialized lowercased and omitted when false;
		// this is a wire-format choice of the HTTP binding.
		params.Add("ids", "true")
	}

	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/tags", c.url), params, nil)
	if err != nil {
		return nil, err
	}

	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, NewSynseError("failed to decode tags response", err)
	}
	return tags, nil
}

// Info gets all information associated with the specified device.
func (c *HTTPClient) Info(ctx context.Context, device string) (*models.DeviceInfo, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/info/%s", c.url, device), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.DeviceInfo](data)
}

// Read gets the latest reading(s) for all devices which match the specified
// selector(s).
func (c *HTTPClient) Read(ctx context.Context, opts ReadOptions) ([]*models.Reading, error) {
	params := url.Values{}
	tagParams(opts.Tags, params)
	if opts.NS != "" {
		params.Add("ns", opts.NS)
	}

	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/read", c.url), params, nil)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.Reading](data)
}

// ReadDevice gets the latest reading(s) for the specified device.
func (c *HTTPClient) ReadDevice(ctx context.Context, device string) ([]*models.Reading, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/read/%s", c.url, device), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.Reading](data)
}

// ReadCache streams a window of cached device readings. The server responds
// with one JSON document per reading; the returned stream decodes them
// lazily as the consumer pulls.
func (c *HTTPClient) ReadCache(ctx context.Context, opts ReadCacheOptions) (*ReadingStream, error) {
	params := url.Values{}
	if opts.Start != "" {
		params.Add("start", opts.Start)
	}
	if opts.End != "" {
		params.Add("end", opts.End)
	}

	return c.streamRequest(ctx, fmt.Sprintf("%s/readcache", c.url), params)
}

// ReadStream is not part of the HTTP API; streamed live readings are only
// available over the WebSocket binding.
func (c *HTTPClient) ReadStream(ctx context.Context, opts ReadStreamOptions) (*ReadingStream, error) {
	return nil, NewSynseError(
		"streamed readings are not supported over HTTP; use the WebSocket client", nil,
	)
}

// WriteAsync writes to the specified device asynchronously. The write is
// queued up with the device's plugin and the associated transaction(s) are
// returned immediately; they may be polled via Transaction to ensure the
// write completed.
func (c *HTTPClient) WriteAsync(
	ctx context.Context, device string, payload []WriteData,
) ([]*models.TransactionInfo, error) {

	data, err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("%s/write/%s", c.url, device), nil, payload)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.TransactionInfo](data)
}

// WriteSync writes to the specified device, waiting until the write action
// has completed. It is up to the caller to ensure a suitable timeout is set
// for the request.
func (c *HTTPClient) WriteSync(
	ctx context.Context, device string, payload []WriteData,
) ([]*models.TransactionStatus, error) {

	data, err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("%s/write/wait/%s", c.url, device), nil, payload)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.TransactionStatus](data)
}

// Transaction gets the status of an asynchronous write transaction.
func (c *HTTPClient) Transaction(ctx context.Context, id string) (*models.TransactionStatus, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/transaction/%s", c.url, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.TransactionStatus](data)
}

// Transactions gets a list of the transactions currently tracked by Synse
// Server.
func (c *HTTPClient) Transactions(ctx context.Context) ([]string, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/transaction", c.url), nil, nil)
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
func (c *HTTPClient) Plugin(ctx context.Context, id string) (*models.PluginInfo, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/plugin/%s", c.url, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.PluginInfo](data)
}

// Plugins gets a summary of all plugins currently registered with the Synse
// Server instance.
func (c *HTTPClient) Plugins(ctx context.Context) ([]*models.PluginSummary, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/plugin", c.url), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.MakeList[models.PluginSummary](data)
}

// PluginHealth gets a summary of the health of all currently registered
// plugins.
func (c *HTTPClient) PluginHealth(ctx context.Context) (*models.PluginHealth, error) {
	data, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("%s/plugin/health", c.url), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.Make[models.PluginHealth](data)
}

// Close releases any idle connections held by the client.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// tagParams serializes tag groups into `tags` query parameters, one
// parameter per group, with the tags of a group joined by commas.
func tagParams(groups [][]string, params url.Values) {
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		params.Add("tags", strings.Join(group, ","))
	}
}
