// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vapor-ware/synse-client-go/internal/mock"
)

var _ Client = (*HTTPClient)(nil)

func newTestHTTPClient(s *mock.HTTPServer) *HTTPClient {
	return NewHTTPClient(&Options{Address: s.Address()})
}

func TestHTTPStatus(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/test", 200, mock.StatusResponse)

	client := newTestHTTPClient(server)
	defer client.Close() // nolint

	status, err := client.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, time.Date(2019, 5, 7, 11, 14, 39, 0, time.UTC), status.Timestamp.UTC())
}

func TestHTTPVersion(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/version", 200, mock.VersionResponse)

	client := newTestHTTPClient(server)

	version, err := client.Version(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3.0.0", version.Version)
	assert.Equal(t, "v3", version.APIVersion)
}

func TestHTTPConfig(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/config", 200, mock.ConfigResponse)

	client := newTestHTTPClient(server)

	config, err := client.Config(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Data["logging"])
}

func TestHTTPScan(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()

	var query map[string][]string
	server.Router.HandleFunc("/v3/scan", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(mock.ScanResponse))
	})

	client := newTestHTTPClient(server)

	devices, err := client.Scan(context.Background(), ScanOptions{
		Force: true,
		NS:    "default",
		Tags:  [][]string{{"foo/bar", "abc"}, {"baz"}},
	})
	require.NoError(t, err)

	require.Len(t, devices, 3)
	assert.Equal(t, "0101", devices[0].ID)
	assert.Equal(t, "0102", devices[1].ID)
	assert.Equal(t, "0201", devices[2].ID)

	assert.Equal(t, []string{"foo/bar,abc", "baz"}, query["tags"])
	assert.Equal(t, []string{"default"}, query["ns"])
	assert.Equal(t, []string{"true"}, query["force"])
}

func TestHTTPTags(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()

	var query map[string][]string
	server.Router.HandleFunc("/v3/tags", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(mock.TagsResponse))
	})

	client := newTestHTTPClient(server)

	tags, err := client.Tags(context.Background(), TagsOptions{IDs: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"default/tag1", "default/tag2", "system/type:temperature"}, tags)
	assert.Equal(t, []string{"true"}, query["ids"])
}

func TestHTTPTagsOmitsFalseFlag(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()

	var query map[string][]string
	server.Router.HandleFunc("/v3/tags", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(mock.TagsResponse))
	})

	client := newTestHTTPClient(server)

	_, err := client.Tags(context.Background(), TagsOptions{})
	require.NoError(t, err)

	_, present := query["ids"]
	assert.False(t, present)
}

func TestHTTPInfo(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/info/0101", 200, mock.InfoResponse)

	client := newTestHTTPClient(server)

	info, err := client.Info(context.Background(), "0101")
	require.NoError(t, err)

	assert.Equal(t, "0101", info.ID)
	assert.Equal(t, "temperature", info.Type)
	assert.Equal(t, []string{"system/type:temperature"}, info.Tags)
}

func TestHTTPRead(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/read", 200, mock.ReadResponse)

	client := newTestHTTPClient(server)

	readings, err := client.Read(context.Background(), ReadOptions{})
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.Equal(t, "0101", readings[0].Device)
	assert.Equal(t, 20.3, readings[0].Value)
	assert.Equal(t, "celsius", readings[0].Unit.Name)
}

func TestHTTPReadDevice(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/read/0101", 200, `[`+mock.ReadingOne+`]`)

	client := newTestHTTPClient(server)

	readings, err := client.ReadDevice(context.Background(), "0101")
	require.NoError(t, err)

	require.Len(t, readings, 1)
	assert.Equal(t, "0101", readings[0].Device)
}

func TestHTTPReadCache(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeStream("/v3/readcache", mock.ReadingOne, mock.ReadingTwo, mock.ReadingThree)

	client := newTestHTTPClient(server)

	stream, err := client.ReadCache(context.Background(), ReadCacheOptions{})
	require.NoError(t, err)

	var devices []string
	for reading := range stream.Readings() {
		devices = append(devices, reading.Device)
	}

	assert.NoError(t, stream.Err())
	assert.Equal(t, []string{"0101", "0102", "0201"}, devices)
}

func TestHTTPReadCacheStop(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeStream("/v3/readcache", mock.ReadingOne, mock.ReadingTwo, mock.ReadingThree)

	client := newTestHTTPClient(server)

	stream, err := client.ReadCache(context.Background(), ReadCacheOptions{})
	require.NoError(t, err)

	first := <-stream.Readings()
	require.NotNil(t, first)
	stream.Stop()

	// The producer stops once it observes the stop signal; the channel
	// closes after at most one already-queued reading.
	for range stream.Readings() {
	}
	assert.NoError(t, stream.Err())
}

func TestHTTPReadCacheError(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/readcache", 500, `{"context":"cache rebuild failed"}`)

	client := newTestHTTPClient(server)

	_, err := client.ReadCache(context.Background(), ReadCacheOptions{})
	require.Error(t, err)

	var serverError *ServerError
	require.True(t, errors.As(err, &serverError))
	assert.Equal(t, "cache rebuild failed", err.Error())
}

func TestHTTPReadStreamUnsupported(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()

	client := newTestHTTPClient(server)

	_, err := client.ReadStream(context.Background(), ReadStreamOptions{})
	require.Error(t, err)

	var base *SynseError
	assert.True(t, errors.As(err, &base))
}

func TestHTTPWriteAsync(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeWrite("/v3/write/0201", "0201")

	client := newTestHTTPClient(server)

	transactions, err := client.WriteAsync(context.Background(), "0201", []WriteData{
		{Action: "color", Data: "f38ac2"},
	})
	require.NoError(t, err)

	require.Len(t, transactions, 1)
	assert.Equal(t, "0201", transactions[0].Device)
	assert.NotEmpty(t, transactions[0].ID)
}

func TestHTTPWriteSync(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/write/wait/0201", 200, mock.WriteSyncResponse)

	client := newTestHTTPClient(server)

	statuses, err := client.WriteSync(context.Background(), "0201", []WriteData{
		{Action: "color", Data: "f38ac2"},
	})
	require.NoError(t, err)

	require.Len(t, statuses, 1)
	assert.Equal(t, "DONE", statuses[0].Status)
}

func TestHTTPTransaction(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/transaction/t-1", 200, mock.TransactionResponse)

	client := newTestHTTPClient(server)

	status, err := client.Transaction(context.Background(), "t-1")
	require.NoError(t, err)

	assert.Equal(t, "t-1", status.ID)
	assert.Equal(t, "DONE", status.Status)
}

func TestHTTPTransactions(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/transaction", 200, mock.TransactionsResponse)

	client := newTestHTTPClient(server)

	transactions, err := client.Transactions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"t-1", "t-2", "t-3"}, transactions)
}

func TestHTTPPlugin(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/plugin/p-1", 200, mock.PluginResponse)

	client := newTestHTTPClient(server)

	plugin, err := client.Plugin(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, "p-1", plugin.ID)
	assert.True(t, plugin.Active)
}

func TestHTTPPlugins(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/plugin", 200, mock.PluginsResponse)

	client := newTestHTTPClient(server)

	plugins, err := client.Plugins(context.Background())
	require.NoError(t, err)

	require.Len(t, plugins, 2)
	assert.Equal(t, "emulator", plugins[0].Name)
}

func TestHTTPPluginHealth(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/plugin/health", 200, mock.PluginHealthResponse)

	client := newTestHTTPClient(server)

	health, err := client.PluginHealth(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.Active)
}

func TestHTTPErrorNotFound(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeJSON("/v3/info/nope", 404, `{"context":"device not found"}`)

	client := newTestHTTPClient(server)

	_, err := client.Info(context.Background(), "nope")
	require.Error(t, err)

	var notFound *NotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "device not found", err.Error())
}

func TestHTTPErrorUnparseableBody(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()
	server.ServeRaw("/v3/info/nope", 400, "not json")

	client := newTestHTTPClient(server)

	_, err := client.Info(context.Background(), "nope")
	require.Error(t, err)

	var invalid *InvalidInput
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "not json", err.Error())
}

func TestHTTPConnectionFailure(t *testing.T) {
	// The server is shut down before the call: the connection-level
	// failure must come back as the generic typed error, with the
	// underlying cause preserved.
	server := mock.NewHTTPServer()
	addr := server.Address()
	server.Close()

	client := NewHTTPClient(&Options{Address: addr})

	_, err := client.Status(context.Background())
	require.Error(t, err)

	var base *SynseError
	require.True(t, errors.As(err, &base))
	assert.Error(t, errors.Unwrap(base))
}

func TestHTTPCorrelationHeader(t *testing.T) {
	server := mock.NewHTTPServer()
	defer server.Close()

	var correlation string
	server.Router.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		correlation = r.Header.Get(CorrelationHeader)
		_, _ = w.Write([]byte(mock.StatusResponse))
	})

	client := newTestHTTPClient(server)

	_, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, correlation)
}
