// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsTOML(t *testing.T) {
	opts, err := LoadOptions("testdata/config.toml")
	require.NoError(t, err)

	assert.Equal(t, "localhost:5000", opts.Address)
	assert.Equal(t, 3*time.Second, opts.HTTP.Timeout)
	assert.Equal(t, 5*time.Second, opts.WebSocket.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, opts.WebSocket.RequestTimeout)
	assert.Equal(t, 2048, opts.WebSocket.ReadBufferSize)
}

func TestLoadOptionsYAML(t *testing.T) {
	opts, err := LoadOptions("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "localhost:5000", opts.Address)
	assert.Equal(t, 3*time.Second, opts.HTTP.Timeout)
	assert.Equal(t, 5*time.Second, opts.WebSocket.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, opts.WebSocket.RequestTimeout)
	assert.Equal(t, 2048, opts.WebSocket.ReadBufferSize)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions("testdata/no-such-file.toml")
	assert.Error(t, err)
}

func TestLoadOptionsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadOptions(path)
	assert.Error(t, err)
}

func TestLoadOptionsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[http]\ntimeout = \"soon\"\n"), 0o644))

	_, err := LoadOptions(path)
	assert.Error(t, err)
}

func TestOptionDefaults(t *testing.T) {
	opts := &Options{Address: "localhost"}
	opts.setDefaults()

	assert.Equal(t, DefaultTimeout, opts.HTTP.Timeout)
	assert.Equal(t, DefaultHandshakeTimeout, opts.WebSocket.HandshakeTimeout)
	assert.NotNil(t, opts.Logger)
}

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "localhost:5000", withDefaultPort("localhost"))
	assert.Equal(t, "localhost:9999", withDefaultPort("localhost:9999"))
	assert.Equal(t, "10.0.0.2:5000", withDefaultPort("10.0.0.2"))
}
