// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package synse

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// fileOptions is the on-disk schema for client configuration. Durations are
// given as strings in Go duration syntax (e.g. "10s", "1m30s").
type fileOptions struct {
	Address string `toml:"address" yaml:"address"`

	HTTP struct {
		Timeout string `toml:"timeout" yaml:"timeout"`
	} `toml:"http" yaml:"http"`

	WebSocket struct {
		HandshakeTimeout string `toml:"handshake_timeout" yaml:"handshake_timeout"`
		RequestTimeout   string `toml:"request_timeout" yaml:"request_timeout"`
		ReadBufferSize   int    `toml:"read_buffer_size" yaml:"read_buffer_size"`
		WriteBufferSize  int    `toml:"write_buffer_size" yaml:"write_buffer_size"`
	} `toml:"websocket" yaml:"websocket"`
}

// LoadOptions loads client Options from the configuration file at the given
// path. The file format is selected by extension: `.toml` for TOML, `.yml`
// or `.yaml` for YAML. Options not present in the file keep their defaults.
func LoadOptions(path string) (*Options, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read configuration file %s", path)
	}

	fo := &fileOptions{}
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if err := toml.Unmarshal(contents, fo); err != nil {
			return nil, errors.Wrapf(err, "failed to parse TOML configuration %s", path)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(contents, fo); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML configuration %s", path)
		}
	default:
		return nil, errors.Errorf("unsupported configuration file extension %q", ext)
	}

	opts := &Options{
		Address: fo.Address,
	}
	opts.WebSocket.ReadBufferSize = fo.WebSocket.ReadBufferSize
	opts.WebSocket.WriteBufferSize = fo.WebSocket.WriteBufferSize

	durations := []struct {
		value string
		field string
		dest  *time.Duration
	}{
		{fo.HTTP.Timeout, "http.timeout", &opts.HTTP.Timeout},
		{fo.WebSocket.HandshakeTimeout, "websocket.handshake_timeout", &opts.WebSocket.HandshakeTimeout},
		{fo.WebSocket.RequestTimeout, "websocket.request_timeout", &opts.WebSocket.RequestTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid duration for %s in %s", d.field, path)
		}
		*d.dest = parsed
	}

	return opts, nil
}
