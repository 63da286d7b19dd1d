// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

// Package models defines the typed views over Synse Server v3 API response
// payloads. Each model declares the fields known for its endpoint; fields
// missing from a payload are left at their zero value, and payload keys which
// a model does not declare are ignored. Timestamp-bearing fields (timestamp,
// created, updated) are RFC3339 strings on the wire and are decoded into
// time.Time values.
package models

import (
	"encoding/json"
	"time"
)

// Raw holds the original decoded payload which a model instance was built
// from. It is kept alongside the typed view for introspection and debugging.
// Models gain it by embedding; the mapper populates it after decode.
type Raw struct {
	data json.RawMessage
}

// RawData returns the payload the model was decoded from.
func (r *Raw) RawData() json.RawMessage {
	return r.data
}

func (r *Raw) setRaw(data json.RawMessage) {
	r.data = data
}

type rawSetter interface {
	setRaw(json.RawMessage)
}

// Config is the response for the `/config` endpoint. The server's unified
// configuration has no fixed schema, so the data is exposed as a plain map.
type Config struct {
	Raw

	Data map[string]interface{} `json:"-"`
}

// UnmarshalJSON decodes the free-form configuration document.
func (c *Config) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Data)
}

// DeviceInfo is the response for the `/info` endpoint.
type DeviceInfo struct {
	Raw

	ID           string                 `json:"id"`
	Alias        string                 `json:"alias"`
	Type         string                 `json:"type"`
	Info         string                 `json:"info"`
	Metadata     map[string]interface{} `json:"metadata"`
	Plugin       string                 `json:"plugin"`
	Tags         []string               `json:"tags"`
	Capabilities map[string]interface{} `json:"capabilities"`
	Outputs      []map[string]interface{} `json:"outputs"`
	SortIndex    int                    `json:"sort_index"`
	Timestamp    time.Time              `json:"timestamp"`
}

// DeviceSummary is an element of the response for the `/scan` endpoint.
type DeviceSummary struct {
	Raw

	ID       string                 `json:"id"`
	Alias    string                 `json:"alias"`
	Info     string                 `json:"info"`
	Type     string                 `json:"type"`
	Plugin   string                 `json:"plugin"`
	Tags     []string               `json:"tags"`
	Metadata map[string]interface{} `json:"metadata"`
}

// PluginHealth is the response for the `/plugin/health` endpoint.
type PluginHealth struct {
	Raw

	Status    string    `json:"status"`
	Updated   time.Time `json:"updated"`
	Healthy   []string  `json:"healthy"`
	Unhealthy []string  `json:"unhealthy"`
	Active    int       `json:"active"`
	Inactive  int       `json:"inactive"`
}

// PluginInfo is the response for the `/plugin/{id}` endpoint.
type PluginInfo struct {
	Raw

	Active      bool                   `json:"active"`
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Maintainer  string                 `json:"maintainer"`
	Tag         string                 `json:"tag"`
	VCS         string                 `json:"vcs"`
	Version     map[string]interface{} `json:"version"`
	Network     map[string]interface{} `json:"network"`
	Health      map[string]interface{} `json:"health"`
}

// PluginSummary is an element of the response for the `/plugin` endpoint.
type PluginSummary struct {
	Raw

	Active      bool   `json:"active"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Maintainer  string `json:"maintainer"`
	Tag         string `json:"tag"`
}

// Unit describes the unit of measure for a device reading.
type Unit struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Reading is an element of the response for the `/read`, `/read/{device}`
// and `/readcache` endpoints, and of streamed reading data.
type Reading struct {
	Raw

	Device     string                 `json:"device"`
	DeviceType string                 `json:"device_type"`
	DeviceInfo string                 `json:"device_info"`
	Type       string                 `json:"type"`
	Value      interface{}            `json:"value"`
	Unit       *Unit                  `json:"unit"`
	Context    map[string]interface{} `json:"context"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Status is the response for the `/test` endpoint.
type Status struct {
	Raw

	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionInfo is an element of the response for the `/write/{device}`
// (asynchronous write) endpoint.
type TransactionInfo struct {
	Raw

	ID      string                 `json:"id"`
	Device  string                 `json:"device"`
	Context map[string]interface{} `json:"context"`
	Timeout string                 `json:"timeout"`
}

// TransactionStatus is the response for the `/transaction/{id}` endpoint and
// an element of the response for the `/write/wait/{device}` (synchronous
// write) endpoint.
type TransactionStatus struct {
	Raw

	ID      string                 `json:"id"`
	Device  string                 `json:"device"`
	Context map[string]interface{} `json:"context"`
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Timeout string                 `json:"timeout"`
	Created time.Time              `json:"created"`
	Updated time.Time              `json:"updated"`
}

// Version is the response for the `/version` endpoint.
type Version struct {
	Raw

	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}
