// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package mock

// Canned v3 API response payloads shared by the transport tests. They mirror
// the documented response shapes for each endpoint.
const (
	StatusResponse = `{"status":"ok","timestamp":"2019-05-07T11:14:39Z"}`

	VersionResponse = `{"version":"3.0.0","api_version":"v3"}`

	ConfigResponse = `{"logging":"debug","pretty_json":true,"plugin":{"tcp":["localhost:5001"]}}`

	ScanResponse = `[
		{"id":"0101","alias":"temp-1","info":"Temperature Sensor 1","type":"temperature","plugin":"p-1","tags":["system/type:temperature"],"metadata":{}},
		{"id":"0102","alias":"temp-2","info":"Temperature Sensor 2","type":"temperature","plugin":"p-1","tags":["system/type:temperature"],"metadata":{}},
		{"id":"0201","alias":"led-1","info":"LED 1","type":"led","plugin":"p-2","tags":["system/type:led"],"metadata":{}}
	]`

	TagsResponse = `["default/tag1","default/tag2","system/type:temperature"]`

	InfoResponse = `{"id":"0101","alias":"temp-1","type":"temperature","info":"Temperature Sensor 1","metadata":{"model":"emul8-temp"},"plugin":"p-1","tags":["system/type:temperature"],"sort_index":0,"timestamp":"2019-05-07T11:14:39Z"}`

	ReadResponse = `[
		{"device":"0101","device_type":"temperature","type":"temperature","value":20.3,"unit":{"name":"celsius","symbol":"C"},"context":{},"timestamp":"2019-05-07T11:14:39Z"},
		{"device":"0102","device_type":"temperature","type":"temperature","value":21.1,"unit":{"name":"celsius","symbol":"C"},"context":{},"timestamp":"2019-05-07T11:14:40Z"}
	]`

	ReadingOne   = `{"device":"0101","device_type":"temperature","type":"temperature","value":20.3,"unit":{"name":"celsius","symbol":"C"},"context":{},"timestamp":"2019-05-07T11:14:39Z"}`
	ReadingTwo   = `{"device":"0102","device_type":"temperature","type":"temperature","value":21.1,"unit":{"name":"celsius","symbol":"C"},"context":{},"timestamp":"2019-05-07T11:14:40Z"}`
	ReadingThree = `{"device":"0201","device_type":"led","type":"state","value":"on","context":{},"timestamp":"2019-05-07T11:14:41Z"}`

	PluginResponse = `{"active":true,"id":"p-1","name":"emulator","description":"A plugin with emulated devices","maintainer":"vaporio","tag":"vaporio/emulator-plugin","vcs":"github.com/vapor-ware/synse-emulator-plugin","version":{"plugin_version":"3.0.0"},"network":{"protocol":"tcp","address":"localhost:5001"},"health":{"status":"OK"}}`

	PluginsResponse = `[
		{"active":true,"id":"p-1","name":"emulator","description":"A plugin with emulated devices","maintainer":"vaporio","tag":"vaporio/emulator-plugin"},
		{"active":true,"id":"p-2","name":"led","description":"An LED plugin","maintainer":"vaporio","tag":"vaporio/led-plugin"}
	]`

	PluginHealthResponse = `{"status":"healthy","updated":"2019-05-07T11:14:39Z","healthy":["p-1","p-2"],"unhealthy":[],"active":2,"inactive":0}`

	TransactionResponse = `{"id":"t-1","device":"0201","context":{"action":"color","data":"f38ac2"},"status":"DONE","timeout":"30s","created":"2019-05-07T11:14:39Z","updated":"2019-05-07T11:14:39Z"}`

	TransactionsResponse = `["t-1","t-2","t-3"]`

	WriteSyncResponse = `[{"id":"t-1","device":"0201","context":{"action":"color","data":"f38ac2"},"status":"DONE","timeout":"30s","created":"2019-05-07T11:14:39Z","updated":"2019-05-07T11:14:39Z"}]`
)
