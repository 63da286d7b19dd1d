// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Vapor IO
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Make decodes a single JSON object payload into an instance of the given
// model type. Payload keys which the model does not declare are dropped;
// declared fields absent from the payload are left at their zero value. The
// original payload is retained on the instance and can be recovered with
// RawData.
func Make[T any](data json.RawMessage) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.Wrap(err, "failed to decode response payload")
	}
	if s, ok := any(out).(rawSetter); ok {
		s.setRaw(data)
	}
	return out, nil
}

// MakeList decodes a JSON array payload into a list of instances of the given
// model type, preserving the order of the array. Each element is decoded
// independently, exactly as Make would decode it.
func MakeList[T any](data json.RawMessage) ([]*T, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, errors.Wrap(err, "failed to decode response payload as a list")
	}

	out := make([]*T, 0, len(elements))
	for _, e := range elements {
		m, err := Make[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
