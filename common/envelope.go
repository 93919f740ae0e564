// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope models the JSON document wrapping every REST response of the
// appliance.
type Envelope struct {
	// ErrorCode is 0 on success. It is a pointer so that a body without the
	// field can be told apart from a successful one.
	ErrorCode *int `json:"error_code"`

	// ErrorMsg carries the server diagnostic when ErrorCode is not 0.
	ErrorMsg string `json:"error_msg,omitempty"`

	// Response is the endpoint specific payload.
	Response json.RawMessage `json:"response,omitempty"`

	Type      string `json:"type,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// APIError is returned when the appliance reports a non-zero error_code.
type APIError struct {
	Code    int
	Message string
}

// Error returns the server supplied message verbatim.
func (o *APIError) Error() string {
	if o.Message == "" {
		return fmt.Sprintf("error code %d", o.Code)
	}
	return o.Message
}

// Err converts a failed envelope into an *APIError.
func (o Envelope) Err() error {
	if o.ErrorCode == nil || *o.ErrorCode == 0 {
		return nil
	}

	return &APIError{Code: *o.ErrorCode, Message: o.ErrorMsg}
}

// DecodeEnvelope reads the envelope from the response body.  Any failure to
// obtain a well-formed envelope is reported as a *DecodeError.
func DecodeEnvelope(res *http.Response) (*Envelope, error) {
	var env Envelope

	if err := DecodeJSONBody(res, &env); err != nil {
		return nil, &DecodeError{Status: res.StatusCode, Err: err}
	}

	if env.ErrorCode == nil {
		return nil, &DecodeError{
			Status: res.StatusCode,
			Err:    errors.New("missing error_code"),
		}
	}

	return &env, nil
}
