// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package common

import "fmt"

// TransportError reports a request that never produced an HTTP response
// (connection refused, DNS, TLS handshake...).
type TransportError struct {
	Method string
	URI    string
	Err    error
}

func (o *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", o.Method, o.URI, o.Err)
}

func (o *TransportError) Unwrap() error {
	return o.Err
}

// DecodeError reports a response whose body is not the expected JSON
// document.
type DecodeError struct {
	Status int
	Err    error
}

func (o *DecodeError) Error() string {
	return fmt.Sprintf("could not decode response (status %d): %v", o.Status, o.Err)
}

func (o *DecodeError) Unwrap() error {
	return o.Err
}
