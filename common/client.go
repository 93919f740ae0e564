// Copyright 2021 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single round trip of the default client.
const DefaultTimeout = 60 * time.Second

// Client holds configuration data associated with the HTTP(s) session
type Client struct {
	HTTPClient http.Client
}

// NewClient instantiates a new Client using the supplied transport.  A nil
// transport selects http.DefaultTransport.
func NewClient(transport http.RoundTripper) *Client {
	return &Client{
		HTTPClient: http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
	}
}

// Do sends a request with the given method, body and headers to uri.  The
// caller owns the response body.
func (c Client) Do(
	ctx context.Context,
	method string,
	uri string,
	body io.Reader,
	hdr http.Header,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, fmt.Errorf("%s %q, request creation failed: %w", method, uri, err)
	}

	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	hc := &c.HTTPClient

	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}

	return res, nil
}
