// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

/*
Package session implements the authenticated request contract of the
SecurityCenter REST API.

A Session is created against an appliance address and starts
unauthenticated:

	s, err := session.New("172.26.18.153")

The default client verifies nothing about TLS beyond what Go's defaults do;
appliances with self-signed certificates need a client built on
common.NewTLSTransport(false, nil):

	transport, _ := common.NewTLSTransport(false, nil)
	s, err := session.New("172.26.18.153", session.WithClient(common.NewClient(transport)))

Login obtains the token which, together with the TNS_SESSIONID cookie set by
the appliance, is attached to every following call:

	err = s.Login(ctx, auth.Credentials{Username: "admin", Password: "admin"})

Request returns the "response" member of the JSON envelope, or an error:
*common.TransportError when the appliance could not be reached,
*common.DecodeError when the body is not an envelope, *common.APIError when
error_code is not 0.

	raw, err := s.Request(ctx, http.MethodPost, "zone", zone)

Upload is the multipart special case used for license files:

	filename, err := s.Upload(ctx, "/tmp/SecurityCenter.key")

Logout always leaves the session unauthenticated.
*/
package session
