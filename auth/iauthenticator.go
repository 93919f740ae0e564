// Copyright 2023 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0
package auth

import "net/http"

// IAuthenticator decorates an outgoing request with whatever the appliance
// needs to recognise the caller.
type IAuthenticator interface {
	EncodeHeaders(hdr http.Header)
}
