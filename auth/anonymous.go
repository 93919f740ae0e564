// Copyright 2023 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0
package auth

import "net/http"

// Anonymous is used for the login call, which must not present a stale token.
type Anonymous struct{}

func (o Anonymous) EncodeHeaders(hdr http.Header) {}
