// Copyright 2023 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"errors"
	"log/slog"
)

// Credentials is the username/password pair exchanged for a session token.
// The JSON form is the body of the login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both halves of the pair are present.
func (o Credentials) Validate() error {
	if o.Username == "" {
		return errors.New("missing username")
	}

	if o.Password == "" {
		return errors.New("missing password")
	}

	return nil
}

// LogValue keeps the password out of structured logs.
func (o Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", o.Username))
}
