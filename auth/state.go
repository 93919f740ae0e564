// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

const (
	// TokenHeader carries the token obtained at login.
	TokenHeader = "X-SecurityCenter"

	// SessionCookieName is the cookie the appliance ties to the token.
	SessionCookieName = "TNS_SESSIONID"

	deletedCookieValue = "deleted"
)

var ErrMissingSessionCookie = errors.New("no " + SessionCookieName + " value in Set-Cookie")

var sessionCookieRe = regexp.MustCompile(SessionCookieName + `=[^,;\s]*`)

// SessionState is the authentication context carried across calls.  The zero
// value is an unauthenticated session.
type SessionState struct {
	Token  string
	Cookie string
}

// Authenticated reports whether a token has been obtained.
func (o SessionState) Authenticated() bool {
	return o.Token != ""
}

// EncodeHeaders attaches the token and the cookie, each only when set.
func (o SessionState) EncodeHeaders(hdr http.Header) {
	if o.Token != "" {
		hdr.Set(TokenHeader, o.Token)
	}

	if o.Cookie != "" {
		hdr.Set("Cookie", o.Cookie)
	}
}

func (o *SessionState) Clear() {
	o.Token = ""
	o.Cookie = ""
}

// ExtractSessionCookie picks the session cookie out of the Set-Cookie values
// of a response.  The appliance expires the previous cookie and sets the new
// one in the same response, so the last value that is not the "deleted"
// marker wins.  The returned string is ready to be sent as a Cookie header
// ("TNS_SESSIONID=..."); it is empty when the server only expired the cookie.
// ErrMissingSessionCookie is returned when no value names the session cookie.
func ExtractSessionCookie(setCookie []string) (string, error) {
	var (
		found  bool
		cookie string
	)

	for _, line := range setCookie {
		for _, m := range sessionCookieRe.FindAllString(line, -1) {
			found = true

			value := strings.TrimPrefix(m, SessionCookieName+"=")
			if value == "" || value == deletedCookieValue {
				continue
			}

			cookie = m
		}
	}

	if !found {
		return "", ErrMissingSessionCookie
	}

	return cookie, nil
}
