// Copyright 2023 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/scautomation/scprovision/auth"
	"github.com/scautomation/scprovision/common"
)

const (
	// RESTPath is the root of the administrative API on the appliance.
	RESTPath = "/rest/"

	TokenResource  = "token"
	UploadResource = "file/upload"

	uploadField = "Filedata"
)

// ErrNoToken is returned by Login when the appliance accepted the call but
// did not hand out a token.
var ErrNoToken = errors.New("login response carries no token")

// openFile is swapped in tests to observe the upload file handle.
var openFile = func(name string) (io.ReadCloser, error) {
	// #nosec G304
	return os.Open(name)
}

// Session carries the authentication state of one administrator across a
// sequence of calls against a single appliance.  It is not safe for
// concurrent use.
type Session struct {
	// Client is the underlying client used for HTTP requests.
	Client *common.Client

	// EndPointURI is the REST root (https://<host>/rest/). Resources are
	// relative to this.
	EndPointURI *url.URL

	logger *slog.Logger
	state  auth.SessionState
}

// Option configures a Session created by New.
type Option func(*Session) error

// WithClient sets the HTTP(s) client connection configuration.
func WithClient(client *common.Client) Option {
	return func(o *Session) error {
		return o.SetClient(client)
	}
}

// WithLogger sets the logger used to report requests and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Session) error {
		if logger == nil {
			return errors.New("no logger supplied")
		}
		o.logger = logger
		return nil
	}
}

// New creates an unauthenticated Session against server, which is either a
// bare host[:port] or an absolute URL.
func New(server string, opts ...Option) (*Session, error) {
	s := Session{
		Client: common.NewClient(nil),
		logger: slog.Default(),
	}

	if err := s.SetEndpointURI(server); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return nil, err
		}
	}

	return &s, nil
}

// SetClient sets the HTTP(s) client connection configuration
func (o *Session) SetClient(client *common.Client) error {
	if client == nil {
		return errors.New("no client supplied")
	}
	o.Client = client
	return nil
}

// SetEndpointURI derives the REST root from the appliance address.
func (o *Session) SetEndpointURI(server string) error {
	uri, err := EndpointURI(server)
	if err != nil {
		return err
	}

	o.EndPointURI = uri

	return nil
}

// EndpointURI turns an appliance address into its REST root.  A bare host
// is reached over https.
func EndpointURI(server string) (*url.URL, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return nil, errors.New("no server address supplied")
	}

	if !strings.Contains(server, "://") {
		server = "https://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("malformed URI: %w", err)
	}

	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("URI is not absolute: %q", server)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: RESTPath}, nil
}

// State returns a copy of the current authentication state.
func (o *Session) State() auth.SessionState {
	return o.state
}

// Authenticated reports whether Login has succeeded and Logout has not been
// called since.
func (o *Session) Authenticated() bool {
	return o.state.Authenticated()
}

// Login exchanges creds for a session token.  The token is kept for every
// subsequent call; creds are not.
func (o *Session) Login(ctx context.Context, creds auth.Credentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("bad credentials: %w", err)
	}

	raw, err := o.send(ctx, http.MethodPost, TokenResource, creds, auth.Anonymous{})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var tok struct {
		Token string `mapstructure:"token"`
	}

	if err := common.DecodeResponse(raw, &tok); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if tok.Token == "" {
		o.logger.Warn("login succeeded without a token", "credentials", creds)
		return ErrNoToken
	}

	o.state.Token = tok.Token

	o.logger.Info("logged in", "credentials", creds)

	return nil
}

// Logout deletes the token server-side.  Local state is cleared whatever
// the outcome of the call; the returned error is informational.
func (o *Session) Logout(ctx context.Context) error {
	defer o.state.Clear()

	if _, err := o.Request(ctx, http.MethodDelete, TokenResource, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	o.logger.Info("logged out")

	return nil
}

// Request performs an authenticated call and returns the "response" member of
// the envelope.
//
// A nil body is not sent at all.  For GET the body is sent as query
// parameters and must be url.Values or a flat map of scalars; any other
// method sends its JSON encoding.
func (o *Session) Request(
	ctx context.Context,
	method string,
	resource string,
	body interface{},
) (json.RawMessage, error) {
	return o.send(ctx, method, resource, body, &o.state)
}

// Upload submits the file at filePath as multipart form data and returns the
// name the appliance stored it under.
func (o *Session) Upload(ctx context.Context, filePath string) (string, error) {
	f, err := openFile(filePath)
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(uploadField, filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", filePath, err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	hdr := http.Header{}
	hdr.Set("Content-Type", mw.FormDataContentType())
	hdr.Set("Accept", common.JSONMediaType)

	o.logger.Info("uploading file", "path", filePath, "size", buf.Len())

	uri := o.EndPointURI.JoinPath(UploadResource)

	raw, err := o.do(ctx, http.MethodPost, UploadResource, uri.String(), &buf, hdr, &o.state)
	if err != nil {
		return "", err
	}

	var up struct {
		Filename string `mapstructure:"filename"`
	}

	if err := common.DecodeResponse(raw, &up); err != nil {
		return "", err
	}

	if up.Filename == "" {
		return "", errors.New("upload response carries no filename")
	}

	o.logger.Info("file uploaded", "path", filePath, "filename", up.Filename)

	return up.Filename, nil
}

func (o *Session) send(
	ctx context.Context,
	method string,
	resource string,
	body interface{},
	authn auth.IAuthenticator,
) (json.RawMessage, error) {
	uri := o.EndPointURI.JoinPath(resource)

	hdr := http.Header{}
	hdr.Set("Content-Type", common.JSONMediaType)
	hdr.Set("Accept", common.JSONMediaType)

	var payload io.Reader

	if body != nil {
		if method == http.MethodGet {
			q, err := queryValues(body)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, resource, err)
			}
			uri.RawQuery = q.Encode()
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("%s %s: encoding body: %w", method, resource, err)
			}
			payload = bytes.NewReader(b)
		}
	}

	return o.do(ctx, method, resource, uri.String(), payload, hdr, authn)
}

func (o *Session) do(
	ctx context.Context,
	method string,
	resource string,
	uri string,
	payload io.Reader,
	hdr http.Header,
	authn auth.IAuthenticator,
) (json.RawMessage, error) {
	authn.EncodeHeaders(hdr)

	res, err := o.Client.Do(ctx, method, uri, payload, hdr)
	if err != nil {
		o.logger.Error("request failed", "method", method, "resource", resource, "error", err)
		return nil, &common.TransportError{Method: method, URI: uri, Err: err}
	}
	defer res.Body.Close()

	o.logger.Debug("response received", "method", method, "resource", resource, "status", res.StatusCode)

	if err := o.captureCookie(res); err != nil {
		o.logger.Error("bad session cookie", "method", method, "resource", resource, "error", err)
		return nil, err
	}

	if err := common.CheckResponse(res); err != nil {
		o.logger.Error("request rejected", "method", method, "resource", resource, "error", err)
		return nil, err
	}

	env, err := common.DecodeEnvelope(res)
	if err != nil {
		o.logger.Error("undecodable response", "method", method, "resource", resource, "error", err)
		return nil, err
	}

	if err := env.Err(); err != nil {
		o.logger.Error("appliance reported an error", "method", method, "resource", resource, "error", err)
		return nil, err
	}

	return env.Response, nil
}

func (o *Session) captureCookie(res *http.Response) error {
	setCookie := res.Header.Values("Set-Cookie")
	if len(setCookie) == 0 {
		return nil
	}

	cookie, err := auth.ExtractSessionCookie(setCookie)
	if err != nil {
		return &common.DecodeError{Status: res.StatusCode, Err: err}
	}

	o.state.Cookie = cookie

	return nil
}

func queryValues(body interface{}) (url.Values, error) {
	switch v := body.(type) {
	case url.Values:
		return v, nil
	case map[string]string:
		q := url.Values{}
		for k, s := range v {
			q.Set(k, s)
		}
		return q, nil
	case map[string]interface{}:
		q := url.Values{}
		for k, s := range v {
			switch s.(type) {
			case map[string]interface{}, []interface{}:
				return nil, fmt.Errorf("query parameter %q is not a scalar", k)
			}
			q.Set(k, fmt.Sprint(s))
		}
		return q, nil
	default:
		return nil, fmt.Errorf("cannot encode %T as query parameters", body)
	}
}
