// Copyright 2023 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scautomation/scprovision/auth"
	"github.com/scautomation/scprovision/common"
)

var (
	testServer      = "http://sc.example"
	testCredentials = auth.Credentials{Username: "admin", Password: "admin"}
	testSetCookie   = []string{
		"TNS_SESSIONID=deleted; expires=Thu, 01-Jan-1970 00:00:01 GMT; path=/",
		"TNS_SESSIONID=5eb63bbbe01eeed0; path=/; secure; HttpOnly",
	}
	testLoginBody = `{"type":"regular","response":{"token":1234567,"unassociatedCert":"false"},"error_code":0,"error_msg":""}`
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestSession(t *testing.T, h http.Handler) (*Session, func()) {
	client, teardown := common.NewTestingHTTPClient(h)

	s, err := New(testServer, WithClient(client), WithLogger(testLogger()))
	require.NoError(t, err)

	return s, teardown
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", common.JSONMediaType)
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	assert.NoError(t, err)
}

func writeLogin(t *testing.T, w http.ResponseWriter) {
	for _, c := range testSetCookie {
		w.Header().Add("Set-Cookie", c)
	}
	writeEnvelope(t, w, http.StatusOK, testLoginBody)
}

type trackingFile struct {
	io.Reader
	closed bool
}

func (o *trackingFile) Close() error {
	o.closed = true
	return nil
}

func trackOpenFile(t *testing.T, content string) *trackingFile {
	tf := &trackingFile{Reader: strings.NewReader(content)}

	orig := openFile
	openFile = func(string) (io.ReadCloser, error) { return tf, nil }
	t.Cleanup(func() { openFile = orig })

	return tf
}

func TestSession_New(t *testing.T) {
	_, err := New("")
	assert.EqualError(t, err, "no server address supplied")

	_, err = New("ftp://sc.example")
	assert.EqualError(t, err, `unsupported scheme "ftp"`)

	_, err = New(string([]byte{0x7f}))
	assert.ErrorContains(t, err, "malformed URI")

	s, err := New("172.26.18.153")
	require.NoError(t, err)
	assert.Equal(t, "https://172.26.18.153/rest/", s.EndPointURI.String())
	assert.False(t, s.Authenticated())

	s, err = New("http://127.0.0.1:8080/ignored/path")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/rest/", s.EndPointURI.String())
}

func TestSession_New_options(t *testing.T) {
	_, err := New(testServer, WithClient(nil))
	assert.EqualError(t, err, "no client supplied")

	_, err = New(testServer, WithLogger(nil))
	assert.EqualError(t, err, "no logger supplied")

	client := common.NewClient(nil)
	s, err := New(testServer, WithClient(client))
	require.NoError(t, err)
	assert.Same(t, client, s.Client)
}

func TestSession_Login_token_used_afterwards(t *testing.T) {
	iter := 1

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch iter {
		case 1:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/token", r.URL.Path)
			assert.Empty(t, r.Header.Get(auth.TokenHeader))
			assert.Empty(t, r.Header.Get("Cookie"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"username":"admin","password":"admin"}`, string(body))

			writeLogin(t, w)
		case 2:
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/rest/currentUser", r.URL.Path)
			assert.Equal(t, "1234567", r.Header.Get(auth.TokenHeader))
			assert.Equal(t, "TNS_SESSIONID=5eb63bbbe01eeed0", r.Header.Get("Cookie"))

			writeEnvelope(t, w, http.StatusOK, `{"response":{"id":"1"},"error_code":0}`)
		}
		iter++
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	err := s.Login(context.Background(), testCredentials)
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	assert.Equal(t, auth.SessionState{
		Token:  "1234567",
		Cookie: "TNS_SESSIONID=5eb63bbbe01eeed0",
	}, s.State())

	raw, err := s.Request(context.Background(), http.MethodGet, "currentUser", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(raw))
	assert.Equal(t, 3, iter)
}

func TestSession_Login_no_token(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, `{"response":{"unassociatedCert":"false"},"error_code":0}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	err := s.Login(context.Background(), testCredentials)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.State().Token)
}

func TestSession_Login_rejected(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusForbidden, `{"error_code":2,"error_msg":"Invalid login credentials"}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	err := s.Login(context.Background(), testCredentials)
	assert.EqualError(t, err, "login failed: Invalid login credentials")
	assert.False(t, s.Authenticated())
}

func TestSession_Login_bad_credentials(t *testing.T) {
	s, err := New(testServer)
	require.NoError(t, err)

	err = s.Login(context.Background(), auth.Credentials{Username: "admin"})
	assert.EqualError(t, err, "bad credentials: missing password")
}

func TestSession_Request_nil_body(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, body)
		assert.Empty(t, r.URL.RawQuery)

		writeEnvelope(t, w, http.StatusOK, `{"response":{},"error_code":0}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	_, err := s.Request(context.Background(), http.MethodDelete, "token", nil)
	assert.NoError(t, err)
}

func TestSession_Request_json_body(t *testing.T) {
	input := map[string]interface{}{
		"name":        "Default Zone",
		"description": "",
		"ipList":      "0.0.0.0/0",
	}
	expected, err := json.Marshal(input)
	require.NoError(t, err)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/zone", r.URL.Path)
		assert.Equal(t, common.JSONMediaType, r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, expected, body)

		writeEnvelope(t, w, http.StatusOK, `{"response":{"id":"3","name":"Default Zone"},"error_code":0}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	raw, err := s.Request(context.Background(), http.MethodPost, "/zone", input)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"3","name":"Default Zone"}`, string(raw))
}

func TestSession_Request_get_query(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "id,username", r.URL.Query().Get("fields"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, body)

		writeEnvelope(t, w, http.StatusOK, `{"response":{"id":"1","username":"admin"},"error_code":0}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	_, err := s.Request(context.Background(), http.MethodGet, "currentUser",
		map[string]string{"fields": "id,username"})
	assert.NoError(t, err)

	_, err = s.Request(context.Background(), http.MethodGet, "currentUser", []string{"id"})
	assert.EqualError(t, err, "GET currentUser: cannot encode []string as query parameters")

	_, err = s.Request(context.Background(), http.MethodGet, "currentUser",
		map[string]interface{}{"filter": map[string]interface{}{"a": 1}})
	assert.EqualError(t, err, `GET currentUser: query parameter "filter" is not a scalar`)
}

func TestSession_Request_api_error(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusForbidden, `{"error_code":1,"error_msg":"X"}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	_, err := s.Request(context.Background(), http.MethodPost, "organization", map[string]string{})
	assert.EqualError(t, err, "X")

	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1, apiErr.Code)
}

func TestSession_Request_decode_error(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("<html></html>"))
		assert.NoError(t, err)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	raw, err := s.Request(context.Background(), http.MethodGet, "status", nil)
	assert.Nil(t, raw)

	var decErr *common.DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestSession_Request_problem(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadGateway)
		_, err := w.Write([]byte(`{"title":"Bad Gateway","status":502,"detail":"upstream closed"}`))
		assert.NoError(t, err)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	_, err := s.Request(context.Background(), http.MethodGet, "status", nil)
	assert.EqualError(t, err, "502 Bad Gateway: upstream closed")
}

func TestSession_Request_transport_error(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	s, teardown := newTestSession(t, h)
	teardown()

	raw, err := s.Request(context.Background(), http.MethodGet, "status", nil)
	assert.Nil(t, raw)

	var tErr *common.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.MethodGet, tErr.Method)
	assert.Equal(t, "http://sc.example/rest/status", tErr.URI)
}

func TestSession_Request_unexpected_cookie(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "lang=en; path=/")
		writeEnvelope(t, w, http.StatusOK, `{"response":{},"error_code":0}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	_, err := s.Request(context.Background(), http.MethodGet, "status", nil)
	assert.EqualError(t, err, "could not decode response (status 200): no TNS_SESSIONID value in Set-Cookie")
	assert.ErrorIs(t, err, auth.ErrMissingSessionCookie)
}

func TestSession_Upload_ok(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/file/upload", r.URL.Path)

		file, hdr, err := r.FormFile("Filedata")
		require.NoError(t, err)
		defer file.Close()

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "license key material", string(content))
		assert.Equal(t, "SecurityCenter.key", hdr.Filename)

		writeEnvelope(t, w, http.StatusOK, `{"error_code":0,"response":{"filename":"abc.key"}}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	tf := trackOpenFile(t, "license key material")

	filename, err := s.Upload(context.Background(), "/tmp/SecurityCenter.key")
	require.NoError(t, err)
	assert.Equal(t, "abc.key", filename)
	assert.True(t, tf.closed)
}

func TestSession_Upload_real_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.key")
	require.NoError(t, os.WriteFile(path, []byte("demo"), 0o600))

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("Filedata")
		require.NoError(t, err)
		defer file.Close()

		writeEnvelope(t, w, http.StatusOK, `{"error_code":0,"response":{"filename":"abc.key"}}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	filename, err := s.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "abc.key", filename)
}

func TestSession_Upload_api_error_closes_file(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, `{"error_code":143,"error_msg":"File upload failed."}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	tf := trackOpenFile(t, "license key material")

	_, err := s.Upload(context.Background(), "/tmp/SecurityCenter.key")
	assert.EqualError(t, err, "File upload failed.")
	assert.True(t, tf.closed)
}

func TestSession_Upload_decode_error_closes_file(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	tf := trackOpenFile(t, "license key material")

	_, err := s.Upload(context.Background(), "/tmp/SecurityCenter.key")
	assert.EqualError(t, err, "could not decode response (status 200): EOF")
	assert.True(t, tf.closed)
}

func TestSession_Upload_transport_error_closes_file(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	s, teardown := newTestSession(t, h)
	teardown()

	tf := trackOpenFile(t, "license key material")

	_, err := s.Upload(context.Background(), "/tmp/SecurityCenter.key")

	var tErr *common.TransportError
	assert.True(t, errors.As(err, &tErr))
	assert.True(t, tf.closed)
}

func TestSession_Upload_no_filename(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, `{"error_code":0,"response":{}}`)
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	trackOpenFile(t, "license key material")

	_, err := s.Upload(context.Background(), "/tmp/SecurityCenter.key")
	assert.EqualError(t, err, "upload response carries no filename")
}

func TestSession_Upload_missing_file(t *testing.T) {
	s, err := New(testServer)
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.key"))
	assert.ErrorContains(t, err, "opening upload")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSession_Logout_ok(t *testing.T) {
	iter := 1

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch iter {
		case 1:
			writeLogin(t, w)
		case 2:
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/rest/token", r.URL.Path)
			assert.Equal(t, "1234567", r.Header.Get(auth.TokenHeader))

			w.Header().Add("Set-Cookie", "TNS_SESSIONID=deleted; expires=Thu, 01-Jan-1970 00:00:01 GMT; path=/")
			writeEnvelope(t, w, http.StatusOK, `{"response":"","error_code":0}`)
		}
		iter++
	})

	s, teardown := newTestSession(t, h)
	defer teardown()

	require.NoError(t, s.Login(context.Background(), testCredentials))

	err := s.Logout(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, auth.SessionState{}, s.State())
}

func TestSession_Logout_transport_error_clears_state(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeLogin(t, w)
	})

	s, teardown := newTestSession(t, h)

	require.NoError(t, s.Login(context.Background(), testCredentials))
	require.True(t, s.Authenticated())

	teardown()

	err := s.Logout(context.Background())
	assert.ErrorContains(t, err, "logout failed")
	assert.False(t, s.Authenticated())
	assert.Equal(t, auth.SessionState{}, s.State())
}
