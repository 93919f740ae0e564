// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package scprovision

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scautomation/scprovision/config"
	"github.com/scautomation/scprovision/internal/fakesc"
	"github.com/scautomation/scprovision/provisioning"
)

func testConfig(t *testing.T, address string) *config.Config {
	license := filepath.Join(t.TempDir(), "SecurityCenter.key")
	require.NoError(t, os.WriteFile(license, []byte("demo license"), 0o600))

	return &config.Config{
		Server:          config.ServerConfig{Address: address, Timeout: 5 * time.Second},
		Login:           config.LoginConfig{Username: fakesc.AdminUsername, Password: fakesc.AdminPassword},
		License:         config.LicenseConfig{Path: license},
		Nessus:          config.NessusConfig{ActivationCode: "AAAA-BBBB", Name: "Nessus Scanner", IP: "10.0.0.5"},
		Admin:           config.AdminConfig{NewPassword: "N3wAdm1n!"},
		ScanZone:        config.ScanZoneConfig{Name: "Default Zone", Range: "0.0.0.0/0"},
		Organization:    config.OrganizationConfig{Name: "Test Org"},
		Repository:      config.RepositoryConfig{Name: "Test Repo", IPRange: "0.0.0.0/0"},
		SecurityManager: config.SecurityManagerConfig{Username: "secman", Password: "password"},
	}
}

func TestNewSession(t *testing.T) {
	cfg := testConfig(t, "172.26.18.153")

	s, err := NewSession(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, "https://172.26.18.153/rest/", s.EndPointURI.String())
	assert.Equal(t, 5*time.Second, s.Client.HTTPClient.Timeout)
	assert.False(t, s.Authenticated())
}

func TestNewSession_bad_ca(t *testing.T) {
	cfg := testConfig(t, "172.26.18.153")
	cfg.Server.VerifyTLS = true
	cfg.Server.CACerts = []string{filepath.Join(t.TempDir(), "missing.pem")}

	_, err := NewSession(cfg, nil)
	assert.ErrorContains(t, err, "TLS configuration: could not read cert")
}

func TestRun(t *testing.T) {
	sc := fakesc.New()
	srv := httptest.NewServer(sc)
	defer srv.Close()

	report, err := Run(context.Background(), testConfig(t, srv.URL), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, provisioning.StatusSucceeded, report.Status)
	assert.True(t, report.LoggedOut)
	assert.True(t, sc.CheckPassword(fakesc.AdminUsername, "N3wAdm1n!"))
}

func TestCheckLogin(t *testing.T) {
	sc := fakesc.New()
	srv := httptest.NewServer(sc)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)

	require.NoError(t, CheckLogin(context.Background(), cfg, nil))

	cfg.Login.Password = "wrong"
	err := CheckLogin(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.EqualError(t, err, "login failed: Invalid login credentials.")
}
