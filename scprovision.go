// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package scprovision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scautomation/scprovision/common"
	"github.com/scautomation/scprovision/config"
	"github.com/scautomation/scprovision/provisioning"
	"github.com/scautomation/scprovision/session"
)

// NewSession creates an unauthenticated session against the appliance named
// in cfg, honouring its TLS and timeout settings.
func NewSession(cfg *config.Config, logger *slog.Logger) (*session.Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := common.NewTLSTransport(cfg.Server.VerifyTLS, cfg.Server.CACerts)
	if err != nil {
		return nil, fmt.Errorf("TLS configuration: %w", err)
	}

	client := common.NewClient(transport)
	if cfg.Server.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Server.Timeout
	}

	return session.New(
		cfg.Server.Address,
		session.WithClient(client),
		session.WithLogger(logger),
	)
}

// Run provisions the appliance described by cfg.  The report is returned
// whenever provisioning was attempted, including on failure.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*provisioning.Report, error) {
	p, err := newProvisioner(cfg, logger)
	if err != nil {
		return nil, err
	}

	return p.Run(ctx)
}

// CheckLogin logs in with the configured credentials and out again.
func CheckLogin(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p, err := newProvisioner(cfg, logger)
	if err != nil {
		return err
	}

	return p.CheckLogin(ctx)
}

func newProvisioner(cfg *config.Config, logger *slog.Logger) (*provisioning.Provisioner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := NewSession(cfg, logger)
	if err != nil {
		return nil, err
	}

	return provisioning.NewProvisioner(s, cfg, logger)
}
