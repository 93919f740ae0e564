// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scautomation/scprovision/auth"
	"github.com/scautomation/scprovision/config"
)

// Step names, in execution order.
const (
	StepLogin               = "login"
	StepUploadLicense       = "upload-license"
	StepApplyLicense        = "apply-license"
	StepRegisterScanner     = "register-scanner"
	StepChangeAdminPassword = "change-admin-password"
	StepAddScanZone         = "add-scan-zone"
	StepAddScanner          = "add-scanner"
	StepAddOrganization     = "add-organization"
	StepAddRepository       = "add-repository"
	StepAddSecurityManager  = "add-security-manager"
)

// Session is an appliance session that can be logged in and out.
type Session interface {
	Requester
	Login(ctx context.Context, creds auth.Credentials) error
	Logout(ctx context.Context) error
}

// Provisioner configures a freshly installed appliance from a Config.
type Provisioner struct {
	session Session
	cfg     *config.Config
	logger  *slog.Logger
}

// NewProvisioner creates a Provisioner; a nil logger means slog.Default().
func NewProvisioner(s Session, cfg *config.Config, logger *slog.Logger) (*Provisioner, error) {
	if s == nil {
		return nil, errors.New("no session supplied")
	}

	if cfg == nil {
		return nil, errors.New("no configuration supplied")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Provisioner{session: s, cfg: cfg, logger: logger}, nil
}

// Run logs in, executes the plan and logs out.  Logout is attempted whenever
// login succeeded, whatever happened afterwards; steps that succeeded before
// a failure are not undone.  The returned report is never nil.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Server:    p.cfg.Server.Address,
		StartedAt: time.Now().UTC(),
	}

	logger := p.logger.With("run_id", report.RunID)
	svc := NewService(p.session, logger)

	st := &State{}
	report.Resources = st

	defer func() {
		report.Duration = time.Since(report.StartedAt).Round(time.Millisecond)
	}()

	defer func() {
		if !st.LoggedIn {
			return
		}

		if err := p.session.Logout(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("logout failed", "error", err)
			return
		}

		report.LoggedOut = true
	}()

	err := RunSteps(ctx, logger, p.Plan(svc), st, report)
	if err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		return report, err
	}

	report.Status = StatusSucceeded

	logger.Info("appliance is now configured")

	return report, nil
}

// CheckLogin verifies that the configured credentials are accepted, then
// logs out again.
func (p *Provisioner) CheckLogin(ctx context.Context) error {
	if err := p.session.Login(ctx, p.credentials()); err != nil {
		return err
	}

	if err := p.session.Logout(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	p.logger.Info("login check passed", "user", p.cfg.Login.Username)

	return nil
}

// Plan returns the provisioning steps in the order they must run.
func (p *Provisioner) Plan(svc *Service) []Step {
	c := p.cfg

	return []Step{
		{
			Name: StepLogin,
			Run: func(ctx context.Context, st *State) error {
				if err := p.session.Login(ctx, p.credentials()); err != nil {
					return err
				}
				st.LoggedIn = true
				return nil
			},
		},
		{
			Name: StepUploadLicense,
			Run: func(ctx context.Context, st *State) error {
				filename, err := svc.UploadLicense(ctx, c.License.Path)
				if err != nil {
					return err
				}
				st.LicenseFile = filename
				return nil
			},
		},
		{
			Name: StepApplyLicense,
			Run: func(ctx context.Context, st *State) error {
				return svc.ApplyLicense(ctx, st.LicenseFile)
			},
		},
		{
			Name: StepRegisterScanner,
			Run: func(ctx context.Context, st *State) error {
				a, err := svc.RegisterScanner(ctx, c.Nessus.ActivationCode, c.Nessus.UpdateSite)
				if err != nil {
					return err
				}
				st.Activation = a
				return nil
			},
		},
		{
			Name: StepChangeAdminPassword,
			Run: func(ctx context.Context, st *State) error {
				u, err := svc.CurrentUser(ctx)
				if err != nil {
					return fmt.Errorf("resolving current user: %w", err)
				}
				st.Admin = u
				return svc.SetAdminPassword(ctx, u.ID, c.Admin.NewPassword)
			},
		},
		{
			Name: StepAddScanZone,
			Run: func(ctx context.Context, st *State) error {
				z, err := svc.AddScanZone(ctx, c.ScanZone.Name, c.ScanZone.Range)
				if err != nil {
					return err
				}
				st.Zone = z
				return nil
			},
		},
		{
			Name: StepAddScanner,
			Run: func(ctx context.Context, st *State) error {
				if st.Zone == nil {
					return errors.New("no scan zone to bind the scanner to")
				}
				s, err := svc.AddNessusScanner(ctx, *st.Zone, ScannerSpec{
					Name:     c.Nessus.Name,
					IP:       c.Nessus.IP,
					Username: c.Nessus.Username,
					Password: c.Nessus.Password,
					Port:     c.Nessus.Port,
				})
				if err != nil {
					return err
				}
				st.Scanner = s
				return nil
			},
		},
		{
			Name: StepAddOrganization,
			Run: func(ctx context.Context, st *State) error {
				org, err := svc.AddOrganization(ctx, c.Organization.Name)
				if err != nil {
					return err
				}
				st.Organization = org
				return nil
			},
		},
		{
			Name: StepAddRepository,
			Run: func(ctx context.Context, st *State) error {
				if st.Organization == nil {
					return errors.New("no organization to bind the repository to")
				}
				r, err := svc.AddRepository(ctx, *st.Organization, c.Repository.Name, c.Repository.IPRange)
				if err != nil {
					return err
				}
				st.Repository = r
				return nil
			},
		},
		{
			Name: StepAddSecurityManager,
			Run: func(ctx context.Context, st *State) error {
				if st.Organization == nil {
					return errors.New("no organization to place the Security Manager in")
				}
				u, err := svc.AddSecurityManager(
					ctx,
					*st.Organization,
					c.SecurityManager.Username,
					c.SecurityManager.Password,
				)
				if err != nil {
					return err
				}
				st.SecurityManager = u
				return nil
			},
		},
	}
}

func (p *Provisioner) credentials() auth.Credentials {
	return auth.Credentials{
		Username: p.cfg.Login.Username,
		Password: p.cfg.Login.Password,
	}
}
