// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/scautomation/scprovision/common"
)

const (
	DefaultNessusPort = 8834
	DefaultUpdateSite = "downloads.nessus.org"

	// InvalidMarker is the value the appliance puts in the activation
	// response when it rejects a code.
	InvalidMarker = "Invalid"

	// SecurityManagerRole is the role id of a Security Manager.
	SecurityManagerRole = 2
)

// Requester is the part of an authenticated session the operations need.
type Requester interface {
	Request(ctx context.Context, method, resource string, body interface{}) (json.RawMessage, error)
	Upload(ctx context.Context, filePath string) (string, error)
}

// Service implements the named provisioning operations on top of an
// authenticated session.  Every operation is a single call; none checks that
// the ones it depends on have run.
type Service struct {
	Session Requester

	logger *slog.Logger
}

// NewService creates a Service; a nil logger means slog.Default().
func NewService(s Requester, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{Session: s, logger: logger}
}

// UploadLicense uploads the license file and returns the name the appliance
// stored it under.
func (o *Service) UploadLicense(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", errors.New("no license file supplied")
	}

	filename, err := o.Session.Upload(ctx, path)
	if err != nil {
		return "", err
	}

	o.logger.Info("license uploaded", "filename", filename)

	return filename, nil
}

// ApplyLicense registers the appliance with a previously uploaded license.
func (o *Service) ApplyLicense(ctx context.Context, filename string) error {
	if filename == "" {
		return errors.New("no license filename supplied")
	}

	o.logger.Info("applying license", "filename", filename)

	if _, err := o.Session.Request(ctx, http.MethodPost, "config/license/register", licensePayload{
		Filename: filename,
	}); err != nil {
		return err
	}

	o.logger.Info("license applied")

	return nil
}

// RegisterScanner submits a Nessus activation code.  A code the appliance
// rejects is not an error: the returned Activation is marked invalid and a
// warning is logged.
func (o *Service) RegisterScanner(ctx context.Context, code, updateSite string) (*Activation, error) {
	if code == "" {
		return nil, errors.New("no activation code supplied")
	}

	if updateSite == "" {
		updateSite = DefaultUpdateSite
	}

	o.logger.Info("registering Nessus activation code", "update_site", updateSite)

	raw, err := o.Session.Request(ctx, http.MethodPost, "config/plugins/register", activationPayload{
		ActivationCode: code,
		UpdateSite:     updateSite,
		Type:           "active",
	})
	if err != nil {
		return nil, err
	}

	var res map[string]interface{}

	if err := common.DecodeResponse(raw, &res); err != nil {
		return nil, err
	}

	for _, k := range slices.Sorted(maps.Keys(res)) {
		if s, ok := res[k].(string); ok && s == InvalidMarker {
			o.logger.Warn(
				"invalid activation code, it may be in use or entered incorrectly",
				"field", k,
			)
			return &Activation{Valid: false, Field: k}, nil
		}
	}

	o.logger.Info("Nessus activation succeeded")

	return &Activation{Valid: true}, nil
}

// CurrentUser returns the account the session is logged in as.
func (o *Service) CurrentUser(ctx context.Context) (*User, error) {
	raw, err := o.Session.Request(ctx, http.MethodGet, "currentUser", url.Values{
		"fields": []string{"id,username"},
	})
	if err != nil {
		return nil, err
	}

	var u User

	if err := common.DecodeResponse(raw, &u); err != nil {
		return nil, err
	}

	if u.ID == "" {
		return nil, errors.New("currentUser response carries no id")
	}

	return &u, nil
}

// SetAdminPassword replaces the password of the account with the given id.
func (o *Service) SetAdminPassword(ctx context.Context, userID, password string) error {
	if userID == "" {
		return errors.New("no user id supplied")
	}

	if password == "" {
		return errors.New("no password supplied")
	}

	o.logger.Info("changing administrator password", "user_id", userID)

	if _, err := o.Session.Request(
		ctx,
		http.MethodPatch,
		"user/"+url.PathEscape(userID),
		passwordPayload{Password: password},
	); err != nil {
		return err
	}

	o.logger.Info("administrator password changed")

	return nil
}

// AddScanZone creates a scan zone covering ipList, a comma separated list of
// addresses, CIDR blocks and ranges.
func (o *Service) AddScanZone(ctx context.Context, name, ipList string) (*Zone, error) {
	if name == "" {
		return nil, errors.New("no scan zone name supplied")
	}

	o.logger.Info("adding scan zone", "name", name, "range", ipList)

	var z Zone

	if err := o.create(ctx, "zone", zonePayload{
		Name:   name,
		IPList: ipList,
	}, &z.ID, &z); err != nil {
		return nil, err
	}

	if z.Name == "" {
		z.Name = name
	}

	o.logger.Info("scan zone added", "id", z.ID)

	return &z, nil
}

// AddNessusScanner creates a Nessus scanner bound to zone.
func (o *Service) AddNessusScanner(ctx context.Context, zone Zone, spec ScannerSpec) (*Scanner, error) {
	if zone.ID == "" {
		return nil, errors.New("no scan zone id supplied")
	}

	if spec.Name == "" || spec.IP == "" {
		return nil, errors.New("scanner name and address are required")
	}

	o.logger.Info("adding Nessus scanner", "name", spec.Name, "ip", spec.IP, "zone_id", zone.ID)

	var s Scanner

	if err := o.create(ctx, "scanner", scannerPayload{
		Name:          spec.Name,
		IP:            spec.IP,
		Port:          scannerPort(spec.Port),
		UseProxy:      "false",
		Enabled:       "true",
		VerifyHost:    "false",
		ManagePlugins: "true",
		AuthType:      "password",
		Username:      spec.Username,
		Password:      spec.Password,
		Admin:         "false",
		Zones:         []zoneRef{{ID: zone.ID, Name: zone.Name}},
	}, &s.ID, &s); err != nil {
		return nil, err
	}

	if s.Name == "" {
		s.Name = spec.Name
	}

	o.logger.Info("Nessus scanner added", "id", s.ID)

	return &s, nil
}

// AddOrganization creates an organization whose zones are selected
// automatically.
func (o *Service) AddOrganization(ctx context.Context, name string) (*Organization, error) {
	if name == "" {
		return nil, errors.New("no organization name supplied")
	}

	o.logger.Info("adding organization", "name", name)

	var org Organization

	if err := o.create(ctx, "organization", organizationPayload{
		Name:          name,
		ZoneSelection: "auto_only",
	}, &org.ID, &org); err != nil {
		return nil, err
	}

	if org.Name == "" {
		org.Name = name
	}

	o.logger.Info("organization added", "id", org.ID)

	return &org, nil
}

// AddRepository creates a local IPv4 repository bound to org.
func (o *Service) AddRepository(ctx context.Context, org Organization, name, ipRange string) (*Repository, error) {
	if org.ID == "" {
		return nil, errors.New("no organization id supplied")
	}

	if name == "" {
		return nil, errors.New("no repository name supplied")
	}

	o.logger.Info("adding repository", "name", name, "range", ipRange, "organization_id", org.ID)

	var r Repository

	if err := o.create(ctx, "repository", repositoryPayload{
		Name:          name,
		DataFormat:    "IPv4",
		Type:          "Local",
		TrendingDays:  "30",
		TrendWithRaw:  "true",
		IPRange:       ipRange,
		Organizations: []organizationRef{{ID: org.ID, Name: org.Name}},
	}, &r.ID, &r); err != nil {
		return nil, err
	}

	if r.Name == "" {
		r.Name = name
	}

	o.logger.Info("repository added", "id", r.ID)

	return &r, nil
}

// AddSecurityManager creates a Security Manager in org.  The appliance forces
// a password change at the first login.
func (o *Service) AddSecurityManager(ctx context.Context, org Organization, username, password string) (*User, error) {
	if org.ID == "" {
		return nil, errors.New("no organization id supplied")
	}

	if username == "" || password == "" {
		return nil, errors.New("security manager username and password are required")
	}

	o.logger.Info("creating Security Manager", "username", username, "organization_id", org.ID)

	var u User

	if err := o.create(ctx, "user", userPayload{
		Firstname:          "Security",
		Lastname:           "Manager",
		Username:           username,
		Password:           password,
		Title:              "Security Manager",
		AuthType:           "tns",
		OrgID:              org.ID,
		RoleID:             SecurityManagerRole,
		MustChangePassword: "true",
	}, &u.ID, &u); err != nil {
		return nil, err
	}

	if u.Username == "" {
		u.Username = username
	}

	o.logger.Info("Security Manager created", "id", u.ID)

	return &u, nil
}

// create POSTs payload to resource and decodes the created entity into out.
// id must point into out; an entity without an id cannot be referenced by
// later steps and is an error.
func (o *Service) create(
	ctx context.Context,
	resource string,
	payload interface{},
	id *string,
	out interface{},
) error {
	raw, err := o.Session.Request(ctx, http.MethodPost, resource, payload)
	if err != nil {
		return err
	}

	if err := common.DecodeResponse(raw, out); err != nil {
		return fmt.Errorf("%s: %w", resource, err)
	}

	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("%s response carries no id", resource)
	}

	return nil
}

// scannerPort returns the numeric default for an empty port and the
// configured string otherwise.
func scannerPort(port string) interface{} {
	if port == "" {
		return DefaultNessusPort
	}
	return port
}
