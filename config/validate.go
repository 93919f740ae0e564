// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	// Required fields
	required := []struct {
		key   string
		value string
	}{
		{"server.address", c.Server.Address},
		{"login.username", c.Login.Username},
		{"login.password", c.Login.Password},
		{"license.path", c.License.Path},
		{"nessus.activation_code", c.Nessus.ActivationCode},
		{"nessus.name", c.Nessus.Name},
		{"nessus.ip", c.Nessus.IP},
		{"admin.new_password", c.Admin.NewPassword},
		{"scan_zone.name", c.ScanZone.Name},
		{"organization.name", c.Organization.Name},
		{"repository.name", c.Repository.Name},
		{"security_manager.username", c.SecurityManager.Username},
		{"security_manager.password", c.SecurityManager.Password},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	if err := ValidatePort(c.Nessus.Port); err != nil {
		return fmt.Errorf("nessus.port: %w", err)
	}

	if err := ValidateIPList(c.ScanZone.Range); err != nil {
		return fmt.Errorf("scan_zone.range: %w", err)
	}

	if err := ValidateIPList(c.Repository.IPRange); err != nil {
		return fmt.Errorf("repository.ip_range: %w", err)
	}

	if c.Server.Timeout < 0 {
		return errors.New("server.timeout must not be negative")
	}

	return nil
}

// ValidatePort accepts an empty port (use the default) or a TCP port number.
func ValidatePort(port string) error {
	if port == "" {
		return nil
	}

	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}

	if n < 1 || n > 65535 {
		return fmt.Errorf("port %d out of range", n)
	}

	return nil
}

// ValidateIPList checks a comma separated list of addresses, CIDR blocks and
// first-last ranges, the forms the appliance accepts for zones and
// repositories.
func ValidateIPList(list string) error {
	if strings.TrimSpace(list) == "" {
		return errors.New("empty IP list")
	}

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)

		switch {
		case entry == "":
			return errors.New("empty entry in IP list")
		case strings.Contains(entry, "/"):
			if _, err := netip.ParsePrefix(entry); err != nil {
				return fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
		case strings.Contains(entry, "-"):
			first, last, _ := strings.Cut(entry, "-")

			from, err := netip.ParseAddr(strings.TrimSpace(first))
			if err != nil {
				return fmt.Errorf("invalid range %q: %w", entry, err)
			}

			to, err := netip.ParseAddr(strings.TrimSpace(last))
			if err != nil {
				return fmt.Errorf("invalid range %q: %w", entry, err)
			}

			if from.BitLen() != to.BitLen() || to.Less(from) {
				return fmt.Errorf("invalid range %q: bounds out of order", entry)
			}
		default:
			if _, err := netip.ParseAddr(entry); err != nil {
				return fmt.Errorf("invalid address %q: %w", entry, err)
			}
		}
	}

	return nil
}
