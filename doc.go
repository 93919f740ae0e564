// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

/*
Package scprovision provisions a freshly installed SecurityCenter 5.x appliance
through its REST administrative API.

One call performs the whole sequence: login, license upload and
registration, Nessus activation, administrator password change, scan zone,
Nessus scanner, organization, repository and Security Manager creation, and
logout:

	cfg, err := config.Load("scprovision.yaml")
	if err != nil {
		return err
	}

	report, err := scprovision.Run(ctx, cfg, slog.Default())

The packages underneath can be used on their own: session carries the
token and cookie across calls, provisioning implements the individual
operations and the step sequence, config loads the settings.
*/
package scprovision
