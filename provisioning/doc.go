// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

/*
Package provisioning configures a freshly installed SecurityCenter appliance.

Operations

Service exposes one method per administrative call (UploadLicense,
ApplyLicense, RegisterScanner, SetAdminPassword, AddScanZone,
AddNessusScanner, AddOrganization, AddRepository, AddSecurityManager).
Creation calls return the entity the appliance created, so that its id can
be handed to the calls that reference it:

	svc := provisioning.NewService(s, logger)

	zone, err := svc.AddScanZone(ctx, "Default Zone", "10.0.0.0/8")
	if err != nil {
		return err
	}

	scanner, err := svc.AddNessusScanner(ctx, *zone, provisioning.ScannerSpec{
		Name: "Nessus Scanner",
		IP:   "10.0.0.5",
	})

Run

The whole sequence is handled by a single invocation of the Run() method of
a Provisioner:

	p, err := provisioning.NewProvisioner(s, cfg, logger)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx)

Run stops at the first failing step and returns a *StepError naming it.
Logout happens whenever login succeeded.  Nothing done before the failure is
rolled back.
*/
package provisioning
