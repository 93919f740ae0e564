// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// State carries what earlier steps created to the steps that depend on it.
type State struct {
	LicenseFile     string        `yaml:"license_file,omitempty"`
	Activation      *Activation   `yaml:"activation,omitempty"`
	Admin           *User         `yaml:"admin,omitempty"`
	Zone            *Zone         `yaml:"scan_zone,omitempty"`
	Scanner         *Scanner      `yaml:"scanner,omitempty"`
	Organization    *Organization `yaml:"organization,omitempty"`
	Repository      *Repository   `yaml:"repository,omitempty"`
	SecurityManager *User         `yaml:"security_manager,omitempty"`

	// LoggedIn is set by the login step so that logout is attempted only
	// after a successful login.
	LoggedIn bool `yaml:"-"`
}

// Step is one provisioning action.
type Step struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// StepError reports the step that stopped a run.
type StepError struct {
	Step  string
	Index int
	Total int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RunSteps executes steps in order and stops at the first failure, which is
// returned as a *StepError.  The steps that did not run are recorded in
// report as skipped.  report may be nil.
func RunSteps(ctx context.Context, logger *slog.Logger, steps []Step, st *State, report *Report) error {
	start := time.Now()
	logger.Info("starting provisioning", "steps", len(steps))

	for i, step := range steps {
		stepStart := time.Now()
		log := logger.With("step", step.Name, "index", i+1, "total", len(steps))

		log.Info("step starting")

		err := ctx.Err()
		if err == nil {
			err = step.Run(ctx, st)
		}

		elapsed := time.Since(stepStart).Round(time.Millisecond)

		if err != nil {
			log.Error("step failed", "error", err, "elapsed", elapsed)

			report.record(step.Name, StatusFailed, elapsed, err)
			for _, rest := range steps[i+1:] {
				report.record(rest.Name, StatusSkipped, 0, nil)
			}

			return &StepError{Step: step.Name, Index: i + 1, Total: len(steps), Err: err}
		}

		log.Info("step completed", "elapsed", elapsed)
		report.record(step.Name, StatusSucceeded, elapsed, nil)
	}

	logger.Info("provisioning completed", "elapsed", time.Since(start).Round(time.Millisecond))

	return nil
}
