// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	Name     string        `yaml:"name"`
	Status   string        `yaml:"status"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Error    string        `yaml:"error,omitempty"`
}

// Report summarises a provisioning run.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Server    string        `yaml:"server"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Status    string        `yaml:"status"`
	Error     string        `yaml:"error,omitempty"`
	Steps     []StepResult  `yaml:"steps"`
	Resources *State        `yaml:"resources,omitempty"`
	LoggedOut bool          `yaml:"logged_out"`
}

func (r *Report) record(name, status string, d time.Duration, err error) {
	if r == nil {
		return
	}

	res := StepResult{Name: name, Status: status, Duration: d}
	if err != nil {
		res.Error = err.Error()
	}

	r.Steps = append(r.Steps, res)
}

// Failed returns the result of the step that stopped the run, if any.
func (r *Report) Failed() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return s, true
		}
	}
	return StepResult{}, false
}

// WriteYAML renders the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return enc.Close()
}
