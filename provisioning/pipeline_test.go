// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func recordingStep(name string, ran *[]string, err error) Step {
	return Step{
		Name: name,
		Run: func(context.Context, *State) error {
			*ran = append(*ran, name)
			return err
		},
	}
}

func TestRunSteps_all_succeed(t *testing.T) {
	var ran []string

	steps := []Step{
		recordingStep("one", &ran, nil),
		recordingStep("two", &ran, nil),
	}

	report := &Report{}

	err := RunSteps(context.Background(), slog.New(slog.DiscardHandler), steps, &State{}, report)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, ran)

	require.Len(t, report.Steps, 2)
	assert.Equal(t, StatusSucceeded, report.Steps[0].Status)
	assert.Equal(t, StatusSucceeded, report.Steps[1].Status)

	_, failed := report.Failed()
	assert.False(t, failed)
}

func TestRunSteps_stops_at_first_failure(t *testing.T) {
	var ran []string

	boom := errors.New("X")
	steps := []Step{
		recordingStep("one", &ran, nil),
		recordingStep("two", &ran, boom),
		recordingStep("three", &ran, nil),
	}

	report := &Report{}

	err := RunSteps(context.Background(), slog.New(slog.DiscardHandler), steps, &State{}, report)
	assert.EqualError(t, err, "two step failed: X")
	assert.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "two", stepErr.Step)
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, 3, stepErr.Total)

	assert.Equal(t, []string{"one", "two"}, ran)

	require.Len(t, report.Steps, 3)
	assert.Equal(t, StepResult{Name: "three", Status: StatusSkipped}, report.Steps[2])

	failed, ok := report.Failed()
	require.True(t, ok)
	assert.Equal(t, "two", failed.Name)
	assert.Equal(t, "X", failed.Error)
}

func TestRunSteps_cancelled(t *testing.T) {
	var ran []string

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunSteps(ctx, slog.New(slog.DiscardHandler), []Step{recordingStep("one", &ran, nil)}, &State{}, nil)
	assert.EqualError(t, err, "one step failed: context canceled")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestReport_WriteYAML(t *testing.T) {
	report := &Report{
		RunID:  "6f1c1c8e-0000-4000-8000-000000000000",
		Server: "sc.example",
		Status: StatusFailed,
		Error:  "add-organization step failed: X",
		Steps: []StepResult{
			{Name: StepLogin, Status: StatusSucceeded},
			{Name: StepAddOrganization, Status: StatusFailed, Error: "X"},
		},
		Resources: &State{
			Zone:     &Zone{ID: "1", Name: "Default Zone"},
			LoggedIn: true,
		},
		LoggedOut: true,
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))

	assert.Equal(t, "sc.example", back["server"])
	assert.Equal(t, StatusFailed, back["status"])
	assert.Equal(t, true, back["logged_out"])

	resources, ok := back["resources"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"id": "1", "name": "Default Zone"}, resources["scan_zone"])
	assert.NotContains(t, resources, "LoggedIn")
	assert.NotContains(t, resources, "organization")

	steps, ok := back["steps"].([]interface{})
	require.True(t, ok)
	assert.Len(t, steps, 2)
}
