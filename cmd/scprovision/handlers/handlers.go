// Package handlers implements the logic behind the CLI commands.  Handlers do
// not depend on cobra and are tested on their own.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/scautomation/scprovision"
	"github.com/scautomation/scprovision/config"
	"github.com/scautomation/scprovision/provisioning"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// Replaced in tests.
var (
	logOutput    io.Writer = os.Stderr
	reportOutput io.Writer = os.Stdout

	createFile = func(name string) (io.WriteCloser, error) {
		// #nosec G304
		return os.Create(name)
	}
)

// Run loads the configuration and provisions the appliance.  When reportPath
// is set the run report is written there, also after a failed run.
func Run(ctx context.Context, opts Options, reportPath string) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	report, runErr := scprovision.Run(ctx, cfg, logger)

	if report != nil && reportPath != "" {
		if err := writeReport(reportPath, report); err != nil {
			logger.Error("could not write report", "path", reportPath, "error", err)
			if runErr == nil {
				return err
			}
		}
	}

	if runErr != nil {
		return runErr
	}

	if report.Resources != nil && report.Resources.Activation != nil && !report.Resources.Activation.Valid {
		logger.Warn("provisioning completed but the Nessus activation code was rejected")
	}

	return nil
}

// LoginCheck loads the configuration and verifies the credentials.
func LoginCheck(ctx context.Context, opts Options) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	return scprovision.CheckLogin(ctx, cfg, logger)
}

func setup(opts Options) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	logger := newLogger(logOutput, level, cfg.Log.Format)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func writeReport(path string, report *provisioning.Report) error {
	if path == "-" {
		return report.WriteYAML(reportOutput)
	}

	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	if err := report.WriteYAML(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
