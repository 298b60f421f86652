// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LabStubs/pkg/logging"
	"github.com/AleutianAI/LabStubs/pkg/ux"
	"github.com/AleutianAI/LabStubs/services/stubgen/check"
	"github.com/AleutianAI/LabStubs/services/stubgen/normalize"
	"github.com/AleutianAI/LabStubs/services/stubgen/project"
	"github.com/AleutianAI/LabStubs/services/stubgen/telemetry"
)

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// app holds what the commands share once the root pre-run has loaded it.
type app struct {
	stdout io.Writer
	stderr io.Writer

	settingsPath string

	settings *Settings
	project  *project.Config
	logger   *slog.Logger
	printer  *ux.Printer

	log               *logging.Logger
	shutdownTelemetry func(context.Context) error
}

// newRootCmd builds the command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "labstubs",
		Short: "Generate and check the student stubs of lab implementations",
		Long: `labstubs renders a stub of every configured lab implementation file:
signatures, docstrings and the imports they need are kept, bodies are
replaced with a placeholder. The check command fails when a committed
stub no longer matches what the implementation renders to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.settingsPath, "config-path", "", "settings file (YAML)")
	pf.String("root-dir", ".", "repository root holding the lab directories")
	pf.String("project-config-path", "", "project configuration (default: <root-dir>/project_config.json)")
	pf.IntP("workers", "j", 1, "number of files processed concurrently")
	pf.StringSlice("lab", nil, "restrict the run to this lab (repeatable)")
	pf.String("personality", "", "output style: standard, minimal or machine (default: by terminal)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-dir", "", "also write JSON logs to this directory")
	pf.Bool("log-json", false, "write console logs as JSON")

	_ = root.RegisterFlagCompletionFunc("personality", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"standard", "minimal", "machine"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newCheckCmd(a),
		newGenerateCmd(a),
		newWatchCmd(a),
		newRenderCmd(a),
	)
	return root
}

// setup loads the settings, the logger, telemetry and the project
// configuration. Every failure is a configuration error.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := loadSettings(a.settingsPath, cmd.Flags())
	if err != nil {
		return configError("%w", err)
	}
	a.settings = s

	level, _ := logging.ParseLevel(s.Log.Level)
	a.log, err = logging.New(logging.Config{
		Level:   level,
		LogDir:  s.Log.Dir,
		Service: "labstubs",
		JSON:    s.Log.JSON,
		Output:  a.stderr,
	})
	if err != nil {
		return configError("init logging: %w", err)
	}
	a.logger = a.log.Slog()

	tel := s.Telemetry
	tel.Writer = a.stderr
	a.shutdownTelemetry, err = telemetry.Init(cmd.Context(), tel)
	if err != nil {
		return configError("init telemetry: %w", err)
	}

	a.project, err = project.Load(s.ProjectConfigPath)
	if err != nil {
		return configError("load %s: %w", s.ProjectConfigPath, err)
	}

	outLevel := ux.ParsePersonalityLevel(s.Personality)
	if f, ok := a.stdout.(*os.File); ok {
		outLevel = ux.ResolvePersonality(outLevel, f)
	}
	a.printer = ux.NewPrinter(a.stdout, outLevel)

	a.logger.Debug("Settings loaded",
		slog.String("root_dir", s.RootDir),
		slog.String("project_config", s.ProjectConfigPath),
		slog.Int("workers", s.Workers),
	)
	return nil
}

// close flushes telemetry and closes the logger.
func (a *app) close() error {
	var errs []error
	if a.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	if a.log != nil {
		if err := a.log.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

// labs returns the labs selected by the settings.
func (a *app) labs() ([]project.Lab, error) {
	labs, err := a.settings.selectLabs(a.project)
	if err != nil {
		return nil, configError("%w", err)
	}
	return labs, nil
}

// normalizer builds the formatter and import sorter pipeline. Tools run
// from the repository root so they pick up its pyproject.toml.
func (a *app) normalizer() *normalize.Pipeline {
	runner := normalize.NewRunner(
		normalize.WithWorkingDir(a.settings.RootDir),
		normalize.WithLogger(a.logger),
	)
	return normalize.NewPipeline(runner, a.settings.Formatter, a.settings.ImportSorter)
}

// checkOptions are shared by the checker and the writer.
func (a *app) checkOptions() []check.Option {
	return []check.Option{
		check.WithLogger(a.logger),
		check.WithWorkers(a.settings.Workers),
		check.WithNormalizer(a.normalizer()),
	}
}
