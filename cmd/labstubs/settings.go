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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/AleutianAI/LabStubs/pkg/logging"
	"github.com/AleutianAI/LabStubs/services/stubgen/normalize"
	"github.com/AleutianAI/LabStubs/services/stubgen/project"
	"github.com/AleutianAI/LabStubs/services/stubgen/telemetry"
)

// envPrefix prefixes every settings environment variable. A double
// underscore descends into a section: LABSTUBS_LOG__LEVEL sets log.level.
const envPrefix = "LABSTUBS_"

// flagKeys maps command-line flags to settings keys. Flags not listed
// here are command options, not settings.
var flagKeys = map[string]string{
	"root-dir":            "root_dir",
	"project-config-path": "project_config_path",
	"workers":             "workers",
	"lab":                 "labs",
	"personality":         "personality",
	"log-level":           "log.level",
	"log-dir":             "log.dir",
	"log-json":            "log.json",
}

// LogSettings configures pkg/logging.
type LogSettings struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
	JSON  bool   `koanf:"json"`
}

// Settings is the resolved command configuration.
//
// Precedence, highest first: flags, LABSTUBS_* environment, settings file,
// defaults.
type Settings struct {
	// RootDir is the repository root holding the lab directories.
	RootDir string `koanf:"root_dir" validate:"required"`

	// ProjectConfigPath defaults to RootDir/project_config.json.
	ProjectConfigPath string `koanf:"project_config_path"`

	// Workers bounds the number of files processed at once.
	Workers int `koanf:"workers" validate:"gte=1,lte=64"`

	// Labs restricts the run to the named labs. Empty means all.
	Labs []string `koanf:"labs"`

	// Personality selects the output style; empty picks one from the terminal.
	Personality string `koanf:"personality" validate:"omitempty,oneof=auto standard full minimal machine plain"`

	Log LogSettings `koanf:"log"`

	Formatter    normalize.ToolConfig `koanf:"formatter"`
	ImportSorter normalize.ToolConfig `koanf:"import_sorter"`

	Telemetry telemetry.Config `koanf:"telemetry"`
}

var settingsValidate = validator.New()

// defaultSettings returns the defaults as flat koanf keys.
func defaultSettings() map[string]any {
	tel := telemetry.DefaultConfig()
	return map[string]any{
		"root_dir":                      ".",
		"workers":                       1,
		"log.level":                     "info",
		"log.json":                      false,
		"formatter.name":                normalize.DefaultFormatterConfig.Name,
		"formatter.command":             normalize.DefaultFormatterConfig.Command,
		"formatter.args":                normalize.DefaultFormatterConfig.Args,
		"import_sorter.name":            normalize.DefaultImportSorterConfig.Name,
		"import_sorter.command":         normalize.DefaultImportSorterConfig.Command,
		"import_sorter.args":            normalize.DefaultImportSorterConfig.Args,
		"telemetry.service_name":        tel.ServiceName,
		"telemetry.service_version":     tel.ServiceVersion,
		"telemetry.environment":         tel.Environment,
		"telemetry.trace_exporter":      tel.TraceExporter,
		"telemetry.metric_exporter":     tel.MetricExporter,
		"telemetry.otlp_endpoint":       tel.OTLPEndpoint,
		"telemetry.otlp_insecure":       tel.OTLPInsecure,
		"telemetry.prometheus_textfile": tel.PrometheusTextfile,
	}
}

// loadSettings resolves the settings from defaults, an optional YAML file,
// the environment and explicitly set flags.
//
// Inputs:
//
//	path - Settings file; empty skips the file provider
//	flags - Parsed command flags; may be nil
//
// Outputs:
//
//	*Settings - Validated settings with absolute RootDir and ProjectConfigPath
//	error - Non-nil if any provider fails or the result is invalid
func loadSettings(path string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultSettings(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.resolve(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKey turns LABSTUBS_LOG__LEVEL into log.level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// resolve validates the settings and makes paths absolute.
func (s *Settings) resolve() error {
	if err := settingsValidate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Formatter.Command == "" || s.ImportSorter.Command == "" {
		return fmt.Errorf("invalid settings: formatter and import_sorter need a command")
	}

	root, err := filepath.Abs(s.RootDir)
	if err != nil {
		return fmt.Errorf("resolve root dir: %w", err)
	}
	s.RootDir = root

	if s.ProjectConfigPath == "" {
		s.ProjectConfigPath = filepath.Join(root, project.DefaultFileName)
	} else if s.ProjectConfigPath, err = filepath.Abs(s.ProjectConfigPath); err != nil {
		return fmt.Errorf("resolve project config path: %w", err)
	}
	return nil
}

// selectLabs returns the configured labs with stubs, restricted to the
// requested names. Unknown names are an error.
func (s *Settings) selectLabs(cfg *project.Config) ([]project.Lab, error) {
	if len(s.Labs) == 0 {
		return cfg.LabsWithStubs(), nil
	}
	out := make([]project.Lab, 0, len(s.Labs))
	for _, name := range s.Labs {
		lab, ok := cfg.FindLab(name)
		if !ok {
			return nil, fmt.Errorf("unknown lab %q", name)
		}
		if lab.HasStubs() {
			out = append(out, lab)
		}
	}
	return out, nil
}
