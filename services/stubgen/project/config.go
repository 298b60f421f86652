// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package project loads the project configuration of a lab repository.
//
// The configuration enumerates the labs, the implementation files of each
// lab that ship with a stub, and the stub transformation rules. It is read
// once per run and passed explicitly to the components that need it.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/LabStubs/services/stubgen/rules"
)

// DefaultFileName is the project configuration file looked up in the root.
const DefaultFileName = "project_config.json"

// ErrInvalidConfig indicates the project configuration cannot be read,
// decoded or validated.
var ErrInvalidConfig = errors.New("invalid project configuration")

// configValidate is the validator instance for configuration types.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()

	_ = configValidate.RegisterValidation("basename", validateBasename)
	_ = configValidate.RegisterValidation("regexp", validateRegexp)
}

// validateBasename accepts a bare file name without directory components.
func validateBasename(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// validateRegexp accepts an empty string or a compilable regular expression.
func validateRegexp(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := regexp.Compile(s)
	return err == nil
}

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// LabSettings holds per-lab settings.
type LabSettings struct {
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// Lab is one exercise directory of the repository.
type Lab struct {
	// Name is the lab directory, relative to the repository root.
	Name     string      `json:"name" yaml:"name" validate:"required"`
	Coverage int         `json:"coverage" yaml:"coverage" validate:"gte=0,lte=100"`
	Settings LabSettings `json:"settings" yaml:"settings"`

	// Stubs lists the implementation files that ship with a stub,
	// e.g. "main.py" for the pair main.py / main_stub.py.
	Stubs []string `json:"stubs,omitempty" yaml:"stubs,omitempty" validate:"omitempty,unique,dive,basename,endswith=.py"`
}

// HasStubs reports whether the lab has a configured stub list.
func (l Lab) HasStubs() bool {
	return len(l.Stubs) > 0
}

// Addon is an optional exercise that never ships stubs.
type Addon struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Coverage int    `json:"coverage" yaml:"coverage" validate:"gte=0,lte=100"`
	NeedUML  bool   `json:"need_uml" yaml:"need_uml"`
	RunTests bool   `json:"run_tests" yaml:"run_tests"`
}

// Repository holds repository-level metadata.
type Repository struct {
	Admins        []string `json:"admins,omitempty" yaml:"admins,omitempty"`
	PRNameRegex   string   `json:"pr_name_regex,omitempty" yaml:"pr_name_regex,omitempty" validate:"regexp"`
	PRNameExample string   `json:"pr_name_example,omitempty" yaml:"pr_name_example,omitempty"`
}

// StubsConfig holds the stub transformation rules.
type StubsConfig struct {
	AcceptedModules   map[string][]string        `json:"accepted_modules,omitempty" yaml:"accepted_modules,omitempty"`
	SpecificFileRules map[string]rules.FileRules `json:"specific_file_rules,omitempty" yaml:"specific_file_rules,omitempty"`
	Placeholder       string                     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	StripDecorators   []string                   `json:"strip_decorators,omitempty" yaml:"strip_decorators,omitempty" validate:"dive,required"`
	LenientImports    bool                       `json:"lenient_imports,omitempty" yaml:"lenient_imports,omitempty"`
}

// RuleSet converts the stubs configuration into generator rules.
//
// The returned RuleSet shares no mutable state with the configuration.
func (s StubsConfig) RuleSet() rules.RuleSet {
	accepted := make(map[string][]string, len(s.AcceptedModules))
	for module, symbols := range s.AcceptedModules {
		accepted[module] = slices.Clone(symbols)
	}

	specific := make(map[string]rules.FileRules, len(s.SpecificFileRules))
	for path, fr := range s.SpecificFileRules {
		specific[filepath.ToSlash(filepath.Clean(path))] = fr
	}

	return rules.RuleSet{
		AcceptedModules:   accepted,
		SpecificFileRules: specific,
		Placeholder:       s.Placeholder,
		StripDecorators:   slices.Clone(s.StripDecorators),
		LenientImports:    s.LenientImports,
	}
}

// Config is the project configuration.
//
// Thread Safety: Treat as immutable after Load.
type Config struct {
	Labs        []Lab       `json:"labs" yaml:"labs" validate:"unique=Name,dive"`
	Addons      []Addon     `json:"addons,omitempty" yaml:"addons,omitempty" validate:"unique=Name,dive"`
	Repository  Repository  `json:"repository" yaml:"repository"`
	StubsConfig StubsConfig `json:"stubs_config" yaml:"stubs_config"`
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// GetLabs returns the labs sorted by name.
func (c *Config) GetLabs() []Lab {
	labs := slices.Clone(c.Labs)
	slices.SortStableFunc(labs, func(a, b Lab) int {
		return strings.Compare(a.Name, b.Name)
	})
	return labs
}

// GetAddons returns the addons sorted by name.
func (c *Config) GetAddons() []Addon {
	addons := slices.Clone(c.Addons)
	slices.SortStableFunc(addons, func(a, b Addon) int {
		return strings.Compare(a.Name, b.Name)
	})
	return addons
}

// LabsWithStubs returns the labs that have a configured stub list, sorted by name.
func (c *Config) LabsWithStubs() []Lab {
	var out []Lab
	for _, lab := range c.GetLabs() {
		if lab.HasStubs() {
			out = append(out, lab)
		}
	}
	return out
}

// FindLab returns the lab with the given name.
func (c *Config) FindLab(name string) (Lab, bool) {
	for _, lab := range c.Labs {
		if lab.Name == name {
			return lab, true
		}
	}
	return Lab{}, false
}

// RuleSet returns the generator rules of the project.
func (c *Config) RuleSet() rules.RuleSet {
	return c.StubsConfig.RuleSet()
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads, decodes and validates a project configuration file.
//
// Description:
//
//	Files ending in .yaml or .yml are decoded as YAML, everything else as
//	JSON. Unknown fields are rejected in both formats.
//
// Inputs:
//
//	path - Path to the configuration file
//
// Outputs:
//
//	*Config - The validated configuration
//	error - Wraps ErrInvalidConfig on any failure
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes and validates a JSON project configuration.
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseYAML decodes and validates a YAML project configuration.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
