// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package normalize

import (
	"slices"
	"time"
)

// =============================================================================
// DEFAULT TOOL CONFIGS
// =============================================================================

// ToolConfig describes one external text-normalizing command.
//
// The command is invoked as `Command Args... <path>` and must rewrite the
// file at path in place.
type ToolConfig struct {
	// Name identifies the tool in logs, metrics and errors.
	Name string `koanf:"name" yaml:"name"`

	// Command is the executable, looked up in PATH.
	Command string `koanf:"command" yaml:"command"`

	// Args are passed before the file path.
	Args []string `koanf:"args" yaml:"args"`

	// Timeout bounds one invocation. Zero means no timeout.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// Clone returns a deep copy of the config.
func (c ToolConfig) Clone() ToolConfig {
	c.Args = slices.Clone(c.Args)
	return c
}

// DefaultFormatterConfig runs black with the lab line length.
var DefaultFormatterConfig = ToolConfig{
	Name:    "black",
	Command: "python",
	Args:    []string{"-m", "black", "-l", "100"},
}

// DefaultImportSorterConfig runs isort with the repository settings.
var DefaultImportSorterConfig = ToolConfig{
	Name:    "isort",
	Command: "isort",
}
