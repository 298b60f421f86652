// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigJSON = `{
  "labs": [
    {"name": "lab_2_tokenize", "coverage": 60, "stubs": ["main.py", "start.py"]},
    {"name": "lab_1_keywords", "coverage": 80, "settings": {"ignore": ["assets"]}, "stubs": ["main.py"]},
    {"name": "lab_3_notes", "coverage": 0}
  ],
  "addons": [{"name": "seminars", "coverage": 0, "need_uml": false, "run_tests": true}],
  "repository": {
    "admins": ["course-admin"],
    "pr_name_regex": "^Lab \\d+ .+$",
    "pr_name_example": "Lab 1 Ivanov Ivan - 20FPL1"
  },
  "stubs_config": {
    "accepted_modules": {"typing": [], "collections": ["Counter"]},
    "specific_file_rules": {
      "lab_1_keywords/start.py": {"keep": ["__main__"]}
    },
    "strip_decorators": ["lru_cache"]
  }
}`

const testConfigYAML = `
labs:
  - name: lab_1_keywords
    coverage: 80
    stubs: [main.py]
stubs_config:
  accepted_modules:
    typing: []
  lenient_imports: true
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, DefaultFileName, testConfigJSON))
	require.NoError(t, err)

	labs := cfg.GetLabs()
	require.Len(t, labs, 3)
	assert.Equal(t, "lab_1_keywords", labs[0].Name)
	assert.Equal(t, "lab_2_tokenize", labs[1].Name)
	assert.Equal(t, []string{"assets"}, labs[0].Settings.Ignore)

	// Sorting returns a copy.
	assert.Equal(t, "lab_2_tokenize", cfg.Labs[0].Name)

	withStubs := cfg.LabsWithStubs()
	require.Len(t, withStubs, 2)
	assert.Equal(t, []string{"main.py", "start.py"}, withStubs[1].Stubs)

	addons := cfg.GetAddons()
	require.Len(t, addons, 1)
	assert.True(t, addons[0].RunTests)

	lab, ok := cfg.FindLab("lab_3_notes")
	assert.True(t, ok)
	assert.False(t, lab.HasStubs())
	_, ok = cfg.FindLab("lab_9")
	assert.False(t, ok)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "project_config.yaml", testConfigYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Labs, 1)
	assert.True(t, cfg.StubsConfig.LenientImports)
	assert.Contains(t, cfg.StubsConfig.AcceptedModules, "typing")
}

func TestConfig_RuleSet(t *testing.T) {
	cfg, err := ParseJSON([]byte(testConfigJSON))
	require.NoError(t, err)

	rs := cfg.RuleSet()
	assert.Equal(t, []string{"Counter"}, rs.AcceptedModules["collections"])
	assert.Equal(t, []string{"lru_cache"}, rs.StripDecorators)

	r := rs.ForFile(filepath.Join("lab_1_keywords", "start.py"))
	assert.True(t, r.IsKept("__main__"))
	assert.True(t, r.Accepts("typing", "Any"))
	assert.False(t, r.Accepts("collections", "defaultdict"))

	// The rule set is detached from the configuration.
	rs.AcceptedModules["collections"][0] = "mutated"
	assert.Equal(t, "Counter", cfg.StubsConfig.AcceptedModules["collections"][0])
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed json", "p.json", `{"labs": [`},
		{"unknown field", "p.json", `{"labs": [], "extra": 1}`},
		{"missing lab name", "p.json", `{"labs": [{"coverage": 10}]}`},
		{"duplicate lab", "p.json", `{"labs": [{"name": "a"}, {"name": "a"}]}`},
		{"coverage out of range", "p.json", `{"labs": [{"name": "a", "coverage": 101}]}`},
		{"stub with directory", "p.json", `{"labs": [{"name": "a", "stubs": ["sub/main.py"]}]}`},
		{"stub not python", "p.json", `{"labs": [{"name": "a", "stubs": ["main.txt"]}]}`},
		{"duplicate stub", "p.json", `{"labs": [{"name": "a", "stubs": ["main.py", "main.py"]}]}`},
		{"bad pr regex", "p.json", `{"repository": {"pr_name_regex": "("}}`},
		{"malformed yaml", "p.yaml", "labs: [\n"},
		{"unknown yaml field", "p.yml", "labz: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestParseYAML_Empty(t *testing.T) {
	cfg, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Labs)
}
