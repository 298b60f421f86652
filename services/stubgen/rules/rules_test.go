// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRuleSet() RuleSet {
	return RuleSet{
		AcceptedModules: map[string][]string{
			"typing":  {"Any", "Optional"},
			"pathlib": {},
			"json":    {"*"},
		},
		SpecificFileRules: map[string]FileRules{
			"lab_1/main.py": {
				Keep:           []string{"main"},
				Hide:           []string{"SECRET"},
				AllowedImports: map[string][]string{"lab_1.helpers": {"Token"}},
				Placeholders:   map[string]string{"Tokenizer.run": "return None"},
			},
		},
		StripDecorators: []string{"lru_cache"},
	}
}

func TestRuleSet_ForFile(t *testing.T) {
	t.Run("specific rules are resolved by slash path", func(t *testing.T) {
		r := testRuleSet().ForFile("lab_1/./main.py")
		assert.Equal(t, "lab_1/main.py", r.Path)
		assert.Equal(t, []string{"main"}, r.File.Keep)
		assert.Equal(t, DefaultPlaceholder, r.Placeholder)
	})

	t.Run("unknown file gets empty overrides", func(t *testing.T) {
		r := testRuleSet().ForFile("lab_2/main.py")
		assert.Empty(t, r.File.Keep)
		assert.Empty(t, r.File.Hide)
	})

	t.Run("custom placeholder", func(t *testing.T) {
		rs := testRuleSet()
		rs.Placeholder = "..."
		assert.Equal(t, "...", rs.ForFile("x.py").Placeholder)
	})
}

func TestResolved_Accepts(t *testing.T) {
	r := testRuleSet().ForFile("lab_1/main.py")

	tests := []struct {
		name   string
		module string
		symbol string
		want   bool
	}{
		{"listed symbol", "typing", "Any", true},
		{"unlisted symbol", "typing", "Callable", false},
		{"empty list accepts all", "pathlib", "Path", true},
		{"wildcard accepts all", "json", "dumps", true},
		{"plain import of accepted module", "typing", "", true},
		{"unknown module", "numpy", "ndarray", false},
		{"file whitelist", "lab_1.helpers", "Token", true},
		{"file whitelist other symbol", "lab_1.helpers", "secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Accepts(tt.module, tt.symbol))
		})
	}
}

func TestResolved_PlaceholderFor(t *testing.T) {
	r := testRuleSet().ForFile("lab_1/main.py")
	assert.Equal(t, "return None", r.PlaceholderFor("Tokenizer.run"))
	assert.Equal(t, DefaultPlaceholder, r.PlaceholderFor("other"))
}

func TestResolved_StripsDecorator(t *testing.T) {
	r := testRuleSet().ForFile("x.py")
	assert.True(t, r.StripsDecorator("lru_cache"))
	assert.True(t, r.StripsDecorator("functools.lru_cache"))
	assert.False(t, r.StripsDecorator("property"))
}

func TestResolved_ReferencedNames(t *testing.T) {
	r := testRuleSet().ForFile("lab_1/main.py")
	assert.Equal(t, []string{"SECRET", "Tokenizer.run", "main"}, r.ReferencedNames())
	assert.True(t, r.IsKept("main"))
	assert.True(t, r.IsHidden("SECRET"))
	assert.False(t, r.IsKept(""))
}
