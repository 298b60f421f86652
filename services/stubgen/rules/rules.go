// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules holds the transformation rules applied by the stub generator.
//
// A RuleSet is owned by the project configuration and is read-only for the
// generator. ForFile resolves the rules that apply to a single implementation
// file into a Resolved value, which is the only input the generator needs
// besides the source text.
package rules

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultPlaceholder replaces every stripped function body.
const DefaultPlaceholder = "raise NotImplementedError"

// WildcardSymbol accepts any symbol of a module.
const WildcardSymbol = "*"

// MainGuard is the rule name addressing an `if __name__ == "__main__":` block.
const MainGuard = "__main__"

// TypeCheckingGuard is the rule name addressing an `if TYPE_CHECKING:` block.
const TypeCheckingGuard = "TYPE_CHECKING"

// =============================================================================
// RULE SET
// =============================================================================

// RuleSet is the project-wide stub transformation configuration.
//
// Thread Safety: Treat as immutable after creation.
type RuleSet struct {
	// AcceptedModules maps a module name to the symbols stubs may import from it.
	// An empty list accepts every symbol of the module.
	AcceptedModules map[string][]string

	// SpecificFileRules maps a root-relative implementation path
	// (e.g. "lab_1_keywords/main.py") to its overrides.
	SpecificFileRules map[string]FileRules

	// Placeholder replaces function bodies. Empty means DefaultPlaceholder.
	Placeholder string

	// StripDecorators lists implementation-only decorators removed from stubs.
	// Entries match the full decorator name or its last dotted segment.
	StripDecorators []string

	// LenientImports drops used-but-unaccepted imports instead of failing.
	LenientImports bool
}

// FileRules are the per-file overrides of a RuleSet.
type FileRules struct {
	// Keep lists declarations emitted verbatim, bodies included.
	// Methods are addressed as "Class.method"; MainGuard addresses the main block.
	Keep []string `json:"keep,omitempty" yaml:"keep,omitempty"`

	// Hide lists declarations dropped from the stub.
	Hide []string `json:"hide,omitempty" yaml:"hide,omitempty"`

	// AllowedImports extends AcceptedModules for this file only.
	AllowedImports map[string][]string `json:"allowed_imports,omitempty" yaml:"allowed_imports,omitempty"`

	// Inject lists statements emitted right after the imports.
	Inject []string `json:"inject,omitempty" yaml:"inject,omitempty"`

	// Placeholders overrides the body placeholder per function.
	Placeholders map[string]string `json:"placeholders,omitempty" yaml:"placeholders,omitempty"`
}

// ForFile resolves the rules for one implementation file.
//
// Description:
//
//	Looks up SpecificFileRules by the root-relative path in slash form and
//	merges it with the project-wide settings.
//
// Inputs:
//
//	relPath - Implementation path relative to the repository root
//
// Outputs:
//
//	Resolved - The effective rules for that file
func (rs RuleSet) ForFile(relPath string) Resolved {
	key := filepath.ToSlash(filepath.Clean(relPath))
	fr := rs.SpecificFileRules[key]

	placeholder := rs.Placeholder
	if strings.TrimSpace(placeholder) == "" {
		placeholder = DefaultPlaceholder
	}

	return Resolved{
		Path:            key,
		AcceptedModules: rs.AcceptedModules,
		File:            fr,
		Placeholder:     placeholder,
		StripDecorators: rs.StripDecorators,
		LenientImports:  rs.LenientImports,
	}
}

// =============================================================================
// RESOLVED RULES
// =============================================================================

// Resolved is the rule set of a single file.
//
// Thread Safety: Immutable after creation.
type Resolved struct {
	Path            string
	AcceptedModules map[string][]string
	File            FileRules
	Placeholder     string
	StripDecorators []string
	LenientImports  bool
}

// Accepts reports whether symbol may be imported from module.
//
// For plain `import a.b` statements pass an empty symbol; only the module
// key is checked then.
func (r Resolved) Accepts(module, symbol string) bool {
	return accepts(r.AcceptedModules, module, symbol) || accepts(r.File.AllowedImports, module, symbol)
}

func accepts(table map[string][]string, module, symbol string) bool {
	allowed, ok := table[module]
	if !ok {
		return false
	}
	if symbol == "" || len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, symbol) || slices.Contains(allowed, WildcardSymbol)
}

// IsKept reports whether name must be emitted verbatim.
func (r Resolved) IsKept(name string) bool {
	return name != "" && slices.Contains(r.File.Keep, name)
}

// IsHidden reports whether name must be dropped.
func (r Resolved) IsHidden(name string) bool {
	return name != "" && slices.Contains(r.File.Hide, name)
}

// PlaceholderFor returns the body placeholder of the named function.
func (r Resolved) PlaceholderFor(name string) string {
	if p, ok := r.File.Placeholders[name]; ok && strings.TrimSpace(p) != "" {
		return p
	}
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}

// StripsDecorator reports whether a decorator is implementation-only.
func (r Resolved) StripsDecorator(name string) bool {
	last := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		last = name[i+1:]
	}
	for _, d := range r.StripDecorators {
		if d == name || d == last {
			return true
		}
	}
	return false
}

// ReferencedNames returns every declaration name the file rules refer to,
// sorted and deduplicated.
func (r Resolved) ReferencedNames() []string {
	names := make([]string, 0, len(r.File.Keep)+len(r.File.Hide)+len(r.File.Placeholders))
	names = append(names, r.File.Keep...)
	names = append(names, r.File.Hide...)
	for name := range r.File.Placeholders {
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
