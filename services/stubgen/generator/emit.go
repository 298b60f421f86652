// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"strings"

	"github.com/AleutianAI/LabStubs/services/stubgen/ast"
)

// category drives the blank lines emitted between neighbouring chunks.
type category int

const (
	catHeader category = iota
	catDoc
	catImport
	catOther
	catDef
)

// chunk is the rendered text of one declaration. A line may span several
// physical lines when it holds a verbatim multi-line slice.
type chunk struct {
	cat   category
	lines []string
}

func categoryOf(d ast.Declaration) category {
	switch d.Kind() {
	case ast.KindImport:
		return catImport
	case ast.KindFunction, ast.KindClass:
		return catDef
	default:
		return catOther
	}
}

// verbatim renders a declaration exactly as written, comments included.
func verbatim(d ast.Declaration, indent string) *chunk {
	var text string
	switch v := d.(type) {
	case *ast.Import:
		text = v.Text
	case *ast.Constant:
		text = v.Text
	case *ast.Function:
		text = v.Text
	case *ast.Class:
		text = v.Text
	case *ast.Statement:
		text = v.Text
	}
	if t := d.Trailing(); t != "" {
		text += "  " + t
	}
	lines := commentLines(d.Comments(), indent)
	lines = append(lines, indent+text)
	return &chunk{cat: categoryOf(d), lines: lines}
}

func commentLines(comments []string, indent string) []string {
	lines := make([]string, 0, len(comments)+1)
	for _, c := range comments {
		lines = append(lines, indent+c)
	}
	return lines
}

// indentLines indents every non-empty line of a snippet.
func indentLines(snippet, indent string) []string {
	raw := strings.Split(strings.Trim(snippet, "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, indent+l)
	}
	return lines
}

// moduleSpacing separates top-level chunks: two blank lines around
// definitions, none inside a run of imports or of other statements.
func moduleSpacing(prev, cur category) int {
	switch {
	case prev == catHeader && cur == catDoc:
		return 0
	case prev == catDef || cur == catDef:
		return 2
	case prev == cur:
		return 0
	default:
		return 1
	}
}

// classSpacing separates class members: one blank line around methods and
// nested classes and after the docstring.
func classSpacing(prev, cur category) int {
	switch {
	case prev == catDef || cur == catDef:
		return 1
	case prev == cur:
		return 0
	default:
		return 1
	}
}

func joinChunks(chunks []chunk, spacing func(prev, cur category) int) []string {
	var out []string
	for i, c := range chunks {
		if i > 0 {
			for n := spacing(chunks[i-1].cat, c.cat); n > 0; n-- {
				out = append(out, "")
			}
		}
		out = append(out, c.lines...)
	}
	return out
}

// assemble emits the module: header comments, docstring, then declarations
// in source order with injected statements right after the last import.
func assemble(mod *ast.Module, entries []entry, inject *chunk) string {
	var chunks []chunk
	if len(mod.HeaderComments) > 0 {
		chunks = append(chunks, chunk{cat: catHeader, lines: mod.HeaderComments})
	}
	if mod.Docstring != "" {
		chunks = append(chunks, chunk{cat: catDoc, lines: []string{mod.Docstring}})
	}

	lastImport := -1
	for i, e := range entries {
		if e.chunk != nil && e.chunk.cat == catImport {
			lastImport = i
		}
	}
	if inject != nil && lastImport < 0 {
		chunks = append(chunks, *inject)
	}
	for i, e := range entries {
		if e.chunk != nil {
			chunks = append(chunks, *e.chunk)
		}
		if inject != nil && i == lastImport {
			chunks = append(chunks, *inject)
		}
	}

	lines := joinChunks(chunks, moduleSpacing)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
