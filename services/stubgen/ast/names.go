// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"regexp"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// nameSet accumulates referenced names.
type nameSet map[string]struct{}

func (s nameSet) add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// identPattern matches identifiers and dotted paths inside type text.
var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)

// addTypeText adds the head of every dotted identifier in text.
func (s nameSet) addTypeText(text string) {
	for _, m := range identPattern.FindAllString(text, -1) {
		head, _, _ := strings.Cut(m, ".")
		s.add(head)
	}
}

// collectRefs adds the names read by node.
//
// Only the object of an attribute access and the value of a keyword
// argument are reads. String literals inside annotations are forward
// references and contribute the identifiers they spell.
func collectRefs(node *sitter.Node, src []byte, inType bool, out nameSet) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		out.add(node.Content(src))
		return
	case "comment":
		return
	case "attribute":
		collectRefs(node.ChildByFieldName("object"), src, inType, out)
		return
	case "keyword_argument":
		collectRefs(node.ChildByFieldName("value"), src, inType, out)
		return
	case "type":
		inType = true
	case "string", "concatenated_string":
		if inType {
			out.addTypeText(stringBody(node.Content(src)))
			return
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectRefs(node.NamedChild(i), src, inType, out)
	}
}

// collectParameterRefs adds the names read by annotations and defaults of a
// parameter list. Parameter names themselves are bindings, not reads.
func collectParameterRefs(params *sitter.Node, src []byte, out nameSet) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "typed_parameter":
			collectRefs(p.ChildByFieldName("type"), src, true, out)
		case "default_parameter":
			collectRefs(p.ChildByFieldName("value"), src, false, out)
		case "typed_default_parameter":
			collectRefs(p.ChildByFieldName("type"), src, true, out)
			collectRefs(p.ChildByFieldName("value"), src, false, out)
		}
	}
}

// stringBody strips prefixes and quotes from a string literal.
func stringBody(lit string) string {
	lit = strings.TrimLeft(lit, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) && len(lit) >= 2*len(q) {
			return lit[len(q) : len(lit)-len(q)]
		}
	}
	return lit
}

// =============================================================================
// DOCSTRING REFERENCES
// =============================================================================

var (
	// argTypePattern matches Google style argument lines: "name (Type): text".
	argTypePattern = regexp.MustCompile(`^\s*\*{0,2}[A-Za-z_]\w*\s*\(([^)]*)\)\s*:`)

	// sectionPattern matches the sections whose first entry names a type.
	sectionPattern = regexp.MustCompile(`^\s*(Returns|Yields|Raises)\s*:\s*$`)

	// sphinxTypePattern matches ":type x: T" and ":rtype: T" fields.
	sphinxTypePattern = regexp.MustCompile(`^\s*:(?:type\s+\w+|rtype)\s*:\s*(.+)$`)

	// typeSpacing collapses the spaces a type expression may contain.
	typeSpacing = regexp.MustCompile(`\s*([|,\[\]])\s*`)
)

// DocstringRefs returns the type names a docstring mentions.
//
// Description:
//
//	Recognizes argument lines of the form "name (Type): description", the
//	first entry after a Returns, Yields or Raises header, and Sphinx
//	":type x:" / ":rtype:" fields. Prose is ignored: a section entry is only
//	taken when it reads as a type expression.
//
// Outputs:
//
//	[]string - Sorted, deduplicated head identifiers
func DocstringRefs(doc string) []string {
	refs := make(nameSet)
	lines := strings.Split(doc, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := argTypePattern.FindStringSubmatch(line); m != nil {
			refs.addTypeText(m[1])
			continue
		}
		if m := sphinxTypePattern.FindStringSubmatch(line); m != nil {
			refs.addTypeText(m[1])
			continue
		}
		if !sectionPattern.MatchString(line) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			entry := strings.TrimSpace(lines[j])
			if entry == "" {
				continue
			}
			if t, ok := sectionType(entry); ok {
				refs.addTypeText(t)
			}
			i = j
			break
		}
	}
	return refs.sorted()
}

// sectionType extracts the type of a section entry such as "int: the sum".
func sectionType(entry string) (string, bool) {
	entry = strings.Trim(entry, `"'`)
	if head, _, found := strings.Cut(entry, ":"); found {
		entry = head
	}
	entry = strings.TrimSpace(typeSpacing.ReplaceAllString(entry, "$1"))
	if entry == "" || strings.ContainsAny(entry, " \t") {
		return "", false
	}
	return entry, true
}

// =============================================================================
// SNIPPETS
// =============================================================================

// CollectNames parses a standalone snippet and returns the names it reads.
//
// Description:
//
//	Used for text that does not come from the parsed module, such as
//	injected statements and body placeholders, so that the imports they
//	need survive import filtering.
//
// Inputs:
//
//	ctx - Context for cancellation
//	snippet - Python source, one or more statements
//
// Outputs:
//
//	[]string - Sorted names read by the snippet
//	error - *ParseError when the snippet is not valid Python
func CollectNames(ctx context.Context, snippet string) ([]string, error) {
	src := []byte(snippet)
	tree, err := parseTree(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if perr := syntaxError(root, "<snippet>"); perr != nil {
		return nil, perr
	}

	refs := make(nameSet)
	collectRefs(root, src, false, refs)
	return refs.sorted(), nil
}
