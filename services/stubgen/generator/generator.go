// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generator turns a Python implementation into its student stub.
//
// The transform is a pure function of (source text, rules): it performs no
// I/O, keeps no state between calls and produces byte-identical output for
// identical input. Formatting to the project's canonical style is the job of
// the normalize package; Generate only guarantees valid Python with the
// original signatures, docstrings and declaration order.
package generator

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/AleutianAI/LabStubs/services/stubgen/ast"
	"github.com/AleutianAI/LabStubs/services/stubgen/rules"
)

// Generator renders stubs.
//
// Thread Safety: Safe for concurrent use.
type Generator struct {
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for dropped-import diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the stub of one implementation file with a default Generator.
func Generate(ctx context.Context, source []byte, path string, rs rules.RuleSet) (string, error) {
	return New().Generate(ctx, source, path, rs)
}

// Generate renders the stub of one implementation file.
//
// Description:
//
//	Parses the source, validates the file rules against its declarations,
//	replaces every function body with the placeholder, filters imports down
//	to the accepted ones that retained code still reads, and emits the
//	result in original order.
//
// Inputs:
//
//	ctx - Context for cancellation of the parse
//	source - Implementation source text
//	path - Root-relative implementation path; selects the file rules
//	rs - Project rule set
//
// Outputs:
//
//	string - Stub text ending in a single newline, or "" for an empty module
//	error - *ast.ParseError for invalid source, *RuleViolationError when a
//	        rule names an unknown declaration or a used import is not accepted
//
// Thread Safety: Safe for concurrent use.
func (g *Generator) Generate(ctx context.Context, source []byte, path string, rs rules.RuleSet) (string, error) {
	mod, err := ast.Parse(ctx, source, path)
	if err != nil {
		return "", err
	}

	r := rs.ForFile(path)
	if err := validateRules(mod, r); err != nil {
		return "", err
	}

	s := &state{
		ctx:          ctx,
		rules:        r,
		logger:       g.logger.With(slog.String("file", r.Path)),
		placeholders: make(map[string][]string),
	}
	return s.render(mod)
}

// validateRules checks that every rule entry names a declaration.
func validateRules(mod *ast.Module, r rules.Resolved) error {
	for _, name := range r.ReferencedNames() {
		if _, ok := mod.Lookup(name); !ok {
			return &RuleViolationError{Path: r.Path, Symbol: name, Reason: ReasonUnknownDeclaration}
		}
	}

	names := make([]string, 0, len(r.File.Placeholders))
	for name := range r.File.Placeholders {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if d, _ := mod.Lookup(name); d.Kind() != ast.KindFunction {
			return &RuleViolationError{Path: r.Path, Symbol: name, Reason: ReasonNotAFunction}
		}
	}
	return nil
}

// =============================================================================
// RENDER STATE
// =============================================================================

// nameSet holds the names read by retained code.
type nameSet map[string]struct{}

func (s nameSet) add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// entry is the rendering decision for one declaration.
type entry struct {
	chunk *chunk
	refs  []string

	// pending is kept verbatim only if retained code reads one of
	// pendingNames: a non-literal constant or a TYPE_CHECKING guard.
	pending      ast.Declaration
	pendingNames []string
}

// state carries one Generate call.
type state struct {
	ctx          context.Context
	rules        rules.Resolved
	logger       *slog.Logger
	placeholders map[string][]string
}

func (s *state) render(mod *ast.Module) (string, error) {
	entries := make([]entry, len(mod.Declarations))
	for i, d := range mod.Declarations {
		if d.Kind() == ast.KindImport {
			continue
		}
		e, err := s.topLevel(d)
		if err != nil {
			return "", err
		}
		entries[i] = e
	}

	inject, injectRefs, err := s.injected()
	if err != nil {
		return "", err
	}

	used := make(nameSet)
	used.add(injectRefs...)
	for _, e := range entries {
		if e.chunk != nil {
			used.add(e.refs...)
		}
	}
	s.resolvePending(entries, used)

	for i, d := range mod.Declarations {
		if imp, ok := d.(*ast.Import); ok {
			e, err := s.importEntry(imp, used)
			if err != nil {
				return "", err
			}
			entries[i] = e
		}
	}

	return assemble(mod, entries, inject), nil
}

// resolvePending keeps non-literal constants and TYPE_CHECKING guards that
// retained code reads, such as type aliases used in annotations, until no
// new name is pulled in.
func (s *state) resolvePending(entries []entry, used nameSet) {
	for changed := true; changed; {
		changed = false
		for i := range entries {
			e := &entries[i]
			if e.pending == nil || e.chunk != nil || !slices.ContainsFunc(e.pendingNames, used.has) {
				continue
			}
			e.chunk = verbatim(e.pending, "")
			e.refs = declRefs(e.pending)
			used.add(e.refs...)
			changed = true
		}
	}
}

// topLevel decides how a module-level declaration is rendered.
func (s *state) topLevel(d ast.Declaration) (entry, error) {
	name := d.DeclName()
	switch {
	case s.rules.IsHidden(name):
		return entry{}, nil
	case s.rules.IsKept(name):
		return entry{chunk: verbatim(d, ""), refs: declRefs(d)}, nil
	}

	switch v := d.(type) {
	case *ast.Constant:
		if v.Literal {
			return entry{chunk: verbatim(v, ""), refs: v.Refs}, nil
		}
		return entry{pending: v, pendingNames: []string{v.Name}}, nil
	case *ast.Function:
		return s.stubFunction(v, "", name)
	case *ast.Class:
		return s.stubClass(v, "", name)
	case *ast.Statement:
		if v.Name == ast.TypeCheckingGuardName {
			return entry{pending: v, pendingNames: v.Binds}, nil
		}
	}
	return entry{}, nil
}

// member decides how a class-level declaration is rendered.
func (s *state) member(d ast.Declaration, indent, qname string) (entry, error) {
	switch {
	case s.rules.IsHidden(qname):
		return entry{}, nil
	case s.rules.IsKept(qname):
		return entry{chunk: verbatim(d, indent), refs: declRefs(d)}, nil
	}

	switch v := d.(type) {
	case *ast.Constant:
		if v.Literal {
			return entry{chunk: verbatim(v, indent), refs: v.Refs}, nil
		}
	case *ast.Function:
		return s.stubFunction(v, indent, qname)
	case *ast.Class:
		return s.stubClass(v, indent, qname)
	}
	return entry{}, nil
}

// stubFunction keeps the header and docstring and replaces the body.
func (s *state) stubFunction(fn *ast.Function, indent, qname string) (entry, error) {
	refs := make(nameSet)
	refs.add(fn.HeaderRefs...)
	refs.add(fn.DocRefs...)

	lines := commentLines(fn.Comments(), indent)
	lines = append(lines, s.decoratorLines(fn.Decorators, indent, refs)...)
	lines = append(lines, indent+fn.Header)
	if fn.Docstring != "" {
		lines = append(lines, fn.BodyIndent+fn.Docstring)
	}

	placeholder := s.rules.PlaceholderFor(qname)
	prefs, err := s.placeholderRefs(placeholder)
	if err != nil {
		return entry{}, err
	}
	refs.add(prefs...)
	lines = append(lines, indentLines(placeholder, fn.BodyIndent)...)

	return entry{chunk: &chunk{cat: catDef, lines: lines}, refs: sortedNames(refs)}, nil
}

// stubClass keeps the header, docstring and literal attributes and stubs
// every method. A class left without a body receives `pass`.
func (s *state) stubClass(cls *ast.Class, indent, qname string) (entry, error) {
	refs := make(nameSet)
	refs.add(cls.HeaderRefs...)
	refs.add(cls.DocRefs...)

	lines := commentLines(cls.Comments(), indent)
	lines = append(lines, s.decoratorLines(cls.Decorators, indent, refs)...)
	lines = append(lines, indent+cls.Header)

	var body []chunk
	if cls.Docstring != "" {
		body = append(body, chunk{cat: catDoc, lines: []string{cls.BodyIndent + cls.Docstring}})
	}
	for _, m := range cls.Members {
		e, err := s.member(m, cls.BodyIndent, qname+"."+m.DeclName())
		if err != nil {
			return entry{}, err
		}
		if e.chunk == nil {
			continue
		}
		body = append(body, *e.chunk)
		refs.add(e.refs...)
	}

	if len(body) == 0 {
		lines = append(lines, cls.BodyIndent+"pass")
	} else {
		lines = append(lines, joinChunks(body, classSpacing)...)
	}
	return entry{chunk: &chunk{cat: catDef, lines: lines}, refs: sortedNames(refs)}, nil
}

func (s *state) decoratorLines(decorators []ast.Decorator, indent string, refs nameSet) []string {
	var lines []string
	for _, d := range decorators {
		if s.rules.StripsDecorator(d.Name) {
			continue
		}
		lines = append(lines, indent+d.Text)
		refs.add(d.Refs...)
	}
	return lines
}

// placeholderRefs returns the names a placeholder reads, parsing each
// distinct placeholder once.
func (s *state) placeholderRefs(placeholder string) ([]string, error) {
	if refs, ok := s.placeholders[placeholder]; ok {
		return refs, nil
	}
	refs, err := ast.CollectNames(s.ctx, placeholder)
	if err != nil {
		return nil, &RuleViolationError{Path: s.rules.Path, Symbol: placeholder, Reason: ReasonInvalidPlaceholder}
	}
	s.placeholders[placeholder] = refs
	return refs, nil
}

// injected parses the file's inject statements.
func (s *state) injected() (*chunk, []string, error) {
	if len(s.rules.File.Inject) == 0 {
		return nil, nil, nil
	}
	var (
		lines []string
		refs  []string
	)
	for _, stmt := range s.rules.File.Inject {
		stmt = strings.TrimSpace(stmt)
		names, err := ast.CollectNames(s.ctx, stmt)
		if err != nil {
			return nil, nil, &RuleViolationError{Path: s.rules.Path, Symbol: stmt, Reason: ReasonInvalidInject}
		}
		refs = append(refs, names...)
		lines = append(lines, stmt)
	}
	return &chunk{cat: catOther, lines: lines}, refs, nil
}

// importEntry filters the names of one import statement.
//
// Unused names are dropped. Used names must be accepted by the rules unless
// LenientImports is set, in which case they are dropped with a warning.
// Kept and hidden rule entries address imports by their bound name.
func (s *state) importEntry(imp *ast.Import, used nameSet) (entry, error) {
	if imp.ImportKind == ast.ImportFuture {
		return entry{chunk: verbatim(imp, "")}, nil
	}
	if imp.Wildcard {
		if s.rules.Accepts(imp.Module, rules.WildcardSymbol) {
			return entry{chunk: verbatim(imp, "")}, nil
		}
		s.logger.Debug("dropping wildcard import", slog.String("module", imp.Module))
		return entry{}, nil
	}

	kept := make([]ast.ImportName, 0, len(imp.Names))
	for _, n := range imp.Names {
		bound := n.Bound()
		if s.rules.IsHidden(bound) {
			continue
		}
		if !s.rules.IsKept(bound) {
			if !used.has(bound) {
				s.logger.Debug("dropping unused import",
					slog.String("module", imp.ModuleOf(n)),
					slog.String("name", n.String()))
				continue
			}
			if err := s.checkAccepted(imp, n); err != nil {
				if !s.rules.LenientImports {
					return entry{}, err
				}
				s.logger.Warn("dropping used import that is not accepted",
					slog.String("module", imp.ModuleOf(n)),
					slog.String("name", n.String()))
				continue
			}
		}
		kept = append(kept, n)
	}

	switch len(kept) {
	case 0:
		return entry{}, nil
	case len(imp.Names):
		return entry{chunk: verbatim(imp, "")}, nil
	}

	parts := make([]string, len(kept))
	for i, n := range kept {
		parts[i] = n.String()
	}
	text := "import " + strings.Join(parts, ", ")
	if imp.ImportKind == ast.ImportFrom {
		text = "from " + imp.Module + " " + text
	}
	lines := append(commentLines(imp.Comments(), ""), text)
	return entry{chunk: &chunk{cat: catImport, lines: lines}}, nil
}

func (s *state) checkAccepted(imp *ast.Import, n ast.ImportName) error {
	if imp.ImportKind == ast.ImportPlain {
		if s.rules.Accepts(n.Name, "") {
			return nil
		}
		return &RuleViolationError{Path: s.rules.Path, Symbol: n.Name, Reason: ReasonImportNotAccepted}
	}
	if s.rules.Accepts(imp.Module, n.Name) {
		return nil
	}
	return &RuleViolationError{Path: s.rules.Path, Symbol: n.Name, Module: imp.Module, Reason: ReasonImportNotAccepted}
}

func declRefs(d ast.Declaration) []string {
	switch v := d.(type) {
	case *ast.Constant:
		return v.Refs
	case *ast.Function:
		return v.Refs
	case *ast.Class:
		return v.Refs
	case *ast.Statement:
		return v.Refs
	}
	return nil
}

func sortedNames(s nameSet) []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
