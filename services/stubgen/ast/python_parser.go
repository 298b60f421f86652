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
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize is the largest source Parse accepts (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// WarnFileSize is the size above which Parse logs a warning (1MB).
const WarnFileSize = 1024 * 1024

// indentUnit is used when a body shares the line of its header.
const indentUnit = "    "

// Parse builds the declaration model of a Python module.
//
// Description:
//
//	Parses the content with tree-sitter and converts the top-level
//	statements into tagged Declarations. Unlike an error-tolerant symbol
//	extractor, any ERROR or MISSING node fails the parse: a stub must never
//	be generated from partially understood source.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw Python source code bytes. Must be valid UTF-8.
//   - filePath: Path used in error messages.
//
// Outputs:
//   - *Module: The parsed module. Never nil on success.
//   - error: *ParseError (wrapping ErrParseFailed) on syntax errors,
//     ErrInvalidContent for non UTF-8 or oversized content, or a context error.
//
// Thread Safety:
//
//	Safe for concurrent use; each call creates its own tree-sitter parser.
func Parse(ctx context.Context, content []byte, filePath string) (*Module, error) {
	if len(content) > DefaultMaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrInvalidContent, len(content), DefaultMaxFileSize)
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	tree, err := parseTree(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if perr := syntaxError(root, filePath); perr != nil {
		return nil, perr
	}

	b := &builder{src: content}
	mod := b.module(root, filePath)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}
	return mod, nil
}

// parseTree runs tree-sitter over src with a fresh parser.
func parseTree(ctx context.Context, src []byte) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	if tree.RootNode() == nil {
		tree.Close()
		return nil, NewParseError("", 0, 0, "tree-sitter returned nil root node")
	}
	return tree, nil
}

// syntaxError returns a ParseError for the first ERROR or MISSING node.
func syntaxError(root *sitter.Node, filePath string) *ParseError {
	if root == nil {
		return NewParseError(filePath, 0, 0, "empty syntax tree")
	}
	if !root.HasError() {
		return nil
	}
	bad := firstErrorNode(root)
	if bad == nil {
		return NewParseError(filePath, 0, 0, "source contains syntax errors")
	}
	pos := bad.StartPoint()
	msg := "invalid syntax"
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %q", bad.Type())
	}
	return NewParseError(filePath, int(pos.Row)+1, int(pos.Column)+1, msg)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// =============================================================================
// BUILDER
// =============================================================================

// builder converts tree-sitter nodes into declarations.
//
// Every value it produces is a plain Go value, so the tree can be closed
// as soon as the module is built.
type builder struct {
	src []byte
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

func (b *builder) slice(start, end uint32) string {
	return string(b.src[start:end])
}

func span(n *sitter.Node) Span {
	return Span{StartLine: int(n.StartPoint().Row) + 1, EndLine: int(n.EndPoint().Row) + 1}
}

// module walks the top-level statements.
func (b *builder) module(root *sitter.Node, filePath string) *Module {
	mod := &Module{Path: filePath}
	decls, header, doc := b.block(root, "")
	mod.Declarations = decls
	mod.HeaderComments = header
	mod.Docstring = doc
	return mod
}

// block walks the statements of a module or class body.
//
// Comments on consecutive lines directly above a statement are attached to
// it. A comment on the last line of a simple statement becomes its trailing
// comment. Comments before the first statement of a module are header
// comments; all other free-standing comments are dropped.
func (b *builder) block(body *sitter.Node, indent string) ([]Declaration, []string, string) {
	var (
		decls   []Declaration
		header  []string
		doc     string
		pending []*sitter.Node
		prev    Declaration
		prevEnd uint32
		first   = true
	)
	isModule := body.Type() == "module"

	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)

		if n.Type() == "comment" {
			row := n.StartPoint().Row
			if prev != nil && row == prevEnd {
				setTrailing(prev, b.text(n))
				continue
			}
			if len(pending) > 0 && row != pending[len(pending)-1].EndPoint().Row+1 {
				pending = nil
			}
			if first && isModule {
				header = append(header, b.text(n))
				continue
			}
			pending = append(pending, n)
			continue
		}

		var attached []string
		if len(pending) > 0 && n.StartPoint().Row == pending[len(pending)-1].EndPoint().Row+1 {
			for _, c := range pending {
				attached = append(attached, b.text(c))
			}
		}
		pending = nil

		if first {
			first = false
			if isDocstring(n) {
				doc = b.text(n)
				prev, prevEnd = nil, n.EndPoint().Row
				continue
			}
		}

		d := b.declaration(n, indent)
		if d == nil {
			continue
		}
		setComments(d, attached)
		decls = append(decls, d)
		prev, prevEnd = d, n.EndPoint().Row
	}
	return decls, header, doc
}

func setComments(d Declaration, comments []string) {
	switch v := d.(type) {
	case *Import:
		v.comments = comments
	case *Constant:
		v.comments = comments
	case *Function:
		v.comments = comments
	case *Class:
		v.comments = comments
	case *Statement:
		v.comments = comments
	}
}

// setTrailing records a same-line comment on simple statements only.
func setTrailing(d Declaration, comment string) {
	switch v := d.(type) {
	case *Import:
		v.trailing = comment
	case *Constant:
		v.trailing = comment
	case *Statement:
		v.trailing = comment
	}
}

// isDocstring reports whether a statement is a bare string literal.
func isDocstring(n *sitter.Node) bool {
	if n == nil || n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	switch n.NamedChild(0).Type() {
	case "string", "concatenated_string":
		return true
	}
	return false
}

// declaration converts one statement.
func (b *builder) declaration(n *sitter.Node, indent string) Declaration {
	switch n.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return b.importDecl(n)
	case "expression_statement":
		if c := b.constant(n); c != nil {
			return c
		}
	case "function_definition":
		return b.function(n, n, nil, indent)
	case "class_definition":
		return b.class(n, n, nil, indent)
	case "decorated_definition":
		return b.decorated(n, indent)
	case "pass_statement":
		return nil
	}
	return b.statement(n)
}

func (b *builder) statement(n *sitter.Node) *Statement {
	refs := make(nameSet)
	collectRefs(n, b.src, false, refs)
	s := &Statement{
		base: base{span: span(n)},
		Text: b.text(n),
		Refs: refs.sorted(),
	}
	if n.Type() != "if_statement" {
		return s
	}
	cond := n.ChildByFieldName("condition")
	switch {
	case isMainGuard(b.text(cond)):
		s.Name = MainGuardName
	case isTypeCheckingGuard(b.text(cond)) && n.ChildByFieldName("alternative") == nil:
		s.Name = TypeCheckingGuardName
		s.Binds = b.guardBinds(n.ChildByFieldName("consequence"))

		// Keeping the guard reads only its condition.
		condRefs := make(nameSet)
		collectRefs(cond, b.src, false, condRefs)
		s.Refs = condRefs.sorted()
	}
	return s
}

// isTypeCheckingGuard recognizes `TYPE_CHECKING` and `typing.TYPE_CHECKING`.
func isTypeCheckingGuard(cond string) bool {
	c := strings.TrimSpace(cond)
	return c == "TYPE_CHECKING" || c == "typing.TYPE_CHECKING"
}

// guardBinds collects the names bound by the imports of a guard body.
func (b *builder) guardBinds(body *sitter.Node) []string {
	binds := make(nameSet)
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "import_statement", "import_from_statement":
			for _, name := range b.importDecl(n).Names {
				binds.add(name.Bound())
			}
		}
	}
	return binds.sorted()
}

// isMainGuard recognizes `__name__ == "__main__"` in either operand order.
func isMainGuard(cond string) bool {
	c := strings.ReplaceAll(strings.Join(strings.Fields(cond), ""), "'", `"`)
	return c == `__name__=="__main__"` || c == `"__main__"==__name__`
}

// =============================================================================
// IMPORTS
// =============================================================================

func (b *builder) importDecl(n *sitter.Node) *Import {
	imp := &Import{
		base: base{span: span(n)},
		Text: b.text(n),
	}

	switch n.Type() {
	case "import_statement":
		imp.ImportKind = ImportPlain
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if name, ok := b.importName(n.NamedChild(i)); ok {
				imp.Names = append(imp.Names, name)
			}
		}
		return imp
	case "future_import_statement":
		imp.ImportKind = ImportFuture
		imp.Module = "__future__"
	default:
		imp.ImportKind = ImportFrom
	}

	sawImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			imp.Relative = true
			imp.Module = b.text(child)
		case "wildcard_import":
			imp.Wildcard = true
		case "dotted_name", "aliased_import":
			if !sawImport {
				if imp.ImportKind == ImportFrom {
					imp.Module = b.text(child)
				}
				continue
			}
			if name, ok := b.importName(child); ok {
				imp.Names = append(imp.Names, name)
			}
		}
	}
	return imp
}

func (b *builder) importName(n *sitter.Node) (ImportName, bool) {
	switch n.Type() {
	case "dotted_name":
		return ImportName{Name: b.text(n)}, true
	case "aliased_import":
		return ImportName{
			Name:  b.text(n.ChildByFieldName("name")),
			Alias: b.text(n.ChildByFieldName("alias")),
		}, true
	}
	return ImportName{}, false
}

// =============================================================================
// CONSTANTS
// =============================================================================

// constant converts `name = value` and `name: T [= value]`.
func (b *builder) constant(n *sitter.Node) *Constant {
	if n.NamedChildCount() != 1 {
		return nil
	}
	assign := n.NamedChild(0)
	if assign.Type() != "assignment" {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	right := assign.ChildByFieldName("right")
	if right != nil && right.Type() == "assignment" {
		return nil
	}

	refs := make(nameSet)
	collectRefs(assign.ChildByFieldName("type"), b.src, true, refs)
	collectRefs(right, b.src, false, refs)

	return &Constant{
		base:       base{span: span(n)},
		Name:       b.text(left),
		Annotation: b.text(assign.ChildByFieldName("type")),
		Value:      b.text(right),
		Literal:    right == nil || isLiteral(right),
		Text:       b.text(n),
		Refs:       refs.sorted(),
	}
}

// isLiteral reports whether an expression is built only from literals.
func isLiteral(n *sitter.Node) bool {
	switch n.Type() {
	case "integer", "float", "true", "false", "none", "ellipsis":
		return true
	case "string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "interpolation" {
				return false
			}
		}
		return true
	case "unary_operator":
		arg := n.ChildByFieldName("argument")
		return arg != nil && (arg.Type() == "integer" || arg.Type() == "float")
	case "concatenated_string", "list", "tuple", "set", "dictionary", "pair", "parenthesized_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			if !isLiteral(child) {
				return false
			}
		}
		return true
	}
	return false
}

// =============================================================================
// FUNCTIONS AND CLASSES
// =============================================================================

func (b *builder) decorated(n *sitter.Node, indent string) Declaration {
	var decorators []Decorator
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, b.decorator(child))
		}
	}

	def := n.ChildByFieldName("definition")
	if def == nil {
		return b.statement(n)
	}
	switch def.Type() {
	case "function_definition":
		return b.function(def, n, decorators, indent)
	case "class_definition":
		return b.class(def, n, decorators, indent)
	}
	return b.statement(n)
}

func (b *builder) decorator(n *sitter.Node) Decorator {
	d := Decorator{Text: strings.TrimSpace(b.text(n))}
	var expr *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() != "comment" {
			expr = c
			break
		}
	}
	if expr == nil {
		return d
	}
	refs := make(nameSet)
	collectRefs(expr, b.src, false, refs)
	d.Refs = refs.sorted()

	if expr.Type() == "call" {
		d.Name = b.text(expr.ChildByFieldName("function"))
	} else {
		d.Name = b.text(expr)
	}
	return d
}

// headerEnd returns the end offset of the ':' that closes a def or class header.
func headerEnd(n *sitter.Node) uint32 {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == ":" {
			return c.EndByte()
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return body.StartByte()
	}
	return n.EndByte()
}

// codeEnd returns the end of the last non-comment statement of a body.
//
// Comments following the body may be parsed into it; they do not belong to
// the definition.
func codeEnd(n *sitter.Node) uint32 {
	body := n.ChildByFieldName("body")
	if body == nil {
		return n.EndByte()
	}
	for i := int(body.NamedChildCount()) - 1; i >= 0; i-- {
		if c := body.NamedChild(i); c.Type() != "comment" {
			return c.EndByte()
		}
	}
	return n.EndByte()
}

// bodyIndent returns the indentation of the first body statement, or the
// parent indentation plus one unit when the body shares the header line.
func (b *builder) bodyIndent(def *sitter.Node, indent string) string {
	body := def.ChildByFieldName("body")
	if body == nil {
		return indent + indentUnit
	}
	var first *sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if c := body.NamedChild(i); c.Type() != "comment" {
			first = c
			break
		}
	}
	if first == nil || first.StartPoint().Row == def.StartPoint().Row {
		return indent + indentUnit
	}
	lineStart := first.StartByte() - first.StartPoint().Column
	prefix := b.slice(lineStart, first.StartByte())
	if strings.TrimSpace(prefix) != "" {
		return indent + indentUnit
	}
	return prefix
}

func firstStatement(body *sitter.Node) *sitter.Node {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if c := body.NamedChild(i); c.Type() != "comment" {
			return c
		}
	}
	return nil
}

// function converts a function_definition. outer is the decorated node when
// decorators are present, otherwise def itself.
func (b *builder) function(def, outer *sitter.Node, decorators []Decorator, indent string) *Function {
	body := def.ChildByFieldName("body")
	params := def.ChildByFieldName("parameters")
	returns := def.ChildByFieldName("return_type")

	fn := &Function{
		base:       base{span: span(outer)},
		Name:       b.text(def.ChildByFieldName("name")),
		Async:      def.ChildCount() > 0 && def.Child(0).Type() == "async",
		Decorators: decorators,
		Parameters: b.parameters(params),
		Returns:    b.text(returns),
		Header:     b.slice(def.StartByte(), headerEnd(def)),
		Body:       b.text(body),
		Text:       b.slice(outer.StartByte(), codeEnd(def)),
		BodyIndent: b.bodyIndent(def, indent),
	}

	if first := firstStatement(body); isDocstring(first) {
		fn.Docstring = b.text(first)
		fn.DocRefs = DocstringRefs(fn.Docstring)
	}

	header := make(nameSet)
	collectParameterRefs(params, b.src, header)
	collectRefs(returns, b.src, true, header)
	fn.HeaderRefs = header.sorted()

	all := make(nameSet)
	collectRefs(outer, b.src, false, all)
	fn.Refs = all.sorted()
	return fn
}

func (b *builder) parameters(params *sitter.Node) []Parameter {
	if params == nil {
		return nil
	}
	var out []Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() == "comment" {
			continue
		}
		param := Parameter{Text: b.text(p)}
		switch p.Type() {
		case "identifier":
			param.Name = b.text(p)
		case "typed_parameter":
			param.Annotation = b.text(p.ChildByFieldName("type"))
			if p.NamedChildCount() > 0 {
				param.Name = b.text(p.NamedChild(0))
			}
		case "default_parameter":
			param.Name = b.text(p.ChildByFieldName("name"))
			param.Default = b.text(p.ChildByFieldName("value"))
		case "typed_default_parameter":
			param.Name = b.text(p.ChildByFieldName("name"))
			param.Annotation = b.text(p.ChildByFieldName("type"))
			param.Default = b.text(p.ChildByFieldName("value"))
		default:
			// *args, **kwargs, bare "*" and "/" separators
			param.Name = b.text(p)
		}
		out = append(out, param)
	}
	return out
}

func (b *builder) class(def, outer *sitter.Node, decorators []Decorator, indent string) *Class {
	body := def.ChildByFieldName("body")
	bases := def.ChildByFieldName("superclasses")

	cls := &Class{
		base:       base{span: span(outer)},
		Name:       b.text(def.ChildByFieldName("name")),
		Decorators: decorators,
		Bases:      b.text(bases),
		Header:     b.slice(def.StartByte(), headerEnd(def)),
		Text:       b.slice(outer.StartByte(), codeEnd(def)),
		BodyIndent: b.bodyIndent(def, indent),
	}

	if body != nil {
		members, _, doc := b.block(body, cls.BodyIndent)
		cls.Members = members
		cls.Docstring = doc
		if doc != "" {
			cls.DocRefs = DocstringRefs(doc)
		}
	}

	header := make(nameSet)
	collectRefs(bases, b.src, false, header)
	cls.HeaderRefs = header.sorted()

	all := make(nameSet)
	collectRefs(outer, b.src, false, all)
	cls.Refs = all.sorted()
	return cls
}
