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

import "strings"

// DeclKind identifies the variant of a Declaration.
type DeclKind int

const (
	// KindImport is an import, from-import or __future__ import.
	KindImport DeclKind = iota + 1

	// KindConstant is a single-target assignment or annotation.
	KindConstant

	// KindFunction is a def or async def, possibly decorated.
	KindFunction

	// KindClass is a class definition, possibly decorated.
	KindClass

	// KindStatement is any other statement.
	KindStatement
)

// String returns the lowercase name of the kind.
func (k DeclKind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindConstant:
		return "constant"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindStatement:
		return "statement"
	default:
		return "unknown"
	}
}

// MainGuardName names the `if __name__ == "__main__":` statement.
const MainGuardName = "__main__"

// TypeCheckingGuardName names an `if TYPE_CHECKING:` statement.
const TypeCheckingGuardName = "TYPE_CHECKING"

// Span is the 1-indexed inclusive line range of a declaration.
type Span struct {
	StartLine int
	EndLine   int
}

// Declaration is a top-level or class-level source declaration.
//
// The set of implementations is closed: *Import, *Constant, *Function,
// *Class and *Statement. Consumers switch on the concrete type.
type Declaration interface {
	// Kind returns the variant tag.
	Kind() DeclKind

	// DeclName returns the bound name, or "" for anonymous statements.
	DeclName() string

	// Span returns the source lines covered by the declaration.
	Span() Span

	// Comments returns the comment lines attached directly above.
	Comments() []string

	// Trailing returns the comment on the last line of the declaration.
	Trailing() string

	declaration()
}

type base struct {
	span     Span
	comments []string
	trailing string
}

func (b *base) Span() Span         { return b.span }
func (b *base) Comments() []string { return b.comments }
func (b *base) Trailing() string   { return b.trailing }
func (b *base) declaration()       {}

// =============================================================================
// MODULE
// =============================================================================

// Module is a parsed source file.
//
// A Module is never mutated after Parse returns.
type Module struct {
	// Path is the file path the module was parsed from.
	Path string

	// HeaderComments are the comments preceding the first statement.
	HeaderComments []string

	// Docstring is the verbatim module docstring literal, or "".
	Docstring string

	// Declarations are the top-level declarations in source order.
	Declarations []Declaration
}

// Lookup resolves a dotted declaration name such as "Tokenizer.run".
//
// Import declarations resolve by any of their bound names. MainGuardName
// and TypeCheckingGuardName resolve to the guard statements.
func (m *Module) Lookup(name string) (Declaration, bool) {
	head, rest, nested := strings.Cut(name, ".")
	for _, d := range m.Declarations {
		if !declares(d, head) {
			continue
		}
		if !nested {
			return d, true
		}
		if c, ok := d.(*Class); ok {
			return c.Lookup(rest)
		}
	}
	return nil, false
}

func declares(d Declaration, name string) bool {
	if imp, ok := d.(*Import); ok {
		for _, n := range imp.Names {
			if n.Bound() == name {
				return true
			}
		}
		return false
	}
	return d.DeclName() != "" && d.DeclName() == name
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportKind distinguishes the import statement forms.
type ImportKind int

const (
	// ImportPlain is `import a.b [as c]`.
	ImportPlain ImportKind = iota + 1

	// ImportFrom is `from m import a [as b]`.
	ImportFrom

	// ImportFuture is `from __future__ import x`.
	ImportFuture
)

// ImportName is one imported name with its optional alias.
type ImportName struct {
	Name  string
	Alias string
}

// Bound returns the name the import binds in the module namespace.
//
// `import a.b` binds "a"; an alias always wins.
func (n ImportName) Bound() string {
	if n.Alias != "" {
		return n.Alias
	}
	head, _, _ := strings.Cut(n.Name, ".")
	return head
}

// String renders the name as it appears in an import list.
func (n ImportName) String() string {
	if n.Alias != "" {
		return n.Name + " as " + n.Alias
	}
	return n.Name
}

// Import is an import statement.
type Import struct {
	base

	ImportKind ImportKind

	// Module is the source module of a from-import, including leading dots
	// for relative imports. Empty for plain imports.
	Module string

	Relative bool
	Wildcard bool
	Names    []ImportName

	// Text is the verbatim statement.
	Text string
}

func (i *Import) Kind() DeclKind   { return KindImport }
func (i *Import) DeclName() string { return i.Module }

// ModuleOf returns the module a name is imported from.
func (i *Import) ModuleOf(n ImportName) string {
	if i.ImportKind == ImportPlain {
		return n.Name
	}
	return i.Module
}

// =============================================================================
// CONSTANT
// =============================================================================

// Constant is an assignment or annotation to a single name.
type Constant struct {
	base

	Name       string
	Annotation string
	Value      string

	// Literal is true when Value is a literal expression or absent.
	Literal bool

	// Text is the verbatim statement.
	Text string

	// Refs are the names the statement reads.
	Refs []string
}

func (c *Constant) Kind() DeclKind   { return KindConstant }
func (c *Constant) DeclName() string { return c.Name }

// =============================================================================
// FUNCTION
// =============================================================================

// Decorator is one `@expr` line.
type Decorator struct {
	// Name is the decorator expression without call arguments.
	Name string

	// Text is the verbatim decorator including the "@".
	Text string

	Refs []string
}

// Parameter is one entry of a parameter list.
type Parameter struct {
	Name       string
	Annotation string
	Default    string

	// Text is the verbatim parameter, e.g. "b: int = 0" or "*args".
	Text string
}

// Function is a function or method definition.
type Function struct {
	base

	Name       string
	Async      bool
	Decorators []Decorator
	Parameters []Parameter
	Returns    string

	// Header is the verbatim `def ...:` text, decorators excluded.
	Header string

	// Docstring is the verbatim docstring literal, or "".
	Docstring string

	// Body is the verbatim body text.
	Body string

	// Text is the verbatim definition, decorators included.
	Text string

	// BodyIndent is the indentation of the body statements.
	BodyIndent string

	// HeaderRefs are names read by annotations and defaults.
	HeaderRefs []string

	// Refs are names read anywhere in the definition.
	Refs []string

	// DocRefs are type names mentioned by the docstring.
	DocRefs []string
}

func (f *Function) Kind() DeclKind   { return KindFunction }
func (f *Function) DeclName() string { return f.Name }

// =============================================================================
// CLASS
// =============================================================================

// Class is a class definition.
type Class struct {
	base

	Name       string
	Decorators []Decorator

	// Bases is the verbatim base list including parentheses, or "".
	Bases string

	// Header is the verbatim `class ...:` text.
	Header string

	Docstring string

	// Members are the body declarations in source order.
	Members []Declaration

	Text       string
	BodyIndent string

	HeaderRefs []string
	Refs       []string
	DocRefs    []string
}

func (c *Class) Kind() DeclKind   { return KindClass }
func (c *Class) DeclName() string { return c.Name }

// Lookup resolves a dotted member name relative to the class.
func (c *Class) Lookup(name string) (Declaration, bool) {
	head, rest, nested := strings.Cut(name, ".")
	for _, m := range c.Members {
		if m.DeclName() != head || head == "" {
			continue
		}
		if !nested {
			return m, true
		}
		if inner, ok := m.(*Class); ok {
			return inner.Lookup(rest)
		}
	}
	return nil, false
}

// =============================================================================
// STATEMENT
// =============================================================================

// Statement is any other statement.
type Statement struct {
	base

	// Name is MainGuardName or TypeCheckingGuardName for the guards,
	// otherwise "".
	Name string

	Text string
	Refs []string

	// Binds lists the names imported inside a TYPE_CHECKING guard.
	Binds []string
}

func (s *Statement) Kind() DeclKind   { return KindStatement }
func (s *Statement) DeclName() string { return s.Name }

var (
	_ Declaration = (*Import)(nil)
	_ Declaration = (*Constant)(nil)
	_ Declaration = (*Function)(nil)
	_ Declaration = (*Class)(nil)
	_ Declaration = (*Statement)(nil)
)
