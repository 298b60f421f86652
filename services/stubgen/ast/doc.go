// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast parses Python lab sources into a typed declaration model.
//
// Parse walks the tree-sitter syntax tree once and copies everything the stub
// generator needs (verbatim text slices, indentation, referenced names) into
// plain Go values:
//
//	Module
//	 ├─ *Import     import a.b / from m import x / from __future__ import y
//	 ├─ *Constant   NAME = <literal>, name: T
//	 ├─ *Function   decorators, verbatim header, docstring, body
//	 ├─ *Class      decorators, bases, docstring, Members (same variants)
//	 └─ *Statement  anything else, including the __main__ guard
//
// # Referenced Names
//
// Each declaration records the names it reads. Functions distinguish
// HeaderRefs (annotations and defaults, which survive into a stub) from Refs
// (the whole definition, used when a definition is kept verbatim). Docstring
// type mentions are extracted by DocstringRefs.
//
// # Thread Safety
//
// Parse and CollectNames create a new tree-sitter parser per call and are
// safe for concurrent use.
package ast
