// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package normalize runs the external formatter and import sorter on stubs.
//
// Generated stubs are brought to the repository's canonical style by the
// same tools developers run on committed stubs, so that a freshly generated
// stub and an up-to-date committed stub are byte-identical.
//
// # Architecture
//
//	Generate → scratch file → FORMAT → SORT IMPORTS → read back → compare
//
// # Default Tools
//
//	| Step        | Tool  | Command                     |
//	|-------------|-------|-----------------------------|
//	| Format      | black | python -m black -l 100 FILE |
//	| SortImports | isort | isort FILE                  |
//
// # Failure Handling
//
// A non-zero exit is a hard failure for that file and surfaces as a
// *ToolError carrying stdout and stderr verbatim. A missing binary yields
// ErrToolNotInstalled. No timeout is applied unless ToolConfig.Timeout is set.
//
// # Usage
//
//	p := normalize.DefaultPipeline(normalize.WithWorkingDir(root))
//	if err := p.Normalize(ctx, scratchPath); err != nil {
//	    var toolErr *normalize.ToolError
//	    if errors.As(err, &toolErr) {
//	        fmt.Println(toolErr.Output())
//	    }
//	}
package normalize
