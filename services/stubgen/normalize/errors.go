// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the normalize package.
var (
	// ErrToolNotInstalled indicates the tool binary was not found in PATH.
	ErrToolNotInstalled = errors.New("tool not installed")

	// ErrToolTimeout indicates the tool exceeded its configured timeout.
	ErrToolTimeout = errors.New("tool timeout")

	// ErrToolFailed indicates the tool exited non-zero or could not start.
	ErrToolFailed = errors.New("tool execution failed")

	// ErrInvalidInput indicates invalid input to a normalize function.
	ErrInvalidInput = errors.New("invalid input")
)

// ToolError wraps a failure of one external tool with its captured output.
//
// Stdout and Stderr are kept verbatim so they can be shown to the user.
//
// Thread Safety: Immutable after creation.
type ToolError struct {
	// Tool is the configured tool name (e.g., "black").
	Tool string

	// ExitCode is the process exit code, or -1 if it never ran to completion.
	ExitCode int

	// Stdout and Stderr are the captured output streams.
	Stdout string
	Stderr string

	// Err is one of the sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Tool, e.Err)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Output returns both streams for display, stdout first.
func (e *ToolError) Output() string {
	switch {
	case e.Stdout == "":
		return e.Stderr
	case e.Stderr == "":
		return e.Stdout
	default:
		return e.Stdout + "\n" + e.Stderr
	}
}
