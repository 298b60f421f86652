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
	"errors"
	"fmt"
)

// Sentinel errors for parse failure conditions.
//
// These errors can be checked using errors.Is() to determine the
// category of failure without inspecting error messages.
var (
	// ErrParseFailed indicates that the source is not syntactically valid Python.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent indicates that the provided content cannot be processed.
	//
	// Common causes:
	//   - Non-UTF-8 encoding
	//   - Content larger than the configured limit
	ErrInvalidContent = errors.New("invalid content")
)

// ParseError provides detailed information about a parse failure.
//
// Example:
//
//	mod, err := ast.Parse(ctx, content, "main.py")
//	if err != nil {
//	    var parseErr *ast.ParseError
//	    if errors.As(err, &parseErr) {
//	        fmt.Printf("Error at %s:%d:%d: %s\n",
//	            parseErr.FilePath, parseErr.Line, parseErr.Column, parseErr.Message)
//	    }
//	}
type ParseError struct {
	// FilePath is the path to the file where the error occurred.
	FilePath string

	// Line is the 1-indexed line number where the error occurred.
	// May be 0 if the error is not associated with a specific line.
	Line int

	// Column is the 1-indexed column where the error occurred.
	// May be 0 if the error is not associated with a specific column.
	Column int

	// Message describes the error in human-readable form.
	Message string

	// Cause is the underlying error. Defaults to ErrParseFailed.
	Cause error
}

// Error returns a formatted error message including file location.
//
// Format depends on available location information:
//   - With line and column: "main.py:10:5: unexpected token"
//   - With line only:       "main.py:10: unexpected token"
//   - Without location:     "main.py: unexpected token"
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ParseError) Unwrap() error {
	if e.Cause == nil {
		return ErrParseFailed
	}
	return e.Cause
}

// NewParseError creates a ParseError wrapping ErrParseFailed.
//
// Parameters:
//   - filePath: Path to the file where the error occurred.
//   - line: 1-indexed line number (0 if unknown).
//   - column: 1-indexed column number (0 if unknown).
//   - message: Human-readable error description.
func NewParseError(filePath string, line, column int, message string) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
		Cause:    ErrParseFailed,
	}
}

// IsParseError checks if an error is or wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
