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
	"errors"
	"fmt"
)

// ErrRuleViolation indicates the source or the rules cannot produce a stub.
var ErrRuleViolation = errors.New("rule violation")

// Reasons carried by RuleViolationError.
const (
	ReasonUnknownDeclaration = "rule references unknown declaration"
	ReasonNotAFunction       = "placeholder rule references a non-function"
	ReasonImportNotAccepted  = "used import is not accepted"
	ReasonInvalidInject      = "inject statement is not valid Python"
	ReasonInvalidPlaceholder = "placeholder is not valid Python"
)

// RuleViolationError describes why a file's rules could not be applied.
//
// Thread Safety: Immutable after creation.
type RuleViolationError struct {
	// Path is the root-relative implementation path.
	Path string

	// Symbol is the offending name, rule entry or statement.
	Symbol string

	// Module is the import source when the violation concerns an import.
	Module string

	// Reason is one of the Reason constants.
	Reason string
}

// Error implements the error interface.
func (e *RuleViolationError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: %s: %q from %q", e.Path, e.Reason, e.Symbol, e.Module)
	}
	return fmt.Sprintf("%s: %s: %q", e.Path, e.Reason, e.Symbol)
}

// Unwrap returns ErrRuleViolation for errors.Is support.
func (e *RuleViolationError) Unwrap() error {
	return ErrRuleViolation
}
