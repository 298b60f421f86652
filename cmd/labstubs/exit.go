// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	// ExitOK means every stub matched or every requested stub was written.
	ExitOK = 0

	// ExitFailure means at least one stub is outdated, missing or failed.
	ExitFailure = 1

	// ExitConfigError means the settings or the project configuration
	// could not be loaded.
	ExitConfigError = 2
)

// errStubsOutdated is returned by check when the report is not OK.
var errStubsOutdated = errors.New("stubs are not relevant")

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// configError marks err as a configuration failure.
func configError(format string, args ...any) error {
	return &exitError{code: ExitConfigError, err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}
