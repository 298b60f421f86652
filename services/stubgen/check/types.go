// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/LabStubs/services/stubgen/diff"
	"github.com/AleutianAI/LabStubs/services/stubgen/project"
)

// =============================================================================
// STUB PAIRS
// =============================================================================

const (
	stubSuffix    = "_stub"
	scratchPrefix = "example_"
)

// StubPair links an implementation file to its committed stub.
type StubPair struct {
	// Lab is the lab name as configured.
	Lab string

	// RelPath is the implementation path relative to the root, in slash
	// form. It selects the file rules.
	RelPath string

	// Implementation, Stub and Scratch are absolute or root-joined paths.
	Implementation string
	Stub           string
	Scratch        string
}

// NewStubPair derives the pair for one configured implementation file.
//
// Description:
//
//	For "main.py" in lab "lab_1" under root the pair is
//	root/lab_1/main.py, root/lab_1/main_stub.py and the scratch file
//	root/lab_1/example_main_stub.py.
func NewStubPair(root, lab, file string) StubPair {
	dir := filepath.Join(root, filepath.FromSlash(lab))
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)

	return StubPair{
		Lab:            lab,
		RelPath:        path.Join(filepath.ToSlash(lab), file),
		Implementation: filepath.Join(dir, file),
		Stub:           filepath.Join(dir, base+stubSuffix+ext),
		Scratch:        filepath.Join(dir, scratchPrefix+base+stubSuffix+ext),
	}
}

// PairsFor returns the stub pairs of a lab in configuration order.
func PairsFor(root string, lab project.Lab) []StubPair {
	pairs := make([]StubPair, 0, len(lab.Stubs))
	for _, file := range lab.Stubs {
		pairs = append(pairs, NewStubPair(root, lab.Name, file))
	}
	return pairs
}

// IsGenerated reports whether a file name is a stub or a scratch file.
func IsGenerated(name string) bool {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, stubSuffix) || strings.HasPrefix(base, scratchPrefix)
}

// =============================================================================
// RESULTS
// =============================================================================

// Status is the verdict for one stub pair.
type Status int

const (
	// StatusMatch means the committed stub equals the regenerated one.
	StatusMatch Status = iota

	// StatusContentMismatch means the committed stub has drifted.
	StatusContentMismatch

	// StatusMissingImplementation means the implementation file does not exist.
	StatusMissingImplementation

	// StatusMissingStub means the committed stub does not exist.
	StatusMissingStub

	// StatusFailed means the stub could not be regenerated; see CheckResult.Err.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusMatch:
		return "match"
	case StatusContentMismatch:
		return "content_mismatch"
	case StatusMissingImplementation:
		return "missing_implementation"
	case StatusMissingStub:
		return "missing_stub"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CheckResult is the outcome of checking one stub pair.
type CheckResult struct {
	Pair   StubPair
	Status Status

	// Diagnostic is set for StatusContentMismatch.
	Diagnostic *diff.Diagnostic

	// Err is set for StatusFailed: a parse error, a rule violation, a
	// normalizer failure or an I/O error.
	Err error

	Duration time.Duration
}

// OK reports whether the stub is up to date.
func (r CheckResult) OK() bool {
	return r.Status == StatusMatch
}

// LabReport holds the results of one lab in configuration order.
type LabReport struct {
	Lab     string
	Results []CheckResult
}

// Report is the outcome of a checker run.
type Report struct {
	// RunID identifies the run in logs and traces.
	RunID string

	// OverallOK is true when every result is StatusMatch.
	OverallOK bool

	// Labs holds one entry per checked lab, in input order.
	Labs []LabReport
}

// PerLab maps each lab name to its results.
func (r *Report) PerLab() map[string][]CheckResult {
	out := make(map[string][]CheckResult, len(r.Labs))
	for _, lab := range r.Labs {
		out[lab.Lab] = lab.Results
	}
	return out
}

// Results returns every result, lab by lab.
func (r *Report) Results() []CheckResult {
	var out []CheckResult
	for _, lab := range r.Labs {
		out = append(out, lab.Results...)
	}
	return out
}

// Failures returns every result that is not a match.
func (r *Report) Failures() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results() {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Counts returns the number of results per status.
func (r *Report) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, res := range r.Results() {
		out[res.Status]++
	}
	return out
}
