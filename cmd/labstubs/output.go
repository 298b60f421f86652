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
	"path"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/LabStubs/pkg/ux"
	"github.com/AleutianAI/LabStubs/services/stubgen/check"
)

// allRelevant is printed when every stub matches.
const allRelevant = "All stubs are relevant"

// stubRel is the stub path of a pair relative to the root.
func stubRel(pair check.StubPair) string {
	return path.Join(path.Dir(pair.RelPath), filepath.Base(pair.Stub))
}

// printReport prints every result lab by lab and a closing summary.
func printReport(p *ux.Printer, report *check.Report) {
	p.Heading("Checking stubs")
	for _, lab := range report.Labs {
		p.Status(ux.IconArrow, fmt.Sprintf("Processing %s...", lab.Lab))
		for _, res := range lab.Results {
			printResult(p, res)
		}
	}

	if report.OverallOK {
		p.Status(ux.IconSuccess, allRelevant)
		return
	}
	p.Box("Stubs are not relevant", summarize(report), true)
}

// printResult prints one result with its diagnostic, if any.
func printResult(p *ux.Printer, res check.CheckResult) {
	rel := res.Pair.RelPath
	switch res.Status {
	case check.StatusMatch:
		p.Status(ux.IconSuccess, rel)
	case check.StatusContentMismatch:
		p.Status(ux.IconError, fmt.Sprintf("%s and %s differ", rel, stubRel(res.Pair)))
		if res.Diagnostic != nil {
			p.Detail(res.Diagnostic.String())
			p.Diff(res.Diagnostic.Unified)
		}
	case check.StatusMissingImplementation:
		p.Status(ux.IconError, fmt.Sprintf("%s: implementation not found", rel))
	case check.StatusMissingStub:
		p.Status(ux.IconError, fmt.Sprintf("%s: stub not found", stubRel(res.Pair)))
	default:
		p.Status(ux.IconError, fmt.Sprintf("%s: %v", rel, res.Err))
	}
}

// summarize renders the non-zero status counts in a fixed order.
func summarize(report *check.Report) string {
	counts := report.Counts()
	var parts []string
	for _, s := range []check.Status{
		check.StatusMatch,
		check.StatusContentMismatch,
		check.StatusMissingImplementation,
		check.StatusMissingStub,
		check.StatusFailed,
	} {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	return strings.Join(parts, " ")
}

// printErrors prints every error joined into err on its own line.
func printErrors(p *ux.Printer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			printErrors(p, e)
		}
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		err = ee.err
	}
	p.Status(ux.IconError, err.Error())
}
