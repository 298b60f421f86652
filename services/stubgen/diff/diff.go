// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff explains why a committed stub differs from the expected one.
//
// Line-level differences are computed with sergi/go-diff and printed as a
// unified diff through sourcegraph/go-diff, so the output can be piped to
// `patch` or `git apply` to bring a stale stub up to date.
package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// DefaultContextLines is the number of unchanged lines around each hunk.
const DefaultContextLines = 3

// noNewline marks a final line without a terminating newline.
const noNewline = "\\ No newline at end of file\n"

// Diagnostic locates the first difference between two texts.
type Diagnostic struct {
	// Line and Column are 1-indexed; Column counts runes.
	Line   int
	Column int

	// Expected and Actual are the differing lines, without the newline.
	// "<EOF>" marks a text that ended before the difference.
	Expected string
	Actual   string

	// Unified is the full unified diff from expected to actual.
	Unified string
}

// String renders the first difference on one line.
func (d *Diagnostic) String() string {
	return fmt.Sprintf("first difference at line %d, column %d: expected %q, got %q",
		d.Line, d.Column, d.Expected, d.Actual)
}

// Compare diffs the expected text against the actual one.
//
// Inputs:
//
//	expectedName, actualName - Labels for the unified diff header
//	expected, actual - The texts, compared byte for byte
//
// Outputs:
//
//	*Diagnostic - nil when the texts are identical
//	error - Non-nil only if the unified diff cannot be printed
func Compare(expectedName, actualName, expected, actual string) (*Diagnostic, error) {
	line, col, differs := FirstDifference(expected, actual)
	if !differs {
		return nil, nil
	}

	unified, err := Unified(expectedName, actualName, expected, actual, DefaultContextLines)
	if err != nil {
		return nil, err
	}

	return &Diagnostic{
		Line:     line,
		Column:   col,
		Expected: lineAt(expected, line),
		Actual:   lineAt(actual, line),
		Unified:  unified,
	}, nil
}

// FirstDifference returns the 1-indexed line and column of the first
// differing byte, or differs=false for identical texts.
func FirstDifference(a, b string) (line, col int, differs bool) {
	if a == b {
		return 0, 0, false
	}
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	// Back up to the start of a multi-byte rune.
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}

	prefix := a[:i]
	line = strings.Count(prefix, "\n") + 1
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	col = utf8.RuneCountInString(prefix[lineStart:]) + 1
	return line, col, true
}

func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line-1 >= len(lines) || (line-1 == len(lines)-1 && lines[line-1] == "") {
		return "<EOF>"
	}
	return lines[line-1]
}

// =============================================================================
// UNIFIED DIFF
// =============================================================================

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

// op is one line of a line-level diff, including its newline if any.
type op struct {
	kind opKind
	text string
}

// lineOps computes a line-level diff.
func lineOps(a, b string) []op {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var ops []op
	for _, d := range diffs {
		kind := opEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = opDelete
		case diffmatchpatch.DiffInsert:
			kind = opInsert
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l != "" {
				ops = append(ops, op{kind: kind, text: l})
			}
		}
	}
	return ops
}

// Unified renders a unified diff with the given number of context lines.
//
// Returns "" when the texts have no line-level difference.
func Unified(origName, newName, orig, updated string, context int) (string, error) {
	hunks := buildHunks(lineOps(orig, updated), context)
	if len(hunks) == 0 {
		return "", nil
	}
	out, err := godiff.PrintFileDiff(&godiff.FileDiff{
		OrigName: origName,
		NewName:  newName,
		Hunks:    hunks,
	})
	if err != nil {
		return "", fmt.Errorf("printing diff: %w", err)
	}
	return string(out), nil
}

// buildHunks groups changed lines with their surrounding context. Changes
// separated by at most 2*context unchanged lines share a hunk.
func buildHunks(ops []op, context int) []*godiff.Hunk {
	if context < 0 {
		context = 0
	}

	// Lines preceding each op in the original and updated texts.
	oldBefore := make([]int, len(ops)+1)
	newBefore := make([]int, len(ops)+1)
	for i, o := range ops {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if o.kind != opInsert {
			oldBefore[i+1]++
		}
		if o.kind != opDelete {
			newBefore[i+1]++
		}
	}

	var hunks []*godiff.Hunk
	for i := 0; i < len(ops); {
		if ops[i].kind == opEqual {
			i++
			continue
		}

		start := max(0, i-context)
		lastChange := i
		for j := i; j < len(ops); j++ {
			if ops[j].kind != opEqual {
				lastChange = j
				continue
			}
			if j-lastChange > 2*context {
				break
			}
		}
		end := min(len(ops), lastChange+context+1)

		hunks = append(hunks, makeHunk(ops[start:end], oldBefore[start], newBefore[start]))
		i = end
	}
	return hunks
}

func makeHunk(ops []op, oldBefore, newBefore int) *godiff.Hunk {
	var (
		body     strings.Builder
		oldLines int
		newLines int
	)
	for _, o := range ops {
		switch o.kind {
		case opEqual:
			body.WriteByte(' ')
			oldLines++
			newLines++
		case opDelete:
			body.WriteByte('-')
			oldLines++
		case opInsert:
			body.WriteByte('+')
			newLines++
		}
		body.WriteString(o.text)
		if !strings.HasSuffix(o.text, "\n") {
			body.WriteString("\n" + noNewline)
		}
	}

	h := &godiff.Hunk{
		OrigStartLine: int32(oldBefore + 1),
		OrigLines:     int32(oldLines),
		NewStartLine:  int32(newBefore + 1),
		NewLines:      int32(newLines),
		Body:          []byte(body.String()),
	}
	if oldLines == 0 {
		h.OrigStartLine = int32(oldBefore)
	}
	if newLines == 0 {
		h.NewStartLine = int32(newBefore)
	}
	return h
}
