// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

const sampleDiff = `--- lab_1/main.py (expected)
+++ lab_1/main.py (committed)
@@ -1,2 +1,2 @@
-def add(a, b):
+def add(a, b, c):
     pass
`

// =============================================================================
// Machine Mode Tests
// =============================================================================

func TestPrinter_MachineStatus(t *testing.T) {
	tests := []struct {
		icon Icon
		want string
	}{
		{IconSuccess, "OK: lab_1/main.py\n"},
		{IconWarning, "WARN: lab_1/main.py\n"},
		{IconError, "FAIL: lab_1/main.py\n"},
		{IconPending, "SKIP: lab_1/main.py\n"},
		{IconArrow, "-: lab_1/main.py\n"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		NewPrinter(&buf, PersonalityMachine).Status(tt.icon, "lab_1/main.py")
		if buf.String() != tt.want {
			t.Errorf("Status(%s) = %q, want %q", tt.icon, buf.String(), tt.want)
		}
	}
}

func TestPrinter_MachineHasNoDecoration(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PersonalityMachine)

	p.Heading("Checking stubs")
	p.Detail("line 3\nexpected: a")
	p.Diff(sampleDiff)
	p.Box("Summary", "1 mismatch", true)

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("machine output contains ANSI escapes: %q", out)
	}
	if strings.Contains(out, "╭") {
		t.Errorf("machine output contains box drawing: %q", out)
	}
	for _, want := range []string{"Checking stubs\n", "    line 3\n", "    expected: a\n", sampleDiff, "Summary: 1 mismatch\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_AutoIsMachine(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, PersonalityAuto)
	if p.Level() != PersonalityMachine {
		t.Errorf("Level() = %q, want machine", p.Level())
	}
}

func TestPrinter_DiffAddsTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Diff("-a\n+b")
	if buf.String() != "-a\n+b\n" {
		t.Errorf("Diff() = %q", buf.String())
	}
}

// =============================================================================
// Styled Mode Tests
// =============================================================================

func TestPrinter_MinimalStatusUsesIcons(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMinimal).Status(IconSuccess, "All stubs are relevant")
	if buf.String() != "✓ All stubs are relevant\n" {
		t.Errorf("Status() = %q", buf.String())
	}
}

func TestPrinter_StandardStatusKeepsText(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityStandard).Status(IconError, "lab_2/util.py")

	out := buf.String()
	if !strings.Contains(out, "✗") || !strings.Contains(out, "lab_2/util.py") {
		t.Errorf("Status() = %q", out)
	}
}

func TestPrinter_StandardDiffKeepsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityStandard).Diff(sampleDiff)

	out := buf.String()
	for _, line := range strings.Split(strings.TrimRight(sampleDiff, "\n"), "\n") {
		if !strings.Contains(out, line) {
			t.Errorf("diff output missing %q:\n%s", line, out)
		}
	}
}

func TestPrinter_StandardBoxDrawsBorder(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityStandard).Box("Summary", "2 labs checked", false)

	out := buf.String()
	if !strings.Contains(out, "╭") || !strings.Contains(out, "Summary") || !strings.Contains(out, "2 labs checked") {
		t.Errorf("Box() = %q", out)
	}
}

func TestPrinter_MinimalBoxIsPlain(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMinimal).Box("Summary", "ok", false)
	if buf.String() != "Summary\nok\n" {
		t.Errorf("Box() = %q", buf.String())
	}
}
