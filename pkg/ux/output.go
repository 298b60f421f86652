// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders human-facing command output.
//
// Output is written through a Printer bound to one writer and one
// personality level. The machine level never emits ANSI sequences or
// box drawing, so CI logs stay greppable.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Icon provides status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
)

// machineTag is the plain-text prefix of an icon in machine mode.
func (i Icon) machineTag() string {
	switch i {
	case IconSuccess:
		return "OK"
	case IconWarning:
		return "WARN"
	case IconError:
		return "FAIL"
	case IconPending:
		return "SKIP"
	default:
		return "-"
	}
}

// styles are bound to the renderer of one writer.
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	box     lipgloss.Style
	errBox  lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		muted:   r.NewStyle().Foreground(ColorSlate),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		error:   r.NewStyle().Foreground(ColorError),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
		errBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1),
		added:   r.NewStyle().Foreground(ColorSuccess),
		removed: r.NewStyle().Foreground(ColorError),
		hunk:    r.NewStyle().Foreground(ColorTealPrimary),
	}
}

// Printer writes styled output respecting a personality level.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	w      io.Writer
	level  PersonalityLevel
	styles styles
}

// NewPrinter creates a printer. PersonalityAuto is treated as machine;
// resolve it with ResolvePersonality first.
func NewPrinter(w io.Writer, level PersonalityLevel) *Printer {
	if level == PersonalityAuto {
		level = PersonalityMachine
	}
	return &Printer{
		w:      w,
		level:  level,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Level returns the personality level of the printer.
func (p *Printer) Level() PersonalityLevel {
	return p.level
}

// Heading prints a section title. Machine mode prints it unstyled.
func (p *Printer) Heading(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintln(p.w, p.styles.title.Render(text))
}

// Status prints one status line.
func (p *Printer) Status(icon Icon, text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.w, "%s: %s\n", icon.machineTag(), text)
	case PersonalityMinimal:
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", p.renderIcon(icon), text)
	}
}

func (p *Printer) renderIcon(icon Icon) string {
	switch icon {
	case IconSuccess:
		return p.styles.success.Render(string(icon))
	case IconWarning:
		return p.styles.warning.Render(string(icon))
	case IconError:
		return p.styles.error.Render(string(icon))
	case IconPending:
		return p.styles.muted.Render(string(icon))
	default:
		return string(icon)
	}
}

// Detail prints secondary text indented under the previous status line.
func (p *Printer) Detail(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if p.level == PersonalityStandard {
			line = p.styles.muted.Render(line)
		}
		fmt.Fprintf(p.w, "    %s\n", line)
	}
}

// Diff prints a unified diff, colored per line outside machine mode.
func (p *Printer) Diff(unified string) {
	if p.level != PersonalityStandard {
		fmt.Fprint(p.w, unified)
		if !strings.HasSuffix(unified, "\n") {
			fmt.Fprintln(p.w)
		}
		return
	}
	for _, line := range strings.Split(strings.TrimRight(unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = p.styles.title.Render(line)
		case strings.HasPrefix(line, "@@"):
			line = p.styles.hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			line = p.styles.added.Render(line)
		case strings.HasPrefix(line, "-"):
			line = p.styles.removed.Render(line)
		}
		fmt.Fprintln(p.w, line)
	}
}

// Box prints a titled summary. Failure boxes use the error border.
// Machine mode prints "title: content".
func (p *Printer) Box(title, content string, failure bool) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	if p.level == PersonalityMinimal {
		fmt.Fprintf(p.w, "%s\n%s\n", title, content)
		return
	}
	style := p.styles.box
	titleLine := p.styles.title.Render(title)
	if failure {
		style = p.styles.errBox
		titleLine = p.styles.error.Bold(true).Render(title)
	}
	fmt.Fprintln(p.w, style.Render(titleLine+"\n"+content))
}
