// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides styled terminal output for the panelops CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// panelops color palette
var (
	ColorBrand   = lipgloss.Color("#3FB8AF") // brand accent for titles
	ColorAccent  = lipgloss.Color("#7FC7AF") // secondary accent
	ColorSuccess = lipgloss.Color("#3FB8AF")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5C6B73")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Box lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorBrand),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconSkipped Icon = "○"
	IconArrow   Icon = "→"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconSkipped:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// quiet suppresses decorative output, toggled by the --quiet flag.
var quiet bool

// SetQuiet switches the package to machine-friendly output.
func SetQuiet(q bool) { quiet = q }

// Title prints a styled title
func Title(text string) {
	if quiet {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	if quiet {
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func Warning(text string) {
	if quiet {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func Error(text string) {
	if quiet {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func Info(text string) {
	if quiet {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Row is one line of the provisioning summary table.
type Row struct {
	Name  string
	State string // "ok", "warn", "fail" or "skipped"
}

func (r Row) icon() Icon {
	switch r.State {
	case "ok":
		return IconSuccess
	case "warn":
		return IconWarning
	case "fail":
		return IconError
	default:
		return IconSkipped
	}
}

// RenderSummary formats the per-phase outcome of a provisioning run.
func RenderSummary(title string, rows []Row) string {
	var b strings.Builder
	if quiet {
		for _, row := range rows {
			fmt.Fprintf(&b, "%s: %s\n", row.Name, row.State)
		}
		return b.String()
	}

	width := 0
	for _, row := range rows {
		if len(row.Name) > width {
			width = len(row.Name)
		}
	}
	b.WriteString(Styles.Title.Render(title))
	b.WriteByte('\n')
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %-*s %s\n", row.icon().Render(), width, row.Name, Styles.Muted.Render(row.State))
	}
	return b.String()
}
