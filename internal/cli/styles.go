// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

// styles is the palette one command renders with. Colors are dropped when
// the output is not a terminal.
type styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style
	Current lipgloss.Style
	User    lipgloss.Style
	Reply   lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(colorProfile(out))
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Label:   r.NewStyle().Foreground(lipgloss.Color("245")).Width(18),
		Value:   r.NewStyle().Foreground(lipgloss.Color("252")),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("242")),
		Current: r.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		User:    r.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		Reply:   r.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
	}
}

// status renders an [OK]/[FAIL]/[WARN] marker.
func (s styles) status(state string) string {
	switch strings.ToLower(state) {
	case "ok":
		return s.Success.Render("[OK]")
	case "fail":
		return s.Error.Render("[FAIL]")
	default:
		return s.Warning.Render("[WARN]")
	}
}

// field renders one "label value" line.
func (s styles) field(label, value string) string {
	return s.Label.Render(label) + s.Value.Render(value)
}
