// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/localchat/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents what the app is doing right now.
type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusThinking
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading models"
	case StatusThinking:
		return "Thinking"
	default:
		return "Ready"
	}
}

// StatusBar is the bottom line: status, the last notice and key hints.
type StatusBar struct {
	status    Status
	notice    string
	isError   bool
	shortcuts []key.Binding
	width     int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// SetStatus sets the status.
func (s *StatusBar) SetStatus(status Status) {
	s.status = status
}

// SetNotice shows a transient message. An empty text clears it.
func (s *StatusBar) SetNotice(text string, isError bool) {
	s.notice = text
	s.isError = isError
}

// Notice returns the notice currently shown.
func (s *StatusBar) Notice() string {
	return s.notice
}

// SetShortcuts sets the key hints shown on the right.
func (s *StatusBar) SetShortcuts(bindings []key.Binding) {
	s.shortcuts = bindings
}

// View renders the status bar. Key hints are dropped from the right
// until everything fits.
func (s *StatusBar) View() string {
	indicator := styles.StatusIndicators.Success
	if s.status != StatusReady {
		indicator = styles.StatusIndicators.Pending
	}
	left := indicator + " " + s.status.String()
	if s.notice != "" {
		style := s.theme.Notice
		if s.isError {
			style = s.theme.ErrorText
		}
		left += "  " + style.Render(s.notice)
	}

	width := s.width
	if width <= 0 {
		return s.theme.StatusBar.Render(left)
	}
	// StatusBar padding
	room := width - 2

	hints := s.renderShortcuts()
	for len(hints) > 0 {
		line := strings.Join(hints, "  ")
		gap := room - lipgloss.Width(left) - lipgloss.Width(line)
		if gap >= 2 {
			return s.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + line)
		}
		hints = hints[:len(hints)-1]
	}
	return s.theme.StatusBar.Width(width).Render(left)
}

func (s *StatusBar) renderShortcuts() []string {
	out := make([]string, 0, len(s.shortcuts))
	for _, b := range s.shortcuts {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		out = append(out, s.theme.ShortcutKey.Render(h.Key)+" "+s.theme.ShortcutDesc.Render(h.Desc))
	}
	return out
}
