// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/localchat/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

// Welcome is the onboarding screen shown until the user dismisses it once.
type Welcome struct {
	version  string
	userName string

	width  int
	height int

	theme *styles.Theme
}

// NewWelcome creates a new welcome screen.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{version: "dev", theme: theme}
}

// SetVersion sets the version string.
func (w *Welcome) SetVersion(version string) {
	w.version = version
}

// SetUserName personalises the greeting.
func (w *Welcome) SetUserName(name string) {
	w.userName = name
}

// SetSize updates the dimensions.
func (w *Welcome) SetSize(width, height int) {
	w.width = width
	w.height = height
}

var welcomeKeys = [][2]string{
	{"enter", "send a message"},
	{"ctrl+n", "start a new chat"},
	{"ctrl+o", "pick a model"},
	{"tab", "switch between chats"},
	{"ctrl+y", "copy the last reply"},
}

// View renders the welcome screen centered in the available space.
func (w Welcome) View() string {
	width := w.width
	if width == 0 {
		width = 80
	}
	height := w.height
	if height == 0 {
		height = 24
	}

	boxWidth := 56
	if boxWidth > width-4 {
		boxWidth = width - 4
	}
	if boxWidth < 20 {
		boxWidth = 20
	}

	greeting := "Welcome to localchat"
	if w.userName != "" {
		greeting = "Welcome to localchat, " + w.userName
	}

	var b strings.Builder
	b.WriteString(w.theme.WelcomeLogo.Render(greeting))
	b.WriteString("\n")
	b.WriteString(w.theme.WelcomeInfo.Render("version " + w.version))
	b.WriteString("\n\n")
	b.WriteString(w.theme.WelcomeInfo.Render("Chat with models running on your own machine through Ollama."))
	b.WriteString("\n\n")
	for _, kv := range welcomeKeys {
		b.WriteString(w.theme.WelcomeKey.Render(kv[0]))
		b.WriteString("  ")
		b.WriteString(w.theme.WelcomeInfo.Render(kv[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(w.theme.WelcomePressKey.Render("Press any key to start"))

	box := w.theme.WelcomeBox.Width(boxWidth).Render(b.String())
	if lipgloss.Height(box) >= height {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
