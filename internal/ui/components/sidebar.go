// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ui/styles"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// SESSION SIDEBAR
// =============================================================================

// Sidebar lists sessions, most recent first, with the current one
// highlighted.
type Sidebar struct {
	sessions  []model.Session
	currentID string
	typing    bool
	pending   int

	width  int
	height int

	theme *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme, width: styles.SidebarWidth}
}

// SetSessions replaces the listed sessions.
func (s *Sidebar) SetSessions(sessions []model.Session, currentID string) {
	s.sessions = sessions
	s.currentID = currentID
}

// SetActivity marks the current session as waiting and counts all
// replies in flight.
func (s *Sidebar) SetActivity(typing bool, pending int) {
	s.typing = typing
	s.pending = pending
}

// SetSize updates the dimensions, borders included.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// View renders the sidebar.
func (s Sidebar) View() string {
	// border 2, padding 2
	inner := s.width - 4
	if inner < 6 {
		inner = 6
	}
	rows := s.height - 2
	if rows < 3 {
		rows = 3
	}

	title := fmt.Sprintf("Chats (%d)", len(s.sessions))
	if s.pending > 0 {
		title += fmt.Sprintf(" %d replying", s.pending)
	}

	lines := []string{s.theme.SidebarTitle.Render(util.TruncateWidth(title, inner))}
	// the title's bottom margin takes one more row
	room := rows - 2

	if len(s.sessions) == 0 {
		lines = append(lines, s.theme.SidebarMeta.Render("No chats yet"))
	}

	start := 0
	if cur := s.currentIndex(); cur >= room {
		start = cur - room + 1
	}
	for i := start; i < len(s.sessions) && i-start < room; i++ {
		lines = append(lines, s.renderItem(s.sessions[i], inner))
	}

	return s.theme.Sidebar.
		Width(s.width - 2).
		Height(rows).
		Render(strings.Join(lines, "\n"))
}

func (s Sidebar) currentIndex() int {
	for i, sess := range s.sessions {
		if sess.ID == s.currentID {
			return i
		}
	}
	return -1
}

func (s Sidebar) renderItem(sess model.Session, width int) string {
	current := sess.ID == s.currentID

	prefix := "  "
	if current {
		prefix = "> "
	}
	suffix := ""
	if current && s.typing {
		suffix = " " + styles.StatusIndicators.Pending
	}

	titleWidth := width - len(prefix) - len(suffix)
	title := util.TruncateWidth(util.SingleLine(sess.Title), titleWidth)
	line := util.PadWidth(prefix+title+suffix, width)

	if current {
		return s.theme.SidebarItemSelected.Render(line)
	}
	return s.theme.SidebarItem.Render(line)
}
