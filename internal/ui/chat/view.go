// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ui/styles"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight    = 1
	statusBarHeight = 1
	// composer lines plus its border
	composerHeight = composerLines + 2
	minMainWidth   = 20
)

// layout sizes every widget from the window size.
func (m *Model) layout() {
	bodyHeight := m.height - headerHeight - statusBarHeight
	if bodyHeight < composerHeight+3 {
		bodyHeight = composerHeight + 3
	}

	sidebarWidth := styles.SidebarWidth
	if m.width-sidebarWidth < minMainWidth {
		sidebarWidth = 0
	}
	mainWidth := m.width - sidebarWidth
	if mainWidth < minMainWidth {
		mainWidth = minMainWidth
	}

	m.sidebar.SetSize(sidebarWidth, bodyHeight)
	m.viewport.Width = mainWidth
	m.viewport.Height = bodyHeight - composerHeight
	m.textarea.SetWidth(mainWidth - 2)
	m.statusBar.SetWidth(m.width)
	m.picker.SetSize(m.width, m.height)
	m.welcome.SetSize(m.width, m.height)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showWelcome {
		return m.welcome.View()
	}
	if m.picker.IsVisible() {
		return m.picker.View()
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderComposer(),
	)
	body := main
	if m.viewport.Width < m.width {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.statusBar.View(),
	)
}

func (m Model) renderHeader() string {
	modelName := m.state.SelectedModel
	if modelName == "" {
		modelName = "no model"
	}
	title := ""
	if sess, ok := m.state.Current(); ok {
		title = sess.Title
	}

	left := m.theme.HeaderBrand.Render("localchat") + "  " + m.theme.HeaderModel.Render(modelName)
	room := m.width - lipgloss.Width(left) - 4
	if title != "" && room > 8 {
		left += "  " + m.theme.MessageMeta.Render(util.TruncateWidth(util.SingleLine(title), room))
	}
	return m.theme.Header.Width(m.width).Render(left)
}

func (m Model) renderComposer() string {
	style := m.theme.Composer
	if !m.textarea.Focused() {
		style = m.theme.ComposerDisabled
	}
	return style.Render(m.textarea.View())
}

// =============================================================================
// THREAD
// =============================================================================

// refreshThread re-renders the current session into the viewport and
// follows the bottom when the session changed or grew.
func (m *Model) refreshThread() {
	if !m.ready {
		return
	}

	sess, ok := m.state.Current()
	m.viewport.SetContent(m.renderThread(sess, ok))

	count := len(sess.Messages)
	if sess.ID != m.lastSessionID || count != m.lastCount || m.state.Typing {
		m.viewport.GotoBottom()
	}
	m.lastSessionID = sess.ID
	m.lastCount = count
}

func (m *Model) renderThread(sess model.Session, ok bool) string {
	width := m.viewport.Width
	if !ok || len(sess.Messages) == 0 {
		return m.renderEmpty(width)
	}

	parts := make([]string, 0, len(sess.Messages)+1)
	for _, msg := range sess.Messages {
		switch msg.Role {
		case model.RoleUser:
			parts = append(parts, m.renderUserMessage(msg, width))
		default:
			parts = append(parts, m.renderAssistantMessage(msg, width))
		}
	}
	if m.state.Typing {
		parts = append(parts, m.spinner.View()+" "+m.theme.ThinkingText.Render(sess.ModelID+" is thinking..."))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderEmpty(width int) string {
	var text string
	switch {
	case m.state.Loading:
		text = m.spinner.View() + " Loading models..."
	case m.state.SelectedModel == "":
		text = "No model selected. Press ctrl+o to pick one."
	default:
		text = "Start a conversation with " + m.state.SelectedModel + ".\nType a message and press enter."
	}
	return m.theme.EmptyState.Width(width).Render("\n\n" + text)
}

// renderUserMessage renders a right-aligned bubble.
func (m *Model) renderUserMessage(msg model.Message, width int) string {
	maxBubble := width * 3 / 4
	if maxBubble < 10 {
		maxBubble = 10
	}
	content := msg.Content
	bubble := m.theme.UserBubble
	if lipgloss.Width(content)+4 > maxBubble {
		bubble = bubble.Width(maxBubble - 2)
	}
	rendered := bubble.Render(content)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, rendered)
}

// renderAssistantMessage renders markdown through glamour with a role
// label above it.
func (m *Model) renderAssistantMessage(msg model.Message, width int) string {
	label := m.theme.RoleLabel.Render(model.RoleAssistant.DisplayName())
	if msg.ModelUsed != "" {
		label += " " + m.theme.MessageMeta.Render(msg.ModelUsed)
	}
	body := m.renderMarkdown(msg, width-2)
	return label + "\n" + m.theme.AssistantBlock.Render(body)
}

func (m *Model) renderMarkdown(msg model.Message, width int) string {
	if width < 10 {
		width = 10
	}
	if m.rendererWidth != width || m.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.deps.Logger.Warn("markdown renderer unavailable", zap.Error(err))
			return lipgloss.NewStyle().Width(width).Render(msg.Content)
		}
		m.renderer = r
		m.rendererWidth = width
		m.rendered = make(map[string]string)
	}

	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out, err := m.renderer.Render(msg.Content)
	if err != nil {
		m.deps.Logger.Debug("markdown render failed", zap.String("message", msg.ID), zap.Error(err))
		out = lipgloss.NewStyle().Width(width).Render(msg.Content)
	}
	out = strings.Trim(out, "\n")
	m.rendered[msg.ID] = out
	return out
}
