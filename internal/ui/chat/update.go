// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	chatstore "github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ui/components"
)

// =============================================================================
// MESSAGES
// =============================================================================

// stateChangedMsg signals that the store changed.
type stateChangedMsg struct{}

// modelsLoadedMsg carries the result of the startup model listing.
type modelsLoadedMsg struct {
	models []model.ModelInfo
}

// sendDoneMsg is sent when a SendMessage call returns.
type sendDoneMsg struct {
	err error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	err error
}

// ReloadedMsg tells the view the stores were reloaded from disk.
type ReloadedMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForChange blocks until the store signals a change. The
// subscription channel closes on Close, ending the wait.
func waitForChange(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m Model) loadModelsCmd() tea.Cmd {
	load, ctx := m.deps.LoadModels, m.deps.Ctx
	return func() tea.Msg {
		return modelsLoadedMsg{models: load(ctx)}
	}
}

func (m Model) sendCmd(content string) tea.Cmd {
	store, ctx := m.deps.Chat, m.deps.Ctx
	return func() tea.Msg {
		return sendDoneMsg{err: store.SendMessage(ctx, content)}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	write := m.deps.Copy
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the models and starts listening for store changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadModelsCmd(),
		waitForChange(m.sub),
		textarea.Blink,
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refreshThread()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case stateChangedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, waitForChange(m.sub))

	case ReloadedMsg:
		m.statusBar.SetNotice("Reloaded from disk", false)
		return m, m.refresh()

	case modelsLoadedMsg:
		if len(msg.models) == 0 {
			m.statusBar.SetNotice("No models available", true)
		}
		return m, m.refresh()

	case sendDoneMsg:
		if msg.err != nil {
			m.deps.Logger.Debug("send rejected", zap.Error(msg.err))
			if errors.Is(msg.err, chatstore.ErrGenerationInFlight) {
				m.statusBar.SetNotice("Still waiting for the last reply", true)
			} else {
				m.statusBar.SetNotice(msg.err.Error(), true)
			}
		}
		return m, m.refresh()

	case copiedMsg:
		if msg.err != nil {
			m.deps.Logger.Warn("clipboard write failed", zap.Error(msg.err))
			m.statusBar.SetNotice("Copy failed: "+msg.err.Error(), true)
		} else {
			m.statusBar.SetNotice("Copied last reply", false)
		}
		return m, nil

	case components.PickModelMsg:
		m.deps.Chat.SelectModel(msg.Name)
		m.statusBar.SetNotice("Model: "+msg.Name, false)
		return m, m.refresh()

	case components.ClosePickerMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Typing {
			m.refreshThread()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.showWelcome {
		m.showWelcome = false
		m.deps.Profile.MarkOnboardingSeen()
		return m, nil
	}

	if m.picker.IsVisible() {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.CloseDialog):
		m.statusBar.SetNotice("", false)
		return m, nil

	case key.Matches(msg, m.keys.PickModel):
		m.picker.Show(m.state.AvailableModels, m.state.SelectedModel)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.deps.Chat.CreateSession("")
		m.statusBar.SetNotice("", false)
		return m, m.refresh()

	case key.Matches(msg, m.keys.DeleteChat):
		if m.state.CurrentSessionID == "" {
			return m, nil
		}
		if err := m.deps.Chat.DeleteSession(m.state.CurrentSessionID); err != nil {
			m.statusBar.SetNotice(err.Error(), true)
		}
		return m, m.refresh()

	case key.Matches(msg, m.keys.NextChat):
		m.switchBy(1)
		return m, m.refresh()

	case key.Matches(msg, m.keys.PrevChat):
		m.switchBy(-1)
		return m, m.refresh()

	case key.Matches(msg, m.keys.CopyReply):
		text, ok := m.lastReply()
		if !ok {
			m.statusBar.SetNotice("No reply to copy", true)
			return m, nil
		}
		return m, m.copyCmd(text)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		if m.textarea.Focused() {
			m.textarea.InsertString("\n")
		}
		return m, nil
	}

	if !m.textarea.Focused() {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// submit hands the composer text to the store. The composer is cleared
// right away; the store's notification brings the message into the
// thread.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state.Typing {
		m.statusBar.SetNotice("Still waiting for the last reply", true)
		return m, nil
	}
	content := m.textarea.Value()
	if strings.TrimSpace(content) == "" {
		return m, nil
	}
	if m.state.SelectedModel == "" {
		m.statusBar.SetNotice("No model selected", true)
		return m, nil
	}
	m.textarea.Reset()
	m.statusBar.SetNotice("", false)
	return m, m.sendCmd(content)
}

// switchBy moves the current session delta steps through the sidebar
// order, wrapping around.
func (m *Model) switchBy(delta int) {
	sessions := m.state.Sessions
	if len(sessions) == 0 {
		return
	}
	idx := -1
	for i, s := range sessions {
		if s.ID == m.state.CurrentSessionID {
			idx = i
			break
		}
	}
	next := (idx + delta + len(sessions)) % len(sessions)
	if idx < 0 {
		next = 0
	}
	if err := m.deps.Chat.SwitchSession(sessions[next].ID); err != nil {
		m.statusBar.SetNotice(err.Error(), true)
	}
}

func (m Model) lastReply() (string, bool) {
	sess, ok := m.state.Current()
	if !ok {
		return "", false
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == model.RoleAssistant {
			return sess.Messages[i].Content, true
		}
	}
	return "", false
}

func (m Model) busy() bool {
	return m.state.Typing || m.state.Loading
}

// refresh takes a new snapshot and syncs every widget to it. It returns
// a spinner tick when work just started.
func (m *Model) refresh() tea.Cmd {
	m.state = m.deps.Chat.Snapshot()

	m.sidebar.SetSessions(m.state.Sessions, m.state.CurrentSessionID)
	m.sidebar.SetActivity(m.state.Typing, m.state.Pending)

	var cmds []tea.Cmd
	switch {
	case m.state.Typing:
		m.statusBar.SetStatus(components.StatusThinking)
	case m.state.Loading:
		m.statusBar.SetStatus(components.StatusLoading)
	default:
		m.statusBar.SetStatus(components.StatusReady)
	}

	if m.state.Typing {
		m.textarea.Blur()
		m.textarea.Placeholder = "Waiting for the reply..."
	} else if !m.textarea.Focused() {
		m.textarea.Placeholder = "Type a message..."
		cmds = append(cmds, m.textarea.Focus())
	}

	if m.busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}

	m.refreshThread()
	return tea.Batch(cmds...)
}
