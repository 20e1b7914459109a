// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	chatstore "github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/profile"
	"github.com/jeranaias/localchat/internal/ui/components"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// composerLines is the textarea height.
const composerLines = 3

// Deps are the collaborators of the chat view.
type Deps struct {
	// Ctx bounds every store call the view starts.
	Ctx context.Context

	Chat    *chatstore.Store
	Profile *profile.Store

	// LoadModels lists models and applies the startup model choice.
	// Defaults to Chat.LoadModels.
	LoadModels func(ctx context.Context) []model.ModelInfo

	// Copy writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Copy func(text string) error

	Theme   *styles.Theme
	Logger  *zap.Logger
	Version string
}

// Model is the chat view.
type Model struct {
	deps  Deps
	keys  KeyMap
	theme *styles.Theme

	// state is the last store snapshot rendered.
	state chatstore.State

	sub         <-chan struct{}
	unsubscribe func()

	textarea  textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	spinning  bool
	sidebar   components.Sidebar
	picker    *components.ModelPicker
	statusBar *components.StatusBar
	welcome   components.Welcome

	showWelcome bool

	width  int
	height int
	ready  bool

	// renderer renders assistant markdown at rendererWidth. rendered
	// caches output per message id and is reset when the width changes.
	renderer      *glamour.TermRenderer
	rendererWidth int
	rendered      map[string]string

	// lastSessionID and lastCount decide when to jump to the bottom.
	lastSessionID string
	lastCount     int
}

// New creates the chat view and subscribes it to the store.
func New(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.LoadModels == nil {
		deps.LoadModels = deps.Chat.LoadModels
	}
	if deps.Copy == nil {
		deps.Copy = clipboard.WriteAll
	}
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme(deps.Profile.Profile().Preferences.Theme)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(composerLines)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.Spinner

	keys := DefaultKeyMap()
	status := components.NewStatusBar(deps.Theme)
	status.SetShortcuts(keys.ShortHelp())

	welcome := components.NewWelcome(deps.Theme)
	welcome.SetVersion(deps.Version)
	welcome.SetUserName(deps.Profile.Profile().Name)

	sub, unsubscribe := deps.Chat.Subscribe()

	m := Model{
		deps:        deps,
		keys:        keys,
		theme:       deps.Theme,
		sub:         sub,
		unsubscribe: unsubscribe,
		textarea:    ta,
		viewport:    vp,
		spinner:     sp,
		sidebar:     components.NewSidebar(deps.Theme),
		picker:      components.NewModelPicker(deps.Theme),
		statusBar:   status,
		welcome:     welcome,
		showWelcome: !deps.Profile.HasSeenOnboarding(),
		rendered:    make(map[string]string),
	}
	m.state = deps.Chat.Snapshot()
	return m
}

// Close drops the store subscription. Safe to call more than once.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// State returns the snapshot the view last rendered.
func (m Model) State() chatstore.State {
	return m.state
}

// ShowingWelcome reports whether the welcome screen is up.
func (m Model) ShowingWelcome() bool {
	return m.showWelcome
}

// PickerOpen reports whether the model picker is up.
func (m Model) PickerOpen() bool {
	return m.picker.IsVisible()
}

// Notice is the status bar message.
func (m Model) Notice() string {
	return m.statusBar.Notice()
}

// Composer is the current composer text.
func (m Model) Composer() string {
	return m.textarea.Value()
}

// ComposerEnabled reports whether typing goes into the composer.
func (m Model) ComposerEnabled() bool {
	return m.textarea.Focused()
}
