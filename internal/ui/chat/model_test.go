// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatstore "github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/kv"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/profile"
	"github.com/jeranaias/localchat/internal/ui/components"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fakeBackend struct {
	models []model.ModelInfo
	// gate, when set, holds every Generate until it is closed.
	gate chan struct{}
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return f.models, nil
}

func (f *fakeBackend) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("%s says: %s", modelName, prompt), nil
}

type fixture struct {
	store   *chatstore.Store
	profile *profile.Store
	backend *fakeBackend
	copied  []string
	copyErr error
}

func newFixture(t *testing.T, seenWelcome bool) *fixture {
	t.Helper()
	mem := kv.NewMemoryStore()
	f := &fixture{backend: &fakeBackend{models: []model.ModelInfo{
		{Name: "llama3.2", Size: 2_000_000_000},
		{Name: "phi3", Size: 2_200_000_000},
	}}}
	f.store = chatstore.New(mem, f.backend, chatstore.Options{})
	f.profile = profile.New(mem, profile.Options{})
	require.NoError(t, f.store.Load())
	require.NoError(t, f.profile.Load())
	if seenWelcome {
		f.profile.MarkOnboardingSeen()
	}
	return f
}

func (f *fixture) newModel(t *testing.T) Model {
	t.Helper()
	m := New(Deps{
		Chat:    f.store,
		Profile: f.profile,
		Theme:   styles.NewTheme(model.ThemeDark),
		Copy: func(text string) error {
			if f.copyErr != nil {
				return f.copyErr
			}
			f.copied = append(f.copied, text)
			return nil
		},
	})
	t.Cleanup(m.Close)
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

// ready returns a model whose models are loaded, so the store holds one
// empty session bound to llama3.2.
func (f *fixture) ready(t *testing.T) Model {
	t.Helper()
	m := f.newModel(t)
	msg := m.loadModelsCmd()()
	return update(t, m, msg)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// =============================================================================
// STARTUP
// =============================================================================

func TestModel_LoadModelsSelectsFirstAndCreatesSession(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	st := m.State()
	assert.Equal(t, "llama3.2", st.SelectedModel)
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, st.Sessions[0].ID, st.CurrentSessionID)
	assert.Contains(t, m.View(), "localchat")
	assert.Contains(t, m.View(), "Start a conversation with llama3.2")
}

func TestModel_StoreChangeIsPickedUp(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	id := f.store.CreateSession("phi3")
	m = update(t, m, stateChangedMsg{})

	assert.Equal(t, id, m.State().CurrentSessionID)
	assert.Len(t, m.State().Sessions, 2)
}

func TestModel_WaitForChangeEndsOnClose(t *testing.T) {
	f := newFixture(t, true)
	m := f.newModel(t)

	wait := waitForChange(m.sub)
	f.store.CreateSession("")
	assert.Equal(t, stateChangedMsg{}, wait())

	m.Close()
	assert.Nil(t, wait())
}

// =============================================================================
// WELCOME
// =============================================================================

func TestModel_WelcomeShownOnceAndDismissedByAnyKey(t *testing.T) {
	f := newFixture(t, false)
	m := f.newModel(t)

	require.True(t, m.ShowingWelcome())
	assert.Contains(t, m.View(), "Press any key to start")

	m = typeText(t, m, "x")
	assert.False(t, m.ShowingWelcome())
	assert.True(t, f.profile.HasSeenOnboarding())
	// the dismissing key is not typed into the composer
	assert.Empty(t, m.Composer())

	again := f.newModel(t)
	assert.False(t, again.ShowingWelcome())
}

// =============================================================================
// SENDING
// =============================================================================

func TestModel_SendAppendsExchange(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m = typeText(t, m, "hello")
	assert.Equal(t, "hello", m.Composer())

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.Composer())

	done := cmd()
	require.IsType(t, sendDoneMsg{}, done)
	m = update(t, m, done)

	sess, ok := m.State().Current()
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "hello", sess.Messages[0].Content)
	assert.Equal(t, "llama3.2 says: hello", sess.Messages[1].Content)
	assert.Equal(t, "hello...", sess.Title)
	assert.Contains(t, m.View(), "hello")
}

func TestModel_BlankComposerDoesNotSend(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m = typeText(t, m, "   ")
	_, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
}

func TestModel_NewlineKeepsComposing(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m = typeText(t, m, "one")
	m, cmd := press(t, m, tea.KeyCtrlJ)
	assert.Nil(t, cmd)
	m = typeText(t, m, "two")

	assert.Equal(t, "one\ntwo", m.Composer())
}

func TestModel_ComposerDisabledWhileTyping(t *testing.T) {
	f := newFixture(t, true)
	f.backend.gate = make(chan struct{})
	m := f.ready(t)

	m = typeText(t, m, "slow question")
	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)

	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	require.Eventually(t, func() bool { return f.store.Snapshot().Typing },
		time.Second, 5*time.Millisecond)
	m = update(t, m, stateChangedMsg{})

	assert.False(t, m.ComposerEnabled())
	assert.Contains(t, m.View(), "is thinking")

	// keys do not reach a disabled composer, and enter explains why
	m = typeText(t, m, "more")
	assert.Empty(t, m.Composer())
	m, cmd = press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, "Still waiting for the last reply", m.Notice())

	close(f.backend.gate)
	m = update(t, m, <-result)

	assert.True(t, m.ComposerEnabled())
	sess, _ := m.State().Current()
	assert.Len(t, sess.Messages, 2)
}

func TestModel_SendErrorShownInStatusBar(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m = update(t, m, sendDoneMsg{err: errors.New("boom")})
	assert.Equal(t, "boom", m.Notice())
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestModel_NewSwitchDelete(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)
	first := m.State().CurrentSessionID

	m, _ = press(t, m, tea.KeyCtrlN)
	second := m.State().CurrentSessionID
	require.NotEqual(t, first, second)
	require.Len(t, m.State().Sessions, 2)

	// newest first: [second, first]
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, first, m.State().CurrentSessionID)
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, second, m.State().CurrentSessionID)
	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, first, m.State().CurrentSessionID)

	m, _ = press(t, m, tea.KeyCtrlD)
	require.Len(t, m.State().Sessions, 1)
	assert.Equal(t, second, m.State().CurrentSessionID)
}

func TestModel_DeletingLastSessionStartsAFreshOne(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)
	only := m.State().CurrentSessionID

	m, _ = press(t, m, tea.KeyCtrlD)

	require.Len(t, m.State().Sessions, 1)
	assert.NotEqual(t, only, m.State().CurrentSessionID)
}

// =============================================================================
// MODEL PICKER
// =============================================================================

func TestModel_PickerSelectsModel(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m, _ = press(t, m, tea.KeyCtrlO)
	require.True(t, m.PickerOpen())
	assert.Contains(t, m.View(), "Select a model")

	m, _ = press(t, m, tea.KeyDown)
	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.False(t, m.PickerOpen())

	pick := cmd()
	require.Equal(t, components.PickModelMsg{Name: "phi3"}, pick)
	m = update(t, m, pick)

	assert.Equal(t, "phi3", m.State().SelectedModel)
	// the empty current session is retagged, not forked
	sess, ok := m.State().Current()
	require.True(t, ok)
	assert.Equal(t, "phi3", sess.ModelID)
	assert.Len(t, m.State().Sessions, 1)
}

func TestModel_PickerEscapeKeepsModel(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m, _ = press(t, m, tea.KeyCtrlO)
	m, _ = press(t, m, tea.KeyDown)
	m, cmd := press(t, m, tea.KeyEsc)
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.False(t, m.PickerOpen())
	assert.Equal(t, "llama3.2", m.State().SelectedModel)
}

// =============================================================================
// CLIPBOARD
// =============================================================================

func TestModel_CopyLastReply(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	m, _ = press(t, m, tea.KeyCtrlY)
	assert.Equal(t, "No reply to copy", m.Notice())

	require.NoError(t, f.store.SendMessage(context.Background(), "ping"))
	m = update(t, m, stateChangedMsg{})

	m, cmd := press(t, m, tea.KeyCtrlY)
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, []string{"llama3.2 says: ping"}, f.copied)
	assert.Equal(t, "Copied last reply", m.Notice())
}

func TestModel_CopyFailureReported(t *testing.T) {
	f := newFixture(t, true)
	f.copyErr = errors.New("no clipboard")
	m := f.ready(t)
	require.NoError(t, f.store.SendMessage(context.Background(), "ping"))
	m = update(t, m, stateChangedMsg{})

	m, cmd := press(t, m, tea.KeyCtrlY)
	m = update(t, m, cmd())

	assert.Equal(t, "Copy failed: no clipboard", m.Notice())
}

// =============================================================================
// QUIT AND RELOAD
// =============================================================================

func TestModel_QuitClosesSubscription(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	_, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	drained := make(chan struct{})
	go func() {
		for range m.sub {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("subscription still open after quit")
	}
}

func TestModel_ReloadedMsgRefreshes(t *testing.T) {
	f := newFixture(t, true)
	m := f.ready(t)

	f.store.CreateSession("")
	m = update(t, m, ReloadedMsg{})

	assert.Len(t, m.State().Sessions, 2)
	assert.Equal(t, "Reloaded from disk", m.Notice())
}
