// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/localchat/internal/kv"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// FIXTURES
// =============================================================================

type fakeBackend struct {
	mu      sync.Mutex
	models  []model.ModelInfo
	listErr error
	genErr  error
	gate    chan struct{} // Generate blocks on it when set
	started chan struct{} // Generate signals it when set
	prompts []string
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.ModelInfo(nil), f.models...), nil
}

func (f *fakeBackend) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	gate, started, genErr := f.gate, f.started, f.genErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if genErr != nil {
		return "", genErr
	}
	return "reply to " + prompt + " from " + modelName, nil
}

func models(names ...string) []model.ModelInfo {
	out := make([]model.ModelInfo, len(names))
	for i, n := range names {
		out[i] = model.ModelInfo{Name: n}
	}
	return out
}

// stepClock advances one second per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore(t *testing.T, backend Backend, store kv.Store) *Store {
	t.Helper()
	if store == nil {
		store = kv.NewMemoryStore()
	}
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(store, backend, Options{Now: clock.Now})
	require.NoError(t, s.Load())
	return s
}

// readyStore has models loaded and the auto-created session current.
func readyStore(t *testing.T, names ...string) (*Store, *fakeBackend, *kv.MemoryStore) {
	t.Helper()
	fb := &fakeBackend{models: models(names...)}
	mem := kv.NewMemoryStore()
	s := newStore(t, fb, mem)
	s.LoadModels(context.Background())
	return s, fb, mem
}

func assertPointerValid(t *testing.T, s *Store) {
	t.Helper()
	st := s.Snapshot()
	if st.CurrentSessionID == "" {
		return
	}
	_, ok := st.Current()
	assert.True(t, ok, "current session %q does not exist", st.CurrentSessionID)
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestCurrentPointer_AlwaysValid(t *testing.T) {
	s := newStore(t, &fakeBackend{}, nil)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		sessions := s.Sessions()
		switch {
		case len(sessions) == 0 || rng.Intn(3) == 0:
			s.CreateSession("")
		case rng.Intn(2) == 0:
			require.NoError(t, s.DeleteSession(sessions[rng.Intn(len(sessions))].ID))
		default:
			require.NoError(t, s.SwitchSession(sessions[rng.Intn(len(sessions))].ID))
		}
		assertPointerValid(t, s)
	}
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

func TestSendMessage_CreatesSessionWhenNoneExists(t *testing.T) {
	fb := &fakeBackend{}
	s := newStore(t, fb, nil)
	s.SelectModel("mistral")

	content := "Explain the difference between goroutines and threads"
	require.NoError(t, s.SendMessage(context.Background(), content))

	sessions := s.Sessions()
	require.Len(t, sessions, 1)
	sess := sessions[0]
	assert.Equal(t, sess.ID, s.Snapshot().CurrentSessionID)
	assert.Equal(t, "Explain the difference between...", sess.Title)
	assert.Equal(t, "mistral", sess.ModelID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, content, sess.Messages[0].Content)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "mistral", sess.Messages[1].ModelUsed)
}

func TestSendMessage_ShortContentStillGetsEllipsis(t *testing.T) {
	s, _, _ := readyStore(t, "llama2")

	require.NoError(t, s.SendMessage(context.Background(), "hi"))
	cur, ok := s.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "hi...", cur.Title)
}

func TestSendMessage_PreservesOrder(t *testing.T) {
	s, _, _ := readyStore(t, "llama2")
	ctx := context.Background()

	require.NoError(t, s.SendMessage(ctx, "first"))
	require.NoError(t, s.SendMessage(ctx, "second"))

	cur, ok := s.CurrentSession()
	require.True(t, ok)
	require.Len(t, cur.Messages, 4)
	assert.Equal(t, "first", cur.Messages[0].Content)
	assert.Equal(t, "reply to first from llama2", cur.Messages[1].Content)
	assert.Equal(t, "second", cur.Messages[2].Content)
	assert.Equal(t, "reply to second from llama2", cur.Messages[3].Content)
	assert.Equal(t, "first...", cur.Title, "title set from first message only")
	assert.True(t, cur.UpdatedAt.After(cur.CreatedAt))
}

func TestSendMessage_NoOps(t *testing.T) {
	fb := &fakeBackend{}
	s := newStore(t, fb, nil)

	require.NoError(t, s.SendMessage(context.Background(), "hello"), "no model selected")
	assert.Empty(t, s.Sessions())

	s.SelectModel("llama2")
	require.NoError(t, s.SendMessage(context.Background(), "   \n\t"))
	assert.Empty(t, s.Sessions())
	assert.Empty(t, fb.prompts)
}

func TestSendMessage_BackendErrorClearsTyping(t *testing.T) {
	s, fb, _ := readyStore(t, "llama2")
	fb.genErr = errors.New("connection refused")

	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	st := s.Snapshot()
	assert.False(t, st.Typing)
	assert.Zero(t, st.Pending)
	cur, _ := st.Current()
	require.Len(t, cur.Messages, 1, "no assistant message on error")
	assert.Equal(t, "hello", cur.Messages[0].Content)
}

func TestSendMessage_FallbackReplyWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := ollama.NewService(ollama.NewClient(&ollama.ClientConfig{BaseURL: url, Timeout: time.Second}), nil)
	s := newStore(t, svc, nil)

	got := s.LoadModels(context.Background())
	assert.Equal(t, []string{"llama2", "codellama", "mistral"}, model.ModelNames(got))
	assert.Equal(t, "llama2", s.Snapshot().SelectedModel)

	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	st := s.Snapshot()
	assert.False(t, st.Typing)
	cur, ok := st.Current()
	require.True(t, ok)
	require.Len(t, cur.Messages, 2)
	reply := cur.Messages[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "llama2")
	assert.Contains(t, reply.Content, "hello")
}

func TestSendMessage_RejectsSecondSendWhilePending(t *testing.T) {
	s, fb, _ := readyStore(t, "llama2")
	gate := make(chan struct{})
	fb.gate = gate
	fb.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background(), "first") }()
	<-fb.started

	assert.True(t, s.Snapshot().Typing)
	err := s.SendMessage(context.Background(), "second")
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	cur, _ := s.CurrentSession()
	require.Len(t, cur.Messages, 1, "rejected send appends nothing")

	close(gate)
	require.NoError(t, <-done)

	cur, _ = s.CurrentSession()
	require.Len(t, cur.Messages, 2)
	assert.False(t, s.Snapshot().Typing)
}

func TestSendMessage_ReplyGoesToOriginatingSession(t *testing.T) {
	s, fb, _ := readyStore(t, "llama2")
	gate := make(chan struct{})
	fb.gate = gate
	fb.started = make(chan struct{}, 1)

	origin := s.Snapshot().CurrentSessionID
	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background(), "question") }()
	<-fb.started

	other := s.CreateSession("")
	assert.False(t, s.Snapshot().Typing, "new current session is not waiting")

	close(gate)
	require.NoError(t, <-done)

	orig, err := s.Session(origin)
	require.NoError(t, err)
	require.Len(t, orig.Messages, 2)
	assert.Equal(t, model.RoleAssistant, orig.Messages[1].Role)

	fresh, err := s.Session(other)
	require.NoError(t, err)
	assert.Empty(t, fresh.Messages)
}

func TestSendMessage_DropsReplyForDeletedSession(t *testing.T) {
	s, fb, mem := readyStore(t, "llama2")
	s.CreateSession("")
	gate := make(chan struct{})
	fb.gate = gate
	fb.started = make(chan struct{}, 1)

	target := s.Snapshot().CurrentSessionID
	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background(), "question") }()
	<-fb.started

	require.NoError(t, s.DeleteSession(target))
	close(gate)
	require.NoError(t, <-done)

	_, err := s.Session(target)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	for _, sess := range s.Sessions() {
		assert.Empty(t, sess.Messages)
	}

	raw, _, _ := mem.Get(kv.KeySessions)
	assert.NotContains(t, raw, target)
	assert.Zero(t, s.Snapshot().Pending)
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func TestCreateSession_ModelResolution(t *testing.T) {
	s := newStore(t, &fakeBackend{}, nil)

	id := s.CreateSession("")
	sess, err := s.Session(id)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultModelTag, sess.ModelID)
	assert.Equal(t, "New Chat (default)", sess.Title)

	s.SelectModel("phi3")
	sess, _ = s.Session(s.CreateSession(""))
	assert.Equal(t, "phi3", sess.ModelID)

	sess, _ = s.Session(s.CreateSession("codellama"))
	assert.Equal(t, "codellama", sess.ModelID)

	sessions := s.Sessions()
	assert.Equal(t, sess.ID, sessions[0].ID, "newest first")
	assert.Equal(t, sess.ID, s.Snapshot().CurrentSessionID)
}

func TestCreateSession_HintRebindsSelection(t *testing.T) {
	s, _, mem := readyStore(t, "llama2", "codellama")
	require.Equal(t, "llama2", s.Snapshot().SelectedModel)

	id := s.CreateSession("codellama")
	assert.Equal(t, "codellama", s.Snapshot().SelectedModel)
	v, _, _ := mem.Get(kv.KeySelectedModel)
	assert.Equal(t, "codellama", v)

	require.NoError(t, s.SendMessage(context.Background(), "hi"))
	sess, err := s.Session(id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "codellama", sess.Messages[1].ModelUsed)
	assert.Equal(t, "reply to hi from codellama", sess.Messages[1].Content)
}

func TestSwitchSession(t *testing.T) {
	s, _, mem := readyStore(t, "llama2", "mistral")
	a := s.Snapshot().CurrentSessionID
	b := s.CreateSession("mistral")

	require.NoError(t, s.SwitchSession(a))
	st := s.Snapshot()
	assert.Equal(t, a, st.CurrentSessionID)
	assert.Equal(t, "llama2", st.SelectedModel)

	require.NoError(t, s.SwitchSession(b))
	assert.Equal(t, "mistral", s.Snapshot().SelectedModel)

	v, _, _ := mem.Get(kv.KeyCurrentSession)
	assert.Equal(t, b, v)
	v, _, _ = mem.Get(kv.KeySelectedModel)
	assert.Equal(t, "mistral", v)

	err := s.SwitchSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, b, s.Snapshot().CurrentSessionID)
}

func TestDeleteSession(t *testing.T) {
	s := newStore(t, &fakeBackend{}, nil)
	a := s.CreateSession("m")
	b := s.CreateSession("m")
	c := s.CreateSession("m") // current; order is c, b, a

	require.NoError(t, s.DeleteSession(a))
	assert.Equal(t, c, s.Snapshot().CurrentSessionID, "deleting non-current keeps current")

	require.NoError(t, s.DeleteSession(c))
	assert.Equal(t, b, s.Snapshot().CurrentSessionID, "falls back to first remaining")

	require.NoError(t, s.DeleteSession(b))
	st := s.Snapshot()
	assert.Empty(t, st.CurrentSessionID)
	assert.Empty(t, st.Sessions, "no models, so no auto-session")

	assert.ErrorIs(t, s.DeleteSession(b), ErrSessionNotFound)
}

func TestDeleteLastSession_AutoCreatesWhenModelsKnown(t *testing.T) {
	s, _, _ := readyStore(t, "llama2")
	only := s.Snapshot().CurrentSessionID

	require.NoError(t, s.DeleteSession(only))

	st := s.Snapshot()
	require.Len(t, st.Sessions, 1)
	assert.NotEqual(t, only, st.CurrentSessionID)
	assert.Equal(t, st.Sessions[0].ID, st.CurrentSessionID)
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

func TestSelectModel_ForksWhenSessionHasMessages(t *testing.T) {
	s, _, _ := readyStore(t, "llama2", "mistral")
	require.NoError(t, s.SendMessage(context.Background(), "hello"))
	old := s.Snapshot().CurrentSessionID

	s.SelectModel("mistral")

	st := s.Snapshot()
	require.Len(t, st.Sessions, 2)
	assert.NotEqual(t, old, st.CurrentSessionID)
	cur, _ := st.Current()
	assert.Empty(t, cur.Messages)
	assert.Equal(t, "mistral", cur.ModelID)

	prev, err := s.Session(old)
	require.NoError(t, err)
	assert.Equal(t, "llama2", prev.ModelID, "old binding untouched")
}

func TestSelectModel_RetagsEmptySession(t *testing.T) {
	s, _, _ := readyStore(t, "llama2", "mistral")
	id := s.Snapshot().CurrentSessionID

	s.SelectModel("mistral")

	st := s.Snapshot()
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, id, st.CurrentSessionID)
	cur, _ := st.Current()
	assert.Equal(t, "mistral", cur.ModelID)
	assert.Equal(t, "New Chat (mistral)", cur.Title)
	assert.Equal(t, "mistral", st.SelectedModel)
}

func TestSelectModel_SameModelIsNoFork(t *testing.T) {
	s, _, _ := readyStore(t, "llama2")
	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	s.SelectModel("llama2")
	s.SelectModel("")
	assert.Len(t, s.Sessions(), 1)
}

// =============================================================================
// MODELS & AUTO-SESSION
// =============================================================================

func TestLoadModels(t *testing.T) {
	fb := &fakeBackend{models: models("qwen2.5", "phi3")}
	mem := kv.NewMemoryStore()
	s := newStore(t, fb, mem)
	assert.Empty(t, s.Sessions())

	got := s.LoadModels(context.Background())
	assert.Equal(t, []string{"qwen2.5", "phi3"}, model.ModelNames(got))

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Equal(t, "qwen2.5", st.SelectedModel)
	v, _, _ := mem.Get(kv.KeySelectedModel)
	assert.Equal(t, "qwen2.5", v)

	require.Len(t, st.Sessions, 1, "auto-session")
	assert.Equal(t, "qwen2.5", st.Sessions[0].ModelID)

	s.LoadModels(context.Background())
	assert.Len(t, s.Sessions(), 1, "auto-session fires only at zero")
}

func TestLoadModels_KeepsSelection(t *testing.T) {
	fb := &fakeBackend{models: models("qwen2.5", "phi3")}
	s := newStore(t, fb, nil)
	s.SelectModel("phi3")

	s.LoadModels(context.Background())
	assert.Equal(t, "phi3", s.Snapshot().SelectedModel)
}

func TestLoadModels_FailureKeepsPreviousList(t *testing.T) {
	s, fb, _ := readyStore(t, "llama2")
	fb.listErr = errors.New("boom")

	got := s.LoadModels(context.Background())
	assert.Equal(t, []string{"llama2"}, model.ModelNames(got))
	assert.False(t, s.Snapshot().Loading)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestLoad_RoundTripsThroughStorage(t *testing.T) {
	s, fb, mem := readyStore(t, "llama2", "mistral")
	require.NoError(t, s.SendMessage(context.Background(), "persist me"))
	s.CreateSession("mistral")
	want := s.Snapshot()

	again := newStore(t, fb, mem)
	got := again.Snapshot()

	assert.Equal(t, want.CurrentSessionID, got.CurrentSessionID)
	assert.Equal(t, want.SelectedModel, got.SelectedModel)
	// stored timestamps keep millisecond precision
	sameMillis := cmp.Comparer(func(a, b time.Time) bool {
		return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
	})
	if diff := cmp.Diff(want.Sessions, got.Sessions, sameMillis, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("sessions after reload (-want +got):\n%s", diff)
	}
}

func TestLoad_RepairsDanglingPointer(t *testing.T) {
	s, fb, mem := readyStore(t, "llama2")
	first := s.Snapshot().CurrentSessionID
	require.NoError(t, mem.Set(kv.KeyCurrentSession, "gone"))

	again := newStore(t, fb, mem)
	assert.Equal(t, first, again.Snapshot().CurrentSessionID)
	v, _, _ := mem.Get(kv.KeyCurrentSession)
	assert.Equal(t, first, v)
}

func TestLoad_CorruptSessions(t *testing.T) {
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(kv.KeySessions, `[{"id":"x","createdAt":"yesterday"}]`))

	s := New(mem, &fakeBackend{}, Options{})
	err := s.Load()
	assert.Error(t, err)
	assert.Empty(t, s.Sessions())
}

func TestStorageFailure_KeepsMemoryState(t *testing.T) {
	s, _, mem := readyStore(t, "llama2")
	mem.FailWrites = errors.New("quota exceeded")

	require.NoError(t, s.SendMessage(context.Background(), "unsaved"))

	cur, ok := s.CurrentSession()
	require.True(t, ok)
	assert.Len(t, cur.Messages, 2)

	raw, _, _ := mem.Get(kv.KeySessions)
	assert.False(t, strings.Contains(raw, "unsaved"))
}

func TestMaxConversations(t *testing.T) {
	s, _, _ := readyStore(t, "llama2")
	s.SetMaxConversations(3)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.CreateSession(""))
	}

	sessions := s.Sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, ids[4], s.Snapshot().CurrentSessionID)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{sessions[0].ID, sessions[1].ID, sessions[2].ID})

	s.SetMaxConversations(1)
	assert.Len(t, s.Sessions(), 1)
	assertPointerValid(t, s)
}

func TestReset(t *testing.T) {
	s, _, mem := readyStore(t, "llama2", "mistral")
	require.NoError(t, s.SendMessage(context.Background(), "hello"))
	s.SelectModel("mistral")

	s.Reset()

	st := s.Snapshot()
	require.Len(t, st.Sessions, 1)
	cur, _ := st.Current()
	assert.Empty(t, cur.Messages)
	assert.Equal(t, "llama2", st.SelectedModel)

	raw, _, _ := mem.Get(kv.KeySessions)
	assert.NotContains(t, raw, "hello")
}

// =============================================================================
// NOTIFICATION
// =============================================================================

func TestSubscribe(t *testing.T) {
	s := newStore(t, &fakeBackend{}, nil)
	ch, cancel := s.Subscribe()

	s.CreateSession("m")
	s.CreateSession("m")

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	s.CreateSession("m")
}
