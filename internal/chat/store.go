// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/localchat/internal/kv"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// TitleRunes is how much of the first message becomes the session title.
const TitleRunes = 30

// Backend is the inference service the store talks to.
type Backend interface {
	ListModels(ctx context.Context) ([]model.ModelInfo, error)
	Generate(ctx context.Context, prompt, modelName string) (string, error)
}

// State is a point-in-time copy of the store. It shares nothing with the
// store and may be kept by the caller.
type State struct {
	Sessions         []model.Session
	CurrentSessionID string
	AvailableModels  []model.ModelInfo
	SelectedModel    string

	// Loading is set while a model listing is in flight.
	Loading bool

	// Typing is set while the current session waits for a reply.
	Typing bool

	// Pending counts replies in flight across all sessions.
	Pending int
}

// Current returns the current session, if there is one.
func (st State) Current() (model.Session, bool) {
	for _, s := range st.Sessions {
		if s.ID == st.CurrentSessionID {
			return s, true
		}
	}
	return model.Session{}, false
}

// Options configures a Store.
type Options struct {
	Logger *zap.Logger

	// Now overrides the clock, mainly for tests.
	Now func() time.Time

	// MaxConversations caps the number of kept sessions. Zero disables it.
	MaxConversations int
}

// Store is the session store. Create it with New and call Load before use.
type Store struct {
	kv      kv.Store
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	mu               sync.Mutex
	sessions         []model.Session // display order, newest first
	currentID        string
	models           []model.ModelInfo
	selected         string
	loads            int
	pending          map[string]bool
	maxConversations int

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates a store persisting to store and generating through backend.
func New(store kv.Store, backend Backend, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		kv:               store,
		backend:          backend,
		logger:           logger.Named("chat"),
		now:              now,
		pending:          make(map[string]bool),
		maxConversations: opts.MaxConversations,
		subs:             make(map[int]chan struct{}),
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load replaces the in-memory sessions, current pointer and selected model
// with what the key-value store holds. A dangling current pointer is
// repaired. Unreadable session data leaves the store empty and is
// reported; the store stays usable either way.
func (s *Store) Load() error {
	s.mu.Lock()

	var loadErr error
	sessions, err := s.readSessions()
	if err != nil {
		s.logger.Error("stored sessions unreadable, starting empty", zap.Error(err))
		loadErr = err
		sessions = nil
	}
	s.sessions = sessions

	s.currentID = s.readString(kv.KeyCurrentSession)
	if s.currentID != "" && s.indexOf(s.currentID) < 0 {
		s.logger.Info("current session pointer is dangling, repairing", zap.String("session", s.currentID))
		s.currentID = ""
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		}
		s.persistCurrent()
	}
	s.selected = s.readString(kv.KeySelectedModel)

	s.ensureSessionLocked()
	s.mu.Unlock()
	s.notify()
	return loadErr
}

func (s *Store) readSessions() ([]model.Session, error) {
	raw, ok, err := s.kv.Get(kv.KeySessions)
	if err != nil || !ok {
		return nil, err
	}
	return model.DecodeSessions([]byte(raw))
}

func (s *Store) readString(key string) string {
	v, _, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}

// LoadModels asks the backend for its models and returns the resulting
// list. On failure the previous list is kept. When no model is selected
// yet, the first returned model is selected and remembered.
func (s *Store) LoadModels(ctx context.Context) []model.ModelInfo {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	s.notify()

	models, err := s.backend.ListModels(ctx)

	s.mu.Lock()
	s.loads--
	if err != nil {
		s.logger.Warn("listing models failed, keeping previous list",
			zap.Int("kept", len(s.models)),
			zap.Error(err))
	} else {
		s.models = append([]model.ModelInfo(nil), models...)
		if s.selected == "" && len(s.models) > 0 {
			s.selected = s.models[0].Name
			s.persistSelected()
		}
	}
	s.ensureSessionLocked()
	out := append([]model.ModelInfo(nil), s.models...)
	s.mu.Unlock()
	s.notify()
	return out
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession starts an empty session and makes it current. The session
// is bound to hint, else the selected model, else the first available
// model, else model.DefaultModelTag. A concrete model becomes the selection.
func (s *Store) CreateSession(hint string) string {
	s.mu.Lock()
	id := s.createLocked(hint)
	s.mu.Unlock()
	s.notify()
	return id
}

func (s *Store) createLocked(hint string) string {
	sess := model.NewSession(s.resolveModel(hint), s.now())
	s.sessions = append([]model.Session{sess}, s.sessions...)
	s.currentID = sess.ID
	s.enforceLimitLocked()
	s.persistSessions()
	s.persistCurrent()
	if sess.ModelID != model.DefaultModelTag && sess.ModelID != s.selected {
		s.selected = sess.ModelID
		s.persistSelected()
	}
	s.logger.Debug("session created", zap.String("session", sess.ID), zap.String("model", sess.ModelID))
	return sess.ID
}

func (s *Store) resolveModel(hint string) string {
	switch {
	case hint != "":
		return hint
	case s.selected != "":
		return s.selected
	case len(s.models) > 0:
		return s.models[0].Name
	default:
		return model.DefaultModelTag
	}
}

// SwitchSession makes id current and selects the model it is bound to.
// An unknown id returns ErrSessionNotFound and changes nothing.
func (s *Store) SwitchSession(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	s.currentID = id
	s.persistCurrent()
	if m := s.sessions[i].ModelID; m != "" && m != model.DefaultModelTag && m != s.selected {
		s.selected = m
		s.persistSelected()
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteSession removes id. If it was current, the first remaining session
// becomes current, or none when the store is empty.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	if s.currentID == id {
		s.currentID = ""
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		}
	}
	s.persistSessions()
	s.persistCurrent()
	s.ensureSessionLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// SendMessage appends content to the current session, asks the backend
// for a reply and appends that too. With no current session one is
// created whose first message is content.
//
// Blank content or no selected model is a silent no-op. A second send to
// a session whose reply is still pending returns ErrGenerationInFlight.
// Backend failures are logged, never returned. A reply for a session
// deleted in the meantime is dropped.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	modelName := s.selected
	if modelName == "" {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	userMsg := model.NewMessage(model.RoleUser, content, modelName, now)

	var id string
	if i := s.indexOf(s.currentID); i < 0 {
		sess := model.Session{
			ID:        model.NewID(),
			Title:     sessionTitle(content),
			Messages:  []model.Message{userMsg},
			CreatedAt: now,
			UpdatedAt: now,
			ModelID:   modelName,
		}
		s.sessions = append([]model.Session{sess}, s.sessions...)
		s.currentID = sess.ID
		id = sess.ID
		s.enforceLimitLocked()
		s.persistCurrent()
	} else {
		id = s.currentID
		if s.pending[id] {
			s.mu.Unlock()
			return inFlight(id)
		}
		sess := &s.sessions[i]
		if len(sess.Messages) == 0 {
			sess.Title = sessionTitle(content)
		}
		sess.Messages = append(sess.Messages, userMsg)
		sess.UpdatedAt = now
	}
	s.pending[id] = true
	s.persistSessions()
	s.mu.Unlock()
	s.notify()

	reply, err := s.backend.Generate(ctx, content, modelName)

	s.mu.Lock()
	delete(s.pending, id)
	switch j := s.indexOf(id); {
	case err != nil:
		s.logger.Warn("generation failed", zap.String("session", id), zap.String("model", modelName), zap.Error(err))
	case j < 0:
		s.logger.Info("dropping reply for deleted session", zap.String("session", id))
	default:
		at := s.now()
		sess := &s.sessions[j]
		sess.Messages = append(sess.Messages, model.NewMessage(model.RoleAssistant, reply, modelName, at))
		sess.UpdatedAt = at
	}
	s.persistSessions()
	s.mu.Unlock()
	s.notify()
	return nil
}

func sessionTitle(content string) string {
	return util.PrefixRunes(content, TitleRunes) + "..."
}

// SelectModel selects name. Switching models in a session that already has
// messages starts a new session bound to name; an empty current session
// is retagged instead.
func (s *Store) SelectModel(name string) {
	if name == "" {
		return
	}

	s.mu.Lock()
	prev := s.selected
	s.selected = name
	s.persistSelected()

	if i := s.indexOf(s.currentID); i >= 0 {
		cur := &s.sessions[i]
		switch {
		case !cur.IsEmpty():
			if prev != "" && prev != name {
				s.createLocked(name)
			}
		case cur.ModelID != name:
			if cur.Title == model.DefaultTitle(cur.ModelID) {
				cur.Title = model.DefaultTitle(name)
			}
			cur.ModelID = name
			s.persistSessions()
		}
	}
	s.mu.Unlock()
	s.notify()
}

// SetMaxConversations changes the session cap and applies it at once.
func (s *Store) SetMaxConversations(n int) {
	s.mu.Lock()
	s.maxConversations = n
	if s.enforceLimitLocked() {
		s.persistSessions()
	}
	s.mu.Unlock()
	s.notify()
}

// Reset drops every session and the remembered model, as a "clear all
// data" would, then restores the defaults a fresh start produces.
func (s *Store) Reset() {
	s.mu.Lock()
	s.sessions = nil
	s.currentID = ""
	s.selected = ""
	for _, key := range []string{kv.KeySessions, kv.KeyCurrentSession, kv.KeySelectedModel} {
		if err := s.kv.Remove(key); err != nil {
			s.logger.Error("storage remove failed", zap.String("key", key), zap.Error(err))
		}
	}
	if len(s.models) > 0 {
		s.selected = s.models[0].Name
		s.persistSelected()
	}
	s.ensureSessionLocked()
	s.mu.Unlock()
	s.notify()
}

// ensureSessionLocked materializes one empty session when there are none,
// models are known and no listing is in flight.
func (s *Store) ensureSessionLocked() {
	if len(s.sessions) != 0 || len(s.models) == 0 || s.loads > 0 {
		return
	}
	s.createLocked("")
}

// enforceLimitLocked removes the least recently updated sessions over the
// cap. The current session and sessions awaiting a reply are kept.
func (s *Store) enforceLimitLocked() bool {
	if s.maxConversations <= 0 || len(s.sessions) <= s.maxConversations {
		return false
	}

	var candidates []model.Session
	for _, sess := range s.sessions {
		if sess.ID != s.currentID && !s.pending[sess.ID] {
			candidates = append(candidates, sess)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.Before(candidates[j].UpdatedAt)
	})

	excess := len(s.sessions) - s.maxConversations
	if excess > len(candidates) {
		excess = len(candidates)
	}
	drop := make(map[string]bool, excess)
	for _, c := range candidates[:excess] {
		drop[c.ID] = true
	}

	kept := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if !drop[sess.ID] {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	if excess > 0 {
		s.logger.Info("session cap reached, removed oldest", zap.Int("removed", excess), zap.Int("cap", s.maxConversations))
	}
	return excess > 0
}

// =============================================================================
// READERS
// =============================================================================

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Sessions:         s.cloneSessions(),
		CurrentSessionID: s.currentID,
		AvailableModels:  append([]model.ModelInfo(nil), s.models...),
		SelectedModel:    s.selected,
		Loading:          s.loads > 0,
		Typing:           s.pending[s.currentID],
		Pending:          len(s.pending),
	}
}

// Sessions returns every session in display order.
func (s *Store) Sessions() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneSessions()
}

// CurrentSession returns the current session, if any.
func (s *Store) CurrentSession() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.currentID); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return model.Session{}, false
}

// Session returns the session with the given id.
func (s *Store) Session(id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.sessions[i].Clone(), nil
	}
	return model.Session{}, notFound(id)
}

// SelectedModel returns the selected model name, or "" when none is.
func (s *Store) SelectedModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Store) cloneSessions() []model.Session {
	out := make([]model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Storage failures are logged and otherwise ignored: in-memory state stays
// authoritative until the next successful write.

func (s *Store) persistSessions() {
	raw, err := model.EncodeSessions(s.sessions)
	if err == nil {
		err = s.kv.Set(kv.KeySessions, string(raw))
	}
	if err != nil {
		s.logger.Error("saving sessions failed", zap.Int("sessions", len(s.sessions)), zap.Error(err))
	}
}

func (s *Store) persistCurrent() {
	s.persistString(kv.KeyCurrentSession, s.currentID)
}

func (s *Store) persistSelected() {
	s.persistString(kv.KeySelectedModel, s.selected)
}

func (s *Store) persistString(key, value string) {
	var err error
	if value == "" {
		err = s.kv.Remove(key)
	} else {
		err = s.kv.Set(key, value)
	}
	if err != nil {
		s.logger.Error("storage write failed", zap.String("key", key), zap.Error(err))
	}
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// Subscribe returns a channel that receives a value after state changes.
// Signals coalesce: a slow reader sees one pending signal, not a backlog.
// Call the returned function to unsubscribe; it closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
