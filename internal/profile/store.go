// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile owns the single user profile, its preferences, the
// onboarding flag and backup/restore through export bundles.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/kv"
	"github.com/jeranaias/localchat/internal/model"
)

// Errors.
var (
	// ErrInvalidPreference is returned for an out-of-range preference.
	ErrInvalidPreference = errors.New("invalid preference")

	// ErrInvalidBundle is returned when an import document does not parse.
	ErrInvalidBundle = export.ErrInvalidBundle
)

// ProfileUpdate is a partial profile change. Nil fields are left alone.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

// PreferencesUpdate is a partial preferences change. Nil fields are left
// alone.
type PreferencesUpdate struct {
	Theme            *model.Theme
	Language         *string
	AutoSave         *bool
	DefaultModel     *string
	MaxConversations *int
	ExportFormat     *model.ExportFormat
}

// Options configures a Store.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time

	// OnPreferences is called, outside the store lock, after preferences
	// change through an update, an import or a reset.
	OnPreferences func(model.Preferences)
}

// Store is the profile store.
type Store struct {
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
	onPref func(model.Preferences)

	mu      sync.RWMutex
	profile model.Profile
}

// New creates a store holding the default profile until Load is called.
func New(store kv.Store, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		kv:      store,
		logger:  logger.Named("profile"),
		now:     now,
		onPref:  opts.OnPreferences,
		profile: model.DefaultProfile(now()),
	}
}

// Load reads the stored profile. Nothing stored means the default profile.
// An unreadable profile is reported and replaced by the default in memory.
func (s *Store) Load() error {
	p, err := s.read()
	if err != nil {
		s.logger.Error("stored profile unreadable, using defaults", zap.Error(err))
		p = model.DefaultProfile(s.now())
	}

	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	s.preferencesChanged(p.Preferences)
	return err
}

func (s *Store) read() (model.Profile, error) {
	var rec model.ProfileRecord
	ok, err := kv.GetJSON(s.kv, kv.KeyUserProfile, &rec)
	if err != nil {
		return model.Profile{}, err
	}
	if !ok {
		return model.DefaultProfile(s.now()), nil
	}
	return rec.Profile(s.now())
}

// Profile returns a copy of the current profile.
func (s *Store) Profile() model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// UpdateProfile merges u into the profile, bumps UpdatedAt and persists.
func (s *Store) UpdateProfile(u ProfileUpdate) {
	s.mu.Lock()
	p := s.profile
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	s.commitLocked(p)
	s.mu.Unlock()
}

// UpdatePreferences merges u into the preferences. An invalid result
// returns an error wrapping ErrInvalidPreference and changes nothing.
func (s *Store) UpdatePreferences(u PreferencesUpdate) error {
	s.mu.Lock()
	p := s.profile
	prefs := p.Preferences
	if u.Theme != nil {
		prefs.Theme = *u.Theme
	}
	if u.Language != nil {
		prefs.Language = *u.Language
	}
	if u.AutoSave != nil {
		prefs.AutoSave = *u.AutoSave
	}
	if u.DefaultModel != nil {
		prefs.DefaultModel = *u.DefaultModel
	}
	if u.MaxConversations != nil {
		prefs.MaxConversations = *u.MaxConversations
	}
	if u.ExportFormat != nil {
		prefs.ExportFormat = *u.ExportFormat
	}
	if err := prefs.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidPreference, err)
	}

	p.Preferences = prefs
	s.commitLocked(p)
	s.mu.Unlock()
	s.preferencesChanged(prefs)
	return nil
}

func (s *Store) commitLocked(p model.Profile) {
	p.UpdatedAt = s.now()
	s.profile = p
	s.persistLocked()
}

func (s *Store) persistLocked() {
	if err := kv.SetJSON(s.kv, kv.KeyUserProfile, model.ProfileToRecord(s.profile)); err != nil {
		s.logger.Error("saving profile failed", zap.Error(err))
	}
}

func (s *Store) preferencesChanged(p model.Preferences) {
	if s.onPref != nil {
		s.onPref(p)
	}
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export writes a bundle of the profile and sessions into dir, in the
// preferred export format, and returns the file path.
func (s *Store) Export(sessions []model.Session, dir string) (string, error) {
	return s.ExportAs(sessions, dir, s.Profile().Preferences.ExportFormat)
}

// ExportAs is Export with an explicit format.
func (s *Store) ExportAs(sessions []model.Session, dir string, format model.ExportFormat) (string, error) {
	p := s.Profile()
	exp, err := export.ForFormat(format, nil)
	if err != nil {
		return "", err
	}

	now := s.now()
	bundle := export.Build(p, sessions, now)
	path, err := export.WriteFile(&bundle, exp, dir, now)
	if err != nil {
		return "", err
	}
	s.logger.Info("exported", zap.String("path", path), zap.Int("conversations", len(sessions)))
	return path, nil
}

// ExportTo writes a bundle of the profile and sessions to w in format.
func (s *Store) ExportTo(w io.Writer, sessions []model.Session, format model.ExportFormat) error {
	exp, err := export.ForFormat(format, nil)
	if err != nil {
		return err
	}
	bundle := export.Build(s.Profile(), sessions, s.now())
	data, err := exp.Export(&bundle)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Import restores a JSON bundle from r. The user section replaces the
// profile; the conversations section replaces the stored sessions. The
// whole document is validated before anything is written.
//
// The returned bool reports whether sessions were written: the chat store
// does not see them until it loads again.
func (s *Store) Import(r io.Reader) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("read import: %w", err)
	}
	bundle, err := export.Decode(data)
	if err != nil {
		return false, err
	}
	restored, err := export.Restore(bundle, s.now())
	if err != nil {
		return false, err
	}

	if restored.Sessions != nil {
		raw, err := model.EncodeSessions(restored.Sessions)
		if err != nil {
			return false, fmt.Errorf("encode imported sessions: %w", err)
		}
		if err := s.kv.Set(kv.KeySessions, string(raw)); err != nil {
			return false, fmt.Errorf("save imported sessions: %w", err)
		}
	}

	if restored.Profile != nil {
		s.mu.Lock()
		s.profile = *restored.Profile
		s.persistLocked()
		s.mu.Unlock()
		s.preferencesChanged(restored.Profile.Preferences)
	}

	s.logger.Info("imported",
		zap.Bool("profile", restored.Profile != nil),
		zap.Int("conversations", len(restored.Sessions)))
	return restored.Sessions != nil, nil
}

// ImportFile is Import reading from path.
func (s *Store) ImportFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open import: %w", err)
	}
	defer f.Close()
	return s.Import(f)
}

// =============================================================================
// ONBOARDING
// =============================================================================

// HasSeenOnboarding reports whether the welcome screen was dismissed.
func (s *Store) HasSeenOnboarding() bool {
	v, _, err := s.kv.Get(kv.KeyOnboardingSeen)
	if err != nil {
		s.logger.Warn("reading onboarding flag failed", zap.Error(err))
	}
	return v == "true"
}

// MarkOnboardingSeen remembers that the welcome screen was dismissed.
func (s *Store) MarkOnboardingSeen() {
	if err := s.kv.Set(kv.KeyOnboardingSeen, "true"); err != nil {
		s.logger.Error("saving onboarding flag failed", zap.Error(err))
	}
}

// Reset forgets the profile and the onboarding flag.
func (s *Store) Reset() {
	for _, key := range []string{kv.KeyUserProfile, kv.KeyOnboardingSeen} {
		if err := s.kv.Remove(key); err != nil {
			s.logger.Error("storage remove failed", zap.String("key", key), zap.Error(err))
		}
	}
	p := model.DefaultProfile(s.now())
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	s.preferencesChanged(p.Preferences)
}
