// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// STORED FORMS
// =============================================================================

// MessageRecord is the stored form of a Message.
type MessageRecord struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`
	ModelUsed string `json:"modelUsed,omitempty"`
}

// SessionRecord is the stored form of a Session.
type SessionRecord struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []MessageRecord `json:"messages"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
	ModelID   string          `json:"modelId,omitempty"`
}

// PreferencesRecord is the stored form of Preferences.
type PreferencesRecord struct {
	Theme            Theme        `json:"theme"`
	Language         string       `json:"language"`
	AutoSave         *bool        `json:"autoSave,omitempty"`
	DefaultModel     string       `json:"defaultModel,omitempty"`
	MaxConversations int          `json:"maxConversations"`
	ExportFormat     ExportFormat `json:"exportFormat"`
}

// ProfileRecord is the stored form of a Profile. The export bundle's user
// section uses the same shape.
type ProfileRecord struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Preferences PreferencesRecord `json:"preferences"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionToRecord converts a session to its stored form.
func SessionToRecord(s Session) SessionRecord {
	msgs := make([]MessageRecord, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = MessageRecord{
			ID:        m.ID,
			Content:   m.Content,
			Role:      m.Role,
			Timestamp: FormatTime(m.Timestamp),
			ModelUsed: m.ModelUsed,
		}
	}
	return SessionRecord{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  msgs,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
		ModelID:   s.ModelID,
	}
}

// Session re-hydrates the stored form, parsing every timestamp.
func (r SessionRecord) Session() (Session, error) {
	created, err := ParseTime(r.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: createdAt: %w", r.ID, err)
	}
	updated, err := ParseTime(r.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: updatedAt: %w", r.ID, err)
	}

	msgs := make([]Message, 0, len(r.Messages))
	for _, mr := range r.Messages {
		ts, err := ParseTime(mr.Timestamp)
		if err != nil {
			return Session{}, fmt.Errorf("session %s: message %s: %w", r.ID, mr.ID, err)
		}
		if !mr.Role.Valid() {
			return Session{}, fmt.Errorf("session %s: message %s: unknown role %q", r.ID, mr.ID, mr.Role)
		}
		msgs = append(msgs, Message{
			ID:        mr.ID,
			Content:   mr.Content,
			Role:      mr.Role,
			Timestamp: ts,
			ModelUsed: mr.ModelUsed,
		})
	}

	return Session{
		ID:        r.ID,
		Title:     r.Title,
		Messages:  msgs,
		CreatedAt: created,
		UpdatedAt: updated,
		ModelID:   r.ModelID,
	}, nil
}

// EncodeSessions serializes sessions in order for storage.
func EncodeSessions(sessions []Session) ([]byte, error) {
	records := make([]SessionRecord, len(sessions))
	for i, s := range sessions {
		records[i] = SessionToRecord(s)
	}
	return json.Marshal(records)
}

// DecodeSessions is the read boundary for stored sessions.
func DecodeSessions(data []byte) ([]Session, error) {
	var records []SessionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return SessionsFromRecords(records)
}

// SessionsFromRecords re-hydrates a list of stored sessions.
func SessionsFromRecords(records []SessionRecord) ([]Session, error) {
	sessions := make([]Session, 0, len(records))
	for _, r := range records {
		s, err := r.Session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// =============================================================================
// PROFILE
// =============================================================================

// ProfileToRecord converts a profile to its stored form.
func ProfileToRecord(p Profile) ProfileRecord {
	autoSave := p.Preferences.AutoSave
	return ProfileRecord{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Avatar: p.Avatar,
		Preferences: PreferencesRecord{
			Theme:            p.Preferences.Theme,
			Language:         p.Preferences.Language,
			AutoSave:         &autoSave,
			DefaultModel:     p.Preferences.DefaultModel,
			MaxConversations: p.Preferences.MaxConversations,
			ExportFormat:     p.Preferences.ExportFormat,
		},
		CreatedAt: FormatTime(p.CreatedAt),
		UpdatedAt: FormatTime(p.UpdatedAt),
	}
}

// Profile re-hydrates the stored form. Missing preference fields take their
// defaults and missing timestamps become now. A timestamp that is present
// but malformed is an error.
func (r ProfileRecord) Profile(now time.Time) (Profile, error) {
	created, err := parseTimeOr(r.CreatedAt, now)
	if err != nil {
		return Profile{}, fmt.Errorf("profile createdAt: %w", err)
	}
	updated, err := parseTimeOr(r.UpdatedAt, created)
	if err != nil {
		return Profile{}, fmt.Errorf("profile updatedAt: %w", err)
	}

	prefs := DefaultPreferences()
	if r.Preferences.Theme != "" {
		prefs.Theme = r.Preferences.Theme
	}
	if r.Preferences.Language != "" {
		prefs.Language = r.Preferences.Language
	}
	if r.Preferences.AutoSave != nil {
		prefs.AutoSave = *r.Preferences.AutoSave
	}
	prefs.DefaultModel = r.Preferences.DefaultModel
	if r.Preferences.MaxConversations > 0 {
		prefs.MaxConversations = r.Preferences.MaxConversations
	}
	if r.Preferences.ExportFormat != "" {
		prefs.ExportFormat = r.Preferences.ExportFormat
	}
	if err := prefs.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile preferences: %w", err)
	}

	id := r.ID
	if id == "" {
		id = DefaultProfileID
	}

	return Profile{
		ID:          id,
		Name:        r.Name,
		Email:       r.Email,
		Avatar:      r.Avatar,
		Preferences: prefs,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func parseTimeOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return ParseTime(s)
}
