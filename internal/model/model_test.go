// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.Equal(t, "You", RoleUser.DisplayName())
}

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("mistral", now)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "New Chat (mistral)", s.Title)
	assert.Equal(t, "mistral", s.ModelID)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestSession_CloneDoesNotAlias(t *testing.T) {
	s := NewSession("llama2", time.Now())
	s.Messages = append(s.Messages, NewMessage(RoleUser, "hi", "llama2", time.Now()))

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.Messages = append(c.Messages, NewMessage(RoleAssistant, "x", "llama2", time.Now()))

	assert.Equal(t, "hi", s.Messages[0].Content)
	assert.Len(t, s.Messages, 1)
}

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3800000000, "3.5 GB"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ModelInfo{Size: tc.size}.FormatSize())
	}
}

func TestTimeCodec(t *testing.T) {
	ts := time.Date(2025, 6, 7, 8, 9, 10, 123456789, time.FixedZone("X", 3600))

	text := FormatTime(ts)
	assert.Equal(t, "2025-06-07T07:09:10.123Z", text)

	back, err := ParseTime(text)
	require.NoError(t, err)
	assert.True(t, back.Equal(ts.Truncate(time.Millisecond)))

	noFrac, err := ParseTime("2025-06-07T07:09:10Z")
	require.NoError(t, err)
	assert.Equal(t, 10, noFrac.Second())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestSessionsCodec(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("llama2", now)
	s.Title = "hello..."
	s.Messages = append(s.Messages,
		NewMessage(RoleUser, "hello", "llama2", now),
		NewMessage(RoleAssistant, "hi there", "llama2", now.Add(time.Second)),
	)

	data, err := EncodeSessions([]Session{s})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"createdAt":"2025-01-02T03:04:05.000Z"`)

	got, err := DecodeSessions(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID)
	assert.Equal(t, s.Title, got[0].Title)
	require.Len(t, got[0].Messages, 2)
	assert.Equal(t, s.Messages[1].ID, got[0].Messages[1].ID)
	assert.True(t, got[0].Messages[1].Timestamp.Equal(now.Add(time.Second)))
}

func TestDecodeSessions_Errors(t *testing.T) {
	_, err := DecodeSessions([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeSessions([]byte(`[{"id":"a","createdAt":"bad","updatedAt":"bad","messages":[]}]`))
	assert.Error(t, err)

	_, err = DecodeSessions([]byte(`[{"id":"a","createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z",
		"messages":[{"id":"m","role":"robot","content":"x","timestamp":"2025-01-01T00:00:00Z"}]}]`))
	assert.Error(t, err)
}

func decodeProfile(t *testing.T, doc string, now time.Time) (Profile, error) {
	t.Helper()
	var r ProfileRecord
	require.NoError(t, json.Unmarshal([]byte(doc), &r))
	return r.Profile(now)
}

func TestProfileCodec_FillsMissingPreferences(t *testing.T) {
	p, err := decodeProfile(t, `{"id":"u1","name":"Ada","createdAt":"2025-01-01T00:00:00.000Z",
		"updatedAt":"2025-01-01T00:00:00.000Z","preferences":{"theme":"dark"}}`, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, ThemeDark, p.Preferences.Theme)
	assert.Equal(t, "en", p.Preferences.Language)
	assert.True(t, p.Preferences.AutoSave)
	assert.Equal(t, 50, p.Preferences.MaxConversations)
	assert.Equal(t, ExportJSON, p.Preferences.ExportFormat)
}

func TestProfileCodec_MissingTimestampsUseNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p, err := decodeProfile(t, `{"name":"Ada"}`, now)
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(now))
	assert.True(t, p.UpdatedAt.Equal(now))

	_, err = decodeProfile(t, `{"name":"Ada","updatedAt":"soon"}`, now)
	assert.Error(t, err)
}

func TestProfileCodec_RoundTrip(t *testing.T) {
	p := DefaultProfile(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	p.Email = "ada@example.com"
	p.Preferences.Theme = ThemeLight
	p.Preferences.AutoSave = false

	data, err := json.Marshal(ProfileToRecord(p))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"autoSave":false`)
	got, err := decodeProfile(t, string(data), time.Now())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPreferences_Validate(t *testing.T) {
	assert.NoError(t, DefaultPreferences().Validate())

	p := DefaultPreferences()
	p.Theme = "neon"
	assert.Error(t, p.Validate())

	p = DefaultPreferences()
	p.ExportFormat = "pdf"
	assert.Error(t, p.Validate())

	p = DefaultPreferences()
	p.MaxConversations = 0
	assert.Error(t, p.Validate())
}

func TestConversationExport_RegeneratesMessageIDs(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession("", now)
	s.Messages = append(s.Messages, NewMessage(RoleUser, "q", "m", now))

	exp := SessionToExport(s)
	assert.Equal(t, UnknownModel, exp.ModelID)

	back, err := exp.Session()
	require.NoError(t, err)
	require.Len(t, back.Messages, 1)
	assert.NotEqual(t, s.Messages[0].ID, back.Messages[0].ID)
	assert.Equal(t, "q", back.Messages[0].Content)
	assert.Equal(t, s.ID, back.ID)
}
