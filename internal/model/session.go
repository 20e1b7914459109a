// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// DefaultModelTag is bound to sessions created when no model is known.
const DefaultModelTag = "default"

// Session is one conversation thread.
type Session struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
	ModelID   string
}

// NewSession creates an empty session bound to modelID.
func NewSession(modelID string, now time.Time) Session {
	return Session{
		ID:        NewID(),
		Title:     DefaultTitle(modelID),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		ModelID:   modelID,
	}
}

// DefaultTitle is the title of a session that has no messages yet.
func DefaultTitle(modelID string) string {
	return "New Chat (" + modelID + ")"
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	c := s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return c
}

// IsEmpty reports whether the session has no messages.
func (s Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// LastMessage returns the most recent message, if any.
func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
