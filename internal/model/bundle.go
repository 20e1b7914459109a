// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// BundleVersion is the schema version written into every export.
const BundleVersion = "1.0.0"

// UnknownModel tags exported sessions that were never bound to a model.
const UnknownModel = "unknown"

// MessageExport is one message inside an exported conversation. Exported
// messages carry no ID; imports assign fresh ones.
type MessageExport struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	ModelUsed string `json:"modelUsed,omitempty"`
}

// ConversationExport is one session inside an ExportBundle.
type ConversationExport struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	ModelID   string          `json:"modelId"`
	Messages  []MessageExport `json:"messages"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// ExportBundle is the backup/restore document. Either section may be
// absent in an imported document: a nil User or nil Conversations means
// the section was not present. Bundles built for export always carry a
// non-nil Conversations slice so it encodes as [] rather than null.
type ExportBundle struct {
	User          *ProfileRecord       `json:"user,omitempty"`
	Conversations []ConversationExport `json:"conversations"`
	ExportDate    string               `json:"exportDate"`
	Version       string               `json:"version"`
}

// SessionToExport converts a session to its exported form.
func SessionToExport(s Session) ConversationExport {
	modelID := s.ModelID
	if modelID == "" {
		modelID = UnknownModel
	}
	msgs := make([]MessageExport, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = MessageExport{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: FormatTime(m.Timestamp),
			ModelUsed: m.ModelUsed,
		}
	}
	return ConversationExport{
		ID:        s.ID,
		Title:     s.Title,
		ModelID:   modelID,
		Messages:  msgs,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
	}
}

// Session re-hydrates an exported conversation. Every message gets a new
// ID because imported IDs may collide with existing ones.
func (c ConversationExport) Session() (Session, error) {
	created, err := ParseTime(c.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("conversation %s: createdAt: %w", c.ID, err)
	}
	updated, err := ParseTime(c.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("conversation %s: updatedAt: %w", c.ID, err)
	}

	msgs := make([]Message, 0, len(c.Messages))
	for i, me := range c.Messages {
		ts, err := ParseTime(me.Timestamp)
		if err != nil {
			return Session{}, fmt.Errorf("conversation %s: message %d: %w", c.ID, i, err)
		}
		if !me.Role.Valid() {
			return Session{}, fmt.Errorf("conversation %s: message %d: unknown role %q", c.ID, i, me.Role)
		}
		msgs = append(msgs, Message{
			ID:        NewID(),
			Content:   me.Content,
			Role:      me.Role,
			Timestamp: ts,
			ModelUsed: me.ModelUsed,
		})
	}

	id := c.ID
	if id == "" {
		id = NewID()
	}

	return Session{
		ID:        id,
		Title:     c.Title,
		Messages:  msgs,
		CreatedAt: created,
		UpdatedAt: updated,
		ModelID:   c.ModelID,
	}, nil
}
