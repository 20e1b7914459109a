// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/localchat/internal/model"
)

// ErrInvalidBundle is returned for documents that are not export bundles.
var ErrInvalidBundle = errors.New("invalid export bundle")

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports bundles to indented JSON, the format Decode reads.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts a bundle to JSON format.
func (e *JSONExporter) Export(b *model.ExportBundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	out := *b
	if out.Conversations == nil {
		out.Conversations = []model.ConversationExport{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}


// =============================================================================
// DECODING
// =============================================================================

// Decode parses a JSON bundle. A document with neither a user nor a
// conversations section is rejected. Errors wrap ErrInvalidBundle.
func Decode(data []byte) (*model.ExportBundle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidBundle)
	}

	var b model.ExportBundle
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if b.User == nil && b.Conversations == nil {
		return nil, fmt.Errorf("%w: no user or conversations section", ErrInvalidBundle)
	}
	return &b, nil
}

// Restored is the typed content of a decoded bundle. A nil Profile or nil
// Sessions means the section was absent.
type Restored struct {
	Profile  *model.Profile
	Sessions []model.Session
}

// Restore converts every section of b, failing as a whole if any part does
// not convert. Message IDs are regenerated. A user section without
// timestamps is stamped with now.
func Restore(b *model.ExportBundle, now time.Time) (Restored, error) {
	var r Restored
	if b.User != nil {
		p, err := b.User.Profile(now)
		if err != nil {
			return Restored{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
		r.Profile = &p
	}
	if b.Conversations != nil {
		r.Sessions = make([]model.Session, 0, len(b.Conversations))
		for _, c := range b.Conversations {
			s, err := c.Session()
			if err != nil {
				return Restored{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
			}
			r.Sessions = append(r.Sessions, s)
		}
	}
	return r, nil
}
