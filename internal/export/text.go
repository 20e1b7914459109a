// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports bundles as a plain text transcript.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a bundle to plain text.
func (e *TextExporter) Export(b *model.ExportBundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}

	var sb strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&sb, "Chat export for %s\n", userName(b))
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "Exported: %s\n", formatTimestamp(b.ExportDate))
		fmt.Fprintf(&sb, "Conversations: %d\n", len(b.Conversations))
	}

	for _, conv := range b.Conversations {
		fmt.Fprintf(&sb, "\n%s\n%s\n", rule, singleLine(conv.Title))
		if e.options.IncludeMetadata {
			fmt.Fprintf(&sb, "Model: %s | Created: %s\n", conv.ModelID, formatTimestamp(conv.CreatedAt))
		}
		sb.WriteString(rule + "\n")

		for _, msg := range conv.Messages {
			if e.options.IncludeTimestamps {
				fmt.Fprintf(&sb, "\n[%s] %s:\n", formatShortTimestamp(msg.Timestamp), msg.Role.DisplayName())
			} else {
				fmt.Fprintf(&sb, "\n%s:\n", msg.Role.DisplayName())
			}
			sb.WriteString(strings.TrimSpace(msg.Content))
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

