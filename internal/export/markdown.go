// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports bundles to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a bundle to Markdown format.
func (e *MarkdownExporter) Export(b *model.ExportBundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}

	var sb strings.Builder
	name := userName(b)

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML("Chat export for "+name)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", b.ExportDate))
		sb.WriteString(fmt.Sprintf("conversations: %d\n", len(b.Conversations)))
		sb.WriteString(fmt.Sprintf("version: %s\n", b.Version))
		sb.WriteString("generator: localchat\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# Chat export for %s\n\n", escapeMarkdown(name)))
	if len(b.Conversations) == 0 {
		sb.WriteString("*No conversations.*\n")
	}

	for _, conv := range b.Conversations {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdown(singleLine(conv.Title))))

		if e.options.IncludeMetadata {
			sb.WriteString(fmt.Sprintf("- **Model**: %s\n", conv.ModelID))
			sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(conv.CreatedAt)))
			sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt)))
			sb.WriteString(fmt.Sprintf("- **Messages**: %d\n\n", len(conv.Messages)))
		}

		for _, msg := range conv.Messages {
			label := formatRoleLabel(msg.Role)
			if e.options.IncludeTimestamps {
				sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
			} else {
				sb.WriteString(fmt.Sprintf("### %s\n\n", label))
			}
			// Content is already Markdown.
			sb.WriteString(strings.TrimSpace(msg.Content))
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}


// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a formatted label for the message role.
func formatRoleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}
	return "[" + role.DisplayName() + "]"
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a frontmatter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
