// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for bundle exporters.
type Exporter interface {
	// Export converts a bundle to the target format and returns the content.
	Export(b *model.ExportBundle) ([]byte, error)

	// FileExtension returns the file extension including the dot (e.g. ".md").
	FileExtension() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures the human-readable exporters. The JSON exporter
// ignores them so its output always re-imports.
type Options struct {
	// IncludeMetadata includes the frontmatter and per-conversation details.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for format.
func ForFormat(format model.ExportFormat, opts *Options) (Exporter, error) {
	switch format {
	case model.ExportJSON, "":
		return NewJSONExporter(), nil
	case model.ExportMarkdown, "markdown":
		return NewMarkdownExporter(opts), nil
	case model.ExportText, "text":
		return NewTextExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// BUNDLES
// =============================================================================

// Build snapshots profile and sessions into a bundle stamped with now.
func Build(profile model.Profile, sessions []model.Session, now time.Time) model.ExportBundle {
	user := model.ProfileToRecord(profile)
	convs := make([]model.ConversationExport, len(sessions))
	for i, s := range sessions {
		convs[i] = model.SessionToExport(s)
	}
	return model.ExportBundle{
		User:          &user,
		Conversations: convs,
		ExportDate:    model.FormatTime(now),
		Version:       model.BundleVersion,
	}
}

// Filename is the date-stamped name of an export written at now.
func Filename(now time.Time, ext string) string {
	return "chat-export-" + now.UTC().Format("2006-01-02") + ext
}

// WriteFile exports b into dir and returns the path written.
func WriteFile(b *model.ExportBundle, exporter Exporter, dir string, now time.Time) (string, error) {
	content, err := exporter.Export(b)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, Filename(now, exporter.FileExtension()))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatTimestamp renders a stored timestamp for display, or returns it
// unchanged when it does not parse.
func formatTimestamp(s string) string {
	t, err := model.ParseTime(s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatShortTimestamp renders a stored timestamp for inline display.
func formatShortTimestamp(s string) string {
	t, err := model.ParseTime(s)
	if err != nil {
		return s
	}
	return t.Local().Format("15:04:05")
}

func userName(b *model.ExportBundle) string {
	if b.User == nil || b.User.Name == "" {
		return "User"
	}
	return b.User.Name
}
