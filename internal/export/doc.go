// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export builds and writes export bundles.
//
// A bundle is the profile plus every session, with timestamps as text. The
// JSON form is the interchange format read back by Decode; Markdown and
// plain text are for reading only.
//
// # Supported Formats
//
//   - json: indented JSON, re-importable
//   - md: Markdown with YAML frontmatter
//   - txt: plain text transcript
//
// # Usage
//
//	bundle := export.Build(profile, sessions, time.Now())
//	exp, _ := export.ForFormat(model.ExportMarkdown, nil)
//	path, err := export.WriteFile(&bundle, exp, dir, time.Now())
package export
