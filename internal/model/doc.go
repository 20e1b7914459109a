// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the localchat stores.
//
// # Key Types
//
//   - Message: one immutable chat message
//   - Session: an ordered conversation bound to a model
//   - ModelInfo: a model advertised by the inference backend
//   - Profile, Preferences: the single local user profile
//   - ExportBundle: the backup/restore interchange document
//
// # Persistence Boundary
//
// Timestamps are stored as text. EncodeSessions/DecodeSessions and
// ProfileToRecord/ProfileRecord.Profile are the only places that convert
// between the in-memory types and their stored JSON form; FormatTime and
// ParseTime are the only timestamp codec.
package model
