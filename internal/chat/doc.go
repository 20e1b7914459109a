// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the chat sessions of an installation.
//
// Store keeps every session, the current-session pointer, the selected
// model and the models the backend reported. It is the only writer of
// session data to the key-value store. Mutations happen under a mutex;
// calls into the inference backend happen outside it so readers stay
// responsive while a reply is pending.
//
// Invariants:
//
//   - The current session ID is empty or names an existing session.
//   - Messages are only appended, never edited or reordered.
//   - At most one generation is in flight per session.
//
// Subscribers receive a coalesced signal after every state change and
// read the new state with Snapshot.
package chat
