// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors. Use errors.Is to check for them; returned errors carry
// the offending session ID.
var (
	ErrSessionNotFound    = &SessionError{Message: "session not found"}
	ErrGenerationInFlight = &SessionError{Message: "a reply is still pending for this session"}
)

// SessionError represents a session-related error.
type SessionError struct {
	Message string
	ID      string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.ID == "" {
		return e.Message
	}
	return e.Message + ": " + e.ID
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func notFound(id string) error {
	return &SessionError{Message: ErrSessionNotFound.Message, ID: id}
}

func inFlight(id string) error {
	return &SessionError{Message: ErrGenerationInFlight.Message, ID: id}
}
