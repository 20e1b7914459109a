// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

// ExportFormat selects the file format written by an export.
type ExportFormat string

const (
	ExportJSON     ExportFormat = "json"
	ExportText     ExportFormat = "txt"
	ExportMarkdown ExportFormat = "md"
)

// Valid reports whether f is a known export format.
func (f ExportFormat) Valid() bool {
	return f == ExportJSON || f == ExportText || f == ExportMarkdown
}

// Preferences holds user-tunable settings.
type Preferences struct {
	Theme            Theme
	Language         string
	AutoSave         bool
	DefaultModel     string
	MaxConversations int
	ExportFormat     ExportFormat
}

// DefaultPreferences returns the settings of a fresh installation.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:            ThemeAuto,
		Language:         "en",
		AutoSave:         true,
		MaxConversations: 50,
		ExportFormat:     ExportJSON,
	}
}

// Validate checks enum fields and limits.
func (p Preferences) Validate() error {
	if !p.Theme.Valid() {
		return fmt.Errorf("theme %q: must be light, dark or auto", p.Theme)
	}
	if !p.ExportFormat.Valid() {
		return fmt.Errorf("export format %q: must be json, txt or md", p.ExportFormat)
	}
	if p.MaxConversations <= 0 {
		return fmt.Errorf("max conversations %d: must be positive", p.MaxConversations)
	}
	return nil
}

// DefaultProfileID is the identifier of the single local profile.
const DefaultProfileID = "default-user"

// Profile is the one user profile of an installation.
type Profile struct {
	ID          string
	Name        string
	Email       string
	Avatar      string
	Preferences Preferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefaultProfile returns the profile used before anything was saved.
func DefaultProfile(now time.Time) Profile {
	return Profile{
		ID:          DefaultProfileID,
		Name:        "User",
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
